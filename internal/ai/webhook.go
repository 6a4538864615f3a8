package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const maxWebhookBody = 1 << 20

type WebhookConfig struct {
	URL     string
	Secret  string
	Timeout time.Duration
}

// WebhookClient forwards a chat turn to a workflow-automation webhook and
// expects {"content": "..."} back.
type WebhookClient struct {
	cfg        WebhookConfig
	httpClient *http.Client
}

type webhookPayload struct {
	Message   string        `json:"message"`
	Prompt    string        `json:"prompt"`
	History   []ChatMessage `json:"history"`
	SessionID string        `json:"sessionId,omitempty"`
}

func NewWebhookClient(cfg WebhookConfig) *WebhookClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &WebhookClient{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

func (c *WebhookClient) Chat(ctx context.Context, req ChatRequest) (string, error) {
	history := req.History
	if history == nil {
		history = []ChatMessage{}
	}
	bodyBytes, err := json.Marshal(webhookPayload{
		Message:   req.Message,
		Prompt:    req.Prompt,
		History:   history,
		SessionID: req.SessionID,
	})
	if err != nil {
		return "", fmt.Errorf("marshal webhook request failed: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("build webhook request failed: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.cfg.Secret != "" {
		httpReq.Header.Set("X-Webhook-Secret", c.cfg.Secret)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("webhook request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxWebhookBody))
	if err != nil {
		return "", fmt.Errorf("read webhook response failed: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("webhook response status %d: %s", resp.StatusCode, truncate(string(raw), 200))
	}
	return parseWebhookContent(raw)
}

func parseWebhookContent(raw []byte) (string, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return "", fmt.Errorf("%w: body is not a json object", ErrContractViolation)
	}
	field, ok := fields["content"]
	if !ok {
		return "", fmt.Errorf("%w: missing content field", ErrContractViolation)
	}
	if string(bytes.TrimSpace(field)) == "null" {
		return "", fmt.Errorf("%w: content is null", ErrContractViolation)
	}
	var content string
	if err := json.Unmarshal(field, &content); err != nil {
		return "", fmt.Errorf("%w: content is not a string", ErrContractViolation)
	}
	return content, nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
