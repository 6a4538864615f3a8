package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"consultbot/internal/ai"
)

var errEmptyReply = errors.New("the assistant returned an empty response")

type SendInput struct {
	History   []ai.ChatMessage
	Prompt    string
	Message   string
	SessionID string
}

type Reply struct {
	Content string `json:"content"`
}

// Gateway forwards a chat turn to the configured backend and always produces
// something the chat UI can display.
type Gateway struct {
	backend      ai.ChatBackend
	contactEmail string
	logger       *slog.Logger
}

func NewGateway(backend ai.ChatBackend, contactEmail string, logger *slog.Logger) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{backend: backend, contactEmail: contactEmail, logger: logger}
}

func (g *Gateway) Send(ctx context.Context, input SendInput) Reply {
	content, err := g.backend.Chat(ctx, ai.ChatRequest{
		Message:   input.Message,
		Prompt:    input.Prompt,
		History:   input.History,
		SessionID: input.SessionID,
	})
	if err != nil {
		g.logger.Error("chat backend failed", "session_id", input.SessionID, "error", err)
		return Reply{Content: g.apology(err)}
	}
	if strings.TrimSpace(content) == "" {
		g.logger.Warn("chat backend returned empty content", "session_id", input.SessionID)
		return Reply{Content: g.apology(errEmptyReply)}
	}
	return Reply{Content: content}
}

func (g *Gateway) apology(err error) string {
	detail := strings.TrimSpace(err.Error())
	return fmt.Sprintf(
		"Sorry, something went wrong while answering (error: %s). Please try again or email us at %s.",
		detail, g.contactEmail,
	)
}
