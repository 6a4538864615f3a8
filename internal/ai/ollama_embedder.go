package ai

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/ollama/ollama/api"
)

// OllamaEmbedder uses a local Ollama server.
type OllamaEmbedder struct {
	client *api.Client
	cfg    EmbeddingConfig
}

func NewOllamaEmbedder(cfg EmbeddingConfig) (*OllamaEmbedder, error) {
	host := cfg.BaseURL
	if host == "" {
		host = "http://localhost:11434"
	}
	u, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("parse ollama host failed: %w", err)
	}
	return &OllamaEmbedder{
		client: api.NewClient(u, &http.Client{Timeout: cfg.timeout()}),
		cfg:    cfg,
	}, nil
}

func (e *OllamaEmbedder) Model() string { return e.cfg.Model }

func (e *OllamaEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return embedOne(ctx, e, text)
}

func (e *OllamaEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, e.cfg.timeout())
	defer cancel()

	resp, err := e.client.Embed(ctx, &api.EmbedRequest{
		Model: e.cfg.Model,
		Input: texts,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: ollama embed: %w", ErrEmbedding, err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("%w: ollama returned %d embeddings for %d inputs", ErrEmbedding, len(resp.Embeddings), len(texts))
	}
	for i, vec := range resp.Embeddings {
		if len(vec) == 0 {
			return nil, fmt.Errorf("%w: ollama returned an empty embedding at %d", ErrEmbedding, i)
		}
	}
	return resp.Embeddings, nil
}
