package ai

import (
	"context"
	"errors"
	"time"
)

// ErrEmbedding wraps every failure to obtain vectors from a provider.
var ErrEmbedding = errors.New("embedding failed")

// Embedder turns text into fixed-dimension vectors. EmbedBatch results are
// index-aligned with its input.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Model() string
}

// EmbeddingConfig holds provider settings shared by all embedders.
type EmbeddingConfig struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

func (c EmbeddingConfig) timeout() time.Duration {
	if c.Timeout <= 0 {
		return 30 * time.Second
	}
	return c.Timeout
}

func embedOne(ctx context.Context, e Embedder, text string) ([]float32, error) {
	vecs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}
