package ai

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
)

// VectorCache stores embeddings by key. GetVectors returns one entry per key,
// nil for a miss.
type VectorCache interface {
	GetVectors(ctx context.Context, keys []string) ([][]float32, error)
	SetVectors(ctx context.Context, keys []string, vectors [][]float32) error
}

// CachedEmbedder skips the provider for text it has already embedded with the
// same model. Cache failures degrade to a provider call.
type CachedEmbedder struct {
	next   Embedder
	cache  VectorCache
	logger *slog.Logger
}

func NewCachedEmbedder(next Embedder, cache VectorCache, logger *slog.Logger) *CachedEmbedder {
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedEmbedder{next: next, cache: cache, logger: logger}
}

func (e *CachedEmbedder) Model() string { return e.next.Model() }

func (e *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return embedOne(ctx, e, text)
}

func (e *CachedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	keys := make([]string, len(texts))
	for i, t := range texts {
		keys[i] = e.key(t)
	}

	result := make([][]float32, len(texts))
	cached, err := e.cache.GetVectors(ctx, keys)
	if err != nil {
		e.logger.Warn("embedding cache read failed", "error", err)
	} else if len(cached) == len(keys) {
		copy(result, cached)
	}

	var missIdx []int
	var missTexts []string
	for i := range texts {
		if len(result[i]) == 0 {
			missIdx = append(missIdx, i)
			missTexts = append(missTexts, texts[i])
		}
	}
	if len(missIdx) == 0 {
		return result, nil
	}

	fresh, err := e.next.EmbedBatch(ctx, missTexts)
	if err != nil {
		return nil, err
	}

	missKeys := make([]string, len(missIdx))
	for j, i := range missIdx {
		result[i] = fresh[j]
		missKeys[j] = keys[i]
	}
	if err := e.cache.SetVectors(ctx, missKeys, fresh); err != nil {
		e.logger.Warn("embedding cache write failed", "error", err)
	}
	e.logger.Debug("embedding cache", "hits", len(texts)-len(missIdx), "misses", len(missIdx))
	return result, nil
}

func (e *CachedEmbedder) key(text string) string {
	sum := sha256.Sum256([]byte(e.next.Model() + "\x00" + text))
	return "embedding:" + e.next.Model() + ":" + hex.EncodeToString(sum[:])
}
