package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	redisv9 "github.com/redis/go-redis/v9"
)

// EmbeddingCache keeps embedding vectors in Redis as JSON arrays.
type EmbeddingCache struct {
	client *redisv9.Client
	ttl    time.Duration
}

// NewEmbeddingCache stores entries without expiry when ttl <= 0.
func NewEmbeddingCache(client *redisv9.Client, ttl time.Duration) *EmbeddingCache {
	if ttl < 0 {
		ttl = 0
	}
	return &EmbeddingCache{client: client, ttl: ttl}
}

func (c *EmbeddingCache) GetVectors(ctx context.Context, keys []string) ([][]float32, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	raw, err := c.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis mget embeddings failed: %w", err)
	}

	vectors := make([][]float32, len(keys))
	for i, item := range raw {
		s, ok := item.(string)
		if !ok {
			continue
		}
		var vec []float32
		if err := json.Unmarshal([]byte(s), &vec); err != nil {
			continue
		}
		vectors[i] = vec
	}
	return vectors, nil
}

func (c *EmbeddingCache) SetVectors(ctx context.Context, keys []string, vectors [][]float32) error {
	if len(keys) != len(vectors) {
		return fmt.Errorf("embedding cache got %d keys for %d vectors", len(keys), len(vectors))
	}
	pipe := c.client.Pipeline()
	for i, key := range keys {
		payload, err := json.Marshal(vectors[i])
		if err != nil {
			return fmt.Errorf("marshal embedding cache entry failed: %w", err)
		}
		pipe.Set(ctx, key, payload, c.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis set embeddings failed: %w", err)
	}
	return nil
}
