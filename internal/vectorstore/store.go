// Package vectorstore holds embedded knowledge chunks and answers nearest
// neighbour queries by cosine similarity.
package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"consultbot/internal/knowledge"
)

var (
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
	ErrEmptyVector       = errors.New("embedding vector is empty")
)

// Record pairs a chunk with its embedding.
type Record struct {
	Vector []float32
	Chunk  knowledge.Chunk
}

type Result struct {
	Chunk knowledge.Chunk `json:"chunk"`
	Score float32         `json:"score"`
}

// Store is implemented by every index backend.
//
// Rebuild replaces all content or nothing. Search returns at most k results
// ordered by non-increasing similarity with ties kept in insertion order; an
// empty store or k <= 0 gives an empty result and no error.
type Store interface {
	Rebuild(ctx context.Context, records []Record) error
	Search(ctx context.Context, query []float32, k int) ([]Result, error)
	Count(ctx context.Context) (int, error)
}

// CosineSimilarity returns 0 for mismatched or zero-length vectors.
func CosineSimilarity(a, b []float32) float32 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}

// Dimension checks that all records share one non-zero dimension and returns
// it; 0 for no records.
func Dimension(records []Record) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}
	dim := len(records[0].Vector)
	if dim == 0 {
		return 0, ErrEmptyVector
	}
	for i, rec := range records {
		if len(rec.Vector) != dim {
			return 0, fmt.Errorf("%w: record %d has %d, want %d", ErrDimensionMismatch, i, len(rec.Vector), dim)
		}
	}
	return dim, nil
}

// rank scores records in insertion order and keeps the best k.
func rank(records []Record, query []float32, k int) []Result {
	if k <= 0 || len(records) == 0 {
		return []Result{}
	}
	results := make([]Result, len(records))
	for i, rec := range records {
		results[i] = Result{Chunk: rec.Chunk, Score: CosineSimilarity(query, rec.Vector)}
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if k < len(results) {
		results = results[:k]
	}
	return results
}
