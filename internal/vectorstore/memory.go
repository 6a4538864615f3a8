package vectorstore

import (
	"context"
	"fmt"
	"sync"
)

// MemoryStore keeps one immutable snapshot that Rebuild swaps wholesale.
type MemoryStore struct {
	mu      sync.RWMutex
	records []Record
	dim     int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Rebuild(ctx context.Context, records []Record) error {
	dim, err := Dimension(records)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	snapshot := make([]Record, len(records))
	for i, rec := range records {
		vec := make([]float32, len(rec.Vector))
		copy(vec, rec.Vector)
		snapshot[i] = Record{Vector: vec, Chunk: rec.Chunk}
	}

	s.mu.Lock()
	s.records = snapshot
	s.dim = dim
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Search(ctx context.Context, query []float32, k int) ([]Result, error) {
	s.mu.RLock()
	records, dim := s.records, s.dim
	s.mu.RUnlock()

	if len(records) == 0 || k <= 0 {
		return []Result{}, nil
	}
	if len(query) != dim {
		return nil, fmt.Errorf("%w: query has %d, index has %d", ErrDimensionMismatch, len(query), dim)
	}
	return rank(records, query, k), nil
}

func (s *MemoryStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records), nil
}
