package vectorstore

import (
	"context"
	"fmt"

	"consultbot/internal/knowledge"
	"consultbot/internal/model"
	"consultbot/internal/repository"
)

// MySQLStore persists records through gorm and scores them in process, so a
// restart can serve the last committed index without re-embedding.
type MySQLStore struct {
	repo *repository.KnowledgeChunkRepository
}

func NewMySQLStore(repo *repository.KnowledgeChunkRepository) *MySQLStore {
	return &MySQLStore{repo: repo}
}

func (s *MySQLStore) Rebuild(ctx context.Context, records []Record) error {
	rows, err := chunkRows(records)
	if err != nil {
		return err
	}
	return s.repo.ReplaceAll(ctx, rows)
}

func (s *MySQLStore) Search(ctx context.Context, query []float32, k int) ([]Result, error) {
	if k <= 0 {
		return []Result{}, nil
	}
	rows, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	return searchRows(rows, query, k)
}

func (s *MySQLStore) Count(ctx context.Context) (int, error) {
	n, err := s.repo.Count(ctx)
	return int(n), err
}

func chunkRows(records []Record) ([]model.KnowledgeChunk, error) {
	if _, err := Dimension(records); err != nil {
		return nil, err
	}
	rows := make([]model.KnowledgeChunk, len(records))
	for i, rec := range records {
		rows[i] = model.KnowledgeChunk{
			SourceID: rec.Chunk.SourceID,
			Sequence: rec.Chunk.Sequence,
			Category: rec.Chunk.Category,
			Label:    rec.Chunk.Label,
			Content:  rec.Chunk.Text,
		}
		if err := rows[i].SetEmbedding(rec.Vector); err != nil {
			return nil, fmt.Errorf("encode embedding failed: %w", err)
		}
	}
	return rows, nil
}

// rowRecords skips rows whose embedding cannot be decoded.
func rowRecords(rows []model.KnowledgeChunk) []Record {
	records := make([]Record, 0, len(rows))
	for i := range rows {
		vec := rows[i].EmbeddingVector()
		if len(vec) == 0 {
			continue
		}
		records = append(records, Record{
			Vector: vec,
			Chunk: knowledge.Chunk{
				Text:     rows[i].Content,
				SourceID: rows[i].SourceID,
				Sequence: rows[i].Sequence,
				Category: rows[i].Category,
				Label:    rows[i].Label,
			},
		})
	}
	return records
}

func searchRows(rows []model.KnowledgeChunk, query []float32, k int) ([]Result, error) {
	records := rowRecords(rows)
	if len(records) == 0 || k <= 0 {
		return []Result{}, nil
	}
	if dim := len(records[0].Vector); dim != len(query) {
		return nil, fmt.Errorf("%w: query has %d, index has %d", ErrDimensionMismatch, len(query), dim)
	}
	return rank(records, query, k), nil
}
