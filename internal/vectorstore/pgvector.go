package vectorstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pgvector/pgvector-go"
)

const pgvectorSchema = `
CREATE EXTENSION IF NOT EXISTS vector;
CREATE TABLE IF NOT EXISTS knowledge_chunks (
	id        BIGSERIAL PRIMARY KEY,
	source_id TEXT NOT NULL,
	sequence  INTEGER NOT NULL,
	category  TEXT NOT NULL DEFAULT '',
	label     TEXT NOT NULL DEFAULT '',
	content   TEXT NOT NULL,
	embedding vector NOT NULL
);`

// PgvectorStore keeps records in PostgreSQL and lets the pgvector cosine
// distance operator do the ranking.
type PgvectorStore struct {
	db *sql.DB
}

func NewPgvectorStore(ctx context.Context, db *sql.DB) (*PgvectorStore, error) {
	if _, err := db.ExecContext(ctx, pgvectorSchema); err != nil {
		return nil, fmt.Errorf("create pgvector schema failed: %w", err)
	}
	return &PgvectorStore{db: db}, nil
}

func (s *PgvectorStore) Rebuild(ctx context.Context, records []Record) error {
	if _, err := Dimension(records); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin rebuild failed: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "TRUNCATE knowledge_chunks RESTART IDENTITY"); err != nil {
		return fmt.Errorf("truncate knowledge chunks failed: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO knowledge_chunks (source_id, sequence, category, label, content, embedding)
		VALUES ($1, $2, $3, $4, $5, $6)`)
	if err != nil {
		return fmt.Errorf("prepare knowledge insert failed: %w", err)
	}
	defer stmt.Close()

	for _, rec := range records {
		if _, err := stmt.ExecContext(ctx,
			rec.Chunk.SourceID,
			rec.Chunk.Sequence,
			rec.Chunk.Category,
			rec.Chunk.Label,
			rec.Chunk.Text,
			pgvector.NewVector(rec.Vector),
		); err != nil {
			return fmt.Errorf("insert knowledge chunk failed: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit rebuild failed: %w", err)
	}
	return nil
}

func (s *PgvectorStore) Search(ctx context.Context, query []float32, k int) ([]Result, error) {
	if k <= 0 {
		return []Result{}, nil
	}
	if len(query) == 0 {
		return nil, ErrEmptyVector
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT source_id, sequence, category, label, content, 1 - (embedding <=> $1) AS score
		FROM knowledge_chunks
		ORDER BY embedding <=> $1, id
		LIMIT $2`, pgvector.NewVector(query), k)
	if err != nil {
		return nil, fmt.Errorf("search knowledge chunks failed: %w", err)
	}
	defer rows.Close()

	return scanResults(rows)
}

func (s *PgvectorStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM knowledge_chunks").Scan(&n); err != nil {
		return 0, fmt.Errorf("count knowledge chunks failed: %w", err)
	}
	return n, nil
}

type resultRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanResults(rows resultRows) ([]Result, error) {
	results := []Result{}
	for rows.Next() {
		var r Result
		var score float64
		if err := rows.Scan(&r.Chunk.SourceID, &r.Chunk.Sequence, &r.Chunk.Category, &r.Chunk.Label, &r.Chunk.Text, &score); err != nil {
			return nil, fmt.Errorf("scan knowledge chunk failed: %w", err)
		}
		r.Score = float32(score)
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate knowledge chunks failed: %w", err)
	}
	return results, nil
}
