package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"consultbot/internal/model"
)

const knowledgeInsertBatch = 200

type KnowledgeChunkRepository struct {
	db *gorm.DB
}

func NewKnowledgeChunkRepository(db *gorm.DB) *KnowledgeChunkRepository {
	return &KnowledgeChunkRepository{db: db}
}

// ReplaceAll deletes every chunk and inserts the given ones in a single
// transaction.
func (r *KnowledgeChunkRepository) ReplaceAll(ctx context.Context, chunks []model.KnowledgeChunk) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&model.KnowledgeChunk{}).Error; err != nil {
			return fmt.Errorf("delete knowledge chunks failed: %w", err)
		}
		if len(chunks) == 0 {
			return nil
		}
		if err := tx.CreateInBatches(&chunks, knowledgeInsertBatch).Error; err != nil {
			return fmt.Errorf("create knowledge chunks failed: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("replace knowledge chunks failed: %w", err)
	}
	return nil
}

// ListAll returns chunks in insertion order.
func (r *KnowledgeChunkRepository) ListAll(ctx context.Context) ([]model.KnowledgeChunk, error) {
	var chunks []model.KnowledgeChunk
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&chunks).Error; err != nil {
		return nil, fmt.Errorf("list knowledge chunks failed: %w", err)
	}
	return chunks, nil
}

func (r *KnowledgeChunkRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&model.KnowledgeChunk{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count knowledge chunks failed: %w", err)
	}
	return n, nil
}
