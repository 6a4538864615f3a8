package model

import (
	"encoding/json"
	"time"
)

// KnowledgeChunk is one embedded knowledge window. The embedding is kept as a
// JSON float array so the table works on any MySQL version.
type KnowledgeChunk struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	SourceID  string    `gorm:"size:255;not null;index" json:"source_id"`
	Sequence  int       `gorm:"not null" json:"sequence"`
	Category  string    `gorm:"size:128" json:"category"`
	Label     string    `gorm:"size:255" json:"label"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	Embedding string    `gorm:"type:mediumtext" json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// EmbeddingVector returns the parsed embedding; nil on parse error.
func (c *KnowledgeChunk) EmbeddingVector() []float32 {
	if c.Embedding == "" {
		return nil
	}
	var v []float32
	if err := json.Unmarshal([]byte(c.Embedding), &v); err != nil {
		return nil
	}
	return v
}

func (c *KnowledgeChunk) SetEmbedding(vec []float32) error {
	if len(vec) == 0 {
		c.Embedding = "[]"
		return nil
	}
	b, err := json.Marshal(vec)
	if err != nil {
		return err
	}
	c.Embedding = string(b)
	return nil
}
