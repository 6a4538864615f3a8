package model

import "time"

// Message is one persisted chat turn. SessionID is the opaque id handed out
// to the chat widget.
type Message struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	SessionID string    `gorm:"size:64;not null;index" json:"session_id"`
	Role      string    `gorm:"size:16;not null" json:"role"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	Context   string    `gorm:"type:mediumtext" json:"context,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func (Message) TableName() string {
	return "transcript_messages"
}
