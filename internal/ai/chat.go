package ai

import (
	"context"
	"errors"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// ErrContractViolation means the chat backend answered with a body that does
// not carry a string "content" field.
var ErrContractViolation = errors.New("chat backend response violates contract")

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is everything a backend needs for one turn. History excludes
// Message.
type ChatRequest struct {
	Message   string
	Prompt    string
	History   []ChatMessage
	SessionID string
}

type ChatBackend interface {
	Chat(ctx context.Context, req ChatRequest) (string, error)
}
