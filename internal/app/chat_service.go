package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"consultbot/internal/ai"
	"consultbot/internal/model"
)

var (
	ErrInvalidInput   = errors.New("invalid input")
	ErrMessageEmpty   = errors.New("message content is empty")
	ErrInvalidHistory = errors.New("history contains an unknown role")
)

type AsyncMessagePublisher interface {
	Publish(ctx context.Context, msg model.Message) error
}

type ChatServiceConfig struct {
	Retriever  *Retriever
	Gateway    *Gateway
	Persona    Persona
	Publisher  AsyncMessagePublisher // nil disables transcripts
	MaxContext int
	TopK       int
	Logger     *slog.Logger
}

type ChatService struct {
	retriever  *Retriever
	gateway    *Gateway
	persona    Persona
	publisher  AsyncMessagePublisher
	maxContext int
	topK       int
	logger     *slog.Logger
}

type ChatInput struct {
	SessionID string
	Message   string
	History   []ai.ChatMessage
}

type ChatResult struct {
	SessionID string `json:"session_id"`
	Content   string `json:"content"`
}

func NewChatService(cfg ChatServiceConfig) *ChatService {
	if cfg.MaxContext <= 0 {
		cfg.MaxContext = 20
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &ChatService{
		retriever:  cfg.Retriever,
		gateway:    cfg.Gateway,
		persona:    cfg.Persona,
		publisher:  cfg.Publisher,
		maxContext: cfg.MaxContext,
		topK:       cfg.TopK,
		logger:     cfg.Logger,
	}
}

// Chat answers one user turn: retrieve knowledge, assemble the system prompt
// and hand everything to the gateway. Only invalid input is an error.
func (s *ChatService) Chat(ctx context.Context, input ChatInput) (*ChatResult, error) {
	message := strings.TrimSpace(input.Message)
	if message == "" {
		return nil, ErrMessageEmpty
	}
	if err := validateHistory(input.History); err != nil {
		return nil, err
	}

	sessionID := strings.TrimSpace(input.SessionID)
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	history := s.recentHistory(input.History)

	retrieved := s.retriever.Retrieve(ctx, message, s.topK)
	prompt := BuildSystemPrompt(s.persona, retrieved)
	reply := s.gateway.Send(ctx, SendInput{
		History:   history,
		Prompt:    prompt,
		Message:   message,
		SessionID: sessionID,
	})

	s.recordTranscript(ctx, sessionID, message, retrieved, reply.Content)
	return &ChatResult{SessionID: sessionID, Content: reply.Content}, nil
}

// PreviewPrompt returns the retrieved context and the system prompt the next
// turn for question would be sent with.
func (s *ChatService) PreviewPrompt(ctx context.Context, question string) (string, string) {
	retrieved := s.retriever.Retrieve(ctx, question, s.topK)
	return retrieved, BuildSystemPrompt(s.persona, retrieved)
}

func validateHistory(history []ai.ChatMessage) error {
	for i, m := range history {
		if m.Role != ai.RoleUser && m.Role != ai.RoleAssistant {
			return fmt.Errorf("%w: %q at %d", ErrInvalidHistory, m.Role, i)
		}
	}
	return nil
}

// recentHistory copies the last maxContext entries so the caller's slice is
// never touched.
func (s *ChatService) recentHistory(history []ai.ChatMessage) []ai.ChatMessage {
	start := 0
	if len(history) > s.maxContext {
		start = len(history) - s.maxContext
	}
	out := make([]ai.ChatMessage, len(history)-start)
	copy(out, history[start:])
	return out
}

func (s *ChatService) recordTranscript(ctx context.Context, sessionID, message, retrieved, answer string) {
	if s.publisher == nil {
		return
	}
	now := time.Now()
	turns := []model.Message{
		{SessionID: sessionID, Role: ai.RoleUser, Content: message, Context: retrieved, CreatedAt: now},
		{SessionID: sessionID, Role: ai.RoleAssistant, Content: answer, CreatedAt: now.Add(time.Millisecond)},
	}
	for _, turn := range turns {
		if err := s.publisher.Publish(ctx, turn); err != nil {
			s.logger.Warn("publish transcript message failed", "session_id", sessionID, "role", turn.Role, "error", err)
			return
		}
	}
}
