package app

import (
	"context"
	"strings"

	"consultbot/internal/model"
)

type TranscriptReader interface {
	ListBySessionID(ctx context.Context, sessionID string, limit int) ([]model.Message, error)
}

type TranscriptService struct {
	reader TranscriptReader
}

func NewTranscriptService(reader TranscriptReader) *TranscriptService {
	return &TranscriptService{reader: reader}
}

func (s *TranscriptService) List(ctx context.Context, sessionID string, limit int) ([]model.Message, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, ErrInvalidInput
	}
	return s.reader.ListBySessionID(ctx, sessionID, limit)
}
