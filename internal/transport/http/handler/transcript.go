package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"consultbot/internal/app"
	"consultbot/internal/transport/http/response"
)

type TranscriptHandler struct {
	transcriptService *app.TranscriptService
}

func NewTranscriptHandler(transcriptService *app.TranscriptService) *TranscriptHandler {
	return &TranscriptHandler{transcriptService: transcriptService}
}

func (h *TranscriptHandler) List(c *gin.Context) {
	limit := 100
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}

	sessionID := c.Query("session_id")
	messages, err := h.transcriptService.List(c.Request.Context(), sessionID, limit)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrInvalidInput):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "missing session_id")
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "list transcript failed")
		}
		return
	}

	response.OK(c, gin.H{"session_id": sessionID, "messages": messages})
}
