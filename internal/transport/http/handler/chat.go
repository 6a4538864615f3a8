package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"consultbot/internal/ai"
	"consultbot/internal/app"
	"consultbot/internal/transport/http/response"
)

type ChatHandler struct {
	chatService *app.ChatService
}

type SendMessageRequest struct {
	SessionID string           `json:"session_id" binding:"max=64"`
	Message   string           `json:"message" binding:"required,max=4000"`
	History   []ai.ChatMessage `json:"history" binding:"max=200"`
}

func NewChatHandler(chatService *app.ChatService) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

// SendMessage answers 200 even when the chat backend failed; the content is
// then an apology the widget can show as is.
func (h *ChatHandler) SendMessage(c *gin.Context) {
	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	result, err := h.chatService.Chat(c.Request.Context(), app.ChatInput{
		SessionID: req.SessionID,
		Message:   req.Message,
		History:   req.History,
	})
	if err != nil {
		switch {
		case errors.Is(err, app.ErrMessageEmpty):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		case errors.Is(err, app.ErrInvalidHistory):
			response.Error(c, http.StatusBadRequest, response.CodeInvalidHistory, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "send message failed")
		}
		return
	}

	response.OK(c, result)
}
