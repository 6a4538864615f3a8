package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"consultbot/internal/app"
	"consultbot/internal/transport/http/response"
)

const maxSearchK = 50

type KnowledgeHandler struct {
	index     *app.KnowledgeIndex
	retriever *app.Retriever
}

func NewKnowledgeHandler(index *app.KnowledgeIndex, retriever *app.Retriever) *KnowledgeHandler {
	return &KnowledgeHandler{index: index, retriever: retriever}
}

// Rebuild runs synchronously and outlives a dropped client connection so a
// half finished build is never abandoned.
func (h *KnowledgeHandler) Rebuild(c *gin.Context) {
	status, err := h.index.Rebuild(context.WithoutCancel(c.Request.Context()))
	if err != nil {
		switch {
		case errors.Is(err, app.ErrRebuildInProgress):
			response.ErrorWithData(c, http.StatusConflict, response.CodeRebuildInProgress, err.Error(), status)
		default:
			response.ErrorWithData(c, http.StatusInternalServerError, response.CodeInternalServer, "rebuild knowledge index failed", status)
		}
		return
	}
	response.OK(c, status)
}

func (h *KnowledgeHandler) Status(c *gin.Context) {
	response.OK(c, h.index.Status())
}

func (h *KnowledgeHandler) Search(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "missing query")
		return
	}
	k := 0
	if raw := c.Query("k"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 || parsed > maxSearchK {
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid k")
			return
		}
		k = parsed
	}

	results, err := h.retriever.Search(c.Request.Context(), query, k)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrIndexNotReady):
			response.Error(c, http.StatusServiceUnavailable, response.CodeIndexNotReady, err.Error())
		default:
			response.Error(c, http.StatusBadGateway, response.CodeInternalServer, err.Error())
		}
		return
	}
	response.OK(c, gin.H{"query": query, "results": results})
}
