package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"consultbot/internal/ai"
	"consultbot/internal/vectorstore"
)

const (
	DefaultTopK = 4

	NoKnowledgeBase     = "No knowledge base available."
	NoRelevantKnowledge = "No relevant information found."

	contextSeparator = "\n\n---\n\n"
)

// Retriever turns a user question into a context block for the prompt.
type Retriever struct {
	index    *KnowledgeIndex
	embedder ai.Embedder
	topK     int
	logger   *slog.Logger
}

func NewRetriever(index *KnowledgeIndex, embedder ai.Embedder, topK int, logger *slog.Logger) *Retriever {
	if topK <= 0 {
		topK = DefaultTopK
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Retriever{index: index, embedder: embedder, topK: topK, logger: logger}
}

// Retrieve never fails: an unusable index or embedder yields NoKnowledgeBase
// and an empty hit list yields NoRelevantKnowledge.
func (r *Retriever) Retrieve(ctx context.Context, query string, k int) string {
	if !r.index.Ready() {
		return NoKnowledgeBase
	}
	results, err := r.Search(ctx, query, k)
	if err != nil {
		r.logger.Warn("knowledge retrieval degraded", "error", err)
		return NoKnowledgeBase
	}
	if len(results) == 0 {
		return NoRelevantKnowledge
	}
	return formatContext(results)
}

// Search returns the scored top-k chunks for query.
func (r *Retriever) Search(ctx context.Context, query string, k int) ([]vectorstore.Result, error) {
	if k <= 0 {
		k = r.topK
	}
	if !r.index.Ready() {
		return []vectorstore.Result{}, ErrIndexNotReady
	}
	vec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query failed: %w", err)
	}
	results, err := r.index.Search(ctx, vec, k)
	if err != nil {
		return nil, fmt.Errorf("search knowledge index failed: %w", err)
	}
	return results, nil
}

func formatContext(results []vectorstore.Result) string {
	parts := make([]string, 0, len(results))
	for _, res := range results {
		text := strings.TrimSpace(res.Chunk.Text)
		if heading := res.Chunk.Heading(); heading != "" {
			text = "[" + heading + "]\n" + text
		}
		parts = append(parts, text)
	}
	return strings.Join(parts, contextSeparator)
}
