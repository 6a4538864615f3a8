package app

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"consultbot/internal/ai"
	"consultbot/internal/knowledge"
	"consultbot/internal/vectorstore"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var testVocab = []string{"alpha", "beta", "gamma", "delta", "pricing", "cloud"}

// stubEmbedder counts vocabulary words, which makes similarity predictable.
type stubEmbedder struct {
	mu      sync.Mutex
	err     error
	calls   int
	entered chan struct{}
	release chan struct{}
}

func (e *stubEmbedder) Model() string { return "stub" }

func (e *stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (e *stubEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	e.calls++
	err, entered, release := e.err, e.entered, e.release
	e.mu.Unlock()

	if entered != nil {
		select {
		case entered <- struct{}{}:
		default:
		}
	}
	if release != nil {
		<-release
	}
	if err != nil {
		return nil, err
	}

	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec := make([]float32, len(testVocab))
		for _, word := range strings.Fields(strings.ToLower(text)) {
			word = strings.Trim(word, ".,!?")
			for j, v := range testVocab {
				if word == v {
					vec[j]++
				}
			}
		}
		out[i] = vec
	}
	return out, nil
}

func (e *stubEmbedder) setErr(err error) {
	e.mu.Lock()
	e.err = err
	e.mu.Unlock()
}

func (e *stubEmbedder) callCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

type recordingBackend struct {
	mu       sync.Mutex
	requests []ai.ChatRequest
	content  string
	err      error
}

func (b *recordingBackend) Chat(_ context.Context, req ai.ChatRequest) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.requests = append(b.requests, req)
	if b.err != nil {
		return "", b.err
	}
	return b.content, nil
}

func writeFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
}

func newTestIndex(t *testing.T, dir string, embedder ai.Embedder) *KnowledgeIndex {
	t.Helper()
	loader, err := knowledge.NewLoader(knowledge.LoaderConfig{Dir: dir, Logger: quietLogger()})
	if err != nil {
		t.Fatalf("NewLoader: %v", err)
	}
	return NewKnowledgeIndex(KnowledgeIndexConfig{
		Source:   loader,
		Embedder: embedder,
		Store:    vectorstore.NewMemoryStore(),
		Logger:   quietLogger(),
	})
}
