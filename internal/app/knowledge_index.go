package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"consultbot/internal/ai"
	"consultbot/internal/knowledge"
	"consultbot/internal/vectorstore"
)

const defaultEmbeddingBatchSize = 10

var (
	ErrIndexNotReady       = errors.New("knowledge index is not ready")
	ErrRebuildInProgress   = errors.New("knowledge index rebuild already in progress")
	ErrEmbeddingMisaligned = errors.New("embedding count does not match chunk count")
)

type IndexState string

const (
	IndexUninitialized IndexState = "uninitialized"
	IndexBuilding      IndexState = "building"
	IndexReady         IndexState = "ready"
	IndexFailed        IndexState = "failed"
)

// IndexStatus is a point-in-time view of the knowledge index. Generation
// counts committed snapshots; a non-zero value means Search is served.
type IndexStatus struct {
	State      IndexState `json:"state"`
	Records    int        `json:"records"`
	Documents  int        `json:"documents"`
	Generation int        `json:"generation"`
	BuiltAt    time.Time  `json:"built_at,omitempty"`
	LastError  string     `json:"last_error,omitempty"`
}

type DocumentSource interface {
	Load(ctx context.Context) ([]knowledge.Document, error)
}

type KnowledgeIndexConfig struct {
	Source    DocumentSource
	Chunker   knowledge.Chunker
	Embedder  ai.Embedder
	Store     vectorstore.Store
	BatchSize int
	Logger    *slog.Logger
}

// KnowledgeIndex owns the vector store and its build lifecycle. Readers keep
// seeing the last committed snapshot while a rebuild runs.
type KnowledgeIndex struct {
	source    DocumentSource
	chunker   knowledge.Chunker
	embedder  ai.Embedder
	store     vectorstore.Store
	batchSize int
	logger    *slog.Logger

	buildMu sync.Mutex
	mu      sync.RWMutex
	status  IndexStatus
}

func NewKnowledgeIndex(cfg KnowledgeIndexConfig) *KnowledgeIndex {
	cfg.Chunker = knowledge.NewChunker(cfg.Chunker.Size, cfg.Chunker.Overlap)
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultEmbeddingBatchSize
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &KnowledgeIndex{
		source:    cfg.Source,
		chunker:   cfg.Chunker,
		embedder:  cfg.Embedder,
		store:     cfg.Store,
		batchSize: cfg.BatchSize,
		logger:    cfg.Logger,
		status:    IndexStatus{State: IndexUninitialized},
	}
}

// Start runs the initial build in the background. With rebuild false a store
// that already holds records is adopted as is, and an index built by a
// concurrent Rebuild is kept. The channel receives the outcome once and is
// then closed.
func (idx *KnowledgeIndex) Start(ctx context.Context, rebuild bool) <-chan error {
	done := make(chan error, 1)
	go func() {
		defer close(done)
		idx.buildMu.Lock()
		defer idx.buildMu.Unlock()

		if !rebuild && (idx.Ready() || idx.adopt(ctx)) {
			done <- nil
			return
		}
		_, err := idx.rebuild(ctx)
		done <- err
	}()
	return done
}

// adopt must be called with buildMu held.
func (idx *KnowledgeIndex) adopt(ctx context.Context) bool {
	n, err := idx.store.Count(ctx)
	if err != nil {
		idx.logger.Warn("count existing knowledge records failed", "error", err)
		return false
	}
	if n == 0 {
		return false
	}
	idx.mu.Lock()
	idx.status = IndexStatus{
		State:      IndexReady,
		Records:    n,
		Generation: idx.status.Generation + 1,
		BuiltAt:    time.Now(),
	}
	idx.mu.Unlock()
	idx.logger.Info("knowledge index adopted from store", "records", n)
	return true
}

// Rebuild reloads every document and replaces the store content. Only one
// rebuild runs at a time; a concurrent call gets ErrRebuildInProgress.
func (idx *KnowledgeIndex) Rebuild(ctx context.Context) (IndexStatus, error) {
	if !idx.buildMu.TryLock() {
		return idx.Status(), ErrRebuildInProgress
	}
	defer idx.buildMu.Unlock()
	return idx.rebuild(ctx)
}

func (idx *KnowledgeIndex) rebuild(ctx context.Context) (IndexStatus, error) {
	idx.setState(IndexBuilding)
	started := time.Now()

	records, docCount, err := idx.build(ctx)
	if err == nil {
		err = idx.store.Rebuild(ctx, records)
		if err != nil {
			err = fmt.Errorf("commit knowledge index failed: %w", err)
		}
	}

	idx.mu.Lock()
	if err != nil {
		idx.status.State = IndexFailed
		idx.status.LastError = err.Error()
	} else {
		idx.status = IndexStatus{
			State:      IndexReady,
			Records:    len(records),
			Documents:  docCount,
			Generation: idx.status.Generation + 1,
			BuiltAt:    time.Now(),
		}
	}
	status := idx.status
	idx.mu.Unlock()

	if err != nil {
		idx.logger.Error("knowledge index rebuild failed", "error", err, "serving_generation", status.Generation)
		return status, err
	}
	idx.logger.Info("knowledge index rebuilt",
		"documents", docCount,
		"records", len(records),
		"generation", status.Generation,
		"elapsed", time.Since(started).String(),
	)
	return status, nil
}

func (idx *KnowledgeIndex) build(ctx context.Context) ([]vectorstore.Record, int, error) {
	docs, err := idx.source.Load(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("load knowledge documents failed: %w", err)
	}

	var chunks []knowledge.Chunk
	for _, doc := range docs {
		chunks = append(chunks, idx.chunker.ChunkDocument(doc)...)
	}

	records := make([]vectorstore.Record, 0, len(chunks))
	for start := 0; start < len(chunks); start += idx.batchSize {
		end := min(start+idx.batchSize, len(chunks))
		texts := make([]string, 0, end-start)
		for _, c := range chunks[start:end] {
			texts = append(texts, c.Text)
		}
		vectors, err := idx.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return nil, 0, fmt.Errorf("embed knowledge chunks failed: %w", err)
		}
		if len(vectors) != len(texts) {
			return nil, 0, fmt.Errorf("%w: got %d, want %d", ErrEmbeddingMisaligned, len(vectors), len(texts))
		}
		for i, vec := range vectors {
			records = append(records, vectorstore.Record{Vector: vec, Chunk: chunks[start+i]})
		}
	}
	return records, len(docs), nil
}

func (idx *KnowledgeIndex) setState(state IndexState) {
	idx.mu.Lock()
	idx.status.State = state
	idx.mu.Unlock()
}

func (idx *KnowledgeIndex) Status() IndexStatus {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.status
}

// Ready reports whether a snapshot has been committed, regardless of whether
// a later rebuild is running or has failed.
func (idx *KnowledgeIndex) Ready() bool {
	return idx.Status().Generation > 0
}

func (idx *KnowledgeIndex) Search(ctx context.Context, query []float32, k int) ([]vectorstore.Result, error) {
	if !idx.Ready() {
		return []vectorstore.Result{}, ErrIndexNotReady
	}
	return idx.store.Search(ctx, query, k)
}
