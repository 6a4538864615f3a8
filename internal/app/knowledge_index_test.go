package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"consultbot/internal/knowledge"
	"consultbot/internal/vectorstore"
)

func TestKnowledgeIndex_RebuildReflectsDeletedFiles(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"A.txt": "alpha beta",
		"B.txt": "gamma delta alpha",
	})
	embedder := &stubEmbedder{}
	idx := newTestIndex(t, dir, embedder)
	ctx := context.Background()

	status, err := idx.Rebuild(ctx)
	if err != nil {
		t.Fatalf("Rebuild: %v", err)
	}
	if status.State != IndexReady || status.Records != 2 || status.Generation != 1 {
		t.Fatalf("unexpected status %+v", status)
	}

	query, _ := embedder.Embed(ctx, "alpha")
	top, err := idx.Search(ctx, query, 1)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(top) != 1 || top[0].Chunk.SourceID != "A.txt" {
		t.Fatalf("top result = %+v, want A.txt", top)
	}

	if err := os.Remove(filepath.Join(dir, "B.txt")); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, err := idx.Rebuild(ctx); err != nil {
		t.Fatalf("Rebuild: %v", err)
	}
	all, err := idx.Search(ctx, query, 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(all) != 1 || all[0].Chunk.SourceID != "A.txt" {
		t.Errorf("after deleting B.txt got %+v", all)
	}
}

func TestKnowledgeIndex_SearchBeforeBuild(t *testing.T) {
	idx := newTestIndex(t, t.TempDir(), &stubEmbedder{})
	if idx.Status().State != IndexUninitialized {
		t.Fatalf("state = %s, want uninitialized", idx.Status().State)
	}
	got, err := idx.Search(context.Background(), []float32{1}, 4)
	if !errors.Is(err, ErrIndexNotReady) {
		t.Errorf("expected ErrIndexNotReady, got %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("expected empty result, got %#v", got)
	}
}

func TestKnowledgeIndex_EmbeddingFailureKeepsPreviousSnapshot(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"A.txt": "alpha beta"})
	embedder := &stubEmbedder{}
	idx := newTestIndex(t, dir, embedder)
	ctx := context.Background()

	if _, err := idx.Rebuild(ctx); err != nil {
		t.Fatalf("Rebuild: %v", err)
	}
	writeFiles(t, dir, map[string]string{"B.txt": "gamma"})
	embedder.setErr(errors.New("provider down"))

	status, err := idx.Rebuild(ctx)
	if err == nil {
		t.Fatal("expected rebuild error")
	}
	if status.State != IndexFailed || status.LastError == "" || status.Generation != 1 {
		t.Errorf("unexpected status %+v", status)
	}
	if !idx.Ready() {
		t.Fatal("previous snapshot should still be served")
	}

	got, err := idx.Search(ctx, []float32{1, 0, 0, 0, 0, 0}, 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) != 1 || got[0].Chunk.SourceID != "A.txt" {
		t.Errorf("got %+v, want only A.txt", got)
	}
}

func TestKnowledgeIndex_FirstBuildFailure(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"A.txt": "alpha"})
	embedder := &stubEmbedder{err: errors.New("provider down")}
	idx := newTestIndex(t, dir, embedder)

	if _, err := idx.Rebuild(context.Background()); err == nil {
		t.Fatal("expected rebuild error")
	}
	if idx.Ready() {
		t.Error("index must not be ready after a failed first build")
	}
	if idx.Status().State != IndexFailed {
		t.Errorf("state = %s, want failed", idx.Status().State)
	}
}

func TestKnowledgeIndex_SingleWriter(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"A.txt": "alpha"})
	embedder := &stubEmbedder{entered: make(chan struct{}, 1), release: make(chan struct{})}
	idx := newTestIndex(t, dir, embedder)
	ctx := context.Background()

	firstDone := make(chan error, 1)
	go func() {
		_, err := idx.Rebuild(ctx)
		firstDone <- err
	}()

	select {
	case <-embedder.entered:
	case <-time.After(5 * time.Second):
		t.Fatal("first rebuild never reached the embedder")
	}
	if got := idx.Status().State; got != IndexBuilding {
		t.Errorf("state during rebuild = %s, want building", got)
	}
	if _, err := idx.Rebuild(ctx); !errors.Is(err, ErrRebuildInProgress) {
		t.Errorf("expected ErrRebuildInProgress, got %v", err)
	}

	close(embedder.release)
	if err := <-firstDone; err != nil {
		t.Fatalf("first rebuild: %v", err)
	}
	if !idx.Ready() {
		t.Error("index should be ready after the first rebuild completes")
	}
}

func TestKnowledgeIndex_StartBuildsAndReports(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"A.txt": "alpha"})
	idx := newTestIndex(t, dir, &stubEmbedder{})

	select {
	case err := <-idx.Start(context.Background(), false):
		if err != nil {
			t.Fatalf("Start: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Start did not finish")
	}
	if status := idx.Status(); status.State != IndexReady || status.Records != 1 {
		t.Errorf("unexpected status %+v", status)
	}
}

type failingSource struct{}

func (failingSource) Load(context.Context) ([]knowledge.Document, error) {
	return nil, errors.New("source must not be read")
}

func TestKnowledgeIndex_StartAdoptsPopulatedStore(t *testing.T) {
	store := vectorstore.NewMemoryStore()
	err := store.Rebuild(context.Background(), []vectorstore.Record{
		{Vector: []float32{1, 0}, Chunk: knowledge.Chunk{Text: "alpha", SourceID: "A.txt"}},
	})
	if err != nil {
		t.Fatalf("seed store: %v", err)
	}
	embedder := &stubEmbedder{}
	idx := NewKnowledgeIndex(KnowledgeIndexConfig{
		Source:   failingSource{},
		Embedder: embedder,
		Store:    store,
		Logger:   quietLogger(),
	})

	if err := <-idx.Start(context.Background(), false); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if status := idx.Status(); status.State != IndexReady || status.Records != 1 {
		t.Errorf("unexpected status %+v", status)
	}
	if embedder.callCount() != 0 {
		t.Errorf("adopting a store must not embed anything")
	}

	if err := <-idx.Start(context.Background(), true); err == nil {
		t.Error("forced rebuild should hit the failing source")
	}
}

func TestKnowledgeIndex_StartWaitsForRunningRebuild(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"A.txt": "alpha", "B.txt": "beta"})
	loader, err := knowledge.NewLoader(knowledge.LoaderConfig{Dir: dir, Logger: quietLogger()})
	if err != nil {
		t.Fatalf("NewLoader: %v", err)
	}
	store := vectorstore.NewMemoryStore()
	err = store.Rebuild(context.Background(), []vectorstore.Record{
		{Vector: []float32{1, 0}, Chunk: knowledge.Chunk{Text: "stale", SourceID: "old.txt"}},
	})
	if err != nil {
		t.Fatalf("seed store: %v", err)
	}
	embedder := &stubEmbedder{entered: make(chan struct{}, 1), release: make(chan struct{})}
	idx := NewKnowledgeIndex(KnowledgeIndexConfig{
		Source:   loader,
		Embedder: embedder,
		Store:    store,
		Logger:   quietLogger(),
	})
	ctx := context.Background()

	rebuildDone := make(chan error, 1)
	go func() {
		_, err := idx.Rebuild(ctx)
		rebuildDone <- err
	}()
	select {
	case <-embedder.entered:
	case <-time.After(5 * time.Second):
		t.Fatal("rebuild never reached the embedder")
	}

	started := idx.Start(ctx, false)
	select {
	case err := <-started:
		t.Fatalf("Start finished while a rebuild was running: %v", err)
	case <-time.After(50 * time.Millisecond):
	}
	if status := idx.Status(); status.State != IndexBuilding || status.Generation != 0 {
		t.Errorf("status during rebuild = %+v, want building generation 0", status)
	}

	close(embedder.release)
	if err := <-rebuildDone; err != nil {
		t.Fatalf("Rebuild: %v", err)
	}
	select {
	case err := <-started:
		if err != nil {
			t.Fatalf("Start: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Start did not finish")
	}

	status := idx.Status()
	if status.State != IndexReady || status.Generation != 1 || status.Documents != 2 || status.Records != 2 {
		t.Errorf("status after rebuild = %+v, want ready generation 1 with 2 documents", status)
	}
	if got := embedder.callCount(); got != 1 {
		t.Errorf("embedding calls = %d, want 1", got)
	}
}

func TestKnowledgeIndex_BatchesEmbeddingCalls(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"A.txt": "alpha", "B.txt": "beta", "C.txt": "gamma", "D.txt": "delta", "E.txt": "cloud",
	})
	embedder := &stubEmbedder{}
	loader, err := knowledge.NewLoader(knowledge.LoaderConfig{Dir: dir, Logger: quietLogger()})
	if err != nil {
		t.Fatalf("NewLoader: %v", err)
	}
	idx := NewKnowledgeIndex(KnowledgeIndexConfig{
		Source:    loader,
		Embedder:  embedder,
		Store:     vectorstore.NewMemoryStore(),
		BatchSize: 2,
		Logger:    quietLogger(),
	})
	if _, err := idx.Rebuild(context.Background()); err != nil {
		t.Fatalf("Rebuild: %v", err)
	}
	if got := embedder.callCount(); got != 3 {
		t.Errorf("embedding calls = %d, want 3", got)
	}
}
