package ingestion

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

// stubEmbedder implements rag.Embedder with a fixed vector or a fixed error.
// It counts calls so tests can assert one call per chunk.
type stubEmbedder struct {
	// vector is returned for every input text when err is nil.
	vector []float32
	// err, when non-nil, fails every call.
	err error
	// calls counts Embed invocations across goroutines.
	calls atomic.Int64
}

func (s *stubEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	s.calls.Add(int64(len(texts)))
	if s.err != nil {
		return nil, s.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = s.vector
	}
	return out, nil
}

// writeDoc writes a .txt document into dir.
func writeDoc(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func newTestPipeline(t *testing.T, emb *stubEmbedder, cfg *Config) *Pipeline {
	t.Helper()
	p, err := NewPipeline(emb, cfg)
	if err != nil {
		t.Fatalf("new pipeline: %v", err)
	}
	return p
}

func Test_Build_StoresEmbeddedChunks(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeDoc(t, dir, "cats.txt", "Cats are mammals.\n\nDogs are mammals too.")

	emb := &stubEmbedder{vector: []float32{1, 0}}
	p := newTestPipeline(t, emb, nil)

	store, err := p.Build(context.Background(), dir)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	// Both paragraphs fit in one default-sized chunk.
	if store.Len() != 1 {
		t.Errorf("want 1 stored chunk, got %d", store.Len())
	}
	if got := emb.calls.Load(); got != 1 {
		t.Errorf("want 1 embed call, got %d", got)
	}
}

func Test_Build_DocumentsDoNotBleedAcrossFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	// Neither file ends with a blank line; the pipeline's separator must
	// still keep the two contents in distinct paragraphs.
	writeDoc(t, dir, "a.txt", "about refunds")
	writeDoc(t, dir, "b.txt", "about shipping")

	emb := &stubEmbedder{vector: []float32{1}}
	// A tight limit forces one chunk per paragraph.
	p := newTestPipeline(t, emb, &Config{MaxChunkChars: 16})

	store, err := p.Build(context.Background(), dir)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if store.Len() != 2 {
		t.Errorf("want 2 chunks (one per document), got %d", store.Len())
	}
}

func Test_Build_EmptyDirYieldsEmptyStore(t *testing.T) {
	t.Parallel()

	emb := &stubEmbedder{vector: []float32{1}}
	p := newTestPipeline(t, emb, nil)

	store, err := p.Build(context.Background(), t.TempDir())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if store.Len() != 0 {
		t.Errorf("want empty store, got %d chunks", store.Len())
	}
	if got := emb.calls.Load(); got != 0 {
		t.Errorf("embedder must not be called for an empty corpus, got %d calls", got)
	}
}

func Test_Build_MissingDirYieldsEmptyStore(t *testing.T) {
	t.Parallel()

	p := newTestPipeline(t, &stubEmbedder{vector: []float32{1}}, nil)

	store, err := p.Build(context.Background(), filepath.Join(t.TempDir(), "does-not-exist"))
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if store.Len() != 0 {
		t.Errorf("want empty store for missing dir, got %d", store.Len())
	}
}

// Test_Build_AllEmbeddingsFail covers the scenario where the embedding
// service is down for the whole ingestion: every chunk is excluded, the
// failure counter equals the chunk count, and Build still succeeds so the
// service can start.
func Test_Build_AllEmbeddingsFail(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeDoc(t, dir, "doc.txt", "one\n\ntwo\n\nthree")

	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)

	emb := &stubEmbedder{err: fmt.Errorf("service unavailable")}
	p := newTestPipeline(t, emb, &Config{MaxChunkChars: 4, Metrics: metrics})

	store, err := p.Build(context.Background(), dir)
	if err != nil {
		t.Fatalf("build must not fail when embeddings fail: %v", err)
	}
	if store.Len() != 0 {
		t.Errorf("want empty store, got %d", store.Len())
	}
	if got := testutil.ToFloat64(metrics.chunksFailed); got != 3 {
		t.Errorf("want 3 recorded failures (one per chunk), got %v", got)
	}
}

func Test_Build_SkipsUnreadableFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeDoc(t, dir, "good.txt", "readable content")
	// A directory with a .txt suffix fails os.ReadFile and must be skipped.
	if err := os.Mkdir(filepath.Join(dir, "bad.txt"), 0o700); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)

	p := newTestPipeline(t, &stubEmbedder{vector: []float32{1}}, &Config{Metrics: metrics})

	store, err := p.Build(context.Background(), dir)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if store.Len() != 1 {
		t.Errorf("want 1 chunk from the readable file, got %d", store.Len())
	}
	if got := testutil.ToFloat64(metrics.filesSkipped); got != 1 {
		t.Errorf("want 1 skipped file, got %v", got)
	}
}

func Test_Build_ConcurrentWorkersEmbedEveryChunkOnce(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	var doc string
	for i := range 20 {
		doc += fmt.Sprintf("paragraph number %d\n\n", i)
	}
	writeDoc(t, dir, "many.txt", doc)

	emb := &stubEmbedder{vector: []float32{1}}
	p := newTestPipeline(t, emb, &Config{MaxChunkChars: 10, Concurrency: 8})

	store, err := p.Build(context.Background(), dir)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if store.Len() != 20 {
		t.Errorf("want 20 chunks, got %d", store.Len())
	}
	if got := emb.calls.Load(); got != 20 {
		t.Errorf("want exactly 20 embed calls, got %d", got)
	}
}

func Test_NewPipeline_RejectsNilEmbedder(t *testing.T) {
	t.Parallel()

	if _, err := NewPipeline(nil, nil); err == nil {
		t.Error("want error for nil embedder")
	}
}
