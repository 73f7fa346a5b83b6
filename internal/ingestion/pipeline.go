// Package ingestion implements the startup document ingestion pipeline.
// It reads every plain-text document in the configured directory, chunks the
// combined corpus along paragraph boundaries, embeds each chunk through a
// bounded worker pool, and seals the results into the in-memory chunk store
// that serves retrieval for the lifetime of the process.
package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/quillhaven/sitechat/internal/rag"
)

// docSeparator terminates each file's content so that the last paragraph of
// one document and the first paragraph of the next never merge into a single
// paragraph during chunking.
const docSeparator = "\n\n"

// Config holds the configuration for the ingestion pipeline.
type Config struct {
	// MaxChunkChars is the maximum number of characters per chunk.
	// Defaults to rag.DefaultMaxChunkChars if zero.
	MaxChunkChars int

	// Concurrency is the number of parallel embedding workers.
	// Defaults to 4 if zero.
	Concurrency int

	// EmbedRPS caps the rate of embedding calls (calls/second) so startup
	// ingestion respects external API rate limits. Zero disables pacing.
	EmbedRPS float64

	// EmbedTimeout bounds each individual embedding call.
	// Defaults to 30s if zero.
	EmbedTimeout time.Duration

	// Logger is the structured logger for ingestion events.
	// If nil, slog.Default is used.
	Logger *slog.Logger

	// Metrics receives per-file and per-chunk outcome counts.
	// If nil, counting is skipped.
	Metrics *Metrics
}

// Pipeline orchestrates the read → chunk → embed → seal flow for a document
// directory.
type Pipeline struct {
	// embedder converts chunk texts into dense vector embeddings.
	embedder rag.Embedder

	// cfg holds the resolved pipeline configuration.
	cfg *Config

	// limiter paces embedding calls. Nil when EmbedRPS is zero.
	limiter *rate.Limiter

	// log is the structured logger for this pipeline.
	log *slog.Logger
}

// NewPipeline constructs a Pipeline from the provided embedder and config.
func NewPipeline(embedder rag.Embedder, cfg *Config) (*Pipeline, error) {
	if embedder == nil {
		return nil, fmt.Errorf("ingestion: embedder must not be nil")
	}
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.MaxChunkChars <= 0 {
		cfg.MaxChunkChars = rag.DefaultMaxChunkChars
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.EmbedTimeout <= 0 {
		cfg.EmbedTimeout = 30 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	p := &Pipeline{
		embedder: embedder,
		cfg:      cfg,
		log:      cfg.Logger,
	}
	if cfg.EmbedRPS > 0 {
		p.limiter = rate.NewLimiter(rate.Limit(cfg.EmbedRPS), 1)
	}
	return p, nil
}

// Build reads all .txt documents under dir, chunks them, embeds every chunk,
// and returns the sealed store. The flow is deliberately lenient: unreadable
// files and failed embeddings are logged and skipped, never fatal, so one
// bad document or a flaky embedding service cannot prevent startup. An empty
// or missing directory yields an empty store and the service still answers
// queries without background context.
func (p *Pipeline) Build(ctx context.Context, dir string) (*rag.Store, error) {
	corpus := p.loadCorpus(dir)

	store := rag.NewStore()
	if strings.TrimSpace(corpus) == "" {
		p.log.Warn("ingestion: no document text found, retrieval will return no context",
			slog.String("dir", dir),
		)
		store.Seal()
		return store, nil
	}

	chunks := rag.ChunkText(corpus, p.cfg.MaxChunkChars)
	p.log.Info("ingestion: corpus chunked",
		slog.Int("chunks", len(chunks)),
		slog.Int("max_chunk_chars", p.cfg.MaxChunkChars),
	)

	embeddings := p.embedAll(ctx, chunks)

	failed := 0
	for i, chunk := range chunks {
		if embeddings[i] == nil {
			failed++
			continue
		}
		if err := store.Add(rag.Chunk{Text: chunk, Embedding: embeddings[i]}); err != nil {
			return nil, fmt.Errorf("ingestion: store add: %w", err)
		}
	}
	store.Seal()

	if failed > 0 {
		p.log.Warn("ingestion: some chunks excluded after embedding failures",
			slog.Int("failed", failed),
			slog.Int("stored", store.Len()),
		)
	}
	p.log.Info("ingestion: store sealed", slog.Int("chunks", store.Len()))

	return store, nil
}

// loadCorpus reads every .txt file under dir and concatenates the contents,
// terminating each file with a paragraph separator. Unreadable files are
// skipped with a WARN log; a missing directory yields an empty corpus.
func (p *Pipeline) loadCorpus(dir string) string {
	paths, err := filepath.Glob(filepath.Join(dir, "*.txt"))
	if err != nil {
		// Only a malformed pattern errors here, and ours is fixed.
		p.log.Warn("ingestion: document glob failed", slog.Any("error", err))
		return ""
	}

	var sb strings.Builder
	for _, path := range paths {
		content, err := os.ReadFile(path)
		if err != nil {
			p.log.Warn("ingestion: skipping unreadable document",
				slog.String("path", path),
				slog.Any("error", err),
			)
			if p.cfg.Metrics != nil {
				p.cfg.Metrics.filesSkipped.Inc()
			}
			continue
		}
		sb.Write(content)
		sb.WriteString(docSeparator)
		if p.cfg.Metrics != nil {
			p.cfg.Metrics.filesLoaded.Inc()
		}
		p.log.Debug("ingestion: loaded document",
			slog.String("path", path),
			slog.Int("bytes", len(content)),
		)
	}
	return sb.String()
}

// embedAll embeds every chunk through a bounded worker pool and returns a
// slice parallel to chunks; failed chunks are nil. Each worker writes only
// into indices it received, so the result slice needs no locking. Embedding
// calls are independent — a single failure affects only its own chunk.
func (p *Pipeline) embedAll(ctx context.Context, chunks []string) [][]float32 {
	embeddings := make([][]float32, len(chunks))

	indexCh := make(chan int)
	var wg sync.WaitGroup

	for range p.cfg.Concurrency {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indexCh {
				embeddings[i] = p.embedOne(ctx, chunks[i], i)
			}
		}()
	}

	for i := range chunks {
		indexCh <- i
	}
	close(indexCh)
	wg.Wait()

	return embeddings
}

// embedOne embeds a single chunk with pacing and a bounded timeout.
// Returns nil on any failure; the failure is logged and counted, never
// propagated, so the remaining chunks keep ingesting.
func (p *Pipeline) embedOne(ctx context.Context, text string, index int) []float32 {
	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			p.recordFailure(index, err)
			return nil
		}
	}

	embedCtx, cancel := context.WithTimeout(ctx, p.cfg.EmbedTimeout)
	defer cancel()

	vectors, err := p.embedder.Embed(embedCtx, []string{text})
	if err != nil {
		p.recordFailure(index, err)
		return nil
	}
	if len(vectors) == 0 || len(vectors[0]) == 0 {
		p.recordFailure(index, fmt.Errorf("empty embedding returned"))
		return nil
	}

	if p.cfg.Metrics != nil {
		p.cfg.Metrics.chunksEmbedded.Inc()
	}
	return vectors[0]
}

// recordFailure logs and counts a single chunk embedding failure.
func (p *Pipeline) recordFailure(index int, err error) {
	p.log.Warn("ingestion: chunk embedding failed, excluding from store",
		slog.Int("chunk", index),
		slog.Any("error", err),
	)
	if p.cfg.Metrics != nil {
		p.cfg.Metrics.chunksFailed.Inc()
	}
}
