// Package rag implements the retrieval core of sitechat: paragraph-aware
// document chunking, an in-memory vector store ranked by cosine similarity,
// query-time retrieval, and prompt composition for the generation model.
// Concrete embedding backends (Gemini, OpenAI, Ollama) satisfy the Embedder
// interface so this package never depends on a specific provider.
package rag

import (
	"context"
)

// Chunk is a bounded-size unit of document text paired with its embedding.
// Chunks with a nil embedding never enter a sealed Store — the ingestion
// pipeline filters them out before Seal.
type Chunk struct {
	// Text is the chunk content. Non-empty after trimming.
	Text string

	// Embedding is the dense vector for Text. Parallel ordering with the
	// store's insertion order is what makes tie-breaking deterministic.
	Embedding []float32
}

// Scored is a single retrieval result: a chunk's text and its cosine
// similarity to the query vector.
type Scored struct {
	// Score is the cosine similarity in [-1, 1]. Higher is more relevant.
	Score float32

	// Text is the matched chunk's content.
	Text string
}

// Embedder is the interface for converting text into dense vector embeddings.
// Implementations must be safe to call from multiple goroutines.
type Embedder interface {
	// Embed converts a batch of texts into their corresponding embeddings.
	// The returned slice is parallel to the input slice.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Retriever is the high-level interface used by the chat layer to fetch
// relevant context for a user query. It combines query embedding and
// similarity search. Implementations must be safe to call from multiple
// goroutines.
type Retriever interface {
	// Retrieve returns the top-k most relevant chunk texts for the query,
	// ranked by descending similarity.
	Retrieve(ctx context.Context, query string, topK int) ([]Scored, error)
}
