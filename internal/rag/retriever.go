package rag

import (
	"context"
	"fmt"
)

// StoreRetriever implements Retriever by embedding the query and delegating
// similarity search to a sealed Store.
type StoreRetriever struct {
	// embedder converts the query text to a dense vector.
	embedder Embedder

	// store holds the embedded document chunks.
	store *Store

	// defaultTopK is the result count used when the caller passes 0.
	defaultTopK int
}

// NewStoreRetriever constructs a StoreRetriever. defaultTopK sets the
// fallback result count when Retrieve is called with topK=0.
func NewStoreRetriever(embedder Embedder, store *Store, defaultTopK int) (*StoreRetriever, error) {
	if embedder == nil {
		return nil, fmt.Errorf("rag: embedder must not be nil")
	}
	if store == nil {
		return nil, fmt.Errorf("rag: store must not be nil")
	}
	if defaultTopK <= 0 {
		defaultTopK = 3
	}
	return &StoreRetriever{
		embedder:    embedder,
		store:       store,
		defaultTopK: defaultTopK,
	}, nil
}

// Retrieve embeds the query and returns the top-k most similar chunk texts.
// A query-embedding failure is returned to the caller rather than swallowed;
// the chat layer decides whether to degrade to an uncontexted answer.
// An empty store yields an empty result and no error.
func (r *StoreRetriever) Retrieve(ctx context.Context, query string, topK int) ([]Scored, error) {
	if topK <= 0 {
		topK = r.defaultTopK
	}

	if r.store.Len() == 0 {
		return nil, nil
	}

	embeddings, err := r.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("rag: embedding query failed: %w", err)
	}
	if len(embeddings) == 0 || len(embeddings[0]) == 0 {
		return nil, fmt.Errorf("rag: embedder returned empty vector for query")
	}

	return r.store.Search(embeddings[0], topK), nil
}
