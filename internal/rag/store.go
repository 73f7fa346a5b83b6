package rag

import (
	"fmt"
	"math"
	"sort"
)

// Store is an in-memory, insertion-ordered collection of embedded chunks.
// It is populated once during startup ingestion via Add and then sealed;
// after Seal it is read-only and safe for unlocked concurrent Search calls.
//
// Search is a brute-force scan: O(n) similarity computations plus an
// O(n log n) stable sort per query. That is acceptable for a small static
// corpus; a larger deployment would swap in an index behind the Retriever
// interface without touching callers.
type Store struct {
	chunks []Chunk
	sealed bool
}

// NewStore returns an empty, unsealed Store.
func NewStore() *Store {
	return &Store{}
}

// Add appends a chunk to the store in insertion order. The chunk must carry
// a non-nil embedding — the ingestion pipeline filters failed embeddings
// before insertion. Add panics if called after Seal; the build-then-seal
// lifecycle is single-goroutine by construction.
func (s *Store) Add(c Chunk) error {
	if s.sealed {
		panic("rag: Add after Seal")
	}
	if c.Text == "" {
		return fmt.Errorf("rag: chunk text must not be empty")
	}
	if len(c.Embedding) == 0 {
		return fmt.Errorf("rag: chunk embedding must not be empty")
	}
	s.chunks = append(s.chunks, c)
	return nil
}

// Seal marks the store read-only. Concurrent Search calls are safe only
// after Seal.
func (s *Store) Seal() {
	s.sealed = true
}

// Len returns the number of chunks held.
func (s *Store) Len() int {
	return len(s.chunks)
}

// Search ranks every stored chunk by cosine similarity to query and returns
// the top k, highest first. Ties preserve insertion order. k larger than the
// store returns everything ranked; an empty store or empty query vector
// returns nil.
func (s *Store) Search(query []float32, k int) []Scored {
	if len(s.chunks) == 0 || len(query) == 0 || k <= 0 {
		return nil
	}

	results := make([]Scored, 0, len(s.chunks))
	for _, c := range s.chunks {
		results = append(results, Scored{
			Score: Cosine(query, c.Embedding),
			Text:  c.Text,
		})
	}

	// Stable sort keeps equal-score chunks in insertion order.
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if k > len(results) {
		k = len(results)
	}
	return results[:k]
}

// Cosine returns the cosine similarity of a and b. The norms are computed
// explicitly rather than assuming the embedding service returns unit-length
// vectors — a plain dot product silently mis-ranks if that assumption is
// ever violated. Mismatched lengths or a zero vector yield 0.
func Cosine(a, b []float32) float32 {
	if len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}
