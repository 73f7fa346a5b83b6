package embedder

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func Test_GeminiEmbedder_Embed(t *testing.T) {
	t.Parallel()

	var gotPath, gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("x-goog-api-key")

		var req geminiEmbedRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		resp := map[string]any{
			"embeddings": make([]map[string]any, len(req.Requests)),
		}
		for i := range req.Requests {
			resp["embeddings"].([]map[string]any)[i] = map[string]any{
				"values": []float32{0.1, 0.2, 0.3},
			}
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	e := NewGeminiEmbedder(&GeminiConfig{
		BaseURL: srv.URL,
		APIKey:  "test-key",
		Model:   "text-embedding-004",
	})

	vecs, err := e.Embed(context.Background(), []string{"hello", "world"})
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	if len(vecs) != 2 {
		t.Fatalf("want 2 vectors, got %d", len(vecs))
	}
	if len(vecs[0]) != 3 {
		t.Errorf("want 3-dim vector, got %d", len(vecs[0]))
	}
	if gotPath != "/models/text-embedding-004:batchEmbedContents" {
		t.Errorf("unexpected path %q", gotPath)
	}
	if gotKey != "test-key" {
		t.Errorf("unexpected api key header %q", gotKey)
	}
}

func Test_GeminiEmbedder_APIError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"message": "quota exceeded"},
		})
	}))
	defer srv.Close()

	e := NewGeminiEmbedder(&GeminiConfig{BaseURL: srv.URL, APIKey: "k", Model: "m"})
	if _, err := e.Embed(context.Background(), []string{"x"}); err == nil {
		t.Error("want error on HTTP 429")
	}
}

func Test_GeminiEmbedder_CountMismatch(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"embeddings": []map[string]any{{"values": []float32{1}}},
		})
	}))
	defer srv.Close()

	e := NewGeminiEmbedder(&GeminiConfig{BaseURL: srv.URL, APIKey: "k", Model: "m"})
	if _, err := e.Embed(context.Background(), []string{"a", "b"}); err == nil {
		t.Error("want error when response count differs from input count")
	}
}

func Test_OllamaEmbedder_Embed(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embed" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"embeddings": [][]float32{{1, 0}, {0, 1}},
		})
	}))
	defer srv.Close()

	e := NewOllamaEmbedder(&OllamaConfig{Host: srv.URL, Model: "nomic-embed-text"})
	vecs, err := e.Embed(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	if len(vecs) != 2 {
		t.Fatalf("want 2 vectors, got %d", len(vecs))
	}
}

func Test_OpenAIEmbedder_SortsByIndex(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("unexpected auth header %q", got)
		}
		// Out-of-order data exercises the index-based reassembly.
		json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{
				{"index": 1, "embedding": []float32{0, 1}},
				{"index": 0, "embedding": []float32{1, 0}},
			},
		})
	}))
	defer srv.Close()

	e := NewOpenAIEmbedder(&OpenAIConfig{BaseURL: srv.URL, APIKey: "sk-test", Model: "text-embedding-3-small"})
	vecs, err := e.Embed(context.Background(), []string{"first", "second"})
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	if vecs[0][0] != 1 || vecs[1][1] != 1 {
		t.Errorf("vectors not reordered by index: %v", vecs)
	}
}

func Test_NewFromEnv_DefaultsToGemini(t *testing.T) {
	t.Setenv("MODEL_PROVIDER", "")
	t.Setenv("EMBEDDING_PROVIDER", "")
	t.Setenv("GOOGLE_API_KEY", "test-key")
	t.Setenv("EMBEDDING_API_KEY", "")

	e, err := NewFromEnv()
	if err != nil {
		t.Fatalf("new from env: %v", err)
	}
	if _, ok := e.(*GeminiEmbedder); !ok {
		t.Errorf("want *GeminiEmbedder, got %T", e)
	}
}

func Test_NewFromEnv_GeminiRequiresKey(t *testing.T) {
	t.Setenv("MODEL_PROVIDER", "")
	t.Setenv("EMBEDDING_PROVIDER", "gemini")
	t.Setenv("GOOGLE_API_KEY", "")
	t.Setenv("EMBEDDING_API_KEY", "")

	if _, err := NewFromEnv(); err == nil {
		t.Error("want error when gemini has no API key")
	}
}

func Test_NewFromEnv_EmbeddingProviderOverridesModelProvider(t *testing.T) {
	t.Setenv("MODEL_PROVIDER", "gemini")
	t.Setenv("EMBEDDING_PROVIDER", "ollama")
	t.Setenv("EMBEDDING_ENDPOINT", "")
	t.Setenv("OLLAMA_HOST", "")

	e, err := NewFromEnv()
	if err != nil {
		t.Fatalf("new from env: %v", err)
	}
	if _, ok := e.(*OllamaEmbedder); !ok {
		t.Errorf("want *OllamaEmbedder, got %T", e)
	}
}

func Test_NewFromEnv_UnknownBackend(t *testing.T) {
	t.Setenv("EMBEDDING_PROVIDER", "carrier-pigeon")

	if _, err := NewFromEnv(); err == nil {
		t.Error("want error for unknown backend")
	}
}

func Test_LooksLikeChatModel(t *testing.T) {
	t.Parallel()

	chat := []string{"gemini-1.5-flash-latest", "gpt-4o", "llama3.2", "Claude-3"}
	for _, m := range chat {
		if !looksLikeChatModel(m) {
			t.Errorf("%q should be flagged as a chat model", m)
		}
	}
	embedding := []string{"text-embedding-004", "nomic-embed-text", "text-embedding-3-small"}
	for _, m := range embedding {
		if looksLikeChatModel(m) {
			t.Errorf("%q should not be flagged as a chat model", m)
		}
	}
}
