// Package embedder provides implementations of the rag.Embedder interface for
// converting text into dense vector embeddings. Each implementation talks to a
// different backend (Gemini, OpenAI, Azure OpenAI, Ollama) over plain HTTP so
// no additional SDK dependencies are required.
package embedder

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// defaultGeminiBaseURL is the public Generative Language API endpoint.
const defaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// GeminiEmbedder implements rag.Embedder using the Generative Language API's
// batchEmbedContents endpoint. It is safe for concurrent use.
type GeminiEmbedder struct {
	// baseURL is the API base (e.g. "https://generativelanguage.googleapis.com/v1beta").
	baseURL string
	// apiKey is sent via the x-goog-api-key header.
	apiKey string
	// model is the embedding model name (e.g. "text-embedding-004").
	model string
	// client is the shared HTTP client with a bounded timeout.
	client *http.Client
}

// GeminiConfig holds the settings for constructing a GeminiEmbedder.
type GeminiConfig struct {
	// BaseURL is the API base URL. Empty selects the public endpoint.
	BaseURL string
	// APIKey is the Google AI Studio API key.
	APIKey string
	// Model is the embedding model name (e.g. "text-embedding-004").
	Model string
	// Timeout bounds each batchEmbedContents call. Zero means 30s.
	Timeout time.Duration
}

// NewGeminiEmbedder constructs a GeminiEmbedder from the given config.
func NewGeminiEmbedder(cfg *GeminiConfig) *GeminiEmbedder {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultGeminiBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &GeminiEmbedder{
		baseURL: baseURL,
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		client:  &http.Client{Timeout: timeout},
	}
}

// geminiEmbedRequest is the JSON body sent to batchEmbedContents.
type geminiEmbedRequest struct {
	Requests []geminiContentRequest `json:"requests"`
}

type geminiContentRequest struct {
	Model   string        `json:"model"`
	Content geminiContent `json:"content"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

// geminiEmbedResponse is the JSON body returned from batchEmbedContents.
type geminiEmbedResponse struct {
	Embeddings []struct {
		Values []float32 `json:"values"`
	} `json:"embeddings"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Embed converts a batch of texts into their corresponding embeddings.
// The returned slice is parallel to the input slice.
func (e *GeminiEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	body := geminiEmbedRequest{
		Requests: make([]geminiContentRequest, len(texts)),
	}
	for i, text := range texts {
		body.Requests[i] = geminiContentRequest{
			Model: "models/" + e.model,
			Content: geminiContent{
				Parts: []geminiPart{{Text: text}},
			},
		}
	}

	url := e.baseURL + "/models/" + e.model + ":batchEmbedContents"
	hdr := http.Header{"x-goog-api-key": {e.apiKey}}

	var result geminiEmbedResponse
	status, err := postJSON(ctx, e.client, url, hdr, body, &result)
	if err != nil {
		return nil, fmt.Errorf("gemini embedder: %w", err)
	}
	if !statusOK(status) {
		msg := fmt.Sprintf("HTTP %d", status)
		if result.Error != nil {
			msg = result.Error.Message
		}
		return nil, fmt.Errorf("gemini embedder: %s", msg)
	}

	if len(result.Embeddings) != len(texts) {
		return nil, fmt.Errorf("gemini embedder: expected %d embeddings, got %d", len(texts), len(result.Embeddings))
	}

	embeddings := make([][]float32, len(texts))
	for i, emb := range result.Embeddings {
		if len(emb.Values) == 0 {
			return nil, fmt.Errorf("gemini embedder: empty embedding at index %d", i)
		}
		embeddings[i] = emb.Values
	}

	return embeddings, nil
}
