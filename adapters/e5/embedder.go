// Package e5 provides an embedding.Embedder for e5-family models served
// over an OpenAI-compatible embeddings endpoint (e.g. a local
// text-embeddings-inference or Ollama instance).
//
// e5 models are asymmetric: inputs must carry a "query: " or "passage: "
// prefix matching their role, and omitting the prefix quietly degrades
// retrieval quality. The adapter applies the prefixes itself so callers
// only choose the method.
package e5

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/clickagent/clickagent/embedding"
)

// Defaults match the reference deployment: multilingual-e5-large serving
// 1024-dimension normalized vectors.
const (
	DefaultModel     = "intfloat/multilingual-e5-large"
	DefaultDimension = 1024
	DefaultTimeout   = 30 * time.Second
)

var _ embedding.Embedder = (*Embedder)(nil)

// Embedder talks to an OpenAI-compatible /embeddings endpoint.
type Embedder struct {
	client    *http.Client
	baseURL   string
	apiKey    string
	dimension int
	options   *embedding.EmbeddingOptions
}

// Config holds connection settings for the embeddings endpoint.
type Config struct {
	// BaseURL of the endpoint, including any /v1 suffix.
	BaseURL string

	// APIKey is optional; local inference servers usually need none.
	APIKey string

	// Dimension of the served model's vectors (default 1024).
	Dimension int

	// Timeout per HTTP request (default 30s).
	Timeout time.Duration
}

// DefaultOptions returns the default options for e5 embeddings.
func DefaultOptions() *embedding.EmbeddingOptions {
	return &embedding.EmbeddingOptions{
		Model:         DefaultModel,
		BatchSize:     embedding.DefaultBatchSize,
		Normalize:     true,
		QueryPrefix:   "query: ",
		PassagePrefix: "passage: ",
	}
}

// NewEmbedder creates a new e5 embedder with the given endpoint config.
func NewEmbedder(cfg Config, opts ...embedding.Option) (*Embedder, error) {
	if cfg.BaseURL == "" {
		return nil, embedding.ErrInvalidInput("NewEmbedder", nil, "base URL is required")
	}
	if cfg.Dimension == 0 {
		cfg.Dimension = DefaultDimension
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	options := DefaultOptions()
	for _, opt := range opts {
		opt(options)
	}

	return &Embedder{
		client:    &http.Client{Timeout: cfg.Timeout},
		baseURL:   cfg.BaseURL,
		apiKey:    cfg.APIKey,
		dimension: cfg.Dimension,
		options:   options,
	}, nil
}

// EmbedDocuments implements the Embedder interface with the passage role.
func (e *Embedder) EmbedDocuments(ctx context.Context, documents []string) ([][]float32, error) {
	if len(documents) == 0 {
		return nil, embedding.ErrEmptyInput("EmbedDocuments")
	}

	prefixed := make([]string, len(documents))
	for i, doc := range documents {
		prefixed[i] = e.options.PassagePrefix + doc
	}

	return embedding.InBatches(ctx, prefixed, e.options.BatchSize, e.post)
}

// EmbedQuery implements the Embedder interface with the query role.
func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, embedding.ErrEmptyInput("EmbedQuery")
	}

	vectors, err := e.post(ctx, []string{e.options.QueryPrefix + text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// Dimension returns the fixed length of produced vectors.
func (e *Embedder) Dimension() int {
	return e.dimension
}

// ModelID identifies the served model configuration.
func (e *Embedder) ModelID() string {
	return e.options.Model
}

type embedRequest struct {
	Input []string `json:"input"`
	Model string   `json:"model"`
}

type embedResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// post sends one batch and returns vectors in input order.
func (e *Embedder) post(ctx context.Context, texts []string) ([][]float32, error) {
	body, err := json.Marshal(embedRequest{Input: texts, Model: e.options.Model})
	if err != nil {
		return nil, embedding.NewEmbeddingError("post", err, embedding.ErrCodeInternal,
			"failed to encode request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, embedding.NewEmbeddingError("post", err, embedding.ErrCodeInternal,
			"failed to create request")
	}
	req.Header.Set("Content-Type", "application/json")
	if e.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.apiKey)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, embedding.NewEmbeddingError("post", err, embedding.ErrCodeAPIError,
			"embedding request failed")
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, embedding.NewEmbeddingError("post", err, embedding.ErrCodeAPIError,
			"failed to read response")
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, embedding.ErrRateLimitExceeded("post", fmt.Errorf("status %d", resp.StatusCode))
	case resp.StatusCode >= 500:
		return nil, embedding.ErrModelNotAvailable("post", fmt.Errorf("status %d: %s", resp.StatusCode, payload))
	case resp.StatusCode >= 400:
		return nil, embedding.ErrInvalidInput("post", nil,
			fmt.Sprintf("status %d: %s", resp.StatusCode, payload))
	}

	var out embedResponse
	if err := json.Unmarshal(payload, &out); err != nil {
		return nil, embedding.NewEmbeddingError("post", err, embedding.ErrCodeAPIError,
			"failed to decode response")
	}
	if out.Error != nil {
		return nil, embedding.NewEmbeddingError("post", nil, embedding.ErrCodeAPIError, out.Error.Message)
	}
	if len(out.Data) != len(texts) {
		return nil, embedding.NewEmbeddingError("post", nil, embedding.ErrCodeAPIError,
			fmt.Sprintf("got %d embeddings for %d inputs", len(out.Data), len(texts)))
	}

	vectors := make([][]float32, len(out.Data))
	for _, item := range out.Data {
		if item.Index < 0 || item.Index >= len(vectors) {
			return nil, embedding.NewEmbeddingError("post", nil, embedding.ErrCodeAPIError,
				fmt.Sprintf("embedding index %d out of range", item.Index))
		}
		if len(item.Embedding) != e.dimension {
			return nil, embedding.ErrInvalidDimensions("post", e.dimension, len(item.Embedding))
		}
		if e.options.Normalize {
			embedding.Normalize(item.Embedding)
		}
		vectors[item.Index] = item.Embedding
	}
	return vectors, nil
}
