package openai

import (
	"context"
	"fmt"
	"os"

	"github.com/sashabaranov/go-openai"

	"github.com/clickagent/clickagent/embedding"
	"github.com/clickagent/clickagent/llm"
)

var _ embedding.Embedder = (*OpenAIEmbedder)(nil)

// Dimensions of the embedding models this adapter knows about. Unknown
// models must set the dimension through WithDimension.
var modelDimensions = map[string]int{
	string(openai.AdaEmbeddingV2):  1536,
	string(openai.SmallEmbedding3): 1536,
	string(openai.LargeEmbedding3): 3072,
}

type OpenAIEmbedder struct {
	client    *openai.Client
	dimension int
	options   *embedding.EmbeddingOptions
}

// DefaultOptions returns the default options for OpenAI embeddings.
// OpenAI models are symmetric, so no role prefixes are applied.
func DefaultOptions() *embedding.EmbeddingOptions {
	return &embedding.EmbeddingOptions{
		Model:     string(openai.SmallEmbedding3),
		BatchSize: 100,
		Normalize: true,
	}
}

// NewOpenAIEmbedder creates a new OpenAI embedder with the given API key and options.
// When apiKey is empty, OPENAI_API_KEY is read from the environment.
func NewOpenAIEmbedder(apiKey string, opts ...embedding.Option) (*OpenAIEmbedder, error) {
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		return nil, llm.NewMissingCredentialError("openai.NewOpenAIEmbedder", "OPENAI_API_KEY")
	}

	options := DefaultOptions()
	for _, opt := range opts {
		opt(options)
	}

	dimension, ok := modelDimensions[options.Model]
	if !ok {
		return nil, embedding.ErrInvalidInput("NewOpenAIEmbedder", nil,
			fmt.Sprintf("unknown embedding model %q", options.Model))
	}

	return &OpenAIEmbedder{
		client:    openai.NewClient(apiKey),
		dimension: dimension,
		options:   options,
	}, nil
}

// EmbedDocuments implements the Embedder interface
func (e *OpenAIEmbedder) EmbedDocuments(ctx context.Context, documents []string) ([][]float32, error) {
	if len(documents) == 0 {
		return nil, embedding.ErrEmptyInput("EmbedDocuments")
	}

	if e.options.PassagePrefix != "" {
		prefixed := make([]string, len(documents))
		for i, doc := range documents {
			prefixed[i] = e.options.PassagePrefix + doc
		}
		documents = prefixed
	}

	return embedding.InBatches(ctx, documents, e.options.BatchSize, e.embedBatch)
}

// EmbedQuery implements the Embedder interface
func (e *OpenAIEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, embedding.ErrEmptyInput("EmbedQuery")
	}

	vectors, err := e.embedBatch(ctx, []string{e.options.QueryPrefix + text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// Dimension returns the vector length of the configured model.
func (e *OpenAIEmbedder) Dimension() int {
	return e.dimension
}

// ModelID identifies the configured embedding model.
func (e *OpenAIEmbedder) ModelID() string {
	return e.options.Model
}

func (e *OpenAIEmbedder) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: openai.EmbeddingModel(e.options.Model),
	})
	if err != nil {
		return nil, e.handleError("embedBatch", err)
	}

	if len(resp.Data) != len(texts) {
		return nil, embedding.NewEmbeddingError("embedBatch", nil, embedding.ErrCodeAPIError,
			fmt.Sprintf("got %d embeddings for %d inputs", len(resp.Data), len(texts)))
	}

	vectors := make([][]float32, len(resp.Data))
	for i, item := range resp.Data {
		if len(item.Embedding) != e.dimension {
			return nil, embedding.ErrInvalidDimensions("embedBatch", e.dimension, len(item.Embedding))
		}
		vectors[i] = item.Embedding
		if e.options.Normalize {
			embedding.Normalize(vectors[i])
		}
	}
	return vectors, nil
}

// handleError converts OpenAI API errors to embedding errors
func (e *OpenAIEmbedder) handleError(op string, err error) error {
	if err == nil {
		return nil
	}

	switch apiErr := err.(type) {
	case *openai.APIError:
		switch apiErr.HTTPStatusCode {
		case 400:
			return embedding.ErrInvalidInput(op, err, apiErr.Message)
		case 401:
			return embedding.NewEmbeddingError(op, err, "Unauthorized", "invalid API key")
		case 429:
			return embedding.ErrRateLimitExceeded(op, err)
		case 500:
			return embedding.NewEmbeddingError(op, err, embedding.ErrCodeModelNotAvailable,
				"OpenAI API server error")
		default:
			return embedding.NewEmbeddingError(op, err, embedding.ErrCodeAPIError,
				fmt.Sprintf("OpenAI API error: %s", apiErr.Message))
		}
	default:
		return embedding.NewEmbeddingError(op, err, embedding.ErrCodeInternal,
			"unexpected error")
	}
}
