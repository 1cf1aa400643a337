package agent

import (
	"go.uber.org/zap"

	"github.com/clickagent/clickagent/embedding"
	"github.com/clickagent/clickagent/llm"
)

// Options contains configuration for the agent
type Options struct {
	// TopK is how many documents Retrieve and Ask pull by default.
	TopK int

	// IngestBatchSize is how many documents accumulate before a batch is
	// embedded and persisted.
	IngestBatchSize int

	// EmbedBatchSize bounds a single embedding request within a batch.
	EmbedBatchSize int

	// MaxAnswerTokens caps the generated answer length.
	MaxAnswerTokens int

	// Temperature for answer generation.
	Temperature float32

	// LLM is the generation model. Optional: an agent without one can
	// ingest and retrieve but not answer.
	LLM llm.LLM

	// Logger receives structured pipeline events. Defaults to a no-op.
	Logger *zap.Logger
}

// Option is a function type to modify Options
type Option func(*Options)

func defaultOptions() *Options {
	return &Options{
		TopK:            4,
		IngestBatchSize: 50,
		EmbedBatchSize:  embedding.DefaultBatchSize,
		MaxAnswerTokens: 1000,
		Temperature:     0.7,
		Logger:          zap.NewNop(),
	}
}

// WithTopK sets the number of similar documents to retrieve
func WithTopK(k int) Option {
	return func(o *Options) {
		if k > 0 {
			o.TopK = k
		}
	}
}

// WithIngestBatchSize sets how many documents are committed per batch
func WithIngestBatchSize(size int) Option {
	return func(o *Options) {
		if size > 0 {
			o.IngestBatchSize = size
		}
	}
}

// WithEmbedBatchSize sets the per-request embedding batch size
func WithEmbedBatchSize(size int) Option {
	return func(o *Options) {
		if size > 0 {
			o.EmbedBatchSize = size
		}
	}
}

// WithMaxAnswerTokens caps the generated answer length
func WithMaxAnswerTokens(tokens int) Option {
	return func(o *Options) {
		if tokens > 0 {
			o.MaxAnswerTokens = tokens
		}
	}
}

// WithTemperature sets the generation temperature
func WithTemperature(temp float32) Option {
	return func(o *Options) {
		o.Temperature = temp
	}
}

// WithLLM sets the generation model
func WithLLM(model llm.LLM) Option {
	return func(o *Options) {
		o.LLM = model
	}
}

// WithLogger sets the structured logger
func WithLogger(logger *zap.Logger) Option {
	return func(o *Options) {
		if logger != nil {
			o.Logger = logger
		}
	}
}
