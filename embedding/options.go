package embedding

// EmbeddingOptions represents configuration options for embedding operations
type EmbeddingOptions struct {
	// Model specifies which embedding model to use
	Model string

	// BatchSize specifies the maximum number of texts to embed in a single
	// request; larger inputs are partitioned into sequential batches
	BatchSize int

	// Normalize indicates whether to normalize the resulting vectors
	Normalize bool

	// QueryPrefix is prepended to query-role inputs, e.g. "query: " for
	// e5-family models
	QueryPrefix string

	// PassagePrefix is prepended to passage-role inputs, e.g. "passage: "
	PassagePrefix string
}

// Option is a function type to modify EmbeddingOptions
type Option func(*EmbeddingOptions)

// WithModel sets the embedding model
func WithModel(model string) Option {
	return func(o *EmbeddingOptions) {
		o.Model = model
	}
}

// WithBatchSize sets the batch size for document embedding
func WithBatchSize(size int) Option {
	return func(o *EmbeddingOptions) {
		o.BatchSize = size
	}
}

// WithNormalization sets whether to normalize vectors
func WithNormalization(normalize bool) Option {
	return func(o *EmbeddingOptions) {
		o.Normalize = normalize
	}
}

// WithRolePrefixes sets the prefixes prepended to query and passage inputs
func WithRolePrefixes(query, passage string) Option {
	return func(o *EmbeddingOptions) {
		o.QueryPrefix = query
		o.PassagePrefix = passage
	}
}
