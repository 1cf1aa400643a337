package vectorstore

// Options contains configuration for the vector store facade
type Options struct {
	// BatchSize bounds how many documents are embedded and persisted per
	// round trip during AddDocuments.
	BatchSize int
}

// Option is a function type to modify Options
type Option func(*Options)

// WithBatchSize sets the embed-and-persist batch size
func WithBatchSize(size int) Option {
	return func(o *Options) {
		if size > 0 {
			o.BatchSize = size
		}
	}
}
