package document

import "time"

// SourceOptions contains configuration shared by the built-in sources.
type SourceOptions struct {
	// Origin overrides the human-readable origin label of free-text
	// documents.
	Origin string

	// Timestamp is attached to free-text documents in place of the
	// ingestion time, e.g. the publication date of the source document.
	Timestamp time.Time

	// MinSentenceLength drops free-text segments shorter than this many
	// bytes.
	MinSentenceLength int

	// Limiter caps document content at the embedding model input limit.
	// Nil means no cap.
	Limiter *TokenLimiter
}

// SourceOption is a function type to modify SourceOptions.
type SourceOption func(*SourceOptions)

// WithOrigin sets the origin label for produced documents.
func WithOrigin(origin string) SourceOption {
	return func(o *SourceOptions) {
		o.Origin = origin
	}
}

// WithTimestamp sets the timestamp attached to free-text documents.
func WithTimestamp(ts time.Time) SourceOption {
	return func(o *SourceOptions) {
		o.Timestamp = ts
	}
}

// WithMinSentenceLength sets the minimum retained sentence length.
func WithMinSentenceLength(n int) SourceOption {
	return func(o *SourceOptions) {
		o.MinSentenceLength = n
	}
}

// WithTokenLimiter caps document content with the given limiter.
func WithTokenLimiter(limiter *TokenLimiter) SourceOption {
	return func(o *SourceOptions) {
		o.Limiter = limiter
	}
}

func defaultSourceOptions() *SourceOptions {
	return &SourceOptions{
		Origin:            "PDF Document",
		MinSentenceLength: DefaultMinSentenceLength,
	}
}
