package embedding

import (
	"context"
)

// Embedder represents an interface for text embedding operations.
//
// Asymmetric embedding models encode queries and passages differently, so
// the role is part of the contract: EmbedDocuments encodes with the passage
// role, EmbedQuery with the query role. Vectors produced at query time and
// at ingestion time must come from the same model configuration; callers
// validate ModelID against the identifier a vector store has recorded.
type Embedder interface {
	// EmbedDocuments converts a slice of passages into vector embeddings,
	// one-to-one and order-preserving.
	EmbedDocuments(ctx context.Context, documents []string) ([][]float32, error)

	// EmbedQuery converts a single query text into a vector embedding.
	EmbedQuery(ctx context.Context, text string) ([]float32, error)

	// Dimension returns the fixed length of produced vectors.
	Dimension() int

	// ModelID identifies the model configuration producing the vectors.
	ModelID() string
}
