package vectorstore

import (
	"context"

	"github.com/clickagent/clickagent/document"
	"github.com/clickagent/clickagent/embedding"
)

// Result is a retrieved document with its cosine distance to the query
// vector. Lower distance means more similar.
type Result struct {
	Document document.Document
	Distance float32
}

// ModelInfo is the embedding model configuration a store has recorded.
// A zero value means the store is empty and has not been bound to a model.
type ModelInfo struct {
	ModelID   string
	Dimension int
}

// Store interface defines the operations that any vector database adapter
// must implement. Documents passed to Put carry their embeddings; a Put is
// atomic: either every row of the call becomes visible or none does.
type Store interface {
	// Put persists documents. It rejects embeddings whose length differs
	// from the store's configured dimension and ids that collide with an
	// existing row; overwriting is not an operation of this store.
	Put(ctx context.Context, docs []document.Document) error

	// QueryNearest returns the k stored documents closest to vector by
	// cosine distance, ascending, with ties broken by insertion order.
	// k must be >= 1; a store with fewer than k rows returns all of them.
	QueryNearest(ctx context.Context, vector []float32, k int) ([]Result, error)

	// ModelInfo returns the model identifier and dimension the store was
	// created with.
	ModelInfo(ctx context.Context) (ModelInfo, error)
}

// VectorStore combines a storage adapter with an embedder, handling the
// text-to-vector conversion on both the ingestion and the query path so
// both sides of retrieval share one embedding space.
type VectorStore struct {
	store    Store
	embedder embedding.Embedder
	opts     *Options
}

// New creates a VectorStore. It fails fast when the store's recorded model
// identifier or dimension differs from the embedder's: mixing embedding
// spaces silently corrupts similarity ranking.
func New(ctx context.Context, store Store, embedder embedding.Embedder, opts ...Option) (*VectorStore, error) {
	options := &Options{
		BatchSize: embedding.DefaultBatchSize,
	}
	for _, opt := range opts {
		opt(options)
	}

	info, err := store.ModelInfo(ctx)
	if err != nil {
		return nil, err
	}
	if info.ModelID != "" && info.ModelID != embedder.ModelID() {
		return nil, NewModelMismatchError("vectorstore", info.ModelID, embedder.ModelID())
	}
	if info.Dimension != 0 && info.Dimension != embedder.Dimension() {
		return nil, NewDimensionMismatchError("vectorstore", info.Dimension, embedder.Dimension())
	}

	return &VectorStore{
		store:    store,
		embedder: embedder,
		opts:     options,
	}, nil
}

// AddDocuments embeds the documents with the passage role and persists
// them. Embedding and persisting happen per batch: a failed batch is not
// partially persisted.
func (vs *VectorStore) AddDocuments(ctx context.Context, docs []document.Document) error {
	size := vs.opts.BatchSize
	for i := 0; i < len(docs); i += size {
		end := i + size
		if end > len(docs) {
			end = len(docs)
		}

		batch := docs[i:end]
		texts := make([]string, len(batch))
		for j, doc := range batch {
			texts[j] = doc.Content
		}

		vectors, err := vs.embedder.EmbedDocuments(ctx, texts)
		if err != nil {
			return NewEmbeddingFailedError("vectorstore", err)
		}
		if len(vectors) != len(batch) {
			return NewEmbeddingFailedError("vectorstore",
				embedding.ErrInvalidDimensions("EmbedDocuments", len(batch), len(vectors)))
		}

		for j := range batch {
			batch[j].Embedding = vectors[j]
		}

		if err := vs.store.Put(ctx, batch); err != nil {
			return err
		}
	}
	return nil
}

// SimilaritySearch embeds the query with the query role and returns the k
// nearest stored documents. An empty store yields an empty result, not an
// error.
func (vs *VectorStore) SimilaritySearch(ctx context.Context, query string, k int) ([]Result, error) {
	vector, err := vs.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, NewEmbeddingFailedError("vectorstore", err)
	}
	return vs.store.QueryNearest(ctx, vector, k)
}
