package agent

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/clickagent/clickagent/document"
	"github.com/clickagent/clickagent/embedding"
	"github.com/clickagent/clickagent/llm"
	"github.com/clickagent/clickagent/vectorstore"
)

// NoContextMarker is passed to the generation model when retrieval found
// nothing, so the model can produce a degraded but valid answer instead of
// the orchestrator failing.
const NoContextMarker = "No relevant context found."

// Agent wires the retrieval pipeline together: chunked documents flow
// through the embedder into the vector store, and questions flow through
// the embedder into similarity search and on to the generation model.
type Agent struct {
	vstore *vectorstore.VectorStore
	opts   *Options
}

// New creates an Agent over the given storage adapter and embedder. It
// fails fast when the store was built with a different embedding model
// than the embedder is configured for.
func New(ctx context.Context, store vectorstore.Store, embedder embedding.Embedder, opts ...Option) (*Agent, error) {
	options := defaultOptions()
	for _, opt := range opts {
		opt(options)
	}

	vstore, err := vectorstore.New(ctx, store, embedder,
		vectorstore.WithBatchSize(options.EmbedBatchSize),
	)
	if err != nil {
		return nil, err
	}

	return &Agent{
		vstore: vstore,
		opts:   options,
	}, nil
}

// IngestStats summarizes one ingestion run.
type IngestStats struct {
	Processed int
	Skipped   int
}

// Ingest drains a document source into the vector store. Malformed records
// are logged and skipped; the rest accumulate into batches that are
// embedded and persisted atomically. Cancelling the context between
// batches stops the run and leaves only fully committed batches persisted.
func (a *Agent) Ingest(ctx context.Context, src document.Source) (*IngestStats, error) {
	stats := &IngestStats{}
	batch := make([]document.Document, 0, a.opts.IngestBatchSize)

	for {
		doc, err := src.Next(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			if recErr, ok := document.AsRecordError(err); ok {
				stats.Skipped++
				a.opts.Logger.Warn("skipping malformed record",
					zap.String("source", recErr.Source),
					zap.Int("record", recErr.Record),
					zap.Error(recErr),
				)
				continue
			}
			return stats, err
		}

		batch = append(batch, doc)
		if len(batch) >= a.opts.IngestBatchSize {
			if err := a.commit(ctx, batch, stats); err != nil {
				return stats, err
			}
			batch = batch[:0]
		}
	}

	if err := a.commit(ctx, batch, stats); err != nil {
		return stats, err
	}

	a.opts.Logger.Info("ingestion finished",
		zap.Int("processed", stats.Processed),
		zap.Int("skipped", stats.Skipped),
	)
	return stats, nil
}

func (a *Agent) commit(ctx context.Context, batch []document.Document, stats *IngestStats) error {
	if len(batch) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := a.vstore.AddDocuments(ctx, batch); err != nil {
		return err
	}
	stats.Processed += len(batch)
	a.opts.Logger.Debug("batch committed", zap.Int("size", len(batch)))
	return nil
}

// Retrieve returns the k stored documents most similar to the question,
// ranked by ascending cosine distance. k <= 0 uses the configured default.
// An empty store yields an empty result.
func (a *Agent) Retrieve(ctx context.Context, question string, k int) ([]vectorstore.Result, error) {
	if k <= 0 {
		k = a.opts.TopK
	}
	return a.vstore.SimilaritySearch(ctx, question, k)
}

// Answer is a generated answer together with the retrieved context it was
// grounded on.
type Answer struct {
	Text    string
	Context []vectorstore.Result
}

// Ask retrieves context for the question and delegates to the generation
// model. When retrieval comes back empty the model is still invoked, with
// an explicit no-context marker. Generation failures are surfaced to the
// caller, never retried here.
func (a *Agent) Ask(ctx context.Context, question string) (*Answer, error) {
	if a.opts.LLM == nil {
		return nil, &llm.LLMError{
			Op:      "Ask",
			Code:    llm.ErrCodeInvalidInput,
			Message: "no generation model configured",
		}
	}

	results, err := a.Retrieve(ctx, question, a.opts.TopK)
	if err != nil {
		return nil, err
	}

	contextBlock := FormatContext(results)
	if contextBlock == "" {
		contextBlock = NoContextMarker
	}

	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: systemPrompt},
		{Role: llm.RoleUser, Content: fmt.Sprintf(answerPrompt, contextBlock, question)},
	}

	reply, err := a.opts.LLM.Chat(ctx, messages,
		llm.WithMaxTokens(a.opts.MaxAnswerTokens),
		llm.WithTemperature(a.opts.Temperature),
	)
	if err != nil {
		return nil, err
	}

	return &Answer{
		Text:    strings.TrimSpace(reply.Content),
		Context: results,
	}, nil
}

// FormatContext renders retrieved documents into the context block handed
// to the generation model, one line per document in retrieval order.
func FormatContext(results []vectorstore.Result) string {
	var sb strings.Builder
	for i, res := range results {
		if i > 0 {
			sb.WriteString("\n")
		}
		meta := res.Document.Metadata
		sb.WriteString(meta.Origin)
		sb.WriteString(" (")
		sb.WriteString(meta.Timestamp.Format("2006-01-02 15:04:05"))
		sb.WriteString("): ")
		sb.WriteString(res.Document.Content)
	}
	return sb.String()
}

const systemPrompt = "You are a helpful AI assistant that answers questions based on provided chat context."

const answerPrompt = `You are a helpful AI assistant. Please answer the question based on the following chat context.
The context is a conversation between people, with each line formatted as "Name (Time): Message".

Context:
%s

Question: %s

Please provide a clear and concise answer based on the context. If the context doesn't contain enough information to answer the question, please say so.`
