package agent

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/clickagent/clickagent/document"
	"github.com/clickagent/clickagent/llm"
	"github.com/clickagent/clickagent/vectorstore"
)

type fakeStore struct {
	info    vectorstore.ModelInfo
	puts    [][]document.Document
	results []vectorstore.Result
}

func (f *fakeStore) Put(_ context.Context, docs []document.Document) error {
	batch := make([]document.Document, len(docs))
	copy(batch, docs)
	f.puts = append(f.puts, batch)
	return nil
}

func (f *fakeStore) QueryNearest(context.Context, []float32, int) ([]vectorstore.Result, error) {
	return f.results, nil
}

func (f *fakeStore) ModelInfo(context.Context) (vectorstore.ModelInfo, error) {
	return f.info, nil
}

type fakeEmbedder struct{}

func (fakeEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0}
	}
	return out, nil
}

func (fakeEmbedder) EmbedQuery(context.Context, string) ([]float32, error) {
	return []float32{1, 0}, nil
}

func (fakeEmbedder) Dimension() int  { return 2 }
func (fakeEmbedder) ModelID() string { return "test-model" }

// fakeLLM records the last conversation and replies with a fixed answer.
type fakeLLM struct {
	lastMessages []llm.Message
	reply        string
	err          error
}

func (f *fakeLLM) Chat(_ context.Context, messages []llm.Message, _ ...llm.Option) (*llm.Message, error) {
	f.lastMessages = messages
	if f.err != nil {
		return nil, f.err
	}
	return &llm.Message{Role: llm.RoleAssistant, Content: f.reply}, nil
}

func (f *fakeLLM) Complete(ctx context.Context, prompt string, opts ...llm.Option) (string, error) {
	msg, err := f.Chat(ctx, []llm.Message{{Role: llm.RoleUser, Content: prompt}}, opts...)
	if err != nil {
		return "", err
	}
	return msg.Content, nil
}

// scriptedSource replays a fixed sequence of documents and errors.
type scriptedSource struct {
	steps []scriptedStep
	i     int
}

type scriptedStep struct {
	doc document.Document
	err error
}

func (s *scriptedSource) Next(context.Context) (document.Document, error) {
	if s.i >= len(s.steps) {
		return document.Document{}, io.EOF
	}
	step := s.steps[s.i]
	s.i++
	return step.doc, step.err
}

func chatDoc(id string) document.Document {
	return document.Document{
		ID:         id,
		SourceType: document.SourceChatRecord,
		Content:    "message " + id,
		Metadata: document.Metadata{
			Origin:    "Alice",
			Timestamp: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
		},
	}
}

func TestIngest_SkipsMalformedRecords(t *testing.T) {
	store := &fakeStore{}
	src := &scriptedSource{steps: []scriptedStep{
		{doc: chatDoc("m1")},
		{err: &document.RecordError{Source: "chat", Record: 2, Message: "empty field"}},
		{doc: chatDoc("m2")},
		{err: &document.RecordError{Source: "chat", Record: 4, Message: "bad timestamp"}},
		{doc: chatDoc("m3")},
	}}

	ag, err := New(context.Background(), store, fakeEmbedder{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	stats, err := ag.Ingest(context.Background(), src)
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}
	if stats.Processed != 3 {
		t.Errorf("Processed = %d, want 3", stats.Processed)
	}
	if stats.Skipped != 2 {
		t.Errorf("Skipped = %d, want 2", stats.Skipped)
	}
}

func TestIngest_Batches(t *testing.T) {
	store := &fakeStore{}
	var steps []scriptedStep
	for i := 0; i < 5; i++ {
		steps = append(steps, scriptedStep{doc: chatDoc(strings.Repeat("m", i+1))})
	}
	src := &scriptedSource{steps: steps}

	ag, err := New(context.Background(), store, fakeEmbedder{}, WithIngestBatchSize(2))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	stats, err := ag.Ingest(context.Background(), src)
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}
	if stats.Processed != 5 {
		t.Errorf("Processed = %d, want 5", stats.Processed)
	}
	if len(store.puts) != 3 {
		t.Errorf("Put called %d times, want 3 batches", len(store.puts))
	}
	for _, batch := range store.puts {
		for _, doc := range batch {
			if len(doc.Embedding) != 2 {
				t.Errorf("doc %s persisted without embedding", doc.ID)
			}
		}
	}
}

func TestIngest_FatalError(t *testing.T) {
	store := &fakeStore{}
	boom := errors.New("disk gone")
	src := &scriptedSource{steps: []scriptedStep{
		{doc: chatDoc("m1")},
		{err: boom},
	}}

	ag, err := New(context.Background(), store, fakeEmbedder{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if _, err := ag.Ingest(context.Background(), src); !errors.Is(err, boom) {
		t.Errorf("Ingest() error = %v, want %v", err, boom)
	}
}

func TestAsk(t *testing.T) {
	store := &fakeStore{results: []vectorstore.Result{
		{Document: chatDoc("m1"), Distance: 0.1},
		{Document: chatDoc("m2"), Distance: 0.3},
	}}
	model := &fakeLLM{reply: "  They talked about lunch.  "}

	ag, err := New(context.Background(), store, fakeEmbedder{}, WithLLM(model))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	answer, err := ag.Ask(context.Background(), "What did they discuss?")
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if answer.Text != "They talked about lunch." {
		t.Errorf("Text = %q", answer.Text)
	}
	if len(answer.Context) != 2 {
		t.Errorf("Context has %d results, want 2", len(answer.Context))
	}

	if len(model.lastMessages) != 2 {
		t.Fatalf("model received %d messages, want system + user", len(model.lastMessages))
	}
	if model.lastMessages[0].Role != llm.RoleSystem {
		t.Errorf("first message role = %q", model.lastMessages[0].Role)
	}
	user := model.lastMessages[1].Content
	if !strings.Contains(user, "Alice (2024-03-01 10:00:00): message m1") {
		t.Errorf("user prompt missing context line:\n%s", user)
	}
	if !strings.Contains(user, "What did they discuss?") {
		t.Errorf("user prompt missing question:\n%s", user)
	}
}

func TestAsk_EmptyRetrieval(t *testing.T) {
	store := &fakeStore{}
	model := &fakeLLM{reply: "I do not have enough context."}

	ag, err := New(context.Background(), store, fakeEmbedder{}, WithLLM(model))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	answer, err := ag.Ask(context.Background(), "Anything?")
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if answer.Text == "" {
		t.Error("Ask() should still produce an answer")
	}
	if !strings.Contains(model.lastMessages[1].Content, NoContextMarker) {
		t.Errorf("user prompt should carry the no-context marker:\n%s", model.lastMessages[1].Content)
	}
}

func TestAsk_NoModelConfigured(t *testing.T) {
	ag, err := New(context.Background(), &fakeStore{}, fakeEmbedder{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	_, err = ag.Ask(context.Background(), "Anything?")
	var llmErr *llm.LLMError
	if !errors.As(err, &llmErr) || llmErr.Code != llm.ErrCodeInvalidInput {
		t.Errorf("Ask() error = %v, want invalid-input LLMError", err)
	}
}

func TestAsk_GenerationFailure(t *testing.T) {
	store := &fakeStore{results: []vectorstore.Result{{Document: chatDoc("m1")}}}
	boom := errors.New("model offline")
	model := &fakeLLM{err: boom}

	ag, err := New(context.Background(), store, fakeEmbedder{}, WithLLM(model))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if _, err := ag.Ask(context.Background(), "Anything?"); !errors.Is(err, boom) {
		t.Errorf("Ask() error = %v, want %v", err, boom)
	}
}

func TestRetrieve_DefaultTopK(t *testing.T) {
	store := &fakeStore{results: []vectorstore.Result{{Document: chatDoc("m1")}}}

	ag, err := New(context.Background(), store, fakeEmbedder{}, WithTopK(7))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	results, err := ag.Retrieve(context.Background(), "anything", 0)
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if len(results) != 1 {
		t.Errorf("got %d results", len(results))
	}
}

func TestFormatContext(t *testing.T) {
	results := []vectorstore.Result{
		{Document: chatDoc("m1")},
		{Document: chatDoc("m2")},
	}
	got := FormatContext(results)
	want := "Alice (2024-03-01 10:00:00): message m1\nAlice (2024-03-01 10:00:00): message m2"
	if got != want {
		t.Errorf("FormatContext() = %q, want %q", got, want)
	}

	if got := FormatContext(nil); got != "" {
		t.Errorf("FormatContext(nil) = %q, want empty", got)
	}
}
