package document

import "time"

// SourceType tags the provenance of a document.
type SourceType string

const (
	// SourceChatRecord marks a document built from one tabular chat record.
	SourceChatRecord SourceType = "chat_record"
	// SourcePDFSentence marks a document built from one sentence of
	// extracted free text.
	SourcePDFSentence SourceType = "pdf_sentence"
)

// Metadata carries display attributes for a document. Origin and Timestamp
// are always populated; the remaining fields depend on the source type.
type Metadata struct {
	// Origin is a human-readable label for where the text came from,
	// e.g. a sender name or "PDF Document".
	Origin     string
	Timestamp  time.Time
	Sender     string
	SenderName string
	Page       int
	DurationMS int
	OffsetMS   int
}

// Document is one retrievable unit of text with metadata and, once the
// embedding client has processed it, a fixed-dimension embedding vector.
// Documents are append-only: a persisted document is never mutated.
type Document struct {
	ID         string
	SourceType SourceType
	Content    string
	Metadata   Metadata
	Embedding  []float32
}
