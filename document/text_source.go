package document

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
)

// TextSource streams one document per retained sentence of a free-text
// input, e.g. text extracted from a PDF. Sentences below the configured
// minimum length are dropped during splitting. IDs are synthetic: an
// incrementing counter scoped by a per-source run id, so re-importing the
// same text cannot collide with earlier runs at the storage boundary.
type TextSource struct {
	sentences []string
	i         int
	runID     string
	opts      *SourceOptions
}

func NewTextSource(text string, opts ...SourceOption) (*TextSource, error) {
	options := defaultSourceOptions()
	for _, opt := range opts {
		opt(options)
	}
	if options.Timestamp.IsZero() {
		options.Timestamp = time.Now().UTC()
	}

	splitter := NewSentenceSplitter(options.MinSentenceLength)
	sentences, err := splitter.SplitText(text)
	if err != nil {
		return nil, err
	}

	return &TextSource{
		sentences: sentences,
		runID:     uuid.New().String(),
		opts:      options,
	}, nil
}

func (s *TextSource) Next(ctx context.Context) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	if s.i >= len(s.sentences) {
		return Document{}, io.EOF
	}

	content := s.sentences[s.i]
	if s.opts.Limiter != nil {
		content = s.opts.Limiter.Truncate(content)
	}

	doc := Document{
		ID:         fmt.Sprintf("%s:%d", s.runID, s.i),
		SourceType: SourcePDFSentence,
		Content:    content,
		Metadata: Metadata{
			Origin:    s.opts.Origin,
			Timestamp: s.opts.Timestamp,
		},
	}
	s.i++
	return doc, nil
}
