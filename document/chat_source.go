package document

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// Required columns of a tabular chat export.
var chatColumns = []string{"ID", "Sender", "SenderName", "Content", "Timestamp", "Duration", "Offset"}

// ChatSource streams documents from a tabular chat export, one document per
// row. A row with a missing or empty required field yields a *RecordError
// and the stream continues with the next row.
type ChatSource struct {
	r    *csv.Reader
	cols map[string]int
	row  int
	opts *SourceOptions
}

// NewChatSource reads the header row and validates that every required
// column is present. The reader is consumed as documents are pulled.
func NewChatSource(r io.Reader, opts ...SourceOption) (*ChatSource, error) {
	options := defaultSourceOptions()
	for _, opt := range opts {
		opt(options)
	}

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading chat export header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.TrimSpace(name)] = i
	}
	for _, name := range chatColumns {
		if _, ok := cols[name]; !ok {
			return nil, fmt.Errorf("chat export missing required column %q", name)
		}
	}

	return &ChatSource{r: cr, cols: cols, opts: options}, nil
}

func (s *ChatSource) Next(ctx context.Context) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}

	record, err := s.r.Read()
	if err == io.EOF {
		return Document{}, io.EOF
	}
	s.row++
	if err != nil {
		return Document{}, &RecordError{
			Source:  "chat",
			Record:  s.row,
			Message: "unparseable row",
			Err:     err,
		}
	}

	fields := make(map[string]string, len(chatColumns))
	for _, name := range chatColumns {
		idx := s.cols[name]
		if idx >= len(record) {
			return Document{}, s.recordError("short row, missing column " + name)
		}
		fields[name] = strings.TrimSpace(record[idx])
		if fields[name] == "" {
			return Document{}, s.recordError("empty required field " + name)
		}
	}

	ts, err := time.Parse(time.RFC3339, fields["Timestamp"])
	if err != nil {
		return Document{}, &RecordError{
			Source:  "chat",
			Record:  s.row,
			Message: "invalid timestamp " + fields["Timestamp"],
			Err:     err,
		}
	}
	duration, err := strconv.Atoi(fields["Duration"])
	if err != nil {
		return Document{}, s.recordError("non-integer Duration " + fields["Duration"])
	}
	offset, err := strconv.Atoi(fields["Offset"])
	if err != nil {
		return Document{}, s.recordError("non-integer Offset " + fields["Offset"])
	}

	content := fields["Content"]
	if s.opts.Limiter != nil {
		content = s.opts.Limiter.Truncate(content)
	}

	return Document{
		ID:         fields["ID"],
		SourceType: SourceChatRecord,
		Content:    content,
		Metadata: Metadata{
			Origin:     fields["SenderName"],
			Timestamp:  ts,
			Sender:     fields["Sender"],
			SenderName: fields["SenderName"],
			DurationMS: duration,
			OffsetMS:   offset,
		},
	}, nil
}

func (s *ChatSource) recordError(message string) *RecordError {
	return &RecordError{Source: "chat", Record: s.row, Message: message}
}
