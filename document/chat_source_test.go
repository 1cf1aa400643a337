package document

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"
)

const chatHeader = "ID,Sender,SenderName,Content,Timestamp,Duration,Offset\n"

func TestNewChatSource(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{
			name:  "Valid header",
			input: chatHeader,
		},
		{
			name:  "Reordered columns",
			input: "Content,ID,Sender,SenderName,Timestamp,Offset,Duration\n",
		},
		{
			name:    "Missing column",
			input:   "ID,Sender,SenderName,Content,Timestamp,Duration\n",
			wantErr: true,
		},
		{
			name:    "Empty input",
			input:   "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewChatSource(strings.NewReader(tt.input))
			if (err != nil) != tt.wantErr {
				t.Errorf("NewChatSource() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestChatSource_Next(t *testing.T) {
	input := chatHeader +
		"m1,alice,Alice,Hello there,2024-03-01T10:00:00Z,120,0\n" +
		"m2,bob,Bob,Hi Alice,2024-03-01T10:00:05Z,90,5000\n"

	src, err := NewChatSource(strings.NewReader(input))
	if err != nil {
		t.Fatalf("NewChatSource() error = %v", err)
	}

	first, err := src.Next(context.Background())
	if err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	if first.ID != "m1" {
		t.Errorf("ID = %q, want %q", first.ID, "m1")
	}
	if first.SourceType != SourceChatRecord {
		t.Errorf("SourceType = %q, want %q", first.SourceType, SourceChatRecord)
	}
	if first.Content != "Hello there" {
		t.Errorf("Content = %q, want %q", first.Content, "Hello there")
	}
	if first.Metadata.Origin != "Alice" {
		t.Errorf("Origin = %q, want %q", first.Metadata.Origin, "Alice")
	}
	wantTS := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	if !first.Metadata.Timestamp.Equal(wantTS) {
		t.Errorf("Timestamp = %v, want %v", first.Metadata.Timestamp, wantTS)
	}
	if first.Metadata.DurationMS != 120 {
		t.Errorf("DurationMS = %d, want 120", first.Metadata.DurationMS)
	}
	if first.Embedding != nil {
		t.Error("Embedding should be unset at the source")
	}

	second, err := src.Next(context.Background())
	if err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	if second.ID != "m2" || second.Metadata.OffsetMS != 5000 {
		t.Errorf("second document = %+v", second)
	}

	if _, err := src.Next(context.Background()); err != io.EOF {
		t.Errorf("Next() after last row error = %v, want io.EOF", err)
	}
}

func TestChatSource_MalformedRows(t *testing.T) {
	tests := []struct {
		name string
		row  string
	}{
		{
			name: "Empty content field",
			row:  "m1,alice,Alice,,2024-03-01T10:00:00Z,120,0",
		},
		{
			name: "Missing trailing columns",
			row:  "m1,alice,Alice,Hello",
		},
		{
			name: "Invalid timestamp",
			row:  "m1,alice,Alice,Hello,yesterday,120,0",
		},
		{
			name: "Non-integer duration",
			row:  "m1,alice,Alice,Hello,2024-03-01T10:00:00Z,long,0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := chatHeader +
				tt.row + "\n" +
				"m2,bob,Bob,Still fine,2024-03-01T11:00:00Z,60,0\n"

			src, err := NewChatSource(strings.NewReader(input))
			if err != nil {
				t.Fatalf("NewChatSource() error = %v", err)
			}

			_, err = src.Next(context.Background())
			if _, ok := AsRecordError(err); !ok {
				t.Fatalf("Next() error = %v, want *RecordError", err)
			}

			// The stream continues past the bad row.
			doc, err := src.Next(context.Background())
			if err != nil {
				t.Fatalf("Next() after bad row error = %v", err)
			}
			if doc.ID != "m2" {
				t.Errorf("ID = %q, want %q", doc.ID, "m2")
			}
		})
	}
}

func TestDrain(t *testing.T) {
	input := chatHeader +
		"m1,alice,Alice,Hello there,2024-03-01T10:00:00Z,120,0\n" +
		"m2,bob,Bob,,2024-03-01T10:00:05Z,90,0\n" +
		"m3,alice,Alice,Are you around?,2024-03-01T10:01:00Z,80,0\n"

	src, err := NewChatSource(strings.NewReader(input))
	if err != nil {
		t.Fatalf("NewChatSource() error = %v", err)
	}

	docs, skipped, err := Drain(context.Background(), src)
	if err != nil {
		t.Fatalf("Drain() error = %v", err)
	}
	if len(docs) != 2 {
		t.Errorf("Drain() returned %d documents, want 2", len(docs))
	}
	if skipped != 1 {
		t.Errorf("Drain() skipped = %d, want 1", skipped)
	}
	if docs[0].ID != "m1" || docs[1].ID != "m3" {
		t.Errorf("Drain() ids = %q, %q", docs[0].ID, docs[1].ID)
	}
}

func TestChatSource_CancelledContext(t *testing.T) {
	src, err := NewChatSource(strings.NewReader(chatHeader +
		"m1,alice,Alice,Hello there,2024-03-01T10:00:00Z,120,0\n"))
	if err != nil {
		t.Fatalf("NewChatSource() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := src.Next(ctx); err != context.Canceled {
		t.Errorf("Next() error = %v, want context.Canceled", err)
	}
}
