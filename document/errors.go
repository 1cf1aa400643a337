package document

import (
	"errors"
	"fmt"
)

// RecordError reports a single malformed input record. It is recoverable:
// the ingestion pipeline logs it, skips the record and keeps reading.
type RecordError struct {
	Source  string
	Record  int
	Message string
	Err     error
}

func (e *RecordError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("document.%s: record %d: %s: %v", e.Source, e.Record, e.Message, e.Err)
	}
	return fmt.Sprintf("document.%s: record %d: %s", e.Source, e.Record, e.Message)
}

func (e *RecordError) Unwrap() error {
	return e.Err
}

// AsRecordError reports whether err is (or wraps) a RecordError.
func AsRecordError(err error) (*RecordError, bool) {
	var recErr *RecordError
	if errors.As(err, &recErr) {
		return recErr, true
	}
	return nil, false
}

// SplitterError represents errors that can occur while configuring or
// running text splitting.
type SplitterError struct {
	Op      string
	Message string
	Err     error
}

func (e *SplitterError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("splitter.%s: %s: %v", e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("splitter.%s: %s", e.Op, e.Message)
}

func (e *SplitterError) Unwrap() error {
	return e.Err
}
