package document

import (
	"context"
	"io"
)

// Source produces documents one at a time, with the embedding field left
// unset. Implementations are single-pass: once Next returns io.EOF the
// source is exhausted and cannot be rewound without re-reading the input.
//
// A *RecordError returned by Next refers to a single malformed record; the
// caller may skip it and keep iterating. Any other error is fatal for the
// source.
type Source interface {
	Next(ctx context.Context) (Document, error)
}

// Drain reads a source to exhaustion, discarding malformed records, and
// returns the remaining documents. Intended for small inputs and tests;
// ingestion pipelines should iterate themselves to keep memory bounded.
func Drain(ctx context.Context, src Source) (docs []Document, skipped int, err error) {
	for {
		doc, err := src.Next(ctx)
		if err == io.EOF {
			return docs, skipped, nil
		}
		if err != nil {
			if _, ok := AsRecordError(err); ok {
				skipped++
				continue
			}
			return docs, skipped, err
		}
		docs = append(docs, doc)
	}
}
