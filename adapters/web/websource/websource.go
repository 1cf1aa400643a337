// Package websource loads documents from HTTP URLs, splitting each page
// into sentences. Pages are fetched lazily as the consumer advances.
package websource

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/clickagent/clickagent/document"
)

var _ document.Source = (*WebSource)(nil)

type WebSource struct {
	urls   []string
	client *http.Client
	opts   []document.SourceOption

	current document.Source
}

func NewWebSource(urls []string, timeout time.Duration, opts ...document.SourceOption) *WebSource {
	return &WebSource{
		urls:   urls,
		client: &http.Client{Timeout: timeout},
		opts:   opts,
	}
}

// Next returns the next document, fetching the following URL when the
// current page is exhausted. It returns io.EOF after the last URL.
func (w *WebSource) Next(ctx context.Context) (document.Document, error) {
	for {
		if w.current != nil {
			doc, err := w.current.Next(ctx)
			if !errors.Is(err, io.EOF) {
				return doc, err
			}
			w.current = nil
		}

		if len(w.urls) == 0 {
			return document.Document{}, io.EOF
		}
		url := w.urls[0]
		w.urls = w.urls[1:]

		content, err := w.fetchURL(ctx, url)
		if err != nil {
			return document.Document{}, err
		}

		opts := append([]document.SourceOption{document.WithOrigin(url)}, w.opts...)
		inner, err := document.NewTextSource(content, opts...)
		if err != nil {
			return document.Document{}, err
		}
		w.current = inner
	}
}

func (w *WebSource) fetchURL(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", &document.RecordError{
			Source:  "web",
			Message: "invalid URL " + url,
			Err:     err,
		}
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return "", &document.RecordError{
			Source:  "web",
			Message: "failed to fetch " + url,
			Err:     err,
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &document.RecordError{
			Source:  "web",
			Message: "failed to fetch " + url + ": " + resp.Status,
		}
	}

	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &document.RecordError{
			Source:  "web",
			Message: "failed to read response body from " + url,
			Err:     err,
		}
	}

	return string(content), nil
}
