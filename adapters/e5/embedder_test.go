package e5

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/clickagent/clickagent/embedding"
)

// embedServer fakes an OpenAI-compatible /embeddings endpoint and records
// the inputs of every request.
func embedServer(t *testing.T, dimension int, status int) (*httptest.Server, *[][]string) {
	t.Helper()
	var requests [][]string

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embeddings" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req struct {
			Input []string `json:"input"`
			Model string   `json:"model"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		requests = append(requests, req.Input)

		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}

		type item struct {
			Embedding []float32 `json:"embedding"`
			Index     int       `json:"index"`
		}
		resp := struct {
			Data []item `json:"data"`
		}{}
		for i := range req.Input {
			vec := make([]float32, dimension)
			vec[0] = float32(i + 1)
			resp.Data = append(resp.Data, item{Embedding: vec, Index: i})
		}
		json.NewEncoder(w).Encode(resp)
	})

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv, &requests
}

func TestEmbedder_EmbedDocuments(t *testing.T) {
	srv, requests := embedServer(t, 4, http.StatusOK)

	emb, err := NewEmbedder(Config{BaseURL: srv.URL, Dimension: 4},
		embedding.WithBatchSize(2))
	if err != nil {
		t.Fatalf("NewEmbedder() error = %v", err)
	}

	vectors, err := emb.EmbedDocuments(context.Background(), []string{"one", "two", "three"})
	if err != nil {
		t.Fatalf("EmbedDocuments() error = %v", err)
	}
	if len(vectors) != 3 {
		t.Fatalf("got %d vectors, want 3", len(vectors))
	}
	for i, vec := range vectors {
		if len(vec) != 4 {
			t.Errorf("vector %d has length %d", i, len(vec))
		}
	}

	if len(*requests) != 2 {
		t.Fatalf("server saw %d requests, want 2 batches", len(*requests))
	}
	for _, batch := range *requests {
		for _, input := range batch {
			if !strings.HasPrefix(input, "passage: ") {
				t.Errorf("document input %q missing passage prefix", input)
			}
		}
	}
}

func TestEmbedder_EmbedQuery(t *testing.T) {
	srv, requests := embedServer(t, 4, http.StatusOK)

	emb, err := NewEmbedder(Config{BaseURL: srv.URL, Dimension: 4})
	if err != nil {
		t.Fatalf("NewEmbedder() error = %v", err)
	}

	vec, err := emb.EmbedQuery(context.Background(), "what was said")
	if err != nil {
		t.Fatalf("EmbedQuery() error = %v", err)
	}
	if len(vec) != 4 {
		t.Errorf("vector length = %d, want 4", len(vec))
	}

	if len(*requests) != 1 || len((*requests)[0]) != 1 {
		t.Fatalf("server saw %v", *requests)
	}
	if got := (*requests)[0][0]; got != "query: what was said" {
		t.Errorf("query input = %q, want query prefix", got)
	}
}

func TestEmbedder_NormalizesVectors(t *testing.T) {
	srv, _ := embedServer(t, 4, http.StatusOK)

	emb, err := NewEmbedder(Config{BaseURL: srv.URL, Dimension: 4})
	if err != nil {
		t.Fatalf("NewEmbedder() error = %v", err)
	}

	vec, err := emb.EmbedQuery(context.Background(), "anything")
	if err != nil {
		t.Fatalf("EmbedQuery() error = %v", err)
	}
	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm < 0.999 || norm > 1.001 {
		t.Errorf("squared norm = %f, want 1", norm)
	}
}

func TestEmbedder_ErrorMapping(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		wantCode string
	}{
		{name: "Rate limited", status: http.StatusTooManyRequests, wantCode: embedding.ErrCodeRateLimitExceeded},
		{name: "Server error", status: http.StatusInternalServerError, wantCode: embedding.ErrCodeModelNotAvailable},
		{name: "Bad request", status: http.StatusBadRequest, wantCode: embedding.ErrCodeInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := embedServer(t, 4, tt.status)

			emb, err := NewEmbedder(Config{BaseURL: srv.URL, Dimension: 4})
			if err != nil {
				t.Fatalf("NewEmbedder() error = %v", err)
			}

			_, err = emb.EmbedQuery(context.Background(), "anything")
			var embErr *embedding.EmbeddingError
			if !errors.As(err, &embErr) {
				t.Fatalf("EmbedQuery() error = %v, want *EmbeddingError", err)
			}
			if embErr.Code != tt.wantCode {
				t.Errorf("error code = %q, want %q", embErr.Code, tt.wantCode)
			}
		})
	}
}

func TestEmbedder_DimensionValidation(t *testing.T) {
	srv, _ := embedServer(t, 8, http.StatusOK)

	emb, err := NewEmbedder(Config{BaseURL: srv.URL, Dimension: 4})
	if err != nil {
		t.Fatalf("NewEmbedder() error = %v", err)
	}

	_, err = emb.EmbedQuery(context.Background(), "anything")
	var embErr *embedding.EmbeddingError
	if !errors.As(err, &embErr) || embErr.Code != embedding.ErrCodeInvalidDimensions {
		t.Errorf("EmbedQuery() error = %v, want invalid-dimensions", err)
	}
}

func TestNewEmbedder_RequiresBaseURL(t *testing.T) {
	if _, err := NewEmbedder(Config{}); err == nil {
		t.Error("NewEmbedder() should fail without a base URL")
	}
}

func TestEmbedder_Defaults(t *testing.T) {
	emb, err := NewEmbedder(Config{BaseURL: "http://localhost:1"})
	if err != nil {
		t.Fatalf("NewEmbedder() error = %v", err)
	}
	if emb.Dimension() != DefaultDimension {
		t.Errorf("Dimension() = %d, want %d", emb.Dimension(), DefaultDimension)
	}
	if emb.ModelID() != DefaultModel {
		t.Errorf("ModelID() = %q, want %q", emb.ModelID(), DefaultModel)
	}
}
