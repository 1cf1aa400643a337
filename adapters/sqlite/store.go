// Package sqlite provides a single-file vector store backed by SQLite.
// Embeddings are stored as little-endian float32 blobs and nearest-neighbor
// queries run as a linear scan, which is adequate at moderate scale.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/clickagent/clickagent/document"
	"github.com/clickagent/clickagent/vectorstore"
)

const storeName = "sqlite"

var _ vectorstore.Store = (*Store)(nil)

// Store is a file-backed vectorstore.Store. WAL mode keeps concurrent
// readers safe; a single writer at a time is assumed.
type Store struct {
	db        *sql.DB
	path      string
	dimension int
	modelID   string
}

// Config holds configuration for the SQLite store.
type Config struct {
	// Path is the database file. ":memory:" is accepted for tests.
	Path string

	// Dimension of stored embeddings.
	Dimension int

	// ModelID identifies the embedding model the store is bound to.
	ModelID string
}

// NewStore opens (or creates) the store file and binds it to the
// configured model. Opening an existing store with a different model or
// dimension fails fast.
func NewStore(cfg Config) (*Store, error) {
	if cfg.Dimension <= 0 {
		return nil, vectorstore.NewInitFailedError(storeName,
			fmt.Errorf("dimension must be positive, got %d", cfg.Dimension))
	}
	if cfg.ModelID == "" {
		return nil, vectorstore.NewInitFailedError(storeName,
			fmt.Errorf("model id is required"))
	}

	db, err := sql.Open("sqlite", cfg.Path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, vectorstore.NewInitFailedError(storeName, err)
	}

	s := &Store{
		db:        db,
		path:      cfg.Path,
		dimension: cfg.Dimension,
		modelID:   cfg.ModelID,
	}

	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) init() error {
	const schema = `
		CREATE TABLE IF NOT EXISTS documents (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			source_type TEXT NOT NULL,
			content TEXT NOT NULL,
			origin TEXT NOT NULL,
			ts TEXT NOT NULL,
			sender TEXT NOT NULL DEFAULT '',
			sender_name TEXT NOT NULL DEFAULT '',
			page INTEGER NOT NULL DEFAULT 0,
			duration_ms INTEGER NOT NULL DEFAULT 0,
			offset_ms INTEGER NOT NULL DEFAULT 0,
			embedding BLOB NOT NULL
		);
		CREATE TABLE IF NOT EXISTS store_meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return vectorstore.NewInitFailedError(storeName, err)
	}

	recordedModel, err := s.meta("model_id")
	if err != nil {
		return vectorstore.NewInitFailedError(storeName, err)
	}
	recordedDim, err := s.meta("dimension")
	if err != nil {
		return vectorstore.NewInitFailedError(storeName, err)
	}

	if recordedModel == "" {
		_, err = s.db.Exec(
			`INSERT INTO store_meta (key, value) VALUES ('model_id', ?), ('dimension', ?)`,
			s.modelID, fmt.Sprintf("%d", s.dimension),
		)
		if err != nil {
			return vectorstore.NewInitFailedError(storeName, err)
		}
		return nil
	}

	if recordedModel != s.modelID {
		return vectorstore.NewModelMismatchError(storeName, recordedModel, s.modelID)
	}
	if recordedDim != fmt.Sprintf("%d", s.dimension) {
		return vectorstore.NewInitFailedError(storeName,
			fmt.Errorf("store dimension is %s, configured %d", recordedDim, s.dimension))
	}
	return nil
}

func (s *Store) meta(key string) (string, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM store_meta WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

// ModelInfo returns the model identifier and dimension recorded in the
// store file.
func (s *Store) ModelInfo(ctx context.Context) (vectorstore.ModelInfo, error) {
	var info vectorstore.ModelInfo
	err := s.db.QueryRowContext(ctx, `SELECT value FROM store_meta WHERE key = 'model_id'`).
		Scan(&info.ModelID)
	if err != nil && err != sql.ErrNoRows {
		return vectorstore.ModelInfo{}, vectorstore.NewInitFailedError(storeName, err)
	}
	info.Dimension = s.dimension
	return info, nil
}

// Put persists documents in one transaction: either every row becomes
// visible or none does. Dimension mismatches are rejected before any row
// is written; an id collision rolls the whole batch back.
func (s *Store) Put(ctx context.Context, docs []document.Document) error {
	for _, doc := range docs {
		if len(doc.Embedding) != s.dimension {
			return vectorstore.NewDimensionMismatchError(storeName, s.dimension, len(doc.Embedding))
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return vectorstore.NewAddFailedError(storeName, err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO documents
			(id, source_type, content, origin, ts, sender, sender_name, page, duration_ms, offset_ms, embedding)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return vectorstore.NewAddFailedError(storeName, err)
	}
	defer stmt.Close()

	for _, doc := range docs {
		meta := doc.Metadata
		_, err := stmt.ExecContext(ctx,
			doc.ID, string(doc.SourceType), doc.Content,
			meta.Origin, meta.Timestamp.UTC().Format(time.RFC3339),
			meta.Sender, meta.SenderName, meta.Page, meta.DurationMS, meta.OffsetMS,
			encodeVector(doc.Embedding),
		)
		if err != nil {
			if strings.Contains(err.Error(), "UNIQUE constraint failed") {
				return vectorstore.NewDuplicateIDError(storeName, doc.ID)
			}
			return vectorstore.NewAddFailedError(storeName, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return vectorstore.NewAddFailedError(storeName, err)
	}
	return nil
}

// QueryNearest scans every stored embedding, ranks by cosine distance
// ascending and returns the top k. The scan walks rows in insertion order
// and the sort is stable, so distance ties resolve to the earlier insert.
func (s *Store) QueryNearest(ctx context.Context, vector []float32, k int) ([]vectorstore.Result, error) {
	if k < 1 {
		return nil, vectorstore.NewInvalidQueryError(storeName, fmt.Sprintf("k must be >= 1, got %d", k))
	}
	if len(vector) != s.dimension {
		return nil, vectorstore.NewInvalidQueryError(storeName,
			fmt.Sprintf("query vector has dimension %d, store expects %d", len(vector), s.dimension))
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, source_type, content, origin, ts, sender, sender_name, page, duration_ms, offset_ms, embedding
		FROM documents
		ORDER BY seq
	`)
	if err != nil {
		return nil, vectorstore.NewSearchFailedError(storeName, err)
	}
	defer rows.Close()

	var results []vectorstore.Result
	for rows.Next() {
		var doc document.Document
		var sourceType, ts string
		var blob []byte
		err := rows.Scan(
			&doc.ID, &sourceType, &doc.Content,
			&doc.Metadata.Origin, &ts,
			&doc.Metadata.Sender, &doc.Metadata.SenderName,
			&doc.Metadata.Page, &doc.Metadata.DurationMS, &doc.Metadata.OffsetMS,
			&blob,
		)
		if err != nil {
			return nil, vectorstore.NewSearchFailedError(storeName, err)
		}

		doc.SourceType = document.SourceType(sourceType)
		doc.Metadata.Timestamp, err = time.Parse(time.RFC3339, ts)
		if err != nil {
			return nil, vectorstore.NewSearchFailedError(storeName, err)
		}
		doc.Embedding, err = decodeVector(blob, s.dimension)
		if err != nil {
			return nil, vectorstore.NewSearchFailedError(storeName, err)
		}

		results = append(results, vectorstore.Result{
			Document: doc,
			Distance: cosineDistance(vector, doc.Embedding),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, vectorstore.NewSearchFailedError(storeName, err)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Distance < results[j].Distance
	})
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// Close closes the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

func encodeVector(vector []float32) []byte {
	buf := make([]byte, 4*len(vector))
	for i, v := range vector {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

func decodeVector(blob []byte, dimension int) ([]float32, error) {
	if len(blob) != 4*dimension {
		return nil, fmt.Errorf("embedding blob has %d bytes, expected %d", len(blob), 4*dimension)
	}
	vector := make([]float32, dimension)
	for i := range vector {
		vector[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[i*4:]))
	}
	return vector, nil
}

// cosineDistance is 1 - cosine similarity. Degenerate zero vectors are
// treated as maximally distant.
func cosineDistance(a, b []float32) float32 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 1
	}
	return float32(1 - dot/(math.Sqrt(na)*math.Sqrt(nb)))
}
