// Package pgvector provides a vectorstore.Store backed by PostgreSQL with
// the pgvector extension. Suited to corpora that outgrow the single-file
// store: nearest-neighbor ordering runs in the database via the cosine
// distance operator and can be index-accelerated.
package pgvector

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	pgv "github.com/pgvector/pgvector-go"
	pgvpgx "github.com/pgvector/pgvector-go/pgx"

	"github.com/clickagent/clickagent/document"
	"github.com/clickagent/clickagent/vectorstore"
)

const storeName = "pgvector"

// Postgres unique_violation error code.
const uniqueViolation = "23505"

var _ vectorstore.Store = (*Store)(nil)

// Store persists documents in a pgvector-typed table.
type Store struct {
	pool      *pgxpool.Pool
	table     string
	dimension int
	modelID   string
}

// Config holds configuration for the pgvector store.
type Config struct {
	Table     string
	Dimension int
	ModelID   string
}

// NewStore connects to Postgres and prepares the store's connection pool.
// Call Init once to create the schema.
func NewStore(ctx context.Context, connString string, cfg Config) (*Store, error) {
	if cfg.Table == "" {
		cfg.Table = "documents"
	}
	if cfg.Dimension <= 0 {
		return nil, vectorstore.NewInitFailedError(storeName,
			fmt.Errorf("dimension must be positive, got %d", cfg.Dimension))
	}
	if cfg.ModelID == "" {
		return nil, vectorstore.NewInitFailedError(storeName,
			fmt.Errorf("model id is required"))
	}

	poolCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, vectorstore.NewInitFailedError(storeName, err)
	}
	poolCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgvpgx.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, vectorstore.NewInitFailedError(storeName, err)
	}

	return &Store{
		pool:      pool,
		table:     cfg.Table,
		dimension: cfg.Dimension,
		modelID:   cfg.ModelID,
	}, nil
}

// Init creates the pgvector extension, the document table and the cosine
// index, and binds the store to the configured model. Opening an existing
// table bound to a different model fails fast.
func (p *Store) Init(ctx context.Context, forceRecreate bool) error {
	if _, err := p.pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return vectorstore.NewInitFailedError(storeName, err)
	}

	if forceRecreate {
		drop := fmt.Sprintf("DROP TABLE IF EXISTS %s; DROP TABLE IF EXISTS %s_meta", p.table, p.table)
		if _, err := p.pool.Exec(ctx, drop); err != nil {
			return vectorstore.NewInitFailedError(storeName, err)
		}
	}

	createSQL := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			seq BIGSERIAL PRIMARY KEY,
			id TEXT NOT NULL UNIQUE,
			source_type TEXT NOT NULL,
			content TEXT NOT NULL,
			origin TEXT NOT NULL,
			ts TIMESTAMPTZ NOT NULL,
			sender TEXT NOT NULL DEFAULT '',
			sender_name TEXT NOT NULL DEFAULT '',
			page INT NOT NULL DEFAULT 0,
			duration_ms INT NOT NULL DEFAULT 0,
			offset_ms INT NOT NULL DEFAULT 0,
			embedding vector(%d) NOT NULL
		);
		CREATE TABLE IF NOT EXISTS %s_meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);
	`, p.table, p.dimension, p.table)
	if _, err := p.pool.Exec(ctx, createSQL); err != nil {
		return vectorstore.NewInitFailedError(storeName, err)
	}

	indexSQL := fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS %s_embedding_idx
		ON %s
		USING ivfflat (embedding vector_cosine_ops)
		WITH (lists = 100)
	`, p.table, p.table)
	if _, err := p.pool.Exec(ctx, indexSQL); err != nil {
		return vectorstore.NewInitFailedError(storeName, err)
	}

	var recorded string
	err := p.pool.QueryRow(ctx,
		fmt.Sprintf("SELECT value FROM %s_meta WHERE key = 'model_id'", p.table)).Scan(&recorded)
	if errors.Is(err, pgx.ErrNoRows) {
		_, err = p.pool.Exec(ctx,
			fmt.Sprintf("INSERT INTO %s_meta (key, value) VALUES ('model_id', $1)", p.table),
			p.modelID)
		if err != nil {
			return vectorstore.NewInitFailedError(storeName, err)
		}
		return nil
	}
	if err != nil {
		return vectorstore.NewInitFailedError(storeName, err)
	}
	if recorded != p.modelID {
		return vectorstore.NewModelMismatchError(storeName, recorded, p.modelID)
	}
	return nil
}

// ModelInfo returns the model identifier recorded alongside the table.
func (p *Store) ModelInfo(ctx context.Context) (vectorstore.ModelInfo, error) {
	var info vectorstore.ModelInfo
	err := p.pool.QueryRow(ctx,
		fmt.Sprintf("SELECT value FROM %s_meta WHERE key = 'model_id'", p.table)).Scan(&info.ModelID)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return vectorstore.ModelInfo{}, vectorstore.NewInitFailedError(storeName, err)
	}
	info.Dimension = p.dimension
	return info, nil
}

// Put inserts documents inside one transaction. An id collision or a
// dimension mismatch rolls the whole batch back.
func (p *Store) Put(ctx context.Context, docs []document.Document) error {
	for _, doc := range docs {
		if len(doc.Embedding) != p.dimension {
			return vectorstore.NewDimensionMismatchError(storeName, p.dimension, len(doc.Embedding))
		}
	}

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return vectorstore.NewAddFailedError(storeName, err)
	}
	defer tx.Rollback(ctx)

	insertSQL := fmt.Sprintf(`
		INSERT INTO %s
			(id, source_type, content, origin, ts, sender, sender_name, page, duration_ms, offset_ms, embedding)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, p.table)

	for _, doc := range docs {
		meta := doc.Metadata
		_, err := tx.Exec(ctx, insertSQL,
			doc.ID, string(doc.SourceType), doc.Content,
			meta.Origin, meta.Timestamp,
			meta.Sender, meta.SenderName, meta.Page, meta.DurationMS, meta.OffsetMS,
			pgv.NewVector(doc.Embedding),
		)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
				return vectorstore.NewDuplicateIDError(storeName, doc.ID)
			}
			return vectorstore.NewAddFailedError(storeName, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return vectorstore.NewAddFailedError(storeName, err)
	}
	return nil
}

// QueryNearest orders by the cosine distance operator with seq as the tie
// break, so equal distances resolve to the earlier insert.
func (p *Store) QueryNearest(ctx context.Context, vector []float32, k int) ([]vectorstore.Result, error) {
	if k < 1 {
		return nil, vectorstore.NewInvalidQueryError(storeName, fmt.Sprintf("k must be >= 1, got %d", k))
	}
	if len(vector) != p.dimension {
		return nil, vectorstore.NewInvalidQueryError(storeName,
			fmt.Sprintf("query vector has dimension %d, store expects %d", len(vector), p.dimension))
	}

	querySQL := fmt.Sprintf(`
		SELECT id, source_type, content, origin, ts, sender, sender_name, page, duration_ms, offset_ms,
			embedding, embedding <=> $1 AS distance
		FROM %s
		ORDER BY embedding <=> $1, seq
		LIMIT $2
	`, p.table)

	rows, err := p.pool.Query(ctx, querySQL, pgv.NewVector(vector), k)
	if err != nil {
		return nil, vectorstore.NewSearchFailedError(storeName, err)
	}
	defer rows.Close()

	var results []vectorstore.Result
	for rows.Next() {
		var doc document.Document
		var sourceType string
		var emb pgv.Vector
		var distance float64
		err := rows.Scan(
			&doc.ID, &sourceType, &doc.Content,
			&doc.Metadata.Origin, &doc.Metadata.Timestamp,
			&doc.Metadata.Sender, &doc.Metadata.SenderName,
			&doc.Metadata.Page, &doc.Metadata.DurationMS, &doc.Metadata.OffsetMS,
			&emb, &distance,
		)
		if err != nil {
			return nil, vectorstore.NewSearchFailedError(storeName, err)
		}
		doc.SourceType = document.SourceType(sourceType)
		doc.Embedding = emb.Slice()
		results = append(results, vectorstore.Result{
			Document: doc,
			Distance: float32(distance),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, vectorstore.NewSearchFailedError(storeName, err)
	}
	return results, nil
}

// Close closes the connection pool.
func (p *Store) Close() {
	if p.pool != nil {
		p.pool.Close()
	}
}
