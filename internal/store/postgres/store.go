// Package pgstore keeps the tracking document in Postgres while preserving
// the whole-document store contract: one jsonb row, replaced atomically on
// every save. Last-writer-wins semantics match the file store.
package pgstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/ozwatch/ozwatch/internal/track"
)

const (
	schemaSQL = `CREATE TABLE IF NOT EXISTS tracking_state (
	id smallint PRIMARY KEY DEFAULT 1 CHECK (id = 1),
	doc jsonb NOT NULL,
	updated_at timestamptz NOT NULL DEFAULT now()
)`
	loadSQL = `SELECT doc FROM tracking_state WHERE id = 1`
	saveSQL = `INSERT INTO tracking_state (id, doc, updated_at) VALUES (1, $1, now())
ON CONFLICT (id) DO UPDATE SET doc = EXCLUDED.doc, updated_at = now()`
)

// DB is the subset of pgxpool.Pool the store needs; pgxmock satisfies it in
// tests.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store implements track.Store on a single jsonb row.
type Store struct {
	db     DB
	logger *zap.Logger
}

// New wraps an existing connection pool.
func New(db DB, logger *zap.Logger) *Store {
	return &Store{db: db, logger: logger}
}

// Connect opens a pool and ensures the schema exists.
func Connect(ctx context.Context, dsn string, logger *zap.Logger) (*Store, *pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("connect postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("ensure schema: %w", err)
	}
	return New(pool, logger), pool, nil
}

// Load reads the document row; a missing row is an empty document, and a
// corrupt payload is recovered as empty like the file store.
func (s *Store) Load(ctx context.Context) (track.Document, error) {
	var raw []byte
	err := s.db.QueryRow(ctx, loadSQL).Scan(&raw)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return track.NewDocument(), nil
	case err != nil:
		return track.Document{}, fmt.Errorf("load document: %w", err)
	}

	var doc track.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		s.logger.Warn("stored document corrupt, starting empty", zap.Error(err))
		return track.NewDocument(), nil
	}
	if doc.Tracks == nil {
		doc.Tracks = make(map[string]map[string]track.TrackingRecord)
	}
	doc.SchemaVersion = track.SchemaVersion
	return doc, nil
}

// Save upserts the whole document.
func (s *Store) Save(ctx context.Context, doc track.Document) error {
	doc.SchemaVersion = track.SchemaVersion
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}
	if _, err := s.db.Exec(ctx, saveSQL, data); err != nil {
		return fmt.Errorf("save document: %w", err)
	}
	return nil
}
