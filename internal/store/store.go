// Package store persists spaces, saved workspaces, and settings. State
// lives in a single SQLite key-value table of JSON documents keyed the way
// the panel addresses them; the scale is one user's browsing state, so
// documents are read and rewritten whole under one writer lock.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hazyhaar/homed/internal/dbopen"
	"github.com/hazyhaar/homed/internal/idgen"
)

const schema = `
CREATE TABLE IF NOT EXISTS kv (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at INTEGER NOT NULL
);`

// Storage keys.
const (
	keySpaces        = "spaces"
	keyWindowMap     = "windowIdToSpaceId"
	keyWorkspaces    = "workspaces"
	keyLastWorkspace = "lastActiveWorkspaceId"
	keySlackID       = "slackWorkspaceId"

	groupCollapsedPrefix = "groupCollapsed_"
)

// ErrNotFound reports a missing space or workspace.
var ErrNotFound = errors.New("store: not found")

// Store is the persistence layer. All space mutations are read-modify-write
// cycles over the spaces document, serialised by mu.
type Store struct {
	db     *sql.DB
	logger *slog.Logger

	newSpaceID     idgen.Generator
	newWorkspaceID idgen.Generator
	now            func() time.Time

	mu sync.Mutex
}

// Open opens (creating if needed) the state database at path.
func Open(path string, logger *slog.Logger) (*Store, error) {
	db, err := dbopen.Open(path, dbopen.WithMkdirAll(), dbopen.WithSchema(schema))
	if err != nil {
		return nil, fmt.Errorf("store: %w", err)
	}
	return New(db, logger), nil
}

// New wraps an already opened database. The kv table must exist; tests
// pass dbopen.OpenMemory with the Schema option.
func New(db *sql.DB, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		db:             db,
		logger:         logger,
		newSpaceID:     idgen.Prefixed("space_", idgen.UUIDv7()),
		newWorkspaceID: idgen.Prefixed("saved_", idgen.UUIDv7()),
		now:            time.Now,
	}
}

// Schema returns the kv table DDL for test databases.
func Schema() string { return schema }

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

// queryer is the slice of database/sql shared by *sql.DB and *sql.Tx.
// Reads run against the DB; multi-key mutations pass a transaction so a
// crash never leaves half the keys written.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// getJSON reads a key into dest. Returns false when the key is absent.
func (s *Store) getJSON(ctx context.Context, q queryer, key string, dest any) (bool, error) {
	var raw string
	err := q.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("store: get %s: %w", key, err)
	}
	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		return false, fmt.Errorf("store: decode %s: %w", key, err)
	}
	return true, nil
}

// putJSON upserts a key.
func (s *Store) putJSON(ctx context.Context, q queryer, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("store: encode %s: %w", key, err)
	}
	_, err = q.ExecContext(ctx,
		`INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, string(raw), s.now().UnixMilli())
	if err != nil {
		return fmt.Errorf("store: put %s: %w", key, err)
	}
	return nil
}

func (s *Store) deleteKey(ctx context.Context, q queryer, key string) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key); err != nil {
		return fmt.Errorf("store: delete %s: %w", key, err)
	}
	return nil
}

// runTx wraps a multi-key read-modify-write cycle in one transaction, with
// dbopen's busy retry.
func (s *Store) runTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	return dbopen.RunTx(ctx, s.db, fn)
}
