package storage

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// DB is the subset of *sql.DB used by Index, so callers can wrap it.
type DB interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

//go:embed schema.sql
var schemaSQL string

// IndexFile is the index database name inside the sessions directory.
const IndexFile = "index.db"

// schemaVersion is stored in PRAGMA user_version once the schema is applied.
const schemaVersion = 1

// Index is a sqlite listing cache over the session directories. The
// directories stay authoritative; the index only orders ids for listing.
type Index struct {
	db      DB
	close   func() error
	created bool
}

// NewIndex migrates db to the current schema. The caller owns db.
func NewIndex(ctx context.Context, db DB) (*Index, error) {
	version, err := userVersion(ctx, db)
	if err != nil {
		return nil, err
	}
	if version > schemaVersion {
		return nil, fmt.Errorf("index schema version %d is newer than supported version %d", version, schemaVersion)
	}
	created := version == 0
	if version < schemaVersion {
		if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
			return nil, fmt.Errorf("failed to initialize index schema: %w", err)
		}
		if _, err := db.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", schemaVersion)); err != nil {
			return nil, fmt.Errorf("set index schema version: %w", err)
		}
	}
	return &Index{db: db, close: func() error { return nil }, created: created}, nil
}

func userVersion(ctx context.Context, db DB) (int, error) {
	rows, err := db.QueryContext(ctx, "PRAGMA user_version")
	if err != nil {
		return 0, fmt.Errorf("read index schema version: %w", err)
	}
	defer rows.Close()
	var v int
	if rows.Next() {
		if err := rows.Scan(&v); err != nil {
			return 0, fmt.Errorf("scan index schema version: %w", err)
		}
	}
	return v, rows.Err()
}

// OpenIndex opens (creating if needed) the sqlite database at path.
func OpenIndex(ctx context.Context, path string) (*Index, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create index dir: %w", err)
	}
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}
	idx, err := NewIndex(ctx, db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	idx.close = db.Close
	return idx, nil
}

// Created reports whether the schema was created by this open, so the index
// has not seen any session yet.
func (i *Index) Created() bool { return i.created }

// Close releases the database if OpenIndex opened it.
func (i *Index) Close() error { return i.close() }

const upsertSQL = `INSERT INTO sessions (id, created_at, updated_at, status, model, mode)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET updated_at = excluded.updated_at, status = excluded.status`

// Upsert records meta, updating the status of an existing row.
func (i *Index) Upsert(ctx context.Context, meta *SessionMeta) error {
	_, err := i.db.ExecContext(ctx, upsertSQL,
		meta.ID,
		meta.CreatedAt.UnixNano(),
		meta.UpdatedAt.UnixNano(),
		string(meta.Status),
		meta.Model,
		string(meta.Mode),
	)
	if err != nil {
		return fmt.Errorf("upsert session %s: %w", meta.ID, err)
	}
	return nil
}

// Delete removes id from the index.
func (i *Index) Delete(ctx context.Context, id string) error {
	if _, err := i.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete session %s: %w", id, err)
	}
	return nil
}

// IDs returns all indexed session ids, newest first.
func (i *Index) IDs(ctx context.Context) ([]string, error) {
	rows, err := i.db.QueryContext(ctx, `SELECT id FROM sessions ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan session id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Rebuild replaces the index content with metas in one transaction.
func (i *Index) Rebuild(ctx context.Context, metas []SessionMeta) (err error) {
	tx, err := i.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin rebuild: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM sessions`); err != nil {
		return fmt.Errorf("clear index: %w", err)
	}
	for _, m := range metas {
		if _, err = tx.ExecContext(ctx, upsertSQL,
			m.ID, m.CreatedAt.UnixNano(), m.UpdatedAt.UnixNano(),
			string(m.Status), m.Model, string(m.Mode)); err != nil {
			return fmt.Errorf("index session %s: %w", m.ID, err)
		}
	}
	return tx.Commit()
}
