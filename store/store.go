// Package store keeps a history of extractions in SQLite.
//
// Each record is keyed by the content hash of its text within a source, so
// extracting an unchanged page twice yields the same record and reports it
// as seen.
//
// Usage:
//
//	s, err := store.Open("domselect.db", store.Config{})
//	seen, err := s.Save(ctx, &store.Record{Source: url, Hash: h, ...})
//	recent, err := s.List(ctx, url, 20)
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when no record has the requested ID.
var ErrNotFound = errors.New("store: record not found")

// Record is one stored extraction.
type Record struct {
	ID        string    `json:"id"`
	Source    string    `json:"source"` // URL or "inline"
	Mode      string    `json:"mode"`
	Title     string    `json:"title"`
	Hash      string    `json:"hash"`
	Text      string    `json:"text"`
	Markdown  string    `json:"markdown,omitempty"`
	Matches   int       `json:"matches"`
	CreatedAt time.Time `json:"created_at"`
}

const schema = `
CREATE TABLE IF NOT EXISTS extractions (
	id         TEXT PRIMARY KEY,
	source     TEXT NOT NULL,
	mode       TEXT NOT NULL,
	title      TEXT NOT NULL DEFAULT '',
	hash       TEXT NOT NULL,
	text       TEXT NOT NULL,
	markdown   TEXT NOT NULL DEFAULT '',
	matches    INTEGER NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_extractions_source_hash ON extractions(source, hash);
CREATE INDEX IF NOT EXISTS idx_extractions_created ON extractions(created_at);
`

// Config configures a Store.
type Config struct {
	// BusyTimeout is PRAGMA busy_timeout in milliseconds (default: 10000).
	BusyTimeout int

	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.BusyTimeout <= 0 {
		c.BusyTimeout = 10_000
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Store is an SQLite-backed extraction history. It is safe for concurrent use.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens (creating if needed) the database at path and applies the
// schema. ":memory:" gives a private in-memory database.
func Open(path string, cfg Config) (*Store, error) {
	cfg.defaults()
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("store: mkdir: %w", err)
		}
	}
	// DSN pragmas apply to every pooled connection. Transactions take the
	// write lock at BEGIN.
	q := url.Values{}
	q.Add("_pragma", "foreign_keys(1)")
	q.Add("_pragma", "journal_mode(WAL)")
	q.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", cfg.BusyTimeout))
	q.Add("_pragma", "synchronous(NORMAL)")
	q.Set("_txlock", "immediate")

	db, err := sql.Open("sqlite", path+"?"+q.Encode())
	if err != nil {
		return nil, fmt.Errorf("store: open: %w", err)
	}
	if path == ":memory:" {
		// Every connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: init: %w", err)
	}
	return &Store{db: db, logger: cfg.Logger}, nil
}

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

// Save records rec unless the same source already has a record with the
// same hash. In that case rec.ID and rec.CreatedAt are replaced with the
// stored ones and seen is true.
func (s *Store) Save(ctx context.Context, rec *Record) (seen bool, err error) {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	err = runTx(ctx, s.db, func(tx *sql.Tx) error {
		var id string
		var created int64
		err := tx.QueryRowContext(ctx,
			`SELECT id, created_at FROM extractions WHERE source = ? AND hash = ?`,
			rec.Source, rec.Hash).Scan(&id, &created)
		switch {
		case err == nil:
			seen = true
			rec.ID = id
			rec.CreatedAt = time.UnixMilli(created)
			return nil
		case !errors.Is(err, sql.ErrNoRows):
			return err
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO extractions (id, source, mode, title, hash, text, markdown, matches, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			rec.ID, rec.Source, rec.Mode, rec.Title, rec.Hash, rec.Text, rec.Markdown,
			rec.Matches, rec.CreatedAt.UnixMilli())
		return err
	})
	if err != nil {
		return false, fmt.Errorf("store: save: %w", err)
	}
	s.logger.DebugContext(ctx, "store: saved", "id", rec.ID, "source", rec.Source, "seen", seen)
	return seen, nil
}

const selectRecord = `SELECT id, source, mode, title, hash, text, markdown, matches, created_at FROM extractions`

// Get returns the record with the given ID.
func (s *Store) Get(ctx context.Context, id string) (*Record, error) {
	row := s.db.QueryRowContext(ctx, selectRecord+` WHERE id = ?`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("store: get: %w", err)
	}
	return rec, nil
}

// List returns the newest records first, restricted to source unless it is
// empty. limit <= 0 means 50.
func (s *Store) List(ctx context.Context, source string, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 50
	}
	query := selectRecord + ` ORDER BY created_at DESC, rowid DESC LIMIT ?`
	args := []any{limit}
	if source != "" {
		query = selectRecord + ` WHERE source = ? ORDER BY created_at DESC, rowid DESC LIMIT ?`
		args = []any{source, limit}
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: list: %w", err)
	}
	defer rows.Close()

	out := []Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("store: list: %w", err)
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(sc scanner) (*Record, error) {
	var rec Record
	var created int64
	if err := sc.Scan(&rec.ID, &rec.Source, &rec.Mode, &rec.Title, &rec.Hash,
		&rec.Text, &rec.Markdown, &rec.Matches, &created); err != nil {
		return nil, err
	}
	rec.CreatedAt = time.UnixMilli(created)
	return &rec, nil
}
