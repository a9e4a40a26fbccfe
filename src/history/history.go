// Package history journals capture flows and their per-item results in a
// local SQLite database.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS captures (
	id          TEXT PRIMARY KEY,
	started_at  INTEGER NOT NULL,
	finished_at INTEGER NOT NULL,
	stage       TEXT NOT NULL,
	status      TEXT NOT NULL,
	message     TEXT NOT NULL,
	saved       INTEGER NOT NULL DEFAULT 0,
	total       INTEGER NOT NULL DEFAULT 0,
	text_chars  INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS capture_items (
	capture_id TEXT NOT NULL REFERENCES captures(id) ON DELETE CASCADE,
	idx        INTEGER NOT NULL,
	title      TEXT NOT NULL,
	code       INTEGER NOT NULL,
	error      TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (capture_id, idx)
);
CREATE INDEX IF NOT EXISTS captures_started_at ON captures(started_at);
`

// Item is one candidate's persistence result.
type Item struct {
	Index int
	Title string
	Code  int
	Error string
}

// Entry is one finished capture flow.
type Entry struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	Stage      string
	Status     string
	Message    string
	Saved      int
	Total      int
	TextChars  int
	Items      []Item
}

type Store struct {
	db *sql.DB
}

// Open opens or creates the journal at path. ":memory:" is accepted for
// tests.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("history path is empty")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	// One writer; also keeps an in-memory database on a single connection.
	db.SetMaxOpenConns(1)
	for _, pragma := range []string{"PRAGMA foreign_keys = ON", "PRAGMA busy_timeout = 5000"} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create history schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Record stores e and its items in one transaction. An empty ID is filled
// with a fresh UUID, which is returned.
func (s *Store) Record(ctx context.Context, e Entry) (string, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO captures (id, started_at, finished_at, stage, status, message, saved, total, text_chars)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.StartedAt.UnixMilli(), e.FinishedAt.UnixMilli(), e.Stage, e.Status, e.Message, e.Saved, e.Total, e.TextChars)
	if err != nil {
		return "", fmt.Errorf("insert capture: %w", err)
	}
	for _, it := range e.Items {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO capture_items (capture_id, idx, title, code, error) VALUES (?, ?, ?, ?, ?)`,
			e.ID, it.Index, it.Title, it.Code, it.Error)
		if err != nil {
			return "", fmt.Errorf("insert item %d: %w", it.Index, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}
	return e.ID, nil
}

// Recent returns up to limit entries, newest first, with their items.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, started_at, finished_at, stage, status, message, saved, total, text_chars
		 FROM captures ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query captures: %w", err)
	}
	var out []Entry
	for rows.Next() {
		var e Entry
		var started, finished int64
		if err := rows.Scan(&e.ID, &started, &finished, &e.Stage, &e.Status, &e.Message, &e.Saved, &e.Total, &e.TextChars); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan capture: %w", err)
		}
		e.StartedAt = time.UnixMilli(started)
		e.FinishedAt = time.UnixMilli(finished)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	for i := range out {
		items, err := s.items(ctx, out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].Items = items
	}
	return out, nil
}

func (s *Store) items(ctx context.Context, id string) ([]Item, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT idx, title, code, error FROM capture_items WHERE capture_id = ? ORDER BY idx`, id)
	if err != nil {
		return nil, fmt.Errorf("query items: %w", err)
	}
	defer rows.Close()
	var items []Item
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.Index, &it.Title, &it.Code, &it.Error); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// Prune deletes entries that started before cutoff, items included, and
// reports how many were removed.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM captures WHERE started_at < ?`, cutoff.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("prune captures: %w", err)
	}
	return res.RowsAffected()
}
