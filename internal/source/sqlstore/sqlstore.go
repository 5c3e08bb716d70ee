// Package sqlstore persists source cache records in SQLite so repeated
// builds can skip parsing files that have not changed.
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"git.home.luguber.info/inful/sitepress/internal/source"
)

// DB is a SQLite database holding any number of named record stores.
type DB struct {
	db   *sql.DB
	mu   sync.RWMutex
	refs atomic.Int32
}

// Open opens or creates the database at path. Use ":memory:" for tests.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// A single connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	d := &DB{db: db}
	if err := d.initialize(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return d, nil
}

func (d *DB) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS source_records (
		store TEXT NOT NULL,
		path TEXT NOT NULL,
		size INTEGER NOT NULL,
		mod_time INTEGER NOT NULL,
		meta TEXT,
		body TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (store, path)
	);
	`
	_, err := d.db.Exec(schema)
	return err
}

// Store returns the store named name. The database is closed once every
// store obtained from it has been closed.
func (d *DB) Store(name string) *Store {
	d.refs.Add(1)
	return &Store{db: d, name: name}
}

// Close closes the database regardless of outstanding stores.
func (d *DB) Close() error {
	return d.db.Close()
}

// Store is one named record set inside a DB.
type Store struct {
	db     *DB
	name   string
	closed atomic.Bool
}

var _ source.Store = (*Store)(nil)

func (s *Store) Get(ctx context.Context, key string) (*source.Record, bool, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	var (
		rec      source.Record
		modNanos int64
		metaJSON sql.NullString
	)
	err := s.db.db.QueryRowContext(ctx,
		"SELECT path, size, mod_time, meta, body FROM source_records WHERE store = ? AND path = ?",
		s.name, key,
	).Scan(&rec.Path, &rec.Size, &modNanos, &metaJSON, &rec.Body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("query record: %w", err)
	}
	rec.ModTime = time.Unix(0, modNanos)
	if metaJSON.Valid && metaJSON.String != "" {
		if err := json.Unmarshal([]byte(metaJSON.String), &rec.Meta); err != nil {
			return nil, false, fmt.Errorf("decode meta: %w", err)
		}
	}
	return &rec, true, nil
}

func (s *Store) Put(ctx context.Context, rec *source.Record) error {
	var metaJSON sql.NullString
	if rec.Meta != nil {
		b, err := json.Marshal(rec.Meta)
		if err != nil {
			return fmt.Errorf("marshal meta: %w", err)
		}
		metaJSON = sql.NullString{String: string(b), Valid: true}
	}

	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	_, err := s.db.db.ExecContext(ctx, `
		INSERT INTO source_records (store, path, size, mod_time, meta, body) VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (store, path) DO UPDATE SET
			size = excluded.size, mod_time = excluded.mod_time, meta = excluded.meta, body = excluded.body`,
		s.name, rec.Path, rec.Size, rec.ModTime.UnixNano(), metaJSON, rec.Body,
	)
	if err != nil {
		return fmt.Errorf("upsert record: %w", err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, err := s.db.db.ExecContext(ctx, "DELETE FROM source_records WHERE store = ? AND path = ?", s.name, key); err != nil {
		return fmt.Errorf("delete record: %w", err)
	}
	return nil
}

// Close releases this store; the last one closes the database.
func (s *Store) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	if s.db.refs.Add(-1) == 0 {
		return s.db.Close()
	}
	return nil
}
