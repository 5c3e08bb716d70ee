package source

import (
	"context"
	"sync"
	"time"
)

// Record is the persisted form of a cache entry. Meta and Body are empty for
// files recorded as non-sources.
type Record struct {
	Path    string         `json:"path"`
	Size    int64          `json:"size"`
	ModTime time.Time      `json:"mod_time"`
	Meta    map[string]any `json:"meta,omitempty"`
	Body    string         `json:"body,omitempty"`
}

// Matches reports whether the record was taken from entry in its current state.
func (r *Record) Matches(entry *Entry) bool {
	return r.Path == entry.AbsPath && r.Size == entry.Size && r.ModTime.Equal(entry.ModTime)
}

// Store persists cache records keyed by absolute path.
// Implementations must be safe for concurrent use; the last Put wins.
type Store interface {
	Get(ctx context.Context, key string) (*Record, bool, error)
	Put(ctx context.Context, rec *Record) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]*Record
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]*Record)}
}

func (s *MemoryStore) Get(_ context.Context, key string) (*Record, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[key]
	return rec, ok, nil
}

func (s *MemoryStore) Put(_ context.Context, rec *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.Path] = rec
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, key)
	return nil
}

// Len returns the number of records held.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

func (s *MemoryStore) Close() error { return nil }
