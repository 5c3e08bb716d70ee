package source

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"git.home.luguber.info/inful/sitepress/internal/logfields"
)

// LookupRecorder receives one call per Resolve.
type LookupRecorder interface {
	ObserveCacheLookup(hit bool)
}

// Cache resolves entries to sources, re-parsing only files whose
// (path, size, mtime) fingerprint changed since they were last seen.
type Cache struct {
	parser     Parser
	sources    Store
	nonSources Store
	recorder   LookupRecorder

	hits   atomic.Int64
	misses atomic.Int64
}

// NewCache wires a parser to the two record stores.
func NewCache(parser Parser, sources, nonSources Store) *Cache {
	return &Cache{parser: parser, sources: sources, nonSources: nonSources}
}

// NewMemoryCache returns a cache backed by in-memory stores.
func NewMemoryCache(parser Parser) *Cache {
	return NewCache(parser, NewMemoryStore(), NewMemoryStore())
}

// WithRecorder attaches a lookup recorder and returns c.
func (c *Cache) WithRecorder(r LookupRecorder) *Cache {
	c.recorder = r
	return c
}

// Resolve returns the source for entry.
//
// A file previously classified as a non-source with the same fingerprint
// returns ErrNotAContentSource without reading the file. A cached source with
// the same fingerprint is returned as a *CachedSource view. Otherwise the file
// is parsed and both stores are updated.
func (c *Cache) Resolve(ctx context.Context, entry *Entry) (Source, error) {
	key := entry.AbsPath

	if rec, ok := c.lookup(ctx, c.nonSources, key); ok && rec.Matches(entry) {
		c.observe(true)
		return nil, fmt.Errorf("%w: %s", ErrNotAContentSource, key)
	}
	if rec, ok := c.lookup(ctx, c.sources, key); ok && rec.Matches(entry) {
		c.observe(true)
		return &CachedSource{cache: c, key: key, entry: entry}, nil
	}
	c.observe(false)

	src, err := c.parser.Parse(entry)
	if errors.Is(err, ErrNotAContentSource) {
		c.store(ctx, c.nonSources, entry.record())
		c.remove(ctx, c.sources, key)
		return nil, err
	}
	if err != nil {
		return nil, err
	}

	rec := entry.record()
	rec.Meta = src.Meta()
	rec.Body = src.Body()
	c.store(ctx, c.sources, rec)
	c.remove(ctx, c.nonSources, key)
	return src, nil
}

// Forget drops any record for path from both stores.
func (c *Cache) Forget(ctx context.Context, path string) {
	c.remove(ctx, c.sources, path)
	c.remove(ctx, c.nonSources, path)
}

// Stats returns the hit and miss counters.
func (c *Cache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// Close releases the underlying stores.
func (c *Cache) Close() error {
	return errors.Join(c.sources.Close(), c.nonSources.Close())
}

func (c *Cache) observe(hit bool) {
	if hit {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	if c.recorder != nil {
		c.recorder.ObserveCacheLookup(hit)
	}
}

// Store failures degrade to a cache miss; they never fail a build.
func (c *Cache) lookup(ctx context.Context, s Store, key string) (*Record, bool) {
	rec, ok, err := s.Get(ctx, key)
	if err != nil {
		slog.Warn("Source cache lookup failed", logfields.Path(key), logfields.Error(err))
		return nil, false
	}
	return rec, ok
}

func (c *Cache) store(ctx context.Context, s Store, rec *Record) {
	if err := s.Put(ctx, rec); err != nil {
		slog.Warn("Source cache write failed", logfields.Path(rec.Path), logfields.Error(err))
	}
}

func (c *Cache) remove(ctx context.Context, s Store, key string) {
	if err := s.Delete(ctx, key); err != nil {
		slog.Warn("Source cache delete failed", logfields.Path(key), logfields.Error(err))
	}
}

// CachedSource is a live view onto a cached record. Each accessor reads the
// current store state, so a later re-parse of the same path is visible.
type CachedSource struct {
	cache *Cache
	key   string
	entry *Entry
}

func (s *CachedSource) record() *Record {
	rec, ok := s.cache.lookup(context.Background(), s.cache.sources, s.key)
	if !ok {
		return nil
	}
	return rec
}

// Entry returns the entry the view was resolved for.
func (s *CachedSource) Entry() *Entry { return s.entry }

func (s *CachedSource) Meta() Meta {
	if rec := s.record(); rec != nil && rec.Meta != nil {
		return Meta(rec.Meta)
	}
	return Meta{}
}

func (s *CachedSource) Body() string {
	if rec := s.record(); rec != nil {
		return rec.Body
	}
	return ""
}
