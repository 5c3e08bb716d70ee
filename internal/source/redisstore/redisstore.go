// Package redisstore keeps source cache records in Redis so several preview
// processes can share parse results.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"git.home.luguber.info/inful/sitepress/internal/source"
)

// Store is a source.Store backed by Redis string keys under a prefix.
type Store struct {
	cl     *redis.Client
	prefix string
	owned  bool
}

var _ source.Store = (*Store)(nil)

// New returns a store sharing an existing client. Close does not close cl.
func New(cl *redis.Client, prefix string) *Store {
	return &Store{cl: cl, prefix: prefix}
}

// Dial connects to addr and verifies the server is reachable.
func Dial(ctx context.Context, addr, prefix string) (*Store, error) {
	cl := redis.NewClient(&redis.Options{Addr: addr})
	if err := cl.Ping(ctx).Err(); err != nil {
		_ = cl.Close()
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}
	return &Store{cl: cl, prefix: prefix, owned: true}, nil
}

func (s *Store) key(path string) string {
	return s.prefix + path
}

func (s *Store) Get(ctx context.Context, key string) (*source.Record, bool, error) {
	val, err := s.cl.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}
	var rec source.Record
	if err := json.Unmarshal(val, &rec); err != nil {
		return nil, false, fmt.Errorf("decode record: %w", err)
	}
	return &rec, true, nil
}

func (s *Store) Put(ctx context.Context, rec *source.Record) error {
	val, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	if err := s.cl.Set(ctx, s.key(rec.Path), val, 0).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.cl.Del(ctx, s.key(key)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	if s.owned {
		return s.cl.Close()
	}
	return nil
}
