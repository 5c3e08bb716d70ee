package build

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"git.home.luguber.info/inful/sitepress/internal/config"
	foundationerrors "git.home.luguber.info/inful/sitepress/internal/foundation/errors"
	"git.home.luguber.info/inful/sitepress/internal/logfields"
	"git.home.luguber.info/inful/sitepress/internal/source"
	"git.home.luguber.info/inful/sitepress/internal/source/redisstore"
	"git.home.luguber.info/inful/sitepress/internal/source/sqlstore"
)

// OpenCache returns the source cache selected by cfg.Cache.Backend.
func OpenCache(ctx context.Context, cfg *config.Config, parser source.Parser) (*source.Cache, error) {
	switch cfg.Cache.Backend {
	case config.CacheSQLite:
		path := cfg.Resolve(cfg.Cache.Path)
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return nil, foundationerrors.WrapError(err, foundationerrors.CategoryFileSystem, "create cache directory").
				WithContext("path", path).
				Build()
		}
		db, err := sqlstore.Open(path)
		if err != nil {
			return nil, foundationerrors.WrapError(err, foundationerrors.CategoryCache, "open sqlite source cache").
				WithContext("path", path).
				Build()
		}
		slog.Debug("Source cache opened", logfields.Backend(string(config.CacheSQLite)), logfields.Path(path))
		return source.NewCache(parser, db.Store("sources"), db.Store("non_sources")), nil

	case config.CacheRedis:
		sources, err := redisstore.Dial(ctx, cfg.Cache.RedisAddr, cfg.Cache.RedisPrefix+"sources:")
		if err != nil {
			return nil, foundationerrors.WrapError(err, foundationerrors.CategoryCache, "connect redis source cache").
				WithContext("addr", cfg.Cache.RedisAddr).
				Retryable().
				Build()
		}
		nonSources, err := redisstore.Dial(ctx, cfg.Cache.RedisAddr, cfg.Cache.RedisPrefix+"non_sources:")
		if err != nil {
			_ = sources.Close()
			return nil, foundationerrors.WrapError(err, foundationerrors.CategoryCache, "connect redis source cache").
				WithContext("addr", cfg.Cache.RedisAddr).
				Retryable().
				Build()
		}
		slog.Debug("Source cache opened", logfields.Backend(string(config.CacheRedis)))
		return source.NewCache(parser, sources, nonSources), nil

	default:
		return source.NewMemoryCache(parser), nil
	}
}
