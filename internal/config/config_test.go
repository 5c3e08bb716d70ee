package config

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	foundationerrors "git.home.luguber.info/inful/sitepress/internal/foundation/errors"
	"git.home.luguber.info/inful/sitepress/internal/logfields"
)

func TestDefault(t *testing.T) {
	cfg := Default("/site")

	assert.Equal(t, []string{"pages", "posts"}, cfg.SourceDirs)
	assert.Equal(t, []string{"assets"}, cfg.AssetDirs)
	assert.Equal(t, filepath.Join("/site", "target", "public"), cfg.DestPath())
	assert.Equal(t, 1, cfg.Threads)
	assert.Equal(t, "post", cfg.Pagination.Collection)
	assert.Equal(t, "/article/{{.year}}/{{.month}}/{{.name}}.html", cfg.PermalinkFor("post"))
	assert.Equal(t, "", cfg.PermalinkFor("page"))
	assert.True(t, cfg.ExcerptsEnabled())
	assert.Equal(t, CacheMemory, cfg.Cache.Backend)
}

func TestParseNormalizesAndKeepsRawKeys(t *testing.T) {
	cfg, err := Parse([]byte(`
title: Blog
root: blog/
date_format: ordinal
logging:
  level: DEBUG
cache:
  backend: SQLite
permalink_page: /{{.path}}/{{.name}}/
threads: -3
theme:
  color: blue
`), "/srv/site")
	require.NoError(t, err)

	assert.Equal(t, "/blog", cfg.Root)
	assert.Equal(t, "Jan 2 2006", cfg.DateFormat)
	assert.Equal(t, LogLevelDebug, cfg.Logging.Level)
	assert.Equal(t, CacheSQLite, cfg.Cache.Backend)
	assert.Equal(t, filepath.Join("target", "work", "sources.db"), cfg.Cache.Path)
	assert.Equal(t, 1, cfg.Threads)
	assert.Equal(t, "/{{.path}}/{{.name}}/", cfg.PermalinkFor("page"))
	assert.Equal(t, "blue", cfg.Get("theme.color"))
	assert.Nil(t, cfg.Get("theme.missing"))
}

func TestJavaStyleDateFormat(t *testing.T) {
	assert.Equal(t, "2006-01-02", normalizeDateFormat("yyyy-MM-dd"))
	assert.Equal(t, "Jan 2 2006", normalizeDateFormat("MMM d yyyy"))
	assert.Equal(t, "02.01.2006", normalizeDateFormat("02.01.2006"))
}

func TestValidateRejectsOverlappingDestination(t *testing.T) {
	_, err := Parse([]byte("source_dirs: [content]\ndest_dir: content/out\n"), "/srv/site")
	require.Error(t, err)
	assert.True(t, foundationerrors.HasCategory(err, foundationerrors.CategoryConfig))

	_, err = Parse([]byte("source_dirs: [public/posts]\ndest_dir: public\n"), "/srv/site")
	require.Error(t, err)
}

func TestValidateRejectsBadPatterns(t *testing.T) {
	_, err := Parse([]byte("permalink: /{{.year/\n"), "/srv/site")
	require.Error(t, err)

	_, err = Parse([]byte("pagination:\n  title_suffix_format: ' - page'\n"), "/srv/site")
	require.Error(t, err)

	_, err = Parse([]byte("cache:\n  backend: redis\n"), "/srv/site")
	require.Error(t, err)

	_, err = Parse([]byte("preview:\n  debounce: soon\n"), "/srv/site")
	require.Error(t, err)
}

func TestLoadExpandsEnvironment(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("SITEPRESS_TEST_TITLE=From Env\n"), 0o600))
	path := filepath.Join(dir, DefaultFile)
	require.NoError(t, os.WriteFile(path, []byte("title: ${SITEPRESS_TEST_TITLE}\n"), 0o600))
	t.Cleanup(func() { _ = os.Unsetenv("SITEPRESS_TEST_TITLE") })

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "From Env", cfg.Title)
	assert.Equal(t, dir, cfg.BaseDir)
	assert.Equal(t, path, cfg.File)
}

func TestLoadWarnsOnUnreadableEnvFile(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	require.NoError(t, os.Mkdir(envPath, 0o750))
	path := filepath.Join(dir, DefaultFile)
	require.NoError(t, os.WriteFile(path, []byte("title: Plain\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Plain", cfg.Title)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.SplitN(buf.Bytes(), []byte("\n"), 2)[0], &entry))
	assert.Equal(t, "Failed to load env file", entry["msg"])
	assert.Equal(t, envPath, entry[logfields.KeyPath])
	assert.NotEmpty(t, entry[logfields.KeyError])
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.True(t, foundationerrors.HasCategory(err, foundationerrors.CategoryConfig))
}

func TestInitWritesLoadableConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultFile)
	require.NoError(t, Init(path, false))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "My Site", cfg.Title)
	assert.Equal(t, CacheSQLite, cfg.Cache.Backend)

	err = Init(path, false)
	require.Error(t, err)
	assert.True(t, foundationerrors.HasCategory(err, foundationerrors.CategoryAlreadyExists))
	require.NoError(t, Init(path, true))
}

func TestCompositeApplierDomains(t *testing.T) {
	a := NewDefaultApplier()
	for _, d := range []string{"site", "paths", "content", "taxonomy", "cache", "integration"} {
		assert.NotNil(t, a.GetApplierByDomain(d), d)
	}
	assert.Nil(t, a.GetApplierByDomain("unknown"))
}
