package source

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	foundationerrors "git.home.luguber.info/inful/sitepress/internal/foundation/errors"
)

func writeFile(t *testing.T, fs afero.Fs, path, content string, mtime time.Time) {
	t.Helper()
	require.NoError(t, afero.WriteFile(fs, path, []byte(content), 0o644))
	require.NoError(t, fs.Chtimes(path, mtime, mtime))
}

func entryFor(t *testing.T, fs afero.Fs, root, rel string) *Entry {
	t.Helper()
	e, err := NewEntry(fs, root, rel, nil)
	require.NoError(t, err)
	return e
}

// countingParser counts how many times the wrapped parser touches disk.
type countingParser struct {
	inner Parser
	calls atomic.Int32
}

func (p *countingParser) Parse(entry *Entry) (Source, error) {
	p.calls.Add(1)
	return p.inner.Parse(entry)
}

func TestFileParserBOM(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/site/pages/hello.md", "\ufeff---\ntitle: Hello\n---\nHi", time.Now())

	src, err := NewFileParser(fs).Parse(entryFor(t, fs, "/site/pages", "hello.md"))
	require.NoError(t, err)
	assert.Equal(t, "Hello", src.Meta().String("title"))
	assert.Equal(t, "Hi", src.Body())
}

func TestFileParserClassifiesStaticFiles(t *testing.T) {
	fs := afero.NewMemMapFs()
	now := time.Now()
	writeFile(t, fs, "/s/plain.txt", "plain text", now)
	writeFile(t, fs, "/s/open.md", "---\ntitle: oops\nbody without close\n", now)

	p := NewFileParser(fs)
	_, err := p.Parse(entryFor(t, fs, "/s", "plain.txt"))
	require.ErrorIs(t, err, ErrNotAContentSource)
	_, err = p.Parse(entryFor(t, fs, "/s", "open.md"))
	require.ErrorIs(t, err, ErrNotAContentSource)
}

func TestFileParserRejectsInvalidYAML(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/s/bad.md", "---\ntitle: [unclosed\n---\nbody", time.Now())

	_, err := NewFileParser(fs).Parse(entryFor(t, fs, "/s", "bad.md"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotAContentSource)
	assert.True(t, foundationerrors.HasCategory(err, foundationerrors.CategorySource))
}

func TestCacheIdempotence(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/s/a.md", "---\ntitle: A\n---\nbody", time.Now())
	parser := &countingParser{inner: NewFileParser(fs)}
	cache := NewMemoryCache(parser)
	ctx := context.Background()

	first, err := cache.Resolve(ctx, entryFor(t, fs, "/s", "a.md"))
	require.NoError(t, err)
	second, err := cache.Resolve(ctx, entryFor(t, fs, "/s", "a.md"))
	require.NoError(t, err)

	assert.Equal(t, int32(1), parser.calls.Load())
	assert.IsType(t, &CachedSource{}, second)
	fp1, err := Fingerprint(first)
	require.NoError(t, err)
	fp2, err := Fingerprint(second)
	require.NoError(t, err)
	assert.Equal(t, fp1, fp2)

	hits, misses := cache.Stats()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(1), misses)
}

func TestCacheNonSourceShortCircuit(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/s/plain.txt", "plain text", time.Now())
	parser := &countingParser{inner: NewFileParser(fs)}
	cache := NewMemoryCache(parser)
	ctx := context.Background()

	for range 2 {
		_, err := cache.Resolve(ctx, entryFor(t, fs, "/s", "plain.txt"))
		require.ErrorIs(t, err, ErrNotAContentSource)
	}
	assert.Equal(t, int32(1), parser.calls.Load())
}

func TestCacheStaleness(t *testing.T) {
	fs := afero.NewMemMapFs()
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	writeFile(t, fs, "/s/a.md", "---\ntitle: A\n---\nold", t0)
	parser := &countingParser{inner: NewFileParser(fs)}
	cache := NewMemoryCache(parser)
	ctx := context.Background()

	_, err := cache.Resolve(ctx, entryFor(t, fs, "/s", "a.md"))
	require.NoError(t, err)
	view, err := cache.Resolve(ctx, entryFor(t, fs, "/s", "a.md"))
	require.NoError(t, err)

	writeFile(t, fs, "/s/a.md", "---\ntitle: B\n---\nnew content", t0.Add(time.Minute))
	src, err := cache.Resolve(ctx, entryFor(t, fs, "/s", "a.md"))
	require.NoError(t, err)

	assert.Equal(t, int32(2), parser.calls.Load())
	assert.Equal(t, "new content", src.Body())
	assert.Equal(t, "B", src.Meta().String("title"))
	// Views read live cache state.
	assert.Equal(t, "new content", view.Body())
}

func TestCacheSourceBecomesStatic(t *testing.T) {
	fs := afero.NewMemMapFs()
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	writeFile(t, fs, "/s/a.md", "---\ntitle: A\n---\nbody", t0)
	cache := NewMemoryCache(NewFileParser(fs))
	ctx := context.Background()

	_, err := cache.Resolve(ctx, entryFor(t, fs, "/s", "a.md"))
	require.NoError(t, err)
	writeFile(t, fs, "/s/a.md", "no header any more", t0.Add(time.Second))
	_, err = cache.Resolve(ctx, entryFor(t, fs, "/s", "a.md"))
	require.ErrorIs(t, err, ErrNotAContentSource)

	_, ok, err := cache.sources.Get(ctx, "/s/a.md")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCacheConcurrentResolve(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/s/a.md", "---\ntitle: A\n---\nbody", time.Now())
	cache := NewMemoryCache(NewFileParser(fs))
	entry := entryFor(t, fs, "/s", "a.md")

	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			src, err := cache.Resolve(context.Background(), entry)
			assert.NoError(t, err)
			assert.Equal(t, "body", src.Body())
		}()
	}
	wg.Wait()
}

func TestFingerprintIgnoresVolatileKeys(t *testing.T) {
	a, err := FingerprintParts(map[string]any{"title": "A", "lastmod": "2024-01-01"}, "body")
	require.NoError(t, err)
	b, err := FingerprintParts(map[string]any{"title": "A", "lastmod": "2025-02-02"}, "body")
	require.NoError(t, err)
	c, err := FingerprintParts(map[string]any{"title": "A"}, "other body")
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestEntryPaths(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/s/a/b/2024-01-02-hello.md", "x", time.Now())

	e := entryFor(t, fs, "/s", "a/b/2024-01-02-hello.md")
	assert.Equal(t, "/a/b", e.Path)
	assert.Equal(t, "/a/b/2024-01-02-hello.md", e.RelPath())
	assert.Equal(t, ".md", e.Ext())
	assert.Equal(t, "2024-01-02-hello", e.BaseName())

	top := entryFor(t, fs, "/s/a/b", "2024-01-02-hello.md")
	assert.Equal(t, "", top.Path)
	assert.True(t, e.SameAs(entryFor(t, fs, "/s", "a/b/2024-01-02-hello.md")))
}
