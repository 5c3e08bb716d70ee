package preview

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pathLog struct {
	mu    sync.Mutex
	paths []string
}

func (l *pathLog) handle(_ context.Context, path string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.paths = append(l.paths, path)
}

func (l *pathLog) snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.paths...)
}

func TestWatcherDebouncesPerPath(t *testing.T) {
	dir := t.TempDir()
	posts := filepath.Join(dir, "posts")
	require.NoError(t, os.MkdirAll(filepath.Join(posts, "nested"), 0o750))

	log := &pathLog{}
	w, err := NewWatcher([]string{posts, filepath.Join(dir, "missing")}, 50*time.Millisecond, log.handle)
	require.NoError(t, err)
	defer func() { _ = w.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Run(ctx) }()

	target := filepath.Join(posts, "nested", "a.md")
	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(target, []byte{byte('a' + i)}, 0o600))
	}

	require.Eventually(t, func() bool { return len(log.snapshot()) > 0 }, 5*time.Second, 10*time.Millisecond)
	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, []string{target}, log.snapshot())
}

func TestWatcherFollowsNewDirectories(t *testing.T) {
	dir := t.TempDir()
	assets := filepath.Join(dir, "assets")
	require.NoError(t, os.MkdirAll(assets, 0o750))

	log := &pathLog{}
	w, err := NewWatcher([]string{assets}, 20*time.Millisecond, log.handle)
	require.NoError(t, err)
	defer func() { _ = w.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Run(ctx) }()

	sub := filepath.Join(assets, "img")
	require.NoError(t, os.Mkdir(sub, 0o750))
	file := filepath.Join(sub, "logo.png")
	require.Eventually(t, func() bool {
		_ = os.WriteFile(file, []byte("png"), 0o600)
		for _, p := range log.snapshot() {
			if p == file {
				return true
			}
		}
		return false
	}, 5*time.Second, 50*time.Millisecond)
}

func TestWatcherFiltersConfigDirectory(t *testing.T) {
	dir := t.TempDir()
	posts := filepath.Join(dir, "posts")
	require.NoError(t, os.MkdirAll(posts, 0o750))
	cfgPath := filepath.Join(dir, "sitepress.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("title: A\n"), 0o600))

	log := &pathLog{}
	w, err := NewWatcher([]string{posts, cfgPath}, 20*time.Millisecond, log.handle)
	require.NoError(t, err)
	defer func() { _ = w.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Run(ctx) }()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("notes"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("A=1"), 0o600))
	require.NoError(t, os.WriteFile(cfgPath, []byte("title: B\n"), 0o600))

	require.Eventually(t, func() bool { return len(log.snapshot()) > 0 }, 5*time.Second, 10*time.Millisecond)
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, []string{cfgPath}, log.snapshot())
}
