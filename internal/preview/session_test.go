package preview

import (
	"context"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/sitepress/internal/config"
)

func sessionFixture(t *testing.T) (afero.Fs, *Session) {
	t.Helper()
	return sessionFixtureWith(t, Options{})
}

func sessionFixtureWith(t *testing.T, opts Options, extra ...[2]string) (afero.Fs, *Session) {
	t.Helper()
	fs := afero.NewMemMapFs()
	files := [][2]string{
		{"/site/sitepress.yaml", "title: First\n"},
		{"/site/posts/2024-03-01-hello.md", "---\ntitle: Hello\nlayout: post\n---\nHello\n"},
		{"/site/templates/post.html", "<h1>{{.page.title}}</h1>{{.content}}"},
		{"/site/assets/logo.txt", "logo"},
	}
	for _, f := range append(files, extra...) {
		require.NoError(t, afero.WriteFile(fs, f[0], []byte(f[1]), 0o644))
	}
	cfg := config.Default("/site")
	cfg.File = "/site/sitepress.yaml"
	s, err := NewSession(fs, cfg, opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Rebuild(context.Background()))
	return fs, s
}

func TestSessionHandlesStaticChanges(t *testing.T) {
	fs, s := sessionFixture(t)
	ctx := context.Background()

	ok, err := afero.Exists(fs, "/site/target/public/logo.txt")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, afero.WriteFile(fs, "/site/assets/img/new.txt", []byte("new"), 0o644))
	assert.Equal(t, ActionCopyStatic, s.Classifier().Handle(ctx, "/site/assets/img/new.txt"))
	data, err := afero.ReadFile(fs, "/site/target/public/img/new.txt")
	require.NoError(t, err)
	assert.Equal(t, "new", string(data))

	require.NoError(t, fs.Remove("/site/assets/logo.txt"))
	assert.Equal(t, ActionCopyStatic, s.Classifier().Handle(ctx, "/site/assets/logo.txt"))
	ok, err = afero.Exists(fs, "/site/target/public/logo.txt")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 0, s.Classifier().Status().Failed)
}

func TestSessionRebuildsOnContentChange(t *testing.T) {
	fs, s := sessionFixture(t)
	require.NoError(t, afero.WriteFile(fs, "/site/posts/2024-03-01-hello.md",
		[]byte("---\ntitle: Hello again\nlayout: post\n---\nHello\n"), 0o644))

	assert.Equal(t, ActionRebuild, s.Classifier().Handle(context.Background(), "/site/posts/2024-03-01-hello.md"))
	data, err := afero.ReadFile(fs, "/site/target/public/article/2024/03/hello.html")
	require.NoError(t, err)
	assert.Contains(t, string(data), "<h1>Hello again</h1>")
}

func TestSessionReloadConfig(t *testing.T) {
	_, s := sessionFixture(t)
	s.load = func(path string) (*config.Config, error) {
		cfg := config.Default("/site")
		cfg.File = path
		cfg.Title = "Second"
		return cfg, nil
	}

	assert.Equal(t, ActionReloadConfig, s.Classifier().Handle(context.Background(), "/site/sitepress.yaml"))
	require.NotNil(t, s.Site())
	assert.Equal(t, "Second", s.Site().Config.Title)
	assert.Empty(t, s.Classifier().Status().LastError)
}

func TestSessionReloadKeepsDraftOverride(t *testing.T) {
	fs, s := sessionFixtureWith(t, Options{ShowDrafts: true},
		[2]string{"/site/posts/2024-03-02-wip.md", "---\ntitle: WIP\nlayout: post\npublished: false\n---\nsoon\n"})
	draft := "/site/target/public/article/2024/03/wip.html"
	ok, err := afero.Exists(fs, draft)
	require.NoError(t, err)
	require.True(t, ok)

	s.load = func(path string) (*config.Config, error) {
		cfg := config.Default("/site")
		cfg.File = path
		return cfg, nil
	}
	assert.Equal(t, ActionReloadConfig, s.Classifier().Handle(context.Background(), "/site/sitepress.yaml"))

	assert.True(t, s.config().ShowDrafts)
	require.NotNil(t, s.Site())
	assert.True(t, s.Site().Config.ShowDrafts)
	ok, err = afero.Exists(fs, draft)
	require.NoError(t, err)
	assert.True(t, ok)
}

func httpStatus(addr, path string) int {
	resp, err := http.Get("http://" + addr + path)
	if err != nil {
		return 0
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode
}

func TestSessionRunRestartsServerOnReload(t *testing.T) {
	fs, s := sessionFixtureWith(t, Options{Listen: "127.0.0.1:0", Poll: 20 * time.Millisecond})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool { return s.Addr() != "" }, 5*time.Second, 10*time.Millisecond)
	page := "/article/2024/03/hello.html"
	assert.Equal(t, http.StatusOK, httpStatus(s.Addr(), page))

	s.load = func(path string) (*config.Config, error) {
		cfg := config.Default("/site")
		cfg.File = path
		cfg.DestDir = "out"
		return cfg, nil
	}
	assert.Equal(t, ActionReloadConfig, s.Classifier().Handle(ctx, "/site/sitepress.yaml"))
	ok, err := afero.Exists(fs, "/site/out"+page)
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, fs.RemoveAll("/site/target/public"))

	require.Eventually(t, func() bool {
		addr := s.Addr()
		return addr != "" && httpStatus(addr, page) == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop")
	}
	assert.Empty(t, s.Addr())
}

func TestSessionWatchRoots(t *testing.T) {
	_, s := sessionFixture(t)
	assert.Equal(t, []string{
		"/site/pages", "/site/posts", "/site/assets", "/site/templates", "/site/sitepress.yaml",
	}, s.watchRoots())
}
