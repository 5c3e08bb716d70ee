package gitinfo

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/sitepress/internal/config"
	"git.home.luguber.info/inful/sitepress/internal/site"
	"git.home.luguber.info/inful/sitepress/internal/source"
)

func TestGitInfo(t *testing.T) {
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "pages"), 0o750))
	file := filepath.Join(dir, "pages", "about.md")
	require.NoError(t, os.WriteFile(file, []byte("---\ntitle: About\n---\nhi"), 0o600))

	wt, err := repo.Worktree()
	require.NoError(t, err)
	_, err = wt.Add("pages/about.md")
	require.NoError(t, err)
	when := time.Date(2023, 6, 1, 12, 0, 0, 0, time.UTC)
	sig := &object.Signature{Name: "tester", Email: "tester@example.com", When: when}
	_, err = wt.Commit("add about", &git.CommitOptions{Author: sig, Committer: sig})
	require.NoError(t, err)

	cfg := config.Default(dir)
	cfg.GitInfo = true
	s := site.New(cfg)
	f := New()
	require.NoError(t, f.OnSetup(context.Background(), s))

	info, ok := s.Get(Attr).(Info)
	require.True(t, ok)
	assert.Len(t, info.Short, 7)
	assert.Equal(t, "add about", info.Message)

	entry := &source.Entry{AbsPath: file, Name: "about.md", Path: ""}
	p := &site.Page{Source: source.NewParsed(entry, source.Meta{}, "hi")}
	require.NoError(t, f.OnPageRead(context.Background(), s, p))
	assert.True(t, when.Equal(p.Updated))
}

func TestGitInfoDisabledOutsideRepository(t *testing.T) {
	cfg := config.Default(t.TempDir())
	cfg.GitInfo = true
	s := site.New(cfg)
	f := New()
	require.NoError(t, f.OnSetup(context.Background(), s))
	assert.Nil(t, s.Get(Attr))
}
