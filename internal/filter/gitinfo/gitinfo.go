// Package gitinfo exposes git metadata of the site repository to templates
// and derives page update times from commit history.
package gitinfo

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"

	"git.home.luguber.info/inful/sitepress/internal/logfields"
	"git.home.luguber.info/inful/sitepress/internal/plugin"
	"git.home.luguber.info/inful/sitepress/internal/site"
)

const (
	Priority = 50
	// Attr is the site attribute holding Info.
	Attr = "git"
)

// Info describes the checked out commit.
type Info struct {
	Hash    string
	Short   string
	Date    time.Time
	Message string
}

// Filter is active when git_info is enabled and the site lives in a git
// work tree.
type Filter struct {
	plugin.Base

	mu   sync.Mutex
	repo *git.Repository
	root string
}

func New() *Filter {
	return &Filter{Base: plugin.Base{ID: "git-info", Order: Priority}}
}

func (f *Filter) OnSetup(_ context.Context, s *site.Site) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.repo = nil
	if !s.Config.GitInfo {
		return nil
	}

	repo, err := git.PlainOpenWithOptions(s.Config.BaseDir, &git.PlainOpenOptions{DetectDotGit: true})
	if errors.Is(err, git.ErrRepositoryNotExists) {
		slog.Warn("git_info enabled but site is not in a git repository", logfields.Path(s.Config.BaseDir))
		return nil
	}
	if err != nil {
		return err
	}
	wt, err := repo.Worktree()
	if err != nil {
		return err
	}
	head, err := repo.Head()
	if err != nil {
		// Empty repository.
		slog.Debug("git HEAD unavailable", logfields.Error(err))
		return nil
	}
	commit, err := repo.CommitObject(head.Hash())
	if err != nil {
		return err
	}

	f.repo = repo
	f.root = wt.Filesystem.Root()
	hash := head.Hash().String()
	s.Set(Attr, Info{Hash: hash, Short: hash[:7], Date: commit.Committer.When, Message: commit.Message})
	return nil
}

func (f *Filter) OnPageRead(_ context.Context, _ *site.Site, p *site.Page) error {
	if p.Source == nil || !p.Updated.IsZero() {
		return nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.repo == nil {
		return nil
	}
	when, ok := f.lastCommit(p.Source.Entry().AbsPath)
	if ok {
		p.Updated = when
	}
	return nil
}

func (f *Filter) lastCommit(abs string) (time.Time, bool) {
	rel, err := filepath.Rel(f.root, abs)
	if err != nil {
		return time.Time{}, false
	}
	rel = filepath.ToSlash(rel)
	iter, err := f.repo.Log(&git.LogOptions{FileName: &rel, Order: git.LogOrderCommitterTime})
	if err != nil {
		return time.Time{}, false
	}
	defer iter.Close()
	commit, err := iter.Next()
	if err != nil {
		return time.Time{}, false
	}
	return commitTime(commit), true
}

func commitTime(c *object.Commit) time.Time { return c.Committer.When }
