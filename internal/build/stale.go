package build

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/afero"

	"git.home.luguber.info/inful/sitepress/internal/source"
)

// MarkerFile is the name of the last-build marker inside the work directory.
// Its modification time is the start time of the last successful build.
const MarkerFile = ".last-build"

type marker struct {
	// Files counts the source and template files seen by the build, so
	// deletions are detected even though they leave no newer mtime behind.
	Files int `json:"files"`
	// Assets counts the files in the asset directories.
	Assets int `json:"assets"`
}

type changeSet struct {
	content bool
	reason  string
	assets  []*source.Entry
}

func (b *Builder) markerPath() string {
	return filepath.Join(b.cfg.WorkPath(), MarkerFile)
}

// contentEntries lists source and template files.
func (b *Builder) contentEntries() ([]*source.Entry, error) {
	return b.walkDirs(append(b.cfg.SourcePaths(), b.cfg.TemplatePath()))
}

func (b *Builder) writeMarker(start time.Time) error {
	entries, err := b.contentEntries()
	if err != nil {
		return err
	}
	assets, err := b.walkDirs(b.cfg.AssetPaths())
	if err != nil {
		return err
	}
	data, err := json.Marshal(marker{Files: len(entries), Assets: len(assets)})
	if err != nil {
		return err
	}
	if err := b.fs.MkdirAll(b.cfg.WorkPath(), 0o750); err != nil {
		return err
	}
	if err := afero.WriteFile(b.fs, b.markerPath(), data, 0o644); err != nil {
		return err
	}
	return b.fs.Chtimes(b.markerPath(), start, start)
}

// detectChanges compares the tree against the last-build marker.
func (b *Builder) detectChanges() (changeSet, error) {
	info, err := b.fs.Stat(b.markerPath())
	if errors.Is(err, os.ErrNotExist) {
		return changeSet{content: true, reason: "no_previous_build"}, nil
	}
	if err != nil {
		return changeSet{}, err
	}
	since := info.ModTime()

	if exists, err := afero.DirExists(b.fs, b.cfg.DestPath()); err != nil || !exists {
		return changeSet{content: true, reason: "missing_output"}, nil
	}

	var prev marker
	data, err := afero.ReadFile(b.fs, b.markerPath())
	if err != nil {
		return changeSet{}, err
	}
	if err := json.Unmarshal(data, &prev); err != nil {
		return changeSet{content: true, reason: "invalid_marker"}, nil
	}

	if b.cfg.File != "" {
		if ci, err := b.fs.Stat(b.cfg.File); err == nil && ci.ModTime().After(since) {
			return changeSet{content: true, reason: "config_changed"}, nil
		}
	}

	entries, err := b.contentEntries()
	if err != nil {
		return changeSet{}, err
	}
	if len(entries) != prev.Files {
		return changeSet{content: true, reason: "files_added_or_removed"}, nil
	}
	for _, e := range entries {
		if e.ModTime.After(since) {
			return changeSet{content: true, reason: "content_changed"}, nil
		}
	}

	assets, err := b.walkDirs(b.cfg.AssetPaths())
	if err != nil {
		return changeSet{}, err
	}
	if len(assets) != prev.Assets {
		return changeSet{content: true, reason: "assets_added_or_removed"}, nil
	}
	var changed []*source.Entry
	for _, e := range assets {
		if e.ModTime.After(since) {
			changed = append(changed, e)
		}
	}
	return changeSet{assets: changed}, nil
}
