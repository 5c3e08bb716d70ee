// Package style builds the site stylesheet bundle.
package style

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/afero"

	"git.home.luguber.info/inful/sitepress/internal/config"
	foundationerrors "git.home.luguber.info/inful/sitepress/internal/foundation/errors"
	"git.home.luguber.info/inful/sitepress/internal/logfields"
)

// Builder compiles stylesheets into the destination directory.
type Builder interface {
	Init(baseDir string, cfg config.StylesConfig) error
	Build(ctx context.Context) error
	Clean() error
	// Stale reports whether any input is newer than the output.
	Stale() bool
}

// Bundler concatenates the *.css files of a source directory, in lexical
// order, into a single output file.
type Bundler struct {
	fs      afero.Fs
	destDir string
	srcDir  string
	output  string
}

// NewBundler returns a bundler writing below destDir.
func NewBundler(fsys afero.Fs, destDir string) *Bundler {
	return &Bundler{fs: fsys, destDir: destDir}
}

func (b *Bundler) Init(baseDir string, cfg config.StylesConfig) error {
	b.srcDir = ""
	if cfg.Source == "" {
		return nil
	}
	if filepath.IsAbs(cfg.Source) {
		b.srcDir = cfg.Source
	} else {
		b.srcDir = filepath.Join(baseDir, cfg.Source)
	}
	if cfg.Output == "" {
		return foundationerrors.ConfigError("styles.output is required when styles.source is set").Build()
	}
	b.output = filepath.Join(b.destDir, filepath.FromSlash(cfg.Output))
	return nil
}

// Enabled reports whether a style source is configured.
func (b *Bundler) Enabled() bool { return b.srcDir != "" }

// Owns reports whether path is a style input.
func (b *Bundler) Owns(path string) bool {
	if !b.Enabled() {
		return false
	}
	rel, err := filepath.Rel(b.srcDir, path)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// OutputPath returns the bundle file path, or "" when disabled.
func (b *Bundler) OutputPath() string {
	if !b.Enabled() {
		return ""
	}
	return b.output
}

func (b *Bundler) inputs() ([]string, time.Time, error) {
	var files []string
	var newest time.Time
	if ok, err := afero.DirExists(b.fs, b.srcDir); err != nil || !ok {
		return nil, newest, err
	}
	err := afero.Walk(b.fs, b.srcDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || filepath.Ext(info.Name()) != ".css" {
			return nil
		}
		files = append(files, path)
		if info.ModTime().After(newest) {
			newest = info.ModTime()
		}
		return nil
	})
	sort.Strings(files)
	return files, newest, err
}

// Stale reports whether an input is newer than the bundle. A source
// directory without stylesheets is never stale.
func (b *Bundler) Stale() bool {
	if !b.Enabled() {
		return false
	}
	files, newest, err := b.inputs()
	if err != nil {
		return true
	}
	if len(files) == 0 {
		return false
	}
	out, err := b.fs.Stat(b.output)
	if err != nil {
		return true
	}
	return newest.After(out.ModTime())
}

func (b *Bundler) Build(ctx context.Context) error {
	if !b.Enabled() {
		return nil
	}
	files, _, err := b.inputs()
	if err != nil {
		return foundationerrors.WrapError(err, foundationerrors.CategoryFileSystem, "cannot list style sources").
			WithContext("path", b.srcDir).
			Build()
	}
	var buf bytes.Buffer
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		data, err := afero.ReadFile(b.fs, f)
		if err != nil {
			return foundationerrors.WrapError(err, foundationerrors.CategoryFileSystem, "cannot read stylesheet").
				WithContext("path", f).
				Build()
		}
		rel, _ := filepath.Rel(b.srcDir, f)
		fmt.Fprintf(&buf, "/* %s */\n", filepath.ToSlash(rel))
		buf.Write(bytes.TrimRight(data, "\n"))
		buf.WriteString("\n")
	}
	if err := b.fs.MkdirAll(filepath.Dir(b.output), 0o750); err != nil {
		return foundationerrors.WrapError(err, foundationerrors.CategoryFileSystem, "cannot create style output directory").Build()
	}
	if err := afero.WriteFile(b.fs, b.output, buf.Bytes(), 0o644); err != nil {
		return foundationerrors.WrapError(err, foundationerrors.CategoryFileSystem, "cannot write style bundle").
			WithContext("path", b.output).
			Build()
	}
	slog.Info("Styles built", logfields.Path(b.output), logfields.Count(len(files)))
	return nil
}

func (b *Bundler) Clean() error {
	if !b.Enabled() {
		return nil
	}
	if err := b.fs.Remove(b.output); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
