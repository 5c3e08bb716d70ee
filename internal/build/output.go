package build

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	foundationerrors "git.home.luguber.info/inful/sitepress/internal/foundation/errors"
	"git.home.luguber.info/inful/sitepress/internal/logfields"
	"git.home.luguber.info/inful/sitepress/internal/render"
	"git.home.luguber.info/inful/sitepress/internal/site"
	"git.home.luguber.info/inful/sitepress/internal/source"
	"git.home.luguber.info/inful/sitepress/internal/task"
)

func (b *Builder) stageConvert(ctx context.Context, bs *buildState) error {
	s := bs.site
	_, err := task.Map(ctx, b.exec, s.Pages(), func(ctx context.Context, p *site.Page) (struct{}, error) {
		return struct{}{}, b.convertPage(ctx, s, p)
	})
	if err != nil {
		return err
	}
	return b.pipeline.Convert(ctx, s)
}

func (b *Builder) convertPage(ctx context.Context, s *site.Site, p *site.Page) error {
	if !p.Converted && p.Source != nil {
		conv, err := b.registry.Converter(p.Source)
		if err != nil {
			return foundationerrors.WrapError(err, foundationerrors.CategorySource, "no converter for source").
				WithContext("url", p.URL).
				Build()
		}
		out, err := conv.Convert(p.Content)
		if err != nil {
			return foundationerrors.WrapError(err, foundationerrors.CategoryBuild, "conversion failed").
				WithContext("url", p.URL).
				WithContext("converter", conv.Name()).
				Build()
		}
		p.Content = out
	}
	p.Converted = true
	return b.pipeline.PageConvert(ctx, s, p)
}

// stageRender renders every page against one site model. Templates may read
// other pages, so all pages are rendered before any content is replaced.
func (b *Builder) stageRender(ctx context.Context, bs *buildState) error {
	s := bs.site
	if err := b.pipeline.PreRender(ctx, s); err != nil {
		return err
	}
	model := s.Model()
	pages := s.Pages()
	rendered, err := task.Map(ctx, b.exec, pages, func(_ context.Context, p *site.Page) (string, error) {
		return render.RenderPage(b.renderer, model, p)
	})
	if err != nil {
		return err
	}
	for i, p := range pages {
		p.Content = rendered[i]
	}
	_, err = task.Map(ctx, b.exec, pages, func(ctx context.Context, p *site.Page) (struct{}, error) {
		return struct{}{}, b.pipeline.PageRender(ctx, s, p)
	})
	if err != nil {
		return err
	}
	return b.pipeline.Render(ctx, s)
}

// stageCleanup computes the output set and lists every file in the
// destination directory that is not part of it. The files are removed by
// the write stage once everything else has been written.
func (b *Builder) stageCleanup(ctx context.Context, bs *buildState) error {
	if err := b.collectOutputs(bs); err != nil {
		return err
	}
	dest := b.cfg.DestPath()
	exists, err := afero.DirExists(b.fs, dest)
	if err != nil || !exists {
		return b.pipeline.Cleanup(ctx, bs.site)
	}

	err = afero.Walk(b.fs, dest, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dest, p)
		if err != nil {
			return err
		}
		if _, ok := bs.outputs[filepath.ToSlash(rel)]; !ok {
			bs.orphans = append(bs.orphans, p)
		}
		return nil
	})
	if err != nil {
		return foundationerrors.WrapError(err, foundationerrors.CategoryFileSystem, "cannot scan destination directory").
			WithContext("path", dest).
			Build()
	}
	return b.pipeline.Cleanup(ctx, bs.site)
}

func (b *Builder) removeOrphans(ctx context.Context, bs *buildState) error {
	_, err := task.Map(ctx, b.exec, bs.orphans, func(_ context.Context, p string) (struct{}, error) {
		if err := b.fs.Remove(p); err != nil && !os.IsNotExist(err) {
			return struct{}{}, foundationerrors.WrapError(err, foundationerrors.CategoryFileSystem, "cannot remove stale output").
				WithContext("path", p).
				Build()
		}
		slog.Debug("Removed stale output", logfields.Path(p))
		return struct{}{}, nil
	})
	if err != nil {
		return err
	}
	bs.report.Removed = len(bs.orphans)
	return nil
}

func (b *Builder) collectOutputs(bs *buildState) error {
	claim := func(rel, owner string) error {
		if prev, ok := bs.outputs[rel]; ok {
			return foundationerrors.WrapError(ErrDuplicateOutput, foundationerrors.CategoryBuild, "two outputs share a path").
				WithContext("path", rel).
				WithContext("first", prev).
				WithContext("second", owner).
				UserAction().
				Build()
		}
		bs.outputs[rel] = owner
		return nil
	}
	for _, p := range bs.site.Pages() {
		if err := claim(p.OutputPath(), p.URL); err != nil {
			return err
		}
	}
	for _, f := range bs.site.StaticFiles() {
		if err := claim(f.OutputPath(), f.Entry.AbsPath); err != nil {
			return err
		}
	}
	if out := b.styles.OutputPath(); out != "" {
		rel, err := filepath.Rel(b.cfg.DestPath(), out)
		if err == nil && !strings.HasPrefix(rel, "..") {
			if err := claim(filepath.ToSlash(rel), "styles"); err != nil {
				return err
			}
		}
	}
	return nil
}

func (b *Builder) stageWrite(ctx context.Context, bs *buildState) error {
	s := bs.site
	dest := b.cfg.DestPath()
	written, err := task.Map(ctx, b.exec, s.Pages(), func(_ context.Context, p *site.Page) (bool, error) {
		return b.writeFile(filepath.Join(dest, filepath.FromSlash(p.OutputPath())), []byte(p.Content))
	})
	if err != nil {
		return err
	}
	for _, w := range written {
		if w {
			bs.report.Written++
		}
	}

	entries := make([]*source.Entry, 0, len(s.StaticFiles()))
	for _, f := range s.StaticFiles() {
		entries = append(entries, f.Entry)
	}
	copied, err := b.copyEntries(ctx, entries)
	bs.report.Copied = copied
	if err != nil {
		return err
	}

	if b.styles.Stale() {
		if err := b.styles.Build(ctx); err != nil {
			return err
		}
	}
	if err := b.pipeline.Write(ctx, s); err != nil {
		return err
	}
	return b.removeOrphans(ctx, bs)
}

// writeFile writes data to path unless the file already holds exactly data.
func (b *Builder) writeFile(path string, data []byte) (bool, error) {
	if existing, err := afero.ReadFile(b.fs, path); err == nil && bytes.Equal(existing, data) {
		return false, nil
	}
	if err := b.fs.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return false, foundationerrors.WrapError(err, foundationerrors.CategoryFileSystem, "cannot create output directory").
			WithContext("path", path).
			Build()
	}
	if err := afero.WriteFile(b.fs, path, data, 0o644); err != nil {
		return false, foundationerrors.WrapError(err, foundationerrors.CategoryFileSystem, "cannot write output").
			WithContext("path", path).
			Build()
	}
	return true, nil
}

// copyEntries copies static files whose output is missing or differs in
// size or modification time, and returns how many were copied.
func (b *Builder) copyEntries(ctx context.Context, entries []*source.Entry) (int, error) {
	dest := b.cfg.DestPath()
	copied, err := task.Map(ctx, b.exec, entries, func(_ context.Context, e *source.Entry) (bool, error) {
		target := filepath.Join(dest, filepath.FromSlash(strings.TrimPrefix(e.RelPath(), "/")))
		if info, err := b.fs.Stat(target); err == nil && info.Size() == e.Size && info.ModTime().Equal(e.ModTime) {
			return false, nil
		}
		if err := b.copyFile(e.AbsPath, target, e); err != nil {
			return false, err
		}
		return true, nil
	})
	n := 0
	for _, c := range copied {
		if c {
			n++
		}
	}
	return n, err
}

func (b *Builder) copyFile(from, to string, e *source.Entry) error {
	data, err := afero.ReadFile(b.fs, from)
	if err != nil {
		return foundationerrors.WrapError(err, foundationerrors.CategoryFileSystem, "cannot read static file").
			WithContext("path", from).
			Build()
	}
	if err := b.fs.MkdirAll(filepath.Dir(to), 0o750); err != nil {
		return foundationerrors.WrapError(err, foundationerrors.CategoryFileSystem, "cannot create output directory").
			WithContext("path", to).
			Build()
	}
	if err := afero.WriteFile(b.fs, to, data, 0o644); err != nil {
		return foundationerrors.WrapError(err, foundationerrors.CategoryFileSystem, "cannot copy static file").
			WithContext("path", to).
			Build()
	}
	return b.fs.Chtimes(to, e.ModTime, e.ModTime)
}

// rootOf returns the configured source or asset directory containing path.
func (b *Builder) rootOf(path string) (string, string, bool) {
	for _, root := range append(b.cfg.AssetPaths(), b.cfg.SourcePaths()...) {
		rel, err := filepath.Rel(root, path)
		if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			continue
		}
		return root, rel, true
	}
	return "", "", false
}

// CopyFile copies one static file from a source or asset directory to the
// destination directory.
func (b *Builder) CopyFile(ctx context.Context, path string) error {
	root, rel, ok := b.rootOf(path)
	if !ok {
		return foundationerrors.ValidationError("file is not inside a source or asset directory").
			WithContext("path", path).
			Build()
	}
	e, err := source.NewEntry(b.fs, root, rel, nil)
	if err != nil {
		return foundationerrors.WrapError(err, foundationerrors.CategoryFileSystem, "cannot stat static file").
			WithContext("path", path).
			Build()
	}
	_, err = b.copyEntries(ctx, []*source.Entry{e})
	return err
}

// RemoveOutput deletes the destination copy of a static file.
func (b *Builder) RemoveOutput(path string) error {
	_, rel, ok := b.rootOf(path)
	if !ok {
		return fmt.Errorf("%s is not inside a source or asset directory", path)
	}
	target := filepath.Join(b.cfg.DestPath(), rel)
	if err := b.fs.Remove(target); err != nil && !errors.Is(err, os.ErrNotExist) {
		return foundationerrors.WrapError(err, foundationerrors.CategoryFileSystem, "cannot remove output").
			WithContext("path", target).
			Build()
	}
	slog.Info("Removed output", logfields.Path(target))
	return nil
}

// BuildStyles rebuilds the style bundle when an input is newer than it.
func (b *Builder) BuildStyles(ctx context.Context) error {
	if !b.styles.Stale() {
		return nil
	}
	return b.styles.Build(ctx)
}

// Clean removes the destination directory, the build marker and the report.
func (b *Builder) Clean() error {
	for _, p := range []string{b.cfg.DestPath(), b.markerPath(), filepath.Join(b.cfg.WorkPath(), ReportFile)} {
		if err := b.fs.RemoveAll(p); err != nil {
			return foundationerrors.WrapError(err, foundationerrors.CategoryFileSystem, "cannot clean output").
				WithContext("path", p).
				Build()
		}
	}
	return b.styles.Clean()
}
