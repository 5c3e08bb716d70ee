package build

import (
	"context"
	"errors"
	"log/slog"

	"github.com/spf13/afero"

	foundationerrors "git.home.luguber.info/inful/sitepress/internal/foundation/errors"
	"git.home.luguber.info/inful/sitepress/internal/logfields"
	"git.home.luguber.info/inful/sitepress/internal/site"
	"git.home.luguber.info/inful/sitepress/internal/source"
	"git.home.luguber.info/inful/sitepress/internal/task"
)

func (b *Builder) stageSetup(ctx context.Context, bs *buildState) error {
	if b.cache == nil {
		c, err := OpenCache(ctx, b.cfg, source.NewFileParser(b.fs))
		if err != nil {
			return err
		}
		b.cache = c.WithRecorder(b.recorder)
	}
	if err := bs.site.Taxonomy.DeclareCategories(b.cfg.Categories); err != nil {
		return err
	}
	if err := b.renderer.Prepare(); err != nil {
		return err
	}
	return b.pipeline.Setup(ctx, bs.site)
}

func (b *Builder) filter() source.Filter {
	return source.Filter{Includes: b.cfg.Includes, Excludes: b.cfg.Excludes}
}

// walkDirs collects the accepted files below each existing directory.
func (b *Builder) walkDirs(dirs []string) ([]*source.Entry, error) {
	walker := source.NewWalker(b.fs, b.filter())
	var entries []*source.Entry
	for _, dir := range dirs {
		exists, err := afero.DirExists(b.fs, dir)
		if err != nil {
			return nil, foundationerrors.WrapError(err, foundationerrors.CategoryFileSystem, "cannot access directory").
				WithContext("path", dir).
				Build()
		}
		if !exists {
			slog.Debug("Directory does not exist, skipping", logfields.Path(dir))
			continue
		}
		err = walker.Walk(dir, func(e *source.Entry) error {
			entries = append(entries, e)
			return nil
		})
		if err != nil {
			return nil, foundationerrors.WrapError(err, foundationerrors.CategoryFileSystem, "cannot walk directory").
				WithContext("path", dir).
				Build()
		}
	}
	return entries, nil
}

type readResult struct {
	page   *site.Page
	static *site.StaticFile
}

// stageRead classifies every file in the source and asset directories.
func (b *Builder) stageRead(ctx context.Context, bs *buildState) error {
	s := bs.site
	entries, err := b.walkDirs(b.cfg.SourcePaths())
	if err != nil {
		return err
	}
	results, err := task.Map(ctx, b.exec, entries, func(ctx context.Context, e *source.Entry) (readResult, error) {
		return b.readEntry(ctx, s, e)
	})
	if err != nil {
		return err
	}
	for _, r := range results {
		switch {
		case r.page != nil:
			s.AddPage(r.page)
		case r.static != nil:
			s.AddStatic(r.static)
		}
	}

	assets, err := b.walkDirs(b.cfg.AssetPaths())
	if err != nil {
		return err
	}
	for _, e := range assets {
		s.AddStatic(site.NewStaticFile(e))
	}

	s.Normalize()
	for _, p := range s.Pages() {
		if !p.IsPost() {
			continue
		}
		if err := s.Taxonomy.Classify(p); err != nil {
			return err
		}
	}
	s.BuildCollections()

	bs.report.Pages = len(s.Pages())
	bs.report.Posts = len(s.Posts())
	bs.report.Statics = len(s.StaticFiles())
	return b.pipeline.Read(ctx, s)
}

func (b *Builder) readEntry(ctx context.Context, s *site.Site, e *source.Entry) (readResult, error) {
	src, err := b.cache.Resolve(ctx, e)
	if errors.Is(err, source.ErrNotAContentSource) {
		return readResult{static: site.NewStaticFile(e)}, nil
	}
	if err != nil {
		return readResult{}, err
	}
	conv, err := b.registry.Converter(src)
	if err != nil {
		return readResult{}, foundationerrors.WrapError(err, foundationerrors.CategorySource, "no converter for source").
			WithContext("path", e.AbsPath).
			Build()
	}
	p, err := b.factory.Create(s, src, conv.OutputExtension(src))
	if err != nil {
		return readResult{}, err
	}
	if !p.Published && !b.cfg.ShowDrafts {
		slog.Debug("Skipping draft", logfields.Path(e.AbsPath))
		return readResult{}, nil
	}
	if err := b.pipeline.PageRead(ctx, s, p); err != nil {
		return readResult{}, err
	}
	return readResult{page: p}, nil
}

func (b *Builder) stageGenerate(ctx context.Context, bs *buildState) error {
	if err := b.pipeline.Generate(ctx, bs.site); err != nil {
		return err
	}
	generated := 0
	for _, p := range bs.site.Pages() {
		if p.Kind == site.KindGenerated {
			generated++
		}
	}
	bs.report.Generated = generated
	return nil
}
