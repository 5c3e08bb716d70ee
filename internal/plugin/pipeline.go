package plugin

import (
	"context"
	"log/slog"

	"git.home.luguber.info/inful/sitepress/internal/logfields"
	"git.home.luguber.info/inful/sitepress/internal/site"
)

// Pipeline runs each hook on the registered extensions in priority order,
// one at a time. The first failure aborts the stage.
type Pipeline struct {
	registry *Registry
}

// NewPipeline returns a pipeline over r.
func NewPipeline(r *Registry) *Pipeline {
	return &Pipeline{registry: r}
}

// Registry returns the underlying registry.
func (p *Pipeline) Registry() *Registry { return p.registry }

func runSite[T any](ctx context.Context, exts []Extension, stage Stage, call func(T) error) error {
	for _, ext := range exts {
		hook, ok := ext.(T)
		if !ok {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		slog.Debug("Running extension hook",
			logfields.Extension(ext.Name()),
			logfields.Stage(string(stage)),
			logfields.Priority(ext.Priority()))
		if err := call(hook); err != nil {
			return &ExtensionError{Extension: ext.Name(), Stage: stage, Err: err}
		}
	}
	return nil
}

func runPage[T any](ctx context.Context, exts []Extension, stage Stage, page *site.Page, call func(T) error) error {
	for _, ext := range exts {
		hook, ok := ext.(T)
		if !ok {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := call(hook); err != nil {
			return &ExtensionError{Extension: ext.Name(), Stage: stage, Page: page.URL, Err: err}
		}
	}
	return nil
}

func (p *Pipeline) Setup(ctx context.Context, s *site.Site) error {
	return runSite(ctx, p.registry.Extensions(), StageSetup, func(h SetupHook) error { return h.OnSetup(ctx, s) })
}

func (p *Pipeline) Read(ctx context.Context, s *site.Site) error {
	return runSite(ctx, p.registry.Extensions(), StageRead, func(h ReadHook) error { return h.OnRead(ctx, s) })
}

func (p *Pipeline) PageRead(ctx context.Context, s *site.Site, page *site.Page) error {
	return runPage(ctx, p.registry.Extensions(), StagePageRead, page, func(h PageReadHook) error { return h.OnPageRead(ctx, s, page) })
}

// Generate runs generators and other generate hooks in ascending priority.
func (p *Pipeline) Generate(ctx context.Context, s *site.Site) error {
	return runSite(ctx, p.registry.Extensions(), StageGenerate, func(h GenerateHook) error { return h.OnGenerate(ctx, s) })
}

func (p *Pipeline) PageConvert(ctx context.Context, s *site.Site, page *site.Page) error {
	return runPage(ctx, p.registry.Extensions(), StagePageConvert, page, func(h PageConvertHook) error { return h.OnPageConvert(ctx, s, page) })
}

func (p *Pipeline) Convert(ctx context.Context, s *site.Site) error {
	return runSite(ctx, p.registry.Extensions(), StageConvert, func(h ConvertHook) error { return h.OnConvert(ctx, s) })
}

func (p *Pipeline) PreRender(ctx context.Context, s *site.Site) error {
	return runSite(ctx, p.registry.Extensions(), StagePreRender, func(h PreRenderHook) error { return h.OnPreRender(ctx, s) })
}

func (p *Pipeline) PageRender(ctx context.Context, s *site.Site, page *site.Page) error {
	return runPage(ctx, p.registry.Extensions(), StagePageRender, page, func(h PageRenderHook) error { return h.OnPageRender(ctx, s, page) })
}

func (p *Pipeline) Render(ctx context.Context, s *site.Site) error {
	return runSite(ctx, p.registry.Extensions(), StageRender, func(h RenderHook) error { return h.OnRender(ctx, s) })
}

func (p *Pipeline) Cleanup(ctx context.Context, s *site.Site) error {
	return runSite(ctx, p.registry.Extensions(), StageCleanup, func(h CleanupHook) error { return h.OnCleanup(ctx, s) })
}

func (p *Pipeline) Write(ctx context.Context, s *site.Site) error {
	return runSite(ctx, p.registry.Extensions(), StageWrite, func(h WriteHook) error { return h.OnWrite(ctx, s) })
}
