package plugin

import (
	"context"
	"sort"

	"git.home.luguber.info/inful/sitepress/internal/site"
)

// Composite groups extensions under one name and priority. Children are
// sorted once at construction and run in that order for every hook.
type Composite struct {
	Base
	children []Extension
}

// NewComposite builds a composite from children.
func NewComposite(name string, priority int, children ...Extension) *Composite {
	sorted := make([]Extension, len(children))
	copy(sorted, children)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Priority() < sorted[j].Priority() })
	return &Composite{Base: Base{ID: name, Order: priority}, children: sorted}
}

// Children returns the children in execution order.
func (c *Composite) Children() []Extension { return c.children }

func (c *Composite) OnSetup(ctx context.Context, s *site.Site) error {
	return runSite(ctx, c.children, StageSetup, func(h SetupHook) error { return h.OnSetup(ctx, s) })
}

func (c *Composite) OnRead(ctx context.Context, s *site.Site) error {
	return runSite(ctx, c.children, StageRead, func(h ReadHook) error { return h.OnRead(ctx, s) })
}

func (c *Composite) OnPageRead(ctx context.Context, s *site.Site, p *site.Page) error {
	return runPage(ctx, c.children, StagePageRead, p, func(h PageReadHook) error { return h.OnPageRead(ctx, s, p) })
}

func (c *Composite) OnGenerate(ctx context.Context, s *site.Site) error {
	return runSite(ctx, c.children, StageGenerate, func(h GenerateHook) error { return h.OnGenerate(ctx, s) })
}

func (c *Composite) OnPageConvert(ctx context.Context, s *site.Site, p *site.Page) error {
	return runPage(ctx, c.children, StagePageConvert, p, func(h PageConvertHook) error { return h.OnPageConvert(ctx, s, p) })
}

func (c *Composite) OnConvert(ctx context.Context, s *site.Site) error {
	return runSite(ctx, c.children, StageConvert, func(h ConvertHook) error { return h.OnConvert(ctx, s) })
}

func (c *Composite) OnPreRender(ctx context.Context, s *site.Site) error {
	return runSite(ctx, c.children, StagePreRender, func(h PreRenderHook) error { return h.OnPreRender(ctx, s) })
}

func (c *Composite) OnPageRender(ctx context.Context, s *site.Site, p *site.Page) error {
	return runPage(ctx, c.children, StagePageRender, p, func(h PageRenderHook) error { return h.OnPageRender(ctx, s, p) })
}

func (c *Composite) OnRender(ctx context.Context, s *site.Site) error {
	return runSite(ctx, c.children, StageRender, func(h RenderHook) error { return h.OnRender(ctx, s) })
}

func (c *Composite) OnCleanup(ctx context.Context, s *site.Site) error {
	return runSite(ctx, c.children, StageCleanup, func(h CleanupHook) error { return h.OnCleanup(ctx, s) })
}

func (c *Composite) OnWrite(ctx context.Context, s *site.Site) error {
	return runSite(ctx, c.children, StageWrite, func(h WriteHook) error { return h.OnWrite(ctx, s) })
}
