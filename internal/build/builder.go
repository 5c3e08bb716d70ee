package build

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/spf13/afero"

	"git.home.luguber.info/inful/sitepress/internal/config"
	"git.home.luguber.info/inful/sitepress/internal/converter"
	"git.home.luguber.info/inful/sitepress/internal/filter/excerpt"
	"git.home.luguber.info/inful/sitepress/internal/filter/fixurl"
	"git.home.luguber.info/inful/sitepress/internal/filter/gitinfo"
	"git.home.luguber.info/inful/sitepress/internal/filter/related"
	"git.home.luguber.info/inful/sitepress/internal/generator"
	"git.home.luguber.info/inful/sitepress/internal/logfields"
	"git.home.luguber.info/inful/sitepress/internal/metrics"
	"git.home.luguber.info/inful/sitepress/internal/notify"
	"git.home.luguber.info/inful/sitepress/internal/plugin"
	"git.home.luguber.info/inful/sitepress/internal/render"
	"git.home.luguber.info/inful/sitepress/internal/site"
	"git.home.luguber.info/inful/sitepress/internal/source"
	"git.home.luguber.info/inful/sitepress/internal/style"
	"git.home.luguber.info/inful/sitepress/internal/task"
)

// Option configures a Builder.
type Option func(*Builder)

// WithRecorder sets the metrics recorder.
func WithRecorder(r metrics.Recorder) Option {
	return func(b *Builder) { b.recorder = r }
}

// WithPublisher sets the build event publisher.
func WithPublisher(p notify.Publisher) Option {
	return func(b *Builder) { b.publisher = p }
}

// WithRenderer replaces the html/template renderer.
func WithRenderer(r render.Renderer) Option {
	return func(b *Builder) { b.renderer = r }
}

// WithCache supplies a source cache instead of the one selected by config.
func WithCache(c *source.Cache) Option {
	return func(b *Builder) { b.cache = c }
}

// WithHolder publishes successful builds into h.
func WithHolder(h *site.Holder) Option {
	return func(b *Builder) { b.holder = h }
}

// WithExtensions registers extensions in addition to the defaults.
func WithExtensions(exts ...plugin.Extension) Option {
	return func(b *Builder) { b.extra = append(b.extra, exts...) }
}

// DefaultExtensions returns the converters, generators and filters every
// build registers.
func DefaultExtensions() []plugin.Extension {
	exts := append([]plugin.Extension{}, converter.Defaults()...)
	exts = append(exts, generator.Defaults()...)
	return append(exts, gitinfo.New(), excerpt.New(), related.New(), fixurl.New())
}

// Builder runs builds for one site configuration. Build calls are
// serialized.
type Builder struct {
	fs        afero.Fs
	cfg       *config.Config
	registry  *plugin.Registry
	pipeline  *plugin.Pipeline
	factory   *site.Factory
	renderer  render.Renderer
	styles    *style.Bundler
	cache     *source.Cache
	exec      *task.Executor
	holder    *site.Holder
	recorder  metrics.Recorder
	publisher notify.Publisher
	extra     []plugin.Extension

	mu sync.Mutex
}

// New returns a builder for cfg reading and writing through fsys.
func New(fsys afero.Fs, cfg *config.Config, opts ...Option) (*Builder, error) {
	b := &Builder{
		fs:        fsys,
		cfg:       cfg,
		factory:   site.NewFactory(),
		exec:      task.NewExecutor(cfg.Threads),
		holder:    &site.Holder{},
		recorder:  metrics.NoopRecorder{},
		publisher: notify.NoopPublisher{},
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.renderer == nil {
		b.renderer = render.NewTemplateRenderer(fsys, cfg.TemplatePath(), render.Options{
			Root:       cfg.Root,
			BaseURL:    cfg.URL,
			DateFormat: cfg.DateFormat,
			Locale:     cfg.Locale,
		})
	}
	if b.cache != nil {
		b.cache.WithRecorder(b.recorder)
	}

	b.registry = plugin.NewRegistry()
	for _, ext := range append(DefaultExtensions(), b.extra...) {
		if err := b.registry.Register(ext); err != nil {
			return nil, err
		}
	}
	b.pipeline = plugin.NewPipeline(b.registry)

	b.styles = style.NewBundler(fsys, cfg.DestPath())
	if err := b.styles.Init(cfg.BaseDir, cfg.Styles); err != nil {
		return nil, err
	}
	return b, nil
}

// Config returns the configuration the builder was created with.
func (b *Builder) Config() *config.Config { return b.cfg }

// Holder returns the holder successful builds are published to.
func (b *Builder) Holder() *site.Holder { return b.holder }

// Factory returns the page factory, for registering layout constructors.
func (b *Builder) Factory() *site.Factory { return b.factory }

// Registry returns the extension registry.
func (b *Builder) Registry() *plugin.Registry { return b.registry }

// Styles returns the stylesheet bundler.
func (b *Builder) Styles() *style.Bundler { return b.styles }

// Cache returns the source cache, or nil before the first build.
func (b *Builder) Cache() *source.Cache { return b.cache }

// Close releases the source cache. The publisher is owned by the caller.
func (b *Builder) Close() error {
	if b.cache == nil {
		return nil
	}
	return b.cache.Close()
}

// Build runs a build. Without force the build is skipped when nothing
// changed since the last successful build, and reduced to copying assets
// when only assets changed.
func (b *Builder) Build(ctx context.Context, force bool) (*Report, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	report := newReport()
	slog.Info("Build started", logfields.BuildID(report.ID), slog.Bool("force", force))

	if !force {
		changes, err := b.detectChanges()
		if err != nil {
			slog.Warn("Change detection failed, running full build", logfields.BuildID(report.ID), logfields.Error(err))
		} else if !changes.content {
			return b.incremental(ctx, report, changes)
		} else {
			slog.Debug("Full build required", logfields.BuildID(report.ID), slog.String("reason", changes.reason))
		}
	}

	var hits0, misses0 int64
	if b.cache != nil {
		hits0, misses0 = b.cache.Stats()
	}
	bs := &buildState{site: site.New(b.cfg), report: report, outputs: map[string]string{}}
	err := runStages(ctx, bs, b.stages(), b.recorder)
	if b.cache != nil {
		hits, misses := b.cache.Stats()
		report.CacheHits, report.CacheMisses = hits-hits0, misses-misses0
	}

	if err != nil {
		status := StatusFailed
		var se *StageError
		if errors.As(err, &se) && se.Kind == StageErrorCanceled {
			status = StatusCanceled
		}
		report.finish(status)
		b.complete(ctx, report)
		return report, err
	}

	b.holder.Publish(bs.site)
	if err := b.writeMarker(report.Start); err != nil {
		slog.Warn("Failed to write build marker", logfields.BuildID(report.ID), logfields.Error(err))
	}
	report.finish(StatusSuccess)
	b.complete(ctx, report)
	return report, nil
}

// incremental handles builds where no content changed.
func (b *Builder) incremental(ctx context.Context, report *Report, changes changeSet) (*Report, error) {
	if len(changes.assets) == 0 && !b.styles.Stale() {
		report.SkipReason = "no_changes"
		report.finish(StatusSkipped)
		b.complete(ctx, report)
		return report, nil
	}
	copied, err := b.copyEntries(ctx, changes.assets)
	report.Copied = copied
	if err == nil && b.styles.Stale() {
		err = b.styles.Build(ctx)
	}
	if err != nil {
		report.Errors = append(report.Errors, err)
		report.finish(StatusFailed)
		b.complete(ctx, report)
		return report, err
	}
	if err := b.writeMarker(report.Start); err != nil {
		slog.Warn("Failed to write build marker", logfields.BuildID(report.ID), logfields.Error(err))
	}
	report.SkipReason = "assets_only"
	report.finish(StatusAssetsOnly)
	b.complete(ctx, report)
	return report, nil
}

// complete persists the report, records metrics and publishes the build
// event. Failures here are logged and never change the build outcome.
func (b *Builder) complete(ctx context.Context, report *Report) {
	if err := report.Persist(b.fs, b.cfg.WorkPath()); err != nil {
		slog.Warn("Failed to persist build report", logfields.BuildID(report.ID), logfields.Error(err))
	}

	b.recorder.ObserveBuildDuration(report.Duration())
	b.recorder.IncBuildOutcome(string(report.Status))
	b.recorder.AddPagesWritten(report.Written)

	ev := &notify.Event{
		BuildID:    report.ID,
		Outcome:    string(report.Status),
		DurationMS: report.Duration().Milliseconds(),
		Pages:      report.Pages,
		Statics:    report.Statics,
		Timestamp:  report.End,
	}
	if len(report.Errors) > 0 {
		ev.Error = report.Errors[0].Error()
	}
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := b.publisher.Publish(pubCtx, ev); err != nil {
		slog.Warn("Failed to publish build event", logfields.BuildID(report.ID), logfields.Error(err))
	}

	attrs := []any{
		logfields.BuildID(report.ID),
		logfields.Outcome(string(report.Status)),
		logfields.DurationMS(float64(report.Duration().Microseconds()) / 1000),
		slog.String("summary", report.Summary()),
	}
	if report.Status.IsSuccess() {
		slog.Info("Build finished", attrs...)
	} else {
		slog.Error("Build failed", append(attrs, logfields.Error(errors.Join(report.Errors...)))...)
	}
}
