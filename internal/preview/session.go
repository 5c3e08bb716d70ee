package preview

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/spf13/afero"

	"git.home.luguber.info/inful/sitepress/internal/build"
	"git.home.luguber.info/inful/sitepress/internal/config"
	"git.home.luguber.info/inful/sitepress/internal/logfields"
	"git.home.luguber.info/inful/sitepress/internal/metrics"
	"git.home.luguber.info/inful/sitepress/internal/notify"
	"git.home.luguber.info/inful/sitepress/internal/site"
)

// Options configures a preview session.
type Options struct {
	// Listen overrides preview.listen.
	Listen string
	// Poll enables mtime polling at this interval instead of fsnotify.
	Poll time.Duration
	// ShowDrafts turns show_drafts on for the initial configuration and
	// for every configuration reloaded from disk.
	ShowDrafts bool
	// Metrics is served at metrics.path when metrics are enabled.
	Metrics   http.Handler
	Recorder  metrics.Recorder
	Publisher notify.Publisher
}

// Session ties a builder, a classifier, an event source and the preview
// server together. It implements Target.
type Session struct {
	fs    afero.Fs
	opts  Options
	load  func(path string) (*config.Config, error)
	hold  site.Holder
	class *Classifier

	// restart is signaled after a configuration reload so Run can restart
	// the server and the change source.
	restart chan struct{}

	mu      sync.Mutex
	cfg     *config.Config
	builder *build.Builder
	srv     *Server
}

var _ Target = (*Session)(nil)

// NewSession prepares a session for cfg. Run starts it.
func NewSession(fsys afero.Fs, cfg *config.Config, opts Options) (*Session, error) {
	if opts.Recorder == nil {
		opts.Recorder = metrics.NoopRecorder{}
	}
	if opts.Publisher == nil {
		opts.Publisher = notify.NoopPublisher{}
	}
	s := &Session{fs: fsys, opts: opts, load: config.Load, restart: make(chan struct{}, 1)}
	s.override(cfg)
	b, err := s.newBuilder(cfg)
	if err != nil {
		return nil, err
	}
	s.cfg, s.builder = cfg, b
	s.class = NewClassifier(fsys, cfg, b.Styles(), s, opts.Recorder)
	return s, nil
}

// override applies the command line overrides to cfg.
func (s *Session) override(cfg *config.Config) {
	if s.opts.ShowDrafts {
		cfg.ShowDrafts = true
	}
}

func (s *Session) newBuilder(cfg *config.Config) (*build.Builder, error) {
	return build.New(s.fs, cfg,
		build.WithHolder(&s.hold),
		build.WithRecorder(s.opts.Recorder),
		build.WithPublisher(s.opts.Publisher))
}

// Classifier returns the session's classifier.
func (s *Session) Classifier() *Classifier { return s.class }

// Site returns the most recently published site.
func (s *Session) Site() *site.Site { return s.hold.Load() }

func (s *Session) current() *build.Builder {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.builder
}

// ReloadConfig reloads the configuration file, rebuilds with it and asks
// Run to restart the server and the change source. A configuration that
// fails to load leaves the current one in place.
func (s *Session) ReloadConfig(ctx context.Context) error {
	s.mu.Lock()
	path := s.cfg.File
	s.mu.Unlock()

	cfg, err := s.load(path)
	if err != nil {
		return err
	}
	s.override(cfg)
	b, err := s.newBuilder(cfg)
	if err != nil {
		return err
	}
	s.mu.Lock()
	old := s.builder
	s.cfg, s.builder = cfg, b
	s.mu.Unlock()
	if err := old.Close(); err != nil {
		slog.Warn("Failed to close previous builder", logfields.Error(err))
	}
	s.class.SetConfig(cfg, b.Styles())
	slog.Info("Configuration reloaded", logfields.Path(path))
	err = s.Rebuild(ctx)
	select {
	case s.restart <- struct{}{}:
	default:
	}
	return err
}

// Rebuild runs a full build.
func (s *Session) Rebuild(ctx context.Context) error {
	_, err := s.current().Build(ctx, true)
	return err
}

// CopyStatic copies path to the output, or removes the output copy when
// path was deleted.
func (s *Session) CopyStatic(ctx context.Context, path string) error {
	b := s.current()
	if _, err := s.fs.Stat(path); errors.Is(err, os.ErrNotExist) {
		return b.RemoveOutput(path)
	}
	return b.CopyFile(ctx, path)
}

// BuildStyles rebuilds the style bundle.
func (s *Session) BuildStyles(ctx context.Context) error {
	return s.current().BuildStyles(ctx)
}

// Close releases the builder.
func (s *Session) Close() error {
	return s.current().Close()
}

// Addr returns the address of the running preview server, or "" when no
// server is running.
func (s *Session) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.srv == nil {
		return ""
	}
	return s.srv.Addr()
}

func (s *Session) config() *config.Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

// watchRoots lists every path whose changes matter under the current
// configuration.
func (s *Session) watchRoots() []string {
	cfg := s.config()
	roots := append([]string{}, cfg.SourcePaths()...)
	roots = append(roots, cfg.AssetPaths()...)
	roots = append(roots, cfg.TemplatePath())
	if cfg.Styles.Source != "" {
		roots = append(roots, cfg.Resolve(cfg.Styles.Source))
	}
	if cfg.File != "" {
		roots = append(roots, cfg.File)
	}
	return roots
}

// Run builds the site, serves it and applies changes until ctx is done.
// After each configuration reload the server and the change source are
// restarted from the new configuration.
func (s *Session) Run(ctx context.Context) error {
	if err := s.Rebuild(ctx); err != nil {
		slog.Error("Initial build failed; serving previous output", logfields.Error(err))
	}
	for {
		restart, err := s.serve(ctx)
		if err != nil || !restart {
			return err
		}
		slog.Info("Restarting preview server")
	}
}

// serve runs one server and change source for the current configuration.
// It reports whether it stopped for a configuration reload.
func (s *Session) serve(ctx context.Context) (bool, error) {
	cfg := s.config()
	listen := s.opts.Listen
	if listen == "" {
		listen = cfg.Preview.Listen
	}
	srv := NewServer(s.fs, cfg, s.class.Status, s.opts.Metrics)
	if err := srv.Start(listen); err != nil {
		return false, err
	}
	s.mu.Lock()
	s.srv = srv
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.srv = nil
		s.mu.Unlock()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Stop(shutdownCtx); err != nil {
			slog.Warn("Preview server shutdown error", logfields.Error(err))
		}
	}()

	runCtx, cancel := context.WithCancel(ctx)
	stop, err := s.watch(runCtx, cfg)
	if err != nil {
		cancel()
		return false, err
	}
	defer func() {
		cancel()
		stop()
	}()

	select {
	case <-ctx.Done():
		return false, nil
	case <-s.restart:
		return true, nil
	}
}

// watch starts the poller or the fsnotify watcher over the current roots
// and returns a function stopping it.
func (s *Session) watch(ctx context.Context, cfg *config.Config) (func(), error) {
	handle := func(ctx context.Context, path string) { s.class.Handle(ctx, path) }
	if s.opts.Poll > 0 {
		p := NewPoller(s.fs, s.watchRoots(), s.opts.Poll, handle)
		if err := p.Start(ctx); err != nil {
			return nil, err
		}
		return func() {
			if err := p.Stop(); err != nil {
				slog.Warn("Poller shutdown error", logfields.Error(err))
			}
		}, nil
	}

	debounce, err := time.ParseDuration(cfg.Preview.Debounce)
	if err != nil {
		debounce = DefaultDebounce
	}
	w, err := NewWatcher(s.watchRoots(), debounce, handle)
	if err != nil {
		return nil, err
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := w.Run(ctx); err != nil {
			slog.Warn("Watcher stopped", logfields.Error(err))
		}
	}()
	return func() {
		_ = w.Close()
		<-done
	}, nil
}
