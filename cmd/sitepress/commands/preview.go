package commands

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/sitepress/internal/metrics"
	"git.home.luguber.info/inful/sitepress/internal/preview"
)

// PreviewCmd implements the 'preview' command.
type PreviewCmd struct {
	Listen string        `short:"l" help:"Listen address (overrides preview.listen)"`
	Poll   time.Duration `help:"Poll for changes at this interval instead of using filesystem events"`
	Drafts bool          `help:"Include unpublished pages"`
}

func (p *PreviewCmd) Run(g *Global, root *CLI) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := root.loadConfig()
	if err != nil {
		return err
	}
	poll := p.Poll
	if poll == 0 && cfg.Preview.PollInterval != "" {
		if poll, err = time.ParseDuration(cfg.Preview.PollInterval); err != nil {
			return err
		}
	}

	pub, err := openPublisher(cfg)
	if err != nil {
		return err
	}
	defer closePublisher(pub)

	reg := prom.NewRegistry()
	session, err := preview.NewSession(g.fs(), cfg, preview.Options{
		Listen:     p.Listen,
		Poll:       poll,
		ShowDrafts: p.Drafts,
		Metrics:    metrics.HTTPHandler(reg),
		Recorder:   metrics.NewPrometheusRecorder(reg),
		Publisher:  pub,
	})
	if err != nil {
		return err
	}
	defer func() { _ = session.Close() }()
	return session.Run(ctx)
}
