package commands

import (
	"context"
	"os/signal"
	"syscall"

	"git.home.luguber.info/inful/sitepress/internal/build"
)

// BuildCmd implements the 'build' command.
type BuildCmd struct {
	Force   bool `short:"f" help:"Rebuild even when nothing changed since the last build"`
	Threads int  `short:"t" help:"Override threads (parallel workers per stage)"`
	Drafts  bool `help:"Include unpublished pages"`
}

func (b *BuildCmd) Run(g *Global, root *CLI) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := root.loadConfig()
	if err != nil {
		return err
	}
	if b.Threads > 0 {
		cfg.Threads = b.Threads
	}
	if b.Drafts {
		cfg.ShowDrafts = true
	}

	pub, err := openPublisher(cfg)
	if err != nil {
		return err
	}
	defer closePublisher(pub)

	builder, err := build.New(g.fs(), cfg, build.WithPublisher(pub))
	if err != nil {
		return err
	}
	defer func() { _ = builder.Close() }()

	report, err := builder.Build(ctx, b.Force)
	if report != nil {
		g.printf("%s\n", report.Summary())
	}
	return err
}
