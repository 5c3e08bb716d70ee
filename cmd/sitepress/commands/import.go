package commands

import (
	"context"
	"os/signal"
	"syscall"

	"git.home.luguber.info/inful/sitepress/internal/importer"
)

// ImportCmd implements the 'import' command.
type ImportCmd struct {
	Feed  string `arg:"" help:"Feed file path or http(s) URL"`
	Limit int    `short:"n" help:"Import at most this many items (0 for all)"`
	Draft bool   `help:"Import items as unpublished posts"`
}

func (i *ImportCmd) Run(g *Global, root *CLI) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := root.loadConfig()
	if err != nil {
		return err
	}
	res, err := importer.New(g.fs(), cfg).Import(ctx, i.Feed, importer.Options{Limit: i.Limit, Draft: i.Draft})
	if err != nil {
		return err
	}
	for _, p := range res.Imported {
		g.printf("Imported %s\n", p)
	}
	g.printf("%d imported, %d skipped\n", len(res.Imported), len(res.Skipped))
	return nil
}
