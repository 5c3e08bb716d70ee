package commands

import (
	"git.home.luguber.info/inful/sitepress/internal/build"
)

// CleanCmd implements the 'clean' command.
type CleanCmd struct{}

func (c *CleanCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.loadConfig()
	if err != nil {
		return err
	}
	builder, err := build.New(g.fs(), cfg)
	if err != nil {
		return err
	}
	defer func() { _ = builder.Close() }()
	if err := builder.Clean(); err != nil {
		return err
	}
	g.printf("Removed %s\n", cfg.DestPath())
	return nil
}
