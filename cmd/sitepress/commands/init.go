package commands

import (
	"git.home.luguber.info/inful/sitepress/internal/config"
)

// InitCmd implements the 'init' command.
type InitCmd struct {
	Force bool `help:"Overwrite an existing configuration file"`
}

func (i *InitCmd) Run(g *Global, root *CLI) error {
	if err := config.Init(root.Config, i.Force); err != nil {
		return err
	}
	g.printf("Wrote %s\n", root.Config)
	return nil
}
