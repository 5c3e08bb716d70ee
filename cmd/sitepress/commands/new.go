package commands

import (
	"git.home.luguber.info/inful/sitepress/internal/create"
)

// SourceFlags are shared by new-post and new-page.
type SourceFlags struct {
	Title  string `arg:"" help:"Title of the new source"`
	Name   string `short:"n" help:"File name stem (derived from the title by default)"`
	Format string `short:"f" help:"File extension" default:"md"`
	Draft  bool   `help:"Mark the source as unpublished"`
}

func (f SourceFlags) options() create.Options {
	return create.Options{Title: f.Title, Name: f.Name, Format: f.Format, Draft: f.Draft}
}

// NewPostCmd implements the 'new-post' command.
type NewPostCmd struct {
	SourceFlags `embed:""`
	Categories []string `short:"C" name:"category" help:"Category of the post (repeatable)"`
	Tags       []string `short:"T" name:"tag" help:"Tag of the post (repeatable)"`
}

func (n *NewPostCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.loadConfig()
	if err != nil {
		return err
	}
	opts := n.options()
	opts.Categories = n.Categories
	opts.Tags = n.Tags
	path, err := create.New(g.fs(), cfg).NewPost(opts)
	if err != nil {
		return err
	}
	g.printf("Created %s\n", path)
	return nil
}

// NewPageCmd implements the 'new-page' command.
type NewPageCmd struct {
	SourceFlags `embed:""`
}

func (n *NewPageCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.loadConfig()
	if err != nil {
		return err
	}
	path, err := create.New(g.fs(), cfg).NewPage(n.options())
	if err != nil {
		return err
	}
	g.printf("Created %s\n", path)
	return nil
}
