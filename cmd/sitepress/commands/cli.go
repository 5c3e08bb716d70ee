// Package commands implements the sitepress command line.
package commands

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/alecthomas/kong"
	"github.com/spf13/afero"

	"git.home.luguber.info/inful/sitepress/internal/config"
	"git.home.luguber.info/inful/sitepress/internal/logfields"
	"git.home.luguber.info/inful/sitepress/internal/notify"
)

// Global carries state shared by subcommands.
type Global struct {
	// Fs is the filesystem commands operate on; the OS filesystem when nil.
	Fs afero.Fs
	// Out receives user-facing output; stdout when nil.
	Out io.Writer
}

func (g *Global) fs() afero.Fs {
	if g.Fs == nil {
		return afero.NewOsFs()
	}
	return g.Fs
}

func (g *Global) out() io.Writer {
	if g.Out == nil {
		return os.Stdout
	}
	return g.Out
}

func (g *Global) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(g.out(), format, args...)
}

// CLI definition & global flags.
type CLI struct {
	Config  string           `short:"c" help:"Site configuration file" default:"sitepress.yaml" type:"path"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Build   BuildCmd   `cmd:"" help:"Build the site into the destination directory"`
	Preview PreviewCmd `cmd:"" help:"Build, serve and rebuild the site on changes"`
	Clean   CleanCmd   `cmd:"" help:"Remove generated output"`
	NewPost NewPostCmd `cmd:"" name:"new-post" help:"Create a new post source"`
	NewPage NewPageCmd `cmd:"" name:"new-page" help:"Create a new page source"`
	Import  ImportCmd  `cmd:"" help:"Import posts from an RSS, Atom or WordPress feed"`
	Init    InitCmd    `cmd:"" help:"Write an example configuration file"`
}

// AfterApply runs after flag parsing; setup logging once.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply() error {
	level := slog.LevelInfo
	if c.Verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	return nil
}

// loadConfig reads the site configuration and switches the logger to the
// configured level and format.
func (c *CLI) loadConfig() (*config.Config, error) {
	path, err := filepath.Abs(c.Config)
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(slog.New(cfg.Logging.NewLogHandler(os.Stderr, c.Verbose)))
	return cfg, nil
}

// openPublisher connects to NATS when notify.nats_url is configured.
func openPublisher(cfg *config.Config) (notify.Publisher, error) {
	if cfg.Notify.NATSURL == "" {
		return notify.NoopPublisher{}, nil
	}
	return notify.Connect(cfg.Notify.NATSURL, cfg.Notify.Subject)
}

func closePublisher(p notify.Publisher) {
	if err := p.Close(); err != nil {
		slog.Warn("Failed to close notification publisher", logfields.Error(err))
	}
}
