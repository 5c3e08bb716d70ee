package main

import (
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/sitepress/cmd/sitepress/commands"
	foundationerrors "git.home.luguber.info/inful/sitepress/internal/foundation/errors"
	"git.home.luguber.info/inful/sitepress/internal/version"
)

func main() {
	cli := &commands.CLI{}
	parser := kong.Must(cli,
		kong.Name("sitepress"),
		kong.Description("Static site builder for posts, pages and assets."),
		kong.UsageOnError(),
		kong.Vars{"version": version.String()},
	)
	ctx, err := parser.Parse(os.Args[1:])
	parser.FatalIfErrorf(err)

	global := &commands.Global{}
	if err := ctx.Run(global, cli); err != nil {
		foundationerrors.NewCLIErrorAdapter(cli.Verbose, nil).HandleError(err)
	}
}
