package main

import (
	"github.com/alecthomas/kong"
)

// version is set by ldflags during build
var version = "dev"

type CLI struct {
	Version  kong.VersionFlag `short:"v" help:"Show version"`
	Serve    ServeCmd         `cmd:"" help:"Run the game service"`
	NewGame  NewGameCmd       `cmd:"new-game" help:"Print a fresh game id"`
	Send     SendCmd          `cmd:"" help:"Publish one action to a game"`
	Watch    WatchCmd         `cmd:"" help:"Print the events of a game"`
	Snapshot SnapshotCmd      `cmd:"" help:"Export or load a stored game snapshot"`
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("briscola"),
		kong.Description("Five-player briscola chiamata game service"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Vars{
			"version": version,
		},
	)
	err := ctx.Run()
	ctx.FatalIfErrorf(err)
}
