package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/wolfeidau/bundlecfg/cmd/bundlecfg/internal/commands"
)

var (
	version = "dev"
	cli     struct {
		Debug       bool                  `help:"Enable debug mode."`
		Telemetry   bool                  `help:"export build metrics and traces over OTLP" env:"BUNDLECFG_TELEMETRY"`
		Mode        string                `help:"build mode (development or production)" env:"NODE_ENV"`
		ProjectFile kong.ConfigFlag       `help:"JSONC file with flag defaults" placeholder:"PATH"`
		Project     commands.ProjectFlags `embed:"" prefix:"project-"`
		Version     kong.VersionFlag
		Config      commands.ConfigCmd `cmd:"" help:"Print the assembled build config"`
		Build       commands.BuildCmd  `cmd:"" help:"Build the bundle with esbuild"`
		Serve       commands.ServeCmd  `cmd:"" help:"Watch and serve the bundle with live reload (development only)"`
	}
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := kong.Parse(&cli,
		kong.Vars{
			"version": version,
		},
		kong.Configuration(commands.JSONCLoader, "bundlecfg.jsonc"),
		kong.BindTo(ctx, (*context.Context)(nil)))
	err := cmd.Run(&commands.Globals{
		Debug:     cli.Debug,
		Telemetry: cli.Telemetry,
		Version:   version,
		Mode:      cli.Mode,
		Project:   cli.Project.Project(),
	})
	cmd.FatalIfErrorf(err)
}
