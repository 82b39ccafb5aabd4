package commands

import (
	"context"
	"fmt"

	"github.com/wolfeidau/bundlecfg/internal/assets"
)

// BuildCmd runs a single build for the selected mode.
type BuildCmd struct {
	OutputDir string `help:"override the output directory"`
	Manifest  string `help:"path to write the build manifest (default: <output-dir>/manifest.json)"`
	Title     string `help:"title passed to the HTML shell" default:"App"`
}

func (c *BuildCmd) Run(ctx context.Context, globals *Globals) error {
	log := setupLogger(globals)
	defer setupTelemetry(ctx, globals, log)()

	cfg, err := globals.Assemble()
	if err != nil {
		return err
	}

	log.Info().Str("version", globals.Version).Str("mode", cfg.Mode.String()).Msg("Starting build")

	pipeline, err := assets.New(cfg, assets.Options{
		Root:         globals.Project.Root,
		OutputDir:    c.OutputDir,
		ManifestPath: c.Manifest,
		Title:        c.Title,
	})
	if err != nil {
		return fmt.Errorf("failed to load assets pipeline: %w", err)
	}
	defer func() {
		if err := pipeline.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to stop sass compiler")
		}
	}()

	manifest, err := pipeline.Build(ctx)
	if err != nil {
		return fmt.Errorf("failed to build js assets: %w", err)
	}

	log.Info().
		Str("script", manifest.Script).
		Str("style", manifest.Style).
		Strs("assets", manifest.Assets).
		Str("html", manifest.HTML).
		Msg("Build complete")

	return nil
}
