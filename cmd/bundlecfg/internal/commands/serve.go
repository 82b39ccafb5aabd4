package commands

import (
	"context"
	"fmt"

	"github.com/wolfeidau/bundlecfg/internal/assets"
	"github.com/wolfeidau/bundlecfg/internal/devserver"
)

// ServeCmd watches the sources and serves the live bundle.
type ServeCmd struct{}

func (s *ServeCmd) Run(ctx context.Context, globals *Globals) error {
	log := setupLogger(globals)
	defer setupTelemetry(ctx, globals, log)()

	cfg, err := globals.Assemble()
	if err != nil {
		return err
	}

	pipeline, err := assets.New(cfg, assets.DefaultOptions(globals.Project.Root))
	if err != nil {
		return fmt.Errorf("failed to load assets pipeline: %w", err)
	}
	defer func() {
		if err := pipeline.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to stop sass compiler")
		}
	}()

	server, err := devserver.New(pipeline, globals.Project.Root, log)
	if err != nil {
		return err
	}

	log.Info().Str("version", globals.Version).Str("addr", server.Addr()).Msg("Starting dev server")

	return server.Run(ctx)
}
