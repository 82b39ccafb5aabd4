package commands

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/alecthomas/kong"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	"github.com/tidwall/jsonc"
	"github.com/wolfeidau/bundlecfg/internal/buildconfig"
	"github.com/wolfeidau/bundlecfg/internal/logger"
	"github.com/wolfeidau/bundlecfg/internal/telemetry"
)

type Globals struct {
	Debug     bool
	Telemetry bool
	Version   string
	// Mode is the raw mode signal, parsed once by Assemble
	Mode    string
	Project buildconfig.Project
}

// Assemble parses the mode signal and assembles the config for it.
func (g *Globals) Assemble() (*buildconfig.BuildConfig, error) {
	mode, err := buildconfig.ParseMode(g.Mode)
	if err != nil {
		return nil, err
	}
	return g.Project.Assemble(mode)
}

// setupLogger configures the process logger and makes it the package global
// used by the asset pipeline.
func setupLogger(globals *Globals) zerolog.Logger {
	log := logger.Setup(globals.Debug)
	zlog.Logger = log
	return log
}

// setupTelemetry installs OTLP exporters when enabled. The returned func
// flushes them and is always safe to call.
func setupTelemetry(ctx context.Context, globals *Globals, log zerolog.Logger) func() {
	if !globals.Telemetry {
		return func() {}
	}

	shutdown, err := telemetry.Init(ctx, "bundlecfg", globals.Version)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize telemetry, continuing without metrics")
		return func() {}
	}

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Failed to shutdown telemetry")
		}
	}
}

// ProjectFlags are the fixed project inputs of the mode tables.
type ProjectFlags struct {
	Root        string `help:"project root directory" default:"." env:"BUNDLECFG_ROOT"`
	Entry       string `help:"application entry point" default:"./src/index.jsx"`
	Template    string `help:"HTML shell template used in production" default:"config/template.html"`
	StyleOutput string `help:"extracted stylesheet filename used in production" default:"style-[contenthash:10].min.css"`
	DevHost     string `help:"dev server host" default:"localhost" env:"BUNDLECFG_DEV_HOST"`
	DevPort     int    `help:"dev server port" default:"8080" env:"BUNDLECFG_DEV_PORT"`
}

func (f ProjectFlags) Project() buildconfig.Project {
	return buildconfig.Project{
		Root:        f.Root,
		Entry:       f.Entry,
		Template:    f.Template,
		StyleOutput: f.StyleOutput,
		DevHost:     f.DevHost,
		DevPort:     f.DevPort,
	}
}

// JSONCLoader reads kong flag defaults from JSON with comments, keyed by flag
// name with dashes as underscores, e.g. {"project_entry": "./src/script.js"}.
func JSONCLoader(r io.Reader) (kong.Resolver, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read project file: %w", err)
	}
	return kong.JSON(bytes.NewReader(jsonc.ToJSON(data)))
}
