package assets

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/bundlecfg/internal/buildconfig"
	"github.com/wolfeidau/bundlecfg/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Build runs esbuild once, writes the outputs and returns their manifest.
// Cancelling ctx cancels the running build.
func (p *Pipeline) Build(ctx context.Context) (manifest *Manifest, err error) {
	ctx, span := telemetry.Tracer().Start(ctx, "assets.Build",
		trace.WithAttributes(attribute.String("mode", p.config.Mode.String())))
	defer span.End()

	started := time.Now()
	defer func() { p.record(ctx, started, err) }()

	opts, err := p.BuildOptions()
	if err != nil {
		return nil, err
	}

	bctx, cerr := api.Context(opts)
	if cerr != nil {
		return nil, buildError(cerr.Errors)
	}
	defer bctx.Dispose()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			bctx.Cancel()
		case <-done:
		}
	}()

	log.Info().Str("mode", p.config.Mode.String()).Strs("entrypoints", p.config.Entries).Msg("Building assets")

	result := bctx.Rebuild()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(result.Errors) > 0 {
		return nil, logErrors(result.Errors)
	}

	return p.emit(result)
}

// Watch builds, then rebuilds on every change until ctx is done. onBuild is
// called after each build with its manifest or error.
func (p *Pipeline) Watch(ctx context.Context, onBuild func(*Manifest, error)) error {
	opts, err := p.BuildOptions()
	if err != nil {
		return err
	}

	opts.Plugins = append(opts.Plugins, api.Plugin{
		Name: "emit",
		Setup: func(build api.PluginBuild) {
			var started time.Time
			build.OnStart(func() (api.OnStartResult, error) {
				started = time.Now()
				return api.OnStartResult{}, nil
			})
			build.OnEnd(func(result *api.BuildResult) (api.OnEndResult, error) {
				if len(result.Errors) > 0 {
					err := logErrors(result.Errors)
					p.record(ctx, started, err)
					onBuild(nil, err)
					return api.OnEndResult{}, nil
				}
				m, err := p.emit(*result)
				p.record(ctx, started, err)
				onBuild(m, err)
				return api.OnEndResult{}, nil
			})
		},
	})

	bctx, cerr := api.Context(opts)
	if cerr != nil {
		return buildError(cerr.Errors)
	}
	defer bctx.Dispose()

	if err := bctx.Watch(api.WatchOptions{}); err != nil {
		return fmt.Errorf("failed to start watch: %w", err)
	}
	log.Info().Str("outdir", p.opts.OutputDir).Msg("Watching assets")

	<-ctx.Done()
	return nil
}

// emit writes the build outputs under their configured names. Emitted assets
// are renamed first so the script and stylesheet hashes cover the final
// asset references.
func (p *Pipeline) emit(result api.BuildResult) (*Manifest, error) {
	var metadata BuildMetadata
	if err := json.Unmarshal([]byte(result.Metafile), &metadata); err != nil {
		return nil, fmt.Errorf("failed to parse metafile: %w", err)
	}

	var entryKey string
	for key, info := range metadata.Outputs {
		if info.EntryPoint == entrySource {
			entryKey = key
			break
		}
	}
	if entryKey == "" {
		return nil, fmt.Errorf("entrypoint not found in metadata")
	}
	cssKey := metadata.Outputs[entryKey].CSSBundle

	byKey := make(map[string]api.OutputFile, len(result.OutputFiles))
	contents := make(map[string][]byte, len(result.OutputFiles))
	for _, file := range result.OutputFiles {
		key := p.metaKey(file.Path)
		byKey[key] = file
		contents[key] = file.Contents
	}

	names := map[string]string{}
	var refs []string
	if template := p.assetTemplate(); template != "" {
		for key, file := range byKey {
			if key == entryKey || key == cssKey || strings.HasSuffix(key, ".map") {
				continue
			}
			staged, err := p.outputName(file)
			if err != nil {
				return nil, err
			}
			names[key] = assetName(template, staged, file.Contents)
			refs = append(refs, p.publicURL(staged), p.publicURL(names[key]))
		}
	}
	rewrite := strings.NewReplacer(refs...)

	for _, key := range []string{entryKey, cssKey} {
		if _, ok := byKey[key]; !ok {
			continue
		}
		contents[key] = []byte(rewrite.Replace(string(contents[key])))

		template := p.config.Output.FilenameTemplate
		if key == cssKey {
			template = p.styleOutput()
		}
		names[key] = expandName(template, contents[key])
		if _, hasMap := byKey[key+".map"]; hasMap {
			names[key+".map"] = names[key] + ".map"
			contents[key] = p.rewriteSourceMapURL(contents[key], key, names[key+".map"])
		}
	}

	manifest := &Manifest{Mode: p.config.Mode}

	for key, file := range byKey {
		name, renamed := names[key]
		if !renamed {
			staged, err := p.outputName(file)
			if err != nil {
				return nil, err
			}
			name = staged
		}

		data := contents[key]
		if err := p.writeOutput(name, data); err != nil {
			return nil, err
		}
		telemetry.GetMetrics().OutputBytes.Add(context.Background(), int64(len(data)), p.modeAttr())

		public := p.publicURL(name)
		switch key {
		case entryKey:
			manifest.Script = public
		case cssKey:
			manifest.Style = public
		default:
			if !strings.HasSuffix(name, ".map") {
				manifest.Assets = append(manifest.Assets, public)
			}
		}
		log.Info().Str("file", name).Msg("Built file")
	}
	sort.Strings(manifest.Assets)

	if p.shell != nil {
		html, err := renderShell(p.shell, p.opts.Title, manifest)
		if err != nil {
			return nil, err
		}
		if err := p.writeOutput("index.html", html); err != nil {
			return nil, err
		}
		manifest.HTML = p.publicURL("index.html")
	}

	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(p.opts.ManifestPath), 0750); err != nil {
		return nil, err
	}
	if err := os.WriteFile(p.opts.ManifestPath, data, 0600); err != nil {
		return nil, err
	}

	p.mu.Lock()
	p.manifest = manifest
	p.mu.Unlock()

	return manifest, nil
}

// record reports one finished build to the build metrics and the current span.
func (p *Pipeline) record(ctx context.Context, started time.Time, err error) {
	m := telemetry.GetMetrics()
	attrs := p.modeAttr()

	m.BuildsTotal.Add(ctx, 1, attrs)
	m.BuildDuration.Record(ctx, float64(time.Since(started).Milliseconds()), attrs)

	if err != nil {
		m.BuildErrorsTotal.Add(ctx, 1, attrs)
		span := trace.SpanFromContext(ctx)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

func (p *Pipeline) modeAttr() metric.MeasurementOption {
	return metric.WithAttributes(attribute.String("mode", p.config.Mode.String()))
}

// assetTemplate is the image rule's name option, empty when emitted assets
// keep the names esbuild gave them.
func (p *Pipeline) assetTemplate() string {
	rule, ok := p.config.Rule(buildconfig.CategoryImage)
	if !ok {
		return ""
	}
	return rule.Options["name"]
}

func (p *Pipeline) styleOutput() string {
	if spec, ok := p.config.Plugin(buildconfig.PluginStyleExtractor); ok && spec.Options["filename"] != "" {
		return spec.Options["filename"]
	}
	return entryBase + ".css"
}

// metaKey converts an absolute output path to its metafile key.
func (p *Pipeline) metaKey(file string) string {
	rel, err := filepath.Rel(p.opts.Root, file)
	if err != nil {
		return file
	}
	return filepath.ToSlash(rel)
}

// outputName is the slash separated path esbuild gave file under the output directory.
func (p *Pipeline) outputName(file api.OutputFile) (string, error) {
	rel, err := filepath.Rel(p.opts.OutputDir, file.Path)
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(rel), nil
}

func (p *Pipeline) publicURL(name string) string {
	return strings.TrimSuffix(p.config.Output.PublicPath, "/") + "/" + name
}

func (p *Pipeline) writeOutput(name string, contents []byte) error {
	target := filepath.Join(p.opts.OutputDir, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(target), 0750); err != nil {
		return err
	}
	return os.WriteFile(target, contents, 0600)
}

// rewriteSourceMapURL points a renamed output at its renamed source map.
// esbuild prefixes the map URL with the public path.
func (p *Pipeline) rewriteSourceMapURL(contents []byte, key, mapName string) []byte {
	old := "sourceMappingURL=" + p.publicURL(path.Base(key)+".map")
	return []byte(strings.Replace(string(contents), old, "sourceMappingURL="+p.publicURL(mapName), 1))
}

func logErrors(msgs []api.Message) error {
	for _, msg := range msgs {
		log.Error().Str("error", msg.Text).Msg("Build error")
	}
	return buildError(msgs)
}

func buildError(msgs []api.Message) error {
	err := &BuildError{}
	for _, msg := range msgs {
		text := msg.Text
		if msg.Location != nil {
			text = fmt.Sprintf("%s:%d:%d: %s", msg.Location.File, msg.Location.Line, msg.Location.Column, msg.Text)
		}
		err.Messages = append(err.Messages, text)
	}
	return err
}
