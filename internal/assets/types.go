package assets

import (
	"errors"
	"fmt"
	"html/template"
	"strings"
	"sync"

	"github.com/wolfeidau/bundlecfg/internal/buildconfig"
)

// BuildMetadata is the subset of the esbuild metafile the pipeline reads.
type BuildMetadata struct {
	Inputs  map[string]InputInfo  `json:"inputs"`
	Outputs map[string]OutputInfo `json:"outputs"`
}

type InputInfo struct {
	Bytes int `json:"bytes"`
}

type OutputInfo struct {
	EntryPoint string       `json:"entryPoint"`
	CSSBundle  string       `json:"cssBundle"`
	Imports    []ImportInfo `json:"imports"`
}

type ImportInfo struct {
	Path string `json:"path"`
}

// Manifest lists the public URLs of one build's outputs.
type Manifest struct {
	Mode   buildconfig.BuildMode `json:"mode"`
	Script string                `json:"script"`
	Style  string                `json:"style,omitempty"`
	Assets []string              `json:"assets,omitempty"`
	HTML   string                `json:"html,omitempty"`
}

// BuildError carries the messages of a failed esbuild run.
type BuildError struct {
	Messages []string
}

func (e *BuildError) Error() string {
	if len(e.Messages) == 0 {
		return "esbuild failed with errors"
	}
	return fmt.Sprintf("esbuild failed with %d error(s): %s", len(e.Messages), strings.Join(e.Messages, "; "))
}

var ErrNotBuilt = errors.New("assets not built yet, call Build() first")

// Pipeline drives esbuild from an assembled BuildConfig
type Pipeline struct {
	config   *buildconfig.BuildConfig
	opts     Options
	manifest *Manifest
	shell    *template.Template
	sass     *sassCompiler
	mu       sync.RWMutex
}

// New creates a pipeline for cfg. The HTML shell template is loaded up front
// when the config asks for one.
func New(cfg *buildconfig.BuildConfig, opts Options) (*Pipeline, error) {
	if cfg == nil {
		return nil, errors.New("build config is required")
	}

	opts, err := opts.resolve(cfg.Output.BasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve asset paths: %w", err)
	}

	p := &Pipeline{
		config: cfg,
		opts:   opts,
		sass:   newSassCompiler(),
	}

	if spec, ok := cfg.Plugin(buildconfig.PluginHTMLShell); ok {
		tmpl, err := loadShell(opts.Root, spec.Options["template"])
		if err != nil {
			return nil, err
		}
		p.shell = tmpl
	}

	return p, nil
}

// Config returns the config the pipeline was created with.
func (p *Pipeline) Config() *buildconfig.BuildConfig {
	return p.config
}

// OutputDir is the absolute directory outputs are written to.
func (p *Pipeline) OutputDir() string {
	return p.opts.OutputDir
}

// Manifest returns the manifest of the last successful build.
func (p *Pipeline) Manifest() (*Manifest, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.manifest == nil {
		return nil, ErrNotBuilt
	}
	m := *p.manifest
	m.Assets = append([]string(nil), p.manifest.Assets...)
	return &m, nil
}

// Close releases the Sass compiler if one was started.
func (p *Pipeline) Close() error {
	return p.sass.Close()
}
