package assets

import (
	"fmt"
	"path"
	"strconv"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/wolfeidau/bundlecfg/internal/buildconfig"
)

const (
	entryBase     = "bundle"
	entrySource   = "bundle-entry.js"
	imageAssetDir = "images"
)

// browser targets used when the stylesheet chain asks for vendor prefixes
var prefixEngines = []api.Engine{
	{Name: api.EngineChrome, Version: "58"},
	{Name: api.EngineEdge, Version: "16"},
	{Name: api.EngineFirefox, Version: "57"},
	{Name: api.EngineSafari, Version: "11"},
}

// BuildOptions translates the config into esbuild options. Outputs are not
// written by esbuild; emit renames and writes them.
func (p *Pipeline) BuildOptions() (api.BuildOptions, error) {
	cfg := p.config

	styles, ok := cfg.Rule(buildconfig.CategoryStylesheet)
	if !ok {
		return api.BuildOptions{}, fmt.Errorf("config has no %s rule", buildconfig.CategoryStylesheet)
	}
	images, ok := cfg.Rule(buildconfig.CategoryImage)
	if !ok {
		return api.BuildOptions{}, fmt.Errorf("config has no %s rule", buildconfig.CategoryImage)
	}
	scripts, ok := cfg.Rule(buildconfig.CategoryScript)
	if !ok {
		return api.BuildOptions{}, fmt.Errorf("config has no %s rule", buildconfig.CategoryScript)
	}

	limit := buildconfig.ImageInlineLimit
	if v, ok := images.Options["limit"]; ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return api.BuildOptions{}, fmt.Errorf("invalid image limit %q: %w", v, err)
		}
		limit = n
	}

	opts := api.BuildOptions{
		AbsWorkingDir: p.opts.Root,
		Stdin: &api.StdinOptions{
			Contents:   entryModule(cfg.Entries),
			ResolveDir: p.opts.Root,
			Sourcefile: entrySource,
			Loader:     api.LoaderJS,
		},
		Bundle:      true,
		Write:       false,
		Metafile:    true,
		Outdir:      p.opts.OutputDir,
		EntryNames:  entryBase,
		AssetNames:  assetStagingNames(images),
		PublicPath:  cfg.Output.PublicPath,
		Platform:    api.PlatformBrowser,
		Format:      api.FormatIIFE,
		JSX:         api.JSXAutomatic,
		TreeShaking: api.TreeShakingTrue,
		Sourcemap:   sourceMap(cfg.SourceMap),
		LogLevel:    api.LogLevelSilent,
		Loader: map[string]api.Loader{
			".png": api.LoaderFile,
			".gif": api.LoaderFile,
			".jpg": api.LoaderFile,
		},
	}

	if scripts.HasStep(buildconfig.StepTranspile) {
		opts.Loader[".js"] = api.LoaderJSX
		opts.Loader[".jsx"] = api.LoaderJSX
	}

	if spec, ok := cfg.Plugin(buildconfig.PluginEnvInjector); ok {
		opts.Define = make(map[string]string, len(spec.Options))
		for k, v := range spec.Options {
			opts.Define["process.env."+k] = strconv.Quote(v)
		}
	}

	if spec, ok := cfg.Plugin(buildconfig.PluginMinifier); ok {
		opts.MinifyWhitespace = true
		opts.MinifySyntax = true
		opts.MinifyIdentifiers = spec.Options["mangle"] != "false"
	}
	if styles.HasStep(buildconfig.StepMinify) {
		opts.MinifyWhitespace = true
		opts.MinifySyntax = true
	}

	if styles.HasStep(buildconfig.StepVendorPrefix) {
		opts.Engines = prefixEngines
	}

	if cfg.HasPlugin(buildconfig.PluginLiveReload) {
		opts.Plugins = append(opts.Plugins, liveReloadPlugin())
	}
	opts.Plugins = append(opts.Plugins, excludePlugin(scripts, styles, images))
	if styles.HasStep(buildconfig.StepInjectStyleTag) {
		opts.Plugins = append(opts.Plugins, injectStylePlugin(p, styles))
	}
	if styles.HasStep(buildconfig.StepCompilePreprocess) {
		opts.Plugins = append(opts.Plugins, sassPlugin(p.sass))
	}
	if images.HasStep(buildconfig.StepInlineOrEmit) {
		opts.Plugins = append(opts.Plugins, imagePlugin(images, limit))
	}

	return opts, nil
}

// entryModule imports every entry in order so they land in one bundle.
func entryModule(entries []string) string {
	var b strings.Builder
	for _, e := range entries {
		fmt.Fprintf(&b, "import %s;\n", strconv.Quote(e))
	}
	return b.String()
}

// assetStagingNames places esbuild's asset outputs in the directory of the
// image rule's name template. emit gives them their final names.
func assetStagingNames(rule buildconfig.ModuleRule) string {
	dir := imageAssetDir
	if name := rule.Options["name"]; name != "" {
		dir = path.Dir(name)
	}
	if dir == "." {
		return "[hash]"
	}
	return dir + "/[hash]"
}

func sourceMap(s buildconfig.SourceMap) api.SourceMap {
	switch s {
	case buildconfig.SourceMapEval:
		return api.SourceMapInline
	case buildconfig.SourceMapCheapModuleLinked:
		return api.SourceMapLinked
	default:
		return api.SourceMapNone
	}
}
