package assets

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/bundlecfg/internal/buildconfig"
)

const (
	liveReloadNamespace = "livereload"
	styleNamespace      = "inject-style"
)

// styleModuleTemplate wraps compiled CSS in a module that injects a <style> tag.
// The data-file attribute lets a rebuilt module replace its previous tag.
const styleModuleTemplate = `const __file = %s;
let s = document.querySelector('style[data-file="' + __file + '"]');
if (!s) { s = document.createElement('style'); s.dataset.file = __file; document.head.appendChild(s); }
s.textContent = %s;
`

const liveReloadClientTemplate = `const source = new EventSource(%s);
source.addEventListener("change", (e) => {
  window.dispatchEvent(new CustomEvent("livereload", { detail: JSON.parse(e.data || "{}") }));
});
`

const liveReloadRuntime = `window.addEventListener("livereload", () => {
  window.location.reload();
});
`

type skipInject struct{}

// liveReloadPlugin resolves the live reload entries to virtual modules.
func liveReloadPlugin() api.Plugin {
	return api.Plugin{
		Name: "live-reload",
		Setup: func(build api.PluginBuild) {
			build.OnResolve(api.OnResolveOptions{Filter: `^livereload/`},
				func(args api.OnResolveArgs) (api.OnResolveResult, error) {
					return api.OnResolveResult{Path: args.Path, Namespace: liveReloadNamespace}, nil
				})

			build.OnLoad(api.OnLoadOptions{Filter: `.*`, Namespace: liveReloadNamespace},
				func(args api.OnLoadArgs) (api.OnLoadResult, error) {
					contents, err := liveReloadModule(args.Path)
					if err != nil {
						return api.OnLoadResult{}, err
					}
					return api.OnLoadResult{Contents: &contents, Loader: api.LoaderJS}, nil
				})
		},
	}
}

func liveReloadModule(path string) (string, error) {
	if path == buildconfig.LiveReloadRuntimeEntry {
		return liveReloadRuntime, nil
	}

	origin, ok := strings.CutPrefix(path, buildconfig.LiveReloadClientPrefix)
	if !ok || origin == "" {
		return "", fmt.Errorf("unknown live reload module %q", path)
	}

	url, err := json.Marshal(strings.TrimSuffix(origin, "/") + buildconfig.LiveReloadPath)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(liveReloadClientTemplate, url), nil
}

// excludePlugin loads files under a rule's excluded directory with plain
// loaders so no processing chain applies to them.
func excludePlugin(rules ...buildconfig.ModuleRule) api.Plugin {
	return api.Plugin{
		Name: "exclude",
		Setup: func(build api.PluginBuild) {
			for _, rule := range rules {
				if rule.Exclude == "" {
					continue
				}
				build.OnLoad(api.OnLoadOptions{Filter: rule.Pattern, Namespace: "file"},
					func(args api.OnLoadArgs) (api.OnLoadResult, error) {
						if !excluded(args.Path, rule.Exclude) {
							return api.OnLoadResult{}, nil
						}
						loader, ok := plainLoader(rule.Category, args.Path)
						if !ok {
							return api.OnLoadResult{}, nil
						}
						return loadFile(args.Path, loader)
					})
			}
		},
	}
}

func plainLoader(category buildconfig.Category, path string) (api.Loader, bool) {
	switch category {
	case buildconfig.CategoryScript:
		return api.LoaderJS, true
	case buildconfig.CategoryImage:
		return api.LoaderFile, true
	case buildconfig.CategoryStylesheet:
		if filepath.Ext(path) == ".css" {
			return api.LoaderCSS, true
		}
	}
	return api.LoaderNone, false
}

// injectStylePlugin turns stylesheets imported from scripts into modules that
// inject the compiled CSS into the page.
func injectStylePlugin(p *Pipeline, rule buildconfig.ModuleRule) api.Plugin {
	return api.Plugin{
		Name: "inject-style-tag",
		Setup: func(build api.PluginBuild) {
			build.OnResolve(api.OnResolveOptions{Filter: rule.Pattern},
				func(args api.OnResolveArgs) (api.OnResolveResult, error) {
					if !fromScript(args.Kind) {
						return api.OnResolveResult{}, nil
					}
					if _, skip := args.PluginData.(skipInject); skip {
						return api.OnResolveResult{}, nil
					}

					res := build.Resolve(args.Path, api.ResolveOptions{
						Kind:       args.Kind,
						ResolveDir: args.ResolveDir,
						Importer:   args.Importer,
						PluginData: skipInject{},
					})
					if len(res.Errors) > 0 {
						return api.OnResolveResult{Errors: res.Errors}, nil
					}
					if excluded(res.Path, rule.Exclude) {
						return api.OnResolveResult{Path: res.Path, Namespace: res.Namespace}, nil
					}

					return api.OnResolveResult{Path: res.Path, Namespace: styleNamespace}, nil
				})

			build.OnLoad(api.OnLoadOptions{Filter: `.*`, Namespace: styleNamespace},
				func(args api.OnLoadArgs) (api.OnLoadResult, error) {
					css, watch, err := p.compileStylesheet(args.Path, rule)
					if err != nil {
						return api.OnLoadResult{}, err
					}

					id, err := json.Marshal(p.relative(args.Path))
					if err != nil {
						return api.OnLoadResult{}, err
					}
					text, err := json.Marshal(css)
					if err != nil {
						return api.OnLoadResult{}, err
					}

					contents := fmt.Sprintf(styleModuleTemplate, id, text)
					return api.OnLoadResult{
						Contents:   &contents,
						Loader:     api.LoaderJS,
						ResolveDir: filepath.Dir(args.Path),
						WatchFiles: watch,
					}, nil
				})
		},
	}
}

// compileStylesheet runs the remaining stylesheet chain on one file and
// returns the CSS text with every input it read.
func (p *Pipeline) compileStylesheet(path string, rule buildconfig.ModuleRule) (string, []string, error) {
	opts := api.BuildOptions{
		AbsWorkingDir: p.opts.Root,
		EntryPoints:   []string{path},
		Bundle:        rule.HasStep(buildconfig.StepResolveImports),
		Write:         false,
		Metafile:      true,
		Outdir:        p.opts.OutputDir,
		LogLevel:      api.LogLevelSilent,
		Loader: map[string]api.Loader{
			".png": api.LoaderDataURL,
			".gif": api.LoaderDataURL,
			".jpg": api.LoaderDataURL,
		},
	}
	if rule.HasStep(buildconfig.StepVendorPrefix) {
		opts.Engines = prefixEngines
	}
	if rule.HasStep(buildconfig.StepCompilePreprocess) {
		opts.Plugins = []api.Plugin{sassPlugin(p.sass)}
	}

	result := api.Build(opts)
	if len(result.Errors) > 0 {
		return "", nil, buildError(result.Errors)
	}

	var css strings.Builder
	for _, file := range result.OutputFiles {
		if filepath.Ext(file.Path) == ".css" {
			css.Write(file.Contents)
		}
	}

	var metadata BuildMetadata
	if err := json.Unmarshal([]byte(result.Metafile), &metadata); err != nil {
		return "", nil, err
	}
	watch := make([]string, 0, len(metadata.Inputs))
	for input := range metadata.Inputs {
		if strings.Contains(input, ":") {
			continue
		}
		watch = append(watch, filepath.Join(p.opts.Root, input))
	}

	return css.String(), watch, nil
}

// sassPlugin compiles .scss files with Dart Sass before esbuild sees them.
func sassPlugin(compiler *sassCompiler) api.Plugin {
	return api.Plugin{
		Name: "sass",
		Setup: func(build api.PluginBuild) {
			build.OnLoad(api.OnLoadOptions{Filter: `\.scss$`, Namespace: "file"},
				func(args api.OnLoadArgs) (api.OnLoadResult, error) {
					css, err := compiler.Compile(args.Path)
					if err != nil {
						return api.OnLoadResult{}, err
					}
					return api.OnLoadResult{
						Contents:   &css,
						Loader:     api.LoaderCSS,
						ResolveDir: filepath.Dir(args.Path),
					}, nil
				})
		},
	}
}

// imagePlugin inlines images smaller than limit as data URLs and emits the
// rest as hashed files.
func imagePlugin(rule buildconfig.ModuleRule, limit int) api.Plugin {
	return api.Plugin{
		Name: "inline-or-emit",
		Setup: func(build api.PluginBuild) {
			build.OnLoad(api.OnLoadOptions{Filter: rule.Pattern, Namespace: "file"},
				func(args api.OnLoadArgs) (api.OnLoadResult, error) {
					info, err := os.Stat(args.Path)
					if err != nil {
						return api.OnLoadResult{}, err
					}

					loader := api.LoaderFile
					if info.Size() < int64(limit) {
						loader = api.LoaderDataURL
					}
					log.Debug().Str("image", args.Path).Int64("bytes", info.Size()).Bool("inline", loader == api.LoaderDataURL).Msg("Loading image")

					return loadFile(args.Path, loader)
				})
		},
	}
}

func loadFile(path string, loader api.Loader) (api.OnLoadResult, error) {
	data, err := os.ReadFile(path) // #nosec G304 - paths come from esbuild resolution
	if err != nil {
		return api.OnLoadResult{}, err
	}
	contents := string(data)
	return api.OnLoadResult{
		Contents:   &contents,
		Loader:     loader,
		ResolveDir: filepath.Dir(path),
	}, nil
}

func fromScript(kind api.ResolveKind) bool {
	switch kind {
	case api.ResolveJSImportStatement, api.ResolveJSRequireCall, api.ResolveJSDynamicImport:
		return true
	default:
		return false
	}
}

func excluded(path, dir string) bool {
	if dir == "" {
		return false
	}
	return slices.Contains(strings.Split(filepath.ToSlash(path), "/"), dir)
}

func (p *Pipeline) relative(path string) string {
	rel, err := filepath.Rel(p.opts.Root, path)
	if err != nil {
		return path
	}
	return filepath.ToSlash(rel)
}
