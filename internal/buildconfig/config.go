package buildconfig

// Plugin names.
const (
	PluginEnvInjector    = "replace-env-vars"
	PluginMinifier       = "minify"
	PluginStyleExtractor = "extract-styles-to-file"
	PluginHTMLShell      = "generate-html-shell"
	PluginLiveReload     = "enable-live-reload"
)

// Category names a family of source files handled by one ModuleRule.
type Category string

const (
	CategoryScript     Category = "script"
	CategoryStylesheet Category = "stylesheet"
	CategoryImage      Category = "image"
)

// Step is one named transform in a processing chain. Chains run outermost first.
type Step string

const (
	StepTranspile         Step = "transpile"
	StepInjectStyleTag    Step = "inject-as-style-tag"
	StepExtractToFile     Step = "extract-to-file"
	StepMinify            Step = "minify"
	StepResolveImports    Step = "resolve-imports"
	StepCompilePreprocess Step = "compile-preprocessor-syntax"
	StepVendorPrefix      Step = "vendor-prefix"
	StepInlineOrEmit      Step = "inline-or-emit"
)

// SourceMap is the devtool setting for a mode.
type SourceMap string

const (
	SourceMapEval              SourceMap = "eval"
	SourceMapCheapModuleLinked SourceMap = "cheap-module-source-map"
)

// BuildConfig is the full configuration handed to the bundler for one build.
// It is created by Assemble and must not be modified afterwards.
type BuildConfig struct {
	Mode      BuildMode    `json:"mode" yaml:"mode"`
	Entries   []string     `json:"entries" yaml:"entries"`
	Plugins   []PluginSpec `json:"plugins" yaml:"plugins"`
	Output    OutputPolicy `json:"output" yaml:"output"`
	Rules     []ModuleRule `json:"rules" yaml:"rules"`
	SourceMap SourceMap    `json:"sourceMap" yaml:"sourceMap"`
	DevServer *DevServer   `json:"devServer,omitempty" yaml:"devServer,omitempty"`
}

type PluginSpec struct {
	Name    string            `json:"name" yaml:"name"`
	Options map[string]string `json:"options,omitempty" yaml:"options,omitempty"`
}

type OutputPolicy struct {
	// BasePath is the directory outputs are written to.
	BasePath string `json:"basePath" yaml:"basePath"`
	// PublicPath is the URL prefix outputs are served from.
	PublicPath string `json:"publicPath" yaml:"publicPath"`
	// FilenameTemplate may contain a [hash:N] placeholder.
	FilenameTemplate string `json:"filename" yaml:"filename"`
}

type ModuleRule struct {
	Category Category          `json:"category" yaml:"category"`
	Pattern  string            `json:"test" yaml:"test"`
	Chain    []Step            `json:"use" yaml:"use"`
	Options  map[string]string `json:"options,omitempty" yaml:"options,omitempty"`
	Exclude  string            `json:"exclude" yaml:"exclude"`
}

// DevServer is what the development transport needs to serve the live bundle.
type DevServer struct {
	Host string `json:"host" yaml:"host"`
	Port int    `json:"port" yaml:"port"`
	Hot  bool   `json:"hot" yaml:"hot"`
}

// Plugin returns the named plugin if the config includes it.
func (c *BuildConfig) Plugin(name string) (PluginSpec, bool) {
	for _, p := range c.Plugins {
		if p.Name == name {
			return p, true
		}
	}
	return PluginSpec{}, false
}

func (c *BuildConfig) HasPlugin(name string) bool {
	_, ok := c.Plugin(name)
	return ok
}

// Rule returns the module rule for a category.
func (c *BuildConfig) Rule(category Category) (ModuleRule, bool) {
	for _, r := range c.Rules {
		if r.Category == category {
			return r, true
		}
	}
	return ModuleRule{}, false
}

// HasStep reports whether the rule's chain contains step.
func (r ModuleRule) HasStep(step Step) bool {
	for _, s := range r.Chain {
		if s == step {
			return true
		}
	}
	return false
}
