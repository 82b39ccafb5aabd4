package buildconfig

import "strconv"

// modeRules is everything that differs between modes. Anything not in here is
// shared by all modes.
type modeRules struct {
	entries    func(p Project) []string
	plugins    func(p Project) []PluginSpec
	publicPath string
	filename   string
	stylesheet []Step
	sourceMap  SourceMap
	devServer  func(p Project) *DevServer
}

var modeTable = map[BuildMode]modeRules{
	Development: {
		entries: func(p Project) []string {
			return []string{p.Entry, LiveReloadRuntimeEntry, LiveReloadClientEntry(p.DevHost, p.DevPort)}
		},
		plugins: func(Project) []PluginSpec {
			return []PluginSpec{{Name: PluginLiveReload}}
		},
		publicPath: "/dist/",
		filename:   "bundle.js",
		stylesheet: []Step{StepInjectStyleTag, StepResolveImports, StepCompilePreprocess, StepVendorPrefix},
		sourceMap:  SourceMapEval,
		devServer: func(p Project) *DevServer {
			return &DevServer{Host: p.DevHost, Port: p.DevPort, Hot: true}
		},
	},
	Production: {
		entries: func(p Project) []string {
			return []string{p.Entry}
		},
		plugins: func(p Project) []PluginSpec {
			return []PluginSpec{
				{Name: PluginEnvInjector, Options: map[string]string{"NODE_ENV": string(Production)}},
				{Name: PluginMinifier, Options: map[string]string{"sourceMap": "true", "mangle": "false"}},
				{Name: PluginStyleExtractor, Options: map[string]string{"filename": p.StyleOutput}},
				{Name: PluginHTMLShell, Options: map[string]string{"template": p.Template}},
			}
		},
		publicPath: "/",
		filename:   "bundle.[hash:12].min.js",
		stylesheet: []Step{StepExtractToFile, StepMinify, StepResolveImports, StepCompilePreprocess, StepVendorPrefix},
		sourceMap:  SourceMapCheapModuleLinked,
		devServer:  func(Project) *DevServer { return nil },
	},
}

// sharedRules builds the module rules for a mode. Only the stylesheet chain
// comes from the mode table.
func sharedRules(stylesheet []Step) []ModuleRule {
	return []ModuleRule{
		{
			Category: CategoryScript,
			Pattern:  `\.(js|jsx)$`,
			Chain:    []Step{StepTranspile},
			Exclude:  ExternalDir,
		},
		{
			Category: CategoryStylesheet,
			Pattern:  `\.(css|scss)$`,
			Chain:    append([]Step(nil), stylesheet...),
			Exclude:  ExternalDir,
		},
		{
			Category: CategoryImage,
			Pattern:  `\.(png|gif|jpg)$`,
			Chain:    []Step{StepInlineOrEmit},
			Options: map[string]string{
				"limit": strconv.Itoa(ImageInlineLimit),
				"name":  "images/[hash:12].[ext]",
			},
			Exclude: ExternalDir,
		},
	}
}
