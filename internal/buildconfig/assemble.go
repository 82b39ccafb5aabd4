package buildconfig

// Assemble builds the configuration for mode using DefaultProject.
func Assemble(mode BuildMode) (*BuildConfig, error) {
	return DefaultProject().Assemble(mode)
}

// Assemble builds a fresh configuration for mode. An unknown mode returns a
// ConfigurationError and no config.
func (p Project) Assemble(mode BuildMode) (*BuildConfig, error) {
	rules, ok := modeTable[mode]
	if !ok {
		return nil, &ConfigurationError{Signal: string(mode), Reason: "is not recognized"}
	}

	return &BuildConfig{
		Mode:    mode,
		Entries: rules.entries(p),
		Plugins: rules.plugins(p),
		Output: OutputPolicy{
			BasePath:         p.basePath(),
			PublicPath:       rules.publicPath,
			FilenameTemplate: rules.filename,
		},
		Rules:     sharedRules(rules.stylesheet),
		SourceMap: rules.sourceMap,
		DevServer: rules.devServer(p),
	}, nil
}
