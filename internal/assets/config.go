package assets

import (
	"path/filepath"
)

type Options struct {
	// Project root, used as the working directory for resolution
	Root string
	// Output directory for built files, defaults to the config's base path
	OutputDir string
	// Path to the manifest written after each build, defaults to OutputDir/manifest.json
	ManifestPath string
	// Title passed to the HTML shell template
	Title string
}

// DefaultOptions returns options rooted at root with outputs under the config's base path
func DefaultOptions(root string) Options {
	return Options{
		Root:  root,
		Title: "App",
	}
}

func (o Options) resolve(basePath string) (Options, error) {
	root, err := filepath.Abs(o.Root)
	if err != nil {
		return o, err
	}
	o.Root = root

	if o.OutputDir == "" {
		o.OutputDir = basePath
	}
	if !filepath.IsAbs(o.OutputDir) {
		// base paths are already joined with the project root
		o.OutputDir, err = filepath.Abs(o.OutputDir)
		if err != nil {
			return o, err
		}
	}

	if o.ManifestPath == "" {
		o.ManifestPath = filepath.Join(o.OutputDir, "manifest.json")
	}

	return o, nil
}
