package buildconfig

import (
	"fmt"
	"path/filepath"
)

const (
	// LiveReloadRuntimeEntry is the entry that applies reload notifications in the page.
	LiveReloadRuntimeEntry = "livereload/runtime"
	// LiveReloadClientPrefix prefixes the entry that connects to the dev transport.
	LiveReloadClientPrefix = "livereload/client?"

	// ImageInlineLimit is the size in bytes below which images are inlined.
	ImageInlineLimit = 30000

	ExternalDir = "node_modules"

	// LiveReloadPath is where the dev transport streams reload notifications.
	LiveReloadPath = "/__livereload"
)

// Project holds the fixed inputs of the mode tables. It is settled once at
// process start; after that every config is a function of the mode alone.
type Project struct {
	Root        string `json:"root"`
	Entry       string `json:"entry"`
	Template    string `json:"template"`
	StyleOutput string `json:"styleOutput"`
	DevHost     string `json:"devHost"`
	DevPort     int    `json:"devPort"`
}

// DefaultProject mirrors the layout of the React example project.
func DefaultProject() Project {
	return Project{
		Root:        ".",
		Entry:       "./src/index.jsx",
		Template:    "config/template.html",
		StyleOutput: "style-[contenthash:10].min.css",
		DevHost:     "localhost",
		DevPort:     8080,
	}
}

// LiveReloadClientEntry returns the entry that connects a page to the dev transport at host:port.
func LiveReloadClientEntry(host string, port int) string {
	return fmt.Sprintf("%shttp://%s:%d", LiveReloadClientPrefix, host, port)
}

func (p Project) basePath() string {
	return filepath.Join(p.Root, "dist")
}
