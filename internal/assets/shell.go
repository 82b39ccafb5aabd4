package assets

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"path/filepath"
)

// loadShell parses the HTML shell template relative to root.
func loadShell(root, path string) (*template.Template, error) {
	if path == "" {
		return nil, errors.New("html shell template path is empty")
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(root, path)
	}

	funcs := template.FuncMap{
		"marshal": marshal,
		"safe": func(s string) template.HTML {
			return template.HTML(s) //nolint:gosec
		},
	}

	tmpl, err := template.New(filepath.Base(path)).Funcs(funcs).ParseFiles(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load html shell template: %w", err)
	}
	return tmpl, nil
}

// renderShell executes the shell template with the manifest's script and style.
func renderShell(tmpl *template.Template, title string, m *Manifest) ([]byte, error) {
	data := map[string]any{
		"Title":   title,
		"Scripts": nonEmpty(m.Script),
		"Styles":  nonEmpty(m.Style),
		"Mode":    string(m.Mode),
	}

	buf := new(bytes.Buffer)
	if err := tmpl.Execute(buf, data); err != nil {
		return nil, fmt.Errorf("failed to render html shell: %w", err)
	}
	return buf.Bytes(), nil
}

func nonEmpty(values ...string) []string {
	out := []string{}
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

func marshal(value any) string {
	buf := new(bytes.Buffer)

	if err := json.NewEncoder(buf).Encode(value); err != nil {
		panic(errors.New("context can only be json serializable"))
	}

	return buf.String()
}
