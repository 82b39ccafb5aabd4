package assets

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/bep/godartsass/v2"
)

// sassCompiler starts the Dart Sass transpiler on first use.
type sassCompiler struct {
	mu         sync.Mutex
	transpiler *godartsass.Transpiler
}

func newSassCompiler() *sassCompiler {
	return &sassCompiler{}
}

func (s *sassCompiler) start() (*godartsass.Transpiler, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.transpiler != nil {
		return s.transpiler, nil
	}

	t, err := godartsass.Start(godartsass.Options{})
	if err != nil {
		return nil, fmt.Errorf("failed to start dart sass: %w", err)
	}
	s.transpiler = t
	return t, nil
}

// Compile turns one .scss file into CSS. Partials are resolved relative to the file.
func (s *sassCompiler) Compile(path string) (string, error) {
	src, err := os.ReadFile(path) // #nosec G304 - paths come from esbuild resolution
	if err != nil {
		return "", err
	}

	t, err := s.start()
	if err != nil {
		return "", err
	}

	result, err := t.Execute(godartsass.Args{
		Source:       string(src),
		SourceSyntax: godartsass.SourceSyntaxSCSS,
		IncludePaths: []string{filepath.Dir(path)},
	})
	if err != nil {
		return "", fmt.Errorf("failed to compile %s: %w", path, err)
	}

	return result.CSS, nil
}

func (s *sassCompiler) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.transpiler == nil {
		return nil
	}
	err := s.transpiler.Close()
	s.transpiler = nil
	return err
}
