package assets

import (
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/bundlecfg/internal/buildconfig"
)

const testTemplate = `<!doctype html>
<html>
<head>
<title>{{.Title}}</title>
{{range .Styles}}<link rel="stylesheet" href="{{.}}">
{{end}}</head>
<body>
<div id="app"></div>
{{range .Scripts}}<script src="{{.}}"></script>
{{end}}</body>
</html>
`

func writeFile(t *testing.T, root, name string, data []byte) {
	t.Helper()
	target := filepath.Join(root, filepath.FromSlash(name))
	require.NoError(t, os.MkdirAll(filepath.Dir(target), 0750))
	require.NoError(t, os.WriteFile(target, data, 0600))
}

func setupProject(t *testing.T) buildconfig.Project {
	t.Helper()
	root := t.TempDir()

	writeFile(t, root, "src/index.js", []byte(`import "./styles/main.css";
import small from "./images/small.png";
import big from "./images/big.png";

const app = document.getElementById("app");
app.innerHTML = "<img src=\"" + small + "\"><img src=\"" + big + "\">";
`))
	writeFile(t, root, "src/styles/base.css", []byte("body { margin: 0; }\n"))
	writeFile(t, root, "src/styles/main.css", []byte("@import \"./base.css\";\n.app { display: flex; }\n"))
	writeFile(t, root, "src/images/small.png", make([]byte, 100))
	writeFile(t, root, "src/images/big.png", make([]byte, buildconfig.ImageInlineLimit+1))
	writeFile(t, root, "config/template.html", []byte(testTemplate))

	p := buildconfig.DefaultProject()
	p.Root = root
	p.Entry = "./src/index.js"
	return p
}

func newPipeline(t *testing.T, project buildconfig.Project, mode buildconfig.BuildMode) *Pipeline {
	t.Helper()
	cfg, err := project.Assemble(mode)
	require.NoError(t, err)

	p, err := New(cfg, DefaultOptions(project.Root))
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, p.Close()) })
	return p
}

func readOutput(t *testing.T, p *Pipeline, url string) string {
	t.Helper()
	name := strings.TrimPrefix(url, p.Config().Output.PublicPath)
	data, err := os.ReadFile(filepath.Join(p.OutputDir(), filepath.FromSlash(name)))
	require.NoError(t, err)
	return string(data)
}

func TestBuild_Production(t *testing.T) {
	project := setupProject(t)
	p := newPipeline(t, project, buildconfig.Production)

	_, err := p.Manifest()
	require.ErrorIs(t, err, ErrNotBuilt)

	m, err := p.Build(context.Background())
	require.NoError(t, err)

	require.Equal(t, buildconfig.Production, m.Mode)
	require.Regexp(t, regexp.MustCompile(`^/bundle\.[0-9a-f]{12}\.min\.js$`), m.Script)
	require.Regexp(t, regexp.MustCompile(`^/style-[0-9a-f]{10}\.min\.css$`), m.Style)
	require.Equal(t, "/index.html", m.HTML)

	// only the large image is emitted
	require.Len(t, m.Assets, 1)
	require.Regexp(t, regexp.MustCompile(`^/images/[0-9a-f]{12}\.png$`), m.Assets[0])

	script := readOutput(t, p, m.Script)
	require.Contains(t, script, "data:image/png;base64,")
	require.Contains(t, script, m.Assets[0])
	require.Contains(t, script, "sourceMappingURL="+m.Script+".map")
	require.NotContains(t, script, "sourceMappingURL=/bundle.js.map")
	require.NotContains(t, script, "EventSource")
	require.FileExists(t, filepath.Join(p.OutputDir(), filepath.Base(m.Script)+".map"))

	style := readOutput(t, p, m.Style)
	require.Contains(t, style, "margin:0")
	require.Contains(t, style, "display:flex")
	require.Contains(t, style, "sourceMappingURL="+m.Style+".map")
	require.FileExists(t, filepath.Join(p.OutputDir(), filepath.Base(m.Style)+".map"))

	html := readOutput(t, p, m.HTML)
	require.Contains(t, html, `<script src="`+m.Script+`"></script>`)
	require.Contains(t, html, `<link rel="stylesheet" href="`+m.Style+`">`)

	data, err := os.ReadFile(filepath.Join(p.OutputDir(), "manifest.json"))
	require.NoError(t, err)
	var written Manifest
	require.NoError(t, json.Unmarshal(data, &written))
	require.Equal(t, *m, written)

	cached, err := p.Manifest()
	require.NoError(t, err)
	require.Equal(t, m, cached)
}

func TestBuild_ProductionStableNames(t *testing.T) {
	project := setupProject(t)

	first, err := newPipeline(t, project, buildconfig.Production).Build(context.Background())
	require.NoError(t, err)
	second, err := newPipeline(t, project, buildconfig.Production).Build(context.Background())
	require.NoError(t, err)

	require.Equal(t, first.Script, second.Script)
	require.Equal(t, first.Style, second.Style)
}

func TestBuild_Development(t *testing.T) {
	project := setupProject(t)
	p := newPipeline(t, project, buildconfig.Development)

	m, err := p.Build(context.Background())
	require.NoError(t, err)

	require.Equal(t, "/dist/bundle.js", m.Script)
	require.Empty(t, m.Style)
	require.Empty(t, m.HTML)
	require.NoFileExists(t, filepath.Join(p.OutputDir(), "index.html"))

	script := readOutput(t, p, m.Script)
	require.Contains(t, script, `createElement("style")`)
	require.Contains(t, script, "display: flex;")
	require.Contains(t, script, "margin: 0;")
	require.Contains(t, script, "http://localhost:8080/__livereload")
	require.Contains(t, script, "location.reload()")
	require.Contains(t, script, "sourceMappingURL=data:application/json;base64,")

	matches, err := filepath.Glob(filepath.Join(p.OutputDir(), "*.css"))
	require.NoError(t, err)
	require.Empty(t, matches)
}

func TestBuild_ExcludesExternalDependencies(t *testing.T) {
	project := setupProject(t)
	writeFile(t, project.Root, "node_modules/icons/tiny.png", make([]byte, 10))
	writeFile(t, project.Root, "src/index.js", []byte(`import tiny from "icons/tiny.png";
document.body.innerHTML = tiny;
`))

	p := newPipeline(t, project, buildconfig.Production)
	m, err := p.Build(context.Background())
	require.NoError(t, err)

	// excluded images skip the inline rule and are always emitted
	require.Len(t, m.Assets, 1)
	require.NotContains(t, readOutput(t, p, m.Script), "data:image/png")
}

func TestBuild_Errors(t *testing.T) {
	project := setupProject(t)
	writeFile(t, project.Root, "src/index.js", []byte(`import "./missing.js";`))

	p := newPipeline(t, project, buildconfig.Production)
	_, err := p.Build(context.Background())

	var berr *BuildError
	require.ErrorAs(t, err, &berr)
	require.NotEmpty(t, berr.Messages)
	require.Contains(t, berr.Error(), "missing.js")

	_, err = p.Manifest()
	require.ErrorIs(t, err, ErrNotBuilt)
}

func TestBuild_Cancelled(t *testing.T) {
	project := setupProject(t)
	p := newPipeline(t, project, buildconfig.Production)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Build(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestNew(t *testing.T) {
	_, err := New(nil, DefaultOptions("."))
	require.Error(t, err)

	project := buildconfig.DefaultProject()
	project.Root = t.TempDir()
	cfg, err := project.Assemble(buildconfig.Production)
	require.NoError(t, err)

	_, err = New(cfg, DefaultOptions(project.Root))
	require.ErrorContains(t, err, "failed to load html shell template")

	cfg, err = project.Assemble(buildconfig.Development)
	require.NoError(t, err)
	p, err := New(cfg, DefaultOptions(project.Root))
	require.NoError(t, err)
	require.Equal(t, filepath.Join(project.Root, "dist"), p.OutputDir())
}

func TestBuild_AssetNamesFollowImageRule(t *testing.T) {
	project := setupProject(t)
	cfg, err := project.Assemble(buildconfig.Production)
	require.NoError(t, err)

	images, ok := cfg.Rule(buildconfig.CategoryImage)
	require.True(t, ok)
	require.Equal(t, "images/[hash:12].[ext]", images.Options["name"])
	images.Options["name"] = "media/[hash:6].[ext]"

	p, err := New(cfg, DefaultOptions(project.Root))
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, p.Close()) })

	m, err := p.Build(context.Background())
	require.NoError(t, err)

	require.Len(t, m.Assets, 1)
	require.Regexp(t, regexp.MustCompile(`^/media/[0-9a-f]{6}\.png$`), m.Assets[0])
	require.FileExists(t, filepath.Join(p.OutputDir(), filepath.FromSlash(strings.TrimPrefix(m.Assets[0], "/"))))
	require.Contains(t, readOutput(t, p, m.Script), `"`+m.Assets[0]+`"`)

	data := make([]byte, buildconfig.ImageInlineLimit+1)
	require.Equal(t, "/"+assetName("media/[hash:6].[ext]", "media/STAGED.png", data), m.Assets[0])
}

func setupSassProject(t *testing.T) buildconfig.Project {
	t.Helper()
	if _, err := exec.LookPath("sass"); err != nil {
		t.Skip("dart sass is not installed")
	}

	project := setupProject(t)
	writeFile(t, project.Root, "src/index.js", []byte(`import "./styles/main.scss";
document.getElementById("app").className = "app";
`))
	writeFile(t, project.Root, "src/styles/_colors.scss", []byte("$accent: #ff0000;\n"))
	writeFile(t, project.Root, "src/styles/main.scss", []byte(`@use "colors";

.app {
  display: flex;
  .title { color: colors.$accent; }
}
`))
	return project
}

func TestBuild_SassProduction(t *testing.T) {
	project := setupSassProject(t)
	p := newPipeline(t, project, buildconfig.Production)

	m, err := p.Build(context.Background())
	require.NoError(t, err)

	require.Regexp(t, regexp.MustCompile(`^/style-[0-9a-f]{10}\.min\.css$`), m.Style)
	style := readOutput(t, p, m.Style)
	require.Regexp(t, `\.app \.title\{color:(red|#f00|#ff0000)\}`, style)
	require.NotContains(t, readOutput(t, p, m.Script), `createElement("style")`)
}

func TestBuild_SassDevelopment(t *testing.T) {
	project := setupSassProject(t)
	p := newPipeline(t, project, buildconfig.Development)

	m, err := p.Build(context.Background())
	require.NoError(t, err)

	require.Empty(t, m.Style)
	script := readOutput(t, p, m.Script)
	require.Contains(t, script, `createElement("style")`)
	require.Contains(t, script, ".app .title")
	require.Regexp(t, `color: (red|#f00|#ff0000)`, script)
}
