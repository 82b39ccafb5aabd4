package buildconfig

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestEncode(t *testing.T) {
	cfg, err := Assemble(Production)
	require.NoError(t, err)

	t.Run("json", func(t *testing.T) {
		out, err := Encode(cfg, FormatJSON)
		require.NoError(t, err)

		var decoded map[string]any
		require.NoError(t, json.Unmarshal(out, &decoded))
		require.Equal(t, "production", decoded["mode"])
		require.NotContains(t, decoded, "devServer")
	})

	t.Run("yaml", func(t *testing.T) {
		out, err := Encode(cfg, FormatYAML)
		require.NoError(t, err)

		var decoded struct {
			Output struct {
				PublicPath string `yaml:"publicPath"`
				Filename   string `yaml:"filename"`
			} `yaml:"output"`
		}
		require.NoError(t, yaml.Unmarshal(out, &decoded))
		require.Equal(t, "/", decoded.Output.PublicPath)
		require.Equal(t, "bundle.[hash:12].min.js", decoded.Output.Filename)
	})

	t.Run("unsupported", func(t *testing.T) {
		_, err := Encode(cfg, Format("toml"))
		require.EqualError(t, err, `unsupported config format "toml"`)
	})
}

func TestFingerprint(t *testing.T) {
	dev1, err := Assemble(Development)
	require.NoError(t, err)
	dev2, err := Assemble(Development)
	require.NoError(t, err)
	prod, err := Assemble(Production)
	require.NoError(t, err)

	a, err := dev1.Fingerprint()
	require.NoError(t, err)
	b, err := dev2.Fingerprint()
	require.NoError(t, err)
	c, err := prod.Fingerprint()
	require.NoError(t, err)

	require.Len(t, a, 64)
	require.Equal(t, a, b)
	require.NotEqual(t, a, c)
}
