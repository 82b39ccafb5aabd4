package buildconfig

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/zeebo/blake3"
	"gopkg.in/yaml.v3"
)

// Format names an output encoding for a BuildConfig.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// Encode renders the config in the requested format.
func Encode(cfg *BuildConfig, format Format) ([]byte, error) {
	switch format {
	case FormatJSON:
		buf := new(bytes.Buffer)
		enc := json.NewEncoder(buf)
		enc.SetIndent("", "  ")
		if err := enc.Encode(cfg); err != nil {
			return nil, fmt.Errorf("failed to encode config as json: %w", err)
		}
		return buf.Bytes(), nil
	case FormatYAML:
		buf := new(bytes.Buffer)
		enc := yaml.NewEncoder(buf)
		enc.SetIndent(2)
		if err := enc.Encode(cfg); err != nil {
			return nil, fmt.Errorf("failed to encode config as yaml: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("failed to encode config as yaml: %w", err)
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("unsupported config format %q", format)
	}
}

// Canonical returns the compact JSON form of the config. Map keys are sorted
// by encoding/json so equal configs give equal bytes.
func (c *BuildConfig) Canonical() ([]byte, error) {
	return json.Marshal(c)
}

// Fingerprint is the hex BLAKE3 digest of the canonical form.
func (c *BuildConfig) Fingerprint() (string, error) {
	data, err := c.Canonical()
	if err != nil {
		return "", err
	}
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
