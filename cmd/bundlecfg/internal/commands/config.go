package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/wolfeidau/bundlecfg/internal/buildconfig"
)

// ConfigCmd prints the assembled config.
type ConfigCmd struct {
	Format      string `help:"output format" default:"json" enum:"json,yaml"`
	Fingerprint bool   `help:"print only the config fingerprint"`
}

func (c *ConfigCmd) Run(ctx context.Context, globals *Globals) error {
	data, err := c.render(globals)
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(data)
	return err
}

func (c *ConfigCmd) render(globals *Globals) ([]byte, error) {
	cfg, err := globals.Assemble()
	if err != nil {
		return nil, err
	}

	if c.Fingerprint {
		fp, err := cfg.Fingerprint()
		if err != nil {
			return nil, fmt.Errorf("failed to fingerprint config: %w", err)
		}
		return []byte(fp + "\n"), nil
	}

	return buildconfig.Encode(cfg, buildconfig.Format(c.Format))
}
