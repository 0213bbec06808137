package cmd

import (
	"fmt"
	"os"

	"github.com/ngfw-tools/ruleforge/internal/brand"
	"github.com/ngfw-tools/ruleforge/internal/config"
)

// InitOptions carries the init subcommand's flags.
type InitOptions struct {
	ConfigFile string
	Force      bool
}

// RunInit writes a default configuration file. Existing files are left
// alone unless Force is set.
func RunInit(opts InitOptions) error {
	path := opts.ConfigFile
	if path == "" {
		path = brand.DefaultConfigPath()
	}

	if !opts.Force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists, use -f to overwrite", path)
		}
	}

	if err := config.Default().Save(path); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	fmt.Printf("Wrote default configuration to %s\n", path)
	return nil
}
