package cmd

import (
	"fmt"
	"net/netip"
	"os"
	"text/tabwriter"

	"github.com/ngfw-tools/ruleforge/internal/pool"
)

// CheckOptions carries the check subcommand's flags.
type CheckOptions struct {
	ConfigFile string
	Verbose    bool
}

// RunCheck loads and validates the configuration without touching the
// network, then reports what a run would work with.
func RunCheck(opts CheckOptions) error {
	cfg, err := loadConfig(opts.ConfigFile)
	if err != nil {
		return fmt.Errorf("configuration check failed: %w", err)
	}

	fmt.Println("Configuration OK.")

	tw := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	fmt.Fprintf(tw, "Server:\t%s:%d\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Fprintf(tw, "Pool:\t%s (/%d blocks, groups of %d)\n",
		cfg.Pool.CIDR, cfg.Pool.PrefixLength, cfg.Pool.GroupSize)
	fmt.Fprintf(tw, "Policy:\t%s (default %s, %d rules)\n",
		cfg.Policy.Name, cfg.Policy.DefaultAction, len(cfg.Policy.Rules))
	fmt.Fprintf(tw, "Static groups:\t%d\n", len(cfg.StaticGroups))
	tw.Flush()

	if !opts.Verbose {
		return nil
	}

	space, err := netip.ParsePrefix(cfg.Pool.CIDR)
	if err != nil {
		return fmt.Errorf("pool cidr: %w", err)
	}
	p, err := pool.New(space, newRNG(cfg.Pool.Seed))
	if err != nil {
		return err
	}
	free, err := p.FreeCount(cfg.Pool.PrefixLength)
	if err != nil {
		return err
	}
	fmt.Printf("\nFree /%d blocks in %s: %d\n",
		cfg.Pool.PrefixLength, cfg.Pool.CIDR, free)

	for _, sg := range cfg.StaticGroups {
		fmt.Printf("static group %s: %d subnets\n", sg.Name, len(sg.Subnets))
	}
	return nil
}
