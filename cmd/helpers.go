// Package cmd implements the subcommands dispatched from main.
package cmd

import (
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/netip"
	"os"
	"text/tabwriter"

	"github.com/ngfw-tools/ruleforge/internal/alloc"
	"github.com/ngfw-tools/ruleforge/internal/brand"
	"github.com/ngfw-tools/ruleforge/internal/config"
	"github.com/ngfw-tools/ruleforge/internal/policy"
	"github.com/ngfw-tools/ruleforge/internal/pool"
	"github.com/ngfw-tools/ruleforge/internal/provision"
)

// loadConfig loads the config file. A missing file at the default path is
// not an error: the tool runs fine from flags and defaults alone. An
// explicitly named file must exist.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		path = brand.DefaultConfigPath()
	}
	cfg, err := config.LoadFile(path)
	if err == nil {
		return cfg, nil
	}
	if errors.Is(err, os.ErrNotExist) && path == brand.DefaultConfigPath() {
		cfg = config.Default()
		return cfg, nil
	}
	return nil, err
}

// newRNG builds the allocation random source. A zero seed means seed from
// the system source; any other value makes runs reproducible.
func newRNG(seed int64) *rand.Rand {
	if seed == 0 {
		seed = rand.Int63()
	}
	return rand.New(rand.NewSource(seed))
}

// buildPipeline assembles the pure allocation pipeline from config: the
// pool, the allocator, the static groups, and the rule template.
func buildPipeline(cfg *config.Config, fwContext string) (*alloc.Allocator, []alloc.Group, policy.Template, error) {
	space, err := netip.ParsePrefix(cfg.Pool.CIDR)
	if err != nil {
		return nil, nil, policy.Template{}, fmt.Errorf("pool cidr: %w", err)
	}

	p, err := pool.New(space, newRNG(cfg.Pool.Seed))
	if err != nil {
		return nil, nil, policy.Template{}, err
	}
	allocator := alloc.New(p, fwContext, cfg.Pool.PrefixLength)

	statics := make([]alloc.Group, 0, len(cfg.StaticGroups))
	for _, sg := range cfg.StaticGroups {
		g, err := allocator.StaticGroup(sg.Name, sg.Subnets)
		if err != nil {
			return nil, nil, policy.Template{}, err
		}
		statics = append(statics, g)
	}

	return allocator, statics, templateFromConfig(cfg.Policy), nil
}

// templateFromConfig converts the configured policy block into the
// composer's template form.
func templateFromConfig(p *config.Policy) policy.Template {
	tmpl := policy.Template{
		PolicyName:    p.Name,
		DefaultAction: policy.Action(p.DefaultAction),
		Rules:         make([]policy.TemplateRule, 0, len(p.Rules)),
	}
	for _, r := range p.Rules {
		tmpl.Rules = append(tmpl.Rules, policy.TemplateRule{
			Name:          r.Name,
			Action:        policy.Action(r.Action),
			SrcGroups:     r.SrcGroups,
			InsertDerived: r.Derived,
		})
	}
	return tmpl
}

func countSubnets(groups []alloc.Group) int {
	n := 0
	for _, g := range groups {
		n += len(g.Subnets)
	}
	return n
}

// printSummary writes the run summary as an aligned table.
func printSummary(w io.Writer, s provision.Summary) {
	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
	fmt.Fprintf(tw, "Stage:\t%s\n", s.Stage)
	fmt.Fprintf(tw, "Subnets created:\t%d\n", s.Subnets)
	fmt.Fprintf(tw, "Groups created:\t%d\n", s.Groups)
	fmt.Fprintf(tw, "ACL entries created:\t%d\n", s.ACLEntries)
	fmt.Fprintf(tw, "Policy rules created:\t%d\n", s.PolicyRules)
	tw.Flush()
}
