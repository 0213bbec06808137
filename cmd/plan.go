package cmd

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"

	"github.com/ngfw-tools/ruleforge/internal/alloc"
	"github.com/ngfw-tools/ruleforge/internal/policy"
	"github.com/ngfw-tools/ruleforge/internal/restconf"
	"github.com/ngfw-tools/ruleforge/internal/validation"
)

// PlanOptions carries the plan subcommand's flags.
type PlanOptions struct {
	ConfigFile string
	Count      int
	Context    string
}

// planDoc is the dry-run output: the exact payloads an apply would submit,
// in submission order.
type planDoc struct {
	Context string              `yaml:"context"`
	Subnets restconf.SubnetsBody `yaml:"subnets"`
	ACL     restconf.ACLBody     `yaml:"acl"`
	Policy  restconf.PolicyBody  `yaml:"policy"`
}

// RunPlan runs allocation and composition with no network I/O and prints
// the payloads an apply would submit.
func RunPlan(opts PlanOptions) error {
	if err := validation.ValidateContextName(opts.Context); err != nil {
		return err
	}

	cfg, err := loadConfig(opts.ConfigFile)
	if err != nil {
		return err
	}

	allocator, statics, tmpl, err := buildPipeline(cfg, opts.Context)
	if err != nil {
		return err
	}

	groups, err := allocator.Allocate(opts.Count, cfg.Pool.GroupSize)
	if err != nil {
		return err
	}
	allGroups := append(append([]alloc.Group{}, groups...), statics...)

	entries, err := policy.ComposeACL(groups)
	if err != nil {
		return err
	}
	entries = policy.AppendStatic(entries, statics)

	sp, err := policy.ComposePolicy(entries, tmpl)
	if err != nil {
		return err
	}

	doc := planDoc{
		Context: opts.Context,
		Subnets: restconf.SubnetsPayload(allGroups),
		ACL:     restconf.ACLPayload(entries),
		Policy:  restconf.PolicyPayload(sp),
	}

	out, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to render plan: %w", err)
	}
	os.Stdout.Write(out)

	fmt.Printf("\nPlan: %d subnets in %d groups, %d ACL entries, %d policy rules. Nothing submitted.\n",
		countSubnets(allGroups), len(allGroups), len(entries), len(sp.Rules))
	return nil
}
