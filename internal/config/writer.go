package config

import (
	"fmt"
	"os"

	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/zclconf/go-cty/cty"
)

// WriteHCL renders the config as HCL source.
func (c *Config) WriteHCL() []byte {
	f := hclwrite.NewEmptyFile()
	root := f.Body()

	if c.Server != nil {
		b := root.AppendNewBlock("server", nil).Body()
		b.SetAttributeValue("host", cty.StringVal(c.Server.Host))
		b.SetAttributeValue("port", cty.NumberIntVal(int64(c.Server.Port)))
		if c.Server.Username != "" {
			b.SetAttributeValue("username", cty.StringVal(c.Server.Username))
		}
		if c.Server.Password != "" {
			b.SetAttributeValue("password", cty.StringVal(c.Server.Password))
		}
		if c.Server.TimeoutSeconds != 0 {
			b.SetAttributeValue("timeout_seconds", cty.NumberIntVal(int64(c.Server.TimeoutSeconds)))
		}
		root.AppendNewline()
	}

	if c.Pool != nil {
		b := root.AppendNewBlock("pool", nil).Body()
		b.SetAttributeValue("cidr", cty.StringVal(c.Pool.CIDR))
		b.SetAttributeValue("prefix_length", cty.NumberIntVal(int64(c.Pool.PrefixLength)))
		b.SetAttributeValue("group_size", cty.NumberIntVal(int64(c.Pool.GroupSize)))
		if c.Pool.Seed != 0 {
			b.SetAttributeValue("seed", cty.NumberIntVal(c.Pool.Seed))
		}
		root.AppendNewline()
	}

	if c.Policy != nil {
		b := root.AppendNewBlock("policy", nil).Body()
		b.SetAttributeValue("name", cty.StringVal(c.Policy.Name))
		b.SetAttributeValue("default_action", cty.StringVal(c.Policy.DefaultAction))
		for _, r := range c.Policy.Rules {
			rb := b.AppendNewBlock("rule", []string{r.Name}).Body()
			if r.Derived {
				rb.SetAttributeValue("derived", cty.True)
				continue
			}
			if r.Action != "" {
				rb.SetAttributeValue("action", cty.StringVal(r.Action))
			}
			if len(r.SrcGroups) > 0 {
				rb.SetAttributeValue("src_groups", stringList(r.SrcGroups))
			}
		}
		root.AppendNewline()
	}

	for _, g := range c.StaticGroups {
		b := root.AppendNewBlock("static_group", []string{g.Name}).Body()
		b.SetAttributeValue("subnets", stringList(g.Subnets))
		root.AppendNewline()
	}

	return f.Bytes()
}

// Save writes the config to path as HCL.
func (c *Config) Save(path string) error {
	if err := os.WriteFile(path, c.WriteHCL(), 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func stringList(ss []string) cty.Value {
	if len(ss) == 0 {
		return cty.ListValEmpty(cty.String)
	}
	vals := make([]cty.Value, len(ss))
	for i, s := range ss {
		vals[i] = cty.StringVal(s)
	}
	return cty.ListVal(vals)
}
