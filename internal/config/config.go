// Package config defines the tool's configuration: the RESTCONF server and
// its credentials, the address pool the subnets are drawn from, the policy
// rule template, and any operator-maintained static groups.
//
// Configs are HCL first with a JSON fallback. Entities are validated at load
// time, not when payloads are serialized.
package config

import (
	"fmt"
	"net/netip"

	"github.com/ngfw-tools/ruleforge/internal/validation"
)

// Config is the root configuration.
type Config struct {
	Server       *Server       `hcl:"server,block" json:"server"`
	Pool         *Pool         `hcl:"pool,block" json:"pool"`
	Policy       *Policy       `hcl:"policy,block" json:"policy"`
	StaticGroups []StaticGroup `hcl:"static_group,block" json:"static_groups,omitempty"`
}

// Server locates the remote policy store and carries its credentials.
type Server struct {
	Host           string `hcl:"host,optional" json:"host"`
	Port           int    `hcl:"port,optional" json:"port"`
	Username       string `hcl:"username,optional" json:"username,omitempty"`
	Password       string `hcl:"password,optional" json:"password,omitempty"`
	TimeoutSeconds int    `hcl:"timeout_seconds,optional" json:"timeout_seconds,omitempty"`
}

// Pool configures the allocatable address space.
type Pool struct {
	CIDR         string `hcl:"cidr,optional" json:"cidr"`
	PrefixLength int    `hcl:"prefix_length,optional" json:"prefix_length"`
	GroupSize    int    `hcl:"group_size,optional" json:"group_size"`
	// Seed makes allocation deterministic when non-zero. Zero seeds from
	// the system source.
	Seed int64 `hcl:"seed,optional" json:"seed,omitempty"`
}

// Policy is the user-rule template for the submitted security policy.
type Policy struct {
	Name          string `hcl:"name,optional" json:"name"`
	DefaultAction string `hcl:"default_action,optional" json:"default_action"`
	Rules         []Rule `hcl:"rule,block" json:"rules,omitempty"`
}

// Rule is one prepopulated rule, or the insertion marker for the derived
// rules when Derived is set.
type Rule struct {
	Name      string   `hcl:"name,label" json:"name"`
	Action    string   `hcl:"action,optional" json:"action,omitempty"`
	SrcGroups []string `hcl:"src_groups,optional" json:"src_groups,omitempty"`
	Derived   bool     `hcl:"derived,optional" json:"derived,omitempty"`
}

// StaticGroup is an operator-maintained address group appended after the
// generated groups.
type StaticGroup struct {
	Name    string   `hcl:"name,label" json:"name"`
	Subnets []string `hcl:"subnets" json:"subnets"`
}

// Default returns a fully populated default configuration: a /8 lab pool of
// host-route subnets, one subnet per group, and a default-drop policy whose
// only content is the derived rule block.
func Default() *Config {
	return &Config{
		Server: &Server{
			Host:           "127.0.0.1",
			Port:           8008,
			TimeoutSeconds: 30,
		},
		Pool: &Pool{
			CIDR:         "10.0.0.0/8",
			PrefixLength: 32,
			GroupSize:    1,
		},
		Policy: &Policy{
			Name:          "def_drop",
			DefaultAction: "drop",
			Rules:         []Rule{{Name: "generated", Derived: true}},
		},
	}
}

// ApplyDefaults fills unset fields from Default.
func (c *Config) ApplyDefaults() {
	def := Default()
	if c.Server == nil {
		c.Server = def.Server
	} else {
		if c.Server.Host == "" {
			c.Server.Host = def.Server.Host
		}
		if c.Server.Port == 0 {
			c.Server.Port = def.Server.Port
		}
		if c.Server.TimeoutSeconds == 0 {
			c.Server.TimeoutSeconds = def.Server.TimeoutSeconds
		}
	}
	if c.Pool == nil {
		c.Pool = def.Pool
	} else {
		if c.Pool.CIDR == "" {
			c.Pool.CIDR = def.Pool.CIDR
		}
		if c.Pool.PrefixLength == 0 {
			c.Pool.PrefixLength = def.Pool.PrefixLength
		}
		if c.Pool.GroupSize == 0 {
			c.Pool.GroupSize = def.Pool.GroupSize
		}
	}
	if c.Policy == nil {
		c.Policy = def.Policy
	} else {
		if c.Policy.Name == "" {
			c.Policy.Name = def.Policy.Name
		}
		if c.Policy.DefaultAction == "" {
			c.Policy.DefaultAction = def.Policy.DefaultAction
		}
		if len(c.Policy.Rules) == 0 {
			c.Policy.Rules = def.Policy.Rules
		}
	}
}

var validActions = []string{"accept", "drop"}

// Validate checks the whole configuration. It is called by the loader, so a
// loaded Config is always internally consistent.
func (c *Config) Validate() error {
	if c.Server == nil || c.Pool == nil || c.Policy == nil {
		return fmt.Errorf("config missing server, pool, or policy block")
	}

	if c.Server.Host == "" {
		return fmt.Errorf("server host cannot be empty")
	}
	if err := validation.ValidatePortNumber(c.Server.Port); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if c.Server.TimeoutSeconds < 0 {
		return fmt.Errorf("server timeout cannot be negative")
	}

	if err := validation.ValidateCIDR(c.Pool.CIDR); err != nil {
		return fmt.Errorf("pool: %w", err)
	}
	space := netip.MustParsePrefix(c.Pool.CIDR)
	if err := validation.ValidatePrefixLength(c.Pool.PrefixLength, space.Addr().Is6()); err != nil {
		return fmt.Errorf("pool: %w", err)
	}
	if c.Pool.PrefixLength < space.Bits() {
		return fmt.Errorf("pool: prefix length /%d coarser than pool %s", c.Pool.PrefixLength, c.Pool.CIDR)
	}
	if c.Pool.GroupSize < 1 {
		return fmt.Errorf("pool: group size must be positive, got %d", c.Pool.GroupSize)
	}

	if err := validation.ValidateIdentifier(c.Policy.Name); err != nil {
		return fmt.Errorf("policy: %w", err)
	}
	if err := validation.ValidateAllowlist(c.Policy.DefaultAction, validActions); err != nil {
		return fmt.Errorf("policy default_action: %w", err)
	}

	markers := 0
	for _, r := range c.Policy.Rules {
		if r.Derived {
			markers++
			continue
		}
		if err := validation.ValidateIdentifier(r.Name); err != nil {
			return fmt.Errorf("policy rule: %w", err)
		}
		if r.Action != "" {
			if err := validation.ValidateAllowlist(r.Action, validActions); err != nil {
				return fmt.Errorf("policy rule %s: %w", r.Name, err)
			}
		}
	}
	if markers != 1 {
		return fmt.Errorf("policy must have exactly one derived-rules marker, found %d", markers)
	}

	seen := map[string]bool{}
	for _, g := range c.StaticGroups {
		if err := validation.ValidateIdentifier(g.Name); err != nil {
			return fmt.Errorf("static_group: %w", err)
		}
		if seen[g.Name] {
			return fmt.Errorf("duplicate static_group name %q", g.Name)
		}
		seen[g.Name] = true
		if len(g.Subnets) == 0 {
			return fmt.Errorf("static_group %s has no subnets", g.Name)
		}
		for _, s := range g.Subnets {
			if err := validation.ValidateCIDR(s); err != nil {
				return fmt.Errorf("static_group %s: %w", g.Name, err)
			}
		}
	}

	return nil
}
