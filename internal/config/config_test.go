package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleHCL = `
server {
  host     = "192.0.2.10"
  port     = 8080
  username = "sysadmin"
  password = "secret"
}

pool {
  cidr          = "10.0.0.0/16"
  prefix_length = 30
  group_size    = 3
  seed          = 42
}

policy {
  name           = "def_drop"
  default_action = "drop"

  rule "allow-mgmt" {
    action     = "accept"
    src_groups = ["mgmt"]
  }

  rule "generated" {
    derived = true
  }
}

static_group "trex_net" {
  subnets = ["10.1.0.0/16", "10.2.0.0/16"]
}
`

func TestLoadHCL(t *testing.T) {
	cfg, err := LoadHCL([]byte(sampleHCL), "test.hcl")
	require.NoError(t, err)

	assert.Equal(t, "192.0.2.10", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "sysadmin", cfg.Server.Username)
	assert.Equal(t, 30, cfg.Server.TimeoutSeconds) // defaulted

	assert.Equal(t, "10.0.0.0/16", cfg.Pool.CIDR)
	assert.Equal(t, 30, cfg.Pool.PrefixLength)
	assert.Equal(t, 3, cfg.Pool.GroupSize)
	assert.Equal(t, int64(42), cfg.Pool.Seed)

	require.Len(t, cfg.Policy.Rules, 2)
	assert.Equal(t, "allow-mgmt", cfg.Policy.Rules[0].Name)
	assert.True(t, cfg.Policy.Rules[1].Derived)

	require.Len(t, cfg.StaticGroups, 1)
	assert.Equal(t, "trex_net", cfg.StaticGroups[0].Name)
	assert.Equal(t, []string{"10.1.0.0/16", "10.2.0.0/16"}, cfg.StaticGroups[0].Subnets)
}

func TestLoadHCLDefaults(t *testing.T) {
	cfg, err := LoadHCL([]byte(`server { host = "192.0.2.1" }`), "min.hcl")
	require.NoError(t, err)

	assert.Equal(t, 8008, cfg.Server.Port)
	assert.Equal(t, "10.0.0.0/8", cfg.Pool.CIDR)
	assert.Equal(t, 32, cfg.Pool.PrefixLength)
	assert.Equal(t, 1, cfg.Pool.GroupSize)
	assert.Equal(t, "def_drop", cfg.Policy.Name)
	assert.Equal(t, "drop", cfg.Policy.DefaultAction)
	require.Len(t, cfg.Policy.Rules, 1)
	assert.True(t, cfg.Policy.Rules[0].Derived)
}

func TestLoadJSON(t *testing.T) {
	data := `{
	  "server": {"host": "192.0.2.7", "port": 8080},
	  "pool": {"cidr": "10.5.0.0/16", "prefix_length": 28, "group_size": 2},
	  "policy": {"name": "def_drop", "default_action": "drop",
	    "rules": [{"name": "generated", "derived": true}]}
	}`

	cfg, err := LoadJSON([]byte(data))
	require.NoError(t, err)
	assert.Equal(t, "192.0.2.7", cfg.Server.Host)
	assert.Equal(t, 28, cfg.Pool.PrefixLength)
}

func TestLoadFileByExtension(t *testing.T) {
	dir := t.TempDir()

	hclPath := filepath.Join(dir, "cfg.hcl")
	require.NoError(t, os.WriteFile(hclPath, []byte(sampleHCL), 0o600))
	cfg, err := LoadFile(hclPath)
	require.NoError(t, err)
	assert.Equal(t, "192.0.2.10", cfg.Server.Host)

	jsonPath := filepath.Join(dir, "cfg.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`{"server":{"host":"192.0.2.9"}}`), 0o600))
	cfg, err = LoadFile(jsonPath)
	require.NoError(t, err)
	assert.Equal(t, "192.0.2.9", cfg.Server.Host)
	assert.Equal(t, 8008, cfg.Server.Port)
}

func TestValidateRejectsBadConfigs(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"bad port", func(c *Config) { c.Server.Port = 70000 }, "port"},
		{"empty host", func(c *Config) { c.Server.Host = "" }, "host"},
		{"bad cidr", func(c *Config) { c.Pool.CIDR = "10.0.0.1/8" }, "aligned"},
		{"coarse prefix", func(c *Config) { c.Pool.PrefixLength = 4 }, "coarser"},
		{"zero group size", func(c *Config) { c.Pool.GroupSize = -1 }, "group size"},
		{"bad action", func(c *Config) { c.Policy.DefaultAction = "reject" }, "allowlist"},
		{"no marker", func(c *Config) { c.Policy.Rules = []Rule{{Name: "r1", Action: "accept"}} }, "marker"},
		{"two markers", func(c *Config) {
			c.Policy.Rules = []Rule{{Name: "a", Derived: true}, {Name: "b", Derived: true}}
		}, "marker"},
		{"dup static group", func(c *Config) {
			c.StaticGroups = []StaticGroup{
				{Name: "x", Subnets: []string{"10.1.0.0/16"}},
				{Name: "x", Subnets: []string{"10.2.0.0/16"}},
			}
		}, "duplicate"},
		{"static group bad cidr", func(c *Config) {
			c.StaticGroups = []StaticGroup{{Name: "x", Subnets: []string{"nope"}}}
		}, "static_group"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, strings.ToLower(err.Error()), tc.want)
		})
	}
}

func TestWriteHCLRoundTrip(t *testing.T) {
	orig, err := LoadHCL([]byte(sampleHCL), "orig.hcl")
	require.NoError(t, err)

	reloaded, err := LoadHCL(orig.WriteHCL(), "rt.hcl")
	require.NoError(t, err)

	assert.Equal(t, orig.Server, reloaded.Server)
	assert.Equal(t, orig.Pool, reloaded.Pool)
	assert.Equal(t, orig.Policy, reloaded.Policy)
	assert.Equal(t, orig.StaticGroups, reloaded.StaticGroups)
}

func TestSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.hcl")
	require.NoError(t, Default().Save(path))

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, Default().Pool, cfg.Pool)
}
