package brand

import (
	"os"
	"strings"
	"testing"
)

func TestGet(t *testing.T) {
	b := Get()
	if b.Name == "" {
		t.Error("Brand name should not be empty")
	}
	// Version is a global variable, not in the struct
	if Version == "" {
		t.Error("Global Version should be initialized (to dev default)")
	}
	if Name == "" {
		t.Error("Global Name should be initialized")
	}
}

func TestUserAgent(t *testing.T) {
	ua := UserAgent("1.0.0")
	if ua == "" {
		t.Error("UserAgent should not be empty")
	}

	uaDefault := UserAgent("")
	if !strings.Contains(uaDefault, "dev") {
		t.Errorf("UserAgent default should fall back to dev, got %s", uaDefault)
	}
}

func TestDefaultConfigPath(t *testing.T) {
	cleanEnv := func() {
		os.Unsetenv(ConfigEnvPrefix + "_CONFIG")
		os.Unsetenv(ConfigEnvPrefix + "_CONFIG_DIR")
	}
	cleanEnv()
	defer cleanEnv()

	if got := DefaultConfigPath(); got != DefaultConfigDir+"/"+ConfigFileName {
		t.Errorf("Expected default config path, got %s", got)
	}

	os.Setenv(ConfigEnvPrefix+"_CONFIG_DIR", "/tmp/rf")
	if got := DefaultConfigPath(); got != "/tmp/rf/"+ConfigFileName {
		t.Errorf("Expected env override dir, got %s", got)
	}

	os.Setenv(ConfigEnvPrefix+"_CONFIG", "/tmp/explicit.hcl")
	if got := DefaultConfigPath(); got != "/tmp/explicit.hcl" {
		t.Errorf("Expected explicit env override, got %s", got)
	}
}
