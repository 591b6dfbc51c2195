package common

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfigHasSaneDefaults(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Server.Port != 8080 {
		t.Errorf("default server port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Tor.Required {
		t.Errorf("default tor.required = true, want false")
	}
	if cfg.Scheduler.Enabled != true {
		t.Errorf("default scheduler.enabled = false, want true")
	}
}

func TestLoadConfigLayersFileOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	toml := `
[server]
port = 9999

[tor]
required = true
`
	if err := os.WriteFile(path, []byte(toml), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Server.Port != 9999 {
		t.Errorf("server.port = %d, want 9999 from file", cfg.Server.Port)
	}
	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("server.host = %q, want unchanged default", cfg.Server.Host)
	}
	if !cfg.Tor.Required {
		t.Errorf("tor.required = false, want true from file")
	}
}

func TestLoadConfigEnvOverridesDefaults(t *testing.T) {
	t.Setenv("TOR_PROXY_HOST", "10.0.0.5")
	t.Setenv("TOR_REQUIRED", "true")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Tor.ProxyHost != "10.0.0.5" {
		t.Errorf("tor.proxy_host = %q, want env override", cfg.Tor.ProxyHost)
	}
	if !cfg.Tor.Required {
		t.Errorf("tor.required = false, want env override true")
	}
}

func TestLoadConfigMissingFileErrors(t *testing.T) {
	if _, err := LoadConfig("/no/such/config.toml"); err == nil {
		t.Errorf("expected an error for a missing config file, got nil")
	}
}
