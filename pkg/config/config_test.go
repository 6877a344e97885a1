package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "orderbridge.config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	path := writeConfig(t, `
upstream:
  base_url: https://orders.example.com/api
  api_key: k
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.Server.Port != 8585 {
		t.Errorf("Server.Port = %d, want 8585", cfg.Server.Port)
	}
	if cfg.PollInterval() != 5*time.Second {
		t.Errorf("PollInterval = %v, want 5s", cfg.PollInterval())
	}
	if cfg.UpstreamTimeout() != 30*time.Second {
		t.Errorf("UpstreamTimeout = %v, want 30s", cfg.UpstreamTimeout())
	}
	if cfg.DB.Host != "127.0.0.1" || cfg.DB.Port != 5432 {
		t.Errorf("DB defaults = %s:%d", cfg.DB.Host, cfg.DB.Port)
	}
}

func TestLoadConfigExplicitValues(t *testing.T) {
	path := writeConfig(t, `
upstream:
  base_url: https://orders.example.com/api
  timeout_seconds: 10
poll:
  interval_seconds: 60
server:
  port: 9000
db:
  enabled: true
  user: ops
  name: orderbridge
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.PollInterval() != time.Minute {
		t.Errorf("PollInterval = %v, want 1m", cfg.PollInterval())
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("Server.Port = %d, want 9000", cfg.Server.Port)
	}
	if !cfg.DB.Enabled {
		t.Error("DB.Enabled should be true")
	}
	want := "user=ops password= dbname=orderbridge sslmode=disable host=127.0.0.1 port=5432"
	if got := cfg.GetConnString(); got != want {
		t.Errorf("GetConnString() = %q, want %q", got, want)
	}
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
upstream:
  api_key: from-file
dispatch:
  token: from-file
`)
	t.Setenv("ORDERBRIDGE_API_KEY", "from-env")
	t.Setenv("ORDERBRIDGE_DISPATCH_TOKEN", "also-env")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Upstream.APIKey != "from-env" {
		t.Errorf("APIKey = %q, want env to win", cfg.Upstream.APIKey)
	}
	if cfg.Dispatch.Token != "also-env" {
		t.Errorf("Token = %q, want env to win", cfg.Dispatch.Token)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("missing file should return error")
	}
}
