package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "cfg.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeTempConfig(t, `
env: dev
backend:
  baseURL: https://margin.test
  timeoutMs: 2500
log:
  level: debug
  format: console
metrics:
  listenAddr: ":9101"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Env != "dev" || cfg.Backend.BaseURL != "https://margin.test" {
		t.Fatalf("unexpected cfg values: %+v", cfg)
	}
	if cfg.Backend.Timeout() != 2500*time.Millisecond {
		t.Fatalf("unexpected timeout: %v", cfg.Backend.Timeout())
	}
}

func TestTimeoutDefault(t *testing.T) {
	b := BackendConfig{BaseURL: "https://margin.test"}
	if b.Timeout() != 10*time.Second {
		t.Fatalf("expected 10s default, got %v", b.Timeout())
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	path := writeTempConfig(t, `
env: prod
backend:
  baseURL: https://margin.test
`)
	t.Setenv("MD_BACKEND_BASE_URL", "https://staging.margin.test")
	cfg, err := LoadWithEnvOverrides(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Backend.BaseURL != "https://staging.margin.test" {
		t.Fatalf("env override not applied: %+v", cfg.Backend)
	}
}

func TestValidate(t *testing.T) {
	if err := Validate(AppConfig{}); err == nil {
		t.Fatalf("expected error for empty config")
	}
	cfg := AppConfig{Env: "dev", Backend: BackendConfig{BaseURL: "not a url"}}
	if err := Validate(cfg); err == nil {
		t.Fatalf("expected error for bad base URL")
	}
	cfg.Backend.BaseURL = "https://margin.test"
	cfg.Log.Level = "loud"
	if err := Validate(cfg); err == nil {
		t.Fatalf("expected error for bad log level")
	}
}
