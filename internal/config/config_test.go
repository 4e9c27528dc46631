package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_AppliesDefaults(t *testing.T) {
	path := writeConfig(t, `{}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Server.Port != "8080" {
		t.Fatalf("expected default port 8080, got %q", cfg.Server.Port)
	}
	if cfg.RateLimit.Algorithm != "fixed_window" {
		t.Fatalf("expected default algorithm fixed_window, got %q", cfg.RateLimit.Algorithm)
	}
	if cfg.Server.IsCloud {
		t.Fatalf("is_cloud must default to false")
	}
}

func TestLoad_PartialRateLimitDefaults(t *testing.T) {
	path := writeConfig(t, `{
		"server": {"port": "9090", "is_cloud": true},
		"rate_limit": {"defaults": {"read": 300, "write": 60}}
	}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Server.Port != "9090" {
		t.Fatalf("expected port 9090, got %q", cfg.Server.Port)
	}
	if !cfg.Server.IsCloud {
		t.Fatalf("expected is_cloud true")
	}
	if cfg.RateLimit.Defaults.Read == nil || *cfg.RateLimit.Defaults.Read != 300 {
		t.Fatalf("expected read default 300, got %v", cfg.RateLimit.Defaults.Read)
	}
	// Unset categories stay nil; the registry fills them later.
	if cfg.RateLimit.Defaults.MFA != nil {
		t.Fatalf("expected mfa default unset, got %v", *cfg.RateLimit.Defaults.MFA)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeConfig(t, `{"server": {"port": "9090"}}`)

	t.Setenv("PORT", "7070")
	t.Setenv("IS_CLOUD", "true")
	t.Setenv("JWT_SECRET", "test-secret")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Server.Port != "7070" {
		t.Fatalf("expected env port 7070, got %q", cfg.Server.Port)
	}
	if !cfg.Server.IsCloud {
		t.Fatalf("expected env is_cloud true")
	}
	if cfg.JWT.Secret != "test-secret" {
		t.Fatalf("expected env jwt secret, got %q", cfg.JWT.Secret)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Fatalf("expected error for missing config file")
	}
}
