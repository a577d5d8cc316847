package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "portfolio.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadSettingsDefaults(t *testing.T) {
	s, err := LoadSettings("")
	if err != nil {
		t.Fatalf("LoadSettings: %v", err)
	}
	if s.Server.Port != 8000 || s.Server.Host != "127.0.0.1" {
		t.Fatalf("unexpected server defaults %+v", s.Server)
	}
	if s.Market.PriceCacheTTL.Duration != 30*time.Second {
		t.Fatalf("unexpected cache ttl %v", s.Market.PriceCacheTTL)
	}
	if s.Session.SweepSchedule != "@every 5m" {
		t.Fatalf("unexpected sweep schedule %q", s.Session.SweepSchedule)
	}
	if s.AccountBackend() != "local" {
		t.Fatalf("expected local backend by default, got %q", s.AccountBackend())
	}
}

func TestLoadSettingsFile(t *testing.T) {
	path := writeConfig(t, `
[server]
port = 9100
web_dir = "/srv/web"

[market]
http_timeout = "4s"
price_cache_ttl = "1m"

[account]
firebase_api_key = "k"
firebase_project_id = "demo"

[logging]
format = "json"
`)
	s, err := LoadSettings(path)
	if err != nil {
		t.Fatalf("LoadSettings: %v", err)
	}
	if s.Server.Port != 9100 || s.Server.WebDir != "/srv/web" {
		t.Fatalf("unexpected server %+v", s.Server)
	}
	if s.Server.Host != "127.0.0.1" {
		t.Fatalf("unset keys should keep defaults, got host %q", s.Server.Host)
	}
	if s.Market.HTTPTimeout.Duration != 4*time.Second || s.Market.PriceCacheTTL.Duration != time.Minute {
		t.Fatalf("unexpected market %+v", s.Market)
	}
	if s.AccountBackend() != "firebase" {
		t.Fatalf("expected firebase backend when a project is configured, got %q", s.AccountBackend())
	}
	if s.Logging.Format != "json" {
		t.Fatalf("unexpected logging %+v", s.Logging)
	}
}

func TestLoadSettingsEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "[server]\nport = 9100\n[account]\nbackend = \"firebase\"\n")
	t.Setenv("PORTFOLIO_PORT", "9200")
	t.Setenv("PORTFOLIO_ACCOUNT_BACKEND", "LOCAL")
	t.Setenv("PORTFOLIO_SESSION_IDLE_TIMEOUT", "45m")

	s, err := LoadSettings(path)
	if err != nil {
		t.Fatalf("LoadSettings: %v", err)
	}
	if s.Server.Port != 9200 {
		t.Fatalf("expected env port, got %d", s.Server.Port)
	}
	if s.AccountBackend() != "local" {
		t.Fatalf("expected env backend, got %q", s.AccountBackend())
	}
	if s.Session.IdleTimeout.Duration != 45*time.Minute {
		t.Fatalf("unexpected idle timeout %v", s.Session.IdleTimeout)
	}
}

func TestLoadSettingsErrors(t *testing.T) {
	if _, err := LoadSettings(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
	if _, err := LoadSettings(writeConfig(t, "[server\nport = ")); err == nil {
		t.Fatalf("expected parse error")
	}
	if _, err := LoadSettings(writeConfig(t, "[market]\nhttp_timeout = \"soon\"\n")); err == nil {
		t.Fatalf("expected duration error")
	}

	t.Setenv("PORTFOLIO_PORT", "eighty")
	_, err := LoadSettings("")
	if err == nil || !strings.Contains(err.Error(), "PORTFOLIO_PORT") {
		t.Fatalf("expected port error, got %v", err)
	}
}

func TestApplyFlagOverrides(t *testing.T) {
	s := DefaultSettings()
	s.ApplyFlagOverrides("", 0, "")
	if s.Addr() != "127.0.0.1:8000" {
		t.Fatalf("empty flags should not override, got %q", s.Addr())
	}
	s.ApplyFlagOverrides("0.0.0.0", 8080, "web")
	if s.Addr() != "0.0.0.0:8080" || s.Server.WebDir != "web" {
		t.Fatalf("unexpected overrides %+v", s.Server)
	}
}
