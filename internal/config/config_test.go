package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad_MissingConfigFallsBackToDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg, err := Load(filepath.Join(home, "does-not-exist.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.APIURL != defaultAPIURL {
		t.Fatalf("APIURL = %q, want %q", cfg.APIURL, defaultAPIURL)
	}
	if cfg.Sandbox {
		t.Fatalf("Sandbox = true, want false")
	}
	if cfg.PollInterval != defaultPollInterval || cfg.RequestTimeout != defaultRequestTimeout {
		t.Fatalf("intervals = %v/%v, want defaults", cfg.PollInterval, cfg.RequestTimeout)
	}

	wantLogDir, err := expandPath(defaultLogDir)
	if err != nil {
		t.Fatalf("expandPath(defaultLogDir) returned error: %v", err)
	}
	if cfg.LogDir != wantLogDir {
		t.Fatalf("LogDir = %q, want %q", cfg.LogDir, wantLogDir)
	}
	if cfg.LogPath() != filepath.Join(wantLogDir, "storefront.log") {
		t.Fatalf("LogPath = %q, want %q", cfg.LogPath(), filepath.Join(wantLogDir, "storefront.log"))
	}
}

func TestLoad_ParsesAndTrimsConfig(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(`
api_url = "  https://api.herofit.example  "
sandbox = true
log_dir = "  ~/.storefront/logs  "
poll_seconds = 10
request_timeout_seconds = 4
`), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.APIURL != "https://api.herofit.example" {
		t.Fatalf("APIURL = %q, want %q", cfg.APIURL, "https://api.herofit.example")
	}
	if !cfg.Sandbox {
		t.Fatalf("Sandbox = false, want true")
	}
	if !strings.HasPrefix(cfg.LogDir, home) {
		t.Fatalf("LogDir = %q, want it under HOME %q", cfg.LogDir, home)
	}
	if cfg.PollInterval != 10*time.Second || cfg.RequestTimeout != 4*time.Second {
		t.Fatalf("intervals = %v/%v, want 10s/4s", cfg.PollInterval, cfg.RequestTimeout)
	}
}

func TestLoad_EmptyValuesUseDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(`
api_url = "   "
log_dir = ""
poll_seconds = 0
request_timeout_seconds = -3
`), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	want := Default()
	if cfg != want {
		t.Fatalf("cfg = %+v, want %+v", cfg, want)
	}
}

func TestLoad_InvalidTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("api_url = [\n"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "parse config") {
		t.Fatalf("Load error = %v, want parse error", err)
	}
}
