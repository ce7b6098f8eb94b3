package core

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeReloadConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func hasChange(changes []string, sub string) bool {
	for _, c := range changes {
		if strings.Contains(c, sub) {
			return true
		}
	}
	return false
}

func TestReloadConfig_EmptyPath_Error(t *testing.T) {
	e := testEngine(t, nil)
	if _, err := ReloadConfig(e, ""); err == nil {
		t.Error("expected error for empty config path")
	}
}

func TestReloadConfig_NonExistentFile_NoChanges(t *testing.T) {
	t.Setenv("DOCSHIELD_API_KEY", "")
	e := testEngine(t, nil)
	before := e.Config()

	changes, err := ReloadConfig(e, "/nonexistent/config.yaml")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(changes) != 1 || changes[0] != "no changes detected" {
		t.Errorf("changes = %v", changes)
	}
	if e.Config() != before {
		t.Error("config should not be swapped when nothing changed")
	}
}

func TestReloadConfig_AppliesHotSettings(t *testing.T) {
	t.Setenv("DOCSHIELD_API_KEY", "")
	e := testEngine(t, nil)
	before := e.Config()

	path := writeReloadConfig(t, `
server:
  port: 9999
  api_keys: ["k1", "k2"]
  cors_origins: ["https://dash.example.com"]
scan:
  max_upload_bytes: 2048
modules:
  risk_oracle:
    enabled: false
`)
	changes, err := ReloadConfig(e, path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, want := range []string{"server.api_keys", "server.cors_origins", "scan.max_upload_bytes", "risk_oracle disabled"} {
		if !hasChange(changes, want) {
			t.Errorf("expected %q in %v", want, changes)
		}
	}

	cfg := e.Config()
	if !cfg.ValidateAPIKey("k2") || cfg.Scan.MaxUploadBytes != 2048 || cfg.IsModuleEnabled(RiskOracleModule) {
		t.Errorf("reloaded config not applied: %+v", cfg)
	}
	if cfg.Server.Port != before.Server.Port {
		t.Error("server.port is not hot-reloadable")
	}
	if before.AuthEnabled() || before.Scan.MaxUploadBytes != DefaultMaxUploadBytes || !before.IsModuleEnabled(RiskOracleModule) {
		t.Error("previous config value must not be mutated")
	}
}

func TestReloadConfig_InvalidConfigRejected(t *testing.T) {
	e := testEngine(t, nil)
	path := writeReloadConfig(t, `
scan:
  max_upload_bytes: -1
`)
	if _, err := ReloadConfig(e, path); err == nil {
		t.Error("expected validation error")
	}
	if e.Config().Scan.MaxUploadBytes != DefaultMaxUploadBytes {
		t.Error("invalid config must not be applied")
	}
}
