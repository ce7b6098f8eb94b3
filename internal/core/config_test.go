package core

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// ─── DefaultConfig ──────────────────────────────────────────────────────────

func TestDefaultConfig_Values(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("default Host = %q, want 0.0.0.0", cfg.Server.Host)
	}
	if cfg.Server.Port != 1790 {
		t.Errorf("default Port = %d, want 1790", cfg.Server.Port)
	}
	if cfg.Bus.Enabled {
		t.Error("expected Bus.Enabled = false by default")
	}
	if !cfg.Bus.Embedded {
		t.Error("expected Bus.Embedded = true by default")
	}
	if cfg.Scan.MaxUploadBytes != 10*1024*1024 {
		t.Errorf("default MaxUploadBytes = %d, want 10 MB", cfg.Scan.MaxUploadBytes)
	}
	if cfg.Scan.CacheSize <= 0 {
		t.Errorf("default CacheSize = %d, want > 0", cfg.Scan.CacheSize)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("default Level = %q, want info", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "console" {
		t.Errorf("default Format = %q, want console", cfg.Logging.Format)
	}
	if problems := cfg.Validate(); len(problems) != 0 {
		t.Errorf("default config should validate, got %v", problems)
	}
}

func TestDefaultConfig_ModulesPresent(t *testing.T) {
	cfg := DefaultConfig()
	for _, name := range []string{DOCXScannerModule, PDFScannerModule, RiskOracleModule} {
		mod, ok := cfg.Modules[name]
		if !ok {
			t.Errorf("missing module %q in default config", name)
		}
		if !mod.Enabled {
			t.Errorf("expected module %q to be enabled", name)
		}
	}
}

// ─── LoadConfig ─────────────────────────────────────────────────────────────

func TestLoadConfig_EmptyPath_ReturnsDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig(\"\") error: %v", err)
	}
	if cfg.Server.Port != 1790 {
		t.Errorf("expected default port 1790, got %d", cfg.Server.Port)
	}
}

func TestLoadConfig_NonExistentFile_ReturnsDefaults(t *testing.T) {
	cfg, err := LoadConfig("/this/path/does/not/exist/docshield.yaml")
	if err != nil {
		t.Fatalf("LoadConfig with non-existent file should not error, got: %v", err)
	}
	if cfg.Server.Port != 1790 {
		t.Errorf("expected default port 1790, got %d", cfg.Server.Port)
	}
}

func TestLoadConfig_ValidYAML(t *testing.T) {
	yaml := `
server:
  host: "127.0.0.1"
  port: 9999
scan:
  max_upload_bytes: 2048
  cache_size: 0
modules:
  pdf_scanner:
    enabled: false
logging:
  level: "debug"
  format: "json"
`
	path := writeTempConfig(t, yaml)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig error: %v", err)
	}
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9999 {
		t.Errorf("Server = %s:%d, want 127.0.0.1:9999", cfg.Server.Host, cfg.Server.Port)
	}
	if cfg.Scan.MaxUploadBytes != 2048 || cfg.Scan.CacheSize != 0 {
		t.Errorf("Scan = %+v", cfg.Scan)
	}
	if cfg.IsModuleEnabled(PDFScannerModule) {
		t.Error("pdf_scanner should be disabled")
	}
	if !cfg.IsModuleEnabled(DOCXScannerModule) {
		t.Error("docx_scanner should keep its default")
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
		t.Errorf("Logging = %+v", cfg.Logging)
	}
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	path := writeTempConfig(t, ": bad: yaml: {{{{")
	if _, err := LoadConfig(path); err == nil {
		t.Error("expected error for invalid YAML")
	}
}

func TestLoadConfig_APIKey_FromEnv(t *testing.T) {
	t.Setenv("DOCSHIELD_API_KEY", "env-test-key-12345")
	cfg, err := LoadConfig(writeTempConfig(t, ""))
	if err != nil {
		t.Fatal(err)
	}
	if len(cfg.Server.APIKeys) != 1 || cfg.Server.APIKeys[0] != "env-test-key-12345" {
		t.Errorf("APIKeys = %v, want the env key", cfg.Server.APIKeys)
	}
}

func TestLoadConfig_APIKey_FromConfig_TakesPrecedence(t *testing.T) {
	t.Setenv("DOCSHIELD_API_KEY", "env-key")
	yaml := `
server:
  api_keys:
    - "config-key"
`
	cfg, err := LoadConfig(writeTempConfig(t, yaml))
	if err != nil {
		t.Fatal(err)
	}
	if len(cfg.Server.APIKeys) != 1 || cfg.Server.APIKeys[0] != "config-key" {
		t.Errorf("expected config key to take precedence: %v", cfg.Server.APIKeys)
	}
}

// ─── SaveConfig ─────────────────────────────────────────────────────────────

func TestSaveConfig_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "docshield.yaml")

	original := DefaultConfig()
	original.Server.Port = 8888
	original.Scan.MaxUploadBytes = 4096
	original.Logging.Level = "debug"

	if err := SaveConfig(original, path); err != nil {
		t.Fatalf("SaveConfig error: %v", err)
	}
	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig after save error: %v", err)
	}
	if loaded.Server.Port != 8888 || loaded.Scan.MaxUploadBytes != 4096 || loaded.Logging.Level != "debug" {
		t.Errorf("round trip lost values: %+v", loaded)
	}
	if got := loaded.GetModuleSettings(RiskOracleModule)["model"]; got != "gemini-flash-latest" {
		t.Errorf("oracle model = %v after round trip", got)
	}
}

// ─── Validate ───────────────────────────────────────────────────────────────

func TestValidate_ReportsProblems(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Server.Port = 70000
	cfg.Scan.MaxUploadBytes = 0
	cfg.Logging.Level = "loud"
	cfg.Logging.Format = "xml"
	cfg.Modules[DOCXScannerModule] = ModuleConfig{Enabled: false}
	cfg.Modules[PDFScannerModule] = ModuleConfig{Enabled: false}

	problems := cfg.Validate()
	if len(problems) != 5 {
		t.Fatalf("Validate() = %d problems, want 5: %v", len(problems), problems)
	}
	joined := strings.Join(problems, "\n")
	for _, want := range []string{"server.port", "max_upload_bytes", "logging.level", "logging.format", "docx_scanner"} {
		if !strings.Contains(joined, want) {
			t.Errorf("problems missing %q: %v", want, problems)
		}
	}
}

func TestValidate_ExternalBusNeedsURL(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Bus.Enabled = true
	cfg.Bus.Embedded = false
	cfg.Bus.URL = ""
	if problems := cfg.Validate(); len(problems) != 1 {
		t.Errorf("Validate() = %v, want one bus problem", problems)
	}
}

// ─── Modules ────────────────────────────────────────────────────────────────

func TestIsModuleEnabled(t *testing.T) {
	cfg := DefaultConfig()
	if !cfg.IsModuleEnabled(DOCXScannerModule) {
		t.Error("docx_scanner should be enabled")
	}
	if !cfg.IsModuleEnabled("unknown_module") {
		t.Error("unknown module should default to enabled")
	}
	cfg.Modules[DOCXScannerModule] = ModuleConfig{Enabled: false}
	if cfg.IsModuleEnabled(DOCXScannerModule) {
		t.Error("docx_scanner should now be disabled")
	}
}

func TestGetModuleSettings(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.GetModuleSettings(DOCXScannerModule) == nil {
		t.Error("expected non-nil settings")
	}
	if cfg.GetModuleSettings("nonexistent") == nil {
		t.Error("expected non-nil map for nonexistent module")
	}
}

// ─── Redacted ───────────────────────────────────────────────────────────────

func TestRedacted_MasksSecrets(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Server.APIKeys = []string{"server-secret"}
	cfg.Modules[RiskOracleModule] = ModuleConfig{Enabled: true, Settings: map[string]interface{}{
		"gemini_api_key":  "AIza-secret",
		"gemini_api_keys": []interface{}{"k1", "k2"},
		"model":           "gemini-flash-latest",
	}}

	r := cfg.Redacted()
	if r.Server.APIKeys[0] != "****" {
		t.Errorf("server key not redacted: %v", r.Server.APIKeys)
	}
	s := r.Modules[RiskOracleModule].Settings
	if s["gemini_api_key"] != "****" {
		t.Errorf("gemini_api_key = %v", s["gemini_api_key"])
	}
	if keys, ok := s["gemini_api_keys"].([]string); !ok || len(keys) != 2 || keys[0] != "****" {
		t.Errorf("gemini_api_keys = %v", s["gemini_api_keys"])
	}
	if s["model"] != "gemini-flash-latest" {
		t.Errorf("model should not be redacted: %v", s["model"])
	}

	// The source config is untouched.
	if cfg.Server.APIKeys[0] != "server-secret" || cfg.Modules[RiskOracleModule].Settings["gemini_api_key"] != "AIza-secret" {
		t.Error("Redacted must not modify the receiver")
	}
}

// ─── LogLevel / auth ────────────────────────────────────────────────────────

func TestLogLevel(t *testing.T) {
	cases := []struct{ in, want string }{
		{"INFO", "info"},
		{"DEBUG", "debug"},
		{"Warn", "warn"},
		{"", ""},
	}
	for _, tc := range cases {
		cfg := DefaultConfig()
		cfg.Logging.Level = tc.in
		if got := cfg.LogLevel(); got != tc.want {
			t.Errorf("LogLevel(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestAuthEnabled(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.AuthEnabled() {
		t.Error("AuthEnabled should be false with no keys")
	}
	cfg.Server.APIKeys = []string{"key1"}
	if !cfg.AuthEnabled() {
		t.Error("AuthEnabled should be true with keys")
	}
}

func TestValidateAPIKey(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Server.APIKeys = []string{"correct-key", "another-key"}

	if !cfg.ValidateAPIKey("correct-key") || !cfg.ValidateAPIKey("another-key") {
		t.Error("configured keys should be accepted")
	}
	if cfg.ValidateAPIKey("wrong-key") || cfg.ValidateAPIKey("") {
		t.Error("unknown keys should be rejected")
	}
	// Long inputs must not panic.
	cfg.ValidateAPIKey(strings.Repeat("b", 10000))
}

func TestListenAddr(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = 8080
	if got := cfg.ListenAddr(); got != "127.0.0.1:8080" {
		t.Errorf("ListenAddr() = %q", got)
	}
}

// ─── Helpers ────────────────────────────────────────────────────────────────

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "docshield-*.yaml")
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if _, err := f.WriteString(content); err != nil {
		t.Fatal(err)
	}
	return f.Name()
}

func TestLoadConfig_ShippedSample(t *testing.T) {
	t.Setenv("DOCSHIELD_API_KEY", "")
	cfg, err := LoadConfig("../../configs/docshield.yaml")
	if err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}
	if problems := cfg.Validate(); len(problems) > 0 {
		t.Errorf("shipped config has problems: %v", problems)
	}
	if cfg.Scan.MaxUploadBytes != DefaultMaxUploadBytes {
		t.Errorf("MaxUploadBytes = %d, want default", cfg.Scan.MaxUploadBytes)
	}
}
