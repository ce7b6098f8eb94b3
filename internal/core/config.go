package core

import (
	"crypto/subtle"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the entire docshield configuration.
type Config struct {
	Server  ServerConfig            `yaml:"server"`
	Bus     BusConfig               `yaml:"bus"`
	Scan    ScanConfig              `yaml:"scan"`
	Modules map[string]ModuleConfig `yaml:"modules"`
	Logging LoggingConfig           `yaml:"logging"`
}

// ServerConfig holds API server settings.
type ServerConfig struct {
	Host        string   `yaml:"host"`
	Port        int      `yaml:"port"`
	APIKeys     []string `yaml:"api_keys"`
	CORSOrigins []string `yaml:"cors_origins"`
	RateLimit   int      `yaml:"rate_limit"` // requests per minute per client IP, 0 disables
}

// BusConfig holds NATS scan event bus settings.
type BusConfig struct {
	Enabled  bool   `yaml:"enabled"`
	URL      string `yaml:"url"`
	Embedded bool   `yaml:"embedded"`
	DataDir  string `yaml:"data_dir"`
	Port     int    `yaml:"port"`
}

// ScanConfig holds limits applied to every scan.
type ScanConfig struct {
	MaxUploadBytes int64 `yaml:"max_upload_bytes"`
	CacheSize      int   `yaml:"cache_size"` // 0 disables the result cache
	MaxPDFPages    int   `yaml:"max_pdf_pages"`
}

// ModuleConfig holds per-module configuration.
type ModuleConfig struct {
	Enabled  bool                   `yaml:"enabled"`
	Settings map[string]interface{} `yaml:"settings"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Module names known to the default configuration.
const (
	DOCXScannerModule = "docx_scanner"
	PDFScannerModule  = "pdf_scanner"
	RiskOracleModule  = "risk_oracle"
)

// DefaultMaxUploadBytes is the upload cap applied when none is configured.
const DefaultMaxUploadBytes = 10 << 20

// DefaultConfig returns a Config that works without a config file.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:      "0.0.0.0",
			Port:      1790,
			RateLimit: 120,
		},
		Bus: BusConfig{
			Enabled:  false,
			URL:      "nats://127.0.0.1:4223",
			Embedded: true,
			DataDir:  "./data/nats",
			Port:     4223,
		},
		Scan: ScanConfig{
			MaxUploadBytes: DefaultMaxUploadBytes,
			CacheSize:      256,
			MaxPDFPages:    0,
		},
		Modules: map[string]ModuleConfig{
			DOCXScannerModule: {Enabled: true, Settings: map[string]interface{}{}},
			PDFScannerModule:  {Enabled: true, Settings: map[string]interface{}{}},
			RiskOracleModule: {Enabled: true, Settings: map[string]interface{}{
				"model":           "gemini-flash-latest",
				"timeout_seconds": 20,
				"max_tokens":      512,
			}},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// LoadConfig loads configuration from a YAML file, falling back to defaults
// when path is empty or the file does not exist.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
		case err != nil:
			return nil, fmt.Errorf("reading config file: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing config file: %w", err)
			}
		}
	}

	if len(cfg.Server.APIKeys) == 0 {
		if envKey := os.Getenv("DOCSHIELD_API_KEY"); envKey != "" {
			cfg.Server.APIKeys = []string{envKey}
		}
	}

	return cfg, nil
}

// SaveConfig writes the configuration to a YAML file.
func SaveConfig(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	return os.WriteFile(path, data, 0600)
}

// Validate reports every problem found in the configuration.
func (c *Config) Validate() []string {
	var problems []string
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		problems = append(problems, fmt.Sprintf("server.port %d out of range", c.Server.Port))
	}
	if c.Server.RateLimit < 0 {
		problems = append(problems, "server.rate_limit must not be negative")
	}
	if c.Scan.MaxUploadBytes <= 0 {
		problems = append(problems, "scan.max_upload_bytes must be positive")
	}
	if c.Scan.CacheSize < 0 {
		problems = append(problems, "scan.cache_size must not be negative")
	}
	if c.Bus.Enabled && !c.Bus.Embedded && c.Bus.URL == "" {
		problems = append(problems, "bus.url is required for an external bus")
	}
	switch c.LogLevel() {
	case "trace", "debug", "info", "warn", "error", "fatal", "panic", "disabled", "":
	default:
		problems = append(problems, fmt.Sprintf("logging.level %q is not a valid level", c.Logging.Level))
	}
	switch c.Logging.Format {
	case "console", "json", "":
	default:
		problems = append(problems, fmt.Sprintf("logging.format %q must be console or json", c.Logging.Format))
	}
	if !c.IsModuleEnabled(DOCXScannerModule) && !c.IsModuleEnabled(PDFScannerModule) {
		problems = append(problems, "at least one of docx_scanner or pdf_scanner must be enabled")
	}
	return problems
}

// IsModuleEnabled checks if a module is enabled in the configuration.
// Modules missing from the config are enabled.
func (c *Config) IsModuleEnabled(name string) bool {
	mod, ok := c.Modules[name]
	if !ok {
		return true
	}
	return mod.Enabled
}

// GetModuleSettings returns the settings map for a module.
func (c *Config) GetModuleSettings(name string) map[string]interface{} {
	mod, ok := c.Modules[name]
	if !ok || mod.Settings == nil {
		return map[string]interface{}{}
	}
	return mod.Settings
}

// ListenAddr is the host:port the API server binds to.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// LogLevel returns the normalized log level string.
func (c *Config) LogLevel() string {
	return strings.ToLower(c.Logging.Level)
}

// AuthEnabled returns true if API key authentication is configured.
func (c *Config) AuthEnabled() bool {
	return len(c.Server.APIKeys) > 0
}

// ValidateAPIKey checks if the provided key matches any configured API key
// in constant time.
func (c *Config) ValidateAPIKey(key string) bool {
	for _, valid := range c.Server.APIKeys {
		if subtle.ConstantTimeCompare([]byte(key), []byte(valid)) == 1 {
			return true
		}
	}
	return false
}

// Redacted returns a copy safe to expose over the API: server keys and
// secret-looking module settings are masked.
func (c *Config) Redacted() *Config {
	out := *c
	out.Server.APIKeys = redactList(c.Server.APIKeys)
	out.Modules = make(map[string]ModuleConfig, len(c.Modules))
	for name, mod := range c.Modules {
		settings := make(map[string]interface{}, len(mod.Settings))
		for k, v := range mod.Settings {
			if isSecretSetting(k) {
				switch vv := v.(type) {
				case []interface{}:
					settings[k] = redactList(toStrings(vv))
				case []string:
					settings[k] = redactList(vv)
				default:
					settings[k] = "****"
				}
				continue
			}
			settings[k] = v
		}
		out.Modules[name] = ModuleConfig{Enabled: mod.Enabled, Settings: settings}
	}
	return &out
}

func isSecretSetting(key string) bool {
	k := strings.ToLower(key)
	return strings.Contains(k, "api_key") || strings.Contains(k, "secret") ||
		strings.Contains(k, "password") || strings.HasSuffix(k, "_token")
}

func redactList(in []string) []string {
	if len(in) == 0 {
		return in
	}
	out := make([]string, len(in))
	for i := range in {
		out[i] = "****"
	}
	return out
}

func toStrings(in []interface{}) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		out = append(out, fmt.Sprint(v))
	}
	return out
}
