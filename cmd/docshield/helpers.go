package main

// ---------------------------------------------------------------------------
// helpers.go: color, error helpers, env-based config
// ---------------------------------------------------------------------------

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"

	"github.com/docshield/docshield/internal/core"
)

const defaultConfigPath = "configs/docshield.yaml"

// ---------------------------------------------------------------------------
// Color helpers. fatih/color disables itself for NO_COLOR and non-TTY output.
// ---------------------------------------------------------------------------

var (
	red    = color.New(color.FgHiRed).SprintFunc()
	yellow = color.New(color.FgHiYellow).SprintFunc()
	green  = color.New(color.FgGreen).SprintFunc()
	cyan   = color.New(color.FgCyan).SprintFunc()
	dim    = color.New(color.FgHiBlack).SprintFunc()
	bold   = color.New(color.Bold).SprintFunc()
)

func disableColor() {
	color.NoColor = true
}

// colorFlag registers --no-color on fs. Pass the result to applyColor once
// fs has been parsed.
func colorFlag(fs *flag.FlagSet) *bool {
	return fs.Bool("no-color", false, "Disable color output")
}

func applyColor(noColor bool) {
	if noColor {
		disableColor()
	}
}

// levelColor paints a risk level the way the table output shows it.
func levelColor(level string) string {
	switch level {
	case "HIGH":
		return red(level)
	case "MEDIUM":
		return yellow(level)
	case "LOW":
		return green(level)
	default:
		return level
	}
}

// ---------------------------------------------------------------------------
// Error / warn helpers (always to stderr)
// ---------------------------------------------------------------------------

func errorf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, red("error: ")+format+"\n", args...)
	os.Exit(1)
}

func warnf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, yellow("warn: ")+format+"\n", args...)
}

// ---------------------------------------------------------------------------
// Env-based configuration
//
//   DOCSHIELD_CONFIG: default config file path
//   DOCSHIELD_HOST: API host override
//   DOCSHIELD_PORT: API port override
//   DOCSHIELD_API_KEY: API key for authentication
// ---------------------------------------------------------------------------

// envConfig returns the config path, preferring flag > env > default.
func envConfig(flagVal string) string {
	if flagVal != "" && flagVal != defaultConfigPath {
		return flagVal
	}
	if e := os.Getenv("DOCSHIELD_CONFIG"); e != "" {
		return e
	}
	return flagVal
}

func envHost(flagVal string) string {
	if flagVal != "" {
		return flagVal
	}
	return os.Getenv("DOCSHIELD_HOST")
}

func envPort(flagVal int) int {
	if flagVal != 0 {
		return flagVal
	}
	if e := os.Getenv("DOCSHIELD_PORT"); e != "" {
		if p, err := strconv.Atoi(e); err == nil {
			return p
		}
	}
	return 0
}

// apiBase builds the base URL of a running instance from config and
// overrides. A wildcard listen host is reached over loopback.
func apiBase(configPath, hostOverride string, portOverride int) string {
	host := "127.0.0.1"
	port := core.DefaultConfig().Server.Port

	cfg, err := core.LoadConfig(configPath)
	if err == nil && cfg != nil {
		if cfg.Server.Host != "" && cfg.Server.Host != "0.0.0.0" {
			host = cfg.Server.Host
		}
		if cfg.Server.Port != 0 {
			port = cfg.Server.Port
		}
	}

	if hostOverride != "" {
		host = hostOverride
	}
	if portOverride != 0 {
		port = portOverride
	}
	return fmt.Sprintf("http://%s:%d", host, port)
}

// resolveAPIKey returns the API key from flag, env, or config (in that order).
func resolveAPIKey(flagKey, configPath string) string {
	if flagKey != "" {
		return flagKey
	}
	if envKey := os.Getenv("DOCSHIELD_API_KEY"); envKey != "" {
		return envKey
	}
	cfg, err := core.LoadConfig(configPath)
	if err == nil && cfg != nil && len(cfg.Server.APIKeys) > 0 {
		return cfg.Server.APIKeys[0]
	}
	return ""
}

// ---------------------------------------------------------------------------
// Suggest: typo correction for unknown commands
// ---------------------------------------------------------------------------

var commands = []string{"up", "scan", "status", "logs", "config", "reload", "stop", "version", "help"}

func suggest(input string) string {
	input = strings.ToLower(input)
	if input == "" {
		return ""
	}
	for _, c := range commands {
		if strings.HasPrefix(c, input) || strings.HasPrefix(input, c) {
			return c
		}
	}
	for _, c := range commands {
		if len(c) != len(input) {
			continue
		}
		diff := 0
		for i := range c {
			if c[i] != input[i] {
				diff++
			}
		}
		if diff <= 1 {
			return c
		}
	}
	return ""
}
