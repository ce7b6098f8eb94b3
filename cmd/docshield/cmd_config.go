package main

// ---------------------------------------------------------------------------
// cmd_config.go: show, validate, init, or set configuration
// ---------------------------------------------------------------------------

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/docshield/docshield/internal/core"
)

func cmdConfig(args []string) {
	action := "show"
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		action, args = args[0], args[1:]
	}

	fs := flag.NewFlagSet("config "+action, flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "Config file path")
	format := fs.String("format", "yaml", "Output format for show: yaml, json")
	force := fs.Bool("force", false, "Overwrite an existing file (init)")
	noColor := colorFlag(fs)
	fs.Parse(args)
	applyColor(*noColor)
	*configPath = envConfig(*configPath)

	switch action {
	case "show":
		configShow(*configPath, *format)
	case "validate":
		os.Exit(configValidate(*configPath))
	case "init":
		configInit(*configPath, *force)
	case "set":
		if fs.NArg() != 2 {
			errorf("usage: docshield config set <key> <value>\n\nExamples:\n  docshield config set server.port 8080\n  docshield config set modules.risk_oracle.enabled false")
		}
		configSet(*configPath, fs.Arg(0), fs.Arg(1))
	default:
		errorf("unknown config action %q (show, validate, init, set)", action)
	}
}

func configShow(path, format string) {
	cfg, err := core.LoadConfig(path)
	if err != nil {
		errorf("loading config: %v", err)
	}
	redacted := cfg.Redacted()
	if strings.EqualFold(format, "json") {
		data, err := json.MarshalIndent(redacted, "", "  ")
		if err != nil {
			errorf("marshaling config: %v", err)
		}
		fmt.Fprintln(stdout, string(data))
		return
	}
	data, err := yaml.Marshal(redacted)
	if err != nil {
		errorf("marshaling config: %v", err)
	}
	fmt.Fprint(stdout, string(data))
}

func configValidate(path string) int {
	cfg, err := core.LoadConfig(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s Config invalid: %v\n", red("✗"), err)
		return 1
	}
	if problems := cfg.Validate(); len(problems) > 0 {
		fmt.Fprintf(os.Stderr, "%s Config has %d issue(s):\n", red("✗"), len(problems))
		for _, p := range problems {
			fmt.Fprintf(os.Stderr, "  - %s\n", p)
		}
		return 1
	}

	enabled := 0
	for _, mod := range cfg.Modules {
		if mod.Enabled {
			enabled++
		}
	}
	fmt.Fprintf(stdout, "%s Config valid (%s). %d/%d modules enabled.\n",
		green("✓"), path, enabled, len(cfg.Modules))
	return 0
}

func configInit(path string, force bool) {
	if _, err := os.Stat(path); err == nil && !force {
		errorf("%s already exists, pass --force to overwrite", path)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			errorf("creating %s: %v", dir, err)
		}
	}
	if err := core.SaveConfig(core.DefaultConfig(), path); err != nil {
		errorf("writing config: %v", err)
	}
	fmt.Fprintf(stdout, "%s Wrote default config to %s\n", green("✓"), path)
}

func configSet(path, key, value string) {
	data, err := os.ReadFile(path)
	if err != nil {
		errorf("reading config: %v", err)
	}

	raw := map[string]interface{}{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		errorf("parsing config: %v", err)
	}
	if err := setNestedValue(raw, strings.Split(key, "."), value); err != nil {
		errorf("setting %s: %v", key, err)
	}

	out, err := yaml.Marshal(raw)
	if err != nil {
		errorf("marshaling config: %v", err)
	}
	var check core.Config
	if err := yaml.Unmarshal(out, &check); err != nil {
		errorf("%s=%s does not fit the config schema: %v", key, value, err)
	}
	if err := os.WriteFile(path, out, 0600); err != nil {
		errorf("writing config: %v", err)
	}
	fmt.Fprintf(stdout, "%s Set %s = %s in %s\n", green("✓"), bold(key), value, path)
}

func setNestedValue(m map[string]interface{}, path []string, value string) error {
	if len(path) == 0 || path[0] == "" {
		return fmt.Errorf("empty key path")
	}
	if len(path) == 1 {
		m[path[0]] = parseValue(value)
		return nil
	}

	next, ok := m[path[0]]
	if !ok || next == nil {
		next = map[string]interface{}{}
		m[path[0]] = next
	}
	nextMap, ok := next.(map[string]interface{})
	if !ok {
		return fmt.Errorf("key %q is not a map", path[0])
	}
	return setNestedValue(nextMap, path[1:], value)
}

// parseValue converts a command-line value to a bool, int, float or string.
func parseValue(s string) interface{} {
	switch strings.ToLower(s) {
	case "true":
		return true
	case "false":
		return false
	}
	if i, err := strconv.Atoi(s); err == nil {
		return i
	}
	if strings.Contains(s, ".") {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
	}
	return s
}
