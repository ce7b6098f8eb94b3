package main

// ---------------------------------------------------------------------------
// cmd_scan.go: scan one document locally or through a running instance
// ---------------------------------------------------------------------------

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/docshield/docshield/internal/analysis"
	"github.com/docshield/docshield/internal/core"
)

// exitHighRisk is the process exit code when the document reaches the
// --fail-on level.
const exitHighRisk = 2

func cmdScan(args []string) int {
	fs := flag.NewFlagSet("scan", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "Config file path")
	format := fs.String("format", "table", "Output format: table, json, csv")
	jsonOut := fs.Bool("json", false, "Output raw JSON (shorthand for --format json)")
	output := fs.String("output", "", "Write output to file")
	noOracle := fs.Bool("no-oracle", false, "Score with the deterministic fallback only")
	remote := fs.Bool("remote", false, "Upload to a running instance instead of scanning in-process")
	host := fs.String("host", "", "API host override (with --remote)")
	port := fs.Int("port", 0, "API port override (with --remote)")
	apiKeyFlag := fs.String("api-key", "", "API key for authentication (with --remote)")
	timeoutStr := fs.String("timeout", "60s", "Scan timeout")
	failOn := fs.String("fail-on", "high", "Exit with code 2 at or above this risk level: low, medium, high, none")
	noColor := colorFlag(fs)
	fs.Parse(args)
	applyColor(*noColor)

	if fs.NArg() != 1 {
		errorf("usage: docshield scan [flags] <file.docx|file.pdf>")
	}
	path := fs.Arg(0)
	*configPath = envConfig(*configPath)
	if *jsonOut {
		*format = "json"
	}

	timeout, err := time.ParseDuration(*timeoutStr)
	if err != nil {
		errorf("invalid timeout %q: %v", *timeoutStr, err)
	}
	threshold, err := parseFailOn(*failOn)
	if err != nil {
		errorf("%v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		errorf("reading %s: %v", path, err)
	}

	var raw []byte
	if *remote {
		base := apiBase(*configPath, envHost(*host), envPort(*port))
		apiKey := resolveAPIKey(*apiKeyFlag, *configPath)
		raw, err = apiUpload(base+"/api/analyze", path, data, apiKey, timeout)
		if err != nil {
			errorf("%v", err)
		}
	} else {
		raw, err = scanLocal(*configPath, path, data, !*noOracle, timeout)
		if err != nil {
			errorf("%v", err)
		}
	}

	w, cleanup := outputWriter(*output)
	defer cleanup()
	if err := printReport(w, raw, parseFormat(*format)); err != nil {
		errorf("%v", err)
	}

	r, err := decodeReport(raw)
	if err != nil {
		return 0
	}
	return exitCode(r.RiskLevel, threshold)
}

var levelRank = map[analysis.RiskLevel]int{
	analysis.RiskLow:    1,
	analysis.RiskMedium: 2,
	analysis.RiskHigh:   3,
}

// parseFailOn reads the --fail-on value. "none" yields an empty level,
// which never fails the run.
func parseFailOn(s string) (analysis.RiskLevel, error) {
	if strings.EqualFold(strings.TrimSpace(s), "none") {
		return "", nil
	}
	level, ok := analysis.ParseRiskLevel(s)
	if !ok {
		return "", fmt.Errorf("invalid --fail-on %q (want low, medium, high or none)", s)
	}
	return level, nil
}

func exitCode(level string, threshold analysis.RiskLevel) int {
	if threshold == "" {
		return 0
	}
	got, ok := analysis.ParseRiskLevel(level)
	if !ok {
		return 0
	}
	if levelRank[got] >= levelRank[threshold] {
		return exitHighRisk
	}
	return 0
}

// scanLocal runs the document through an in-process engine and returns the
// report as JSON. Engine logs are limited to warnings so they do not mix
// with the report.
func scanLocal(configPath, path string, data []byte, withOracle bool, timeout time.Duration) ([]byte, error) {
	cfg, err := core.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	if cfg.LogLevel() == "info" || cfg.LogLevel() == "debug" {
		cfg.Logging.Level = "warn"
	}
	cfg.Bus.Enabled = false

	engine, _, err := buildEngine(cfg, withOracle)
	if err != nil {
		return nil, err
	}
	defer engine.Shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	report, err := engine.Analyze(ctx, core.Upload{Name: filepath.Base(path), Data: data})
	if err != nil {
		return nil, err
	}
	return json.Marshal(report)
}
