package main

// ---------------------------------------------------------------------------
// cmd_logs.go: fetch recent logs from a running instance
// ---------------------------------------------------------------------------

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"strings"
	"time"
)

type logLine struct {
	Timestamp time.Time `json:"timestamp"`
	Level     string    `json:"level"`
	Component string    `json:"component"`
	Message   string    `json:"message"`
}

func cmdLogs(args []string) {
	fs := flag.NewFlagSet("logs", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "Config file path")
	host := fs.String("host", "", "API host override")
	port := fs.Int("port", 0, "API port override")
	apiKeyFlag := fs.String("api-key", "", "API key for authentication")
	lines := fs.Int("lines", 50, "Number of log lines to fetch")
	format := fs.String("format", "table", "Output format: table, json")
	jsonOut := fs.Bool("json", false, "Output raw JSON")
	output := fs.String("output", "", "Write output to file")
	timeoutStr := fs.String("timeout", "5s", "Request timeout")
	noColor := colorFlag(fs)
	fs.Parse(args)
	applyColor(*noColor)

	*configPath = envConfig(*configPath)
	if *jsonOut {
		*format = "json"
	}

	timeout, err := time.ParseDuration(*timeoutStr)
	if err != nil {
		errorf("invalid timeout %q: %v", *timeoutStr, err)
	}

	base := apiBase(*configPath, envHost(*host), envPort(*port))
	apiKey := resolveAPIKey(*apiKeyFlag, *configPath)
	body, err := apiGet(fmt.Sprintf("%s/api/v1/logs?limit=%d", base, *lines), apiKey, timeout)
	if err != nil {
		errorf("%v", err)
	}

	w, cleanup := outputWriter(*output)
	defer cleanup()

	if parseFormat(*format) == FormatJSON {
		fmt.Fprintln(w, string(body))
		return
	}

	var resp struct {
		Logs []logLine `json:"logs"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		errorf("parsing response: %v", err)
	}
	printLogs(w, resp.Logs)
}

func printLogs(w io.Writer, logs []logLine) {
	if len(logs) == 0 {
		fmt.Fprintln(w, dim("no log entries"))
		return
	}
	for _, l := range logs {
		level := strings.ToUpper(l.Level)
		switch level {
		case "ERROR", "FATAL", "PANIC":
			level = red(level)
		case "WARN":
			level = yellow(level)
		case "DEBUG":
			level = dim(level)
		}
		component := ""
		if l.Component != "" {
			component = cyan("[" + l.Component + "] ")
		}
		fmt.Fprintf(w, "%s %-5s %s%s\n", dim(l.Timestamp.Format(time.RFC3339)), level, component, l.Message)
	}
}
