package main

// ---------------------------------------------------------------------------
// cmd_status.go: fetch status from a running instance
// ---------------------------------------------------------------------------

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"sort"
	"time"
)

func cmdStatus(args []string) {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "Config file path")
	host := fs.String("host", "", "API host override")
	port := fs.Int("port", 0, "API port override")
	apiKeyFlag := fs.String("api-key", "", "API key for authentication")
	format := fs.String("format", "table", "Output format: table, json")
	jsonOut := fs.Bool("json", false, "Output raw JSON (shorthand for --format json)")
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
	body, err := apiGet(base+"/api/v1/status", apiKey, timeout)
	if err != nil {
		errorf("%v", err)
	}

	w, cleanup := outputWriter(*output)
	defer cleanup()

	if parseFormat(*format) == FormatJSON {
		fmt.Fprintln(w, string(body))
		return
	}

	var status map[string]interface{}
	if err := json.Unmarshal(body, &status); err != nil {
		errorf("parsing response: %v", err)
	}
	printStatus(w, status)
}

func printStatus(w io.Writer, status map[string]interface{}) {
	fmt.Fprintf(w, "%s docshield status\n\n", bold("●"))
	fmt.Fprintf(w, "  %-16s %s\n", "Version:", green(fmt.Sprint(status["version"])))
	fmt.Fprintf(w, "  %-16s %s\n", "Status:", green(fmt.Sprint(status["status"])))
	if up, ok := status["uptime_secs"].(float64); ok {
		fmt.Fprintf(w, "  %-16s %s\n", "Uptime:", (time.Duration(up) * time.Second).String())
	}
	fmt.Fprintf(w, "  %-16s %v\n", "Auth enabled:", status["auth_enabled"])

	if bus, ok := status["bus"].(map[string]interface{}); ok {
		state := dim("disabled")
		if enabled, _ := bus["enabled"].(bool); enabled {
			state = yellow("disconnected")
			if connected, _ := bus["connected"].(bool); connected {
				state = green("connected")
			}
		}
		fmt.Fprintf(w, "  %-16s %s\n", "Event bus:", state)
	}

	if oracle, ok := status["risk_oracle"].(map[string]interface{}); ok {
		fmt.Fprintf(w, "  %-16s model=%v breaker=%v\n", "Risk oracle:", oracle["model"], oracle["breaker"])
	}

	if stats, ok := status["engine"].(map[string]interface{}); ok && len(stats) > 0 {
		fmt.Fprintf(w, "\n  %s\n", bold("Engine:"))
		keys := make([]string, 0, len(stats))
		for k := range stats {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		t := NewTable(w, "COUNTER", "VALUE")
		for _, k := range keys {
			t.AddRow(k, fmt.Sprint(stats[k]))
		}
		t.Render()
	}

	if scanners, ok := status["scanners"].([]interface{}); ok && len(scanners) > 0 {
		fmt.Fprintf(w, "\n  %s\n", bold("Scanners:"))
		for _, s := range scanners {
			sc, ok := s.(map[string]interface{})
			if !ok {
				continue
			}
			marker := green("●")
			if enabled, ok := sc["enabled"].(bool); ok && !enabled {
				marker = red("○")
			}
			fmt.Fprintf(w, "    %s %-14s %-5v %s\n", marker, sc["name"], sc["format"], dim(fmt.Sprint(sc["description"])))
		}
	}
	fmt.Fprintln(w)
}
