package main

// ---------------------------------------------------------------------------
// cmd_stop.go: stop or reload a running instance
// ---------------------------------------------------------------------------

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"
)

func remoteFlags(name string, args []string) (base, apiKey string, timeout time.Duration) {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "Config file path")
	host := fs.String("host", "", "API host override")
	port := fs.Int("port", 0, "API port override")
	apiKeyFlag := fs.String("api-key", "", "API key for authentication")
	timeoutStr := fs.String("timeout", "5s", "Request timeout")
	noColor := colorFlag(fs)
	fs.Parse(args)
	applyColor(*noColor)

	*configPath = envConfig(*configPath)
	t, err := time.ParseDuration(*timeoutStr)
	if err != nil {
		errorf("invalid timeout %q: %v", *timeoutStr, err)
	}
	return apiBase(*configPath, envHost(*host), envPort(*port)), resolveAPIKey(*apiKeyFlag, *configPath), t
}

func cmdStop(args []string) {
	base, apiKey, timeout := remoteFlags("stop", args)
	if _, err := apiPost(base+"/api/v1/shutdown", nil, apiKey, timeout); err != nil {
		errorf("%v", err)
	}
	fmt.Fprintf(os.Stdout, "%s Shutdown requested.\n", green("✓"))
}

func cmdReload(args []string) {
	base, apiKey, timeout := remoteFlags("reload", args)
	body, err := apiPost(base+"/api/v1/config/reload", nil, apiKey, timeout)
	if err != nil {
		errorf("%v", err)
	}
	var resp struct {
		Changes []string `json:"changes"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		errorf("parsing response: %v", err)
	}
	fmt.Fprintf(os.Stdout, "%s Config reloaded.\n", green("✓"))
	for _, c := range resp.Changes {
		fmt.Fprintf(os.Stdout, "  - %s\n", c)
	}
}
