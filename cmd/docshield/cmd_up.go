package main

// ---------------------------------------------------------------------------
// cmd_up.go: start the docshield server
// ---------------------------------------------------------------------------

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/docshield/docshield/internal/api"
	"github.com/docshield/docshield/internal/core"
)

func cmdUp(args []string) {
	fs := flag.NewFlagSet("up", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "Config file path")
	logLevel := fs.String("log-level", "", "Log level override: debug, info, warn, error")
	dryRun := fs.Bool("dry-run", false, "Validate config and scanners, then exit")
	quiet := fs.Bool("quiet", false, "Suppress banner and non-essential output")
	fs.BoolVar(quiet, "q", false, "Suppress banner and non-essential output")
	noColor := colorFlag(fs)
	fs.Parse(args)
	applyColor(*noColor)

	*configPath = envConfig(*configPath)

	if !*quiet {
		fmt.Fprint(os.Stderr, bannerText())
	}

	cfg, err := core.LoadConfig(*configPath)
	if err != nil {
		errorf("loading config: %v", err)
	}
	if problems := cfg.Validate(); len(problems) > 0 {
		for _, p := range problems {
			fmt.Fprintf(os.Stderr, "%s %s\n", red("✗"), p)
		}
		errorf("config validation failed with %d error(s)", len(problems))
	}
	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}

	engine, client, err := buildEngine(cfg, true)
	if err != nil {
		errorf("creating engine: %v", err)
	}

	if *dryRun {
		fmt.Fprintf(os.Stdout, "%s Config valid. %d scanner(s) registered, risk oracle %s.\n",
			green("✓"), engine.Registry.Count(), oracleState(cfg, client.Enabled()))
		os.Exit(0)
	}

	if !*quiet {
		fmt.Fprintf(os.Stderr, "%s Starting docshield engine...\n", dim("▸"))
	}

	if err := engine.Start(); err != nil {
		errorf("starting engine: %v", err)
	}

	srv := api.NewServer(engine, api.Options{
		Version:    version,
		ConfigPath: *configPath,
		Extras:     []api.StatusProvider{client},
	})
	if err := srv.Start(); err != nil {
		errorf("starting API server: %v", err)
	}

	if !*quiet {
		fmt.Fprintf(os.Stderr, "%s docshield running: %d scanner(s), risk oracle %s, API on %s\n",
			green("✓"), engine.Registry.Count(), oracleState(cfg, client.Enabled()), cfg.ListenAddr())
		fmt.Fprintf(os.Stderr, "%s Press Ctrl+C to stop\n", dim("▸"))
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	for sig := range sigCh {
		if sig == syscall.SIGHUP {
			changes, err := core.ReloadConfig(engine, *configPath)
			if err != nil {
				warnf("config reload failed: %v", err)
				continue
			}
			for _, c := range changes {
				fmt.Fprintf(os.Stderr, "%s reload: %s\n", dim("▸"), c)
			}
			continue
		}
		if !*quiet {
			fmt.Fprintf(os.Stderr, "\n%s Received %s, shutting down...\n", dim("▸"), sig)
		}
		break
	}
	signal.Stop(sigCh)

	if err := srv.Stop(); err != nil {
		warnf("stopping API server: %v", err)
	}
	if err := engine.Shutdown(); err != nil {
		warnf("stopping engine: %v", err)
	}

	if !*quiet {
		fmt.Fprintf(os.Stderr, "%s docshield stopped.\n", green("✓"))
	}
}

func oracleState(cfg *core.Config, hasKeys bool) string {
	switch {
	case !cfg.IsModuleEnabled(core.RiskOracleModule):
		return dim("disabled")
	case !hasKeys:
		return yellow("passive (no API keys)")
	default:
		return green("active")
	}
}
