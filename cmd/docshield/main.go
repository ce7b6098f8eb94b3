package main

// ---------------------------------------------------------------------------
// main.go: command dispatcher for the docshield CLI
//
// Command implementations live in cmd_*.go. Shared helpers are in
// helpers.go, http.go, output.go, and banner.go.
// ---------------------------------------------------------------------------

import (
	"fmt"
	"io"
	"os"
)

var (
	version   = "0.3.0"
	commit    = "dev"
	buildDate = "unknown"
)

// stdout is swapped by tests.
var stdout io.Writer = os.Stdout

func main() {
	if len(os.Args) < 2 {
		printUsage(stdout)
		os.Exit(0)
	}

	switch os.Args[1] {
	case "--version", "-V", "version":
		printVersion(stdout)
		os.Exit(0)
	case "--help", "-h", "help":
		if len(os.Args) >= 3 {
			cmdHelp(os.Args[2])
		} else {
			printUsage(stdout)
		}
		os.Exit(0)
	}

	subcmd := os.Args[1]
	args := os.Args[2:]

	for _, a := range args {
		if a == "-h" || a == "--help" {
			cmdHelp(subcmd)
			os.Exit(0)
		}
	}

	switch subcmd {
	case "up":
		cmdUp(args)
	case "scan":
		os.Exit(cmdScan(args))
	case "status":
		cmdStatus(args)
	case "logs":
		cmdLogs(args)
	case "config":
		cmdConfig(args)
	case "reload":
		cmdReload(args)
	case "stop":
		cmdStop(args)
	default:
		fmt.Fprintf(os.Stderr, red("error: ")+"unknown command %q\n\n", subcmd)
		if s := suggest(subcmd); s != "" {
			fmt.Fprintf(os.Stderr, "       Did you mean %s?\n\n", bold(s))
		}
		printUsage(os.Stderr)
		os.Exit(1)
	}
}
