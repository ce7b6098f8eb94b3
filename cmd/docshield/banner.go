package main

// ---------------------------------------------------------------------------
// banner.go: banner and version/usage printing
// ---------------------------------------------------------------------------

import (
	"fmt"
	"io"
	goruntime "runtime"
	"runtime/debug"
)

func bannerText() string {
	return cyan(`
    ╔══════════════════════════════════════════════╗
    ║                                              ║
    ║   D O C S H I E L D                          ║
    ║   hidden-data detection for DOCX and PDF     ║
    ║                                              ║
    ╚══════════════════════════════════════════════╝
`)
}

func printVersion(w io.Writer) {
	fmt.Fprintf(w, "docshield v%s", version)
	if commit != "dev" {
		fmt.Fprintf(w, " (%s)", commit[:min(7, len(commit))])
	}
	if buildDate != "unknown" {
		fmt.Fprintf(w, " built %s", buildDate)
	}
	if bi, ok := debug.ReadBuildInfo(); ok {
		fmt.Fprintf(w, " %s", bi.GoVersion)
	}
	fmt.Fprintf(w, " %s/%s", goruntime.GOOS, goruntime.GOARCH)
	fmt.Fprintln(w)
}

func printUsage(w io.Writer) {
	fmt.Fprint(w, bannerText())
	fmt.Fprintf(w, "  %s\n\n", dim("v"+version))
	fmt.Fprintf(w, "%s\n\n", bold("USAGE"))
	fmt.Fprintf(w, "  docshield <command> [flags]\n\n")
	fmt.Fprintf(w, "%s\n\n", bold("COMMANDS"))
	fmt.Fprintf(w, "  %-10s  %s\n", bold("up"), "Start the API server and scan engine")
	fmt.Fprintf(w, "  %-10s  %s\n", bold("scan"), "Scan a DOCX or PDF file locally or against a running instance")
	fmt.Fprintf(w, "  %-10s  %s\n", bold("status"), "Show status of a running instance")
	fmt.Fprintf(w, "  %-10s  %s\n", bold("logs"), "Fetch recent logs from a running instance")
	fmt.Fprintf(w, "  %-10s  %s\n", bold("config"), "Show, validate, or initialize configuration")
	fmt.Fprintf(w, "  %-10s  %s\n", bold("reload"), "Ask a running instance to reload its config file")
	fmt.Fprintf(w, "  %-10s  %s\n", bold("stop"), "Gracefully stop a running instance")
	fmt.Fprintf(w, "  %-10s  %s\n", bold("version"), "Print version and build info")
	fmt.Fprintf(w, "  %-10s  %s\n", bold("help"), "Show help for a command")
	fmt.Fprintf(w, "\n%s\n\n", bold("ENVIRONMENT VARIABLES"))
	fmt.Fprintf(w, "  %-20s  %s\n", "DOCSHIELD_CONFIG", "Default config file path")
	fmt.Fprintf(w, "  %-20s  %s\n", "DOCSHIELD_HOST", "API host override")
	fmt.Fprintf(w, "  %-20s  %s\n", "DOCSHIELD_PORT", "API port override")
	fmt.Fprintf(w, "  %-20s  %s\n", "DOCSHIELD_API_KEY", "API key for authentication")
	fmt.Fprintf(w, "  %-20s  %s\n", "GEMINI_API_KEY", "Risk oracle key (GEMINI_API_KEY_2..4 and GEMINI_API_KEYS also read)")
	fmt.Fprintf(w, "\n%s\n\n", bold("EXAMPLES"))
	fmt.Fprintf(w, "  %s\n", dim("# Start with defaults"))
	fmt.Fprintf(w, "  docshield up\n\n")
	fmt.Fprintf(w, "  %s\n", dim("# Scan a file without calling the risk oracle"))
	fmt.Fprintf(w, "  docshield scan --no-oracle contract.docx\n\n")
	fmt.Fprintf(w, "  %s\n", dim("# Scan through a running instance, JSON output"))
	fmt.Fprintf(w, "  docshield scan --remote --format json report.pdf\n\n")
	fmt.Fprintf(w, "Run %s for detailed help on any command.\n\n", bold("docshield help <command>"))
}

var commandHelp = map[string]string{
	"up": `docshield up [--config path] [--log-level level] [--dry-run] [--quiet] [--no-color]

Loads the config, registers the enabled scanners and the risk oracle, and
serves the REST API until SIGINT or SIGTERM. SIGHUP reloads the config file.`,
	"scan": `docshield scan [--config path] [--format table|json|csv] [--no-oracle] [--remote] [--fail-on level] <file>

Scans one .docx or .pdf file. By default the scan runs in-process with the
same engine the server uses; --remote uploads it to a running instance.
Exits 2 when the risk level reaches --fail-on (default high; "none" never fails).`,
	"status": `docshield status [--config path] [--host h] [--port p] [--api-key k] [--format table|json]`,
	"logs":   `docshield logs [--config path] [--lines n] [--api-key k] [--format table|json]`,
	"config": `docshield config [show|validate|init] [--config path] [--format yaml|json] [--force]`,
	"reload": `docshield reload [--config path] [--api-key k]`,
	"stop":   `docshield stop [--config path] [--api-key k]`,
}

func cmdHelp(cmd string) {
	if text, ok := commandHelp[cmd]; ok {
		fmt.Fprintln(stdout, text)
		return
	}
	printUsage(stdout)
}
