package main

// ---------------------------------------------------------------------------
// output.go: format flag, table rendering, CSV, report printing
// ---------------------------------------------------------------------------

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"
)

// OutputFormat enumerates supported output formats.
type OutputFormat int

const (
	FormatTable OutputFormat = iota
	FormatJSON
	FormatCSV
)

func parseFormat(s string) OutputFormat {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json":
		return FormatJSON
	case "csv":
		return FormatCSV
	default:
		return FormatTable
	}
}

// ---------------------------------------------------------------------------
// Table renderer with box-drawing borders
// ---------------------------------------------------------------------------

// Table renders aligned, bordered tables to a writer.
type Table struct {
	headers []string
	rows    [][]string
	w       io.Writer
}

func NewTable(w io.Writer, headers ...string) *Table {
	return &Table{headers: headers, w: w}
}

// AddRow appends a row. Values are matched positionally to headers.
func (t *Table) AddRow(values ...string) {
	row := make([]string, len(t.headers))
	for i := range row {
		if i < len(values) {
			row[i] = values[i]
		}
	}
	t.rows = append(t.rows, row)
}

func (t *Table) Render() {
	if len(t.headers) == 0 {
		return
	}

	widths := make([]int, len(t.headers))
	for i, h := range t.headers {
		widths[i] = utf8.RuneCountInString(h)
	}
	for _, row := range t.rows {
		for i, cell := range row {
			if n := utf8.RuneCountInString(cell); n > widths[i] {
				widths[i] = n
			}
		}
	}

	line := func(left, sep, right string) string {
		var b strings.Builder
		b.WriteString(left)
		for i, w := range widths {
			b.WriteString(strings.Repeat("─", w+2))
			if i < len(widths)-1 {
				b.WriteString(sep)
			}
		}
		b.WriteString(right)
		return b.String()
	}

	printRow := func(cells []string) {
		fmt.Fprint(t.w, "│")
		for i, cell := range cells {
			pad := widths[i] - utf8.RuneCountInString(cell)
			fmt.Fprintf(t.w, " %s%s │", cell, strings.Repeat(" ", pad))
		}
		fmt.Fprintln(t.w)
	}

	fmt.Fprintln(t.w, line("┌", "┬", "┐"))
	printRow(t.headers)
	fmt.Fprintln(t.w, line("├", "┼", "┤"))
	for _, row := range t.rows {
		printRow(row)
	}
	fmt.Fprintln(t.w, line("└", "┴", "┘"))
}

func writeCSV(w io.Writer, headers []string, rows [][]string) {
	cw := csv.NewWriter(w)
	cw.Write(headers)
	for _, row := range rows {
		cw.Write(row)
	}
	cw.Flush()
}

// ---------------------------------------------------------------------------
// Scan report rendering. Local and remote scans both decode into reportView
// so the printers do not care where the report came from.
// ---------------------------------------------------------------------------

type reportView struct {
	ScanID        string           `json:"scan_id"`
	FileName      string           `json:"file_name"`
	Format        string           `json:"format"`
	FileSize      int64            `json:"file_size"`
	HiddenBytes   int64            `json:"hidden_bytes"`
	HiddenRatio   float64          `json:"hidden_ratio"`
	RiskScore     float64          `json:"risk_score"`
	RiskLevel     string           `json:"risk_level"`
	Confidence    int              `json:"confidence"`
	Breakdown     map[string]int64 `json:"breakdown"`
	Findings      []string         `json:"findings"`
	Verdict       string           `json:"verdict"`
	VerdictSource string           `json:"verdict_source"`
}

// breakdownOrder fixes the row order of the signal breakdown table.
var breakdownOrder = []string{"hidden_text", "embedded_files", "base64_blocks", "metadata_score", "comments_size"}

func decodeReport(data []byte) (*reportView, error) {
	var v reportView
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("parsing report: %w", err)
	}
	return &v, nil
}

func printReport(w io.Writer, raw []byte, f OutputFormat) error {
	if f == FormatJSON {
		fmt.Fprintln(w, strings.TrimSpace(string(raw)))
		return nil
	}
	r, err := decodeReport(raw)
	if err != nil {
		return err
	}

	if f == FormatCSV {
		rows := [][]string{
			{"file", r.FileName},
			{"format", r.Format},
			{"file_size", fmt.Sprint(r.FileSize)},
			{"hidden_bytes", fmt.Sprint(r.HiddenBytes)},
			{"hidden_ratio", fmt.Sprintf("%.2f", r.HiddenRatio)},
			{"risk_score", fmt.Sprintf("%.2f", r.RiskScore)},
			{"risk_level", r.RiskLevel},
			{"confidence", fmt.Sprint(r.Confidence)},
			{"verdict_source", r.VerdictSource},
		}
		for _, k := range breakdownOrder {
			rows = append(rows, []string{k, fmt.Sprint(r.Breakdown[k])})
		}
		writeCSV(w, []string{"field", "value"}, rows)
		return nil
	}

	fmt.Fprintf(w, "%s %s %s\n\n", bold("●"), bold(r.FileName), dim("("+r.ScanID+")"))
	fmt.Fprintf(w, "  %-16s %s (%.2f)\n", "Risk:", levelColor(r.RiskLevel), r.RiskScore)
	fmt.Fprintf(w, "  %-16s %d%%\n", "Confidence:", r.Confidence)
	fmt.Fprintf(w, "  %-16s %d of %d bytes (%.2f%%)\n", "Hidden content:", r.HiddenBytes, r.FileSize, r.HiddenRatio)
	fmt.Fprintf(w, "  %-16s %s\n", "Verdict source:", r.VerdictSource)
	if r.Verdict != "" {
		fmt.Fprintf(w, "  %-16s %s\n", "Verdict:", r.Verdict)
	}
	fmt.Fprintln(w)

	t := NewTable(w, "SIGNAL", "VALUE")
	for _, k := range breakdownOrder {
		t.AddRow(k, fmt.Sprint(r.Breakdown[k]))
	}
	t.Render()

	if len(r.Findings) > 0 {
		fmt.Fprintf(w, "\n  %s\n", bold("Findings:"))
		for _, f := range r.Findings {
			fmt.Fprintf(w, "    %s %s\n", yellow("▸"), f)
		}
	}
	fmt.Fprintln(w)
	return nil
}

// outputWriter writes to a file if --output is set, otherwise stdout.
func outputWriter(path string) (*os.File, func()) {
	if path == "" || path == "-" {
		return os.Stdout, func() {}
	}
	f, err := os.Create(path)
	if err != nil {
		errorf("opening output file %q: %v", path, err)
	}
	return f, func() { f.Close() }
}
