package core

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/docshield/docshield/internal/analysis"
)

// mockScanner is a test double that satisfies the Scanner interface.
type mockScanner struct {
	name   string
	format analysis.Format
	result *analysis.Result
	err    error
	panics bool

	mu    sync.Mutex
	calls int
}

func (m *mockScanner) Name() string            { return m.name }
func (m *mockScanner) Description() string     { return "mock " + m.name }
func (m *mockScanner) Format() analysis.Format { return m.format }
func (m *mockScanner) Scan(_ context.Context, t *analysis.Target) (*analysis.Result, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.panics {
		panic("scanner exploded")
	}
	if m.err != nil {
		return nil, m.err
	}
	if m.result != nil {
		return m.result, nil
	}
	return analysis.Aggregate(t.Format, t.Size, analysis.Signals{}), nil
}

func (m *mockScanner) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func newMockScanner(name string, f analysis.Format) *mockScanner {
	return &mockScanner{name: name, format: f}
}

func newRegistry() *ScannerRegistry {
	return NewScannerRegistry(zerolog.Nop())
}

func target(t *testing.T, f analysis.Format) *analysis.Target {
	t.Helper()
	tgt, err := analysis.NewTarget("doc."+f.String(), f, []byte("payload"))
	if err != nil {
		t.Fatal(err)
	}
	return tgt
}

// ─── Register ────────────────────────────────────────────────────────────────

func TestScannerRegistry_Register(t *testing.T) {
	r := newRegistry()
	if err := r.Register(newMockScanner("docx", analysis.FormatDOCX)); err != nil {
		t.Fatalf("Register() error: %v", err)
	}
	if r.Count() != 1 {
		t.Errorf("Count() = %d, want 1", r.Count())
	}
}

func TestScannerRegistry_Register_DuplicateName(t *testing.T) {
	r := newRegistry()
	r.Register(newMockScanner("dup", analysis.FormatDOCX))
	if err := r.Register(newMockScanner("dup", analysis.FormatPDF)); err == nil {
		t.Error("expected error when registering duplicate scanner name")
	}
}

func TestScannerRegistry_Register_DuplicateFormat(t *testing.T) {
	r := newRegistry()
	r.Register(newMockScanner("a", analysis.FormatPDF))
	err := r.Register(newMockScanner("b", analysis.FormatPDF))
	if err == nil || !strings.Contains(err.Error(), "already handled") {
		t.Errorf("expected duplicate format error, got %v", err)
	}
	if r.Count() != 1 {
		t.Errorf("Count() = %d, want 1", r.Count())
	}
}

func TestScannerRegistry_RegisterEnabled_SkipsDisabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Modules[PDFScannerModule] = ModuleConfig{Enabled: false}

	r := newRegistry()
	err := r.RegisterEnabled(cfg,
		newMockScanner(DOCXScannerModule, analysis.FormatDOCX),
		newMockScanner(PDFScannerModule, analysis.FormatPDF),
	)
	if err != nil {
		t.Fatalf("RegisterEnabled() error: %v", err)
	}
	if _, ok := r.ForFormat(analysis.FormatPDF); ok {
		t.Error("disabled pdf scanner should not be registered")
	}
	if _, ok := r.ForFormat(analysis.FormatDOCX); !ok {
		t.Error("docx scanner should be registered")
	}
}

// ─── Get / All ───────────────────────────────────────────────────────────────

func TestScannerRegistry_Get(t *testing.T) {
	r := newRegistry()
	r.Register(newMockScanner("docx", analysis.FormatDOCX))

	s, ok := r.Get("docx")
	if !ok || s.Name() != "docx" {
		t.Errorf("Get(docx) = %v, %v", s, ok)
	}
	if _, ok := r.Get("missing"); ok {
		t.Error("Get(missing) should return false")
	}
}

func TestScannerRegistry_All_OrderPreserved(t *testing.T) {
	r := newRegistry()
	r.Register(newMockScanner("pdf", analysis.FormatPDF))
	r.Register(newMockScanner("docx", analysis.FormatDOCX))

	all := r.All()
	if len(all) != 2 || all[0].Name() != "pdf" || all[1].Name() != "docx" {
		t.Errorf("All() order wrong: %v", all)
	}
}

// ─── Scan ────────────────────────────────────────────────────────────────────

func TestScannerRegistry_Scan_Dispatches(t *testing.T) {
	r := newRegistry()
	docx := newMockScanner("docx", analysis.FormatDOCX)
	pdf := newMockScanner("pdf", analysis.FormatPDF)
	r.Register(docx)
	r.Register(pdf)

	res, err := r.Scan(context.Background(), target(t, analysis.FormatPDF))
	if err != nil {
		t.Fatalf("Scan() error: %v", err)
	}
	if res.Format != analysis.FormatPDF {
		t.Errorf("result format = %s", res.Format)
	}
	if pdf.Calls() != 1 || docx.Calls() != 0 {
		t.Errorf("calls pdf=%d docx=%d, want 1/0", pdf.Calls(), docx.Calls())
	}
}

func TestScannerRegistry_Scan_NoScanner(t *testing.T) {
	r := newRegistry()
	r.Register(newMockScanner("docx", analysis.FormatDOCX))
	_, err := r.Scan(context.Background(), target(t, analysis.FormatPDF))
	if !errors.Is(err, analysis.ErrUnsupportedFormat) {
		t.Errorf("err = %v, want ErrUnsupportedFormat", err)
	}
}

func TestScannerRegistry_Scan_ErrorCounted(t *testing.T) {
	r := newRegistry()
	s := newMockScanner("docx", analysis.FormatDOCX)
	s.err = analysis.ErrMalformedContainer
	r.Register(s)

	_, err := r.Scan(context.Background(), target(t, analysis.FormatDOCX))
	if !errors.Is(err, analysis.ErrMalformedContainer) {
		t.Errorf("err = %v, want ErrMalformedContainer", err)
	}
	m := r.GetMetrics()
	if m["scan_failures"].(map[string]int64)["docx"] != 1 {
		t.Errorf("scan_failures = %v", m["scan_failures"])
	}
}

func TestScannerRegistry_Scan_PanicRecovered(t *testing.T) {
	r := newRegistry()
	s := newMockScanner("docx", analysis.FormatDOCX)
	s.panics = true
	r.Register(s)

	res, err := r.Scan(context.Background(), target(t, analysis.FormatDOCX))
	if err == nil || res != nil {
		t.Fatalf("Scan() = %v, %v; want nil result and an error", res, err)
	}
	m := r.GetMetrics()
	if m["scan_panics"].(int64) != 1 {
		t.Errorf("scan_panics = %v, want 1", m["scan_panics"])
	}
	if m["scans_by_format"].(map[string]int64)["docx"] != 1 {
		t.Errorf("scans_by_format = %v", m["scans_by_format"])
	}
}

// ─── Concurrency ─────────────────────────────────────────────────────────────

func TestScannerRegistry_ConcurrentScans(t *testing.T) {
	r := newRegistry()
	s := newMockScanner("docx", analysis.FormatDOCX)
	r.Register(s)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := r.Scan(context.Background(), target(t, analysis.FormatDOCX)); err != nil {
				t.Errorf("Scan() error: %v", err)
			}
			_ = r.All()
			_ = r.GetMetrics()
		}()
	}
	wg.Wait()
	if s.Calls() != 50 {
		t.Errorf("calls = %d, want 50", s.Calls())
	}
}
