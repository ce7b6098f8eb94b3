package core

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/docshield/docshield/internal/analysis"
)

// Scanner is the interface every document format scanner implements.
type Scanner interface {
	// Name returns the unique name of the scanner; it doubles as its config key.
	Name() string
	// Description returns a human-readable description.
	Description() string
	// Format is the single document format this scanner handles.
	Format() analysis.Format
	// Scan extracts concealment signals from the target. Errors are terminal
	// for the scan and no partial result is returned.
	Scan(ctx context.Context, t *analysis.Target) (*analysis.Result, error)
}

// ScannerRegistry maps formats to scanners and dispatches scans.
type ScannerRegistry struct {
	mu       sync.RWMutex
	scanners map[string]Scanner
	byFormat map[analysis.Format]Scanner
	order    []string
	logger   zerolog.Logger

	metrics *RegistryMetrics
}

// RegistryMetrics tracks scan dispatch counters per format.
type RegistryMetrics struct {
	mu           sync.Mutex       `json:"-"`
	ScansByType  map[string]int64 `json:"scans_by_format"`
	ScanFailures map[string]int64 `json:"scan_failures"`
	ScanPanics   int64            `json:"scan_panics"`
}

// NewScannerRegistry creates an empty registry.
func NewScannerRegistry(logger zerolog.Logger) *ScannerRegistry {
	return &ScannerRegistry{
		scanners: make(map[string]Scanner),
		byFormat: make(map[analysis.Format]Scanner),
		order:    make([]string, 0),
		logger:   logger.With().Str("component", "scanner_registry").Logger(),
		metrics: &RegistryMetrics{
			ScansByType:  make(map[string]int64),
			ScanFailures: make(map[string]int64),
		},
	}
}

// Register adds a scanner. Names and formats must both be unique.
func (r *ScannerRegistry) Register(s Scanner) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := s.Name()
	if _, exists := r.scanners[name]; exists {
		return fmt.Errorf("scanner %q already registered", name)
	}
	if other, exists := r.byFormat[s.Format()]; exists {
		return fmt.Errorf("format %q already handled by scanner %q", s.Format(), other.Name())
	}

	r.scanners[name] = s
	r.byFormat[s.Format()] = s
	r.order = append(r.order, name)

	r.logger.Info().Str("scanner", name).Str("format", s.Format().String()).Msg("scanner registered")
	return nil
}

// RegisterEnabled registers each scanner that is enabled in cfg and skips
// the rest.
func (r *ScannerRegistry) RegisterEnabled(cfg *Config, scanners ...Scanner) error {
	for _, s := range scanners {
		if !cfg.IsModuleEnabled(s.Name()) {
			r.logger.Info().Str("scanner", s.Name()).Msg("scanner disabled, skipping")
			continue
		}
		if err := r.Register(s); err != nil {
			return err
		}
	}
	return nil
}

// ForFormat returns the scanner registered for a format.
func (r *ScannerRegistry) ForFormat(f analysis.Format) (Scanner, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.byFormat[f]
	return s, ok
}

// Scan dispatches the target to its format's scanner. A panicking scanner
// is recovered and reported as an error.
func (r *ScannerRegistry) Scan(ctx context.Context, t *analysis.Target) (result *analysis.Result, err error) {
	s, ok := r.ForFormat(t.Format)
	if !ok {
		return nil, fmt.Errorf("%w: no scanner enabled for %q", analysis.ErrUnsupportedFormat, t.Format)
	}

	format := t.Format.String()
	r.metrics.mu.Lock()
	r.metrics.ScansByType[format]++
	r.metrics.mu.Unlock()

	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error().
				Str("scanner", s.Name()).
				Str("file", t.Name).
				Interface("panic", rec).
				Msg("scanner panic recovered")
			r.metrics.mu.Lock()
			r.metrics.ScanPanics++
			r.metrics.ScanFailures[format]++
			r.metrics.mu.Unlock()
			result, err = nil, fmt.Errorf("scanner %s panicked: %v", s.Name(), rec)
		}
	}()

	result, err = s.Scan(ctx, t)
	if err != nil {
		r.metrics.mu.Lock()
		r.metrics.ScanFailures[format]++
		r.metrics.mu.Unlock()
		return nil, err
	}
	return result, nil
}

// GetMetrics returns a snapshot of dispatch metrics.
func (r *ScannerRegistry) GetMetrics() map[string]interface{} {
	r.metrics.mu.Lock()
	defer r.metrics.mu.Unlock()
	byType := make(map[string]int64, len(r.metrics.ScansByType))
	for k, v := range r.metrics.ScansByType {
		byType[k] = v
	}
	failures := make(map[string]int64, len(r.metrics.ScanFailures))
	for k, v := range r.metrics.ScanFailures {
		failures[k] = v
	}
	return map[string]interface{}{
		"scans_by_format": byType,
		"scan_failures":   failures,
		"scan_panics":     r.metrics.ScanPanics,
	}
}

// Get returns a scanner by name.
func (r *ScannerRegistry) Get(name string) (Scanner, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.scanners[name]
	return s, ok
}

// All returns all registered scanners in registration order.
func (r *ScannerRegistry) All() []Scanner {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]Scanner, 0, len(r.order))
	for _, name := range r.order {
		result = append(result, r.scanners[name])
	}
	return result
}

// Count returns the number of registered scanners.
func (r *ScannerRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.scanners)
}
