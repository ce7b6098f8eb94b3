package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/docshield/docshield/internal/analysis"
)

// OracleRequest is what the risk oracle is asked to judge.
type OracleRequest struct {
	FileName string
	Result   *analysis.Result
}

// Assessor produces a risk verdict for a scan result. Any error makes the
// engine fall back to the deterministic scorer.
type Assessor interface {
	Assess(ctx context.Context, req OracleRequest) (analysis.RiskVerdict, error)
}

// Upload is a document handed to the engine by a host.
type Upload struct {
	Name string
	Data []byte
}

// Engine orchestrates format detection, scanning, scoring and publishing.
// Analyze is safe for concurrent use.
type Engine struct {
	Bus      *EventBus
	Registry *ScannerRegistry
	Logs     *LogRingBuffer
	Logger   zerolog.Logger

	cache     *ResultCache
	mu        sync.RWMutex
	config    *Config
	assessor  Assessor
	startTime time.Time
	ctx       context.Context
	cancel    context.CancelFunc

	stats engineStats
}

type engineStats struct {
	scans     atomic.Int64
	failures  atomic.Int64
	cacheHits atomic.Int64
	oracle    atomic.Int64
	fallback  atomic.Int64
}

// NewEngine creates an engine with logging configured from cfg. Log lines go
// to stderr and into the engine's ring buffer.
func NewEngine(cfg *Config) (*Engine, error) {
	logs := NewLogRingBuffer(1000)
	logger := NewLogger(&cfg.Logging, os.Stderr, logs)
	ctx, cancel := context.WithCancel(context.Background())

	return &Engine{
		config:   cfg,
		Registry: NewScannerRegistry(logger),
		Logs:     logs,
		Logger:   logger.With().Str("component", "engine").Logger(),
		cache:    NewResultCache(cfg.Scan.CacheSize),
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

// NewLogger builds the zerolog logger described by cfg. When ring is not nil
// it receives every line as JSON regardless of the console format.
func NewLogger(cfg *LoggingConfig, out io.Writer, ring *LogRingBuffer) zerolog.Logger {
	var w io.Writer = out
	if cfg.Format != "json" {
		w = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}
	if ring != nil {
		w = zerolog.MultiLevelWriter(w, ring)
	}

	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	return zerolog.New(w).With().Timestamp().Logger().Level(level)
}

// SetAssessor installs the risk oracle. A nil assessor means every verdict
// comes from the fallback scorer.
func (e *Engine) SetAssessor(a Assessor) {
	e.mu.Lock()
	e.assessor = a
	e.mu.Unlock()
}

// Config returns the active configuration. Callers must treat it as read-only;
// ReloadConfig swaps in a new value rather than mutating it.
func (e *Engine) Config() *Config {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.config
}

func (e *Engine) setConfig(cfg *Config) {
	e.mu.Lock()
	e.config = cfg
	e.mu.Unlock()
}

func (e *Engine) currentAssessor() Assessor {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.assessor
}

// Start connects the scan event bus when enabled.
func (e *Engine) Start() error {
	e.Logger.Info().Int("scanners", e.Registry.Count()).Msg("starting docshield engine")

	cfg := e.Config()
	if cfg.Bus.Enabled {
		bus, err := NewEventBus(&cfg.Bus, e.Logger)
		if err != nil {
			return fmt.Errorf("starting event bus: %w", err)
		}
		e.Bus = bus
	}

	e.mu.Lock()
	e.startTime = time.Now()
	e.mu.Unlock()

	e.Logger.Info().
		Bool("bus", e.Bus != nil).
		Bool("oracle", e.currentAssessor() != nil).
		Msg("docshield engine started")
	return nil
}

// Shutdown stops the engine and closes the bus.
func (e *Engine) Shutdown() error {
	e.Logger.Info().Msg("shutting down docshield engine")
	e.cancel()

	if e.Bus != nil {
		if err := e.Bus.Close(); err != nil {
			e.Logger.Error().Err(err).Msg("error closing event bus")
		}
	}
	e.Logger.Info().Msg("docshield engine stopped")
	return nil
}

// Context returns the engine's lifetime context.
func (e *Engine) Context() context.Context {
	return e.ctx
}

// Uptime is the time since Start, or zero before it.
func (e *Engine) Uptime() time.Duration {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.startTime.IsZero() {
		return 0
	}
	return time.Since(e.startTime)
}

// Analyze runs one document through detection, scanning and scoring. It
// always yields a verdict for a successful scan: oracle failures fall back
// to the deterministic scorer and are never returned. Shutdown cancels
// scans still in flight.
func (e *Engine) Analyze(ctx context.Context, up Upload) (*ScanReport, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(e.Context(), cancel)
	defer stop()

	report, err := e.analyze(ctx, up)
	e.stats.scans.Add(1)
	if err != nil {
		e.stats.failures.Add(1)
		e.Logger.Warn().Err(err).Str("file", up.Name).Int("size", len(up.Data)).Msg("scan failed")
		return nil, err
	}
	return report, nil
}

func (e *Engine) analyze(ctx context.Context, up Upload) (*ScanReport, error) {
	format, err := DetectFormat(up.Name, up.Data)
	if err != nil {
		return nil, err
	}
	cfg := e.Config()
	if limit := cfg.Scan.MaxUploadBytes; limit > 0 && int64(len(up.Data)) > limit {
		return nil, fmt.Errorf("%w: %d bytes exceeds %d", analysis.ErrFileTooLarge, len(up.Data), limit)
	}
	target, err := analysis.NewTarget(up.Name, format, up.Data)
	if err != nil {
		return nil, err
	}

	key := Digest(format, up.Data)
	result, hit := e.cache.Get(key)
	if hit {
		e.stats.cacheHits.Add(1)
	} else {
		result, err = e.Registry.Scan(ctx, target)
		if err != nil {
			return nil, err
		}
		e.cache.Add(key, result)
	}

	verdict := e.assess(ctx, cfg, up.Name, result)
	report := NewScanReport(uuid.New().String(), up.Name, result, verdict, time.Now())
	e.publish(report)

	e.Logger.Info().
		Str("scan_id", report.ScanID).
		Str("file", report.FileName).
		Str("format", format.String()).
		Int64("hidden_bytes", report.HiddenBytes).
		Float64("risk_score", report.RiskScore).
		Str("risk_level", string(report.RiskLevel)).
		Str("verdict_source", report.VerdictSource).
		Bool("cached", hit).
		Msg("document analyzed")
	return report, nil
}

func (e *Engine) assess(ctx context.Context, cfg *Config, name string, r *analysis.Result) analysis.RiskVerdict {
	a := e.currentAssessor()
	if a == nil || !cfg.IsModuleEnabled(RiskOracleModule) {
		e.stats.fallback.Add(1)
		return analysis.FallbackVerdict(r)
	}

	v, err := a.Assess(ctx, OracleRequest{FileName: name, Result: r})
	if err != nil {
		if !errors.Is(err, analysis.ErrOracleUnavailable) {
			err = fmt.Errorf("%w: %v", analysis.ErrOracleUnavailable, err)
		}
		e.Logger.Warn().Err(err).Str("file", name).Msg("risk oracle failed, using fallback scorer")
		e.stats.fallback.Add(1)
		return analysis.FallbackVerdict(r)
	}
	if v.Source == "" {
		v.Source = analysis.SourceOracle
	}
	e.stats.oracle.Add(1)
	return v
}

func (e *Engine) publish(report *ScanReport) {
	if e.Bus == nil {
		return
	}
	if err := e.Bus.PublishScan(NewScanEvent(report)); err != nil {
		e.Logger.Error().Err(err).Str("scan_id", report.ScanID).Msg("failed to publish scan event")
	}
}

// Stats returns engine counters for the status endpoint.
func (e *Engine) Stats() map[string]int64 {
	return map[string]int64{
		"scans":             e.stats.scans.Load(),
		"scan_failures":     e.stats.failures.Load(),
		"cache_hits":        e.stats.cacheHits.Load(),
		"cached_results":    int64(e.cache.Len()),
		"oracle_verdicts":   e.stats.oracle.Load(),
		"fallback_verdicts": e.stats.fallback.Load(),
	}
}
