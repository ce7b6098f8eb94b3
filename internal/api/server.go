package api

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"strconv"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/docshield/docshield/internal/core"
)

// StatusProvider contributes a named section to /api/v1/status.
type StatusProvider interface {
	Name() string
	Status() map[string]interface{}
}

// Options carries what the server needs beyond the engine.
type Options struct {
	Version    string
	ConfigPath string
	Extras     []StatusProvider
}

// Server is the docshield REST API server.
type Server struct {
	engine *core.Engine
	server *http.Server
	logger zerolog.Logger
	opts   Options

	ctx    context.Context
	cancel context.CancelFunc
}

// NewServer creates a new API server.
func NewServer(engine *core.Engine, opts Options) *Server {
	if opts.Version == "" {
		opts.Version = "dev"
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		engine: engine,
		logger: engine.Logger.With().Str("component", "api_server").Logger(),
		opts:   opts,
		ctx:    ctx,
		cancel: cancel,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/analyze", s.handleAnalyze)
	mux.HandleFunc("/api/v1/status", s.handleStatus)
	mux.HandleFunc("/api/v1/scanners", s.handleScanners)
	mux.HandleFunc("/api/v1/config", s.handleConfig)
	mux.HandleFunc("/api/v1/config/reload", s.handleConfigReload)
	mux.HandleFunc("/api/v1/logs", s.handleLogs)
	mux.HandleFunc("/api/v1/shutdown", s.handleShutdown)
	mux.HandleFunc("/health", s.handleHealth)

	cfg := engine.Config()

	// CORS -> logging -> rate limit -> auth -> handler
	handler := corsMiddleware(
		loggingMiddleware(
			rateLimitMiddleware(ctx,
				authMiddleware(mux, engine, s.logger),
				cfg.Server.RateLimit,
			),
			s.logger,
		),
		engine,
	)

	s.server = &http.Server{
		Addr:              cfg.ListenAddr(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return s
}

// Handler exposes the full middleware chain, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start begins serving the API.
func (s *Server) Start() error {
	cfg := s.engine.Config()
	s.logger.Info().Str("addr", s.server.Addr).Msg("API server starting")
	if cfg.AuthEnabled() {
		s.logger.Info().Int("keys", len(cfg.Server.APIKeys)).Msg("API authentication enabled")
	} else {
		s.logger.Warn().Msg("API authentication disabled, set server.api_keys or DOCSHIELD_API_KEY")
	}
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Msg("API server error")
		}
	}()
	return nil
}

// Stop gracefully shuts down the API server.
func (s *Server) Stop() error {
	s.cancel()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
	})
}

func (s *Server) scannerList() []map[string]interface{} {
	cfg := s.engine.Config()
	out := make([]map[string]interface{}, 0, s.engine.Registry.Count())
	for _, sc := range s.engine.Registry.All() {
		out = append(out, map[string]interface{}{
			"name":        sc.Name(),
			"description": sc.Description(),
			"format":      sc.Format(),
			"enabled":     cfg.IsModuleEnabled(sc.Name()),
		})
	}
	return out
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	cfg := s.engine.Config()
	bus := map[string]interface{}{"enabled": cfg.Bus.Enabled, "connected": false}
	if s.engine.Bus != nil {
		bus["connected"] = s.engine.Bus.IsConnected()
		bus["metrics"] = s.engine.Bus.GetMetrics()
	}

	resp := map[string]interface{}{
		"version":        s.opts.Version,
		"status":         "running",
		"uptime_secs":    int64(s.engine.Uptime().Seconds()),
		"auth_enabled":   cfg.AuthEnabled(),
		"scanners_total": s.engine.Registry.Count(),
		"scanners":       s.scannerList(),
		"registry":       s.engine.Registry.GetMetrics(),
		"engine":         s.engine.Stats(),
		"bus":            bus,
		"timestamp":      time.Now().UTC(),
	}
	for _, p := range s.opts.Extras {
		resp[p.Name()] = p.Status()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleScanners(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	scanners := s.scannerList()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"scanners": scanners,
		"total":    len(scanners),
	})
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, s.engine.Config().Redacted())
}

func (s *Server) handleConfigReload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	changes, err := core.ReloadConfig(s.engine, s.opts.ConfigPath)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "reloaded",
		"changes": changes,
	})
}

// handleLogs returns recent log entries from the engine's ring buffer.
func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	limit := 100
	if l, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && l > 0 {
		limit = l
	}

	entries := s.engine.Logs.GetEntries(limit)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"logs":  entries,
		"total": len(entries),
	})
}

func (s *Server) handleShutdown(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "shutting_down",
		"message": "docshield is shutting down gracefully",
	})
	go func() {
		time.Sleep(250 * time.Millisecond)
		s.logger.Info().Msg("shutdown requested via API")
		// SIGINT lets the main signal handler stop the server and engine in order.
		p, err := os.FindProcess(os.Getpid())
		if err != nil {
			s.logger.Error().Err(err).Msg("failed to find own process for shutdown signal")
			os.Exit(0)
		}
		if err := p.Signal(syscall.SIGINT); err != nil {
			s.logger.Error().Err(err).Msg("failed to send shutdown signal")
			os.Exit(0)
		}
	}()
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
