package api

import (
	"context"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/docshield/docshield/internal/core"
)

// configSource is the part of the engine the middleware reads. Settings are
// looked up per request so a config reload takes effect immediately.
type configSource interface {
	Config() *core.Config
}

// authMiddleware enforces API key authentication on every endpoint except
// /health. With no keys configured the API is open.
func authMiddleware(next http.Handler, src configSource, logger zerolog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" || r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}

		cfg := src.Config()
		if !cfg.AuthEnabled() {
			next.ServeHTTP(w, r)
			return
		}

		key := r.Header.Get("X-API-Key")
		if auth := r.Header.Get("Authorization"); auth != "" {
			key = strings.TrimPrefix(auth, "Bearer ")
		}
		if key == "" {
			writeError(w, http.StatusUnauthorized, "missing authentication, provide Authorization: Bearer <key> or X-API-Key header")
			return
		}
		if !cfg.ValidateAPIKey(key) {
			logger.Warn().Str("path", r.URL.Path).Str("ip", clientIP(r)).Msg("invalid API key")
			writeError(w, http.StatusForbidden, "invalid API key")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// ipLimiter is a per-client-IP token bucket limiter.
type ipLimiter struct {
	mu      sync.Mutex
	buckets map[string]*tokenBucket
	rate    float64 // tokens per second
	burst   float64
}

type tokenBucket struct {
	tokens   float64
	lastTime time.Time
}

func (b *tokenBucket) allow(now time.Time, rate, burst float64) bool {
	b.tokens += now.Sub(b.lastTime).Seconds() * rate
	b.lastTime = now
	if b.tokens > burst {
		b.tokens = burst
	}
	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

func (l *ipLimiter) allow(ip string, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.buckets[ip]
	if !ok {
		b = &tokenBucket{tokens: l.burst, lastTime: now}
		l.buckets[ip] = b
	}
	return b.allow(now, l.rate, l.burst)
}

func (l *ipLimiter) prune(cutoff time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for ip, b := range l.buckets {
		if b.lastTime.Before(cutoff) {
			delete(l.buckets, ip)
		}
	}
}

// rateLimitMiddleware allows perMinute requests per client IP with a burst
// of the same size. Zero or less disables limiting.
func rateLimitMiddleware(ctx context.Context, next http.Handler, perMinute int) http.Handler {
	if perMinute <= 0 {
		return next
	}
	limiter := &ipLimiter{
		buckets: make(map[string]*tokenBucket),
		rate:    float64(perMinute) / 60,
		burst:   float64(perMinute),
	}

	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				limiter.prune(now.Add(-10 * time.Minute))
			}
		}
	}()

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}
		if !limiter.allow(clientIP(r), time.Now()) {
			w.Header().Set("Retry-After", "1")
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded, try again shortly")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func corsMiddleware(next http.Handler, src configSource) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		allowed := ""
		for _, o := range src.Config().Server.CORSOrigins {
			if o == "*" || o == origin {
				allowed = origin
				break
			}
		}
		// No configured origins means no cross-origin access.
		if allowed == "" {
			next.ServeHTTP(w, r)
			return
		}
		w.Header().Set("Vary", "Origin")
		w.Header().Set("Access-Control-Allow-Origin", allowed)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-API-Key")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// statusRecorder captures the response code for request logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func loggingMiddleware(next http.Handler, logger zerolog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
