package oracle

import (
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const (
	rateLimitCooldown  = 60 * time.Second
	quotaCooldown      = 10 * time.Minute
	invalidKeyCooldown = 24 * time.Hour

	minKeyLength = 10
)

// keyEnvVars are read in order after the configured keys.
var keyEnvVars = []string{"GEMINI_API_KEY", "GEMINI_API_KEY_2", "GEMINI_API_KEY_3", "GEMINI_API_KEY_4"}

var rateLimitMarkers = []string{
	"resource_exhausted",
	"rate_limit_exceeded",
	"quota",
	"rate limit",
	"too many requests",
}

type apiKey struct {
	value      string
	benchUntil time.Time
	lastError  string
	failures   int
}

func (k *apiKey) usable(now time.Time) bool {
	return k.benchUntil.IsZero() || now.After(k.benchUntil)
}

// KeyPool rotates between Gemini API keys. A key that hits a rate limit or
// quota is benched for a cooldown and the next usable key takes over.
type KeyPool struct {
	mu     sync.Mutex
	keys   []*apiKey
	active int
	logger zerolog.Logger
	now    func() time.Time
}

// NewKeyPool keeps the distinct keys of at least ten characters.
func NewKeyPool(keys []string, logger zerolog.Logger) *KeyPool {
	p := &KeyPool{
		logger: logger.With().Str("component", "key_pool").Logger(),
		now:    time.Now,
	}
	seen := make(map[string]bool)
	for _, k := range keys {
		k = strings.TrimSpace(k)
		if len(k) < minKeyLength || seen[k] {
			continue
		}
		seen[k] = true
		p.keys = append(p.keys, &apiKey{value: k})
	}
	return p
}

// Size is the number of loaded keys.
func (p *KeyPool) Size() int { return len(p.keys) }

// Current returns the active key, moving on to the next usable one if the
// active key is benched. It returns "" when every key is benched.
func (p *KeyPool) Current() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pick(0)
}

// pick scans from active+offset for a usable key. Caller holds p.mu.
func (p *KeyPool) pick(offset int) string {
	now := p.now()
	for i := 0; i < len(p.keys); i++ {
		idx := (p.active + offset + i) % len(p.keys)
		if p.keys[idx].usable(now) {
			p.active = idx
			return p.keys[idx].value
		}
	}
	return ""
}

// Bench puts key on cooldown according to the failure and returns the key
// to try next, or "" if none is left. Benching an already benched key does
// not extend its cooldown.
func (p *KeyPool) Bench(key string, status int, msg string) string {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	for i, k := range p.keys {
		if k.value != key || !k.usable(now) {
			continue
		}
		cooldown := cooldownFor(status, msg)
		k.benchUntil = now.Add(cooldown)
		k.lastError = truncate(msg, 200)
		k.failures++
		p.active = i
		p.logger.Warn().
			Int("key_index", i+1).
			Dur("cooldown", cooldown).
			Str("error", k.lastError).
			Msg("API key benched")
		break
	}

	next := p.pick(1)
	if next == "" {
		p.logger.Error().Msg("all API keys are cooling down")
	}
	return next
}

func cooldownFor(status int, msg string) time.Duration {
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "quota"):
		return quotaCooldown
	case status == 401 || status == 403 || strings.Contains(lower, "api key not valid"):
		return invalidKeyCooldown
	default:
		return rateLimitCooldown
	}
}

// KeyState is the health of one key as shown on the status endpoint.
type KeyState struct {
	Index     int    `json:"index"`
	Usable    bool   `json:"usable"`
	Cooldown  string `json:"cooldown,omitempty"`
	LastError string `json:"last_error,omitempty"`
	Failures  int    `json:"failures"`
}

// States returns a snapshot of every key without the key material.
func (p *KeyPool) States() []KeyState {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	out := make([]KeyState, len(p.keys))
	for i, k := range p.keys {
		st := KeyState{Index: i + 1, Usable: k.usable(now), LastError: k.lastError, Failures: k.failures}
		if !st.Usable {
			st.Cooldown = k.benchUntil.Sub(now).Round(time.Second).String()
		}
		out[i] = st
	}
	return out
}

// isRateLimited reports a per-key limit that another key may not have.
// 503 means the model is overloaded, which no key change fixes.
func isRateLimited(status int, body string) bool {
	if status == 429 {
		return true
	}
	if status == 503 {
		return false
	}
	lower := strings.ToLower(body)
	for _, m := range rateLimitMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

// collectKeys gathers keys from gemini_api_key, gemini_api_keys, the
// GEMINI_API_KEY* variables and the comma-separated GEMINI_API_KEYS.
func collectKeys(settings map[string]interface{}) []string {
	var keys []string
	if k := getStringSetting(settings, "gemini_api_key", ""); k != "" {
		keys = append(keys, k)
	}
	keys = append(keys, getStringSliceSetting(settings, "gemini_api_keys")...)
	for _, env := range keyEnvVars {
		if k := os.Getenv(env); k != "" {
			keys = append(keys, k)
		}
	}
	if list := os.Getenv("GEMINI_API_KEYS"); list != "" {
		keys = append(keys, strings.Split(list, ",")...)
	}
	return keys
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
