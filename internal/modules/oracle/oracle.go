package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"

	"github.com/docshield/docshield/internal/analysis"
	"github.com/docshield/docshield/internal/core"
)

const ModuleName = core.RiskOracleModule

const (
	defaultBaseURL   = "https://generativelanguage.googleapis.com/v1beta/models"
	defaultModel     = "gemini-flash-latest"
	defaultTimeout   = 20
	defaultMaxTokens = 512
	maxAttempts      = 4
	maxResponseBytes = 1 << 20
)

// Client asks Gemini for a risk verdict on a scan result. It implements
// core.Assessor; every failure is reported as analysis.ErrOracleUnavailable
// so the engine can fall back.
type Client struct {
	logger     zerolog.Logger
	httpClient *http.Client
	cb         *gobreaker.CircuitBreaker
	keys       *KeyPool

	model     string
	endpoint  string
	maxTokens int
}

var _ core.Assessor = (*Client)(nil)

// New builds a client from the risk_oracle module settings. Without any API
// key the client is passive and every Assess call fails fast.
func New(cfg *core.Config, logger zerolog.Logger) *Client {
	settings := cfg.GetModuleSettings(ModuleName)
	l := logger.With().Str("module", ModuleName).Logger()

	model := getStringSetting(settings, "model", defaultModel)
	base := strings.TrimRight(getStringSetting(settings, "api_base_url", defaultBaseURL), "/")
	timeout := getIntSetting(settings, "timeout_seconds", defaultTimeout)
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	c := &Client{
		logger:     l,
		httpClient: &http.Client{Timeout: time.Duration(timeout) * time.Second},
		cb: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "GeminiAPI",
			MaxRequests: 3,
			Interval:    10 * time.Second,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures > 5
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				l.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state changed")
			},
		}),
		keys:      NewKeyPool(collectKeys(settings), l),
		model:     model,
		endpoint:  fmt.Sprintf("%s/%s:generateContent", base, model),
		maxTokens: getIntSetting(settings, "max_tokens", defaultMaxTokens),
	}

	if c.Enabled() {
		l.Info().Str("model", model).Int("api_keys", c.keys.Size()).Msg("risk oracle enabled")
	} else {
		l.Warn().Msg("risk oracle in passive mode (no API key configured), fallback scorer will be used")
	}
	return c
}

func (c *Client) Name() string { return ModuleName }

func (c *Client) Description() string {
	return "Gemini risk oracle producing a narrative verdict from the scan summary"
}

// Enabled reports whether at least one API key is loaded.
func (c *Client) Enabled() bool { return c.keys.Size() > 0 }

// Status is the oracle section of the status endpoint.
func (c *Client) Status() map[string]interface{} {
	return map[string]interface{}{
		"enabled": c.Enabled(),
		"model":   c.model,
		"breaker": c.cb.State().String(),
		"keys":    c.keys.States(),
	}
}

// Assess sends the scan summary to the model and validates its verdict.
func (c *Client) Assess(ctx context.Context, req core.OracleRequest) (analysis.RiskVerdict, error) {
	if !c.Enabled() {
		return analysis.RiskVerdict{}, fmt.Errorf("%w: no API key configured", analysis.ErrOracleUnavailable)
	}
	if req.Result == nil {
		return analysis.RiskVerdict{}, fmt.Errorf("%w: no scan result", analysis.ErrOracleUnavailable)
	}

	text, err := c.generate(ctx, buildPrompt(req))
	if err != nil {
		return analysis.RiskVerdict{}, fmt.Errorf("%w: %v", analysis.ErrOracleUnavailable, err)
	}

	v, err := parseVerdict(text)
	if err != nil {
		return analysis.RiskVerdict{}, fmt.Errorf("%w: %v", analysis.ErrOracleUnavailable, err)
	}

	c.logger.Debug().
		Str("file", req.FileName).
		Float64("risk_score", v.RiskScore).
		Str("risk_level", string(v.RiskLevel)).
		Msg("oracle verdict received")
	return v, nil
}

// Gemini API types
type geminiRequest struct {
	Contents         []geminiContent        `json:"contents"`
	GenerationConfig map[string]interface{} `json:"generationConfig,omitempty"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"error,omitempty"`
}

var errKeysExhausted = errors.New("all API keys are cooling down")

// generate runs one generateContent call inside the circuit breaker,
// rotating keys on per-key rate limits.
func (c *Client) generate(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(geminiRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: prompt}}}},
		GenerationConfig: map[string]interface{}{
			"maxOutputTokens":  c.maxTokens,
			"temperature":      0.1,
			"responseMimeType": "application/json",
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	attempts := min(max(c.keys.Size(), 1), maxAttempts)

	result, err := c.cb.Execute(func() (interface{}, error) {
		var lastErr error
		for i := 0; i < attempts; i++ {
			key := c.keys.Current()
			if key == "" {
				break
			}

			text, status, msg, err := c.post(ctx, key, body)
			if err != nil {
				return "", err
			}
			if isRateLimited(status, msg) {
				lastErr = fmt.Errorf("gemini rate limited (status %d)", status)
				if c.keys.Bench(key, status, msg) == "" {
					return "", fmt.Errorf("%w: %v", errKeysExhausted, lastErr)
				}
				continue
			}
			if status != http.StatusOK || msg != "" {
				return "", fmt.Errorf("gemini API error (status %d): %s", status, truncate(msg, 200))
			}
			return text, nil
		}
		if lastErr != nil {
			return "", lastErr
		}
		return "", errKeysExhausted
	})
	if err != nil {
		return "", err
	}
	return result.(string), nil
}

// post performs a single HTTP call. A non-empty msg carries the API error
// text; err is reserved for transport and decoding failures.
func (c *Client) post(ctx context.Context, key string, body []byte) (text string, status int, msg string, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", 0, "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", key)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", 0, "", fmt.Errorf("calling Gemini API: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", resp.StatusCode, "", fmt.Errorf("reading response: %w", err)
	}

	var gr geminiResponse
	if jsonErr := json.Unmarshal(raw, &gr); jsonErr != nil {
		if resp.StatusCode != http.StatusOK {
			return "", resp.StatusCode, string(raw), nil
		}
		return "", resp.StatusCode, "", fmt.Errorf("parsing Gemini response: %w", jsonErr)
	}
	if gr.Error != nil {
		status := resp.StatusCode
		if status == http.StatusOK && gr.Error.Code != 0 {
			status = gr.Error.Code
		}
		return "", status, gr.Error.Message, nil
	}
	if resp.StatusCode != http.StatusOK {
		return "", resp.StatusCode, string(raw), nil
	}
	if len(gr.Candidates) == 0 || len(gr.Candidates[0].Content.Parts) == 0 {
		return "", resp.StatusCode, "", errors.New("empty response from Gemini")
	}
	return gr.Candidates[0].Content.Parts[0].Text, resp.StatusCode, "", nil
}

type verdictPayload struct {
	RiskScore  *float64 `json:"riskScore"`
	RiskLevel  string   `json:"riskLevel"`
	Confidence *float64 `json:"confidence"`
	Verdict    string   `json:"verdict"`
}

// parseVerdict validates the model's JSON. The level is always derived from
// the clamped score so it agrees with the fallback thresholds.
func parseVerdict(text string) (analysis.RiskVerdict, error) {
	var p verdictPayload
	if err := json.Unmarshal([]byte(cleanJSON(text)), &p); err != nil {
		return analysis.RiskVerdict{}, fmt.Errorf("parsing verdict: %w", err)
	}
	if p.RiskScore == nil {
		return analysis.RiskVerdict{}, errors.New("verdict is missing riskScore")
	}
	if math.IsNaN(*p.RiskScore) {
		return analysis.RiskVerdict{}, errors.New("riskScore is not a number")
	}

	score := clamp(*p.RiskScore, 0, 100)
	confidence := 50.0
	if p.Confidence != nil && !math.IsNaN(*p.Confidence) {
		confidence = clamp(*p.Confidence, 0, 100)
	}
	level := analysis.LevelForScore(score)

	verdict := strings.TrimSpace(p.Verdict)
	if verdict == "" {
		verdict = fmt.Sprintf("Risk oracle rated this document %s (score %.2f) without further explanation.", level, score)
	}

	return analysis.RiskVerdict{
		RiskScore:  score,
		RiskLevel:  level,
		Confidence: int(math.Round(confidence)),
		Verdict:    verdict,
		Source:     analysis.SourceOracle,
	}, nil
}

// cleanJSON extracts JSON from a response that might have markdown fencing.
func cleanJSON(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(s, "```")
		s = strings.TrimSpace(s)
	}
	return s
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(v, hi))
}

// Helper functions

func getStringSetting(settings map[string]interface{}, key, defaultVal string) string {
	if val, ok := settings[key]; ok {
		if s, ok := val.(string); ok && s != "" {
			return s
		}
	}
	return defaultVal
}

func getIntSetting(settings map[string]interface{}, key string, defaultVal int) int {
	if val, ok := settings[key]; ok {
		switch v := val.(type) {
		case int:
			return v
		case int64:
			return int(v)
		case float64:
			return int(v)
		}
	}
	return defaultVal
}

// getStringSliceSetting accepts []string or the []interface{} YAML produces.
func getStringSliceSetting(settings map[string]interface{}, key string) []string {
	switch v := settings[key].(type) {
	case []string:
		return v
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		if v == "" {
			return nil
		}
		return strings.Split(v, ",")
	}
	return nil
}
