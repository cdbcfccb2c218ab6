// ============================================================================
// GhostType - Voice Dictation for Desktop
// ============================================================================
//
// Package:     llm
// Description: Correction engine interface and backend selection
// Author:      Yida
// Created:     2026-01-16
// License:     MIT
// ============================================================================

package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/http2"
)

// systemPrompt instructs the model to emit only the corrected text. The
// product targets Chinese dictation, so the prompt is Chinese.
const systemPrompt = "你是中文文本校正助手。修正语音识别文本的错别字和语法错误，保持原意。只输出修正后的文本，无需解释。若无需修正则原样输出。"

const (
	// DefaultTimeoutMs bounds one correction round trip. Corrections past a
	// few seconds are worthless; the user has moved on.
	DefaultTimeoutMs = 3000

	// minTimeout is the floor applied to configured timeouts
	minTimeout = 200 * time.Millisecond
)

// Result is one correction outcome. Changed is false when the model returned
// the input verbatim, which tells the caller no replacement is needed.
type Result struct {
	Original  string
	Corrected string
	Changed   bool
	Latency   time.Duration
}

// Engine proposes corrections for recognized text. Correct must honor ctx
// cancellation; a canceled correction returns ctx.Err(). Healthy reports
// whether the backing service is reachable, for diagnostics only.
type Engine interface {
	Correct(ctx context.Context, text string) (Result, error)
	Healthy(ctx context.Context) bool
}

// Engine type tags
const (
	EngineDisabled    = "disabled"
	EngineOpenAI      = "openai_compat"
	EngineOpenAIAlias = "open_ai_compat" // pre-rename tag kept readable
	EngineOllama      = "ollama"
)

// Config selects and parameterizes the correction backend
type Config struct {
	Type      string `toml:"type" json:"type"`
	Endpoint  string `toml:"endpoint" json:"endpoint"`
	APIKey    string `toml:"api_key" json:"api_key"`
	Model     string `toml:"model" json:"model"`
	TimeoutMs int    `toml:"timeout_ms" json:"timeout_ms"`
}

// DefaultConfig disables correction. Opting in requires an endpoint anyway,
// so there is no useful enabled default.
func DefaultConfig() Config {
	return Config{
		Type:      EngineDisabled,
		TimeoutMs: DefaultTimeoutMs,
	}
}

// NewEngine creates the configured backend
func NewEngine(cfg Config) (Engine, error) {
	switch cfg.Type {
	case EngineDisabled, "":
		return disabledEngine{}, nil
	case EngineOpenAI, EngineOpenAIAlias:
		return NewOpenAIEngine(cfg.Endpoint, cfg.APIKey, cfg.Model, cfg.TimeoutMs)
	case EngineOllama:
		return NewOllamaEngine(cfg.Endpoint, cfg.Model, cfg.TimeoutMs)
	default:
		return nil, fmt.Errorf("unknown correction engine: %q", cfg.Type)
	}
}

// disabledEngine passes text through untouched
type disabledEngine struct{}

func (disabledEngine) Correct(_ context.Context, text string) (Result, error) {
	return Result{Original: text, Corrected: text, Changed: false}, nil
}

func (disabledEngine) Healthy(context.Context) bool {
	return true
}

// effectiveTimeout applies the default and the floor
func effectiveTimeout(timeoutMs int) time.Duration {
	if timeoutMs <= 0 {
		timeoutMs = DefaultTimeoutMs
	}
	d := time.Duration(timeoutMs) * time.Millisecond
	if d < minTimeout {
		d = minTimeout
	}
	return d
}

// normalizeEndpoint trims whitespace and trailing slashes so URL joining is
// uniform across backends
func normalizeEndpoint(endpoint string) string {
	return strings.TrimRight(strings.TrimSpace(endpoint), "/")
}

// newHTTPClient builds the per-engine client with HTTP/2 negotiation
// enabled on TLS endpoints
func newHTTPClient(timeout time.Duration) *http.Client {
	tr := http.DefaultTransport.(*http.Transport).Clone()
	_ = http2.ConfigureTransport(tr)
	return &http.Client{
		Transport: tr,
		Timeout:   timeout,
	}
}
