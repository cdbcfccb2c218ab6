// ============================================================================
// GhostType - Voice Dictation for Desktop
// ============================================================================
//
// Package:     asr
// Description: Recognition engine interface and backend selection
// Author:      Yida
// Created:     2026-01-15
// License:     MIT
// ============================================================================

package asr

import (
	"context"
	"fmt"

	"github.com/Yida-git/GhostType/pkg/core/logging"
)

// Context carries the foreground-application snapshot taken when a session
// starts. Best effort; both fields may be empty.
type Context struct {
	AppName     string `json:"app_name"`
	WindowTitle string `json:"window_title"`
}

// Engine is one recognition session backend. Start/Feed/Stop are driven from
// the orchestrator in strict sequence; an Engine is not safe for concurrent
// calls.
//
// Start opens a fresh session; failure means capture must not proceed.
// Feed pushes raw mono PCM; it never waits on service responses.
// Stop finalizes the session and blocks for the transcript or an error.
// After Stop returns (either way) the engine is ready for the next Start.
type Engine interface {
	Start(ctx context.Context, traceID string, sampleRate int, winCtx Context) error
	Feed(pcm []int16) error
	Stop(ctx context.Context) (string, error)
}

// Backend type tags. A closed set: the protocol is purpose-built, not a
// plugin surface. Native and cloud slots are reserved.
const (
	BackendWebSocket = "websocket"
	BackendNative    = "native"
	BackendCloud     = "cloud"
)

// DefaultEndpoint is the self-hosted recognizer address
const DefaultEndpoint = "ws://127.0.0.1:8000/ws"

// Config selects and parameterizes the recognition backend
type Config struct {
	Type        string `toml:"type" json:"type"`
	Endpoint    string `toml:"endpoint" json:"endpoint"`
	UseCloudAPI bool   `toml:"use_cloud_api" json:"use_cloud_api"`
}

// DefaultConfig returns the websocket backend pointed at the local server
func DefaultConfig() Config {
	return Config{
		Type:     BackendWebSocket,
		Endpoint: DefaultEndpoint,
	}
}

// NewEngine creates the configured backend
func NewEngine(cfg Config, logger *logging.Logger) (Engine, error) {
	switch cfg.Type {
	case BackendWebSocket, "":
		endpoint := cfg.Endpoint
		if endpoint == "" {
			endpoint = DefaultEndpoint
		}
		return NewWebSocketEngine(endpoint, cfg.UseCloudAPI, logger), nil
	case BackendNative:
		return nil, fmt.Errorf("native recognition backend not implemented")
	case BackendCloud:
		return nil, fmt.Errorf("cloud recognition backend not implemented")
	default:
		return nil, fmt.Errorf("unknown recognition backend: %q", cfg.Type)
	}
}
