// ============================================================================
// GhostType - Voice Dictation for Desktop
// ============================================================================
//
// Package:     llm
// Description: Local Ollama correction engine
// Author:      Yida
// Created:     2026-01-16
// License:     MIT
// ============================================================================

package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// OllamaEngine calls a local Ollama daemon over its generate API
type OllamaEngine struct {
	client   *http.Client
	endpoint string
	model    string
	timeout  time.Duration
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type generateResponse struct {
	Response string `json:"response"`
}

type versionResponse struct {
	Version string `json:"version"`
}

func NewOllamaEngine(endpoint, model string, timeoutMs int) (*OllamaEngine, error) {
	endpoint = normalizeEndpoint(endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("correction endpoint must not be empty")
	}
	model = strings.TrimSpace(model)
	if model == "" {
		return nil, fmt.Errorf("correction model must not be empty")
	}

	timeout := effectiveTimeout(timeoutMs)
	return &OllamaEngine{
		client:   newHTTPClient(timeout),
		endpoint: endpoint,
		model:    model,
		timeout:  timeout,
	}, nil
}

func (e *OllamaEngine) Correct(ctx context.Context, text string) (Result, error) {
	started := time.Now()
	input := strings.TrimSpace(text)
	if input == "" {
		return Result{Original: text, Corrected: text, Changed: false}, nil
	}

	// generate has no system role, so the instruction is prepended
	reqBody := generateRequest{
		Model:  e.model,
		Prompt: systemPrompt + "\n\n" + input,
		Stream: false,
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return Result{}, fmt.Errorf("encode correction request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint+"/api/generate", bytes.NewReader(payload))
	if err != nil {
		return Result{}, fmt.Errorf("build correction request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("send correction request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, fmt.Errorf("read correction response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return Result{}, fmt.Errorf("correction service status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var parsed generateResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return Result{}, fmt.Errorf("parse correction response: %w", err)
	}

	corrected := strings.TrimSpace(parsed.Response)
	if corrected == "" {
		corrected = input
	}

	return Result{
		Original:  input,
		Corrected: corrected,
		Changed:   corrected != input,
		Latency:   time.Since(started),
	}, nil
}

// Healthy checks the daemon's version endpoint; a reachable daemon that
// reports no version is treated as down.
func (e *OllamaEngine) Healthy(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.endpoint+"/api/version", nil)
	if err != nil {
		return false
	}
	resp, err := e.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return false
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return false
	}
	var parsed versionResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return false
	}
	return strings.TrimSpace(parsed.Version) != ""
}
