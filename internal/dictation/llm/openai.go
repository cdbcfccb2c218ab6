// ============================================================================
// GhostType - Voice Dictation for Desktop
// ============================================================================
//
// Package:     llm
// Description: OpenAI-compatible chat completion correction engine
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

// OpenAIEngine talks to any /chat/completions endpoint: OpenAI, DeepSeek,
// Qwen, Moonshot and local gateways exposing the same schema.
type OpenAIEngine struct {
	client   *http.Client
	endpoint string
	apiKey   string
	model    string
	timeout  time.Duration
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// NewOpenAIEngine validates the endpoint, key and model up front so a bad
// config fails at startup rather than on the first dictation.
func NewOpenAIEngine(endpoint, apiKey, model string, timeoutMs int) (*OpenAIEngine, error) {
	endpoint = normalizeEndpoint(endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("correction endpoint must not be empty")
	}
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, fmt.Errorf("correction api_key must not be empty")
	}
	model = strings.TrimSpace(model)
	if model == "" {
		return nil, fmt.Errorf("correction model must not be empty")
	}

	timeout := effectiveTimeout(timeoutMs)
	return &OpenAIEngine{
		client:   newHTTPClient(timeout),
		endpoint: endpoint,
		apiKey:   apiKey,
		model:    model,
		timeout:  timeout,
	}, nil
}

func (e *OpenAIEngine) Correct(ctx context.Context, text string) (Result, error) {
	started := time.Now()
	input := strings.TrimSpace(text)
	if input == "" {
		return Result{Original: text, Corrected: text, Changed: false}, nil
	}

	reqBody := chatRequest{
		Model: e.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: input},
		},
		Temperature: 0.1,
		MaxTokens:   200,
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return Result{}, fmt.Errorf("encode correction request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return Result{}, fmt.Errorf("build correction request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.apiKey)

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

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return Result{}, fmt.Errorf("parse correction response: %w", err)
	}

	corrected := input
	if len(parsed.Choices) > 0 {
		if v := strings.TrimSpace(parsed.Choices[0].Message.Content); v != "" {
			corrected = v
		}
	}

	return Result{
		Original:  input,
		Corrected: corrected,
		Changed:   corrected != input,
		Latency:   time.Since(started),
	}, nil
}

// Healthy probes the model listing endpoint
func (e *OpenAIEngine) Healthy(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.endpoint+"/models", nil)
	if err != nil {
		return false
	}
	req.Header.Set("Authorization", "Bearer "+e.apiKey)
	resp, err := e.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	return resp.StatusCode == http.StatusOK
}
