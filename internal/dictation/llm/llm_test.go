// ============================================================================
// GhostType - Voice Dictation for Desktop
// ============================================================================
//
// Package:     llm
// Description: Tests for the correction engines
// Author:      Yida
// Created:     2026-01-16
// License:     MIT
// ============================================================================

package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestNewEngineSelection(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{name: "disabled", cfg: Config{Type: EngineDisabled}},
		{name: "empty type means disabled", cfg: Config{}},
		{name: "openai compat", cfg: Config{Type: EngineOpenAI, Endpoint: "https://api.example/v1", APIKey: "k", Model: "m"}},
		{name: "legacy openai tag", cfg: Config{Type: EngineOpenAIAlias, Endpoint: "https://api.example/v1", APIKey: "k", Model: "m"}},
		{name: "ollama", cfg: Config{Type: EngineOllama, Endpoint: "http://localhost:11434", Model: "m"}},
		{name: "openai missing key", cfg: Config{Type: EngineOpenAI, Endpoint: "https://api.example/v1", Model: "m"}, wantErr: true},
		{name: "openai missing model", cfg: Config{Type: EngineOpenAI, Endpoint: "https://api.example/v1", APIKey: "k"}, wantErr: true},
		{name: "ollama missing endpoint", cfg: Config{Type: EngineOllama, Model: "m"}, wantErr: true},
		{name: "ollama missing model", cfg: Config{Type: EngineOllama, Endpoint: "http://localhost:11434"}, wantErr: true},
		{name: "unknown type", cfg: Config{Type: "bard"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine, err := NewEngine(tt.cfg)
			if tt.wantErr {
				if err == nil {
					t.Fatal("NewEngine succeeded, want error")
				}
				return
			}
			if err != nil {
				t.Fatalf("NewEngine: %v", err)
			}
			if engine == nil {
				t.Fatal("NewEngine returned nil engine")
			}
		})
	}
}

func TestDisabledEnginePassesThrough(t *testing.T) {
	engine, err := NewEngine(Config{Type: EngineDisabled})
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	res, err := engine.Correct(context.Background(), "原始文本")
	if err != nil {
		t.Fatalf("Correct: %v", err)
	}
	if res.Corrected != "原始文本" || res.Changed {
		t.Errorf("got (%q, changed=%v), want passthrough", res.Corrected, res.Changed)
	}
	if !engine.Healthy(context.Background()) {
		t.Error("disabled engine reports unhealthy")
	}
}

func TestEffectiveTimeout(t *testing.T) {
	tests := []struct {
		ms   int
		want time.Duration
	}{
		{0, 3 * time.Second},
		{-5, 3 * time.Second},
		{50, 200 * time.Millisecond},
		{200, 200 * time.Millisecond},
		{5000, 5 * time.Second},
	}
	for _, tt := range tests {
		if got := effectiveTimeout(tt.ms); got != tt.want {
			t.Errorf("effectiveTimeout(%d) = %v, want %v", tt.ms, got, tt.want)
		}
	}
}

func TestOpenAIEngineCorrect(t *testing.T) {
	var gotAuth string
	var gotReq chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("path = %q, want /v1/chat/completions", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&gotReq)
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": " 您好，今天天气不错 "}},
			},
		})
	}))
	defer srv.Close()

	engine, err := NewOpenAIEngine(srv.URL+"/v1/", "secret", "gpt-x", 3000)
	if err != nil {
		t.Fatalf("NewOpenAIEngine: %v", err)
	}
	res, err := engine.Correct(context.Background(), "你好，今天天气不错")
	if err != nil {
		t.Fatalf("Correct: %v", err)
	}
	if res.Corrected != "您好，今天天气不错" {
		t.Errorf("corrected = %q", res.Corrected)
	}
	if !res.Changed {
		t.Error("Changed = false, want true")
	}
	if gotAuth != "Bearer secret" {
		t.Errorf("authorization = %q", gotAuth)
	}
	if len(gotReq.Messages) != 2 || gotReq.Messages[0].Role != "system" {
		t.Errorf("request messages = %+v", gotReq.Messages)
	}
	if gotReq.Messages[1].Content != "你好，今天天气不错" {
		t.Errorf("user content = %q", gotReq.Messages[1].Content)
	}
}

func TestOpenAIEngineUnchangedAndEmptyChoices(t *testing.T) {
	tests := []struct {
		name string
		body map[string]any
	}{
		{
			name: "verbatim echo",
			body: map[string]any{"choices": []map[string]any{
				{"message": map[string]any{"content": "无需修正"}},
			}},
		},
		{name: "no choices", body: map[string]any{"choices": []map[string]any{}}},
		{
			name: "blank content",
			body: map[string]any{"choices": []map[string]any{
				{"message": map[string]any{"content": "  "}},
			}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode(tt.body)
			}))
			defer srv.Close()

			engine, err := NewOpenAIEngine(srv.URL, "k", "m", 3000)
			if err != nil {
				t.Fatalf("NewOpenAIEngine: %v", err)
			}
			res, err := engine.Correct(context.Background(), "无需修正")
			if err != nil {
				t.Fatalf("Correct: %v", err)
			}
			if res.Changed {
				t.Error("Changed = true, want false")
			}
			if res.Corrected != "无需修正" {
				t.Errorf("corrected = %q, want input back", res.Corrected)
			}
		})
	}
}

func TestOpenAIEngineHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	engine, err := NewOpenAIEngine(srv.URL, "k", "m", 3000)
	if err != nil {
		t.Fatalf("NewOpenAIEngine: %v", err)
	}
	if _, err := engine.Correct(context.Background(), "文本"); err == nil {
		t.Fatal("Correct succeeded on 503, want error")
	}
}

func TestOpenAIEngineCancellation(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	defer srv.Close()
	defer close(block)

	engine, err := NewOpenAIEngine(srv.URL, "k", "m", 30000)
	if err != nil {
		t.Fatalf("NewOpenAIEngine: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	if _, err := engine.Correct(ctx, "文本"); err == nil {
		t.Fatal("Correct survived cancellation, want error")
	}
}

func TestOpenAIEngineEmptyInputSkipsRequest(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	engine, err := NewOpenAIEngine(srv.URL, "k", "m", 3000)
	if err != nil {
		t.Fatalf("NewOpenAIEngine: %v", err)
	}
	res, err := engine.Correct(context.Background(), "   ")
	if err != nil {
		t.Fatalf("Correct: %v", err)
	}
	if res.Changed || called {
		t.Errorf("blank input: changed=%v called=%v, want no-op", res.Changed, called)
	}
}

func TestOllamaEngineCorrect(t *testing.T) {
	var gotReq generateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Errorf("path = %q, want /api/generate", r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&gotReq)
		json.NewEncoder(w).Encode(map[string]any{"response": "您好"})
	}))
	defer srv.Close()

	engine, err := NewOllamaEngine(srv.URL, "qwen2.5", 3000)
	if err != nil {
		t.Fatalf("NewOllamaEngine: %v", err)
	}
	res, err := engine.Correct(context.Background(), "你好")
	if err != nil {
		t.Fatalf("Correct: %v", err)
	}
	if res.Corrected != "您好" || !res.Changed {
		t.Errorf("got (%q, changed=%v), want (您好, true)", res.Corrected, res.Changed)
	}
	if gotReq.Stream {
		t.Error("request stream = true, want false")
	}
	if gotReq.Model != "qwen2.5" {
		t.Errorf("request model = %q", gotReq.Model)
	}
}

func TestOllamaHealthy(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		healthy bool
	}{
		{name: "version present", status: 200, body: `{"version":"0.5.1"}`, healthy: true},
		{name: "blank version", status: 200, body: `{"version":" "}`, healthy: false},
		{name: "missing version", status: 200, body: `{}`, healthy: false},
		{name: "http error", status: 500, body: `{"version":"0.5.1"}`, healthy: false},
		{name: "bad json", status: 200, body: `not json`, healthy: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/api/version" {
					t.Errorf("path = %q, want /api/version", r.URL.Path)
				}
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			engine, err := NewOllamaEngine(srv.URL, "m", 3000)
			if err != nil {
				t.Fatalf("NewOllamaEngine: %v", err)
			}
			if got := engine.Healthy(context.Background()); got != tt.healthy {
				t.Errorf("Healthy = %v, want %v", got, tt.healthy)
			}
		})
	}
}

func TestOpenAIHealthy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models" {
			t.Errorf("path = %q, want /models", r.URL.Path)
		}
		w.Write([]byte(`{"data":[]}`))
	}))
	defer srv.Close()

	engine, err := NewOpenAIEngine(srv.URL, "k", "m", 3000)
	if err != nil {
		t.Fatalf("NewOpenAIEngine: %v", err)
	}
	if !engine.Healthy(context.Background()) {
		t.Error("Healthy = false, want true")
	}
}
