// ============================================================================
// GhostType - Voice Dictation for Desktop
// ============================================================================
//
// Package:     asr
// Description: Tests for the WebSocket streaming session client
// Author:      Yida
// Created:     2026-01-15
// License:     MIT
// ============================================================================

package asr

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"

	"github.com/Yida-git/GhostType/internal/dictation/audio"
)

// passthroughEncoder turns each PCM frame into a two-byte packet so tests
// can count packets without a codec.
type passthroughEncoder struct{}

func (passthroughEncoder) Encode(pcm []int16) ([]byte, error) {
	return []byte{byte(len(pcm) >> 8), byte(len(pcm))}, nil
}

var upgrader = websocket.Upgrader{}

// newTestEngine starts a server running handler and returns an engine
// pointed at it, with the codec swapped for the passthrough encoder.
func newTestEngine(t *testing.T, handler func(conn *websocket.Conn)) *WebSocketEngine {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		handler(conn)
	}))
	t.Cleanup(srv.Close)

	endpoint := "ws" + strings.TrimPrefix(srv.URL, "http")
	engine := NewWebSocketEngine(endpoint, false, nil)
	engine.newEncoder = func(sampleRate int) (audio.Encoder, error) {
		return passthroughEncoder{}, nil
	}
	return engine
}

// readJSON reads the next text frame into a generic map, skipping binary.
func readControl(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("server read: %v", err)
		}
		if msgType != websocket.TextMessage {
			continue
		}
		var msg map[string]any
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("server unmarshal: %v", err)
		}
		return msg
	}
}

func send(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()
	if err := conn.WriteJSON(v); err != nil {
		t.Fatalf("server write: %v", err)
	}
}

func TestSessionRoundTrip(t *testing.T) {
	binaryFrames := 0
	engine := newTestEngine(t, func(conn *websocket.Conn) {
		start := readControl(t, conn)
		if start["type"] != "start" {
			t.Errorf("first message type = %v, want start", start["type"])
		}
		if start["trace_id"] != "t-1" {
			t.Errorf("start trace_id = %v, want t-1", start["trace_id"])
		}
		if start["sample_rate"] != float64(16000) {
			t.Errorf("start sample_rate = %v, want 16000", start["sample_rate"])
		}
		wctx, _ := start["context"].(map[string]any)
		if wctx["app_name"] != "editor" {
			t.Errorf("context app_name = %v, want editor", wctx["app_name"])
		}

		for {
			msgType, data, err := conn.ReadMessage()
			if err != nil {
				t.Errorf("server read: %v", err)
				return
			}
			if msgType == websocket.BinaryMessage {
				binaryFrames++
				continue
			}
			var msg map[string]any
			json.Unmarshal(data, &msg)
			if msg["type"] == "stop" {
				break
			}
		}
		send(t, conn, map[string]any{"type": "final_text", "trace_id": "t-1", "content": "hello world"})
	})

	ctx := context.Background()
	if err := engine.Start(ctx, "t-1", 16000, Context{AppName: "editor", WindowTitle: "doc"}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	// 16 kHz frame is 320 samples; 960 samples is exactly three frames
	if err := engine.Feed(make([]int16, 960)); err != nil {
		t.Fatalf("Feed: %v", err)
	}
	text, err := engine.Stop(ctx)
	if err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if text != "hello world" {
		t.Errorf("transcript = %q, want %q", text, "hello world")
	}
	if binaryFrames != 3 {
		t.Errorf("server saw %d binary frames, want 3", binaryFrames)
	}
}

func TestStopFinalMessageVariants(t *testing.T) {
	tests := []struct {
		name     string
		events   []map[string]any
		want     string
		wantErr  bool
		errMatch string
	}{
		{
			name: "legacy tag",
			events: []map[string]any{
				{"type": "fast_text", "trace_id": "t-1", "content": "legacy"},
			},
			want: "legacy",
		},
		{
			name: "missing trace matches",
			events: []map[string]any{
				{"type": "final_text", "content": "untagged"},
			},
			want: "untagged",
		},
		{
			name: "empty trace matches",
			events: []map[string]any{
				{"type": "final_text", "trace_id": "", "content": "empty"},
			},
			want: "empty",
		},
		{
			name: "stale trace skipped",
			events: []map[string]any{
				{"type": "final_text", "trace_id": "t-0", "content": "stale"},
				{"type": "final_text", "trace_id": "t-1", "content": "fresh"},
			},
			want: "fresh",
		},
		{
			name: "heartbeat and junk skipped",
			events: []map[string]any{
				{"type": "pong"},
				{"type": "telemetry", "payload": "x"},
				{"type": "final_text", "trace_id": "t-1", "content": "after noise"},
			},
			want: "after noise",
		},
		{
			name: "stale error skipped",
			events: []map[string]any{
				{"type": "error", "trace_id": "t-0", "message": "old failure"},
				{"type": "final_text", "trace_id": "t-1", "content": "recovered"},
			},
			want: "recovered",
		},
		{
			name: "service error",
			events: []map[string]any{
				{"type": "error", "trace_id": "t-1", "message": "decoder exploded"},
			},
			wantErr:  true,
			errMatch: "decoder exploded",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := newTestEngine(t, func(conn *websocket.Conn) {
				readControl(t, conn) // start
				readControl(t, conn) // stop
				for _, ev := range tt.events {
					send(t, conn, ev)
				}
			})

			ctx := context.Background()
			if err := engine.Start(ctx, "t-1", 16000, Context{}); err != nil {
				t.Fatalf("Start: %v", err)
			}
			text, err := engine.Stop(ctx)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Stop returned %q, want error", text)
				}
				var svcErr *ServiceError
				if !errors.As(err, &svcErr) {
					t.Fatalf("Stop error = %v, want ServiceError", err)
				}
				if svcErr.Message != tt.errMatch {
					t.Errorf("service error message = %q, want %q", svcErr.Message, tt.errMatch)
				}
				return
			}
			if err != nil {
				t.Fatalf("Stop: %v", err)
			}
			if text != tt.want {
				t.Errorf("transcript = %q, want %q", text, tt.want)
			}
		})
	}
}

func TestStopConnectionClosedMidWait(t *testing.T) {
	engine := newTestEngine(t, func(conn *websocket.Conn) {
		readControl(t, conn) // start
		readControl(t, conn) // stop
		conn.Close()
	})

	ctx := context.Background()
	if err := engine.Start(ctx, "t-1", 16000, Context{}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := engine.Stop(ctx); err == nil {
		t.Fatal("Stop succeeded after server disconnect, want error")
	}
	// the failed session must not leave state behind
	if err := engine.Feed(make([]int16, 320)); err == nil {
		t.Fatal("Feed succeeded after teardown, want error")
	}
}

func TestStartReplacesPreviousSession(t *testing.T) {
	starts := 0
	engine := newTestEngine(t, func(conn *websocket.Conn) {
		starts++
		readControl(t, conn) // start
		readControl(t, conn) // stop
		send(t, conn, map[string]any{"type": "final_text", "trace_id": "t-2", "content": "second"})
	})

	ctx := context.Background()
	if err := engine.Start(ctx, "t-1", 16000, Context{}); err != nil {
		t.Fatalf("first Start: %v", err)
	}
	// abandoning t-1: a new hold replaces the old session outright
	if err := engine.Start(ctx, "t-2", 16000, Context{}); err != nil {
		t.Fatalf("second Start: %v", err)
	}
	text, err := engine.Stop(ctx)
	if err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if text != "second" {
		t.Errorf("transcript = %q, want %q", text, "second")
	}
	if starts != 2 {
		t.Errorf("server saw %d connections, want 2", starts)
	}
}

func TestFeedWithoutSession(t *testing.T) {
	engine := NewWebSocketEngine("ws://127.0.0.1:1/ws", false, nil)
	if err := engine.Feed(make([]int16, 320)); err == nil {
		t.Fatal("Feed without session succeeded, want error")
	}
	if _, err := engine.Stop(context.Background()); err == nil {
		t.Fatal("Stop without session succeeded, want error")
	}
}

func TestProbe(t *testing.T) {
	engine := newTestEngine(t, func(conn *websocket.Conn) {
		msg := readControl(t, conn)
		if msg["type"] != "ping" {
			t.Errorf("probe sent %v, want ping", msg["type"])
		}
		send(t, conn, map[string]any{"type": "pong"})
	})
	if err := engine.Probe(context.Background()); err != nil {
		t.Fatalf("Probe: %v", err)
	}
}

func TestProbeUnreachable(t *testing.T) {
	engine := NewWebSocketEngine("ws://127.0.0.1:1/ws", false, nil)
	if err := engine.Probe(context.Background()); err == nil {
		t.Fatal("Probe against closed port succeeded, want error")
	}
}

func TestNewEngineBackends(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{name: "websocket", cfg: Config{Type: BackendWebSocket, Endpoint: DefaultEndpoint}},
		{name: "default type", cfg: Config{Endpoint: DefaultEndpoint}},
		{name: "native unimplemented", cfg: Config{Type: BackendNative}, wantErr: true},
		{name: "cloud unimplemented", cfg: Config{Type: BackendCloud}, wantErr: true},
		{name: "unknown", cfg: Config{Type: "grpc"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine, err := NewEngine(tt.cfg, nil)
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
