// ============================================================================
// GhostType - Voice Dictation for Desktop
// ============================================================================
//
// Package:     asr
// Description: WebSocket streaming session client
// Author:      Yida
// Created:     2026-01-15
// License:     MIT
// ============================================================================

package asr

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Yida-git/GhostType/internal/dictation/audio"
	"github.com/Yida-git/GhostType/pkg/core/logging"
)

const (
	handshakeTimeout = 10 * time.Second
	writeTimeout     = 5 * time.Second

	// finalTimeout bounds the wait for the service's final transcript after
	// stop. The recognizer flushes its decoder on stop, so this is longer
	// than a plain round trip.
	finalTimeout = 15 * time.Second
)

// startMessage opens a session on the wire
type startMessage struct {
	Type        string  `json:"type"`
	TraceID     string  `json:"trace_id"`
	SampleRate  int     `json:"sample_rate"`
	Context     Context `json:"context"`
	UseCloudAPI bool    `json:"use_cloud_api"`
}

// stopMessage asks the service to finalize the session
type stopMessage struct {
	Type    string `json:"type"`
	TraceID string `json:"trace_id,omitempty"`
}

// pingMessage is the connectivity probe payload
type pingMessage struct {
	Type string `json:"type"`
}

// serverEvent is any inbound control frame. IsFinal is schema-reserved for
// streaming partial results; the client only acts on the terminal message.
type serverEvent struct {
	Type    string `json:"type"`
	TraceID string `json:"trace_id"`
	Content string `json:"content"`
	IsFinal *bool  `json:"is_final"`
	Message string `json:"message"`
}

// ServiceError is an explicit error reported by the recognition service
type ServiceError struct {
	Message string
}

func (e *ServiceError) Error() string {
	return e.Message
}

// WebSocketEngine streams one session at a time over a fresh connection.
// The connection is torn down and rebuilt per session so a late message from
// a previous exchange can never be attributed to the current one.
type WebSocketEngine struct {
	mu          sync.Mutex
	endpoint    string
	useCloudAPI bool
	logger      *logging.Logger
	dialer      *websocket.Dialer

	// session state, cleared on every Stop outcome
	conn    *websocket.Conn
	traceID string
	framer  *audio.Framer

	// newEncoder is swappable in tests; production is the opus encoder
	newEncoder func(sampleRate int) (audio.Encoder, error)
}

// NewWebSocketEngine creates a client for the given endpoint
func NewWebSocketEngine(endpoint string, useCloudAPI bool, logger *logging.Logger) *WebSocketEngine {
	if logger == nil {
		logger = logging.New("asr")
	}
	return &WebSocketEngine{
		endpoint:    endpoint,
		useCloudAPI: useCloudAPI,
		logger:      logger,
		dialer: &websocket.Dialer{
			HandshakeTimeout: handshakeTimeout,
		},
		newEncoder: func(sampleRate int) (audio.Encoder, error) {
			return audio.NewOpusEncoder(sampleRate)
		},
	}
}

// Start tears down any previous connection, dials fresh and declares the
// session. A failure here is hard: the caller must not begin capture.
func (e *WebSocketEngine) Start(ctx context.Context, traceID string, sampleRate int, winCtx Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.teardownLocked()

	encoder, err := e.newEncoder(sampleRate)
	if err != nil {
		return fmt.Errorf("session encoder: %w", err)
	}
	framer, err := audio.NewFramer(sampleRate, encoder)
	if err != nil {
		return fmt.Errorf("session framer: %w", err)
	}

	conn, _, err := e.dialer.DialContext(ctx, e.endpoint, nil)
	if err != nil {
		return fmt.Errorf("connect recognizer: %w", err)
	}

	msg := startMessage{
		Type:        "start",
		TraceID:     traceID,
		SampleRate:  sampleRate,
		Context:     winCtx,
		UseCloudAPI: e.useCloudAPI,
	}
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := conn.WriteJSON(msg); err != nil {
		conn.Close()
		return fmt.Errorf("send start: %w", err)
	}

	e.conn = conn
	e.traceID = traceID
	e.framer = framer

	e.logger.Debug("session opened", "trace_id", traceID, "sample_rate", sampleRate)
	return nil
}

// Feed buffers PCM, encodes every whole frame and ships each packet as one
// binary message, preserving capture order. It never waits for responses.
// A write failure poisons the connection; the session is over.
func (e *WebSocketEngine) Feed(pcm []int16) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.conn == nil {
		return fmt.Errorf("no active session")
	}

	for _, packet := range e.framer.Push(pcm) {
		e.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := e.conn.WriteMessage(websocket.BinaryMessage, packet); err != nil {
			e.teardownLocked()
			return fmt.Errorf("send audio packet: %w", err)
		}
	}
	return nil
}

// Stop sends the stop control message and waits for the session's terminal
// message. Heartbeats and messages for other trace ids are skipped; a message
// without a trace id matches (older servers omit it). On every outcome the
// connection is torn down and session state cleared.
func (e *WebSocketEngine) Stop(ctx context.Context) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.conn == nil {
		return "", fmt.Errorf("no active session")
	}

	traceID := e.traceID
	defer e.teardownLocked()

	e.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := e.conn.WriteJSON(stopMessage{Type: "stop", TraceID: traceID}); err != nil {
		return "", fmt.Errorf("send stop: %w", err)
	}

	deadline := time.Now().Add(finalTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	e.conn.SetReadDeadline(deadline)

	for {
		msgType, data, err := e.conn.ReadMessage()
		if err != nil {
			return "", fmt.Errorf("await final transcript: %w", err)
		}
		if msgType != websocket.TextMessage {
			continue
		}

		var event serverEvent
		if err := json.Unmarshal(data, &event); err != nil {
			continue
		}

		switch event.Type {
		case "pong", "ping":
			continue
		case "final_text", "fast_text":
			// fast_text is the pre-rename tag still sent by older servers
			if event.TraceID != "" && event.TraceID != traceID {
				continue
			}
			e.logger.Debug("final transcript received", "trace_id", traceID, "len", len(event.Content))
			return event.Content, nil
		case "error":
			if event.TraceID != "" && event.TraceID != traceID {
				continue
			}
			return "", &ServiceError{Message: event.Message}
		default:
			continue
		}
	}
}

// teardownLocked closes the connection and clears all session-scoped state.
// Callers hold e.mu.
func (e *WebSocketEngine) teardownLocked() {
	if e.conn != nil {
		e.conn.Close()
		e.conn = nil
	}
	e.traceID = ""
	e.framer = nil
}
