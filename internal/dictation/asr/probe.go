// ============================================================================
// GhostType - Voice Dictation for Desktop
// ============================================================================
//
// Package:     asr
// Description: Idle connectivity probe for the recognition service
// Author:      Yida
// Created:     2026-01-15
// License:     MIT
// ============================================================================

package asr

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
)

const probeTimeout = 3 * time.Second

// Probe opens a short-lived connection, sends a ping control message and
// waits for the matching pong. It shares nothing with session state, so it
// is safe to call while no session is active.
func (e *WebSocketEngine) Probe(ctx context.Context) error {
	dialCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	conn, _, err := e.dialer.DialContext(dialCtx, e.endpoint, nil)
	if err != nil {
		return fmt.Errorf("probe connect: %w", err)
	}
	defer conn.Close()

	conn.SetWriteDeadline(time.Now().Add(probeTimeout))
	if err := conn.WriteJSON(pingMessage{Type: "ping"}); err != nil {
		return fmt.Errorf("probe send: %w", err)
	}

	conn.SetReadDeadline(time.Now().Add(probeTimeout))
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("probe response: %w", err)
		}
		if msgType != websocket.TextMessage {
			continue
		}
		var event serverEvent
		if err := json.Unmarshal(data, &event); err != nil {
			continue
		}
		if event.Type == "pong" {
			return nil
		}
	}
}
