// ============================================================================
// GhostType - Voice Dictation for Desktop
// ============================================================================
//
// Package:     dictation
// Description: Trace id generation for dictation sessions
// Author:      Yida
// Created:     2026-01-17
// License:     MIT
// ============================================================================

package dictation

import (
	"time"

	"github.com/google/uuid"
)

const base62Alphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

// NewTraceID returns a six character base62 id derived from the current
// unix microsecond clock. Six base62 digits roll over roughly every 16
// minutes, plenty of spread for correlating one user's session logs.
func NewTraceID() string {
	micros := time.Now().UnixMicro()
	if micros <= 0 {
		// clock gave nothing usable, fall back to a random id
		return uuid.NewString()[:6]
	}

	n := uint64(micros)
	out := make([]byte, 6)
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = base62Alphabet[n%62]
		n /= 62
	}
	return string(out)
}
