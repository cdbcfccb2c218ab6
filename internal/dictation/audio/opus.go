// ============================================================================
// GhostType - Voice Dictation for Desktop
// ============================================================================
//
// Package:     audio
// Description: Opus encoder for voice-grade frame compression
// Author:      Yida
// Created:     2026-01-14
// License:     MIT
// ============================================================================

package audio

import (
	"fmt"

	"gopkg.in/hraban/opus.v2"
)

// maxPacketSize is the output buffer for one encoded frame. Opus voice frames
// are far smaller; 4 KB leaves ample headroom.
const maxPacketSize = 4096

// SupportedSampleRates lists the sample rates the codec accepts, in
// negotiation preference order.
var SupportedSampleRates = []int{48000, 16000, 24000, 12000, 8000}

// IsSupportedSampleRate reports whether the codec can run at the given rate
func IsSupportedSampleRate(rate int) bool {
	for _, r := range SupportedSampleRates {
		if r == rate {
			return true
		}
	}
	return false
}

// OpusEncoder wraps a mono VoIP-tuned Opus encoder. Not safe for concurrent
// use; create one per session.
type OpusEncoder struct {
	enc *opus.Encoder
	buf []byte
}

// NewOpusEncoder creates an encoder for one of the supported sample rates
func NewOpusEncoder(sampleRate int) (*OpusEncoder, error) {
	if !IsSupportedSampleRate(sampleRate) {
		return nil, fmt.Errorf("unsupported sample rate for opus: %d (supported: 8000/12000/16000/24000/48000)", sampleRate)
	}

	enc, err := opus.NewEncoder(sampleRate, 1, opus.AppVoIP)
	if err != nil {
		return nil, fmt.Errorf("create opus encoder: %w", err)
	}

	return &OpusEncoder{
		enc: enc,
		buf: make([]byte, maxPacketSize),
	}, nil
}

// Encode compresses one PCM frame. The returned slice is only valid until the
// next call; callers who keep packets must copy (the Framer does).
func (e *OpusEncoder) Encode(pcm []int16) ([]byte, error) {
	n, err := e.enc.Encode(pcm, e.buf)
	if err != nil {
		return nil, fmt.Errorf("opus encode: %w", err)
	}
	return e.buf[:n], nil
}
