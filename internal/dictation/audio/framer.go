// ============================================================================
// GhostType - Voice Dictation for Desktop
// ============================================================================
//
// Package:     audio
// Description: Fixed-duration frame assembly and codec dispatch
// Author:      Yida
// Created:     2026-01-14
// License:     MIT
// ============================================================================

package audio

import "fmt"

// Encoder compresses a single PCM frame of the configured size. Implementations
// are not safe for concurrent use; a Framer drives its encoder from one
// goroutine only, and a fresh encoder is created per session.
type Encoder interface {
	Encode(pcm []int16) ([]byte, error)
}

// Framer re-chunks an arbitrary stream of mono 16-bit PCM into frames of
// exactly 20 ms at the session sample rate and feeds each frame to the
// encoder. Packets come out in capture order, one per frame.
type Framer struct {
	frameSize int
	encoder   Encoder
	pcm       []int16
	skipped   int
}

// NewFramer creates a framer for the given session sample rate. Frame size is
// sampleRate/50 samples (20 ms).
func NewFramer(sampleRate int, encoder Encoder) (*Framer, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate: %d", sampleRate)
	}
	if encoder == nil {
		return nil, fmt.Errorf("encoder is nil")
	}
	frameSize := sampleRate / 50
	return &Framer{
		frameSize: frameSize,
		encoder:   encoder,
		pcm:       make([]int16, 0, frameSize*4),
	}, nil
}

// FrameSize returns the number of samples per frame
func (f *Framer) FrameSize() int {
	return f.frameSize
}

// Push appends PCM samples and returns the encoded packets for every whole
// frame now available, in order. A frame whose encode fails (or produces an
// empty packet) is skipped; the stream continues with the next frame.
func (f *Framer) Push(pcm []int16) [][]byte {
	f.pcm = append(f.pcm, pcm...)

	var packets [][]byte
	for len(f.pcm) >= f.frameSize {
		frame := f.pcm[:f.frameSize]
		encoded, err := f.encoder.Encode(frame)
		f.pcm = f.pcm[f.frameSize:]
		if err != nil || len(encoded) == 0 {
			f.skipped++
			continue
		}
		packet := make([]byte, len(encoded))
		copy(packet, encoded)
		packets = append(packets, packet)
	}

	// Shift remaining samples to the front so the backing array is reusable
	if len(f.pcm) > 0 && cap(f.pcm) > f.frameSize*8 {
		rest := make([]int16, len(f.pcm), f.frameSize*4)
		copy(rest, f.pcm)
		f.pcm = rest
	}

	return packets
}

// Buffered returns the number of samples waiting for a whole frame
func (f *Framer) Buffered() int {
	return len(f.pcm)
}

// Skipped returns the number of frames dropped due to encode failures
func (f *Framer) Skipped() int {
	return f.skipped
}

// Reset discards buffered samples
func (f *Framer) Reset() {
	f.pcm = f.pcm[:0]
}
