// ============================================================================
// GhostType - Voice Dictation for Desktop
// ============================================================================
//
// Package:     ui
// Description: Tests for tray state handling
// Author:      Yida
// Created:     2026-08-30
// License:     MIT
// ============================================================================

package ui

import (
	"bytes"
	"image/png"
	"sync"
	"testing"
)

func iconState(t *TrayApp) IconState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.currentIcon
}

func TestTrayIdleIconFollowsServiceStatus(t *testing.T) {
	tr := NewTrayApp("f8", TrayCallbacks{})

	if got := iconState(tr); got != IconStateOffline {
		t.Fatalf("initial icon = %v, want offline", got)
	}

	tr.SetServiceStatus(true)
	if got := iconState(tr); got != IconStateIdle {
		t.Errorf("icon after service up = %v, want idle", got)
	}

	tr.SetRecording()
	if got := iconState(tr); got != IconStateRecording {
		t.Errorf("icon while recording = %v, want recording", got)
	}

	// a probe result during a session must not repaint the session icon
	tr.SetServiceStatus(false)
	if got := iconState(tr); got != IconStateRecording {
		t.Errorf("icon after probe during session = %v, want recording", got)
	}

	tr.SetIdle()
	if got := iconState(tr); got != IconStateOffline {
		t.Errorf("idle icon with service down = %v, want offline", got)
	}
}

func TestTrayConcurrentUpdates(t *testing.T) {
	tr := NewTrayApp("f8", TrayCallbacks{})

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(online bool) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				tr.SetServiceStatus(online)
				tr.SetIdle()
			}
		}(i%2 == 0)
	}
	wg.Wait()

	if got := iconState(tr); got != IconStateIdle && got != IconStateOffline {
		t.Errorf("icon after concurrent updates = %v, want idle or offline", got)
	}
}

func TestCreateTextIconBytes(t *testing.T) {
	for _, state := range []IconState{IconStateOffline, IconStateIdle, IconStateRecording, IconStateProcessing, IconStateError} {
		img, err := png.Decode(bytes.NewReader(createTextIconBytes(state)))
		if err != nil {
			t.Fatalf("icon for %v is not a valid PNG: %v", state, err)
		}
		b := img.Bounds()
		if b.Dx() != 44 || b.Dy() != 22 {
			t.Errorf("icon for %v is %dx%d, want 44x22", state, b.Dx(), b.Dy())
		}
	}
}
