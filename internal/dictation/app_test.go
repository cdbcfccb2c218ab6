// ============================================================================
// GhostType - Voice Dictation for Desktop
// ============================================================================
//
// Package:     dictation
// Description: Tests for application session handling
// Author:      Yida
// Created:     2026-08-30
// License:     MIT
// ============================================================================

package dictation

import (
	"fmt"
	"io"
	"testing"

	"github.com/Yida-git/GhostType/pkg/core/logging"
)

func newTestApp() *App {
	return &App{
		state: NewStateMachine(),
		logger: logging.NewWithConfig(logging.Config{
			Level:  logging.LevelError,
			Output: io.Discard,
			Name:   "test",
		}),
	}
}

func TestFinishSessionCompletesCurrent(t *testing.T) {
	a := newTestApp()
	a.state.Transition(StateRecording)
	a.state.Transition(StateProcessing)
	a.sessionGen = 1

	a.finishSession(1, nil)

	if got := a.state.Current(); got != StateIdle {
		t.Errorf("state = %v, want Idle", got)
	}
}

func TestFinishSessionSupersededLeavesNewRecording(t *testing.T) {
	a := newTestApp()

	// session 1 stopped; session 2 is already recording when its stale
	// finish arrives
	a.state.Transition(StateRecording)
	a.sessionGen = 2

	a.finishSession(1, nil)
	if got := a.state.Current(); got != StateRecording {
		t.Errorf("state after stale finish = %v, want Recording", got)
	}

	// a stale failure must not flip the tray to error either
	a.finishSession(1, fmt.Errorf("service gone"))
	if got := a.state.Current(); got != StateRecording {
		t.Errorf("state after stale failure = %v, want Recording", got)
	}
}

func TestDefaultHotkeyIsRegisterable(t *testing.T) {
	if _, ok := parseHotkey(defaultHotkey()); !ok {
		t.Fatalf("default hotkey %q is not accepted by parseHotkey", defaultHotkey())
	}
}

func TestParseHotkey(t *testing.T) {
	tests := []struct {
		raw string
		ok  bool
	}{
		{"f1", true},
		{"f8", true},
		{"F12", true},
		{" f9 ", true},
		{"capslock", false},
		{"", false},
		{"f13", false},
	}
	for _, tt := range tests {
		if _, ok := parseHotkey(tt.raw); ok != tt.ok {
			t.Errorf("parseHotkey(%q) accepted=%v, want %v", tt.raw, ok, tt.ok)
		}
	}
}
