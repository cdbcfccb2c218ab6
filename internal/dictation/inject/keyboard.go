// ============================================================================
// GhostType - Voice Dictation for Desktop
// ============================================================================
//
// Package:     inject
// Description: Clipboard-paste keyboard applier
// Author:      Yida
// Created:     2026-01-16
// License:     MIT
// ============================================================================

package inject

import (
	"fmt"
	"runtime"
	"time"

	"github.com/atotto/clipboard"
	"github.com/micmonay/keybd_event"
)

// keyboardApplier types text by staging it on the clipboard and sending the
// platform paste chord. Synthesizing per-character key events garbles CJK
// input under most IMEs; paste does not.
type keyboardApplier struct{}

func newKeyboardApplier() *keyboardApplier {
	return &keyboardApplier{}
}

// TypeText pastes text at the cursor and restores the previous clipboard
// contents afterwards. The sleeps give the foreground application time to
// observe the clipboard before and after the chord.
func (a *keyboardApplier) TypeText(text string) error {
	orig, _ := clipboard.ReadAll()
	if err := clipboard.WriteAll(text); err != nil {
		return fmt.Errorf("stage clipboard: %w", err)
	}
	time.Sleep(80 * time.Millisecond)

	kb, err := keybd_event.NewKeyBonding()
	if err != nil {
		return fmt.Errorf("keyboard binding: %w", err)
	}
	if runtime.GOOS == "darwin" {
		kb.HasSuper(true)
	} else {
		kb.HasCTRL(true)
	}
	kb.SetKeys(keybd_event.VK_V)
	if err := kb.Launching(); err != nil {
		return fmt.Errorf("paste chord: %w", err)
	}

	time.Sleep(120 * time.Millisecond)
	_ = clipboard.WriteAll(orig)
	return nil
}

// Backspace presses backspace count times
func (a *keyboardApplier) Backspace(count int) error {
	kb, err := keybd_event.NewKeyBonding()
	if err != nil {
		return fmt.Errorf("keyboard binding: %w", err)
	}
	kb.SetKeys(backspaceKey)
	for i := 0; i < count; i++ {
		if err := kb.Launching(); err != nil {
			return fmt.Errorf("backspace press: %w", err)
		}
		time.Sleep(5 * time.Millisecond)
	}
	return nil
}
