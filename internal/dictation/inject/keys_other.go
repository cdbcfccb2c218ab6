// ============================================================================
// GhostType - Voice Dictation for Desktop
// ============================================================================
//
// Package:     inject
// Description: Platform key codes (Windows, Linux)
// Author:      Yida
// Created:     2026-01-18
// License:     MIT
// ============================================================================

//go:build !darwin

package inject

import "github.com/micmonay/keybd_event"

const backspaceKey = keybd_event.VK_BACKSPACE
