// ============================================================================
// GhostType - Voice Dictation for Desktop
// ============================================================================
//
// Package:     inject
// Description: Platform key codes (macOS)
// Author:      Yida
// Created:     2026-01-18
// License:     MIT
// ============================================================================

package inject

import "github.com/micmonay/keybd_event"

// macOS names the backspace key "delete".
const backspaceKey = keybd_event.VK_DELETE
