// ============================================================================
// GhostType - Voice Dictation for Desktop
// ============================================================================
//
// Package:     dictation
// Description: Version information
// Author:      Yida
// Created:     2026-01-18
// License:     MIT
// ============================================================================

package dictation

// Version is the client version, also reported in logs at startup
const Version = "2.1.0"
