// ============================================================================
// GhostType - Voice Dictation for Desktop
// ============================================================================
//
// Package:     dictation
// Description: Dictation state machine
// Author:      Yida
// Created:     2026-01-17
// License:     MIT
// ============================================================================

package dictation

import (
	"sync"
	"time"
)

// State represents the current dictation state
type State int

const (
	// StateIdle - Waiting for the push-to-talk key
	StateIdle State = iota

	// StateRecording - Key held, streaming microphone audio
	StateRecording

	// StateProcessing - Key released, waiting for the transcript
	StateProcessing

	// StateError - Last session failed; cleared by the next success
	StateError
)

// String returns the string representation of the state
func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateRecording:
		return "Recording"
	case StateProcessing:
		return "Processing"
	case StateError:
		return "Error"
	default:
		return "Unknown"
	}
}

// StateMachine manages dictation state transitions
type StateMachine struct {
	mu            sync.RWMutex
	currentState  State
	previousState State
	stateTime     time.Time
	listeners     []StateChangeListener
}

// StateChangeListener is called when state changes
type StateChangeListener func(oldState, newState State)

// NewStateMachine creates a new state machine
func NewStateMachine() *StateMachine {
	return &StateMachine{
		currentState: StateIdle,
		stateTime:    time.Now(),
		listeners:    make([]StateChangeListener, 0),
	}
}

// Current returns the current state
func (sm *StateMachine) Current() State {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.currentState
}

// Previous returns the previous state
func (sm *StateMachine) Previous() State {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.previousState
}

// StateDuration returns how long we've been in the current state
func (sm *StateMachine) StateDuration() time.Duration {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return time.Since(sm.stateTime)
}

// Transition changes to a new state
func (sm *StateMachine) Transition(newState State) bool {
	sm.mu.Lock()
	oldState := sm.currentState

	if !sm.isValidTransition(oldState, newState) {
		sm.mu.Unlock()
		return false
	}

	sm.previousState = oldState
	sm.currentState = newState
	sm.stateTime = time.Now()
	listeners := sm.listeners
	sm.mu.Unlock()

	for _, listener := range listeners {
		listener(oldState, newState)
	}

	return true
}

// AddListener adds a state change listener
func (sm *StateMachine) AddListener(listener StateChangeListener) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.listeners = append(sm.listeners, listener)
}

// isValidTransition checks if a state transition is valid. Error is
// reachable from everywhere active and exits only to Idle or a new
// recording, so a stale error badge never blocks the next dictation.
func (sm *StateMachine) isValidTransition(from, to State) bool {
	validTransitions := map[State][]State{
		StateIdle:       {StateRecording, StateError},
		StateRecording:  {StateProcessing, StateIdle, StateError},
		StateProcessing: {StateIdle, StateRecording, StateError},
		StateError:      {StateIdle, StateRecording},
	}

	validTargets, ok := validTransitions[from]
	if !ok {
		return false
	}
	for _, valid := range validTargets {
		if valid == to {
			return true
		}
	}
	return false
}

// Reset resets the state machine to idle
func (sm *StateMachine) Reset() {
	sm.mu.Lock()
	oldState := sm.currentState
	sm.previousState = oldState
	sm.currentState = StateIdle
	sm.stateTime = time.Now()
	listeners := sm.listeners
	sm.mu.Unlock()

	for _, listener := range listeners {
		listener(oldState, StateIdle)
	}
}

// IsActive returns true while a dictation session is in flight
func (sm *StateMachine) IsActive() bool {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.currentState == StateRecording || sm.currentState == StateProcessing
}
