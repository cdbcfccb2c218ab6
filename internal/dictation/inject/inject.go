// ============================================================================
// GhostType - Voice Dictation for Desktop
// ============================================================================
//
// Package:     inject
// Description: Serialized keystroke injection queue
// Author:      Yida
// Created:     2026-01-16
// License:     MIT
// ============================================================================

package inject

import (
	"fmt"
	"sync"

	"github.com/Yida-git/GhostType/pkg/core/logging"
)

// Op is the kind of keystroke command
type Op int

const (
	OpTypeText Op = iota
	OpBackspace
)

// Command is one unit of keyboard work. TypeText carries Text, Backspace
// carries Count. TraceID ties log lines back to the dictation session.
type Command struct {
	Op      Op
	TraceID string
	Text    string
	Count   int
}

// Applier performs the actual keyboard work. Implementations need not be
// thread safe; the Injector serializes all calls.
type Applier interface {
	TypeText(text string) error
	Backspace(count int) error
}

const queueCapacity = 256

// Injector owns a single consumer goroutine so commands from any number of
// producers reach the keyboard strictly in enqueue order. Interleaved
// deletes and inserts from overlapping sessions would otherwise corrupt the
// target document.
type Injector struct {
	queue   chan Command
	applier Applier
	logger  *logging.Logger

	done      chan struct{}
	stopped   chan struct{}
	closeOnce sync.Once
}

// NewInjector starts the consumer. A nil applier selects the platform
// keyboard applier.
func NewInjector(applier Applier, logger *logging.Logger) *Injector {
	if applier == nil {
		applier = newKeyboardApplier()
	}
	if logger == nil {
		logger = logging.New("inject")
	}
	inj := &Injector{
		queue:   make(chan Command, queueCapacity),
		applier: applier,
		logger:  logger,
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go inj.run()
	return inj
}

// Enqueue submits a command. It blocks while the queue is full, which
// back-pressures the pipeline rather than dropping text on the floor.
func (inj *Injector) Enqueue(cmd Command) error {
	select {
	case <-inj.done:
		return fmt.Errorf("injector closed")
	default:
	}
	select {
	case inj.queue <- cmd:
		return nil
	case <-inj.done:
		return fmt.Errorf("injector closed")
	}
}

// TypeText enqueues a text insertion
func (inj *Injector) TypeText(traceID, text string) error {
	if text == "" {
		return nil
	}
	return inj.Enqueue(Command{Op: OpTypeText, TraceID: traceID, Text: text})
}

// Backspace enqueues count backspace presses
func (inj *Injector) Backspace(traceID string, count int) error {
	if count <= 0 {
		return nil
	}
	return inj.Enqueue(Command{Op: OpBackspace, TraceID: traceID, Count: count})
}

// Close stops intake and waits for queued commands to finish, so a
// correction issued just before shutdown still lands.
func (inj *Injector) Close() {
	inj.closeOnce.Do(func() {
		close(inj.done)
	})
	<-inj.stopped
}

func (inj *Injector) run() {
	defer close(inj.stopped)
	for {
		select {
		case cmd := <-inj.queue:
			inj.apply(cmd)
		case <-inj.done:
			for {
				select {
				case cmd := <-inj.queue:
					inj.apply(cmd)
				default:
					return
				}
			}
		}
	}
}

// apply executes one command. Failures are logged and swallowed; a missed
// keystroke must never take the pipeline down.
func (inj *Injector) apply(cmd Command) {
	switch cmd.Op {
	case OpTypeText:
		if err := inj.applier.TypeText(cmd.Text); err != nil {
			inj.logger.Error("text injection failed", "trace_id", cmd.TraceID, "error", err)
			return
		}
		inj.logger.Info("text injected", "trace_id", cmd.TraceID, "chars", len([]rune(cmd.Text)))
	case OpBackspace:
		if err := inj.applier.Backspace(cmd.Count); err != nil {
			inj.logger.Error("backspace injection failed", "trace_id", cmd.TraceID, "error", err)
			return
		}
		inj.logger.Debug("backspace injected", "trace_id", cmd.TraceID, "count", cmd.Count)
	}
}
