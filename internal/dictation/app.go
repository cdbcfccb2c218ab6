// ============================================================================
// GhostType - Voice Dictation for Desktop
// ============================================================================
//
// Package:     dictation
// Description: Main application controller
// Author:      Yida
// Created:     2026-01-18
// License:     MIT
// ============================================================================

package dictation

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/gen2brain/beeep"
	"golang.design/x/hotkey"

	"github.com/Yida-git/GhostType/internal/dictation/asr"
	"github.com/Yida-git/GhostType/internal/dictation/audio"
	"github.com/Yida-git/GhostType/internal/dictation/history"
	"github.com/Yida-git/GhostType/internal/dictation/inject"
	"github.com/Yida-git/GhostType/internal/dictation/llm"
	"github.com/Yida-git/GhostType/internal/dictation/ui"
	"github.com/Yida-git/GhostType/pkg/core/logging"
)

// connectivity probe pacing
const (
	probeInterval   = 10 * time.Second
	probeBackoffMin = 200 * time.Millisecond
	probeBackoffMax = 5 * time.Second
)

// prober is implemented by backends that support an idle connectivity check
type prober interface {
	Probe(ctx context.Context) error
}

// App is the main dictation application
type App struct {
	mu         sync.Mutex
	config     Config
	configPath string
	logger     *logging.Logger

	// State
	state   *StateMachine
	ctx     context.Context
	cancel  context.CancelFunc
	running bool

	// Components
	pipeline *Pipeline
	injector *inject.Injector
	engine   asr.Engine
	store    history.Store

	// UI
	tray *ui.TrayApp
	hk   *hotkey.Hotkey

	// Recording state
	capture      *audio.Capture
	sessionGen   uint64
	sessionTrace string
	feedDone     chan struct{}

	// ContextFunc supplies the focused-window context sent with each session
	// start. Optional; nil sends an empty context.
	ContextFunc func() asr.Context
}

// New creates the application from a loaded configuration
func New(cfg Config, configPath string) (*App, error) {
	logger := cfg.Logging.BuildLogger("ghosttype")

	engine, err := asr.NewEngine(cfg.ASR, logger.WithFields(logging.Fields{"component": "asr"}))
	if err != nil {
		return nil, fmt.Errorf("recognition engine: %w", err)
	}

	corrector, err := llm.NewEngine(cfg.Correction.Config)
	if err != nil {
		return nil, fmt.Errorf("correction engine: %w", err)
	}

	store, err := history.Open(cfg.History)
	if err != nil {
		return nil, fmt.Errorf("history store: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	injector := inject.NewInjector(nil, logger.WithFields(logging.Fields{"component": "inject"}))
	pipeline := NewPipeline(engine, corrector, injector, logger.WithFields(logging.Fields{"component": "pipeline"}), cfg.Correction.MinReplaceDelay())

	app := &App{
		config:     cfg,
		configPath: configPath,
		logger:     logger,
		state:      NewStateMachine(),
		ctx:        ctx,
		cancel:     cancel,
		pipeline:   pipeline,
		injector:   injector,
		engine:     engine,
		store:      store,
	}

	pipeline.OnTranscript = app.recordTranscript
	pipeline.OnCorrection = app.recordCorrection

	app.tray = ui.NewTrayApp(cfg.Hotkey, ui.TrayCallbacks{
		OnSettings: app.showSettings,
		OnQuit:     app.shutdown,
	})

	app.state.AddListener(func(oldState, newState State) {
		logger.Debug("state changed", "from", oldState.String(), "to", newState.String())
		switch newState {
		case StateIdle:
			app.tray.SetIdle()
		case StateRecording:
			app.tray.SetRecording()
		case StateProcessing:
			app.tray.SetProcessing()
		case StateError:
			app.tray.SetError()
		}
	})

	return app, nil
}

// Run starts the application. Blocks until quit.
func (a *App) Run() error {
	a.mu.Lock()
	if a.running {
		a.mu.Unlock()
		return fmt.Errorf("already running")
	}
	a.running = true
	a.mu.Unlock()

	a.logger.Info("starting", "version", Version, "hotkey", a.config.Hotkey,
		"asr_endpoint", a.config.ASR.Endpoint, "correction", a.config.Correction.Type)

	if err := a.registerHotkey(); err != nil {
		a.logger.Warn("hotkey registration failed", "error", err)
	}

	// systray owns the main loop; the connectivity probe starts once the
	// menu exists so its first status update has somewhere to land
	a.tray.RunWithReady(a.connectivityLoop)
	return nil
}

// shutdown tears everything down in dependency order: no new sessions, then
// pending corrections, then the keystroke queue.
func (a *App) shutdown() {
	a.logger.Info("shutting down")
	a.cancel()
	if a.hk != nil {
		a.hk.Unregister()
	}
	a.stopSession()
	a.pipeline.Wait()
	a.injector.Close()
	if err := a.store.Close(); err != nil {
		a.logger.Warn("history close failed", "error", err)
	}
}

// showSettings points the user at the config file; there is no settings UI
func (a *App) showSettings() {
	path := a.configPath
	if path == "" {
		path = "no config file found; create " + configFileName + " next to the executable"
	}
	if err := beeep.Notify("GhostType", "Edit config: "+path, ""); err != nil {
		a.logger.Warn("notification failed", "error", err)
	}
}

// registerHotkey binds the push-to-talk key. Keydown starts a session,
// keyup stops it. Skipped on macOS where the hotkey library is unstable
// with the system event tap; the tray remains usable there.
func (a *App) registerHotkey() error {
	if runtime.GOOS == "darwin" {
		a.logger.Info("global hotkey disabled on macOS")
		return nil
	}

	key, ok := parseHotkey(a.config.Hotkey)
	if !ok {
		a.logger.Warn("unsupported hotkey, falling back to f8", "hotkey", a.config.Hotkey)
		key = hotkey.KeyF8
	}

	a.hk = hotkey.New(nil, key)
	if err := a.hk.Register(); err != nil {
		return fmt.Errorf("register hotkey: %w", err)
	}

	go func() {
		for {
			select {
			case <-a.hk.Keydown():
				a.startSession()
			case <-a.ctx.Done():
				return
			}
		}
	}()
	go func() {
		for {
			select {
			case <-a.hk.Keyup():
				a.stopSession()
			case <-a.ctx.Done():
				return
			}
		}
	}()

	a.logger.Info("hotkey registered", "key", a.config.Hotkey)
	return nil
}

// parseHotkey maps a config string to a push-to-talk key. Only keys that
// deliver distinct press and release events everywhere are accepted.
func parseHotkey(raw string) (hotkey.Key, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "f1":
		return hotkey.KeyF1, true
	case "f2":
		return hotkey.KeyF2, true
	case "f3":
		return hotkey.KeyF3, true
	case "f4":
		return hotkey.KeyF4, true
	case "f5":
		return hotkey.KeyF5, true
	case "f6":
		return hotkey.KeyF6, true
	case "f7":
		return hotkey.KeyF7, true
	case "f8":
		return hotkey.KeyF8, true
	case "f9":
		return hotkey.KeyF9, true
	case "f10":
		return hotkey.KeyF10, true
	case "f11":
		return hotkey.KeyF11, true
	case "f12":
		return hotkey.KeyF12, true
	default:
		return 0, false
	}
}

// startSession begins a dictation: microphone first, then the recognizer.
// A failed recognizer start must release the microphone.
func (a *App) startSession() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.capture != nil {
		return
	}
	if !a.state.Transition(StateRecording) {
		return
	}

	traceID := NewTraceID()

	capture, err := audio.NewCapture(audio.CaptureConfig{DeviceName: a.config.AudioDevice})
	if err != nil {
		a.logger.Error("microphone access failed", "trace_id", traceID, "error", err)
		a.state.Transition(StateError)
		return
	}
	if err := capture.Start(); err != nil {
		a.logger.Error("capture start failed", "trace_id", traceID, "error", err)
		capture.Stop()
		a.state.Transition(StateError)
		return
	}

	var winCtx asr.Context
	if a.ContextFunc != nil {
		winCtx = a.ContextFunc()
	}

	gen, err := a.pipeline.Start(a.ctx, traceID, capture.SampleRate(), winCtx)
	if err != nil {
		a.logger.Error("session start failed", "trace_id", traceID, "error", err)
		capture.Stop()
		a.state.Transition(StateError)
		return
	}

	feedDone := make(chan struct{})
	go func() {
		defer close(feedDone)
		for pcm := range capture.Frames() {
			if err := a.pipeline.Feed(pcm); err != nil {
				a.logger.Warn("audio feed failed", "trace_id", traceID, "error", err)
				return
			}
		}
	}()

	a.capture = capture
	a.sessionGen = gen
	a.sessionTrace = traceID
	a.feedDone = feedDone
}

// stopSession finalizes the in-flight dictation, if any. The feeder drains
// buffered frames before the stop message goes out, so trailing audio is
// not lost.
func (a *App) stopSession() {
	a.mu.Lock()
	capture := a.capture
	gen := a.sessionGen
	traceID := a.sessionTrace
	feedDone := a.feedDone
	a.capture = nil
	a.feedDone = nil
	a.mu.Unlock()

	if capture == nil {
		return
	}

	if !a.state.Transition(StateProcessing) {
		a.logger.Debug("processing transition rejected", "state", a.state.Current().String())
	}

	capture.Stop()
	if feedDone != nil {
		<-feedDone
	}
	if dropped := capture.Dropped(); dropped > 0 {
		a.logger.Warn("capture frames dropped", "count", dropped)
	}

	ctx, cancel := context.WithTimeout(a.ctx, 30*time.Second)
	defer cancel()

	a.finishSession(gen, a.pipeline.Stop(ctx, gen, traceID))
}

// finishSession settles the UI state after a session's pipeline stop. A
// session superseded by a newer press leaves the state machine to its
// successor; flipping the tray to Idle or Error under a live recording
// would misreport it.
func (a *App) finishSession(gen uint64, err error) {
	a.mu.Lock()
	superseded := a.sessionGen != gen || a.capture != nil
	a.mu.Unlock()

	if superseded {
		if err != nil {
			a.logger.Warn("superseded session failed", "error", err)
		}
		return
	}

	if err != nil {
		a.logger.Error("session failed", "error", err)
		a.state.Transition(StateError)
		if nerr := beeep.Notify("GhostType", "Dictation failed: "+err.Error(), ""); nerr != nil {
			a.logger.Debug("notification failed", "error", nerr)
		}
		return
	}
	a.state.Transition(StateIdle)
}

// connectivityLoop probes the recognizer while idle and reflects the result
// in the tray. Failures retry with exponential backoff up to five seconds;
// a healthy service is rechecked at a relaxed pace.
func (a *App) connectivityLoop() {
	pr, ok := a.engine.(prober)
	if !ok {
		return
	}

	backoff := probeBackoffMin
	for {
		if a.state.IsActive() {
			// never compete with a live session for the connection
			if !sleepCtx(a.ctx, time.Second) {
				return
			}
			continue
		}

		err := pr.Probe(a.ctx)
		if a.ctx.Err() != nil {
			return
		}
		if err != nil {
			a.logger.Debug("connectivity probe failed", "error", err, "retry_in", backoff)
			a.tray.SetServiceStatus(false)
			if !sleepCtx(a.ctx, backoff) {
				return
			}
			backoff *= 2
			if backoff > probeBackoffMax {
				backoff = probeBackoffMax
			}
			continue
		}

		a.tray.SetServiceStatus(true)
		backoff = probeBackoffMin
		if !sleepCtx(a.ctx, probeInterval) {
			return
		}
	}
}

// sleepCtx sleeps for d, returning false if ctx finishes first
func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

func (a *App) recordTranscript(traceID, text string, asrMs int64) {
	sess := &history.Session{
		TraceID:    traceID,
		Transcript: text,
		ASRMs:      asrMs,
	}
	if err := a.store.Record(a.ctx, sess); err != nil {
		a.logger.Warn("history record failed", "trace_id", traceID, "error", err)
	}
}

func (a *App) recordCorrection(traceID, corrected string, llmMs int64) {
	if err := a.store.SetCorrection(a.ctx, traceID, corrected, llmMs); err != nil {
		a.logger.Warn("history correction update failed", "trace_id", traceID, "error", err)
	}
}
