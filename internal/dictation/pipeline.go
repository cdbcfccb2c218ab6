// ============================================================================
// GhostType - Voice Dictation for Desktop
// ============================================================================
//
// Package:     dictation
// Description: Session pipeline: recognize, inject, correct
// Author:      Yida
// Created:     2026-01-17
// License:     MIT
// ============================================================================

package dictation

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Yida-git/GhostType/internal/dictation/asr"
	"github.com/Yida-git/GhostType/internal/dictation/inject"
	"github.com/Yida-git/GhostType/internal/dictation/llm"
	"github.com/Yida-git/GhostType/pkg/core/logging"
)

// DefaultMinReplaceDelay is the minimum time optimistic text stays on screen
// before a correction may replace it. Replacing faster reads as flicker.
const DefaultMinReplaceDelay = 500 * time.Millisecond

// generationWatch broadcasts the latest session generation. Each bump wakes
// every current waiter exactly once; a subscriber that arrives late reads
// the bumped value instead of blocking.
type generationWatch struct {
	mu  sync.Mutex
	gen uint64
	ch  chan struct{}
}

func newGenerationWatch() *generationWatch {
	return &generationWatch{ch: make(chan struct{})}
}

func (w *generationWatch) bump(gen uint64) {
	w.mu.Lock()
	w.gen = gen
	close(w.ch)
	w.ch = make(chan struct{})
	w.mu.Unlock()
}

// subscribe returns the current generation and a channel that closes on the
// next bump
func (w *generationWatch) subscribe() (uint64, <-chan struct{}) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.gen, w.ch
}

// Pipeline drives one dictation session at a time: stream audio to the
// recognizer, inject the transcript immediately, then race an LLM correction
// against the next session. Starting a new session cancels the previous
// session's pending correction; cancellation is silent.
type Pipeline struct {
	asr      asr.Engine
	llm      llm.Engine
	injector *inject.Injector
	logger   *logging.Logger

	minReplaceDelay time.Duration
	generation      atomic.Uint64
	cancel          *generationWatch

	// corrections tracks in-flight correction goroutines for shutdown
	corrections sync.WaitGroup

	// OnTranscript fires after the optimistic transcript is enqueued.
	// OnCorrection fires after a replacement pair is enqueued. Both are
	// optional and must be set before the first Start.
	OnTranscript func(traceID, text string, asrMs int64)
	OnCorrection func(traceID, corrected string, llmMs int64)
}

// NewPipeline wires the three stages together. minReplaceDelay of zero
// selects the default.
func NewPipeline(asrEngine asr.Engine, llmEngine llm.Engine, injector *inject.Injector, logger *logging.Logger, minReplaceDelay time.Duration) *Pipeline {
	if logger == nil {
		logger = logging.New("pipeline")
	}
	if minReplaceDelay <= 0 {
		minReplaceDelay = DefaultMinReplaceDelay
	}
	return &Pipeline{
		asr:             asrEngine,
		llm:             llmEngine,
		injector:        injector,
		logger:          logger,
		minReplaceDelay: minReplaceDelay,
		cancel:          newGenerationWatch(),
	}
}

// Start opens a recognition session and returns its generation. Bumping the
// generation first means any correction still pending from the previous
// session is cancelled before new audio flows.
func (p *Pipeline) Start(ctx context.Context, traceID string, sampleRate int, winCtx asr.Context) (uint64, error) {
	gen := p.generation.Add(1)
	p.cancel.bump(gen)

	p.logger.Info("session started", "trace_id", traceID, "sample_rate", sampleRate, "gen", gen)

	if err := p.asr.Start(ctx, traceID, sampleRate, winCtx); err != nil {
		return gen, err
	}
	return gen, nil
}

// Feed forwards captured PCM to the recognizer
func (p *Pipeline) Feed(pcm []int16) error {
	return p.asr.Feed(pcm)
}

// Stop finalizes recognition, injects the transcript optimistically and
// schedules the correction race. The transcript reaches the screen before
// Stop returns; the correction lands later or not at all. The caller passes
// back the session's generation and trace id from Start, so a stop that
// finishes after a newer session began still reports under its own trace.
func (p *Pipeline) Stop(ctx context.Context, sessionGen uint64, traceID string) error {
	started := time.Now()
	subGen, cancelCh := p.cancel.subscribe()

	text, err := p.asr.Stop(ctx)
	if err != nil {
		return err
	}
	text = strings.TrimSpace(text)

	p.logger.Debug("recognition completed", "trace_id", traceID, "gen", sessionGen, "chars", len([]rune(text)))

	if text == "" {
		return nil
	}

	injectedAt := time.Now()
	injectedLen := len([]rune(text))
	if err := p.injector.TypeText(traceID, text); err != nil {
		p.logger.Error("text injection rejected", "trace_id", traceID, "gen", sessionGen, "error", err)
	}

	p.logger.Info("transcript injected", "trace_id", traceID, "gen", sessionGen,
		"chars", injectedLen, "asr_ms", time.Since(started).Milliseconds())

	if p.OnTranscript != nil {
		p.OnTranscript(traceID, text, time.Since(started).Milliseconds())
	}

	p.corrections.Add(1)
	go p.correct(correctionJob{
		traceID:     traceID,
		sessionGen:  sessionGen,
		subGen:      subGen,
		cancelCh:    cancelCh,
		original:    text,
		injectedAt:  injectedAt,
		injectedLen: injectedLen,
	})

	return nil
}

// Wait blocks until in-flight corrections have finished or been cancelled,
// for orderly shutdown.
func (p *Pipeline) Wait() {
	p.corrections.Wait()
}

type correctionJob struct {
	traceID     string
	sessionGen  uint64
	subGen      uint64
	cancelCh    <-chan struct{}
	original    string
	injectedAt  time.Time
	injectedLen int
}

// correct runs the LLM race for one session. Every early return is silent to
// the user: the optimistic text simply stays.
func (p *Pipeline) correct(job correctionJob) {
	defer p.corrections.Done()

	if job.subGen != job.sessionGen {
		return
	}

	llmCtx, cancelLLM := context.WithCancel(context.Background())
	defer cancelLLM()
	go func() {
		select {
		case <-job.cancelCh:
			cancelLLM()
		case <-llmCtx.Done():
		}
	}()

	llmStarted := time.Now()
	result, err := p.llm.Correct(llmCtx, job.original)

	select {
	case <-job.cancelCh:
		p.logger.Warn("correction cancelled: new session started", "trace_id", job.traceID, "gen", job.sessionGen)
		return
	default:
	}

	// hold until the optimistic text has been visible long enough
	if remaining := p.minReplaceDelay - time.Since(job.injectedAt); remaining > 0 {
		timer := time.NewTimer(remaining)
		defer timer.Stop()
		select {
		case <-job.cancelCh:
			p.logger.Warn("correction cancelled: new session started", "trace_id", job.traceID, "gen", job.sessionGen)
			return
		case <-timer.C:
		}
	}

	if p.generation.Load() != job.sessionGen {
		p.logger.Warn("correction skipped: new session started", "trace_id", job.traceID, "gen", job.sessionGen)
		return
	}

	if err != nil {
		p.logger.Warn("correction failed", "trace_id", job.traceID, "gen", job.sessionGen,
			"error", err, "latency_ms", time.Since(llmStarted).Milliseconds())
		return
	}
	if !result.Changed {
		p.logger.Debug("correction unchanged", "trace_id", job.traceID, "gen", job.sessionGen,
			"latency_ms", result.Latency.Milliseconds())
		return
	}
	corrected := strings.TrimSpace(result.Corrected)
	if corrected == "" {
		return
	}

	p.logger.Info("correction ready, replacing", "trace_id", job.traceID, "gen", job.sessionGen,
		"latency_ms", result.Latency.Milliseconds())

	if err := p.injector.Backspace(job.traceID, job.injectedLen); err != nil {
		p.logger.Warn("backspace rejected", "trace_id", job.traceID, "gen", job.sessionGen, "error", err)
		return
	}
	if err := p.injector.TypeText(job.traceID, corrected); err != nil {
		p.logger.Warn("replacement rejected", "trace_id", job.traceID, "gen", job.sessionGen, "error", err)
		return
	}
	if p.OnCorrection != nil {
		p.OnCorrection(job.traceID, corrected, result.Latency.Milliseconds())
	}
}
