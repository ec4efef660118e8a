package pipeline

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"gemtype/clipboard"
	"gemtype/llm"
	"gemtype/notification"
)

// State of a pipeline run. Idle is both initial and terminal.
type State int

const (
	Idle State = iota
	Capturing
	Generating
	Emitting
	Restoring
	Failed
)

func (s State) String() string {
	switch s {
	case Capturing:
		return "capturing"
	case Generating:
		return "generating"
	case Emitting:
		return "emitting"
	case Restoring:
		return "restoring"
	case Failed:
		return "failed"
	default:
		return "idle"
	}
}

// Capturer is the clipboard mediator surface the runner drives.
type Capturer interface {
	CaptureSelection() (string, clipboard.Snapshot, error)
	Emit(text string) error
	Restore(snap clipboard.Snapshot) error
}

// Generator is the completion client surface the runner drives.
type Generator interface {
	Generate(ctx context.Context, req llm.Request) llm.Result
}

// Options wires a runner. Clipboard and Client are required.
type Options struct {
	Clipboard      Capturer
	Client         Generator
	Notifier       notification.Notifier
	Model          string
	FallbackPrompt string
	Params         map[string]float64
	RequestTimeout time.Duration // 0 leaves the transport's own bounds
	OnStateChange  func(State)   // optional observer, e.g. tray tooltip
}

// Runner executes one capture → generate → emit → restore pipeline per
// trigger. At most one run is in flight process-wide; concurrent triggers
// are dropped and counted, never queued.
type Runner struct {
	opts Options

	mu      sync.Mutex
	running bool
	closed  bool
	wg      sync.WaitGroup
	dropped atomic.Uint64
}

// NewRunner validates options and builds a runner.
func NewRunner(opts Options) (*Runner, error) {
	if opts.Clipboard == nil {
		return nil, fmt.Errorf("pipeline: Clipboard is required")
	}
	if opts.Client == nil {
		return nil, fmt.Errorf("pipeline: Client is required")
	}
	return &Runner{opts: opts}, nil
}

// Busy reports whether a run is in flight.
func (r *Runner) Busy() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// Dropped returns how many triggers were discarded because a run was active.
func (r *Runner) Dropped() uint64 { return r.dropped.Load() }

// Trigger starts a run on a fresh background goroutine. Returns false when
// the trigger was dropped (run already active, or runner closed).
func (r *Runner) Trigger(ctx context.Context) bool {
	r.mu.Lock()
	if r.running || r.closed {
		r.mu.Unlock()
		r.dropped.Add(1)
		log.Printf("pipeline: trigger dropped, run already in progress")
		return false
	}
	r.running = true
	r.mu.Unlock()

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.execute(ctx)
		r.mu.Lock()
		r.running = false
		r.mu.Unlock()
	}()
	return true
}

// Close stops accepting triggers and waits up to grace for an in-flight run
// to finish restoring, so the clipboard-restore invariant holds on shutdown.
func (r *Runner) Close(grace time.Duration) {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(grace):
		log.Printf("pipeline: shutdown grace period elapsed with a run still active")
	}
}

type run struct {
	state    State
	snap     clipboard.Snapshot
	restored bool
}

// execute drives one run through the state machine. Every exit path funnels
// through finish, which performs the single restore. Unexpected faults are
// recovered here and must never escape to the hook context.
func (r *Runner) execute(ctx context.Context) {
	ru := &run{state: Idle}
	defer func() {
		if p := recover(); p != nil {
			log.Printf("pipeline: PANIC in run: %v", p)
			r.notify("GemType error", "Unexpected fault during the run", notification.Critical, 5*time.Second)
			r.finish(ru)
		}
	}()

	r.transition(ru, Capturing)
	text, snap, err := r.opts.Clipboard.CaptureSelection()
	ru.snap = snap
	if err != nil {
		log.Printf("pipeline: capture failed: %v", err)
		r.transition(ru, Failed)
		r.notify("GemType error", "Could not read the selection: "+err.Error(), notification.Critical, 5*time.Second)
		r.finish(ru)
		return
	}

	prompt := text
	if prompt == "" {
		log.Printf("pipeline: no text selected, using fallback prompt")
		prompt = r.opts.FallbackPrompt
	}

	r.transition(ru, Generating)
	gctx := ctx
	if r.opts.RequestTimeout > 0 {
		var cancel context.CancelFunc
		gctx, cancel = context.WithTimeout(ctx, r.opts.RequestTimeout)
		defer cancel()
	}
	res := r.opts.Client.Generate(gctx, llm.Request{
		Prompt: prompt,
		Model:  r.opts.Model,
		Params: r.opts.Params,
	})

	if res.Kind == llm.Failure {
		log.Printf("pipeline: generation failed: %v", res.Err)
		r.transition(ru, Failed)
		r.notify("GemType error", humanError(res.Err), notification.Critical, 5*time.Second)
		r.finish(ru)
		return
	}
	if res.Kind == llm.Partial {
		log.Printf("pipeline: stream interrupted, emitting partial result (%d bytes): %v", len(res.Text), res.Err)
	}

	r.transition(ru, Emitting)
	if err := r.opts.Clipboard.Emit(res.Text); err != nil {
		// Emit faults are logged and funneled to restore, never retried.
		log.Printf("pipeline: emit failed: %v", err)
		r.notify("GemType error", "Could not paste the response: "+err.Error(), notification.Warning, 5*time.Second)
		r.finish(ru)
		return
	}

	r.finish(ru)
	if res.Kind == llm.Partial {
		r.notify("GemType", "Response was cut short; pasted what was received", notification.Warning, 3*time.Second)
	} else {
		r.notify("GemType", "Response generated and pasted", notification.Info, 2*time.Second)
	}
}

// finish performs the Restoring → Idle tail exactly once per run.
func (r *Runner) finish(ru *run) {
	if ru.restored {
		return
	}
	ru.restored = true
	r.transition(ru, Restoring)
	if err := r.opts.Clipboard.Restore(ru.snap); err != nil {
		log.Printf("pipeline: clipboard restore failed: %v", err)
	}
	r.transition(ru, Idle)
}

func (r *Runner) transition(ru *run, next State) {
	log.Printf("pipeline: %s -> %s", ru.state, next)
	ru.state = next
	if r.opts.OnStateChange != nil {
		r.opts.OnStateChange(next)
	}
}

func (r *Runner) notify(title, message string, level notification.Level, d time.Duration) {
	if r.opts.Notifier == nil {
		return
	}
	r.opts.Notifier.Notify(title, message, level, d)
}

// humanError renders a classified completion failure for the notifier.
func humanError(err *llm.Error) string {
	if err == nil {
		return "Completion failed"
	}
	switch err.Kind {
	case llm.Auth:
		return "API key missing or rejected. Check your settings."
	case llm.Network:
		return "Network error talking to the completion service."
	case llm.RateLimit:
		return "The service is throttling requests. Try again shortly."
	case llm.EmptyResponse:
		return "The service returned an empty response."
	default:
		return "Completion failed: " + err.Err.Error()
	}
}
