package clipboard

import (
	"fmt"
	"log"
	"strings"
	"sync"
	"time"
)

// DefaultSettleDelay is how long the mediator waits after injecting a
// copy/paste keystroke for the OS clipboard to settle.
const DefaultSettleDelay = 200 * time.Millisecond

// Backend is the OS surface the mediator drives: clipboard data transfer
// plus synthetic copy/paste keystrokes.
type Backend interface {
	ReadText() (string, error)
	WriteText(text string) error
	SendCopy() error
	SendPaste() error
}

// Snapshot holds the clipboard content captured at the start of a run so it
// can be put back when the run terminates. Never persisted.
type Snapshot struct {
	content string
	valid   bool
}

// NewSnapshot builds a snapshot holding content, exactly as
// CaptureSelection would have captured it.
func NewSnapshot(content string) Snapshot { return Snapshot{content: content, valid: true} }

// Content returns the captured text.
func (s Snapshot) Content() string { return s.content }

// Valid reports whether the snapshot actually captured anything; restoring
// an invalid snapshot is a no-op.
func (s Snapshot) Valid() bool { return s.valid }

// ClipboardError wraps an OS-level clipboard fault. Faults are always
// surfaced, never absorbed.
type ClipboardError struct {
	Op  string
	Err error
}

func (e *ClipboardError) Error() string { return fmt.Sprintf("clipboard %s: %v", e.Op, e.Err) }
func (e *ClipboardError) Unwrap() error { return e.Err }

// Mediator serializes all access to the system clipboard. No other
// component touches the clipboard directly.
type Mediator struct {
	mu    sync.Mutex
	be    Backend
	delay time.Duration
}

// NewMediator wraps a backend. A non-positive delay selects the default.
func NewMediator(be Backend, delay time.Duration) *Mediator {
	if delay <= 0 {
		delay = DefaultSettleDelay
	}
	return &Mediator{be: be, delay: delay}
}

// CaptureSelection snapshots the current clipboard, clears it, injects a
// synthetic copy keystroke, waits for the clipboard to settle, and returns
// the selected text. An empty result is legal (nothing selected). The
// snapshot is returned alongside any error once the original content was
// read, so the caller can still restore.
func (m *Mediator) CaptureSelection() (string, Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	prev, err := m.be.ReadText()
	if err != nil {
		return "", Snapshot{}, &ClipboardError{Op: "read", Err: err}
	}
	snap := Snapshot{content: prev, valid: true}

	if err := m.be.WriteText(""); err != nil {
		return "", snap, &ClipboardError{Op: "clear", Err: err}
	}
	if err := m.be.SendCopy(); err != nil {
		return "", snap, &ClipboardError{Op: "copy keystroke", Err: err}
	}
	time.Sleep(m.delay)

	text, err := m.be.ReadText()
	if err != nil {
		return "", snap, &ClipboardError{Op: "read", Err: err}
	}
	return strings.TrimSpace(text), snap, nil
}

// Emit writes text to the clipboard and injects a synthetic paste
// keystroke. There is no completion signal for paste; the settle delay
// bounds the operation.
func (m *Mediator) Emit(text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.be.WriteText(text); err != nil {
		return &ClipboardError{Op: "write", Err: err}
	}
	if err := m.be.SendPaste(); err != nil {
		return &ClipboardError{Op: "paste keystroke", Err: err}
	}
	time.Sleep(m.delay)
	return nil
}

// Restore unconditionally puts the snapshot content back on the clipboard.
// Called exactly once per capture, on every exit path of a run.
func (m *Mediator) Restore(snap Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !snap.valid {
		log.Printf("clipboard: restore skipped, nothing was captured")
		return nil
	}
	if err := m.be.WriteText(snap.content); err != nil {
		return &ClipboardError{Op: "restore", Err: err}
	}
	return nil
}
