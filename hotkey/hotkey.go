package hotkey

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"

	gohook "github.com/robotn/gohook"
)

// ErrUnbound reports that a failed rebind also failed to re-register the
// previous combo, leaving the subsystem with no active binding.
var ErrUnbound = errors.New("hotkey: no active binding")

// Registrar installs a parsed combo into the OS hook layer. Exactly one
// combo may be registered at a time; fire must never block.
type Registrar interface {
	Register(combo Combo, fire func()) error
	Unregister()
}

// Manager owns the single global hotkey binding. Rebind is atomic: on
// registration failure the previous binding is restored best-effort.
type Manager struct {
	mu      sync.Mutex
	reg     Registrar
	current Combo
	active  bool

	triggers chan struct{}
	dropped  atomic.Uint64
}

// New creates a manager bound (but not yet registered) to combo. A nil
// registrar selects the OS hook backend.
func New(combo string, reg Registrar) (*Manager, error) {
	c, err := ParseCombo(combo)
	if err != nil {
		return nil, err
	}
	if reg == nil {
		reg = &hookRegistrar{}
	}
	return &Manager{
		reg:      reg,
		current:  c,
		triggers: make(chan struct{}, 1),
	}, nil
}

// Triggers returns the bounded notification channel. When a trigger is
// already pending, further presses are dropped and counted, never queued.
func (m *Manager) Triggers() <-chan struct{} { return m.triggers }

// Dropped returns the number of triggers discarded because one was pending.
func (m *Manager) Dropped() uint64 { return m.dropped.Load() }

// IsActive reports whether a binding is currently registered.
func (m *Manager) IsActive() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

// Current returns the combo the manager is bound to.
func (m *Manager) Current() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current.Label
}

// Start registers the current combo with the OS hook.
func (m *Manager) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active {
		return nil
	}
	if err := m.reg.Register(m.current, m.fire); err != nil {
		return fmt.Errorf("hotkey: register %q: %w", m.current.Label, err)
	}
	m.active = true
	log.Printf("hotkey: registered %q", m.current.Label)
	return nil
}

// Stop unregisters the binding. Safe to call when already stopped.
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.active {
		return
	}
	m.reg.Unregister()
	m.active = false
	log.Printf("hotkey: unregistered %q", m.current.Label)
}

// Rebind swaps the binding to combo. The new combo is validated before the
// old registration is touched. On registration failure the previous combo
// is re-registered; if that also fails the error wraps ErrUnbound and the
// subsystem ends with no binding.
func (m *Manager) Rebind(combo string) error {
	c, err := ParseCombo(combo)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	prev := m.current
	wasActive := m.active
	if wasActive {
		m.reg.Unregister()
		m.active = false
	}

	if err := m.reg.Register(c, m.fire); err != nil {
		if !wasActive {
			return fmt.Errorf("hotkey: register %q: %w", c.Label, err)
		}
		if rerr := m.reg.Register(prev, m.fire); rerr != nil {
			log.Printf("hotkey: rollback to %q failed: %v", prev.Label, rerr)
			return fmt.Errorf("hotkey: register %q failed (%v), restore %q failed (%v): %w",
				c.Label, err, prev.Label, rerr, ErrUnbound)
		}
		m.active = true
		return fmt.Errorf("hotkey: register %q: %w (kept %q)", c.Label, err, prev.Label)
	}

	m.current = c
	m.active = true
	log.Printf("hotkey: rebound to %q", c.Label)
	return nil
}

// fire runs on the OS hook's goroutine; it only ever enqueues.
func (m *Manager) fire() {
	select {
	case m.triggers <- struct{}{}:
	default:
		m.dropped.Add(1)
		log.Printf("hotkey: trigger dropped, one already pending")
	}
}

// hookRegistrar drives the gohook global keyboard hook. The event loop is
// started per registration and torn down on unregister.
type hookRegistrar struct {
	mu   sync.Mutex
	stop chan struct{}
}

func (h *hookRegistrar) Register(c Combo, fire func()) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.stop != nil {
		return errors.New("combo already registered")
	}

	events := gohook.Start()
	if events == nil {
		return errors.New("failed to install OS keyboard hook")
	}

	stop := make(chan struct{})
	h.stop = stop
	go watchEvents(events, stop, c, fire)
	return nil
}

func (h *hookRegistrar) Unregister() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.stop == nil {
		return
	}
	close(h.stop)
	gohook.End()
	h.stop = nil
}

// watchEvents tracks per-key press state and fires once when every key of
// the combo is down, then resets so the user must release and press again.
func watchEvents(events chan gohook.Event, stop chan struct{}, c Combo, fire func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("hotkey: PANIC in hook goroutine: %v", r)
		}
	}()

	pressed := make([]bool, len(c.keys))
	for {
		select {
		case <-stop:
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			switch ev.Kind {
			case gohook.KeyDown:
				for i, k := range c.keys {
					for _, code := range k.rawcodes {
						if ev.Rawcode == code {
							pressed[i] = true
						}
					}
				}
				if allPressed(pressed) {
					for i := range pressed {
						pressed[i] = false
					}
					fire()
				}
			case gohook.KeyUp:
				for i, k := range c.keys {
					for _, code := range k.rawcodes {
						if ev.Rawcode == code {
							pressed[i] = false
						}
					}
				}
			}
		}
	}
}

func allPressed(pressed []bool) bool {
	for _, p := range pressed {
		if !p {
			return false
		}
	}
	return true
}
