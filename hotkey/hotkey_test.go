package hotkey

import (
	"errors"
	"testing"
)

// fakeRegistrar records register/unregister calls and can be told to fail
// registration for specific combo labels.
type fakeRegistrar struct {
	failLabels  map[string]bool
	registered  string
	fire        func()
	registers   int
	unregisters int
}

func (f *fakeRegistrar) Register(c Combo, fire func()) error {
	f.registers++
	if f.failLabels[c.Label] {
		return errors.New("simulated registration failure")
	}
	f.registered = c.Label
	f.fire = fire
	return nil
}

func (f *fakeRegistrar) Unregister() {
	f.unregisters++
	f.registered = ""
	f.fire = nil
}

func TestStartStop(t *testing.T) {
	reg := &fakeRegistrar{}
	m, err := New("ctrl+alt+space", reg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if m.IsActive() {
		t.Error("should not be active before Start")
	}
	if err := m.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !m.IsActive() {
		t.Error("should be active after Start")
	}
	if reg.registered != "ctrl+alt+space" {
		t.Errorf("registered combo = %q", reg.registered)
	}

	m.Stop()
	if m.IsActive() {
		t.Error("should not be active after Stop")
	}
	if reg.unregisters != 1 {
		t.Errorf("unregisters = %d, want 1", reg.unregisters)
	}
}

func TestNewRejectsInvalidCombo(t *testing.T) {
	if _, err := New("", &fakeRegistrar{}); err == nil {
		t.Error("expected error for empty combo")
	}
	if _, err := New("ctrl+alt+nosuchkey", &fakeRegistrar{}); err == nil {
		t.Error("expected error for unknown key")
	}
}

func TestRebindSwapsBinding(t *testing.T) {
	reg := &fakeRegistrar{}
	m, err := New("ctrl+alt+a", reg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := m.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	if err := m.Rebind("ctrl+alt+b"); err != nil {
		t.Fatalf("Rebind: %v", err)
	}
	if reg.registered != "ctrl+alt+b" {
		t.Errorf("registered combo = %q, want ctrl+alt+b", reg.registered)
	}
	if got := m.Current(); got != "ctrl+alt+b" {
		t.Errorf("Current = %q", got)
	}
	if !m.IsActive() {
		t.Error("should remain active after rebind")
	}
}

func TestRebindRollsBackOnFailure(t *testing.T) {
	reg := &fakeRegistrar{failLabels: map[string]bool{"ctrl+alt+b": true}}
	m, err := New("ctrl+alt+a", reg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := m.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	if err := m.Rebind("ctrl+alt+b"); err == nil {
		t.Fatal("expected rebind failure")
	}
	if !m.IsActive() {
		t.Error("previous binding should be restored")
	}
	if reg.registered != "ctrl+alt+a" {
		t.Errorf("registered combo = %q, want rollback to ctrl+alt+a", reg.registered)
	}
	if got := m.Current(); got != "ctrl+alt+a" {
		t.Errorf("Current = %q, want ctrl+alt+a", got)
	}
}

func TestRebindDoubleFailureEndsUnbound(t *testing.T) {
	reg := &fakeRegistrar{failLabels: map[string]bool{"ctrl+alt+b": true}}
	m, err := New("ctrl+alt+a", reg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := m.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	// The rollback target now fails too.
	reg.failLabels["ctrl+alt+a"] = true

	err = m.Rebind("ctrl+alt+b")
	if err == nil {
		t.Fatal("expected rebind failure")
	}
	if !errors.Is(err, ErrUnbound) {
		t.Errorf("error should wrap ErrUnbound, got %v", err)
	}
	if m.IsActive() {
		t.Error("subsystem should end unregistered after double failure")
	}
}

func TestRebindEmptyComboRejectedBeforeUnregister(t *testing.T) {
	reg := &fakeRegistrar{}
	m, err := New("ctrl+alt+a", reg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := m.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	if err := m.Rebind(""); err == nil {
		t.Fatal("expected error for empty combo")
	}
	if reg.unregisters != 0 {
		t.Errorf("empty combo must be rejected before any unregister, saw %d", reg.unregisters)
	}
	if !m.IsActive() {
		t.Error("binding must be untouched")
	}
}

func TestTriggerDropWhenPending(t *testing.T) {
	reg := &fakeRegistrar{}
	m, err := New("ctrl+alt+a", reg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := m.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	// Two presses with no consumer: one queued, one dropped.
	reg.fire()
	reg.fire()

	if got := m.Dropped(); got != 1 {
		t.Errorf("Dropped = %d, want 1", got)
	}
	select {
	case <-m.Triggers():
	default:
		t.Fatal("expected one pending trigger")
	}
	select {
	case <-m.Triggers():
		t.Fatal("second trigger should have been dropped, not queued")
	default:
	}

	// Channel drained: the next press goes through again.
	reg.fire()
	select {
	case <-m.Triggers():
	default:
		t.Fatal("expected trigger after drain")
	}
	if got := m.Dropped(); got != 1 {
		t.Errorf("Dropped = %d, want still 1", got)
	}
}
