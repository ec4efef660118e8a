package notification

import (
	"log"
	"time"

	"github.com/gen2brain/beeep"
)

// Level is the severity of a user notification.
type Level int

const (
	Info Level = iota
	Warning
	Critical
)

func (l Level) String() string {
	switch l {
	case Warning:
		return "warning"
	case Critical:
		return "critical"
	default:
		return "info"
	}
}

// Notifier reports run outcomes to the user.
type Notifier interface {
	Notify(title, message string, level Level, duration time.Duration)
}

// Desktop sends OS desktop notifications. Critical messages use the alert
// variant; delivery failures are logged, never propagated.
type Desktop struct{}

func (Desktop) Notify(title, message string, level Level, duration time.Duration) {
	message = truncate(message, 200)
	var err error
	if level == Critical {
		err = beeep.Alert(title, message, "")
	} else {
		err = beeep.Notify(title, message, "")
	}
	if err != nil {
		log.Printf("notification: %s %q: %v", level, title, err)
	}
}

// Logger writes notifications to the log. Used headless and in tests.
type Logger struct{}

func (Logger) Notify(title, message string, level Level, duration time.Duration) {
	log.Printf("notification [%s] %s: %s", level, title, message)
}

// Muted suppresses notifications while Enabled reports false, so the
// show_notifications setting is honored at every call site uniformly.
type Muted struct {
	Next    Notifier
	Enabled func() bool
}

func (m Muted) Notify(title, message string, level Level, duration time.Duration) {
	if m.Enabled != nil && !m.Enabled() {
		return
	}
	m.Next.Notify(title, message, level, duration)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
