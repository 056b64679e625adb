// Package notify carries user-visible notifications (toasts in a browser,
// prefixed lines in the CLI) from the client adapter and the stores to the
// presentation layer without blocking the emitter.
package notify

import (
	"sync"
	"time"
)

// Level is the severity of a notification.
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notification is a single user-visible message.
type Notification struct {
	Level   Level
	Message string
	// Source names the emitter, e.g. "users" or "http".
	Source string
	At     time.Time
}

// Notifier accepts notifications. Implementations must not block.
type Notifier interface {
	Notify(n Notification)
}

// Discard drops every notification.
var Discard Notifier = discard{}

type discard struct{}

func (discard) Notify(Notification) {}

// Success is shorthand for a success notification.
func Success(n Notifier, source, message string) {
	emit(n, LevelSuccess, source, message)
}

// Error is shorthand for an error notification.
func Error(n Notifier, source, message string) {
	emit(n, LevelError, source, message)
}

// Info is shorthand for an informational notification.
func Info(n Notifier, source, message string) {
	emit(n, LevelInfo, source, message)
}

func emit(n Notifier, level Level, source, message string) {
	if n == nil || message == "" {
		return
	}
	n.Notify(Notification{Level: level, Message: message, Source: source, At: time.Now()})
}

// Recorder keeps every notification in memory. Useful in tests.
type Recorder struct {
	mu    sync.Mutex
	items []Notification
}

func (r *Recorder) Notify(n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, n)
}

// Notifications returns a copy of the recorded notifications.
func (r *Recorder) Notifications() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notification(nil), r.items...)
}

// Messages returns the recorded messages at the given level.
func (r *Recorder) Messages(level Level) []string {
	var out []string
	for _, n := range r.Notifications() {
		if n.Level == level {
			out = append(out, n.Message)
		}
	}
	return out
}
