// Package events propagates session lifecycle changes: to the browser tabs
// of the same session (Hub, consumed over Server-Sent Events) and to the
// message broker for auditing (AMQPPublisher / StartAuditConsumer).
package events

import (
	"context"
	"time"
)

// Event types.
const (
	TypeLogin       = "login"
	TypeLogout      = "logout"
	TypeInvalidated = "invalidated" // backend rejected the token (401)
)

// SessionEvent is emitted whenever a browser session gains or loses its
// credentials.
type SessionEvent struct {
	Type      string    `json:"type"`
	SessionID string    `json:"session_id"`
	UserID    string    `json:"user_id,omitempty"`
	Email     string    `json:"email,omitempty"`
	Role      string    `json:"role,omitempty"`
	At        time.Time `json:"at"`
}

// Notifier receives session events. Implementations must not block the
// caller for long and must never fail it: delivery problems are logged.
type Notifier interface {
	Notify(ctx context.Context, ev SessionEvent)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, ev SessionEvent)

func (f NotifierFunc) Notify(ctx context.Context, ev SessionEvent) { f(ctx, ev) }

// Multi fans an event out to several notifiers in order. Nil entries are
// skipped.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, ev SessionEvent) {
	for _, n := range m {
		if n != nil {
			n.Notify(ctx, ev)
		}
	}
}

// Nop discards events.
var Nop Notifier = NotifierFunc(func(context.Context, SessionEvent) {})
