// Package events carries session-change notifications between the identity
// operations and the auth service's resync loop. Events are deliberately
// thin: they name the identity that changed, never the new state, so every
// consumer recomputes from the provider rather than trusting cached deltas.
package events

import (
	"context"
	"time"
)

const TopicSessionEvents = "session-events"

type SessionEventType string

const (
	SessionSignedIn     SessionEventType = "session.signed_in"
	SessionSignedOut    SessionEventType = "session.signed_out"
	SessionSignedUp     SessionEventType = "session.signed_up"
	SessionTokenRefresh SessionEventType = "session.token_refreshed"
)

// SessionEvent announces that the provider-side session of an identity may
// have changed. UserID is empty only for broadcast sign-outs.
type SessionEvent struct {
	ID         string           `json:"id"`
	Type       SessionEventType `json:"type"`
	UserID     string           `json:"user_id,omitempty"`
	Source     string           `json:"source"`
	OccurredAt time.Time        `json:"occurred_at"`
}

// SignedOut reports whether the event means the session is gone, as opposed
// to present-but-possibly-changed.
func (e SessionEvent) SignedOut() bool {
	return e.Type == SessionSignedOut
}

// Publisher is the write side of the session-event stream.
type Publisher interface {
	Publish(ctx context.Context, event SessionEvent) error
	Close() error
}

// Subscription is a cancellable handle on the event stream. Events() is
// closed after Cancel or when the bus shuts down.
type Subscription interface {
	Events() <-chan SessionEvent
	Cancel()
}
