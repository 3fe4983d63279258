package events

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func receiveEvent(t *testing.T, sub Subscription) SessionEvent {
	t.Helper()
	select {
	case event, ok := <-sub.Events():
		if !ok {
			t.Fatal("event channel closed before delivery")
		}
		return event
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return SessionEvent{}
	}
}

func TestBus_PublishSubscribe(t *testing.T) {
	bus := NewBus("test-service", discardLogger())
	defer bus.Close()

	sub, err := bus.Subscribe(context.Background())
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	defer sub.Cancel()

	if err := bus.Emit(context.Background(), SessionSignedIn, "u1"); err != nil {
		t.Fatalf("Emit() error = %v", err)
	}

	event := receiveEvent(t, sub)
	if event.Type != SessionSignedIn {
		t.Errorf("Type = %q, want %q", event.Type, SessionSignedIn)
	}
	if event.UserID != "u1" {
		t.Errorf("UserID = %q, want u1", event.UserID)
	}
	if event.ID == "" {
		t.Error("event ID not stamped")
	}
	if event.Source != "test-service" {
		t.Errorf("Source = %q, want test-service", event.Source)
	}
	if event.OccurredAt.IsZero() {
		t.Error("OccurredAt not stamped")
	}
}

func TestBus_PreservesOrder(t *testing.T) {
	bus := NewBus("test-service", discardLogger())
	defer bus.Close()

	sub, err := bus.Subscribe(context.Background())
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	defer sub.Cancel()

	types := []SessionEventType{SessionSignedUp, SessionSignedIn, SessionSignedOut}
	for _, eventType := range types {
		if err := bus.Emit(context.Background(), eventType, "u1"); err != nil {
			t.Fatalf("Emit(%s) error = %v", eventType, err)
		}
	}

	for i, want := range types {
		if got := receiveEvent(t, sub).Type; got != want {
			t.Errorf("event %d: Type = %q, want %q", i, got, want)
		}
	}
}

func TestBus_CancelClosesStream(t *testing.T) {
	bus := NewBus("test-service", discardLogger())
	defer bus.Close()

	sub, err := bus.Subscribe(context.Background())
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	sub.Cancel()

	select {
	case _, ok := <-sub.Events():
		if ok {
			// A buffered event may still drain; the channel must close after.
			for range sub.Events() {
			}
		}
	case <-time.After(2 * time.Second):
		t.Fatal("event channel not closed after Cancel")
	}
}

func TestBus_MirrorReceivesEvents(t *testing.T) {
	mirror := NewMockEventPublisher(discardLogger())
	bus := NewBus("test-service", discardLogger(), WithMirror(mirror))
	defer bus.Close()

	if err := bus.Emit(context.Background(), SessionSignedOut, "u1"); err != nil {
		t.Fatalf("Emit() error = %v", err)
	}

	mirrored := mirror.GetPublishedEvents()
	if len(mirrored) != 1 {
		t.Fatalf("mirrored events = %d, want 1", len(mirrored))
	}
	if mirrored[0].Type != SessionSignedOut || mirrored[0].UserID != "u1" {
		t.Errorf("mirrored event = %+v", mirrored[0])
	}
	if mirrored[0].ID == "" || mirrored[0].Source == "" {
		t.Error("mirrored event missing stamped fields")
	}
}

func TestSessionEvent_SignedOut(t *testing.T) {
	if !(SessionEvent{Type: SessionSignedOut}).SignedOut() {
		t.Error("signed_out event not recognized")
	}
	for _, eventType := range []SessionEventType{SessionSignedIn, SessionSignedUp, SessionTokenRefresh} {
		if (SessionEvent{Type: eventType}).SignedOut() {
			t.Errorf("%s wrongly treated as sign-out", eventType)
		}
	}
}
