package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
)

// Bus is the in-process session-event queue. Publishing is fan-out, but the
// auth service holds a single subscription, so resyncs are processed one at
// a time in arrival order. An optional mirror publisher (Kafka) propagates
// the same events to other instances.
type Bus struct {
	pubsub *gochannel.GoChannel
	mirror Publisher
	source string
	logger *slog.Logger
}

type BusOption func(*Bus)

// WithMirror mirrors every published event to an external publisher, used
// for cross-instance sign-out propagation.
func WithMirror(p Publisher) BusOption {
	return func(b *Bus) {
		b.mirror = p
	}
}

func NewBus(source string, logger *slog.Logger, opts ...BusOption) *Bus {
	pubsub := gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: 64},
		watermill.NewSlogLogger(logger),
	)

	b := &Bus{
		pubsub: pubsub,
		source: source,
		logger: logger,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Emit publishes a session event for the given identity, stamping ID,
// source and time.
func (b *Bus) Emit(ctx context.Context, eventType SessionEventType, userID string) error {
	return b.Publish(ctx, SessionEvent{
		Type:   eventType,
		UserID: userID,
	})
}

func (b *Bus) Publish(ctx context.Context, event SessionEvent) error {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Source == "" {
		event.Source = b.source
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal session event: %w", err)
	}

	msg := message.NewMessage(event.ID, payload)
	msg.SetContext(ctx)
	if err := b.pubsub.Publish(TopicSessionEvents, msg); err != nil {
		return fmt.Errorf("failed to publish session event: %w", err)
	}

	if b.mirror != nil {
		if err := b.mirror.Publish(ctx, event); err != nil {
			// The local resync already happened; a mirror failure only
			// delays other instances, so log and move on.
			b.logger.Warn("failed to mirror session event",
				"event_id", event.ID, "type", event.Type, "error", err)
		}
	}

	return nil
}

// Subscribe attaches a cancellable consumer to the session-event stream.
func (b *Bus) Subscribe(ctx context.Context) (Subscription, error) {
	subCtx, cancel := context.WithCancel(ctx)
	messages, err := b.pubsub.Subscribe(subCtx, TopicSessionEvents)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to subscribe to session events: %w", err)
	}

	out := make(chan SessionEvent, 16)
	go func() {
		defer close(out)
		for msg := range messages {
			var event SessionEvent
			if err := json.Unmarshal(msg.Payload, &event); err != nil {
				b.logger.Error("dropping malformed session event",
					"message_id", msg.UUID, "error", err)
				msg.Ack()
				continue
			}
			msg.Ack()

			select {
			case out <- event:
			case <-subCtx.Done():
				return
			}
		}
	}()

	return &busSubscription{events: out, cancel: cancel}, nil
}

func (b *Bus) Close() error {
	var mirrorErr error
	if b.mirror != nil {
		mirrorErr = b.mirror.Close()
	}
	if err := b.pubsub.Close(); err != nil {
		return err
	}
	return mirrorErr
}

type busSubscription struct {
	events chan SessionEvent
	cancel context.CancelFunc
}

func (s *busSubscription) Events() <-chan SessionEvent {
	return s.events
}

func (s *busSubscription) Cancel() {
	s.cancel()
}
