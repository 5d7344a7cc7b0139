package audit

import (
	"context"
	"time"

	id "veritas/pkg/domain"
)

// Publisher captures structured audit events. It is append-only and uses the
// storage layer for persistence so tests can swap sinks easily.
type Publisher struct {
	store Store
}

func NewPublisher(store Store) *Publisher {
	return &Publisher{store: store}
}

func (p *Publisher) Emit(ctx context.Context, base Event) error {
	return p.store.Append(ctx, stamp(base))
}

func (p *Publisher) List(ctx context.Context, userID id.UserID) ([]Event, error) {
	return p.store.ListByUser(ctx, userID)
}

// ChannelPublisher hands events to a background worker through a buffered
// channel. Emit never blocks the request path: when the buffer is full the
// event is dropped, audit delivery here is best-effort.
type ChannelPublisher struct {
	outbox chan<- Event
}

func NewChannelPublisher(outbox chan<- Event) *ChannelPublisher {
	return &ChannelPublisher{outbox: outbox}
}

func (p *ChannelPublisher) Emit(_ context.Context, base Event) error {
	select {
	case p.outbox <- stamp(base):
	default:
	}
	return nil
}

func stamp(event Event) Event {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.Category == "" {
		event.Category = AuditEvent(event.Action).Category()
	}
	return event
}
