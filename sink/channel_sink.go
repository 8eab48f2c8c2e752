package sink

import (
	"context"
	"log/slog"
	"logpilot/domain/event"
)

// ChannelSink hands events over to an asynchronous consumer.
// It never blocks the publisher: when the buffer is full the event is
// dropped and logged.
type ChannelSink struct {
	log    *slog.Logger
	events chan<- event.DomainEvent
}

func NewChannelSink(log *slog.Logger, events chan<- event.DomainEvent) ChannelSink {
	return ChannelSink{log: log, events: events}
}

func (c ChannelSink) Consume(_ context.Context, e event.DomainEvent) error {
	select {
	case c.events <- e:
	default:
		c.log.Warn("Event channel full, event lost", "type", e.Type(), "upload_id", e.Upload())
	}
	return nil
}
