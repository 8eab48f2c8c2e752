package workers

import (
	"context"
	"fmt"
	"log/slog"
	"logpilot/contract"
	"logpilot/domain/event"
	"time"
)

const defaultSinkTimeout = 2 * time.Second

// EventFanout broadcasts the lifecycle events of every session to the
// permanent sinks (journal, logs).
//
// It provides best-effort fan-out with no guarantees regarding delivery
// or retries. A slow sink is cut after sinkTimeout so it cannot stall the
// others. Events still buffered when the context ends are drained once.
type EventFanout struct {
	log         *slog.Logger
	events      <-chan event.DomainEvent
	sinkTimeout time.Duration
	sinks       []contract.EventSink
}

func NewEventFanout(
	log *slog.Logger,
	events <-chan event.DomainEvent,
	sinkTimeout time.Duration,
	sinks ...contract.EventSink) *EventFanout {
	if sinkTimeout <= 0 {
		sinkTimeout = defaultSinkTimeout
	}
	return &EventFanout{log: log, events: events, sinkTimeout: sinkTimeout, sinks: sinks}
}

func (w *EventFanout) Run(ctx context.Context) error {
	for {
		select {
		case evt := <-w.events:
			w.Fanout(evt)
		case <-ctx.Done():
			w.drain()
			w.log.Debug("Context done, stopping event fanout")
			return nil
		}
	}
}

func (w *EventFanout) drain() {
	for {
		select {
		case evt := <-w.events:
			w.Fanout(evt)
		default:
			return
		}
	}
}

// Fanout One sink after the other, each one bounded by the sink timeout
func (w *EventFanout) Fanout(evt event.DomainEvent) {
	for _, sink := range w.sinks {
		ctx, cancel := context.WithTimeout(context.Background(), w.sinkTimeout)
		if err := sink.Consume(ctx, evt); err != nil {
			w.log.Warn("Sink failed to consume event",
				"sink", fmt.Sprintf("%T", sink),
				"type", evt.Type(),
				"upload_id", evt.Upload(),
				"error", err)
		}
		cancel()
	}
}
