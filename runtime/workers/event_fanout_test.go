package workers

import (
	"context"
	"fmt"
	"log/slog"
	"logpilot/domain"
	"logpilot/domain/event"
	"logpilot/mocks"
	"testing"
	"testing/synctest"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func succeeded(id string) event.UploadSucceeded {
	return event.UploadSucceeded{Base: event.Base{
		SessionID: "session-1",
		File:      domain.UploadView{ID: domain.UploadID(id), Name: id, Status: domain.StatusSuccess},
		At:        time.Now().UTC(),
	}}
}

func TestEventFanout_Fanout(t *testing.T) {
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)
	journalSink := mocks.NewMockEventSink(ctrl)
	logSink := mocks.NewMockEventSink(ctrl)
	evt := succeeded("a.log")

	// Given two permanent sinks, each consuming the event once
	journalSink.EXPECT().Consume(gomock.Any(), evt).Return(nil).Times(1)
	logSink.EXPECT().Consume(gomock.Any(), evt).Return(nil).Times(1)

	fanout := NewEventFanout(log, nil, time.Second, journalSink, logSink)

	// When the event is fanned out
	fanout.Fanout(evt)
}

func TestEventFanout_FailingSinkDoesNotStopOthers(t *testing.T) {
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)
	failing := mocks.NewMockEventSink(ctrl)
	healthy := mocks.NewMockEventSink(ctrl)

	gomock.InOrder(
		failing.EXPECT().Consume(gomock.Any(), gomock.Any()).Return(fmt.Errorf("disk full")),
		healthy.EXPECT().Consume(gomock.Any(), gomock.Any()).Return(nil),
	)

	NewEventFanout(log, nil, time.Second, failing, healthy).Fanout(succeeded("a.log"))
}

func TestEventFanout_SinkTimeout(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		req := require.New(t)
		log := logs.GetLoggerFromLevel(slog.LevelDebug)
		ctrl := gomock.NewController(t)
		slow := mocks.NewMockEventSink(ctrl)

		sinkTimeout := 20 * time.Millisecond
		// Given a sink waiting for its context to be cancelled
		slow.EXPECT().Consume(gomock.Any(), gomock.Any()).
			DoAndReturn(func(ctx context.Context, _ event.DomainEvent) error {
				<-ctx.Done()
				return ctx.Err()
			}).Times(1)

		start := time.Now()
		NewEventFanout(log, nil, sinkTimeout, slow).Fanout(succeeded("a.log"))

		// Then the sink was cut exactly at the timeout
		req.Equal(sinkTimeout, time.Since(start))
	})
}

func TestEventFanout_RunDrainsOnStop(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		req := require.New(t)
		log := logs.GetLoggerFromLevel(slog.LevelDebug)
		ctrl := gomock.NewController(t)
		sink := mocks.NewMockEventSink(ctrl)

		var consumed []domain.UploadID
		sink.EXPECT().Consume(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, e event.DomainEvent) error {
				consumed = append(consumed, e.Upload())
				return nil
			}).Times(3)

		events := make(chan event.DomainEvent, 3)
		// Given three events buffered before the worker starts
		events <- succeeded("a.log")
		events <- succeeded("b.log")
		events <- succeeded("c.log")

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		// When the worker runs with an already cancelled context
		err := NewEventFanout(log, events, time.Second, sink).Run(ctx)

		// Then every buffered event is still delivered in order
		req.NoError(err)
		req.Equal([]domain.UploadID{"a.log", "b.log", "c.log"}, consumed)
	})
}
