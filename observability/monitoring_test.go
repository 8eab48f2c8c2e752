package observability

import (
	"context"
	"log/slog"
	"logpilot/domain"
	"logpilot/domain/event"
	"logpilot/uploads"
	"os"
	"testing"
	"testing/synctest"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/samber/lo"
	"github.com/shirou/gopsutil/process"
	"github.com/stretchr/testify/require"
)

func base(id string, remaining *int) event.Base {
	return event.Base{
		SessionID: "session-1",
		File:      domain.UploadView{ID: domain.UploadID(id), Name: id, RemainingSeconds: remaining},
		At:        time.Now(),
	}
}

func TestMonitor_Counts_Lifecycle(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	monitor := NewMonitor()

	events := []event.DomainEvent{
		// a.log expires
		event.UploadSubmitted{Base: base("a", nil)},
		event.UploadSucceeded{Base: base("a", nil)},
		event.CountdownArmed{Base: base("a", lo.ToPtr(60))},
		event.UploadRemoved{Base: base("a", nil), Reason: domain.RemovedExpired},
		// b.log is closed during its countdown
		event.UploadSubmitted{Base: base("b", nil)},
		event.UploadSucceeded{Base: base("b", nil)},
		event.CountdownArmed{Base: base("b", lo.ToPtr(60))},
		event.UploadRemoved{Base: base("b", lo.ToPtr(30)), Reason: domain.RemovedManually},
		// c.log fails then is closed
		event.UploadSubmitted{Base: base("c", nil)},
		event.UploadFailed{Base: base("c", nil), Reason: "boom"},
		event.UploadRemoved{Base: base("c", nil), Reason: domain.RemovedManually},
		// d.log is still counting down
		event.UploadSubmitted{Base: base("d", nil)},
		event.UploadSucceeded{Base: base("d", nil)},
		event.CountdownArmed{Base: base("d", lo.ToPtr(60))},
	}
	for _, e := range events {
		req.NoError(monitor.Consume(ctx, e))
	}

	stats := monitor.Stats()
	req.EqualValues(4, stats.Submitted)
	req.EqualValues(3, stats.Succeeded)
	req.EqualValues(1, stats.Failed)
	req.EqualValues(2, stats.RemovedManually)
	req.EqualValues(1, stats.RemovedExpired)
	req.EqualValues(1, stats.ActiveCountdowns)
}

func TestProcessSampler_Sample(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	monitor := NewMonitor()
	sampler := NewProcessSampler(log, monitor, time.Second)

	p, err := process.NewProcess(int32(os.Getpid()))
	req.NoError(err)

	req.NoError(sampler.Sample(p))

	stats := monitor.Stats()
	req.Positive(stats.RSSBytes)
	req.False(stats.SampledAt.IsZero())
}

func TestProcessSampler_Stops_With_Context(t *testing.T) {
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	sampler := NewProcessSampler(log, NewMonitor(), time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, sampler.Run(ctx))
}

func TestMonitor_Shutdown_Releases_Countdowns(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		req := require.New(t)
		log := logs.GetLoggerFromLevel(slog.LevelDebug)
		monitor := NewMonitor()
		manager := uploads.NewManager(log, "session-1", uploads.DefaultPolicy(), nil, monitor)

		// Given one countdown running and one upload still in its grace delay
		counting, err := manager.Submit(domain.FileDescriptor{Name: "a.log", Size: 10})
		req.NoError(err)
		manager.MarkSuccess(counting)
		time.Sleep(5 * time.Second)
		synctest.Wait()
		grace, err := manager.Submit(domain.FileDescriptor{Name: "b.log", Size: 10})
		req.NoError(err)
		manager.MarkSuccess(grace)
		req.EqualValues(1, monitor.Stats().ActiveCountdowns)

		// When the session is closed mid-countdown
		manager.Shutdown()
		time.Sleep(time.Hour)
		synctest.Wait()

		// Then the gauge is back to zero
		req.Zero(monitor.Stats().ActiveCountdowns)
		req.Zero(manager.PendingTimers())
	})
}
