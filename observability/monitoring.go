// Package observability keeps live counters of the upload lifecycle and
// samples the process footprint for the stats endpoint.
package observability

import (
	"context"
	"log/slog"
	"logpilot/domain"
	"logpilot/domain/event"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shirou/gopsutil/process"
)

const defaultSampleInterval = 5 * time.Second

// Stats aggregates every metric served to the UI.
type Stats struct {
	Submitted        uint64    `json:"submitted"`
	Succeeded        uint64    `json:"succeeded"`
	Failed           uint64    `json:"failed"`
	RemovedManually  uint64    `json:"removed_manually"`
	RemovedExpired   uint64    `json:"removed_expired"`
	ActiveCountdowns int64     `json:"active_countdowns"`
	RSSBytes         uint64    `json:"rss_bytes"`
	CPUPercent       float64   `json:"cpu_percent"`
	SampledAt        time.Time `json:"sampled_at"`
}

// Monitor counts lifecycle events. It is a sink of the fan-out worker.
type Monitor struct {
	submitted        atomic.Uint64
	succeeded        atomic.Uint64
	failed           atomic.Uint64
	removedManually  atomic.Uint64
	removedExpired   atomic.Uint64
	activeCountdowns atomic.Int64

	mu     sync.RWMutex
	sample processSample
}

type processSample struct {
	rss uint64
	cpu float64
	at  time.Time
}

func NewMonitor() *Monitor {
	return &Monitor{}
}

func (m *Monitor) Consume(_ context.Context, e event.DomainEvent) error {
	switch evt := e.(type) {
	case event.UploadSubmitted:
		m.submitted.Add(1)
	case event.UploadSucceeded:
		m.succeeded.Add(1)
	case event.UploadFailed:
		m.failed.Add(1)
	case event.CountdownArmed:
		m.activeCountdowns.Add(1)
	case event.CountdownCancelled:
		m.activeCountdowns.Add(-1)
	case event.UploadRemoved:
		if evt.File.RemainingSeconds != nil || evt.Reason == domain.RemovedExpired {
			m.activeCountdowns.Add(-1)
		}
		if evt.Reason == domain.RemovedExpired {
			m.removedExpired.Add(1)
		} else {
			m.removedManually.Add(1)
		}
	}
	return nil
}

func (m *Monitor) record(rss uint64, cpu float64, at time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sample = processSample{rss: rss, cpu: cpu, at: at}
}

func (m *Monitor) Stats() Stats {
	m.mu.RLock()
	sample := m.sample
	m.mu.RUnlock()
	return Stats{
		Submitted:        m.submitted.Load(),
		Succeeded:        m.succeeded.Load(),
		Failed:           m.failed.Load(),
		RemovedManually:  m.removedManually.Load(),
		RemovedExpired:   m.removedExpired.Load(),
		ActiveCountdowns: max(m.activeCountdowns.Load(), 0),
		RSSBytes:         sample.rss,
		CPUPercent:       sample.cpu,
		SampledAt:        sample.at,
	}
}

// ProcessSampler is a supervised worker reading the memory and CPU usage of
// the current process at a fixed interval.
type ProcessSampler struct {
	log      *slog.Logger
	monitor  *Monitor
	interval time.Duration
}

func NewProcessSampler(log *slog.Logger, monitor *Monitor, interval time.Duration) *ProcessSampler {
	if interval <= 0 {
		interval = defaultSampleInterval
	}
	return &ProcessSampler{log: log, monitor: monitor, interval: interval}
}

func (w *ProcessSampler) Run(ctx context.Context) error {
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return err
	}
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := w.Sample(p); err != nil {
				w.log.Warn("Failed to collect self stats", "error", err)
			}
		}
	}
}

// Sample reads one measurement of p into the monitor.
func (w *ProcessSampler) Sample(p *process.Process) error {
	memInfo, err := p.MemoryInfo()
	if err != nil {
		return err
	}
	cpuPercent, err := p.CPUPercent()
	if err != nil {
		return err
	}
	w.monitor.record(memInfo.RSS, cpuPercent, time.Now().UTC())
	w.log.Debug("Process sampled", "rss", memInfo.RSS, "cpu", cpuPercent)
	return nil
}
