// Package runtime wires upload managers to their sessions and runs the
// supervised event pipeline behind them.
// It orchestrates the system without containing lifecycle rules.
package runtime

import (
	"context"
	"log/slog"
	"logpilot/contract"
	"logpilot/domain"
	"logpilot/domain/event"
	"logpilot/errors"
	"logpilot/notify"
	"logpilot/projection"
	"logpilot/runtime/workers"
	"logpilot/sink"
	"logpilot/uploads"
	"sync"
	"time"

	"github.com/google/uuid"
)

type Orchestrator struct {
	mu             sync.Mutex
	log            *slog.Logger
	supervisor     contract.ISupervisor
	registry       *Registry
	toasts         *notify.ToastLog
	notifier       contract.Notifier
	policy         uploads.Policy
	events         chan event.DomainEvent
	permanentSinks []contract.EventSink
	extraWorkers   []contract.Worker
	sinkTimeout    time.Duration
	stopped        bool
	newID          func() domain.SessionID
}

func NewOrchestrator(
	log *slog.Logger,
	supervisor contract.ISupervisor,
	registry *Registry,
	toasts *notify.ToastLog,
	policy uploads.Policy,
	bufferSize int,
	sinkTimeout time.Duration,
	notifiers ...contract.Notifier) *Orchestrator {
	return &Orchestrator{
		log:         log,
		supervisor:  supervisor,
		registry:    registry,
		toasts:      toasts,
		notifier:    append(notify.Multi{toasts}, notifiers...),
		policy:      policy.WithDefaults(),
		events:      make(chan event.DomainEvent, bufferSize),
		sinkTimeout: sinkTimeout,
		newID:       func() domain.SessionID { return domain.SessionID(uuid.NewString()) },
	}
}

// Add registers sinks receiving the events of every session through the
// fan-out worker. Must be called before Start.
func (o *Orchestrator) Add(sinks ...contract.EventSink) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.permanentSinks = append(o.permanentSinks, sinks...)
}

// AddWorker registers background workers supervised next to the fan-out.
// Must be called before Start.
func (o *Orchestrator) AddWorker(worker ...contract.Worker) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.extraWorkers = append(o.extraWorkers, worker...)
}

// OpenSession creates a view session with its own upload manager.
// The board is fed synchronously, the permanent sinks asynchronously.
func (o *Orchestrator) OpenSession() (*Session, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.stopped {
		return nil, errors.ErrManagerShutdown
	}

	for {
		id := o.newID()
		board := projection.NewBoard()
		session := &Session{
			ID:    id,
			Board: board,
			Manager: uploads.NewManager(o.log, id, o.policy, o.notifier,
				board, sink.NewChannelSink(o.log, o.events)),
			OpenedAt: time.Now().UTC(),
		}
		if !o.registry.Open(session) {
			// id already taken, the unused manager has no timer yet
			o.log.Warn("Session id collision, retrying", "session", id)
			continue
		}
		o.log.Info("Session opened", "session", id)
		return session, nil
	}
}

func (o *Orchestrator) Session(id domain.SessionID) (*Session, error) {
	return o.registry.Get(id)
}

func (o *Orchestrator) Policy() uploads.Policy { return o.policy }

func (o *Orchestrator) Sessions() []*Session {
	return o.registry.List()
}

// CloseSession tears a view down: its manager stops every timer and its
// pending toasts are dropped.
func (o *Orchestrator) CloseSession(id domain.SessionID) error {
	if err := o.registry.Close(id); err != nil {
		return err
	}
	o.toasts.Forget(id)
	o.log.Info("Session closed", "session", id)
	return nil
}

func (o *Orchestrator) Notifications(id domain.SessionID) ([]domain.Notification, error) {
	if _, err := o.registry.Get(id); err != nil {
		return nil, err
	}
	return o.toasts.Recent(id), nil
}

// Start registers the fan-out worker and runs the supervisor until ctx is
// cancelled or Stop is called.
func (o *Orchestrator) Start(ctx context.Context) error {
	o.mu.Lock()
	fanout := workers.NewEventFanout(o.log, o.events, o.sinkTimeout, o.permanentSinks...)
	o.supervisor.Add(fanout)
	o.supervisor.Add(o.extraWorkers...)
	o.mu.Unlock()

	o.log.Info("Starting orchestrator and all supervised workers")
	o.supervisor.Run(ctx)
	return nil
}

// Stop shuts every session down, then cancels the supervised workers so
// the fan-out drains the last events.
func (o *Orchestrator) Stop() {
	o.log.Info("Requesting orchestrator shutdown")
	o.mu.Lock()
	o.stopped = true
	o.mu.Unlock()

	closed := o.registry.CloseAll()
	o.log.Debug("Sessions closed", "count", closed)
	o.supervisor.Stop()
}
