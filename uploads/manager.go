// Package uploads tracks the uploads of one view session: their status,
// their progress and the auto-removal countdown armed after a success.
package uploads

import (
	"context"
	"fmt"
	"log/slog"
	"logpilot/contract"
	"logpilot/domain"
	"logpilot/domain/event"
	"logpilot/errors"
	"slices"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

const (
	DefaultGraceDelay     = 2 * time.Second
	DefaultCountdownStart = 60
	DefaultTickInterval   = time.Second
)

// Policy holds the timing values of the auto-removal policy.
type Policy struct {
	GraceDelay     time.Duration
	CountdownStart int
	TickInterval   time.Duration
}

func DefaultPolicy() Policy {
	return Policy{
		GraceDelay:     DefaultGraceDelay,
		CountdownStart: DefaultCountdownStart,
		TickInterval:   DefaultTickInterval,
	}
}

// WithDefaults replaces every unset value by its default.
func (p Policy) WithDefaults() Policy {
	if p.GraceDelay <= 0 {
		p.GraceDelay = DefaultGraceDelay
	}
	if p.CountdownStart <= 0 {
		p.CountdownStart = DefaultCountdownStart
	}
	if p.TickInterval <= 0 {
		p.TickInterval = DefaultTickInterval
	}
	return p
}

type countdown struct {
	ticker *time.Ticker
	done   chan struct{}
}

func (c *countdown) stop() {
	c.ticker.Stop()
	close(c.done)
}

// Manager owns the upload records of a single session and every timer
// attached to them. Timer handles live in explicit maps keyed by upload id
// so that Remove and Shutdown can cancel them without relying on closures.
//
// Events are published in mutation order: the publish lock is taken
// before the state lock is released. Sinks and the notifier must
// therefore not call back into the Manager.
type Manager struct {
	mu    sync.Mutex
	pubMu sync.Mutex

	log       *slog.Logger
	session   domain.SessionID
	policy    Policy
	validator *validator.Validate
	notifier  contract.Notifier
	sinks     []contract.EventSink

	records    map[domain.UploadID]*domain.UploadedFile
	order      []domain.UploadID
	graces     map[domain.UploadID]*time.Timer
	countdowns map[domain.UploadID]*countdown
	wg         sync.WaitGroup
	closed     bool
}

func NewManager(
	log *slog.Logger,
	session domain.SessionID,
	policy Policy,
	notifier contract.Notifier,
	sinks ...contract.EventSink) *Manager {
	return &Manager{
		log:        log.With("session", session),
		session:    session,
		policy:     policy.WithDefaults(),
		validator:  validator.New(),
		notifier:   notifier,
		sinks:      sinks,
		records:    make(map[domain.UploadID]*domain.UploadedFile),
		graces:     make(map[domain.UploadID]*time.Timer),
		countdowns: make(map[domain.UploadID]*countdown),
	}
}

func (m *Manager) Session() domain.SessionID { return m.session }

// Submit starts tracking a new upload in the uploading state.
func (m *Manager) Submit(desc domain.FileDescriptor) (domain.UploadID, error) {
	if err := m.validator.Struct(desc); err != nil {
		return "", fmt.Errorf("%w: %w", errors.ErrInvalidDescriptor, err)
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return "", errors.ErrManagerShutdown
	}
	id := m.newIDLocked()
	file := &domain.UploadedFile{
		ID:          id,
		Name:        desc.Name,
		Size:        desc.Size,
		MimeType:    desc.MimeType,
		Status:      domain.StatusUploading,
		Progress:    0,
		SubmittedAt: time.Now().UTC(),
	}
	m.records[id] = file
	m.order = append(m.order, id)
	m.log.Debug("upload submitted", "upload_id", id, "name", desc.Name, "size", desc.Size)

	m.commit([]event.DomainEvent{event.UploadSubmitted{Base: m.base(file)}}, nil)
	return id, nil
}

// ReportProgress updates the progress of an upload still in flight.
// Unknown ids, finished uploads and backward steps are ignored.
func (m *Manager) ReportProgress(id domain.UploadID, percent int) {
	percent = min(max(percent, 0), 100)

	m.mu.Lock()
	file, ok := m.records[id]
	if m.closed || !ok || file.Status != domain.StatusUploading || percent <= file.Progress {
		m.mu.Unlock()
		return
	}
	file.Progress = percent
	m.commit([]event.DomainEvent{event.UploadProgressed{Base: m.base(file)}}, nil)
}

// MarkSuccess completes an upload and schedules the countdown after the
// grace delay.
func (m *Manager) MarkSuccess(id domain.UploadID) {
	m.mu.Lock()
	file, ok := m.records[id]
	if !ok || file.Status != domain.StatusUploading || m.closed {
		m.mu.Unlock()
		m.log.Debug("success ignored, upload is not in flight", "upload_id", id)
		return
	}
	file.Status = domain.StatusSuccess
	file.Progress = 100
	file.UploadedAt = lo.ToPtr(time.Now().UTC())

	m.graces[id] = time.AfterFunc(m.policy.GraceDelay, func() {
		m.armCountdown(id)
	})
	m.log.Info("upload succeeded", "upload_id", id, "name", file.Name)
	m.commit([]event.DomainEvent{event.UploadSucceeded{Base: m.base(file)}}, nil)
}

// MarkError fails an upload. The record stays until removed explicitly.
func (m *Manager) MarkError(id domain.UploadID, reason string) {
	m.mu.Lock()
	file, ok := m.records[id]
	if m.closed || !ok || file.Status != domain.StatusUploading {
		m.mu.Unlock()
		return
	}
	file.Status = domain.StatusError
	m.log.Warn("upload failed", "upload_id", id, "name", file.Name, "reason", reason)
	m.commit([]event.DomainEvent{event.UploadFailed{Base: m.base(file), Reason: reason}}, nil)
}

// armCountdown runs once the grace delay is over.
func (m *Manager) armCountdown(id domain.UploadID) {
	m.mu.Lock()
	delete(m.graces, id)
	file, ok := m.records[id]
	if m.closed || !ok || file.Status != domain.StatusSuccess {
		m.mu.Unlock()
		return
	}
	if _, running := m.countdowns[id]; running {
		m.mu.Unlock()
		return
	}
	file.RemainingSeconds = lo.ToPtr(m.policy.CountdownStart)
	cd := &countdown{
		ticker: time.NewTicker(m.policy.TickInterval),
		done:   make(chan struct{}),
	}
	m.countdowns[id] = cd
	m.wg.Add(1)
	go m.runCountdown(id, cd)

	m.commit([]event.DomainEvent{event.CountdownArmed{Base: m.base(file)}}, nil)
}

func (m *Manager) runCountdown(id domain.UploadID, cd *countdown) {
	defer m.wg.Done()
	for {
		select {
		case <-cd.done:
			return
		case <-cd.ticker.C:
			if !m.tick(id, cd) {
				return
			}
		}
	}
}

// tick decrements the countdown and reports whether it keeps running.
func (m *Manager) tick(id domain.UploadID, cd *countdown) bool {
	m.mu.Lock()
	if m.countdowns[id] != cd {
		// cancelled while the tick was in flight
		m.mu.Unlock()
		return false
	}
	file, ok := m.records[id]
	if !ok || file.RemainingSeconds == nil {
		m.mu.Unlock()
		return false
	}

	if *file.RemainingSeconds <= 1 {
		file.RemainingSeconds = nil
		view := m.removeLocked(id)
		m.log.Info("upload expired", "upload_id", id, "name", view.Name)
		removed := event.UploadRemoved{
			Base:   event.Base{SessionID: m.session, File: view, At: time.Now().UTC()},
			Reason: domain.RemovedExpired,
		}
		note := domain.Notification{
			Session:  m.session,
			UploadID: id,
			Name:     view.Name,
			Message:  domain.AutoRemovedMessage,
			At:       removed.At,
		}
		m.commit([]event.DomainEvent{removed}, []domain.Notification{note})
		return false
	}

	*file.RemainingSeconds--
	m.commit([]event.DomainEvent{event.CountdownTicked{Base: m.base(file)}}, nil)
	return true
}

// Remove stops tracking an upload and cancels its timers. Removing an
// unknown id, or any id once the manager is shut down, is a no-op.
func (m *Manager) Remove(id domain.UploadID) {
	m.mu.Lock()
	if _, ok := m.records[id]; m.closed || !ok {
		m.mu.Unlock()
		return
	}
	view := m.removeLocked(id)
	m.log.Debug("upload removed", "upload_id", id)
	m.commit([]event.DomainEvent{event.UploadRemoved{
		Base:   event.Base{SessionID: m.session, File: view, At: time.Now().UTC()},
		Reason: domain.RemovedManually,
	}}, nil)
}

func (m *Manager) removeLocked(id domain.UploadID) domain.UploadView {
	if timer, ok := m.graces[id]; ok {
		timer.Stop()
		delete(m.graces, id)
	}
	if cd, ok := m.countdowns[id]; ok {
		cd.stop()
		delete(m.countdowns, id)
	}
	file := m.records[id]
	delete(m.records, id)
	m.order = slices.DeleteFunc(m.order, func(other domain.UploadID) bool { return other == id })
	return file.View()
}

// Shutdown cancels every pending timer and waits for the countdown
// goroutines to exit. Records are kept for a last snapshot but never
// change again. Every countdown still running is reported with a
// CountdownCancelled event.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	for id, timer := range m.graces {
		timer.Stop()
		delete(m.graces, id)
	}
	var cancelled []event.DomainEvent
	for _, id := range m.order {
		cd, ok := m.countdowns[id]
		if !ok {
			continue
		}
		cd.stop()
		delete(m.countdowns, id)
		file := m.records[id]
		file.RemainingSeconds = nil
		cancelled = append(cancelled, event.CountdownCancelled{Base: m.base(file)})
	}
	m.commit(cancelled, nil)

	m.wg.Wait()
	m.log.Debug("upload manager stopped")
}

func (m *Manager) Get(id domain.UploadID) (domain.UploadView, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	file, ok := m.records[id]
	if !ok {
		return domain.UploadView{}, false
	}
	return file.View(), true
}

// Snapshot returns the tracked uploads in submission order.
func (m *Manager) Snapshot() []domain.UploadView {
	m.mu.Lock()
	defer m.mu.Unlock()
	return lo.Map(m.order, func(id domain.UploadID, _ int) domain.UploadView {
		return m.records[id].View()
	})
}

// PendingTimers counts the grace timers and countdowns still armed.
func (m *Manager) PendingTimers() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.graces) + len(m.countdowns)
}

func (m *Manager) newIDLocked() domain.UploadID {
	for {
		id := domain.UploadID(uuid.NewString())
		if _, taken := m.records[id]; !taken {
			return id
		}
	}
}

func (m *Manager) base(file *domain.UploadedFile) event.Base {
	return event.Base{SessionID: m.session, File: file.View(), At: time.Now().UTC()}
}

// commit must be called with m.mu held; it releases it.
func (m *Manager) commit(events []event.DomainEvent, notes []domain.Notification) {
	m.pubMu.Lock()
	m.mu.Unlock()
	defer m.pubMu.Unlock()

	ctx := context.Background()
	for _, evt := range events {
		for _, sink := range m.sinks {
			if err := sink.Consume(ctx, evt); err != nil {
				m.log.Warn("event sink failed", "type", evt.Type(), "upload_id", evt.Upload(), "error", err)
			}
		}
	}
	if m.notifier == nil {
		return
	}
	for _, note := range notes {
		m.notifier.Notify(ctx, note)
	}
}
