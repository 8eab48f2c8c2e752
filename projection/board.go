// Package projection builds the rendering-side view of a session's uploads
// from the events its manager pushes.
// Does not emit events or interact with the manager directly.
package projection

import (
	"context"
	"logpilot/domain"
	"logpilot/domain/event"
	"slices"
	"sync"
)

// Board mirrors the upload list of one session. Each applied event bumps
// the version and signals Changes so a view redraws on countdown pushes
// instead of polling a clock.
type Board struct {
	mu      sync.RWMutex
	rows    map[domain.UploadID]domain.UploadView
	order   []domain.UploadID
	version uint64
	changes chan struct{}
}

func NewBoard() *Board {
	return &Board{
		rows:    make(map[domain.UploadID]domain.UploadView),
		changes: make(chan struct{}, 1),
	}
}

func (b *Board) Consume(_ context.Context, e event.DomainEvent) error {
	b.mu.Lock()
	switch evt := e.(type) {
	case event.UploadSubmitted:
		if _, ok := b.rows[evt.File.ID]; !ok {
			b.order = append(b.order, evt.File.ID)
		}
		b.rows[evt.File.ID] = evt.File
	case event.UploadRemoved:
		id := evt.File.ID
		delete(b.rows, id)
		b.order = slices.DeleteFunc(b.order, func(other domain.UploadID) bool { return other == id })
	case event.UploadProgressed, event.UploadSucceeded, event.UploadFailed,
		event.CountdownArmed, event.CountdownTicked, event.CountdownCancelled:
		file := fileOf(evt)
		// Late events of a removed upload are ignored
		if _, ok := b.rows[file.ID]; !ok {
			b.mu.Unlock()
			return nil
		}
		b.rows[file.ID] = file
	default:
		b.mu.Unlock()
		return nil
	}
	b.version++
	b.mu.Unlock()

	select {
	case b.changes <- struct{}{}:
	default:
		// a redraw is already pending
	}
	return nil
}

func fileOf(e event.DomainEvent) domain.UploadView {
	switch evt := e.(type) {
	case event.UploadProgressed:
		return evt.File
	case event.UploadSucceeded:
		return evt.File
	case event.UploadFailed:
		return evt.File
	case event.CountdownArmed:
		return evt.File
	case event.CountdownTicked:
		return evt.File
	case event.CountdownCancelled:
		return evt.File
	}
	return domain.UploadView{}
}

// Rows returns the uploads in submission order.
func (b *Board) Rows() []domain.UploadView {
	b.mu.RLock()
	defer b.mu.RUnlock()
	rows := make([]domain.UploadView, 0, len(b.order))
	for _, id := range b.order {
		rows = append(rows, b.rows[id])
	}
	return rows
}

func (b *Board) Version() uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.version
}

// Changes signals at least once after any batch of applied events.
func (b *Board) Changes() <-chan struct{} {
	return b.changes
}
