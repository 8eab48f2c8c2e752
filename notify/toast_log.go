package notify

import (
	"context"
	"logpilot/domain"
	"sync"

	"github.com/samber/lo"
)

const defaultToastCapacity = 50

// ToastLog keeps the most recent notifications of every session so the
// HTTP surface can hand them to the browser.
type ToastLog struct {
	mu       sync.RWMutex
	capacity int
	toasts   map[domain.SessionID][]domain.Notification
}

func NewToastLog(capacity int) *ToastLog {
	if capacity <= 0 {
		capacity = defaultToastCapacity
	}
	return &ToastLog{capacity: capacity, toasts: make(map[domain.SessionID][]domain.Notification)}
}

func (t *ToastLog) Notify(_ context.Context, n domain.Notification) {
	t.mu.Lock()
	defer t.mu.Unlock()
	toasts := append(t.toasts[n.Session], n)
	if len(toasts) > t.capacity {
		toasts = toasts[len(toasts)-t.capacity:]
	}
	t.toasts[n.Session] = toasts
}

// Recent returns the notifications of a session, oldest first.
func (t *ToastLog) Recent(session domain.SessionID) []domain.Notification {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return lo.Map(t.toasts[session], func(n domain.Notification, _ int) domain.Notification { return n })
}

func (t *ToastLog) Forget(session domain.SessionID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.toasts, session)
}
