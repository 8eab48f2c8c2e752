package runtime

import (
	"cmp"
	"logpilot/domain"
	"logpilot/errors"
	"logpilot/projection"
	"logpilot/uploads"
	"slices"
	"sync"
	"time"

	"github.com/samber/lo"
)

// Session is one view of the upload panel: its own manager and the board
// rendering it.
type Session struct {
	ID       domain.SessionID
	Manager  *uploads.Manager
	Board    *projection.Board
	OpenedAt time.Time
}

type Registry struct {
	mu       sync.RWMutex
	Sessions map[domain.SessionID]*Session
}

func NewRegistry() *Registry {
	return &Registry{Sessions: make(map[domain.SessionID]*Session)}
}

// Open registers a session. An already registered id keeps its session.
func (r *Registry) Open(session *Session) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.Sessions[session.ID]; ok {
		return false
	}
	r.Sessions[session.ID] = session
	return true
}

func (r *Registry) Get(id domain.SessionID) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	session, ok := r.Sessions[id]
	if !ok {
		return nil, errors.ErrSessionNotFound
	}
	return session, nil
}

// Close unregisters the session and shuts its manager down, cancelling
// every pending timer of the view.
func (r *Registry) Close(id domain.SessionID) error {
	r.mu.Lock()
	session, ok := r.Sessions[id]
	delete(r.Sessions, id)
	r.mu.Unlock()
	if !ok {
		return errors.ErrSessionNotFound
	}
	session.Manager.Shutdown()
	return nil
}

// CloseAll shuts every session down and returns how many were closed.
func (r *Registry) CloseAll() int {
	r.mu.Lock()
	sessions := lo.Values(r.Sessions)
	r.Sessions = make(map[domain.SessionID]*Session)
	r.mu.Unlock()

	for _, session := range sessions {
		session.Manager.Shutdown()
	}
	return len(sessions)
}

// List returns the open sessions, oldest first.
func (r *Registry) List() []*Session {
	r.mu.RLock()
	sessions := lo.Values(r.Sessions)
	r.mu.RUnlock()
	slices.SortFunc(sessions, func(a, b *Session) int {
		if c := a.OpenedAt.Compare(b.OpenedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return sessions
}
