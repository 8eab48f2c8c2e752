package runtime

import (
	"log/slog"
	"logpilot/domain"
	"logpilot/errors"
	"logpilot/projection"
	"logpilot/uploads"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

func newSession(openedAt time.Time) *Session {
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	id := domain.SessionID(uuid.NewString())
	board := projection.NewBoard()
	return &Session{
		ID:       id,
		Manager:  uploads.NewManager(log, id, uploads.DefaultPolicy(), nil, board),
		Board:    board,
		OpenedAt: openedAt,
	}
}

func TestRegistry_Open_And_Get(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	session := newSession(time.Now())

	// Given no session is opened
	req.Empty(registry.Sessions)

	// When a session is opened
	req.True(registry.Open(session))

	// Then it can be retrieved
	got, err := registry.Get(session.ID)
	req.NoError(err)
	req.Same(session, got)
}

func TestRegistry_Open_Twice_Keeps_First(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	first := newSession(time.Now())
	second := &Session{ID: first.ID, Manager: first.Manager, Board: first.Board}

	req.True(registry.Open(first))
	req.False(registry.Open(second))

	got, err := registry.Get(first.ID)
	req.NoError(err)
	req.Same(first, got)
}

func TestRegistry_Get_Unknown_Session(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()

	_, err := registry.Get("unknown")
	req.ErrorIs(err, errors.ErrSessionNotFound)
	req.ErrorIs(registry.Close("unknown"), errors.ErrSessionNotFound)
}

func TestRegistry_Close_Shuts_Manager_Down(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	session := newSession(time.Now())
	registry.Open(session)

	// When the session is closed
	req.NoError(registry.Close(session.ID))

	// Then it is gone and its manager refuses new uploads
	req.Empty(registry.Sessions)
	_, err := session.Manager.Submit(domain.FileDescriptor{Name: "a.log", Size: 10})
	req.ErrorIs(err, errors.ErrManagerShutdown)
}

func TestRegistry_CloseAll(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	now := time.Now()
	sessions := []*Session{newSession(now), newSession(now.Add(time.Second)), newSession(now.Add(2 * time.Second))}
	for _, s := range sessions {
		registry.Open(s)
	}

	req.Equal(3, registry.CloseAll())
	req.Empty(registry.Sessions)
	for _, s := range sessions {
		_, err := s.Manager.Submit(domain.FileDescriptor{Name: "a.log"})
		req.ErrorIs(err, errors.ErrManagerShutdown)
	}
}

func TestRegistry_List_Oldest_First(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	now := time.Now()
	newest := newSession(now.Add(time.Minute))
	oldest := newSession(now)
	registry.Open(newest)
	registry.Open(oldest)

	list := registry.List()
	req.Len(list, 2)
	req.Same(oldest, list[0])
	req.Same(newest, list[1])
}
