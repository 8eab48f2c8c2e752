package projection

import (
	"context"
	"logpilot/domain"
	"logpilot/domain/event"
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
)

func base(view domain.UploadView) event.Base {
	return event.Base{SessionID: "s1", File: view, At: time.Now()}
}

func TestBoard_Follows_Lifecycle(t *testing.T) {
	req := require.New(t)
	board := NewBoard()
	ctx := context.Background()

	a := domain.UploadView{ID: "a", Name: "a.log", Status: domain.StatusUploading}
	b := domain.UploadView{ID: "b", Name: "b.log", Status: domain.StatusUploading}

	req.NoError(board.Consume(ctx, event.UploadSubmitted{Base: base(a)}))
	req.NoError(board.Consume(ctx, event.UploadSubmitted{Base: base(b)}))

	a.Status = domain.StatusSuccess
	a.Progress = 100
	req.NoError(board.Consume(ctx, event.UploadSucceeded{Base: base(a)}))

	a.RemainingSeconds = lo.ToPtr(60)
	req.NoError(board.Consume(ctx, event.CountdownArmed{Base: base(a)}))
	a.RemainingSeconds = lo.ToPtr(59)
	req.NoError(board.Consume(ctx, event.CountdownTicked{Base: base(a)}))

	rows := board.Rows()
	req.Len(rows, 2)
	req.Equal(domain.UploadID("a"), rows[0].ID)
	req.Equal(59, *rows[0].RemainingSeconds)
	req.Equal(domain.StatusUploading, rows[1].Status)
	req.EqualValues(5, board.Version())

	req.NoError(board.Consume(ctx, event.UploadRemoved{Base: base(a), Reason: domain.RemovedExpired}))
	rows = board.Rows()
	req.Len(rows, 1)
	req.Equal(domain.UploadID("b"), rows[0].ID)
}

func TestBoard_Ignores_Late_Events(t *testing.T) {
	req := require.New(t)
	board := NewBoard()
	ctx := context.Background()

	a := domain.UploadView{ID: "a", Name: "a.log"}
	req.NoError(board.Consume(ctx, event.UploadSubmitted{Base: base(a)}))
	req.NoError(board.Consume(ctx, event.UploadRemoved{Base: base(a), Reason: domain.RemovedManually}))
	version := board.Version()

	// A tick published before the removal was applied must not resurrect the row
	a.RemainingSeconds = lo.ToPtr(12)
	req.NoError(board.Consume(ctx, event.CountdownTicked{Base: base(a)}))
	req.Empty(board.Rows())
	req.Equal(version, board.Version())
}

func TestBoard_Changes_Coalesce(t *testing.T) {
	req := require.New(t)
	board := NewBoard()
	ctx := context.Background()

	for _, id := range []domain.UploadID{"a", "b", "c"} {
		req.NoError(board.Consume(ctx, event.UploadSubmitted{Base: base(domain.UploadView{ID: id})}))
	}

	// Then a single pending signal is available
	select {
	case <-board.Changes():
	default:
		req.Fail("a change should be signaled")
	}
	select {
	case <-board.Changes():
		req.Fail("signals should coalesce")
	default:
	}
}

func TestBoard_Cancelled_Countdown_Clears_Label(t *testing.T) {
	req := require.New(t)
	board := NewBoard()
	ctx := context.Background()

	a := domain.UploadView{ID: "a", Name: "a.log", Status: domain.StatusSuccess, RemainingSeconds: lo.ToPtr(42)}
	req.NoError(board.Consume(ctx, event.UploadSubmitted{Base: base(a)}))

	// When the manager shuts down mid-countdown
	a.RemainingSeconds = nil
	req.NoError(board.Consume(ctx, event.CountdownCancelled{Base: base(a)}))

	// Then the row stays without a countdown
	rows := board.Rows()
	req.Len(rows, 1)
	req.Nil(rows[0].RemainingSeconds)
	req.EqualValues(2, board.Version())
}
