package repositories

import (
	"log/slog"
	"logpilot/domain"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *badger.DB {
	opts := badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	db, err := badger.Open(opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestJournal_List_Newest_First(t *testing.T) {
	req := require.New(t)
	repository := NewJournalRepository(setupTestDB(t), slog.Default())
	at := time.Now().UTC()

	entries := []JournalEntry{
		{Session: "s1", UploadID: "u1", Name: "a.log", Size: 10, Kind: KindSucceeded, At: at},
		{Session: "s1", UploadID: "u1", Name: "a.log", Size: 10, Kind: KindRemovedExpired, At: at.Add(62 * time.Second)},
		{Session: "s1", UploadID: "u2", Name: "b.log", Size: 20, Kind: KindFailed, Reason: "timeout", At: at.Add(time.Second)},
	}
	for _, entry := range entries {
		req.NoError(repository.Append(entry))
	}

	fetched, err := repository.List("s1", 0)
	req.NoError(err)
	req.Len(fetched, 3)
	req.Equal(KindRemovedExpired, fetched[0].Kind)
	req.Equal(KindFailed, fetched[1].Kind)
	req.Equal("timeout", fetched[1].Reason)
	req.Equal(KindSucceeded, fetched[2].Kind)
	req.True(entries[0].At.Equal(fetched[2].At))
}

func TestJournal_List_Isolates_Sessions_And_Limits(t *testing.T) {
	req := require.New(t)
	repository := NewJournalRepository(setupTestDB(t), slog.Default())
	at := time.Now().UTC()

	for i := range 5 {
		req.NoError(repository.Append(JournalEntry{
			Session:  "s1",
			UploadID: domain.UploadID("u" + string(rune('a'+i))),
			Kind:     KindSucceeded,
			At:       at.Add(time.Duration(i) * time.Second),
		}))
	}
	req.NoError(repository.Append(JournalEntry{Session: "s2", UploadID: "other", Kind: KindFailed, At: at}))

	// Given a limit of 2
	fetched, err := repository.List("s1", 2)
	req.NoError(err)
	req.Len(fetched, 2)
	req.Equal(domain.UploadID("ue"), fetched[0].UploadID)

	fetched, err = repository.List("s2", 0)
	req.NoError(err)
	req.Len(fetched, 1)

	all, err := repository.ListAll(0)
	req.NoError(err)
	req.Len(all, 6)

	empty, err := repository.List("unknown", 0)
	req.NoError(err)
	req.Empty(empty)
}
