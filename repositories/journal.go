//go:generate go run go.uber.org/mock/mockgen -source=journal.go -destination=../mocks/mock_journal_repository.go -package=mocks
package repositories

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"logpilot/domain"
	"time"

	"github.com/dgraph-io/badger/v4"
)

const journalPrefix = "journal:"

type EntryKind string

const (
	KindSucceeded      EntryKind = "succeeded"
	KindFailed         EntryKind = "failed"
	KindRemovedManual  EntryKind = "removed_manual"
	KindRemovedExpired EntryKind = "removed_expired"
)

// JournalEntry is the persisted trace of a terminal lifecycle step.
type JournalEntry struct {
	Session  domain.SessionID `json:"session"`
	UploadID domain.UploadID  `json:"upload_id"`
	Name     string           `json:"name"`
	Size     int64            `json:"size"`
	MimeType string           `json:"mime_type,omitempty"`
	Kind     EntryKind        `json:"kind"`
	Reason   string           `json:"reason,omitempty"`
	At       time.Time        `json:"at"`
}

type IJournalRepository interface {
	Append(entry JournalEntry) error
	List(session domain.SessionID, limit int) ([]JournalEntry, error)
	ListAll(limit int) ([]JournalEntry, error)
}

type JournalRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewJournalRepository(db *badger.DB, log *slog.Logger) *JournalRepository {
	return &JournalRepository{db: db, log: log}
}

// Append stores the entry under "journal:{session}:{timestamp_padded}:{upload_id}:{kind}".
// The 19-digit padding keeps keys of a session in chronological order.
func (r *JournalRepository) Append(entry JournalEntry) error {
	key := fmt.Sprintf("%s%s:%019d:%s:%s",
		journalPrefix,
		entry.Session,
		entry.At.UnixNano(),
		entry.UploadID,
		entry.Kind,
	)
	bytes, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return r.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), bytes)
	})
}

// List returns the entries of one session, newest first.
// A limit <= 0 means no limit.
func (r *JournalRepository) List(session domain.SessionID, limit int) ([]JournalEntry, error) {
	return r.scan(fmt.Sprintf("%s%s:", journalPrefix, session), limit, true)
}

// ListAll returns entries of every session in key order.
func (r *JournalRepository) ListAll(limit int) ([]JournalEntry, error) {
	return r.scan(journalPrefix, limit, false)
}

func (r *JournalRepository) scan(prefixStr string, limit int, reverse bool) ([]JournalEntry, error) {
	var entries []JournalEntry
	prefix := []byte(prefixStr)
	err := r.db.View(func(txn *badger.Txn) error {
		options := badger.DefaultIteratorOptions
		options.Reverse = reverse
		it := txn.NewIterator(options)
		defer it.Close()

		seekKey := prefix
		if reverse {
			// Start after the greatest possible key of the prefix
			seekKey = append([]byte(prefixStr), 0xFF)
		}
		for it.Seek(seekKey); it.ValidForPrefix(prefix); it.Next() {
			if limit > 0 && len(entries) == limit {
				r.log.Debug(fmt.Sprintf("Maximum of %d journal entries reached", limit))
				break
			}
			err := it.Item().Value(func(value []byte) error {
				var entry JournalEntry
				if err := json.Unmarshal(value, &entry); err != nil {
					return err
				}
				entries = append(entries, entry)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("journal scan failed: %w", err)
	}
	return entries, nil
}
