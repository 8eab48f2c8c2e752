package sink

import (
	"context"
	"fmt"
	"log/slog"
	"logpilot/domain"
	"logpilot/domain/event"
	"logpilot/repositories"
)

// JournalSink persists the terminal steps of every upload.
type JournalSink struct {
	repository repositories.IJournalRepository
	log        *slog.Logger
}

func NewJournalSink(repository repositories.IJournalRepository, log *slog.Logger) JournalSink {
	return JournalSink{repository: repository, log: log}
}

func (j JournalSink) Consume(_ context.Context, e event.DomainEvent) error {
	switch evt := e.(type) {
	case event.UploadSucceeded:
		return j.repository.Append(toEntry(evt.Base, repositories.KindSucceeded, ""))
	case event.UploadFailed:
		return j.repository.Append(toEntry(evt.Base, repositories.KindFailed, evt.Reason))
	case event.UploadRemoved:
		kind := repositories.KindRemovedManual
		if evt.Reason == domain.RemovedExpired {
			kind = repositories.KindRemovedExpired
		}
		return j.repository.Append(toEntry(evt.Base, kind, ""))
	default:
		j.log.Debug(fmt.Sprintf("Not journaled event : %v", e.Type()))
		return nil
	}
}

func toEntry(base event.Base, kind repositories.EntryKind, reason string) repositories.JournalEntry {
	return repositories.JournalEntry{
		Session:  base.SessionID,
		UploadID: base.File.ID,
		Name:     base.File.Name,
		Size:     base.File.Size,
		MimeType: base.File.MimeType,
		Kind:     kind,
		Reason:   reason,
		At:       base.At,
	}
}
