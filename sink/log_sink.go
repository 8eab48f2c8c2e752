package sink

import (
	"context"
	"log/slog"
	"logpilot/domain/event"
)

// LogSink writes one structured line per lifecycle event.
// Countdown ticks are logged at debug level only.
type LogSink struct {
	log *slog.Logger
}

func NewLogSink(log *slog.Logger) LogSink {
	return LogSink{log: log}
}

func (l LogSink) Consume(ctx context.Context, e event.DomainEvent) error {
	level := slog.LevelInfo
	switch e.(type) {
	case event.CountdownTicked, event.UploadProgressed:
		level = slog.LevelDebug
	case event.UploadFailed:
		level = slog.LevelWarn
	}
	l.log.Log(ctx, level, "upload event",
		"type", e.Type(),
		"session", e.Session(),
		"upload_id", e.Upload(),
		"at", e.OccurredAt())
	return nil
}
