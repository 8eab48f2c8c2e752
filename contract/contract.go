//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"io"
	"logpilot/domain"
	"logpilot/domain/event"
	"reflect"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

type WorkerName string

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

type EventSink interface {
	Consume(ctx context.Context, e event.DomainEvent) error
}

// Notifier receives user-facing messages (toasts).
type Notifier interface {
	Notify(ctx context.Context, n domain.Notification)
}

// IUploadManager is the surface the transport and the views see.
type IUploadManager interface {
	Submit(desc domain.FileDescriptor) (domain.UploadID, error)
	ReportProgress(id domain.UploadID, percent int)
	MarkSuccess(id domain.UploadID)
	MarkError(id domain.UploadID, reason string)
	Remove(id domain.UploadID)
	Get(id domain.UploadID) (domain.UploadView, bool)
	Snapshot() []domain.UploadView
	Shutdown()
}

// LogUploader sends the file body to the analysis backend.
type LogUploader interface {
	UploadLogFile(ctx context.Context, name string, content io.Reader) error
}
