package errors

import "fmt"

var (
	ErrWorkerPanic       = fmt.Errorf("worker panic")
	ErrUploadFailed      = fmt.Errorf("upload failed")
	ErrUploadNotFound    = fmt.Errorf("upload not found")
	ErrSessionNotFound   = fmt.Errorf("session not found")
	ErrUnsupportedMime   = fmt.Errorf("unsupported mime type")
	ErrManagerShutdown   = fmt.Errorf("upload manager is shut down")
	ErrInvalidDescriptor = fmt.Errorf("invalid file descriptor")
)
