package domain

import (
	"time"

	"github.com/samber/lo"
)

type UploadID string

type SessionID string

type UploadStatus int

const (
	StatusUploading UploadStatus = iota
	StatusSuccess
	StatusError
)

func (s UploadStatus) String() string {
	switch s {
	case StatusUploading:
		return "uploading"
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

func (s UploadStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// FileDescriptor is what the transport knows about a file before any byte
// has been sent.
type FileDescriptor struct {
	Name     string `validate:"required,max=1024"`
	Size     int64  `validate:"gte=0"`
	MimeType string `validate:"max=255"`
}

// UploadedFile is the tracked state of one upload.
// RemainingSeconds is non-nil only while a countdown is running.
type UploadedFile struct {
	ID               UploadID
	Name             string
	Size             int64
	MimeType         string
	Status           UploadStatus
	Progress         int
	SubmittedAt      time.Time
	UploadedAt       *time.Time
	RemainingSeconds *int
}

// UploadView is a read-only copy handed to the rendering side.
type UploadView struct {
	ID               UploadID     `json:"id"`
	Name             string       `json:"name"`
	Size             int64        `json:"size"`
	MimeType         string       `json:"mime_type,omitempty"`
	Status           UploadStatus `json:"status"`
	Progress         int          `json:"progress"`
	SubmittedAt      time.Time    `json:"submitted_at"`
	UploadedAt       *time.Time   `json:"uploaded_at,omitempty"`
	RemainingSeconds *int         `json:"remaining_seconds,omitempty"`
}

func (f *UploadedFile) View() UploadView {
	view := UploadView{
		ID:          f.ID,
		Name:        f.Name,
		Size:        f.Size,
		MimeType:    f.MimeType,
		Status:      f.Status,
		Progress:    f.Progress,
		SubmittedAt: f.SubmittedAt,
	}
	if f.UploadedAt != nil {
		view.UploadedAt = lo.ToPtr(*f.UploadedAt)
	}
	if f.RemainingSeconds != nil {
		view.RemainingSeconds = lo.ToPtr(*f.RemainingSeconds)
	}
	return view
}

// JustUploaded reports whether a successful upload is still inside the
// confirmation window shown before the countdown label takes over.
func (v UploadView) JustUploaded(now time.Time, window time.Duration) bool {
	if v.Status != StatusSuccess || v.UploadedAt == nil {
		return false
	}
	return now.Sub(*v.UploadedAt) < window
}

type RemovalReason string

const (
	RemovedManually RemovalReason = "manual"
	RemovedExpired  RemovalReason = "expired"
)

type Notification struct {
	Session  SessionID `json:"session"`
	UploadID UploadID  `json:"upload_id"`
	Name     string    `json:"name"`
	Message  string    `json:"message"`
	At       time.Time `json:"at"`
}

const AutoRemovedMessage = "File automatically removed after 1 minute"
