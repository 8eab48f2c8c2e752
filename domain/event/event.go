package event

import (
	"logpilot/domain"
	"time"
)

type Type string

const (
	UploadSubmittedType    Type = "UPLOAD_SUBMITTED"
	UploadProgressedType   Type = "UPLOAD_PROGRESSED"
	UploadSucceededType    Type = "UPLOAD_SUCCEEDED"
	UploadFailedType       Type = "UPLOAD_FAILED"
	CountdownArmedType     Type = "COUNTDOWN_ARMED"
	CountdownTickedType    Type = "COUNTDOWN_TICKED"
	CountdownCancelledType Type = "COUNTDOWN_CANCELLED"
	UploadRemovedType      Type = "UPLOAD_REMOVED"
)

// DomainEvent is published by an upload manager after every state change.
type DomainEvent interface {
	Session() domain.SessionID
	Upload() domain.UploadID
	Type() Type
	OccurredAt() time.Time
}

// Base carries the fields shared by every lifecycle event.
// File is the state of the record right after the change; for
// UploadRemoved it is the last state before deletion.
type Base struct {
	SessionID domain.SessionID
	File      domain.UploadView
	At        time.Time
}

func (b Base) Session() domain.SessionID { return b.SessionID }
func (b Base) Upload() domain.UploadID   { return b.File.ID }
func (b Base) OccurredAt() time.Time     { return b.At }

type UploadSubmitted struct{ Base }

func (UploadSubmitted) Type() Type { return UploadSubmittedType }

type UploadProgressed struct{ Base }

func (UploadProgressed) Type() Type { return UploadProgressedType }

type UploadSucceeded struct{ Base }

func (UploadSucceeded) Type() Type { return UploadSucceededType }

type UploadFailed struct {
	Base
	Reason string
}

func (UploadFailed) Type() Type { return UploadFailedType }

type CountdownArmed struct{ Base }

func (CountdownArmed) Type() Type { return CountdownArmedType }

type CountdownTicked struct{ Base }

func (CountdownTicked) Type() Type { return CountdownTickedType }

// CountdownCancelled is published when a manager shuts down while the
// countdown of a record is still running. The record itself stays.
type CountdownCancelled struct{ Base }

func (CountdownCancelled) Type() Type { return CountdownCancelledType }

type UploadRemoved struct {
	Base
	Reason domain.RemovalReason
}

func (UploadRemoved) Type() Type { return UploadRemovedType }

// IsTerminal reports events after which the record never changes again
// except for its countdown.
func IsTerminal(e DomainEvent) bool {
	switch e.(type) {
	case UploadSucceeded, UploadFailed, UploadRemoved:
		return true
	}
	return false
}
