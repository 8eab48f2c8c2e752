package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"logpilot/contract"
	"logpilot/domain"
	"logpilot/domain/mimetypes"
	"logpilot/errors"
	"time"

	"github.com/gabriel-vasile/mimetype"
)

const sniffLen = 512

type IUploadService interface {
	Begin(manager contract.IUploadManager, name string, size int64, content io.Reader) (domain.UploadID, io.Reader, error)
	Transfer(ctx context.Context, manager contract.IUploadManager, id domain.UploadID, name string, content io.Reader) error
	Upload(ctx context.Context, manager contract.IUploadManager, name string, size int64, content io.Reader) (domain.UploadID, error)
}

// UploadService is the transport side of the upload panel: it submits the
// file to a manager, reports progress, sends the body to the backend and
// settles the record.
type UploadService struct {
	log           *slog.Logger
	uploader      contract.LogUploader
	progressStep  int
	progressDelay time.Duration
	strictMime    bool
}

func NewUploadService(
	log *slog.Logger,
	uploader contract.LogUploader,
	progressStep int,
	progressDelay time.Duration,
	strictMime bool) *UploadService {
	return &UploadService{
		log:           log,
		uploader:      uploader,
		progressStep:  progressStep,
		progressDelay: progressDelay,
		strictMime:    strictMime,
	}
}

// Begin sniffs the content type and submits the file. The returned reader
// replays the sniffed bytes followed by the rest of content.
func (s *UploadService) Begin(
	manager contract.IUploadManager,
	name string,
	size int64,
	content io.Reader) (domain.UploadID, io.Reader, error) {
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(content, head)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return "", nil, fmt.Errorf("unable to sniff %s: %w", name, err)
	}
	head = head[:n]

	rawMimeType := mimetype.Detect(head).String()
	if s.strictMime && !mimetypes.IsLogFormat(rawMimeType) {
		s.log.Warn("Rejected upload", "name", name, "mime", rawMimeType)
		return "", nil, fmt.Errorf("%w: %s", errors.ErrUnsupportedMime, rawMimeType)
	}

	id, err := manager.Submit(domain.FileDescriptor{Name: name, Size: size, MimeType: rawMimeType})
	if err != nil {
		return "", nil, err
	}
	return id, io.MultiReader(bytes.NewReader(head), content), nil
}

// Transfer drives an already submitted upload to success or error.
func (s *UploadService) Transfer(
	ctx context.Context,
	manager contract.IUploadManager,
	id domain.UploadID,
	name string,
	content io.Reader) error {
	for progress := range ProgressSteps(ctx, s.progressStep, s.progressDelay) {
		manager.ReportProgress(id, progress)
	}
	if err := ctx.Err(); err != nil {
		manager.MarkError(id, err.Error())
		return fmt.Errorf("%w: %s: %w", errors.ErrUploadFailed, name, err)
	}

	if err := s.uploader.UploadLogFile(ctx, name, content); err != nil {
		s.log.Error("Backend upload failed", "upload_id", id, "name", name, "error", err)
		manager.MarkError(id, err.Error())
		return fmt.Errorf("%w: %s: %w", errors.ErrUploadFailed, name, err)
	}
	manager.MarkSuccess(id)
	return nil
}

func (s *UploadService) Upload(
	ctx context.Context,
	manager contract.IUploadManager,
	name string,
	size int64,
	content io.Reader) (domain.UploadID, error) {
	id, body, err := s.Begin(manager, name, size, content)
	if err != nil {
		return "", err
	}
	return id, s.Transfer(ctx, manager, id, name, body)
}
