// Package api exposes the upload panel over HTTP: one session per view,
// its uploads, its toasts and the persisted journal.
package api

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"logpilot/domain"
	"logpilot/errors"
	"logpilot/observability"
	"logpilot/repositories"
	"logpilot/runtime"
	"logpilot/services"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

const (
	defaultMaxUploadSize = 32 << 20
	defaultJournalLimit  = 100
)

type Options struct {
	AllowedOrigins []string
	MaxUploadSize  int64
	UploadTimeout  time.Duration
	GinMode        string
	Monitor        *observability.Monitor
}

// Server runs transfers in the background so a POST returns as soon as
// the upload is tracked. Close cancels the transfers still running.
type Server struct {
	log          *slog.Logger
	orchestrator *runtime.Orchestrator
	service      services.IUploadService
	journal      repositories.IJournalRepository
	options      Options

	transfers context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	closed    bool
}

func NewServer(
	log *slog.Logger,
	orchestrator *runtime.Orchestrator,
	service services.IUploadService,
	journal repositories.IJournalRepository,
	options Options) *Server {
	if options.MaxUploadSize <= 0 {
		options.MaxUploadSize = defaultMaxUploadSize
	}
	transfers, cancel := context.WithCancel(context.Background())
	return &Server{
		log:          log,
		orchestrator: orchestrator,
		service:      service,
		journal:      journal,
		options:      options,
		transfers:    transfers,
		cancel:       cancel,
	}
}

// Router wires routes, middlewares and handlers.
func (s *Server) Router() *gin.Engine {
	switch s.options.GinMode {
	case gin.DebugMode, gin.TestMode:
		gin.SetMode(s.options.GinMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(s.requestLogger())

	corsCfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Content-Type"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	if len(s.options.AllowedOrigins) == 0 ||
		(len(s.options.AllowedOrigins) == 1 && s.options.AllowedOrigins[0] == "*") {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = s.options.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	r.GET("/healthz", func(ctx *gin.Context) {
		success(ctx, http.StatusOK, gin.H{"sessions": len(s.orchestrator.Sessions())})
	})

	r.GET("/api/stats", s.stats)

	sessions := r.Group("/api/sessions")
	sessions.POST("", s.openSession)
	sessions.DELETE("/:sid", s.closeSession)

	session := sessions.Group("/:sid", s.resolveSession)
	session.POST("/uploads", s.createUpload)
	session.GET("/uploads", s.listUploads)
	session.GET("/uploads/:id", s.getUpload)
	session.DELETE("/uploads/:id", s.removeUpload)
	session.GET("/notifications", s.listNotifications)
	session.GET("/journal", s.listJournal)

	return r
}

// Close cancels the background transfers and waits for them.
func (s *Server) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.cancel()
	s.wg.Wait()
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()
		ctx.Next()
		s.log.Debug("HTTP request",
			"method", ctx.Request.Method,
			"path", ctx.FullPath(),
			"status", ctx.Writer.Status(),
			"latency", time.Since(start))
	}
}

const sessionKey = "session"

func (s *Server) resolveSession(ctx *gin.Context) {
	session, err := s.orchestrator.Session(domain.SessionID(ctx.Param("sid")))
	if err != nil {
		s.fail(ctx, err)
		return
	}
	ctx.Set(sessionKey, session)
	ctx.Next()
}

func sessionOf(ctx *gin.Context) *runtime.Session {
	return ctx.MustGet(sessionKey).(*runtime.Session)
}

func (s *Server) openSession(ctx *gin.Context) {
	session, err := s.orchestrator.OpenSession()
	if err != nil {
		s.fail(ctx, err)
		return
	}
	success(ctx, http.StatusCreated, gin.H{"id": session.ID, "opened_at": session.OpenedAt})
}

func (s *Server) closeSession(ctx *gin.Context) {
	if err := s.orchestrator.CloseSession(domain.SessionID(ctx.Param("sid"))); err != nil {
		s.fail(ctx, err)
		return
	}
	ctx.Status(http.StatusNoContent)
}

// createUpload reads the multipart "file" field, tracks the upload and
// transfers it to the backend in the background.
func (s *Server) createUpload(ctx *gin.Context) {
	session := sessionOf(ctx)
	header, err := ctx.FormFile("file")
	if err != nil {
		failure(ctx, http.StatusBadRequest, 40001, "missing multipart field \"file\"")
		return
	}
	if header.Size > s.options.MaxUploadSize {
		failure(ctx, http.StatusRequestEntityTooLarge, 41301, "file too large")
		return
	}
	file, err := header.Open()
	if err != nil {
		s.fail(ctx, err)
		return
	}
	defer file.Close()

	// The multipart temp file is gone once the request ends
	content, err := io.ReadAll(io.LimitReader(file, s.options.MaxUploadSize))
	if err != nil {
		s.fail(ctx, err)
		return
	}

	if !s.track() {
		s.fail(ctx, errors.ErrManagerShutdown)
		return
	}
	id, body, err := s.service.Begin(session.Manager, header.Filename, int64(len(content)), bytes.NewReader(content))
	if err != nil {
		s.wg.Done()
		s.fail(ctx, err)
		return
	}

	go func() {
		defer s.wg.Done()
		transferCtx, cancel := s.transferContext()
		defer cancel()
		if err := s.service.Transfer(transferCtx, session.Manager, id, header.Filename, body); err != nil {
			s.log.Warn("Transfer failed", "session", session.ID, "upload_id", id, "error", err)
		}
	}()

	view, _ := session.Manager.Get(id)
	success(ctx, http.StatusAccepted, toUploadResponse(view, time.Now(), s.orchestrator.Policy().GraceDelay))
}

// track registers a transfer unless Close already ran.
func (s *Server) track() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.wg.Add(1)
	return true
}

func (s *Server) transferContext() (context.Context, context.CancelFunc) {
	if s.options.UploadTimeout <= 0 {
		return context.WithCancel(s.transfers)
	}
	return context.WithTimeout(s.transfers, s.options.UploadTimeout)
}

func (s *Server) listUploads(ctx *gin.Context) {
	session := sessionOf(ctx)
	success(ctx, http.StatusOK, toUploadResponses(
		session.Board.Rows(), time.Now(), s.orchestrator.Policy().GraceDelay))
}

func (s *Server) getUpload(ctx *gin.Context) {
	view, ok := sessionOf(ctx).Manager.Get(domain.UploadID(ctx.Param("id")))
	if !ok {
		s.fail(ctx, errors.ErrUploadNotFound)
		return
	}
	success(ctx, http.StatusOK, toUploadResponse(view, time.Now(), s.orchestrator.Policy().GraceDelay))
}

// removeUpload is the manual close action of a row. Removing an unknown
// id succeeds as well.
func (s *Server) removeUpload(ctx *gin.Context) {
	sessionOf(ctx).Manager.Remove(domain.UploadID(ctx.Param("id")))
	ctx.Status(http.StatusNoContent)
}

func (s *Server) listNotifications(ctx *gin.Context) {
	notes, err := s.orchestrator.Notifications(sessionOf(ctx).ID)
	if err != nil {
		s.fail(ctx, err)
		return
	}
	success(ctx, http.StatusOK, notes)
}

func (s *Server) listJournal(ctx *gin.Context) {
	limit := defaultJournalLimit
	if raw := ctx.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			failure(ctx, http.StatusBadRequest, 40002, fmt.Sprintf("invalid limit %q", raw))
			return
		}
		limit = parsed
	}
	entries, err := s.journal.List(sessionOf(ctx).ID, limit)
	if err != nil {
		s.fail(ctx, err)
		return
	}
	success(ctx, http.StatusOK, toJournalResponses(entries, time.Now()))
}

func (s *Server) stats(ctx *gin.Context) {
	if s.options.Monitor == nil {
		failure(ctx, http.StatusNotFound, 40403, "monitoring disabled")
		return
	}
	stats := s.options.Monitor.Stats()
	success(ctx, http.StatusOK, gin.H{
		"sessions":  len(s.orchestrator.Sessions()),
		"uploads":   stats,
		"human_rss": humanize.IBytes(stats.RSSBytes),
	})
}

func (s *Server) fail(ctx *gin.Context, err error) {
	switch {
	case stderrors.Is(err, errors.ErrSessionNotFound):
		failure(ctx, http.StatusNotFound, 40401, err.Error())
	case stderrors.Is(err, errors.ErrUploadNotFound):
		failure(ctx, http.StatusNotFound, 40402, err.Error())
	case stderrors.Is(err, errors.ErrInvalidDescriptor):
		failure(ctx, http.StatusBadRequest, 40003, err.Error())
	case stderrors.Is(err, errors.ErrUnsupportedMime):
		failure(ctx, http.StatusUnsupportedMediaType, 41501, err.Error())
	case stderrors.Is(err, errors.ErrManagerShutdown):
		failure(ctx, http.StatusServiceUnavailable, 50301, err.Error())
	default:
		s.log.Error("Request failed", "path", ctx.FullPath(), "error", err)
		failure(ctx, http.StatusInternalServerError, 50001, "internal error")
	}
}
