package main

import (
	"context"
	"errors"
	"fmt"
	"logpilot/contract"
	"logpilot/infrastructure/api"
	"logpilot/infrastructure/backend"
	"logpilot/internal"
	"logpilot/notify"
	"logpilot/observability"
	"logpilot/repositories"
	"logpilot/runtime"
	"logpilot/runtime/workers"
	"logpilot/services"
	"logpilot/sink"
	"logpilot/uploads"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run initializes all components, manages the server lifecycle, and centralizes error reporting.
// Returning instead of exiting lets every defer (like closing Badger) run.
func run() error {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Database (BadgerDB)
	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
		WithLoggingLevel(badger.WARNING))
	if err != nil {
		return fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing BadgerDB...")
		_ = db.Close()
	}()
	journal := repositories.NewJournalRepository(db, log)

	// 3. Setup Supervision & Orchestration
	toasts := notify.NewToastLog(config.ToastCapacity)
	policy := uploads.Policy{
		GraceDelay:     config.GraceDelay,
		CountdownStart: config.CountdownStart,
		TickInterval:   config.TickInterval,
	}
	var notifiers []contract.Notifier
	if config.ConsoleToasts {
		notifiers = append(notifiers, notify.NewConsoleNotifier(os.Stdout, true))
	}
	orchestrator := runtime.NewOrchestrator(
		log, workers.NewSupervisor(log, config.RestartInterval), runtime.NewRegistry(),
		toasts, policy, config.BufferSize, config.SinkTimeout, notifiers...,
	)
	monitor := observability.NewMonitor()
	orchestrator.Add(sink.NewJournalSink(journal, log), sink.NewLogSink(log), monitor)
	orchestrator.AddWorker(observability.NewProcessSampler(log, monitor, config.MetricInterval))

	// 4. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 5. Start the Engine
	// Its own context keeps the journal fed until the HTTP side is drained
	engineCtx, cancelEngine := context.WithCancel(context.Background())
	defer cancelEngine()
	engineDone := make(chan error, 1)
	go func() {
		engineDone <- orchestrator.Start(engineCtx)
	}()

	// 6. HTTP Server Setup
	uploader := backend.NewClient(log, config.BackendURL, config.BackendTimeout, config.BackendRPS, config.BackendBurst)
	service := services.NewUploadService(log, uploader, config.ProgressStep, config.ProgressDelay, config.StrictMime)
	server := api.NewServer(log, orchestrator, service, journal, api.Options{
		AllowedOrigins: config.Origins(),
		MaxUploadSize:  config.MaxUploadSize,
		UploadTimeout:  config.UploadTimeout,
		GinMode:        config.GinMode,
		Monitor:        monitor,
	})

	address := fmt.Sprintf("%s:%d", config.Host, config.Port)
	httpServer := &http.Server{
		Addr:              address,
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Use an error channel to capture ListenAndServe() issues
	errChan := make(chan error, 1)
	go func() {
		log.Info("Starting HTTP server", "address", address, "at", time.Now().UTC())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// 7. Wait for Stop or Error
	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
	case err := <-errChan:
		orchestrator.Stop()
		cancelEngine()
		<-engineDone
		return err
	}

	// 8. Final Cleanup
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warn("HTTP server shutdown failed", "error", err)
	}
	server.Close()
	orchestrator.Stop()
	cancelEngine()
	if err := <-engineDone; err != nil {
		return fmt.Errorf("orchestrator failed: %w", err)
	}
	log.Info("Program stopped cleanly")

	return nil
}
