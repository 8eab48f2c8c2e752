// Command simulate replays the upload panel scenarios against a real-clock
// manager and prints the board every time a countdown pushes a change.
package main

import (
	"context"
	"fmt"
	"logpilot/domain"
	"logpilot/notify"
	"logpilot/projection"
	"logpilot/services"
	"logpilot/sink"
	"logpilot/uploads"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gookit/color"
	"github.com/kelseyhightower/envconfig"
	"github.com/mama165/sdk-go/logs"
)

type Config struct {
	LogLevel       string        `envconfig:"SIMULATE_LOG_LEVEL" default:"WARN"`
	Colours        bool          `envconfig:"SIMULATE_COLOURS" default:"true"`
	GraceDelay     time.Duration `envconfig:"SIMULATE_GRACE_DELAY" default:"2s"`
	CountdownStart int           `envconfig:"SIMULATE_COUNTDOWN_START" default:"5"`
	TickInterval   time.Duration `envconfig:"SIMULATE_TICK_INTERVAL" default:"1s"`
	ProgressDelay  time.Duration `envconfig:"SIMULATE_PROGRESS_DELAY" default:"50ms"`
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)
	policy := uploads.Policy{
		GraceDelay:     config.GraceDelay,
		CountdownStart: config.CountdownStart,
		TickInterval:   config.TickInterval,
	}.WithDefaults()

	session := domain.SessionID(uuid.NewString())
	board := projection.NewBoard()
	toasts := notify.NewToastLog(0)
	notifier := notify.Multi{toasts, notify.NewConsoleNotifier(os.Stdout, config.Colours)}
	manager := uploads.NewManager(log, session, policy, notifier, board, sink.NewLogSink(log))
	defer manager.Shutdown()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go render(ctx, board, config.Colours)

	countdown := policy.GraceDelay + time.Duration(policy.CountdownStart)*policy.TickInterval
	settle := policy.TickInterval / 2

	header(config.Colours, "a.log is removed automatically")
	id, err := manager.Submit(domain.FileDescriptor{Name: "a.log", Size: 1024, MimeType: "text/plain"})
	if err != nil {
		return err
	}
	for progress := range services.ProgressSteps(ctx, 25, config.ProgressDelay) {
		manager.ReportProgress(id, progress)
	}
	manager.MarkSuccess(id)
	time.Sleep(countdown + settle)
	if err := expect(len(toasts.Recent(session)) == 1, "a.log should have produced one toast"); err != nil {
		return err
	}

	header(config.Colours, "b.log is closed during the grace delay")
	id, err = manager.Submit(domain.FileDescriptor{Name: "b.log", Size: 2048, MimeType: "text/plain"})
	if err != nil {
		return err
	}
	manager.MarkSuccess(id)
	time.Sleep(policy.GraceDelay / 2)
	manager.Remove(id)
	time.Sleep(countdown + settle)
	if err := expect(len(toasts.Recent(session)) == 1, "b.log should not produce any toast"); err != nil {
		return err
	}

	header(config.Colours, "c.log fails and stays on the board")
	id, err = manager.Submit(domain.FileDescriptor{Name: "c.log", Size: 512, MimeType: "text/plain"})
	if err != nil {
		return err
	}
	manager.ReportProgress(id, 40)
	manager.MarkError(id, "backend returned 502")
	time.Sleep(countdown + settle)
	view, ok := manager.Get(id)
	if err := expect(ok && view.Status == domain.StatusError, "c.log should still be in error"); err != nil {
		return err
	}

	header(config.Colours, "all scenarios passed")
	return nil
}

func header(colours bool, title string) {
	line := fmt.Sprintf("  ====== %s ======", title)
	if colours {
		line = color.New(color.BgBlack, color.FgGreen).Render(line)
	}
	fmt.Println(line)
}

func expect(ok bool, message string) error {
	if !ok {
		return fmt.Errorf("scenario failed: %s", message)
	}
	return nil
}

// render redraws on every pushed change, never on a clock of its own.
func render(ctx context.Context, board *projection.Board, colours bool) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-board.Changes():
		}
		rows := board.Rows()
		cells := make([]string, 0, len(rows))
		for _, row := range rows {
			cells = append(cells, describe(row))
		}
		line := fmt.Sprintf("  v%-4d %s", board.Version(), strings.Join(cells, " | "))
		if len(rows) == 0 {
			line = fmt.Sprintf("  v%-4d (empty)", board.Version())
		}
		if colours {
			line = color.FgCyan.Render(line)
		}
		fmt.Println(line)
	}
}

func describe(row domain.UploadView) string {
	switch {
	case row.Status == domain.StatusUploading:
		return fmt.Sprintf("%s %d%%", row.Name, row.Progress)
	case row.RemainingSeconds != nil:
		return fmt.Sprintf("%s removing in %ds", row.Name, *row.RemainingSeconds)
	default:
		return fmt.Sprintf("%s %s", row.Name, row.Status)
	}
}
