package notify

import (
	"context"
	"fmt"
	"io"
	"logpilot/domain"
	"sync"

	"github.com/gookit/color"
)

// ConsoleNotifier prints notifications as toast-like lines.
type ConsoleNotifier struct {
	mu      sync.Mutex
	out     io.Writer
	colours bool
}

func NewConsoleNotifier(out io.Writer, colours bool) *ConsoleNotifier {
	return &ConsoleNotifier{out: out, colours: colours}
}

func (c *ConsoleNotifier) Notify(_ context.Context, n domain.Notification) {
	c.mu.Lock()
	defer c.mu.Unlock()

	header := fmt.Sprintf("[%s] %s", n.At.Format("15:04:05"), n.Name)
	if c.colours {
		header = color.New(color.BgBlack, color.FgYellow).Render(header)
	}
	_, _ = fmt.Fprintf(c.out, "%s %s\n", header, n.Message)
}
