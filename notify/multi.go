package notify

import (
	"context"
	"logpilot/contract"
	"logpilot/domain"
)

// Multi forwards every notification to each notifier in order.
type Multi []contract.Notifier

func (m Multi) Notify(ctx context.Context, n domain.Notification) {
	for _, notifier := range m {
		notifier.Notify(ctx, n)
	}
}
