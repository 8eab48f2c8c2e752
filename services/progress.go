package services

import (
	"context"
	"iter"
	"sync/atomic"
	"time"
)

// ProgressSteps yields 0, step, 2*step ... up to 100, waiting delay before
// each value. The sequence stops early when ctx is done. It is single use:
// ranging over it a second time yields nothing.
func ProgressSteps(ctx context.Context, step int, delay time.Duration) iter.Seq[int] {
	if step <= 0 {
		step = 100
	}
	var used atomic.Bool
	return func(yield func(int) bool) {
		if !used.CompareAndSwap(false, true) {
			return
		}
		timer := time.NewTimer(delay)
		defer timer.Stop()
		for progress := 0; ; progress = min(progress+step, 100) {
			select {
			case <-ctx.Done():
				return
			case <-timer.C:
			}
			if !yield(progress) || progress == 100 {
				return
			}
			timer.Reset(delay)
		}
	}
}
