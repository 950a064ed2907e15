package nau7802

import (
	"context"
	"time"
)

// Delayer is the waiting mechanism used inside the driver's polling loops.
// The state machine is written once against this capability; swapping the
// implementation changes how the caller waits, never how many register
// transactions happen.
type Delayer interface {
	Delay(ctx context.Context, d time.Duration) error
}

// TimerDelay waits on a timer while honoring context cancellation. This is
// the default: the goroutine is parked and can be cancelled mid-poll.
type TimerDelay struct{}

func (TimerDelay) Delay(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SleepDelay blocks the calling goroutine unconditionally. Useful on hosts
// where the driver owns its thread and cancellation is not needed.
type SleepDelay struct{}

func (SleepDelay) Delay(_ context.Context, d time.Duration) error {
	time.Sleep(d)
	return nil
}
