package scheduler

import (
	"context"
	"time"
)

// Signal is a coalescing wake-up. Any number of Notify calls before the
// waiter consumes them produce a single wake; no count or payload is kept.
type Signal struct {
	ch chan struct{}
}

// NewSignal creates an unset Signal.
func NewSignal() *Signal {
	return &Signal{ch: make(chan struct{}, 1)}
}

// Notify sets the signal. It never blocks.
func (s *Signal) Notify() {
	select {
	case s.ch <- struct{}{}:
	default:
	}
}

// Clear drops a pending wake. The caller is about to read the latest state
// anyway, so anything that changed before now is already accounted for.
func (s *Signal) Clear() {
	select {
	case <-s.ch:
	default:
	}
}

// Wait blocks until the signal is set, timeout elapses, or ctx is done.
// A timeout <= 0 waits without limit. It reports whether it was notified.
func (s *Signal) Wait(ctx context.Context, timeout time.Duration) (bool, error) {
	if timeout <= 0 {
		select {
		case <-s.ch:
			return true, nil
		case <-ctx.Done():
			return false, ctx.Err()
		}
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-s.ch:
		return true, nil
	case <-timer.C:
		return false, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}
