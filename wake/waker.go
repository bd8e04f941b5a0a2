// Package wake provides the readiness edge between interrupt handlers and a single waiting task.
package wake

import "context"

// Waker is a single slot wake registration. Any number of interrupt sources may
// call Wake; one task waits on it. Wakes are coalesced, so a waiter observes at
// least one wake for any number of Wake calls since it last woke. Waiters must
// re-check their condition after waking.
type Waker struct {
	ch chan struct{}
}

// New returns a Waker with no wake pending.
func New() *Waker {
	return &Waker{ch: make(chan struct{}, 1)}
}

// Wake marks the waiter ready. It never blocks and never allocates.
func (w *Waker) Wake() {
	select {
	case w.ch <- struct{}{}:
	default:
		// already pending
	}
}

// C returns the channel a waiter selects on. Receiving from it consumes the pending wake.
func (w *Waker) C() <-chan struct{} {
	return w.ch
}

// Wait suspends until woken or until ctx is done.
func (w *Waker) Wait(ctx context.Context) error {
	select {
	case <-w.ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Pending reports whether a wake is waiting to be consumed, without consuming it.
func (w *Waker) Pending() bool {
	return len(w.ch) != 0
}

// Clear drops a pending wake, if any.
func (w *Waker) Clear() {
	select {
	case <-w.ch:
	default:
	}
}
