package controller

import (
	"runtime"
	"sync/atomic"
)

// criticalSection serialises access to state shared with interrupt context.
// It spins rather than parks, so an interrupt goroutine holding it is never
// descheduled behind a task. Nested entry from the same caller deadlocks.
type criticalSection struct {
	held int32
}

func (cs *criticalSection) do(fn func()) {
	for !atomic.CompareAndSwapInt32(&cs.held, 0, 1) {
		runtime.Gosched()
	}
	defer atomic.StoreInt32(&cs.held, 0)

	fn()
}
