package wake

import (
	"context"
	"testing"
	"time"
)

// interrupt runs fn on another goroutine, the way a hardware vector preempts a task.
func interrupt(fn func()) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		fn()
		close(done)
	}()
	return done
}

func waitWithin(t *testing.T, w *Waker, d time.Duration) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	if err := w.Wait(ctx); err != nil {
		t.Fatalf("missed wake: %v", err)
	}
}

func TestWakeBeforeRegistration(t *testing.T) {
	w := New()
	<-interrupt(w.Wake)

	if !w.Pending() {
		t.Fatal("wake not pending after interrupt")
	}
	waitWithin(t, w, time.Second)
}

func TestWakeDuringRegistration(t *testing.T) {
	for i := 0; i < 1000; i++ {
		w := New()
		woke := make(chan error, 1)
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			woke <- w.Wait(ctx)
		}()
		<-interrupt(w.Wake)
		if err := <-woke; err != nil {
			t.Fatalf("iteration %d: missed wake: %v", i, err)
		}
	}
}

func TestWakeAfterRegistration(t *testing.T) {
	w := New()
	woke := make(chan error, 1)
	go func() {
		woke <- w.Wait(context.Background())
	}()

	// let the waiter park first
	time.Sleep(10 * time.Millisecond)
	<-interrupt(w.Wake)

	select {
	case err := <-woke:
		if err != nil {
			t.Fatal(err)
		}
	case <-time.After(time.Second):
		t.Fatal("waiter never woke")
	}
}

func TestWakeCoalesces(t *testing.T) {
	w := New()
	for i := 0; i < 10; i++ {
		w.Wake()
	}
	waitWithin(t, w, time.Second)

	if w.Pending() {
		t.Fatal("expected wakes to coalesce into one")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := w.Wait(ctx); err != context.DeadlineExceeded {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestWakeClear(t *testing.T) {
	w := New()
	w.Wake()
	w.Clear()
	if w.Pending() {
		t.Fatal("clear left a pending wake")
	}
	// clearing an idle waker is a no-op
	w.Clear()
}

func TestWakeDoesNotAllocate(t *testing.T) {
	w := New()
	allocs := testing.AllocsPerRun(100, w.Wake)
	if allocs != 0 {
		t.Fatalf("wake allocated %v times", allocs)
	}
}
