package sim

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rigado/sdc/raw"
	"github.com/rigado/sdc/wake"
)

// Interrupter raises interrupt lines.
type Interrupter interface {
	Raise(src raw.IRQ)
}

const numIRQ = int(raw.IRQLowPriority) + 1

// dispatch order, highest priority first
var priority = []raw.IRQ{raw.IRQRadio, raw.IRQTimer0, raw.IRQRTC0, raw.IRQPowerClock, raw.IRQLowPriority}

// Injector delivers simulated interrupts from its own goroutine, standing in
// for the interrupt controller. A raised line stays pending until the handler
// runs for it; raising a pending line again has no further effect.
type Injector struct {
	pending [numIRQ]int32
	handler atomic.Value
	kick    *wake.Waker

	counts [numIRQ]uint64

	done chan struct{}
	wg   sync.WaitGroup
	once sync.Once
}

// NewInjector starts an injector. Interrupts stay pending until a handler is set.
func NewInjector() *Injector {
	i := &Injector{
		kick: wake.New(),
		done: make(chan struct{}),
	}
	i.wg.Add(1)
	go i.loop()
	return i
}

// SetHandler installs the interrupt handler, typically mpsl.MPSL.HandleInterrupt.
func (i *Injector) SetHandler(fn func(raw.IRQ)) {
	i.handler.Store(fn)
	i.kick.Wake()
}

// Raise marks src pending. It never blocks.
func (i *Injector) Raise(src raw.IRQ) {
	if src < 0 || int(src) >= numIRQ {
		return
	}
	atomic.StoreInt32(&i.pending[src], 1)
	i.kick.Wake()
}

// Tick raises src every period until ctx is done.
func (i *Injector) Tick(ctx context.Context, src raw.IRQ, period time.Duration) {
	i.wg.Add(1)
	go func() {
		defer i.wg.Done()
		t := time.NewTicker(period)
		defer t.Stop()
		for {
			select {
			case <-t.C:
				i.Raise(src)
			case <-ctx.Done():
				return
			case <-i.done:
				return
			}
		}
	}()
}

// Count returns how many times the handler ran for src.
func (i *Injector) Count(src raw.IRQ) uint64 {
	return atomic.LoadUint64(&i.counts[src])
}

// Close stops the injector goroutines.
func (i *Injector) Close() {
	i.once.Do(func() {
		close(i.done)
	})
	i.wg.Wait()
}

func (i *Injector) loop() {
	defer i.wg.Done()
	for {
		select {
		case <-i.done:
			return
		case <-i.kick.C():
		}

		fn, _ := i.handler.Load().(func(raw.IRQ))
		if fn == nil {
			continue
		}

		for {
			serviced := false
			for _, src := range priority {
				if atomic.CompareAndSwapInt32(&i.pending[src], 1, 0) {
					fn(src)
					atomic.AddUint64(&i.counts[src], 1)
					serviced = true
					break
				}
			}
			if !serviced {
				break
			}
		}
	}
}
