// Package mpsl brings up the multiprotocol service layer, routes its
// interrupts and runs its low priority work.
package mpsl

import (
	"context"
	"sync/atomic"

	"github.com/pkg/errors"

	"github.com/rigado/sdc"
	"github.com/rigado/sdc/raw"
	"github.com/rigado/sdc/wake"
)

// MPSL is the handle to an initialized service layer.
type MPSL struct {
	m      raw.MPSL
	irq    raw.IRQ
	logger sdc.Logger
	fault  func(file string, line uint32)
	hfclk  func()

	lowPrio   *wake.Waker
	processed uint64
}

// Init initializes the MPSL with the low frequency clock clk and lowPrioIRQ as
// the software interrupt used to signal deferred work, then requests the high
// frequency clock. It must be called once, before the controller is initialized.
func Init(m raw.MPSL, clk sdc.ClockConfig, lowPrioIRQ raw.IRQ, opts ...sdc.Option) (*MPSL, error) {
	p := &MPSL{
		m:       m,
		irq:     lowPrioIRQ,
		lowPrio: wake.New(),
	}
	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, errors.Wrap(err, "can't set options")
		}
	}
	if p.logger == nil {
		p.logger = sdc.GetLogger().ChildLogger(map[string]interface{}{"component": "mpsl"})
	}
	if err := clk.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid clock config")
	}

	cfg := raw.ClockLfCfg{
		Source:               uint8(clk.Source),
		RCCtiv:               clk.RCCtiv,
		RCTempCtiv:           clk.RCTempCtiv,
		AccuracyPPM:          clk.AccuracyPPM,
		SkipWaitLfclkStarted: clk.SkipWait,
	}

	ret := m.Init(&cfg, lowPrioIRQ, p.onFault)
	p.logger.Debugf("init done: %d", ret)
	if err := sdc.Reject("mpsl_init", ret); err != nil {
		return nil, err
	}

	ret = m.HFClkRequest(p.onHFClk)
	p.logger.Debugf("hfclk request done: %d", ret)
	if err := sdc.Reject("mpsl_clock_hfclk_request", ret); err != nil {
		return nil, err
	}

	p.logger.Infof("[mpsl] init done (lfclk %s, %d ppm)", clk.Source, clk.AccuracyPPM)
	return p, nil
}

// SetLogger ...
func (p *MPSL) SetLogger(l sdc.Logger) error {
	p.logger = l
	return nil
}

// SetFaultHandler ...
func (p *MPSL) SetFaultHandler(handler func(file string, line uint32)) error {
	p.fault = handler
	return nil
}

// SetRoles is not supported
func (p *MPSL) SetRoles(sdc.RoleConfig) error {
	return errors.New("Not supported")
}

// SetHFClkHandler ...
func (p *MPSL) SetHFClkHandler(handler func()) error {
	p.hfclk = handler
	return nil
}

func (p *MPSL) onHFClk() {
	p.logger.Debug("hfclk started")
	if p.hfclk != nil {
		p.hfclk()
	}
}

func (p *MPSL) onFault(file string, line uint32) {
	if p.fault != nil {
		p.fault(file, line)
		return
	}
	e := &sdc.FaultError{Source: "mpsl", File: file, Line: line}
	p.logger.Error(e)
	panic(e)
}

// HandleInterrupt services one interrupt. It runs in interrupt context: the
// low priority line only wakes the pump, everything else is handed straight to
// the MPSL's own handlers.
func (p *MPSL) HandleInterrupt(src raw.IRQ) {
	switch src {
	case p.irq:
		p.lowPrio.Wake()
	case raw.IRQPowerClock:
		p.m.IRQClockHandler()
	case raw.IRQRadio:
		p.m.IRQRadioHandler()
	case raw.IRQTimer0:
		p.m.IRQTimer0Handler()
	case raw.IRQRTC0:
		p.m.IRQRTC0Handler()
	}
}

// Run processes low priority work every time the low priority interrupt
// fires. Work is processed before each wait, so a wake raised while
// processing is seen by the next wait. It only returns when ctx is done.
func (p *MPSL) Run(ctx context.Context) error {
	for {
		p.m.LowPriorityProcess()
		atomic.AddUint64(&p.processed, 1)

		if err := p.lowPrio.Wait(ctx); err != nil {
			return err
		}
	}
}

// Processed counts calls into the low priority entry point.
func (p *MPSL) Processed() uint64 {
	return atomic.LoadUint64(&p.processed)
}
