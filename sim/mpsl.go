package sim

import (
	"github.com/rigado/sdc/raw"
)

// MPSL implements raw.MPSL.
type MPSL struct {
	c *Chip
}

func (m *MPSL) Init(clk *raw.ClockLfCfg, lowPrioIRQ raw.IRQ, fault raw.FaultHandler) int32 {
	c := m.c
	c.mu.Lock()
	defer c.mu.Unlock()

	c.record("mpsl_init")
	switch {
	case c.mpslInit:
		return ePerm
	case clk == nil || fault == nil:
		return eInval
	case clk.Source > 2:
		return eInval
	case clk.Source == 0 && clk.RCCtiv == 0:
		return eInval
	}

	c.clock = *clk
	c.lowPrioIRQ = lowPrioIRQ
	c.mpslFault = fault
	c.mpslInit = true
	return 0
}

// LowPriorityProcess does nothing until the MPSL is initialized.
func (m *MPSL) LowPriorityProcess() {
	c := m.c
	c.mu.Lock()
	ok := c.mpslInit
	c.mu.Unlock()

	if ok {
		c.process()
	}
}

// HFClkRequest starts the high frequency clock. started runs from the clock interrupt.
func (m *MPSL) HFClkRequest(started func()) int32 {
	c := m.c
	c.mu.Lock()
	c.record("mpsl_clock_hfclk_request")
	if !c.mpslInit {
		c.mu.Unlock()
		return ePerm
	}
	c.hfclkCB = started
	c.mu.Unlock()

	c.raise(raw.IRQPowerClock)
	return 0
}

func (m *MPSL) IRQClockHandler() {
	c := m.c
	c.mu.Lock()
	var cb func()
	if c.hfclkCB != nil && !c.hfclkOn {
		c.hfclkOn = true
		cb = c.hfclkCB
	}
	c.mu.Unlock()

	if cb != nil {
		cb()
	}
}

func (m *MPSL) IRQRadioHandler()  { m.highPriority(raw.IRQRadio) }
func (m *MPSL) IRQTimer0Handler() { m.highPriority(raw.IRQTimer0) }
func (m *MPSL) IRQRTC0Handler()   { m.highPriority(raw.IRQRTC0) }

func (m *MPSL) highPriority(src raw.IRQ) {
	m.c.mu.Lock()
	m.c.highPrio[src]++
	m.c.mu.Unlock()
}

// ClockConfig returns the clock configuration passed to Init.
func (c *Chip) ClockConfig() raw.ClockLfCfg {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.clock
}

// HFClkRunning reports whether the high frequency clock start was signalled.
func (c *Chip) HFClkRunning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hfclkOn
}
