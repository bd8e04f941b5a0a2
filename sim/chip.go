// Package sim is an in-memory stand-in for the link layer controller and the
// MPSL. It enforces their call ordering contract, negotiates memory, answers a
// small set of HCI commands and loops ACL data back, so the host side can run
// without the radio. It is not a link layer.
package sim

import (
	"fmt"
	"sync"

	"github.com/rigado/sdc"
	"github.com/rigado/sdc/raw"
)

// Per role memory cost reported by CfgSet, in bytes.
const (
	MemBase          = 1280
	MemPerAdvertiser = 672
	MemPerPeripheral = 1240
	MemPerCentral    = 1264

	maxRoleCount      = 16
	maxPendingPackets = 4
)

// Version reported by Read Local Version Information.
const (
	HCIVersion       = 0x0C
	HCIRevision      = 0x1234
	ManufacturerName = 0x0059
)

type sdcState int

const (
	stateReset sdcState = iota
	stateInit
	stateRandRegistered
	stateEnabled
)

type packet struct {
	typ uint8
	b   []byte
}

// Chip holds the state shared by the simulated SDC and MPSL.
type Chip struct {
	mu     sync.Mutex
	irq    Interrupter
	logger sdc.Logger

	// mpsl
	mpslInit   bool
	lowPrioIRQ raw.IRQ
	mpslFault  raw.FaultHandler
	clock      raw.ClockLfCfg
	hfclkCB    func()
	hfclkOn    bool
	highPrio   map[raw.IRQ]int

	// sdc
	state     sdcState
	sdcFault  raw.FaultHandler
	rand      raw.RandSource
	supported map[uint8]bool
	counts    map[uint8]uint8
	callback  func()
	mem       []byte
	addr      [6]byte

	cmds   [][]byte
	data   [][]byte
	events []packet

	trace []string
}

// New returns a chip raising its interrupts through irq, which may be nil.
func New(irq Interrupter) *Chip {
	return &Chip{
		irq:       irq,
		logger:    sdc.GetLogger().ChildLogger(map[string]interface{}{"component": "sim"}),
		highPrio:  map[raw.IRQ]int{},
		supported: map[uint8]bool{},
		counts:    map[uint8]uint8{},
	}
}

// SetLogger replaces the chip's logger.
func (c *Chip) SetLogger(l sdc.Logger) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.logger = l
}

// SDC returns the controller face of the chip.
func (c *Chip) SDC() *SDC {
	return &SDC{c: c}
}

// MPSL returns the service layer face of the chip.
func (c *Chip) MPSL() *MPSL {
	return &MPSL{c: c}
}

// Trace returns the entry points called so far, in order.
func (c *Chip) Trace() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.trace...)
}

// Addr returns the random static address chosen at enable.
func (c *Chip) Addr() [6]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.addr
}

// Scratch returns the memory handed over at enable.
func (c *Chip) Scratch() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mem
}

// HighPriorityCount returns how often the handler for a high priority line ran.
func (c *Chip) HighPriorityCount(src raw.IRQ) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.highPrio[src]
}

// Fault triggers the controller's assertion handler.
func (c *Chip) Fault(file string, line uint32) {
	c.mu.Lock()
	f := c.sdcFault
	c.mu.Unlock()
	if f != nil {
		f(file, line)
	}
}

func (c *Chip) record(format string, args ...interface{}) {
	c.trace = append(c.trace, fmt.Sprintf(format, args...))
}

func (c *Chip) raise(src raw.IRQ) {
	if c.irq != nil {
		c.irq.Raise(src)
	}
}

func (c *Chip) required() int {
	n := MemBase
	n += int(c.counts[raw.CfgTypeAdvCount]) * MemPerAdvertiser
	n += int(c.counts[raw.CfgTypePeripheralCount]) * MemPerPeripheral
	n += int(c.counts[raw.CfgTypeCentralCount]) * MemPerCentral
	return n
}

func roleCost(typ uint8) (int, bool) {
	switch typ {
	case raw.CfgTypeAdvCount:
		return MemPerAdvertiser, true
	case raw.CfgTypePeripheralCount:
		return MemPerPeripheral, true
	case raw.CfgTypeCentralCount:
		return MemPerCentral, true
	}
	return 0, false
}
