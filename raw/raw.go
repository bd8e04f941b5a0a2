// Package raw describes the controller and MPSL entry points consumed by this module.
//
// The interfaces mirror the vendor C ABI one to one. Every entry point returns the
// raw signed status; translating it is left to the callers.
package raw

// HCIMsgBufferMaxSize is the largest packet HCIGet may write, excluding the type byte.
const HCIMsgBufferMaxSize = 259

// Resource configuration tags and types for CfgSet.
const (
	DefaultResourceCfgTag uint8 = 0

	CfgTypeNone            uint8 = 0
	CfgTypeCentralCount    uint8 = 1
	CfgTypePeripheralCount uint8 = 2
	CfgTypeBufferCfg       uint8 = 3
	CfgTypeEventLength     uint8 = 4
	CfgTypeAdvCount        uint8 = 5
)

// HCI message types reported by HCIGet.
const (
	HCIMsgTypeEvent uint8 = 0x04
	HCIMsgTypeData  uint8 = 0x02
)

// Cfg is the payload of a CfgSet call. Only the field matching the type is read.
type Cfg struct {
	Count uint8
}

// RandSource are the entropy hooks handed to the controller. They may be
// called from any context, interrupt level included.
type RandSource struct {
	Poll     func(b []byte)
	PrioHigh func(b []byte) uint8
	PrioLow  func(b []byte) uint8
}

// FaultHandler is called by the controller when one of its internal assertions fails.
type FaultHandler func(file string, line uint32)

// SDC is the link layer controller.
type SDC interface {
	Init(fault FaultHandler) int32
	Enable(callback func(), mem []byte) int32
	RandSourceRegister(src RandSource) int32

	SupportAdvertiser() int32
	SupportPeripheral() int32
	SupportCentral() int32

	// CfgSet returns a negative status on failure. On success it returns the memory
	// required by the configuration so far.
	CfgSet(tag, typ uint8, cfg *Cfg) int32

	HCICmdPut(b []byte) int32
	HCIDataPut(b []byte) int32
	HCIGet(b []byte, msgType *uint8) int32
}

// IRQ identifies an interrupt line serviced by the MPSL.
type IRQ int

const (
	IRQRadio IRQ = iota
	IRQTimer0
	IRQRTC0
	IRQPowerClock
	IRQLowPriority
)

func (i IRQ) String() string {
	switch i {
	case IRQRadio:
		return "RADIO"
	case IRQTimer0:
		return "TIMER0"
	case IRQRTC0:
		return "RTC0"
	case IRQPowerClock:
		return "POWER_CLOCK"
	case IRQLowPriority:
		return "SWI0_EGU0"
	default:
		return "IRQ?"
	}
}

// ClockLfCfg matches mpsl_clock_lfclk_cfg_t field for field.
type ClockLfCfg struct {
	Source               uint8
	RCCtiv               uint8
	RCTempCtiv           uint8
	AccuracyPPM          uint16
	SkipWaitLfclkStarted bool
}

// MPSL is the multiprotocol service layer.
type MPSL interface {
	Init(clk *ClockLfCfg, lowPrioIRQ IRQ, fault FaultHandler) int32
	LowPriorityProcess()
	HFClkRequest(started func()) int32

	IRQRadioHandler()
	IRQTimer0Handler()
	IRQRTC0Handler()
	IRQClockHandler()
}
