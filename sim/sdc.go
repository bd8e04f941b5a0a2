package sim

import (
	"bytes"
	"encoding/binary"

	"github.com/rigado/sdc"
	"github.com/rigado/sdc/hci"
	"github.com/rigado/sdc/hci/cmd"
	"github.com/rigado/sdc/hci/evt"
	"github.com/rigado/sdc/raw"
)

var (
	ePerm       = int32(sdc.ErrNotPermitted)
	eInval      = int32(sdc.ErrInvalidArg)
	eAgain      = int32(sdc.ErrAgain)
	eOpNotSupp  = int32(sdc.ErrOpNotSupported)
	leBufLength = uint16(27)
	leBufCount  = uint8(3)
)

// SDC implements raw.SDC.
type SDC struct {
	c *Chip
}

func (s *SDC) Init(fault raw.FaultHandler) int32 {
	c := s.c
	c.mu.Lock()
	defer c.mu.Unlock()

	c.record("sdc_init")
	if c.state != stateReset {
		return ePerm
	}
	if fault == nil {
		return eInval
	}
	c.sdcFault = fault
	c.state = stateInit
	return 0
}

func (s *SDC) RandSourceRegister(src raw.RandSource) int32 {
	c := s.c
	c.mu.Lock()
	defer c.mu.Unlock()

	c.record("sdc_rand_source_register")
	if c.state != stateInit && c.state != stateRandRegistered {
		return ePerm
	}
	if src.Poll == nil || src.PrioHigh == nil || src.PrioLow == nil {
		return eInval
	}
	c.rand = src
	c.state = stateRandRegistered
	return 0
}

func (s *SDC) SupportAdvertiser() int32 {
	return s.support("sdc_support_adv", raw.CfgTypeAdvCount)
}

func (s *SDC) SupportPeripheral() int32 {
	return s.support("sdc_support_peripheral", raw.CfgTypePeripheralCount)
}

func (s *SDC) SupportCentral() int32 {
	return s.support("sdc_support_central", raw.CfgTypeCentralCount)
}

func (s *SDC) support(name string, typ uint8) int32 {
	c := s.c
	c.mu.Lock()
	defer c.mu.Unlock()

	c.record(name)
	if c.state != stateInit && c.state != stateRandRegistered {
		return ePerm
	}
	c.supported[typ] = true
	return 0
}

func (s *SDC) CfgSet(tag, typ uint8, cfg *raw.Cfg) int32 {
	c := s.c
	c.mu.Lock()
	defer c.mu.Unlock()

	c.record("sdc_cfg_set(%d)", typ)
	if c.state == stateReset || c.state == stateEnabled {
		return ePerm
	}
	if tag != raw.DefaultResourceCfgTag {
		return eInval
	}
	if typ == raw.CfgTypeNone {
		return int32(c.required())
	}

	cost, ok := roleCost(typ)
	if !ok {
		return eOpNotSupp
	}
	if !c.supported[typ] {
		return ePerm
	}
	if cfg == nil || cfg.Count > maxRoleCount {
		return eInval
	}
	c.counts[typ] = cfg.Count
	return int32(cost * int(cfg.Count))
}

func (s *SDC) Enable(callback func(), mem []byte) int32 {
	c := s.c
	c.mu.Lock()
	defer c.mu.Unlock()

	c.record("sdc_enable")
	if c.state != stateRandRegistered {
		return ePerm
	}
	if callback == nil || len(mem) < c.required() {
		return eInval
	}
	c.callback = callback
	c.mem = mem

	// random static address: two most significant bits set
	c.rand.PrioLow(c.addr[:])
	c.addr[5] |= 0xC0

	c.state = stateEnabled
	return 0
}

func (s *SDC) HCICmdPut(b []byte) int32 {
	c := s.c
	c.mu.Lock()
	switch {
	case c.state != stateEnabled:
		c.mu.Unlock()
		return ePerm
	case len(b) < 3 || int(b[2]) != len(b)-3:
		c.mu.Unlock()
		return eInval
	case len(c.cmds) >= maxPendingPackets:
		c.mu.Unlock()
		return eAgain
	}
	c.cmds = append(c.cmds, append([]byte(nil), b...))
	irq := c.lowPrioIRQ
	c.mu.Unlock()

	c.raise(irq)
	return 0
}

func (s *SDC) HCIDataPut(b []byte) int32 {
	c := s.c
	c.mu.Lock()
	switch {
	case c.state != stateEnabled:
		c.mu.Unlock()
		return ePerm
	case len(b) < 4 || int(binary.LittleEndian.Uint16(b[2:4])) != len(b)-4:
		c.mu.Unlock()
		return eInval
	case len(c.data) >= maxPendingPackets:
		c.mu.Unlock()
		return eAgain
	}
	c.data = append(c.data, append([]byte(nil), b...))
	irq := c.lowPrioIRQ
	c.mu.Unlock()

	c.raise(irq)
	return 0
}

func (s *SDC) HCIGet(b []byte, msgType *uint8) int32 {
	c := s.c
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != stateEnabled {
		return ePerm
	}
	if len(c.events) == 0 {
		return eAgain
	}
	p := c.events[0]
	if len(b) < len(p.b) {
		return eInval
	}
	copy(b, p.b)
	*msgType = p.typ
	c.events = c.events[1:]
	return 0
}

// Inject queues a raw packet as if the link layer had produced it and signals the host.
func (c *Chip) Inject(typ uint8, b []byte) {
	c.mu.Lock()
	c.events = append(c.events, packet{typ: typ, b: append([]byte(nil), b...)})
	cb := c.callback
	c.mu.Unlock()

	c.logger.Debugf("inject type %d % X", typ, b)
	if cb != nil {
		cb()
	}
}

// process runs the deferred controller work. Called from LowPriorityProcess.
func (c *Chip) process() {
	c.mu.Lock()
	if c.state != stateEnabled || (len(c.cmds) == 0 && len(c.data) == 0) {
		c.mu.Unlock()
		return
	}

	c.logger.Debugf("processing %d commands, %d data packets", len(c.cmds), len(c.data))
	for _, b := range c.cmds {
		c.events = append(c.events, c.handleCommand(b))
	}
	for _, b := range c.data {
		c.events = append(c.events, c.loopback(b)...)
	}
	c.cmds, c.data = nil, nil
	cb := c.callback
	c.mu.Unlock()

	cb()
}

func (c *Chip) handleCommand(b []byte) packet {
	op := int(binary.LittleEndian.Uint16(b[0:2]))
	params := b[3:]

	switch op {
	case cmd.ResetOpCode:
		return c.complete(op, &cmd.ResetRP{})

	case cmd.SetEventMaskOpCode, cmd.LESetEventMaskOpCode:
		if len(params) != 8 {
			return c.complete(op, &cmd.SetEventMaskRP{Status: uint8(hci.ErrInvalidParams)})
		}
		return c.complete(op, &cmd.SetEventMaskRP{})

	case cmd.ReadLocalVersionInformationOpCode:
		return c.complete(op, &cmd.ReadLocalVersionInformationRP{
			HCIVersion:       HCIVersion,
			HCIRevision:      HCIRevision,
			LMPPALVersion:    HCIVersion,
			ManufacturerName: ManufacturerName,
		})

	case cmd.ReadBDADDROpCode:
		return c.complete(op, &cmd.ReadBDADDRRP{BDADDR: c.addr})

	case cmd.LEReadBufferSizeOpCode:
		return c.complete(op, &cmd.LEReadBufferSizeRP{
			HCLEDataPacketLength:    leBufLength,
			HCTotalNumLEDataPackets: leBufCount,
		})

	case cmd.LERandOpCode:
		var r [8]byte
		c.rand.PrioLow(r[:])
		return c.complete(op, &cmd.LERandRP{RandomNumber: binary.LittleEndian.Uint64(r[:])})

	case cmd.LESetAdvertiseEnableOpCode:
		switch {
		case len(params) != 1:
			return c.complete(op, &cmd.LESetAdvertiseEnableRP{Status: uint8(hci.ErrInvalidParams)})
		case !c.supported[raw.CfgTypeAdvCount]:
			return c.complete(op, &cmd.LESetAdvertiseEnableRP{Status: uint8(hci.ErrCommandDisallowed)})
		}
		return c.complete(op, &cmd.LESetAdvertiseEnableRP{})

	default:
		return commandStatus(op, uint8(hci.ErrUnknownCommand))
	}
}

func (c *Chip) loopback(b []byte) []packet {
	handle := binary.LittleEndian.Uint16(b[0:2]) & 0x0fff

	nocp := []byte{evt.NumberOfCompletedPacketsCode, 5, 1, 0, 0, 1, 0}
	binary.LittleEndian.PutUint16(nocp[3:5], handle)

	return []packet{
		{typ: raw.HCIMsgTypeData, b: b},
		{typ: raw.HCIMsgTypeEvent, b: nocp},
	}
}

// complete builds the Command Complete event for op. Return parameters that
// cannot be encoded raise the controller assertion and answer with a hardware
// failure status. Called with c.mu held.
func (c *Chip) complete(op int, rp interface{}) packet {
	buf := bytes.NewBuffer([]byte{evt.CommandCompleteCode, 0, 1, byte(op), byte(op >> 8)})
	if err := binary.Write(buf, binary.LittleEndian, rp); err != nil {
		c.logger.Errorf("can't encode response to %04x: %v", op, err)
		if c.sdcFault != nil {
			c.sdcFault("sim/sdc.go", uint32(op))
		}
		return commandStatus(op, uint8(hci.ErrHardware))
	}
	b := buf.Bytes()
	b[1] = byte(len(b) - 2)
	return packet{typ: raw.HCIMsgTypeEvent, b: b}
}

func commandStatus(op int, status uint8) packet {
	return packet{
		typ: raw.HCIMsgTypeEvent,
		b:   []byte{evt.CommandStatusCode, 4, status, 1, byte(op), byte(op >> 8)},
	}
}
