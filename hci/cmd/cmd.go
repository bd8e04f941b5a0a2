// Package cmd holds the HCI commands the host side issues during bring-up.
package cmd

import (
	"bytes"
	"encoding/binary"
	"io"
)

// Command opcodes, OGF<<10 | OCF.
const (
	SetEventMaskOpCode                = 0x03<<10 | 0x0001
	ResetOpCode                       = 0x03<<10 | 0x0003
	ReadLocalVersionInformationOpCode = 0x04<<10 | 0x0001
	ReadBDADDROpCode                  = 0x04<<10 | 0x0009
	LESetEventMaskOpCode              = 0x08<<10 | 0x0001
	LEReadBufferSizeOpCode            = 0x08<<10 | 0x0002
	LESetAdvertiseEnableOpCode        = 0x08<<10 | 0x000A
	LERandOpCode                      = 0x08<<10 | 0x0018
)

func marshal(c interface{ Len() int }, v interface{}, b []byte) error {
	buf := bytes.NewBuffer(b)
	buf.Reset()
	if buf.Cap() < c.Len() {
		return io.ErrShortBuffer
	}
	return binary.Write(buf, binary.LittleEndian, v)
}

func unmarshal(v interface{}, b []byte) error {
	return binary.Read(bytes.NewBuffer(b), binary.LittleEndian, v)
}

// Reset implements Reset (0x03|0x0003) [Vol 2, Part E, 7.3.2]
type Reset struct{}

func (c *Reset) String() string { return "Reset (0x03|0x0003)" }

// OpCode returns the opcode of the command.
func (c *Reset) OpCode() int { return ResetOpCode }

// Len returns the length of the command.
func (c *Reset) Len() int { return 0 }

// Marshal serializes the command parameters into binary form.
func (c *Reset) Marshal(b []byte) error { return nil }

// ResetRP returns the return parameter of Reset
type ResetRP struct {
	Status uint8
}

// Unmarshal de-serializes the binary data and stores the result in the receiver.
func (c *ResetRP) Unmarshal(b []byte) error { return unmarshal(c, b) }

// SetEventMask implements Set Event Mask (0x03|0x0001) [Vol 2, Part E, 7.3.1]
type SetEventMask struct {
	EventMask uint64
}

func (c *SetEventMask) String() string { return "Set Event Mask (0x03|0x0001)" }

// OpCode returns the opcode of the command.
func (c *SetEventMask) OpCode() int { return SetEventMaskOpCode }

// Len returns the length of the command.
func (c *SetEventMask) Len() int { return 8 }

// Marshal serializes the command parameters into binary form.
func (c *SetEventMask) Marshal(b []byte) error { return marshal(c, c, b) }

// SetEventMaskRP returns the return parameter of Set Event Mask
type SetEventMaskRP struct {
	Status uint8
}

// Unmarshal de-serializes the binary data and stores the result in the receiver.
func (c *SetEventMaskRP) Unmarshal(b []byte) error { return unmarshal(c, b) }

// ReadLocalVersionInformation implements Read Local Version Information (0x04|0x0001) [Vol 2, Part E, 7.4.1]
type ReadLocalVersionInformation struct{}

func (c *ReadLocalVersionInformation) String() string {
	return "Read Local Version Information (0x04|0x0001)"
}

// OpCode returns the opcode of the command.
func (c *ReadLocalVersionInformation) OpCode() int { return ReadLocalVersionInformationOpCode }

// Len returns the length of the command.
func (c *ReadLocalVersionInformation) Len() int { return 0 }

// Marshal serializes the command parameters into binary form.
func (c *ReadLocalVersionInformation) Marshal(b []byte) error { return nil }

// ReadLocalVersionInformationRP returns the return parameter of Read Local Version Information
type ReadLocalVersionInformationRP struct {
	Status           uint8
	HCIVersion       uint8
	HCIRevision      uint16
	LMPPALVersion    uint8
	ManufacturerName uint16
	LMPPALSubversion uint16
}

// Unmarshal de-serializes the binary data and stores the result in the receiver.
func (c *ReadLocalVersionInformationRP) Unmarshal(b []byte) error { return unmarshal(c, b) }

// ReadBDADDR implements Read BD_ADDR (0x04|0x0009) [Vol 2, Part E, 7.4.6]
type ReadBDADDR struct{}

func (c *ReadBDADDR) String() string { return "Read BD_ADDR (0x04|0x0009)" }

// OpCode returns the opcode of the command.
func (c *ReadBDADDR) OpCode() int { return ReadBDADDROpCode }

// Len returns the length of the command.
func (c *ReadBDADDR) Len() int { return 0 }

// Marshal serializes the command parameters into binary form.
func (c *ReadBDADDR) Marshal(b []byte) error { return nil }

// ReadBDADDRRP returns the return parameter of Read BD_ADDR
type ReadBDADDRRP struct {
	Status uint8
	BDADDR [6]byte
}

// Unmarshal de-serializes the binary data and stores the result in the receiver.
func (c *ReadBDADDRRP) Unmarshal(b []byte) error { return unmarshal(c, b) }

// LESetEventMask implements LE Set Event Mask (0x08|0x0001) [Vol 2, Part E, 7.8.1]
type LESetEventMask struct {
	LEEventMask uint64
}

func (c *LESetEventMask) String() string { return "LE Set Event Mask (0x08|0x0001)" }

// OpCode returns the opcode of the command.
func (c *LESetEventMask) OpCode() int { return LESetEventMaskOpCode }

// Len returns the length of the command.
func (c *LESetEventMask) Len() int { return 8 }

// Marshal serializes the command parameters into binary form.
func (c *LESetEventMask) Marshal(b []byte) error { return marshal(c, c, b) }

// LESetEventMaskRP returns the return parameter of LE Set Event Mask
type LESetEventMaskRP struct {
	Status uint8
}

// Unmarshal de-serializes the binary data and stores the result in the receiver.
func (c *LESetEventMaskRP) Unmarshal(b []byte) error { return unmarshal(c, b) }

// LEReadBufferSize implements LE Read Buffer Size (0x08|0x0002) [Vol 2, Part E, 7.8.2]
type LEReadBufferSize struct{}

func (c *LEReadBufferSize) String() string { return "LE Read Buffer Size (0x08|0x0002)" }

// OpCode returns the opcode of the command.
func (c *LEReadBufferSize) OpCode() int { return LEReadBufferSizeOpCode }

// Len returns the length of the command.
func (c *LEReadBufferSize) Len() int { return 0 }

// Marshal serializes the command parameters into binary form.
func (c *LEReadBufferSize) Marshal(b []byte) error { return nil }

// LEReadBufferSizeRP returns the return parameter of LE Read Buffer Size
type LEReadBufferSizeRP struct {
	Status                  uint8
	HCLEDataPacketLength    uint16
	HCTotalNumLEDataPackets uint8
}

// Unmarshal de-serializes the binary data and stores the result in the receiver.
func (c *LEReadBufferSizeRP) Unmarshal(b []byte) error { return unmarshal(c, b) }

// LESetAdvertiseEnable implements LE Set Advertise Enable (0x08|0x000A) [Vol 2, Part E, 7.8.9]
type LESetAdvertiseEnable struct {
	AdvertisingEnable uint8
}

func (c *LESetAdvertiseEnable) String() string { return "LE Set Advertise Enable (0x08|0x000A)" }

// OpCode returns the opcode of the command.
func (c *LESetAdvertiseEnable) OpCode() int { return LESetAdvertiseEnableOpCode }

// Len returns the length of the command.
func (c *LESetAdvertiseEnable) Len() int { return 1 }

// Marshal serializes the command parameters into binary form.
func (c *LESetAdvertiseEnable) Marshal(b []byte) error { return marshal(c, c, b) }

// LESetAdvertiseEnableRP returns the return parameter of LE Set Advertise Enable
type LESetAdvertiseEnableRP struct {
	Status uint8
}

// Unmarshal de-serializes the binary data and stores the result in the receiver.
func (c *LESetAdvertiseEnableRP) Unmarshal(b []byte) error { return unmarshal(c, b) }

// LERand implements LE Rand (0x08|0x0018) [Vol 2, Part E, 7.8.23]
type LERand struct{}

func (c *LERand) String() string { return "LE Rand (0x08|0x0018)" }

// OpCode returns the opcode of the command.
func (c *LERand) OpCode() int { return LERandOpCode }

// Len returns the length of the command.
func (c *LERand) Len() int { return 0 }

// Marshal serializes the command parameters into binary form.
func (c *LERand) Marshal(b []byte) error { return nil }

// LERandRP returns the return parameter of LE Rand
type LERandRP struct {
	Status       uint8
	RandomNumber uint64
}

// Unmarshal de-serializes the binary data and stores the result in the receiver.
func (c *LERandRP) Unmarshal(b []byte) error { return unmarshal(c, b) }
