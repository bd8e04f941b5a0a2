package evt

// Event codes [Vol 2, Part E, 7.7].
const (
	HardwareErrorCode            = 0x10
	CommandCompleteCode          = 0x0E
	CommandStatusCode            = 0x0F
	NumberOfCompletedPacketsCode = 0x13
	LEMetaCode                   = 0x3E
)

// CommandComplete is the parameter block of a Command Complete event.
type CommandComplete []byte

// CommandStatus is the parameter block of a Command Status event.
type CommandStatus []byte

// NumberOfCompletedPackets is the parameter block of a Number Of Completed Packets event.
type NumberOfCompletedPackets []byte

// HardwareError is the parameter block of a Hardware Error event.
type HardwareError []byte

func (e CommandComplete) NumHCICommandPackets() uint8 {
	v, _ := e.NumHCICommandPacketsWErr()
	return v
}

func (e CommandComplete) CommandOpcode() uint16 {
	v, _ := e.CommandOpcodeWErr()
	return v
}

func (e CommandComplete) ReturnParameters() []byte {
	v, _ := e.ReturnParametersWErr()
	return v
}

func (e CommandStatus) Status() uint8 {
	v, _ := e.StatusWErr()
	return v
}

func (e CommandStatus) NumHCICommandPackets() uint8 {
	v, _ := e.NumHCICommandPacketsWErr()
	return v
}

func (e CommandStatus) CommandOpcode() uint16 {
	v, _ := e.CommandOpcodeWErr()
	return v
}

// Valid reports whether the event is long enough to carry all of its fields.
func (e CommandStatus) Valid() bool {
	return len(e) >= 4
}

func (e NumberOfCompletedPackets) NumberOfHandles() uint8 {
	v, _ := e.NumberOfHandlesWErr()
	return v
}

func (e NumberOfCompletedPackets) ConnectionHandle(i int) uint16 {
	v, _ := e.ConnectionHandleWErr(i)
	return v
}

func (e NumberOfCompletedPackets) HCNumOfCompletedPackets(i int) uint16 {
	v, _ := e.HCNumOfCompletedPacketsWErr(i)
	return v
}

func (e HardwareError) HardwareCode() uint8 {
	v, _ := e.HardwareCodeWErr()
	return v
}
