package hci

import "fmt"

// ErrCommand is the status returned by the controller for a failed command [Vol 2, Part D, 1.3].
type ErrCommand byte

// HCI Command Errors.
const (
	ErrUnknownCommand       ErrCommand = 0x01
	ErrConnID               ErrCommand = 0x02
	ErrHardware             ErrCommand = 0x03
	ErrMemoryCapacity       ErrCommand = 0x07
	ErrConnLimit            ErrCommand = 0x09
	ErrCommandDisallowed    ErrCommand = 0x0C
	ErrLimitedResource      ErrCommand = 0x0D
	ErrUnsupportedFeature   ErrCommand = 0x11
	ErrInvalidParams        ErrCommand = 0x12
	ErrLocalHost            ErrCommand = 0x16
	ErrUnspecified          ErrCommand = 0x1F
	ErrControllerBusy       ErrCommand = 0x3A
	ErrUnacceptableConnIntv ErrCommand = 0x3B
)

var errCmd = map[ErrCommand]string{
	ErrUnknownCommand:       "unknown HCI command",
	ErrConnID:               "unknown connection identifier",
	ErrHardware:             "hardware failure",
	ErrMemoryCapacity:       "memory capacity exceeded",
	ErrConnLimit:            "connection limit exceeded",
	ErrCommandDisallowed:    "command disallowed",
	ErrLimitedResource:      "connection rejected due to limited resources",
	ErrUnsupportedFeature:   "unsupported feature or parameter value",
	ErrInvalidParams:        "invalid HCI command parameters",
	ErrLocalHost:            "connection terminated by local host",
	ErrUnspecified:          "unspecified error",
	ErrControllerBusy:       "controller busy",
	ErrUnacceptableConnIntv: "unacceptable connection parameters",
}

func (e ErrCommand) Error() string {
	if s, ok := errCmd[e]; ok {
		return s
	}
	return fmt.Sprintf("hci error 0x%02X", byte(e))
}
