package sdc

import (
	"fmt"
	"math"

	"github.com/pkg/errors"
)

// Error is the signed status code returned by a controller or MPSL entry point.
// Codes outside the known table compare equal to ErrOther under errors.Is.
type Error int32

// Controller status codes.
const (
	ErrNotPermitted   Error = -1
	ErrInvalidArg     Error = -22
	ErrAgain          Error = -35
	ErrOpNotSupported Error = -45
	ErrOther          Error = math.MinInt32
)

var errorStrings = map[Error]string{
	ErrNotPermitted:   "operation not permitted",
	ErrInvalidArg:     "invalid argument",
	ErrAgain:          "resource temporarily unavailable",
	ErrOpNotSupported: "operation not supported",
}

// Status converts a raw return value. Zero is success, anything else is an Error.
func Status(ret int32) error {
	if ret == 0 {
		return nil
	}
	return Error(ret)
}

func (e Error) canonical() Error {
	if _, ok := errorStrings[e]; ok {
		return e
	}
	return ErrOther
}

func (e Error) Error() string {
	if s, ok := errorStrings[e]; ok {
		return s
	}
	return fmt.Sprintf("controller error (%d)", int32(e))
}

// Is maps unknown codes onto ErrOther.
func (e Error) Is(target error) bool {
	t, ok := target.(Error)
	if !ok {
		return false
	}
	return e.canonical() == t.canonical()
}

// Recoverable reports whether retrying after the next wake can succeed.
func (e Error) Recoverable() bool {
	return e == ErrAgain
}

// IsAgain reports whether err is the would-block code somewhere in its chain.
func IsAgain(err error) bool {
	return errors.Is(err, ErrAgain)
}

var (
	// ErrConfigurationRejected is matched by every RejectedError.
	ErrConfigurationRejected = errors.New("configuration rejected")

	// ErrInsufficientMemory means the scratch buffer is smaller than the negotiated requirement.
	ErrInsufficientMemory = errors.New("insufficient scratch memory")

	// ErrUnsupportedFrameType is returned when a buffered frame carries a tag that cannot be submitted.
	ErrUnsupportedFrameType = errors.New("unsupported hci frame type")

	// ErrFraming means a packet fetched from the controller could not be framed.
	ErrFraming = errors.New("hci framing error")
)

// RejectedError is returned when a startup call fails. Startup cannot continue past it.
type RejectedError struct {
	Op   string
	Code Error
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("%s rejected: %v", e.Op, e.Code)
}

func (e *RejectedError) Unwrap() error {
	return e.Code
}

func (e *RejectedError) Is(target error) bool {
	return target == ErrConfigurationRejected
}

// Reject wraps a nonzero status from op, returning nil on success.
func Reject(op string, ret int32) error {
	if ret == 0 {
		return nil
	}
	return &RejectedError{Op: op, Code: Error(ret)}
}

// FaultError is raised, never returned, when the controller reports an internal assertion.
type FaultError struct {
	Source string
	File   string
	Line   uint32
}

func (e *FaultError) Error() string {
	return fmt.Sprintf("%s assertion failed at file %s line %d", e.Source, e.File, e.Line)
}
