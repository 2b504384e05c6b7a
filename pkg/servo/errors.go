package servo

import (
	"context"
	"errors"
	"fmt"

	"github.com/gwillem/dxlservo/pkg/convert"
	"github.com/gwillem/dxlservo/pkg/profile"
	"github.com/gwillem/dxlservo/pkg/transport"
)

var (
	ErrEmptyQueue        = errors.New("goal queue is empty")
	ErrIndexOutOfRange   = errors.New("goal index out of range")
	ErrOutOfRange        = errors.New("value out of range")
	ErrZeroMotion        = errors.New("zero velocity or acceleration")
	ErrInputPort         = errors.New("external port is in an input mode")
	ErrLockedOut         = errors.New("servo locked out after overheating")
	ErrRebootUnsupported = errors.New("reboot requires protocol 2.0")
	ErrStillSettling     = errors.New("servo still settling")

	// Re-exported so callers need not import the lower packages.
	ErrLimitNotConfigured = convert.ErrLimitNotConfigured
	ErrUnsupported        = profile.ErrUnsupported
)

// ValidationError is returned when a request is refused before anything is
// transmitted.
type ValidationError struct {
	Op    string
	Value any
	Err   error
}

func (e *ValidationError) Error() string {
	if e.Value == nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %v: %v", e.Op, e.Value, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

func invalid(op string, value any, err error) error {
	return &ValidationError{Op: op, Value: value, Err: err}
}

// SettleError is returned when waiting for motion to finish was cancelled
// or timed out. The servo may still be moving; call Settle to keep waiting.
type SettleError struct {
	Polls int
	Err   error
}

func (e *SettleError) Error() string {
	return fmt.Sprintf("%v after %d polls: %v", ErrStillSettling, e.Polls, e.Err)
}

func (e *SettleError) Unwrap() []error { return []error{ErrStillSettling, e.Err} }

// Class groups errors by how a caller should react to them.
type Class int

const (
	ClassNone Class = iota
	// ClassValidation: the request was refused locally, nothing was sent.
	ClassValidation
	// ClassComm: the exchange failed; cached state is unchanged.
	ClassComm
	// ClassDevice: the device reported an error; check faults.
	ClassDevice
	// ClassSettling: the goal was sent but motion has not finished.
	ClassSettling
	ClassUnknown
)

func (c Class) String() string {
	switch c {
	case ClassNone:
		return "none"
	case ClassValidation:
		return "validation"
	case ClassComm:
		return "comm"
	case ClassDevice:
		return "device"
	case ClassSettling:
		return "settling"
	default:
		return "unknown"
	}
}

// ClassOf classifies err.
func ClassOf(err error) Class {
	if err == nil {
		return ClassNone
	}
	var (
		ve *ValidationError
		se *SettleError
		de *transport.DeviceError
		ce *transport.CommError
	)
	switch {
	case errors.As(err, &ve):
		return ClassValidation
	case errors.As(err, &se):
		return ClassSettling
	case errors.As(err, &de):
		return ClassDevice
	case errors.As(err, &ce):
		return ClassComm
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return ClassComm
	}
	return ClassUnknown
}
