package device

import (
	"errors"
	"fmt"
)

// ErrorClass categorizes failures so callers can distinguish bad arguments
// from device/driver trouble without string matching.
type ErrorClass int

const (
	// ErrClassArgument marks errors detected synchronously before any device
	// work is issued: nil pointers, missing execution context, bad extents.
	ErrClassArgument ErrorClass = iota
	// ErrClassMemory marks allocation failures, host or device side.
	ErrClassMemory
	// ErrClassDevice marks failures reported by the device itself: rejected
	// kernel launches, failed copies, invalid streams.
	ErrClassDevice
)

func (c ErrorClass) String() string {
	switch c {
	case ErrClassArgument:
		return "argument"
	case ErrClassMemory:
		return "memory"
	case ErrClassDevice:
		return "device"
	default:
		return "unknown"
	}
}

// Error is a structured device error carrying the failing operation and the
// underlying cause, if any.
type Error struct {
	Class   ErrorClass
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s error in %s: %s: %v", e.Class, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s error in %s: %s", e.Class, e.Op, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// NewArgumentError reports an invalid argument detected before device work.
func NewArgumentError(op, message string) error {
	return &Error{Class: ErrClassArgument, Op: op, Message: message}
}

// NewMemoryError reports an allocation failure.
func NewMemoryError(op, message string, err error) error {
	return &Error{Class: ErrClassMemory, Op: op, Message: message, Err: err}
}

// NewDeviceError reports a failure surfaced by the device or driver.
func NewDeviceError(op, message string, err error) error {
	return &Error{Class: ErrClassDevice, Op: op, Message: message, Err: err}
}

// IsArgumentError reports whether err is argument-class.
func IsArgumentError(err error) bool { return hasClass(err, ErrClassArgument) }

// IsMemoryError reports whether err is memory-class.
func IsMemoryError(err error) bool { return hasClass(err, ErrClassMemory) }

// IsDeviceError reports whether err is device-class.
func IsDeviceError(err error) bool { return hasClass(err, ErrClassDevice) }

func hasClass(err error, c ErrorClass) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Class == c
	}
	return false
}
