package protocol

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

var (
	// ErrTimeout is returned when no full response line arrives in time.
	ErrTimeout = errors.New("timeout waiting for response")
	// ErrClosed is returned once the transport has failed or been closed.
	ErrClosed = errors.New("transport closed")
)

// IOError is a transport-level read or write failure. The driver never
// recovers from one.
type IOError struct {
	Op  string // "write" or "read"
	Err error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s error: %v", e.Op, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// ParseError is a response line that does not match the expected shape.
type ParseError struct {
	Raw    string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("cannot parse response %q: %s", e.Raw, e.Reason)
}

// AckRejectedError is a response other than "ok" after a write command.
type AckRejectedError struct {
	Raw string
}

func (e *AckRejectedError) Error() string {
	return fmt.Sprintf("command not acknowledged: device replied %q", e.Raw)
}

// UnknownCodeError is a T90 index returned by the device that the table does not hold.
type UnknownCodeError struct {
	Code int
}

func (e *UnknownCodeError) Error() string {
	return fmt.Sprintf("unknown t90 code %d", e.Code)
}

// UnknownNameError is a T90 name the table does not hold.
type UnknownNameError struct {
	Name  string
	Valid []string
}

func (e *UnknownNameError) Error() string {
	if len(e.Valid) == 0 {
		return fmt.Sprintf("unknown t90 setting %q", e.Name)
	}
	return fmt.Sprintf("unknown t90 setting %q (valid: %s)", e.Name, strings.Join(e.Valid, ", "))
}

// VerificationError is a readback that differs from the value just written.
// The device may be left in the read back state.
type VerificationError struct {
	Property string
	Want     string
	Got      string
}

func (e *VerificationError) Error() string {
	return fmt.Sprintf("%s not applied: wrote %s, device reports %s", e.Property, e.Want, e.Got)
}

// RangeError is a setter argument outside the accepted range.
type RangeError struct {
	Property string
	Value    float64
	Min, Max float64
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("%s %v out of range [%v, %v]", e.Property, e.Value, e.Min, e.Max)
}
