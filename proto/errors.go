package proto

import "github.com/go-faster/errors"

// ErrWouldBlock signals that a Reader does not yet hold enough bytes to
// decode the value being read. It is not an error in the usual sense: the
// caller owns the backing buffer and is expected to read more bytes from
// the socket and retry the whole decode from a fresh Reader over the same
// (now longer) buffer. ErrWouldBlock must never be wrapped with context —
// callers use errors.Is against this exact sentinel.
var ErrWouldBlock = errors.New("proto: would block")

// MalformedError reports a structurally invalid packet: bytes were
// present and consumed but did not parse, as opposed to ErrWouldBlock's
// "not enough bytes yet". It is always fatal to the connection.
type MalformedError struct {
	Reason string
}

func (e *MalformedError) Error() string {
	return "proto: malformed: " + e.Reason
}

// Malformed builds a *MalformedError for the given reason.
func Malformed(reason string) error {
	return &MalformedError{Reason: reason}
}

// IsWouldBlock reports whether err is (or wraps) ErrWouldBlock.
func IsWouldBlock(err error) bool {
	return errors.Is(err, ErrWouldBlock)
}
