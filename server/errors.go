package server

import (
	"fmt"

	"github.com/nativeproto/chserver/compress"
	"github.com/nativeproto/chserver/proto"
)

// DriverError is a protocol-level error, always fatal to the
// connection.
type DriverError struct {
	Kind DriverErrorKind
	// Packet kind byte, set only for UnknownPacket/UnexpectedPacket.
	PacketKind byte
	// Reason, set only for Malformed.
	Reason string
	// Checksum, set only for ChecksumMismatch.
	Checksum *compress.CorruptedDataErr
}

// DriverErrorKind discriminates the DriverError variants.
type DriverErrorKind int

const (
	ErrUnknownPacket DriverErrorKind = iota
	ErrUnexpectedPacket
	ErrMalformedFrame
	ErrChecksumMismatch
)

func (e *DriverError) Error() string {
	switch e.Kind {
	case ErrUnknownPacket:
		return fmt.Sprintf("server: unknown packet kind %#x", e.PacketKind)
	case ErrUnexpectedPacket:
		return fmt.Sprintf("server: unexpected packet kind %#x for current state", e.PacketKind)
	case ErrMalformedFrame:
		return "server: malformed frame: " + e.Reason
	case ErrChecksumMismatch:
		return "server: " + e.Checksum.Error()
	default:
		return "server: driver error"
	}
}

// IsHTTPMisroute reports whether e is an UnknownPacket whose kind byte
// is the leading byte of a misrouted HTTP request line.
func (e *DriverError) IsHTTPMisroute() bool {
	return e != nil && e.Kind == ErrUnknownPacket && proto.IsHTTPMisroute(uint64(e.PacketKind))
}

func unknownPacket(kind byte) *DriverError {
	return &DriverError{Kind: ErrUnknownPacket, PacketKind: kind}
}

func unexpectedPacket(kind byte) *DriverError {
	return &DriverError{Kind: ErrUnexpectedPacket, PacketKind: kind}
}

func malformedFrame(reason string) *DriverError {
	return &DriverError{Kind: ErrMalformedFrame, Reason: reason}
}

func checksumMismatch(c *compress.CorruptedDataErr) *DriverError {
	return &DriverError{Kind: ErrChecksumMismatch, Checksum: c}
}

// Exception is the error taxonomy entry returned by an Executor: a
// numeric error code, message, and optional stack trace, serialized as
// SERVER_EXCEPTION.
type Exception struct {
	Code       int32
	Message    string
	StackTrace string
}

func (e *Exception) Error() string {
	return fmt.Sprintf("server: exception %d: %s", e.Code, e.Message)
}

// toWireException converts an Exception into the wire-level
// proto.Exception, honoring withStackTrace the way ClickHouse does:
// the field is blanked unless the server is configured to disclose it.
func (e *Exception) toWireException(withStackTrace bool) proto.Exception {
	stack := e.StackTrace
	if !withStackTrace {
		stack = ""
	}
	return proto.Exception{
		Code:       e.Code,
		Name:       "",
		Message:    e.Message,
		StackTrace: stack,
		Nested:     false,
	}
}
