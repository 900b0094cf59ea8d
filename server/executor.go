package server

import (
	"context"

	"github.com/nativeproto/chserver/proto"
)

// Result carries either a decoded value or a terminal error, the shape
// streamResult (stream.go) drains from a SELECT query's block channel.
type Result[T any] struct {
	Value T
	Err   error
}

// Ok wraps a successful value.
func Ok[T any](v T) Result[T] { return Result[T]{Value: v} }

// ErrResult wraps a terminal error.
func ErrResult[T any](err error) Result[T] { return Result[T]{Err: err} }

// QueryResponse is what Executor.ExecuteQuery hands back: exactly one
// of Blocks (a SELECT-style lazy block stream) or Insert (an owned
// INSERT sink), never both.
type QueryResponse struct {
	Blocks <-chan Result[*proto.Block]
	Insert *InsertSink
}

// ServerInfo is the identity the host advertises during the handshake
// and in error responses.
type ServerInfo interface {
	DBMSName() string
	DBMSVersionMajor() uint64
	DBMSVersionMinor() uint64
	DBMSVersionPatch() uint64
	DBMSTCPProtocolVersion() uint64
	Timezone() string
	ServerDisplayName() string
	WithStackTrace() bool
	// Progress reports the current cumulative (rows, bytes, total-rows)
	// snapshot for the query in flight; streamResult calls it whenever
	// the pacing rule allows another Progress frame.
	Progress() proto.Progress
}

// Executor is the capability contract a host application implements to
// turn a decoded query into results. It must be safe
// for concurrent use: the same Executor is shared across every
// connection this Listener accepts.
type Executor interface {
	ServerInfo
	// ExecuteQuery runs state.Query and returns a QueryResponse. It may
	// block; cancellation is cooperative via state.IsCancelled, polled
	// at block boundaries.
	ExecuteQuery(ctx context.Context, state *QueryState) (QueryResponse, error)
}
