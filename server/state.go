package server

import (
	"sync/atomic"

	"github.com/nativeproto/chserver/proto"
)

// LifecycleStage is the per-connection INSERT state machine:
// Default -> (Query(INSERT)) -> InsertPrepare -> InsertStart ->
// Default.
type LifecycleStage int

const (
	LifecycleDefault LifecycleStage = iota
	LifecycleInsertPrepare
	LifecycleInsertStart
)

// QueryState is the per-connection mutable context. It is owned by the
// connection and mutated only by the dispatcher, and it has no lock.
// Other goroutines read it too: the executor's stream reads the atomic
// cancellation flag, and streamResult reads Compression while a result
// is streaming.
type QueryState struct {
	QueryID     string
	Query       string
	Stage       proto.Stage
	Compression bool

	Lifecycle LifecycleStage

	isCancelled        atomic.Bool
	IsConnectionClosed bool
	IsEmpty            bool
	SentAllData        bool

	Insert *InsertSink
}

// SetCancelled marks the query cancelled; observed cooperatively by the
// executor's block stream. streamResult does not read the flag: it keeps
// draining the stream until the executor closes it.
func (s *QueryState) SetCancelled() { s.isCancelled.Store(true) }

// IsCancelled reports whether Cancel has been observed for this query.
func (s *QueryState) IsCancelled() bool { return s.isCancelled.Load() }

// Reset clears all stage-scoped flags and installs the fields of a new
// QueryRequest.
func (s *QueryState) Reset(q *proto.QueryRequest) {
	s.QueryID = q.QueryID
	s.Query = q.Query
	s.Stage = q.Stage
	s.Compression = q.Compression
	s.Lifecycle = LifecycleDefault
	s.isCancelled.Store(false)
	s.IsConnectionClosed = false
	s.IsEmpty = false
	s.SentAllData = false
	s.Insert = nil
}
