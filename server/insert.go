package server

import (
	"context"
	"sync"

	"github.com/go-faster/errors"

	"github.com/nativeproto/chserver/proto"
)

// insertSinkCapacity bounds how many blocks may sit in an InsertSink's
// channel before Push blocks. Large enough to absorb one compressed
// frame's worth of blocks while the executor catches up, small enough
// to bound memory on a slow consumer.
const insertSinkCapacity = 16

// ErrSinkClosed is returned by Push once the sink has been closed.
var ErrSinkClosed = errors.New("server: insert sink closed")

// InsertSink is the bounded-channel handle an executor owns for the
// duration of one INSERT: explicitly owned and unusable after Close,
// the same way a pooled connection handle is unusable after release.
//
// Push and Close are only ever called from the connection's single
// dispatch goroutine (transport dispatch is serialized),
// so the closed flag below needs no atomic — only Blocks() is read
// from the separate executor goroutine.
type InsertSink struct {
	ch     chan *proto.Block
	once   sync.Once
	closed bool
}

// NewInsertSink returns an open InsertSink with the standard bounded
// capacity.
func NewInsertSink() *InsertSink {
	return &InsertSink{ch: make(chan *proto.Block, insertSinkCapacity)}
}

// Push enqueues a decoded INSERT block, blocking until the executor
// drains space or ctx is cancelled.
func (s *InsertSink) Push(ctx context.Context, block *proto.Block) error {
	if s.closed {
		return ErrSinkClosed
	}
	select {
	case s.ch <- block:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close signals end-of-input to the executor. Safe to call more than
// once.
func (s *InsertSink) Close() {
	s.once.Do(func() {
		s.closed = true
		close(s.ch)
	})
}

// Blocks returns the channel the executor ranges over to receive
// pushed INSERT blocks; it closes once Close has been called and all
// buffered blocks have been drained.
func (s *InsertSink) Blocks() <-chan *proto.Block { return s.ch }
