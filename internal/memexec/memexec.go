// Package memexec is a minimal in-memory demo Executor, the host side
// of the executor contract, included here only so the library is
// runnable end to end. It is not part of the protocol core.
package memexec

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/nativeproto/chserver/proto"
	"github.com/nativeproto/chserver/server"
)

// Config names the identity memexec advertises during the handshake.
type Config struct {
	Name               string
	VersionMajor       uint64
	VersionMinor       uint64
	VersionPatch       uint64
	TCPProtocolVersion uint64
	Timezone           string
	DisplayName        string
	WithStackTrace     bool
}

// DefaultConfig mirrors a recent, unremarkable ClickHouse server
// identity — enough to satisfy a real client's handshake expectations.
func DefaultConfig() Config {
	return Config{
		Name:               "ClickHouse",
		VersionMajor:       24,
		VersionMinor:       3,
		VersionPatch:       1,
		TCPProtocolVersion: proto.ClientTCPProtocolVersion,
		Timezone:           "UTC",
		DisplayName:        "chserver-demo",
	}
}

// Executor is a demo server.Executor backed by an in-memory table set,
// concurrency-safe via a sync.RWMutex-guarded map. It understands
// exactly two query shapes: "INSERT INTO <table> ..." appends pushed
// blocks to an in-memory table, anything else returns a single
// informational row. It exists to exercise the wire protocol end to
// end, not to be a query engine.
type Executor struct {
	cfg Config

	mu     sync.RWMutex
	tables map[string][]*proto.Block

	rowsProcessed  atomic.Uint64
	bytesProcessed atomic.Uint64
}

// New returns an Executor configured with cfg.
func New(cfg Config) *Executor {
	return &Executor{cfg: cfg, tables: make(map[string][]*proto.Block)}
}

func (e *Executor) DBMSName() string               { return e.cfg.Name }
func (e *Executor) DBMSVersionMajor() uint64       { return e.cfg.VersionMajor }
func (e *Executor) DBMSVersionMinor() uint64       { return e.cfg.VersionMinor }
func (e *Executor) DBMSVersionPatch() uint64       { return e.cfg.VersionPatch }
func (e *Executor) DBMSTCPProtocolVersion() uint64 { return e.cfg.TCPProtocolVersion }
func (e *Executor) Timezone() string               { return e.cfg.Timezone }
func (e *Executor) ServerDisplayName() string      { return e.cfg.DisplayName }
func (e *Executor) WithStackTrace() bool            { return e.cfg.WithStackTrace }

// Progress reports cumulative rows processed across every query this
// Executor has ever run — a coarse, demo-grade snapshot, not scoped to
// the in-flight query. Nothing increments the byte counter, so Bytes is
// always 0.
func (e *Executor) Progress() proto.Progress {
	return proto.Progress{
		Rows:  e.rowsProcessed.Load(),
		Bytes: e.bytesProcessed.Load(),
	}
}

// ExecuteQuery implements server.Executor.
func (e *Executor) ExecuteQuery(ctx context.Context, state *server.QueryState) (server.QueryResponse, error) {
	trimmed := strings.TrimSpace(state.Query)
	if table, ok := insertTarget(trimmed); ok {
		sink := server.NewInsertSink()
		go e.drainInsert(table, sink)
		return server.QueryResponse{Insert: sink}, nil
	}
	return server.QueryResponse{Blocks: e.selectEcho(trimmed)}, nil
}

func insertTarget(query string) (string, bool) {
	upper := strings.ToUpper(query)
	if !strings.HasPrefix(upper, "INSERT INTO") {
		return "", false
	}
	rest := strings.TrimSpace(query[len("INSERT INTO"):])
	fields := strings.Fields(rest)
	if len(fields) == 0 {
		return "", false
	}
	return fields[0], true
}

func (e *Executor) drainInsert(table string, sink *server.InsertSink) {
	for block := range sink.Blocks() {
		e.mu.Lock()
		e.tables[table] = append(e.tables[table], block)
		e.mu.Unlock()
		e.rowsProcessed.Add(uint64(block.Rows()))
	}
}

func (e *Executor) selectEcho(query string) <-chan server.Result[*proto.Block] {
	ch := make(chan server.Result[*proto.Block], 1)
	col := proto.NewColStr()
	col.Append(fmt.Sprintf("memexec: %s", query))
	block := &proto.Block{
		Info:    proto.DefaultBlockInfo(),
		Columns: []proto.NamedColumn{{Name: "result", Data: col}},
	}
	e.rowsProcessed.Add(1)
	ch <- server.Ok(block)
	close(ch)
	return ch
}

var _ server.Executor = (*Executor)(nil)
