package server_test

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nativeproto/chserver/compress"
	"github.com/nativeproto/chserver/proto"
	"github.com/nativeproto/chserver/server"
)

// fakeExecutor is a minimal server.Executor double: each test configures
// the ExecuteQuery closure it needs and leaves the rest at their zero
// values, mirroring how memexec.Executor implements the same contract.
type fakeExecutor struct {
	revision    uint64
	executeFunc func(ctx context.Context, state *server.QueryState) (server.QueryResponse, error)
}

func (e *fakeExecutor) DBMSName() string              { return "ClickHouse" }
func (e *fakeExecutor) DBMSVersionMajor() uint64       { return 24 }
func (e *fakeExecutor) DBMSVersionMinor() uint64       { return 3 }
func (e *fakeExecutor) DBMSVersionPatch() uint64       { return 1 }
func (e *fakeExecutor) DBMSTCPProtocolVersion() uint64 { return e.revision }
func (e *fakeExecutor) Timezone() string               { return "UTC" }
func (e *fakeExecutor) ServerDisplayName() string      { return "chserver-test" }
func (e *fakeExecutor) WithStackTrace() bool           { return false }
func (e *fakeExecutor) Progress() proto.Progress       { return proto.Progress{} }

func (e *fakeExecutor) ExecuteQuery(ctx context.Context, state *server.QueryState) (server.QueryResponse, error) {
	if e.executeFunc == nil {
		return server.QueryResponse{}, nil
	}
	return e.executeFunc(ctx, state)
}

var _ server.Executor = (*fakeExecutor)(nil)

// testClientRevision is used for every test handshake: above
// FeatureOpenTelemetry so QueryRequest encoding exercises every
// revision-gated ClientInfo field.
const testClientRevision = proto.FeatureParameters

func startServer(t *testing.T, exec server.Executor) net.Conn {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	l := server.NewListener(ln, exec)
	ctx, cancel := context.WithCancel(context.Background())
	go l.Serve(ctx)
	t.Cleanup(func() {
		cancel()
		ln.Close()
	})

	conn, err := net.Dial("tcp", ln.Addr().String())
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

// --- client-side packet construction -------------------------------

func writePacket(t *testing.T, conn net.Conn, b *proto.Buffer) {
	t.Helper()
	_, err := conn.Write(b.Buf)
	require.NoError(t, err)
}

func sendHello(t *testing.T, conn net.Conn, revision uint64) {
	t.Helper()
	b := proto.NewBuffer(64)
	b.PutUVarint(uint64(proto.ClientCodeHello))
	b.PutStr("chtest")
	b.PutUVarint(1)
	b.PutUVarint(0)
	b.PutUVarint(revision)
	b.PutStr("default")
	b.PutStr("default")
	b.PutStr("")
	writePacket(t, conn, b)
}

func encodeClientInfo(b *proto.Buffer, revision uint64) {
	b.PutUInt8(1) // QueryKindInitial
	b.PutStr("default")
	b.PutStr("")
	b.PutStr("")
	b.PutUInt8(1) // InterfaceTCP
	b.PutStr("")
	b.PutStr("localhost")
	b.PutStr("chtest")
	b.PutUVarint(1)
	b.PutUVarint(0)
	b.PutUVarint(revision)
	if revision >= proto.FeatureQuotaKeyInClientInfo {
		b.PutStr("")
	}
	if revision >= proto.FeatureVersionPatch {
		b.PutUVarint(0)
	}
	if revision >= proto.FeatureOpenTelemetry {
		b.PutUInt8(0)
	}
}

func sendQuery(t *testing.T, conn net.Conn, revision uint64, queryID, query string, stage proto.Stage, compression bool) {
	t.Helper()
	b := proto.NewBuffer(128)
	b.PutUVarint(uint64(proto.ClientCodeQuery))
	b.PutStr(queryID)
	if revision >= proto.FeatureClientInfo {
		encodeClientInfo(b, revision)
	}
	b.PutStr("") // settings terminator
	if revision >= proto.FeatureInterserverSecret {
		b.PutStr("") // interserver secret, empty
	}
	b.PutUVarint(uint64(stage))
	if compression {
		b.PutUVarint(1)
	} else {
		b.PutUVarint(0)
	}
	b.PutStr(query)
	writePacket(t, conn, b)
}

func sendData(t *testing.T, conn net.Conn, compression bool, block *proto.Block) {
	t.Helper()
	b := proto.NewBuffer(64)
	b.PutUVarint(uint64(proto.ClientCodeData))
	b.PutStr("")
	if !compression {
		proto.EncodeBlock(b, block)
	} else {
		raw := proto.NewBuffer(64)
		proto.EncodeBlock(raw, block)
		require.NoError(t, compress.WriteBlock(b, raw.Buf))
	}
	writePacket(t, conn, b)
}

func sendPing(t *testing.T, conn net.Conn) {
	t.Helper()
	b := proto.NewBuffer(4)
	b.PutUVarint(uint64(proto.ClientCodePing))
	writePacket(t, conn, b)
}

func sendCancel(t *testing.T, conn net.Conn) {
	t.Helper()
	b := proto.NewBuffer(4)
	b.PutUVarint(uint64(proto.ClientCodeCancel))
	writePacket(t, conn, b)
}

func uint32Column(vals ...uint32) *proto.ColNumeric[uint32] {
	c := proto.NewColUInt32()
	for _, v := range vals {
		c.Append(v)
	}
	return c
}

// --- response parsing: a growable buffer replayed against proto's own
// restartable Reader, the same pattern Conn.readLoop uses internally. ---

type recvBuf struct {
	conn net.Conn
	buf  []byte
}

func (rb *recvBuf) fill(t *testing.T) {
	t.Helper()
	rb.conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	chunk := make([]byte, 4096)
	n, err := rb.conn.Read(chunk)
	require.NoError(t, err)
	rb.buf = append(rb.buf, chunk[:n]...)
}

func recvParse[T any](t *testing.T, rb *recvBuf, parse func(r *proto.Reader) (T, error)) T {
	t.Helper()
	for {
		r := proto.NewReader(rb.buf)
		v, err := parse(r)
		if err == nil {
			rb.buf = rb.buf[r.Consumed():]
			return v
		}
		if proto.IsWouldBlock(err) {
			rb.fill(t)
			continue
		}
		require.NoError(t, err)
	}
}

func recvServerCode(t *testing.T, rb *recvBuf) proto.ServerCode {
	t.Helper()
	v := recvParse(t, rb, func(r *proto.Reader) (uint64, error) { return r.UVarint() })
	return proto.ServerCode(v)
}

type helloResp struct {
	ServerName string
	Revision   uint64
	Timezone   string
	DisplayName string
}

func recvHelloResponse(t *testing.T, rb *recvBuf) helloResp {
	t.Helper()
	code := recvServerCode(t, rb)
	require.Equal(t, proto.ServerCodeHello, code)
	return recvParse(t, rb, func(r *proto.Reader) (helloResp, error) {
		var h helloResp
		var err error
		if h.ServerName, err = r.Str(); err != nil {
			return h, err
		}
		if _, err = r.UVarint(); err != nil { // version major
			return h, err
		}
		if _, err = r.UVarint(); err != nil { // version minor
			return h, err
		}
		if h.Revision, err = r.UVarint(); err != nil {
			return h, err
		}
		if h.Revision >= proto.FeatureServerTimezone {
			if h.Timezone, err = r.Str(); err != nil {
				return h, err
			}
		}
		if h.Revision >= proto.FeatureServerDisplayName {
			if h.DisplayName, err = r.Str(); err != nil {
				return h, err
			}
		}
		if h.Revision >= proto.FeatureVersionPatch {
			if _, err = r.UVarint(); err != nil {
				return h, err
			}
		}
		return h, nil
	})
}

func recvProgress(t *testing.T, rb *recvBuf) proto.Progress {
	t.Helper()
	code := recvServerCode(t, rb)
	require.Equal(t, proto.ServerCodeProgress, code)
	return recvParse(t, rb, func(r *proto.Reader) (proto.Progress, error) {
		var p proto.Progress
		var err error
		if p.Rows, err = r.UVarint(); err != nil {
			return p, err
		}
		if p.Bytes, err = r.UVarint(); err != nil {
			return p, err
		}
		if p.TotalRows, err = r.UVarint(); err != nil {
			return p, err
		}
		return p, nil
	})
}

func recvData(t *testing.T, rb *recvBuf, compressed bool) *proto.Block {
	t.Helper()
	code := recvServerCode(t, rb)
	require.Equal(t, proto.ServerCodeData, code)
	return recvParse(t, rb, func(r *proto.Reader) (*proto.Block, error) {
		if _, err := r.Str(); err != nil { // temporary-table name
			return nil, err
		}
		if !compressed {
			return proto.DecodeBlock(r)
		}
		raw, err := compress.ReadBlock(r)
		if err != nil {
			return nil, err
		}
		return proto.DecodeBlock(proto.NewReader(raw))
	})
}

type exceptionMsg struct {
	Code    int32
	Message string
	Nested  bool
}

func recvException(t *testing.T, rb *recvBuf) exceptionMsg {
	t.Helper()
	code := recvServerCode(t, rb)
	require.Equal(t, proto.ServerCodeException, code)
	return recvParse(t, rb, func(r *proto.Reader) (exceptionMsg, error) {
		var e exceptionMsg
		var err error
		if e.Code, err = r.Int32(); err != nil {
			return e, err
		}
		if _, err = r.Str(); err != nil { // name
			return e, err
		}
		if e.Message, err = r.Str(); err != nil {
			return e, err
		}
		if _, err = r.Str(); err != nil { // stack trace
			return e, err
		}
		if e.Nested, err = r.Bool(); err != nil {
			return e, err
		}
		return e, nil
	})
}

func recvEndOfStream(t *testing.T, rb *recvBuf) {
	t.Helper()
	code := recvServerCode(t, rb)
	require.Equal(t, proto.ServerCodeEndOfStream, code)
}

func doHandshake(t *testing.T, conn net.Conn, revision uint64) helloResp {
	t.Helper()
	sendHello(t, conn, revision)
	rb := &recvBuf{conn: conn}
	return recvHelloResponse(t, rb)
}

// --- scenario 1: ping/pong -------------------------------------------

func TestPingPong(t *testing.T) {
	exec := &fakeExecutor{revision: testClientRevision}
	conn := startServer(t, exec)

	sendPing(t, conn)
	rb := &recvBuf{conn: conn}
	code := recvServerCode(t, rb)
	assert.Equal(t, proto.ServerCodePong, code)

	// Socket must still be open and serviceable: send another Ping.
	sendPing(t, conn)
	assert.Equal(t, proto.ServerCodePong, recvServerCode(t, rb))
}

// --- scenario 2: HTTP misrouting --------------------------------------

func TestHTTPMisrouting(t *testing.T) {
	exec := &fakeExecutor{revision: testClientRevision}
	conn := startServer(t, exec)

	_, err := conn.Write([]byte("GET / HTTP/1.0\r\n\r\n"))
	require.NoError(t, err)

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	buf := make([]byte, 256)
	n, err := conn.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "HTTP/1.0 400 Bad Request\r\n\r\n", string(buf[:n]))

	// Connection must be closed after the courtesy response.
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	n, err = conn.Read(buf)
	if n == 0 {
		assert.Error(t, err)
	}
}

// --- scenario 3/4: SELECT happy path, with and without compression ----

func selectExecutor(revision uint64) *fakeExecutor {
	return &fakeExecutor{
		revision: revision,
		executeFunc: func(ctx context.Context, state *server.QueryState) (server.QueryResponse, error) {
			ch := make(chan server.Result[*proto.Block], 1)
			block := &proto.Block{
				Info: proto.DefaultBlockInfo(),
				Columns: []proto.NamedColumn{
					{Name: "abc", Data: uint32Column(10, 11, 12, 13)},
				},
			}
			ch <- server.Ok(block)
			close(ch)
			return server.QueryResponse{Blocks: ch}, nil
		},
	}
}

func TestSelectHappyPath(t *testing.T) {
	exec := selectExecutor(testClientRevision)
	conn := startServer(t, exec)
	doHandshake(t, conn, testClientRevision)

	sendQuery(t, conn, testClientRevision, "q1", "SELECT abc", proto.StageComplete, false)

	rb := &recvBuf{conn: conn}
	block := recvData(t, rb, false)
	require.Len(t, block.Columns, 1)
	assert.Equal(t, "abc", block.Columns[0].Name)
	col := block.Columns[0].Data.(proto.ColumnOf[uint32])
	assert.Equal(t, []uint32{10, 11, 12, 13}, []uint32{col.Row(0), col.Row(1), col.Row(2), col.Row(3)})

	recvProgress(t, rb)
	recvEndOfStream(t, rb)
}

func TestSelectWithCompression(t *testing.T) {
	exec := selectExecutor(testClientRevision)
	conn := startServer(t, exec)
	doHandshake(t, conn, testClientRevision)

	sendQuery(t, conn, testClientRevision, "q2", "SELECT abc", proto.StageComplete, true)

	rb := &recvBuf{conn: conn}
	block := recvData(t, rb, true)
	col := block.Columns[0].Data.(proto.ColumnOf[uint32])
	assert.Equal(t, uint32(10), col.Row(0))
	assert.Equal(t, uint32(13), col.Row(3))

	recvProgress(t, rb)
	recvEndOfStream(t, rb)
}

// --- scenario 5: executor error ---------------------------------------

func TestExecutorError(t *testing.T) {
	exec := &fakeExecutor{
		revision: testClientRevision,
		executeFunc: func(ctx context.Context, state *server.QueryState) (server.QueryResponse, error) {
			return server.QueryResponse{}, &server.Exception{Code: 42, Message: "bad"}
		},
	}
	conn := startServer(t, exec)
	doHandshake(t, conn, testClientRevision)

	sendQuery(t, conn, testClientRevision, "q3", "SELECT fail", proto.StageComplete, false)

	rb := &recvBuf{conn: conn}
	exc := recvException(t, rb)
	assert.Equal(t, int32(42), exc.Code)
	assert.Equal(t, "bad", exc.Message)
	assert.False(t, exc.Nested)
	recvEndOfStream(t, rb)
}

// --- scenario 6: INSERT lifecycle -------------------------------------

func TestInsertLifecycle(t *testing.T) {
	var mu sync.Mutex
	var received []*proto.Block
	done := make(chan struct{})

	exec := &fakeExecutor{
		revision: testClientRevision,
		executeFunc: func(ctx context.Context, state *server.QueryState) (server.QueryResponse, error) {
			sink := server.NewInsertSink()
			go func() {
				for block := range sink.Blocks() {
					mu.Lock()
					received = append(received, block)
					mu.Unlock()
				}
				close(done)
			}()
			return server.QueryResponse{Insert: sink}, nil
		},
	}
	conn := startServer(t, exec)
	doHandshake(t, conn, testClientRevision)

	sendQuery(t, conn, testClientRevision, "q4", "INSERT INTO t VALUES", proto.StageComplete, false)

	// Two-row data block.
	dataBlock := &proto.Block{
		Info:    proto.DefaultBlockInfo(),
		Columns: []proto.NamedColumn{{Name: "x", Data: uint32Column(1, 2)}},
	}
	sendData(t, conn, false, dataBlock)

	// The non-empty block above started the INSERT stream; a single
	// empty Data finishes it and triggers end-of-stream.
	sendData(t, conn, false, proto.EmptyBlock())

	rb := &recvBuf{conn: conn}
	recvEndOfStream(t, rb)

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("executor never observed end of insert stream")
	}

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, received, 1)
	assert.Equal(t, 2, received[0].Rows())
}

// TestInsertLifecycleExplicitReadyMarker drives the variant where the
// client announces readiness with an empty block before its data: the
// empty block starts the stream, the non-empty one is pushed, and the
// trailing empty ends the INSERT.
func TestInsertLifecycleExplicitReadyMarker(t *testing.T) {
	var mu sync.Mutex
	var received []*proto.Block
	done := make(chan struct{})

	exec := &fakeExecutor{
		revision: testClientRevision,
		executeFunc: func(ctx context.Context, state *server.QueryState) (server.QueryResponse, error) {
			sink := server.NewInsertSink()
			go func() {
				for block := range sink.Blocks() {
					mu.Lock()
					received = append(received, block)
					mu.Unlock()
				}
				close(done)
			}()
			return server.QueryResponse{Insert: sink}, nil
		},
	}
	conn := startServer(t, exec)
	doHandshake(t, conn, testClientRevision)

	sendQuery(t, conn, testClientRevision, "q7", "INSERT INTO t VALUES", proto.StageComplete, false)

	sendData(t, conn, false, proto.EmptyBlock())
	sendData(t, conn, false, &proto.Block{
		Info:    proto.DefaultBlockInfo(),
		Columns: []proto.NamedColumn{{Name: "x", Data: uint32Column(7, 8, 9)}},
	})
	sendData(t, conn, false, proto.EmptyBlock())

	rb := &recvBuf{conn: conn}
	recvEndOfStream(t, rb)

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("executor never observed end of insert stream")
	}

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, received, 1)
	assert.Equal(t, 3, received[0].Rows())
}

// --- cancellation observed while a stream is in flight -----------------

func TestCancelObservedMidStream(t *testing.T) {
	firstBlockSent := make(chan struct{})
	cancelled := make(chan struct{})

	exec := &fakeExecutor{
		revision: testClientRevision,
		executeFunc: func(ctx context.Context, state *server.QueryState) (server.QueryResponse, error) {
			ch := make(chan server.Result[*proto.Block])
			go func() {
				defer close(ch)
				ch <- server.Ok(&proto.Block{
					Info:    proto.DefaultBlockInfo(),
					Columns: []proto.NamedColumn{{Name: "a", Data: uint32Column(1)}},
				})
				close(firstBlockSent)
				for !state.IsCancelled() {
					time.Sleep(time.Millisecond)
				}
				close(cancelled)
			}()
			return server.QueryResponse{Blocks: ch}, nil
		},
	}
	conn := startServer(t, exec)
	doHandshake(t, conn, testClientRevision)
	sendQuery(t, conn, testClientRevision, "q6", "SELECT slow", proto.StageComplete, false)

	<-firstBlockSent
	sendCancel(t, conn)

	select {
	case <-cancelled:
	case <-time.After(5 * time.Second):
		t.Fatal("executor never observed the cancellation flag")
	}

	// Drain the response: blocks and progress frames are allowed, an
	// exception is not, and exactly one end-of-stream terminates it.
	rb := &recvBuf{conn: conn}
	for {
		code := recvServerCode(t, rb)
		switch code {
		case proto.ServerCodeData:
			recvParse(t, rb, func(r *proto.Reader) (*proto.Block, error) {
				if _, err := r.Str(); err != nil {
					return nil, err
				}
				return proto.DecodeBlock(r)
			})
		case proto.ServerCodeProgress:
			recvParse(t, rb, func(r *proto.Reader) (proto.Progress, error) {
				var p proto.Progress
				var err error
				if p.Rows, err = r.UVarint(); err != nil {
					return p, err
				}
				if p.Bytes, err = r.UVarint(); err != nil {
					return p, err
				}
				p.TotalRows, err = r.UVarint()
				return p, err
			})
		case proto.ServerCodeEndOfStream:
			return
		default:
			t.Fatalf("unexpected packet %v after cancel", code)
		}
	}
}

// --- progress pacing tie-break -----------------------------------------

func TestProgressPacingMidStream(t *testing.T) {
	exec := &fakeExecutor{
		revision: testClientRevision,
		executeFunc: func(ctx context.Context, state *server.QueryState) (server.QueryResponse, error) {
			ch := make(chan server.Result[*proto.Block], 2)
			go func() {
				defer close(ch)
				ch <- server.Ok(&proto.Block{
					Info:    proto.DefaultBlockInfo(),
					Columns: []proto.NamedColumn{{Name: "a", Data: uint32Column(1)}},
				})
				time.Sleep(20 * time.Millisecond)
				ch <- server.Ok(&proto.Block{
					Info:    proto.DefaultBlockInfo(),
					Columns: []proto.NamedColumn{{Name: "a", Data: uint32Column(2)}},
				})
			}()
			return server.QueryResponse{Blocks: ch}, nil
		},
	}
	conn := startServer(t, exec)
	doHandshake(t, conn, testClientRevision)
	sendQuery(t, conn, testClientRevision, "q5", "SELECT a", proto.StageComplete, false)

	rb := &recvBuf{conn: conn}
	// First block arrives before the 10ms threshold has had a chance to
	// fire, so no Progress precedes it.
	recvData(t, rb, false)
	// The 20ms sleep before the second block crosses the threshold, so a
	// Progress frame must appear before it.
	recvProgress(t, rb)
	recvData(t, rb, false)
	// Final snapshot, then exactly one end-of-stream.
	recvProgress(t, rb)
	recvEndOfStream(t, rb)
}
