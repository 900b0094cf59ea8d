package server

import (
	"context"
	"io"
	"net"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.7.0"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/nativeproto/chserver/compress"
	"github.com/nativeproto/chserver/proto"
)

// readChunkSize is how many bytes Conn.fill asks the socket for on
// every ErrWouldBlock retry — small enough to keep latency down for
// interactive traffic, large enough to avoid a syscall per byte on a
// bulk INSERT.
const readChunkSize = 64 * 1024

// progressInterval is the minimum delay between two Progress frames
// for one query.
const progressInterval = 10 * time.Millisecond

// Conn drives the protocol for one accepted connection: handshake,
// restartable packet parsing, dispatch against QueryState, and
// concurrent result streaming.
type Conn struct {
	id       string
	nc       net.Conn
	executor Executor
	lg       *zap.Logger
	tracer   trace.Tracer

	revision uint64
	hello    *proto.HelloRequest
	state    *QueryState

	buf []byte

	writeMu sync.Mutex
	group   *errgroup.Group
}

func newConn(nc net.Conn, executor Executor, lg *zap.Logger, tracer trace.Tracer) *Conn {
	id := uuid.NewString()
	return &Conn{
		id:       id,
		nc:       nc,
		executor: executor,
		lg:       lg.With(zap.String("conn_id", id)),
		tracer:   tracer,
		state:    &QueryState{},
	}
}

// Run drives the connection until it closes for any reason. The
// returned error is nil for a clean client-initiated close.
func (c *Conn) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	c.group = g
	g.Go(func() error { return c.readLoop(gctx) })

	runErr := g.Wait()
	closeErr := c.nc.Close()

	// Both the loop error and the close error are reported — a close
	// failure on an already-broken socket is still worth surfacing to
	// the caller alongside whatever broke the read loop.
	err := multierr.Append(runErr, closeErr)
	if errors.Is(runErr, io.EOF) || errors.Is(runErr, errCleanClose) {
		if closeErr == nil {
			return nil
		}
		return closeErr
	}
	return err
}

// errCleanClose is returned internally by readLoop when the client
// closes the connection with no partial frame in flight — a normal
// shutdown, not a connection error.
var errCleanClose = errors.New("server: connection closed")

func (c *Conn) readLoop(ctx context.Context) error {
	for {
		if c.lg.Core().Enabled(zap.DebugLevel) {
			c.lg.Debug("read loop iteration", zap.Int("buffered", len(c.buf)))
		}

		pkt, err := parsePacket(c.buf, c.revision, c.hello, c.state)
		if err == nil {
			c.buf = c.buf[pkt.consumed:]
			if err := c.dispatch(ctx, pkt); err != nil {
				return err
			}
			continue
		}
		if proto.IsWouldBlock(err) {
			if fillErr := c.fill(); fillErr != nil {
				return fillErr
			}
			continue
		}
		return c.handleFatal(err)
	}
}

// fill reads more bytes from the socket into c.buf. A zero-byte read
// (io.EOF) is either a clean close (nothing partially buffered) or a
// connection reset mid-frame.
func (c *Conn) fill() error {
	chunk := make([]byte, readChunkSize)
	n, err := c.nc.Read(chunk)
	if n > 0 {
		c.buf = append(c.buf, chunk[:n]...)
	}
	if err != nil {
		if errors.Is(err, io.EOF) {
			if len(c.buf) == 0 {
				return errCleanClose
			}
			return errors.New("server: connection reset mid-frame")
		}
		return err
	}
	return nil
}

// handleFatal responds to a non-WouldBlock parse error: the HTTP
// misrouting courtesy response for a 'G'/'P' UnknownPacket, or an
// Exception + EndOfStream for everything else, then closes.
func (c *Conn) handleFatal(err error) error {
	var corrupt *compress.CorruptedDataErr
	if errors.As(err, &corrupt) {
		err = checksumMismatch(corrupt)
	}
	var mf *proto.MalformedError
	if errors.As(err, &mf) {
		err = malformedFrame(mf.Reason)
	}

	var driverErr *DriverError
	if errors.As(err, &driverErr) && driverErr.IsHTTPMisroute() {
		c.lg.Warn("misrouted HTTP request", zap.String("conn_id", c.id))
		_ = c.writeRaw([]byte("HTTP/1.0 400 Bad Request\r\n\r\n"))
		return err
	}

	c.lg.Warn("connection fatal error", zap.Error(err))
	exc := &Exception{Code: 1000, Message: err.Error()}
	_ = c.sendException(exc)
	return err
}

func (c *Conn) dispatch(ctx context.Context, pkt packet) error {
	switch {
	case pkt.ping:
		return c.writeRaw(encodeServerCode(proto.ServerCodePong))
	case pkt.cancel:
		c.state.SetCancelled()
		return nil
	case pkt.hello != nil:
		return c.handleHello(pkt.hello)
	case pkt.query != nil:
		return c.handleQuery(ctx, pkt.query)
	case pkt.data != nil:
		return c.handleData(ctx, pkt.data)
	}
	return nil
}

func (c *Conn) handleHello(req *proto.HelloRequest) error {
	c.hello = req
	serverSupported := c.executor.DBMSTCPProtocolVersion()
	revision := req.ClientRevision
	if serverSupported < revision {
		revision = serverSupported
	}
	c.revision = revision

	resp := &proto.HelloResponse{
		ServerName:        c.executor.DBMSName(),
		VersionMajor:      c.executor.DBMSVersionMajor(),
		VersionMinor:      c.executor.DBMSVersionMinor(),
		VersionPatch:      c.executor.DBMSVersionPatch(),
		Revision:          revision,
		Timezone:          c.executor.Timezone(),
		ServerDisplayName: c.executor.ServerDisplayName(),
	}

	b := proto.NewBuffer(64)
	proto.ServerCodeHello.Encode(b)
	resp.Encode(b, revision)
	return c.writeRaw(b.Buf)
}

func (c *Conn) handleQuery(ctx context.Context, q *proto.QueryRequest) error {
	ctx, span := c.tracer.Start(ctx, "ExecuteQuery",
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			semconv.DBSystemKey.String("clickhouse"),
			semconv.DBStatementKey.String(q.Query),
			attribute.String("ch.query_id", q.QueryID),
			attribute.Int64("ch.protocol_version", int64(c.revision)),
		),
	)
	defer span.End()

	c.state.Reset(q)

	resp, err := c.executor.ExecuteQuery(ctx, c.state)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "query failed")
		var exc *Exception
		if !errors.As(err, &exc) {
			exc = &Exception{Code: -1, Message: err.Error()}
		}
		if sendErr := c.sendException(exc); sendErr != nil {
			return sendErr
		}
		return nil
	}
	span.SetStatus(codes.Ok, "")

	if resp.Insert != nil {
		c.state.Insert = resp.Insert
		c.state.Lifecycle = LifecycleInsertPrepare
		return nil
	}

	c.group.Go(func() error {
		return streamResult(c, resp.Blocks)
	})
	return nil
}

func (c *Conn) handleData(ctx context.Context, block *proto.Block) error {
	switch c.state.Lifecycle {
	case LifecycleDefault:
		return nil // legacy stray data, ignored

	case LifecycleInsertPrepare:
		// The first Data block starts the INSERT stream whether or not
		// it is empty: an empty block is the client's explicit
		// ready-for-data marker, a non-empty one starts the stream with
		// its rows. Either way the next empty block ends the INSERT.
		c.state.Lifecycle = LifecycleInsertStart
		if block.Empty() || c.state.Insert == nil {
			return nil
		}
		return c.state.Insert.Push(ctx, block)

	case LifecycleInsertStart:
		if !block.Empty() {
			if c.state.Insert == nil {
				return nil
			}
			return c.state.Insert.Push(ctx, block)
		}
		sink := c.state.Insert
		c.state.Lifecycle = LifecycleDefault
		c.state.Insert = nil
		if sink != nil {
			sink.Close()
		}
		return c.writeRaw(encodeServerCode(proto.ServerCodeEndOfStream))
	}
	return nil
}

func (c *Conn) sendException(exc *Exception) error {
	b := proto.NewBuffer(128)
	proto.ServerCodeException.Encode(b)
	exc.toWireException(c.executor.WithStackTrace()).Encode(b)
	if err := c.writeRaw(b.Buf); err != nil {
		return err
	}
	return c.writeRaw(encodeServerCode(proto.ServerCodeEndOfStream))
}

func encodeServerCode(code proto.ServerCode) []byte {
	b := proto.NewBuffer(8)
	code.Encode(b)
	return b.Buf
}

// writeRaw writes p to the socket under the connection-wide write
// lock, serializing it against streamResult's concurrent block writes.
func (c *Conn) writeRaw(p []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_, err := c.nc.Write(p)
	return err
}
