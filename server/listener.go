// Package server implements the server side of the ClickHouse native
// TCP wire protocol: handshake, restartable packet parsing, the
// per-connection query lifecycle, and result streaming, against a
// host-supplied Executor.
package server

import (
	"context"
	"crypto/tls"
	"net"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Listener accepts connections and runs one Conn per accepted socket:
// an accept loop that spawns a goroutine per connection, with panic
// recovery so one bad connection never brings down the listener.
type Listener struct {
	nc       net.Listener
	executor Executor
	lg       *zap.Logger
	tracer   trace.Tracer
}

// Option configures a Listener.
type Option func(*Listener)

// WithLogger overrides the default no-op logger.
func WithLogger(lg *zap.Logger) Option {
	return func(l *Listener) { l.lg = lg }
}

// WithTracer overrides the default no-op tracer.
func WithTracer(tracer trace.Tracer) Option {
	return func(l *Listener) { l.tracer = tracer }
}

// NewListener wraps nc (already TLS-wrapped by the caller via
// tls.NewListener if TLS is desired; certificate loading is the
// host's concern) to serve the protocol against executor.
func NewListener(nc net.Listener, executor Executor, opts ...Option) *Listener {
	l := &Listener{
		nc:       nc,
		executor: executor,
		lg:       zap.NewNop(),
		tracer:   otel.Tracer("chserver"),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// NewTLSListener is a convenience wrapper for the common case of
// serving directly over TLS given an already-loaded *tls.Config.
func NewTLSListener(nc net.Listener, cfg *tls.Config, executor Executor, opts ...Option) *Listener {
	return NewListener(tls.NewListener(nc, cfg), executor, opts...)
}

// Serve accepts connections until ctx is cancelled or Accept returns an
// error. Any Accept error ends Serve; temporary errors are not retried.
func (l *Listener) Serve(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		_ = l.nc.Close()
	}()

	for {
		conn, err := l.nc.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				return err
			}
		}
		go l.handle(ctx, conn)
	}
}

func (l *Listener) handle(ctx context.Context, nc net.Conn) {
	defer func() {
		if r := recover(); r != nil {
			l.lg.Error("panic handling connection", zap.Any("panic", r))
		}
	}()

	c := newConn(nc, l.executor, l.lg, l.tracer)
	if err := c.Run(ctx); err != nil {
		l.lg.Warn("connection closed", zap.String("conn_id", c.id), zap.Error(err))
	}
}
