package server

import (
	"time"

	"github.com/nativeproto/chserver/compress"
	"github.com/nativeproto/chserver/proto"
)

// streamResult drains a SELECT query's block stream and writes it to
// the socket, pacing Progress frames at progressInterval. It runs
// concurrently with the connection's read loop via Conn.group, so a
// client-sent Cancel can be observed by the executor while blocks are
// still being produced.
func streamResult(c *Conn, blocks <-chan Result[*proto.Block]) error {
	// lastProgress starts at query-stream-start, not at the first block:
	// progress precedes the first block only when the executor takes
	// longer than progressInterval to produce it.
	lastProgress := time.Now()

	for res := range blocks {
		if res.Err != nil {
			exc := &Exception{Code: -1, Message: res.Err.Error()}
			if asExc, ok := res.Err.(*Exception); ok {
				exc = asExc
			}
			if err := c.sendException(exc); err != nil {
				return err
			}
			return nil
		}

		if time.Since(lastProgress) >= progressInterval {
			if err := c.writeProgress(); err != nil {
				return err
			}
			lastProgress = time.Now()
		}

		if err := c.writeBlock(res.Value); err != nil {
			return err
		}
	}

	if err := c.writeProgress(); err != nil {
		return err
	}
	return c.writeRaw(encodeServerCode(proto.ServerCodeEndOfStream))
}

func (c *Conn) writeProgress() error {
	b := proto.NewBuffer(32)
	proto.ServerCodeProgress.Encode(b)
	c.executor.Progress().Encode(b)
	return c.writeRaw(b.Buf)
}

func (c *Conn) writeBlock(block *proto.Block) error {
	b := proto.NewBuffer(256)
	proto.ServerCodeData.Encode(b)
	b.PutStr("") // temporary-table name, always empty for result blocks

	if !c.state.Compression {
		proto.EncodeBlock(b, block)
		return c.writeRaw(b.Buf)
	}

	raw := proto.NewBuffer(256)
	proto.EncodeBlock(raw, block)
	if err := compress.WriteBlock(b, raw.Buf); err != nil {
		return err
	}
	return c.writeRaw(b.Buf)
}
