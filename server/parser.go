package server

import (
	"github.com/nativeproto/chserver/compress"
	"github.com/nativeproto/chserver/proto"
)

// packet is the decoded tagged variant the parser hands to dispatch:
// exactly one of its payload fields is non-nil/true.
type packet struct {
	consumed int

	ping   bool
	cancel bool
	hello  *proto.HelloRequest
	query  *proto.QueryRequest
	data   *proto.Block
}

// parsePacket attempts to decode exactly one packet from buf. It is
// restartable: on proto.ErrWouldBlock the caller must keep buf intact
// and retry once more bytes have arrived. On any other
// error the connection is fatally broken and must close after emitting
// whatever response that error implies.
func parsePacket(buf []byte, revision uint64, hello *proto.HelloRequest, state *QueryState) (packet, error) {
	r := proto.NewReader(buf)
	kind, err := r.UVarint()
	if err != nil {
		return packet{}, err
	}

	switch proto.ClientCode(kind) {
	case proto.ClientCodeHello:
		req, err := proto.DecodeHelloRequest(r)
		if err != nil {
			return packet{}, err
		}
		return packet{consumed: r.Consumed(), hello: req}, nil

	case proto.ClientCodeQuery:
		if hello == nil {
			return packet{}, unexpectedPacket(byte(kind))
		}
		q, err := proto.DecodeQueryRequest(r, revision, hello)
		if err != nil {
			return packet{}, err
		}
		return packet{consumed: r.Consumed(), query: q}, nil

	case proto.ClientCodeData, proto.ClientCodeScalar:
		if _, err := r.Str(); err != nil { // temporary-table name, discarded
			return packet{}, err
		}
		block, err := decodeBlockBody(r, state.Compression)
		if err != nil {
			return packet{}, err
		}
		return packet{consumed: r.Consumed(), data: block}, nil

	case proto.ClientCodePing:
		return packet{consumed: r.Consumed(), ping: true}, nil

	case proto.ClientCodeCancel:
		return packet{consumed: r.Consumed(), cancel: true}, nil

	default:
		return packet{}, unknownPacket(byte(kind))
	}
}

// decodeBlockBody reads a block body, going through the compressed
// frame wrapper when compression is negotiated for the current query.
func decodeBlockBody(r *proto.Reader, compressed bool) (*proto.Block, error) {
	if !compressed {
		return proto.DecodeBlock(r)
	}
	raw, err := compress.ReadBlock(r)
	if err != nil {
		return nil, err
	}
	return proto.DecodeBlock(proto.NewReader(raw))
}
