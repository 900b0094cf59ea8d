// Package compress implements the ClickHouse native protocol's
// compressed block wrapper: a 16-byte CityHash128 checksum, a 1-byte
// compression-method tag, and a length-prefixed LZ4 payload.
package compress

import (
	"fmt"

	"github.com/go-faster/errors"
	lz4 "github.com/pierrec/lz4/v4"

	"github.com/nativeproto/chserver/proto"
)

// MethodLZ4 and MethodNone are the compression method tags this server
// speaks, matching ClickHouse's own CompressionMethodByte values.
const (
	MethodLZ4  byte = 0x82
	MethodNone byte = 0x02
)

// headerSize is the method byte plus the two u32 size fields that
// follow it and are themselves covered by the checksum.
const headerSize = 1 + 4 + 4

// CorruptedDataErr reports a checksum mismatch on a compressed frame —
// connection-fatal, surfaced by server.Conn as a DriverError.ChecksumMismatch.
type CorruptedDataErr struct {
	Actual    [2]uint64
	Reference [2]uint64
	RawSize   int
	DataSize  int
}

func (e *CorruptedDataErr) Error() string {
	return fmt.Sprintf(
		"compress: checksum mismatch: actual %s, reference %s (raw_size=%d, data_size=%d)",
		FormatU128(e.Actual[0], e.Actual[1]), FormatU128(e.Reference[0], e.Reference[1]),
		e.RawSize, e.DataSize,
	)
}

// FormatU128 renders a 128-bit little-endian-word checksum the way
// ClickHouse error messages do: high word then low word, as hex.
func FormatU128(low, high uint64) string {
	return fmt.Sprintf("%016x%016x", high, low)
}

// ReadBlock reads one compressed frame from r and returns the decoded
// payload bytes. r need not hold the entire frame: the packet parser
// calls this on whatever is buffered, and any short read surfaces as
// proto.ErrWouldBlock so the parser retries the whole packet once more
// bytes have arrived.
func ReadBlock(r *proto.Reader) ([]byte, error) {
	checksumLow, err := r.UInt64()
	if err != nil {
		return nil, err
	}
	checksumHigh, err := r.UInt64()
	if err != nil {
		return nil, err
	}
	header, err := r.Raw(headerSize)
	if err != nil {
		return nil, err
	}
	method := header[0]
	compressedSize := uint32(header[1]) | uint32(header[2])<<8 | uint32(header[3])<<16 | uint32(header[4])<<24
	uncompressedSize := uint32(header[5]) | uint32(header[6])<<8 | uint32(header[7])<<16 | uint32(header[8])<<24
	if compressedSize < headerSize {
		return nil, proto.Malformed("compress: compressed size smaller than header")
	}
	payloadSize := int(compressedSize) - headerSize
	payload, err := r.Raw(payloadSize)
	if err != nil {
		return nil, err
	}

	frame := make([]byte, 0, headerSize+payloadSize)
	frame = append(frame, header...)
	frame = append(frame, payload...)
	wantLow, wantHigh := proto.CityHash128(frame)
	if wantLow != checksumLow || wantHigh != checksumHigh {
		return nil, errors.Wrap(&CorruptedDataErr{
			Actual:    [2]uint64{checksumLow, checksumHigh},
			Reference: [2]uint64{wantLow, wantHigh},
			RawSize:   int(compressedSize) + 16,
			DataSize:  int(uncompressedSize),
		}, "compress: read block")
	}
	switch method {
	case MethodNone:
		if len(payload) != int(uncompressedSize) {
			return nil, proto.Malformed("compress: stored-method size mismatch")
		}
		return payload, nil
	case MethodLZ4:
		raw := make([]byte, uncompressedSize)
		n, err := lz4.UncompressBlock(payload, raw)
		if err != nil {
			return nil, errors.Wrap(err, "compress: lz4 decompress")
		}
		return raw[:n], nil
	default:
		return nil, proto.Malformed(fmt.Sprintf("compress: unsupported method 0x%02x", method))
	}
}

// WriteBlock compresses raw and appends the full checksum+header+payload
// frame to b.
func WriteBlock(b *proto.Buffer, raw []byte) error {
	bound := lz4.CompressBlockBound(len(raw))
	payload := make([]byte, bound)
	var c lz4.Compressor
	n, err := c.CompressBlock(raw, payload)
	if err != nil {
		return errors.Wrap(err, "compress: lz4 compress")
	}

	method := MethodLZ4
	if n == 0 {
		// lz4.Compressor reports n == 0 only when its destination is
		// smaller than CompressBlockBound; payload is allocated at that
		// bound, so this branch is not taken and every frame written here
		// uses MethodLZ4. On n == 0, raw would be stored verbatim under
		// MethodNone.
		method = MethodNone
		payload = raw
	} else {
		payload = payload[:n]
	}

	compressedSize := uint32(headerSize + len(payload))
	uncompressedSize := uint32(len(raw))

	header := make([]byte, 0, headerSize+len(payload))
	header = append(header, method,
		byte(compressedSize), byte(compressedSize>>8), byte(compressedSize>>16), byte(compressedSize>>24),
		byte(uncompressedSize), byte(uncompressedSize>>8), byte(uncompressedSize>>16), byte(uncompressedSize>>24),
	)
	frame := append(header, payload...)

	low, high := proto.CityHash128(frame)
	b.PutUInt64(low)
	b.PutUInt64(high)
	b.PutRaw(frame)
	return nil
}
