package proto

import "math"

// Buffer is the write side of the codec: a growable byte slice with
// encode methods for every primitive the wire format needs. It never
// fails — growth is handled by append.
type Buffer struct {
	Buf []byte
}

// NewBuffer returns a Buffer with capacity reserved up front.
func NewBuffer(capacity int) *Buffer {
	return &Buffer{Buf: make([]byte, 0, capacity)}
}

// Reset empties the buffer for reuse without releasing its capacity.
func (b *Buffer) Reset() {
	b.Buf = b.Buf[:0]
}

// PutUVarint writes v as an unsigned LEB128 varint.
func (b *Buffer) PutUVarint(v uint64) {
	for v >= 0x80 {
		b.Buf = append(b.Buf, byte(v)|0x80)
		v >>= 7
	}
	b.Buf = append(b.Buf, byte(v))
}

// PutBool writes a single 0/1 byte.
func (b *Buffer) PutBool(v bool) {
	if v {
		b.Buf = append(b.Buf, 1)
	} else {
		b.Buf = append(b.Buf, 0)
	}
}

// PutInt8 writes a signed 8-bit integer.
func (b *Buffer) PutInt8(v int8) { b.Buf = append(b.Buf, byte(v)) }

// PutUInt8 writes an unsigned 8-bit integer.
func (b *Buffer) PutUInt8(v uint8) { b.Buf = append(b.Buf, v) }

// PutInt16 writes a little-endian signed 16-bit integer.
func (b *Buffer) PutInt16(v int16) { b.PutUInt16(uint16(v)) }

// PutUInt16 writes a little-endian unsigned 16-bit integer.
func (b *Buffer) PutUInt16(v uint16) {
	b.Buf = append(b.Buf, byte(v), byte(v>>8))
}

// PutInt32 writes a little-endian signed 32-bit integer.
func (b *Buffer) PutInt32(v int32) { b.PutUInt32(uint32(v)) }

// PutUInt32 writes a little-endian unsigned 32-bit integer.
func (b *Buffer) PutUInt32(v uint32) {
	b.Buf = append(b.Buf, byte(v), byte(v>>8), byte(v>>16), byte(v>>24))
}

// PutInt64 writes a little-endian signed 64-bit integer.
func (b *Buffer) PutInt64(v int64) { b.PutUInt64(uint64(v)) }

// PutUInt64 writes a little-endian unsigned 64-bit integer.
func (b *Buffer) PutUInt64(v uint64) {
	b.Buf = append(b.Buf,
		byte(v), byte(v>>8), byte(v>>16), byte(v>>24),
		byte(v>>32), byte(v>>40), byte(v>>48), byte(v>>56),
	)
}

// PutFloat32 writes an IEEE-754 little-endian 32-bit float.
func (b *Buffer) PutFloat32(v float32) { b.PutUInt32(math.Float32bits(v)) }

// PutFloat64 writes an IEEE-754 little-endian 64-bit float.
func (b *Buffer) PutFloat64(v float64) { b.PutUInt64(math.Float64bits(v)) }

// PutStr writes a varint length followed by the raw UTF-8 bytes.
func (b *Buffer) PutStr(s string) {
	b.PutUVarint(uint64(len(s)))
	b.Buf = append(b.Buf, s...)
}

// PutRaw appends p unchanged.
func (b *Buffer) PutRaw(p []byte) { b.Buf = append(b.Buf, p...) }
