package proto

// ColNumeric is the shared implementation behind every fixed-width
// scalar column (Int8..Int64, UInt8..UInt64, Float32, Float64): each
// row is exactly width bytes, encoded/decoded with the scalar it's
// constructed with. Concrete constructors below bind the per-type
// encode/decode pair once instead of hand-duplicating ten near-
// identical structs.
type ColNumeric[T any] struct {
	typ    ColumnType
	values []T
	decode func(r *Reader) (T, error)
	encode func(b *Buffer, v T)
}

func (c *ColNumeric[T]) Type() ColumnType   { return c.typ }
func (c *ColNumeric[T]) SetType(t ColumnType) { c.typ = t }
func (c *ColNumeric[T]) Rows() int        { return len(c.values) }
func (c *ColNumeric[T]) Row(i int) T      { return c.values[i] }
func (c *ColNumeric[T]) Append(v T)       { c.values = append(c.values, v) }
func (c *ColNumeric[T]) Reset()           { c.values = c.values[:0] }

func (c *ColNumeric[T]) DecodeColumn(r *Reader, rows int) error {
	if err := r.CheckCount(rows); err != nil {
		return err
	}
	c.values = make([]T, 0, rows)
	for i := 0; i < rows; i++ {
		v, err := c.decode(r)
		if err != nil {
			return err
		}
		c.values = append(c.values, v)
	}
	return nil
}

func (c *ColNumeric[T]) EncodeColumn(b *Buffer) {
	for _, v := range c.values {
		c.encode(b, v)
	}
}

// NewColInt8 returns an empty Int8 column codec.
func NewColInt8() *ColNumeric[int8] {
	return &ColNumeric[int8]{typ: ColumnTypeInt8, decode: (*Reader).Int8, encode: func(b *Buffer, v int8) { b.PutInt8(v) }}
}

// NewColUInt8 returns an empty UInt8 column codec.
func NewColUInt8() *ColNumeric[uint8] {
	return &ColNumeric[uint8]{typ: ColumnTypeUInt8, decode: (*Reader).UInt8, encode: func(b *Buffer, v uint8) { b.PutUInt8(v) }}
}

// NewColInt16 returns an empty Int16 column codec.
func NewColInt16() *ColNumeric[int16] {
	return &ColNumeric[int16]{typ: ColumnTypeInt16, decode: (*Reader).Int16, encode: func(b *Buffer, v int16) { b.PutInt16(v) }}
}

// NewColUInt16 returns an empty UInt16 column codec.
func NewColUInt16() *ColNumeric[uint16] {
	return &ColNumeric[uint16]{typ: ColumnTypeUInt16, decode: (*Reader).UInt16, encode: func(b *Buffer, v uint16) { b.PutUInt16(v) }}
}

// NewColInt32 returns an empty Int32 column codec.
func NewColInt32() *ColNumeric[int32] {
	return &ColNumeric[int32]{typ: ColumnTypeInt32, decode: (*Reader).Int32, encode: func(b *Buffer, v int32) { b.PutInt32(v) }}
}

// NewColUInt32 returns an empty UInt32 column codec.
func NewColUInt32() *ColNumeric[uint32] {
	return &ColNumeric[uint32]{typ: ColumnTypeUInt32, decode: (*Reader).UInt32, encode: func(b *Buffer, v uint32) { b.PutUInt32(v) }}
}

// NewColInt64 returns an empty Int64 column codec.
func NewColInt64() *ColNumeric[int64] {
	return &ColNumeric[int64]{typ: ColumnTypeInt64, decode: (*Reader).Int64, encode: func(b *Buffer, v int64) { b.PutInt64(v) }}
}

// NewColUInt64 returns an empty UInt64 column codec.
func NewColUInt64() *ColNumeric[uint64] {
	return &ColNumeric[uint64]{typ: ColumnTypeUInt64, decode: (*Reader).UInt64, encode: func(b *Buffer, v uint64) { b.PutUInt64(v) }}
}

// NewColFloat32 returns an empty Float32 column codec.
func NewColFloat32() *ColNumeric[float32] {
	return &ColNumeric[float32]{typ: ColumnTypeFloat32, decode: (*Reader).Float32, encode: func(b *Buffer, v float32) { b.PutFloat32(v) }}
}

// NewColFloat64 returns an empty Float64 column codec.
func NewColFloat64() *ColNumeric[float64] {
	return &ColNumeric[float64]{typ: ColumnTypeFloat64, decode: (*Reader).Float64, encode: func(b *Buffer, v float64) { b.PutFloat64(v) }}
}
