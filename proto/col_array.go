package proto

// ColArray is the Array(T) column codec: row_count cumulative u64
// offsets followed by the flattened inner column of length
// offsets[last].
type ColArray struct {
	inner   Column
	offsets []uint64
}

// NewColArray wraps inner as Array(inner.Type()).
func NewColArray(inner Column) *ColArray {
	return &ColArray{inner: inner}
}

func (c *ColArray) Type() ColumnType { return ColumnTypeArray.Sub(c.inner.Type()) }
func (c *ColArray) Rows() int        { return len(c.offsets) }
func (c *ColArray) Inner() Column    { return c.inner }

// Offsets returns the cumulative per-row element-count boundaries.
func (c *ColArray) Offsets() []uint64 { return c.offsets }

func (c *ColArray) Reset() {
	c.offsets = c.offsets[:0]
	c.inner.Reset()
}

func (c *ColArray) DecodeColumn(r *Reader, rows int) error {
	if err := r.CheckCount(rows); err != nil {
		return err
	}
	offsets := make([]uint64, rows)
	for i := 0; i < rows; i++ {
		off, err := r.UInt64()
		if err != nil {
			return err
		}
		offsets[i] = off
	}
	var total uint64
	if rows > 0 {
		total = offsets[rows-1]
	}
	// total is the flattened inner element count, read off the wire as
	// part of the offsets themselves — validate it the same way before
	// it reaches the inner column's own allocation.
	if err := r.CheckCount(int(total)); err != nil {
		return err
	}
	if err := c.inner.DecodeColumn(r, int(total)); err != nil {
		return err
	}
	c.offsets = offsets
	return nil
}

func (c *ColArray) EncodeColumn(b *Buffer) {
	for _, off := range c.offsets {
		b.PutUInt64(off)
	}
	c.inner.EncodeColumn(b)
}
