package proto

// ColNullable wraps an inner Column with a per-row null-flag prefix.
// Value bytes exist for every row including null slots — the null
// flags only gate interpretation, not presence.
type ColNullable struct {
	inner Column
	nulls []bool
}

// NewColNullable wraps inner as Nullable(inner.Type()).
func NewColNullable(inner Column) *ColNullable {
	return &ColNullable{inner: inner}
}

func (c *ColNullable) Type() ColumnType { return ColumnTypeNullable.Sub(c.inner.Type()) }
func (c *ColNullable) Rows() int        { return len(c.nulls) }
func (c *ColNullable) Inner() Column    { return c.inner }

// IsNull reports whether row i is null.
func (c *ColNullable) IsNull(i int) bool { return c.nulls[i] }

func (c *ColNullable) Reset() {
	c.nulls = c.nulls[:0]
	c.inner.Reset()
}

func (c *ColNullable) DecodeColumn(r *Reader, rows int) error {
	if err := r.CheckCount(rows); err != nil {
		return err
	}
	nulls := make([]bool, rows)
	for i := 0; i < rows; i++ {
		b, err := r.UInt8()
		if err != nil {
			return err
		}
		nulls[i] = b != 0
	}
	if err := c.inner.DecodeColumn(r, rows); err != nil {
		return err
	}
	c.nulls = nulls
	return nil
}

func (c *ColNullable) EncodeColumn(b *Buffer) {
	for _, n := range c.nulls {
		if n {
			b.PutUInt8(1)
		} else {
			b.PutUInt8(0)
		}
	}
	c.inner.EncodeColumn(b)
}
