package proto

import "strconv"

// ColFixedStr is the FixedString(N) column codec: every row is exactly
// N raw bytes, no length prefix, no trimming of trailing zero padding
// (ClickHouse itself does not trim it either — that's an application
// concern, not the wire codec's).
type ColFixedStr struct {
	n      int
	values [][]byte
}

// NewColFixedStr returns an empty FixedString(n) column codec.
func NewColFixedStr(n int) *ColFixedStr {
	return &ColFixedStr{n: n}
}

func (c *ColFixedStr) N() int             { return c.n }
func (c *ColFixedStr) Type() ColumnType {
	return ColumnTypeFixedString.Sub(ColumnType(strconv.Itoa(c.n)))
}
func (c *ColFixedStr) Rows() int          { return len(c.values) }
func (c *ColFixedStr) Row(i int) []byte   { return c.values[i] }
func (c *ColFixedStr) Append(v []byte)    { c.values = append(c.values, v) }
func (c *ColFixedStr) Reset()             { c.values = c.values[:0] }

func (c *ColFixedStr) DecodeColumn(r *Reader, rows int) error {
	if err := r.CheckCount(rows); err != nil {
		return err
	}
	c.values = make([][]byte, 0, rows)
	for i := 0; i < rows; i++ {
		raw, err := r.Raw(c.n)
		if err != nil {
			return err
		}
		cp := make([]byte, c.n)
		copy(cp, raw)
		c.values = append(c.values, cp)
	}
	return nil
}

func (c *ColFixedStr) EncodeColumn(b *Buffer) {
	for _, v := range c.values {
		b.PutRaw(v)
	}
}
