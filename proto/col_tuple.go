package proto

import "strings"

// ColTuple is the Tuple(T1, ..., Tn) column codec: each element is an
// independent column of the same row count, encoded back-to-back.
type ColTuple struct {
	elems []Column
	rows  int
}

// NewColTuple wraps elems as Tuple(elems[0].Type(), ...).
func NewColTuple(elems ...Column) *ColTuple {
	return &ColTuple{elems: elems}
}

func (c *ColTuple) Type() ColumnType {
	parts := make([]string, len(c.elems))
	for i, e := range c.elems {
		parts[i] = string(e.Type())
	}
	return ColumnTypeTuple.Sub(ColumnType(strings.Join(parts, ", ")))
}

func (c *ColTuple) Rows() int          { return c.rows }
func (c *ColTuple) Elems() []Column    { return c.elems }

func (c *ColTuple) Reset() {
	c.rows = 0
	for _, e := range c.elems {
		e.Reset()
	}
}

func (c *ColTuple) DecodeColumn(r *Reader, rows int) error {
	for _, e := range c.elems {
		if err := e.DecodeColumn(r, rows); err != nil {
			return err
		}
	}
	c.rows = rows
	return nil
}

func (c *ColTuple) EncodeColumn(b *Buffer) {
	for _, e := range c.elems {
		e.EncodeColumn(b)
	}
}
