package proto

import "strconv"

// NewColDecimal returns a Decimal(P, S) column codec backed by the
// integer width implied by precision p (32/64/128 bits). Scale is
// metadata
// carried only in the type string. Decimal128 uses a dedicated codec
// since Go has no native 128-bit integer.
func NewColDecimal(typ ColumnType, precision int) Column {
	switch {
	case precision <= 9:
		c := NewColInt32()
		c.SetType(typ)
		return c
	case precision <= 18:
		c := NewColInt64()
		c.SetType(typ)
		return c
	default:
		return NewColDecimal128(typ)
	}
}

// DecimalWidth maps a Decimal(P, S) precision to its backing bit width.
func DecimalWidth(precision int) int {
	switch {
	case precision <= 9:
		return 32
	case precision <= 18:
		return 64
	default:
		return 128
	}
}

// ParseDecimalPrecision extracts P from a "Decimal(P, S)" (or bare
// "Decimal32/64/128(S)") type string's argument list.
func ParseDecimalPrecision(base ColumnType, args string) int {
	switch base {
	case ColumnTypeDecimal32:
		return 9
	case ColumnTypeDecimal64:
		return 18
	case ColumnTypeDecimal128:
		return 38
	default:
		parts := SplitArgs(args)
		if len(parts) > 0 {
			if p, err := strconv.Atoi(parts[0]); err == nil {
				return p
			}
		}
		return 38
	}
}

// ColDecimal128 stores each row as its raw two's-complement 128-bit
// little-endian word pair (Low, High) — arithmetic on the value is the
// executor's concern, not the wire codec's.
type ColDecimal128 struct {
	typ  ColumnType
	rows []Int128
}

// Int128 is a 128-bit two's-complement integer split into two 64-bit
// little-endian words.
type Int128 struct {
	Low  uint64
	High uint64
}

// NewColDecimal128 returns an empty Decimal128 column codec.
func NewColDecimal128(typ ColumnType) *ColDecimal128 {
	return &ColDecimal128{typ: typ}
}

func (c *ColDecimal128) Type() ColumnType   { return c.typ }
func (c *ColDecimal128) Rows() int          { return len(c.rows) }
func (c *ColDecimal128) Row(i int) Int128   { return c.rows[i] }
func (c *ColDecimal128) Append(v Int128)    { c.rows = append(c.rows, v) }
func (c *ColDecimal128) Reset()             { c.rows = c.rows[:0] }

func (c *ColDecimal128) DecodeColumn(r *Reader, rows int) error {
	if err := r.CheckCount(rows); err != nil {
		return err
	}
	c.rows = make([]Int128, 0, rows)
	for i := 0; i < rows; i++ {
		low, err := r.UInt64()
		if err != nil {
			return err
		}
		high, err := r.UInt64()
		if err != nil {
			return err
		}
		c.rows = append(c.rows, Int128{Low: low, High: high})
	}
	return nil
}

func (c *ColDecimal128) EncodeColumn(b *Buffer) {
	for _, v := range c.rows {
		b.PutUInt64(v.Low)
		b.PutUInt64(v.High)
	}
}
