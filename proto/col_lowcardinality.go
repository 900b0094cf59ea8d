package proto

// LowCardinality index width codes, packed into the low byte of the
// serialization flags word.
const (
	lcIndexUInt8  = 0
	lcIndexUInt16 = 1
	lcIndexUInt32 = 2
	lcIndexUInt64 = 3

	lcHasAdditionalKeysBit = 1 << 9
	lcSharedDictVersion     = 1
)

// ColLowCardinality is the LowCardinality(T) column codec: a
// serialization-version header, a dictionary column holding the
// distinct values, and an index column (width chosen by dictionary
// size) mapping each row to a dictionary entry.
type ColLowCardinality struct {
	dict  Column
	index []uint64
}

// NewColLowCardinality wraps dict (an empty column of the dictionary's
// element type) as LowCardinality(dict.Type()).
func NewColLowCardinality(dict Column) *ColLowCardinality {
	return &ColLowCardinality{dict: dict}
}

func (c *ColLowCardinality) Type() ColumnType { return ColumnTypeLowCardinality.Sub(c.dict.Type()) }
func (c *ColLowCardinality) Rows() int        { return len(c.index) }
func (c *ColLowCardinality) Dict() Column     { return c.dict }

// Key returns the dictionary index for row i.
func (c *ColLowCardinality) Key(i int) uint64 { return c.index[i] }

func (c *ColLowCardinality) Reset() {
	c.index = c.index[:0]
	c.dict.Reset()
}

func indexWidthFor(dictSize uint64) int {
	switch {
	case dictSize <= 1<<8:
		return lcIndexUInt8
	case dictSize <= 1<<16:
		return lcIndexUInt16
	case dictSize <= 1<<32:
		return lcIndexUInt32
	default:
		return lcIndexUInt64
	}
}

func (c *ColLowCardinality) DecodeColumn(r *Reader, rows int) error {
	if _, err := r.UInt64(); err != nil { // serialization version
		return err
	}
	flags, err := r.UInt64()
	if err != nil {
		return err
	}
	dictSize, err := r.UInt64()
	if err != nil {
		return err
	}
	if err := r.CheckCount(int(dictSize)); err != nil {
		return err
	}
	c.dict.Reset()
	if err := c.dict.DecodeColumn(r, int(dictSize)); err != nil {
		return err
	}
	numRows, err := r.UInt64()
	if err != nil {
		return err
	}
	if err := r.CheckCount(int(numRows)); err != nil {
		return err
	}
	if numRows != uint64(rows) {
		return Malformed("low cardinality index row count does not match block row count")
	}
	index := make([]uint64, 0, numRows)
	width := int(flags & 0xff)
	for i := uint64(0); i < numRows; i++ {
		var v uint64
		switch width {
		case lcIndexUInt8:
			b, err := r.UInt8()
			if err != nil {
				return err
			}
			v = uint64(b)
		case lcIndexUInt16:
			b, err := r.UInt16()
			if err != nil {
				return err
			}
			v = uint64(b)
		case lcIndexUInt32:
			b, err := r.UInt32()
			if err != nil {
				return err
			}
			v = uint64(b)
		default:
			b, err := r.UInt64()
			if err != nil {
				return err
			}
			v = b
		}
		index = append(index, v)
	}
	c.index = index
	return nil
}

func (c *ColLowCardinality) EncodeColumn(b *Buffer) {
	dictSize := uint64(c.dict.Rows())
	width := indexWidthFor(dictSize)
	b.PutUInt64(lcSharedDictVersion)
	b.PutUInt64(uint64(width) | lcHasAdditionalKeysBit)
	b.PutUInt64(dictSize)
	c.dict.EncodeColumn(b)
	b.PutUInt64(uint64(len(c.index)))
	for _, v := range c.index {
		switch width {
		case lcIndexUInt8:
			b.PutUInt8(uint8(v))
		case lcIndexUInt16:
			b.PutUInt16(uint16(v))
		case lcIndexUInt32:
			b.PutUInt32(uint32(v))
		default:
			b.PutUInt64(v)
		}
	}
}
