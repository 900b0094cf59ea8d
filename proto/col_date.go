package proto

// NewColDate returns a Date column codec: u16 days since 1970-01-01,
// reusing the UInt16 codec with its declared type overridden to "Date".
func NewColDate() *ColNumeric[uint16] {
	c := NewColUInt16()
	c.SetType(ColumnTypeDate)
	return c
}

// NewColDateTime returns a DateTime column codec for the given declared
// type string (plain "DateTime" or "DateTime('tz')" — the timezone is
// metadata only and is accepted at every negotiated revision). Backed
// by u32 Unix seconds.
func NewColDateTime(typ ColumnType) *ColNumeric[uint32] {
	c := NewColUInt32()
	c.SetType(typ)
	return c
}

// NewColDateTime64 returns a DateTime64(p, 'tz') column codec. Backed by
// i64 ticks at 10^p precision; both p and the timezone are metadata
// carried only in the type string.
func NewColDateTime64(typ ColumnType) *ColNumeric[int64] {
	c := NewColInt64()
	c.SetType(typ)
	return c
}
