package proto

// NewColEnum8 returns an Enum8(...) column codec: a signed 8-bit backing
// integer whose label map lives entirely in the type string (decoded
// values are the raw codes; label lookup is the executor's concern).
func NewColEnum8(typ ColumnType) *ColNumeric[int8] {
	c := NewColInt8()
	c.SetType(typ)
	return c
}

// NewColEnum16 returns an Enum16(...) column codec, backed by a signed
// 16-bit integer.
func NewColEnum16(typ ColumnType) *ColNumeric[int16] {
	c := NewColInt16()
	c.SetType(typ)
	return c
}
