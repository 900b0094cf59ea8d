package proto

// Progress is the periodic (rows-read, bytes-read, total-rows) tuple
// sent during query execution.
type Progress struct {
	Rows      uint64
	Bytes     uint64
	TotalRows uint64
}

// Encode writes a SERVER_PROGRESS packet body. Progress is nominally a
// revision-gated packet, but the three fields carried here all predate
// every threshold this server distinguishes, so unlike HelloResponse
// and ClientInfo there is no gate to apply; later protocol additions
// (written-rows/bytes, elapsed time) are not part of this data model.
func (p Progress) Encode(b *Buffer) {
	b.PutUVarint(p.Rows)
	b.PutUVarint(p.Bytes)
	b.PutUVarint(p.TotalRows)
}

// Add accumulates delta into p, returning the updated value.
func (p Progress) Add(delta Progress) Progress {
	return Progress{
		Rows:      p.Rows + delta.Rows,
		Bytes:     p.Bytes + delta.Bytes,
		TotalRows: p.TotalRows + delta.TotalRows,
	}
}
