package proto

// Exception is a SERVER_EXCEPTION frame. Field order on the wire is
// code, name, message, stack_trace, nested.
type Exception struct {
	Code       int32
	Name       string
	Message    string
	StackTrace string
	Nested     bool
}

// Encode writes the Exception fields in wire order. Name is always
// empty on this server — ClickHouse itself only ever populates it from
// a client-facing re-throw, which this library never does.
func (e Exception) Encode(b *Buffer) {
	b.PutInt32(e.Code)
	b.PutStr(e.Name)
	b.PutStr(e.Message)
	b.PutStr(e.StackTrace)
	b.PutBool(e.Nested)
}
