package proto

// ClientCode identifies the kind of a packet sent client -> server.
type ClientCode uint64

const (
	ClientCodeHello  ClientCode = 0
	ClientCodeQuery  ClientCode = 1
	ClientCodeData   ClientCode = 2
	ClientCodeCancel ClientCode = 3
	ClientCodePing   ClientCode = 4
	ClientCodeScalar ClientCode = 7
)

func (c ClientCode) String() string {
	switch c {
	case ClientCodeHello:
		return "Hello"
	case ClientCodeQuery:
		return "Query"
	case ClientCodeData:
		return "Data"
	case ClientCodeCancel:
		return "Cancel"
	case ClientCodePing:
		return "Ping"
	case ClientCodeScalar:
		return "Scalar"
	default:
		return "Unknown"
	}
}

// ServerCode identifies the kind of a packet sent server -> client.
type ServerCode uint64

const (
	ServerCodeHello       ServerCode = 0
	ServerCodeData        ServerCode = 1
	ServerCodeException   ServerCode = 2
	ServerCodeProgress    ServerCode = 3
	ServerCodePong        ServerCode = 4
	ServerCodeEndOfStream ServerCode = 5
)

func (c ServerCode) String() string {
	switch c {
	case ServerCodeHello:
		return "Hello"
	case ServerCodeData:
		return "Data"
	case ServerCodeException:
		return "Exception"
	case ServerCodeProgress:
		return "Progress"
	case ServerCodePong:
		return "Pong"
	case ServerCodeEndOfStream:
		return "EndOfStream"
	default:
		return "Unknown"
	}
}

// Encode writes the ServerCode tag as a varint.
func (c ServerCode) Encode(b *Buffer) { b.PutUVarint(uint64(c)) }

// Revision gate thresholds, named after the DBMS_MIN_REVISION_WITH_*
// constants in the ClickHouse wire protocol. A field is present on the
// wire iff the negotiated revision is >= its threshold; every encoder
// and decoder in this module gates fields off of one of these instead
// of a locally hardcoded number.
const (
	FeatureClientInfo           = 54032
	FeatureServerTimezone       = 54058
	FeatureQuotaKeyInClientInfo = 54060
	FeatureTablesStatus         = 54226
	FeatureDateTimeTimezone     = 54337
	FeatureServerDisplayName    = 54372
	FeatureVersionPatch         = 54401
	FeatureServerLogs           = 54406
	FeatureLowCardinality       = 54405
	FeatureColumnDefaults       = 54410
	FeatureClientWriteInfo      = 54420
	FeatureSettingsAsStrings    = 54429
	FeatureCurrentAggregation   = 54431
	FeatureInterserverSecret    = 54441
	FeatureOpenTelemetry        = 54442
	FeatureXForwardedFor        = 54443
	FeatureReferer              = 54447
	FeatureParameters           = 54459

	// ClientTCPProtocolVersion is the revision memexec's DefaultConfig
	// advertises as its DBMS_TCP_PROTOCOL_VERSION. The server package
	// applies no default of its own: it always uses the value the
	// Executor reports.
	ClientTCPProtocolVersion = FeatureParameters
)

// IsHTTPMisroute reports whether kind is the leading byte of a misrouted
// HTTP request line ("GET ..." or "POST ...") read where a packet-kind
// varint was expected. A single-byte varint whose value is the ASCII
// code for 'G' or 'P' is indistinguishable from the real tag space only
// by convention; ClickHouse itself special-cases exactly these two.
func IsHTTPMisroute(kind uint64) bool {
	return kind == uint64('G') || kind == uint64('P')
}
