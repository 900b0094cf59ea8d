package proto

// QueryKind distinguishes whether a query was issued directly by a user
// or relayed from another server in a distributed query.
type QueryKind uint8

const (
	QueryKindNone           QueryKind = 0
	QueryKindInitial        QueryKind = 1
	QueryKindSecondary      QueryKind = 2
)

// InterfaceKind is how the initiating client connected.
type InterfaceKind uint8

const (
	InterfaceTCP  InterfaceKind = 1
	InterfaceHTTP InterfaceKind = 2
)

// ClientInfo is the nested identity block inside a QueryRequest, present
// only when the negotiated revision is >= FeatureClientInfo. Fields
// below that comment are individually revision-gated.
type ClientInfo struct {
	QueryKind       QueryKind
	InitialUser     string
	InitialQueryID  string
	InitialAddress  string
	Interface       InterfaceKind
	OSUser          string
	ClientHostname  string
	ClientName      string
	ClientVersionMajor uint64
	ClientVersionMinor uint64
	ClientRevision     uint64
	HTTPMethod      uint8
	HTTPUserAgent   string

	QuotaKey     string // present iff revision >= FeatureQuotaKeyInClientInfo
	VersionPatch uint64 // present iff revision >= FeatureVersionPatch

	// OpenTelemetry span context: parsed when present so the wire stays
	// in sync for a real client, but not acted on — propagating a trace
	// context into this server's own spans is out of scope.
	HasOpenTelemetry bool
	TraceID          [16]byte
	SpanID           [8]byte
	TraceState       string
	TraceFlags       uint8
}

// MinimalClientInfo synthesizes a ClientInfo from a HelloRequest for
// connections negotiated below FeatureClientInfo, which never send a
// ClientInfo block of their own.
func MinimalClientInfo(hello *HelloRequest) *ClientInfo {
	return &ClientInfo{
		QueryKind:          QueryKindInitial,
		InitialUser:        hello.User,
		Interface:          InterfaceTCP,
		ClientName:         hello.ClientName,
		ClientVersionMajor: hello.VersionMajor,
		ClientVersionMinor: hello.VersionMinor,
		ClientRevision:     hello.ClientRevision,
	}
}

// DecodeClientInfo decodes a ClientInfo block gated on revision.
func DecodeClientInfo(r *Reader, revision uint64) (*ClientInfo, error) {
	var ci ClientInfo
	kind, err := r.UInt8()
	if err != nil {
		return nil, err
	}
	ci.QueryKind = QueryKind(kind)
	if ci.QueryKind == QueryKindNone {
		return &ci, nil
	}
	if ci.InitialUser, err = r.Str(); err != nil {
		return nil, err
	}
	if ci.InitialQueryID, err = r.Str(); err != nil {
		return nil, err
	}
	if ci.InitialAddress, err = r.Str(); err != nil {
		return nil, err
	}
	iface, err := r.UInt8()
	if err != nil {
		return nil, err
	}
	ci.Interface = InterfaceKind(iface)

	// The identity tuple is interface-specific: a TCP client sends its
	// OS user, hostname, and name/version tuple; an HTTP-originated one
	// sends only the method and user agent.
	switch ci.Interface {
	case InterfaceTCP:
		if ci.OSUser, err = r.Str(); err != nil {
			return nil, err
		}
		if ci.ClientHostname, err = r.Str(); err != nil {
			return nil, err
		}
		if ci.ClientName, err = r.Str(); err != nil {
			return nil, err
		}
		if ci.ClientVersionMajor, err = r.UVarint(); err != nil {
			return nil, err
		}
		if ci.ClientVersionMinor, err = r.UVarint(); err != nil {
			return nil, err
		}
		if ci.ClientRevision, err = r.UVarint(); err != nil {
			return nil, err
		}
	case InterfaceHTTP:
		if ci.HTTPMethod, err = r.UInt8(); err != nil {
			return nil, err
		}
		if ci.HTTPUserAgent, err = r.Str(); err != nil {
			return nil, err
		}
	}
	if revision >= FeatureQuotaKeyInClientInfo {
		if ci.QuotaKey, err = r.Str(); err != nil {
			return nil, err
		}
	}
	if ci.Interface == InterfaceTCP && revision >= FeatureVersionPatch {
		if ci.VersionPatch, err = r.UVarint(); err != nil {
			return nil, err
		}
	}
	if revision >= FeatureOpenTelemetry {
		flag, err := r.UInt8()
		if err != nil {
			return nil, err
		}
		if flag != 0 {
			ci.HasOpenTelemetry = true
			traceID, err := r.Raw(16)
			if err != nil {
				return nil, err
			}
			copy(ci.TraceID[:], traceID)
			spanID, err := r.Raw(8)
			if err != nil {
				return nil, err
			}
			copy(ci.SpanID[:], spanID)
			if ci.TraceState, err = r.Str(); err != nil {
				return nil, err
			}
			if ci.TraceFlags, err = r.UInt8(); err != nil {
				return nil, err
			}
		}
	}
	return &ci, nil
}
