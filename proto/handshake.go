package proto

// HelloRequest is the client identity and capability tuple sent as the
// very first packet on a connection. The client's own version patch is
// never present in Hello itself — it arrives later in ClientInfo's
// gated VersionPatch field inside QueryRequest.
type HelloRequest struct {
	ClientName     string
	VersionMajor   uint64
	VersionMinor   uint64
	ClientRevision uint64
	Database       string
	User           string
	Password       string
}

// DecodeHelloRequest decodes a CLIENT_HELLO packet body. The packet-kind
// varint itself is consumed by the caller (packet dispatch).
func DecodeHelloRequest(r *Reader) (*HelloRequest, error) {
	var req HelloRequest
	var err error
	if req.ClientName, err = r.Str(); err != nil {
		return nil, err
	}
	if req.VersionMajor, err = r.UVarint(); err != nil {
		return nil, err
	}
	if req.VersionMinor, err = r.UVarint(); err != nil {
		return nil, err
	}
	if req.ClientRevision, err = r.UVarint(); err != nil {
		return nil, err
	}
	if req.Database, err = r.Str(); err != nil {
		return nil, err
	}
	if req.User, err = r.Str(); err != nil {
		return nil, err
	}
	if req.Password, err = r.Str(); err != nil {
		return nil, err
	}
	return &req, nil
}

// HelloResponse is the server's reply to a successful Hello handshake.
// Fields after Revision are conditional on the negotiated revision
// crossing their respective thresholds.
type HelloResponse struct {
	ServerName       string
	VersionMajor     uint64
	VersionMinor     uint64
	VersionPatch     uint64 // present iff revision >= FeatureVersionPatch
	Revision         uint64
	Timezone         string // present iff revision >= FeatureServerTimezone
	ServerDisplayName string // present iff revision >= FeatureServerDisplayName
}

// Encode writes the HelloResponse body gated on revision (the
// negotiated client_revision, which also equals the value written as
// Revision itself).
func (h *HelloResponse) Encode(b *Buffer, revision uint64) {
	b.PutStr(h.ServerName)
	b.PutUVarint(h.VersionMajor)
	b.PutUVarint(h.VersionMinor)
	b.PutUVarint(h.Revision)
	if revision >= FeatureServerTimezone {
		b.PutStr(h.Timezone)
	}
	if revision >= FeatureServerDisplayName {
		b.PutStr(h.ServerDisplayName)
	}
	if revision >= FeatureVersionPatch {
		b.PutUVarint(h.VersionPatch)
	}
}
