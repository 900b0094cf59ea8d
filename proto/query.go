package proto

// Stage is the client-requested execution stage for a query.
type Stage uint64

const (
	StageFetchColumns      Stage = 0
	StageWithMergeableState Stage = 1
	StageComplete          Stage = 2
)

// QueryRequest is the decoded body of a CLIENT_QUERY packet.
type QueryRequest struct {
	QueryID     string
	ClientInfo  *ClientInfo
	Secret      string // present iff revision >= FeatureInterserverSecret
	Stage       Stage
	Compression bool
	Query       string
}

// DecodeQueryRequest decodes a CLIENT_QUERY packet body. hello must be
// non-nil (a Query before Hello is an UnexpectedPacket, enforced by
// the caller).
func DecodeQueryRequest(r *Reader, revision uint64, hello *HelloRequest) (*QueryRequest, error) {
	var q QueryRequest
	var err error
	if q.QueryID, err = r.Str(); err != nil {
		return nil, err
	}
	if revision >= FeatureClientInfo {
		if q.ClientInfo, err = DecodeClientInfo(r, revision); err != nil {
			return nil, err
		}
	} else {
		q.ClientInfo = MinimalClientInfo(hello)
	}
	if err := skipSettings(r, revision); err != nil {
		return nil, err
	}
	// The interserver secret sits between the settings list and the
	// stage, not next to ClientInfo where one would expect it.
	if revision >= FeatureInterserverSecret {
		if q.Secret, err = r.Str(); err != nil {
			return nil, err
		}
	}
	stage, err := r.UVarint()
	if err != nil {
		return nil, err
	}
	q.Stage = Stage(stage)
	compression, err := r.UVarint()
	if err != nil {
		return nil, err
	}
	q.Compression = compression != 0
	if q.Query, err = r.Str(); err != nil {
		return nil, err
	}
	return &q, nil
}

// skipSettings consumes the settings list, terminated by an empty key,
// discarding every value. Only the modern "settings as strings" wire format
// (flags varint + string value, introduced at FeatureSettingsAsStrings)
// is generically skippable without per-setting type knowledge; a
// connection negotiated below that revision that actually sends a
// non-empty settings list cannot be parsed further and is rejected as
// malformed rather than silently desynced.
func skipSettings(r *Reader, revision uint64) error {
	for {
		key, err := r.Str()
		if err != nil {
			return err
		}
		if key == "" {
			return nil
		}
		if revision < FeatureSettingsAsStrings {
			return Malformed("legacy settings encoding (pre-SETTINGS_AS_STRINGS) unsupported")
		}
		if _, err := r.UVarint(); err != nil { // flags (bit0 = important)
			return err
		}
		if _, err := r.Str(); err != nil { // value, discarded
			return err
		}
	}
}
