package authz

import "time"

// ---------------------------------------------------------------------------
// LegacyGrant Value Object
// ---------------------------------------------------------------------------

// LegacyGrant is the authorization record as the legacy system holds it.
// Gateways translate whatever shape the legacy side uses into this value;
// nothing beyond it crosses the boundary.
type LegacyGrant struct {
	// SubjectID is the legacy integer subject identifier
	SubjectID int64
	// Operation is the legacy operation name
	Operation string
	// Authorized is the legacy system's decision for this pair
	Authorized bool
	// Source names the gateway kind that produced the record
	Source GatewayKind
	// FetchedAt is when the gateway read the record
	FetchedAt time.Time
}
