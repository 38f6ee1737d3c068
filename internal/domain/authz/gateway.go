package authz

import "context"

// ---------------------------------------------------------------------------
// GatewayKind
// ---------------------------------------------------------------------------

// GatewayKind identifies how the bridge reaches the legacy authorization
// store.
type GatewayKind string

const (
	// GatewayKindSQL reads the legacy permission table directly
	GatewayKindSQL GatewayKind = "sql"
	// GatewayKindHTTP calls the legacy monolith's internal check endpoint
	GatewayKindHTTP GatewayKind = "http"
)

// IsValid returns true if the gateway kind is valid
func (k GatewayKind) IsValid() bool {
	switch k {
	case GatewayKindSQL, GatewayKindHTTP:
		return true
	default:
		return false
	}
}

// String returns the string representation of GatewayKind
func (k GatewayKind) String() string {
	return string(k)
}

// ---------------------------------------------------------------------------
// LegacyGateway Port Interface
// ---------------------------------------------------------------------------

// LegacyGateway is the port through which the facade reads legacy
// authorization records. Concrete adapters (SQL, HTTP) live in the
// infrastructure layer.
//
// FetchGrant returns the record for (subjectID, operation), or
// ErrGrantNotFound when the legacy store holds no record for the pair.
// Every legacy-specific failure is translated into ErrLegacyUnavailable;
// legacy driver or transport errors never cross this boundary.
type LegacyGateway interface {
	// Kind returns the gateway kind this adapter implements
	Kind() GatewayKind

	// FetchGrant reads the legacy authorization record for the pair
	FetchGrant(ctx context.Context, subjectID int64, operation string) (*LegacyGrant, error)

	// Ping verifies the legacy system is reachable
	Ping(ctx context.Context) error
}
