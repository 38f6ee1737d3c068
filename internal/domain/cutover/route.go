package cutover

import (
	"regexp"

	"github.com/erp/bridge/internal/domain/shared"
)

// ---------------------------------------------------------------------------
// Mode
// ---------------------------------------------------------------------------

// Mode determines where traffic for a strangled operation is served
type Mode string

const (
	// ModeLegacy proxies all traffic to the legacy monolith
	ModeLegacy Mode = "legacy"
	// ModeModern serves all traffic from this service
	ModeModern Mode = "modern"
	// ModeCanary serves a stable percentage cohort from this service
	ModeCanary Mode = "canary"
)

// IsValid returns true if the mode is valid
func (m Mode) IsValid() bool {
	switch m {
	case ModeLegacy, ModeModern, ModeCanary:
		return true
	default:
		return false
	}
}

// String returns the string representation of Mode
func (m Mode) String() string {
	return string(m)
}

// ---------------------------------------------------------------------------
// Route Aggregate
// ---------------------------------------------------------------------------

// Operation names share the legacy system's vocabulary: lower snake_case.
var operationPattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// Route is the cutover state of one strangled operation. There is at most
// one route per operation name; operations without a route stay on the
// legacy system.
type Route struct {
	shared.BaseAggregateRoot
	Operation  string
	Mode       Mode
	Percentage int // canary cohort size, 0-100; meaningful only in canary mode
	Notes      string
}

// NewRoute creates a new cutover route, starting on the legacy side
func NewRoute(operation string) (*Route, error) {
	if !operationPattern.MatchString(operation) || len(operation) > 64 {
		return nil, shared.NewDomainError("INVALID_OPERATION", "Operation must be a lower snake_case name")
	}

	route := &Route{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Operation:         operation,
		Mode:              ModeLegacy,
		Percentage:        0,
	}

	route.AddDomainEvent(NewRouteChangedEvent(route))

	return route, nil
}

// SetMode switches the route mode. Canary keeps the current percentage,
// legacy resets it to 0, modern forces it to 100.
func (r *Route) SetMode(mode Mode) error {
	if !mode.IsValid() {
		return shared.NewDomainError("INVALID_MODE", "Unknown cutover mode")
	}

	r.Mode = mode
	switch mode {
	case ModeLegacy:
		r.Percentage = 0
	case ModeModern:
		r.Percentage = 100
	}
	r.Touch()

	r.AddDomainEvent(NewRouteChangedEvent(r))

	return nil
}

// SetPercentage sets the canary cohort size and switches into canary mode
func (r *Route) SetPercentage(percentage int) error {
	if percentage < 0 || percentage > 100 {
		return shared.NewDomainError("INVALID_PERCENTAGE", "Percentage must be between 0 and 100")
	}

	r.Mode = ModeCanary
	r.Percentage = percentage
	r.Touch()

	r.AddDomainEvent(NewRouteChangedEvent(r))

	return nil
}

// Advance grows the canary cohort by the given step, capping at 100.
// Reaching 100 promotes the route to modern mode.
func (r *Route) Advance(step int) error {
	if step <= 0 {
		return shared.NewDomainError("INVALID_STEP", "Advance step must be positive")
	}
	if r.Mode == ModeLegacy {
		return shared.NewDomainError("INVALID_MODE", "Cannot advance a route pinned to legacy")
	}

	r.Percentage += step
	if r.Percentage >= 100 {
		r.Percentage = 100
		r.Mode = ModeModern
	} else {
		r.Mode = ModeCanary
	}
	r.Touch()

	r.AddDomainEvent(NewRouteChangedEvent(r))

	return nil
}

// SetNotes updates the operator notes
func (r *Route) SetNotes(notes string) {
	r.Notes = notes
	r.Touch()
}

// ServesModern returns true if at least part of the traffic is served here
func (r *Route) ServesModern() bool {
	return r.Mode == ModeModern || (r.Mode == ModeCanary && r.Percentage > 0)
}
