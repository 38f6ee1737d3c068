package cutover

import (
	"context"
	"errors"
)

// ---------------------------------------------------------------------------
// Decision
// ---------------------------------------------------------------------------

// Target is the side of the migration that serves a request
type Target string

const (
	// TargetLegacy means the legacy monolith serves the request
	TargetLegacy Target = "legacy"
	// TargetModern means this service serves the request
	TargetModern Target = "modern"
)

// String returns the string representation of Target
func (t Target) String() string {
	return string(t)
}

// Reason explains why a decision was made
type Reason string

const (
	// ReasonUnrouted means no route exists; the legacy system keeps ownership
	ReasonUnrouted Reason = "unrouted"
	// ReasonMode means the route's mode fully determined the target
	ReasonMode Reason = "mode"
	// ReasonCohort means the canary cohort hash determined the target
	ReasonCohort Reason = "cohort"
	// ReasonError means route lookup failed; traffic stays on legacy
	ReasonError Reason = "error"
)

// Decision is the outcome of routing one request
type Decision struct {
	Operation  string
	Target     Target
	Reason     Reason
	Percentage int
}

// IsModern returns true if this service serves the request
func (d Decision) IsModern() bool {
	return d.Target == TargetModern
}

// ---------------------------------------------------------------------------
// Decider
// ---------------------------------------------------------------------------

// RouteProvider supplies the route for an operation. Implemented by the
// route repository, or by a cached wrapper around it.
type RouteProvider interface {
	FindByOperation(ctx context.Context, operation string) (*Route, error)
}

// Decider evaluates cutover routes. Evaluation order:
//  1. No route, or lookup reports not found: legacy (reason "unrouted").
//  2. Lookup error: legacy (reason "error"); a broken route table must not
//     take order traffic away from the system that can still serve it.
//  3. Mode legacy/modern: decided by mode alone.
//  4. Mode canary: consistent cohort hash of (operation, subjectKey).
type Decider struct {
	routes RouteProvider
}

// NewDecider creates a new cutover decider
func NewDecider(routes RouteProvider) *Decider {
	return &Decider{routes: routes}
}

// Decide returns the routing decision for one request
func (d *Decider) Decide(ctx context.Context, operation, subjectKey string) Decision {
	route, err := d.routes.FindByOperation(ctx, operation)
	if err != nil {
		if errors.Is(err, ErrRouteNotFound) {
			return Decision{Operation: operation, Target: TargetLegacy, Reason: ReasonUnrouted}
		}
		return Decision{Operation: operation, Target: TargetLegacy, Reason: ReasonError}
	}
	if route == nil {
		return Decision{Operation: operation, Target: TargetLegacy, Reason: ReasonUnrouted}
	}

	return DecideWithRoute(route, subjectKey)
}

// DecideWithRoute evaluates a pre-fetched route. Useful when the route is
// already loaded (e.g., from cache).
func DecideWithRoute(route *Route, subjectKey string) Decision {
	decision := Decision{
		Operation:  route.Operation,
		Percentage: route.Percentage,
	}

	switch route.Mode {
	case ModeModern:
		decision.Target = TargetModern
		decision.Reason = ReasonMode
	case ModeCanary:
		decision.Reason = ReasonCohort
		if IsInCohort(route.Operation, subjectKey, route.Percentage) {
			decision.Target = TargetModern
		} else {
			decision.Target = TargetLegacy
		}
	default:
		decision.Target = TargetLegacy
		decision.Reason = ReasonMode
	}

	return decision
}
