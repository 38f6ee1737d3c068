package cutover

import (
	"github.com/erp/bridge/internal/domain/shared"
)

// Aggregate type constant
const AggregateTypeRoute = "CutoverRoute"

// Event type constants
const (
	EventTypeRouteChanged = "CutoverRouteChanged"
)

// RouteChangedEvent is raised whenever a route's mode or percentage changes
type RouteChangedEvent struct {
	shared.BaseDomainEvent
	Operation  string `json:"operation"`
	Mode       Mode   `json:"mode"`
	Percentage int    `json:"percentage"`
}

// NewRouteChangedEvent creates a new RouteChangedEvent
func NewRouteChangedEvent(route *Route) *RouteChangedEvent {
	return &RouteChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeRouteChanged, AggregateTypeRoute, route.ID),
		Operation:       route.Operation,
		Mode:            route.Mode,
		Percentage:      route.Percentage,
	}
}

// EventType returns the event type name
func (e *RouteChangedEvent) EventType() string {
	return EventTypeRouteChanged
}
