package cutover

import (
	"context"

	"github.com/erp/bridge/internal/domain/shared"
	"github.com/google/uuid"
)

// RouteRepository defines the interface for cutover route persistence
type RouteRepository interface {
	// FindByID finds a route by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Route, error)

	// FindByOperation finds the route for an operation name
	FindByOperation(ctx context.Context, operation string) (*Route, error)

	// FindAll lists routes matching the filter
	FindAll(ctx context.Context, filter shared.Filter) ([]Route, error)

	// Save creates or updates a route
	Save(ctx context.Context, route *Route) error

	// Delete removes a route; traffic for the operation falls back to legacy
	Delete(ctx context.Context, id uuid.UUID) error

	// Count counts routes matching the filter
	Count(ctx context.Context, filter shared.Filter) (int64, error)
}
