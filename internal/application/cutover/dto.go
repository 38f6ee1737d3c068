package cutover

import (
	"time"

	"github.com/google/uuid"

	"github.com/erp/bridge/internal/domain/cutover"
)

// CreateRouteRequest represents a request to put an operation under cutover control
type CreateRouteRequest struct {
	Operation string `json:"operation" binding:"required,min=1,max=64"`
	Notes     string `json:"notes" binding:"max=500"`
}

// UpdateRouteRequest represents a request to change a route's mode or cohort
type UpdateRouteRequest struct {
	Mode       *string `json:"mode" binding:"omitempty,oneof=legacy modern canary"`
	Percentage *int    `json:"percentage" binding:"omitempty,min=0,max=100"`
	Notes      *string `json:"notes"`
}

// AdvanceRouteRequest represents a request to grow the canary cohort
type AdvanceRouteRequest struct {
	Step int `json:"step" binding:"required,min=1,max=100"`
}

// RouteListFilter represents filter options for the route list
type RouteListFilter struct {
	Search   string `form:"search"`
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// RouteResponse represents a cutover route in API responses
type RouteResponse struct {
	ID         uuid.UUID `json:"id"`
	Operation  string    `json:"operation"`
	Mode       string    `json:"mode"`
	Percentage int       `json:"percentage"`
	Notes      string    `json:"notes,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
	Version    int       `json:"version"`
}

// DecisionResponse represents a routing decision in API responses
type DecisionResponse struct {
	Operation  string `json:"operation"`
	Target     string `json:"target"`
	Reason     string `json:"reason"`
	Percentage int    `json:"percentage"`
}

// ToRouteResponse converts a domain Route to a response DTO
func ToRouteResponse(route *cutover.Route) RouteResponse {
	return RouteResponse{
		ID:         route.ID,
		Operation:  route.Operation,
		Mode:       route.Mode.String(),
		Percentage: route.Percentage,
		Notes:      route.Notes,
		CreatedAt:  route.CreatedAt,
		UpdatedAt:  route.UpdatedAt,
		Version:    route.Version,
	}
}

// ToRouteResponses converts a slice of domain routes to response DTOs
func ToRouteResponses(routes []cutover.Route) []RouteResponse {
	responses := make([]RouteResponse, len(routes))
	for i := range routes {
		responses[i] = ToRouteResponse(&routes[i])
	}
	return responses
}

// ToDecisionResponse converts a domain Decision to a response DTO
func ToDecisionResponse(decision cutover.Decision) DecisionResponse {
	return DecisionResponse{
		Operation:  decision.Operation,
		Target:     decision.Target.String(),
		Reason:     string(decision.Reason),
		Percentage: decision.Percentage,
	}
}
