package cutover

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/erp/bridge/internal/domain/cutover"
	"github.com/erp/bridge/internal/domain/shared"
	"github.com/erp/bridge/internal/infrastructure/telemetry"
)

// RouteService administers cutover routes and answers routing decisions.
// Decisions fail open towards the legacy system: whatever goes wrong while
// looking up a route, traffic keeps flowing where it always did.
type RouteService struct {
	routeRepo      cutover.RouteRepository
	decider        *cutover.Decider
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
}

// NewRouteService creates a new RouteService
func NewRouteService(routeRepo cutover.RouteRepository, logger *zap.Logger) *RouteService {
	return &RouteService{
		routeRepo: routeRepo,
		decider:   cutover.NewDecider(routeRepo),
		logger:    logger,
	}
}

// SetEventPublisher sets the event publisher for cross-context integration
func (s *RouteService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// Decide answers which side of the migration serves the operation for the
// given subject key.
func (s *RouteService) Decide(ctx context.Context, operation, subjectKey string) cutover.Decision {
	ctx, span := telemetry.StartServiceSpan(ctx, "cutover", "decide")
	defer span.End()

	decision := s.decider.Decide(ctx, operation, subjectKey)

	telemetry.SetAttributes(span,
		telemetry.SpanAttrOperation, operation,
		telemetry.SpanAttrRouteTarget, decision.Target.String(),
		telemetry.SpanAttrRouteReason, string(decision.Reason),
	)

	s.logger.Debug("Cutover decision",
		zap.String("operation", operation),
		zap.String("target", decision.Target.String()),
		zap.String("reason", string(decision.Reason)))

	return decision
}

// CreateRoute puts an operation under cutover control, starting on legacy
func (s *RouteService) CreateRoute(ctx context.Context, req CreateRouteRequest) (*RouteResponse, error) {
	existing, err := s.routeRepo.FindByOperation(ctx, req.Operation)
	if err != nil && !errors.Is(err, cutover.ErrRouteNotFound) {
		return nil, err
	}
	if existing != nil {
		return nil, cutover.ErrRouteAlreadyExists
	}

	route, err := cutover.NewRoute(req.Operation)
	if err != nil {
		return nil, err
	}
	if req.Notes != "" {
		route.SetNotes(req.Notes)
	}

	if err := s.routeRepo.Save(ctx, route); err != nil {
		return nil, err
	}

	s.logger.Info("Cutover route created",
		zap.String("operation", route.Operation),
		zap.String("mode", route.Mode.String()))

	s.publishEvents(ctx, route)

	response := ToRouteResponse(route)
	return &response, nil
}

// GetRoute retrieves a route by ID
func (s *RouteService) GetRoute(ctx context.Context, id uuid.UUID) (*RouteResponse, error) {
	route, err := s.routeRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	response := ToRouteResponse(route)
	return &response, nil
}

// GetRouteByOperation retrieves the route for an operation
func (s *RouteService) GetRouteByOperation(ctx context.Context, operation string) (*RouteResponse, error) {
	route, err := s.routeRepo.FindByOperation(ctx, operation)
	if err != nil {
		return nil, err
	}
	response := ToRouteResponse(route)
	return &response, nil
}

// ListRoutes retrieves routes with filtering and pagination
func (s *RouteService) ListRoutes(ctx context.Context, filter RouteListFilter) ([]RouteResponse, int64, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}

	domainFilter := shared.Filter{
		Search:   filter.Search,
		Page:     filter.Page,
		PageSize: filter.PageSize,
	}

	routes, err := s.routeRepo.FindAll(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.routeRepo.Count(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}

	return ToRouteResponses(routes), total, nil
}

// UpdateRoute changes a route's mode, cohort percentage or notes
func (s *RouteService) UpdateRoute(ctx context.Context, id uuid.UUID, req UpdateRouteRequest) (*RouteResponse, error) {
	route, err := s.routeRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Mode != nil {
		if err := route.SetMode(cutover.Mode(*req.Mode)); err != nil {
			return nil, err
		}
	}
	if req.Percentage != nil {
		if err := route.SetPercentage(*req.Percentage); err != nil {
			return nil, err
		}
	}
	if req.Notes != nil {
		route.SetNotes(*req.Notes)
	}

	if err := s.routeRepo.Save(ctx, route); err != nil {
		return nil, err
	}

	s.logger.Info("Cutover route updated",
		zap.String("operation", route.Operation),
		zap.String("mode", route.Mode.String()),
		zap.Int("percentage", route.Percentage))

	s.publishEvents(ctx, route)

	response := ToRouteResponse(route)
	return &response, nil
}

// AdvanceRoute grows the canary cohort, promoting to modern at 100
func (s *RouteService) AdvanceRoute(ctx context.Context, id uuid.UUID, req AdvanceRouteRequest) (*RouteResponse, error) {
	route, err := s.routeRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := route.Advance(req.Step); err != nil {
		return nil, err
	}

	if err := s.routeRepo.Save(ctx, route); err != nil {
		return nil, err
	}

	s.logger.Info("Cutover route advanced",
		zap.String("operation", route.Operation),
		zap.String("mode", route.Mode.String()),
		zap.Int("percentage", route.Percentage))

	s.publishEvents(ctx, route)

	response := ToRouteResponse(route)
	return &response, nil
}

// DeleteRoute removes a route, sending its operation back to legacy
func (s *RouteService) DeleteRoute(ctx context.Context, id uuid.UUID) error {
	route, err := s.routeRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.routeRepo.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Info("Cutover route deleted", zap.String("operation", route.Operation))
	return nil
}

func (s *RouteService) publishEvents(ctx context.Context, route *cutover.Route) {
	if s.eventPublisher == nil {
		return
	}
	for _, event := range route.GetDomainEvents() {
		if err := s.eventPublisher.Publish(ctx, event); err != nil {
			s.logger.Warn("Failed to publish domain event",
				zap.String("event_type", event.EventType()),
				zap.Error(err))
		}
	}
	route.ClearDomainEvents()
}
