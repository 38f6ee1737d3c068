package cutover

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/erp/bridge/internal/domain/cutover"
	"github.com/erp/bridge/internal/domain/shared"
)

// DecisionInvalidator is the slice of the decision cache this handler
// needs. Implementations come from the authz cache backends.
type DecisionInvalidator interface {
	InvalidateAll(ctx context.Context) error
}

// RouteChangedHandler reacts to cutover route changes: it writes the
// audit line operators grep for during a migration wave, and drops all
// cached authorization decisions so the newly serving side starts from
// fresh legacy answers instead of decisions cached under the old route.
type RouteChangedHandler struct {
	logger      *zap.Logger
	invalidator DecisionInvalidator
}

// NewRouteChangedHandler creates a handler that only audits. Chain
// WithInvalidator when decision caching is enabled.
func NewRouteChangedHandler(logger *zap.Logger) *RouteChangedHandler {
	return &RouteChangedHandler{logger: logger}
}

// WithInvalidator sets the decision cache to flush on route changes.
func (h *RouteChangedHandler) WithInvalidator(invalidator DecisionInvalidator) *RouteChangedHandler {
	h.invalidator = invalidator
	return h
}

// EventTypes returns the event types this handler is interested in
func (h *RouteChangedHandler) EventTypes() []string {
	return []string{cutover.EventTypeRouteChanged}
}

// Handle processes a RouteChangedEvent
func (h *RouteChangedHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	changed, ok := event.(*cutover.RouteChangedEvent)
	if !ok {
		h.logger.Error("unexpected event type",
			zap.String("expected", cutover.EventTypeRouteChanged),
			zap.String("actual", event.EventType()),
		)
		return fmt.Errorf("unexpected event type: expected %s, got %s",
			cutover.EventTypeRouteChanged, event.EventType())
	}

	h.logger.Warn("cutover route changed",
		zap.String("operation", changed.Operation),
		zap.String("mode", string(changed.Mode)),
		zap.Int("percentage", changed.Percentage),
	)

	if h.invalidator == nil {
		return nil
	}
	if err := h.invalidator.InvalidateAll(ctx); err != nil {
		// The cache degrades to stale-until-TTL, do not fail the event
		h.logger.Error("failed to invalidate decision cache after route change",
			zap.String("operation", changed.Operation),
			zap.Error(err),
		)
	}
	return nil
}
