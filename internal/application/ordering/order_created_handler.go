package ordering

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/erp/bridge/internal/domain/ordering"
	"github.com/erp/bridge/internal/domain/shared"
)

// OrderCreatedHandler writes the intake audit line for every order the
// modernized service takes in. During the migration this log is the
// side-by-side record reconciled against the monolith's order book.
type OrderCreatedHandler struct {
	logger *zap.Logger
}

// NewOrderCreatedHandler creates a handler for order created events
func NewOrderCreatedHandler(logger *zap.Logger) *OrderCreatedHandler {
	return &OrderCreatedHandler{logger: logger}
}

// EventTypes returns the event types this handler is interested in
func (h *OrderCreatedHandler) EventTypes() []string {
	return []string{ordering.EventTypeOrderCreated}
}

// Handle processes an OrderCreatedEvent
func (h *OrderCreatedHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	created, ok := event.(*ordering.OrderCreatedEvent)
	if !ok {
		h.logger.Error("unexpected event type",
			zap.String("expected", ordering.EventTypeOrderCreated),
			zap.String("actual", event.EventType()),
		)
		return fmt.Errorf("unexpected event type: expected %s, got %s",
			ordering.EventTypeOrderCreated, event.EventType())
	}

	h.logger.Info("order taken in by modern side",
		zap.String("order_id", created.OrderID.String()),
		zap.String("order_number", created.OrderNumber),
		zap.String("customer_id", created.CustomerID.String()),
		zap.Int64("legacy_subject_id", created.LegacySubjectID),
		zap.String("total_amount", created.TotalAmount.String()),
	)
	return nil
}
