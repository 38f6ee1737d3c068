package ordering

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/erp/bridge/internal/domain/authz"
	"github.com/erp/bridge/internal/domain/ordering"
	"github.com/erp/bridge/internal/domain/shared"
	"github.com/erp/bridge/internal/infrastructure/telemetry"
)

// OrderService handles order intake in the modernized service. Every
// operation is guarded by the legacy system's authorization verdict: the
// checker is consulted first, and nothing touches the repository until it
// answers yes. An unreachable legacy system aborts the operation; it is
// never read as permission.
type OrderService struct {
	orderRepo      ordering.OrderRepository
	checker        authz.Checker
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
}

// NewOrderService creates a new OrderService
func NewOrderService(orderRepo ordering.OrderRepository, checker authz.Checker, logger *zap.Logger) *OrderService {
	return &OrderService{
		orderRepo: orderRepo,
		checker:   checker,
		logger:    logger,
	}
}

// SetEventPublisher sets the event publisher for cross-context integration
func (s *OrderService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// Create creates a new order on behalf of a legacy subject
func (s *OrderService) Create(ctx context.Context, subjectID int64, req CreateOrderRequest) (*OrderResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "ordering", "create")
	defer span.End()

	telemetry.SetAttributes(span,
		telemetry.SpanAttrLegacySubjectID, subjectID,
		telemetry.SpanAttrCustomerID, req.CustomerID.String(),
	)

	if err := s.authorize(ctx, subjectID, authz.OperationCreateOrder); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	orderNumber, err := s.orderRepo.GenerateOrderNumber(ctx)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	order, err := ordering.NewOrder(orderNumber, req.CustomerID, subjectID)
	if err != nil {
		return nil, err
	}

	for _, item := range req.Items {
		if _, err := order.AddItem(item.ProductCode, item.ProductName, item.Quantity, item.UnitPrice); err != nil {
			return nil, err
		}
	}
	if req.Remark != "" {
		order.SetRemark(req.Remark)
	}

	if err := order.Validate(); err != nil {
		return nil, err
	}

	if err := s.orderRepo.Save(ctx, order); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	telemetry.SetAttribute(span, telemetry.SpanAttrOrderNumber, order.OrderNumber)
	telemetry.AddEvent(span, "order_created",
		telemetry.SpanAttrOrderNumber, order.OrderNumber,
		"total_amount", order.TotalAmount.String(),
	)

	s.logger.Info("Order created",
		zap.String("order_number", order.OrderNumber),
		zap.Int64("subject_id", subjectID),
		zap.String("total_amount", order.TotalAmount.String()))

	s.publishEvents(ctx, order)

	response := ToOrderResponse(order)
	return &response, nil
}

// GetByID retrieves an order by ID
func (s *OrderService) GetByID(ctx context.Context, subjectID int64, orderID uuid.UUID) (*OrderResponse, error) {
	if err := s.authorize(ctx, subjectID, authz.OperationViewOrders); err != nil {
		return nil, err
	}

	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	response := ToOrderResponse(order)
	return &response, nil
}

// GetByOrderNumber retrieves an order by its order number
func (s *OrderService) GetByOrderNumber(ctx context.Context, subjectID int64, orderNumber string) (*OrderResponse, error) {
	if err := s.authorize(ctx, subjectID, authz.OperationViewOrders); err != nil {
		return nil, err
	}

	order, err := s.orderRepo.FindByOrderNumber(ctx, orderNumber)
	if err != nil {
		return nil, err
	}

	response := ToOrderResponse(order)
	return &response, nil
}

// List retrieves orders with filtering and pagination
func (s *OrderService) List(ctx context.Context, subjectID int64, filter OrderListFilter) ([]OrderListItemResponse, int64, error) {
	if err := s.authorize(ctx, subjectID, authz.OperationViewOrders); err != nil {
		return nil, 0, err
	}

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
		OrderBy:  filter.OrderBy,
		OrderDir: filter.OrderDir,
	}

	var (
		orders []ordering.Order
		err    error
	)
	if filter.CustomerID != nil {
		orders, err = s.orderRepo.FindByCustomer(ctx, *filter.CustomerID, domainFilter)
	} else {
		orders, err = s.orderRepo.FindAll(ctx, domainFilter)
	}
	if err != nil {
		return nil, 0, err
	}

	total, err := s.orderRepo.Count(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}

	return ToOrderListItemResponses(orders), total, nil
}

// authorize consults the legacy authorization verdict for the operation.
// A denial maps to ErrPermissionDenied; everything else the checker reports
// (legacy outage included) propagates unchanged so the caller can tell a
// refusal from a failure.
func (s *OrderService) authorize(ctx context.Context, subjectID int64, operation string) error {
	authorized, err := s.checker.CheckPermission(ctx, subjectID, operation)
	if err != nil {
		s.logger.Error("Authorization check failed",
			zap.Int64("subject_id", subjectID),
			zap.String("operation", operation),
			zap.Error(err))
		return err
	}
	if !authorized {
		s.logger.Info("Operation denied by legacy authorization",
			zap.Int64("subject_id", subjectID),
			zap.String("operation", operation))
		return ordering.ErrPermissionDenied
	}
	return nil
}

func (s *OrderService) publishEvents(ctx context.Context, order *ordering.Order) {
	if s.eventPublisher == nil {
		return
	}
	for _, event := range order.GetDomainEvents() {
		if err := s.eventPublisher.Publish(ctx, event); err != nil {
			s.logger.Warn("Failed to publish domain event",
				zap.String("event_type", event.EventType()),
				zap.Error(err))
		}
	}
	order.ClearDomainEvents()
}
