package ordering

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/erp/bridge/internal/domain/authz"
	"github.com/erp/bridge/internal/domain/ordering"
	"github.com/erp/bridge/internal/domain/shared"
)

// MockOrderRepository is a mock implementation of OrderRepository
type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*ordering.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ordering.Order), args.Error(1)
}

func (m *MockOrderRepository) FindByOrderNumber(ctx context.Context, orderNumber string) (*ordering.Order, error) {
	args := m.Called(ctx, orderNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ordering.Order), args.Error(1)
}

func (m *MockOrderRepository) FindByCustomer(ctx context.Context, customerID uuid.UUID, filter shared.Filter) ([]ordering.Order, error) {
	args := m.Called(ctx, customerID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]ordering.Order), args.Error(1)
}

func (m *MockOrderRepository) FindAll(ctx context.Context, filter shared.Filter) ([]ordering.Order, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]ordering.Order), args.Error(1)
}

func (m *MockOrderRepository) Save(ctx context.Context, order *ordering.Order) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *MockOrderRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockOrderRepository) ExistsByOrderNumber(ctx context.Context, orderNumber string) (bool, error) {
	args := m.Called(ctx, orderNumber)
	return args.Bool(0), args.Error(1)
}

func (m *MockOrderRepository) GenerateOrderNumber(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

// MockChecker is a mock implementation of the authorization checker
type MockChecker struct {
	mock.Mock
}

func (m *MockChecker) CheckPermission(ctx context.Context, subjectID int64, operation string) (bool, error) {
	args := m.Called(ctx, subjectID, operation)
	return args.Bool(0), args.Error(1)
}

// Test helpers
var (
	testCustomerID = uuid.New()
	testOrderID    = uuid.New()
)

const (
	testSubjectID   int64 = 42
	testOrderNumber       = "BRG-20260101-0001"
)

func newTestOrderService(repo *MockOrderRepository, checker *MockChecker) *OrderService {
	return NewOrderService(repo, checker, zap.NewNop())
}

func validCreateRequest() CreateOrderRequest {
	return CreateOrderRequest{
		CustomerID: testCustomerID,
		Items: []CreateOrderItemInput{
			{
				ProductCode: "WIDGET-001",
				ProductName: "Widget",
				Quantity:    decimal.NewFromInt(2),
				UnitPrice:   decimal.RequireFromString("10.50"),
			},
		},
	}
}

func createTestOrder(t *testing.T) *ordering.Order {
	t.Helper()
	order, err := ordering.NewOrder(testOrderNumber, testCustomerID, testSubjectID)
	require.NoError(t, err)
	_, err = order.AddItem("WIDGET-001", "Widget", decimal.NewFromInt(2), decimal.RequireFromString("10.50"))
	require.NoError(t, err)
	return order
}

func TestOrderService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("authorized subject creates the order with a single save", func(t *testing.T) {
		repo := new(MockOrderRepository)
		checker := new(MockChecker)
		checker.On("CheckPermission", ctx, testSubjectID, authz.OperationCreateOrder).Return(true, nil)
		repo.On("GenerateOrderNumber", ctx).Return(testOrderNumber, nil)
		repo.On("Save", ctx, mock.AnythingOfType("*ordering.Order")).Return(nil)
		service := newTestOrderService(repo, checker)

		result, err := service.Create(ctx, testSubjectID, validCreateRequest())

		require.NoError(t, err)
		assert.Equal(t, testOrderNumber, result.OrderNumber)
		assert.Equal(t, testSubjectID, result.LegacySubjectID)
		assert.Equal(t, 1, result.ItemCount)
		assert.Equal(t, decimal.RequireFromString("21.00").String(), result.TotalAmount.String())
		repo.AssertNumberOfCalls(t, "Save", 1)
		checker.AssertExpectations(t)
	})

	t.Run("denied subject never reaches the repository", func(t *testing.T) {
		repo := new(MockOrderRepository)
		checker := new(MockChecker)
		checker.On("CheckPermission", ctx, testSubjectID, authz.OperationCreateOrder).Return(false, nil)
		service := newTestOrderService(repo, checker)

		result, err := service.Create(ctx, testSubjectID, validCreateRequest())

		require.Error(t, err)
		assert.ErrorIs(t, err, ordering.ErrPermissionDenied)
		assert.Nil(t, result)
		repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
		repo.AssertNotCalled(t, "GenerateOrderNumber", mock.Anything)
	})

	t.Run("legacy outage aborts the operation without saving", func(t *testing.T) {
		repo := new(MockOrderRepository)
		checker := new(MockChecker)
		checker.On("CheckPermission", ctx, testSubjectID, authz.OperationCreateOrder).
			Return(false, fmt.Errorf("%w: dial tcp: connection refused", authz.ErrLegacyUnavailable))
		service := newTestOrderService(repo, checker)

		result, err := service.Create(ctx, testSubjectID, validCreateRequest())

		require.Error(t, err)
		assert.ErrorIs(t, err, authz.ErrLegacyUnavailable)
		assert.NotErrorIs(t, err, ordering.ErrPermissionDenied)
		assert.Nil(t, result)
		repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("invalid subject propagates the validation error", func(t *testing.T) {
		repo := new(MockOrderRepository)
		checker := new(MockChecker)
		checker.On("CheckPermission", ctx, int64(0), authz.OperationCreateOrder).
			Return(false, authz.ErrInvalidSubjectID)
		service := newTestOrderService(repo, checker)

		_, err := service.Create(ctx, 0, validCreateRequest())

		require.Error(t, err)
		assert.ErrorIs(t, err, authz.ErrInvalidSubjectID)
		repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("invalid item aborts before saving", func(t *testing.T) {
		repo := new(MockOrderRepository)
		checker := new(MockChecker)
		checker.On("CheckPermission", ctx, testSubjectID, authz.OperationCreateOrder).Return(true, nil)
		repo.On("GenerateOrderNumber", ctx).Return(testOrderNumber, nil)
		service := newTestOrderService(repo, checker)

		req := validCreateRequest()
		req.Items[0].Quantity = decimal.Zero

		_, err := service.Create(ctx, testSubjectID, req)

		require.Error(t, err)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "INVALID_QUANTITY", domainErr.Code)
		repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("order number generation failure aborts before saving", func(t *testing.T) {
		repo := new(MockOrderRepository)
		checker := new(MockChecker)
		checker.On("CheckPermission", ctx, testSubjectID, authz.OperationCreateOrder).Return(true, nil)
		repo.On("GenerateOrderNumber", ctx).Return("", fmt.Errorf("sequence exhausted"))
		service := newTestOrderService(repo, checker)

		_, err := service.Create(ctx, testSubjectID, validCreateRequest())

		require.Error(t, err)
		repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})
}

func TestOrderService_GetByID(t *testing.T) {
	ctx := context.Background()

	t.Run("authorized subject reads the order", func(t *testing.T) {
		repo := new(MockOrderRepository)
		checker := new(MockChecker)
		order := createTestOrder(t)
		checker.On("CheckPermission", ctx, testSubjectID, authz.OperationViewOrders).Return(true, nil)
		repo.On("FindByID", ctx, testOrderID).Return(order, nil)
		service := newTestOrderService(repo, checker)

		result, err := service.GetByID(ctx, testSubjectID, testOrderID)

		require.NoError(t, err)
		assert.Equal(t, testOrderNumber, result.OrderNumber)
	})

	t.Run("denied subject cannot read orders", func(t *testing.T) {
		repo := new(MockOrderRepository)
		checker := new(MockChecker)
		checker.On("CheckPermission", ctx, testSubjectID, authz.OperationViewOrders).Return(false, nil)
		service := newTestOrderService(repo, checker)

		_, err := service.GetByID(ctx, testSubjectID, testOrderID)

		require.Error(t, err)
		assert.ErrorIs(t, err, ordering.ErrPermissionDenied)
		repo.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
	})

	t.Run("missing order propagates not found", func(t *testing.T) {
		repo := new(MockOrderRepository)
		checker := new(MockChecker)
		checker.On("CheckPermission", ctx, testSubjectID, authz.OperationViewOrders).Return(true, nil)
		repo.On("FindByID", ctx, testOrderID).Return(nil, ordering.ErrOrderNotFound)
		service := newTestOrderService(repo, checker)

		_, err := service.GetByID(ctx, testSubjectID, testOrderID)

		require.Error(t, err)
		assert.ErrorIs(t, err, ordering.ErrOrderNotFound)
	})
}

func TestOrderService_List(t *testing.T) {
	ctx := context.Background()

	t.Run("lists orders with default pagination", func(t *testing.T) {
		repo := new(MockOrderRepository)
		checker := new(MockChecker)
		order := createTestOrder(t)
		checker.On("CheckPermission", ctx, testSubjectID, authz.OperationViewOrders).Return(true, nil)
		expectedFilter := shared.Filter{Page: 1, PageSize: 20}
		repo.On("FindAll", ctx, expectedFilter).Return([]ordering.Order{*order}, nil)
		repo.On("Count", ctx, expectedFilter).Return(int64(1), nil)
		service := newTestOrderService(repo, checker)

		results, total, err := service.List(ctx, testSubjectID, OrderListFilter{})

		require.NoError(t, err)
		assert.Len(t, results, 1)
		assert.Equal(t, int64(1), total)
		repo.AssertExpectations(t)
	})

	t.Run("filters by customer when provided", func(t *testing.T) {
		repo := new(MockOrderRepository)
		checker := new(MockChecker)
		order := createTestOrder(t)
		checker.On("CheckPermission", ctx, testSubjectID, authz.OperationViewOrders).Return(true, nil)
		repo.On("FindByCustomer", ctx, testCustomerID, mock.Anything).Return([]ordering.Order{*order}, nil)
		repo.On("Count", ctx, mock.Anything).Return(int64(1), nil)
		service := newTestOrderService(repo, checker)

		customerID := testCustomerID
		results, _, err := service.List(ctx, testSubjectID, OrderListFilter{CustomerID: &customerID})

		require.NoError(t, err)
		assert.Len(t, results, 1)
		repo.AssertNotCalled(t, "FindAll", mock.Anything, mock.Anything)
	})

	t.Run("denied subject cannot list orders", func(t *testing.T) {
		repo := new(MockOrderRepository)
		checker := new(MockChecker)
		checker.On("CheckPermission", ctx, testSubjectID, authz.OperationViewOrders).Return(false, nil)
		service := newTestOrderService(repo, checker)

		_, _, err := service.List(ctx, testSubjectID, OrderListFilter{})

		require.Error(t, err)
		assert.ErrorIs(t, err, ordering.ErrPermissionDenied)
		repo.AssertNotCalled(t, "FindAll", mock.Anything, mock.Anything)
	})
}
