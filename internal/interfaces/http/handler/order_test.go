package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	orderingapp "github.com/erp/bridge/internal/application/ordering"
	"github.com/erp/bridge/internal/domain/authz"
	"github.com/erp/bridge/internal/domain/ordering"
	"github.com/erp/bridge/internal/interfaces/http/dto"
)

// MockOrderingService implements OrderingService for testing
type MockOrderingService struct {
	mock.Mock
}

func (m *MockOrderingService) Create(ctx context.Context, subjectID int64, req orderingapp.CreateOrderRequest) (*orderingapp.OrderResponse, error) {
	args := m.Called(ctx, subjectID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*orderingapp.OrderResponse), args.Error(1)
}

func (m *MockOrderingService) GetByID(ctx context.Context, subjectID int64, orderID uuid.UUID) (*orderingapp.OrderResponse, error) {
	args := m.Called(ctx, subjectID, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*orderingapp.OrderResponse), args.Error(1)
}

func (m *MockOrderingService) GetByOrderNumber(ctx context.Context, subjectID int64, orderNumber string) (*orderingapp.OrderResponse, error) {
	args := m.Called(ctx, subjectID, orderNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*orderingapp.OrderResponse), args.Error(1)
}

func (m *MockOrderingService) List(ctx context.Context, subjectID int64, filter orderingapp.OrderListFilter) ([]orderingapp.OrderListItemResponse, int64, error) {
	args := m.Called(ctx, subjectID, filter)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]orderingapp.OrderListItemResponse), args.Get(1).(int64), args.Error(2)
}

// MockSubjectResolver implements SubjectResolver for testing
type MockSubjectResolver struct {
	mock.Mock
}

func (m *MockSubjectResolver) ResolveLegacySubject(ctx context.Context, userID uuid.UUID) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func setupOrderRouter(svc *MockOrderingService, resolver *MockSubjectResolver, gate gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	NewOrderHandler(svc, resolver).RegisterRoutesWithGate(router.Group("/api/v1"), gate)
	return router
}

func sampleOrderResponse(subjectID int64) *orderingapp.OrderResponse {
	now := time.Now().UTC()
	return &orderingapp.OrderResponse{
		ID:              uuid.New(),
		OrderNumber:     "ORD-20260824-0001",
		CustomerID:      uuid.New(),
		LegacySubjectID: subjectID,
		Items: []orderingapp.OrderItemResponse{
			{
				ID:          uuid.New(),
				ProductCode: "SKU-100",
				ProductName: "Widget",
				Quantity:    decimal.NewFromInt(2),
				UnitPrice:   decimal.NewFromFloat(19.90),
				Amount:      decimal.NewFromFloat(39.80),
			},
		},
		ItemCount:   1,
		TotalAmount: decimal.NewFromFloat(39.80),
		CreatedAt:   now,
		UpdatedAt:   now,
		Version:     1,
	}
}

func createOrderBody(t *testing.T) *bytes.Reader {
	t.Helper()
	body, err := json.Marshal(orderingapp.CreateOrderRequest{
		CustomerID: uuid.New(),
		Items: []orderingapp.CreateOrderItemInput{
			{
				ProductCode: "SKU-100",
				ProductName: "Widget",
				Quantity:    decimal.NewFromInt(2),
				UnitPrice:   decimal.NewFromFloat(19.90),
			},
		},
	})
	require.NoError(t, err)
	return bytes.NewReader(body)
}

func TestOrderHandler_Create_Success(t *testing.T) {
	userID := uuid.New()
	svc := new(MockOrderingService)
	resolver := new(MockSubjectResolver)
	resolver.On("ResolveLegacySubject", mock.Anything, userID).Return(int64(1042), nil)
	svc.On("Create", mock.Anything, int64(1042), mock.Anything).Return(sampleOrderResponse(1042), nil)

	router := setupOrderRouter(svc, resolver, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", createOrderBody(t))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", userID.String())
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)

	data := resp.Data.(map[string]interface{})
	assert.Equal(t, "ORD-20260824-0001", data["order_number"])
	assert.Equal(t, float64(1042), data["legacy_subject_id"])

	svc.AssertExpectations(t)
	resolver.AssertExpectations(t)
}

func TestOrderHandler_Create_Unauthenticated(t *testing.T) {
	svc := new(MockOrderingService)
	resolver := new(MockSubjectResolver)

	router := setupOrderRouter(svc, resolver, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", createOrderBody(t))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	resolver.AssertNotCalled(t, "ResolveLegacySubject")
	svc.AssertNotCalled(t, "Create")
}

func TestOrderHandler_Create_SubjectNotMapped(t *testing.T) {
	userID := uuid.New()
	svc := new(MockOrderingService)
	resolver := new(MockSubjectResolver)
	resolver.On("ResolveLegacySubject", mock.Anything, userID).Return(int64(0), authz.ErrSubjectNotMapped)

	router := setupOrderRouter(svc, resolver, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", createOrderBody(t))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", userID.String())
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, dto.ErrCodeSubjectNotMapped, resp.Error.Code)
	svc.AssertNotCalled(t, "Create")
}

func TestOrderHandler_Create_PermissionDenied(t *testing.T) {
	userID := uuid.New()
	svc := new(MockOrderingService)
	resolver := new(MockSubjectResolver)
	resolver.On("ResolveLegacySubject", mock.Anything, userID).Return(int64(1042), nil)
	svc.On("Create", mock.Anything, int64(1042), mock.Anything).Return(nil, ordering.ErrPermissionDenied)

	router := setupOrderRouter(svc, resolver, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", createOrderBody(t))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", userID.String())
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, dto.ErrCodePermissionDenied, resp.Error.Code)
}

func TestOrderHandler_Create_LegacyUnavailable(t *testing.T) {
	userID := uuid.New()
	svc := new(MockOrderingService)
	resolver := new(MockSubjectResolver)
	resolver.On("ResolveLegacySubject", mock.Anything, userID).Return(int64(1042), nil)
	svc.On("Create", mock.Anything, int64(1042), mock.Anything).
		Return(nil, fmt.Errorf("authorizing create_order: %w", authz.ErrLegacyUnavailable))

	router := setupOrderRouter(svc, resolver, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", createOrderBody(t))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", userID.String())
	router.ServeHTTP(w, req)

	// An unreachable legacy store must never look like a denial
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, dto.ErrCodeLegacyUnavailable, resp.Error.Code)
}

func TestOrderHandler_Create_InvalidBody(t *testing.T) {
	userID := uuid.New()
	svc := new(MockOrderingService)
	resolver := new(MockSubjectResolver)
	resolver.On("ResolveLegacySubject", mock.Anything, userID).Return(int64(1042), nil)

	router := setupOrderRouter(svc, resolver, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", bytes.NewBufferString(`{"items": []}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", userID.String())
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	svc.AssertNotCalled(t, "Create")
}

func TestOrderHandler_Create_GateApplied(t *testing.T) {
	svc := new(MockOrderingService)
	resolver := new(MockSubjectResolver)

	// Gate that short-circuits the way a legacy proxy decision would
	gate := func(c *gin.Context) {
		c.AbortWithStatus(http.StatusBadGateway)
	}

	router := setupOrderRouter(svc, resolver, gate)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", createOrderBody(t))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", uuid.New().String())
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadGateway, w.Code)
	svc.AssertNotCalled(t, "Create")

	// Reads are not gated
	resolver.On("ResolveLegacySubject", mock.Anything, mock.Anything).Return(int64(1), nil)
	svc.On("List", mock.Anything, int64(1), mock.Anything).
		Return([]orderingapp.OrderListItemResponse{}, int64(0), nil)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil)
	req.Header.Set("X-User-ID", uuid.New().String())
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestOrderHandler_GetByID_Success(t *testing.T) {
	userID := uuid.New()
	order := sampleOrderResponse(7)

	svc := new(MockOrderingService)
	resolver := new(MockSubjectResolver)
	resolver.On("ResolveLegacySubject", mock.Anything, userID).Return(int64(7), nil)
	svc.On("GetByID", mock.Anything, int64(7), order.ID).Return(order, nil)

	router := setupOrderRouter(svc, resolver, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders/"+order.ID.String(), nil)
	req.Header.Set("X-User-ID", userID.String())
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp.Data.(map[string]interface{})
	assert.Equal(t, order.ID.String(), data["id"])
}

func TestOrderHandler_GetByID_NotFound(t *testing.T) {
	userID := uuid.New()
	svc := new(MockOrderingService)
	resolver := new(MockSubjectResolver)
	resolver.On("ResolveLegacySubject", mock.Anything, userID).Return(int64(7), nil)
	svc.On("GetByID", mock.Anything, int64(7), mock.Anything).Return(nil, ordering.ErrOrderNotFound)

	router := setupOrderRouter(svc, resolver, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders/"+uuid.New().String(), nil)
	req.Header.Set("X-User-ID", userID.String())
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestOrderHandler_GetByID_InvalidID(t *testing.T) {
	userID := uuid.New()
	svc := new(MockOrderingService)
	resolver := new(MockSubjectResolver)
	resolver.On("ResolveLegacySubject", mock.Anything, userID).Return(int64(7), nil)

	router := setupOrderRouter(svc, resolver, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders/not-a-uuid", nil)
	req.Header.Set("X-User-ID", userID.String())
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	svc.AssertNotCalled(t, "GetByID")
}

func TestOrderHandler_GetByOrderNumber_Success(t *testing.T) {
	userID := uuid.New()
	order := sampleOrderResponse(7)

	svc := new(MockOrderingService)
	resolver := new(MockSubjectResolver)
	resolver.On("ResolveLegacySubject", mock.Anything, userID).Return(int64(7), nil)
	svc.On("GetByOrderNumber", mock.Anything, int64(7), order.OrderNumber).Return(order, nil)

	router := setupOrderRouter(svc, resolver, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders/number/"+order.OrderNumber, nil)
	req.Header.Set("X-User-ID", userID.String())
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp.Data.(map[string]interface{})
	assert.Equal(t, order.OrderNumber, data["order_number"])
}

func TestOrderHandler_List_Success(t *testing.T) {
	userID := uuid.New()
	items := []orderingapp.OrderListItemResponse{
		{
			ID:          uuid.New(),
			OrderNumber: "ORD-20260824-0001",
			CustomerID:  uuid.New(),
			ItemCount:   1,
			TotalAmount: decimal.NewFromFloat(39.80),
			CreatedAt:   time.Now().UTC(),
		},
	}

	svc := new(MockOrderingService)
	resolver := new(MockSubjectResolver)
	resolver.On("ResolveLegacySubject", mock.Anything, userID).Return(int64(7), nil)
	svc.On("List", mock.Anything, int64(7), mock.MatchedBy(func(f orderingapp.OrderListFilter) bool {
		return f.Page == 1 && f.PageSize == 20
	})).Return(items, int64(1), nil)

	router := setupOrderRouter(svc, resolver, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil)
	req.Header.Set("X-User-ID", userID.String())
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	require.NotNil(t, resp.Meta)
	assert.Equal(t, int64(1), resp.Meta.Total)
}
