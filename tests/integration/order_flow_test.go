package integration

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	authzapp "github.com/erp/bridge/internal/application/authz"
	orderingapp "github.com/erp/bridge/internal/application/ordering"
	"github.com/erp/bridge/internal/domain/authz"
	"github.com/erp/bridge/internal/domain/ordering"
	"github.com/erp/bridge/internal/infrastructure/legacy"
	"github.com/erp/bridge/internal/infrastructure/persistence"
)

// TestOrderFlow_Integration exercises order intake guarded by the legacy
// authorization verdict, end to end against a real PostgreSQL database.
func TestOrderFlow_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	testDB := NewTestDB(t)
	testDB.CreateLegacyPermissionTable()

	gateway := legacy.NewSQLGateway(testDB.DB, 2*time.Second)
	mappingRepo := persistence.NewGormSubjectMappingRepository(testDB.DB)
	orderRepo := persistence.NewGormOrderRepository(testDB.DB)
	authzService := authzapp.NewService(gateway, mappingRepo, zap.NewNop())
	orderService := orderingapp.NewOrderService(orderRepo, authzService, zap.NewNop())
	ctx := context.Background()

	testDB.SeedLegacyGrant(1042, "create_order", true)
	testDB.SeedLegacyGrant(1042, "view_orders", true)
	testDB.SeedLegacyGrant(2042, "create_order", false)

	createReq := orderingapp.CreateOrderRequest{
		CustomerID: uuid.New(),
		Items: []orderingapp.CreateOrderItemInput{
			{
				ProductCode: "WIDGET-1",
				ProductName: "Widget",
				Quantity:    decimal.NewFromInt(3),
				UnitPrice:   decimal.NewFromFloat(19.99),
			},
		},
		Remark: "first bridge order",
	}

	t.Run("authorized subject creates an order", func(t *testing.T) {
		created, err := orderService.Create(ctx, 1042, createReq)
		require.NoError(t, err)
		assert.NotEmpty(t, created.OrderNumber)
		assert.Equal(t, int64(1042), created.LegacySubjectID)
		require.Len(t, created.Items, 1)
		assert.True(t, created.TotalAmount.Equal(decimal.NewFromFloat(59.97)),
			"expected 59.97, got %s", created.TotalAmount)

		found, err := orderService.GetByOrderNumber(ctx, 1042, created.OrderNumber)
		require.NoError(t, err)
		assert.Equal(t, created.ID, found.ID)
	})

	t.Run("denied subject cannot create", func(t *testing.T) {
		_, err := orderService.Create(ctx, 2042, createReq)
		assert.ErrorIs(t, err, ordering.ErrPermissionDenied)
	})

	t.Run("denied subject cannot list either", func(t *testing.T) {
		_, _, err := orderService.List(ctx, 2042, orderingapp.OrderListFilter{})
		assert.ErrorIs(t, err, ordering.ErrPermissionDenied)
	})

	t.Run("legacy outage blocks intake without looking like a denial", func(t *testing.T) {
		testDB.DropLegacyPermissionTable()

		_, err := orderService.Create(ctx, 1042, createReq)
		assert.ErrorIs(t, err, authz.ErrLegacyUnavailable)
		assert.NotErrorIs(t, err, ordering.ErrPermissionDenied)
	})
}
