package legacy

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/erp/bridge/internal/domain/authz"
)

// newMockSQLGateway creates a SQLGateway backed by a mocked SQL connection
func newMockSQLGateway(t *testing.T) (*SQLGateway, sqlmock.Sqlmock, *sql.DB) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	return NewSQLGateway(gormDB, time.Second), mock, mockDB
}

func TestSQLGateway_Kind(t *testing.T) {
	gateway, _, mockDB := newMockSQLGateway(t)
	defer mockDB.Close()

	assert.Equal(t, authz.GatewayKindSQL, gateway.Kind())
}

func TestSQLGateway_FetchGrant(t *testing.T) {
	t.Run("returns authorized grant", func(t *testing.T) {
		gateway, mock, mockDB := newMockSQLGateway(t)
		defer mockDB.Close()

		rows := sqlmock.NewRows([]string{"user_id", "operation", "allowed"}).
			AddRow(int64(42), "create_order", true)

		mock.ExpectQuery(`SELECT \* FROM "user_permissions" WHERE user_id = \$1 AND operation = \$2 ORDER BY .* LIMIT .*`).
			WithArgs(int64(42), "create_order", 1).
			WillReturnRows(rows)

		grant, err := gateway.FetchGrant(context.Background(), 42, "create_order")

		require.NoError(t, err)
		require.NotNil(t, grant)
		assert.Equal(t, int64(42), grant.SubjectID)
		assert.Equal(t, "create_order", grant.Operation)
		assert.True(t, grant.Authorized)
		assert.Equal(t, authz.GatewayKindSQL, grant.Source)
		assert.False(t, grant.FetchedAt.IsZero())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns unauthorized grant", func(t *testing.T) {
		gateway, mock, mockDB := newMockSQLGateway(t)
		defer mockDB.Close()

		rows := sqlmock.NewRows([]string{"user_id", "operation", "allowed"}).
			AddRow(int64(42), "cancel_order", false)

		mock.ExpectQuery(`SELECT \* FROM "user_permissions"`).
			WithArgs(int64(42), "cancel_order", 1).
			WillReturnRows(rows)

		grant, err := gateway.FetchGrant(context.Background(), 42, "cancel_order")

		require.NoError(t, err)
		require.NotNil(t, grant)
		assert.False(t, grant.Authorized)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("translates missing row to grant not found", func(t *testing.T) {
		gateway, mock, mockDB := newMockSQLGateway(t)
		defer mockDB.Close()

		mock.ExpectQuery(`SELECT \* FROM "user_permissions"`).
			WithArgs(int64(99), "create_order", 1).
			WillReturnError(gorm.ErrRecordNotFound)

		grant, err := gateway.FetchGrant(context.Background(), 99, "create_order")

		assert.Nil(t, grant)
		assert.ErrorIs(t, err, authz.ErrGrantNotFound)
		assert.NotErrorIs(t, err, authz.ErrLegacyUnavailable)
	})

	t.Run("translates driver error to legacy unavailable", func(t *testing.T) {
		gateway, mock, mockDB := newMockSQLGateway(t)
		defer mockDB.Close()

		mock.ExpectQuery(`SELECT \* FROM "user_permissions"`).
			WithArgs(int64(42), "create_order", 1).
			WillReturnError(errors.New("pq: the database system is shutting down"))

		grant, err := gateway.FetchGrant(context.Background(), 42, "create_order")

		assert.Nil(t, grant)
		assert.ErrorIs(t, err, authz.ErrLegacyUnavailable)
		assert.NotErrorIs(t, err, authz.ErrGrantNotFound)
		// The driver detail stays in the message for operators
		assert.Contains(t, err.Error(), "shutting down")
	})
}

func TestSQLGateway_Ping(t *testing.T) {
	t.Run("succeeds when database is reachable", func(t *testing.T) {
		gateway, _, mockDB := newMockSQLGateway(t)
		defer mockDB.Close()

		assert.NoError(t, gateway.Ping(context.Background()))
	})

	t.Run("translates failure to legacy unavailable", func(t *testing.T) {
		gateway, mock, mockDB := newMockSQLGateway(t)
		mock.ExpectClose()
		require.NoError(t, mockDB.Close())

		err := gateway.Ping(context.Background())
		assert.ErrorIs(t, err, authz.ErrLegacyUnavailable)
	})
}
