package legacy

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/erp/bridge/internal/domain/authz"
)

// permissionRow mirrors the monolith's user_permissions table. The schema is
// owned by the legacy system and read here as-is, never migrated or written.
type permissionRow struct {
	UserID    int64  `gorm:"column:user_id;primaryKey"`
	Operation string `gorm:"column:operation;primaryKey"`
	Allowed   bool   `gorm:"column:allowed"`
}

// TableName returns the legacy table name
func (permissionRow) TableName() string {
	return "user_permissions"
}

// SQLGateway reads authorization records straight from the legacy database
// over a dedicated read-only connection.
type SQLGateway struct {
	db      *gorm.DB
	timeout time.Duration
}

// NewSQLGateway creates a new SQL gateway against the legacy database.
// A non-positive timeout disables the per-lookup deadline.
func NewSQLGateway(db *gorm.DB, timeout time.Duration) *SQLGateway {
	return &SQLGateway{db: db, timeout: timeout}
}

// Kind returns the gateway kind this adapter handles
func (g *SQLGateway) Kind() authz.GatewayKind {
	return authz.GatewayKindSQL
}

// FetchGrant reads the legacy authorization record for (subjectID, operation).
// A missing row maps to authz.ErrGrantNotFound; every other failure is
// translated to authz.ErrLegacyUnavailable so driver errors never cross the
// boundary.
func (g *SQLGateway) FetchGrant(ctx context.Context, subjectID int64, operation string) (*authz.LegacyGrant, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	var row permissionRow
	err := g.db.WithContext(ctx).
		Where("user_id = ? AND operation = ?", subjectID, operation).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, authz.ErrGrantNotFound
		}
		return nil, fmt.Errorf("%w: %v", authz.ErrLegacyUnavailable, err)
	}

	return &authz.LegacyGrant{
		SubjectID:  row.UserID,
		Operation:  row.Operation,
		Authorized: row.Allowed,
		Source:     authz.GatewayKindSQL,
		FetchedAt:  time.Now(),
	}, nil
}

// Ping checks that the legacy database is reachable
func (g *SQLGateway) Ping(ctx context.Context) error {
	sqlDB, err := g.db.DB()
	if err != nil {
		return fmt.Errorf("%w: %v", authz.ErrLegacyUnavailable, err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %v", authz.ErrLegacyUnavailable, err)
	}
	return nil
}

// Close releases the legacy database connection
func (g *SQLGateway) Close() error {
	sqlDB, err := g.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.Close()
}

// Ensure SQLGateway implements LegacyGateway
var _ authz.LegacyGateway = (*SQLGateway)(nil)
