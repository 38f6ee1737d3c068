package authz

import (
	"context"

	"github.com/erp/bridge/internal/domain/shared"
	"github.com/google/uuid"
)

// SubjectMappingRepository persists subject mappings in the bridge database
type SubjectMappingRepository interface {
	// FindByID finds a mapping by its identifier
	FindByID(ctx context.Context, id uuid.UUID) (*SubjectMapping, error)

	// FindByUserID finds the mapping for a modern user
	FindByUserID(ctx context.Context, userID uuid.UUID) (*SubjectMapping, error)

	// FindByLegacySubjectID finds the mapping for a legacy subject
	FindByLegacySubjectID(ctx context.Context, legacySubjectID int64) (*SubjectMapping, error)

	// FindAll lists mappings matching the filter
	FindAll(ctx context.Context, filter shared.Filter) ([]SubjectMapping, error)

	// Count counts mappings matching the filter
	Count(ctx context.Context, filter shared.Filter) (int64, error)

	// Save inserts or updates a mapping
	Save(ctx context.Context, mapping *SubjectMapping) error

	// Delete removes a mapping
	Delete(ctx context.Context, id uuid.UUID) error
}
