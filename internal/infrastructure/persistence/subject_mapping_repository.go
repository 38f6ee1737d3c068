package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/erp/bridge/internal/domain/authz"
	"github.com/erp/bridge/internal/domain/shared"
	"github.com/erp/bridge/internal/infrastructure/persistence/models"
)

// GormSubjectMappingRepository implements SubjectMappingRepository using GORM
type GormSubjectMappingRepository struct {
	db *gorm.DB
}

// NewGormSubjectMappingRepository creates a new GormSubjectMappingRepository
func NewGormSubjectMappingRepository(db *gorm.DB) *GormSubjectMappingRepository {
	return &GormSubjectMappingRepository{db: db}
}

// FindByID finds a mapping by its ID
func (r *GormSubjectMappingRepository) FindByID(ctx context.Context, id uuid.UUID) (*authz.SubjectMapping, error) {
	var model models.SubjectMappingModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, authz.ErrMappingNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByUserID finds the mapping for a modern user
func (r *GormSubjectMappingRepository) FindByUserID(ctx context.Context, userID uuid.UUID) (*authz.SubjectMapping, error) {
	var model models.SubjectMappingModel
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, authz.ErrMappingNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByLegacySubjectID finds the mapping for a legacy subject
func (r *GormSubjectMappingRepository) FindByLegacySubjectID(ctx context.Context, legacySubjectID int64) (*authz.SubjectMapping, error) {
	var model models.SubjectMappingModel
	if err := r.db.WithContext(ctx).
		Where("legacy_subject_id = ?", legacySubjectID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, authz.ErrMappingNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll finds all mappings matching the filter
func (r *GormSubjectMappingRepository) FindAll(ctx context.Context, filter shared.Filter) ([]authz.SubjectMapping, error) {
	var mappingModels []models.SubjectMappingModel
	query := r.applyFilter(r.db.WithContext(ctx).Model(&models.SubjectMappingModel{}), filter)

	if err := query.Find(&mappingModels).Error; err != nil {
		return nil, err
	}

	mappings := make([]authz.SubjectMapping, len(mappingModels))
	for i, model := range mappingModels {
		mappings[i] = *model.ToDomain()
	}
	return mappings, nil
}

// Count counts mappings matching the filter
func (r *GormSubjectMappingRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	var count int64
	query := r.applyFilterWithoutPagination(r.db.WithContext(ctx).Model(&models.SubjectMappingModel{}), filter)

	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Save creates or updates a mapping
func (r *GormSubjectMappingRepository) Save(ctx context.Context, mapping *authz.SubjectMapping) error {
	model := models.SubjectMappingModelFromDomain(mapping)
	return r.db.WithContext(ctx).Save(model).Error
}

// Delete removes a mapping
func (r *GormSubjectMappingRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.SubjectMappingModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return authz.ErrMappingNotFound
	}
	return nil
}

// applyFilter applies filter options to the query
func (r *GormSubjectMappingRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	query = r.applyFilterWithoutPagination(query, filter)

	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	sortField := ValidateSortField(filter.OrderBy, SubjectMappingSortFields, "created_at")
	query = query.Order(sortField + " " + ValidateSortOrder(filter.OrderDir))

	return query
}

// applyFilterWithoutPagination applies filter options without pagination
func (r *GormSubjectMappingRepository) applyFilterWithoutPagination(query *gorm.DB, filter shared.Filter) *gorm.DB {
	if filter.Search != "" {
		query = query.Where("note ILIKE ?", "%"+filter.Search+"%")
	}

	for key, value := range filter.Filters {
		switch key {
		case "active":
			query = query.Where("active = ?", value)
		case "legacy_subject_id":
			query = query.Where("legacy_subject_id = ?", value)
		}
	}

	return query
}

// Ensure GormSubjectMappingRepository implements SubjectMappingRepository
var _ authz.SubjectMappingRepository = (*GormSubjectMappingRepository)(nil)
