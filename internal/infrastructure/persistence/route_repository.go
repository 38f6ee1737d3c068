package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/erp/bridge/internal/domain/cutover"
	"github.com/erp/bridge/internal/domain/shared"
	"github.com/erp/bridge/internal/infrastructure/persistence/models"
)

// GormRouteRepository implements RouteRepository using GORM
type GormRouteRepository struct {
	db *gorm.DB
}

// NewGormRouteRepository creates a new GormRouteRepository
func NewGormRouteRepository(db *gorm.DB) *GormRouteRepository {
	return &GormRouteRepository{db: db}
}

// FindByID finds a route by its ID
func (r *GormRouteRepository) FindByID(ctx context.Context, id uuid.UUID) (*cutover.Route, error) {
	var model models.CutoverRouteModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, cutover.ErrRouteNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByOperation finds the route for an operation name
func (r *GormRouteRepository) FindByOperation(ctx context.Context, operation string) (*cutover.Route, error) {
	var model models.CutoverRouteModel
	if err := r.db.WithContext(ctx).
		Where("operation = ?", operation).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, cutover.ErrRouteNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll lists routes matching the filter
func (r *GormRouteRepository) FindAll(ctx context.Context, filter shared.Filter) ([]cutover.Route, error) {
	var routeModels []models.CutoverRouteModel
	query := r.applyFilter(r.db.WithContext(ctx).Model(&models.CutoverRouteModel{}), filter)

	if err := query.Find(&routeModels).Error; err != nil {
		return nil, err
	}

	routes := make([]cutover.Route, len(routeModels))
	for i, model := range routeModels {
		routes[i] = *model.ToDomain()
	}
	return routes, nil
}

// Save creates or updates a route
func (r *GormRouteRepository) Save(ctx context.Context, route *cutover.Route) error {
	model := models.CutoverRouteModelFromDomain(route)
	return r.db.WithContext(ctx).Save(model).Error
}

// Delete removes a route
func (r *GormRouteRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.CutoverRouteModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return cutover.ErrRouteNotFound
	}
	return nil
}

// Count counts routes matching the filter
func (r *GormRouteRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	var count int64
	query := r.applyFilterWithoutPagination(r.db.WithContext(ctx).Model(&models.CutoverRouteModel{}), filter)

	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// applyFilter applies filter options to the query
func (r *GormRouteRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	query = r.applyFilterWithoutPagination(query, filter)

	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	if filter.OrderBy != "" {
		sortField := ValidateSortField(filter.OrderBy, RouteSortFields, "operation")
		query = query.Order(sortField + " " + ValidateSortOrder(filter.OrderDir))
	} else {
		query = query.Order("operation ASC")
	}

	return query
}

// applyFilterWithoutPagination applies filter options without pagination
func (r *GormRouteRepository) applyFilterWithoutPagination(query *gorm.DB, filter shared.Filter) *gorm.DB {
	if filter.Search != "" {
		searchPattern := "%" + filter.Search + "%"
		query = query.Where("operation ILIKE ? OR notes ILIKE ?", searchPattern, searchPattern)
	}

	for key, value := range filter.Filters {
		switch key {
		case "mode":
			query = query.Where("mode = ?", value)
		}
	}

	return query
}

// Ensure GormRouteRepository implements RouteRepository
var _ cutover.RouteRepository = (*GormRouteRepository)(nil)
