package models

import (
	"github.com/erp/bridge/internal/domain/cutover"
	"github.com/erp/bridge/internal/domain/shared"
)

// CutoverRouteModel is the persistence model for the Route aggregate root.
type CutoverRouteModel struct {
	AggregateModel
	Operation  string       `gorm:"type:varchar(64);not null;uniqueIndex"`
	Mode       cutover.Mode `gorm:"type:varchar(10);not null;default:'legacy'"`
	Percentage int          `gorm:"not null;default:0"`
	Notes      string       `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (CutoverRouteModel) TableName() string {
	return "cutover_routes"
}

// ToDomain converts the persistence model to a domain Route entity.
func (m *CutoverRouteModel) ToDomain() *cutover.Route {
	return &cutover.Route{
		BaseAggregateRoot: shared.BaseAggregateRoot{
			BaseEntity: shared.BaseEntity{
				ID:        m.ID,
				CreatedAt: m.CreatedAt,
				UpdatedAt: m.UpdatedAt,
			},
			Version: m.Version,
		},
		Operation:  m.Operation,
		Mode:       m.Mode,
		Percentage: m.Percentage,
		Notes:      m.Notes,
	}
}

// FromDomain populates the persistence model from a domain Route entity.
func (m *CutoverRouteModel) FromDomain(r *cutover.Route) {
	m.FromDomainAggregateRoot(r.BaseAggregateRoot)
	m.Operation = r.Operation
	m.Mode = r.Mode
	m.Percentage = r.Percentage
	m.Notes = r.Notes
}

// CutoverRouteModelFromDomain creates a new persistence model from a domain Route entity.
func CutoverRouteModelFromDomain(r *cutover.Route) *CutoverRouteModel {
	m := &CutoverRouteModel{}
	m.FromDomain(r)
	return m
}
