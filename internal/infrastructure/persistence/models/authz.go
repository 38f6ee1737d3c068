package models

import (
	"github.com/google/uuid"

	"github.com/erp/bridge/internal/domain/authz"
)

// SubjectMappingModel is the persistence model for the SubjectMapping entity.
type SubjectMappingModel struct {
	BaseModel
	UserID          uuid.UUID `gorm:"type:uuid;not null;uniqueIndex"`
	LegacySubjectID int64     `gorm:"not null;uniqueIndex"`
	Active          bool      `gorm:"not null;default:true"`
	Note            string    `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (SubjectMappingModel) TableName() string {
	return "subject_mappings"
}

// ToDomain converts the persistence model to a domain SubjectMapping entity.
func (m *SubjectMappingModel) ToDomain() *authz.SubjectMapping {
	return &authz.SubjectMapping{
		ID:              m.ID,
		UserID:          m.UserID,
		LegacySubjectID: m.LegacySubjectID,
		Active:          m.Active,
		Note:            m.Note,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}

// FromDomain populates the persistence model from a domain SubjectMapping entity.
func (m *SubjectMappingModel) FromDomain(s *authz.SubjectMapping) {
	m.ID = s.ID
	m.UserID = s.UserID
	m.LegacySubjectID = s.LegacySubjectID
	m.Active = s.Active
	m.Note = s.Note
	m.CreatedAt = s.CreatedAt
	m.UpdatedAt = s.UpdatedAt
}

// SubjectMappingModelFromDomain creates a new persistence model from a domain SubjectMapping entity.
func SubjectMappingModelFromDomain(s *authz.SubjectMapping) *SubjectMappingModel {
	m := &SubjectMappingModel{}
	m.FromDomain(s)
	return m
}
