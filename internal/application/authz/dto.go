package authz

import (
	"time"

	"github.com/google/uuid"

	"github.com/erp/bridge/internal/domain/authz"
)

// ==================== Permission Check DTOs ====================

// CheckPermissionRequest represents a direct permission check against the legacy store
type CheckPermissionRequest struct {
	SubjectID int64  `json:"subject_id" binding:"required,min=1"`
	Operation string `json:"operation" binding:"required,min=1,max=64"`
}

// CheckPermissionForUserRequest represents a permission check for a modern user
type CheckPermissionForUserRequest struct {
	UserID    uuid.UUID `json:"user_id" binding:"required"`
	Operation string    `json:"operation" binding:"required,min=1,max=64"`
}

// CheckPermissionResponse represents the outcome of a permission check
type CheckPermissionResponse struct {
	SubjectID  int64     `json:"subject_id"`
	Operation  string    `json:"operation"`
	Authorized bool      `json:"authorized"`
	CheckedAt  time.Time `json:"checked_at"`
}

// ==================== Subject Mapping DTOs ====================

// CreateSubjectMappingRequest represents a request to map a modern user to a legacy subject
type CreateSubjectMappingRequest struct {
	UserID          uuid.UUID `json:"user_id" binding:"required"`
	LegacySubjectID int64     `json:"legacy_subject_id" binding:"required,min=1"`
	Note            string    `json:"note" binding:"max=500"`
}

// UpdateSubjectMappingRequest represents a request to update a subject mapping
type UpdateSubjectMappingRequest struct {
	Active *bool   `json:"active"`
	Note   *string `json:"note"`
}

// SubjectMappingListFilter represents filter options for the mapping list
type SubjectMappingListFilter struct {
	Search   string `form:"search"`
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// SubjectMappingResponse represents a subject mapping in API responses
type SubjectMappingResponse struct {
	ID              uuid.UUID `json:"id"`
	UserID          uuid.UUID `json:"user_id"`
	LegacySubjectID int64     `json:"legacy_subject_id"`
	Active          bool      `json:"active"`
	Note            string    `json:"note,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// ToSubjectMappingResponse converts a domain SubjectMapping to a response DTO
func ToSubjectMappingResponse(mapping *authz.SubjectMapping) SubjectMappingResponse {
	return SubjectMappingResponse{
		ID:              mapping.ID,
		UserID:          mapping.UserID,
		LegacySubjectID: mapping.LegacySubjectID,
		Active:          mapping.Active,
		Note:            mapping.Note,
		CreatedAt:       mapping.CreatedAt,
		UpdatedAt:       mapping.UpdatedAt,
	}
}

// ToSubjectMappingResponses converts a slice of domain mappings to response DTOs
func ToSubjectMappingResponses(mappings []authz.SubjectMapping) []SubjectMappingResponse {
	responses := make([]SubjectMappingResponse, len(mappings))
	for i := range mappings {
		responses[i] = ToSubjectMappingResponse(&mappings[i])
	}
	return responses
}
