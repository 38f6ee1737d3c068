package authz

import (
	"time"

	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// SubjectMapping Entity
// ---------------------------------------------------------------------------

// SubjectMapping links a modern user identity to the integer subject ID the
// legacy authorization store keys on. It is an Entity (not Aggregate Root):
// it has identity and is mutable, but emits no lifecycle events.
type SubjectMapping struct {
	// ID is the unique identifier of this mapping
	ID uuid.UUID
	// UserID is the modern user identity (JWT subject)
	UserID uuid.UUID
	// LegacySubjectID is the subject ID in the legacy system
	LegacySubjectID int64
	// Active indicates whether the mapping may be used for checks
	Active bool
	// Note is a free-form operator annotation
	Note string
	// CreatedAt is when this mapping was created
	CreatedAt time.Time
	// UpdatedAt is when this mapping was last updated
	UpdatedAt time.Time
}

// NewSubjectMapping creates a new active subject mapping
func NewSubjectMapping(userID uuid.UUID, legacySubjectID int64) (*SubjectMapping, error) {
	if userID == uuid.Nil {
		return nil, ErrMappingInvalidUserID
	}
	if legacySubjectID <= 0 {
		return nil, ErrInvalidSubjectID
	}

	now := time.Now()
	return &SubjectMapping{
		ID:              uuid.New(),
		UserID:          userID,
		LegacySubjectID: legacySubjectID,
		Active:          true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

// Validate validates the subject mapping
func (m *SubjectMapping) Validate() error {
	if m.UserID == uuid.Nil {
		return ErrMappingInvalidUserID
	}
	if m.LegacySubjectID <= 0 {
		return ErrInvalidSubjectID
	}
	return nil
}

// Activate marks the mapping usable for permission checks
func (m *SubjectMapping) Activate() {
	m.Active = true
	m.UpdatedAt = time.Now()
}

// Deactivate withdraws the mapping without deleting its history
func (m *SubjectMapping) Deactivate() {
	m.Active = false
	m.UpdatedAt = time.Now()
}

// SetNote updates the operator annotation
func (m *SubjectMapping) SetNote(note string) {
	m.Note = note
	m.UpdatedAt = time.Now()
}
