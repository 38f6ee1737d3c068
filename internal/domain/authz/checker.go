package authz

import (
	"context"

	"github.com/google/uuid"
)

// Checker is the anti-corruption facade the modernized services consult
// before acting on legacy-governed data. Denial is a normal false result,
// never an error; ErrLegacyUnavailable is returned when the legacy system
// cannot answer.
type Checker interface {
	// CheckPermission reports whether the legacy subject may perform the
	// named operation.
	CheckPermission(ctx context.Context, subjectID int64, operation string) (bool, error)
}

// UserChecker answers the same question for a modern user identity,
// resolving the user's legacy subject mapping first. A missing mapping
// surfaces as ErrSubjectNotMapped.
type UserChecker interface {
	// CheckPermissionForUser reports whether the mapped legacy subject of
	// the given user may perform the named operation.
	CheckPermissionForUser(ctx context.Context, userID uuid.UUID, operation string) (bool, error)
}
