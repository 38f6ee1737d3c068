package authz

import (
	"fmt"
	"regexp"
)

// ---------------------------------------------------------------------------
// Operation names
// ---------------------------------------------------------------------------

// Operation names follow the legacy system's vocabulary: lower snake_case
// identifiers such as "create_order". The bridge never invents new names; it
// reuses the names the legacy authorization store already knows.
const (
	// OperationCreateOrder guards order intake in the modernized service
	OperationCreateOrder = "create_order"
	// OperationViewOrders guards read access to orders
	OperationViewOrders = "view_orders"
	// OperationCancelOrder guards order cancellation
	OperationCancelOrder = "cancel_order"
)

const maxOperationLength = 64

var operationPattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// ValidOperationName returns true if the name fits the legacy operation
// vocabulary (lower snake_case, starting with a letter).
func ValidOperationName(name string) bool {
	if name == "" || len(name) > maxOperationLength {
		return false
	}
	return operationPattern.MatchString(name)
}

// ---------------------------------------------------------------------------
// PermissionQuery Value Object
// ---------------------------------------------------------------------------

// PermissionQuery identifies a single authorization question against the
// legacy system. It is computed on demand and never stored by the facade.
type PermissionQuery struct {
	// SubjectID is the legacy integer identifier of the subject
	SubjectID int64
	// Operation is the legacy operation name being checked
	Operation string
}

// NewPermissionQuery creates a validated permission query
func NewPermissionQuery(subjectID int64, operation string) (PermissionQuery, error) {
	q := PermissionQuery{SubjectID: subjectID, Operation: operation}
	if err := q.Validate(); err != nil {
		return PermissionQuery{}, err
	}
	return q, nil
}

// Validate validates the query components
func (q PermissionQuery) Validate() error {
	if q.SubjectID <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidSubjectID, q.SubjectID)
	}
	if !ValidOperationName(q.Operation) {
		return fmt.Errorf("%w: %q", ErrInvalidOperation, q.Operation)
	}
	return nil
}

// String returns a stable textual form, used for cache keys and logging
func (q PermissionQuery) String() string {
	return fmt.Sprintf("%d:%s", q.SubjectID, q.Operation)
}
