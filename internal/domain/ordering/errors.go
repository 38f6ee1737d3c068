package ordering

import "errors"

var (
	// ErrPermissionDenied is returned when the facade denies the operation.
	// The operation aborts without side effects.
	ErrPermissionDenied = errors.New("ordering: permission denied by legacy authorization")

	// ErrOrderNotFound is returned when an order does not exist
	ErrOrderNotFound = errors.New("ordering: order not found")
)
