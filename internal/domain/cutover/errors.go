package cutover

import "errors"

var (
	// ErrRouteNotFound is returned when no route exists for an operation
	ErrRouteNotFound = errors.New("cutover: route not found")

	// ErrRouteAlreadyExists is returned when creating a duplicate route
	ErrRouteAlreadyExists = errors.New("cutover: route already exists for operation")
)
