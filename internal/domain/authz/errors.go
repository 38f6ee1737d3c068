package authz

import "errors"

var (
	// Facade errors
	ErrLegacyUnavailable = errors.New("authz: legacy authorization system unavailable")
	ErrInvalidSubjectID  = errors.New("authz: invalid legacy subject ID")
	ErrInvalidOperation  = errors.New("authz: invalid operation name")

	// Grant lookup errors
	ErrGrantNotFound = errors.New("authz: no authorization record for subject and operation")

	// Subject mapping errors
	ErrSubjectNotMapped       = errors.New("authz: user has no legacy subject mapping")
	ErrMappingInvalidUserID   = errors.New("authz: invalid user ID for subject mapping")
	ErrMappingAlreadyExists   = errors.New("authz: subject mapping already exists")
	ErrMappingNotFound        = errors.New("authz: subject mapping not found")
	ErrMappingInactive        = errors.New("authz: subject mapping is inactive")

	// Gateway configuration errors
	ErrGatewayNotConfigured = errors.New("authz: legacy gateway not configured")
	ErrUnknownGatewayKind   = errors.New("authz: unknown legacy gateway kind")
)
