package handler

import (
	"time"

	authzapp "github.com/erp/bridge/internal/application/authz"
)

// checkResponse builds the wire response for a completed permission check
func checkResponse(subjectID int64, operation string, authorized bool) authzapp.CheckPermissionResponse {
	return authzapp.CheckPermissionResponse{
		SubjectID:  subjectID,
		Operation:  operation,
		Authorized: authorized,
		CheckedAt:  time.Now().UTC(),
	}
}
