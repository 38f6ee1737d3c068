package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	authzapp "github.com/erp/bridge/internal/application/authz"
)

// AuthzService is the application surface the authorization handler needs.
type AuthzService interface {
	CheckPermission(ctx context.Context, subjectID int64, operation string) (bool, error)
	CheckPermissionForUser(ctx context.Context, userID uuid.UUID, operation string) (bool, error)
	CreateMapping(ctx context.Context, req authzapp.CreateSubjectMappingRequest) (*authzapp.SubjectMappingResponse, error)
	GetMapping(ctx context.Context, id uuid.UUID) (*authzapp.SubjectMappingResponse, error)
	GetMappingByUser(ctx context.Context, userID uuid.UUID) (*authzapp.SubjectMappingResponse, error)
	ListMappings(ctx context.Context, filter authzapp.SubjectMappingListFilter) ([]authzapp.SubjectMappingResponse, int64, error)
	UpdateMapping(ctx context.Context, id uuid.UUID, req authzapp.UpdateSubjectMappingRequest) (*authzapp.SubjectMappingResponse, error)
	DeleteMapping(ctx context.Context, id uuid.UUID) error
}

// AuthzHandler handles permission checks and subject mapping administration
type AuthzHandler struct {
	BaseHandler
	authzService AuthzService
}

// NewAuthzHandler creates a new AuthzHandler
func NewAuthzHandler(authzService AuthzService) *AuthzHandler {
	return &AuthzHandler{
		authzService: authzService,
	}
}

// RegisterRoutes registers authorization routes
func (h *AuthzHandler) RegisterRoutes(rg *gin.RouterGroup) {
	authz := rg.Group("/authz")
	{
		authz.POST("/check", h.Check)
		authz.POST("/check-user", h.CheckUser)

		mappings := authz.Group("/subject-mappings")
		{
			mappings.POST("", h.CreateMapping)
			mappings.GET("", h.ListMappings)
			mappings.GET("/by-user/:user_id", h.GetMappingByUser)
			mappings.GET("/:id", h.GetMapping)
			mappings.PATCH("/:id", h.UpdateMapping)
			mappings.DELETE("/:id", h.DeleteMapping)
		}
	}
}

// CheckPermissionRequest represents a permission check against the legacy store
// @Description Request body for checking a legacy subject's permission
type CheckPermissionRequest struct {
	SubjectID int64  `json:"subject_id" binding:"required,min=1" example:"1042"`
	Operation string `json:"operation" binding:"required,min=1,max=64" example:"create_order"`
}

// CheckUserPermissionRequest represents a permission check for a modern user
// @Description Request body for checking a modern user's permission via their subject mapping
type CheckUserPermissionRequest struct {
	UserID    uuid.UUID `json:"user_id" binding:"required" format:"uuid"`
	Operation string    `json:"operation" binding:"required,min=1,max=64" example:"create_order"`
}

// Check godoc
// @ID           checkPermission
//
//	@Summary		Check a legacy subject's permission
//	@Description	Ask the legacy authorization store whether a subject may perform an operation. A missing grant is a denial, not an error; an unreachable legacy store yields 503.
//	@Tags			authz
//	@Accept			json
//	@Produce		json
//	@Param			request	body		CheckPermissionRequest	true	"Permission check request"
//	@Success		200		{object}	APIResponse[authzapp.CheckPermissionResponse]
//	@Failure		400		{object}	ErrorResponse
//	@Failure		401		{object}	ErrorResponse
//	@Failure		503		{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/authz/check [post]
func (h *AuthzHandler) Check(c *gin.Context) {
	var req CheckPermissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	authorized, err := h.authzService.CheckPermission(c.Request.Context(), req.SubjectID, req.Operation)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, checkResponse(req.SubjectID, req.Operation, authorized))
}

// CheckUser godoc
// @ID           checkUserPermission
//
//	@Summary		Check a modern user's permission
//	@Description	Resolve the user's legacy subject through the mapping table, then check the permission against the legacy store. Unmapped users yield 422.
//	@Tags			authz
//	@Accept			json
//	@Produce		json
//	@Param			request	body		CheckUserPermissionRequest	true	"User permission check request"
//	@Success		200		{object}	APIResponse[UserCheckResponse]
//	@Failure		400		{object}	ErrorResponse
//	@Failure		401		{object}	ErrorResponse
//	@Failure		422		{object}	ErrorResponse
//	@Failure		503		{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/authz/check-user [post]
func (h *AuthzHandler) CheckUser(c *gin.Context) {
	var req CheckUserPermissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	authorized, err := h.authzService.CheckPermissionForUser(c.Request.Context(), req.UserID, req.Operation)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, UserCheckResponse{
		UserID:     req.UserID,
		Operation:  req.Operation,
		Authorized: authorized,
	})
}

// UserCheckResponse represents the outcome of a user permission check
// @Description Outcome of a permission check resolved through the subject mapping
type UserCheckResponse struct {
	UserID     uuid.UUID `json:"user_id" format:"uuid"`
	Operation  string    `json:"operation" example:"create_order"`
	Authorized bool      `json:"authorized" example:"true"`
}

// CreateSubjectMappingRequest represents a request to map a user to a legacy subject
// @Description Request body for creating a subject mapping
type CreateSubjectMappingRequest struct {
	UserID          uuid.UUID `json:"user_id" binding:"required" format:"uuid"`
	LegacySubjectID int64     `json:"legacy_subject_id" binding:"required,min=1" example:"1042"`
	Note            string    `json:"note" binding:"max=500" example:"Migrated from AD group sales-emea"`
}

// UpdateSubjectMappingRequest represents a request to update a subject mapping
// @Description Request body for updating a subject mapping
type UpdateSubjectMappingRequest struct {
	Active *bool   `json:"active" example:"false"`
	Note   *string `json:"note" example:"Deactivated pending offboarding"`
}

// CreateMapping godoc
// @ID           createSubjectMapping
//
//	@Summary		Create a subject mapping
//	@Description	Map a modern user to a legacy permission subject. Each user maps to exactly one subject.
//	@Tags			authz
//	@Accept			json
//	@Produce		json
//	@Param			request	body		CreateSubjectMappingRequest	true	"Subject mapping creation request"
//	@Success		201		{object}	APIResponse[authzapp.SubjectMappingResponse]
//	@Failure		400		{object}	ErrorResponse
//	@Failure		401		{object}	ErrorResponse
//	@Failure		409		{object}	ErrorResponse
//	@Failure		500		{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/authz/subject-mappings [post]
func (h *AuthzHandler) CreateMapping(c *gin.Context) {
	var req CreateSubjectMappingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	mapping, err := h.authzService.CreateMapping(c.Request.Context(), authzapp.CreateSubjectMappingRequest{
		UserID:          req.UserID,
		LegacySubjectID: req.LegacySubjectID,
		Note:            req.Note,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, mapping)
}

// GetMapping godoc
// @ID           getSubjectMappingById
//
//	@Summary		Get subject mapping by ID
//	@Description	Retrieve a subject mapping by its ID
//	@Tags			authz
//	@Produce		json
//	@Param			id	path		string	true	"Mapping ID"	format(uuid)
//	@Success		200	{object}	APIResponse[authzapp.SubjectMappingResponse]
//	@Failure		400	{object}	ErrorResponse
//	@Failure		401	{object}	ErrorResponse
//	@Failure		404	{object}	ErrorResponse
//	@Failure		500	{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/authz/subject-mappings/{id} [get]
func (h *AuthzHandler) GetMapping(c *gin.Context) {
	mappingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid mapping ID format")
		return
	}

	mapping, err := h.authzService.GetMapping(c.Request.Context(), mappingID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, mapping)
}

// GetMappingByUser godoc
// @ID           getSubjectMappingByUser
//
//	@Summary		Get subject mapping by user
//	@Description	Retrieve the subject mapping for a modern user
//	@Tags			authz
//	@Produce		json
//	@Param			user_id	path		string	true	"User ID"	format(uuid)
//	@Success		200		{object}	APIResponse[authzapp.SubjectMappingResponse]
//	@Failure		400		{object}	ErrorResponse
//	@Failure		401		{object}	ErrorResponse
//	@Failure		404		{object}	ErrorResponse
//	@Failure		500		{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/authz/subject-mappings/by-user/{user_id} [get]
func (h *AuthzHandler) GetMappingByUser(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("user_id"))
	if err != nil {
		h.BadRequest(c, "Invalid user ID format")
		return
	}

	mapping, err := h.authzService.GetMappingByUser(c.Request.Context(), userID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, mapping)
}

// ListMappings godoc
// @ID           listSubjectMappings
//
//	@Summary		List subject mappings
//	@Description	Retrieve a paginated list of subject mappings with optional search
//	@Tags			authz
//	@Produce		json
//	@Param			search		query		string	false	"Search term (note)"
//	@Param			page		query		int		false	"Page number"	default(1)
//	@Param			page_size	query		int		false	"Page size"		default(20)	maximum(100)
//	@Success		200			{object}	APIResponse[[]authzapp.SubjectMappingResponse]
//	@Failure		400			{object}	ErrorResponse
//	@Failure		401			{object}	ErrorResponse
//	@Failure		500			{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/authz/subject-mappings [get]
func (h *AuthzHandler) ListMappings(c *gin.Context) {
	var filter authzapp.SubjectMappingListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}

	mappings, total, err := h.authzService.ListMappings(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, mappings, total, filter.Page, filter.PageSize)
}

// UpdateMapping godoc
// @ID           updateSubjectMapping
//
//	@Summary		Update a subject mapping
//	@Description	Activate, deactivate or annotate a subject mapping. Deactivating invalidates cached decisions for the legacy subject.
//	@Tags			authz
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string						true	"Mapping ID"	format(uuid)
//	@Param			request	body		UpdateSubjectMappingRequest	true	"Subject mapping update request"
//	@Success		200		{object}	APIResponse[authzapp.SubjectMappingResponse]
//	@Failure		400		{object}	ErrorResponse
//	@Failure		401		{object}	ErrorResponse
//	@Failure		404		{object}	ErrorResponse
//	@Failure		500		{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/authz/subject-mappings/{id} [patch]
func (h *AuthzHandler) UpdateMapping(c *gin.Context) {
	mappingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid mapping ID format")
		return
	}

	var req UpdateSubjectMappingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	mapping, err := h.authzService.UpdateMapping(c.Request.Context(), mappingID, authzapp.UpdateSubjectMappingRequest{
		Active: req.Active,
		Note:   req.Note,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, mapping)
}

// DeleteMapping godoc
// @ID           deleteSubjectMapping
//
//	@Summary		Delete a subject mapping
//	@Description	Remove a subject mapping. Subsequent checks for the user yield 422 until remapped.
//	@Tags			authz
//	@Produce		json
//	@Param			id	path	string	true	"Mapping ID"	format(uuid)
//	@Success		204
//	@Failure		400	{object}	ErrorResponse
//	@Failure		401	{object}	ErrorResponse
//	@Failure		404	{object}	ErrorResponse
//	@Failure		500	{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/authz/subject-mappings/{id} [delete]
func (h *AuthzHandler) DeleteMapping(c *gin.Context) {
	mappingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid mapping ID format")
		return
	}

	if err := h.authzService.DeleteMapping(c.Request.Context(), mappingID); err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}
