package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	cutoverapp "github.com/erp/bridge/internal/application/cutover"
	"github.com/erp/bridge/internal/domain/cutover"
)

// CutoverService is the application surface the cutover handler needs.
type CutoverService interface {
	Decide(ctx context.Context, operation, subjectKey string) cutover.Decision
	CreateRoute(ctx context.Context, req cutoverapp.CreateRouteRequest) (*cutoverapp.RouteResponse, error)
	GetRouteByOperation(ctx context.Context, operation string) (*cutoverapp.RouteResponse, error)
	ListRoutes(ctx context.Context, filter cutoverapp.RouteListFilter) ([]cutoverapp.RouteResponse, int64, error)
	UpdateRoute(ctx context.Context, id uuid.UUID, req cutoverapp.UpdateRouteRequest) (*cutoverapp.RouteResponse, error)
	AdvanceRoute(ctx context.Context, id uuid.UUID, req cutoverapp.AdvanceRouteRequest) (*cutoverapp.RouteResponse, error)
	DeleteRoute(ctx context.Context, id uuid.UUID) error
}

// CutoverHandler administers cutover routes: which operations run on the
// modern side, which stay on the legacy monolith, and how large the canary
// cohort is. Routes are addressed by operation name, the stable key
// operators reason about.
type CutoverHandler struct {
	BaseHandler
	routeService CutoverService
}

// NewCutoverHandler creates a new CutoverHandler
func NewCutoverHandler(routeService CutoverService) *CutoverHandler {
	return &CutoverHandler{
		routeService: routeService,
	}
}

// RegisterRoutes registers cutover administration routes
func (h *CutoverHandler) RegisterRoutes(rg *gin.RouterGroup) {
	routes := rg.Group("/cutover/routes")
	{
		routes.POST("", h.CreateRoute)
		routes.GET("", h.ListRoutes)
		routes.GET("/:operation", h.GetRoute)
		routes.GET("/:operation/decision", h.PreviewDecision)
		routes.PUT("/:operation", h.UpdateRoute)
		routes.POST("/:operation/advance", h.AdvanceRoute)
		routes.DELETE("/:operation", h.DeleteRoute)
	}
}

// lookupRoute resolves the :operation path parameter to a route
func (h *CutoverHandler) lookupRoute(c *gin.Context) (*cutoverapp.RouteResponse, bool) {
	operation := c.Param("operation")
	if operation == "" {
		h.BadRequest(c, "Operation is required")
		return nil, false
	}

	route, err := h.routeService.GetRouteByOperation(c.Request.Context(), operation)
	if err != nil {
		h.HandleError(c, err)
		return nil, false
	}

	return route, true
}

// CreateRouteRequest represents a request to put an operation under cutover control
// @Description Request body for creating a cutover route. New routes start in legacy mode.
type CreateRouteRequest struct {
	Operation string `json:"operation" binding:"required,min=1,max=64" example:"create_order"`
	Notes     string `json:"notes" binding:"max=500" example:"Order write path, migrating Q3"`
}

// UpdateRouteRequest represents a request to change a route's mode or cohort
// @Description Request body for updating a cutover route
type UpdateRouteRequest struct {
	Mode       *string `json:"mode" binding:"omitempty,oneof=legacy modern canary" example:"canary"`
	Percentage *int    `json:"percentage" binding:"omitempty,min=0,max=100" example:"25"`
	Notes      *string `json:"notes" example:"Canary at 25% since 2026-08-01"`
}

// AdvanceRouteRequest represents a request to grow the canary cohort
// @Description Request body for advancing a canary route. The percentage grows by step, capped at 100.
type AdvanceRouteRequest struct {
	Step int `json:"step" binding:"required,min=1,max=100" example:"10"`
}

// CreateRoute godoc
// @ID           createCutoverRoute
//
//	@Summary		Create a cutover route
//	@Description	Put an operation under cutover control. New routes start in legacy mode so creating one changes nothing until an operator advances it.
//	@Tags			cutover
//	@Accept			json
//	@Produce		json
//	@Param			request	body		CreateRouteRequest	true	"Route creation request"
//	@Success		201		{object}	APIResponse[cutoverapp.RouteResponse]
//	@Failure		400		{object}	ErrorResponse
//	@Failure		401		{object}	ErrorResponse
//	@Failure		409		{object}	ErrorResponse
//	@Failure		500		{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/cutover/routes [post]
func (h *CutoverHandler) CreateRoute(c *gin.Context) {
	var req CreateRouteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	route, err := h.routeService.CreateRoute(c.Request.Context(), cutoverapp.CreateRouteRequest{
		Operation: req.Operation,
		Notes:     req.Notes,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, route)
}

// GetRoute godoc
// @ID           getCutoverRoute
//
//	@Summary		Get cutover route by operation
//	@Description	Retrieve the cutover route for an operation
//	@Tags			cutover
//	@Produce		json
//	@Param			operation	path		string	true	"Operation name"
//	@Success		200			{object}	APIResponse[cutoverapp.RouteResponse]
//	@Failure		400			{object}	ErrorResponse
//	@Failure		401			{object}	ErrorResponse
//	@Failure		404			{object}	ErrorResponse
//	@Failure		500			{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/cutover/routes/{operation} [get]
func (h *CutoverHandler) GetRoute(c *gin.Context) {
	route, ok := h.lookupRoute(c)
	if !ok {
		return
	}

	h.Success(c, route)
}

// PreviewDecision godoc
// @ID           previewCutoverDecision
//
//	@Summary		Preview a routing decision
//	@Description	Show which side of the migration would serve a request for the given subject key, without routing anything. Useful to verify cohort membership before advancing a canary.
//	@Tags			cutover
//	@Produce		json
//	@Param			operation	path		string	true	"Operation name"
//	@Param			subject_key	query		string	true	"Subject key (user ID or client IP)"
//	@Success		200			{object}	APIResponse[cutoverapp.DecisionResponse]
//	@Failure		400			{object}	ErrorResponse
//	@Failure		401			{object}	ErrorResponse
//	@Failure		500			{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/cutover/routes/{operation}/decision [get]
func (h *CutoverHandler) PreviewDecision(c *gin.Context) {
	operation := c.Param("operation")
	if operation == "" {
		h.BadRequest(c, "Operation is required")
		return
	}

	subjectKey := c.Query("subject_key")
	if subjectKey == "" {
		h.BadRequest(c, "subject_key is required")
		return
	}

	decision := h.routeService.Decide(c.Request.Context(), operation, subjectKey)

	h.Success(c, cutoverapp.ToDecisionResponse(decision))
}

// ListRoutes godoc
// @ID           listCutoverRoutes
//
//	@Summary		List cutover routes
//	@Description	Retrieve a paginated list of cutover routes with optional search
//	@Tags			cutover
//	@Produce		json
//	@Param			search		query		string	false	"Search term (operation, notes)"
//	@Param			page		query		int		false	"Page number"	default(1)
//	@Param			page_size	query		int		false	"Page size"		default(20)	maximum(100)
//	@Success		200			{object}	APIResponse[[]cutoverapp.RouteResponse]
//	@Failure		400			{object}	ErrorResponse
//	@Failure		401			{object}	ErrorResponse
//	@Failure		500			{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/cutover/routes [get]
func (h *CutoverHandler) ListRoutes(c *gin.Context) {
	var filter cutoverapp.RouteListFilter
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

	routes, total, err := h.routeService.ListRoutes(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, routes, total, filter.Page, filter.PageSize)
}

// UpdateRoute godoc
// @ID           updateCutoverRoute
//
//	@Summary		Update a cutover route
//	@Description	Change a route's mode, canary percentage or notes. Moving a route back to legacy mode is the rollback path and takes effect on the next request.
//	@Tags			cutover
//	@Accept			json
//	@Produce		json
//	@Param			operation	path		string				true	"Operation name"
//	@Param			request		body		UpdateRouteRequest	true	"Route update request"
//	@Success		200			{object}	APIResponse[cutoverapp.RouteResponse]
//	@Failure		400			{object}	ErrorResponse
//	@Failure		401			{object}	ErrorResponse
//	@Failure		404			{object}	ErrorResponse
//	@Failure		409			{object}	ErrorResponse
//	@Failure		500			{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/cutover/routes/{operation} [put]
func (h *CutoverHandler) UpdateRoute(c *gin.Context) {
	route, ok := h.lookupRoute(c)
	if !ok {
		return
	}

	var req UpdateRouteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	updated, err := h.routeService.UpdateRoute(c.Request.Context(), route.ID, cutoverapp.UpdateRouteRequest{
		Mode:       req.Mode,
		Percentage: req.Percentage,
		Notes:      req.Notes,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, updated)
}

// AdvanceRoute godoc
// @ID           advanceCutoverRoute
//
//	@Summary		Advance a canary route
//	@Description	Grow the canary cohort by the given step. Reaching 100 percent flips the route to modern mode.
//	@Tags			cutover
//	@Accept			json
//	@Produce		json
//	@Param			operation	path		string				true	"Operation name"
//	@Param			request		body		AdvanceRouteRequest	true	"Advance request"
//	@Success		200			{object}	APIResponse[cutoverapp.RouteResponse]
//	@Failure		400			{object}	ErrorResponse
//	@Failure		401			{object}	ErrorResponse
//	@Failure		404			{object}	ErrorResponse
//	@Failure		422			{object}	ErrorResponse
//	@Failure		500			{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/cutover/routes/{operation}/advance [post]
func (h *CutoverHandler) AdvanceRoute(c *gin.Context) {
	route, ok := h.lookupRoute(c)
	if !ok {
		return
	}

	var req AdvanceRouteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	advanced, err := h.routeService.AdvanceRoute(c.Request.Context(), route.ID, cutoverapp.AdvanceRouteRequest{
		Step: req.Step,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, advanced)
}

// DeleteRoute godoc
// @ID           deleteCutoverRoute
//
//	@Summary		Delete a cutover route
//	@Description	Remove an operation from cutover control. Unrouted operations fall back to the legacy side.
//	@Tags			cutover
//	@Produce		json
//	@Param			operation	path	string	true	"Operation name"
//	@Success		204
//	@Failure		400	{object}	ErrorResponse
//	@Failure		401	{object}	ErrorResponse
//	@Failure		404	{object}	ErrorResponse
//	@Failure		500	{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/cutover/routes/{operation} [delete]
func (h *CutoverHandler) DeleteRoute(c *gin.Context) {
	route, ok := h.lookupRoute(c)
	if !ok {
		return
	}

	if err := h.routeService.DeleteRoute(c.Request.Context(), route.ID); err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}
