package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	orderingapp "github.com/erp/bridge/internal/application/ordering"
)

// OrderingService is the application surface the order handler needs.
type OrderingService interface {
	Create(ctx context.Context, subjectID int64, req orderingapp.CreateOrderRequest) (*orderingapp.OrderResponse, error)
	GetByID(ctx context.Context, subjectID int64, orderID uuid.UUID) (*orderingapp.OrderResponse, error)
	GetByOrderNumber(ctx context.Context, subjectID int64, orderNumber string) (*orderingapp.OrderResponse, error)
	List(ctx context.Context, subjectID int64, filter orderingapp.OrderListFilter) ([]orderingapp.OrderListItemResponse, int64, error)
}

// SubjectResolver resolves a modern user to their legacy permission subject.
type SubjectResolver interface {
	ResolveLegacySubject(ctx context.Context, userID uuid.UUID) (int64, error)
}

// OrderHandler handles order-related API endpoints on the modern side of the
// migration. The cutover gate decides per request whether these handlers run
// or the legacy monolith serves the call.
type OrderHandler struct {
	BaseHandler
	orderService    OrderingService
	subjectResolver SubjectResolver
}

// NewOrderHandler creates a new OrderHandler
func NewOrderHandler(orderService OrderingService, subjectResolver SubjectResolver) *OrderHandler {
	return &OrderHandler{
		orderService:    orderService,
		subjectResolver: subjectResolver,
	}
}

// RegisterRoutes registers order routes. Strangled operations receive their
// gate middleware from the caller so routing policy stays out of the handler.
func (h *OrderHandler) RegisterRoutes(rg *gin.RouterGroup) {
	h.RegisterRoutesWithGate(rg, nil)
}

// RegisterRoutesWithGate registers order routes, applying the given gate
// middleware to the strangled create operation.
func (h *OrderHandler) RegisterRoutesWithGate(rg *gin.RouterGroup, createGate gin.HandlerFunc) {
	orders := rg.Group("/orders")
	{
		if createGate != nil {
			orders.POST("", createGate, h.Create)
		} else {
			orders.POST("", h.Create)
		}
		orders.GET("", h.List)
		orders.GET("/number/:number", h.GetByOrderNumber)
		orders.GET("/:id", h.GetByID)
	}
}

// resolveSubject extracts the authenticated user and resolves their legacy
// subject. Mapping failures surface as 422 via HandleError.
func (h *OrderHandler) resolveSubject(c *gin.Context) (int64, bool) {
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return 0, false
	}

	subjectID, err := h.subjectResolver.ResolveLegacySubject(c.Request.Context(), userID)
	if err != nil {
		h.HandleError(c, err)
		return 0, false
	}

	return subjectID, true
}

// Create godoc
// @ID           createOrder
//
//	@Summary		Create a new order
//	@Description	Create an order after verifying the caller's create_order permission against the legacy store. Requests may be proxied to the legacy monolith depending on the cutover route.
//	@Tags			orders
//	@Accept			json
//	@Produce		json
//	@Param			request	body		orderingapp.CreateOrderRequest	true	"Order creation request"
//	@Success		201		{object}	APIResponse[orderingapp.OrderResponse]
//	@Failure		400		{object}	ErrorResponse
//	@Failure		401		{object}	ErrorResponse
//	@Failure		403		{object}	ErrorResponse
//	@Failure		422		{object}	ErrorResponse
//	@Failure		503		{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/orders [post]
func (h *OrderHandler) Create(c *gin.Context) {
	subjectID, ok := h.resolveSubject(c)
	if !ok {
		return
	}

	var req orderingapp.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	order, err := h.orderService.Create(c.Request.Context(), subjectID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, order)
}

// GetByID godoc
// @ID           getOrderById
//
//	@Summary		Get order by ID
//	@Description	Retrieve an order by its ID. The caller needs the view_orders permission.
//	@Tags			orders
//	@Produce		json
//	@Param			id	path		string	true	"Order ID"	format(uuid)
//	@Success		200	{object}	APIResponse[orderingapp.OrderResponse]
//	@Failure		400	{object}	ErrorResponse
//	@Failure		401	{object}	ErrorResponse
//	@Failure		403	{object}	ErrorResponse
//	@Failure		404	{object}	ErrorResponse
//	@Failure		422	{object}	ErrorResponse
//	@Failure		503	{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/orders/{id} [get]
func (h *OrderHandler) GetByID(c *gin.Context) {
	subjectID, ok := h.resolveSubject(c)
	if !ok {
		return
	}

	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid order ID format")
		return
	}

	order, err := h.orderService.GetByID(c.Request.Context(), subjectID, orderID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, order)
}

// GetByOrderNumber godoc
// @ID           getOrderByNumber
//
//	@Summary		Get order by order number
//	@Description	Retrieve an order by its business order number
//	@Tags			orders
//	@Produce		json
//	@Param			number	path		string	true	"Order number"
//	@Success		200		{object}	APIResponse[orderingapp.OrderResponse]
//	@Failure		400		{object}	ErrorResponse
//	@Failure		401		{object}	ErrorResponse
//	@Failure		403		{object}	ErrorResponse
//	@Failure		404		{object}	ErrorResponse
//	@Failure		422		{object}	ErrorResponse
//	@Failure		503		{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/orders/number/{number} [get]
func (h *OrderHandler) GetByOrderNumber(c *gin.Context) {
	subjectID, ok := h.resolveSubject(c)
	if !ok {
		return
	}

	orderNumber := c.Param("number")
	if orderNumber == "" {
		h.BadRequest(c, "Order number is required")
		return
	}

	order, err := h.orderService.GetByOrderNumber(c.Request.Context(), subjectID, orderNumber)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, order)
}

// List godoc
// @ID           listOrders
//
//	@Summary		List orders
//	@Description	Retrieve a paginated list of orders with optional filtering
//	@Tags			orders
//	@Produce		json
//	@Param			search		query		string	false	"Search term (order number, remark)"
//	@Param			customer_id	query		string	false	"Customer ID"		format(uuid)
//	@Param			page		query		int		false	"Page number"		default(1)
//	@Param			page_size	query		int		false	"Page size"			default(20)	maximum(100)
//	@Param			order_by	query		string	false	"Order by field"	default(created_at)
//	@Param			order_dir	query		string	false	"Order direction"	Enums(asc, desc)	default(desc)
//	@Success		200			{object}	APIResponse[[]orderingapp.OrderListItemResponse]
//	@Failure		400			{object}	ErrorResponse
//	@Failure		401			{object}	ErrorResponse
//	@Failure		403			{object}	ErrorResponse
//	@Failure		422			{object}	ErrorResponse
//	@Failure		503			{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/orders [get]
func (h *OrderHandler) List(c *gin.Context) {
	subjectID, ok := h.resolveSubject(c)
	if !ok {
		return
	}

	var filter orderingapp.OrderListFilter
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

	orders, total, err := h.orderService.List(c.Request.Context(), subjectID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, orders, total, filter.Page, filter.PageSize)
}
