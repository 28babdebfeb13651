package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"minimart/internal/core/apperror"
	"minimart/internal/core/appctx"
	"minimart/internal/core/id"
	"minimart/internal/domain/auth"
	"minimart/internal/domain/order"
	"minimart/internal/domain/views"
	"minimart/internal/infrastructure/http/v1/dto"
)

// activeBoardTTL bounds staleness of the cached packing board when an
// invalidation is lost.
const activeBoardTTL = 30 * time.Second

// OrderHandler handles the wholesale order lifecycle endpoints.
type OrderHandler struct {
	*BaseHandler
	service  *order.Service
	accounts *auth.Service
	cache    views.SnapshotStore
}

// NewOrderHandler creates a new order handler.
func NewOrderHandler(base *BaseHandler, service *order.Service, accounts *auth.Service, cache views.SnapshotStore) *OrderHandler {
	return &OrderHandler{
		BaseHandler: base,
		service:     service,
		accounts:    accounts,
		cache:       cache,
	}
}

// Create handles POST /orders
func (h *OrderHandler) Create(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.CreateOrderRequest
	if !h.BindJSON(c, &req) {
		return
	}

	serviceReq, err := req.ToServiceRequest()
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid product or customer id"))
		return
	}

	// Vendors may only order for their own linked customer.
	if !h.vendorOwnsCustomer(c, serviceReq.CustomerID) {
		return
	}

	o, err := h.service.Create(ctx, serviceReq)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, o)
}

// Get handles GET /orders/:id
func (h *OrderHandler) Get(c *gin.Context) {
	orderID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	o, err := h.service.GetByID(c.Request.Context(), orderID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, o)
}

// ListActive handles GET /orders/active - the packing board, grouped by
// status, oldest first within each group. Served from the view cache
// between mutations; every lifecycle commit invalidates the snapshot.
func (h *OrderHandler) ListActive(c *gin.Context) {
	ctx := c.Request.Context()

	if payload, hit, err := h.cache.GetSnapshot(ctx, views.ActiveOrders); err == nil && hit {
		c.Data(http.StatusOK, "application/json; charset=utf-8", payload)
		return
	}

	board, err := h.service.ListActive(ctx)
	if err != nil {
		h.Error(c, err)
		return
	}

	if payload, err := json.Marshal(board); err == nil {
		_ = h.cache.Snapshot(ctx, views.ActiveOrders, payload, activeBoardTTL)
	}
	h.OK(c, board)
}

// ListByCustomer handles GET /orders/customer/:customerId
func (h *OrderHandler) ListByCustomer(c *gin.Context) {
	customerID, ok := h.ParseIDParam(c, "customerId")
	if !ok {
		return
	}

	if !h.vendorOwnsCustomer(c, customerID) {
		return
	}

	limit := h.ParseIntQuery(c, "limit", 50)
	offset := h.ParseIntQuery(c, "offset", 0)

	orders, err := h.service.ListByCustomer(c.Request.Context(), customerID, limit, offset)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, gin.H{"items": orders})
}

// UpdateStatus handles PATCH /orders/:id/status - forward packing moves
// only (PENDING to PREPARING to READY). Completion and cancellation have
// dedicated endpoints.
func (h *OrderHandler) UpdateStatus(c *gin.Context) {
	orderID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	var req dto.UpdateOrderStatusRequest
	if !h.BindJSON(c, &req) {
		return
	}

	if err := h.service.UpdateStatus(c.Request.Context(), orderID, order.Status(req.Status)); err != nil {
		h.Error(c, err)
		return
	}

	h.Success(c, "status updated")
}

// Cancel handles POST /orders/:id/cancel
func (h *OrderHandler) Cancel(c *gin.Context) {
	orderID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	var req dto.CancelOrderRequest
	if !h.BindJSON(c, &req) {
		return
	}

	result, err := h.service.Cancel(c.Request.Context(), orderID, req.Reason)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, result)
}

// MarkItemUnavailable handles POST /orders/:id/items/unavailable
func (h *OrderHandler) MarkItemUnavailable(c *gin.Context) {
	orderID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	var req dto.MarkItemUnavailableRequest
	if !h.BindJSON(c, &req) {
		return
	}

	serviceReq, err := req.ToServiceRequest(orderID)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid order item id"))
		return
	}

	result, err := h.service.MarkItemUnavailable(c.Request.Context(), serviceReq)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, result)
}

// CompletePayment handles POST /orders/:id/payment
func (h *OrderHandler) CompletePayment(c *gin.Context) {
	orderID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	var req dto.CompletePaymentRequest
	if !h.BindJSON(c, &req) {
		return
	}

	result, err := h.service.CompletePayment(c.Request.Context(), req.ToServiceRequest(orderID))
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, result)
}

// vendorOwnsCustomer rejects vendors reaching into another customer's
// orders. Staff roles pass unchecked; a vendor's account pins the one
// wholesale customer it may act for.
func (h *OrderHandler) vendorOwnsCustomer(c *gin.Context, customerID id.ID) bool {
	ctx := c.Request.Context()
	user := appctx.GetUser(ctx)
	if user == nil || user.Role != appctx.RoleVendor {
		return true
	}

	userID, err := id.Parse(user.UserID)
	if err != nil {
		h.Error(c, apperror.NewUnauthorized("invalid user id"))
		return false
	}
	account, err := h.accounts.GetByID(ctx, userID)
	if err != nil {
		h.Error(c, err)
		return false
	}
	if account.CustomerID == nil || *account.CustomerID != customerID {
		h.Error(c, apperror.NewForbidden("order belongs to another customer"))
		return false
	}
	return true
}
