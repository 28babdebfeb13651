package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"minimart/internal/core/appctx"
	"minimart/internal/core/tx"
	"minimart/internal/domain/audit"
	"minimart/internal/domain/catalog/product"
	"minimart/internal/domain/inventory"
	"minimart/internal/infrastructure/http/v1/dto"
)

// InventoryHandler handles stock level and movement endpoints.
type InventoryHandler struct {
	*BaseHandler
	inv       *inventory.Service
	products  *product.Service
	auditor   *audit.Service
	txManager tx.Manager
}

// NewInventoryHandler creates a new inventory handler.
func NewInventoryHandler(
	base *BaseHandler,
	inv *inventory.Service,
	products *product.Service,
	auditor *audit.Service,
	txManager tx.Manager,
) *InventoryHandler {
	return &InventoryHandler{
		BaseHandler: base,
		inv:         inv,
		products:    products,
		auditor:     auditor,
		txManager:   txManager,
	}
}

// Get handles GET /inventory/:productId
func (h *InventoryHandler) Get(c *gin.Context) {
	productID, ok := h.ParseIDParam(c, "productId")
	if !ok {
		return
	}

	inv, err := h.inv.GetByProduct(c.Request.Context(), productID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, inv)
}

// Adjust handles POST /inventory/:productId/adjust
func (h *InventoryHandler) Adjust(c *gin.Context) {
	ctx := c.Request.Context()

	productID, ok := h.ParseIDParam(c, "productId")
	if !ok {
		return
	}

	var req dto.AdjustStockRequest
	if !h.BindJSON(c, &req) {
		return
	}

	p, err := h.products.GetByID(ctx, productID)
	if err != nil {
		h.Error(c, err)
		return
	}

	err = h.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		return h.inv.Adjust(ctx, inventory.AdjustRequest{
			ProductID:    productID,
			ProductName:  p.Name,
			Delta:        req.Delta,
			MovementType: inventory.MovementType(req.MovementType),
			Reason:       req.Reason,
			Reference:    req.Reference,
			UserID:       appctx.GetUserID(ctx),
		})
	})
	if err != nil {
		h.Error(c, err)
		return
	}

	inv, err := h.inv.GetByProduct(ctx, productID)
	if err != nil {
		h.Error(c, err)
		return
	}

	if req.Delta > 0 && inventory.MovementType(req.MovementType) == inventory.MovementRestock {
		h.auditor.Record(ctx, "inventory", inv.ID, audit.RestockMeta{
			ProductID:   productID,
			ProductName: p.Name,
			Quantity:    req.Delta,
			NewStock:    inv.CurrentStock,
			Reference:   req.Reference,
		})
	} else {
		h.auditor.Record(ctx, "inventory", inv.ID, audit.AdjustStockMeta{
			ProductID:    productID,
			ProductName:  p.Name,
			Delta:        req.Delta,
			MovementType: req.MovementType,
			Reason:       req.Reason,
			NewStock:     inv.CurrentStock,
		})
	}

	h.OK(c, inv)
}

// Movements handles GET /inventory/movements
func (h *InventoryHandler) Movements(c *gin.Context) {
	var query dto.MovementListQuery
	if !h.BindQuery(c, &query) {
		return
	}

	filter, err := query.ToFilter()
	if err != nil {
		h.Error(c, err)
		return
	}

	movements, err := h.inv.Movements(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, gin.H{"items": movements})
}

// LowStock handles GET /inventory/low-stock
func (h *InventoryHandler) LowStock(c *gin.Context) {
	threshold := int64(h.ParseIntQuery(c, "threshold", 10))

	items, err := h.inv.LowStock(c.Request.Context(), threshold)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, gin.H{"items": items, "threshold": threshold})
}
