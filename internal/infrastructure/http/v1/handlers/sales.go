package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"minimart/internal/core/apperror"
	"minimart/internal/domain/sales"
	"minimart/internal/infrastructure/http/v1/dto"
)

// SalesHandler handles the retail POS and reporting endpoints.
type SalesHandler struct {
	*BaseHandler
	service *sales.Service
}

// NewSalesHandler creates a new sales handler.
func NewSalesHandler(base *BaseHandler, service *sales.Service) *SalesHandler {
	return &SalesHandler{
		BaseHandler: base,
		service:     service,
	}
}

// Checkout handles POST /sales/checkout
func (h *SalesHandler) Checkout(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.CheckoutRequest
	if !h.BindJSON(c, &req) {
		return
	}

	serviceReq, err := req.ToServiceRequest()
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid product id"))
		return
	}

	receipt, err := h.service.Checkout(ctx, serviceReq)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, receipt)
}

// Get handles GET /sales/:id
func (h *SalesHandler) Get(c *gin.Context) {
	txID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	sale, err := h.service.GetByID(c.Request.Context(), txID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, sale)
}

// GetByReceipt handles GET /sales/receipt/:receiptNo
func (h *SalesHandler) GetByReceipt(c *gin.Context) {
	receiptNo := c.Param("receiptNo")
	if receiptNo == "" {
		h.Error(c, apperror.NewValidation("receipt number is required"))
		return
	}

	sale, err := h.service.GetByReceiptNo(c.Request.Context(), receiptNo)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, sale)
}

// List handles GET /sales
func (h *SalesHandler) List(c *gin.Context) {
	var query dto.TransactionListQuery
	if !h.BindQuery(c, &query) {
		return
	}

	transactions, err := h.service.List(c.Request.Context(), query.ToFilter())
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, gin.H{"items": transactions})
}

// DailySummary handles GET /sales/summary/daily
func (h *SalesHandler) DailySummary(c *gin.Context) {
	var query dto.SalesSummaryQuery
	if !h.BindQuery(c, &query) {
		return
	}

	summary, err := h.service.SummarizeDaily(c.Request.Context(), query.From, query.To)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, gin.H{"items": summary})
}
