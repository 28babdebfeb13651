package dto

import (
	"time"

	"minimart/internal/core/id"
	"minimart/internal/core/types"
	"minimart/internal/domain/sales"
)

// CheckoutItemRequest is one scanned line at the register.
type CheckoutItemRequest struct {
	ProductID string `json:"productId" binding:"required,uuid"`
	Quantity  int64  `json:"quantity" binding:"required,min=1"`
}

// CheckoutRequest is the request body for a retail sale.
type CheckoutRequest struct {
	Items            []CheckoutItemRequest `json:"items" binding:"required,min=1,dive"`
	PaymentMethod    string                `json:"paymentMethod" binding:"required,oneof=CASH GCASH"`
	AmountTendered   types.Money           `json:"amountTendered"`
	GcashReferenceNo *string               `json:"gcashReferenceNo"`
}

// ToServiceRequest converts the DTO to a domain request.
func (r *CheckoutRequest) ToServiceRequest() (sales.CheckoutRequest, error) {
	req := sales.CheckoutRequest{
		PaymentMethod:    sales.PaymentMethod(r.PaymentMethod),
		AmountTendered:   r.AmountTendered,
		GcashReferenceNo: r.GcashReferenceNo,
	}
	for _, item := range r.Items {
		pid, err := id.Parse(item.ProductID)
		if err != nil {
			return sales.CheckoutRequest{}, err
		}
		req.Items = append(req.Items, sales.CheckoutItem{
			ProductID: pid,
			Quantity:  item.Quantity,
		})
	}
	return req, nil
}

// TransactionListQuery contains transaction list filter parameters.
type TransactionListQuery struct {
	PaginationRequest
	From   *time.Time `form:"from" time_format:"2006-01-02"`
	To     *time.Time `form:"to" time_format:"2006-01-02"`
	UserID *string    `form:"userId"`
}

// ToFilter converts query parameters to a repository filter.
func (q *TransactionListQuery) ToFilter() sales.ListFilter {
	q.Defaults()
	return sales.ListFilter{
		From:   q.From,
		To:     q.To,
		UserID: q.UserID,
		Limit:  q.Limit,
		Offset: q.Offset,
	}
}

// SalesSummaryQuery bounds the daily sales report.
type SalesSummaryQuery struct {
	From time.Time `form:"from" binding:"required" time_format:"2006-01-02"`
	To   time.Time `form:"to" binding:"required" time_format:"2006-01-02"`
}
