package dto

import (
	"minimart/internal/core/id"
	"minimart/internal/core/types"
	"minimart/internal/domain/order"
	"minimart/internal/domain/sales"
)

// OrderItemRequest is one requested line of a new order.
type OrderItemRequest struct {
	ProductID string `json:"productId" binding:"required,uuid"`
	Quantity  int64  `json:"quantity" binding:"required,min=1"`
}

// CreateOrderRequest is the request body for submitting a wholesale order.
type CreateOrderRequest struct {
	CustomerID string             `json:"customerId" binding:"required,uuid"`
	Items      []OrderItemRequest `json:"items" binding:"required,min=1,dive"`
}

// ToServiceRequest converts the DTO to a domain request.
func (r *CreateOrderRequest) ToServiceRequest() (order.CreateRequest, error) {
	customerID, err := id.Parse(r.CustomerID)
	if err != nil {
		return order.CreateRequest{}, err
	}
	req := order.CreateRequest{CustomerID: customerID}
	for _, item := range r.Items {
		pid, err := id.Parse(item.ProductID)
		if err != nil {
			return order.CreateRequest{}, err
		}
		req.Items = append(req.Items, order.CreateItem{
			ProductID: pid,
			Quantity:  item.Quantity,
		})
	}
	return req, nil
}

// UpdateOrderStatusRequest moves an order along the packing path.
type UpdateOrderStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// CancelOrderRequest is the request body for cancelling an order.
type CancelOrderRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// MarkItemUnavailableRequest reports a shortage found while packing.
type MarkItemUnavailableRequest struct {
	OrderItemID         string `json:"orderItemId" binding:"required,uuid"`
	QuantityUnavailable int64  `json:"quantityUnavailable" binding:"required,min=1"`
	Reason              string `json:"reason" binding:"required,oneof=DAMAGE INTERNAL_USE OUT_OF_STOCK OTHER"`
	Notes               string `json:"notes"`
}

// ToServiceRequest converts the DTO to a domain request.
func (r *MarkItemUnavailableRequest) ToServiceRequest(orderID id.ID) (order.ShortageRequest, error) {
	itemID, err := id.Parse(r.OrderItemID)
	if err != nil {
		return order.ShortageRequest{}, err
	}
	return order.ShortageRequest{
		OrderID:             orderID,
		OrderItemID:         itemID,
		QuantityUnavailable: r.QuantityUnavailable,
		Reason:              r.Reason,
		Notes:               r.Notes,
	}, nil
}

// CompletePaymentRequest finalizes a READY order. AmountTendered and
// Change are optional: omitted means exact payment.
type CompletePaymentRequest struct {
	Method           string       `json:"method" binding:"required,oneof=CASH GCASH"`
	AmountTendered   *types.Money `json:"amountTendered"`
	Change           *types.Money `json:"change"`
	GcashReferenceNo *string      `json:"gcashReferenceNo"`
}

// ToServiceRequest converts the DTO to a domain request.
func (r *CompletePaymentRequest) ToServiceRequest(orderID id.ID) order.PaymentRequest {
	return order.PaymentRequest{
		OrderID:          orderID,
		Method:           sales.PaymentMethod(r.Method),
		AmountTendered:   r.AmountTendered,
		Change:           r.Change,
		GcashReferenceNo: r.GcashReferenceNo,
	}
}
