// Package order implements the wholesale order aggregate and its
// lifecycle: packing, shortage handling, payment completion,
// cancellation, and time-based expiry. Orders hold stock reservations
// from creation until a terminal status, and every transition that
// touches those reservations runs atomically with the inventory
// counters.
package order

import (
	"time"

	"minimart/internal/core/apperror"
	"minimart/internal/core/id"
	"minimart/internal/core/types"
)

// Status is the order's lifecycle state.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusPreparing Status = "PREPARING"
	StatusReady     Status = "READY"
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"
)

// transitions is the legal successor table. Completion and cancellation
// have dedicated operations with side effects; UpdateStatus only walks
// the forward path.
var transitions = map[Status][]Status{
	StatusPending:   {StatusPreparing, StatusCancelled},
	StatusPreparing: {StatusReady, StatusCancelled},
	StatusReady:     {StatusCompleted, StatusCancelled},
	StatusCompleted: {},
	StatusCancelled: {},
}

// IsValidStatus reports whether s is a known status.
func IsValidStatus(s Status) bool {
	_, ok := transitions[s]
	return ok
}

// CanTransition reports whether from may move to to.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions apply.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Order is the wholesale order aggregate. OrderDate drives both the
// FIFO packing queue and expiry; terminal orders are kept forever for
// history.
type Order struct {
	ID           id.ID       `db:"id" json:"id"`
	OrderNo      string      `db:"order_no" json:"orderNo"`
	CustomerID   id.ID       `db:"customer_id" json:"customerId"`
	OrderDate    time.Time   `db:"order_date" json:"orderDate"`
	Status       Status      `db:"status" json:"status"`
	TotalAmount  types.Money `db:"total_amount" json:"totalAmount"`
	CancelReason string      `db:"cancel_reason" json:"cancelReason,omitempty"`
	Version      int         `db:"version" json:"version"`
	UpdatedAt    time.Time   `db:"updated_at" json:"updatedAt"`

	Items []Item `db:"-" json:"items"`
}

// Item is one order line. Price is the wholesale unit price frozen at
// order time; ProductName is denormalized for packing lists and error
// messages.
type Item struct {
	ID          id.ID       `db:"id" json:"id"`
	OrderID     id.ID       `db:"order_id" json:"orderId"`
	ProductID   id.ID       `db:"product_id" json:"productId"`
	ProductName string      `db:"product_name" json:"productName"`
	Quantity    int64       `db:"quantity" json:"quantity"`
	Price       types.Money `db:"price" json:"price"`
}

// Subtotal returns quantity times unit price.
func (i Item) Subtotal() types.Money {
	return types.MoneyFromUnits(i.Price, i.Quantity)
}

// RecalculateTotal recomputes TotalAmount from the remaining items.
func (o *Order) RecalculateTotal() {
	total := types.Zero()
	for _, item := range o.Items {
		total = total.Add(item.Subtotal())
	}
	o.TotalAmount = total
}

// FindItem returns the item with the given id, or nil.
func (o *Order) FindItem(itemID id.ID) *Item {
	for idx := range o.Items {
		if o.Items[idx].ID == itemID {
			return &o.Items[idx]
		}
	}
	return nil
}

// RemoveItem deletes the item with the given id from the in-memory
// aggregate.
func (o *Order) RemoveItem(itemID id.ID) {
	for idx := range o.Items {
		if o.Items[idx].ID == itemID {
			o.Items = append(o.Items[:idx], o.Items[idx+1:]...)
			return
		}
	}
}

// Validate checks aggregate consistency before persisting.
func (o *Order) Validate() error {
	if id.IsNil(o.CustomerID) {
		return apperror.NewValidation("order requires a customer")
	}
	if len(o.Items) == 0 {
		return apperror.NewValidation("order requires at least one item")
	}
	for _, item := range o.Items {
		if item.Quantity <= 0 {
			return apperror.NewValidation("item quantity must be positive")
		}
		if item.Price.IsNegative() {
			return apperror.NewValidation("item price cannot be negative")
		}
	}
	if !IsValidStatus(o.Status) {
		return apperror.NewValidation("unknown order status: " + string(o.Status))
	}
	return nil
}
