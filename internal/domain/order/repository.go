package order

import (
	"context"
	"time"

	"minimart/internal/core/id"
)

// ActiveOrders is the packing board: one FIFO bucket per non-terminal
// status, each ordered by ascending order date.
type ActiveOrders struct {
	Pending   []Order `json:"pending"`
	Preparing []Order `json:"preparing"`
	Ready     []Order `json:"ready"`
}

// Repository is the persistence contract for the order aggregate.
// Reads that precede a mutation use GetByIDForUpdate so concurrent
// lifecycle operations on the same order serialize on the header row.
type Repository interface {
	// Create inserts the order header and all items.
	Create(ctx context.Context, o *Order) error

	// GetByID loads the order with its items.
	GetByID(ctx context.Context, orderID id.ID) (*Order, error)

	// GetByIDForUpdate loads the order with its items and locks the
	// header row for the rest of the surrounding transaction.
	GetByIDForUpdate(ctx context.Context, orderID id.ID) (*Order, error)

	// UpdateHeader persists status, total, cancel reason, and bumps the
	// version.
	UpdateHeader(ctx context.Context, o *Order) error

	// UpdateItemQuantity persists a partial shortage decrement.
	UpdateItemQuantity(ctx context.Context, itemID id.ID, quantity int64) error

	// DeleteItem removes a fully short line.
	DeleteItem(ctx context.Context, itemID id.ID) error

	// ListActive returns all non-terminal orders bucketed by status,
	// oldest first within each bucket.
	ListActive(ctx context.Context) (*ActiveOrders, error)

	// ListByCustomer returns a customer's orders newest first.
	ListByCustomer(ctx context.Context, customerID id.ID, limit, offset int) ([]Order, error)

	// ListExpiredIDs returns ids of non-terminal orders whose order
	// date is before the cutoff.
	ListExpiredIDs(ctx context.Context, cutoff time.Time) ([]id.ID, error)
}
