package inventory

import (
	"context"
	"time"

	"minimart/internal/core/id"
)

// MovementFilter narrows ledger queries for the movement history endpoint.
type MovementFilter struct {
	ProductID    *id.ID
	MovementType *MovementType
	From         *time.Time
	To           *time.Time
	Limit        int
	Offset       int
}

// DefaultMovementFilter returns a filter with sane pagination.
func DefaultMovementFilter() MovementFilter {
	return MovementFilter{Limit: 50}
}

// Repository is the persistence contract for stock counters and the
// movement ledger.
type Repository interface {
	// GetByProduct returns the inventory row for a product.
	GetByProduct(ctx context.Context, productID id.ID) (*Inventory, error)

	// GetByProductForUpdate locks the inventory row for the rest of the
	// surrounding transaction. Every counter mutation goes through this
	// lock so concurrent reservations serialize.
	GetByProductForUpdate(ctx context.Context, productID id.ID) (*Inventory, error)

	// GetByProducts returns inventory rows for a batch of products.
	GetByProducts(ctx context.Context, productIDs []id.ID) (map[id.ID]*Inventory, error)

	// Create inserts a zeroed inventory row for a new product.
	Create(ctx context.Context, inv *Inventory) error

	// UpdateCounters persists the two counters of a previously locked row.
	UpdateCounters(ctx context.Context, inv *Inventory) error

	// CreateMovement appends a row to the movement ledger.
	CreateMovement(ctx context.Context, m *StockMovement) error

	// ListMovements returns ledger rows newest first.
	ListMovements(ctx context.Context, filter MovementFilter) ([]StockMovement, error)

	// ListLowStock returns inventory rows with available stock at or
	// below the threshold, joined product names included.
	ListLowStock(ctx context.Context, threshold int64) ([]LowStockItem, error)
}

// LowStockItem is a reporting row for the restock dashboard.
type LowStockItem struct {
	ProductID      id.ID  `db:"product_id" json:"productId"`
	ProductName    string `db:"product_name" json:"productName"`
	CurrentStock   int64  `db:"current_stock" json:"currentStock"`
	AllocatedStock int64  `db:"allocated_stock" json:"allocatedStock"`
	Available      int64  `db:"available" json:"available"`
}
