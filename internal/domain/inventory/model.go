// Package inventory provides the stock ledger: per-product counters plus
// an append-only movement trail documenting every mutation.
package inventory

import (
	"time"

	"minimart/internal/core/id"
)

// MovementType classifies why stock changed. Shortage discovered while
// packing an order is kept distinct from general damage or internal-use
// write-offs so shrinkage reports stay accurate.
type MovementType string

const (
	MovementRestock        MovementType = "RESTOCK"
	MovementSale           MovementType = "SALE"
	MovementDamage         MovementType = "DAMAGE"
	MovementInternalUse    MovementType = "INTERNAL_USE"
	MovementSupplierReturn MovementType = "SUPPLIER_RETURN"
	MovementOrderShortage  MovementType = "ORDER_SHORTAGE"
)

// IsValidMovementType reports whether t is a known movement type.
func IsValidMovementType(t MovementType) bool {
	switch t {
	case MovementRestock, MovementSale, MovementDamage,
		MovementInternalUse, MovementSupplierReturn, MovementOrderShortage:
		return true
	}
	return false
}

// Inventory holds the two stock counters for a product.
//
// Invariant after every committed operation:
//
//	0 <= AllocatedStock <= CurrentStock
//
// CurrentStock counts units physically on hand; AllocatedStock counts
// units reserved by non-terminal wholesale orders.
type Inventory struct {
	ID             id.ID     `db:"id" json:"id"`
	ProductID      id.ID     `db:"product_id" json:"productId"`
	CurrentStock   int64     `db:"current_stock" json:"currentStock"`
	AllocatedStock int64     `db:"allocated_stock" json:"allocatedStock"`
	UpdatedAt      time.Time `db:"updated_at" json:"updatedAt"`
}

// Available returns units that can still be reserved.
func (i *Inventory) Available() int64 {
	return i.CurrentStock - i.AllocatedStock
}

// StockMovement is an append-only ledger row. Movements are created,
// never mutated or deleted.
type StockMovement struct {
	ID             id.ID        `db:"id" json:"id"`
	InventoryID    id.ID        `db:"inventory_id" json:"inventoryId"`
	ProductID      id.ID        `db:"product_id" json:"productId"`
	MovementType   MovementType `db:"movement_type" json:"movementType"`
	QuantityChange int64        `db:"quantity_change" json:"quantityChange"`
	PreviousStock  int64        `db:"previous_stock" json:"previousStock"`
	NewStock       int64        `db:"new_stock" json:"newStock"`
	Reason         string       `db:"reason" json:"reason,omitempty"`
	Reference      string       `db:"reference" json:"reference,omitempty"`
	UserID         string       `db:"user_id" json:"userId"`
	CreatedAt      time.Time    `db:"created_at" json:"createdAt"`
}

// NewStockMovement creates a movement row with stock snapshots taken
// from the inventory state immediately before the mutation.
func NewStockMovement(
	inv *Inventory,
	movementType MovementType,
	quantityChange int64,
	reason, reference, userID string,
) StockMovement {
	return StockMovement{
		ID:             id.New(),
		InventoryID:    inv.ID,
		ProductID:      inv.ProductID,
		MovementType:   movementType,
		QuantityChange: quantityChange,
		PreviousStock:  inv.CurrentStock,
		NewStock:       inv.CurrentStock + quantityChange,
		Reason:         reason,
		Reference:      reference,
		UserID:         userID,
		CreatedAt:      time.Now().UTC(),
	}
}
