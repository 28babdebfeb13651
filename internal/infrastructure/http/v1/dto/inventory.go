package dto

import (
	"time"

	"minimart/internal/core/id"
	"minimart/internal/domain/inventory"
)

// AdjustStockRequest is the request body for a manual stock adjustment.
// Restocks use a positive delta with movement type RESTOCK; write-offs
// use a negative delta with DAMAGE, INTERNAL_USE or SUPPLIER_RETURN.
type AdjustStockRequest struct {
	Delta        int64  `json:"delta" binding:"required"`
	MovementType string `json:"movementType" binding:"required"`
	Reason       string `json:"reason"`
	Reference    string `json:"reference"`
}

// MovementListQuery contains movement history filter parameters.
type MovementListQuery struct {
	PaginationRequest
	ProductID    string     `form:"productId"`
	MovementType string     `form:"movementType"`
	From         *time.Time `form:"from" time_format:"2006-01-02"`
	To           *time.Time `form:"to" time_format:"2006-01-02"`
}

// ToFilter converts query parameters to a repository filter.
func (q *MovementListQuery) ToFilter() (inventory.MovementFilter, error) {
	q.Defaults()
	f := inventory.DefaultMovementFilter()
	f.Limit = q.Limit
	f.Offset = q.Offset
	f.From = q.From
	f.To = q.To

	if q.ProductID != "" {
		pid, err := id.Parse(q.ProductID)
		if err != nil {
			return f, err
		}
		f.ProductID = &pid
	}
	if q.MovementType != "" {
		mt := inventory.MovementType(q.MovementType)
		f.MovementType = &mt
	}
	return f, nil
}
