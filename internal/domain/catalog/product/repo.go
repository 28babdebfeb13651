package product

import (
	"context"

	"minimart/internal/core/id"
)

// ListFilter contains filtering options for product listings.
type ListFilter struct {
	Search        string
	Category      string
	ActiveOnly    bool
	WholesaleOnly *bool

	// OrderBy specifies sorting (e.g., "name", "-created_at")
	OrderBy string

	Limit  int
	Offset int
}

// DefaultListFilter returns sensible defaults.
func DefaultListFilter() ListFilter {
	return ListFilter{
		Limit:   50,
		OrderBy: "name",
	}
}

// ListResult contains paginated results.
type ListResult struct {
	Items      []*Product `json:"items"`
	TotalCount int64      `json:"totalCount"`
	Limit      int        `json:"limit"`
	Offset     int        `json:"offset"`
}

// Repository defines the interface for product persistence.
type Repository interface {
	Create(ctx context.Context, p *Product) error
	GetByID(ctx context.Context, productID id.ID) (*Product, error)
	GetByIDs(ctx context.Context, productIDs []id.ID) (map[id.ID]*Product, error)

	// FindByBarcode retrieves a product by barcode (POS scan path).
	FindByBarcode(ctx context.Context, barcode string) (*Product, error)

	// Update modifies an existing product (with optimistic locking).
	Update(ctx context.Context, p *Product) error

	// Deactivate soft-retires a product; history stays intact.
	Deactivate(ctx context.Context, productID id.ID) error

	List(ctx context.Context, filter ListFilter) (ListResult, error)
	ExistsByBarcode(ctx context.Context, barcode string, exceptID id.ID) (bool, error)
}
