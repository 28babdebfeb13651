// Package product provides the product catalog.
// A product carries three prices: retail (POS), wholesale (vendor
// portal) and cost (margin reporting).
package product

import (
	"context"
	"strings"

	"minimart/internal/core/apperror"
	"minimart/internal/core/entity"
	"minimart/internal/core/types"
)

// Category groups products for the back-office views.
// Free-form, but normalized to upper snake case (SODA, SNACKS, ...).
type Category = string

// Product represents a catalog entry.
type Product struct {
	entity.Base

	Name     string  `db:"name" json:"name"`
	Barcode  *string `db:"barcode" json:"barcode,omitempty"`
	Category string  `db:"category" json:"category"`

	RetailPrice    types.Money `db:"retail_price" json:"retailPrice"`
	WholesalePrice types.Money `db:"wholesale_price" json:"wholesalePrice"`
	CostPrice      types.Money `db:"cost_price" json:"costPrice"`

	// WholesaleOnly items are sold by the case through the vendor
	// portal and never appear on the POS terminal.
	WholesaleOnly bool `db:"wholesale_only" json:"wholesaleOnly"`

	Active bool `db:"active" json:"active"`
}

// New creates a new Product with required fields.
func New(name, category string) *Product {
	return &Product{
		Base:     entity.NewBase(),
		Name:     name,
		Category: normalizeCategory(category),
		Active:   true,
	}
}

// Validate implements entity.Validatable.
func (p *Product) Validate(ctx context.Context) error {
	if strings.TrimSpace(p.Name) == "" {
		return apperror.NewValidation("product name is required").
			WithDetail("field", "name")
	}

	if p.Category == "" {
		return apperror.NewValidation("category is required").
			WithDetail("field", "category")
	}

	if p.RetailPrice.IsNegative() || p.WholesalePrice.IsNegative() || p.CostPrice.IsNegative() {
		return apperror.NewValidation("prices cannot be negative").
			WithDetail("field", "prices")
	}

	if p.Barcode != nil && strings.TrimSpace(*p.Barcode) == "" {
		return apperror.NewValidation("barcode cannot be blank").
			WithDetail("field", "barcode")
	}

	return nil
}

func normalizeCategory(c string) string {
	return strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(c), " ", "_"))
}
