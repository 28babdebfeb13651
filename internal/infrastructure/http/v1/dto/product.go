package dto

import (
	"minimart/internal/core/types"
	"minimart/internal/domain/catalog/product"
)

// CreateProductRequest is the request body for creating a product.
type CreateProductRequest struct {
	Name           string      `json:"name" binding:"required"`
	Barcode        *string     `json:"barcode"`
	Category       string      `json:"category" binding:"required"`
	RetailPrice    types.Money `json:"retailPrice"`
	WholesalePrice types.Money `json:"wholesalePrice"`
	CostPrice      types.Money `json:"costPrice"`
	WholesaleOnly  bool        `json:"wholesaleOnly"`
}

// ToEntity converts DTO to domain entity.
func (r *CreateProductRequest) ToEntity() *product.Product {
	p := product.New(r.Name, r.Category)
	p.Barcode = r.Barcode
	p.RetailPrice = r.RetailPrice
	p.WholesalePrice = r.WholesalePrice
	p.CostPrice = r.CostPrice
	p.WholesaleOnly = r.WholesaleOnly
	return p
}

// UpdateProductRequest is the request body for updating a product.
type UpdateProductRequest struct {
	Name           string      `json:"name" binding:"required"`
	Barcode        *string     `json:"barcode"`
	Category       string      `json:"category" binding:"required"`
	RetailPrice    types.Money `json:"retailPrice"`
	WholesalePrice types.Money `json:"wholesalePrice"`
	CostPrice      types.Money `json:"costPrice"`
	WholesaleOnly  bool        `json:"wholesaleOnly"`
	Active         *bool       `json:"active"`
	Version        int         `json:"version" binding:"required,min=1"`
}

// ApplyTo applies update DTO to existing entity.
func (r *UpdateProductRequest) ApplyTo(p *product.Product) {
	p.Name = r.Name
	p.Barcode = r.Barcode
	p.Category = r.Category
	p.RetailPrice = r.RetailPrice
	p.WholesalePrice = r.WholesalePrice
	p.CostPrice = r.CostPrice
	p.WholesaleOnly = r.WholesaleOnly
	if r.Active != nil {
		p.Active = *r.Active
	}
	p.Version = r.Version
}

// ProductListQuery contains product list filter parameters.
type ProductListQuery struct {
	PaginationRequest
	Search        string `form:"search"`
	Category      string `form:"category"`
	ActiveOnly    bool   `form:"activeOnly"`
	WholesaleOnly *bool  `form:"wholesaleOnly"`
	OrderBy       string `form:"orderBy"`
}

// ToFilter converts query parameters to a repository filter.
func (q *ProductListQuery) ToFilter() product.ListFilter {
	q.Defaults()
	f := product.DefaultListFilter()
	f.Search = q.Search
	f.Category = q.Category
	f.ActiveOnly = q.ActiveOnly
	f.WholesaleOnly = q.WholesaleOnly
	if q.OrderBy != "" {
		f.OrderBy = q.OrderBy
	}
	f.Limit = q.Limit
	f.Offset = q.Offset
	return f
}
