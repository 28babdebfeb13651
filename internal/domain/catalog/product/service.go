package product

import (
	"context"
	"fmt"

	"minimart/internal/core/apperror"
	"minimart/internal/core/id"
	"minimart/internal/core/tx"
	"minimart/pkg/logger"
)

// Service provides business operations for the product catalog.
type Service struct {
	repo      Repository
	txManager tx.Manager
}

// NewService creates a new product service.
func NewService(repo Repository, txManager tx.Manager) *Service {
	return &Service{
		repo:      repo,
		txManager: txManager,
	}
}

// Create creates a new catalog entry.
func (s *Service) Create(ctx context.Context, p *Product) error {
	if err := p.Validate(ctx); err != nil {
		return err
	}

	if p.Barcode != nil {
		exists, err := s.repo.ExistsByBarcode(ctx, *p.Barcode, p.ID)
		if err != nil {
			return fmt.Errorf("check barcode: %w", err)
		}
		if exists {
			return apperror.NewDuplicate("product", "barcode", *p.Barcode)
		}
	}

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.repo.Create(ctx, p)
	})
	if err != nil {
		return err
	}

	logger.Info(ctx, "product created", "id", p.ID, "name", p.Name)
	return nil
}

// GetByID retrieves a product by ID.
func (s *Service) GetByID(ctx context.Context, productID id.ID) (*Product, error) {
	return s.repo.GetByID(ctx, productID)
}

// FindByBarcode retrieves a product by barcode (POS scan path).
func (s *Service) FindByBarcode(ctx context.Context, barcode string) (*Product, error) {
	return s.repo.FindByBarcode(ctx, barcode)
}

// Update updates an existing product.
func (s *Service) Update(ctx context.Context, p *Product) error {
	if err := p.Validate(ctx); err != nil {
		return err
	}

	if p.Barcode != nil {
		exists, err := s.repo.ExistsByBarcode(ctx, *p.Barcode, p.ID)
		if err != nil {
			return fmt.Errorf("check barcode: %w", err)
		}
		if exists {
			return apperror.NewDuplicate("product", "barcode", *p.Barcode)
		}
	}

	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.repo.Update(ctx, p)
	})
}

// Deactivate retires a product from sale without touching history.
func (s *Service) Deactivate(ctx context.Context, productID id.ID) error {
	if _, err := s.repo.GetByID(ctx, productID); err != nil {
		return err
	}
	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.repo.Deactivate(ctx, productID)
	})
}

// List retrieves products with filtering.
func (s *Service) List(ctx context.Context, filter ListFilter) (ListResult, error) {
	return s.repo.List(ctx, filter)
}
