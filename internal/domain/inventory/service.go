package inventory

import (
	"context"
	"fmt"
	"time"

	"minimart/internal/core/apperror"
	"minimart/internal/core/id"
	"minimart/pkg/logger"
)

// Service implements stock counter mutations. All mutating methods
// expect to run inside a transaction opened by the caller: the order
// lifecycle reserves and consumes stock atomically with its own writes,
// so transaction boundaries belong to the calling service.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// ConsumeRequest describes a physical stock decrease.
type ConsumeRequest struct {
	ProductID    id.ID
	ProductName  string // used only for error messages
	Quantity     int64
	MovementType MovementType
	Reason       string
	Reference    string
	UserID       string
}

// AdjustRequest describes a manual counter correction, positive or
// negative. Restocks arrive through this path too.
type AdjustRequest struct {
	ProductID    id.ID
	ProductName  string
	Delta        int64
	MovementType MovementType
	Reason       string
	Reference    string
	UserID       string
}

// EnsureExists creates a zeroed inventory row for a product if none
// exists yet. Called when a product is registered in the catalog.
func (s *Service) EnsureExists(ctx context.Context, productID id.ID) error {
	_, err := s.repo.GetByProduct(ctx, productID)
	if err == nil {
		return nil
	}
	if !apperror.IsNotFound(err) {
		return err
	}
	inv := &Inventory{
		ID:        id.New(),
		ProductID: productID,
		UpdatedAt: time.Now().UTC(),
	}
	return s.repo.Create(ctx, inv)
}

// Reserve increases allocated stock for a product after verifying
// availability under a row lock. Reservation moves no physical units,
// so no ledger row is written.
func (s *Service) Reserve(ctx context.Context, productID id.ID, productName string, quantity int64) error {
	if quantity <= 0 {
		return apperror.NewValidation("quantity must be positive")
	}

	inv, err := s.repo.GetByProductForUpdate(ctx, productID)
	if err != nil {
		return fmt.Errorf("lock inventory: %w", err)
	}

	if inv.Available() < quantity {
		return apperror.NewInsufficientStock(productName, quantity, inv.Available())
	}

	inv.AllocatedStock += quantity
	inv.UpdatedAt = time.Now().UTC()
	return s.repo.UpdateCounters(ctx, inv)
}

// Release decreases allocated stock. Quantities released above the
// current allocation clamp to zero rather than fail: a release is a
// cleanup step and must never block a cancellation.
func (s *Service) Release(ctx context.Context, productID id.ID, quantity int64) error {
	if quantity <= 0 {
		return apperror.NewValidation("quantity must be positive")
	}

	inv, err := s.repo.GetByProductForUpdate(ctx, productID)
	if err != nil {
		return fmt.Errorf("lock inventory: %w", err)
	}

	if quantity > inv.AllocatedStock {
		logger.Warn(ctx, "release exceeds allocation, clamping",
			"product_id", productID, "requested", quantity, "allocated", inv.AllocatedStock)
		quantity = inv.AllocatedStock
	}

	inv.AllocatedStock -= quantity
	inv.UpdatedAt = time.Now().UTC()
	return s.repo.UpdateCounters(ctx, inv)
}

// Consume decreases both counters together: units leave the building
// and their reservation with them. Used at payment completion and for
// order shortages, where the missing units were allocated.
func (s *Service) Consume(ctx context.Context, req ConsumeRequest) error {
	if req.Quantity <= 0 {
		return apperror.NewValidation("quantity must be positive")
	}
	if req.UserID == "" {
		return apperror.NewValidation("acting user is required for stock movements")
	}
	if !IsValidMovementType(req.MovementType) {
		return apperror.NewValidation(fmt.Sprintf("unknown movement type: %s", req.MovementType))
	}

	inv, err := s.repo.GetByProductForUpdate(ctx, req.ProductID)
	if err != nil {
		return fmt.Errorf("lock inventory: %w", err)
	}

	if inv.CurrentStock < req.Quantity {
		return apperror.NewInsufficientStock(req.ProductName, req.Quantity, inv.CurrentStock)
	}
	if inv.AllocatedStock < req.Quantity {
		return apperror.NewInvalidState(fmt.Sprintf(
			"cannot consume %d units of %s: only %d allocated",
			req.Quantity, req.ProductName, inv.AllocatedStock))
	}

	movement := NewStockMovement(inv, req.MovementType, -req.Quantity, req.Reason, req.Reference, req.UserID)

	inv.CurrentStock -= req.Quantity
	inv.AllocatedStock -= req.Quantity
	inv.UpdatedAt = time.Now().UTC()

	if err := s.repo.UpdateCounters(ctx, inv); err != nil {
		return fmt.Errorf("update counters: %w", err)
	}
	return s.repo.CreateMovement(ctx, &movement)
}

// Sell decreases current stock for an over-the-counter retail sale.
// Retail units are never allocated, so only the physical counter moves,
// and availability is checked against unallocated stock so reserved
// wholesale units cannot be sold out from under an order.
func (s *Service) Sell(ctx context.Context, productID id.ID, productName string, quantity int64, reference, userID string) error {
	if quantity <= 0 {
		return apperror.NewValidation("quantity must be positive")
	}
	if userID == "" {
		return apperror.NewValidation("acting user is required for stock movements")
	}

	inv, err := s.repo.GetByProductForUpdate(ctx, productID)
	if err != nil {
		return fmt.Errorf("lock inventory: %w", err)
	}

	if inv.Available() < quantity {
		return apperror.NewInsufficientStock(productName, quantity, inv.Available())
	}

	movement := NewStockMovement(inv, MovementSale, -quantity, "", reference, userID)

	inv.CurrentStock -= quantity
	inv.UpdatedAt = time.Now().UTC()

	if err := s.repo.UpdateCounters(ctx, inv); err != nil {
		return fmt.Errorf("update counters: %w", err)
	}
	return s.repo.CreateMovement(ctx, &movement)
}

// Adjust applies a manual correction. Positive deltas are restocks and
// returns; negative deltas are write-offs. A write-off may never dip
// into units reserved for orders.
func (s *Service) Adjust(ctx context.Context, req AdjustRequest) error {
	if req.Delta == 0 {
		return apperror.NewValidation("adjustment delta must be non-zero")
	}
	if req.UserID == "" {
		return apperror.NewValidation("acting user is required for stock movements")
	}
	if !IsValidMovementType(req.MovementType) {
		return apperror.NewValidation(fmt.Sprintf("unknown movement type: %s", req.MovementType))
	}
	if req.Delta < 0 && req.Reason == "" {
		return apperror.NewValidation("a reason is required for stock write-offs")
	}

	inv, err := s.repo.GetByProductForUpdate(ctx, req.ProductID)
	if err != nil {
		return fmt.Errorf("lock inventory: %w", err)
	}

	newStock := inv.CurrentStock + req.Delta
	if newStock < inv.AllocatedStock {
		return apperror.NewInvalidState(fmt.Sprintf(
			"write-off of %d units of %s would leave %d on hand with %d allocated",
			-req.Delta, req.ProductName, newStock, inv.AllocatedStock))
	}

	movement := NewStockMovement(inv, req.MovementType, req.Delta, req.Reason, req.Reference, req.UserID)

	inv.CurrentStock = newStock
	inv.UpdatedAt = time.Now().UTC()

	if err := s.repo.UpdateCounters(ctx, inv); err != nil {
		return fmt.Errorf("update counters: %w", err)
	}
	if err := s.repo.CreateMovement(ctx, &movement); err != nil {
		return fmt.Errorf("record movement: %w", err)
	}

	logger.Info(ctx, "stock adjusted",
		"product_id", req.ProductID,
		"delta", req.Delta,
		"movement_type", req.MovementType,
		"new_stock", newStock,
	)
	return nil
}

// GetByProduct returns the inventory row for a product.
func (s *Service) GetByProduct(ctx context.Context, productID id.ID) (*Inventory, error) {
	return s.repo.GetByProduct(ctx, productID)
}

// GetByProducts returns inventory rows for a batch of products.
func (s *Service) GetByProducts(ctx context.Context, productIDs []id.ID) (map[id.ID]*Inventory, error) {
	return s.repo.GetByProducts(ctx, productIDs)
}

// Movements returns the ledger history, newest first.
func (s *Service) Movements(ctx context.Context, filter MovementFilter) ([]StockMovement, error) {
	if filter.Limit <= 0 {
		filter.Limit = DefaultMovementFilter().Limit
	}
	return s.repo.ListMovements(ctx, filter)
}

// LowStock returns products whose available stock is at or below the
// threshold.
func (s *Service) LowStock(ctx context.Context, threshold int64) ([]LowStockItem, error) {
	if threshold < 0 {
		threshold = 0
	}
	return s.repo.ListLowStock(ctx, threshold)
}
