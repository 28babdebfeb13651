package order

import (
	"context"
	"fmt"
	"time"

	"minimart/internal/core/appctx"
	"minimart/internal/core/apperror"
	"minimart/internal/core/id"
	"minimart/internal/core/tx"
	"minimart/internal/core/types"
	"minimart/internal/domain/audit"
	"minimart/internal/domain/catalog/product"
	"minimart/internal/domain/inventory"
	"minimart/internal/domain/sales"
	"minimart/internal/domain/views"
	"minimart/pkg/logger"
)

// OrderPrefix numbers wholesale orders: SO-2026-00001.
const OrderPrefix = "SO"

// ProductLookup is the slice of the catalog the lifecycle needs:
// wholesale prices at creation and current cost at completion.
type ProductLookup interface {
	GetByIDs(ctx context.Context, ids []id.ID) (map[id.ID]*product.Product, error)
}

// Numbering issues the next document number in sequence.
type Numbering interface {
	Next(ctx context.Context, prefix string) (string, error)
}

// Service is the order lifecycle engine. Every mutating operation runs
// its stock and order writes in one database transaction; audit entries
// and view invalidations happen after commit.
type Service struct {
	repo      Repository
	inv       *inventory.Service
	salesRepo sales.Repository
	products  ProductLookup
	numbering Numbering
	auditor   *audit.Service
	views     views.Invalidator
	txManager tx.Manager
}

func NewService(
	repo Repository,
	inv *inventory.Service,
	salesRepo sales.Repository,
	products ProductLookup,
	numbering Numbering,
	auditor *audit.Service,
	invalidator views.Invalidator,
	txManager tx.Manager,
) *Service {
	return &Service{
		repo:      repo,
		inv:       inv,
		salesRepo: salesRepo,
		products:  products,
		numbering: numbering,
		auditor:   auditor,
		views:     invalidator,
		txManager: txManager,
	}
}

// CreateItem is one requested line of a new order.
type CreateItem struct {
	ProductID id.ID
	Quantity  int64
}

// CreateRequest is a vendor's order submission.
type CreateRequest struct {
	CustomerID id.ID
	Items      []CreateItem
}

// Create submits a wholesale order: prices every line at the current
// wholesale price, reserves stock for each, and writes the order in
// PENDING. Reservation and creation commit together, so a failed
// reservation on any line leaves no stock allocated.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Order, error) {
	if id.IsNil(req.CustomerID) {
		return nil, apperror.NewValidation("order requires a customer")
	}
	if len(req.Items) == 0 {
		return nil, apperror.NewValidation("order requires at least one item")
	}

	var created *Order
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		productIDs := make([]id.ID, 0, len(req.Items))
		for _, item := range req.Items {
			productIDs = append(productIDs, item.ProductID)
		}
		catalog, err := s.products.GetByIDs(ctx, productIDs)
		if err != nil {
			return err
		}

		orderNo, err := s.numbering.Next(ctx, OrderPrefix)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		o := &Order{
			ID:         id.New(),
			OrderNo:    orderNo,
			CustomerID: req.CustomerID,
			OrderDate:  now,
			Status:     StatusPending,
			UpdatedAt:  now,
		}

		for _, item := range req.Items {
			p, ok := catalog[item.ProductID]
			if !ok {
				return apperror.NewNotFound("product", item.ProductID)
			}
			if !p.Active {
				return apperror.NewValidation("product is discontinued: " + p.Name)
			}

			if err := s.inv.Reserve(ctx, p.ID, p.Name, item.Quantity); err != nil {
				return err
			}

			o.Items = append(o.Items, Item{
				ID:          id.New(),
				OrderID:     o.ID,
				ProductID:   p.ID,
				ProductName: p.Name,
				Quantity:    item.Quantity,
				Price:       p.WholesalePrice,
			})
		}
		o.RecalculateTotal()

		if err := o.Validate(); err != nil {
			return err
		}
		if err := s.repo.Create(ctx, o); err != nil {
			return err
		}
		created = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.views.Invalidate(ctx, views.ActiveOrders, views.Inventory)
	logger.Info(ctx, "order created",
		"order_no", created.OrderNo, "customer_id", created.CustomerID, "total", created.TotalAmount)
	return created, nil
}

// GetByID loads an order with its items.
func (s *Service) GetByID(ctx context.Context, orderID id.ID) (*Order, error) {
	return s.repo.GetByID(ctx, orderID)
}

// ListActive returns the packing board, each bucket oldest first.
func (s *Service) ListActive(ctx context.Context) (*ActiveOrders, error) {
	return s.repo.ListActive(ctx)
}

// ListByCustomer returns a customer's order history.
func (s *Service) ListByCustomer(ctx context.Context, customerID id.ID, limit, offset int) ([]Order, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.repo.ListByCustomer(ctx, customerID, limit, offset)
}

// UpdateStatus moves an order along the forward packing path
// (PENDING to PREPARING to READY). Completion and cancellation are
// rejected here: they carry side effects and have dedicated operations.
func (s *Service) UpdateStatus(ctx context.Context, orderID id.ID, newStatus Status) error {
	if !IsValidStatus(newStatus) {
		return apperror.NewValidation("unknown order status: " + string(newStatus))
	}
	if newStatus == StatusCompleted {
		return apperror.NewInvalidState("completion requires payment, use the complete-payment operation")
	}
	if newStatus == StatusCancelled {
		return apperror.NewInvalidState("cancellation releases stock, use the cancel operation")
	}

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		o, err := s.repo.GetByIDForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if !CanTransition(o.Status, newStatus) {
			return apperror.NewInvalidTransition(string(o.Status), string(newStatus))
		}
		o.Status = newStatus
		o.UpdatedAt = time.Now().UTC()
		return s.repo.UpdateHeader(ctx, o)
	})
	if err != nil {
		return err
	}

	s.views.Invalidate(ctx, views.ActiveOrders)
	logger.Info(ctx, "order status updated", "order_id", orderID, "status", newStatus)
	return nil
}

// CancelResult tells the caller whom to notify.
type CancelResult struct {
	CustomerID id.ID `json:"customerId"`
}

// Cancel aborts a non-terminal order: releases every line's reservation
// and sets the status, in one transaction. A second cancel finds the
// order terminal and fails without touching stock, so reservations are
// released exactly once.
func (s *Service) Cancel(ctx context.Context, orderID id.ID, reason string) (*CancelResult, error) {
	var cancelled *Order
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		o, err := s.repo.GetByIDForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if o.Status.IsTerminal() {
			return apperror.NewInvalidState(
				fmt.Sprintf("order %s is already %s", o.OrderNo, o.Status))
		}

		for _, item := range o.Items {
			if err := s.inv.Release(ctx, item.ProductID, item.Quantity); err != nil {
				return err
			}
		}

		o.Status = StatusCancelled
		o.CancelReason = reason
		o.UpdatedAt = time.Now().UTC()
		if err := s.repo.UpdateHeader(ctx, o); err != nil {
			return err
		}
		cancelled = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.auditor.Record(ctx, "order", cancelled.ID, audit.OrderCancelMeta{
		OrderID:     cancelled.ID,
		OrderNo:     cancelled.OrderNo,
		CustomerID:  cancelled.CustomerID,
		TotalAmount: cancelled.TotalAmount,
		Reason:      reason,
	})
	s.views.Invalidate(ctx, views.ActiveOrders, views.Inventory)

	logger.Info(ctx, "order cancelled", "order_no", cancelled.OrderNo, "reason", reason)
	return &CancelResult{CustomerID: cancelled.CustomerID}, nil
}

// ShortageRequest marks part or all of an order line unfulfillable
// while packing.
type ShortageRequest struct {
	OrderID             id.ID
	OrderItemID         id.ID
	QuantityUnavailable int64
	Reason              string
	Notes               string
}

// ShortageResult tells the caller what happened to the line and the
// order.
type ShortageResult struct {
	ProductName    string      `json:"productName"`
	NewTotal       types.Money `json:"newTotal"`
	ItemRemoved    bool        `json:"itemRemoved"`
	OrderCancelled bool        `json:"orderCancelled"`
}

// shortageMovementType maps the packer's reason to a ledger movement
// kind. Damage and internal use stay distinguishable from generic
// packing shortages so shrinkage reports break down correctly.
func shortageMovementType(reason string) inventory.MovementType {
	switch reason {
	case "DAMAGE":
		return inventory.MovementDamage
	case "INTERNAL_USE":
		return inventory.MovementInternalUse
	default:
		return inventory.MovementOrderShortage
	}
}

// MarkItemUnavailable handles a shortage discovered while packing:
// writes the shrinkage to the stock ledger, consumes the missing units
// (they were allocated to this order), shrinks or removes the line, and
// recomputes the total. Removing the last line cancels the order. Only
// PENDING and PREPARING orders can report shortages.
func (s *Service) MarkItemUnavailable(ctx context.Context, req ShortageRequest) (*ShortageResult, error) {
	user := appctx.GetUser(ctx)
	if user == nil {
		return nil, apperror.NewUnauthorized("shortage handling requires an authenticated user")
	}

	var (
		result  ShortageResult
		handled *Order
	)
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		o, err := s.repo.GetByIDForUpdate(ctx, req.OrderID)
		if err != nil {
			return err
		}
		if o.Status != StatusPending && o.Status != StatusPreparing {
			return apperror.NewInvalidState(
				fmt.Sprintf("cannot report shortages on a %s order", o.Status))
		}

		item := o.FindItem(req.OrderItemID)
		if item == nil {
			return apperror.NewNotFound("order item", req.OrderItemID)
		}
		if req.QuantityUnavailable <= 0 || req.QuantityUnavailable > item.Quantity {
			return apperror.NewValidation(fmt.Sprintf(
				"quantity unavailable must be between 1 and %d", item.Quantity))
		}

		reason := req.Reason
		if req.Notes != "" {
			reason = reason + ": " + req.Notes
		}
		if err := s.inv.Consume(ctx, inventory.ConsumeRequest{
			ProductID:    item.ProductID,
			ProductName:  item.ProductName,
			Quantity:     req.QuantityUnavailable,
			MovementType: shortageMovementType(req.Reason),
			Reason:       reason,
			Reference:    o.OrderNo,
			UserID:       user.UserID,
		}); err != nil {
			return err
		}

		result.ProductName = item.ProductName
		result.ItemRemoved = req.QuantityUnavailable == item.Quantity

		if result.ItemRemoved {
			if err := s.repo.DeleteItem(ctx, item.ID); err != nil {
				return err
			}
			o.RemoveItem(item.ID)
		} else {
			item.Quantity -= req.QuantityUnavailable
			if err := s.repo.UpdateItemQuantity(ctx, item.ID, item.Quantity); err != nil {
				return err
			}
		}

		o.RecalculateTotal()
		if o.TotalAmount.IsNegative() {
			o.TotalAmount = types.Zero()
		}

		if len(o.Items) == 0 {
			o.Status = StatusCancelled
			o.CancelReason = "all items unavailable"
			o.TotalAmount = types.Zero()
			result.OrderCancelled = true
		}
		o.UpdatedAt = time.Now().UTC()
		if err := s.repo.UpdateHeader(ctx, o); err != nil {
			return err
		}

		result.NewTotal = o.TotalAmount
		handled = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.auditor.Record(ctx, "order", handled.ID, audit.OrderShortageMeta{
		OrderID:        handled.ID,
		OrderNo:        handled.OrderNo,
		ProductName:    result.ProductName,
		QuantityShort:  req.QuantityUnavailable,
		Reason:         req.Reason,
		Notes:          req.Notes,
		ItemRemoved:    result.ItemRemoved,
		OrderCancelled: result.OrderCancelled,
	})
	s.views.Invalidate(ctx, views.ActiveOrders, views.Inventory)

	logger.Info(ctx, "order item marked unavailable",
		"order_no", handled.OrderNo,
		"product", result.ProductName,
		"quantity", req.QuantityUnavailable,
		"item_removed", result.ItemRemoved,
		"order_cancelled", result.OrderCancelled,
	)
	return &result, nil
}

// PaymentRequest finalizes a READY order. AmountTendered defaults to
// the order total and Change to zero when nil.
type PaymentRequest struct {
	OrderID          id.ID
	Method           sales.PaymentMethod
	AmountTendered   *types.Money
	Change           *types.Money
	GcashReferenceNo *string
}

// CompletionResult carries the created sale and its printable receipt.
type CompletionResult struct {
	TransactionID id.ID         `json:"transactionId"`
	ReceiptNo     string        `json:"receiptNo"`
	Receipt       sales.Receipt `json:"receipt"`
}

// CompletePayment converts a READY order into a sale: verifies physical
// stock for every line before mutating anything, writes the transaction
// with point-in-time price and cost captures, records the payment,
// consumes the reserved stock, and marks the order COMPLETED. All steps
// commit or roll back together.
func (s *Service) CompletePayment(ctx context.Context, req PaymentRequest) (*CompletionResult, error) {
	user := appctx.GetUser(ctx)
	if user == nil {
		return nil, apperror.NewUnauthorized("payment completion requires an authenticated user")
	}

	var (
		result    CompletionResult
		completed *Order
	)
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		o, err := s.repo.GetByIDForUpdate(ctx, req.OrderID)
		if err != nil {
			return err
		}
		switch o.Status {
		case StatusCompleted:
			return apperror.NewInvalidState("order is already completed")
		case StatusCancelled:
			return apperror.NewInvalidState("cannot complete a cancelled order")
		case StatusReady:
			// proceed
		default:
			return apperror.NewInvalidTransition(string(o.Status), string(StatusCompleted))
		}

		productIDs := make([]id.ID, 0, len(o.Items))
		for _, item := range o.Items {
			productIDs = append(productIDs, item.ProductID)
		}
		stocks, err := s.inv.GetByProducts(ctx, productIDs)
		if err != nil {
			return err
		}
		catalog, err := s.products.GetByIDs(ctx, productIDs)
		if err != nil {
			return err
		}

		// Availability check for every line before any mutation.
		for _, item := range o.Items {
			inv, ok := stocks[item.ProductID]
			if !ok {
				return apperror.NewNotFound("inventory", item.ProductID)
			}
			if inv.CurrentStock < item.Quantity {
				return apperror.NewInsufficientStock(item.ProductName, item.Quantity, inv.CurrentStock)
			}
		}

		receiptNo, err := s.numbering.Next(ctx, sales.ReceiptPrefix)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		sale := &sales.Transaction{
			ID:          id.New(),
			ReceiptNo:   receiptNo,
			OrderID:     &o.ID,
			CustomerID:  &o.CustomerID,
			UserID:      user.UserID,
			TotalAmount: o.TotalAmount,
			Status:      sales.TxCompleted,
			CreatedAt:   now,
		}
		for _, item := range o.Items {
			p, ok := catalog[item.ProductID]
			if !ok {
				return apperror.NewNotFound("product", item.ProductID)
			}
			sale.Items = append(sale.Items, sales.TransactionItem{
				ID:            id.New(),
				TransactionID: sale.ID,
				ProductID:     item.ProductID,
				ProductName:   item.ProductName,
				Quantity:      item.Quantity,
				PriceAtSale:   item.Price,
				CostAtSale:    p.CostPrice,
			})
		}

		tendered := o.TotalAmount
		if req.AmountTendered != nil {
			tendered = *req.AmountTendered
		}
		change := types.Zero()
		if req.Change != nil {
			change = *req.Change
		}
		payment := &sales.Payment{
			ID:               id.New(),
			TransactionID:    sale.ID,
			Method:           req.Method,
			AmountTendered:   tendered,
			Change:           change,
			GcashReferenceNo: req.GcashReferenceNo,
			CreatedAt:        now,
		}
		if err := payment.Validate(); err != nil {
			return err
		}
		sale.Payment = payment

		if err := s.salesRepo.Create(ctx, sale); err != nil {
			return err
		}

		for _, item := range o.Items {
			if err := s.inv.Consume(ctx, inventory.ConsumeRequest{
				ProductID:    item.ProductID,
				ProductName:  item.ProductName,
				Quantity:     item.Quantity,
				MovementType: inventory.MovementSale,
				Reference:    receiptNo,
				UserID:       user.UserID,
			}); err != nil {
				return err
			}
		}

		o.Status = StatusCompleted
		o.UpdatedAt = now
		if err := s.repo.UpdateHeader(ctx, o); err != nil {
			return err
		}

		result = CompletionResult{
			TransactionID: sale.ID,
			ReceiptNo:     receiptNo,
			Receipt:       sales.BuildReceipt(sale),
		}
		completed = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.auditor.Record(ctx, "order", completed.ID, audit.SaleMeta{
		TransactionID: result.TransactionID,
		ReceiptNo:     result.ReceiptNo,
		OrderID:       &completed.ID,
		TotalAmount:   completed.TotalAmount,
		PaymentMethod: string(req.Method),
		ItemCount:     len(result.Receipt.Items),
	})
	s.views.Invalidate(ctx, views.ActiveOrders, views.Inventory, views.Sales)

	logger.Info(ctx, "order completed",
		"order_no", completed.OrderNo,
		"receipt_no", result.ReceiptNo,
		"total", completed.TotalAmount,
	)
	return &result, nil
}

// ExpiryResult reports one sweep run.
type ExpiryResult struct {
	CancelledCount    int     `json:"cancelledCount"`
	CancelledOrderIDs []id.ID `json:"cancelledOrderIds"`
}

// AutoCancelExpired cancels non-terminal orders older than the
// threshold, releasing their reservations. Each order is handled in its
// own transaction: the header lock plus the terminal-status recheck
// make the sweep safe against a concurrent manual cancel, and stock is
// never released twice. Per-order failures are logged and skipped so
// one bad order cannot stall the sweep.
func (s *Service) AutoCancelExpired(ctx context.Context, hoursThreshold int) (*ExpiryResult, error) {
	if hoursThreshold <= 0 {
		return nil, apperror.NewValidation("expiry threshold must be positive")
	}

	cutoff := time.Now().UTC().Add(-time.Duration(hoursThreshold) * time.Hour)
	expiredIDs, err := s.repo.ListExpiredIDs(ctx, cutoff)
	if err != nil {
		return nil, err
	}

	result := &ExpiryResult{}
	for _, orderID := range expiredIDs {
		var cancelled *Order
		err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
			o, err := s.repo.GetByIDForUpdate(ctx, orderID)
			if err != nil {
				return err
			}
			// A manual cancel or completion may have won the race since
			// the listing query.
			if o.Status.IsTerminal() {
				return nil
			}

			for _, item := range o.Items {
				if err := s.inv.Release(ctx, item.ProductID, item.Quantity); err != nil {
					return err
				}
			}

			o.Status = StatusCancelled
			o.CancelReason = fmt.Sprintf("auto-cancelled after %d hours", hoursThreshold)
			o.UpdatedAt = time.Now().UTC()
			if err := s.repo.UpdateHeader(ctx, o); err != nil {
				return err
			}
			cancelled = o
			return nil
		})
		if err != nil {
			logger.Error(ctx, "expiry sweep failed for order", "order_id", orderID, "error", err)
			continue
		}
		if cancelled == nil {
			continue
		}

		s.auditor.RecordSystem(ctx, "order", cancelled.ID, audit.OrderAutoCancelMeta{
			OrderID:        cancelled.ID,
			OrderNo:        cancelled.OrderNo,
			CustomerID:     cancelled.CustomerID,
			TotalAmount:    cancelled.TotalAmount,
			HoursThreshold: hoursThreshold,
		})
		result.CancelledCount++
		result.CancelledOrderIDs = append(result.CancelledOrderIDs, cancelled.ID)
	}

	if result.CancelledCount > 0 {
		s.views.Invalidate(ctx, views.ActiveOrders, views.Inventory)
		logger.Info(ctx, "expiry sweep cancelled orders",
			"count", result.CancelledCount, "threshold_hours", hoursThreshold)
	}
	return result, nil
}
