package sales

import (
	"context"
	"time"

	"minimart/internal/core/appctx"
	"minimart/internal/core/apperror"
	"minimart/internal/core/id"
	"minimart/internal/core/tx"
	"minimart/internal/core/types"
	"minimart/internal/domain/audit"
	"minimart/internal/domain/catalog/product"
	"minimart/internal/domain/inventory"
	"minimart/internal/domain/views"
	"minimart/pkg/logger"
)

// ReceiptPrefix numbers over-the-counter receipts: OR-2026-00001.
const ReceiptPrefix = "OR"

// ProductLookup is the slice of the catalog the checkout needs.
type ProductLookup interface {
	GetByIDs(ctx context.Context, ids []id.ID) (map[id.ID]*product.Product, error)
}

// Numbering issues the next receipt number in sequence.
type Numbering interface {
	Next(ctx context.Context, prefix string) (string, error)
}

// Service records retail checkouts and serves the sales read side.
// Wholesale completions are written by the order lifecycle through the
// same Repository; this service owns the cashier path.
type Service struct {
	repo      Repository
	products  ProductLookup
	inv       *inventory.Service
	numbering Numbering
	auditor   *audit.Service
	views     views.Invalidator
	txManager tx.Manager
}

func NewService(
	repo Repository,
	products ProductLookup,
	inv *inventory.Service,
	numbering Numbering,
	auditor *audit.Service,
	invalidator views.Invalidator,
	txManager tx.Manager,
) *Service {
	return &Service{
		repo:      repo,
		products:  products,
		inv:       inv,
		numbering: numbering,
		auditor:   auditor,
		views:     invalidator,
		txManager: txManager,
	}
}

// CheckoutItem is one scanned line at the register.
type CheckoutItem struct {
	ProductID id.ID
	Quantity  int64
}

// CheckoutRequest is a cashier sale. AmountTendered zero means exact
// payment: it defaults to the computed total with zero change.
type CheckoutRequest struct {
	Items            []CheckoutItem
	PaymentMethod    PaymentMethod
	AmountTendered   types.Money
	GcashReferenceNo *string
}

// Checkout rings up a retail sale: prices items at their current retail
// price, decrements stock, and writes the transaction with its payment,
// all in one database transaction.
func (s *Service) Checkout(ctx context.Context, req CheckoutRequest) (*Receipt, error) {
	user := appctx.GetUser(ctx)
	if user == nil {
		return nil, apperror.NewUnauthorized("checkout requires an authenticated cashier")
	}
	if len(req.Items) == 0 {
		return nil, apperror.NewValidation("checkout requires at least one item")
	}
	for _, item := range req.Items {
		if item.Quantity <= 0 {
			return nil, apperror.NewValidation("item quantity must be positive")
		}
	}

	var receipt *Receipt
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		productIDs := make([]id.ID, 0, len(req.Items))
		for _, item := range req.Items {
			productIDs = append(productIDs, item.ProductID)
		}
		catalog, err := s.products.GetByIDs(ctx, productIDs)
		if err != nil {
			return err
		}

		receiptNo, err := s.numbering.Next(ctx, ReceiptPrefix)
		if err != nil {
			return err
		}

		sale := &Transaction{
			ID:        id.New(),
			ReceiptNo: receiptNo,
			UserID:    user.UserID,
			Status:    TxCompleted,
			CreatedAt: time.Now().UTC(),
		}

		total := types.Zero()
		for _, item := range req.Items {
			p, ok := catalog[item.ProductID]
			if !ok {
				return apperror.NewNotFound("product", item.ProductID)
			}
			if !p.Active {
				return apperror.NewValidation("product is discontinued: " + p.Name)
			}
			if p.WholesaleOnly {
				return apperror.NewValidation("product is wholesale only: " + p.Name)
			}

			if err := s.inv.Sell(ctx, p.ID, p.Name, item.Quantity, receiptNo, user.UserID); err != nil {
				return err
			}

			line := TransactionItem{
				ID:            id.New(),
				TransactionID: sale.ID,
				ProductID:     p.ID,
				ProductName:   p.Name,
				Quantity:      item.Quantity,
				PriceAtSale:   p.RetailPrice,
				CostAtSale:    p.CostPrice,
			}
			sale.Items = append(sale.Items, line)
			total = total.Add(line.Subtotal())
		}
		sale.TotalAmount = total

		tendered := req.AmountTendered
		change := types.Zero()
		if tendered.IsZero() {
			tendered = total
		} else {
			change = tendered.Sub(total)
			if change.IsNegative() {
				return apperror.NewValidation("amount tendered is less than the total")
			}
		}

		payment := &Payment{
			ID:               id.New(),
			TransactionID:    sale.ID,
			Method:           req.PaymentMethod,
			AmountTendered:   tendered,
			Change:           change,
			GcashReferenceNo: req.GcashReferenceNo,
			CreatedAt:        sale.CreatedAt,
		}
		if err := payment.Validate(); err != nil {
			return err
		}
		sale.Payment = payment

		if err := s.repo.Create(ctx, sale); err != nil {
			return err
		}

		r := BuildReceipt(sale)
		receipt = &r
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.auditor.Record(ctx, "transaction", receipt.TransactionID, audit.SaleMeta{
		TransactionID: receipt.TransactionID,
		ReceiptNo:     receipt.ReceiptNo,
		TotalAmount:   receipt.TotalAmount,
		PaymentMethod: string(receipt.PaymentMethod),
		ItemCount:     len(receipt.Items),
	})
	s.views.Invalidate(ctx, views.Inventory, views.Sales)

	logger.Info(ctx, "retail sale completed",
		"receipt_no", receipt.ReceiptNo,
		"total", receipt.TotalAmount,
		"items", len(receipt.Items),
	)
	return receipt, nil
}

// GetByID returns one transaction with items and payment.
func (s *Service) GetByID(ctx context.Context, txID id.ID) (*Transaction, error) {
	return s.repo.GetByID(ctx, txID)
}

// GetByReceiptNo returns a transaction looked up by receipt number.
func (s *Service) GetByReceiptNo(ctx context.Context, receiptNo string) (*Transaction, error) {
	return s.repo.GetByReceiptNo(ctx, receiptNo)
}

// List returns transactions newest first.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Transaction, error) {
	if filter.Limit <= 0 {
		filter.Limit = 50
	}
	return s.repo.List(ctx, filter)
}

// SummarizeDaily returns per-day gross sales, cost, and profit.
func (s *Service) SummarizeDaily(ctx context.Context, from, to time.Time) ([]DailySummary, error) {
	if to.Before(from) {
		return nil, apperror.NewValidation("report range end precedes start")
	}
	return s.repo.SummarizeDaily(ctx, from, to)
}
