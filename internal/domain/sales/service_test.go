package sales

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"minimart/internal/core/appctx"
	"minimart/internal/core/apperror"
	"minimart/internal/core/id"
	"minimart/internal/core/types"
	"minimart/internal/domain/audit"
	"minimart/internal/domain/catalog/product"
	"minimart/internal/domain/inventory"
	"minimart/internal/domain/views"
)

type passthroughTx struct{}

func (passthroughTx) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakeSalesRepo struct {
	created []*Transaction
}

func (f *fakeSalesRepo) Create(_ context.Context, t *Transaction) error {
	f.created = append(f.created, t)
	return nil
}

func (f *fakeSalesRepo) GetByID(_ context.Context, txID id.ID) (*Transaction, error) {
	for _, t := range f.created {
		if t.ID == txID {
			return t, nil
		}
	}
	return nil, apperror.NewNotFound("transaction", txID)
}

func (f *fakeSalesRepo) GetByReceiptNo(_ context.Context, receiptNo string) (*Transaction, error) {
	for _, t := range f.created {
		if t.ReceiptNo == receiptNo {
			return t, nil
		}
	}
	return nil, apperror.NewNotFound("transaction", receiptNo)
}

func (f *fakeSalesRepo) List(_ context.Context, _ ListFilter) ([]Transaction, error) {
	var out []Transaction
	for _, t := range f.created {
		out = append(out, *t)
	}
	return out, nil
}

func (f *fakeSalesRepo) SummarizeDaily(_ context.Context, _, _ time.Time) ([]DailySummary, error) {
	return nil, nil
}

type fakeStockRepo struct {
	rows      map[id.ID]*inventory.Inventory
	movements []inventory.StockMovement
}

func newFakeStockRepo() *fakeStockRepo {
	return &fakeStockRepo{rows: make(map[id.ID]*inventory.Inventory)}
}

func (f *fakeStockRepo) seed(productID id.ID, current, allocated int64) {
	f.rows[productID] = &inventory.Inventory{
		ID:             id.New(),
		ProductID:      productID,
		CurrentStock:   current,
		AllocatedStock: allocated,
	}
}

func (f *fakeStockRepo) GetByProduct(_ context.Context, productID id.ID) (*inventory.Inventory, error) {
	inv, ok := f.rows[productID]
	if !ok {
		return nil, apperror.NewNotFound("inventory", productID)
	}
	cp := *inv
	return &cp, nil
}

func (f *fakeStockRepo) GetByProductForUpdate(ctx context.Context, productID id.ID) (*inventory.Inventory, error) {
	return f.GetByProduct(ctx, productID)
}

func (f *fakeStockRepo) GetByProducts(_ context.Context, productIDs []id.ID) (map[id.ID]*inventory.Inventory, error) {
	out := make(map[id.ID]*inventory.Inventory, len(productIDs))
	for _, pid := range productIDs {
		if inv, ok := f.rows[pid]; ok {
			cp := *inv
			out[pid] = &cp
		}
	}
	return out, nil
}

func (f *fakeStockRepo) Create(_ context.Context, inv *inventory.Inventory) error {
	f.rows[inv.ProductID] = inv
	return nil
}

func (f *fakeStockRepo) UpdateCounters(_ context.Context, inv *inventory.Inventory) error {
	cp := *inv
	f.rows[inv.ProductID] = &cp
	return nil
}

func (f *fakeStockRepo) CreateMovement(_ context.Context, m *inventory.StockMovement) error {
	f.movements = append(f.movements, *m)
	return nil
}

func (f *fakeStockRepo) ListMovements(_ context.Context, _ inventory.MovementFilter) ([]inventory.StockMovement, error) {
	return f.movements, nil
}

func (f *fakeStockRepo) ListLowStock(_ context.Context, _ int64) ([]inventory.LowStockItem, error) {
	return nil, nil
}

type fakeProducts struct {
	byID map[id.ID]*product.Product
}

func (f *fakeProducts) GetByIDs(_ context.Context, ids []id.ID) (map[id.ID]*product.Product, error) {
	out := make(map[id.ID]*product.Product, len(ids))
	for _, pid := range ids {
		if p, ok := f.byID[pid]; ok {
			out[pid] = p
		}
	}
	return out, nil
}

type fakeNumbering struct {
	counts map[string]int
}

func (f *fakeNumbering) Next(_ context.Context, prefix string) (string, error) {
	if f.counts == nil {
		f.counts = make(map[string]int)
	}
	f.counts[prefix]++
	return fmt.Sprintf("%s-2026-%05d", prefix, f.counts[prefix]), nil
}

type fakeAuditStore struct {
	entries []audit.Entry
}

func (f *fakeAuditStore) Append(_ context.Context, e *audit.Entry) error {
	f.entries = append(f.entries, *e)
	return nil
}

func (f *fakeAuditStore) List(_ context.Context, _ audit.ListFilter) ([]audit.Entry, error) {
	return f.entries, nil
}

type fixture struct {
	svc      *Service
	repo     *fakeSalesRepo
	stock    *fakeStockRepo
	products *fakeProducts
	auditLog *fakeAuditStore
}

func newFixture() *fixture {
	f := &fixture{
		repo:     &fakeSalesRepo{},
		stock:    newFakeStockRepo(),
		products: &fakeProducts{byID: make(map[id.ID]*product.Product)},
		auditLog: &fakeAuditStore{},
	}
	f.svc = NewService(
		f.repo,
		f.products,
		inventory.NewService(f.stock),
		&fakeNumbering{},
		audit.NewService(f.auditLog),
		views.Noop{},
		passthroughTx{},
	)
	return f
}

func (f *fixture) addProduct(name string, retail, cost string) *product.Product {
	p := product.New(name, "GROCERY")
	p.RetailPrice = types.MustMoney(retail)
	p.WholesalePrice = types.MustMoney(retail)
	p.CostPrice = types.MustMoney(cost)
	f.products.byID[p.ID] = p
	return p
}

func cashierCtx() context.Context {
	return appctx.WithUser(context.Background(), &appctx.UserContext{
		UserID:   "u-7",
		Username: "mang.tomas",
		Role:     appctx.RoleCashier,
	})
}

func TestCheckout(t *testing.T) {
	ctx := cashierCtx()

	t.Run("rings up a multi-line sale", func(t *testing.T) {
		f := newFixture()
		noodles := f.addProduct("Lucky Me Pancit Canton", "11.00", "8.50")
		juice := f.addProduct("C2 Apple 355ml", "18.00", "14.00")
		f.stock.seed(noodles.ID, 50, 0)
		f.stock.seed(juice.ID, 30, 0)

		receipt, err := f.svc.Checkout(ctx, CheckoutRequest{
			Items: []CheckoutItem{
				{ProductID: noodles.ID, Quantity: 3},
				{ProductID: juice.ID, Quantity: 2},
			},
			PaymentMethod:  PaymentCash,
			AmountTendered: types.MustMoney("100"),
		})
		require.NoError(t, err)

		assert.Equal(t, "OR-2026-00001", receipt.ReceiptNo)
		assert.True(t, receipt.TotalAmount.Equal(types.MustMoney("69")), "got %s", receipt.TotalAmount)
		assert.True(t, receipt.Change.Equal(types.MustMoney("31")), "got %s", receipt.Change)
		require.Len(t, receipt.Items, 2)
		assert.True(t, receipt.Items[0].Subtotal.Equal(types.MustMoney("33")))

		assert.Equal(t, int64(47), f.stock.rows[noodles.ID].CurrentStock)
		assert.Equal(t, int64(28), f.stock.rows[juice.ID].CurrentStock)

		require.Len(t, f.repo.created, 1)
		sale := f.repo.created[0]
		assert.Equal(t, TxCompleted, sale.Status)
		assert.Equal(t, "u-7", sale.UserID)
		assert.True(t, sale.Items[0].CostAtSale.Equal(types.MustMoney("8.50")))
		require.NotNil(t, sale.Payment)
		assert.Equal(t, PaymentCash, sale.Payment.Method)
	})

	t.Run("zero tendered means exact payment", func(t *testing.T) {
		f := newFixture()
		p := f.addProduct("Sky Flakes Crackers", "8.00", "6.00")
		f.stock.seed(p.ID, 10, 0)

		receipt, err := f.svc.Checkout(ctx, CheckoutRequest{
			Items:         []CheckoutItem{{ProductID: p.ID, Quantity: 2}},
			PaymentMethod: PaymentCash,
		})
		require.NoError(t, err)
		assert.True(t, receipt.AmountTendered.Equal(types.MustMoney("16")))
		assert.True(t, receipt.Change.IsZero())
	})

	t.Run("tendered below total is rejected", func(t *testing.T) {
		f := newFixture()
		p := f.addProduct("Argentina Corned Beef", "38.00", "30.00")
		f.stock.seed(p.ID, 10, 0)

		_, err := f.svc.Checkout(ctx, CheckoutRequest{
			Items:          []CheckoutItem{{ProductID: p.ID, Quantity: 2}},
			PaymentMethod:  PaymentCash,
			AmountTendered: types.MustMoney("50"),
		})
		require.Error(t, err)
		assert.True(t, apperror.IsValidation(err))
		assert.Empty(t, f.repo.created)
	})

	t.Run("requires an authenticated cashier", func(t *testing.T) {
		f := newFixture()
		p := f.addProduct("Kopiko Blanca", "10.00", "7.50")
		f.stock.seed(p.ID, 10, 0)

		_, err := f.svc.Checkout(context.Background(), CheckoutRequest{
			Items:         []CheckoutItem{{ProductID: p.ID, Quantity: 1}},
			PaymentMethod: PaymentCash,
		})
		require.Error(t, err)
		assert.True(t, apperror.IsUnauthorized(err))
	})

	t.Run("wholesale-only products cannot be sold at the register", func(t *testing.T) {
		f := newFixture()
		p := f.addProduct("Surf Powder 70g x100 case", "300.00", "250.00")
		p.WholesaleOnly = true
		f.stock.seed(p.ID, 10, 0)

		_, err := f.svc.Checkout(ctx, CheckoutRequest{
			Items:         []CheckoutItem{{ProductID: p.ID, Quantity: 1}},
			PaymentMethod: PaymentCash,
		})
		require.Error(t, err)
		assert.True(t, apperror.IsValidation(err))
		assert.Empty(t, f.repo.created)
	})

	t.Run("discontinued products are rejected", func(t *testing.T) {
		f := newFixture()
		p := f.addProduct("Royal Tru-Orange 240ml", "15.00", "11.00")
		p.Active = false
		f.stock.seed(p.ID, 10, 0)

		_, err := f.svc.Checkout(ctx, CheckoutRequest{
			Items:         []CheckoutItem{{ProductID: p.ID, Quantity: 1}},
			PaymentMethod: PaymentCash,
		})
		require.Error(t, err)
		assert.True(t, apperror.IsValidation(err))
	})

	t.Run("reserved units are not sellable", func(t *testing.T) {
		f := newFixture()
		p := f.addProduct("Bear Brand Powdered Milk", "42.00", "35.00")
		// 8 of 10 units allocated to pending wholesale orders
		f.stock.seed(p.ID, 10, 8)

		_, err := f.svc.Checkout(ctx, CheckoutRequest{
			Items:         []CheckoutItem{{ProductID: p.ID, Quantity: 5}},
			PaymentMethod: PaymentCash,
		})
		require.Error(t, err)
		assert.True(t, apperror.IsInsufficientStock(err))
		assert.Equal(t, int64(10), f.stock.rows[p.ID].CurrentStock)
		assert.Empty(t, f.repo.created)
	})

	t.Run("GCASH payments need a reference number", func(t *testing.T) {
		f := newFixture()
		p := f.addProduct("Coca-Cola Sakto 200ml", "12.00", "9.00")
		f.stock.seed(p.ID, 10, 0)

		_, err := f.svc.Checkout(ctx, CheckoutRequest{
			Items:         []CheckoutItem{{ProductID: p.ID, Quantity: 1}},
			PaymentMethod: PaymentGcash,
		})
		require.Error(t, err)
		assert.True(t, apperror.IsValidation(err))

		ref := "GC-20260829-001"
		receipt, err := f.svc.Checkout(ctx, CheckoutRequest{
			Items:            []CheckoutItem{{ProductID: p.ID, Quantity: 1}},
			PaymentMethod:    PaymentGcash,
			GcashReferenceNo: &ref,
		})
		require.NoError(t, err)
		assert.Equal(t, PaymentGcash, receipt.PaymentMethod)
	})

	t.Run("empty cart and zero quantities are rejected", func(t *testing.T) {
		f := newFixture()

		_, err := f.svc.Checkout(ctx, CheckoutRequest{PaymentMethod: PaymentCash})
		assert.True(t, apperror.IsValidation(err))

		_, err = f.svc.Checkout(ctx, CheckoutRequest{
			Items:         []CheckoutItem{{ProductID: id.New(), Quantity: 0}},
			PaymentMethod: PaymentCash,
		})
		assert.True(t, apperror.IsValidation(err))
	})

	t.Run("records the sale in the audit trail", func(t *testing.T) {
		f := newFixture()
		p := f.addProduct("Lucky Me Pancit Canton", "11.00", "8.50")
		f.stock.seed(p.ID, 10, 0)

		receipt, err := f.svc.Checkout(ctx, CheckoutRequest{
			Items:         []CheckoutItem{{ProductID: p.ID, Quantity: 1}},
			PaymentMethod: PaymentCash,
		})
		require.NoError(t, err)

		require.Len(t, f.auditLog.entries, 1)
		entry := f.auditLog.entries[0]
		assert.Equal(t, "transaction", entry.EntityType)
		assert.Equal(t, receipt.TransactionID.String(), entry.EntityID)
	})
}

func TestSummarizeDaily(t *testing.T) {
	f := newFixture()
	from := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)

	_, err := f.svc.SummarizeDaily(cashierCtx(), from, to)
	require.Error(t, err)
	assert.True(t, apperror.IsValidation(err))
}
