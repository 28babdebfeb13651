package order

import (
	"context"
	"fmt"
	"sort"
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
	"minimart/internal/domain/sales"
	"minimart/internal/domain/views"
)

// passthroughTx satisfies tx.Manager for service tests. Atomicity is
// asserted by checking that operations mutate nothing before their
// precondition checks pass.
type passthroughTx struct{}

func (passthroughTx) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakeOrderRepo struct {
	orders map[id.ID]*Order
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{orders: make(map[id.ID]*Order)}
}

func copyOrder(o *Order) *Order {
	cp := *o
	cp.Items = make([]Item, len(o.Items))
	copy(cp.Items, o.Items)
	return &cp
}

func (f *fakeOrderRepo) Create(_ context.Context, o *Order) error {
	f.orders[o.ID] = copyOrder(o)
	return nil
}

func (f *fakeOrderRepo) GetByID(_ context.Context, orderID id.ID) (*Order, error) {
	o, ok := f.orders[orderID]
	if !ok {
		return nil, apperror.NewNotFound("order", orderID)
	}
	return copyOrder(o), nil
}

func (f *fakeOrderRepo) GetByIDForUpdate(ctx context.Context, orderID id.ID) (*Order, error) {
	return f.GetByID(ctx, orderID)
}

func (f *fakeOrderRepo) UpdateHeader(_ context.Context, o *Order) error {
	stored, ok := f.orders[o.ID]
	if !ok {
		return apperror.NewNotFound("order", o.ID)
	}
	stored.Status = o.Status
	stored.TotalAmount = o.TotalAmount
	stored.CancelReason = o.CancelReason
	stored.UpdatedAt = o.UpdatedAt
	stored.Version++
	return nil
}

func (f *fakeOrderRepo) UpdateItemQuantity(_ context.Context, itemID id.ID, quantity int64) error {
	for _, o := range f.orders {
		for idx := range o.Items {
			if o.Items[idx].ID == itemID {
				o.Items[idx].Quantity = quantity
				return nil
			}
		}
	}
	return apperror.NewNotFound("order item", itemID)
}

func (f *fakeOrderRepo) DeleteItem(_ context.Context, itemID id.ID) error {
	for _, o := range f.orders {
		for idx := range o.Items {
			if o.Items[idx].ID == itemID {
				o.Items = append(o.Items[:idx], o.Items[idx+1:]...)
				return nil
			}
		}
	}
	return apperror.NewNotFound("order item", itemID)
}

func (f *fakeOrderRepo) ListActive(_ context.Context) (*ActiveOrders, error) {
	out := &ActiveOrders{}
	var all []*Order
	for _, o := range f.orders {
		all = append(all, o)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].OrderDate.Before(all[j].OrderDate) })
	for _, o := range all {
		switch o.Status {
		case StatusPending:
			out.Pending = append(out.Pending, *copyOrder(o))
		case StatusPreparing:
			out.Preparing = append(out.Preparing, *copyOrder(o))
		case StatusReady:
			out.Ready = append(out.Ready, *copyOrder(o))
		}
	}
	return out, nil
}

func (f *fakeOrderRepo) ListByCustomer(_ context.Context, customerID id.ID, _, _ int) ([]Order, error) {
	var out []Order
	for _, o := range f.orders {
		if o.CustomerID == customerID {
			out = append(out, *copyOrder(o))
		}
	}
	return out, nil
}

func (f *fakeOrderRepo) ListExpiredIDs(_ context.Context, cutoff time.Time) ([]id.ID, error) {
	var out []id.ID
	for _, o := range f.orders {
		if !o.Status.IsTerminal() && o.OrderDate.Before(cutoff) {
			out = append(out, o.ID)
		}
	}
	return out, nil
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

type fakeSalesRepo struct {
	created []*sales.Transaction
}

func (f *fakeSalesRepo) Create(_ context.Context, t *sales.Transaction) error {
	f.created = append(f.created, t)
	return nil
}

func (f *fakeSalesRepo) GetByID(_ context.Context, txID id.ID) (*sales.Transaction, error) {
	for _, t := range f.created {
		if t.ID == txID {
			return t, nil
		}
	}
	return nil, apperror.NewNotFound("transaction", txID)
}

func (f *fakeSalesRepo) GetByReceiptNo(_ context.Context, receiptNo string) (*sales.Transaction, error) {
	for _, t := range f.created {
		if t.ReceiptNo == receiptNo {
			return t, nil
		}
	}
	return nil, apperror.NewNotFound("transaction", receiptNo)
}

func (f *fakeSalesRepo) List(_ context.Context, _ sales.ListFilter) ([]sales.Transaction, error) {
	return nil, nil
}

func (f *fakeSalesRepo) SummarizeDaily(_ context.Context, _, _ time.Time) ([]sales.DailySummary, error) {
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
	orders   *fakeOrderRepo
	stock    *fakeStockRepo
	sales    *fakeSalesRepo
	products *fakeProducts
	auditLog *fakeAuditStore
}

func newFixture() *fixture {
	f := &fixture{
		orders:   newFakeOrderRepo(),
		stock:    newFakeStockRepo(),
		sales:    &fakeSalesRepo{},
		products: &fakeProducts{byID: make(map[id.ID]*product.Product)},
		auditLog: &fakeAuditStore{},
	}
	f.svc = NewService(
		f.orders,
		inventory.NewService(f.stock),
		f.sales,
		f.products,
		&fakeNumbering{},
		audit.NewService(f.auditLog),
		views.Noop{},
		passthroughTx{},
	)
	return f
}

func (f *fixture) addProduct(name string, wholesale, cost string) *product.Product {
	p := product.New(name, "GROCERY")
	p.WholesalePrice = types.MustMoney(wholesale)
	p.RetailPrice = types.MustMoney(wholesale)
	p.CostPrice = types.MustMoney(cost)
	f.products.byID[p.ID] = p
	return p
}

// addOrder seeds a stored order whose stock is already allocated.
func (f *fixture) addOrder(status Status, orderDate time.Time, items ...Item) *Order {
	o := &Order{
		ID:         id.New(),
		OrderNo:    fmt.Sprintf("SO-2026-%05d", len(f.orders.orders)+1),
		CustomerID: id.New(),
		OrderDate:  orderDate,
		Status:     status,
		Items:      items,
	}
	for idx := range o.Items {
		o.Items[idx].OrderID = o.ID
	}
	o.RecalculateTotal()
	f.orders.orders[o.ID] = o
	return o
}

func authedCtx() context.Context {
	return appctx.WithUser(context.Background(), &appctx.UserContext{
		UserID:   "u-1",
		Username: "aling.nena",
		Role:     appctx.RoleAdmin,
	})
}

func TestCreate(t *testing.T) {
	ctx := authedCtx()

	t.Run("reserves stock and prices at wholesale", func(t *testing.T) {
		f := newFixture()
		p := f.addProduct("Lucky Me Pancit Canton", "9.50", "7.00")
		f.stock.seed(p.ID, 100, 0)

		o, err := f.svc.Create(ctx, CreateRequest{
			CustomerID: id.New(),
			Items:      []CreateItem{{ProductID: p.ID, Quantity: 20}},
		})
		require.NoError(t, err)
		assert.Equal(t, StatusPending, o.Status)
		assert.Equal(t, "SO-2026-00001", o.OrderNo)
		assert.True(t, o.TotalAmount.Equal(types.MustMoney("190")), "got %s", o.TotalAmount)

		inv := f.stock.rows[p.ID]
		assert.Equal(t, int64(100), inv.CurrentStock)
		assert.Equal(t, int64(20), inv.AllocatedStock)
	})

	t.Run("insufficient stock rejects the order", func(t *testing.T) {
		f := newFixture()
		p := f.addProduct("Bear Brand Powdered Milk", "42.00", "35.00")
		f.stock.seed(p.ID, 5, 0)

		_, err := f.svc.Create(ctx, CreateRequest{
			CustomerID: id.New(),
			Items:      []CreateItem{{ProductID: p.ID, Quantity: 10}},
		})
		require.Error(t, err)
		assert.True(t, apperror.IsInsufficientStock(err))
		assert.Empty(t, f.orders.orders)
	})
}

func TestUpdateStatus(t *testing.T) {
	ctx := authedCtx()

	t.Run("walks the forward path", func(t *testing.T) {
		f := newFixture()
		o := f.addOrder(StatusPending, time.Now(), Item{ID: id.New(), ProductID: id.New(), Quantity: 1, Price: types.MustMoney("10")})

		require.NoError(t, f.svc.UpdateStatus(ctx, o.ID, StatusPreparing))
		require.NoError(t, f.svc.UpdateStatus(ctx, o.ID, StatusReady))

		stored, _ := f.orders.GetByID(ctx, o.ID)
		assert.Equal(t, StatusReady, stored.Status)
	})

	t.Run("rejects skipping a state", func(t *testing.T) {
		f := newFixture()
		o := f.addOrder(StatusPending, time.Now(), Item{ID: id.New(), ProductID: id.New(), Quantity: 1, Price: types.MustMoney("10")})

		err := f.svc.UpdateStatus(ctx, o.ID, StatusReady)
		require.Error(t, err)
		appErr, ok := apperror.AsAppError(err)
		require.True(t, ok)
		assert.Equal(t, apperror.CodeInvalidTransition, appErr.Code)
	})

	t.Run("rejects terminal statuses", func(t *testing.T) {
		f := newFixture()
		o := f.addOrder(StatusReady, time.Now(), Item{ID: id.New(), ProductID: id.New(), Quantity: 1, Price: types.MustMoney("10")})

		require.Error(t, f.svc.UpdateStatus(ctx, o.ID, StatusCompleted))
		require.Error(t, f.svc.UpdateStatus(ctx, o.ID, StatusCancelled))
	})

	t.Run("unknown order", func(t *testing.T) {
		f := newFixture()
		err := f.svc.UpdateStatus(ctx, id.New(), StatusPreparing)
		assert.True(t, apperror.IsNotFound(err))
	})
}

func TestCancel(t *testing.T) {
	ctx := authedCtx()

	t.Run("releases stock exactly once", func(t *testing.T) {
		f := newFixture()
		p := f.addProduct("C2 Apple 500ml", "18.00", "14.00")
		f.stock.seed(p.ID, 50, 5)
		o := f.addOrder(StatusPending, time.Now(),
			Item{ID: id.New(), ProductID: p.ID, ProductName: p.Name, Quantity: 5, Price: types.MustMoney("18")})

		res, err := f.svc.Cancel(ctx, o.ID, "customer request")
		require.NoError(t, err)
		assert.Equal(t, o.CustomerID, res.CustomerID)

		inv := f.stock.rows[p.ID]
		assert.Equal(t, int64(0), inv.AllocatedStock)
		assert.Equal(t, int64(50), inv.CurrentStock)

		stored, _ := f.orders.GetByID(ctx, o.ID)
		assert.Equal(t, StatusCancelled, stored.Status)

		// second cancel is an explicit error with no stock movement
		_, err = f.svc.Cancel(ctx, o.ID, "again")
		require.Error(t, err)
		assert.True(t, apperror.IsInvalidState(err))
		assert.Equal(t, int64(0), f.stock.rows[p.ID].AllocatedStock)
	})

	t.Run("completed orders cannot be cancelled", func(t *testing.T) {
		f := newFixture()
		o := f.addOrder(StatusCompleted, time.Now(), Item{ID: id.New(), ProductID: id.New(), Quantity: 1, Price: types.MustMoney("10")})

		_, err := f.svc.Cancel(ctx, o.ID, "")
		require.Error(t, err)
		assert.True(t, apperror.IsInvalidState(err))
	})

	t.Run("writes an audit entry", func(t *testing.T) {
		f := newFixture()
		p := f.addProduct("Argentina Corned Beef", "32.00", "26.00")
		f.stock.seed(p.ID, 10, 2)
		o := f.addOrder(StatusPreparing, time.Now(),
			Item{ID: id.New(), ProductID: p.ID, ProductName: p.Name, Quantity: 2, Price: types.MustMoney("32")})

		_, err := f.svc.Cancel(ctx, o.ID, "damaged crate")
		require.NoError(t, err)

		require.Len(t, f.auditLog.entries, 1)
		entry := f.auditLog.entries[0]
		assert.Equal(t, audit.ActionOrderCancel, entry.Action)
		assert.Equal(t, "u-1", entry.ActorID)
	})
}

func TestMarkItemUnavailable(t *testing.T) {
	ctx := authedCtx()

	t.Run("full removal of the last item cancels the order", func(t *testing.T) {
		f := newFixture()
		p := f.addProduct("Nescafe 3in1 Twin Pack", "20.00", "16.00")
		f.stock.seed(p.ID, 30, 4)
		item := Item{ID: id.New(), ProductID: p.ID, ProductName: p.Name, Quantity: 4, Price: types.MustMoney("20")}
		o := f.addOrder(StatusPreparing, time.Now(), item)

		res, err := f.svc.MarkItemUnavailable(ctx, ShortageRequest{
			OrderID:             o.ID,
			OrderItemID:         item.ID,
			QuantityUnavailable: 4,
			Reason:              "DAMAGE",
		})
		require.NoError(t, err)
		assert.True(t, res.ItemRemoved)
		assert.True(t, res.OrderCancelled)
		assert.True(t, res.NewTotal.IsZero())

		stored, _ := f.orders.GetByID(ctx, o.ID)
		assert.Equal(t, StatusCancelled, stored.Status)
		assert.Empty(t, stored.Items)
		assert.True(t, stored.TotalAmount.IsZero())

		inv := f.stock.rows[p.ID]
		assert.Equal(t, int64(26), inv.CurrentStock)
		assert.Equal(t, int64(0), inv.AllocatedStock)

		require.Len(t, f.stock.movements, 1)
		m := f.stock.movements[0]
		assert.Equal(t, inventory.MovementDamage, m.MovementType)
		assert.Equal(t, int64(-4), m.QuantityChange)
	})

	t.Run("partial shortage shrinks the line", func(t *testing.T) {
		f := newFixture()
		p := f.addProduct("Milo 24g Sachet", "10.00", "8.00")
		other := f.addProduct("Sky Flakes", "25.00", "20.00")
		f.stock.seed(p.ID, 40, 10)
		f.stock.seed(other.ID, 40, 5)
		shortItem := Item{ID: id.New(), ProductID: p.ID, ProductName: p.Name, Quantity: 10, Price: types.MustMoney("10")}
		keptItem := Item{ID: id.New(), ProductID: other.ID, ProductName: other.Name, Quantity: 5, Price: types.MustMoney("25")}
		o := f.addOrder(StatusPreparing, time.Now(), shortItem, keptItem)

		res, err := f.svc.MarkItemUnavailable(ctx, ShortageRequest{
			OrderID:             o.ID,
			OrderItemID:         shortItem.ID,
			QuantityUnavailable: 3,
			Reason:              "expired batch",
		})
		require.NoError(t, err)
		assert.False(t, res.ItemRemoved)
		assert.False(t, res.OrderCancelled)
		// 10x10 + 5x25 = 225, minus 3x10 = 195
		assert.True(t, res.NewTotal.Equal(types.MustMoney("195")), "got %s", res.NewTotal)

		stored, _ := f.orders.GetByID(ctx, o.ID)
		assert.Equal(t, StatusPreparing, stored.Status)
		assert.Equal(t, int64(7), stored.FindItem(shortItem.ID).Quantity)

		require.Len(t, f.stock.movements, 1)
		assert.Equal(t, inventory.MovementOrderShortage, f.stock.movements[0].MovementType)
	})

	t.Run("rejected outside PENDING and PREPARING", func(t *testing.T) {
		f := newFixture()
		item := Item{ID: id.New(), ProductID: id.New(), Quantity: 1, Price: types.MustMoney("10")}
		o := f.addOrder(StatusReady, time.Now(), item)

		_, err := f.svc.MarkItemUnavailable(ctx, ShortageRequest{
			OrderID:             o.ID,
			OrderItemID:         item.ID,
			QuantityUnavailable: 1,
			Reason:              "DAMAGE",
		})
		require.Error(t, err)
		assert.True(t, apperror.IsInvalidState(err))
	})

	t.Run("quantity beyond the line is invalid", func(t *testing.T) {
		f := newFixture()
		p := f.addProduct("Datu Puti Vinegar", "15.00", "11.00")
		f.stock.seed(p.ID, 20, 2)
		item := Item{ID: id.New(), ProductID: p.ID, ProductName: p.Name, Quantity: 2, Price: types.MustMoney("15")}
		o := f.addOrder(StatusPending, time.Now(), item)

		_, err := f.svc.MarkItemUnavailable(ctx, ShortageRequest{
			OrderID:             o.ID,
			OrderItemID:         item.ID,
			QuantityUnavailable: 5,
			Reason:              "DAMAGE",
		})
		require.Error(t, err)
		assert.Empty(t, f.stock.movements)
	})
}

func TestCompletePayment(t *testing.T) {
	ctx := authedCtx()

	t.Run("converts a ready order into a sale", func(t *testing.T) {
		f := newFixture()
		p := f.addProduct("Palmolive Shampoo 15ml", "50.00", "38.00")
		f.stock.seed(p.ID, 10, 3)
		item := Item{ID: id.New(), ProductID: p.ID, ProductName: p.Name, Quantity: 3, Price: types.MustMoney("50")}
		o := f.addOrder(StatusReady, time.Now(), item)

		tendered := types.MustMoney("150")
		res, err := f.svc.CompletePayment(ctx, PaymentRequest{
			OrderID:        o.ID,
			Method:         sales.PaymentCash,
			AmountTendered: &tendered,
		})
		require.NoError(t, err)
		assert.Equal(t, "OR-2026-00001", res.ReceiptNo)

		inv := f.stock.rows[p.ID]
		assert.Equal(t, int64(7), inv.CurrentStock)
		assert.Equal(t, int64(0), inv.AllocatedStock)

		stored, _ := f.orders.GetByID(ctx, o.ID)
		assert.Equal(t, StatusCompleted, stored.Status)

		require.Len(t, f.sales.created, 1)
		sale := f.sales.created[0]
		assert.True(t, sale.TotalAmount.Equal(types.MustMoney("150")))
		require.Len(t, sale.Items, 1)
		assert.True(t, sale.Items[0].PriceAtSale.Equal(types.MustMoney("50")))
		assert.True(t, sale.Items[0].CostAtSale.Equal(types.MustMoney("38")))
		require.NotNil(t, sale.Payment)
		assert.True(t, sale.Payment.AmountTendered.Equal(tendered))
		assert.True(t, sale.Payment.Change.IsZero())
	})

	t.Run("tendered and change default to total and zero", func(t *testing.T) {
		f := newFixture()
		p := f.addProduct("Chippy BBQ", "12.00", "9.00")
		f.stock.seed(p.ID, 20, 2)
		item := Item{ID: id.New(), ProductID: p.ID, ProductName: p.Name, Quantity: 2, Price: types.MustMoney("12")}
		o := f.addOrder(StatusReady, time.Now(), item)

		_, err := f.svc.CompletePayment(ctx, PaymentRequest{OrderID: o.ID, Method: sales.PaymentCash})
		require.NoError(t, err)

		sale := f.sales.created[0]
		assert.True(t, sale.Payment.AmountTendered.Equal(types.MustMoney("24")))
		assert.True(t, sale.Payment.Change.IsZero())
	})

	t.Run("second completion fails without touching stock", func(t *testing.T) {
		f := newFixture()
		p := f.addProduct("Kopiko Black", "8.00", "6.00")
		f.stock.seed(p.ID, 10, 2)
		item := Item{ID: id.New(), ProductID: p.ID, ProductName: p.Name, Quantity: 2, Price: types.MustMoney("8")}
		o := f.addOrder(StatusReady, time.Now(), item)

		_, err := f.svc.CompletePayment(ctx, PaymentRequest{OrderID: o.ID, Method: sales.PaymentCash})
		require.NoError(t, err)

		_, err = f.svc.CompletePayment(ctx, PaymentRequest{OrderID: o.ID, Method: sales.PaymentCash})
		require.Error(t, err)
		assert.True(t, apperror.IsInvalidState(err))
		assert.Contains(t, err.Error(), "already completed")

		assert.Equal(t, int64(8), f.stock.rows[p.ID].CurrentStock)
		assert.Len(t, f.sales.created, 1)
	})

	t.Run("cancelled orders cannot be completed", func(t *testing.T) {
		f := newFixture()
		item := Item{ID: id.New(), ProductID: id.New(), Quantity: 1, Price: types.MustMoney("10")}
		o := f.addOrder(StatusCancelled, time.Now(), item)

		_, err := f.svc.CompletePayment(ctx, PaymentRequest{OrderID: o.ID, Method: sales.PaymentCash})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cancelled")
	})

	t.Run("orders still packing cannot be completed", func(t *testing.T) {
		f := newFixture()
		item := Item{ID: id.New(), ProductID: id.New(), Quantity: 1, Price: types.MustMoney("10")}
		o := f.addOrder(StatusPreparing, time.Now(), item)

		_, err := f.svc.CompletePayment(ctx, PaymentRequest{OrderID: o.ID, Method: sales.PaymentCash})
		require.Error(t, err)
		appErr, ok := apperror.AsAppError(err)
		require.True(t, ok)
		assert.Equal(t, apperror.CodeInvalidTransition, appErr.Code)
	})

	t.Run("shortfall on any line aborts before any mutation", func(t *testing.T) {
		f := newFixture()
		ok := f.addProduct("Surf Powder 70g", "14.00", "11.00")
		short := f.addProduct("Magic Sarap 8g", "6.00", "4.50")
		f.stock.seed(ok.ID, 100, 10)
		f.stock.seed(short.ID, 1, 5) // physically short
		o := f.addOrder(StatusReady, time.Now(),
			Item{ID: id.New(), ProductID: ok.ID, ProductName: ok.Name, Quantity: 10, Price: types.MustMoney("14")},
			Item{ID: id.New(), ProductID: short.ID, ProductName: short.Name, Quantity: 5, Price: types.MustMoney("6")},
		)

		_, err := f.svc.CompletePayment(ctx, PaymentRequest{OrderID: o.ID, Method: sales.PaymentCash})
		require.Error(t, err)
		assert.True(t, apperror.IsInsufficientStock(err))
		assert.Contains(t, err.Error(), "Magic Sarap 8g")

		// first line untouched
		assert.Equal(t, int64(100), f.stock.rows[ok.ID].CurrentStock)
		assert.Equal(t, int64(10), f.stock.rows[ok.ID].AllocatedStock)
		assert.Empty(t, f.sales.created)

		stored, _ := f.orders.GetByID(ctx, o.ID)
		assert.Equal(t, StatusReady, stored.Status)
	})

	t.Run("gcash requires a reference number", func(t *testing.T) {
		f := newFixture()
		p := f.addProduct("Royal 8oz", "13.00", "10.00")
		f.stock.seed(p.ID, 10, 1)
		item := Item{ID: id.New(), ProductID: p.ID, ProductName: p.Name, Quantity: 1, Price: types.MustMoney("13")}
		o := f.addOrder(StatusReady, time.Now(), item)

		_, err := f.svc.CompletePayment(ctx, PaymentRequest{OrderID: o.ID, Method: sales.PaymentGcash})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "reference number")
	})
}

func TestAutoCancelExpired(t *testing.T) {
	ctx := context.Background()

	t.Run("cancels stale orders and releases stock", func(t *testing.T) {
		f := newFixture()
		p := f.addProduct("Lucky Me Pancit Canton", "9.50", "7.00")
		f.stock.seed(p.ID, 60, 12)

		stale := f.addOrder(StatusReady, time.Now().Add(-50*time.Hour),
			Item{ID: id.New(), ProductID: p.ID, ProductName: p.Name, Quantity: 12, Price: types.MustMoney("9.50")})
		fresh := f.addOrder(StatusPending, time.Now().Add(-2*time.Hour),
			Item{ID: id.New(), ProductID: p.ID, ProductName: p.Name, Quantity: 3, Price: types.MustMoney("9.50")})

		res, err := f.svc.AutoCancelExpired(ctx, 48)
		require.NoError(t, err)
		assert.Equal(t, 1, res.CancelledCount)
		require.Len(t, res.CancelledOrderIDs, 1)
		assert.Equal(t, stale.ID, res.CancelledOrderIDs[0])

		storedStale, _ := f.orders.GetByID(ctx, stale.ID)
		assert.Equal(t, StatusCancelled, storedStale.Status)
		storedFresh, _ := f.orders.GetByID(ctx, fresh.ID)
		assert.Equal(t, StatusPending, storedFresh.Status)

		assert.Equal(t, int64(0), f.stock.rows[p.ID].AllocatedStock)

		require.Len(t, f.auditLog.entries, 1)
		assert.Equal(t, audit.ActionOrderAutoCancel, f.auditLog.entries[0].Action)
		assert.Equal(t, audit.SystemActor, f.auditLog.entries[0].ActorID)
	})

	t.Run("terminal orders are skipped without releasing stock", func(t *testing.T) {
		f := newFixture()
		p := f.addProduct("C2 Apple 500ml", "18.00", "14.00")
		f.stock.seed(p.ID, 10, 0)

		f.addOrder(StatusCancelled, time.Now().Add(-72*time.Hour),
			Item{ID: id.New(), ProductID: p.ID, ProductName: p.Name, Quantity: 4, Price: types.MustMoney("18")})

		res, err := f.svc.AutoCancelExpired(ctx, 48)
		require.NoError(t, err)
		assert.Equal(t, 0, res.CancelledCount)
		assert.Equal(t, int64(0), f.stock.rows[p.ID].AllocatedStock)
	})

	t.Run("rejects a non-positive threshold", func(t *testing.T) {
		f := newFixture()
		_, err := f.svc.AutoCancelExpired(ctx, 0)
		require.Error(t, err)
	})
}

func TestListActiveFIFO(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	newest := f.addOrder(StatusPending, time.Now(),
		Item{ID: id.New(), ProductID: id.New(), Quantity: 1, Price: types.MustMoney("10")})
	oldest := f.addOrder(StatusPending, time.Now().Add(-3*time.Hour),
		Item{ID: id.New(), ProductID: id.New(), Quantity: 1, Price: types.MustMoney("10")})
	middle := f.addOrder(StatusPending, time.Now().Add(-1*time.Hour),
		Item{ID: id.New(), ProductID: id.New(), Quantity: 1, Price: types.MustMoney("10")})

	board, err := f.svc.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, board.Pending, 3)
	assert.Equal(t, oldest.ID, board.Pending[0].ID)
	assert.Equal(t, middle.ID, board.Pending[1].ID)
	assert.Equal(t, newest.ID, board.Pending[2].ID)
}
