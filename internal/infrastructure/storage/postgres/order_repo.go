package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"minimart/internal/core/apperror"
	"minimart/internal/core/id"
	"minimart/internal/domain/order"
)

const (
	ordersTable     = "orders"
	orderItemsTable = "order_items"
)

// OrderRepo implements order.Repository.
type OrderRepo struct {
	txManager   *TxManager
	builder     squirrel.StatementBuilderType
	headerCols  []string
	itemCols    []string
	batchInsert *BatchInserter
}

// NewOrderRepo creates a new order repository.
func NewOrderRepo(txManager *TxManager) *OrderRepo {
	return &OrderRepo{
		txManager:   txManager,
		builder:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		headerCols:  ExtractDBColumns[order.Order](),
		itemCols:    ExtractDBColumns[order.Item](),
		batchInsert: NewBatchInserter(txManager),
	}
}

var _ order.Repository = (*OrderRepo)(nil)

// Create inserts the order header and all items. Items go through the
// COPY protocol in one round-trip.
func (r *OrderRepo) Create(ctx context.Context, o *order.Order) error {
	q := r.builder.Insert(ordersTable).SetMap(StructToMap(o))

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	rows := make([][]any, 0, len(o.Items))
	for _, item := range o.Items {
		rows = append(rows, []any{
			item.ID, item.OrderID, item.ProductID, item.ProductName,
			item.Quantity, item.Price,
		})
	}
	if _, err := r.batchInsert.CopyFromSlice(ctx, orderItemsTable, r.itemCols, rows); err != nil {
		return fmt.Errorf("copy order items: %w", err)
	}
	return nil
}

func (r *OrderRepo) loadItems(ctx context.Context, orderID id.ID) ([]order.Item, error) {
	q := r.builder.Select(r.itemCols...).From(orderItemsTable).
		Where(squirrel.Eq{"order_id": orderID}).
		OrderBy("product_name ASC")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var items []order.Item
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &items, sql, args...); err != nil {
		return nil, fmt.Errorf("select order items: %w", err)
	}
	return items, nil
}

// GetByID loads the order with its items.
func (r *OrderRepo) GetByID(ctx context.Context, orderID id.ID) (*order.Order, error) {
	q := r.builder.Select(r.headerCols...).From(ordersTable).
		Where(squirrel.Eq{"id": orderID}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var o order.Order
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &o, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("order", orderID)
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	if o.Items, err = r.loadItems(ctx, orderID); err != nil {
		return nil, err
	}
	return &o, nil
}

// GetByIDForUpdate loads the order with its items and locks the header
// row. Lifecycle operations on the same order serialize here.
func (r *OrderRepo) GetByIDForUpdate(ctx context.Context, orderID id.ID) (*order.Order, error) {
	sql := `
		SELECT id, order_no, customer_id, order_date, status, total_amount,
		       cancel_reason, version, updated_at
		FROM orders
		WHERE id = $1
		FOR UPDATE
	`

	var o order.Order
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &o, sql, orderID); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("order", orderID)
		}
		return nil, fmt.Errorf("get order for update: %w", err)
	}

	var err error
	if o.Items, err = r.loadItems(ctx, orderID); err != nil {
		return nil, err
	}
	return &o, nil
}

// UpdateHeader persists status, total, cancel reason, and bumps the
// version.
func (r *OrderRepo) UpdateHeader(ctx context.Context, o *order.Order) error {
	currentVersion := o.Version
	o.Version++

	q := r.builder.Update(ordersTable).
		Set("status", o.Status).
		Set("total_amount", o.TotalAmount).
		Set("cancel_reason", o.CancelReason).
		Set("version", o.Version).
		Set("updated_at", o.UpdatedAt).
		Where(squirrel.Eq{"id": o.ID}).
		Where(squirrel.Eq{"version": currentVersion})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	tag, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewConcurrentModification("order", o.ID)
	}
	return nil
}

// UpdateItemQuantity persists a partial shortage decrement.
func (r *OrderRepo) UpdateItemQuantity(ctx context.Context, itemID id.ID, quantity int64) error {
	q := r.builder.Update(orderItemsTable).
		Set("quantity", quantity).
		Where(squirrel.Eq{"id": itemID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	tag, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update item quantity: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("order item", itemID)
	}
	return nil
}

// DeleteItem removes a fully short line.
func (r *OrderRepo) DeleteItem(ctx context.Context, itemID id.ID) error {
	q := r.builder.Delete(orderItemsTable).Where(squirrel.Eq{"id": itemID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	tag, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("order item", itemID)
	}
	return nil
}

// ListActive returns all non-terminal orders bucketed by status.
// Ascending order date is the packing priority contract: oldest orders
// are packed first.
func (r *OrderRepo) ListActive(ctx context.Context) (*order.ActiveOrders, error) {
	q := r.builder.Select(r.headerCols...).From(ordersTable).
		Where(squirrel.Eq{"status": []order.Status{
			order.StatusPending, order.StatusPreparing, order.StatusReady,
		}}).
		OrderBy("order_date ASC")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var headers []order.Order
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &headers, sql, args...); err != nil {
		return nil, fmt.Errorf("select active orders: %w", err)
	}

	out := &order.ActiveOrders{}
	for i := range headers {
		o := headers[i]
		if o.Items, err = r.loadItems(ctx, o.ID); err != nil {
			return nil, err
		}
		switch o.Status {
		case order.StatusPending:
			out.Pending = append(out.Pending, o)
		case order.StatusPreparing:
			out.Preparing = append(out.Preparing, o)
		case order.StatusReady:
			out.Ready = append(out.Ready, o)
		}
	}
	return out, nil
}

// ListByCustomer returns a customer's orders newest first.
func (r *OrderRepo) ListByCustomer(ctx context.Context, customerID id.ID, limit, offset int) ([]order.Order, error) {
	q := r.builder.Select(r.headerCols...).From(ordersTable).
		Where(squirrel.Eq{"customer_id": customerID}).
		OrderBy("order_date DESC")
	if limit > 0 {
		q = q.Limit(uint64(limit))
	}
	if offset > 0 {
		q = q.Offset(uint64(offset))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var orders []order.Order
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &orders, sql, args...); err != nil {
		return nil, fmt.Errorf("select customer orders: %w", err)
	}

	for i := range orders {
		if orders[i].Items, err = r.loadItems(ctx, orders[i].ID); err != nil {
			return nil, err
		}
	}
	return orders, nil
}

// ListExpiredIDs returns ids of non-terminal orders older than the
// cutoff. Ids only: the sweep re-reads each order under a lock before
// touching it.
func (r *OrderRepo) ListExpiredIDs(ctx context.Context, cutoff time.Time) ([]id.ID, error) {
	q := r.builder.Select("id").From(ordersTable).
		Where(squirrel.Eq{"status": []order.Status{
			order.StatusPending, order.StatusPreparing, order.StatusReady,
		}}).
		Where(squirrel.Lt{"order_date": cutoff}).
		OrderBy("order_date ASC")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var ids []id.ID
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &ids, sql, args...); err != nil {
		return nil, fmt.Errorf("select expired orders: %w", err)
	}
	return ids, nil
}
