package postgres

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"minimart/internal/core/apperror"
	"minimart/internal/core/id"
	"minimart/internal/domain/inventory"
)

const (
	inventoryTable      = "inventory"
	stockMovementsTable = "stock_movements"
)

// InventoryRepo implements inventory.Repository.
type InventoryRepo struct {
	txManager *TxManager
	builder   squirrel.StatementBuilderType
	columns   []string
}

// NewInventoryRepo creates a new inventory repository.
func NewInventoryRepo(txManager *TxManager) *InventoryRepo {
	return &InventoryRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		columns:   ExtractDBColumns[inventory.Inventory](),
	}
}

var _ inventory.Repository = (*InventoryRepo)(nil)

// GetByProduct returns the inventory row for a product.
func (r *InventoryRepo) GetByProduct(ctx context.Context, productID id.ID) (*inventory.Inventory, error) {
	q := r.builder.Select(r.columns...).From(inventoryTable).
		Where(squirrel.Eq{"product_id": productID}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var inv inventory.Inventory
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &inv, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("inventory", productID)
		}
		return nil, fmt.Errorf("get inventory: %w", err)
	}
	return &inv, nil
}

// GetByProductForUpdate locks the inventory row for the rest of the
// surrounding transaction. All counter writers serialize on this lock.
func (r *InventoryRepo) GetByProductForUpdate(ctx context.Context, productID id.ID) (*inventory.Inventory, error) {
	sql := `
		SELECT id, product_id, current_stock, allocated_stock, updated_at
		FROM inventory
		WHERE product_id = $1
		FOR UPDATE
	`

	var inv inventory.Inventory
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &inv, sql, productID); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("inventory", productID)
		}
		return nil, fmt.Errorf("get inventory for update: %w", err)
	}
	return &inv, nil
}

// GetByProducts returns inventory rows for a batch of products.
func (r *InventoryRepo) GetByProducts(ctx context.Context, productIDs []id.ID) (map[id.ID]*inventory.Inventory, error) {
	if len(productIDs) == 0 {
		return map[id.ID]*inventory.Inventory{}, nil
	}

	q := r.builder.Select(r.columns...).From(inventoryTable).
		Where(squirrel.Eq{"product_id": productIDs})

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var items []*inventory.Inventory
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &items, sql, args...); err != nil {
		return nil, fmt.Errorf("select inventory: %w", err)
	}

	out := make(map[id.ID]*inventory.Inventory, len(items))
	for _, inv := range items {
		out[inv.ProductID] = inv
	}
	return out, nil
}

// Create inserts a zeroed inventory row for a new product.
func (r *InventoryRepo) Create(ctx context.Context, inv *inventory.Inventory) error {
	q := r.builder.Insert(inventoryTable).SetMap(StructToMap(inv))

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert inventory: %w", err)
	}
	return nil
}

// UpdateCounters persists the two counters of a previously locked row.
func (r *InventoryRepo) UpdateCounters(ctx context.Context, inv *inventory.Inventory) error {
	q := r.builder.Update(inventoryTable).
		Set("current_stock", inv.CurrentStock).
		Set("allocated_stock", inv.AllocatedStock).
		Set("updated_at", inv.UpdatedAt).
		Where(squirrel.Eq{"id": inv.ID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	tag, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update counters: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("inventory", inv.ID)
	}
	return nil
}

// CreateMovement appends a row to the movement ledger.
func (r *InventoryRepo) CreateMovement(ctx context.Context, m *inventory.StockMovement) error {
	q := r.builder.Insert(stockMovementsTable).SetMap(StructToMap(m))

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert movement: %w", err)
	}
	return nil
}

// ListMovements returns ledger rows newest first.
func (r *InventoryRepo) ListMovements(ctx context.Context, filter inventory.MovementFilter) ([]inventory.StockMovement, error) {
	q := r.builder.Select(ExtractDBColumns[inventory.StockMovement]()...).
		From(stockMovementsTable)

	if filter.ProductID != nil {
		q = q.Where(squirrel.Eq{"product_id": *filter.ProductID})
	}
	if filter.MovementType != nil {
		q = q.Where(squirrel.Eq{"movement_type": *filter.MovementType})
	}
	if filter.From != nil {
		q = q.Where(squirrel.GtOrEq{"created_at": *filter.From})
	}
	if filter.To != nil {
		q = q.Where(squirrel.LtOrEq{"created_at": *filter.To})
	}

	q = q.OrderBy("created_at DESC")
	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var movements []inventory.StockMovement
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &movements, sql, args...); err != nil {
		return nil, fmt.Errorf("select movements: %w", err)
	}
	return movements, nil
}

// ListLowStock returns inventory rows with available stock at or below
// the threshold, joined with product names for the restock dashboard.
func (r *InventoryRepo) ListLowStock(ctx context.Context, threshold int64) ([]inventory.LowStockItem, error) {
	sql := `
		SELECT i.product_id,
		       p.name AS product_name,
		       i.current_stock,
		       i.allocated_stock,
		       i.current_stock - i.allocated_stock AS available
		FROM inventory i
		JOIN products p ON p.id = i.product_id
		WHERE p.active = true
		  AND i.current_stock - i.allocated_stock <= $1
		ORDER BY available ASC, p.name ASC
	`

	var items []inventory.LowStockItem
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &items, sql, threshold); err != nil {
		return nil, fmt.Errorf("select low stock: %w", err)
	}
	return items, nil
}
