package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"

	"minimart/internal/core/apperror"
	"minimart/internal/core/id"
	"minimart/internal/domain/catalog/product"
)

const productsTable = "products"

// ProductRepo implements product.Repository.
type ProductRepo struct {
	txManager *TxManager
	builder   squirrel.StatementBuilderType
	columns   []string
}

// NewProductRepo creates a new product repository.
func NewProductRepo(txManager *TxManager) *ProductRepo {
	return &ProductRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		columns:   ExtractDBColumns[product.Product](),
	}
}

var _ product.Repository = (*ProductRepo)(nil)

func (r *ProductRepo) baseSelect() squirrel.SelectBuilder {
	return r.builder.Select(r.columns...).From(productsTable)
}

// Create inserts a new product.
func (r *ProductRepo) Create(ctx context.Context, p *product.Product) error {
	q := r.builder.Insert(productsTable).SetMap(StructToMap(p))

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

// GetByID retrieves a product by id.
func (r *ProductRepo) GetByID(ctx context.Context, productID id.ID) (*product.Product, error) {
	q := r.baseSelect().Where(squirrel.Eq{"id": productID}).Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var p product.Product
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &p, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("product", productID)
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	return &p, nil
}

// GetByIDs retrieves a batch of products keyed by id.
func (r *ProductRepo) GetByIDs(ctx context.Context, productIDs []id.ID) (map[id.ID]*product.Product, error) {
	if len(productIDs) == 0 {
		return map[id.ID]*product.Product{}, nil
	}

	q := r.baseSelect().Where(squirrel.Eq{"id": productIDs})

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var items []*product.Product
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &items, sql, args...); err != nil {
		return nil, fmt.Errorf("select products: %w", err)
	}

	out := make(map[id.ID]*product.Product, len(items))
	for _, p := range items {
		out[p.ID] = p
	}
	return out, nil
}

// FindByBarcode retrieves a product by barcode (POS scan path).
func (r *ProductRepo) FindByBarcode(ctx context.Context, barcode string) (*product.Product, error) {
	q := r.baseSelect().
		Where(squirrel.Eq{"barcode": barcode}).
		Where(squirrel.Eq{"active": true}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var p product.Product
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &p, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("product", barcode)
		}
		return nil, fmt.Errorf("find by barcode: %w", err)
	}
	return &p, nil
}

// Update modifies a product with optimistic locking.
func (r *ProductRepo) Update(ctx context.Context, p *product.Product) error {
	currentVersion := p.Version
	p.Touch()

	values := StructToMap(p)
	delete(values, "id")
	delete(values, "created_at")

	q := r.builder.Update(productsTable).
		SetMap(values).
		Where(squirrel.Eq{"id": p.ID}).
		Where(squirrel.Eq{"version": currentVersion})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	tag, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewConcurrentModification("product", p.ID)
	}
	return nil
}

// Deactivate soft-retires a product; history stays intact.
func (r *ProductRepo) Deactivate(ctx context.Context, productID id.ID) error {
	q := r.builder.Update(productsTable).
		Set("active", false).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": productID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	tag, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("deactivate product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("product", productID)
	}
	return nil
}

// List returns products matching the filter with a total count.
func (r *ProductRepo) List(ctx context.Context, filter product.ListFilter) (product.ListResult, error) {
	result := product.ListResult{Limit: filter.Limit, Offset: filter.Offset}

	q := r.baseSelect()
	countQ := r.builder.Select("COUNT(*)").From(productsTable)

	applyFilter := func(b squirrel.SelectBuilder) squirrel.SelectBuilder {
		if filter.Search != "" {
			pattern := "%" + strings.ToLower(filter.Search) + "%"
			b = b.Where(squirrel.Or{
				squirrel.Like{"LOWER(name)": pattern},
				squirrel.Eq{"barcode": filter.Search},
			})
		}
		if filter.Category != "" {
			b = b.Where(squirrel.Eq{"category": filter.Category})
		}
		if filter.ActiveOnly {
			b = b.Where(squirrel.Eq{"active": true})
		}
		if filter.WholesaleOnly != nil {
			b = b.Where(squirrel.Eq{"wholesale_only": *filter.WholesaleOnly})
		}
		return b
	}
	q = applyFilter(q)
	countQ = applyFilter(countQ)

	orderBy := "name ASC"
	if filter.OrderBy != "" {
		col := filter.OrderBy
		dir := "ASC"
		if strings.HasPrefix(col, "-") {
			col = col[1:]
			dir = "DESC"
		}
		orderBy = col + " " + dir
	}
	q = q.OrderBy(orderBy)

	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}

	querier := r.txManager.GetQuerier(ctx)

	sql, args, err := q.ToSql()
	if err != nil {
		return result, fmt.Errorf("build query: %w", err)
	}
	if err := pgxscan.Select(ctx, querier, &result.Items, sql, args...); err != nil {
		return result, fmt.Errorf("select products: %w", err)
	}

	countSQL, countArgs, err := countQ.ToSql()
	if err != nil {
		return result, fmt.Errorf("build count: %w", err)
	}
	if err := querier.QueryRow(ctx, countSQL, countArgs...).Scan(&result.TotalCount); err != nil {
		return result, fmt.Errorf("count products: %w", err)
	}

	return result, nil
}

// ExistsByBarcode checks barcode uniqueness, excluding one product.
func (r *ProductRepo) ExistsByBarcode(ctx context.Context, barcode string, exceptID id.ID) (bool, error) {
	q := r.builder.Select("1").From(productsTable).
		Where(squirrel.Eq{"barcode": barcode}).
		Limit(1)
	if !id.IsNil(exceptID) {
		q = q.Where(squirrel.NotEq{"id": exceptID})
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return false, fmt.Errorf("build query: %w", err)
	}

	var one int
	querier := r.txManager.GetQuerier(ctx)
	err = querier.QueryRow(ctx, sql, args...).Scan(&one)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check barcode: %w", err)
	}
	return true, nil
}
