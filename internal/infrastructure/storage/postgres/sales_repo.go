package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"minimart/internal/core/apperror"
	"minimart/internal/core/id"
	"minimart/internal/domain/sales"
)

const (
	transactionsTable     = "transactions"
	transactionItemsTable = "transaction_items"
	paymentsTable         = "payments"
)

// SalesRepo implements sales.Repository.
type SalesRepo struct {
	txManager   *TxManager
	builder     squirrel.StatementBuilderType
	headerCols  []string
	itemCols    []string
	paymentCols []string
	batchInsert *BatchInserter
}

// NewSalesRepo creates a new sales repository.
func NewSalesRepo(txManager *TxManager) *SalesRepo {
	return &SalesRepo{
		txManager:   txManager,
		builder:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		headerCols:  ExtractDBColumns[sales.Transaction](),
		itemCols:    ExtractDBColumns[sales.TransactionItem](),
		paymentCols: ExtractDBColumns[sales.Payment](),
		batchInsert: NewBatchInserter(txManager),
	}
}

var _ sales.Repository = (*SalesRepo)(nil)

// Create writes the transaction, its items, and its payment in the
// caller's transaction.
func (r *SalesRepo) Create(ctx context.Context, t *sales.Transaction) error {
	q := r.builder.Insert(transactionsTable).SetMap(StructToMap(t))

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}

	rows := make([][]any, 0, len(t.Items))
	for _, item := range t.Items {
		rows = append(rows, []any{
			item.ID, item.TransactionID, item.ProductID, item.ProductName,
			item.Quantity, item.PriceAtSale, item.CostAtSale,
		})
	}
	if _, err := r.batchInsert.CopyFromSlice(ctx, transactionItemsTable, r.itemCols, rows); err != nil {
		return fmt.Errorf("copy transaction items: %w", err)
	}

	if t.Payment != nil {
		pq := r.builder.Insert(paymentsTable).SetMap(StructToMap(t.Payment))
		sql, args, err := pq.ToSql()
		if err != nil {
			return fmt.Errorf("build payment insert: %w", err)
		}
		if _, err := querier.Exec(ctx, sql, args...); err != nil {
			return fmt.Errorf("insert payment: %w", err)
		}
	}
	return nil
}

func (r *SalesRepo) loadChildren(ctx context.Context, t *sales.Transaction) error {
	querier := r.txManager.GetQuerier(ctx)

	iq := r.builder.Select(r.itemCols...).From(transactionItemsTable).
		Where(squirrel.Eq{"transaction_id": t.ID}).
		OrderBy("product_name ASC")
	sql, args, err := iq.ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}
	if err := pgxscan.Select(ctx, querier, &t.Items, sql, args...); err != nil {
		return fmt.Errorf("select transaction items: %w", err)
	}

	pq := r.builder.Select(r.paymentCols...).From(paymentsTable).
		Where(squirrel.Eq{"transaction_id": t.ID}).
		Limit(1)
	sql, args, err = pq.ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}
	var payment sales.Payment
	if err := pgxscan.Get(ctx, querier, &payment, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil
		}
		return fmt.Errorf("get payment: %w", err)
	}
	t.Payment = &payment
	return nil
}

// GetByID returns one transaction with items and payment.
func (r *SalesRepo) GetByID(ctx context.Context, txID id.ID) (*sales.Transaction, error) {
	q := r.builder.Select(r.headerCols...).From(transactionsTable).
		Where(squirrel.Eq{"id": txID}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var t sales.Transaction
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &t, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("transaction", txID)
		}
		return nil, fmt.Errorf("get transaction: %w", err)
	}

	if err := r.loadChildren(ctx, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// GetByReceiptNo returns a transaction looked up by receipt number.
func (r *SalesRepo) GetByReceiptNo(ctx context.Context, receiptNo string) (*sales.Transaction, error) {
	q := r.builder.Select(r.headerCols...).From(transactionsTable).
		Where(squirrel.Eq{"receipt_no": receiptNo}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var t sales.Transaction
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &t, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("transaction", receiptNo)
		}
		return nil, fmt.Errorf("get transaction: %w", err)
	}

	if err := r.loadChildren(ctx, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// List returns transactions newest first. Children are loaded per row;
// listing pages are small.
func (r *SalesRepo) List(ctx context.Context, filter sales.ListFilter) ([]sales.Transaction, error) {
	q := r.builder.Select(r.headerCols...).From(transactionsTable)

	if filter.From != nil {
		q = q.Where(squirrel.GtOrEq{"created_at": *filter.From})
	}
	if filter.To != nil {
		q = q.Where(squirrel.LtOrEq{"created_at": *filter.To})
	}
	if filter.UserID != nil {
		q = q.Where(squirrel.Eq{"user_id": *filter.UserID})
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

	var txs []sales.Transaction
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &txs, sql, args...); err != nil {
		return nil, fmt.Errorf("select transactions: %w", err)
	}

	for i := range txs {
		if err := r.loadChildren(ctx, &txs[i]); err != nil {
			return nil, err
		}
	}
	return txs, nil
}

// SummarizeDaily returns per-day gross sales, cost, and profit for
// completed transactions in the range.
func (r *SalesRepo) SummarizeDaily(ctx context.Context, from, to time.Time) ([]sales.DailySummary, error) {
	sql := `
		SELECT date_trunc('day', t.created_at)              AS day,
		       COUNT(DISTINCT t.id)                         AS transaction_count,
		       COALESCE(SUM(ti.price_at_sale * ti.quantity), 0) AS gross_sales,
		       COALESCE(SUM(ti.cost_at_sale * ti.quantity), 0)  AS total_cost,
		       COALESCE(SUM((ti.price_at_sale - ti.cost_at_sale) * ti.quantity), 0) AS gross_profit
		FROM transactions t
		JOIN transaction_items ti ON ti.transaction_id = t.id
		WHERE t.status = 'COMPLETED'
		  AND t.created_at >= $1
		  AND t.created_at < $2
		GROUP BY 1
		ORDER BY 1
	`

	var rows []sales.DailySummary
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &rows, sql, from, to); err != nil {
		return nil, fmt.Errorf("summarize sales: %w", err)
	}
	return rows, nil
}
