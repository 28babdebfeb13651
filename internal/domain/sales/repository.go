package sales

import (
	"context"
	"time"

	"minimart/internal/core/id"
	"minimart/internal/core/types"
)

// ListFilter narrows transaction queries.
type ListFilter struct {
	From   *time.Time
	To     *time.Time
	UserID *string
	Limit  int
	Offset int
}

// DailySummary is one row of the sales report.
type DailySummary struct {
	Day              time.Time   `db:"day" json:"day"`
	TransactionCount int64       `db:"transaction_count" json:"transactionCount"`
	GrossSales       types.Money `db:"gross_sales" json:"grossSales"`
	TotalCost        types.Money `db:"total_cost" json:"totalCost"`
	GrossProfit      types.Money `db:"gross_profit" json:"grossProfit"`
}

// Repository persists sale records. Create writes the transaction, its
// items, and its payment in the caller's transaction; records are never
// updated afterwards apart from voiding.
type Repository interface {
	Create(ctx context.Context, tx *Transaction) error
	GetByID(ctx context.Context, txID id.ID) (*Transaction, error)
	GetByReceiptNo(ctx context.Context, receiptNo string) (*Transaction, error)
	List(ctx context.Context, filter ListFilter) ([]Transaction, error)
	SummarizeDaily(ctx context.Context, from, to time.Time) ([]DailySummary, error)
}
