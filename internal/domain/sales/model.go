// Package sales holds immutable sale records: transactions, their line
// items with point-in-time price and cost captures, and payments.
package sales

import (
	"time"

	"minimart/internal/core/apperror"
	"minimart/internal/core/id"
	"minimart/internal/core/types"
)

// PaymentMethod is how the customer paid.
type PaymentMethod string

const (
	PaymentCash  PaymentMethod = "CASH"
	PaymentGcash PaymentMethod = "GCASH"
)

// IsValidPaymentMethod reports whether m is a supported method.
func IsValidPaymentMethod(m PaymentMethod) bool {
	return m == PaymentCash || m == PaymentGcash
}

// TransactionStatus is the record state. Sales are written COMPLETED;
// VOIDED exists for manager corrections.
type TransactionStatus string

const (
	TxCompleted TransactionStatus = "COMPLETED"
	TxVoided    TransactionStatus = "VOIDED"
)

// Transaction is one finalized sale, retail or wholesale. OrderID is
// set only for wholesale sales converted from an order.
type Transaction struct {
	ID          id.ID             `db:"id" json:"id"`
	ReceiptNo   string            `db:"receipt_no" json:"receiptNo"`
	OrderID     *id.ID            `db:"order_id" json:"orderId,omitempty"`
	CustomerID  *id.ID            `db:"customer_id" json:"customerId,omitempty"`
	UserID      string            `db:"user_id" json:"userId"`
	TotalAmount types.Money       `db:"total_amount" json:"totalAmount"`
	Status      TransactionStatus `db:"status" json:"status"`
	CreatedAt   time.Time         `db:"created_at" json:"createdAt"`

	Items   []TransactionItem `db:"-" json:"items"`
	Payment *Payment          `db:"-" json:"payment,omitempty"`
}

// TransactionItem captures a sold line. PriceAtSale and CostAtSale are
// frozen at completion time so margin reports stay correct when catalog
// prices move later.
type TransactionItem struct {
	ID            id.ID       `db:"id" json:"id"`
	TransactionID id.ID       `db:"transaction_id" json:"transactionId"`
	ProductID     id.ID       `db:"product_id" json:"productId"`
	ProductName   string      `db:"product_name" json:"productName"`
	Quantity      int64       `db:"quantity" json:"quantity"`
	PriceAtSale   types.Money `db:"price_at_sale" json:"priceAtSale"`
	CostAtSale    types.Money `db:"cost_at_sale" json:"costAtSale"`
}

// Subtotal returns quantity times unit price.
func (i TransactionItem) Subtotal() types.Money {
	return types.MoneyFromUnits(i.PriceAtSale, i.Quantity)
}

// Payment is the single payment row owned by a transaction.
type Payment struct {
	ID               id.ID         `db:"id" json:"id"`
	TransactionID    id.ID         `db:"transaction_id" json:"transactionId"`
	Method           PaymentMethod `db:"method" json:"method"`
	AmountTendered   types.Money   `db:"amount_tendered" json:"amountTendered"`
	Change           types.Money   `db:"change" json:"change"`
	GcashReferenceNo *string       `db:"gcash_reference_no" json:"gcashReferenceNo,omitempty"`
	CreatedAt        time.Time     `db:"created_at" json:"createdAt"`
}

// Validate checks payment fields against the method.
func (p *Payment) Validate() error {
	if !IsValidPaymentMethod(p.Method) {
		return apperror.NewValidation("unsupported payment method: " + string(p.Method))
	}
	if p.Method == PaymentGcash && (p.GcashReferenceNo == nil || *p.GcashReferenceNo == "") {
		return apperror.NewValidation("GCASH payments require a reference number")
	}
	if p.AmountTendered.IsNegative() || p.Change.IsNegative() {
		return apperror.NewValidation("payment amounts cannot be negative")
	}
	return nil
}

// Receipt is the printable view of a transaction handed back to the
// caller after completion. Formatting is the client's job.
type Receipt struct {
	ReceiptNo      string        `json:"receiptNo"`
	TransactionID  id.ID         `json:"transactionId"`
	Items          []ReceiptLine `json:"items"`
	TotalAmount    types.Money   `json:"totalAmount"`
	PaymentMethod  PaymentMethod `json:"paymentMethod"`
	AmountTendered types.Money   `json:"amountTendered"`
	Change         types.Money   `json:"change"`
	IssuedAt       time.Time     `json:"issuedAt"`
}

// ReceiptLine is one printed row.
type ReceiptLine struct {
	ProductName string      `json:"productName"`
	Quantity    int64       `json:"quantity"`
	UnitPrice   types.Money `json:"unitPrice"`
	Subtotal    types.Money `json:"subtotal"`
}

// BuildReceipt assembles the printable view from a stored transaction.
func BuildReceipt(tx *Transaction) Receipt {
	r := Receipt{
		ReceiptNo:     tx.ReceiptNo,
		TransactionID: tx.ID,
		TotalAmount:   tx.TotalAmount,
		IssuedAt:      tx.CreatedAt,
	}
	for _, item := range tx.Items {
		r.Items = append(r.Items, ReceiptLine{
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			UnitPrice:   item.PriceAtSale,
			Subtotal:    item.Subtotal(),
		})
	}
	if tx.Payment != nil {
		r.PaymentMethod = tx.Payment.Method
		r.AmountTendered = tx.Payment.AmountTendered
		r.Change = tx.Payment.Change
	}
	return r
}
