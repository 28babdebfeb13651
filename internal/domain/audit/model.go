// Package audit records who did what across the store: order
// cancellations, shortages, sales, and stock corrections. Entries are
// append-only and carry a typed metadata payload per action kind, so
// every action's required fields are checked at compile time instead of
// living in an untyped map.
package audit

import (
	"encoding/json"
	"fmt"
	"time"

	"minimart/internal/core/id"
	"minimart/internal/core/types"
)

// Action identifies what happened.
type Action string

const (
	ActionOrderCancel     Action = "ORDER_CANCEL"
	ActionOrderShortage   Action = "ORDER_SHORTAGE"
	ActionOrderAutoCancel Action = "ORDER_AUTO_CANCEL"
	ActionSale            Action = "SALE"
	ActionRestock         Action = "RESTOCK"
	ActionAdjustStock     Action = "ADJUST_STOCK"
)

// Metadata is the typed payload attached to an entry. Each action kind
// has its own struct; Kind ties the struct back to its action for
// decoding.
type Metadata interface {
	Kind() Action
}

// OrderCancelMeta documents a manual cancellation.
type OrderCancelMeta struct {
	OrderID     id.ID       `json:"orderId"`
	OrderNo     string      `json:"orderNo"`
	CustomerID  id.ID       `json:"customerId"`
	TotalAmount types.Money `json:"totalAmount"`
	Reason      string      `json:"reason,omitempty"`
}

func (OrderCancelMeta) Kind() Action { return ActionOrderCancel }

// OrderShortageMeta documents an item marked unavailable while packing.
type OrderShortageMeta struct {
	OrderID        id.ID  `json:"orderId"`
	OrderNo        string `json:"orderNo"`
	ProductName    string `json:"productName"`
	QuantityShort  int64  `json:"quantityShort"`
	Reason         string `json:"reason"`
	Notes          string `json:"notes,omitempty"`
	ItemRemoved    bool   `json:"itemRemoved"`
	OrderCancelled bool   `json:"orderCancelled"`
}

func (OrderShortageMeta) Kind() Action { return ActionOrderShortage }

// OrderAutoCancelMeta documents an expiry-sweep cancellation.
type OrderAutoCancelMeta struct {
	OrderID        id.ID       `json:"orderId"`
	OrderNo        string      `json:"orderNo"`
	CustomerID     id.ID       `json:"customerId"`
	TotalAmount    types.Money `json:"totalAmount"`
	HoursThreshold int         `json:"hoursThreshold"`
}

func (OrderAutoCancelMeta) Kind() Action { return ActionOrderAutoCancel }

// SaleMeta documents a completed sale, retail or wholesale.
type SaleMeta struct {
	TransactionID id.ID       `json:"transactionId"`
	ReceiptNo     string      `json:"receiptNo"`
	OrderID       *id.ID      `json:"orderId,omitempty"`
	TotalAmount   types.Money `json:"totalAmount"`
	PaymentMethod string      `json:"paymentMethod"`
	ItemCount     int         `json:"itemCount"`
}

func (SaleMeta) Kind() Action { return ActionSale }

// RestockMeta documents incoming stock.
type RestockMeta struct {
	ProductID   id.ID  `json:"productId"`
	ProductName string `json:"productName"`
	Quantity    int64  `json:"quantity"`
	NewStock    int64  `json:"newStock"`
	Reference   string `json:"reference,omitempty"`
}

func (RestockMeta) Kind() Action { return ActionRestock }

// AdjustStockMeta documents a manual counter correction or write-off.
type AdjustStockMeta struct {
	ProductID    id.ID  `json:"productId"`
	ProductName  string `json:"productName"`
	Delta        int64  `json:"delta"`
	MovementType string `json:"movementType"`
	Reason       string `json:"reason,omitempty"`
	NewStock     int64  `json:"newStock"`
}

func (AdjustStockMeta) Kind() Action { return ActionAdjustStock }

// Entry is one audit row. ActorID is never defaulted: every entry names
// the authenticated user (or the literal "system" for the expiry
// sweep).
type Entry struct {
	ID         id.ID     `db:"id" json:"id"`
	Action     Action    `db:"action" json:"action"`
	EntityType string    `db:"entity_type" json:"entityType"`
	EntityID   string    `db:"entity_id" json:"entityId"`
	ActorID    string    `db:"actor_id" json:"actorId"`
	ActorName  string    `db:"actor_name" json:"actorName"`
	Metadata   Metadata  `db:"-" json:"metadata"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
}

type metadataEnvelope struct {
	Kind Action          `json:"kind"`
	Data json.RawMessage `json:"data"`
}

// EncodeMetadata serializes a typed payload with its kind tag.
func EncodeMetadata(m Metadata) ([]byte, error) {
	if m == nil {
		return nil, nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("marshal audit metadata: %w", err)
	}
	return json.Marshal(metadataEnvelope{Kind: m.Kind(), Data: data})
}

// DecodeMetadata restores a typed payload from its envelope.
func DecodeMetadata(raw []byte) (Metadata, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var env metadataEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("unmarshal audit envelope: %w", err)
	}

	var m Metadata
	switch env.Kind {
	case ActionOrderCancel:
		m = &OrderCancelMeta{}
	case ActionOrderShortage:
		m = &OrderShortageMeta{}
	case ActionOrderAutoCancel:
		m = &OrderAutoCancelMeta{}
	case ActionSale:
		m = &SaleMeta{}
	case ActionRestock:
		m = &RestockMeta{}
	case ActionAdjustStock:
		m = &AdjustStockMeta{}
	default:
		return nil, fmt.Errorf("unknown audit metadata kind: %s", env.Kind)
	}
	if err := json.Unmarshal(env.Data, m); err != nil {
		return nil, fmt.Errorf("unmarshal %s metadata: %w", env.Kind, err)
	}
	return m, nil
}
