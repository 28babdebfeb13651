package audit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"minimart/internal/core/id"
	"minimart/internal/core/types"
)

func TestMetadataRoundTrip(t *testing.T) {
	orderID := id.New()

	raw, err := EncodeMetadata(OrderShortageMeta{
		OrderID:        orderID,
		OrderNo:        "SO-2026-00007",
		ProductName:    "Nescafe 3in1 Twin Pack",
		QuantityShort:  4,
		Reason:         "DAMAGE",
		ItemRemoved:    true,
		OrderCancelled: false,
	})
	require.NoError(t, err)

	decoded, err := DecodeMetadata(raw)
	require.NoError(t, err)

	meta, ok := decoded.(*OrderShortageMeta)
	require.True(t, ok)
	assert.Equal(t, orderID, meta.OrderID)
	assert.Equal(t, int64(4), meta.QuantityShort)
	assert.Equal(t, ActionOrderShortage, meta.Kind())
	assert.True(t, meta.ItemRemoved)
}

func TestDecodeMetadataUnknownKind(t *testing.T) {
	_, err := DecodeMetadata([]byte(`{"kind":"NOPE","data":{}}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown audit metadata kind")
}

func TestEncodeMetadataNil(t *testing.T) {
	raw, err := EncodeMetadata(nil)
	require.NoError(t, err)
	assert.Nil(t, raw)

	meta, err := DecodeMetadata(nil)
	require.NoError(t, err)
	assert.Nil(t, meta)
}

func TestCancelMetaCarriesMoney(t *testing.T) {
	raw, err := EncodeMetadata(OrderCancelMeta{
		OrderID:     id.New(),
		OrderNo:     "SO-2026-00010",
		CustomerID:  id.New(),
		TotalAmount: types.MustMoney("1250.50"),
		Reason:      "customer request",
	})
	require.NoError(t, err)

	decoded, err := DecodeMetadata(raw)
	require.NoError(t, err)
	meta := decoded.(*OrderCancelMeta)
	assert.True(t, meta.TotalAmount.Equal(types.MustMoney("1250.50")))
}
