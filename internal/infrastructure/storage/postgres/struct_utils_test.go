package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"minimart/internal/core/entity"
	"minimart/internal/core/types"
)

type mockProduct struct {
	entity.Base
	Name     string      `db:"name" json:"name"`
	Barcode  *string     `db:"barcode" json:"barcode"`
	Price    types.Money `db:"retail_price" json:"retailPrice"`
	Internal string      `db:"-"`
	NoTag    string
}

func TestExtractDBColumns(t *testing.T) {
	cols := ExtractDBColumns[mockProduct]()

	expected := []string{"id", "version", "created_at", "updated_at", "name", "barcode", "retail_price"}
	for _, col := range expected {
		assert.Contains(t, cols, col)
	}
	assert.NotContains(t, cols, "-")
	assert.Len(t, cols, len(expected))
}

func TestStructToMap(t *testing.T) {
	barcode := "4800016644931"
	p := mockProduct{
		Base:    entity.NewBase(),
		Name:    "C2 Apple 500ml",
		Barcode: &barcode,
		Price:   types.MustMoney("18.00"),
	}

	m := StructToMap(p)

	assert.Equal(t, p.ID, m["id"])
	assert.Equal(t, 1, m["version"])
	assert.Equal(t, "C2 Apple 500ml", m["name"])
	assert.Equal(t, &barcode, m["barcode"])
	_, hasIgnored := m["-"]
	assert.False(t, hasIgnored)
	assert.NotContains(t, m, "Internal")
	assert.NotContains(t, m, "NoTag")
}
