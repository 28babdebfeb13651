package order

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"minimart/internal/core/id"
	"minimart/internal/core/types"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to Status
		want     bool
	}{
		{StatusPending, StatusPreparing, true},
		{StatusPreparing, StatusReady, true},
		{StatusReady, StatusCompleted, true},
		{StatusPending, StatusCancelled, true},
		{StatusPreparing, StatusCancelled, true},
		{StatusReady, StatusCancelled, true},

		{StatusPending, StatusReady, false},
		{StatusPending, StatusCompleted, false},
		{StatusPreparing, StatusCompleted, false},
		{StatusReady, StatusPreparing, false},
		{StatusCompleted, StatusCancelled, false},
		{StatusCancelled, StatusPending, false},
		{StatusCompleted, StatusPending, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, CanTransition(tc.from, tc.to),
			"%s -> %s", tc.from, tc.to)
	}
}

func TestIsTerminal(t *testing.T) {
	assert.True(t, StatusCompleted.IsTerminal())
	assert.True(t, StatusCancelled.IsTerminal())
	assert.False(t, StatusPending.IsTerminal())
	assert.False(t, StatusPreparing.IsTerminal())
	assert.False(t, StatusReady.IsTerminal())
}

func TestRecalculateTotal(t *testing.T) {
	o := &Order{
		Items: []Item{
			{Quantity: 3, Price: types.MustMoney("50")},
			{Quantity: 2, Price: types.MustMoney("12.25")},
		},
	}
	o.RecalculateTotal()
	assert.True(t, o.TotalAmount.Equal(types.MustMoney("174.50")),
		"got %s", o.TotalAmount)
}

func TestRemoveItem(t *testing.T) {
	first, second := id.New(), id.New()
	o := &Order{Items: []Item{{ID: first}, {ID: second}}}

	o.RemoveItem(first)
	assert.Len(t, o.Items, 1)
	assert.Nil(t, o.FindItem(first))
	assert.NotNil(t, o.FindItem(second))
}
