package ledger

import (
	"slices"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/flatshop/internal/domain/order"
	"github.com/xenking/flatshop/internal/domain/product"
	"github.com/xenking/flatshop/internal/domain/validate"
)

func testItems() []order.Item {
	return []order.Item{{
		Product:  product.Snapshot{ID: 1, Name: "Keyboard", Price: decimal.RequireFromString("49.90")},
		Quantity: 2,
	}}
}

func TestLedger_CreateStartsPending(t *testing.T) {
	l := New(nil)

	o, err := l.Create("alice", testItems(), decimal.RequireFromString("99.80"), "0123", "1 Main St")
	require.NoError(t, err)

	assert.Equal(t, 1, o.ID)
	assert.Equal(t, order.StatusPending, o.Status)
	assert.Equal(t, "alice", o.Customer)
	assert.Len(t, o.Items, 1)
}

func TestLedger_SetStatus(t *testing.T) {
	l := New(nil)
	o, err := l.Create("alice", testItems(), decimal.NewFromInt(10), "0123", "1 Main St")
	require.NoError(t, err)

	_, err = l.SetStatus(o.ID, order.StatusCompleted)
	require.NoError(t, err)

	got, err := l.Find(o.ID)
	require.NoError(t, err)
	assert.Equal(t, order.StatusCompleted, got.Status)

	// Transitions are unconstrained.
	_, err = l.SetStatus(o.ID, order.StatusPending)
	require.NoError(t, err)

	_, err = l.SetStatus(o.ID, order.Status(9))
	require.ErrorIs(t, err, order.ErrInvalidStatus)

	_, err = l.SetStatus(404, order.StatusCanceled)
	require.ErrorIs(t, err, order.ErrNotFound)
}

func TestLedger_IDsContinueAfterLoadedMax(t *testing.T) {
	l := New([]order.Order{
		{ID: 3, Customer: "a"},
		{ID: 7, Customer: "b"},
		{ID: 5, Customer: "c"},
	})
	assert.Equal(t, 8, l.NextID())

	o, err := l.Create("d", nil, decimal.Zero, "", "")
	require.NoError(t, err)
	assert.Equal(t, 8, o.ID)

	o, err = l.Create("d", nil, decimal.Zero, "", "")
	require.NoError(t, err)
	assert.Equal(t, 9, o.ID)
}

func TestLedger_CreateRejectsReservedCharacters(t *testing.T) {
	l := New(nil)

	_, err := l.Create("alice", testItems(), decimal.Zero, "0123", "1 Main St, Springfield")

	var vErr *validate.Error
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "address", vErr.Field)
	assert.Empty(t, l.All())
	assert.Equal(t, 1, l.NextID())
}

func TestLedger_ForCustomer(t *testing.T) {
	l := New(nil)
	for _, c := range []string{"alice", "bob", "alice"} {
		_, err := l.Create(c, testItems(), decimal.Zero, "", "")
		require.NoError(t, err)
	}

	seq := l.ForCustomer("alice")

	ids := func() []int {
		var out []int
		for o := range seq {
			out = append(out, o.ID)
		}
		return out
	}
	assert.Equal(t, []int{1, 3}, ids())
	// Restartable, and sees later orders.
	_, err := l.Create("alice", testItems(), decimal.Zero, "", "")
	require.NoError(t, err)
	assert.Equal(t, []int{1, 3, 4}, ids())

	assert.Empty(t, slices.Collect(l.ForCustomer("nobody")))
}

func TestLedger_SnapshotsAreCopied(t *testing.T) {
	l := New(nil)
	items := testItems()
	o, err := l.Create("alice", items, decimal.Zero, "", "")
	require.NoError(t, err)

	items[0].Quantity = 99

	got, err := l.Find(o.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Items[0].Quantity)
}
