package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/flatshop/internal/domain/cart"
	"github.com/xenking/flatshop/internal/domain/product"
	"github.com/xenking/flatshop/internal/domain/promotion"
)

func d(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func line(id int, price string, qty int) cart.Line {
	return cart.Line{
		Product:  product.Snapshot{ID: id, Name: "p", Price: d(price)},
		Quantity: qty,
	}
}

func TestCalculateTotal(t *testing.T) {
	tests := []struct {
		name       string
		lines      []cart.Line
		promotions []promotion.Promotion
		want       decimal.Decimal
	}{
		{
			name:  "10% off two units at $10",
			lines: []cart.Line{line(1, "10", 2)},
			promotions: []promotion.Promotion{
				{ID: 1, DiscountPercent: d("10"), ProductIDs: []int{1}},
			},
			want: d("18"),
		},
		{
			name:  "no promotions",
			lines: []cart.Line{line(1, "9.99", 3), line(2, "0.01", 1)},
			want:  d("29.98"),
		},
		{
			name:  "first matching promotion wins over a larger one",
			lines: []cart.Line{line(1, "100", 1)},
			promotions: []promotion.Promotion{
				{ID: 1, DiscountPercent: d("5"), ProductIDs: []int{1}},
				{ID: 2, DiscountPercent: d("50"), ProductIDs: []int{1}},
			},
			want: d("95"),
		},
		{
			name:  "promotion for another product is ignored",
			lines: []cart.Line{line(1, "20", 1), line(2, "30", 2)},
			promotions: []promotion.Promotion{
				{ID: 1, DiscountPercent: d("50"), ProductIDs: []int{2}},
			},
			want: d("50"),
		},
		{
			name:  "100% off is free",
			lines: []cart.Line{line(7, "12.50", 4)},
			promotions: []promotion.Promotion{
				{ID: 3, DiscountPercent: d("100"), ProductIDs: []int{3, 7}},
			},
			want: d("0"),
		},
		{
			name:  "discount above 100 is not clamped",
			lines: []cart.Line{line(1, "10", 1)},
			promotions: []promotion.Promotion{
				{ID: 1, DiscountPercent: d("150"), ProductIDs: []int{1}},
			},
			want: d("-5"),
		},
		{
			name:  "empty cart",
			lines: nil,
			want:  d("0"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CalculateTotal(tt.lines, tt.promotions)
			assert.True(t, tt.want.Equal(got), "expected %s, got %s", tt.want, got)
		})
	}
}

func TestCalculateTotal_TieBreakEqualsFirstOnly(t *testing.T) {
	lines := []cart.Line{line(1, "40", 3)}
	first := promotion.Promotion{ID: 1, DiscountPercent: d("15"), ProductIDs: []int{1}}
	second := promotion.Promotion{ID: 2, DiscountPercent: d("60"), ProductIDs: []int{1}}

	both := CalculateTotal(lines, []promotion.Promotion{first, second})
	onlyFirst := CalculateTotal(lines, []promotion.Promotion{first})

	assert.True(t, onlyFirst.Equal(both), "expected %s, got %s", onlyFirst, both)
}

func TestFindPromotion(t *testing.T) {
	promos := []promotion.Promotion{
		{ID: 1, DiscountPercent: d("5"), ProductIDs: []int{2}},
		{ID: 2, DiscountPercent: d("10"), ProductIDs: []int{1, 2}},
	}

	got, ok := FindPromotion(1, promos)
	require.True(t, ok)
	assert.Equal(t, 2, got.ID)

	_, ok = FindPromotion(9, promos)
	assert.False(t, ok)
}
