// Package pricing computes cart totals under the store's promotion rules.
package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/xenking/flatshop/internal/domain/cart"
	"github.com/xenking/flatshop/internal/domain/promotion"
)

var (
	hundred = decimal.NewFromInt(100)
	one     = decimal.NewFromInt(1)
)

// CalculateTotal returns the sum of all line amounts. Each line gets the
// discount of the first promotion (in the given order) that covers its
// product; promotions never stack, and a later larger discount is ignored.
//
// Discounts above 100 are not clamped and yield negative line amounts.
func CalculateTotal(lines []cart.Line, promotions []promotion.Promotion) decimal.Decimal {
	total := decimal.Zero
	for _, line := range lines {
		total = total.Add(LineAmount(line, discountFor(line.Product.ID, promotions)))
	}
	return total
}

// LineAmount returns price * quantity * (1 - discount/100).
func LineAmount(line cart.Line, discountPercent decimal.Decimal) decimal.Decimal {
	qty := decimal.NewFromInt(int64(line.Quantity))
	factor := one.Sub(discountPercent.Div(hundred))
	return line.Product.Price.Mul(qty).Mul(factor)
}

// FindPromotion returns the first promotion covering productID.
func FindPromotion(productID int, promotions []promotion.Promotion) (promotion.Promotion, bool) {
	for _, p := range promotions {
		if p.AppliesTo(productID) {
			return p, true
		}
	}
	return promotion.Promotion{}, false
}

func discountFor(productID int, promotions []promotion.Promotion) decimal.Decimal {
	if p, ok := FindPromotion(productID, promotions); ok {
		return p.DiscountPercent
	}
	return decimal.Zero
}
