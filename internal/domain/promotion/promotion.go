package promotion

import (
	"slices"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested promotion does not exist.
var ErrNotFound = errors.New("promotion not found")

// Promotion is a percentage discount applied to a fixed set of products.
// Promotions have no edit path; they are immutable once added.
type Promotion struct {
	ID              int
	Description     string
	DiscountPercent decimal.Decimal
	// ProductIDs may be empty in memory and may reference products that
	// no longer exist in the catalog.
	ProductIDs []int
}

// AppliesTo reports whether the promotion covers the given product.
func (p Promotion) AppliesTo(productID int) bool {
	return slices.Contains(p.ProductIDs, productID)
}

// Clone returns a copy that does not share the id slice.
func (p Promotion) Clone() Promotion {
	p.ProductIDs = slices.Clone(p.ProductIDs)
	return p
}
