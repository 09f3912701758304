package product

import (
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// Product represents a catalog item available for purchase.
type Product struct {
	ID      int
	Name    string
	Price   decimal.Decimal
	Stock   int
	Reviews []Review
}

// Review is a single customer rating left on a product.
type Review struct {
	Reviewer string
	Rating   int
}

// Snapshot is the part of a product captured into carts and orders. It is
// copied by value so later catalog edits never reach historical orders.
type Snapshot struct {
	ID    int
	Name  string
	Price decimal.Decimal
}

// New returns a product without reviews.
func New(id int, name string, price decimal.Decimal, stock int) Product {
	return Product{ID: id, Name: name, Price: price, Stock: stock}
}

// AddReview appends a review. The rating is not range-checked here; the
// catalog enforces 1..5 before calling it.
func (p *Product) AddReview(reviewer string, rating int) {
	p.Reviews = append(p.Reviews, Review{Reviewer: reviewer, Rating: rating})
}

// Snapshot captures the product's identity and price.
func (p Product) Snapshot() Snapshot {
	return Snapshot{ID: p.ID, Name: p.Name, Price: p.Price}
}

// Clone returns a deep copy, so callers can't alias the reviews slice.
func (p Product) Clone() Product {
	if p.Reviews != nil {
		p.Reviews = append([]Review(nil), p.Reviews...)
	}
	return p
}

// StockChange is a signed stock adjustment for one product. Checkout uses
// negative deltas.
type StockChange struct {
	ProductID int
	Delta     int
}
