// Package cart holds the ephemeral per-session shopping cart.
package cart

import (
	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/xenking/flatshop/internal/domain/product"
)

// ErrInvalidQuantity is returned when a line is added with a quantity below 1.
var ErrInvalidQuantity = errors.New("quantity must be greater than 0")

// Line is a single cart entry: the product as it looked when first added,
// and how many units the customer wants.
type Line struct {
	Product  product.Snapshot
	Quantity int
}

// Cart is an ordered mapping from product id to line. It is never persisted
// on its own; checkout turns it into an order.
type Cart struct {
	ID    uuid.UUID
	lines []Line
}

// New returns an empty cart with a fresh session id.
func New() *Cart {
	return &Cart{ID: uuid.New()}
}

// Add puts qty units of p into the cart. If the product is already present
// the quantity is increased and the first snapshot is kept.
func (c *Cart) Add(p product.Snapshot, qty int) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	for i := range c.lines {
		if c.lines[i].Product.ID == p.ID {
			c.lines[i].Quantity += qty
			return nil
		}
	}
	c.lines = append(c.lines, Line{Product: p, Quantity: qty})
	return nil
}

// Remove drops the line for productID. Removing an absent id is a no-op.
func (c *Cart) Remove(productID int) {
	for i := range c.lines {
		if c.lines[i].Product.ID == productID {
			c.lines = append(c.lines[:i], c.lines[i+1:]...)
			return
		}
	}
}

// Items returns a copy of the cart lines in insertion order.
func (c *Cart) Items() []Line {
	return append([]Line(nil), c.lines...)
}

// Len returns the number of distinct products in the cart.
func (c *Cart) Len() int {
	return len(c.lines)
}

// Clear empties the cart.
func (c *Cart) Clear() {
	c.lines = nil
}
