package order

import (
	"context"
	"iter"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/flatshop/internal/domain/cart"
	"github.com/xenking/flatshop/internal/domain/product"
	"github.com/xenking/flatshop/internal/domain/promotion"
	"github.com/xenking/flatshop/internal/domain/validate"
	"github.com/xenking/flatshop/internal/pricing"
)

// ErrEmptyCart is returned when checking out a cart with no lines.
var ErrEmptyCart = errors.New("cart is empty")

// Catalog is the part of the catalog store checkout needs.
type Catalog interface {
	FindProduct(id int) (product.Product, error)
	Promotions() []promotion.Promotion
	AdjustStocks(changes []product.StockChange) error
}

// Ledger records orders.
type Ledger interface {
	Create(customer string, items []Item, total decimal.Decimal, phone, address string) (Order, error)
	SetStatus(id int, status Status) (Order, error)
	ForCustomer(username string) iter.Seq[Order]
}

// Saver persists the whole store after a change.
type Saver interface {
	Save(ctx context.Context) error
}

// CheckoutRequest holds the input for turning a cart into an order.
type CheckoutRequest struct {
	Customer string
	Cart     *cart.Cart
	Phone    string
	Address  string
}

// Service encapsulates the cart and order business logic.
type Service struct {
	catalog Catalog
	ledger  Ledger
	saver   Saver
}

// NewService creates an order Service with the required dependencies.
func NewService(catalog Catalog, ledger Ledger, saver Saver) *Service {
	return &Service{
		catalog: catalog,
		ledger:  ledger,
		saver:   saver,
	}
}

// AddToCart snapshots the catalog product into the cart. Stock is checked
// at checkout, not here.
func (s *Service) AddToCart(c *cart.Cart, productID, qty int) error {
	p, err := s.catalog.FindProduct(productID)
	if err != nil {
		return err
	}
	return c.Add(p.Snapshot(), qty)
}

// Checkout prices the cart, withdraws stock for every line, records a
// Pending order, clears the cart and saves. Lines are priced at their
// add-time snapshot. If any line is short on stock nothing is withdrawn.
func (s *Service) Checkout(ctx context.Context, req CheckoutRequest) (*Order, error) {
	if req.Cart == nil || req.Cart.Len() == 0 {
		return nil, ErrEmptyCart
	}
	if err := validate.NonEmptyText("customer", req.Customer); err != nil {
		return nil, err
	}
	if err := validate.Text("phone", req.Phone); err != nil {
		return nil, err
	}
	if err := validate.Text("address", req.Address); err != nil {
		return nil, err
	}

	lines := req.Cart.Items()
	total := pricing.CalculateTotal(lines, s.catalog.Promotions()).Round(2)

	items := make([]Item, len(lines))
	withdraw := make([]product.StockChange, len(lines))
	for i, l := range lines {
		items[i] = Item{Product: l.Product, Quantity: l.Quantity}
		withdraw[i] = product.StockChange{ProductID: l.Product.ID, Delta: -l.Quantity}
	}

	if err := s.catalog.AdjustStocks(withdraw); err != nil {
		return nil, errors.Wrap(err, "withdraw stock")
	}

	o, err := s.ledger.Create(req.Customer, items, total, req.Phone, req.Address)
	if err != nil {
		if rbErr := s.catalog.AdjustStocks(restock(withdraw)); rbErr != nil {
			return nil, errors.Wrapf(err, "create order (restock failed: %v)", rbErr)
		}
		return nil, errors.Wrap(err, "create order")
	}
	req.Cart.Clear()

	if err := s.saver.Save(ctx); err != nil {
		return &o, errors.Wrap(err, "save")
	}
	return &o, nil
}

// UpdateStatus sets the order status and saves.
func (s *Service) UpdateStatus(ctx context.Context, id int, status Status) (*Order, error) {
	o, err := s.ledger.SetStatus(id, status)
	if err != nil {
		return nil, err
	}
	if err := s.saver.Save(ctx); err != nil {
		return &o, errors.Wrap(err, "save")
	}
	return &o, nil
}

// History yields the customer's orders in creation order.
func (s *Service) History(customer string) iter.Seq[Order] {
	return s.ledger.ForCustomer(customer)
}

func restock(changes []product.StockChange) []product.StockChange {
	out := make([]product.StockChange, len(changes))
	for i, c := range changes {
		out[i] = product.StockChange{ProductID: c.ProductID, Delta: -c.Delta}
	}
	return out
}
