// Package catalog owns the live product and promotion collections.
package catalog

import (
	"fmt"
	"sync"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/flatshop/internal/domain/product"
	"github.com/xenking/flatshop/internal/domain/promotion"
	"github.com/xenking/flatshop/internal/domain/validate"
)

// ErrInsufficientStock matches every InsufficientStockError.
var ErrInsufficientStock = errors.New("insufficient stock")

var hundred = decimal.NewFromInt(100)

// InsufficientStockError reports a stock adjustment that would drive a
// product's stock below zero.
type InsufficientStockError struct {
	ProductID int
	Name      string
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %d (%s): have %d, need %d",
		e.ProductID, e.Name, e.Available, e.Requested)
}

// Is makes errors.Is(err, ErrInsufficientStock) hold.
func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

// Store holds products and promotions in insertion order.
type Store struct {
	mu         sync.RWMutex
	products   []product.Product
	promotions []promotion.Promotion
}

// New creates a Store seeded with already-decoded collections. Seed data is
// trusted as-is; only later mutations are validated.
func New(products []product.Product, promotions []promotion.Promotion) *Store {
	s := &Store{
		products:   make([]product.Product, 0, len(products)),
		promotions: make([]promotion.Promotion, 0, len(promotions)),
	}
	for _, p := range products {
		s.products = append(s.products, p.Clone())
	}
	for _, p := range promotions {
		s.promotions = append(s.promotions, p.Clone())
	}
	return s
}

// Products returns a copy of all products.
func (s *Store) Products() []product.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]product.Product, len(s.products))
	for i, p := range s.products {
		out[i] = p.Clone()
	}
	return out
}

// FindProduct returns a copy of the product with the given id.
func (s *Store) FindProduct(id int) (product.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := s.indexOf(id)
	if i < 0 {
		return product.Product{}, errors.Wrapf(product.ErrNotFound, "id %d", id)
	}
	return s.products[i].Clone(), nil
}

// AddProduct appends a new product.
func (s *Store) AddProduct(p product.Product) error {
	if err := checkProduct(p.Name, p.Price, p.Stock); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.indexOf(p.ID) >= 0 {
		return &validate.Error{Field: "id", Reason: fmt.Sprintf("product %d already exists", p.ID)}
	}
	s.products = append(s.products, p.Clone())
	return nil
}

// UpdateProduct replaces the product record. The product is rebuilt from the
// given fields, so existing reviews are dropped.
func (s *Store) UpdateProduct(id int, name string, price decimal.Decimal, stock int) error {
	if err := checkProduct(name, price, stock); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return errors.Wrapf(product.ErrNotFound, "id %d", id)
	}
	s.products[i] = product.New(id, name, price, stock)
	return nil
}

// RemoveProduct deletes the product. Promotions referencing it are kept.
func (s *Store) RemoveProduct(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return errors.Wrapf(product.ErrNotFound, "id %d", id)
	}
	s.products = append(s.products[:i], s.products[i+1:]...)
	return nil
}

// AdjustStock adds delta to the product's stock. Stock is left untouched
// when the result would be negative.
func (s *Store) AdjustStock(id, delta int) error {
	return s.AdjustStocks([]product.StockChange{{ProductID: id, Delta: delta}})
}

// AdjustStocks applies all changes or none. Every change is validated first;
// if any fails, the returned error joins one InsufficientStockError per
// failing product and no stock is modified.
func (s *Store) AdjustStocks(changes []product.StockChange) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Net per-product deltas so repeated ids are checked against their sum.
	net := make(map[int]int, len(changes))
	var order []int
	for _, c := range changes {
		if _, ok := net[c.ProductID]; !ok {
			order = append(order, c.ProductID)
		}
		net[c.ProductID] += c.Delta
	}

	// First pass: validate.
	var errs []error
	for _, id := range order {
		i := s.indexOf(id)
		if i < 0 {
			return errors.Wrapf(product.ErrNotFound, "id %d", id)
		}
		p := s.products[i]
		if p.Stock+net[id] < 0 {
			errs = append(errs, &InsufficientStockError{
				ProductID: id,
				Name:      p.Name,
				Available: p.Stock,
				Requested: -net[id],
			})
		}
	}
	if len(errs) > 0 {
		return joinErrors(errs)
	}

	// Second pass: apply.
	for _, id := range order {
		s.products[s.indexOf(id)].Stock += net[id]
	}
	return nil
}

// CheckReview validates a review before it is recorded.
func CheckReview(reviewer string, rating int) error {
	if err := validate.NonEmptyText("reviewer", reviewer); err != nil {
		return err
	}
	if rating < 1 || rating > 5 {
		return &validate.Error{Field: "rating", Reason: "must be between 1 and 5"}
	}
	return nil
}

// AddReview records a rating of 1..5 on the product.
func (s *Store) AddReview(id int, reviewer string, rating int) (product.Product, error) {
	if err := CheckReview(reviewer, rating); err != nil {
		return product.Product{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return product.Product{}, errors.Wrapf(product.ErrNotFound, "id %d", id)
	}
	s.products[i].AddReview(reviewer, rating)
	return s.products[i].Clone(), nil
}

// AttachReviews restores reviews read from the review log. Reviews of
// products no longer in the catalog are returned as skipped.
func (s *Store) AttachReviews(reviews []ProductReview) (skipped int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range reviews {
		i := s.indexOf(r.ProductID)
		if i < 0 {
			skipped++
			continue
		}
		s.products[i].AddReview(r.Reviewer, r.Rating)
	}
	return skipped
}

// ProductReview is a review together with the product it belongs to.
type ProductReview struct {
	ProductID int
	product.Review
}

// Promotions returns a copy of all promotions in insertion order, which is
// also the order the pricing engine scans them.
func (s *Store) Promotions() []promotion.Promotion {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]promotion.Promotion, len(s.promotions))
	for i, p := range s.promotions {
		out[i] = p.Clone()
	}
	return out
}

// FindPromotion returns the promotion with the given id.
func (s *Store) FindPromotion(id int) (promotion.Promotion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.promotions {
		if p.ID == id {
			return p.Clone(), nil
		}
	}
	return promotion.Promotion{}, errors.Wrapf(promotion.ErrNotFound, "id %d", id)
}

// FindPromotionsMatching returns every promotion covering productID, in scan
// order.
func (s *Store) FindPromotionsMatching(productID int) []promotion.Promotion {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []promotion.Promotion
	for _, p := range s.promotions {
		if p.AppliesTo(productID) {
			out = append(out, p.Clone())
		}
	}
	return out
}

// AddPromotion appends a new promotion. It must cover at least one product,
// because the promotions file cannot encode an empty id list.
func (s *Store) AddPromotion(p promotion.Promotion) error {
	if err := validate.Text("description", p.Description); err != nil {
		return err
	}
	if p.DiscountPercent.IsNegative() || p.DiscountPercent.GreaterThan(hundred) {
		return &validate.Error{Field: "discount", Reason: "must be between 0 and 100"}
	}
	if len(p.ProductIDs) == 0 {
		return &validate.Error{Field: "product ids", Reason: "at least one product is required"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.promotions {
		if existing.ID == p.ID {
			return &validate.Error{Field: "id", Reason: fmt.Sprintf("promotion %d already exists", p.ID)}
		}
	}
	s.promotions = append(s.promotions, p.Clone())
	return nil
}

func (s *Store) indexOf(id int) int {
	for i := range s.products {
		if s.products[i].ID == id {
			return i
		}
	}
	return -1
}

func checkProduct(name string, price decimal.Decimal, stock int) error {
	if err := validate.NonEmptyText("name", name); err != nil {
		return err
	}
	if price.IsNegative() {
		return &validate.Error{Field: "price", Reason: "must not be negative"}
	}
	if stock < 0 {
		return &validate.Error{Field: "stock", Reason: "must not be negative"}
	}
	return nil
}
