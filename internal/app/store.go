package app

import (
	"context"
	"slices"
	"sync"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/flatshop/internal/catalog"
	"github.com/xenking/flatshop/internal/domain/order"
	"github.com/xenking/flatshop/internal/domain/product"
	"github.com/xenking/flatshop/internal/domain/promotion"
	"github.com/xenking/flatshop/internal/ledger"
	"github.com/xenking/flatshop/internal/storage/textfile"
)

var (
	// ErrUserExists is returned when registering a taken username.
	ErrUserExists = errors.New("user already exists")
	// ErrUserNotFound is returned when editing or removing an unknown user.
	ErrUserNotFound = errors.New("user not found")
	// ErrProductInUse is returned when removing a product that orders refer
	// to, since the orders file could no longer be loaded.
	ErrProductInUse = errors.New("product is referenced by orders")
)

var _ order.Saver = (*Store)(nil)

// Store bundles the in-memory collections loaded from the data files and
// writes them back on Save.
type Store struct {
	cfg *Config

	Catalog *catalog.Store
	Ledger  *ledger.Ledger
	Orders  *order.Service

	mu sync.Mutex // serializes file writes

	ordersCreated metric.Int64Counter
	saves         metric.Int64Counter
	saveErrors    metric.Int64Counter
}

// Open loads every data file named by cfg. Products and promotions are read
// concurrently; orders need the products to resolve their items.
func Open(ctx context.Context, cfg *Config, mp metric.MeterProvider) (*Store, error) {
	lg := zctx.From(ctx)

	var (
		products   []product.Product
		promotions []promotion.Promotion
	)
	g, _ := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		products, err = textfile.LoadCatalog(cfg.path(cfg.ProductsFile))
		return err
	})
	g.Go(func() (err error) {
		promotions, err = textfile.LoadPromotions(cfg.path(cfg.PromotionsFile))
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	orders, err := textfile.LoadOrders(cfg.path(cfg.OrdersFile), products)
	if err != nil {
		return nil, err
	}
	reviews, err := textfile.LoadReviews(cfg.path(cfg.ReviewsFile))
	if err != nil {
		return nil, err
	}

	s := &Store{
		cfg:     cfg,
		Catalog: catalog.New(products, promotions),
		Ledger:  ledger.New(orders),
	}
	skipped := s.Catalog.AttachReviews(reviews)
	if skipped > 0 {
		lg.Warn("Skipped reviews of removed products", zap.Int("count", skipped))
	}
	s.Orders = order.NewService(s.Catalog, s.Ledger, s)

	if err := s.initMetrics(mp); err != nil {
		return nil, errors.Wrap(err, "init metrics")
	}

	lg.Debug("Store loaded",
		zap.Int("products", len(products)),
		zap.Int("promotions", len(promotions)),
		zap.Int("orders", len(orders)),
		zap.Int("reviews", len(reviews)-skipped),
	)
	return s, nil
}

func (s *Store) initMetrics(mp metric.MeterProvider) (err error) {
	meter := mp.Meter("github.com/xenking/flatshop/internal/app")
	if s.ordersCreated, err = meter.Int64Counter("store.orders.created",
		metric.WithDescription("Orders created by checkout"),
	); err != nil {
		return err
	}
	if s.saves, err = meter.Int64Counter("store.saves",
		metric.WithDescription("Whole-store saves"),
	); err != nil {
		return err
	}
	if s.saveErrors, err = meter.Int64Counter("store.save.errors",
		metric.WithDescription("Failed whole-store saves"),
	); err != nil {
		return err
	}
	return nil
}

// Save rewrites the products, promotions and orders files from the current
// in-memory state. Each file is replaced atomically on its own.
func (s *Store) Save(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	products := s.Catalog.Products()
	promotions := s.Catalog.Promotions()
	orders := s.Ledger.All()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := gctx.Err(); err != nil {
			return err
		}
		return textfile.SaveCatalog(products, s.cfg.path(s.cfg.ProductsFile))
	})
	g.Go(func() error {
		if err := gctx.Err(); err != nil {
			return err
		}
		return textfile.SavePromotions(promotions, s.cfg.path(s.cfg.PromotionsFile))
	})
	g.Go(func() error {
		if err := gctx.Err(); err != nil {
			return err
		}
		return textfile.SaveOrders(orders, s.cfg.path(s.cfg.OrdersFile))
	})

	s.saves.Add(ctx, 1)
	if err := g.Wait(); err != nil {
		s.saveErrors.Add(ctx, 1)
		zctx.From(ctx).Error("Save failed", zap.Error(err))
		return err
	}
	return nil
}

// Checkout runs the checkout service and counts created orders.
func (s *Store) Checkout(ctx context.Context, req order.CheckoutRequest) (*order.Order, error) {
	o, err := s.Orders.Checkout(ctx, req)
	if o != nil {
		s.ordersCreated.Add(ctx, 1)
	}
	return o, err
}

// AddReview records a rating on a product. The review log is appended
// first, so a failed write leaves the catalog unchanged.
func (s *Store) AddReview(id int, reviewer string, rating int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := catalog.CheckReview(reviewer, rating); err != nil {
		return err
	}
	p, err := s.Catalog.FindProduct(id)
	if err != nil {
		return err
	}
	if err := textfile.AppendReview(p, reviewer, rating, s.cfg.path(s.cfg.ReviewsFile)); err != nil {
		return err
	}
	_, err = s.Catalog.AddReview(id, reviewer, rating)
	return err
}

// UpdateProduct replaces a product record and saves. The product's reviews
// are dropped from the review log as well as from memory.
func (s *Store) UpdateProduct(ctx context.Context, id int, name string, price decimal.Decimal, stock int) error {
	if err := s.Catalog.UpdateProduct(id, name, price, stock); err != nil {
		return err
	}
	if err := s.saveReviews(); err != nil {
		return err
	}
	return s.Save(ctx)
}

// RemoveProduct deletes a product and its reviews, then saves. Products
// referenced by stored orders are kept.
func (s *Store) RemoveProduct(ctx context.Context, id int) error {
	for _, o := range s.Ledger.All() {
		if slices.ContainsFunc(o.Items, func(it order.Item) bool { return it.Product.ID == id }) {
			return errors.Wrapf(ErrProductInUse, "product %d in order %d", id, o.ID)
		}
	}
	if err := s.Catalog.RemoveProduct(id); err != nil {
		return err
	}
	if err := s.saveReviews(); err != nil {
		return err
	}
	return s.Save(ctx)
}

func (s *Store) saveReviews() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return textfile.SaveReviews(s.Catalog.Products(), s.cfg.path(s.cfg.ReviewsFile))
}

// Users returns the registered customer credentials.
func (s *Store) Users() ([]textfile.Credential, error) {
	return textfile.LoadCredentials(s.cfg.path(s.cfg.UsersFile))
}

// Register appends a new customer credential. Usernames are unique.
func (s *Store) Register(username, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.Users()
	if err != nil {
		return err
	}
	if slices.ContainsFunc(users, func(c textfile.Credential) bool { return c.Username == username }) {
		return errors.Wrapf(ErrUserExists, "%q", username)
	}
	return textfile.AppendCredential(textfile.Credential{Username: username, Password: password}, s.cfg.path(s.cfg.UsersFile))
}

// Authenticate reports whether username and password match a registration.
func (s *Store) Authenticate(username, password string) (bool, error) {
	users, err := s.Users()
	if err != nil {
		return false, err
	}
	return slices.Contains(users, textfile.Credential{Username: username, Password: password}), nil
}

// ChangePassword replaces a registered user's password.
func (s *Store) ChangePassword(username, password string) error {
	return s.editUsers(username, func(users []textfile.Credential, i int) []textfile.Credential {
		users[i].Password = password
		return users
	})
}

// RemoveUser deletes a registration.
func (s *Store) RemoveUser(username string) error {
	return s.editUsers(username, func(users []textfile.Credential, i int) []textfile.Credential {
		return slices.Delete(users, i, i+1)
	})
}

func (s *Store) editUsers(username string, edit func(users []textfile.Credential, i int) []textfile.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.Users()
	if err != nil {
		return err
	}
	i := slices.IndexFunc(users, func(c textfile.Credential) bool { return c.Username == username })
	if i < 0 {
		return errors.Wrapf(ErrUserNotFound, "%q", username)
	}
	return textfile.SaveCredentials(edit(users, i), s.cfg.path(s.cfg.UsersFile))
}
