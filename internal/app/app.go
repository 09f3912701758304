package app

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/xenking/flatshop/internal/domain/cart"
	"github.com/xenking/flatshop/internal/domain/order"
	"github.com/xenking/flatshop/internal/domain/product"
	"github.com/xenking/flatshop/internal/domain/promotion"
)

var (
	// ErrUsage is returned for unknown commands and malformed arguments.
	ErrUsage = errors.New("usage")
	// ErrUnauthorized is returned when a customer's credentials do not match.
	ErrUnauthorized = errors.New("invalid username or password")
)

const usage = `usage: storectl <command> [flags] [args]

commands:
  check
  products list
  products add -id N -name S -price D -stock N
  products update -id N -name S -price D -stock N
  products remove -id N
  promotions list
  promotions add -id N -desc S -discount D -products 1,2,...
  checkout -user S -password S -phone S -address S <id>:<qty>...
  orders list [-user S]
  orders show <id>
  orders status <id> <Pending|Processing|Completed|Canceled|1-4>
  review -user S -password S -product N -rating 1-5
  users add <username> <password>
  users passwd <username> <password>
  users remove <username>
  users list`

// Run loads the store from cfg and executes one command. Mutating commands
// save the store before returning.
func Run(ctx context.Context, lg *zap.Logger, mp metric.MeterProvider, cfg *Config, args []string, out io.Writer) error {
	if len(args) == 0 {
		_, _ = fmt.Fprintln(out, usage)
		return ErrUsage
	}

	s, err := Open(ctx, cfg, mp)
	if err != nil {
		return errors.Wrap(err, "open store")
	}
	lg.Debug("Running command", zap.Strings("args", args))

	c := &commands{store: s, lg: lg, out: out}
	switch name, rest := args[0], args[1:]; name {
	case "check":
		return c.check()
	case "products":
		return c.sub(ctx, name, rest, map[string]handler{
			"list":   c.productsList,
			"add":    c.productsAdd,
			"update": c.productsUpdate,
			"remove": c.productsRemove,
		})
	case "promotions":
		return c.sub(ctx, name, rest, map[string]handler{
			"list": c.promotionsList,
			"add":  c.promotionsAdd,
		})
	case "checkout":
		return c.checkout(ctx, rest)
	case "orders":
		return c.sub(ctx, name, rest, map[string]handler{
			"list":   c.ordersList,
			"show":   c.ordersShow,
			"status": c.ordersStatus,
		})
	case "review":
		return c.review(rest)
	case "users":
		return c.sub(ctx, name, rest, map[string]handler{
			"add":    c.usersAdd,
			"list":   c.usersList,
			"passwd": c.usersPasswd,
			"remove": c.usersRemove,
		})
	default:
		_, _ = fmt.Fprintln(out, usage)
		return errors.Wrapf(ErrUsage, "unknown command %q", name)
	}
}

type handler func(ctx context.Context, args []string) error

type commands struct {
	store *Store
	lg    *zap.Logger
	out   io.Writer
}

func (c *commands) sub(ctx context.Context, group string, args []string, handlers map[string]handler) error {
	if len(args) == 0 {
		return errors.Wrapf(ErrUsage, "%s: missing subcommand", group)
	}
	h, ok := handlers[args[0]]
	if !ok {
		return errors.Wrapf(ErrUsage, "%s: unknown subcommand %q", group, args[0])
	}
	return h(ctx, args[1:])
}

func (c *commands) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(c.out, format, args...)
}

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func parseFlags(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return errors.Wrapf(ErrUsage, "%s: %v", fs.Name(), err)
	}
	return nil
}

// decimalFlag is a flag.Value holding a decimal.
type decimalFlag struct {
	v   decimal.Decimal
	set bool
}

func (f *decimalFlag) String() string { return f.v.String() }

func (f *decimalFlag) Set(s string) error {
	v, err := decimal.NewFromString(s)
	if err != nil {
		return err
	}
	f.v, f.set = v, true
	return nil
}

func (c *commands) check() error {
	c.printf("products: %d\npromotions: %d\norders: %d\n",
		len(c.store.Catalog.Products()),
		len(c.store.Catalog.Promotions()),
		len(c.store.Ledger.All()),
	)
	return nil
}

func (c *commands) productsList(context.Context, []string) error {
	tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "ID\tNAME\tPRICE\tSTOCK\tREVIEWS\tRATING")
	for _, p := range c.store.Catalog.Products() {
		_, _ = fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%d\t%s\n",
			p.ID, p.Name, p.Price.StringFixed(2), p.Stock, len(p.Reviews), averageRating(p.Reviews))
	}
	return tw.Flush()
}

func averageRating(reviews []product.Review) string {
	if len(reviews) == 0 {
		return "-"
	}
	sum := 0
	for _, r := range reviews {
		sum += r.Rating
	}
	return decimal.NewFromInt(int64(sum)).Div(decimal.NewFromInt(int64(len(reviews)))).StringFixed(1)
}

type productFlags struct {
	fs    *flag.FlagSet
	id    int
	name  string
	price decimalFlag
	stock int
}

func newProductFlags(name string) *productFlags {
	pf := &productFlags{fs: newFlagSet(name)}
	pf.fs.IntVar(&pf.id, "id", 0, "product id")
	pf.fs.StringVar(&pf.name, "name", "", "product name")
	pf.fs.Var(&pf.price, "price", "unit price")
	pf.fs.IntVar(&pf.stock, "stock", 0, "units in stock")
	return pf
}

func (pf *productFlags) parse(args []string) error {
	if err := parseFlags(pf.fs, args); err != nil {
		return err
	}
	if pf.id == 0 || !pf.price.set {
		return errors.Wrapf(ErrUsage, "%s: -id and -price are required", pf.fs.Name())
	}
	return nil
}

func (c *commands) productsAdd(ctx context.Context, args []string) error {
	pf := newProductFlags("products add")
	if err := pf.parse(args); err != nil {
		return err
	}
	if err := c.store.Catalog.AddProduct(product.New(pf.id, pf.name, pf.price.v, pf.stock)); err != nil {
		return errors.Wrap(err, "add product")
	}
	c.printf("added product %d\n", pf.id)
	return c.store.Save(ctx)
}

func (c *commands) productsUpdate(ctx context.Context, args []string) error {
	pf := newProductFlags("products update")
	if err := pf.parse(args); err != nil {
		return err
	}
	if err := c.store.UpdateProduct(ctx, pf.id, pf.name, pf.price.v, pf.stock); err != nil {
		return errors.Wrap(err, "update product")
	}
	c.printf("updated product %d\n", pf.id)
	return nil
}

func (c *commands) productsRemove(ctx context.Context, args []string) error {
	fs := newFlagSet("products remove")
	id := fs.Int("id", 0, "product id")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if err := c.store.RemoveProduct(ctx, *id); err != nil {
		return errors.Wrap(err, "remove product")
	}
	c.printf("removed product %d\n", *id)
	return nil
}

func (c *commands) promotionsList(context.Context, []string) error {
	tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "ID\tDESCRIPTION\tDISCOUNT\tPRODUCTS")
	for _, p := range c.store.Catalog.Promotions() {
		_, _ = fmt.Fprintf(tw, "%d\t%s\t%s%%\t%s\n", p.ID, p.Description, p.DiscountPercent, joinInts(p.ProductIDs))
	}
	return tw.Flush()
}

func joinInts(ids []int) string {
	s := make([]string, len(ids))
	for i, id := range ids {
		s[i] = strconv.Itoa(id)
	}
	return strings.Join(s, ",")
}

func (c *commands) promotionsAdd(ctx context.Context, args []string) error {
	fs := newFlagSet("promotions add")
	var discount decimalFlag
	id := fs.Int("id", 0, "promotion id")
	desc := fs.String("desc", "", "description")
	fs.Var(&discount, "discount", "discount percent, 0..100")
	products := fs.String("products", "", "comma-separated product ids")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if *id == 0 || !discount.set {
		return errors.Wrap(ErrUsage, "promotions add: -id and -discount are required")
	}

	var ids []int
	for _, tok := range strings.Split(*products, ",") {
		if tok = strings.TrimSpace(tok); tok == "" {
			continue
		}
		pid, err := strconv.Atoi(tok)
		if err != nil {
			return errors.Wrapf(ErrUsage, "promotions add: bad product id %q", tok)
		}
		ids = append(ids, pid)
	}

	if err := c.store.Catalog.AddPromotion(promotion.Promotion{
		ID:              *id,
		Description:     *desc,
		DiscountPercent: discount.v,
		ProductIDs:      ids,
	}); err != nil {
		return errors.Wrap(err, "add promotion")
	}
	c.printf("added promotion %d\n", *id)
	return c.store.Save(ctx)
}

func (c *commands) authenticate(user, password string) error {
	ok, err := c.store.Authenticate(user, password)
	if err != nil {
		return err
	}
	if !ok {
		return ErrUnauthorized
	}
	return nil
}

// parseCartLine parses "<productID>:<qty>"; the quantity defaults to 1.
func parseCartLine(s string) (id, qty int, err error) {
	idStr, qtyStr, found := strings.Cut(s, ":")
	if id, err = strconv.Atoi(idStr); err != nil {
		return 0, 0, errors.Wrapf(ErrUsage, "bad cart line %q", s)
	}
	qty = 1
	if found {
		if qty, err = strconv.Atoi(qtyStr); err != nil {
			return 0, 0, errors.Wrapf(ErrUsage, "bad cart line %q", s)
		}
	}
	return id, qty, nil
}

func (c *commands) checkout(ctx context.Context, args []string) error {
	fs := newFlagSet("checkout")
	user := fs.String("user", "", "customer username")
	password := fs.String("password", "", "customer password")
	phone := fs.String("phone", "", "contact phone")
	address := fs.String("address", "", "shipping address")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if err := c.authenticate(*user, *password); err != nil {
		return err
	}

	crt := cart.New()
	for _, arg := range fs.Args() {
		id, qty, err := parseCartLine(arg)
		if err != nil {
			return err
		}
		if err := c.store.Orders.AddToCart(crt, id, qty); err != nil {
			return errors.Wrapf(err, "add product %d to cart", id)
		}
	}

	o, err := c.store.Checkout(ctx, order.CheckoutRequest{
		Customer: *user,
		Cart:     crt,
		Phone:    *phone,
		Address:  *address,
	})
	if o != nil {
		c.lg.Info("Order created",
			zap.Int("order_id", o.ID),
			zap.String("customer", o.Customer),
			zap.String("cart_id", crt.ID.String()),
			zap.String("total", o.Total.String()),
		)
		c.printf("order %d placed, total %s\n", o.ID, o.Total.StringFixed(2))
	}
	return err
}

func (c *commands) ordersList(_ context.Context, args []string) error {
	fs := newFlagSet("orders list")
	user := fs.String("user", "", "only orders of this customer")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "ID\tCUSTOMER\tSTATUS\tITEMS\tTOTAL")
	write := func(o order.Order) {
		_, _ = fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\n", o.ID, o.Customer, o.Status, len(o.Items), o.Total.StringFixed(2))
	}
	if *user != "" {
		for o := range c.store.Orders.History(*user) {
			write(o)
		}
	} else {
		for _, o := range c.store.Ledger.All() {
			write(o)
		}
	}
	return tw.Flush()
}

func parseOrderID(args []string, want int, cmd string) (int, error) {
	if len(args) != want {
		return 0, errors.Wrapf(ErrUsage, "%s: expected %d arguments", cmd, want)
	}
	id, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, errors.Wrapf(ErrUsage, "%s: bad order id %q", cmd, args[0])
	}
	return id, nil
}

func (c *commands) ordersShow(_ context.Context, args []string) error {
	id, err := parseOrderID(args, 1, "orders show")
	if err != nil {
		return err
	}
	o, err := c.store.Ledger.Find(id)
	if err != nil {
		return err
	}

	c.printf("Order %d (%s)\nCustomer: %s\nPhone: %s\nAddress: %s\n", o.ID, o.Status, o.Customer, o.Phone, o.Address)
	tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "PRODUCT\tNAME\tPRICE\tQTY")
	for _, it := range o.Items {
		_, _ = fmt.Fprintf(tw, "%d\t%s\t%s\t%d\n", it.Product.ID, it.Product.Name, it.Product.Price.StringFixed(2), it.Quantity)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	c.printf("Total: %s\n", o.Total.StringFixed(2))
	return nil
}

// parseStatus accepts a status name or its 1-based menu index.
func parseStatus(s string) (order.Status, error) {
	if i, err := strconv.Atoi(s); err == nil {
		return order.StatusFromIndex(i)
	}
	return order.ParseStatus(s)
}

func (c *commands) ordersStatus(ctx context.Context, args []string) error {
	id, err := parseOrderID(args, 2, "orders status")
	if err != nil {
		return err
	}
	status, err := parseStatus(args[1])
	if err != nil {
		return err
	}
	o, err := c.store.Orders.UpdateStatus(ctx, id, status)
	if o != nil {
		c.printf("order %d is now %s\n", o.ID, o.Status)
	}
	return err
}

func (c *commands) review(args []string) error {
	fs := newFlagSet("review")
	user := fs.String("user", "", "customer username")
	password := fs.String("password", "", "customer password")
	id := fs.Int("product", 0, "product id")
	rating := fs.Int("rating", 0, "rating, 1..5")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if err := c.authenticate(*user, *password); err != nil {
		return err
	}
	if err := c.store.AddReview(*id, *user, *rating); err != nil {
		return errors.Wrap(err, "add review")
	}
	c.printf("review of product %d recorded\n", *id)
	return nil
}

func (c *commands) usersAdd(_ context.Context, args []string) error {
	if len(args) != 2 {
		return errors.Wrap(ErrUsage, "users add: expected <username> <password>")
	}
	if err := c.store.Register(args[0], args[1]); err != nil {
		return errors.Wrap(err, "register")
	}
	c.printf("registered %s\n", args[0])
	return nil
}

func (c *commands) usersList(context.Context, []string) error {
	users, err := c.store.Users()
	if err != nil {
		return err
	}
	for _, u := range users {
		c.printf("%s\n", u.Username)
	}
	return nil
}

func (c *commands) usersPasswd(_ context.Context, args []string) error {
	if len(args) != 2 {
		return errors.Wrap(ErrUsage, "users passwd: expected <username> <password>")
	}
	if err := c.store.ChangePassword(args[0], args[1]); err != nil {
		return errors.Wrap(err, "change password")
	}
	c.printf("password of %s changed\n", args[0])
	return nil
}

func (c *commands) usersRemove(_ context.Context, args []string) error {
	if len(args) != 1 {
		return errors.Wrap(ErrUsage, "users remove: expected <username>")
	}
	if err := c.store.RemoveUser(args[0]); err != nil {
		return errors.Wrap(err, "remove user")
	}
	c.printf("removed %s\n", args[0])
	return nil
}
