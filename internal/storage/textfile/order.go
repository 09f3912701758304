package textfile

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/go-faster/errors"

	"github.com/xenking/flatshop/internal/domain/order"
	"github.com/xenking/flatshop/internal/domain/product"
	"github.com/xenking/flatshop/internal/domain/validate"
)

// Item record markers: "ID: <id>, Name: <name>, Price: <price>-<qty>;".
const (
	itemIDPrefix   = "ID: "
	itemNameSep    = ", Name: "
	itemPriceSep   = ", Price: "
	itemQtySep     = "-"
	itemTerminator = ";"
)

// EncodeOrders writes two lines per order: the header
// "id,customer,status,total,phone,address" and the concatenated item
// records.
func EncodeOrders(w io.Writer, orders []order.Order) error {
	bw := bufio.NewWriter(w)
	for _, o := range orders {
		if err := checkOrder(o); err != nil {
			return errors.Wrapf(err, "order %d", o.ID)
		}
		if _, err := fmt.Fprintf(bw, "%d,%s,%s,%s,%s,%s\n",
			o.ID, o.Customer, o.Status, o.Total.String(), o.Phone, o.Address,
		); err != nil {
			return err
		}
		for _, it := range o.Items {
			if _, err := fmt.Fprintf(bw, "%s%d%s%s%s%s%s%d%s",
				itemIDPrefix, it.Product.ID,
				itemNameSep, it.Product.Name,
				itemPriceSep, it.Product.Price.String(),
				itemQtySep, it.Quantity, itemTerminator,
			); err != nil {
				return err
			}
		}
		if err := bw.WriteByte('\n'); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func checkOrder(o order.Order) error {
	if !o.Status.Valid() {
		return errors.Wrapf(order.ErrInvalidStatus, "%d", int(o.Status))
	}
	for _, c := range []struct{ field, value string }{
		{"customer", o.Customer},
		{"phone", o.Phone},
		{"address", o.Address},
	} {
		if err := validate.Text(c.field, c.value); err != nil {
			return err
		}
	}
	for _, it := range o.Items {
		if err := validate.Text("product name", it.Product.Name); err != nil {
			return err
		}
		if it.Product.Price.IsNegative() {
			return &validate.Error{Field: "item price", Reason: "must not be negative"}
		}
		if it.Quantity <= 0 {
			return &validate.Error{Field: "item quantity", Reason: "must be positive"}
		}
	}
	return nil
}

// DecodeOrders reads the orders file format. Each item's product id must
// exist in products, otherwise the whole decode fails. Item snapshots keep
// the name and price recorded in the file.
func DecodeOrders(r io.Reader, products []product.Product) ([]order.Order, error) {
	return decodeOrders(newLineScanner(r, ""), products)
}

func decodeOrders(ls *lineScanner, products []product.Product) ([]order.Order, error) {
	known := make(map[int]struct{}, len(products))
	for _, p := range products {
		known[p.ID] = struct{}{}
	}

	var (
		orders []order.Order
		seen   = make(map[int]struct{})
	)
	for ls.nextRecord() {
		o, err := decodeOrderHeader(ls)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[o.ID]; dup {
			return nil, ls.errorf("duplicate order id %d", o.ID)
		}
		seen[o.ID] = struct{}{}

		if !ls.next() {
			if err := ls.err(); err != nil {
				return nil, err
			}
			return nil, ls.errorf("order %d: missing items line", o.ID)
		}
		items, err := decodeItems(ls, known)
		if err != nil {
			return nil, err
		}
		o.Items = items
		orders = append(orders, o)
	}
	if err := ls.err(); err != nil {
		return nil, err
	}
	return orders, nil
}

func decodeOrderHeader(ls *lineScanner) (order.Order, error) {
	f, err := ls.fields(",", 6, false)
	if err != nil {
		return order.Order{}, err
	}
	id, err := ls.parseInt("order id", f[0])
	if err != nil {
		return order.Order{}, err
	}
	status, err := order.ParseStatus(f[2])
	if err != nil {
		return order.Order{}, ls.wrap(err, "order %d", id)
	}
	total, err := ls.parseDecimal("total", f[3])
	if err != nil {
		return order.Order{}, err
	}
	return order.Order{
		ID:       id,
		Customer: f[1],
		Status:   status,
		Total:    total,
		Phone:    f[4],
		Address:  f[5],
	}, nil
}

// decodeItems scans the current line as a sequence of ';'-terminated item
// records.
func decodeItems(ls *lineScanner, known map[int]struct{}) ([]order.Item, error) {
	var items []order.Item
	rest := ls.text
	for rest != "" {
		rec, tail, ok := strings.Cut(rest, itemTerminator)
		if !ok {
			return nil, ls.errorf("item record %q not terminated by %q", rec, itemTerminator)
		}
		it, err := decodeItem(ls, rec)
		if err != nil {
			return nil, err
		}
		if _, ok := known[it.Product.ID]; !ok {
			return nil, ls.wrap(product.ErrNotFound, "item references product %d", it.Product.ID)
		}
		items = append(items, it)
		rest = tail
	}
	return items, nil
}

// decodeItem locates each marker in sequence.
func decodeItem(ls *lineScanner, rec string) (order.Item, error) {
	body, ok := strings.CutPrefix(rec, itemIDPrefix)
	if !ok {
		return order.Item{}, ls.errorf("item record %q: missing %q", rec, itemIDPrefix)
	}
	idStr, body, ok := strings.Cut(body, itemNameSep)
	if !ok {
		return order.Item{}, ls.errorf("item record %q: missing %q", rec, itemNameSep)
	}
	name, body, ok := strings.Cut(body, itemPriceSep)
	if !ok {
		return order.Item{}, ls.errorf("item record %q: missing %q", rec, itemPriceSep)
	}
	// Prices are never negative, so the first '-' ends the price.
	priceStr, qtyStr, ok := strings.Cut(body, itemQtySep)
	if !ok {
		return order.Item{}, ls.errorf("item record %q: missing quantity", rec)
	}

	id, err := ls.parseInt("item product id", idStr)
	if err != nil {
		return order.Item{}, err
	}
	price, err := ls.parseDecimal("item price", priceStr)
	if err != nil {
		return order.Item{}, err
	}
	qty, err := ls.parseInt("item quantity", qtyStr)
	if err != nil {
		return order.Item{}, err
	}
	if qty <= 0 {
		return order.Item{}, ls.errorf("item quantity %d must be positive", qty)
	}

	return order.Item{
		Product:  product.Snapshot{ID: id, Name: name, Price: price},
		Quantity: qty,
	}, nil
}
