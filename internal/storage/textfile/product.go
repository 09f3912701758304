package textfile

import (
	"bufio"
	"fmt"
	"io"

	"github.com/go-faster/errors"

	"github.com/xenking/flatshop/internal/domain/product"
	"github.com/xenking/flatshop/internal/domain/validate"
)

// EncodeProducts writes one "id,name,price,stock" line per product.
// Reviews are not part of this file; see AppendReview.
func EncodeProducts(w io.Writer, products []product.Product) error {
	bw := bufio.NewWriter(w)
	for _, p := range products {
		if err := validate.Text("name", p.Name); err != nil {
			return errors.Wrapf(err, "product %d", p.ID)
		}
		if _, err := fmt.Fprintf(bw, "%d,%s,%s,%d\n", p.ID, p.Name, p.Price.String(), p.Stock); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// DecodeProducts reads the products file format.
func DecodeProducts(r io.Reader) ([]product.Product, error) {
	return decodeProducts(newLineScanner(r, ""))
}

func decodeProducts(ls *lineScanner) ([]product.Product, error) {
	var (
		products []product.Product
		seen     = make(map[int]struct{})
	)
	for ls.nextRecord() {
		f, err := ls.fields(",", 4, false)
		if err != nil {
			return nil, err
		}
		id, err := ls.parseInt("id", f[0])
		if err != nil {
			return nil, err
		}
		if _, dup := seen[id]; dup {
			return nil, ls.errorf("duplicate product id %d", id)
		}
		seen[id] = struct{}{}

		price, err := ls.parseDecimal("price", f[2])
		if err != nil {
			return nil, err
		}
		if price.IsNegative() {
			return nil, ls.errorf("negative price %s", price)
		}
		stock, err := ls.parseNonNegative("stock", f[3])
		if err != nil {
			return nil, err
		}
		products = append(products, product.New(id, f[1], price, stock))
	}
	if err := ls.err(); err != nil {
		return nil, err
	}
	return products, nil
}
