package textfile

import (
	"bufio"
	"fmt"
	"io"
	"strconv"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/flatshop/internal/domain/promotion"
	"github.com/xenking/flatshop/internal/domain/validate"
)

var hundred = decimal.NewFromInt(100)

// EncodePromotions writes "id,description,discount,pid1,pid2,..." lines.
// A promotion with no product ids cannot be encoded.
func EncodePromotions(w io.Writer, promotions []promotion.Promotion) error {
	bw := bufio.NewWriter(w)
	for _, p := range promotions {
		if err := validate.Text("description", p.Description); err != nil {
			return errors.Wrapf(err, "promotion %d", p.ID)
		}
		if len(p.ProductIDs) == 0 {
			return errors.Wrapf(&validate.Error{Field: "product ids", Reason: "at least one product is required"},
				"promotion %d", p.ID)
		}
		if _, err := fmt.Fprintf(bw, "%d,%s,%s", p.ID, p.Description, p.DiscountPercent.String()); err != nil {
			return err
		}
		for _, id := range p.ProductIDs {
			if _, err := bw.WriteString("," + strconv.Itoa(id)); err != nil {
				return err
			}
		}
		if err := bw.WriteByte('\n'); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// DecodePromotions reads the promotions file format. Every token after the
// discount is a product id, and at least one is required.
func DecodePromotions(r io.Reader) ([]promotion.Promotion, error) {
	return decodePromotions(newLineScanner(r, ""))
}

func decodePromotions(ls *lineScanner) ([]promotion.Promotion, error) {
	var (
		promotions []promotion.Promotion
		seen       = make(map[int]struct{})
	)
	for ls.nextRecord() {
		f, err := ls.fields(",", 3, true)
		if err != nil {
			return nil, err
		}
		if len(f) == 3 {
			return nil, ls.errorf("no applicable product ids")
		}

		id, err := ls.parseInt("id", f[0])
		if err != nil {
			return nil, err
		}
		if _, dup := seen[id]; dup {
			return nil, ls.errorf("duplicate promotion id %d", id)
		}
		seen[id] = struct{}{}

		discount, err := ls.parseDecimal("discount", f[2])
		if err != nil {
			return nil, err
		}
		if discount.IsNegative() || discount.GreaterThan(hundred) {
			return nil, ls.errorf("discount %s out of range 0..100", discount)
		}

		ids := make([]int, 0, len(f)-3)
		for _, tok := range f[3:] {
			pid, err := ls.parseInt("product id", tok)
			if err != nil {
				return nil, err
			}
			ids = append(ids, pid)
		}

		promotions = append(promotions, promotion.Promotion{
			ID:              id,
			Description:     f[1],
			DiscountPercent: discount,
			ProductIDs:      ids,
		})
	}
	if err := ls.err(); err != nil {
		return nil, err
	}
	return promotions, nil
}
