package textfile

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/go-faster/errors"

	"github.com/xenking/flatshop/internal/catalog"
	"github.com/xenking/flatshop/internal/domain/product"
	"github.com/xenking/flatshop/internal/domain/validate"
)

// EncodeReview writes a single "productId,productName,reviewer,rating" line.
func EncodeReview(w io.Writer, p product.Product, reviewer string, rating int) error {
	if err := validate.Text("product name", p.Name); err != nil {
		return err
	}
	if err := validate.Text("reviewer", reviewer); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "%d,%s,%s,%d\n", p.ID, p.Name, reviewer, rating)
	return err
}

// DecodeReviews reads the review log. The product name column is
// informational and ignored.
func DecodeReviews(r io.Reader) ([]catalog.ProductReview, error) {
	return decodeReviews(newLineScanner(r, ""))
}

func decodeReviews(ls *lineScanner) ([]catalog.ProductReview, error) {
	var reviews []catalog.ProductReview
	for ls.nextRecord() {
		f, err := ls.fields(",", 4, false)
		if err != nil {
			return nil, err
		}
		id, err := ls.parseInt("product id", f[0])
		if err != nil {
			return nil, err
		}
		rating, err := ls.parseInt("rating", f[3])
		if err != nil {
			return nil, err
		}
		if rating < 1 || rating > 5 {
			return nil, ls.errorf("rating %d out of range 1..5", rating)
		}
		if strings.TrimSpace(f[2]) == "" {
			return nil, ls.errorf("empty reviewer")
		}
		reviews = append(reviews, catalog.ProductReview{
			ProductID: id,
			Review:    product.Review{Reviewer: f[2], Rating: rating},
		})
	}
	if err := ls.err(); err != nil {
		return nil, err
	}
	return reviews, nil
}

// AppendReview adds one review line to the log at path, creating it when
// missing. Earlier lines are left as they are; SaveReviews rewrites the log.
func AppendReview(p product.Product, reviewer string, rating int, path string) error {
	return appendLine(path, func(w io.Writer) error {
		return EncodeReview(w, p, reviewer, rating)
	})
}

// SaveReviews atomically rewrites the review log from the reviews currently
// held by products. Reviews of products that are gone, or whose reviews were
// dropped by an update, disappear from the log.
func SaveReviews(products []product.Product, path string) error {
	if err := save(path, func(w io.Writer) error {
		bw := bufio.NewWriter(w)
		for _, p := range products {
			for _, r := range p.Reviews {
				if err := EncodeReview(bw, p, r.Reviewer, r.Rating); err != nil {
					return errors.Wrapf(err, "product %d", p.ID)
				}
			}
		}
		return bw.Flush()
	}); err != nil {
		return errors.Wrap(err, "save reviews")
	}
	return nil
}

// LoadReviews reads the review log at path. A missing file yields no
// reviews.
func LoadReviews(path string) ([]catalog.ProductReview, error) {
	var reviews []catalog.ProductReview
	err := load(path, func(ls *lineScanner) (err error) {
		reviews, err = decodeReviews(ls)
		return err
	})
	if err != nil {
		return nil, errors.Wrap(err, "load reviews")
	}
	return reviews, nil
}
