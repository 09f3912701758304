package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/flatshop/internal/catalog"
	"github.com/xenking/flatshop/internal/domain/product"
	"github.com/xenking/flatshop/internal/domain/promotion"
	"github.com/xenking/flatshop/internal/storage/textfile"
)

// seed is the content of a JSON seed file:
//
//	{
//	  "products":   [{"id": 1, "name": "Pen", "price": "1.50", "stock": 10}],
//	  "promotions": [{"id": 1, "description": "Pen week", "discount": 10, "products": [1]}],
//	  "users":      [{"username": "alice", "password": "secret"}]
//	}
type seed struct {
	Products   []product.Product
	Promotions []promotion.Promotion
	Users      []textfile.Credential
}

func main() {
	var (
		dataDir  string
		seedFile string
		force    bool
	)

	flag.StringVar(&dataDir, "data-dir", "", "data directory (or STORE_DATA_DIR env, default data)")
	flag.StringVar(&seedFile, "seed-file", "seed.json", "path to the JSON seed file")
	flag.BoolVar(&force, "force", false, "overwrite existing data files")
	flag.Parse()

	if dataDir == "" {
		dataDir = os.Getenv("STORE_DATA_DIR")
	}
	if dataDir == "" {
		dataDir = "data"
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, dataDir, seedFile, force); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, dataDir, seedFile string, force bool) error {
	slog.Info("reading seed file", slog.String("path", seedFile))

	data, err := os.ReadFile(seedFile)
	if err != nil {
		return errors.Wrap(err, "read seed file")
	}
	s, err := decodeSeed(data)
	if err != nil {
		return errors.Wrap(err, "parse seed JSON")
	}

	// Route everything through the catalog so seeded data obeys the same
	// rules as later edits.
	c := catalog.New(nil, nil)
	for _, p := range s.Products {
		if err := c.AddProduct(p); err != nil {
			return errors.Wrapf(err, "product %d", p.ID)
		}
	}
	for _, p := range s.Promotions {
		if err := c.AddPromotion(p); err != nil {
			return errors.Wrapf(err, "promotion %d", p.ID)
		}
	}

	files := map[string]func(path string) error{
		"products.txt": func(path string) error {
			return textfile.SaveCatalog(c.Products(), path)
		},
		"promotions.txt": func(path string) error {
			return textfile.SavePromotions(c.Promotions(), path)
		},
		"users.txt": func(path string) error {
			return textfile.SaveCredentials(s.Users, path)
		},
	}
	for name, save := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		path := filepath.Join(dataDir, name)
		if _, err := os.Stat(path); err == nil && !force {
			slog.Warn("skipping existing file, use -force to overwrite", slog.String("path", path))
			continue
		}
		if err := save(path); err != nil {
			return err
		}
		slog.Info("wrote data file", slog.String("path", path))
	}

	slog.Info("seeded store",
		slog.Int("products", len(s.Products)),
		slog.Int("promotions", len(s.Promotions)),
		slog.Int("users", len(s.Users)),
	)
	return nil
}

func decodeSeed(data []byte) (*seed, error) {
	var s seed
	err := jx.DecodeBytes(data).Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "products":
			return d.Arr(func(d *jx.Decoder) error {
				p, err := decodeProduct(d)
				if err != nil {
					return errors.Wrap(err, "product")
				}
				s.Products = append(s.Products, p)
				return nil
			})
		case "promotions":
			return d.Arr(func(d *jx.Decoder) error {
				p, err := decodePromotion(d)
				if err != nil {
					return errors.Wrap(err, "promotion")
				}
				s.Promotions = append(s.Promotions, p)
				return nil
			})
		case "users":
			return d.Arr(func(d *jx.Decoder) error {
				var c textfile.Credential
				if err := d.Obj(func(d *jx.Decoder, key string) (err error) {
					switch key {
					case "username":
						c.Username, err = d.Str()
					case "password":
						c.Password, err = d.Str()
					default:
						err = d.Skip()
					}
					return err
				}); err != nil {
					return errors.Wrap(err, "user")
				}
				s.Users = append(s.Users, c)
				return nil
			})
		default:
			return d.Skip()
		}
	})
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func decodeProduct(d *jx.Decoder) (product.Product, error) {
	var (
		p   product.Product
		err error
	)
	err = d.Obj(func(d *jx.Decoder, key string) (err error) {
		switch key {
		case "id":
			p.ID, err = d.Int()
		case "name":
			p.Name, err = d.Str()
		case "price":
			p.Price, err = decodeDecimal(d)
		case "stock":
			p.Stock, err = d.Int()
		default:
			err = d.Skip()
		}
		if err != nil {
			return errors.Wrap(err, key)
		}
		return nil
	})
	return p, err
}

func decodePromotion(d *jx.Decoder) (promotion.Promotion, error) {
	var (
		p   promotion.Promotion
		err error
	)
	err = d.Obj(func(d *jx.Decoder, key string) (err error) {
		switch key {
		case "id":
			p.ID, err = d.Int()
		case "description":
			p.Description, err = d.Str()
		case "discount":
			p.DiscountPercent, err = decodeDecimal(d)
		case "products":
			err = d.Arr(func(d *jx.Decoder) error {
				id, err := d.Int()
				if err != nil {
					return err
				}
				p.ProductIDs = append(p.ProductIDs, id)
				return nil
			})
		default:
			err = d.Skip()
		}
		if err != nil {
			return errors.Wrap(err, key)
		}
		return nil
	})
	return p, err
}

// decodeDecimal accepts both JSON numbers and numeric strings.
func decodeDecimal(d *jx.Decoder) (decimal.Decimal, error) {
	if d.Next() == jx.String {
		s, err := d.Str()
		if err != nil {
			return decimal.Decimal{}, err
		}
		return decimal.NewFromString(s)
	}
	n, err := d.Num()
	if err != nil {
		return decimal.Decimal{}, err
	}
	return decimal.NewFromString(strings.TrimSpace(n.String()))
}
