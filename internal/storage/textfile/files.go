package textfile

import (
	"bytes"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-faster/errors"
	"github.com/klauspost/pgzip"

	"github.com/xenking/flatshop/internal/domain/order"
	"github.com/xenking/flatshop/internal/domain/product"
	"github.com/xenking/flatshop/internal/domain/promotion"
)

const gzipExt = ".gz"

// Compressed reports whether files at path are read and written through
// gzip.
func Compressed(path string) bool {
	return strings.HasSuffix(path, gzipExt)
}

// LoadCatalog reads the products file at path. A missing file yields an
// empty catalog.
func LoadCatalog(path string) ([]product.Product, error) {
	var products []product.Product
	err := load(path, func(ls *lineScanner) (err error) {
		products, err = decodeProducts(ls)
		return err
	})
	if err != nil {
		return nil, errors.Wrap(err, "load products")
	}
	return products, nil
}

// SaveCatalog atomically rewrites the products file at path.
func SaveCatalog(products []product.Product, path string) error {
	if err := save(path, func(w io.Writer) error {
		return EncodeProducts(w, products)
	}); err != nil {
		return errors.Wrap(err, "save products")
	}
	return nil
}

// LoadPromotions reads the promotions file at path. A missing file yields
// no promotions.
func LoadPromotions(path string) ([]promotion.Promotion, error) {
	var promotions []promotion.Promotion
	err := load(path, func(ls *lineScanner) (err error) {
		promotions, err = decodePromotions(ls)
		return err
	})
	if err != nil {
		return nil, errors.Wrap(err, "load promotions")
	}
	return promotions, nil
}

// SavePromotions atomically rewrites the promotions file at path.
func SavePromotions(promotions []promotion.Promotion, path string) error {
	if err := save(path, func(w io.Writer) error {
		return EncodePromotions(w, promotions)
	}); err != nil {
		return errors.Wrap(err, "save promotions")
	}
	return nil
}

// LoadOrders reads the orders file at path, resolving item product ids
// against products. A missing file yields no orders.
func LoadOrders(path string, products []product.Product) ([]order.Order, error) {
	var orders []order.Order
	err := load(path, func(ls *lineScanner) (err error) {
		orders, err = decodeOrders(ls, products)
		return err
	})
	if err != nil {
		return nil, errors.Wrap(err, "load orders")
	}
	return orders, nil
}

// SaveOrders atomically rewrites the orders file at path.
func SaveOrders(orders []order.Order, path string) error {
	if err := save(path, func(w io.Writer) error {
		return EncodeOrders(w, orders)
	}); err != nil {
		return errors.Wrap(err, "save orders")
	}
	return nil
}

func load(path string, decode func(ls *lineScanner) error) error {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return &IOError{Op: "open", Path: path, Err: err}
	}
	defer func() { _ = f.Close() }()

	var r io.Reader = f
	if Compressed(path) {
		zr, err := pgzip.NewReader(f)
		if err != nil {
			return &IOError{Op: "read", Path: path, Err: err}
		}
		defer func() { _ = zr.Close() }()
		r = zr
	}
	return decode(newLineScanner(r, path))
}

// save encodes into memory first, so an encoding error leaves the existing
// file untouched. The new content replaces the old one by rename.
func save(path string, encode func(w io.Writer) error) error {
	var buf bytes.Buffer
	if Compressed(path) {
		zw := pgzip.NewWriter(&buf)
		if err := encode(zw); err != nil {
			return err
		}
		if err := zw.Close(); err != nil {
			return errors.Wrap(err, "compress")
		}
	} else if err := encode(&buf); err != nil {
		return err
	}
	return writeAtomic(path, buf.Bytes())
}

func writeAtomic(path string, data []byte) (rerr error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &IOError{Op: "mkdir", Path: dir, Err: err}
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return &IOError{Op: "create", Path: path, Err: err}
	}
	defer func() {
		if rerr != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return &IOError{Op: "write", Path: tmp.Name(), Err: err}
	}
	if err := tmp.Sync(); err != nil {
		return &IOError{Op: "sync", Path: tmp.Name(), Err: err}
	}
	if err := tmp.Chmod(0o644); err != nil {
		return &IOError{Op: "chmod", Path: tmp.Name(), Err: err}
	}
	if err := tmp.Close(); err != nil {
		return &IOError{Op: "close", Path: tmp.Name(), Err: err}
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return &IOError{Op: "rename", Path: path, Err: err}
	}
	return nil
}

// appendLine opens path for appending and lets encode write to it. For
// compressed files each append becomes a separate gzip member.
func appendLine(path string, encode func(w io.Writer) error) error {
	var buf bytes.Buffer
	if Compressed(path) {
		zw := pgzip.NewWriter(&buf)
		if err := encode(zw); err != nil {
			return err
		}
		if err := zw.Close(); err != nil {
			return errors.Wrap(err, "compress")
		}
	} else if err := encode(&buf); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return &IOError{Op: "mkdir", Path: filepath.Dir(path), Err: err}
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return &IOError{Op: "open", Path: path, Err: err}
	}
	if _, err := f.Write(buf.Bytes()); err != nil {
		_ = f.Close()
		return &IOError{Op: "append", Path: path, Err: err}
	}
	if err := f.Close(); err != nil {
		return &IOError{Op: "close", Path: path, Err: err}
	}
	return nil
}
