package order

import (
	"fmt"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/flatshop/internal/domain/product"
)

var (
	// ErrNotFound is returned when a requested order does not exist.
	ErrNotFound = errors.New("order not found")
	// ErrInvalidStatus is returned for a status outside the known set.
	ErrInvalidStatus = errors.New("invalid order status")
)

// Status is the lifecycle state of an order.
type Status int

// Known statuses. Pending is the zero value so a fresh order starts there.
const (
	StatusPending Status = iota
	StatusProcessing
	StatusCompleted
	StatusCanceled
)

var statusNames = [...]string{
	StatusPending:    "Pending",
	StatusProcessing: "Processing",
	StatusCompleted:  "Completed",
	StatusCanceled:   "Canceled",
}

// String returns the status name as written to the orders file.
func (s Status) String() string {
	if s.Valid() {
		return statusNames[s]
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	return s >= StatusPending && s <= StatusCanceled
}

// ParseStatus maps a status name back to its value.
func ParseStatus(name string) (Status, error) {
	for i, n := range statusNames {
		if n == name {
			return Status(i), nil
		}
	}
	return 0, errors.Wrapf(ErrInvalidStatus, "%q", name)
}

// StatusFromIndex maps the 1-based menu choice (1 Pending .. 4 Canceled).
func StatusFromIndex(i int) (Status, error) {
	s := Status(i - 1)
	if !s.Valid() {
		return 0, errors.Wrapf(ErrInvalidStatus, "index %d", i)
	}
	return s, nil
}

// Order is a checked-out cart. Items hold product snapshots, so the order is
// unaffected by later catalog changes.
type Order struct {
	ID       int
	Customer string
	Items    []Item
	// Total is computed once at checkout and stored as-is.
	Total   decimal.Decimal
	Phone   string
	Address string
	Status  Status
}

// Item is a single order line.
type Item struct {
	Product  product.Snapshot
	Quantity int
}

// Clone returns a copy that does not share the items slice.
func (o Order) Clone() Order {
	o.Items = append([]Item(nil), o.Items...)
	return o
}
