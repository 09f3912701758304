// Package ledger owns the live collection of orders.
package ledger

import (
	"iter"
	"sync"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/flatshop/internal/domain/order"
	"github.com/xenking/flatshop/internal/domain/validate"
)

// Ledger stores orders in creation order. Orders are never deleted.
type Ledger struct {
	mu     sync.RWMutex
	orders []order.Order
	nextID int
}

// New creates a Ledger holding the given orders. New ids continue after the
// highest loaded id, so a restart never reissues an id already on disk.
func New(existing []order.Order) *Ledger {
	l := &Ledger{
		orders: make([]order.Order, 0, len(existing)),
		nextID: 1,
	}
	for _, o := range existing {
		l.orders = append(l.orders, o.Clone())
		if o.ID >= l.nextID {
			l.nextID = o.ID + 1
		}
	}
	return l
}

// NextID returns the id the next created order will get.
func (l *Ledger) NextID() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.nextID
}

// Create records a new Pending order. The items are copied.
func (l *Ledger) Create(customer string, items []order.Item, total decimal.Decimal, phone, address string) (order.Order, error) {
	if err := validate.NonEmptyText("customer", customer); err != nil {
		return order.Order{}, err
	}
	if err := validate.Text("phone", phone); err != nil {
		return order.Order{}, err
	}
	if err := validate.Text("address", address); err != nil {
		return order.Order{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	o := order.Order{
		ID:       l.nextID,
		Customer: customer,
		Items:    append([]order.Item(nil), items...),
		Total:    total,
		Phone:    phone,
		Address:  address,
		Status:   order.StatusPending,
	}
	l.nextID++
	l.orders = append(l.orders, o)
	return o.Clone(), nil
}

// SetStatus moves the order to status. Any known status may follow any
// other; only unknown values are rejected.
func (l *Ledger) SetStatus(id int, status order.Status) (order.Order, error) {
	if !status.Valid() {
		return order.Order{}, errors.Wrapf(order.ErrInvalidStatus, "%d", int(status))
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	i := l.indexOf(id)
	if i < 0 {
		return order.Order{}, errors.Wrapf(order.ErrNotFound, "id %d", id)
	}
	l.orders[i].Status = status
	return l.orders[i].Clone(), nil
}

// Find returns the order with the given id.
func (l *Ledger) Find(id int) (order.Order, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	i := l.indexOf(id)
	if i < 0 {
		return order.Order{}, errors.Wrapf(order.ErrNotFound, "id %d", id)
	}
	return l.orders[i].Clone(), nil
}

// All returns a copy of every order.
func (l *Ledger) All() []order.Order {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]order.Order, len(l.orders))
	for i, o := range l.orders {
		out[i] = o.Clone()
	}
	return out
}

// ForCustomer yields the customer's orders lazily. The sequence can be
// ranged over more than once and sees orders created in between.
func (l *Ledger) ForCustomer(username string) iter.Seq[order.Order] {
	return func(yield func(order.Order) bool) {
		for i := 0; ; i++ {
			o, ok := l.at(i)
			if !ok {
				return
			}
			if o.Customer != username {
				continue
			}
			if !yield(o) {
				return
			}
		}
	}
}

// at reads one order under the lock, so yield runs unlocked.
func (l *Ledger) at(i int) (order.Order, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if i >= len(l.orders) {
		return order.Order{}, false
	}
	return l.orders[i].Clone(), true
}

func (l *Ledger) indexOf(id int) int {
	for i := range l.orders {
		if l.orders[i].ID == id {
			return i
		}
	}
	return -1
}
