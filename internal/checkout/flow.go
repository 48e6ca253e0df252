// Package checkout sequences a shopping session from browsing to a
// confirmed order.
package checkout

import (
	"time"

	"github.com/noah-isme/toko-checkout/internal/cart"
	"github.com/noah-isme/toko-checkout/internal/catalog"
	"github.com/noah-isme/toko-checkout/internal/pricing"
)

// Catalog is the read-only product source a Flow draws from.
type Catalog interface {
	cart.Catalog
	Products() []catalog.Product
}

// Order is the total captured when a cart is confirmed.
type Order struct {
	Total       pricing.Money `json:"total"`
	Units       int           `json:"units"`
	ConfirmedAt time.Time     `json:"confirmedAt"`
}

// Flow is the per-session checkout state machine. It owns its cart
// exclusively and is not safe for concurrent use.
type Flow struct {
	catalog Catalog
	cart    *cart.Cart
	state   State
	order   *Order
	now     func() time.Time
}

// Option customises a Flow.
type Option func(*Flow)

// WithClock overrides the time source used to stamp orders.
func WithClock(now func() time.Time) Option {
	return func(f *Flow) {
		if now != nil {
			f.now = now
		}
	}
}

// NewFlow starts a flow in Browsing with an empty cart.
func NewFlow(c Catalog, opts ...Option) *Flow {
	f := &Flow{catalog: c, cart: cart.New(c), state: Browsing, now: time.Now}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// State returns the current state.
func (f *Flow) State() State { return f.state }

// Snapshot returns the current cart projection.
func (f *Flow) Snapshot() cart.Snapshot { return f.cart.Snapshot() }

// LastOrder returns the order shown on the confirmation screen.
func (f *Flow) LastOrder() (Order, bool) {
	if f.order == nil {
		return Order{}, false
	}
	return *f.order, true
}

// SelectProduct adds the product with id to the cart and opens the cart.
func (f *Flow) SelectProduct(id string) (cart.Snapshot, error) {
	if err := f.guard(IntentSelect); err != nil {
		return f.Snapshot(), err
	}
	p, ok := f.catalog.Lookup(id)
	if !ok {
		return f.Snapshot(), unknownProductError(id)
	}
	snap := f.cart.AddProduct(p)
	f.state = Editing
	return snap, nil
}

// SelectAll seeds the cart with every catalog product not yet in it and
// opens the cart.
func (f *Flow) SelectAll() (cart.Snapshot, error) {
	if err := f.guard(IntentSelectAll); err != nil {
		return f.Snapshot(), err
	}
	snap := f.cart.AddAll(f.catalog.Products())
	f.state = Editing
	return snap, nil
}

// Increase bumps the quantity of an existing line. Absent lines are left alone.
func (f *Flow) Increase(id string) (cart.Snapshot, error) {
	if err := f.guard(IntentIncrease); err != nil {
		return f.Snapshot(), err
	}
	f.cart.IncreaseQuantity(id)
	return f.Snapshot(), nil
}

// Confirm captures the cart total as an Order and clears the cart. An empty
// cart yields ErrEmptyCart and the flow stays in Editing.
func (f *Flow) Confirm() (Order, error) {
	if err := f.guard(IntentConfirm); err != nil {
		return Order{}, err
	}
	if f.cart.IsEmpty() {
		return Order{}, emptyCartError(f.state)
	}
	snap := f.cart.Snapshot()
	order := Order{Total: snap.Total, Units: snap.Units, ConfirmedAt: f.now().UTC()}
	f.cart.Clear()
	f.order = &order
	f.state = Confirmed
	return order, nil
}

// Acknowledge dismisses the confirmation and returns to Browsing.
func (f *Flow) Acknowledge() error {
	if err := f.guard(IntentAcknowledge); err != nil {
		return err
	}
	f.order = nil
	f.state = Browsing
	return nil
}

// Browse leaves the cart screen for the product list, keeping the cart.
func (f *Flow) Browse() error {
	if err := f.guard(IntentBrowse); err != nil {
		return err
	}
	f.state = Browsing
	return nil
}

// ViewCart opens the cart screen without touching the cart.
func (f *Flow) ViewCart() (cart.Snapshot, error) {
	if err := f.guard(IntentViewCart); err != nil {
		return f.Snapshot(), err
	}
	f.state = Editing
	return f.Snapshot(), nil
}

func (f *Flow) guard(intent Intent) error {
	if want, ok := allowed[intent]; !ok || want != f.state {
		return invalidTransitionError(f.state, intent)
	}
	return nil
}
