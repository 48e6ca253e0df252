// Package cart holds the in-memory shopping cart of a single session.
package cart

import (
	"github.com/noah-isme/toko-checkout/internal/catalog"
	"github.com/noah-isme/toko-checkout/internal/pricing"
)

// Catalog resolves products by id. *catalog.Catalog satisfies it.
type Catalog interface {
	Lookup(id string) (catalog.Product, bool)
}

// Line is one distinct product in the cart with its quantity.
type Line struct {
	ProductID string
	Quantity  int
}

// Cart is an insertion-ordered list of lines, at most one per product id.
// Prices are resolved through the catalog whenever totals are computed.
// It is not safe for concurrent use.
type Cart struct {
	catalog Catalog
	lines   []Line
	index   map[string]int
}

// New returns an empty cart bound to c.
func New(c Catalog) *Cart {
	return &Cart{catalog: c, index: make(map[string]int)}
}

// AddProduct appends p with quantity 1, or increments the existing line.
// Products unknown to the catalog are ignored.
func (c *Cart) AddProduct(p catalog.Product) Snapshot {
	c.add(p.ID)
	return c.Snapshot()
}

// AddAll adds every product not yet in the cart with quantity 1. Lines
// already present keep their quantity.
func (c *Cart) AddAll(products []catalog.Product) Snapshot {
	for _, p := range products {
		if _, ok := c.index[p.ID]; ok {
			continue
		}
		c.add(p.ID)
	}
	return c.Snapshot()
}

func (c *Cart) add(id string) {
	if i, ok := c.index[id]; ok {
		c.lines[i].Quantity++
		return
	}
	if _, ok := c.lookup(id); !ok {
		return
	}
	c.index[id] = len(c.lines)
	c.lines = append(c.lines, Line{ProductID: id, Quantity: 1})
}

// IncreaseQuantity bumps the line for productID by one. It reports false and
// leaves the cart untouched when no such line exists.
func (c *Cart) IncreaseQuantity(productID string) bool {
	i, ok := c.index[productID]
	if !ok {
		return false
	}
	c.lines[i].Quantity++
	return true
}

// Quantity returns the quantity held for productID, zero when absent.
func (c *Cart) Quantity(productID string) int {
	if i, ok := c.index[productID]; ok {
		return c.lines[i].Quantity
	}
	return 0
}

// Total sums unit price times quantity over all lines.
func (c *Cart) Total() pricing.Money {
	return pricing.Compute(c.items()).Total
}

// Len is the number of distinct lines.
func (c *Cart) Len() int { return len(c.lines) }

// IsEmpty reports whether the cart has no lines.
func (c *Cart) IsEmpty() bool { return len(c.lines) == 0 }

// Lines returns a copy of the lines in insertion order.
func (c *Cart) Lines() []Line {
	out := make([]Line, len(c.lines))
	copy(out, c.lines)
	return out
}

// Clear removes every line.
func (c *Cart) Clear() {
	c.lines = nil
	c.index = make(map[string]int)
}

func (c *Cart) lookup(id string) (catalog.Product, bool) {
	if c.catalog == nil {
		return catalog.Product{}, false
	}
	return c.catalog.Lookup(id)
}

func (c *Cart) items() []pricing.Item {
	items := make([]pricing.Item, 0, len(c.lines))
	for _, l := range c.lines {
		p, _ := c.lookup(l.ProductID)
		items = append(items, pricing.Item{Qty: l.Quantity, UnitPrice: p.Price})
	}
	return items
}
