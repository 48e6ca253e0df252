package catalog

import (
	"errors"
	"fmt"
	"strings"

	validator "github.com/go-playground/validator/v10"

	"github.com/noah-isme/toko-checkout/internal/pricing"
)

// ErrInvalidCatalog is returned when the product list violates catalog invariants.
var ErrInvalidCatalog = errors.New("catalog: invalid product list")

var validate = validator.New(validator.WithRequiredStructEnabled())

// Product is a purchasable catalog entry. Price is stored in minor units.
type Product struct {
	ID    string        `json:"id" validate:"required,max=64"`
	Name  string        `json:"name" validate:"required,max=200"`
	Price pricing.Money `json:"price" validate:"gte=0"`
}

// Catalog is an immutable, order-stable product list with lookup by id.
type Catalog struct {
	products []Product
	index    map[string]int
}

// New validates products and builds a Catalog preserving the given order.
func New(products []Product) (*Catalog, error) {
	list := make([]Product, 0, len(products))
	index := make(map[string]int, len(products))
	for i, p := range products {
		p.ID = strings.TrimSpace(p.ID)
		p.Name = strings.TrimSpace(p.Name)
		if err := validate.Struct(p); err != nil {
			return nil, fmt.Errorf("%w: product #%d: %v", ErrInvalidCatalog, i, err)
		}
		if _, dup := index[p.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate product id %q", ErrInvalidCatalog, p.ID)
		}
		index[p.ID] = len(list)
		list = append(list, p)
	}
	return &Catalog{products: list, index: index}, nil
}

// MustNew behaves like New but panics on error. Useful for tests and fixed data.
func MustNew(products []Product) *Catalog {
	c, err := New(products)
	if err != nil {
		panic(err)
	}
	return c
}

// Products returns a copy of the catalog in its stable order.
func (c *Catalog) Products() []Product {
	if c == nil {
		return nil
	}
	out := make([]Product, len(c.products))
	copy(out, c.products)
	return out
}

// Lookup resolves a product by id.
func (c *Catalog) Lookup(id string) (Product, bool) {
	if c == nil {
		return Product{}, false
	}
	i, ok := c.index[id]
	if !ok {
		return Product{}, false
	}
	return c.products[i], true
}

// Len reports the number of products.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.products)
}

// DefaultProducts is the demo catalog served when no other source is configured.
func DefaultProducts() []Product {
	return []Product{
		{ID: "1", Name: "Produto A", Price: 1999},
		{ID: "2", Name: "Produto B", Price: 3999},
		{ID: "3", Name: "Produto C", Price: 5999},
	}
}
