package cart

import "github.com/noah-isme/toko-checkout/internal/pricing"

// LineView is the read-only projection of a Line.
type LineView struct {
	ProductID string        `json:"productId"`
	Name      string        `json:"name"`
	UnitPrice pricing.Money `json:"unitPrice"`
	Quantity  int           `json:"quantity"`
	LineTotal pricing.Money `json:"lineTotal"`
}

// Snapshot is an immutable view of the cart used for rendering.
type Snapshot struct {
	Lines []LineView    `json:"lines"`
	Units int           `json:"units"`
	Total pricing.Money `json:"total"`
}

// Snapshot projects the current cart state.
func (c *Cart) Snapshot() Snapshot {
	snap := Snapshot{Lines: make([]LineView, 0, len(c.lines))}
	for _, l := range c.lines {
		p, _ := c.lookup(l.ProductID)
		lineTotal := pricing.LineTotal(l.Quantity, p.Price)
		snap.Lines = append(snap.Lines, LineView{
			ProductID: l.ProductID,
			Name:      p.Name,
			UnitPrice: p.Price,
			Quantity:  l.Quantity,
			LineTotal: lineTotal,
		})
		snap.Units += l.Quantity
		snap.Total += lineTotal
	}
	return snap
}

// IsEmpty reports whether the snapshot holds no lines.
func (s Snapshot) IsEmpty() bool { return len(s.Lines) == 0 }
