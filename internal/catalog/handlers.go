package catalog

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/toko-checkout/internal/common"
	"github.com/noah-isme/toko-checkout/internal/pricing"
)

// ProductView is the public JSON projection of a Product.
type ProductView struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	Price        pricing.Money `json:"price"`
	PriceDisplay string        `json:"priceDisplay"`
}

// Handler exposes public catalog endpoints.
type Handler struct {
	catalog *Catalog
	symbol  string
}

// HandlerConfig configures the Handler dependencies.
type HandlerConfig struct {
	Catalog        *Catalog
	CurrencySymbol string
}

// NewHandler constructs a Handler.
func NewHandler(cfg HandlerConfig) *Handler {
	return &Handler{catalog: cfg.Catalog, symbol: cfg.CurrencySymbol}
}

// List handles GET /api/v1/products.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	if h.catalog == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "catalog not configured", nil)
		return
	}
	products := h.catalog.Products()
	views := make([]ProductView, 0, len(products))
	for _, p := range products {
		views = append(views, h.view(p))
	}
	w.Header().Set("X-Total-Count", strconv.Itoa(len(views)))
	common.Data(w, http.StatusOK, views)
}

// Get handles GET /api/v1/products/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	if h.catalog == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "catalog not configured", nil)
		return
	}
	id := chi.URLParam(r, "id")
	p, ok := h.catalog.Lookup(id)
	if !ok {
		common.JSONError(w, http.StatusNotFound, "PRODUCT_NOT_FOUND", "product not found", map[string]string{"productId": id})
		return
	}
	common.Data(w, http.StatusOK, h.view(p))
}

func (h *Handler) view(p Product) ProductView {
	return ProductView{
		ID:           p.ID,
		Name:         p.Name,
		Price:        p.Price,
		PriceDisplay: pricing.Format(p.Price, h.symbol),
	}
}
