package session

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	validator "github.com/go-playground/validator/v10"

	"github.com/noah-isme/toko-checkout/internal/cart"
	"github.com/noah-isme/toko-checkout/internal/checkout"
	"github.com/noah-isme/toko-checkout/internal/common"
	"github.com/noah-isme/toko-checkout/internal/pricing"
)

// ThankYouMessage is shown on the confirmation screen.
const ThankYouMessage = "Obrigado pela compra!"

// Handler exposes session operations over HTTP.
type Handler struct {
	Service        *Service
	Tokens         Tokens
	CurrencySymbol string
	Validate       *validator.Validate
}

type productRequest struct {
	ProductID string `json:"productId" validate:"required,max=64"`
}

// LineResponse is a cart line with formatted prices.
type LineResponse struct {
	cart.LineView
	UnitPriceDisplay string `json:"unitPriceDisplay"`
	LineTotalDisplay string `json:"lineTotalDisplay"`
}

// CartResponse is the cart screen payload.
type CartResponse struct {
	Lines        []LineResponse `json:"lines"`
	Units        int            `json:"units"`
	Total        pricing.Money  `json:"total"`
	TotalDisplay string         `json:"totalDisplay"`
}

// OrderResponse is the confirmation screen payload.
type OrderResponse struct {
	Total        pricing.Money `json:"total"`
	TotalDisplay string        `json:"totalDisplay"`
	Units        int           `json:"units"`
	ConfirmedAt  time.Time     `json:"confirmedAt"`
	Message      string        `json:"message"`
}

// Response is the rendered session state.
type Response struct {
	SessionID string         `json:"sessionId"`
	State     checkout.State `json:"state"`
	Cart      CartResponse   `json:"cart"`
	Order     *OrderResponse `json:"order,omitempty"`
	ExpiresAt time.Time      `json:"expiresAt"`
}

// StartResponse is returned when a session is opened.
type StartResponse struct {
	Response
	Token          string    `json:"token"`
	TokenExpiresAt time.Time `json:"tokenExpiresAt"`
}

func (h *Handler) render(v View) Response {
	lines := make([]LineResponse, 0, len(v.Cart.Lines))
	for _, l := range v.Cart.Lines {
		lines = append(lines, LineResponse{
			LineView:         l,
			UnitPriceDisplay: pricing.Format(l.UnitPrice, h.CurrencySymbol),
			LineTotalDisplay: pricing.Format(l.LineTotal, h.CurrencySymbol),
		})
	}
	resp := Response{
		SessionID: v.SessionID,
		State:     v.State,
		Cart: CartResponse{
			Lines:        lines,
			Units:        v.Cart.Units,
			Total:        v.Cart.Total,
			TotalDisplay: pricing.Format(v.Cart.Total, h.CurrencySymbol),
		},
		ExpiresAt: v.ExpiresAt,
	}
	if v.Order != nil {
		resp.Order = &OrderResponse{
			Total:        v.Order.Total,
			TotalDisplay: pricing.Format(v.Order.Total, h.CurrencySymbol),
			Units:        v.Order.Units,
			ConfirmedAt:  v.Order.ConfirmedAt,
			Message:      ThankYouMessage,
		}
	}
	return resp
}

func (h *Handler) ready(w http.ResponseWriter) bool {
	if h == nil || h.Service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "session service not configured", nil)
		return false
	}
	return true
}

// Start handles POST /sessions.
func (h *Handler) Start(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	v, err := h.Service.Start(r.Context())
	if err != nil {
		common.WriteError(w, err)
		return
	}
	token, exp, err := h.Tokens.Issue(v.SessionID)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to issue session token", nil)
		return
	}
	common.Data(w, http.StatusCreated, StartResponse{Response: h.render(v), Token: token, TokenExpiresAt: exp})
}

// Get handles GET /session.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	id, ok := common.SessionID(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing session", nil)
		return
	}
	v, err := h.Service.View(r.Context(), id)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusOK, h.render(v))
}

// Select handles POST /session/select.
func (h *Handler) Select(w http.ResponseWriter, r *http.Request) {
	h.withProduct(w, r, checkout.IntentSelect)
}

// Increase handles POST /session/increase.
func (h *Handler) Increase(w http.ResponseWriter, r *http.Request) {
	h.withProduct(w, r, checkout.IntentIncrease)
}

// SelectAll handles POST /session/select-all.
func (h *Handler) SelectAll(w http.ResponseWriter, r *http.Request) {
	h.apply(w, r, Command{Intent: checkout.IntentSelectAll})
}

// Confirm handles POST /session/confirm.
func (h *Handler) Confirm(w http.ResponseWriter, r *http.Request) {
	h.apply(w, r, Command{Intent: checkout.IntentConfirm})
}

// Acknowledge handles POST /session/acknowledge.
func (h *Handler) Acknowledge(w http.ResponseWriter, r *http.Request) {
	h.apply(w, r, Command{Intent: checkout.IntentAcknowledge})
}

// Browse handles POST /session/browse.
func (h *Handler) Browse(w http.ResponseWriter, r *http.Request) {
	h.apply(w, r, Command{Intent: checkout.IntentBrowse})
}

// ViewCart handles POST /session/view-cart.
func (h *Handler) ViewCart(w http.ResponseWriter, r *http.Request) {
	h.apply(w, r, Command{Intent: checkout.IntentViewCart})
}

func (h *Handler) withProduct(w http.ResponseWriter, r *http.Request, intent checkout.Intent) {
	var req productRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<16)).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON body", nil)
		return
	}
	req.ProductID = strings.TrimSpace(req.ProductID)
	if err := h.validator().Struct(req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "productId is required", validationDetails(err))
		return
	}
	h.apply(w, r, Command{Intent: intent, ProductID: req.ProductID})
}

func (h *Handler) apply(w http.ResponseWriter, r *http.Request, cmd Command) {
	if !h.ready(w) {
		return
	}
	id, ok := common.SessionID(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing session", nil)
		return
	}
	v, err := h.Service.Apply(r.Context(), id, cmd)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusOK, h.render(v))
}

func (h *Handler) validator() *validator.Validate {
	if h.Validate != nil {
		return h.Validate
	}
	return defaultValidate
}

var defaultValidate = validator.New(validator.WithRequiredStructEnabled())

func validationDetails(err error) map[string]string {
	details := map[string]string{}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			details[fe.Field()] = fe.Tag()
		}
	}
	return details
}
