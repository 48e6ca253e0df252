package checkout

import (
	"errors"
	"net/http"

	"github.com/noah-isme/toko-checkout/internal/common"
)

var (
	// ErrEmptyCart is the empty-cart warning raised by Confirm.
	ErrEmptyCart = errors.New("checkout: cart is empty")
	// ErrInvalidTransition is returned for an intent the current state does not accept.
	ErrInvalidTransition = errors.New("checkout: invalid transition")
	// ErrUnknownProduct is returned when a selected id is not in the catalog.
	ErrUnknownProduct = errors.New("checkout: unknown product")
)

// Warning shown to the shopper when confirming an empty cart.
const (
	EmptyCartTitle   = "Carrinho vazio"
	EmptyCartMessage = "Adicione produtos ao carrinho antes de finalizar a compra!"
)

func emptyCartError(state State) error {
	return common.NewAppError("EMPTY_CART", EmptyCartMessage, http.StatusUnprocessableEntity, ErrEmptyCart).
		WithDetails(map[string]string{"state": state.String(), "title": EmptyCartTitle})
}

func invalidTransitionError(state State, intent Intent) error {
	return common.NewAppError("INVALID_TRANSITION", "action not allowed in current state", http.StatusConflict, ErrInvalidTransition).
		WithDetails(map[string]string{"state": state.String(), "intent": string(intent)})
}

func unknownProductError(id string) error {
	return common.NewAppError("NOT_FOUND", "product not found", http.StatusNotFound, ErrUnknownProduct).
		WithDetails(map[string]string{"productId": id})
}
