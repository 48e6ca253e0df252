package checkout_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-checkout/internal/catalog"
	"github.com/noah-isme/toko-checkout/internal/checkout"
	"github.com/noah-isme/toko-checkout/internal/common"
)

func newFlow(t *testing.T) *checkout.Flow {
	t.Helper()
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.FixedZone("BRT", -3*3600))
	return checkout.NewFlow(catalog.MustNew(catalog.DefaultProducts()), checkout.WithClock(func() time.Time { return fixed }))
}

func TestFlowHappyPath(t *testing.T) {
	f := newFlow(t)
	require.Equal(t, checkout.Browsing, f.State())

	snap, err := f.SelectProduct("1")
	require.NoError(t, err)
	require.EqualValues(t, 1999, snap.Total)
	require.Equal(t, checkout.Editing, f.State())

	require.NoError(t, f.Browse())
	snap, err = f.SelectProduct("1")
	require.NoError(t, err)
	require.EqualValues(t, 3998, snap.Total)

	require.NoError(t, f.Browse())
	snap, err = f.SelectProduct("2")
	require.NoError(t, err)
	require.EqualValues(t, 7997, snap.Total)

	order, err := f.Confirm()
	require.NoError(t, err)
	require.EqualValues(t, 7997, order.Total)
	require.Equal(t, 3, order.Units)
	require.Equal(t, time.Date(2026, 3, 1, 15, 0, 0, 0, time.UTC), order.ConfirmedAt)
	require.Equal(t, checkout.Confirmed, f.State())
	require.True(t, f.Snapshot().IsEmpty())

	last, ok := f.LastOrder()
	require.True(t, ok)
	require.Equal(t, order, last)

	require.NoError(t, f.Acknowledge())
	require.Equal(t, checkout.Browsing, f.State())
	_, ok = f.LastOrder()
	require.False(t, ok)
}

func TestFlowConfirmEmptyCart(t *testing.T) {
	f := newFlow(t)
	_, err := f.ViewCart()
	require.NoError(t, err)

	_, err = f.Confirm()
	require.ErrorIs(t, err, checkout.ErrEmptyCart)

	var appErr *common.AppError
	require.True(t, errors.As(err, &appErr))
	require.Equal(t, "EMPTY_CART", appErr.Code)
	require.Equal(t, http.StatusUnprocessableEntity, appErr.HTTPStatus)
	require.Equal(t, "Adicione produtos ao carrinho antes de finalizar a compra!", appErr.Message)
	require.Equal(t, map[string]string{"state": "editing", "title": "Carrinho vazio"}, appErr.Details)

	require.Equal(t, checkout.Editing, f.State())
	require.True(t, f.Snapshot().IsEmpty())
	_, ok := f.LastOrder()
	require.False(t, ok)
}

func TestFlowSelectAll(t *testing.T) {
	f := newFlow(t)
	snap, err := f.SelectAll()
	require.NoError(t, err)
	require.Len(t, snap.Lines, 3)
	require.EqualValues(t, 11997, snap.Total)
}

func TestFlowIncrease(t *testing.T) {
	f := newFlow(t)
	_, err := f.SelectProduct("3")
	require.NoError(t, err)

	snap, err := f.Increase("3")
	require.NoError(t, err)
	require.Equal(t, 2, snap.Lines[0].Quantity)

	snap, err = f.Increase("1")
	require.NoError(t, err, "increasing an absent line is a no-op")
	require.Len(t, snap.Lines, 1)
	require.EqualValues(t, 11998, snap.Total)
}

func TestFlowRejectsInvalidTransitions(t *testing.T) {
	f := newFlow(t)

	_, err := f.Increase("1")
	require.ErrorIs(t, err, checkout.ErrInvalidTransition)
	_, err = f.Confirm()
	require.ErrorIs(t, err, checkout.ErrInvalidTransition)
	require.ErrorIs(t, f.Acknowledge(), checkout.ErrInvalidTransition)
	require.ErrorIs(t, f.Browse(), checkout.ErrInvalidTransition)
	require.Equal(t, checkout.Browsing, f.State())

	_, err = f.SelectProduct("1")
	require.NoError(t, err)
	_, err = f.SelectProduct("2")
	require.ErrorIs(t, err, checkout.ErrInvalidTransition)
	_, err = f.SelectAll()
	require.ErrorIs(t, err, checkout.ErrInvalidTransition)

	var appErr *common.AppError
	require.True(t, errors.As(err, &appErr))
	require.Equal(t, http.StatusConflict, appErr.HTTPStatus)
	require.Equal(t, map[string]string{"state": "editing", "intent": "select_all"}, appErr.Details)

	_, err = f.Confirm()
	require.NoError(t, err)
	_, err = f.SelectProduct("1")
	require.ErrorIs(t, err, checkout.ErrInvalidTransition)
	require.ErrorIs(t, f.Browse(), checkout.ErrInvalidTransition)
	require.Equal(t, checkout.Confirmed, f.State())
}

func TestFlowUnknownProduct(t *testing.T) {
	f := newFlow(t)
	snap, err := f.SelectProduct("42")
	require.ErrorIs(t, err, checkout.ErrUnknownProduct)
	require.True(t, snap.IsEmpty())
	require.Equal(t, checkout.Browsing, f.State())
}

func TestFlowBrowseKeepsCart(t *testing.T) {
	f := newFlow(t)
	_, err := f.SelectProduct("2")
	require.NoError(t, err)
	require.NoError(t, f.Browse())
	require.Equal(t, checkout.Browsing, f.State())
	require.EqualValues(t, 3999, f.Snapshot().Total)

	snap, err := f.ViewCart()
	require.NoError(t, err)
	require.EqualValues(t, 3999, snap.Total)
	require.Equal(t, checkout.Editing, f.State())
}

func TestStateMarshalsAsText(t *testing.T) {
	out, err := json.Marshal(map[string]checkout.State{"state": checkout.Confirmed})
	require.NoError(t, err)
	require.JSONEq(t, `{"state":"confirmed"}`, string(out))
	require.Len(t, checkout.Intents(), 7)
}
