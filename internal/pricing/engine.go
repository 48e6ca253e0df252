package pricing

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Money represents a monetary value stored in minor units.
type Money = int64

// ErrInvalidAmount is returned when a decimal amount cannot be represented in minor units.
var ErrInvalidAmount = errors.New("pricing: invalid amount")

// Item describes a line item used for pricing calculation.
type Item struct {
	Qty       int
	UnitPrice Money
}

// Summary aggregates computed pricing components.
type Summary struct {
	Subtotal Money
	Units    int
	Total    Money
}

// LineTotal returns qty × unitPrice, or zero for non-positive quantities.
func LineTotal(qty int, unitPrice Money) Money {
	if qty <= 0 {
		return 0
	}
	return Money(qty) * unitPrice
}

// Compute calculates cart totals given the provided items.
func Compute(items []Item) Summary {
	var (
		subtotal Money
		units    int
	)
	for _, it := range items {
		if it.Qty <= 0 {
			continue
		}
		subtotal += LineTotal(it.Qty, it.UnitPrice)
		units += it.Qty
	}
	return Summary{
		Subtotal: subtotal,
		Units:    units,
		Total:    subtotal,
	}
}

// Format renders an amount with two decimal places, e.g. "R$ 19.99".
func Format(amount Money, symbol string) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	value := fmt.Sprintf("%s%d.%02d", sign, amount/100, amount%100)
	symbol = strings.TrimSpace(symbol)
	if symbol == "" {
		return value
	}
	return symbol + " " + value
}

// ParseDecimal converts a decimal string in major units ("19.99") into minor units.
// At most two fractional digits are accepted; negative amounts are rejected.
func ParseDecimal(value string) (Money, error) {
	value = strings.TrimSpace(value)
	if value == "" || strings.HasPrefix(value, "-") || strings.HasPrefix(value, "+") {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, value)
	}
	whole, frac, hasFrac := strings.Cut(value, ".")
	if whole == "" {
		whole = "0"
	}
	if hasFrac && (frac == "" || len(frac) > 2) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, value)
	}
	for len(frac) < 2 {
		frac += "0"
	}
	major, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, value)
	}
	minor, err := strconv.ParseInt(frac, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, value)
	}
	if major > (math.MaxInt64-minor)/100 {
		return 0, fmt.Errorf("%w: %q out of range", ErrInvalidAmount, value)
	}
	return major*100 + minor, nil
}
