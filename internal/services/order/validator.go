// Package order validates and formats user-supplied orders before anything
// touches the network.
package order

import (
	"strings"

	"github.com/shopspring/decimal"

	"usdtdesk/internal/domain"
)

const (
	// MinNotional is the exchange's minimum order value in quote currency.
	MinNotional = 1000
	// MinMarketSellQty is the minimum base-currency quantity for a market sell.
	MinMarketSellQty = "0.001"

	pricePrecision = 2
	qtyPrecision   = 4
)

var (
	minNotional      = decimal.NewFromInt(MinNotional)
	minMarketSellQty = decimal.RequireFromString(MinMarketSellQty)
)

// InputError is user-supplied order data rejected before submission.
type InputError struct {
	Reason string
}

func (e *InputError) Error() string {
	return "invalid order input: " + e.Reason
}

// Input is raw order data as it arrives from the user. Price and Quantity
// keep their free-form string shape until validated here; for a market buy
// Quantity is the quote-currency amount to spend.
type Input struct {
	Type     domain.OrderType
	Side     domain.Side
	Price    string
	Quantity string
	PostOnly bool
}

// Validate checks minimum notional/quantity rules and renders the numeric
// fields with their final precision, truncating rather than rounding. A
// returned InputError means the order must not be submitted.
func Validate(in Input) (domain.OrderRequest, error) {
	qty, err := parsePositive(in.Quantity)
	if err != nil {
		return domain.OrderRequest{}, &InputError{Reason: "quantity " + err.Error()}
	}

	switch in.Type {
	case domain.OrderTypeLimit:
		return validateLimit(in, qty)
	case domain.OrderTypeMarket:
		if in.Side == domain.SideBuy {
			return validateMarketBuy(qty)
		}
		return validateMarketSell(qty)
	}

	return domain.OrderRequest{}, &InputError{Reason: "unsupported order type"}
}

func validateLimit(in Input, qty decimal.Decimal) (domain.OrderRequest, error) {
	price, err := parsePositive(in.Price)
	if err != nil {
		return domain.OrderRequest{}, &InputError{Reason: "price " + err.Error()}
	}

	// truncate first so the check applies to what is actually sent.
	price = price.RoundFloor(pricePrecision)
	qty = qty.RoundFloor(qtyPrecision)

	if price.Mul(qty).LessThan(minNotional) {
		return domain.OrderRequest{}, &InputError{Reason: "order value below minimum of " + minNotional.String()}
	}

	return domain.OrderRequest{
		Type:     domain.OrderTypeLimit,
		Side:     in.Side,
		Price:    price.StringFixed(pricePrecision),
		Quantity: qty.StringFixed(qtyPrecision),
		PostOnly: in.PostOnly,
	}, nil
}

func validateMarketBuy(amount decimal.Decimal) (domain.OrderRequest, error) {
	// spend amount is quote currency, kept in whole units.
	amount = amount.RoundFloor(0)

	if amount.LessThan(minNotional) {
		return domain.OrderRequest{}, &InputError{Reason: "spend amount below minimum of " + minNotional.String()}
	}

	return domain.OrderRequest{
		Type:     domain.OrderTypeMarket,
		Side:     domain.SideBuy,
		Quantity: amount.StringFixed(0),
	}, nil
}

func validateMarketSell(qty decimal.Decimal) (domain.OrderRequest, error) {
	qty = qty.RoundFloor(qtyPrecision)

	if qty.LessThan(minMarketSellQty) {
		return domain.OrderRequest{}, &InputError{Reason: "quantity below minimum of " + minMarketSellQty.String()}
	}

	return domain.OrderRequest{
		Type:     domain.OrderTypeMarket,
		Side:     domain.SideSell,
		Quantity: qty.StringFixed(qtyPrecision),
	}, nil
}

func parsePositive(value string) (decimal.Decimal, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return decimal.Decimal{}, &valueError{"is required"}
	}

	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Decimal{}, &valueError{"is not a number"}
	}
	if d.LessThanOrEqual(decimal.Zero) {
		return decimal.Decimal{}, &valueError{"must be positive"}
	}

	return d, nil
}

type valueError struct {
	reason string
}

func (e *valueError) Error() string { return e.reason }
