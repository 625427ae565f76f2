package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Side of an order.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// ParseSide converts a wire/user string into a Side.
func ParseSide(value string) (Side, error) {
	switch Side(strings.ToUpper(strings.TrimSpace(value))) {
	case SideBuy:
		return SideBuy, nil
	case SideSell:
		return SideSell, nil
	}
	return "", fmt.Errorf("unsupported order side: %s", value)
}

// OrderType is the execution type of an order.
type OrderType string

const (
	OrderTypeLimit  OrderType = "LIMIT"
	OrderTypeMarket OrderType = "MARKET"
)

// ParseOrderType converts a wire/user string into an OrderType.
func ParseOrderType(value string) (OrderType, error) {
	switch OrderType(strings.ToUpper(strings.TrimSpace(value))) {
	case OrderTypeLimit:
		return OrderTypeLimit, nil
	case OrderTypeMarket:
		return OrderTypeMarket, nil
	}
	return "", fmt.Errorf("unsupported order type: %s", value)
}

// OrderRequest is a validated order ready for submission. Price and Quantity
// are already truncated and rendered with their final precision; for a market
// buy Quantity holds the quote-currency amount to spend.
type OrderRequest struct {
	Type     OrderType
	Side     Side
	Price    string
	Quantity string
	PostOnly bool
}

// PlacedOrder is the exchange acknowledgement of a submitted order.
type PlacedOrder struct {
	ID       string
	Response []byte
}

// Order is an exchange-side order record. It is created by placement and
// mutated only by the exchange; the desk never updates it locally.
type Order struct {
	ID          string
	Type        OrderType
	Side        Side
	Price       decimal.Decimal
	Quantity    decimal.Decimal
	ExecutedQty decimal.Decimal
	RemainQty   decimal.Decimal
	Status      string
	OrderedAt   time.Time
	UpdatedAt   time.Time
}
