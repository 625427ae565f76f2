package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PriceLevel is one price point of an order book side.
type PriceLevel struct {
	Price    decimal.Decimal
	Quantity decimal.Decimal
}

// OrderBook is a point-in-time depth snapshot. Bids are ordered descending by
// price as received; asks are stored descending as well (best ask last) so
// both sides read top-down on a ladder. A snapshot is stale the moment it is
// taken and must be refreshed explicitly.
type OrderBook struct {
	Bids      []PriceLevel
	Asks      []PriceLevel
	FetchedAt time.Time
}

// BestBid returns the highest bid, or zero level when the side is empty.
func (ob *OrderBook) BestBid() PriceLevel {
	if ob == nil || len(ob.Bids) == 0 {
		return PriceLevel{}
	}
	return ob.Bids[0]
}

// BestAsk returns the lowest ask, or zero level when the side is empty.
func (ob *OrderBook) BestAsk() PriceLevel {
	if ob == nil || len(ob.Asks) == 0 {
		return PriceLevel{}
	}
	return ob.Asks[len(ob.Asks)-1]
}
