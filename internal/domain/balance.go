package domain

import "github.com/shopspring/decimal"

// Balance holds per-currency funds as reported by the exchange.
type Balance struct {
	// Available funds free for new orders.
	Available decimal.Decimal
	// Locked funds reserved by open orders.
	Locked decimal.Decimal
}

// Total returns available plus locked funds.
func (b Balance) Total() decimal.Decimal {
	return b.Available.Add(b.Locked)
}
