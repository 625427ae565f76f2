// Package domain defines the core data structures shared by the trading desk.
package domain

import "fmt"

// Market identifies a quote/target currency pair on the exchange.
type Market struct {
	// Quote currency the market is priced in.
	Quote string
	// Target currency being traded.
	Target string
}

// String returns the string representation.
func (m Market) String() string {
	return fmt.Sprintf("%s/%s", m.Quote, m.Target)
}

// KRWUSDT is the only market the desk trades.
var KRWUSDT = Market{Quote: "KRW", Target: "USDT"}
