// Package liquidator sells off the full target-currency balance through
// repeated market sells, since a single order may only partially fill.
package liquidator

import (
	"context"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"usdtdesk/internal/domain"
	"usdtdesk/internal/exchange"
)

const (
	// maxAttempts bounds the submit/check loop; there is never a fourth
	// submission.
	maxAttempts = 3

	// lotPrecision truncates sell amounts to one decimal place, coarser
	// than normal order quantities, to stay inside the exchange's lot-size
	// tolerance.
	lotPrecision = 1
)

// fillThreshold is the execution ratio, measured against the balance captured
// at the start of the run, at which the run counts as complete.
var fillThreshold = decimal.RequireFromString("0.995")

type exchangeClient interface {
	FetchBalances(ctx context.Context) (map[string]domain.Balance, error)
	PlaceOrder(ctx context.Context, order domain.OrderRequest) (domain.PlacedOrder, error)
	FetchOrderDetail(ctx context.Context, orderID string) (*domain.Order, error)
}

type logAppender interface {
	Append(entry domain.LogEntry) error
}

// Liquidator drives the bounded market-sell retry loop for one market.
type Liquidator struct {
	client exchangeClient
	log    logAppender
	market domain.Market
	logger *zap.Logger
}

// New creates a liquidator for the market's target currency.
func New(client exchangeClient, log logAppender, market domain.Market, logger *zap.Logger) *Liquidator {
	return &Liquidator{client: client, log: log, market: market, logger: logger}
}

// Result reports how a liquidation run ended.
type Result struct {
	// Attempts is the number of orders submitted.
	Attempts int
	// InitialBalance is the available balance captured at the start of the
	// run; it is the denominator of the fill ratio across all attempts.
	InitialBalance decimal.Decimal
	// Executed is the cumulative quantity filled across attempts.
	Executed decimal.Decimal
	// Completed is true when the fill ratio reached the threshold, or when a
	// later attempt found nothing left to sell.
	Completed bool
	// Message carries the human-readable outcome for incomplete runs.
	Message string
}

// SellAll liquidates the available target-currency balance. Partial fills are
// retried up to the attempt budget; a failed submission aborts immediately
// and is returned as the error. An exhausted budget is not an error, the
// result just reports the remainder.
func (l *Liquidator) SellAll(ctx context.Context) (Result, error) {
	var (
		result   Result
		initial  decimal.Decimal
		executed decimal.Decimal
	)

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		balances, err := l.client.FetchBalances(ctx)
		if err != nil {
			return result, errors.Wrap(err, "read balance for liquidation")
		}
		available := balances[l.market.Target].Available

		if attempt == 1 {
			initial = available
			result.InitialBalance = initial
		}

		amount := available.RoundFloor(lotPrecision)
		if amount.IsZero() {
			if attempt == 1 {
				result.Message = "nothing to sell"
				return result, nil
			}
			// earlier fills consumed the rest of the balance.
			result.Completed = true
			return result, nil
		}

		result.Attempts = attempt
		entry := domain.NewLogEntry(domain.OrderTypeMarket, domain.SideSell, "", amount.StringFixed(lotPrecision))

		placed, err := l.client.PlaceOrder(ctx, domain.OrderRequest{
			Type:     domain.OrderTypeMarket,
			Side:     domain.SideSell,
			Quantity: amount.StringFixed(lotPrecision),
		})
		if err != nil {
			entry.Status = exchange.StatusFor(err)
			entry.ErrorMessage = err.Error()
			l.append(entry)
			return result, errors.Wrapf(err, "liquidation sell attempt %d", attempt)
		}

		entry.Status = domain.LogStatusSuccess
		entry.OrderID = placed.ID
		entry.Response = placed.Response
		l.append(entry)

		detail, err := l.client.FetchOrderDetail(ctx, placed.ID)
		if err != nil {
			return result, errors.Wrapf(err, "check fill of order %s", placed.ID)
		}

		executed = executed.Add(detail.ExecutedQty)
		result.Executed = executed

		ratio := executed.Div(initial)
		if ratio.GreaterThanOrEqual(fillThreshold) {
			result.Completed = true
			l.logger.Info("liquidation complete",
				zap.Int("attempts", attempt),
				zap.String("executed", executed.String()),
				zap.String("initial_balance", initial.String()))
			return result, nil
		}

		l.logger.Info("partial fill, retrying",
			zap.Int("attempt", attempt),
			zap.String("fill_ratio", ratio.StringFixed(4)),
			zap.String("order_id", placed.ID))
	}

	result.Message = "retry budget exhausted, some balance may remain unsold"
	l.logger.Warn("liquidation incomplete",
		zap.Int("attempts", result.Attempts),
		zap.String("executed", executed.String()),
		zap.String("initial_balance", initial.String()))
	return result, nil
}

func (l *Liquidator) append(entry domain.LogEntry) {
	if l.log == nil {
		return
	}
	if err := l.log.Append(entry); err != nil {
		l.logger.Warn("failed to append order log entry", zap.Error(err))
	}
}
