// Package desk holds the application state for the trading desk and drives
// the order submission path.
package desk

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"usdtdesk/internal/domain"
	"usdtdesk/internal/exchange"
	"usdtdesk/internal/services/liquidator"
	"usdtdesk/internal/services/order"
)

// DefaultRefreshInterval gates how often Refresh actually hits the exchange.
const DefaultRefreshInterval = time.Second

type exchangeClient interface {
	FetchBalances(ctx context.Context) (map[string]domain.Balance, error)
	FetchOrderBook(ctx context.Context) (*domain.OrderBook, error)
	PlaceOrder(ctx context.Context, order domain.OrderRequest) (domain.PlacedOrder, error)
	FetchActiveOrders(ctx context.Context) ([]domain.Order, error)
	CancelOrder(ctx context.Context, orderID string) error
	FetchOrderDetail(ctx context.Context, orderID string) (*domain.Order, error)
}

type liquidatorService interface {
	SellAll(ctx context.Context) (liquidator.Result, error)
}

type logStore interface {
	Append(entry domain.LogEntry) error
	Load() []domain.LogEntry
}

// State is the desk's pull-refreshed view of the exchange.
type State struct {
	Balances     map[string]domain.Balance
	OrderBook    *domain.OrderBook
	ActiveOrders []domain.Order
	LastRefresh  time.Time
}

// Desk ties the exchange client, the liquidator and the order log together
// behind one mutex-guarded state struct.
type Desk struct {
	client          exchangeClient
	liquidator      liquidatorService
	log             logStore
	logger          *zap.Logger
	refreshInterval time.Duration

	mu    sync.Mutex
	state State
}

// New creates a desk. A non-positive refreshInterval falls back to the
// default gate.
func New(client exchangeClient, liq liquidatorService, log logStore, refreshInterval time.Duration, logger *zap.Logger) *Desk {
	if refreshInterval <= 0 {
		refreshInterval = DefaultRefreshInterval
	}
	return &Desk{
		client:          client,
		liquidator:      liq,
		log:             log,
		logger:          logger,
		refreshInterval: refreshInterval,
	}
}

// Refresh pulls balances, order book and active orders from the exchange.
// Calls inside the refresh interval return the cached state untouched unless
// force is set. A failed fetch leaves that part of the state empty for this
// cycle; the first failure is returned after all fetches ran.
func (d *Desk) Refresh(ctx context.Context, force bool) (State, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !force && time.Since(d.state.LastRefresh) < d.refreshInterval {
		return d.snapshotLocked(), nil
	}

	var firstErr error

	balances, err := d.client.FetchBalances(ctx)
	if err != nil {
		d.logger.Warn("balance refresh failed", zap.Error(err))
		firstErr = err
	}
	d.state.Balances = balances

	book, err := d.client.FetchOrderBook(ctx)
	if err != nil {
		d.logger.Warn("order book refresh failed", zap.Error(err))
		if firstErr == nil {
			firstErr = err
		}
	}
	d.state.OrderBook = book

	active, err := d.client.FetchActiveOrders(ctx)
	if err != nil {
		d.logger.Warn("active orders refresh failed", zap.Error(err))
		if firstErr == nil {
			firstErr = err
		}
		active = nil
	}
	d.state.ActiveOrders = active

	d.state.LastRefresh = time.Now()

	return d.snapshotLocked(), errors.Wrap(firstErr, "refresh desk state")
}

// Snapshot returns the current state without touching the exchange.
func (d *Desk) Snapshot() State {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.snapshotLocked()
}

func (d *Desk) snapshotLocked() State {
	balances := make(map[string]domain.Balance, len(d.state.Balances))
	for k, v := range d.state.Balances {
		balances[k] = v
	}

	active := make([]domain.Order, len(d.state.ActiveOrders))
	copy(active, d.state.ActiveOrders)

	return State{
		Balances:     balances,
		OrderBook:    d.state.OrderBook,
		ActiveOrders: active,
		LastRefresh:  d.state.LastRefresh,
	}
}

// SubmitOrder validates the input, places the order and appends exactly one
// log entry with the attempt's terminal status. Validation failures never
// reach the network.
func (d *Desk) SubmitOrder(ctx context.Context, in order.Input) (domain.PlacedOrder, error) {
	entry := domain.NewLogEntry(in.Type, in.Side, in.Price, in.Quantity)

	req, err := order.Validate(in)
	if err != nil {
		entry.Status = domain.LogStatusInputError
		entry.ErrorMessage = err.Error()
		d.append(entry)
		return domain.PlacedOrder{}, err
	}

	// record the formatted values actually sent.
	entry.Price = req.Price
	entry.Quantity = req.Quantity

	placed, err := d.client.PlaceOrder(ctx, req)
	if err != nil {
		entry.Status = exchange.StatusFor(err)
		entry.ErrorMessage = err.Error()
		d.append(entry)
		return domain.PlacedOrder{}, err
	}

	entry.Status = domain.LogStatusSuccess
	entry.OrderID = placed.ID
	entry.Response = placed.Response
	d.append(entry)

	d.logger.Info("order placed",
		zap.String("order_id", placed.ID),
		zap.String("type", string(req.Type)),
		zap.String("side", string(req.Side)),
		zap.String("quantity", req.Quantity))

	return placed, nil
}

// CancelOrder cancels an open order.
func (d *Desk) CancelOrder(ctx context.Context, orderID string) error {
	return d.client.CancelOrder(ctx, orderID)
}

// OrderDetail fetches the full record of one order.
func (d *Desk) OrderDetail(ctx context.Context, orderID string) (*domain.Order, error) {
	return d.client.FetchOrderDetail(ctx, orderID)
}

// Liquidate sells off the full target-currency balance via the bounded
// market-sell retry loop.
func (d *Desk) Liquidate(ctx context.Context) (liquidator.Result, error) {
	return d.liquidator.SellAll(ctx)
}

// OrderLog returns the persisted order attempt history.
func (d *Desk) OrderLog() []domain.LogEntry {
	return d.log.Load()
}

func (d *Desk) append(entry domain.LogEntry) {
	if err := d.log.Append(entry); err != nil {
		d.logger.Warn("failed to append order log entry", zap.Error(err))
	}
}
