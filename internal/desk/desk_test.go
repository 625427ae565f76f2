package desk

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"usdtdesk/internal/domain"
	"usdtdesk/internal/exchange"
	"usdtdesk/internal/services/liquidator"
	"usdtdesk/internal/services/order"
)

type fakeClient struct {
	balanceCalls int
	bookCalls    int
	activeCalls  int

	placed   []domain.OrderRequest
	placeErr error

	cancelled []string
}

func (f *fakeClient) FetchBalances(ctx context.Context) (map[string]domain.Balance, error) {
	f.balanceCalls++
	return map[string]domain.Balance{
		"KRW":  {Available: decimal.NewFromInt(100000)},
		"USDT": {Available: decimal.NewFromInt(50)},
	}, nil
}

func (f *fakeClient) FetchOrderBook(ctx context.Context) (*domain.OrderBook, error) {
	f.bookCalls++
	return &domain.OrderBook{
		Bids:      []domain.PriceLevel{{Price: decimal.NewFromInt(1400), Quantity: decimal.NewFromInt(1)}},
		Asks:      []domain.PriceLevel{{Price: decimal.NewFromInt(1401), Quantity: decimal.NewFromInt(1)}},
		FetchedAt: time.Now(),
	}, nil
}

func (f *fakeClient) PlaceOrder(ctx context.Context, req domain.OrderRequest) (domain.PlacedOrder, error) {
	if f.placeErr != nil {
		return domain.PlacedOrder{}, f.placeErr
	}
	f.placed = append(f.placed, req)
	return domain.PlacedOrder{ID: "ord-1", Response: []byte(`{"result":"success"}`)}, nil
}

func (f *fakeClient) FetchActiveOrders(ctx context.Context) ([]domain.Order, error) {
	f.activeCalls++
	return []domain.Order{{ID: "open-1"}}, nil
}

func (f *fakeClient) CancelOrder(ctx context.Context, orderID string) error {
	f.cancelled = append(f.cancelled, orderID)
	return nil
}

func (f *fakeClient) FetchOrderDetail(ctx context.Context, orderID string) (*domain.Order, error) {
	return &domain.Order{ID: orderID}, nil
}

type fakeLiquidator struct {
	result liquidator.Result
}

func (f *fakeLiquidator) SellAll(ctx context.Context) (liquidator.Result, error) {
	return f.result, nil
}

type memoryLog struct {
	entries []domain.LogEntry
}

func (m *memoryLog) Append(entry domain.LogEntry) error {
	m.entries = append(m.entries, entry)
	return nil
}

func (m *memoryLog) Load() []domain.LogEntry {
	return m.entries
}

func newTestDesk(client *fakeClient, log *memoryLog) *Desk {
	return New(client, &fakeLiquidator{}, log, time.Second, zap.NewNop())
}

func TestRefreshIsGatedByInterval(t *testing.T) {
	client := &fakeClient{}
	d := newTestDesk(client, &memoryLog{})

	state, err := d.Refresh(context.Background(), false)
	require.NoError(t, err)
	assert.Len(t, state.Balances, 2)
	assert.NotNil(t, state.OrderBook)
	assert.Len(t, state.ActiveOrders, 1)
	assert.False(t, state.LastRefresh.IsZero())

	// a second refresh inside the gate serves the cached state.
	_, err = d.Refresh(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, 1, client.balanceCalls)
	assert.Equal(t, 1, client.bookCalls)

	// force bypasses the gate.
	_, err = d.Refresh(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, 2, client.balanceCalls)
}

func TestSubmitOrderValidationFailureNeverHitsNetwork(t *testing.T) {
	client := &fakeClient{}
	log := &memoryLog{}
	d := newTestDesk(client, log)

	_, err := d.SubmitOrder(context.Background(), order.Input{
		Type:     domain.OrderTypeLimit,
		Side:     domain.SideBuy,
		Price:    "1350",
		Quantity: "not-a-number",
	})
	require.Error(t, err)

	var inputErr *order.InputError
	assert.ErrorAs(t, err, &inputErr)
	assert.Empty(t, client.placed, "invalid input must not reach the exchange")

	require.Len(t, log.entries, 1)
	assert.Equal(t, domain.LogStatusInputError, log.entries[0].Status)
	assert.NotEmpty(t, log.entries[0].ErrorMessage)
}

func TestSubmitOrderSuccessLogsTerminalEntry(t *testing.T) {
	client := &fakeClient{}
	log := &memoryLog{}
	d := newTestDesk(client, log)

	placed, err := d.SubmitOrder(context.Background(), order.Input{
		Type:     domain.OrderTypeLimit,
		Side:     domain.SideSell,
		Price:    "1350.999",
		Quantity: "2.55559",
	})
	require.NoError(t, err)
	assert.Equal(t, "ord-1", placed.ID)

	require.Len(t, client.placed, 1)
	assert.Equal(t, "1350.99", client.placed[0].Price)
	assert.Equal(t, "2.5555", client.placed[0].Quantity)

	require.Len(t, log.entries, 1)
	entry := log.entries[0]
	assert.Equal(t, domain.LogStatusSuccess, entry.Status)
	assert.Equal(t, "ord-1", entry.OrderID)
	assert.Equal(t, "1350.99", entry.Price, "the entry records the formatted values actually sent")
	assert.NotEmpty(t, entry.Response)
	assert.NotEmpty(t, entry.UUID)
}

func TestSubmitOrderAPIFailureLogsStatus(t *testing.T) {
	client := &fakeClient{placeErr: &exchange.APIError{Code: "305", Message: "insufficient balance"}}
	log := &memoryLog{}
	d := newTestDesk(client, log)

	_, err := d.SubmitOrder(context.Background(), order.Input{
		Type:     domain.OrderTypeLimit,
		Side:     domain.SideBuy,
		Price:    "1350",
		Quantity: "10",
	})
	require.Error(t, err)

	require.Len(t, log.entries, 1)
	assert.Equal(t, domain.LogStatusAPIError, log.entries[0].Status)
	assert.Contains(t, log.entries[0].ErrorMessage, "insufficient balance")
}

func TestCancelOrderDelegates(t *testing.T) {
	client := &fakeClient{}
	d := newTestDesk(client, &memoryLog{})

	require.NoError(t, d.CancelOrder(context.Background(), "ord-7"))
	assert.Equal(t, []string{"ord-7"}, client.cancelled)
}
