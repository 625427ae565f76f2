package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"usdtdesk/internal/domain"
)

const (
	pathBalances     = "/v2.1/account/balance"
	pathPlaceOrder   = "/v2.1/order"
	pathCancelOrder  = "/v2.1/order/cancel"
	pathOrderDetail  = "/v2.1/order/detail"
	pathActiveOrders = "/v2.1/order/active-orders"
	pathOrderBook    = "/public/v2/orderbook"

	headerPayload   = "X-SIGNED-PAYLOAD"
	headerSignature = "X-SIGNATURE"

	// OrderBookDepth is the number of levels retained per side.
	OrderBookDepth = 5

	defaultHTTPTimeout = 10 * time.Second
)

// Client wraps the exchange REST API for one market. Private endpoints are
// POSTs carrying the signed payload envelope; the order book endpoint is
// public and unsigned. Every signed call gets its own nonce, retries included.
type Client struct {
	baseURL string
	market  domain.Market
	signer  *Signer
	http    *http.Client
}

// NewClient creates an exchange client. A nil httpClient falls back to a
// default with a request timeout.
func NewClient(baseURL string, market domain.Market, signer *Signer, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		market:  market,
		signer:  signer,
		http:    httpClient,
	}
}

// FetchBalances returns quote and target currency balances only. On any
// failure it returns an empty map alongside the error, so callers can render
// a blank state without nil checks.
func (c *Client) FetchBalances(ctx context.Context) (map[string]domain.Balance, error) {
	raw, err := c.signedPost(ctx, pathBalances, map[string]any{})
	if err != nil {
		return map[string]domain.Balance{}, errors.Wrap(err, "fetch balances")
	}

	var res struct {
		Balances []struct {
			Currency  string `json:"currency"`
			Available string `json:"available"`
			Limit     string `json:"limit"`
		} `json:"balances"`
	}
	if err := json.Unmarshal(raw, &res); err != nil {
		return map[string]domain.Balance{}, &DecodeError{Err: err}
	}

	out := make(map[string]domain.Balance, 2)
	for _, b := range res.Balances {
		currency := strings.ToUpper(b.Currency)
		if currency != c.market.Quote && currency != c.market.Target {
			continue
		}

		available, err := parseAmount(b.Available)
		if err != nil {
			return map[string]domain.Balance{}, &DecodeError{Err: errors.Wrapf(err, "balance available for %s", currency)}
		}
		locked, err := parseAmount(b.Limit)
		if err != nil {
			return map[string]domain.Balance{}, &DecodeError{Err: errors.Wrapf(err, "balance limit for %s", currency)}
		}

		out[currency] = domain.Balance{Available: available, Locked: locked}
	}

	return out, nil
}

// FetchOrderBook returns a fresh depth snapshot, keeping the top
// OrderBookDepth levels per side. Bids stay in received order (descending by
// price); asks arrive ascending and are reversed so the best ask sits last.
func (c *Client) FetchOrderBook(ctx context.Context) (*domain.OrderBook, error) {
	url := fmt.Sprintf("%s%s/%s/%s?size=%d", c.baseURL, pathOrderBook, c.market.Quote, c.market.Target, OrderBookDepth)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Wrap(err, "build order book request")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Err: err}
	}

	raw, err := interpret(body)
	if err != nil {
		return nil, errors.Wrap(err, "fetch order book")
	}

	var res struct {
		Bids []wireLevel `json:"bids"`
		Asks []wireLevel `json:"asks"`
	}
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, &DecodeError{Err: err}
	}

	bids, err := toLevels(res.Bids)
	if err != nil {
		return nil, &DecodeError{Err: errors.Wrap(err, "bids")}
	}
	asks, err := toLevels(res.Asks)
	if err != nil {
		return nil, &DecodeError{Err: errors.Wrap(err, "asks")}
	}

	// asks come best-first; flip so the ladder reads top-down.
	for i, j := 0, len(asks)-1; i < j; i, j = i+1, j-1 {
		asks[i], asks[j] = asks[j], asks[i]
	}

	return &domain.OrderBook{Bids: bids, Asks: asks, FetchedAt: time.Now()}, nil
}

// PlaceOrder submits a validated order and returns the exchange order id
// together with the raw response body.
func (c *Client) PlaceOrder(ctx context.Context, order domain.OrderRequest) (domain.PlacedOrder, error) {
	payload := map[string]any{
		"quote_currency":  c.market.Quote,
		"target_currency": c.market.Target,
		"type":            string(order.Type),
		"side":            string(order.Side),
	}

	switch {
	case order.Type == domain.OrderTypeLimit:
		payload["price"] = order.Price
		payload["qty"] = order.Quantity
		if order.PostOnly {
			payload["post_only"] = true
		}
	case order.Side == domain.SideBuy:
		// market buy spends a quote-currency amount instead of a qty.
		payload["amount"] = order.Quantity
	default:
		payload["qty"] = order.Quantity
	}

	raw, err := c.signedPost(ctx, pathPlaceOrder, payload)
	if err != nil {
		return domain.PlacedOrder{}, errors.Wrap(err, "place order")
	}

	var res struct {
		OrderID string `json:"order_id"`
	}
	if err := json.Unmarshal(raw, &res); err != nil {
		return domain.PlacedOrder{}, &DecodeError{Err: err}
	}

	return domain.PlacedOrder{ID: res.OrderID, Response: raw}, nil
}

// FetchActiveOrders lists open orders for the market.
func (c *Client) FetchActiveOrders(ctx context.Context) ([]domain.Order, error) {
	payload := map[string]any{
		"quote_currency":  c.market.Quote,
		"target_currency": c.market.Target,
	}

	raw, err := c.signedPost(ctx, pathActiveOrders, payload)
	if err != nil {
		return nil, errors.Wrap(err, "fetch active orders")
	}

	var res struct {
		ActiveOrders []wireOrder `json:"active_orders"`
	}
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, &DecodeError{Err: err}
	}

	orders := make([]domain.Order, 0, len(res.ActiveOrders))
	for _, wo := range res.ActiveOrders {
		order, err := wo.toDomain()
		if err != nil {
			return nil, &DecodeError{Err: err}
		}
		orders = append(orders, order)
	}

	return orders, nil
}

// CancelOrder cancels an open order by id.
func (c *Client) CancelOrder(ctx context.Context, orderID string) error {
	payload := map[string]any{
		"quote_currency":  c.market.Quote,
		"target_currency": c.market.Target,
		"order_id":        orderID,
	}

	if _, err := c.signedPost(ctx, pathCancelOrder, payload); err != nil {
		return errors.Wrapf(err, "cancel order %s", orderID)
	}

	return nil
}

// FetchOrderDetail returns the full record of a single order.
func (c *Client) FetchOrderDetail(ctx context.Context, orderID string) (*domain.Order, error) {
	payload := map[string]any{
		"quote_currency":  c.market.Quote,
		"target_currency": c.market.Target,
		"order_id":        orderID,
	}

	raw, err := c.signedPost(ctx, pathOrderDetail, payload)
	if err != nil {
		return nil, errors.Wrapf(err, "fetch order detail %s", orderID)
	}

	var res struct {
		Order wireOrder `json:"order"`
	}
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, &DecodeError{Err: err}
	}

	order, err := res.Order.toDomain()
	if err != nil {
		return nil, &DecodeError{Err: err}
	}

	return &order, nil
}

// signedPost signs the payload, sends it and interprets the response. The
// signer injects a fresh nonce on every call, so no envelope is ever reused.
func (c *Client) signedPost(ctx context.Context, path string, payload map[string]any) (json.RawMessage, error) {
	encoded, signature, err := c.signer.Sign(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader(encoded))
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(headerPayload, encoded)
	req.Header.Set(headerSignature, signature)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Err: err}
	}

	return interpret(body)
}

// interpret parses the common response envelope: an unparseable body is a
// DecodeError, a non-success result is an APIError with the exchange's code
// and message, anything else passes the body through for endpoint-specific
// decoding.
func interpret(body []byte) (json.RawMessage, error) {
	var envelope struct {
		Result    string      `json:"result"`
		ErrorCode json.Number `json:"error_code"`
		ErrorMsg  string      `json:"error_msg"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, &DecodeError{Err: err}
	}

	if envelope.Result != "success" {
		return nil, &APIError{Code: envelope.ErrorCode.String(), Message: envelope.ErrorMsg}
	}

	return body, nil
}

type wireLevel struct {
	Price string `json:"price"`
	Qty   string `json:"qty"`
}

func toLevels(raw []wireLevel) ([]domain.PriceLevel, error) {
	if len(raw) > OrderBookDepth {
		raw = raw[:OrderBookDepth]
	}

	levels := make([]domain.PriceLevel, 0, len(raw))
	for _, l := range raw {
		price, err := decimal.NewFromString(l.Price)
		if err != nil {
			return nil, errors.Wrapf(err, "price %q", l.Price)
		}
		qty, err := decimal.NewFromString(l.Qty)
		if err != nil {
			return nil, errors.Wrapf(err, "qty %q", l.Qty)
		}
		levels = append(levels, domain.PriceLevel{Price: price, Quantity: qty})
	}

	return levels, nil
}

type wireOrder struct {
	OrderID     string `json:"order_id"`
	Type        string `json:"type"`
	Side        string `json:"side"`
	Price       string `json:"price"`
	OriginalQty string `json:"original_qty"`
	ExecutedQty string `json:"executed_qty"`
	RemainQty   string `json:"remain_qty"`
	Status      string `json:"status"`
	OrderedAt   int64  `json:"ordered_at"`
	UpdatedAt   int64  `json:"updated_at"`
}

func (w wireOrder) toDomain() (domain.Order, error) {
	side, err := domain.ParseSide(w.Side)
	if err != nil {
		return domain.Order{}, err
	}
	orderType, err := domain.ParseOrderType(w.Type)
	if err != nil {
		return domain.Order{}, err
	}

	price, err := parseAmount(w.Price)
	if err != nil {
		return domain.Order{}, errors.Wrap(err, "order price")
	}
	qty, err := parseAmount(w.OriginalQty)
	if err != nil {
		return domain.Order{}, errors.Wrap(err, "order qty")
	}
	executed, err := parseAmount(w.ExecutedQty)
	if err != nil {
		return domain.Order{}, errors.Wrap(err, "executed qty")
	}
	remain, err := parseAmount(w.RemainQty)
	if err != nil {
		return domain.Order{}, errors.Wrap(err, "remain qty")
	}

	return domain.Order{
		ID:          w.OrderID,
		Type:        orderType,
		Side:        side,
		Price:       price,
		Quantity:    qty,
		ExecutedQty: executed,
		RemainQty:   remain,
		Status:      w.Status,
		OrderedAt:   time.UnixMilli(w.OrderedAt),
		UpdatedAt:   time.UnixMilli(w.UpdatedAt),
	}, nil
}

// parseAmount converts a wire numeric string, treating absent fields as zero.
func parseAmount(value string) (decimal.Decimal, error) {
	if value == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(value)
}
