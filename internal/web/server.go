// Package web exposes the desk's four capabilities over a small JSON API.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"usdtdesk/internal/desk"
	"usdtdesk/internal/domain"
	"usdtdesk/internal/services/liquidator"
	"usdtdesk/internal/services/order"
)

type deskService interface {
	Refresh(ctx context.Context, force bool) (desk.State, error)
	SubmitOrder(ctx context.Context, in order.Input) (domain.PlacedOrder, error)
	CancelOrder(ctx context.Context, orderID string) error
	OrderDetail(ctx context.Context, orderID string) (*domain.Order, error)
	Liquidate(ctx context.Context) (liquidator.Result, error)
	OrderLog() []domain.LogEntry
}

// Server runs the HTTP front door. Rendering is left to clients; every
// endpoint speaks JSON.
type Server struct {
	Addr   string
	Desk   deskService
	Logger *zap.Logger
}

// NewServer creates a new server instance.
func NewServer(addr string, svc deskService, logger *zap.Logger) *Server {
	return &Server{Addr: addr, Desk: svc, Logger: logger}
}

// Start runs the HTTP server (blocking) and shuts it down when ctx is
// cancelled.
func (s *Server) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/balances", s.handleBalances)
	mux.HandleFunc("/orderbook", s.handleOrderBook)
	mux.HandleFunc("/orders", s.handleSubmitOrder)
	mux.HandleFunc("/orders/active", s.handleActiveOrders)
	mux.HandleFunc("/orders/cancel", s.handleCancelOrder)
	mux.HandleFunc("/orders/detail", s.handleOrderDetail)
	mux.HandleFunc("/orders/log", s.handleOrderLog)
	mux.HandleFunc("/liquidate", s.handleLiquidate)

	server := &http.Server{
		Addr:              s.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

type balanceView struct {
	Available string `json:"available"`
	Locked    string `json:"locked"`
	Total     string `json:"total"`
}

func (s *Server) handleBalances(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	state, err := s.Desk.Refresh(r.Context(), false)
	if err != nil {
		s.Logger.Warn("balance refresh failed", zap.Error(err))
	}

	view := make(map[string]balanceView, len(state.Balances))
	for currency, b := range state.Balances {
		view[currency] = balanceView{
			Available: b.Available.String(),
			Locked:    b.Locked.String(),
			Total:     b.Total().String(),
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{"balances": view})
}

type levelView struct {
	Price    string `json:"price"`
	Quantity string `json:"qty"`
}

func (s *Server) handleOrderBook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	state, err := s.Desk.Refresh(r.Context(), false)
	if err != nil {
		s.Logger.Warn("order book refresh failed", zap.Error(err))
	}
	if state.OrderBook == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"error": "order book unavailable"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"bids":       toLevelViews(state.OrderBook.Bids),
		"asks":       toLevelViews(state.OrderBook.Asks),
		"fetched_at": state.OrderBook.FetchedAt,
	})
}

func toLevelViews(levels []domain.PriceLevel) []levelView {
	views := make([]levelView, 0, len(levels))
	for _, l := range levels {
		views = append(views, levelView{Price: l.Price.String(), Quantity: l.Quantity.String()})
	}
	return views
}

type submitOrderRequest struct {
	Type     string `json:"type"`
	Side     string `json:"side"`
	Price    string `json:"price"`
	Quantity string `json:"quantity"`
	PostOnly bool   `json:"post_only"`
}

func (s *Server) handleSubmitOrder(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req submitOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid request body"})
		return
	}

	orderType, err := domain.ParseOrderType(req.Type)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
		return
	}
	side, err := domain.ParseSide(req.Side)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
		return
	}

	placed, err := s.Desk.SubmitOrder(r.Context(), order.Input{
		Type:     orderType,
		Side:     side,
		Price:    req.Price,
		Quantity: req.Quantity,
		PostOnly: req.PostOnly,
	})
	if err != nil {
		var inputErr *order.InputError
		status := http.StatusBadGateway
		if errors.As(err, &inputErr) {
			status = http.StatusBadRequest
		}
		writeJSON(w, status, map[string]any{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"order_id": placed.ID})
}

func (s *Server) handleActiveOrders(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	state, err := s.Desk.Refresh(r.Context(), false)
	if err != nil {
		s.Logger.Warn("active orders refresh failed", zap.Error(err))
	}

	writeJSON(w, http.StatusOK, map[string]any{"active_orders": toOrderViews(state.ActiveOrders)})
}

type cancelOrderRequest struct {
	OrderID string `json:"order_id"`
}

func (s *Server) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req cancelOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.OrderID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "order_id is required"})
		return
	}

	if err := s.Desk.CancelOrder(r.Context(), req.OrderID); err != nil {
		writeJSON(w, http.StatusBadGateway, map[string]any{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"result": "success"})
}

func (s *Server) handleOrderDetail(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	orderID := r.URL.Query().Get("order_id")
	if orderID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "order_id is required"})
		return
	}

	detail, err := s.Desk.OrderDetail(r.Context(), orderID)
	if err != nil {
		writeJSON(w, http.StatusBadGateway, map[string]any{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"order": toOrderView(*detail)})
}

func (s *Server) handleOrderLog(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"entries": s.Desk.OrderLog()})
}

func (s *Server) handleLiquidate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	result, err := s.Desk.Liquidate(r.Context())
	if err != nil {
		writeJSON(w, http.StatusBadGateway, map[string]any{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"completed":       result.Completed,
		"attempts":        result.Attempts,
		"executed":        result.Executed.String(),
		"initial_balance": result.InitialBalance.String(),
		"message":         result.Message,
	})
}

type orderView struct {
	OrderID     string `json:"order_id"`
	Type        string `json:"type"`
	Side        string `json:"side"`
	Price       string `json:"price"`
	Quantity    string `json:"quantity"`
	ExecutedQty string `json:"executed_qty"`
	RemainQty   string `json:"remain_qty"`
	Status      string `json:"status"`
}

func toOrderView(o domain.Order) orderView {
	return orderView{
		OrderID:     o.ID,
		Type:        string(o.Type),
		Side:        string(o.Side),
		Price:       o.Price.String(),
		Quantity:    o.Quantity.String(),
		ExecutedQty: o.ExecutedQty.String(),
		RemainQty:   o.RemainQty.String(),
		Status:      o.Status,
	}
}

func toOrderViews(orders []domain.Order) []orderView {
	views := make([]orderView, 0, len(orders))
	for _, o := range orders {
		views = append(views, toOrderView(o))
	}
	return views
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
