package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/cairnex/clob/pkg/book"
	"github.com/cairnex/clob/pkg/engine"
	"github.com/cairnex/clob/pkg/journal"
)

// Server exposes the matching engine over REST and WebSocket. It is a thin
// translation layer: request parsing in, MatchOutcome out.
type Server struct {
	engine  *engine.Engine
	journal journal.Journal
	router  *mux.Router
	hub     *Hub
	log     *zap.SugaredLogger
}

func NewServer(eng *engine.Engine, jrnl journal.Journal, log *zap.SugaredLogger) *Server {
	s := &Server{
		engine:  eng,
		journal: jrnl,
		router:  mux.NewRouter(),
		hub:     NewHub(log),
		log:     log,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("/orders", s.handleSubmitOrder).Methods("POST")
	s.router.HandleFunc("/orderbook", s.handleGetOrderbook).Methods("GET")
	s.router.HandleFunc("/trades", s.handleGetTrades).Methods("GET")
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
	s.router.HandleFunc("/ws", s.handleWebSocket)
}

// Handler returns the full middleware-wrapped handler, exposed for tests.
func (s *Server) Handler() http.Handler {
	c := cors.New(cors.Options{
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
	})
	return c.Handler(s.router)
}

// Start runs the hub and serves HTTP on addr, blocking until the listener
// fails.
func (s *Server) Start(addr string) error {
	go s.hub.Run()
	s.log.Infow("api_server_starting", "addr", addr)
	return http.ListenAndServe(addr, s.Handler())
}

func (s *Server) handleSubmitOrder(w http.ResponseWriter, r *http.Request) {
	var req submitOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}

	if req.Type == "" || req.Price == "" || req.Amount == "" || req.Wallet == "" || req.Token == "" {
		respondError(w, http.StatusBadRequest, "Missing required fields", "")
		return
	}

	side, ok := book.SideFromString(req.Type)
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid order", `type must be "buy" or "sell"`)
		return
	}
	price, err := decimal.NewFromString(req.Price)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid order", "price is not a number")
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid order", "amount is not a number")
		return
	}

	outcome, err := s.engine.Submit(r.Context(), engine.OrderRequest{
		Side:   side,
		Price:  price,
		Amount: amount,
		Wallet: req.Wallet,
		Token:  req.Token,
	})
	if err != nil {
		if errors.Is(err, engine.ErrInvalidOrder) {
			respondError(w, http.StatusBadRequest, "Invalid order", err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, "Internal error", err.Error())
		return
	}

	// The book changed either way: an order rested or a maker was consumed.
	s.broadcastOrderbook()

	if !outcome.Matched {
		view := orderView(*outcome.Order)
		respondJSON(w, SubmitOrderResponse{Matched: false, Order: &view})
		return
	}

	if outcome.SettlementErr != nil {
		respondError(w, http.StatusInternalServerError, "On-chain settlement failed", outcome.SettlementErr.Error())
		return
	}

	respondJSON(w, SubmitOrderResponse{
		Matched:        true,
		Tx:             outcome.TxHash.Hex(),
		Buyer:          outcome.Buyer.Hex(),
		Seller:         outcome.Seller.Hex(),
		ExecutionPrice: outcome.ExecutionPrice.String(),
		Amount:         outcome.Amount.String(),
	})
}

func (s *Server) handleGetOrderbook(w http.ResponseWriter, r *http.Request) {
	bids, asks := s.engine.Snapshot()
	respondJSON(w, OrderbookResponse{Bids: orderViews(bids), Asks: orderViews(asks)})
}

func (s *Server) handleGetTrades(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	entries, err := s.journal.Recent(limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to read trades", err.Error())
		return
	}
	if entries == nil {
		entries = []journal.Entry{}
	}
	respondJSON(w, entries)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, map[string]string{"status": "ok"})
}

// BroadcastTrade pushes a settled trade to subscribed WebSocket clients.
// Wired to the engine's OnTrade hook by the caller.
func (s *Server) BroadcastTrade(t engine.Trade) {
	s.hub.BroadcastToChannel("trades", TradeUpdate{
		Type:      "trade",
		Buyer:     t.Buyer.Hex(),
		Seller:    t.Seller.Hex(),
		Token:     t.Token.Hex(),
		Price:     t.Price.String(),
		Amount:    t.Amount.String(),
		Tx:        t.TxHash.Hex(),
		Timestamp: t.Time.UnixMilli(),
	})
}

func (s *Server) broadcastOrderbook() {
	bids, asks := s.engine.Snapshot()
	s.hub.BroadcastToChannel("orderbook", OrderbookUpdate{
		Type:      "orderbook",
		Bids:      orderViews(bids),
		Asks:      orderViews(asks),
		Timestamp: time.Now().UnixMilli(),
	})
}

func orderView(o book.Order) OrderView {
	return OrderView{
		Type:     o.Side.String(),
		Price:    o.Price.String(),
		Amount:   o.Amount.String(),
		Wallet:   o.Wallet.Hex(),
		Token:    o.Token.Hex(),
		Sequence: o.Sequence,
	}
}

func orderViews(orders []book.Order) []OrderView {
	views := make([]OrderView, len(orders))
	for i, o := range orders {
		views[i] = orderView(o)
	}
	return views
}

func respondJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, error string, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{Error: error, Message: message})
}
