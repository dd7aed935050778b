package api

// Wire types for the REST endpoints and WebSocket messages.

// submitOrderRequest is the body of POST /orders. Price and amount arrive
// as number-strings to avoid float truncation in transit.
type submitOrderRequest struct {
	Type   string `json:"type"` // "buy" or "sell"
	Price  string `json:"price"`
	Amount string `json:"amount"`
	Wallet string `json:"wallet"`
	Token  string `json:"token"`
}

// OrderView is the JSON shape of a resting order.
type OrderView struct {
	Type     string `json:"type"`
	Price    string `json:"price"`
	Amount   string `json:"amount"`
	Wallet   string `json:"wallet"`
	Token    string `json:"token"`
	Sequence uint64 `json:"sequence"`
}

// SubmitOrderResponse is returned for a successful submission, matched or
// resting.
type SubmitOrderResponse struct {
	Matched        bool       `json:"matched"`
	Order          *OrderView `json:"order,omitempty"`
	Tx             string     `json:"tx,omitempty"`
	Buyer          string     `json:"buyer,omitempty"`
	Seller         string     `json:"seller,omitempty"`
	ExecutionPrice string     `json:"executionPrice,omitempty"`
	Amount         string     `json:"amount,omitempty"`
}

// OrderbookResponse is the body of GET /orderbook: bids sorted descending
// by price, asks ascending.
type OrderbookResponse struct {
	Bids []OrderView `json:"bids"`
	Asks []OrderView `json:"asks"`
}

// ErrorResponse is returned for all errors.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// WSSubscribeRequest is sent by clients to manage channel subscriptions.
type WSSubscribeRequest struct {
	Op       string   `json:"op"`       // "subscribe" or "unsubscribe"
	Channels []string `json:"channels"` // "orderbook", "trades"
}

// OrderbookUpdate is broadcast after every book mutation.
type OrderbookUpdate struct {
	Type      string      `json:"type"` // "orderbook"
	Bids      []OrderView `json:"bids"`
	Asks      []OrderView `json:"asks"`
	Timestamp int64       `json:"timestamp"`
}

// TradeUpdate is broadcast when a trade settles.
type TradeUpdate struct {
	Type      string `json:"type"` // "trade"
	Buyer     string `json:"buyer"`
	Seller    string `json:"seller"`
	Token     string `json:"token"`
	Price     string `json:"price"`
	Amount    string `json:"amount"`
	Tx        string `json:"tx"`
	Timestamp int64  `json:"timestamp"`
}
