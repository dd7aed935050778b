package book

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// Side is the direction of an order.
type Side int

const (
	Buy Side = iota
	Sell
)

func (s Side) String() string {
	if s == Buy {
		return "buy"
	}
	return "sell"
}

// Opposite returns the side an incoming order is matched against.
func (s Side) Opposite() Side {
	if s == Buy {
		return Sell
	}
	return Buy
}

// SideFromString parses "buy"/"sell" as used on the wire.
func SideFromString(s string) (Side, bool) {
	switch s {
	case "buy":
		return Buy, true
	case "sell":
		return Sell, true
	}
	return Buy, false
}

// Order is a single resting or incoming limit order. Orders are immutable
// once created: an order is either consumed by a match or rests on the book
// untouched until a later incoming order consumes it.
type Order struct {
	Side     Side
	Price    decimal.Decimal
	Amount   decimal.Decimal
	Wallet   common.Address
	Token    common.Address
	Sequence uint64
}

// Crosses reports whether the incoming order o can trade against resting.
// A buy crosses any resting ask at or below its limit; a sell crosses any
// resting bid at or above its limit.
func (o Order) Crosses(resting Order) bool {
	if o.Side == Buy {
		return o.Price.GreaterThanOrEqual(resting.Price)
	}
	return o.Price.LessThanOrEqual(resting.Price)
}
