// Package journal is a write-path audit log of settlement outcomes. The
// matching engine never reads it and no matching behavior depends on it;
// losing the journal loses nothing the book needs.
package journal

import (
	"time"

	"github.com/google/uuid"

	"github.com/cairnex/clob/pkg/engine"
)

// Entry is one recorded settlement attempt.
type Entry struct {
	ID        string `json:"id"`
	Buyer     string `json:"buyer"`
	Seller    string `json:"seller"`
	Token     string `json:"token"`
	Price     string `json:"price"`
	Amount    string `json:"amount"`
	TxHash    string `json:"tx,omitempty"`
	Status    string `json:"status"` // "settled" or "failed"
	Reason    string `json:"reason,omitempty"`
	Timestamp int64  `json:"timestamp"` // unix milliseconds
}

// FromTrade converts an engine trade into a journal entry with a fresh ID.
func FromTrade(t engine.Trade) Entry {
	e := Entry{
		ID:        uuid.New().String(),
		Buyer:     t.Buyer.Hex(),
		Seller:    t.Seller.Hex(),
		Token:     t.Token.Hex(),
		Price:     t.Price.String(),
		Amount:    t.Amount.String(),
		Status:    "settled",
		Timestamp: t.Time.UnixMilli(),
	}
	if t.Err != nil {
		e.Status = "failed"
		e.Reason = t.Err.Error()
	} else {
		e.TxHash = t.TxHash.Hex()
	}
	if t.Time.IsZero() {
		e.Timestamp = time.Now().UnixMilli()
	}
	return e
}

// Journal records settlement attempts and serves the recent-trades query.
type Journal interface {
	Append(e Entry) error
	Recent(limit int) ([]Entry, error)
	Close() error
}

// Nop is the journal used when no data directory is configured.
type Nop struct{}

func (Nop) Append(Entry) error          { return nil }
func (Nop) Recent(int) ([]Entry, error) { return nil, nil }
func (Nop) Close() error                { return nil }

var _ Journal = Nop{}
