// Package engine implements the matching core: a single authority that
// crosses incoming orders against the resting book and hands matched pairs
// to the settlement client.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/cairnex/clob/pkg/book"
	"github.com/cairnex/clob/pkg/settlement"
	"github.com/cairnex/clob/pkg/util"
)

// ErrInvalidOrder rejects a malformed submission before any book mutation.
var ErrInvalidOrder = errors.New("invalid order")

// OrderRequest is a parsed but unvalidated order submission.
type OrderRequest struct {
	Side   book.Side
	Price  decimal.Decimal
	Amount decimal.Decimal
	Wallet string
	Token  string
}

func (r OrderRequest) validate() (common.Address, common.Address, error) {
	if !r.Price.IsPositive() {
		return common.Address{}, common.Address{}, fmt.Errorf("%w: price must be positive", ErrInvalidOrder)
	}
	if !r.Amount.IsPositive() {
		return common.Address{}, common.Address{}, fmt.Errorf("%w: amount must be positive", ErrInvalidOrder)
	}
	if !common.IsHexAddress(r.Wallet) {
		return common.Address{}, common.Address{}, fmt.Errorf("%w: malformed wallet address", ErrInvalidOrder)
	}
	if !common.IsHexAddress(r.Token) {
		return common.Address{}, common.Address{}, fmt.Errorf("%w: malformed token address", ErrInvalidOrder)
	}
	return common.HexToAddress(r.Wallet), common.HexToAddress(r.Token), nil
}

// MatchOutcome is the transient result of one submission.
type MatchOutcome struct {
	Matched bool

	// Order is set when the submission did not match and now rests.
	Order *book.Order

	// Trade fields, set when Matched.
	Buyer          common.Address
	Seller         common.Address
	ExecutionPrice decimal.Decimal
	Amount         decimal.Decimal
	Token          common.Address
	TxHash         common.Hash

	// SettlementErr is non-nil when the match was found but the on-chain
	// transfer failed. The consumed maker order is not restored.
	SettlementErr error
}

// Trade is the payload delivered to the OnTrade hook after settlement
// resolves, successfully or not.
type Trade struct {
	Buyer  common.Address
	Seller common.Address
	Token  common.Address
	Price  decimal.Decimal
	Amount decimal.Decimal
	TxHash common.Hash
	Err    error
	Time   time.Time
}

// Engine owns one order book for one token pair. All book mutations happen
// inside its write lock; the settlement call never does.
type Engine struct {
	mu   sync.RWMutex
	book *book.Book
	seq  uint64

	settle  settlement.Client
	timeout time.Duration
	clock   util.Clock
	log     *zap.SugaredLogger

	// OnTrade, if set, is invoked after every settlement attempt. It runs
	// on the submitting goroutine, outside the book lock.
	OnTrade func(Trade)
}

// Option configures an Engine.
type Option func(*Engine)

// WithSettlementTimeout bounds each settlement call. Zero disables the
// bound.
func WithSettlementTimeout(d time.Duration) Option {
	return func(e *Engine) { e.timeout = d }
}

// WithClock overrides the trade timestamp source.
func WithClock(c util.Clock) Option {
	return func(e *Engine) { e.clock = c }
}

func New(settle settlement.Client, log *zap.SugaredLogger, opts ...Option) *Engine {
	e := &Engine{
		book:    book.New(),
		settle:  settle,
		timeout: 30 * time.Second,
		clock:   util.RealClock{},
		log:     log,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Submit validates the incoming order, crosses it against the book, and
// settles a match on-chain.
//
// The find-and-remove-or-insert sequence is one atomic unit under the write
// lock: two concurrent submissions can never both consume the same maker.
// The lock is released before the settlement call so a slow chain never
// blocks other submissions.
//
// A settlement failure is terminal for the trade attempt. The maker was
// already consumed and is not restored; the failure is reported in the
// outcome, not as a submission error.
func (e *Engine) Submit(ctx context.Context, req OrderRequest) (MatchOutcome, error) {
	wallet, token, err := req.validate()
	if err != nil {
		return MatchOutcome{}, err
	}

	incoming := book.Order{
		Side:   req.Side,
		Price:  req.Price,
		Amount: req.Amount,
		Wallet: wallet,
		Token:  token,
	}

	e.mu.Lock()
	e.seq++
	incoming.Sequence = e.seq

	idx, resting, found := e.book.FindCrossing(incoming)
	if !found {
		e.book.Insert(incoming)
		e.mu.Unlock()
		e.log.Infow("order_stored",
			"side", incoming.Side.String(),
			"price", incoming.Price.String(),
			"amount", incoming.Amount.String(),
			"wallet", incoming.Wallet.Hex(),
			"seq", incoming.Sequence)
		return MatchOutcome{Order: &incoming}, nil
	}

	// Reserve the maker before settlement: once removed, no concurrent
	// submission can match against it while the transfer is pending.
	e.book.Remove(incoming.Side.Opposite(), idx)
	e.mu.Unlock()

	buyer, seller := incoming.Wallet, resting.Wallet
	if incoming.Side == book.Sell {
		buyer, seller = resting.Wallet, incoming.Wallet
	}

	out := MatchOutcome{
		Matched:        true,
		Buyer:          buyer,
		Seller:         seller,
		ExecutionPrice: resting.Price, // maker price
		Amount:         incoming.Amount,
		Token:          incoming.Token,
	}

	sctx := ctx
	if e.timeout > 0 {
		var cancel context.CancelFunc
		sctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	txHash, err := e.settle.Transfer(sctx, buyer, seller, incoming.Amount, incoming.Token)
	trade := Trade{
		Buyer:  buyer,
		Seller: seller,
		Token:  incoming.Token,
		Price:  out.ExecutionPrice,
		Amount: incoming.Amount,
		Time:   e.clock.Now(),
	}
	if err != nil {
		serr := settlement.Wrap(err, "transfer")
		out.SettlementErr = serr
		trade.Err = serr
		e.log.Warnw("settlement_failed",
			"buyer", buyer.Hex(),
			"seller", seller.Hex(),
			"price", out.ExecutionPrice.String(),
			"amount", incoming.Amount.String(),
			"kind", serr.Kind.String(),
			"err", serr)
	} else {
		out.TxHash = txHash
		trade.TxHash = txHash
		e.log.Infow("trade_executed",
			"buyer", buyer.Hex(),
			"seller", seller.Hex(),
			"price", out.ExecutionPrice.String(),
			"amount", incoming.Amount.String(),
			"tx", txHash.Hex())
	}

	if e.OnTrade != nil {
		e.OnTrade(trade)
	}
	return out, nil
}

// Snapshot returns a consistent point-in-time view of both sides, bids
// descending and asks ascending by price. Safe to call concurrently with
// submissions.
func (e *Engine) Snapshot() (bids, asks []book.Order) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.book.Snapshot()
}
