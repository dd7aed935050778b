// Package settlement executes the on-chain asset transfer that finalizes a
// matched trade. The matching engine treats it as an opaque, possibly-slow,
// possibly-failing collaborator: one call per match, no retries, no
// idempotency assumed.
package settlement

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// Client transfers amount of token from buyer to seller and returns the
// transaction hash once the transfer is confirmed. Implementations must
// honor ctx cancellation; the engine bounds the call with a deadline.
type Client interface {
	Transfer(ctx context.Context, from, to common.Address, amount decimal.Decimal, token common.Address) (common.Hash, error)
}
