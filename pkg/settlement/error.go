package settlement

import (
	"context"
	"errors"
	"fmt"
)

// Kind classifies a settlement failure. All kinds are terminal for the
// trade attempt: the engine never retries and never restores the consumed
// maker order.
type Kind int

const (
	// KindRPC covers transport failures talking to the chain node.
	KindRPC Kind = iota
	// KindRejected covers on-chain rejection: reverted transferFrom,
	// insufficient allowance, failed receipt.
	KindRejected
	// KindTimeout means the caller-supplied deadline expired before the
	// transfer confirmed.
	KindTimeout
)

func (k Kind) String() string {
	switch k {
	case KindRejected:
		return "rejected"
	case KindTimeout:
		return "timeout"
	default:
		return "rpc"
	}
}

// Error is the uniform failure reported for any settlement problem.
type Error struct {
	Kind   Kind
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("settlement %s: %s: %v", e.Kind, e.Reason, e.Err)
	}
	return fmt.Sprintf("settlement %s: %s", e.Kind, e.Reason)
}

func (e *Error) Unwrap() error { return e.Err }

// Wrap normalizes err into an *Error. Context expiry becomes KindTimeout,
// an existing *Error passes through unchanged, anything else is treated as
// an RPC-level failure with the given reason.
func Wrap(err error, reason string) *Error {
	var serr *Error
	if errors.As(err, &serr) {
		return serr
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &Error{Kind: KindTimeout, Reason: reason, Err: err}
	}
	return &Error{Kind: KindRPC, Reason: reason, Err: err}
}
