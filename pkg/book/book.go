package book

import "sort"

// Book holds the resting orders for a single token pair. Both sides are
// kept in arrival order (ascending sequence), never pre-sorted; sorting
// happens only when a snapshot is taken.
//
// Book has no internal locking. The matching engine serializes all access:
// find/remove/insert run inside its write critical section, Snapshot inside
// a read section.
type Book struct {
	bids []Order
	asks []Order
}

func New() *Book {
	return &Book{}
}

func (b *Book) side(s Side) []Order {
	if s == Buy {
		return b.bids
	}
	return b.asks
}

// FindCrossing scans the side opposite to the incoming order in arrival
// order and returns the index and copy of the first resting order that
// crosses. This is first-eligible matching, not best-price matching: an
// earlier resting order at a worse (still eligible) price wins over a later
// one at a better price.
func (b *Book) FindCrossing(incoming Order) (int, Order, bool) {
	for i, resting := range b.side(incoming.Side.Opposite()) {
		if incoming.Crosses(resting) {
			return i, resting, true
		}
	}
	return 0, Order{}, false
}

// Remove deletes and returns the resting order at index i on the given
// side. The caller removes a matched maker before settlement is attempted
// so no concurrent submission can match it again.
func (b *Book) Remove(side Side, i int) Order {
	s := b.side(side)
	o := s[i]
	if side == Buy {
		b.bids = append(s[:i], s[i+1:]...)
	} else {
		b.asks = append(s[:i], s[i+1:]...)
	}
	return o
}

// Insert appends the order to its side, preserving arrival order.
func (b *Book) Insert(o Order) {
	if o.Side == Buy {
		b.bids = append(b.bids, o)
	} else {
		b.asks = append(b.asks, o)
	}
}

// Len returns the number of resting orders on the given side.
func (b *Book) Len(side Side) int {
	return len(b.side(side))
}

// Snapshot returns display-ordered copies of both sides captured together:
// bids descending by price, asks ascending, ties broken by sequence
// ascending so two snapshots of the same book are identical.
func (b *Book) Snapshot() (bids, asks []Order) {
	bids = append([]Order(nil), b.bids...)
	asks = append([]Order(nil), b.asks...)

	sort.Slice(bids, func(i, j int) bool {
		if c := bids[i].Price.Cmp(bids[j].Price); c != 0 {
			return c > 0
		}
		return bids[i].Sequence < bids[j].Sequence
	})
	sort.Slice(asks, func(i, j int) bool {
		if c := asks[i].Price.Cmp(asks[j].Price); c != 0 {
			return c < 0
		}
		return asks[i].Sequence < asks[j].Sequence
	})
	return bids, asks
}
