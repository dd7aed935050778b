package journal

import (
	"encoding/json"
	"fmt"

	"github.com/cockroachdb/pebble"
)

// Key schema:
//
//	tr:<20-digit-unix-ms>:<id> → Entry (JSON)
//
// Zero-padded timestamps keep byte order equal to time order so Recent can
// iterate backwards from the end of the prefix range.
const prefixTrade = "tr:"

func tradeKey(tsMillis int64, id string) []byte {
	return []byte(fmt.Sprintf("%s%020d:%s", prefixTrade, tsMillis, id))
}

// keyUpperBound returns the exclusive upper bound for a prefix scan.
func keyUpperBound(prefix []byte) []byte {
	end := append([]byte(nil), prefix...)
	for i := len(end) - 1; i >= 0; i-- {
		end[i]++
		if end[i] != 0 {
			return end[:i+1]
		}
	}
	return nil
}

// Pebble is the persistent journal implementation.
type Pebble struct {
	db *pebble.DB
}

func OpenPebble(path string) (*Pebble, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("open journal at %s: %w", path, err)
	}
	return &Pebble{db: db}, nil
}

func (p *Pebble) Append(e Entry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal journal entry: %w", err)
	}
	// NoSync: the journal is observability, not durability-critical state.
	if err := p.db.Set(tradeKey(e.Timestamp, e.ID), data, pebble.NoSync); err != nil {
		return fmt.Errorf("write journal entry: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (p *Pebble) Recent(limit int) ([]Entry, error) {
	prefix := []byte(prefixTrade)
	iter, err := p.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: keyUpperBound(prefix),
	})
	if err != nil {
		return nil, fmt.Errorf("open journal iterator: %w", err)
	}
	defer iter.Close()

	var entries []Entry
	for iter.Last(); iter.Valid() && len(entries) < limit; iter.Prev() {
		var e Entry
		if err := json.Unmarshal(iter.Value(), &e); err != nil {
			continue // skip unreadable entries
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func (p *Pebble) Close() error { return p.db.Close() }

var _ Journal = (*Pebble)(nil)
