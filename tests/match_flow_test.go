package tests

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/cairnex/clob/pkg/api"
	"github.com/cairnex/clob/pkg/engine"
	"github.com/cairnex/clob/pkg/journal"
)

type recordingSettlement struct {
	hash common.Hash
}

func (r recordingSettlement) Transfer(ctx context.Context, from, to common.Address, amount decimal.Decimal, token common.Address) (common.Hash, error) {
	return r.hash, nil
}

// TestMatchFlowEndToEnd walks the full path: HTTP submission, matching,
// settlement, journal append, and the recent-trades query.
func TestMatchFlowEndToEnd(t *testing.T) {
	jrnl, err := journal.OpenPebble(t.TempDir())
	if err != nil {
		t.Fatalf("open journal: %v", err)
	}
	defer jrnl.Close()

	settle := recordingSettlement{hash: common.HexToHash("0xfeed")}
	eng := engine.New(settle, zap.NewNop().Sugar())
	server := api.NewServer(eng, jrnl, zap.NewNop().Sugar())
	eng.OnTrade = func(tr engine.Trade) {
		if err := jrnl.Append(journal.FromTrade(tr)); err != nil {
			t.Errorf("journal append: %v", err)
		}
	}
	h := server.Handler()

	submit := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	// A sell rests first.
	rec := submit(`{"type":"sell","price":"10","amount":"2","wallet":"0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb","token":"0xcccccccccccccccccccccccccccccccccccccccc"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("sell submit status = %d, body %s", rec.Code, rec.Body.String())
	}
	var restResp api.SubmitOrderResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &restResp); err != nil {
		t.Fatalf("decode sell response: %v", err)
	}
	if restResp.Matched {
		t.Fatal("sell should rest on an empty book")
	}

	// A crossing buy consumes it at the maker price.
	rec = submit(`{"type":"buy","price":"11","amount":"2","wallet":"0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa","token":"0xcccccccccccccccccccccccccccccccccccccccc"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("buy submit status = %d, body %s", rec.Code, rec.Body.String())
	}
	var matchResp api.SubmitOrderResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &matchResp); err != nil {
		t.Fatalf("decode buy response: %v", err)
	}
	if !matchResp.Matched {
		t.Fatal("buy should match the resting sell")
	}
	if matchResp.ExecutionPrice != "10" {
		t.Errorf("execution price = %s, want maker price 10", matchResp.ExecutionPrice)
	}
	if matchResp.Tx == "" {
		t.Error("matched response missing tx reference")
	}

	// The book is empty again.
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/orderbook", nil))
	var ob api.OrderbookResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &ob); err != nil {
		t.Fatalf("decode orderbook: %v", err)
	}
	if len(ob.Bids) != 0 || len(ob.Asks) != 0 {
		t.Errorf("book not empty after match: %d bids, %d asks", len(ob.Bids), len(ob.Asks))
	}

	// The trade landed in the journal and is served by /trades.
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/trades", nil))
	var trades []journal.Entry
	if err := json.Unmarshal(rec.Body.Bytes(), &trades); err != nil {
		t.Fatalf("decode trades: %v", err)
	}
	if len(trades) != 1 {
		t.Fatalf("trades = %d, want 1", len(trades))
	}
	if trades[0].Status != "settled" {
		t.Errorf("trade status = %s, want settled", trades[0].Status)
	}
	if trades[0].Price != "10" {
		t.Errorf("trade price = %s, want 10", trades[0].Price)
	}
}
