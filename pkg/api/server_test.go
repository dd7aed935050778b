package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cairnex/clob/pkg/api"
	"github.com/cairnex/clob/pkg/engine"
	"github.com/cairnex/clob/pkg/journal"
)

type stubSettlement struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (s *stubSettlement) Transfer(ctx context.Context, from, to common.Address, amount decimal.Decimal, token common.Address) (common.Hash, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if s.err != nil {
		return common.Hash{}, s.err
	}
	return common.HexToHash("0xabc123"), nil
}

func newTestServer(t *testing.T, settle *stubSettlement) http.Handler {
	t.Helper()
	eng := engine.New(settle, zap.NewNop().Sugar())
	return api.NewServer(eng, journal.Nop{}, zap.NewNop().Sugar()).Handler()
}

func post(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

const (
	wallet1 = "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	wallet2 = "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
	token1  = "0xcccccccccccccccccccccccccccccccccccccccc"
)

func orderBody(side, price, wallet string) string {
	return `{"type":"` + side + `","price":"` + price + `","amount":"1","wallet":"` + wallet + `","token":"` + token1 + `"}`
}

func TestSubmitMissingFields(t *testing.T) {
	h := newTestServer(t, &stubSettlement{})

	rec := post(t, h, `{"type":"buy","price":"10","amount":"1","token":"`+token1+`"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp api.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "Missing required fields", resp.Error)
}

func TestSubmitMalformedWallet(t *testing.T) {
	settle := &stubSettlement{}
	h := newTestServer(t, settle)

	rec := post(t, h, orderBody("buy", "10", "0xnope"))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Zero(t, settle.calls)

	// The failed submission left the book untouched.
	var ob api.OrderbookResponse
	require.NoError(t, json.Unmarshal(get(t, h, "/orderbook").Body.Bytes(), &ob))
	require.Empty(t, ob.Bids)
	require.Empty(t, ob.Asks)
}

func TestSubmitRestsAndAppearsInOrderbook(t *testing.T) {
	h := newTestServer(t, &stubSettlement{})

	rec := post(t, h, orderBody("buy", "10", wallet1))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp api.SubmitOrderResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.False(t, resp.Matched)
	require.NotNil(t, resp.Order)
	require.Equal(t, "buy", resp.Order.Type)
	require.Equal(t, uint64(1), resp.Order.Sequence)

	var ob api.OrderbookResponse
	require.NoError(t, json.Unmarshal(get(t, h, "/orderbook").Body.Bytes(), &ob))
	require.Len(t, ob.Bids, 1)
	require.Equal(t, "10", ob.Bids[0].Price)
}

func TestSubmitMatchReturnsTx(t *testing.T) {
	h := newTestServer(t, &stubSettlement{})

	require.Equal(t, http.StatusOK, post(t, h, orderBody("sell", "10", wallet2)).Code)

	rec := post(t, h, orderBody("buy", "12", wallet1))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp api.SubmitOrderResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.True(t, resp.Matched)
	require.NotEmpty(t, resp.Tx)
	require.Equal(t, "10", resp.ExecutionPrice)
	require.Equal(t, common.HexToAddress(wallet1).Hex(), resp.Buyer)
	require.Equal(t, common.HexToAddress(wallet2).Hex(), resp.Seller)

	var ob api.OrderbookResponse
	require.NoError(t, json.Unmarshal(get(t, h, "/orderbook").Body.Bytes(), &ob))
	require.Empty(t, ob.Bids)
	require.Empty(t, ob.Asks)
}

func TestSubmitSettlementFailure(t *testing.T) {
	h := newTestServer(t, &stubSettlement{err: errors.New("revert")})

	require.Equal(t, http.StatusOK, post(t, h, orderBody("sell", "10", wallet2)).Code)

	rec := post(t, h, orderBody("buy", "10", wallet1))
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	var resp api.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "On-chain settlement failed", resp.Error)

	// No rollback: the consumed maker does not reappear.
	var ob api.OrderbookResponse
	require.NoError(t, json.Unmarshal(get(t, h, "/orderbook").Body.Bytes(), &ob))
	require.Empty(t, ob.Bids)
	require.Empty(t, ob.Asks)
}

func TestOrderbookSorted(t *testing.T) {
	h := newTestServer(t, &stubSettlement{})

	post(t, h, orderBody("buy", "5", wallet1))
	post(t, h, orderBody("buy", "9", wallet1))
	post(t, h, orderBody("sell", "20", wallet2))
	post(t, h, orderBody("sell", "15", wallet2))

	var ob api.OrderbookResponse
	require.NoError(t, json.Unmarshal(get(t, h, "/orderbook").Body.Bytes(), &ob))
	require.Equal(t, []string{"9", "5"}, []string{ob.Bids[0].Price, ob.Bids[1].Price})
	require.Equal(t, []string{"15", "20"}, []string{ob.Asks[0].Price, ob.Asks[1].Price})
}

func TestTradesEmptyWithNopJournal(t *testing.T) {
	h := newTestServer(t, &stubSettlement{})

	rec := get(t, h, "/trades")
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, "[]", rec.Body.String())
}

func TestHealth(t *testing.T) {
	h := newTestServer(t, &stubSettlement{})
	rec := get(t, h, "/health")
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}
