package indexer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// graphQLServer answers by matching a substring of the posted query.
func graphQLServer(t *testing.T, responses map[string]string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		var req graphQLRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		for key, body := range responses {
			if strings.Contains(req.Query, key) {
				w.Header().Set("Content-Type", "application/json")
				w.Write([]byte(body))
				return
			}
		}
		t.Errorf("unexpected query: %s", req.Query)
		w.WriteHeader(http.StatusBadRequest)
	}))
}

func TestFetchMarkets(t *testing.T) {
	srv := graphQLServer(t, map[string]string{"markets": `{"data": {"markets": [
		{"id": "0x123", "question": "Q1", "slug": "q1", "outcomes": ["Yes", "No"],
		 "outcomePrices": [0.45, 0.55], "clobTokenIds": ["t1", "t2"], "bestBid": 0.44,
		 "takerBaseFee": 200, "liquidity": 100000, "volume24hr": 50000, "active": true, "acceptingOrders": true},
		{"id": "0xbad", "outcomes": ["Yes", "No"], "outcomePrices": [0.5], "clobTokenIds": ["t3", "t4"]}
	]}}`})
	defer srv.Close()

	markets, err := NewClient(srv.URL).FetchMarkets(context.Background())

	require.NoError(t, err)
	require.Len(t, markets, 1, "los mercados sin un precio por outcome se descartan")
	m := markets[0]
	assert.Equal(t, "0x123", m.ID)
	assert.Equal(t, []float64{0.45, 0.55}, m.OutcomePrices)
	assert.Equal(t, []string{"t1", "t2"}, m.TokenIDs)
	assert.Equal(t, 200.0, m.TakerFeeBps)
	assert.Equal(t, 100000.0, m.Liquidity)
}

func TestFetchOrderBook(t *testing.T) {
	var gotVars atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req graphQLRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		gotVars.Store(req.Variables["tokenId"])
		w.Write([]byte(`{"data": {"orderBook": {"tokenId": "t1",
			"bids": [{"price": 0.43, "size": 500}, {"price": 0.44, "size": 100}],
			"asks": [{"price": 0.42, "size": 300}, {"price": 0.41, "size": 200}, {"price": 0.40, "size": 0}],
			"timestamp": 1767225600}}}`))
	}))
	defer srv.Close()

	book, err := NewClient(srv.URL).FetchOrderBook(context.Background(), "t1")

	require.NoError(t, err)
	assert.Equal(t, "t1", gotVars.Load())
	assert.Equal(t, "t1", book.TokenID)
	require.Len(t, book.Asks, 2)
	assert.Equal(t, 0.41, book.BestAsk())
	assert.Equal(t, 0.44, book.BestBid())
}

func TestFetchOrderBook_Missing(t *testing.T) {
	srv := graphQLServer(t, map[string]string{"orderBook": `{"data": {"orderBook": null}}`})
	defer srv.Close()

	_, err := NewClient(srv.URL).FetchOrderBook(context.Background(), "nope")
	assert.ErrorContains(t, err, "no book")
}

func TestQuery_GraphQLErrors(t *testing.T) {
	srv := graphQLServer(t, map[string]string{"markets": `{"errors": [{"message": "field not found"}]}`})
	defer srv.Close()

	_, err := NewClient(srv.URL).FetchMarkets(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "field not found")
}

func TestQuery_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"data": {"markets": []}}`))
	}))
	defer srv.Close()

	markets, err := NewClient(srv.URL).FetchMarkets(context.Background())

	require.NoError(t, err)
	assert.Empty(t, markets)
	assert.Equal(t, int32(2), calls.Load())
}

func TestHealth(t *testing.T) {
	block := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	srv := graphQLServer(t, map[string]string{"_meta": `{"data": {"_meta": {"block": {"number": 4242, "timestamp": ` +
		jsonInt(block.Unix()) + `}}}}`})
	defer srv.Close()

	c := NewClient(srv.URL)

	c.now = func() time.Time { return block.Add(2 * time.Second) }
	h, err := c.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(4242), h.BlockNumber)
	assert.Equal(t, 2*time.Second, h.DataDelay)
	assert.True(t, h.Healthy)

	c.now = func() time.Time { return block.Add(6 * time.Second) }
	h, err = c.Health(context.Background())
	require.NoError(t, err)
	assert.False(t, h.Healthy)
}

func jsonInt(v int64) string {
	b, _ := json.Marshal(v)
	return string(b)
}
