package polymarket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/predictos/predictbot/internal/domain"
)

func TestFetchMarketRoutesNumericIDsToByID(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if r.URL.Path == "/markets" {
			_ = json.NewEncoder(w).Encode([]map[string]any{gammaMarketJSON()})
			return
		}
		_ = json.NewEncoder(w).Encode(gammaMarketJSON())
	}))
	defer srv.Close()

	adapter := NewAdapter(NewGammaClient(srv.URL), NewDataClient(srv.URL))
	assert.Equal(t, domain.PlatformPolymarket, adapter.Platform())

	_, err := adapter.FetchMarket(context.Background(), "519123")
	require.NoError(t, err)
	assert.Equal(t, "/markets/519123", gotPath)

	_, err = adapter.FetchMarket(context.Background(), "btc-up-or-down-20260831-1400")
	require.NoError(t, err)
	assert.Equal(t, "/markets", gotPath)
}

func TestFetchHoldingsDropsEmptyRows(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/positions", r.URL.Path)
		assert.Equal(t, "0xwallet", r.URL.Query().Get("user"))
		assert.Equal(t, "0xcond", r.URL.Query().Get("market"))

		_ = json.NewEncoder(w).Encode([]map[string]any{
			{"asset": "111", "outcome": "Up", "size": 10.0, "avgPrice": 0.4, "curPrice": 0.52},
			{"asset": "222", "outcome": "Down", "size": 0.0, "avgPrice": 0.0},
		})
	}))
	defer srv.Close()

	adapter := NewAdapter(NewGammaClient(srv.URL), NewDataClient(srv.URL))
	holdings, err := adapter.FetchHoldings(context.Background(), "0xwallet", domain.Market{
		ID:          "519123",
		ConditionID: "0xcond",
	})
	require.NoError(t, err)

	require.Len(t, holdings, 1)
	assert.Equal(t, "Up", holdings[0].Outcome)
	assert.InDelta(t, 10.0, holdings[0].Shares, 1e-9)
	assert.InDelta(t, 0.4, holdings[0].AvgPrice, 1e-9)
}

func TestFetchHoldingsNoStakeIsEmptyNotError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("[]"))
	}))
	defer srv.Close()

	adapter := NewAdapter(NewGammaClient(srv.URL), NewDataClient(srv.URL))
	holdings, err := adapter.FetchHoldings(context.Background(), "0xwallet", domain.Market{ConditionID: "0xcond"})
	require.NoError(t, err)
	assert.Empty(t, holdings)
}

func TestIsNumericID(t *testing.T) {
	assert.True(t, isNumericID("519123"))
	assert.False(t, isNumericID("btc-up-or-down-20260831-1400"))
	assert.False(t, isNumericID(""))
	assert.False(t, isNumericID("0xcond"))
}
