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

func gammaMarketJSON() map[string]any {
	return map[string]any{
		"id":            "519123",
		"question":      "Bitcoin Up or Down - August 31, 2PM ET",
		"conditionId":   "0xcond",
		"slug":          "btc-up-or-down-20260831-1400",
		"active":        "true", // Gamma sends booleans as strings on some endpoints
		"closed":        false,
		"outcomes":      `["Up","Down"]`,
		"outcomePrices": `["0.52","0.48"]`,
		"clobTokenIds":  `["111","222"]`,
		"volume":        "12345.6",
		"endDate":       "2026-08-31T18:15:00Z",
	}
}

func TestGetMarketNormalizesGammaShape(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/markets/519123", r.URL.Path)
		_ = json.NewEncoder(w).Encode(gammaMarketJSON())
	}))
	defer srv.Close()

	got, err := NewGammaClient(srv.URL).GetMarket(context.Background(), "519123")
	require.NoError(t, err)

	assert.Equal(t, domain.PlatformPolymarket, got.Platform)
	assert.Equal(t, "519123", got.ID)
	assert.Equal(t, "0xcond", got.ConditionID)
	assert.Equal(t, domain.MarketStatusOpen, got.Status)
	assert.InDelta(t, 12345.6, got.Volume, 1e-9)
	assert.Equal(t, "2026-08-31T18:15:00Z", got.Expiry.Format("2006-01-02T15:04:05Z"))

	require.Len(t, got.Outcomes, 2)
	assert.Equal(t, "Up", got.Outcomes[0].Label)
	assert.Equal(t, "111", got.Outcomes[0].TokenID)
	assert.InDelta(t, 0.52, got.Outcomes[0].Price, 1e-9)
	assert.InDelta(t, 0.48, got.Outcomes[1].Price, 1e-9)
}

func TestGetMarketBySlugUsesFirstMatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/markets", r.URL.Path)
		assert.Equal(t, "btc-up-or-down-20260831-1400", r.URL.Query().Get("slug"))
		_ = json.NewEncoder(w).Encode([]map[string]any{gammaMarketJSON()})
	}))
	defer srv.Close()

	got, err := NewGammaClient(srv.URL).GetMarketBySlug(context.Background(), "btc-up-or-down-20260831-1400")
	require.NoError(t, err)
	assert.Equal(t, "519123", got.ID)
}

func TestGetMarketBySlugEmptyIsNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("[]"))
	}))
	defer srv.Close()

	_, err := NewGammaClient(srv.URL).GetMarketBySlug(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGetMarketMapsHTTPStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := NewGammaClient(srv.URL).GetMarket(context.Background(), "519123")
	assert.ErrorIs(t, err, domain.ErrRateLimited)
}

func TestToDomainMarketRejectsMismatchedArrays(t *testing.T) {
	m := APIMarket{
		ID:            "1",
		Outcomes:      `["Up","Down"]`,
		OutcomePrices: `["0.5"]`,
	}

	_, err := m.ToDomainMarket()
	var decodeErr *DecodeError
	require.ErrorAs(t, err, &decodeErr)
	assert.Equal(t, "outcomePrices", decodeErr.Field)
}

func TestToDomainMarketStatusClosing(t *testing.T) {
	raw := gammaMarketJSON()
	raw["active"] = false

	data, err := json.Marshal(raw)
	require.NoError(t, err)

	var m APIMarket
	require.NoError(t, json.Unmarshal(data, &m))

	got, err := m.ToDomainMarket()
	require.NoError(t, err)
	assert.Equal(t, domain.MarketStatusClosing, got.Status)
}
