package kalshi

import (
	"context"
	stdcrypto "crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/predictos/predictbot/internal/domain"
)

func testClient(t *testing.T, baseURL string) (*Client, *rsa.PublicKey) {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	der, err := x509.MarshalPKCS8PrivateKey(key)
	require.NoError(t, err)
	pemBytes := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})

	client := NewClient(baseURL, "key-id-1")
	require.NoError(t, client.SetRSAPrivateKey(pemBytes))
	return client, &key.PublicKey
}

func marketJSON(status, result string) map[string]any {
	return map[string]any{
		"market": map[string]any{
			"ticker":          "BTC-UP-26AUG31-1400",
			"title":           "Will BTC close up?",
			"status":          status,
			"yes_bid":         50.0,
			"yes_ask":         52.0,
			"no_bid":          47.0,
			"no_ask":          49.0,
			"last_price":      51.0,
			"volume":          1200,
			"result":          result,
			"expiration_time": "2026-08-31T18:15:00Z",
		},
	}
}

func TestGetMarketNormalizesCentsToProbabilities(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/markets/BTC-UP-26AUG31-1400", r.URL.Path)
		_ = json.NewEncoder(w).Encode(marketJSON("open", ""))
	}))
	defer srv.Close()

	client, _ := testClient(t, srv.URL)
	got, err := client.GetMarket(context.Background(), "BTC-UP-26AUG31-1400")
	require.NoError(t, err)

	assert.Equal(t, domain.PlatformKalshi, got.Platform)
	assert.Equal(t, domain.MarketStatusOpen, got.Status)
	require.Len(t, got.Outcomes, 2)
	assert.Equal(t, "Yes", got.Outcomes[0].Label)
	assert.InDelta(t, 0.52, got.Outcomes[0].Price, 1e-9)
	assert.InDelta(t, 0.49, got.Outcomes[1].Price, 1e-9)
	assert.Equal(t, "2026-08-31T18:15:00Z", got.Expiry.Format("2006-01-02T15:04:05Z"))
}

func TestGetMarketSettledReportsTerminalPrices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(marketJSON("settled", "yes"))
	}))
	defer srv.Close()

	client, _ := testClient(t, srv.URL)
	got, err := client.GetMarket(context.Background(), "BTC-UP-26AUG31-1400")
	require.NoError(t, err)

	assert.Equal(t, domain.MarketStatusResolved, got.Status)
	assert.True(t, got.Outcomes[0].Winner)
	assert.InDelta(t, 1.0, got.Outcomes[0].Price, 1e-9)
	assert.InDelta(t, 0.0, got.Outcomes[1].Price, 1e-9)
}

func TestGetMarketUnknownTickerIsNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"market": map[string]any{}})
	}))
	defer srv.Close()

	client, _ := testClient(t, srv.URL)
	_, err := client.GetMarket(context.Background(), "NOPE")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSignedRequestCarriesVerifiableSignature(t *testing.T) {
	var pub *rsa.PublicKey

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ts := r.Header.Get("KALSHI-ACCESS-TIMESTAMP")
		assert.Equal(t, "key-id-1", r.Header.Get("KALSHI-ACCESS-KEY"))
		require.NotEmpty(t, ts)

		sig, err := base64.StdEncoding.DecodeString(r.Header.Get("KALSHI-ACCESS-SIGNATURE"))
		require.NoError(t, err)

		hash := sha256.Sum256([]byte(ts + http.MethodGet + "/markets/T1"))
		assert.NoError(t, rsa.VerifyPSS(pub, stdcrypto.SHA256, hash[:], sig, &rsa.PSSOptions{
			SaltLength: rsa.PSSSaltLengthEqualsHash,
		}))

		_ = json.NewEncoder(w).Encode(marketJSON("open", ""))
	}))
	defer srv.Close()

	client, pubKey := testClient(t, srv.URL)
	pub = pubKey

	_, err := client.GetMarket(context.Background(), "T1")
	require.NoError(t, err)
}

func TestRequestWithoutKeyIsInvalidConfig(t *testing.T) {
	client := NewClient("http://localhost:0", "key-id-1")

	_, err := client.GetMarket(context.Background(), "T1")
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)
}

func TestGetPositionsMapsSignedContracts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/portfolio/positions", r.URL.Path)
		assert.Equal(t, "T1", r.URL.Query().Get("ticker"))

		_ = json.NewEncoder(w).Encode(map[string]any{
			"market_positions": []map[string]any{
				{"ticker": "T1", "position": -5, "total_traded": 240},
				{"ticker": "T1", "position": 0, "total_traded": 0},
			},
		})
	}))
	defer srv.Close()

	client, _ := testClient(t, srv.URL)
	holdings, err := client.GetPositions(context.Background(), "T1")
	require.NoError(t, err)

	require.Len(t, holdings, 1)
	assert.Equal(t, "No", holdings[0].Outcome)
	assert.Equal(t, "T1:no", holdings[0].TokenID)
	assert.InDelta(t, 5, holdings[0].Shares, 1e-9)
	assert.InDelta(t, 0.48, holdings[0].AvgPrice, 1e-9)
}

func TestAdapterHoldingsIgnoreWalletArgument(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.URL.Query().Get("user"))
		_ = json.NewEncoder(w).Encode(map[string]any{"market_positions": []map[string]any{}})
	}))
	defer srv.Close()

	client, _ := testClient(t, srv.URL)
	adapter := NewAdapter(client)
	assert.Equal(t, domain.PlatformKalshi, adapter.Platform())

	holdings, err := adapter.FetchHoldings(context.Background(), "0xignored", domain.Market{ID: "T1"})
	require.NoError(t, err)
	assert.Empty(t, holdings)
}
