package polymarket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/predictos/predictbot/internal/crypto"
	"github.com/predictos/predictbot/internal/domain"
)

// Well-known hardhat development key; never used on a live chain.
const testKeyHex = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

func testSigner(t *testing.T) *crypto.Signer {
	t.Helper()
	signer, err := crypto.NewSigner(testKeyHex, 137)
	require.NoError(t, err)
	return signer
}

func signedLevel(t *testing.T, signer *crypto.Signer) domain.SignedOrderRequest {
	t.Helper()
	req, err := signer.SignLevel(domain.OrderLevel{
		Outcome: "Up",
		TokenID: "111",
		Side:    domain.OrderSideBuy,
		Price:   0.52,
		Size:    10,
	})
	require.NoError(t, err)
	return req
}

func TestPostOrderSubmitsSignedLevel(t *testing.T) {
	signer := testSigner(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/order", r.URL.Path)

		var body struct {
			Order map[string]any `json:"order"`
			Owner string         `json:"owner"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "111", body.Order["tokenID"])
		assert.Equal(t, "BUY", body.Order["side"])
		assert.Equal(t, signer.Address().Hex(), body.Order["maker"])
		assert.NotEmpty(t, body.Order["signature"])
		assert.NotEmpty(t, body.Order["salt"])

		_ = json.NewEncoder(w).Encode(APIOrderResult{Success: true, OrderID: "order-1"})
	}))
	defer srv.Close()

	client := NewClobClient(srv.URL, signer)
	orderID, err := client.PostOrder(context.Background(), signedLevel(t, signer))
	require.NoError(t, err)
	assert.Equal(t, "order-1", orderID)
}

func TestPostOrderRejectionIsError(t *testing.T) {
	signer := testSigner(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(APIOrderResult{Success: false, ErrorMsg: "insufficient balance"})
	}))
	defer srv.Close()

	client := NewClobClient(srv.URL, signer)
	_, err := client.PostOrder(context.Background(), signedLevel(t, signer))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insufficient balance")
}

func TestDeriveAPIKeyAttachesL2Headers(t *testing.T) {
	signer := testSigner(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/derive-api-key":
			assert.Equal(t, signer.Address().Hex(), r.Header.Get("POLY_ADDRESS"))
			assert.NotEmpty(t, r.Header.Get("POLY_SIGNATURE"))
			assert.NotEmpty(t, r.Header.Get("POLY_TIMESTAMP"))
			_ = json.NewEncoder(w).Encode(map[string]string{
				"apiKey":     "key-1",
				"secret":     "c2VjcmV0", // base64("secret")
				"passphrase": "phrase",
			})
		case "/cancel-all":
			assert.Equal(t, "key-1", r.Header.Get("POLY_API_KEY"))
			assert.Equal(t, "phrase", r.Header.Get("POLY_PASSPHRASE"))
			assert.NotEmpty(t, r.Header.Get("POLY_SIGNATURE"))
			_ = json.NewEncoder(w).Encode(map[string]any{"success": true})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	client := NewClobClient(srv.URL, signer)
	require.NoError(t, client.DeriveAPIKey(context.Background()))
	require.NoError(t, client.CancelAll(context.Background()))
}
