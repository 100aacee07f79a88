package research

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/predictos/predictbot/internal/domain"
)

func TestResearchParsesCitedAnswer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))

		var req researchRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "what moved btc today", req.Query)

		_ = json.NewEncoder(w).Encode(map[string]any{
			"answer": "ETF inflows.",
			"citations": []map[string]any{
				{"source": "coindesk", "url": "https://example.com/a", "relevance": 0.9},
				{"source": "reuters"},
			},
		})
	}))
	defer srv.Close()

	got, err := NewClient(srv.URL, "key").Research(context.Background(), "what moved btc today")
	require.NoError(t, err)

	assert.Equal(t, "ETF inflows.", got.Answer)
	require.Len(t, got.Citations, 2)
	assert.InDelta(t, 0.9, got.Citations[0].Relevance, 1e-9)
	assert.Zero(t, got.Citations[1].Relevance)
}

func TestResearchRejectsOverlongQuery(t *testing.T) {
	client := NewClient("http://localhost:0", "key")

	_, err := client.Research(context.Background(), strings.Repeat("q", MaxQueryLength+1))
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)
}

func TestResearchRejectsEmptyQuery(t *testing.T) {
	client := NewClient("http://localhost:0", "key")

	_, err := client.Research(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)
}

func TestResearchSurfacesUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "key").Research(context.Background(), "anything")
	assert.ErrorContains(t, err, "503")
}
