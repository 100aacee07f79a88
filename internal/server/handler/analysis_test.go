package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/predictos/predictbot/internal/domain"
	"github.com/predictos/predictbot/internal/service"
)

type stubAnalysis struct {
	decision domain.Decision
	research domain.ResearchResult
	err      error
}

func (s *stubAnalysis) AnalyzeMarket(ctx context.Context, req service.AnalyzeRequest) (domain.Decision, error) {
	return s.decision, s.err
}

func (s *stubAnalysis) Research(ctx context.Context, query string) (domain.ResearchResult, error) {
	return s.research, s.err
}

func TestAnalyzeMapsDomainErrors(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"not found", domain.ErrNotFound, http.StatusNotFound},
		{"rate limited", domain.ErrRateLimited, http.StatusTooManyRequests},
		{"invariant violation", domain.ErrInvariantViolation, http.StatusBadGateway},
		{"internal", context.DeadlineExceeded, http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := NewAnalysisHandler(&stubAnalysis{err: tc.err}, discardLogger())

			body := strings.NewReader(`{"platform":"polymarket","market_id":"p1"}`)
			req := httptest.NewRequest(http.MethodPost, "/api/analyze", body)
			rec := httptest.NewRecorder()

			h.Analyze(rec, req)
			assert.Equal(t, tc.status, rec.Code)
		})
	}
}

func TestAnalyzeRequiresMarketReference(t *testing.T) {
	h := NewAnalysisHandler(&stubAnalysis{}, discardLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/analyze", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()

	h.Analyze(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAnalyzeFailureLogsHandlerScope(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	h := NewAnalysisHandler(&stubAnalysis{err: domain.ErrNotFound}, logger)

	body := strings.NewReader(`{"platform":"polymarket","market_id":"p1"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/analyze", body)
	rec := httptest.NewRecorder()

	h.Analyze(rec, req)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "analysis", entry["handler"])
}

func TestHealthCheckReportsService(t *testing.T) {
	h := NewHealthHandler(discardLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()

	h.HealthCheck(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "predictbot", body["service"])
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
