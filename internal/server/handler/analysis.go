package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/predictos/predictbot/internal/domain"
	"github.com/predictos/predictbot/internal/service"
)

// AnalysisService defines the methods the analysis handler requires from the
// service layer. It is declared locally so the handler package does not
// depend on the concrete service implementation.
type AnalysisService interface {
	AnalyzeMarket(ctx context.Context, req service.AnalyzeRequest) (domain.Decision, error)
	Research(ctx context.Context, query string) (domain.ResearchResult, error)
}

// AnalysisHandler serves the analyze and research endpoints.
type AnalysisHandler struct {
	analysis AnalysisService
	logger   *slog.Logger
}

// NewAnalysisHandler creates an AnalysisHandler with the given service and logger.
func NewAnalysisHandler(analysis AnalysisService, logger *slog.Logger) *AnalysisHandler {
	return &AnalysisHandler{
		analysis: analysis,
		logger:   logHandler(logger, "analysis"),
	}
}

// analyzeRequest is the POST body for the analyze endpoint. Either a
// platform/id pair or a market URL must be provided.
type analyzeRequest struct {
	Platform string `json:"platform"`
	MarketID string `json:"market_id"`
	URL      string `json:"url"`
	Question string `json:"question"`
	Research bool   `json:"research"`
}

// Analyze resolves a market and returns an AI trading recommendation.
// POST /api/analyze
func (h *AnalysisHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.URL == "" && (req.Platform == "" || req.MarketID == "") {
		writeError(w, http.StatusBadRequest, "either url or platform and market_id are required")
		return
	}

	decision, err := h.analysis.AnalyzeMarket(r.Context(), service.AnalyzeRequest{
		Ref: domain.MarketRef{
			Platform: domain.Platform(req.Platform),
			ID:       req.MarketID,
		},
		URL:      req.URL,
		Question: req.Question,
		Research: req.Research,
	})
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: analyze failed",
			slog.String("market_id", req.MarketID),
			slog.String("url", req.URL),
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err, "analysis failed")
		return
	}

	writeJSON(w, http.StatusOK, decision)
}

// researchRequest is the POST body for the research endpoint.
type researchRequest struct {
	Query string `json:"query"`
}

// Research answers a free-form question with cited sources.
// POST /api/research
func (h *AnalysisHandler) Research(w http.ResponseWriter, r *http.Request) {
	var req researchRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}

	result, err := h.analysis.Research(r.Context(), req.Query)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: research failed",
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err, "research failed")
		return
	}

	writeJSON(w, http.StatusOK, result)
}
