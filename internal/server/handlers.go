package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/bobmcallan/skew/internal/common"
	"github.com/bobmcallan/skew/internal/models"
	"github.com/bobmcallan/skew/internal/services/criteria"
	"github.com/bobmcallan/skew/internal/services/recommend"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodHead) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodHead) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{
		"version": common.GetVersion(),
		"build":   common.GetBuild(),
		"commit":  common.GetGitCommit(),
	})
}

// handleShutdown handles POST /api/shutdown (dev mode only).
func (s *Server) handleShutdown(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	if s.app.Config.IsProduction() {
		WriteError(w, http.StatusForbidden, "Shutdown endpoint disabled in production")
		return
	}

	s.logger.Info().Msg("Shutdown requested via HTTP endpoint")

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Shutting down gracefully...\n"))

	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}

	if s.shutdownChan != nil {
		go func() {
			time.Sleep(100 * time.Millisecond)
			s.shutdownChan <- struct{}{}
		}()
	}
}

// handleRecommend handles POST /api/recommend.
func (s *Server) handleRecommend(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req models.RecommendationRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	if req.Amount <= 0 {
		WriteError(w, http.StatusBadRequest, "Amount must be a positive number")
		return
	}

	rec, err := s.app.RecommendationService.Recommend(r.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, criteria.ErrNoCriteria):
			WriteError(w, http.StatusBadRequest, "No strategy criteria available: configure defaults or supply a strategy")
		case errors.Is(err, recommend.ErrNoUniverse):
			WriteError(w, http.StatusUnprocessableEntity, "No candidate universe: portfolio has no holdings and no targets are configured")
		default:
			WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Recommendation error: %v", err))
		}
		return
	}

	WriteJSON(w, http.StatusOK, rec)
}

// handleMarketQuote handles GET /api/market/quote/{ticker}.
func (s *Server) handleMarketQuote(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	ticker := strings.TrimPrefix(r.URL.Path, "/api/market/quote/")
	if ticker == "" {
		WriteError(w, http.StatusBadRequest, "Ticker is required")
		return
	}

	quote, err := s.app.MarketDataService.GetQuote(r.Context(), ticker)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Quote error: %v", err))
		return
	}
	if quote == nil {
		WriteError(w, http.StatusNotFound, fmt.Sprintf("No quote available for %s", ticker))
		return
	}

	WriteJSON(w, http.StatusOK, quote)
}

// handleMarketDividends handles GET /api/market/dividends/{ticker}.
func (s *Server) handleMarketDividends(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	ticker := strings.TrimPrefix(r.URL.Path, "/api/market/dividends/")
	if ticker == "" {
		WriteError(w, http.StatusBadRequest, "Ticker is required")
		return
	}

	history, err := s.app.MarketDataService.GetDividendHistory(r.Context(), ticker)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Dividend history error: %v", err))
		return
	}
	if history == nil {
		WriteError(w, http.StatusNotFound, fmt.Sprintf("No dividend history available for %s", ticker))
		return
	}

	WriteJSON(w, http.StatusOK, history)
}
