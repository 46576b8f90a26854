package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/skew/internal/app"
	"github.com/bobmcallan/skew/internal/common"
	"github.com/bobmcallan/skew/internal/models"
	"github.com/bobmcallan/skew/internal/services/criteria"
	"github.com/bobmcallan/skew/internal/services/recommend"
)

// stubRecommender returns a canned recommendation or error.
type stubRecommender struct {
	rec *models.Recommendation
	err error
}

func (s *stubRecommender) Recommend(_ context.Context, _ *models.RecommendationRequest) (*models.Recommendation, error) {
	return s.rec, s.err
}

// stubMarket serves fixed market data.
type stubMarket struct {
	quote   *models.Quote
	history *models.DividendHistory
}

func (s *stubMarket) GetQuote(_ context.Context, _ string) (*models.Quote, error) {
	return s.quote, nil
}

func (s *stubMarket) GetFundamentals(_ context.Context, _ string) (*models.FundamentalData, error) {
	return nil, nil
}

func (s *stubMarket) GetDividendHistory(_ context.Context, _ string) (*models.DividendHistory, error) {
	return s.history, nil
}

func (s *stubMarket) CollectCandidateData(_ context.Context, _ []string) *models.MarketSnapshot {
	return &models.MarketSnapshot{Tickers: map[string]*models.TickerData{}}
}

func newTestServer(recommender *stubRecommender, market *stubMarket) *Server {
	a := &app.App{
		Config: common.NewDefaultConfig(),
		Logger: common.NewSilentLogger(),
	}
	if recommender != nil {
		a.RecommendationService = recommender
	}
	if market != nil {
		a.MarketDataService = market
	}
	return NewServer(a)
}

func jsonBody(t *testing.T, v interface{}) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(v))
	return &buf
}

func TestHandleHealth(t *testing.T) {
	srv := newTestServer(nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "ok", resp["status"])
}

func TestHandleVersion(t *testing.T) {
	srv := newTestServer(nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/version", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.NotEmpty(t, resp["version"])
}

func TestHandleRecommend_Success(t *testing.T) {
	srv := newTestServer(&stubRecommender{
		rec: &models.Recommendation{
			ID:          "rec-1",
			TotalAmount: 1000,
			Allocations: []models.AllocationLine{
				{Ticker: "DIV.AU", Quantity: 20, UnitPrice: 50, Amount: 1000},
			},
			Source: "deterministic",
		},
	}, nil)

	body := jsonBody(t, map[string]interface{}{
		"amount": 1000,
		"portfolio": map[string]interface{}{
			"holdings":    []interface{}{},
			"total_value": 10000,
		},
	})
	req := httptest.NewRequest(http.MethodPost, "/api/recommend", body)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp models.Recommendation
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "rec-1", resp.ID)
	require.Len(t, resp.Allocations, 1)
	assert.Equal(t, int64(20), resp.Allocations[0].Quantity)
}

func TestHandleRecommend_RejectsNonPositiveAmount(t *testing.T) {
	srv := newTestServer(&stubRecommender{}, nil)

	body := jsonBody(t, map[string]interface{}{"amount": -5})
	req := httptest.NewRequest(http.MethodPost, "/api/recommend", body)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleRecommend_RejectsInvalidJSON(t *testing.T) {
	srv := newTestServer(&stubRecommender{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/recommend", bytes.NewBufferString("{nope"))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleRecommend_MethodNotAllowed(t *testing.T) {
	srv := newTestServer(&stubRecommender{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/recommend", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHandleRecommend_NoCriteria(t *testing.T) {
	srv := newTestServer(&stubRecommender{err: criteria.ErrNoCriteria}, nil)

	body := jsonBody(t, map[string]interface{}{"amount": 1000})
	req := httptest.NewRequest(http.MethodPost, "/api/recommend", body)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleRecommend_NoUniverse(t *testing.T) {
	srv := newTestServer(&stubRecommender{err: recommend.ErrNoUniverse}, nil)

	body := jsonBody(t, map[string]interface{}{"amount": 1000})
	req := httptest.NewRequest(http.MethodPost, "/api/recommend", body)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestHandleRecommend_InternalError(t *testing.T) {
	srv := newTestServer(&stubRecommender{err: errors.New("storage exploded")}, nil)

	body := jsonBody(t, map[string]interface{}{"amount": 1000})
	req := httptest.NewRequest(http.MethodPost, "/api/recommend", body)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestHandleMarketQuote(t *testing.T) {
	srv := newTestServer(nil, &stubMarket{
		quote: &models.Quote{Ticker: "BHP.AU", Price: 42.50, Source: "eodhd"},
	})

	req := httptest.NewRequest(http.MethodGet, "/api/market/quote/BHP.AU", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var quote models.Quote
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&quote))
	assert.Equal(t, 42.50, quote.Price)
}

func TestHandleMarketQuote_NotFound(t *testing.T) {
	srv := newTestServer(nil, &stubMarket{})

	req := httptest.NewRequest(http.MethodGet, "/api/market/quote/GONE.AU", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleMarketDividends(t *testing.T) {
	srv := newTestServer(nil, &stubMarket{
		history: &models.DividendHistory{Ticker: "BHP.AU", TotalLast12Months: 1.53, RegularityScore: 0.6},
	})

	req := httptest.NewRequest(http.MethodGet, "/api/market/dividends/BHP.AU", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var history models.DividendHistory
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&history))
	assert.Equal(t, 1.53, history.TotalLast12Months)
}

func TestCorrelationIDHeaderSet(t *testing.T) {
	srv := newTestServer(nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.NotEmpty(t, rec.Header().Get("X-Correlation-ID"))
}

func TestCorrelationIDHeaderPropagated(t *testing.T) {
	srv := newTestServer(nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("X-Request-ID", "req-123")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, "req-123", rec.Header().Get("X-Correlation-ID"))
}
