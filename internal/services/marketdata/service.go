// Package marketdata fuses two unreliable market data providers behind a
// shared TTL cache, preferring the primary and back-filling from the
// secondary.
package marketdata

import (
	"context"
	"sync"
	"time"

	"github.com/bobmcallan/skew/internal/common"
	"github.com/bobmcallan/skew/internal/interfaces"
	"github.com/bobmcallan/skew/internal/models"
)

// maxConcurrent bounds the per-request fan-out across candidate tickers.
const maxConcurrent = 5

// Service implements MarketDataService with primary-preferred fusion.
// Every operation returns (nil, nil) when neither provider has data;
// callers must treat that as "exclude this ticker", never as zero.
type Service struct {
	primary   interfaces.MarketDataClient
	secondary interfaces.MarketDataClient
	cache     interfaces.CacheStorage
	logger    *common.Logger
	now       func() time.Time // injectable clock for testing
}

// NewService creates a new market data fusion service.
// secondary may be nil, in which case fallback and back-fill are skipped.
// A nil primary means no provider is configured; every lookup then
// reports no data.
func NewService(primary, secondary interfaces.MarketDataClient, cache interfaces.CacheStorage, logger *common.Logger) *Service {
	return &Service{
		primary:   primary,
		secondary: secondary,
		cache:     cache,
		logger:    logger,
		now:       time.Now,
	}
}

// GetQuote returns the freshest available quote, preferring the primary
// provider and falling back to the secondary on error or empty result.
func (s *Service) GetQuote(ctx context.Context, ticker string) (*models.Quote, error) {
	if cached, err := s.cache.GetQuote(ctx, ticker); err == nil && cached != nil {
		return cached, nil
	}
	if s.primary == nil {
		return nil, nil
	}

	quote, err := s.primary.GetQuote(ctx, ticker)
	if err != nil || quote == nil || quote.Price <= 0 {
		if err != nil {
			s.logger.Warn().Err(err).Str("ticker", ticker).Str("source", s.primary.Name()).Msg("Primary quote failed")
		}
		quote = nil
		if s.secondary != nil {
			quote, err = s.secondary.GetQuote(ctx, ticker)
			if err != nil || quote == nil || quote.Price <= 0 {
				if err != nil {
					s.logger.Warn().Err(err).Str("ticker", ticker).Str("source", s.secondary.Name()).Msg("Secondary quote failed")
				}
				return nil, nil
			}
		}
	}

	if quote == nil {
		return nil, nil
	}

	if err := s.cache.SetQuote(ctx, quote); err != nil {
		s.logger.Warn().Err(err).Str("ticker", ticker).Msg("Quote cache write failed")
	}
	return quote, nil
}

// GetFundamentals returns fundamentals fused field-by-field: the primary
// result is the base (or the secondary's when the primary has nothing),
// and any nil field on the base is back-filled from the secondary.
func (s *Service) GetFundamentals(ctx context.Context, ticker string) (*models.FundamentalData, error) {
	if cached, err := s.cache.GetFundamentals(ctx, ticker); err == nil && cached != nil {
		return cached, nil
	}
	if s.primary == nil {
		return nil, nil
	}

	primary, err := s.primary.GetFundamentals(ctx, ticker)
	if err != nil {
		s.logger.Warn().Err(err).Str("ticker", ticker).Str("source", s.primary.Name()).Msg("Primary fundamentals failed")
		primary = nil
	}

	var secondary *models.FundamentalData
	if s.secondary != nil && (primary.IsEmpty() || hasNilField(primary)) {
		secondary, err = s.secondary.GetFundamentals(ctx, ticker)
		if err != nil {
			s.logger.Warn().Err(err).Str("ticker", ticker).Str("source", s.secondary.Name()).Msg("Secondary fundamentals failed")
			secondary = nil
		}
	}

	fused := FuseFundamentals(primary, secondary)
	if fused == nil {
		return nil, nil
	}
	fused.Ticker = ticker

	if err := s.cache.SetFundamentals(ctx, fused); err != nil {
		s.logger.Warn().Err(err).Str("ticker", ticker).Msg("Fundamentals cache write failed")
	}
	return fused, nil
}

// FuseFundamentals merges two partial fundamentals records. The base is
// the primary's record when it has any data, otherwise the secondary's;
// nil fields on the base are filled from the other record. Returns nil
// when both records are empty.
func FuseFundamentals(primary, secondary *models.FundamentalData) *models.FundamentalData {
	base, fill := primary, secondary
	if base.IsEmpty() {
		base, fill = secondary, primary
	}
	if base.IsEmpty() {
		return nil
	}

	fused := *base
	if fill.IsEmpty() {
		return &fused
	}

	if fused.Price == nil {
		fused.Price = fill.Price
	}
	if fused.PERatio == nil {
		fused.PERatio = fill.PERatio
	}
	if fused.PriceToBook == nil {
		fused.PriceToBook = fill.PriceToBook
	}
	if fused.DividendYield == nil {
		fused.DividendYield = fill.DividendYield
	}
	if fused.EarningsPerShare == nil {
		fused.EarningsPerShare = fill.EarningsPerShare
	}
	if fused.MarketCap == nil {
		fused.MarketCap = fill.MarketCap
	}
	if fused.Sector == "" {
		fused.Sector = fill.Sector
	}
	return &fused
}

// hasNilField reports whether any fusable field is missing.
func hasNilField(f *models.FundamentalData) bool {
	if f == nil {
		return true
	}
	return f.Price == nil || f.PERatio == nil || f.PriceToBook == nil ||
		f.DividendYield == nil || f.EarningsPerShare == nil || f.MarketCap == nil
}

// GetDividendHistory returns the analyzed trailing-12-month dividend
// record, preferring the primary provider's raw events.
func (s *Service) GetDividendHistory(ctx context.Context, ticker string) (*models.DividendHistory, error) {
	if cached, err := s.cache.GetDividendHistory(ctx, ticker); err == nil && cached != nil {
		return cached, nil
	}
	if s.primary == nil {
		return nil, nil
	}

	events, err := s.primary.GetDividends(ctx, ticker)
	if err != nil || len(events) == 0 {
		if err != nil {
			s.logger.Warn().Err(err).Str("ticker", ticker).Str("source", s.primary.Name()).Msg("Primary dividends failed")
		}
		events = nil
		if s.secondary != nil {
			events, err = s.secondary.GetDividends(ctx, ticker)
			if err != nil {
				s.logger.Warn().Err(err).Str("ticker", ticker).Str("source", s.secondary.Name()).Msg("Secondary dividends failed")
				events = nil
			}
		}
	}

	if events == nil {
		return nil, nil
	}

	history := AnalyzeDividends(ticker, events, s.now())

	if err := s.cache.SetDividendHistory(ctx, history); err != nil {
		s.logger.Warn().Err(err).Str("ticker", ticker).Msg("Dividend cache write failed")
	}
	return history, nil
}

// CollectCandidateData gathers quote, fundamentals, and dividend history
// for a candidate set concurrently. Candidates are independent, so the
// fetches fan out behind a bounded semaphore; per-ticker failures leave
// nil fields in the snapshot rather than failing the pass.
func (s *Service) CollectCandidateData(ctx context.Context, tickers []string) *models.MarketSnapshot {
	snapshot := &models.MarketSnapshot{
		Tickers: make(map[string]*models.TickerData, len(tickers)),
	}
	if len(tickers) == 0 {
		return snapshot
	}

	sem := make(chan struct{}, maxConcurrent)
	var wg sync.WaitGroup
	var mu sync.Mutex

	for _, ticker := range tickers {
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			break
		}
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		go func(ticker string) {
			defer wg.Done()
			defer func() { <-sem }()

			data := &models.TickerData{Ticker: ticker}
			data.Quote, _ = s.GetQuote(ctx, ticker)
			data.Fundamentals, _ = s.GetFundamentals(ctx, ticker)
			data.Dividends, _ = s.GetDividendHistory(ctx, ticker)

			mu.Lock()
			snapshot.Tickers[ticker] = data
			mu.Unlock()
		}(ticker)
	}

	wg.Wait()

	s.logger.Debug().Int("tickers", len(snapshot.Tickers)).Msg("Candidate market data collected")
	return snapshot
}

// Ensure Service implements MarketDataService
var _ interfaces.MarketDataService = (*Service)(nil)
