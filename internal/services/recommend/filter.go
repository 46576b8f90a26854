// Package recommend implements the recommendation pipeline: eligibility
// filtering, deterministic allocation, the AI allocation bridge, and
// final assembly.
package recommend

import (
	"errors"
	"sort"
	"strings"

	"github.com/bobmcallan/skew/internal/common"
	"github.com/bobmcallan/skew/internal/models"
)

// fallbackYieldTolerance widens the price ceiling by 10% when it is
// derived from the current dividend yield instead of actual dividend
// history. Applied ONLY on the yield-fallback path, since current-yield data
// is noisier than a trailing payment record.
const fallbackYieldTolerance = 1.10

// ErrNoUniverse is returned when no candidate universe can be built:
// the portfolio holds nothing and no target-allocation table exists.
var ErrNoUniverse = errors.New("no candidate universe: empty portfolio and no target allocations configured")

// Filter computes the set of tickers eligible for additional purchase.
type Filter struct {
	targets     map[string]float64 // ticker → target allocation pct
	maxPerAsset float64            // default target for tickers not in the table
	logger      *common.Logger
}

// NewFilter creates an eligibility filter over the target-allocation table.
func NewFilter(targets map[string]float64, maxPerAsset float64, logger *common.Logger) *Filter {
	return &Filter{
		targets:     targets,
		maxPerAsset: maxPerAsset,
		logger:      logger,
	}
}

// Universe returns the candidate ticker set: current holdings plus every
// ticker in the target-allocation table, holdings first, table tickers in
// lexical order. The ordering is deterministic so downstream tie-breaks
// are repeatable.
func (f *Filter) Universe(portfolio *models.PortfolioSnapshot) ([]string, error) {
	seen := make(map[string]bool)
	var universe []string

	for _, h := range portfolio.Holdings {
		if h.Ticker == "" || seen[h.Ticker] {
			continue
		}
		seen[h.Ticker] = true
		universe = append(universe, h.Ticker)
	}

	var fromTargets []string
	for ticker := range f.targets {
		if !seen[ticker] {
			fromTargets = append(fromTargets, ticker)
		}
	}
	sort.Strings(fromTargets)
	universe = append(universe, fromTargets...)

	if len(universe) == 0 {
		return nil, ErrNoUniverse
	}
	return universe, nil
}

// TargetFor returns the target allocation percentage for a ticker: the
// table value, or the default max-per-asset when the ticker is absent.
func (f *Filter) TargetFor(ticker string) float64 {
	if target, ok := f.targets[ticker]; ok {
		return target
	}
	return f.maxPerAsset
}

// Eligible evaluates every ticker in the universe against the resolved
// criteria and returns the candidates passing all conditions, in universe
// order. A ticker failing any condition is dropped silently; the filter
// never errors once a universe exists.
func (f *Filter) Eligible(criteria models.StrategyCriteria, portfolio *models.PortfolioSnapshot, universe []string, snapshot *models.MarketSnapshot) []models.Candidate {
	totalValue := portfolio.EffectiveTotalValue()

	var candidates []models.Candidate
	for _, ticker := range universe {
		candidate, ok := f.evaluate(criteria, portfolio, totalValue, ticker, snapshot.Get(ticker))
		if !ok {
			continue
		}
		candidates = append(candidates, candidate)
	}

	f.logger.Debug().
		Int("universe", len(universe)).
		Int("eligible", len(candidates)).
		Msg("Eligibility filter applied")

	return candidates
}

// evaluate runs the per-ticker eligibility conditions.
func (f *Filter) evaluate(criteria models.StrategyCriteria, portfolio *models.PortfolioSnapshot, totalValue float64, ticker string, data *models.TickerData) (models.Candidate, bool) {
	if data == nil {
		return models.Candidate{}, false
	}

	// 1. A current price must be obtainable
	price := currentPrice(data)
	if price <= 0 {
		return models.Candidate{}, false
	}

	// Sector restrictions, when the sector is known
	if data.Fundamentals != nil && data.Fundamentals.Sector != "" {
		if !sectorAllowed(criteria, data.Fundamentals.Sector) {
			return models.Candidate{}, false
		}
	}

	// Valuation multiples, when the source reported them
	if data.Fundamentals != nil {
		if criteria.PERatioMax > 0 && data.Fundamentals.PERatio != nil && *data.Fundamentals.PERatio > criteria.PERatioMax {
			return models.Candidate{}, false
		}
		if criteria.PriceToBookMax > 0 && data.Fundamentals.PriceToBook != nil && *data.Fundamentals.PriceToBook > criteria.PriceToBookMax {
			return models.Candidate{}, false
		}
	}

	// 2. A price ceiling must be computable, preferring dividend history
	ceiling, effectiveYield, ok := priceCeiling(criteria, price, data)
	if !ok {
		return models.Candidate{}, false
	}

	// 3. Effective dividend yield must meet the strategy minimum
	if effectiveYield < criteria.DividendYieldMin {
		return models.Candidate{}, false
	}
	if criteria.DividendYieldMax > 0 && effectiveYield > criteria.DividendYieldMax {
		return models.Candidate{}, false
	}

	// 4. Current price must not exceed the ceiling
	if price > ceiling {
		return models.Candidate{}, false
	}

	// 5. The position must be under its target weight
	currentPct := 0.0
	if holding := portfolio.Holding(ticker); holding != nil && totalValue > 0 {
		currentPct = holding.Quantity * price / totalValue * 100
	}
	targetPct := f.TargetFor(ticker)
	if currentPct >= targetPct {
		return models.Candidate{}, false
	}

	candidate := models.Candidate{
		Ticker:               ticker,
		CurrentPrice:         price,
		PriceCeiling:         ceiling,
		CurrentAllocationPct: currentPct,
		TargetAllocationPct:  targetPct,
		AllocationGap:        targetPct - currentPct,
		DividendYield:        effectiveYield,
	}
	if data.Dividends != nil {
		score := data.Dividends.RegularityScore
		candidate.RegularityScore = &score
	}
	return candidate, true
}

// currentPrice returns the freshest price: the quote, else the price the
// fundamentals record carries.
func currentPrice(data *models.TickerData) float64 {
	if data.Quote != nil && data.Quote.Price > 0 {
		return data.Quote.Price
	}
	if data.Fundamentals != nil && data.Fundamentals.Price != nil {
		return *data.Fundamentals.Price
	}
	return 0
}

// priceCeiling derives the maximum price at which the ticker still
// satisfies the strategy's minimum yield, and the effective yield used.
//
// Preferred path: projected annual dividend from trailing history,
//
//	ceiling = (average_monthly × 12) / price_ceiling_multiplier
//
// Fallback path (no dividend history): current yield with a 10%
// tolerance margin,
//
//	ceiling = price × dividend_yield / price_ceiling_multiplier × 1.10
//
// The margin never applies to the history path.
func priceCeiling(criteria models.StrategyCriteria, price float64, data *models.TickerData) (ceiling, effectiveYield float64, ok bool) {
	if criteria.PriceCeilingMultiplier <= 0 {
		return 0, 0, false
	}

	if data.Dividends != nil && data.Dividends.AverageMonthly > 0 {
		annual := data.Dividends.AverageMonthly * 12
		return annual / criteria.PriceCeilingMultiplier, annual / price, true
	}

	if data.Fundamentals != nil && data.Fundamentals.DividendYield != nil && *data.Fundamentals.DividendYield > 0 {
		yield := *data.Fundamentals.DividendYield
		return price * yield / criteria.PriceCeilingMultiplier * fallbackYieldTolerance, yield, true
	}

	return 0, 0, false
}

// sectorAllowed applies the allowed/excluded sector lists to a known sector.
func sectorAllowed(criteria models.StrategyCriteria, sector string) bool {
	for _, excluded := range criteria.ExcludedSectors {
		if strings.EqualFold(sector, excluded) {
			return false
		}
	}
	if len(criteria.AllowedSectors) == 0 {
		return true
	}
	for _, allowed := range criteria.AllowedSectors {
		if strings.EqualFold(sector, allowed) {
			return true
		}
	}
	return false
}
