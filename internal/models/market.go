// Package models defines the core data structures for Skew
package models

import "time"

// Quote represents a point-in-time price snapshot for a ticker.
// Ephemeral data, cached for 5 minutes and never persisted beyond that.
type Quote struct {
	Ticker    string    `json:"ticker"`
	Price     float64   `json:"price"`
	ChangePct float64   `json:"change_percent"`
	MarketCap float64   `json:"market_cap,omitempty"`
	Volume    int64     `json:"volume,omitempty"`
	Source    string    `json:"source,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// FundamentalData holds valuation fundamentals for a ticker.
// Every field is independently nullable: a nil pointer means the source
// had no value, which is distinct from zero. Produced by fusing the
// primary and secondary market data sources field by field.
type FundamentalData struct {
	Ticker           string    `json:"ticker"`
	Price            *float64  `json:"price,omitempty"`
	PERatio          *float64  `json:"pe_ratio,omitempty"`
	PriceToBook      *float64  `json:"price_to_book,omitempty"`
	DividendYield    *float64  `json:"dividend_yield,omitempty"`
	EarningsPerShare *float64  `json:"earnings_per_share,omitempty"`
	MarketCap        *float64  `json:"market_cap,omitempty"`
	Sector           string    `json:"sector,omitempty"`
	Source           string    `json:"source,omitempty"`
	LastUpdated      time.Time `json:"last_updated"`
}

// IsEmpty returns true when the record carries no usable fields.
func (f *FundamentalData) IsEmpty() bool {
	if f == nil {
		return true
	}
	return f.Price == nil && f.PERatio == nil && f.PriceToBook == nil &&
		f.DividendYield == nil && f.EarningsPerShare == nil && f.MarketCap == nil
}

// DividendEvent is a single dividend payment reported by a provider.
type DividendEvent struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// DividendHistory summarizes the trailing-12-month dividend record for a ticker.
// RegularityScore is a step function of payment count in the window:
// >=12 payments → 1.0, >=6 → 0.8, >=4 → 0.6, otherwise 0.4.
type DividendHistory struct {
	Ticker            string          `json:"ticker"`
	Dividends         []DividendEvent `json:"dividends"`
	TotalLast12Months float64         `json:"total_last_12_months"`
	AverageMonthly    float64         `json:"average_monthly"`
	RegularityScore   float64         `json:"regularity_score"`
	LastUpdated       time.Time       `json:"last_updated"`
}

// TickerData bundles the fused market data for one candidate ticker.
// Any field may be nil when neither provider had data.
type TickerData struct {
	Ticker       string           `json:"ticker"`
	Quote        *Quote           `json:"quote,omitempty"`
	Fundamentals *FundamentalData `json:"fundamentals,omitempty"`
	Dividends    *DividendHistory `json:"dividends,omitempty"`
}

// MarketSnapshot holds the collected data for a candidate universe,
// gathered in one concurrent pass at the start of a request.
type MarketSnapshot struct {
	Tickers map[string]*TickerData `json:"tickers"`
}

// Get returns the collected data for a ticker, or nil.
func (s *MarketSnapshot) Get(ticker string) *TickerData {
	if s == nil {
		return nil
	}
	return s.Tickers[ticker]
}

// Float64Ptr returns a pointer to the given value. Convenience for
// building FundamentalData records with nullable fields.
func Float64Ptr(v float64) *float64 {
	return &v
}
