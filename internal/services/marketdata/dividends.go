package marketdata

import (
	"time"

	"github.com/bobmcallan/skew/internal/models"
)

// Regularity score steps: how many payments in the trailing 12 months a
// ticker needs to be considered a monthly, quarterly, or irregular payer.
const (
	regularityMonthly   = 12
	regularityBiMonthly = 6
	regularityQuarterly = 4
)

// AnalyzeDividends computes the trailing-12-month dividend summary from
// raw dividend events. Zero events in the window is a valid outcome, not
// an error: all totals are zero and the regularity score bottoms out at 0.4.
func AnalyzeDividends(ticker string, events []models.DividendEvent, now time.Time) *models.DividendHistory {
	cutoff := now.AddDate(0, 0, -365)

	var window []models.DividendEvent
	var total float64
	for _, e := range events {
		if e.Date.Before(cutoff) || e.Date.After(now) {
			continue
		}
		window = append(window, e)
		total += e.Value
	}

	return &models.DividendHistory{
		Ticker:            ticker,
		Dividends:         window,
		TotalLast12Months: total,
		AverageMonthly:    total / 12,
		RegularityScore:   regularityScore(len(window)),
		LastUpdated:       now,
	}
}

// regularityScore maps payment count in the trailing window to the coarse
// 0.4–1.0 consistency measure.
func regularityScore(payments int) float64 {
	switch {
	case payments >= regularityMonthly:
		return 1.0
	case payments >= regularityBiMonthly:
		return 0.8
	case payments >= regularityQuarterly:
		return 0.6
	default:
		return 0.4
	}
}
