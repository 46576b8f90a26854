package recommend

import (
	"fmt"
	"math"
	"sort"

	"github.com/bobmcallan/skew/internal/models"
)

// flexibleFallbackLimit caps how many candidates the single-share
// fallback pass considers.
const flexibleFallbackLimit = 5

// Allocate distributes a cash budget across eligible candidates
// proportionally to their allocation gap, rounding down to whole shares.
// The result is fully deterministic: identical inputs produce identical
// output ordering and amounts.
//
// Invariant: the sum of line amounts never exceeds amount, and the
// returned remaining balance is amount minus that sum, never negative.
func Allocate(candidates []models.Candidate, amount float64) ([]models.AllocationLine, float64) {
	if len(candidates) == 0 || amount <= 0 {
		return nil, amount
	}

	// Largest gap first; ties keep input order (stable sort) so the
	// outcome is repeatable.
	ordered := make([]models.Candidate, len(candidates))
	copy(ordered, candidates)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].AllocationGap > ordered[j].AllocationGap
	})

	var totalGap float64
	for _, c := range ordered {
		totalGap += c.AllocationGap
	}
	if totalGap <= 0 {
		return nil, amount
	}

	var lines []models.AllocationLine
	remaining := amount

	for _, c := range ordered {
		if remaining <= 0 {
			break
		}
		if c.CurrentPrice <= 0 {
			continue
		}

		share := amount * (c.AllocationGap / totalGap)
		if share > remaining {
			share = remaining
		}

		quantity := int64(math.Floor(share / c.CurrentPrice))
		if quantity <= 0 {
			continue
		}

		cost := float64(quantity) * c.CurrentPrice
		if cost > remaining {
			continue
		}

		lines = append(lines, models.AllocationLine{
			Ticker:    c.Ticker,
			Quantity:  quantity,
			UnitPrice: c.CurrentPrice,
			Amount:    cost,
			Reason:    proportionalReason(c, quantity),
		})
		remaining -= cost
	}

	// Flexible fallback: the proportional pass can round every share
	// count to zero when the budget is small relative to prices. Buy one
	// share of the widest-gap candidates that still fit, so any strategy
	// match with an affordable share price yields a concrete action.
	if len(lines) == 0 {
		limit := flexibleFallbackLimit
		if len(ordered) < limit {
			limit = len(ordered)
		}
		for _, c := range ordered[:limit] {
			if c.CurrentPrice <= 0 || c.CurrentPrice > remaining {
				continue
			}
			lines = append(lines, models.AllocationLine{
				Ticker:    c.Ticker,
				Quantity:  1,
				UnitPrice: c.CurrentPrice,
				Amount:    c.CurrentPrice,
				Reason:    fallbackReason(c),
			})
			remaining -= c.CurrentPrice
		}
	}

	return lines, remaining
}

func proportionalReason(c models.Candidate, quantity int64) string {
	return fmt.Sprintf("%s is %.1f%% below its %.1f%% target weight; %d share(s) at %.2f narrow the gap with a %.1f%% effective yield",
		c.Ticker, c.AllocationGap, c.TargetAllocationPct, quantity, c.CurrentPrice, c.DividendYield*100)
}

func fallbackReason(c models.Candidate) string {
	return fmt.Sprintf("budget too small for a proportional allocation; 1 share of %s at %.2f (gap %.1f%%, yield %.1f%%) puts the cash to work",
		c.Ticker, c.CurrentPrice, c.AllocationGap, c.DividendYield*100)
}
