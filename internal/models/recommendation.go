package models

import "time"

// NoActionMessage is returned verbatim when no allocation is possible.
const NoActionMessage = "no action recommended now; wait for a price pullback or hold cash"

// Candidate is a ticker that passed the eligibility filter, with the
// derived values the allocation engine needs. Recomputed per request,
// never persisted.
type Candidate struct {
	Ticker               string   `json:"ticker"`
	CurrentPrice         float64  `json:"current_price"`
	PriceCeiling         float64  `json:"price_ceiling"`
	CurrentAllocationPct float64  `json:"current_allocation_pct"`
	TargetAllocationPct  float64  `json:"target_allocation_pct"`
	AllocationGap        float64  `json:"allocation_gap"`
	DividendYield        float64  `json:"dividend_yield"`
	RegularityScore      *float64 `json:"regularity_score,omitempty"`
}

// AllocationLine is one purchase instruction in a recommendation.
// Quantity is whole shares; Amount is always quantity × unit_price.
// Immutable once created.
type AllocationLine struct {
	Ticker    string  `json:"ticker"`
	Quantity  int64   `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
	Amount    float64 `json:"amount"`
	Reason    string  `json:"reason,omitempty"`
}

// Recommendation is the terminal output of one recommendation request.
// Invariant: sum of allocation amounts <= TotalAmount, and
// RemainingBalance = TotalAmount − sum >= 0.
type Recommendation struct {
	ID               string           `json:"id,omitempty"`
	TotalAmount      float64          `json:"total_amount"`
	Allocations      []AllocationLine `json:"allocations"`
	RemainingBalance float64          `json:"remaining_balance"`
	Reasoning        string           `json:"reasoning,omitempty"`
	Message          string           `json:"message,omitempty"`
	Source           string           `json:"source,omitempty"` // "ai" or "deterministic"
	GeneratedAt      time.Time        `json:"generated_at"`
}

// AllocatedTotal returns the sum of all allocation amounts.
func (r *Recommendation) AllocatedTotal() float64 {
	var total float64
	for _, line := range r.Allocations {
		total += line.Amount
	}
	return total
}

// RecommendationRequest is the input to one recommendation pass.
type RecommendationRequest struct {
	Portfolio PortfolioSnapshot `json:"portfolio"`
	Strategy  *Strategy         `json:"strategy,omitempty"`
	Amount    float64           `json:"amount"`
}
