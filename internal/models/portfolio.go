package models

// Holding is a position in the caller's portfolio.
// Quantity and AveragePrice are supplied by the portfolio read model;
// quantity × average_price is the cost basis and is always >= 0.
type Holding struct {
	Ticker       string  `json:"ticker"`
	Quantity     float64 `json:"quantity"`
	AveragePrice float64 `json:"average_price"`
}

// CostBasis returns the total acquisition cost of the holding.
func (h *Holding) CostBasis() float64 {
	return h.Quantity * h.AveragePrice
}

// PortfolioSnapshot is the read-model view of a portfolio used as
// recommendation input. TotalValue is the caller-supplied market value of
// the whole portfolio; when zero it is derived from holdings at cost.
type PortfolioSnapshot struct {
	Name       string    `json:"name,omitempty"`
	Holdings   []Holding `json:"holdings"`
	TotalValue float64   `json:"total_value"`
}

// EffectiveTotalValue returns TotalValue, or the cost-basis sum when the
// caller did not supply a market total.
func (p *PortfolioSnapshot) EffectiveTotalValue() float64 {
	if p.TotalValue > 0 {
		return p.TotalValue
	}
	var total float64
	for i := range p.Holdings {
		total += p.Holdings[i].CostBasis()
	}
	return total
}

// Holding returns the holding for a ticker, or nil when not held.
func (p *PortfolioSnapshot) Holding(ticker string) *Holding {
	for i := range p.Holdings {
		if p.Holdings[i].Ticker == ticker {
			return &p.Holdings[i]
		}
	}
	return nil
}
