package models

// StrategyCriteria is the fully-resolved, immutable criteria object used
// for one recommendation request. Produced by merging a strategy's
// declared criteria over the system defaults; declared values win.
//
// Yields and multipliers are fractional (0.06 = 6%); allocation and
// concentration values are percentages of portfolio value.
type StrategyCriteria struct {
	DividendYieldMin       float64  `json:"dividend_yield_min"`
	DividendYieldMax       float64  `json:"dividend_yield_max"`
	PERatioMax             float64  `json:"pe_ratio_max"`
	PriceToBookMax         float64  `json:"price_to_book_max"`
	AllowedSectors         []string `json:"allowed_sectors,omitempty"`
	ExcludedSectors        []string `json:"excluded_sectors,omitempty"`
	MaxConcentrationPct    float64  `json:"max_concentration_per_asset"`
	MinDiversification     int      `json:"min_diversification"`
	PriceCeilingMultiplier float64  `json:"price_ceiling_multiplier"`
}

// DeclaredCriteria is the subset of criteria a strategy declares.
// Nil pointers (and nil slices) mean "not declared, use the default".
type DeclaredCriteria struct {
	DividendYieldMin       *float64 `json:"dividend_yield_min,omitempty"`
	DividendYieldMax       *float64 `json:"dividend_yield_max,omitempty"`
	PERatioMax             *float64 `json:"pe_ratio_max,omitempty"`
	PriceToBookMax         *float64 `json:"price_to_book_max,omitempty"`
	AllowedSectors         []string `json:"allowed_sectors,omitempty"`
	ExcludedSectors        []string `json:"excluded_sectors,omitempty"`
	MaxConcentrationPct    *float64 `json:"max_concentration_per_asset,omitempty"`
	MinDiversification     *int     `json:"min_diversification,omitempty"`
	PriceCeilingMultiplier *float64 `json:"price_ceiling_multiplier,omitempty"`
}

// Strategy is an investment strategy as stored by the (external) strategy
// template collaborator: a name plus its declared criteria subset.
type Strategy struct {
	Name     string           `json:"name"`
	Criteria DeclaredCriteria `json:"criteria"`
}

// MergeOver returns the defaults with every declared value applied on top.
func (d *DeclaredCriteria) MergeOver(defaults StrategyCriteria) StrategyCriteria {
	resolved := defaults
	if d == nil {
		return resolved
	}
	if d.DividendYieldMin != nil {
		resolved.DividendYieldMin = *d.DividendYieldMin
	}
	if d.DividendYieldMax != nil {
		resolved.DividendYieldMax = *d.DividendYieldMax
	}
	if d.PERatioMax != nil {
		resolved.PERatioMax = *d.PERatioMax
	}
	if d.PriceToBookMax != nil {
		resolved.PriceToBookMax = *d.PriceToBookMax
	}
	if d.AllowedSectors != nil {
		resolved.AllowedSectors = d.AllowedSectors
	}
	if d.ExcludedSectors != nil {
		resolved.ExcludedSectors = d.ExcludedSectors
	}
	if d.MaxConcentrationPct != nil {
		resolved.MaxConcentrationPct = *d.MaxConcentrationPct
	}
	if d.MinDiversification != nil {
		resolved.MinDiversification = *d.MinDiversification
	}
	if d.PriceCeilingMultiplier != nil {
		resolved.PriceCeilingMultiplier = *d.PriceCeilingMultiplier
	}
	return resolved
}

// CriteriaWarning flags a questionable or contradictory criteria value.
// Advisory only; warnings never block resolution.
type CriteriaWarning struct {
	Severity string `json:"severity"` // high, medium, low
	Field    string `json:"field"`
	Message  string `json:"message"`
}
