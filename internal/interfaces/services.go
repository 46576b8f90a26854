package interfaces

import (
	"context"

	"github.com/bobmcallan/skew/internal/models"
)

// MarketDataService fuses the primary and secondary providers behind the
// shared cache. A nil result with a nil error means neither source had
// data for the ticker; callers must exclude it from consideration.
type MarketDataService interface {
	// GetQuote returns the freshest available quote for a ticker
	GetQuote(ctx context.Context, ticker string) (*models.Quote, error)

	// GetFundamentals returns fundamentals fused field-by-field from
	// both providers
	GetFundamentals(ctx context.Context, ticker string) (*models.FundamentalData, error)

	// GetDividendHistory returns the analyzed trailing-12-month
	// dividend record
	GetDividendHistory(ctx context.Context, ticker string) (*models.DividendHistory, error)

	// CollectCandidateData warms the cache for a candidate set with
	// bounded concurrent fan-out
	CollectCandidateData(ctx context.Context, tickers []string) *models.MarketSnapshot
}

// CriteriaService resolves effective strategy criteria for a request
type CriteriaService interface {
	// Resolve merges the strategy's declared criteria over the system
	// defaults; a nil strategy resolves to the defaults in full
	Resolve(ctx context.Context, strategy *models.Strategy) (models.StrategyCriteria, error)

	// Warnings reports questionable criteria values without blocking
	Warnings(criteria models.StrategyCriteria) []models.CriteriaWarning
}

// RecommendationService produces purchase recommendations
type RecommendationService interface {
	// Recommend runs the full pipeline for one request
	Recommend(ctx context.Context, req *models.RecommendationRequest) (*models.Recommendation, error)
}
