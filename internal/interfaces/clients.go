// Package interfaces defines service contracts for Skew
package interfaces

import (
	"context"

	"github.com/bobmcallan/skew/internal/models"
)

// MarketDataClient is the capability shared by both external market data
// providers. Implementations return (nil, error) for any non-2xx response
// or malformed payload; callers treat that as "no data", never as zero.
type MarketDataClient interface {
	// Name identifies the provider in logs and cached records
	Name() string

	// GetQuote retrieves a live price snapshot
	GetQuote(ctx context.Context, ticker string) (*models.Quote, error)

	// GetFundamentals retrieves valuation fundamentals; fields the
	// provider does not report are left nil
	GetFundamentals(ctx context.Context, ticker string) (*models.FundamentalData, error)

	// GetDividends retrieves raw dividend events, most recent first
	GetDividends(ctx context.Context, ticker string) ([]models.DividendEvent, error)
}

// GeminiClient provides access to the Gemini API
type GeminiClient interface {
	// GenerateContent generates AI content from a prompt
	GenerateContent(ctx context.Context, prompt string) (string, error)
}
