package interfaces

import (
	"context"

	"github.com/bobmcallan/skew/internal/models"
)

// CacheStorage is the shared TTL cache for fused market data.
// Reads are best-effort: a miss (absent or stale entry) returns
// (nil, nil) and the caller goes to the sources. Writes are idempotent
// recomputations of the same key, so last-writer-wins is acceptable and
// no locking discipline is imposed on implementations.
type CacheStorage interface {
	// GetQuote returns a cached quote, or nil on miss/stale
	GetQuote(ctx context.Context, ticker string) (*models.Quote, error)

	// SetQuote caches a quote under the quote TTL
	SetQuote(ctx context.Context, quote *models.Quote) error

	// GetFundamentals returns cached fundamentals, or nil on miss/stale
	GetFundamentals(ctx context.Context, ticker string) (*models.FundamentalData, error)

	// SetFundamentals caches fundamentals under the fundamentals TTL
	SetFundamentals(ctx context.Context, data *models.FundamentalData) error

	// GetDividendHistory returns cached history, or nil on miss/stale
	GetDividendHistory(ctx context.Context, ticker string) (*models.DividendHistory, error)

	// SetDividendHistory caches history under the dividend TTL
	SetDividendHistory(ctx context.Context, history *models.DividendHistory) error

	// Close releases the underlying store
	Close() error
}
