// Package common provides shared utilities for Skew
package common

import "time"

// Freshness TTLs for cached market data components
const (
	FreshnessQuote        = 5 * time.Minute
	FreshnessFundamentals = 5 * time.Minute
	FreshnessDividends    = 1 * time.Hour
)

// IsFresh returns true if the given timestamp is within the TTL
func IsFresh(updated time.Time, ttl time.Duration) bool {
	if updated.IsZero() {
		return false
	}
	return time.Since(updated) < ttl
}
