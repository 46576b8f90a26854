// Package memory provides an in-memory TTL cache. Used for tests (with a
// controllable clock) and for running without a data directory.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/bobmcallan/skew/internal/common"
	"github.com/bobmcallan/skew/internal/interfaces"
	"github.com/bobmcallan/skew/internal/models"
)

type entry struct {
	value    interface{}
	storedAt time.Time
}

// Cache is a thread-safe in-memory TTL cache.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]entry
	now     func() time.Time
}

// NewCache creates an in-memory cache using the wall clock.
func NewCache() *Cache {
	return NewCacheWithClock(time.Now)
}

// NewCacheWithClock creates an in-memory cache with an injectable clock.
func NewCacheWithClock(now func() time.Time) *Cache {
	return &Cache{
		entries: make(map[string]entry),
		now:     now,
	}
}

func (c *Cache) get(key string, ttl time.Duration) (interface{}, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	if !ok || c.now().Sub(e.storedAt) >= ttl {
		return nil, false
	}
	return e.value, true
}

func (c *Cache) set(key string, value interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry{value: value, storedAt: c.now()}
}

func (c *Cache) GetQuote(_ context.Context, ticker string) (*models.Quote, error) {
	if v, ok := c.get("quote:"+ticker, common.FreshnessQuote); ok {
		return v.(*models.Quote), nil
	}
	return nil, nil
}

func (c *Cache) SetQuote(_ context.Context, quote *models.Quote) error {
	c.set("quote:"+quote.Ticker, quote)
	return nil
}

func (c *Cache) GetFundamentals(_ context.Context, ticker string) (*models.FundamentalData, error) {
	if v, ok := c.get("fundamentals:"+ticker, common.FreshnessFundamentals); ok {
		return v.(*models.FundamentalData), nil
	}
	return nil, nil
}

func (c *Cache) SetFundamentals(_ context.Context, data *models.FundamentalData) error {
	c.set("fundamentals:"+data.Ticker, data)
	return nil
}

func (c *Cache) GetDividendHistory(_ context.Context, ticker string) (*models.DividendHistory, error) {
	if v, ok := c.get("dividends:"+ticker, common.FreshnessDividends); ok {
		return v.(*models.DividendHistory), nil
	}
	return nil, nil
}

func (c *Cache) SetDividendHistory(_ context.Context, history *models.DividendHistory) error {
	c.set("dividends:"+history.Ticker, history)
	return nil
}

func (c *Cache) Close() error {
	return nil
}

// Ensure Cache implements CacheStorage
var _ interfaces.CacheStorage = (*Cache)(nil)
