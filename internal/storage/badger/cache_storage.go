package badger

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/timshannon/badgerhold/v4"

	"github.com/bobmcallan/skew/internal/common"
	"github.com/bobmcallan/skew/internal/interfaces"
	"github.com/bobmcallan/skew/internal/models"
)

// Cache entry kinds; the cache key is kind + ":" + ticker.
const (
	kindQuote        = "quote"
	kindFundamentals = "fundamentals"
	kindDividends    = "dividends"
)

// CacheEntry is one cached market data record.
type CacheEntry struct {
	Key      string `badgerhold:"key"`
	Kind     string
	Value    []byte
	StoredAt time.Time
}

type cacheStorage struct {
	store  *Store
	logger *common.Logger
	now    func() time.Time // injectable clock for testing
}

// NewCacheStorage creates a CacheStorage backed by BadgerHold.
func NewCacheStorage(store *Store, logger *common.Logger) interfaces.CacheStorage {
	return &cacheStorage{store: store, logger: logger, now: time.Now}
}

func cacheKey(kind, ticker string) string {
	return kind + ":" + ticker
}

// get loads a fresh entry into target; a miss or stale entry returns false.
func (s *cacheStorage) get(kind, ticker string, ttl time.Duration, target interface{}) (bool, error) {
	var entry CacheEntry
	err := s.store.db.Get(cacheKey(kind, ticker), &entry)
	if err != nil {
		if err == badgerhold.ErrNotFound {
			return false, nil
		}
		return false, fmt.Errorf("failed to get cache entry '%s': %w", cacheKey(kind, ticker), err)
	}

	if s.now().Sub(entry.StoredAt) >= ttl {
		return false, nil
	}

	if err := json.Unmarshal(entry.Value, target); err != nil {
		// Corrupt entry: treat as a miss, the caller will rewrite it
		s.logger.Warn().Str("key", entry.Key).Err(err).Msg("Discarding unreadable cache entry")
		return false, nil
	}

	return true, nil
}

func (s *cacheStorage) set(kind, ticker string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache entry: %w", err)
	}
	entry := CacheEntry{
		Key:      cacheKey(kind, ticker),
		Kind:     kind,
		Value:    data,
		StoredAt: s.now(),
	}
	if err := s.store.db.Upsert(entry.Key, &entry); err != nil {
		return fmt.Errorf("failed to set cache entry '%s': %w", entry.Key, err)
	}
	return nil
}

func (s *cacheStorage) GetQuote(_ context.Context, ticker string) (*models.Quote, error) {
	var quote models.Quote
	ok, err := s.get(kindQuote, ticker, common.FreshnessQuote, &quote)
	if err != nil || !ok {
		return nil, err
	}
	return &quote, nil
}

func (s *cacheStorage) SetQuote(_ context.Context, quote *models.Quote) error {
	return s.set(kindQuote, quote.Ticker, quote)
}

func (s *cacheStorage) GetFundamentals(_ context.Context, ticker string) (*models.FundamentalData, error) {
	var data models.FundamentalData
	ok, err := s.get(kindFundamentals, ticker, common.FreshnessFundamentals, &data)
	if err != nil || !ok {
		return nil, err
	}
	return &data, nil
}

func (s *cacheStorage) SetFundamentals(_ context.Context, data *models.FundamentalData) error {
	return s.set(kindFundamentals, data.Ticker, data)
}

func (s *cacheStorage) GetDividendHistory(_ context.Context, ticker string) (*models.DividendHistory, error) {
	var history models.DividendHistory
	ok, err := s.get(kindDividends, ticker, common.FreshnessDividends, &history)
	if err != nil || !ok {
		return nil, err
	}
	return &history, nil
}

func (s *cacheStorage) SetDividendHistory(_ context.Context, history *models.DividendHistory) error {
	return s.set(kindDividends, history.Ticker, history)
}

func (s *cacheStorage) Close() error {
	return s.store.Close()
}

// Ensure cacheStorage implements CacheStorage
var _ interfaces.CacheStorage = (*cacheStorage)(nil)
