package memory

import (
	"context"
	"testing"
	"time"

	"github.com/bobmcallan/skew/internal/common"
	"github.com/bobmcallan/skew/internal/models"
)

func TestCache_QuoteRoundTrip(t *testing.T) {
	cache := NewCache()
	ctx := context.Background()

	quote := &models.Quote{Ticker: "BHP.AU", Price: 42.50, Source: "eodhd"}
	if err := cache.SetQuote(ctx, quote); err != nil {
		t.Fatalf("SetQuote failed: %v", err)
	}

	got, err := cache.GetQuote(ctx, "BHP.AU")
	if err != nil {
		t.Fatalf("GetQuote failed: %v", err)
	}
	if got == nil || got.Price != 42.50 {
		t.Errorf("expected cached quote, got %+v", got)
	}
}

func TestCache_MissReturnsNilNil(t *testing.T) {
	cache := NewCache()
	got, err := cache.GetQuote(context.Background(), "NOPE.AU")
	if err != nil {
		t.Fatalf("expected nil error on miss, got %v", err)
	}
	if got != nil {
		t.Errorf("expected nil quote on miss, got %+v", got)
	}
}

func TestCache_QuoteExpiresAfterTTL(t *testing.T) {
	current := time.Date(2026, 8, 15, 10, 0, 0, 0, time.UTC)
	cache := NewCacheWithClock(func() time.Time { return current })
	ctx := context.Background()

	cache.SetQuote(ctx, &models.Quote{Ticker: "BHP.AU", Price: 42.50})

	current = current.Add(common.FreshnessQuote - time.Second)
	if got, _ := cache.GetQuote(ctx, "BHP.AU"); got == nil {
		t.Fatal("expected a hit just inside the TTL")
	}

	current = current.Add(2 * time.Second)
	if got, _ := cache.GetQuote(ctx, "BHP.AU"); got != nil {
		t.Errorf("expected a miss past the TTL, got %+v", got)
	}
}

func TestCache_DividendsUseLongerTTL(t *testing.T) {
	current := time.Date(2026, 8, 15, 10, 0, 0, 0, time.UTC)
	cache := NewCacheWithClock(func() time.Time { return current })
	ctx := context.Background()

	cache.SetQuote(ctx, &models.Quote{Ticker: "X.AU", Price: 10})
	cache.SetDividendHistory(ctx, &models.DividendHistory{Ticker: "X.AU", TotalLast12Months: 1.2})

	// 30 minutes later the quote is stale but the dividend record is not
	current = current.Add(30 * time.Minute)

	if got, _ := cache.GetQuote(ctx, "X.AU"); got != nil {
		t.Errorf("expected stale quote, got %+v", got)
	}
	if got, _ := cache.GetDividendHistory(ctx, "X.AU"); got == nil {
		t.Error("expected dividend history still fresh at 30 minutes")
	}
}

func TestCache_SetOverwrites(t *testing.T) {
	cache := NewCache()
	ctx := context.Background()

	cache.SetFundamentals(ctx, &models.FundamentalData{Ticker: "BHP.AU", PERatio: models.Float64Ptr(8)})
	cache.SetFundamentals(ctx, &models.FundamentalData{Ticker: "BHP.AU", PERatio: models.Float64Ptr(9)})

	got, _ := cache.GetFundamentals(ctx, "BHP.AU")
	if got == nil || got.PERatio == nil || *got.PERatio != 9 {
		t.Errorf("expected last write to win, got %+v", got)
	}
}
