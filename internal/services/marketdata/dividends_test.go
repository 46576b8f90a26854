package marketdata

import (
	"testing"
	"time"

	"github.com/bobmcallan/skew/internal/models"
)

func monthlyEvents(now time.Time, count int, value float64) []models.DividendEvent {
	events := make([]models.DividendEvent, 0, count)
	for i := 0; i < count; i++ {
		events = append(events, models.DividendEvent{
			Date:  now.AddDate(0, -i, -5),
			Value: value,
		})
	}
	return events
}

func TestAnalyzeDividends_MonthlyPayer(t *testing.T) {
	now := time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC)
	history := AnalyzeDividends("MLT.AU", monthlyEvents(now, 12, 0.10), now)

	if len(history.Dividends) != 12 {
		t.Fatalf("expected 12 events in the window, got %d", len(history.Dividends))
	}
	if history.TotalLast12Months != 1.2 {
		t.Errorf("expected total 1.20, got %.4f", history.TotalLast12Months)
	}
	if history.AverageMonthly != 0.1 {
		t.Errorf("expected average 0.10, got %.4f", history.AverageMonthly)
	}
	if history.RegularityScore != 1.0 {
		t.Errorf("expected regularity 1.0, got %.1f", history.RegularityScore)
	}
}

func TestAnalyzeDividends_WindowExcludesOldAndFuture(t *testing.T) {
	now := time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC)
	events := []models.DividendEvent{
		{Date: now.AddDate(0, 0, -30), Value: 0.50},
		{Date: now.AddDate(0, 0, -400), Value: 9.99}, // outside the trailing year
		{Date: now.AddDate(0, 0, 10), Value: 9.99},   // declared future payment
	}

	history := AnalyzeDividends("QTR.AU", events, now)
	if len(history.Dividends) != 1 {
		t.Fatalf("expected 1 event in the window, got %d", len(history.Dividends))
	}
	if history.TotalLast12Months != 0.50 {
		t.Errorf("expected total 0.50, got %.2f", history.TotalLast12Months)
	}
}

func TestAnalyzeDividends_RegularitySteps(t *testing.T) {
	now := time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC)

	cases := []struct {
		payments int
		want     float64
	}{
		{12, 1.0},
		{13, 1.0},
		{6, 0.8},
		{11, 0.8},
		{4, 0.6},
		{5, 0.6},
		{3, 0.4},
		{1, 0.4},
		{0, 0.4},
	}

	for _, tc := range cases {
		var events []models.DividendEvent
		for i := 0; i < tc.payments; i++ {
			events = append(events, models.DividendEvent{
				Date:  now.AddDate(0, 0, -(i*25 + 1)),
				Value: 0.05,
			})
		}
		history := AnalyzeDividends("X.AU", events, now)
		if history.RegularityScore != tc.want {
			t.Errorf("%d payments: expected %.1f, got %.1f", tc.payments, tc.want, history.RegularityScore)
		}
	}
}

func TestAnalyzeDividends_NoEvents(t *testing.T) {
	now := time.Now()
	history := AnalyzeDividends("NEW.AU", nil, now)

	if history == nil {
		t.Fatal("expected a history record for zero events")
	}
	if history.TotalLast12Months != 0 || history.AverageMonthly != 0 {
		t.Errorf("expected zero totals, got %+v", history)
	}
	if history.RegularityScore != 0.4 {
		t.Errorf("expected floor regularity 0.4, got %.1f", history.RegularityScore)
	}
}
