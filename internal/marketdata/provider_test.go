package marketdata

import (
	"testing"
	"time"

	"backcast/internal/domain"
)

func TestNormalizeDropsNonPositiveOpens(t *testing.T) {
	bars := []domain.Bar{
		{Symbol: "IBIT", Date: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), Open: 100, Close: 101},
		{Symbol: "IBIT", Date: time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC), Open: 0, Close: 101},
		{Symbol: "IBIT", Date: time.Date(2024, 3, 3, 0, 0, 0, 0, time.UTC), Open: -5, Close: 101},
	}
	got := Normalize(bars)
	if len(got) != 1 {
		t.Fatalf("got %d bars, want 1", len(got))
	}
	if got[0].Open != 100 {
		t.Errorf("surviving bar open = %v, want 100", got[0].Open)
	}
}

func TestNormalizeTruncatesToMidnightUTC(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skip("tzdata unavailable")
	}
	bars := []domain.Bar{
		{Symbol: "IBIT", Date: time.Date(2024, 3, 1, 9, 30, 0, 0, ny), Open: 100, Close: 101},
	}
	got := Normalize(bars)
	if len(got) != 1 {
		t.Fatalf("got %d bars, want 1", len(got))
	}
	want := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	if !got[0].Date.Equal(want) {
		t.Errorf("date = %v, want %v", got[0].Date, want)
	}
}

func TestNormalizeSortsAndDedups(t *testing.T) {
	d1 := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	d2 := time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)
	bars := []domain.Bar{
		{Symbol: "IBIT", Date: d2, Open: 102, Close: 103},
		{Symbol: "IBIT", Date: d1, Open: 100, Close: 101},
		{Symbol: "IBIT", Date: d2, Open: 200, Close: 201}, // duplicate date, last wins
	}
	got := Normalize(bars)
	if len(got) != 2 {
		t.Fatalf("got %d bars, want 2", len(got))
	}
	if !got[0].Date.Equal(d1) || !got[1].Date.Equal(d2) {
		t.Errorf("bars not sorted: %v, %v", got[0].Date, got[1].Date)
	}
	if got[1].Open != 200 {
		t.Errorf("duplicate resolution: open = %v, want 200", got[1].Open)
	}
}

func TestProviderNames(t *testing.T) {
	if got := NewYahooProvider().Name(); got != "yahoo" {
		t.Errorf("YahooProvider.Name() = %q", got)
	}
	if got := NewAlpacaProvider("k", "s", "").Name(); got != "alpaca" {
		t.Errorf("AlpacaProvider.Name() = %q", got)
	}
}
