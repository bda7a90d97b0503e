// Package marketdata fetches daily OHLCV bars from external providers and
// normalizes them for storage and simulation.
package marketdata

import (
	"context"
	"sort"
	"time"

	"backcast/internal/domain"
)

// Provider fetches daily bars for a symbol within a date range.
type Provider interface {
	Name() string
	DailyBars(ctx context.Context, symbol string, start, end time.Time) ([]domain.Bar, error)
}

// Normalize prepares provider output for storage: dates are truncated to
// midnight UTC, bars with non-positive opens are dropped, and the result is
// sorted chronologically with duplicate dates collapsed (last wins).
func Normalize(bars []domain.Bar) []domain.Bar {
	byDate := make(map[time.Time]domain.Bar, len(bars))
	for _, b := range bars {
		if b.Open <= 0 {
			continue
		}
		d := b.Date.UTC()
		d = time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
		b.Date = d
		byDate[d] = b
	}

	out := make([]domain.Bar, 0, len(byDate))
	for _, b := range byDate {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}
