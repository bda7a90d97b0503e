package util

import (
	"fmt"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
)

// TradingDayFn reports whether the given date is a trading day. The
// simulation engine consults this predicate before evaluating signals, so the
// holiday table stays a swappable collaborator rather than a hardcoded
// exchange calendar.
type TradingDayFn func(date time.Time) bool

// Weekdays is the default predicate: Monday through Friday are trading days.
func Weekdays(date time.Time) bool {
	wd := date.Weekday()
	return wd != time.Saturday && wd != time.Sunday
}

// WithHolidays wraps a predicate with a closed-holiday set keyed by
// YYYY-MM-DD date strings.
func WithHolidays(base TradingDayFn, holidays map[string]bool) TradingDayFn {
	return func(date time.Time) bool {
		if !base(date) {
			return false
		}
		return !holidays[date.Format("2006-01-02")]
	}
}

// AlpacaHolidays builds a closed-holiday set for [start, end] from the Alpaca
// trading calendar: any weekday absent from the calendar response is treated
// as a market holiday.
func AlpacaHolidays(apiKey, apiSecret, baseURL string, start, end time.Time) (map[string]bool, error) {
	client := alpaca.NewClient(alpaca.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
		BaseURL:   baseURL,
	})

	calendar, err := client.GetCalendar(alpaca.GetCalendarRequest{
		Start: start,
		End:   end,
	})
	if err != nil {
		return nil, fmt.Errorf("GetCalendar: %w", err)
	}
	if len(calendar) == 0 {
		return nil, fmt.Errorf("no trading days returned from calendar")
	}

	open := make(map[string]bool, len(calendar))
	for _, day := range calendar {
		open[day.Date] = true
	}

	holidays := make(map[string]bool)
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if !Weekdays(d) {
			continue
		}
		key := d.Format("2006-01-02")
		if !open[key] {
			holidays[key] = true
		}
	}
	return holidays, nil
}
