package builtins

import (
	"fmt"
	"time"

	"backcast/internal/domain"
	"backcast/internal/strategy"
)

// Compile-time interface check.
var _ strategy.Generator = (*CalendarEffect)(nil)

// CalendarEffect shorts a configured weekday at the open and covers at the
// close, exploiting a persistent calendar anomaly (historically Thursday for
// the leveraged-ETF complex under test).
type CalendarEffect struct {
	weekday  int     // Monday=0 index
	strength float64 // fixed signal strength
}

// NewCalendarEffect creates a CalendarEffect generator shorting the given
// Monday=0 weekday index.
func NewCalendarEffect(weekday int) *CalendarEffect {
	return &CalendarEffect{weekday: weekday, strength: 0.7}
}

// Name returns "calendar_effect".
func (g *CalendarEffect) Name() string { return "calendar_effect" }

// Generate emits a fixed-strength short signal on the configured weekday,
// flat otherwise. History is not consulted.
func (g *CalendarEffect) Generate(_ []domain.Bar, price float64, date time.Time) domain.Signal {
	if weekdayIndex(date) != g.weekday {
		return domain.Signal{
			StrategyID: g.Name(),
			Direction:  domain.DirectionFlat,
			Strength:   0,
			Reason:     fmt.Sprintf("weekday %d is not the configured day %d", weekdayIndex(date), g.weekday),
		}
	}

	return domain.Signal{
		StrategyID: g.Name(),
		Direction:  domain.DirectionShort,
		Strength:   g.strength,
		Reason:     fmt.Sprintf("calendar effect: shorting weekday %d", g.weekday),
		EntryPrice: price,
		Metadata: map[string]string{
			"weekday": fmt.Sprintf("%d", g.weekday),
		},
	}
}
