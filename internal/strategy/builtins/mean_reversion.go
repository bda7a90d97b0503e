// Package builtins provides the built-in signal generators that ship with
// backcast.
package builtins

import (
	"fmt"
	"time"

	"backcast/internal/domain"
	"backcast/internal/strategy"
)

// NoSkipWeekday disables the weekday-skip filter on MeanReversion.
const NoSkipWeekday = -1

// weekdayIndex maps time.Weekday to the Monday=0 … Sunday=6 convention used
// throughout strategy parameters.
func weekdayIndex(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

// Compile-time interface check.
var _ strategy.Generator = (*MeanReversion)(nil)

// MeanReversion buys after big down days, expecting a bounce. It looks at
// the most recent completed bar's open-to-close return and emits a long
// signal when that return is below the (negative) threshold, with strength
// scaled linearly by the excess drop magnitude.
type MeanReversion struct {
	threshold     float64 // e.g. -3.0 fires after a worse-than -3% day
	skipWeekday   int     // Monday=0 index to suppress, NoSkipWeekday to disable
	strengthScale float64 // drop magnitude that maps to strength 1.0
}

// NewMeanReversion creates a MeanReversion generator. skipWeekday suppresses
// signals landing on the given Monday=0 weekday index; pass NoSkipWeekday to
// trade every day.
func NewMeanReversion(threshold float64, skipWeekday int) *MeanReversion {
	return &MeanReversion{
		threshold:     threshold,
		skipWeekday:   skipWeekday,
		strengthScale: 5.0,
	}
}

// Name returns "mean_reversion".
func (g *MeanReversion) Name() string { return "mean_reversion" }

// Generate emits a long signal when the previous completed bar dropped below
// the threshold, flat otherwise.
func (g *MeanReversion) Generate(history []domain.Bar, price float64, date time.Time) domain.Signal {
	if len(history) == 0 {
		return domain.Signal{
			StrategyID: g.Name(),
			Direction:  domain.DirectionFlat,
			Strength:   0,
			Reason:     "no completed bars",
		}
	}

	prev := history[len(history)-1]
	prevReturn := prev.IntradayReturn()

	if prevReturn >= g.threshold {
		return domain.Signal{
			StrategyID: g.Name(),
			Direction:  domain.DirectionFlat,
			Strength:   0,
			Reason:     fmt.Sprintf("previous day return %.2f%% above threshold %.1f%%", prevReturn, g.threshold),
		}
	}

	if g.skipWeekday >= 0 && weekdayIndex(date) == g.skipWeekday {
		return domain.Signal{
			StrategyID: g.Name(),
			Direction:  domain.DirectionFlat,
			Strength:   0,
			Reason:     fmt.Sprintf("skipping weekday %d despite signal (prev day %.2f%%)", g.skipWeekday, prevReturn),
		}
	}

	strength := min(1.0, -prevReturn/g.strengthScale)

	return domain.Signal{
		StrategyID: g.Name(),
		Direction:  domain.DirectionLong,
		Strength:   strength,
		Reason:     fmt.Sprintf("mean reversion: prev day %.2f%% < %.1f%%", prevReturn, g.threshold),
		EntryPrice: price,
		Metadata: map[string]string{
			"prev_return": fmt.Sprintf("%.4f", prevReturn),
			"threshold":   fmt.Sprintf("%.2f", g.threshold),
			"prev_date":   prev.Date.Format("2006-01-02"),
		},
	}
}
