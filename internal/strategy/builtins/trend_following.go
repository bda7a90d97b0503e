package builtins

import (
	"fmt"
	"time"

	"backcast/internal/domain"
	"backcast/internal/strategy"
)

// maxLookback caps how much history the trend generator examines.
const maxLookback = 100

// Compile-time interface check.
var _ strategy.Generator = (*TrendFollowing)(nil)

// TrendFollowing trades in the direction of the prevailing trend using two
// simple moving averages over closing prices.
type TrendFollowing struct {
	fastPeriod int
	slowPeriod int
}

// NewTrendFollowing creates a TrendFollowing generator with the given fast
// and slow SMA windows.
func NewTrendFollowing(fast, slow int) *TrendFollowing {
	return &TrendFollowing{fastPeriod: fast, slowPeriod: slow}
}

// Name returns "trend_following".
func (g *TrendFollowing) Name() string { return "trend_following" }

func sma(bars []domain.Bar, period int) (float64, bool) {
	if len(bars) < period {
		return 0, false
	}
	sum := 0.0
	for _, b := range bars[len(bars)-period:] {
		sum += b.Close
	}
	return sum / float64(period), true
}

// Generate emits long when price > fast SMA > slow SMA, short on the fully
// inverted ordering, flat on mixed ordering or insufficient history.
func (g *TrendFollowing) Generate(history []domain.Bar, price float64, _ time.Time) domain.Signal {
	if len(history) > maxLookback {
		history = history[len(history)-maxLookback:]
	}

	fastSMA, okFast := sma(history, g.fastPeriod)
	slowSMA, okSlow := sma(history, g.slowPeriod)
	if !okFast || !okSlow {
		return domain.Signal{
			StrategyID: g.Name(),
			Direction:  domain.DirectionFlat,
			Strength:   0,
			Reason:     "insufficient data for MA calculation",
		}
	}

	aboveFast := price > fastSMA
	aboveSlow := price > slowSMA
	fastAboveSlow := fastSMA > slowSMA

	switch {
	case aboveFast && aboveSlow && fastAboveSlow:
		return domain.Signal{
			StrategyID: g.Name(),
			Direction:  domain.DirectionLong,
			Strength:   0.6,
			Reason:     fmt.Sprintf("uptrend: price > SMA%d > SMA%d", g.fastPeriod, g.slowPeriod),
			EntryPrice: price,
			Metadata: map[string]string{
				"fast_sma":      fmt.Sprintf("%.4f", fastSMA),
				"slow_sma":      fmt.Sprintf("%.4f", slowSMA),
				"price_vs_fast": fmt.Sprintf("%.4f", (price/fastSMA-1)*100),
				"price_vs_slow": fmt.Sprintf("%.4f", (price/slowSMA-1)*100),
			},
		}
	case !aboveFast && !aboveSlow && !fastAboveSlow:
		return domain.Signal{
			StrategyID: g.Name(),
			Direction:  domain.DirectionShort,
			Strength:   0.6,
			Reason:     fmt.Sprintf("downtrend: price < SMA%d < SMA%d", g.fastPeriod, g.slowPeriod),
			EntryPrice: price,
			Metadata: map[string]string{
				"fast_sma": fmt.Sprintf("%.4f", fastSMA),
				"slow_sma": fmt.Sprintf("%.4f", slowSMA),
			},
		}
	default:
		return domain.Signal{
			StrategyID: g.Name(),
			Direction:  domain.DirectionFlat,
			Strength:   0,
			Reason:     "mixed signals, no clear trend",
		}
	}
}
