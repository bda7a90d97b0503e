package builtins

import (
	"fmt"
	"time"

	"backcast/internal/domain"
	"backcast/internal/strategy"
)

// Compile-time interface checks.
var (
	_ strategy.Generator   = (*IntradayBounce)(nil)
	_ strategy.BarConsumer = (*IntradayBounce)(nil)
)

// IntradayBounce buys after a large drop from the day's running high. The
// high is external state fed per date through UpdateHigh (or OnBar for daily
// bars), so the generator never peeks at the bar being traded.
type IntradayBounce struct {
	threshold     float64 // e.g. -5.0 fires after a 5% drop from the high
	strengthScale float64
	highs         map[string]float64 // YYYY-MM-DD -> running high
}

// NewIntradayBounce creates an IntradayBounce generator.
func NewIntradayBounce(threshold float64) *IntradayBounce {
	return &IntradayBounce{
		threshold:     threshold,
		strengthScale: 7.0,
		highs:         make(map[string]float64),
	}
}

// Name returns "intraday_bounce".
func (g *IntradayBounce) Name() string { return "intraday_bounce" }

// UpdateHigh records an observed price for the date, keeping the running
// maximum.
func (g *IntradayBounce) UpdateHigh(date time.Time, price float64) {
	key := date.Format("2006-01-02")
	if prev, ok := g.highs[key]; !ok || price > prev {
		g.highs[key] = price
	}
}

// OnBar feeds the bar's high as that date's running high.
func (g *IntradayBounce) OnBar(bar domain.Bar) {
	g.UpdateHigh(bar.Date, bar.High)
}

// Generate emits a long signal when price has fallen below the date's
// recorded high by more than the threshold. Without a recorded high for the
// date the signal is flat.
func (g *IntradayBounce) Generate(_ []domain.Bar, price float64, date time.Time) domain.Signal {
	high, ok := g.highs[date.Format("2006-01-02")]
	if !ok || high <= 0 {
		return domain.Signal{
			StrategyID: g.Name(),
			Direction:  domain.DirectionFlat,
			Strength:   0,
			Reason:     "no intraday high recorded for date",
		}
	}

	dropPct := (price - high) / high * 100
	if dropPct >= g.threshold {
		return domain.Signal{
			StrategyID: g.Name(),
			Direction:  domain.DirectionFlat,
			Strength:   0,
			Reason:     fmt.Sprintf("intraday drop %.2f%% above threshold %.1f%%", dropPct, g.threshold),
		}
	}

	strength := min(1.0, -dropPct/g.strengthScale)

	return domain.Signal{
		StrategyID: g.Name(),
		Direction:  domain.DirectionLong,
		Strength:   strength,
		Reason:     fmt.Sprintf("intraday bounce: dropped %.2f%% from high", dropPct),
		EntryPrice: price,
		Metadata: map[string]string{
			"day_high": fmt.Sprintf("%.4f", high),
			"drop_pct": fmt.Sprintf("%.4f", dropPct),
		},
	}
}
