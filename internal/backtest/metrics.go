package backtest

import (
	"math"

	"backcast/internal/domain"
)

// Metrics holds aggregate statistics derived from a trade ledger. Every
// formula defines an explicit zero fallback for degenerate inputs (no trades,
// zero variance, zero capital); callers never see NaN or Inf.
type Metrics struct {
	TotalTrades   int
	LongTrades    int
	ShortTrades   int
	WinningTrades int
	LosingTrades  int

	WinRate        float64 // percent
	TotalReturn    float64 // dollars
	TotalReturnPct float64
	AvgReturnPct   float64
	BestTradePct   float64
	WorstTradePct  float64
	MaxDrawdownPct float64

	// SharpeRatio annualizes per-trade returns by a fixed sqrt(252) factor,
	// preserved from the reference behavior. This conflates trades per year
	// with trading days per year for rules that do not trade daily; see
	// Result.AnnualizedSharpe for the trade-rate variant.
	SharpeRatio float64

	meanReturn  float64
	stdevReturn float64
}

// ComputeMetrics derives all metrics from the ledger and initial capital.
// It is a pure function: recompute whenever the ledger changes.
func ComputeMetrics(trades []domain.Trade, initialCapital float64) Metrics {
	var m Metrics
	m.TotalTrades = len(trades)
	if m.TotalTrades == 0 {
		return m
	}

	returns := make([]float64, 0, len(trades))
	for _, t := range trades {
		switch t.Direction {
		case domain.DirectionLong:
			m.LongTrades++
		case domain.DirectionShort:
			m.ShortTrades++
		}
		if t.Win() {
			m.WinningTrades++
		}
		m.TotalReturn += t.DollarPnL
		returns = append(returns, t.PercentagePnL)
	}
	m.LosingTrades = m.TotalTrades - m.WinningTrades
	m.WinRate = float64(m.WinningTrades) / float64(m.TotalTrades) * 100

	if initialCapital > 0 {
		m.TotalReturnPct = m.TotalReturn / initialCapital * 100
	}

	m.meanReturn = mean(returns)
	m.stdevReturn = stdev(returns)
	m.AvgReturnPct = m.meanReturn
	m.BestTradePct = returns[0]
	m.WorstTradePct = returns[0]
	for _, r := range returns[1:] {
		if r > m.BestTradePct {
			m.BestTradePct = r
		}
		if r < m.WorstTradePct {
			m.WorstTradePct = r
		}
	}

	m.MaxDrawdownPct = maxDrawdown(trades, initialCapital)
	m.SharpeRatio = m.sharpeWithFactor(252)

	return m
}

// sharpeWithFactor returns mean/stdev * sqrt(factor), or 0 when the stdev is
// zero or undefined.
func (m Metrics) sharpeWithFactor(factor float64) float64 {
	if m.stdevReturn <= 0 || factor <= 0 {
		return 0
	}
	return m.meanReturn / m.stdevReturn * math.Sqrt(factor)
}

// maxDrawdown walks the cumulative dollar P&L series tracking peak-to-trough,
// normalized by (initial capital + peak). A series whose peak never exceeds
// zero reports 0 rather than dividing by a non-positive denominator.
func maxDrawdown(trades []domain.Trade, initialCapital float64) float64 {
	cumulative := 0.0
	peak := 0.0
	maxDD := 0.0

	for _, t := range trades {
		cumulative += t.DollarPnL
		if cumulative > peak {
			peak = cumulative
		}
		if peak > 0 && initialCapital+peak > 0 {
			dd := (peak - cumulative) / (initialCapital + peak) * 100
			if dd > maxDD {
				maxDD = dd
			}
		}
	}
	return maxDD
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// stdev is the sample standard deviation; fewer than two samples yield 0.
func stdev(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	mu := mean(xs)
	ss := 0.0
	for _, x := range xs {
		d := x - mu
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(xs)-1))
}
