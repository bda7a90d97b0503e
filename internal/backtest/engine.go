// Package backtest replays historical daily bars through a signal rule and
// produces a trade ledger with aggregate risk/return metrics.
package backtest

import (
	"fmt"
	"log/slog"
	"time"

	"backcast/internal/domain"
	"backcast/internal/util"
)

// Rule evaluates a signal for one day. history holds completed bars strictly
// before date; price is the day's open. Rules never see the current bar's
// high/low/close, which keeps the simulation free of look-ahead bias.
type Rule func(history []domain.Bar, price float64, date time.Time) domain.Signal

// AnomalyFunc receives data-quality anomalies detected during a run, e.g.
// zero trades in a window that contained qualifying dip days. Injected so the
// engine stays side-effect-free.
type AnomalyFunc func(metric, actual, expected string)

// Engine simulates one trade per triggering day: enter at the open, exit at
// the close, slippage applied symmetrically against the trade on both legs.
type Engine struct {
	InitialCapital  float64
	Commission      float64 // per leg, charged twice per round trip
	SlippagePct     float64 // e.g. 0.02 = 2 basis points per leg
	PositionSizePct float64 // fraction of capital deployed; 0 means full capital
	IsTradingDay    util.TradingDayFn
	OnAnomaly       AnomalyFunc
	Log             *slog.Logger
}

// Result is the outcome of one backtest run.
type Result struct {
	Name           string
	StrategyID     string
	StartDate      time.Time
	EndDate        time.Time
	InitialCapital float64
	FinalCapital   float64
	Trades         []domain.Trade
	Metrics        Metrics
	BuyHoldPct     float64
}

// dipThreshold marks a day as a "qualifying dip" for the zero-trade anomaly
// check, matching the mean-reversion default.
const dipThreshold = -2.0

// Run replays bars through rule and returns the resulting ledger and
// metrics. Capital compounds multiplicatively after every trade; the
// buy-and-hold benchmark spans the full window regardless of signal
// activity. An empty or single-bar input yields an empty, zero-metric
// result rather than an error.
func (e *Engine) Run(bars []domain.Bar, rule Rule, name string) Result {
	res := Result{
		Name:           name,
		InitialCapital: e.InitialCapital,
		FinalCapital:   e.InitialCapital,
	}
	if len(bars) == 0 {
		res.Metrics = ComputeMetrics(nil, e.InitialCapital)
		return res
	}

	res.StartDate = bars[0].Date
	res.EndDate = bars[len(bars)-1].Date
	if first := bars[0].Open; first > 0 {
		res.BuyHoldPct = (bars[len(bars)-1].Close - first) / first * 100
	}

	isTradingDay := e.IsTradingDay
	if isTradingDay == nil {
		isTradingDay = util.Weekdays
	}

	posFrac := e.PositionSizePct
	if posFrac <= 0 || posFrac > 1 {
		posFrac = 1
	}

	capital := e.InitialCapital
	slip := e.SlippagePct / 100

	for i := 1; i < len(bars); i++ {
		bar := bars[i]
		if !isTradingDay(bar.Date) {
			continue
		}

		sig := rule(bars[:i], bar.Open, bar.Date)
		if sig.Flat() {
			continue
		}
		if res.StrategyID == "" {
			res.StrategyID = sig.StrategyID
		}

		var entry, exit float64
		switch sig.Direction {
		case domain.DirectionLong:
			entry = bar.Open * (1 + slip)
			exit = bar.Close * (1 - slip)
		case domain.DirectionShort:
			entry = bar.Open * (1 - slip)
			exit = bar.Close * (1 + slip)
		}
		if entry <= 0 {
			continue
		}

		shares := int(capital * posFrac / entry)
		if shares <= 0 {
			// Not an error: capital simply cannot afford one share today.
			continue
		}

		sign := sig.Direction.Sign()
		dollarPnL := (exit-entry)*float64(shares)*sign - 2*e.Commission
		pctPnL := dollarPnL / (entry * float64(shares)) * 100

		res.Trades = append(res.Trades, domain.Trade{
			Date:          bar.Date,
			Direction:     sig.Direction,
			StrategyID:    sig.StrategyID,
			EntryPrice:    entry,
			ExitPrice:     exit,
			Shares:        shares,
			DollarPnL:     dollarPnL,
			PercentagePnL: pctPnL,
			Reason:        sig.Reason,
			Metadata:      sig.Metadata,
		})

		// Exact multiplicative compounding; additive drift would diverge
		// over multi-period leveraged sequences.
		capital *= 1 + pctPnL/100
	}

	res.FinalCapital = capital
	res.Metrics = ComputeMetrics(res.Trades, e.InitialCapital)

	e.checkAnomalies(bars, res)

	if e.Log != nil {
		e.Log.Debug("backtest complete",
			"name", name,
			"trades", res.Metrics.TotalTrades,
			"return_pct", res.Metrics.TotalReturnPct,
			"buy_hold_pct", res.BuyHoldPct,
		)
	}
	return res
}

// checkAnomalies flags runs that produced zero trades even though the window
// contained dip days that should plausibly have triggered.
func (e *Engine) checkAnomalies(bars []domain.Bar, res Result) {
	if e.OnAnomaly == nil || len(res.Trades) > 0 || len(bars) <= 30 {
		return
	}
	dips := 0
	for _, b := range bars {
		if b.IntradayReturn() < dipThreshold {
			dips++
		}
	}
	if dips > 0 {
		e.OnAnomaly("backtest_trades", "0", fmt.Sprintf(">0 with %d dip days in window", dips))
	}
}

// AnnualizedSharpe annualizes the per-trade Sharpe by the observed trade rate
// instead of the fixed 252 convention. It is reported alongside the original
// figure, never in place of it.
func (r Result) AnnualizedSharpe() float64 {
	n := len(r.Trades)
	if n < 2 {
		return 0
	}
	days := r.EndDate.Sub(r.StartDate).Hours() / 24
	if days <= 0 {
		return 0
	}
	tradesPerYear := float64(n) / days * 365
	return r.Metrics.sharpeWithFactor(tradesPerYear)
}
