package backtest

import (
	"math"
	"testing"

	"backcast/internal/domain"
)

func TestComputeMetricsEmpty(t *testing.T) {
	m := ComputeMetrics(nil, 10000)

	if m.TotalTrades != 0 || m.WinRate != 0 || m.TotalReturnPct != 0 ||
		m.SharpeRatio != 0 || m.MaxDrawdownPct != 0 {
		t.Errorf("empty ledger must zero everything: %+v", m)
	}
	if math.IsNaN(m.AvgReturnPct) || math.IsNaN(m.SharpeRatio) {
		t.Error("metrics must never be NaN")
	}
}

func TestComputeMetricsCounts(t *testing.T) {
	trades := []domain.Trade{
		{Direction: domain.DirectionLong, DollarPnL: 100, PercentagePnL: 1.0},
		{Direction: domain.DirectionLong, DollarPnL: -50, PercentagePnL: -0.5},
		{Direction: domain.DirectionShort, DollarPnL: 200, PercentagePnL: 2.0},
		{Direction: domain.DirectionLong, DollarPnL: -300, PercentagePnL: -3.0},
	}
	m := ComputeMetrics(trades, 10000)

	if m.TotalTrades != 4 || m.LongTrades != 3 || m.ShortTrades != 1 {
		t.Errorf("counts: %+v", m)
	}
	if m.WinningTrades != 2 || m.LosingTrades != 2 {
		t.Errorf("win/loss: %d/%d", m.WinningTrades, m.LosingTrades)
	}
	if m.WinRate != 50 {
		t.Errorf("WinRate = %v, want 50", m.WinRate)
	}
	if m.TotalReturn != -50 {
		t.Errorf("TotalReturn = %v, want -50", m.TotalReturn)
	}
	if want := -0.5; math.Abs(m.TotalReturnPct-want) > 1e-9 {
		t.Errorf("TotalReturnPct = %v, want %v", m.TotalReturnPct, want)
	}
	if m.BestTradePct != 2.0 || m.WorstTradePct != -3.0 {
		t.Errorf("best/worst: %v/%v", m.BestTradePct, m.WorstTradePct)
	}
}

func TestComputeMetricsSharpe(t *testing.T) {
	trades := []domain.Trade{
		{PercentagePnL: 1},
		{PercentagePnL: 2},
		{PercentagePnL: 3},
	}
	m := ComputeMetrics(trades, 10000)

	// mean 2, sample stdev 1, fixed sqrt(252) annualization.
	want := 2 * math.Sqrt(252)
	if math.Abs(m.SharpeRatio-want) > 1e-9 {
		t.Errorf("SharpeRatio = %v, want %v", m.SharpeRatio, want)
	}
}

func TestComputeMetricsZeroVariance(t *testing.T) {
	trades := []domain.Trade{
		{PercentagePnL: 1},
		{PercentagePnL: 1},
	}
	m := ComputeMetrics(trades, 10000)
	if m.SharpeRatio != 0 {
		t.Errorf("zero-variance Sharpe = %v, want 0", m.SharpeRatio)
	}
}

func TestComputeMetricsSingleTrade(t *testing.T) {
	m := ComputeMetrics([]domain.Trade{{PercentagePnL: 2, DollarPnL: 200}}, 10000)
	if m.SharpeRatio != 0 {
		t.Errorf("single-trade Sharpe = %v, want 0 (stdev undefined)", m.SharpeRatio)
	}
	if m.BestTradePct != 2 || m.WorstTradePct != 2 {
		t.Errorf("best/worst of one trade: %v/%v", m.BestTradePct, m.WorstTradePct)
	}
}

func TestMaxDrawdown(t *testing.T) {
	trades := []domain.Trade{
		{DollarPnL: 100},
		{DollarPnL: -50},
		{DollarPnL: 200},
		{DollarPnL: -300},
	}
	m := ComputeMetrics(trades, 10000)

	// Cumulative: 100, 50, 250, -50. Peak 250; trough -50 after the peak.
	want := (250.0 - (-50.0)) / (10000.0 + 250.0) * 100
	if math.Abs(m.MaxDrawdownPct-want) > 1e-9 {
		t.Errorf("MaxDrawdownPct = %v, want %v", m.MaxDrawdownPct, want)
	}
}

func TestMaxDrawdownNeverPositivePeak(t *testing.T) {
	trades := []domain.Trade{
		{DollarPnL: -100},
		{DollarPnL: -200},
	}
	m := ComputeMetrics(trades, 10000)
	if m.MaxDrawdownPct != 0 {
		t.Errorf("non-positive peak should report 0, got %v", m.MaxDrawdownPct)
	}
}
