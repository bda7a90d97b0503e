package regime

import (
	"reflect"
	"testing"
	"time"

	"backcast/internal/domain"
)

func barsFromCloses(closes []float64) []domain.Bar {
	start := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	bars := make([]domain.Bar, len(closes))
	for i, c := range closes {
		bars[i] = domain.Bar{
			Symbol: "IBIT",
			Date:   start.AddDate(0, 0, i),
			Open:   c,
			High:   c + 1,
			Low:    c - 1,
			Close:  c,
		}
	}
	return bars
}

func ramp(n int, start, step float64) []float64 {
	xs := make([]float64, n)
	for i := range xs {
		xs[i] = start + float64(i)*step
	}
	return xs
}

func TestClassifyInsufficientData(t *testing.T) {
	a := Classify(barsFromCloses(ramp(10, 100, 1)))
	if a.Regime != Unknown || a.Confidence != Low {
		t.Errorf("10 bars: %+v", a)
	}
	if a.Note == "" {
		t.Error("insufficient data should carry a note")
	}
}

func TestClassifyStrongBull(t *testing.T) {
	// Thirty straight up days: positive MA slope, long up streak, price well
	// above the moving average.
	a := Classify(barsFromCloses(ramp(30, 100, 1)))

	if a.Regime != StrongBull {
		t.Errorf("regime = %q, want strong_bull (net %d)", a.Regime, a.Indicators.NetScore)
	}
	if a.Confidence != High {
		t.Errorf("confidence = %q, want high", a.Confidence)
	}
	if a.Indicators.MA20SlopePct <= 2 {
		t.Errorf("MA20 slope = %v, expected > 2", a.Indicators.MA20SlopePct)
	}
	if a.Indicators.ConsecutiveUpDays < 4 {
		t.Errorf("up streak = %d", a.Indicators.ConsecutiveUpDays)
	}
	if a.Indicators.UpDaysLast10 != 10 {
		t.Errorf("up days last 10 = %d", a.Indicators.UpDaysLast10)
	}
}

func TestClassifyStrongBear(t *testing.T) {
	a := Classify(barsFromCloses(ramp(30, 200, -1)))

	if a.Regime != StrongBear {
		t.Errorf("regime = %q, want strong_bear (net %d)", a.Regime, a.Indicators.NetScore)
	}
	if a.Confidence != High {
		t.Errorf("confidence = %q, want high", a.Confidence)
	}
	if a.Indicators.DownDaysLast10 != 10 {
		t.Errorf("down days last 10 = %d", a.Indicators.DownDaysLast10)
	}
}

func TestClassifyNeutral(t *testing.T) {
	// Alternating up/down around 100: no slope, no streak, balanced days.
	closes := make([]float64, 30)
	for i := range closes {
		if i%2 == 0 {
			closes[i] = 100
		} else {
			closes[i] = 101
		}
	}
	a := Classify(barsFromCloses(closes))

	if a.Regime != Neutral {
		t.Errorf("regime = %q, want neutral (net %d)", a.Regime, a.Indicators.NetScore)
	}
	if a.Confidence != Low {
		t.Errorf("confidence = %q, want low", a.Confidence)
	}
}

func TestClassifyDeterministic(t *testing.T) {
	bars := barsFromCloses(ramp(40, 100, 0.5))

	first := Classify(bars)
	second := Classify(bars)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("identical input produced different assessments:\n%+v\n%+v", first, second)
	}
}

func TestClassifyVolatilityCompression(t *testing.T) {
	// 50 noisy days followed by 20 quiet ones: recent volatility collapses
	// relative to the 60-day figure.
	closes := make([]float64, 70)
	price := 100.0
	for i := range closes {
		if i < 50 {
			if i%2 == 0 {
				price *= 1.03
			} else {
				price *= 0.97
			}
		} else {
			if i%2 == 0 {
				price *= 1.001
			} else {
				price *= 0.999
			}
		}
		closes[i] = price
	}
	a := Classify(barsFromCloses(closes))

	if !a.Indicators.VolatilityCompressed {
		t.Errorf("expected compression, ratio = %v", a.Indicators.VolatilityRatio)
	}
	if a.Indicators.VolatilityRatio >= 0.7 {
		t.Errorf("ratio = %v, want < 0.7", a.Indicators.VolatilityRatio)
	}
}

func TestClassifyShortHistorySkipsVolatilityRatio(t *testing.T) {
	a := Classify(barsFromCloses(ramp(25, 100, 1)))
	if a.Indicators.VolatilityRatio != 1.0 {
		t.Errorf("under 60 returns the ratio should stay 1.0, got %v", a.Indicators.VolatilityRatio)
	}
	if a.Indicators.VolatilityCompressed {
		t.Error("compression flag requires the 60-day window")
	}
}
