// Package regime classifies recent price behavior into a coarse bull/bear
// label with a confidence tier. The assessment contextualizes sweep results;
// it never gates trading decisions directly.
package regime

import (
	"math"

	"backcast/internal/domain"
)

// Label is the regime classification.
type Label string

const (
	StrongBull Label = "strong_bull"
	Bull       Label = "bull"
	Neutral    Label = "neutral"
	Bear       Label = "bear"
	StrongBear Label = "strong_bear"
	Unknown    Label = "unknown"
)

// Confidence is the classification confidence tier.
type Confidence string

const (
	Low    Confidence = "low"
	Medium Confidence = "medium"
	High   Confidence = "high"
)

// Indicators is the per-signal breakdown behind an assessment.
type Indicators struct {
	MA20SlopePct         float64
	ConsecutiveUpDays    int
	ConsecutiveDownDays  int
	UpDaysLast10         int
	DownDaysLast10       int
	Volatility20         float64
	VolatilityRatio      float64
	VolatilityCompressed bool
	PriceVsMA20Pct       float64
	BullScore            int
	BearScore            int
	NetScore             int
}

// Assessment is a purely derived classification: identical input bars always
// yield an identical assessment.
type Assessment struct {
	Regime     Label
	Confidence Confidence
	Indicators Indicators
	Note       string // set when classification was not possible
}

// minBars is the minimum history required for classification.
const minBars = 20

// compressionRatio: recent volatility below this fraction of longer-term
// volatility counts as compressed.
const compressionRatio = 0.7

// Classify derives a regime assessment from daily bars. Fewer than 20 bars
// yields an explicit unknown/low-confidence result rather than an error.
func Classify(bars []domain.Bar) Assessment {
	if len(bars) < minBars {
		return Assessment{
			Regime:     Unknown,
			Confidence: Low,
			Note:       "insufficient data for regime detection",
		}
	}

	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}
	returns := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		if closes[i-1] != 0 {
			returns = append(returns, (closes[i]-closes[i-1])/closes[i-1]*100)
		} else {
			returns = append(returns, 0)
		}
	}

	var ind Indicators

	// 1. 20-bar moving average slope vs the prior 20-bar window.
	ma20 := mean(closes[len(closes)-20:])
	ma20Prev := ma20
	if len(closes) >= 25 {
		ma20Prev = mean(closes[len(closes)-25 : len(closes)-5])
	}
	if ma20Prev != 0 {
		ind.MA20SlopePct = (ma20 - ma20Prev) / ma20Prev * 100
	}

	// 2. Consecutive same-sign streak and up/down counts over the last 10.
	recent := returns
	if len(recent) > 10 {
		recent = recent[len(recent)-10:]
	}
	for i := len(recent) - 1; i >= 0; i-- {
		r := recent[i]
		if r > 0 {
			if ind.ConsecutiveDownDays == 0 {
				ind.ConsecutiveUpDays++
			} else {
				break
			}
		} else {
			if ind.ConsecutiveUpDays == 0 {
				ind.ConsecutiveDownDays++
			} else {
				break
			}
		}
	}
	for _, r := range recent {
		if r > 0 {
			ind.UpDaysLast10++
		}
	}
	ind.DownDaysLast10 = len(recent) - ind.UpDaysLast10

	// 3. 20-bar volatility and its ratio to the 60-bar figure.
	vol20Window := returns
	if len(vol20Window) > 20 {
		vol20Window = vol20Window[len(vol20Window)-20:]
	}
	ind.Volatility20 = stdev(vol20Window)

	ind.VolatilityRatio = 1.0
	if len(returns) >= 60 {
		vol60 := stdev(returns[len(returns)-60:])
		if vol60 > 0 {
			ind.VolatilityRatio = ind.Volatility20 / vol60
		}
		ind.VolatilityCompressed = ind.VolatilityRatio < compressionRatio
	}

	// 4. Price vs current 20-bar MA.
	if ma20 != 0 {
		ind.PriceVsMA20Pct = (closes[len(closes)-1] - ma20) / ma20 * 100
	}

	score(&ind)

	net := ind.NetScore
	var label Label
	switch {
	case net >= 4:
		label = StrongBull
	case net >= 2:
		label = Bull
	case net <= -4:
		label = StrongBear
	case net <= -2:
		label = Bear
	default:
		label = Neutral
	}

	strength := net
	if strength < 0 {
		strength = -strength
	}
	conf := Low
	switch {
	case strength >= 4:
		conf = High
	case strength >= 2:
		conf = Medium
	}

	return Assessment{Regime: label, Confidence: conf, Indicators: ind}
}

// score converts each indicator into small integer bull/bear contributions
// via fixed thresholds.
func score(ind *Indicators) {
	switch {
	case ind.MA20SlopePct > 2:
		ind.BullScore += 2
	case ind.MA20SlopePct > 0.5:
		ind.BullScore++
	case ind.MA20SlopePct < -2:
		ind.BearScore += 2
	case ind.MA20SlopePct < -0.5:
		ind.BearScore++
	}

	if ind.ConsecutiveUpDays >= 4 {
		ind.BullScore += 2
	} else if ind.ConsecutiveUpDays >= 2 {
		ind.BullScore++
	}
	if ind.ConsecutiveDownDays >= 4 {
		ind.BearScore += 2
	} else if ind.ConsecutiveDownDays >= 2 {
		ind.BearScore++
	}

	if ind.UpDaysLast10 >= 7 {
		ind.BullScore++
	} else if ind.DownDaysLast10 >= 7 {
		ind.BearScore++
	}

	if ind.PriceVsMA20Pct > 5 {
		ind.BullScore++
	} else if ind.PriceVsMA20Pct < -5 {
		ind.BearScore++
	}

	ind.NetScore = ind.BullScore - ind.BearScore
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
