// Package domain defines the core data types shared across the backcast
// system: daily price bars, strategy signals, and simulated trades.
package domain

import "time"

// Bar is one trading day's OHLCV data for a single instrument. Bars are
// immutable once ingested; Open must be positive since open-relative returns
// are computed throughout.
type Bar struct {
	Symbol string
	Date   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume int64
}

// IntradayReturn returns the open-to-close return in percent.
func (b Bar) IntradayReturn() float64 {
	if b.Open <= 0 {
		return 0
	}
	return (b.Close - b.Open) / b.Open * 100
}

// RangePct returns the high-low range as a percentage of the open.
func (b Bar) RangePct() float64 {
	if b.Open <= 0 {
		return 0
	}
	return (b.High - b.Low) / b.Open * 100
}

// Direction is the side of a signal or trade.
type Direction string

const (
	DirectionLong  Direction = "long"
	DirectionShort Direction = "short"
	DirectionFlat  Direction = "flat"
)

// Sign returns +1 for long, -1 for short, and 0 for flat.
func (d Direction) Sign() float64 {
	switch d {
	case DirectionLong:
		return 1
	case DirectionShort:
		return -1
	default:
		return 0
	}
}

// Signal is a generator's directional recommendation for a single day.
// A Strength of 0 with DirectionFlat means "no trade", which is distinct
// from a confident flat call (Strength > 0).
type Signal struct {
	StrategyID string
	Direction  Direction
	Strength   float64 // 0..1 confidence / size multiplier
	Reason     string
	EntryPrice float64 // 0 when not set
	StopLoss   float64
	TakeProfit float64
	Metadata   map[string]string
}

// Flat reports whether the signal carries no trade.
func (s Signal) Flat() bool {
	return s.Direction == DirectionFlat || s.Direction == ""
}

// Trade is one simulated round trip (entry at open, exit at close) produced
// by the simulation engine. Entry and exit prices already include modeled
// slippage; DollarPnL is net of commission on both legs.
type Trade struct {
	Date          time.Time
	Direction     Direction
	StrategyID    string
	EntryPrice    float64
	ExitPrice     float64
	Shares        int
	DollarPnL     float64
	PercentagePnL float64
	Reason        string
	Metadata      map[string]string
}

// Win reports whether the trade closed with a positive percentage return.
func (t Trade) Win() bool {
	return t.PercentagePnL > 0
}
