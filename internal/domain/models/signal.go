package models

import (
	"math"
	"time"
)

// SignalSample is one OHLC record of a correlation index (COR1M, COR3M) or of
// the traded instrument. Samples are immutable once recorded.
type SignalSample struct {
	Timestamp time.Time `json:"ts"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
}

// FlatSample builds a sample whose OHLC values are all v, used for live feeds
// that only publish a last value.
func FlatSample(ts time.Time, v float64) SignalSample {
	return SignalSample{Timestamp: ts, Open: v, High: v, Low: v, Close: v}
}

// Finite reports whether every OHLC value is a real number.
func (s SignalSample) Finite() bool {
	for _, v := range [4]float64{s.Open, s.High, s.Low, s.Close} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// LiveTick is one message of a live market-data feed.
// incoming schema: {instrument, ts, price, signals: {COR1M: x, COR3M: y}}
type LiveTick struct {
	Instrument string             `json:"instrument"`
	Time       time.Time          `json:"ts"`
	Price      float64            `json:"price"`
	Signals    map[string]float64 `json:"signals"`
}

// RollingStats summarises the most recent spread window.
type RollingStats struct {
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
}

// ZScore returns the distance of v from the mean in standard deviations.
func (s RollingStats) ZScore(v float64) float64 {
	if s.StdDev == 0 {
		return 0
	}
	return (v - s.Mean) / s.StdDev
}
