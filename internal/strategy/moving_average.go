package strategy

import (
	"main/internal/schema"
)

// MovingAverage compares a short and a long moving average over the
// OHLC4 price. It buys when the short average pulls above the long one
// by more than the threshold fraction, sells when it drops below by the
// same margin, and holds inside the band.
type MovingAverage struct {
	smallWindow int
	largeWindow int
	threshold   float64

	prices []float64
}

// NewMovingAverage creates a crossover strategy. largeWindow must exceed
// smallWindow; until largeWindow bars have arrived the strategy holds.
func NewMovingAverage(smallWindow, largeWindow int, threshold float64) *MovingAverage {
	return &MovingAverage{
		smallWindow: smallWindow,
		largeWindow: largeWindow,
		threshold:   threshold,
	}
}

// AddRecord appends the bar's OHLC4 price, keeping only the window the
// long average needs.
func (s *MovingAverage) AddRecord(bar schema.PriceBar) {
	price := (bar.Open + bar.High + bar.Low + bar.Close) / 4
	s.prices = append(s.prices, price)
	if len(s.prices) > s.largeWindow {
		s.prices = s.prices[len(s.prices)-s.largeWindow:]
	}
}

// Decide compares the two averages over the recorded window.
func (s *MovingAverage) Decide() int {
	if s.largeWindow <= 0 || len(s.prices) < s.largeWindow {
		return Hold
	}
	small := average(s.prices[len(s.prices)-s.smallWindow:])
	large := average(s.prices)
	if large == 0 {
		return Hold
	}

	ratio := small / large
	switch {
	case ratio > 1+s.threshold:
		return Buy
	case ratio < 1-s.threshold:
		return Sell
	default:
		return Hold
	}
}

func average(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
