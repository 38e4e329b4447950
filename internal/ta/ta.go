// Package ta holds the price-history indicators reported next to a verdict.
// Every function reads the trailing window of an oldest-first series and
// returns NaN when the series is too short.
package ta

import (
	"math"

	"stock-analyst/internal/types"
)

// Closes flattens a price history into its close prices
func Closes(points []types.PricePoint) []float64 {
	out := make([]float64, len(points))
	for i, p := range points {
		out[i] = p.Close
	}
	return out
}

func SMA(closes []float64, n int) float64 {
	if len(closes) < n || n <= 0 {
		return math.NaN()
	}
	sum := 0.0
	for i := len(closes) - n; i < len(closes); i++ {
		sum += closes[i]
	}
	return sum / float64(n)
}

// RSI is the simple-average relative strength index over the last period changes
func RSI(closes []float64, period int) float64 {
	if len(closes) < period+1 || period <= 0 {
		return math.NaN()
	}
	gain, loss := 0.0, 0.0
	for i := len(closes) - period; i < len(closes); i++ {
		d := closes[i] - closes[i-1]
		if d > 0 {
			gain += d
		} else {
			loss -= d
		}
	}
	if loss == 0 {
		return 100.0
	}
	rs := gain / loss
	return 100.0 - (100.0 / (1.0 + rs))
}

func StdDev(vals []float64, n int) float64 {
	if len(vals) < n || n <= 0 {
		return math.NaN()
	}
	m := SMA(vals, n)
	s := 0.0
	for i := len(vals) - n; i < len(vals); i++ {
		d := vals[i] - m
		s += d * d
	}
	return math.Sqrt(s / float64(n))
}

func Bollinger(closes []float64, n int, k float64) (mid, up, low float64) {
	mid = SMA(closes, n)
	sd := StdDev(closes, n)
	up = mid + k*sd
	low = mid - k*sd
	return
}

// Snapshot computes the standard indicator set over a price history
func Snapshot(points []types.PricePoint) types.Technicals {
	closes := Closes(points)
	_, up, low := Bollinger(closes, 20, 2)
	return types.Technicals{
		SMA20:          orZero(SMA(closes, 20)),
		SMA50:          orZero(SMA(closes, 50)),
		RSI14:          orZero(RSI(closes, 14)),
		BollingerUpper: orZero(up),
		BollingerLower: orZero(low),
		Points:         len(points),
	}
}

func orZero(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
