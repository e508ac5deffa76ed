// Package indicator implements the pure indicator kit: EMA, RSI, MACD,
// Bollinger bands, and support/resistance extrema. Every function operates
// on a plain []float64 and returns an explicit ok=false when the input is
// shorter than the required period — never a NaN or a panic.
package indicator

import "math"

// EMA returns the exponential moving average of the last n prices, seeded
// from the SMA of the first n points.
func EMA(prices []float64, n int) (float64, bool) {
	if n <= 0 || len(prices) < n {
		return 0, false
	}
	sum := 0.0
	for _, p := range prices[:n] {
		sum += p
	}
	ema := sum / float64(n)
	mult := 2.0 / (float64(n) + 1.0)
	for _, p := range prices[n:] {
		ema = (p-ema)*mult + ema
	}
	return ema, true
}

// RSI returns the Relative Strength Index over `period` (default 14),
// requiring period+1 points. A zero average loss yields 100, not NaN.
func RSI(prices []float64, period int) (float64, bool) {
	if period <= 0 || len(prices) < period+1 {
		return 0, false
	}
	start := len(prices) - period - 1
	window := prices[start:]
	var gain, loss float64
	for i := 1; i < len(window); i++ {
		delta := window[i] - window[i-1]
		if delta >= 0 {
			gain += delta
		} else {
			loss += -delta
		}
	}
	avgGain := gain / float64(period)
	avgLoss := loss / float64(period)
	if avgLoss == 0 {
		return 100, true
	}
	rs := avgGain / avgLoss
	return 100 - (100 / (1 + rs)), true
}

// MACDResult carries the three MACD outputs.
type MACDResult struct {
	MACD      float64
	Signal    float64
	Histogram float64
}

// MACD returns (macd, signal, histogram) using fast/slow/signal periods
// (conventionally 12/26/9). When the available history is shorter than the
// signal EMA needs, the signal line is approximated as 0.9×macd — a
// documented approximation, not a bug (see SPEC_FULL open questions).
func MACD(prices []float64, fast, slow, signalPeriod int) (MACDResult, bool) {
	if len(prices) < slow {
		return MACDResult{}, false
	}
	fastEMA, ok1 := EMA(prices, fast)
	slowEMA, ok2 := EMA(prices, slow)
	if !ok1 || !ok2 {
		return MACDResult{}, false
	}
	macdLine := fastEMA - slowEMA

	// Build a MACD series over the tail of prices to EMA-smooth into signal.
	needed := slow + signalPeriod
	var signal float64
	if len(prices) >= needed {
		series := make([]float64, 0, len(prices)-slow+1)
		for i := slow; i <= len(prices); i++ {
			f, _ := EMA(prices[:i], fast)
			s, _ := EMA(prices[:i], slow)
			series = append(series, f-s)
		}
		if sig, ok := EMA(series, signalPeriod); ok {
			signal = sig
		} else {
			signal = 0.9 * macdLine
		}
	} else {
		signal = 0.9 * macdLine
	}

	return MACDResult{MACD: macdLine, Signal: signal, Histogram: macdLine - signal}, true
}

// BollingerResult carries the three Bollinger band outputs.
type BollingerResult struct {
	Upper float64
	Mid   float64
	Lower float64
}

// Bollinger returns (upper, mid, lower) bands over `period` (default 20)
// using a population-stddev multiple of `mult` (default 2).
func Bollinger(prices []float64, period int, mult float64) (BollingerResult, bool) {
	if period <= 0 || len(prices) < period {
		return BollingerResult{}, false
	}
	window := prices[len(prices)-period:]
	sum := 0.0
	for _, p := range window {
		sum += p
	}
	mean := sum / float64(period)
	var variance float64
	for _, p := range window {
		d := p - mean
		variance += d * d
	}
	variance /= float64(period)
	stddev := math.Sqrt(variance)
	return BollingerResult{
		Upper: mean + mult*stddev,
		Mid:   mean,
		Lower: mean - mult*stddev,
	}, true
}

// BollingerPosition returns where `price` sits within the band, 0=lower,1=upper.
func BollingerPosition(price float64, b BollingerResult) float64 {
	width := b.Upper - b.Lower
	if width <= 0 {
		return 0.5
	}
	pos := (price - b.Lower) / width
	if pos < 0 {
		return 0
	}
	if pos > 1 {
		return 1
	}
	return pos
}

// SupportResistance returns up to k local minima (support) and maxima
// (resistance), sorted ascending. A point is a strict local extremum iff it
// beats both neighbours.
func SupportResistance(prices []float64, k int) (support, resistance []float64) {
	if len(prices) < 3 {
		return nil, nil
	}
	for i := 1; i < len(prices)-1; i++ {
		if prices[i] < prices[i-1] && prices[i] < prices[i+1] {
			support = append(support, prices[i])
		}
		if prices[i] > prices[i-1] && prices[i] > prices[i+1] {
			resistance = append(resistance, prices[i])
		}
	}
	support = topK(support, k, true)
	resistance = topK(resistance, k, false)
	return support, resistance
}

// topK sorts ascending and trims to k; ascending=true keeps the smallest k
// (support), false keeps the largest k (resistance).
func topK(vals []float64, k int, ascending bool) []float64 {
	if len(vals) == 0 {
		return nil
	}
	sorted := append([]float64(nil), vals...)
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && sorted[j-1] > sorted[j]; j-- {
			sorted[j-1], sorted[j] = sorted[j], sorted[j-1]
		}
	}
	if !ascending {
		// keep the largest k, still return ascending order
		if len(sorted) > k {
			sorted = sorted[len(sorted)-k:]
		}
		return sorted
	}
	if len(sorted) > k {
		sorted = sorted[:k]
	}
	return sorted
}
