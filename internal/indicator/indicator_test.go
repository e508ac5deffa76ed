package indicator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sequence(n int, start, step float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	return out
}

func TestEMAInsufficientData(t *testing.T) {
	_, ok := EMA(sequence(5, 1, 1), 10)
	assert.False(t, ok)
}

func TestEMASeedsFromSMA(t *testing.T) {
	prices := []float64{10, 10, 10}
	ema, ok := EMA(prices, 3)
	require.True(t, ok)
	assert.InDelta(t, 10, ema, 1e-9)
}

func TestRSIZeroLossIsHundredNotNaN(t *testing.T) {
	prices := sequence(20, 100, 1) // strictly rising ⇒ zero loss
	rsi, ok := RSI(prices, 14)
	require.True(t, ok)
	assert.Equal(t, 100.0, rsi)
}

func TestRSIInsufficientData(t *testing.T) {
	_, ok := RSI(sequence(10, 1, 1), 14)
	assert.False(t, ok)
}

func TestBollingerPosition(t *testing.T) {
	prices := sequence(20, 100, 0) // flat series -> stddev 0
	b, ok := Bollinger(prices, 20, 2)
	require.True(t, ok)
	assert.Equal(t, b.Upper, b.Mid)
	assert.Equal(t, 0.5, BollingerPosition(100, b))
}

func TestSupportResistanceStrictExtrema(t *testing.T) {
	prices := []float64{5, 3, 6, 2, 8, 4}
	support, resistance := SupportResistance(prices, 5)
	assert.Contains(t, support, 3.0)
	assert.Contains(t, support, 2.0)
	assert.Contains(t, resistance, 6.0)
	assert.Contains(t, resistance, 8.0)
}

func TestMACDApproximatesSignalWhenHistoryShort(t *testing.T) {
	prices := sequence(34, 100, 1)
	res, ok := MACD(prices, 12, 26, 9)
	require.True(t, ok)
	// With 34 points, one short of slow+signal (35), the signal falls back to 0.9*macd.
	assert.InDelta(t, 0.9*res.MACD, res.Signal, 1e-6)
}
