package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyzeInsufficientDataEnvelope(t *testing.T) {
	prices := make([]float64, 19)
	for i := range prices {
		prices[i] = 100 + float64(i)
	}
	result := Analyze(prices)
	assert.Equal(t, Neutral, result.Direction)
	assert.Equal(t, 50.0, result.Score)
	assert.Empty(t, result.Signals)
}

func TestAnalyzeTwentyPointsProduceScore(t *testing.T) {
	prices := make([]float64, 20)
	for i := range prices {
		prices[i] = 100 + float64(i)
	}
	result := Analyze(prices)
	assert.GreaterOrEqual(t, result.Score, 0.0)
	assert.LessOrEqual(t, result.Score, 100.0)
}

func TestFundamentalEmptyMetricsDefaultToNeutral(t *testing.T) {
	result := Fundamental(FundamentalInput{})
	assert.Equal(t, 50.0, result.Composite)
	assert.Equal(t, "MODERATE", result.Tier)
}

func TestFundamentalRenormalisesOnMissingMetric(t *testing.T) {
	result := Fundamental(FundamentalInput{
		HaveVolume: true, VolumeRatio: 2, // percentile 100, full weight
	})
	assert.Equal(t, 100.0, result.Composite)
}

func TestPearsonRequiresFivePoints(t *testing.T) {
	_, ok := PearsonCorrelation([]float64{1, 2, 3}, []float64{1, 2, 3})
	assert.False(t, ok)
}

func TestPearsonPerfectCorrelation(t *testing.T) {
	a := []float64{1, 2, 3, 4, 5}
	b := []float64{2, 4, 6, 8, 10}
	r, ok := PearsonCorrelation(a, b)
	require.True(t, ok)
	assert.InDelta(t, 1.0, r, 1e-9)
}

func TestScreenNamedPlays(t *testing.T) {
	pe := 15.0
	in := FundamentalsInput{
		Price: 100, High52W: 103, Low52W: 60,
		SMA20: 95, SMA50: 90, SMA200: 80,
		VolumeRatio: 2.5, PE: &pe, RevenueGrowth: 0.12, EarningsGrowth: 0.05,
		RSI: 60,
	}
	res := Screen(in)
	assert.Contains(t, res.Plays, "breakout")
	assert.Contains(t, res.Plays, "momentum")
}
