// Package analysis composes the indicator kit into trend, screener, and
// fundamental scores, grounded on the teacher's decision/engine.go scoring
// switch (base_score derivation, signal accumulation, threshold tables).
package analysis

import (
	"fmt"
	"time"

	"hunter/internal/indicator"
)

// Direction is the majority-vote trend call.
type Direction string

const (
	Bullish Direction = "bullish"
	Bearish Direction = "bearish"
	Neutral Direction = "neutral"
)

// TrendAnalysis is the full output of TrendAnalyzer/ScreenerAnalyzer.
type TrendAnalysis struct {
	Direction  Direction
	Strength   float64
	Score      float64
	EMA20      float64
	EMA50      float64
	RSI        float64
	MACD       indicator.MACDResult
	Bollinger  indicator.BollingerResult
	Support    []float64
	Resistance []float64
	Signals    []string
	Summary    string
	Timestamp  time.Time
}

// insufficientData is the documented envelope for series shorter than 20.
func insufficientData() TrendAnalysis {
	return TrendAnalysis{
		Direction: Neutral,
		Strength:  0,
		Score:     50,
		Signals:   nil,
		Summary:   "insufficient price history",
		Timestamp: time.Now(),
	}
}

// Analyze runs the full indicator kit over prices (oldest→newest) and
// derives direction/strength/score per §4.4.
func Analyze(prices []float64) TrendAnalysis {
	if len(prices) < 20 {
		return insufficientData()
	}

	var signals []string
	var bullCount, bearCount, total int

	vote := func(label string, bullish bool) {
		total++
		if bullish {
			bullCount++
			signals = append(signals, fmt.Sprintf("%s bullish", label))
		} else {
			bearCount++
			signals = append(signals, fmt.Sprintf("%s bearish", label))
		}
	}

	ema20, ok20 := indicator.EMA(prices, 20)
	var ema50 float64
	ema50, ok50 := indicator.EMA(prices, 50)
	last := prices[len(prices)-1]
	if ok20 {
		vote("ema20", last > ema20)
	}
	if ok50 {
		vote("ema50", last > ema50)
	}

	rsi, okRSI := indicator.RSI(prices, 14)
	if okRSI {
		switch {
		case rsi < 30:
			bullCount++
			total++
			signals = append(signals, "rsi oversold")
		case rsi > 70:
			bearCount++
			total++
			signals = append(signals, "rsi overbought")
		}
	}

	var macd indicator.MACDResult
	if len(prices) >= 35 {
		m, okM := indicator.MACD(prices, 12, 26, 9)
		if okM {
			macd = m
			vote("macd", m.Histogram > 0)
		}
	}

	var bb indicator.BollingerResult
	if b, okB := indicator.Bollinger(prices, 20, 2); okB {
		bb = b
		pos := indicator.BollingerPosition(last, b)
		switch {
		case pos < 0.2:
			bullCount++
			total++
			signals = append(signals, "bollinger lower band")
		case pos > 0.8:
			bearCount++
			total++
			signals = append(signals, "bollinger upper band")
		}
	}

	support, resistance := indicator.SupportResistance(prices, 3)

	direction := Neutral
	if bullCount > bearCount {
		direction = Bullish
	} else if bearCount > bullCount {
		direction = Bearish
	}

	strength := 0.0
	if total > 0 {
		maxCount := bullCount
		if bearCount > maxCount {
			maxCount = bearCount
		}
		strength = float64(maxCount) / float64(total) * 100
	}

	score := 50.0
	if total > 0 {
		base := 50 + (float64(bullCount)/float64(total)-0.5)*100
		score = base * (0.5 + strength/200)
	}
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	return TrendAnalysis{
		Direction:  direction,
		Strength:   strength,
		Score:      score,
		EMA20:      ema20,
		EMA50:      ema50,
		RSI:        rsi,
		MACD:       macd,
		Bollinger:  bb,
		Support:    support,
		Resistance: resistance,
		Signals:    signals,
		Summary:    fmt.Sprintf("%s (%d bullish / %d bearish signals)", direction, bullCount, bearCount),
		Timestamp:  time.Now(),
	}
}
