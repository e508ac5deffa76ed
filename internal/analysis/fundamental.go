package analysis

import "math"

// FundamentalScore is the composite plus each weighted sub-metric, per §4.5.
type FundamentalScore struct {
	Composite           float64
	VolumePercentile     float64
	PricePositionPercent float64
	MarketCapPercentile  float64
	MomentumPercentile   float64
	Tier                 string // STRONG, MODERATE, WEAK
}

// FundamentalInput is the raw metrics feeding the composite; zero-value
// fields that are semantically "absent" should instead be left at their
// computed neutral value by the caller and the corresponding Have* flag
// cleared, so weights can be re-normalised.
type FundamentalInput struct {
	VolumeRatio   float64
	HaveVolume    bool
	Price         float64
	High52W       float64
	Low52W        float64
	HavePriceRng  bool
	MarketCapRank int // 0 = unknown
	Change24hPct  float64
	Change7dPct   float64
	HaveMomentum  bool
}

func tierOf(score float64) string {
	switch {
	case score >= 70:
		return "STRONG"
	case score >= 40:
		return "MODERATE"
	default:
		return "WEAK"
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// marketCapPercentile maps a rank to the tiered percentile table in §4.5.
func marketCapPercentile(rank int) (float64, bool) {
	switch {
	case rank <= 0:
		return 0, false
	case rank <= 10:
		return 95, true
	case rank <= 50:
		return 80, true
	case rank <= 100:
		return 60, true
	case rank <= 250:
		return 40, true
	default:
		return 20, true
	}
}

// Fundamental computes the weighted composite, re-normalising weights over
// whichever metrics are present.
func Fundamental(in FundamentalInput) FundamentalScore {
	type weighted struct {
		value  float64
		weight float64
	}
	var parts []weighted
	var out FundamentalScore

	if in.HaveVolume {
		p := clamp(in.VolumeRatio*50, 0, 100)
		out.VolumePercentile = p
		parts = append(parts, weighted{p, 0.25})
	}
	if in.HavePriceRng && in.High52W > in.Low52W {
		p := clamp((in.Price-in.Low52W)/(in.High52W-in.Low52W)*100, 0, 100)
		out.PricePositionPercent = p
		parts = append(parts, weighted{p, 0.20})
	}
	if p, ok := marketCapPercentile(in.MarketCapRank); ok {
		out.MarketCapPercentile = p
		parts = append(parts, weighted{p, 0.25})
	}
	if in.HaveMomentum {
		p := clamp(50+2*in.Change24hPct+0.5*in.Change7dPct, 0, 100)
		out.MomentumPercentile = p
		parts = append(parts, weighted{p, 0.30})
	}

	totalWeight := 0.0
	for _, w := range parts {
		totalWeight += w.weight
	}
	if totalWeight == 0 {
		out.Composite = 50
		out.Tier = tierOf(50)
		return out
	}
	sum := 0.0
	for _, w := range parts {
		sum += w.value * (w.weight / totalWeight)
	}
	out.Composite = sum
	out.Tier = tierOf(sum)
	return out
}

// PearsonCorrelation computes Pearson's r on the two series exactly as
// given, requiring ≥5 aligned points, clamped to [-1,1]. It does not convert
// prices to returns; Returns does that conversion.
func PearsonCorrelation(a, b []float64) (float64, bool) {
	n := len(a)
	if n != len(b) || n < 5 {
		return 0, false
	}
	var meanA, meanB float64
	for i := 0; i < n; i++ {
		meanA += a[i]
		meanB += b[i]
	}
	meanA /= float64(n)
	meanB /= float64(n)

	var cov, varA, varB float64
	for i := 0; i < n; i++ {
		da, db := a[i]-meanA, b[i]-meanB
		cov += da * db
		varA += da * da
		varB += db * db
	}
	if varA == 0 || varB == 0 {
		return 0, false
	}
	r := cov / (math.Sqrt(varA) * math.Sqrt(varB))
	return clamp(r, -1, 1), true
}

// Returns converts a price series into period-to-period simple returns.
func Returns(prices []float64) []float64 {
	if len(prices) < 2 {
		return nil
	}
	out := make([]float64, 0, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		if prices[i-1] == 0 {
			continue
		}
		out = append(out, (prices[i]-prices[i-1])/prices[i-1])
	}
	return out
}
