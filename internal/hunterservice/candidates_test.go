package hunterservice

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hunter/internal/broker"
	"hunter/internal/config"
)

type fakeInstrumentsAdapter struct {
	fakeAdapter
	instruments []broker.Instrument
}

func (f *fakeInstrumentsAdapter) Instruments(ctx context.Context) ([]broker.Instrument, error) {
	return f.instruments, nil
}

func TestCryptoCandidatesExcludesConfiguredCoins(t *testing.T) {
	adapter := &fakeInstrumentsAdapter{instruments: []broker.Instrument{
		{Symbol: "BTC-USD", Tradable: true},
		{Symbol: "ETH-USD", Tradable: true},
		{Symbol: "SCAM-USD", Tradable: true},
		{Symbol: "DELISTED-USD", Tradable: false},
	}}
	cfg := config.CryptoHunterConfig{ExcludeCoins: []string{"scam-usd"}}
	src := CryptoCandidates{Adapter: adapter, Cfg: cfg}

	out, err := src.Candidates(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"BTC-USD", "ETH-USD"}, out)
}

func TestCryptoCandidatesHonoursExplicitAllowlist(t *testing.T) {
	adapter := &fakeInstrumentsAdapter{instruments: []broker.Instrument{
		{Symbol: "BTC-USD", Tradable: true},
		{Symbol: "ETH-USD", Tradable: true},
	}}
	cfg := config.CryptoHunterConfig{Coins: []string{"BTC-USD"}}
	src := CryptoCandidates{Adapter: adapter, Cfg: cfg}

	out, err := src.Candidates(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"BTC-USD"}, out)
}

func TestEquitiesCandidatesFallsBackToDefaultUniverse(t *testing.T) {
	src := EquitiesCandidates{Cfg: config.GemHunterConfig{}, Fundamentals: fakeFundamentals{}}
	out, err := src.Candidates(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, defaultUniverse, out)
}

func TestParamsFromCryptoCarriesWeightsAndThresholds(t *testing.T) {
	cfg := config.DefaultCryptoHunterConfig()
	p := ParamsFromCrypto("crypto-1", cfg)
	assert.Equal(t, cfg.MinCompositeScore, p.MinCompositeScore)
	assert.Equal(t, cfg.WeightTrend, p.Weights.Trend)
	assert.True(t, p.IsCrypto)
}

func TestParamsFromGemRequiresBothAutoTradeAndTradingEnabled(t *testing.T) {
	cfg := config.DefaultGemHunterConfig()
	cfg.AutoTrade = true
	cfg.TradingEnabled = false
	p := ParamsFromGem("gem-1", cfg)
	assert.False(t, p.AutoTrade)

	cfg.TradingEnabled = true
	p = ParamsFromGem("gem-1", cfg)
	assert.True(t, p.AutoTrade)
}
