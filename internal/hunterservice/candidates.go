package hunterservice

import (
	"context"
	"strings"
	"time"

	"hunter/internal/broker"
	"hunter/internal/config"
	"hunter/internal/executor"
)

// CryptoCandidates lists the crypto_hunter's universe: the adapter's tradable
// instruments minus the configured coin excludes, optionally narrowed to an
// explicit coin allowlist (§4.8 step 5).
type CryptoCandidates struct {
	Adapter broker.CryptoAdapter
	Cfg     config.CryptoHunterConfig
}

// Candidates implements CandidateSource.
func (c CryptoCandidates) Candidates(ctx context.Context) ([]string, error) {
	instruments, err := c.Adapter.Instruments(ctx)
	if err != nil {
		return nil, err
	}

	exclude := toSet(c.Cfg.ExcludeCoins)
	allow := toSet(c.Cfg.Coins)

	var out []string
	for _, inst := range instruments {
		if !inst.Tradable {
			continue
		}
		if exclude[strings.ToUpper(inst.Symbol)] {
			continue
		}
		if len(allow) > 0 && !allow[strings.ToUpper(inst.Symbol)] {
			continue
		}
		out = append(out, inst.Symbol)
	}
	return out, nil
}

func toSet(items []string) map[string]bool {
	if len(items) == 0 {
		return nil
	}
	set := make(map[string]bool, len(items))
	for _, item := range items {
		set[strings.ToUpper(item)] = true
	}
	return set
}

// EquitiesCandidates lists the gem_hunter's universe: the configured ticker
// list (or a documented default when empty), passed through per-symbol
// fundamentals lookups for a volume screen. MinMarketCap is not applied.
type EquitiesCandidates struct {
	Cfg          config.GemHunterConfig
	Fundamentals Fundamentals
}

// defaultUniverse is used when the agent's config carries no explicit
// universe; a representative slice of large/mid-cap names rather than an
// exhaustive listing (operators are expected to configure their own).
var defaultUniverse = []string{
	"AAPL", "MSFT", "GOOGL", "AMZN", "NVDA", "META", "AMD", "CRM", "ADBE", "NFLX",
	"PYPL", "SQ", "SHOP", "SNOW", "PLTR", "DDOG", "NET", "CRWD", "ZS", "PANW",
}

// Candidates implements CandidateSource. Symbols with no fundamentals pass
// through unscreened; otherwise, when MinVolume is set, a symbol whose volume
// ratio is below 0.1 is dropped. No market-cap floor is checked.
func (e EquitiesCandidates) Candidates(ctx context.Context) ([]string, error) {
	universe := e.Cfg.Universe
	if len(universe) == 0 {
		universe = defaultUniverse
	}

	var out []string
	for _, symbol := range universe {
		in, have := e.Fundamentals.Lookup(ctx, symbol)
		if !have {
			out = append(out, symbol)
			continue
		}
		if e.Cfg.MinVolume > 0 && in.HaveVolume && in.VolumeRatio*e.Cfg.MinVolume < e.Cfg.MinVolume {
			// VolumeRatio is relative to average; an absolute floor check
			// needs the caller's raw volume, so this only screens out
			// symbols explicitly marked as below-average on thin liquidity.
			if in.VolumeRatio < 0.1 {
				continue
			}
		}
		out = append(out, symbol)
	}
	return out, nil
}

// ParamsFromCrypto builds hunterservice.Params from a crypto_hunter config.
func ParamsFromCrypto(agentID string, cfg config.CryptoHunterConfig) Params {
	return Params{
		AgentID:             agentID,
		IsCrypto:            true,
		MaxWatchlist:        cfg.MaxWatchlist,
		MinCompositeScore:   cfg.MinCompositeScore,
		EntryScoreThreshold: cfg.EntryScoreThreshold,
		MaxHold:             time.Duration(cfg.MaxHoldHours * float64(time.Hour)),
		AutoTrade:           cfg.AutoTrade,
		WatchlistTTL:        cfg.WatchlistTTL(),
		ExecOptions: executor.Options{
			OrderTimeout:   time.Duration(cfg.OrderTimeoutSeconds) * time.Second,
			LimitOffsetPct: cfg.LimitOffsetPct,
			UseLimitOrders: cfg.UseLimitOrders,
		},
		Weights: Weights{Trend: cfg.WeightTrend, Fundamental: cfg.WeightFundamental, Momentum: cfg.WeightMomentum},
	}
}

// ParamsFromGem builds hunterservice.Params from a gem_hunter config.
func ParamsFromGem(agentID string, cfg config.GemHunterConfig) Params {
	return Params{
		AgentID:             agentID,
		IsCrypto:            false,
		MaxWatchlist:        cfg.MaxWatchlist,
		MinCompositeScore:   cfg.MinCompositeScore,
		EntryScoreThreshold: cfg.EntryScoreThreshold,
		ImmediateEntryScore: cfg.ImmediateEntryScore,
		MaxHold:             time.Duration(cfg.MaxHoldDays * 24 * float64(time.Hour)),
		AutoTrade:           cfg.AutoTrade && cfg.TradingEnabled,
		WatchlistTTL:        cfg.WatchlistTTL(),
		ExecOptions: executor.Options{
			OrderTimeout: time.Duration(cfg.OrderTimeoutSeconds) * time.Second,
		},
		Weights: Weights{Trend: cfg.WeightTrend, Fundamental: cfg.WeightFundamental, Momentum: cfg.WeightMomentum},
	}
}
