// Package config holds the typed per-agent-kind configuration structs and
// the process environment loader. Grounded on AutoTraderConfig and
// StrategyConfig/RiskControlConfig from the teacher's trader/store packages:
// a flat struct of tunables with Default* constructors, decoded from the
// Agent's opaque JSON blob at cycle start.
package config

import (
	"encoding/json"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Env is process-wide configuration loaded once from the environment.
type Env struct {
	DatabasePath string

	RobinhoodBaseURL    string
	RobinhoodAPIKey     string
	RobinhoodPrivateKey string // base64 ed25519 seed

	BinanceAPIKey    string
	BinanceSecretKey string

	BybitAPIKey    string
	BybitSecretKey string

	HyperliquidPrivateKey string
	HyperliquidWalletAddr string

	LighterWalletAddr   string
	LighterPrivateKey   string
	LighterAccountIndex int64

	HyperliquidTestnet bool

	EquitiesHost     string
	EquitiesPort     int
	EquitiesClientID string

	AdminPasswordHash string
	AdminTOTPSecret   string
	JWTSigningKey     string

	DryRun bool

	HTTPAddr string
}

// LoadEnv reads a .env file if present, then the real environment on top.
func LoadEnv() *Env {
	_ = godotenv.Load()

	e := &Env{
		DatabasePath:          getenv("HUNTER_DB_PATH", "hunter.db"),
		RobinhoodBaseURL:      getenv("ROBINHOOD_BASE_URL", "https://api.hunter-exchange.example/v1"),
		RobinhoodAPIKey:       os.Getenv("ROBINHOOD_API_KEY"),
		RobinhoodPrivateKey:   os.Getenv("ROBINHOOD_PRIVATE_KEY"),
		BinanceAPIKey:         os.Getenv("BINANCE_API_KEY"),
		BinanceSecretKey:      os.Getenv("BINANCE_SECRET_KEY"),
		BybitAPIKey:           os.Getenv("BYBIT_API_KEY"),
		BybitSecretKey:        os.Getenv("BYBIT_SECRET_KEY"),
		HyperliquidPrivateKey: os.Getenv("HYPERLIQUID_PRIVATE_KEY"),
		HyperliquidWalletAddr: os.Getenv("HYPERLIQUID_WALLET_ADDR"),
		LighterWalletAddr:     os.Getenv("LIGHTER_WALLET_ADDR"),
		LighterPrivateKey:     os.Getenv("LIGHTER_PRIVATE_KEY"),
		LighterAccountIndex:   getenvInt64("LIGHTER_ACCOUNT_INDEX", 0),
		HyperliquidTestnet:    os.Getenv("HYPERLIQUID_TESTNET") == "true" || os.Getenv("HYPERLIQUID_TESTNET") == "1",
		EquitiesHost:          getenv("EQUITIES_HOST", "127.0.0.1"),
		EquitiesClientID:      getenv("EQUITIES_CLIENT_ID", "1"),
		AdminPasswordHash:     os.Getenv("HUNTER_ADMIN_PASSWORD_HASH"),
		AdminTOTPSecret:       os.Getenv("HUNTER_ADMIN_TOTP_SECRET"),
		JWTSigningKey:         getenv("HUNTER_JWT_SIGNING_KEY", "dev-signing-key-change-me"),
		DryRun:                os.Getenv("DRY_RUN") == "true" || os.Getenv("DRY_RUN") == "1",
		HTTPAddr:              getenv("HUNTER_HTTP_ADDR", ":8080"),
	}
	return e
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt64(key string, def int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return def
	}
	return n
}

// CryptoHunterConfig is the typed config for a crypto_hunter agent.
type CryptoHunterConfig struct {
	Exchange            string   `json:"exchange"` // "signed" (robinhood-style), "binance", "bybit", "hyperliquid", "lighter"
	Coins               []string `json:"coins,omitempty"`
	ExcludeCoins        []string `json:"exclude_coins,omitempty"`
	ScanIntervalMinutes int      `json:"scan_interval_minutes"`
	AllocatedCapital    float64  `json:"allocated_capital"`
	MaxPositions        int      `json:"max_positions"`
	MaxPositionPct      float64  `json:"max_position_pct"`
	KellyMultiplier     float64  `json:"kelly_multiplier"`
	DailyLossLimitPct   float64  `json:"daily_loss_limit_pct"`
	StopLossPct         float64  `json:"stop_loss_pct"`
	TakeProfitPct       float64  `json:"take_profit_pct"`
	MaxHoldHours        float64  `json:"max_hold_hours"`
	MinCompositeScore   float64  `json:"min_composite_score"`
	EntryScoreThreshold float64  `json:"entry_score_threshold"`
	MaxWatchlist        int      `json:"max_watchlist"`
	AutoTrade           bool     `json:"auto_trade"`
	WeightTrend         float64  `json:"weight_trend"`
	WeightFundamental   float64  `json:"weight_fundamental"`
	WeightMomentum      float64  `json:"weight_momentum"`
	LimitOffsetPct      float64  `json:"limit_offset_pct"`
	OrderTimeoutSeconds int      `json:"order_timeout_seconds"`
	UseLimitOrders      bool     `json:"use_limit_orders"`
}

// DefaultCryptoHunterConfig mirrors §4.8's default weights/thresholds.
func DefaultCryptoHunterConfig() CryptoHunterConfig {
	return CryptoHunterConfig{
		Exchange:            "signed",
		ScanIntervalMinutes: 15,
		AllocatedCapital:    10000,
		MaxPositions:        8,
		MaxPositionPct:      0.15,
		KellyMultiplier:     0.5,
		DailyLossLimitPct:   0.05,
		StopLossPct:         0.08,
		TakeProfitPct:       0.20,
		MaxHoldHours:        72,
		MinCompositeScore:   60,
		EntryScoreThreshold: 70,
		MaxWatchlist:        20,
		AutoTrade:           false,
		WeightTrend:         0.5,
		WeightFundamental:   0.3,
		WeightMomentum:      0.2,
		LimitOffsetPct:      0.001,
		OrderTimeoutSeconds: 60,
	}
}

// WatchlistTTL returns the watchlist-row expiry window (§3: crypto T=48h).
func (c CryptoHunterConfig) WatchlistTTL() time.Duration { return 48 * time.Hour }

// GemHunterConfig is the typed config for a gem_hunter (equities) agent.
type GemHunterConfig struct {
	Universe             []string `json:"universe,omitempty"` // built-in 20-ticker default list when empty
	ScanIntervalMinutes  int      `json:"scan_interval_minutes"`
	AllocatedCapital     float64  `json:"allocated_capital"`
	MaxPositions         int      `json:"max_positions"`
	MaxPositionPct       float64  `json:"max_position_pct"`
	KellyMultiplier      float64  `json:"kelly_multiplier"`
	DailyLossLimitPct    float64  `json:"daily_loss_limit_pct"`
	StopLossPct          float64  `json:"stop_loss_pct"`
	TakeProfitPct        float64  `json:"take_profit_pct"`
	MaxHoldDays          float64  `json:"max_hold_days"`
	MinCompositeScore    float64  `json:"min_composite_score"`
	EntryScoreThreshold  float64  `json:"entry_score_threshold"`
	ImmediateEntryScore  float64  `json:"immediate_entry_score"`
	MaxWatchlist         int      `json:"max_watchlist"`
	AutoTrade            bool     `json:"auto_trade"`
	TradingEnabled       bool     `json:"trading_enabled"`
	WeightTrend          float64  `json:"weight_trend"`
	WeightFundamental    float64  `json:"weight_fundamental"`
	WeightMomentum       float64  `json:"weight_momentum"`
	MinMarketCap         float64  `json:"min_market_cap"`
	MinVolume            float64  `json:"min_volume"`
	OrderTimeoutSeconds  int      `json:"order_timeout_seconds"`
}

// DefaultGemHunterConfig mirrors §4.8's equities defaults.
func DefaultGemHunterConfig() GemHunterConfig {
	return GemHunterConfig{
		ScanIntervalMinutes: 60,
		AllocatedCapital:    25000,
		MaxPositions:        10,
		MaxPositionPct:      0.25,
		KellyMultiplier:     0.5,
		DailyLossLimitPct:   0.05,
		StopLossPct:         0.08,
		TakeProfitPct:       0.20,
		MaxHoldDays:         30,
		MinCompositeScore:   60,
		EntryScoreThreshold: 65,
		ImmediateEntryScore: 75,
		MaxWatchlist:        30,
		AutoTrade:           false,
		WeightTrend:         0.4,
		WeightFundamental:   0.3,
		WeightMomentum:      0.3,
		MinMarketCap:        2_000_000_000,
		MinVolume:           500_000,
		OrderTimeoutSeconds: 60,
	}
}

// WatchlistTTL returns the watchlist-row expiry window (§3: equities T=7d).
func (c GemHunterConfig) WatchlistTTL() time.Duration { return 7 * 24 * time.Hour }

// OrchestratorConfig is the typed config for the options orchestrator.
type OrchestratorConfig struct {
	VIXShutdownThreshold   float64 `json:"vix_shutdown_threshold"`
	RecommendationTTLHours float64 `json:"recommendation_ttl_hours"`
	ScanIntervalMinutes    int     `json:"scan_interval_minutes"` // weekly by default
	ExecuteMode            bool    `json:"execute_mode"`          // false = analyse-only, emits recommendations
}

// DefaultOrchestratorConfig mirrors §4.9's defaults (VIX 45, 4h TTL, weekly).
func DefaultOrchestratorConfig() OrchestratorConfig {
	return OrchestratorConfig{
		VIXShutdownThreshold:   45,
		RecommendationTTLHours: 4,
		ScanIntervalMinutes:    7 * 24 * 60,
		ExecuteMode:            false,
	}
}

// Decode unmarshals an Agent's opaque config blob into dst after a
// round-trip through a generic map. Keys absent from the blob keep dst's
// current values; keys dst has no field for are ignored and do not reach
// dst (the stored blob itself is not modified).
func Decode(blob string, dst interface{}) error {
	if blob == "" {
		return nil
	}
	var shadow map[string]interface{}
	if err := json.Unmarshal([]byte(blob), &shadow); err != nil {
		return err
	}
	raw, err := json.Marshal(shadow)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dst)
}
