// Command hunter boots the full trading platform: the sqlite store, one
// risk-gated hunter cycle per configured crypto_hunter/gem_hunter agent on
// the scheduler, the options orchestrator's regime controller, and the
// HTTP/websocket API. Grounded on trader/auto_trader.go's construct-then-run
// main shape, generalized from one hardcoded strategy to N store-configured
// agents.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hunter/internal/activity"
	"hunter/internal/analysis"
	"hunter/internal/api"
	"hunter/internal/auth"
	"hunter/internal/broker"
	"hunter/internal/broker/binance"
	"hunter/internal/broker/bybit"
	"hunter/internal/broker/equities"
	"hunter/internal/broker/hyperliquid"
	"hunter/internal/broker/lighter"
	"hunter/internal/broker/signed"
	"hunter/internal/config"
	"hunter/internal/executor"
	"hunter/internal/hunterservice"
	"hunter/internal/logger"
	"hunter/internal/marketdata"
	"hunter/internal/metrics"
	"hunter/internal/models"
	"hunter/internal/recommendation"
	"hunter/internal/regime"
	"hunter/internal/risk"
	"hunter/internal/scheduler"
	"hunter/internal/store"
)

// Reference market-data endpoints for the historical-close providers. No
// credentials are needed; operators pointing at a different aggregator
// override these via the environment the same way the venue adapters do.
const (
	primaryDataBaseURL   = "https://data.hunter-exchange.example"
	secondaryDataBaseURL = "https://data-fallback.hunter-exchange.example"
)

func main() {
	log := logger.With("main")
	env := config.LoadEnv()

	db, err := store.Open(env.DatabasePath)
	if err != nil {
		log.Errorf("open database: %v", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := store.Migrate(db); err != nil {
		log.Errorf("migrate database: %v", err)
		os.Exit(1)
	}

	agentsRepo := store.NewAgentRepo(db)
	positionsRepo := store.NewPositionRepo(db)
	watchlistRepo := store.NewWatchlistRepo(db)
	runsRepo := store.NewAgentRunRepo(db)
	activityRepo := store.NewActivityRepo(db)
	recommendRepo := store.NewRecommendationRepo(db)
	regimeRepo := store.NewRegimeRepo(db)
	metricsRepo := store.NewMetricsRepo(db)

	activityLog := activity.New()
	recommendations := recommendation.New()
	regimeCtl := regime.New()
	authenticator, err := auth.New(env.AdminPasswordHash, env.AdminTOTPSecret, env.JWTSigningKey)
	if err != nil {
		log.Errorf("configure admin auth: %v", err)
		os.Exit(1)
	}
	sched := scheduler.New()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	agents, err := ensureDefaultAgents(ctx, agentsRepo)
	if err != nil {
		log.Errorf("bootstrap default agents: %v", err)
		os.Exit(1)
	}

	brokerFactory := broker.NewFactory(env)
	builders := broker.Builders{
		Signed: func(env *config.Env) (broker.CryptoAdapter, error) {
			return signed.New(env.RobinhoodBaseURL, env.RobinhoodAPIKey, env.RobinhoodPrivateKey)
		},
		Binance: func(env *config.Env) (broker.CryptoAdapter, error) {
			return binance.New(env.BinanceAPIKey, env.BinanceSecretKey)
		},
		Bybit: func(env *config.Env) (broker.CryptoAdapter, error) {
			return bybit.New(env.BybitAPIKey, env.BybitSecretKey)
		},
		Hyperliquid: func(env *config.Env) (broker.CryptoAdapter, error) {
			return hyperliquid.New(env.HyperliquidPrivateKey, env.HyperliquidTestnet)
		},
		Lighter: func(env *config.Env) (broker.CryptoAdapter, error) {
			return lighter.New(env.LighterPrivateKey, env.LighterAccountIndex)
		},
	}

	gateway := marketdata.New(
		marketdata.NewPrimaryProvider(primaryDataBaseURL),
		marketdata.NewSecondaryProvider(secondaryDataBaseURL),
	)

	var cryptoRuntime, gemRuntime *api.AgentRuntime
	for _, agent := range agents {
		switch agent.Kind {
		case models.KindCryptoHunter:
			rt, err := buildCryptoRuntime(ctx, agent, env, brokerFactory, builders, gateway, positionsRepo, watchlistRepo, activityLog)
			if err != nil {
				log.Errorf("build crypto runtime for %s: %v", agent.ID, err)
				continue
			}
			cryptoRuntime = rt
			scheduleHunter(sched, agentsRepo, runsRepo, activityLog, agent, rt)
		case models.KindGemHunter:
			rt, err := buildGemRuntime(ctx, agent, env, gateway, positionsRepo, watchlistRepo, activityLog)
			if err != nil {
				log.Errorf("build gem runtime for %s: %v", agent.ID, err)
				continue
			}
			gemRuntime = rt
			scheduleHunter(sched, agentsRepo, runsRepo, activityLog, agent, rt)
		}
	}

	equitiesBroker := equities.New(env.EquitiesHost, env.EquitiesPort, env.EquitiesClientID)

	sched.AddJob("metrics-rollup", scheduler.Trigger{IntervalMinutes: 5}, func() {
		recordMetricsSnapshot(ctx, agentsRepo, positionsRepo, metricsRepo)
	})
	sched.AddJob("recommendation-sweep", scheduler.Trigger{IntervalMinutes: 15}, func() {
		recommendations.Sweep(time.Now())
	})
	sched.AddJob("activity-prune", scheduler.Trigger{IntervalMinutes: 60}, func() {
		activityLog.Prune(time.Now())
	})
	sched.Start()

	srv := api.NewServer(&api.Server{
		Env:             env,
		Auth:            authenticator,
		Agents:          agentsRepo,
		Positions:       positionsRepo,
		Watchlist:       watchlistRepo,
		Runs:            runsRepo,
		ActivityLog:     activityLog,
		ActivityRepo:    activityRepo,
		Recommendations: recommendations,
		RecommendRepo:   recommendRepo,
		Regime:          regimeCtl,
		RegimeRepo:      regimeRepo,
		MetricsRepo:     metricsRepo,
		Scheduler:       sched,
		Broker:          equitiesBroker,
		CryptoRuntime:   cryptoRuntime,
		GemRuntime:      gemRuntime,
	})

	log.Infof("hunter listening on %s", env.HTTPAddr)
	if err := srv.Run(ctx); err != nil {
		log.Errorf("serve: %v", err)
	}
	sched.Stop()
}

// ensureDefaultAgents guarantees one crypto_hunter and one gem_hunter agent
// row exists so a fresh deployment has something to schedule, rather than
// requiring an operator to POST /agents before anything runs.
func ensureDefaultAgents(ctx context.Context, repo *store.AgentRepo) ([]models.Agent, error) {
	agents, err := repo.List(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("list agents: %w", err)
	}

	haveCrypto, haveGem := false, false
	for _, a := range agents {
		switch a.Kind {
		case models.KindCryptoHunter:
			haveCrypto = true
		case models.KindGemHunter:
			haveGem = true
		}
	}

	now := time.Now()
	if !haveCrypto {
		raw, _ := json.Marshal(config.DefaultCryptoHunterConfig())
		a := models.Agent{ID: "crypto-hunter-default", Name: "crypto-hunter", Kind: models.KindCryptoHunter,
			Status: models.AgentIdle, Config: string(raw), CreatedAt: now, UpdatedAt: now}
		if err := repo.Create(ctx, a); err != nil {
			return nil, fmt.Errorf("create default crypto_hunter: %w", err)
		}
		agents = append(agents, a)
	}
	if !haveGem {
		raw, _ := json.Marshal(config.DefaultGemHunterConfig())
		a := models.Agent{ID: "gem-hunter-default", Name: "gem-hunter", Kind: models.KindGemHunter,
			Status: models.AgentIdle, Config: string(raw), CreatedAt: now, UpdatedAt: now}
		if err := repo.Create(ctx, a); err != nil {
			return nil, fmt.Errorf("create default gem_hunter: %w", err)
		}
		agents = append(agents, a)
	}
	return agents, nil
}

func buildCryptoRuntime(ctx context.Context, agent models.Agent, env *config.Env, factory *broker.Factory, builders broker.Builders,
	gateway *marketdata.Gateway, positions *store.PositionRepo, watchlist *store.WatchlistRepo, activityLog *activity.Log) (*api.AgentRuntime, error) {
	var cfg config.CryptoHunterConfig = config.DefaultCryptoHunterConfig()
	if err := config.Decode(agent.Config, &cfg); err != nil {
		return nil, fmt.Errorf("decode crypto_hunter config: %w", err)
	}

	adapter, err := factory.Build(cfg.Exchange, builders)
	if err != nil {
		return nil, err
	}
	if env.DryRun {
		adapter = broker.NewDryRunAdapter(adapter)
	}

	exec := executor.New(adapter)
	if err := exec.LoadInstruments(ctx); err != nil {
		return nil, fmt.Errorf("load instruments: %w", err)
	}

	riskEngine := risk.New(risk.Config{
		AllocatedCapital: cfg.AllocatedCapital, StopLossPct: cfg.StopLossPct, TakeProfitPct: cfg.TakeProfitPct,
		MaxHold: time.Duration(cfg.MaxHoldHours * float64(time.Hour)), MaxPositions: cfg.MaxPositions,
		MaxPositionPct: cfg.MaxPositionPct, KellyMultiplier: cfg.KellyMultiplier, DailyLossLimitPct: cfg.DailyLossLimitPct,
		IsCrypto: true,
	})

	candidates := hunterservice.CryptoCandidates{Adapter: adapter, Cfg: cfg}
	svc := hunterservice.New(adapter, gateway, riskEngine, exec, positions, watchlist, candidates, noFundamentals{}, activityLog)

	return &api.AgentRuntime{
		AgentID: agent.ID, Hunter: svc, Params: hunterservice.ParamsFromCrypto(agent.ID, cfg),
		Gateway: gateway, Adapter: adapter, Executor: exec,
	}, nil
}

func buildGemRuntime(ctx context.Context, agent models.Agent, env *config.Env, gateway *marketdata.Gateway,
	positions *store.PositionRepo, watchlist *store.WatchlistRepo, activityLog *activity.Log) (*api.AgentRuntime, error) {
	var cfg config.GemHunterConfig = config.DefaultGemHunterConfig()
	if err := config.Decode(agent.Config, &cfg); err != nil {
		return nil, fmt.Errorf("decode gem_hunter config: %w", err)
	}

	adapter := equities.New(env.EquitiesHost, env.EquitiesPort, agent.ID)
	exec := executor.New(adapter)
	if err := exec.LoadInstruments(ctx); err != nil {
		// The equities gateway may not be reachable at boot; the cycle
		// itself retries EnsureConnected on its next quote call.
		logger.With("main").Warnf("gem_hunter %s: load instruments: %v", agent.ID, err)
	}

	riskEngine := risk.New(risk.Config{
		AllocatedCapital: cfg.AllocatedCapital, StopLossPct: cfg.StopLossPct, TakeProfitPct: cfg.TakeProfitPct,
		MaxHold: time.Duration(cfg.MaxHoldDays * 24 * float64(time.Hour)), MaxPositions: cfg.MaxPositions,
		MaxPositionPct: cfg.MaxPositionPct, KellyMultiplier: cfg.KellyMultiplier, DailyLossLimitPct: cfg.DailyLossLimitPct,
		IsCrypto: false,
	})

	candidates := hunterservice.EquitiesCandidates{Cfg: cfg, Fundamentals: noFundamentals{}}
	svc := hunterservice.New(adapter, gateway, riskEngine, exec, positions, watchlist, candidates, noFundamentals{}, activityLog)

	return &api.AgentRuntime{
		AgentID: agent.ID, Hunter: svc, Params: hunterservice.ParamsFromGem(agent.ID, cfg),
		Gateway: gateway, Adapter: adapter, Executor: exec,
	}, nil
}

// scheduleHunter wires one agent's cycle onto the scheduler, persisting the
// run summary and bumping last_run_at the same way a manual /scan does.
func scheduleHunter(sched *scheduler.Scheduler, agents *store.AgentRepo, runs *store.AgentRunRepo, activityLog *activity.Log, agent models.Agent, rt *api.AgentRuntime) {
	intervalMinutes := 15
	var raw struct {
		ScanIntervalMinutes int `json:"scan_interval_minutes"`
	}
	if config.Decode(agent.Config, &raw) == nil && raw.ScanIntervalMinutes > 0 {
		intervalMinutes = raw.ScanIntervalMinutes
	}

	ctx := context.Background()
	err := sched.AddJob(agent.Name, scheduler.Trigger{IntervalMinutes: intervalMinutes}, func() {
		now := time.Now()
		summary := rt.Hunter.RunCycle(ctx, rt.Params, now)
		run := models.AgentRun{
			ID: agent.ID + "-" + now.Format("20060102T150405"), AgentID: agent.ID, Scanned: summary.Scanned,
			Analysed: summary.Analysed, Added: summary.Added, Executed: summary.Executed, Closed: summary.Closed,
			Errors: summary.Errors, StartedAt: summary.Started, EndedAt: summary.Ended,
		}
		if err := runs.Insert(ctx, agent.ID, run); err != nil {
			activityLog.Errorf(agent.ID, now, "persist agent run: %v", err)
		}
		_ = agents.RecordRun(ctx, agent.ID, now)
	})
	if err != nil {
		logger.With("main").Errorf("schedule %s: %v", agent.Name, err)
	}
}

func recordMetricsSnapshot(ctx context.Context, agents *store.AgentRepo, positions *store.PositionRepo, metricsRepo *store.MetricsRepo) {
	now := time.Now()
	agentList, err := agents.List(ctx, "")
	if err != nil {
		return
	}
	stats, err := positions.TradeStats(ctx)
	if err != nil {
		return
	}
	winRate := 0.0
	if stats.TotalTrades > 0 {
		winRate = float64(stats.Wins) / float64(stats.TotalTrades)
	}

	totalEquity, totalOpen, active := 0.0, 0, 0
	for _, a := range agentList {
		if a.Active {
			active++
		}
		open, err := positions.OpenPositions(ctx, a.ID)
		if err != nil {
			continue
		}
		agentEquity := 0.0
		for _, p := range open {
			agentEquity += p.AllocatedAmount + p.UnrealizedPnL
		}
		totalOpen += len(open)
		totalEquity += agentEquity

		metrics.AgentOpenPositions.WithLabelValues(a.ID).Set(float64(len(open)))
		_ = metricsRepo.RecordAgent(ctx, store.AgentSnapshot{
			AgentID: a.ID, Equity: agentEquity, OpenPositions: len(open), DailyPnL: stats.TotalPnL, WinRate: winRate,
		}, now)
	}
	_ = metricsRepo.RecordSystem(ctx, totalEquity, totalOpen, active, now)
}

// noFundamentals is wired in when no richer fundamentals feed is
// configured; gem_hunter candidates then fall through to the unscreened
// universe and crypto_hunter's composite score drops the fundamental term
// to the neutral default Fundamental() already applies.
type noFundamentals struct{}

func (noFundamentals) Lookup(ctx context.Context, symbol string) (analysis.FundamentalInput, bool) {
	return analysis.FundamentalInput{}, false
}
