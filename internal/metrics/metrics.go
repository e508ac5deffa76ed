// Package metrics exposes a custom Prometheus registry with gauges and
// counters for per-agent trading performance and cycle health, grounded on
// metrics/metrics.go's promauto.With(Registry) package-level vector style,
// renamed from "synapsestrike" to the "hunter" namespace and generalized
// from a single trader_id label to the agent/kind/symbol dimensions this
// spec's multi-agent model needs.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry is the custom Prometheus registry this process serves at
// GET /metrics, distinct from the global default registry so only
// hunter-owned series are exported.
var Registry = prometheus.NewRegistry()

var (
	// AgentPnLTotal tracks realized P&L in USD per agent.
	AgentPnLTotal = promauto.With(Registry).NewGaugeVec(
		prometheus.GaugeOpts{Namespace: "hunter", Subsystem: "agent", Name: "pnl_total", Help: "Realized P&L in USD"},
		[]string{"agent_id", "agent_kind"},
	)

	// AgentEquityTotal tracks allocated-capital-adjusted equity per agent.
	AgentEquityTotal = promauto.With(Registry).NewGaugeVec(
		prometheus.GaugeOpts{Namespace: "hunter", Subsystem: "agent", Name: "equity_total", Help: "Current equity in USD"},
		[]string{"agent_id", "agent_kind"},
	)

	// AgentOpenPositions tracks the count of currently open positions.
	AgentOpenPositions = promauto.With(Registry).NewGaugeVec(
		prometheus.GaugeOpts{Namespace: "hunter", Subsystem: "agent", Name: "open_positions", Help: "Number of currently open positions"},
		[]string{"agent_id"},
	)

	// AgentWinRate tracks the trailing win rate percentage per agent.
	AgentWinRate = promauto.With(Registry).NewGaugeVec(
		prometheus.GaugeOpts{Namespace: "hunter", Subsystem: "agent", Name: "win_rate", Help: "Win rate percentage"},
		[]string{"agent_id"},
	)

	// TradesTotal counts trades by agent and result.
	TradesTotal = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{Namespace: "hunter", Subsystem: "agent", Name: "trades_total", Help: "Total number of trades"},
		[]string{"agent_id", "result"}, // result: win, loss
	)

	// CycleDurationSeconds observes the wall-clock length of one
	// HunterService cycle.
	CycleDurationSeconds = promauto.With(Registry).NewHistogramVec(
		prometheus.HistogramOpts{Namespace: "hunter", Subsystem: "cycle", Name: "duration_seconds", Help: "Cycle duration in seconds", Buckets: prometheus.DefBuckets},
		[]string{"agent_id"},
	)

	// CycleErrorsTotal counts isolated per-asset errors collected into a
	// cycle summary (§7 propagation policy).
	CycleErrorsTotal = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{Namespace: "hunter", Subsystem: "cycle", Name: "errors_total", Help: "Isolated errors observed during a cycle"},
		[]string{"agent_id", "kind"},
	)

	// BrokerRequestDuration observes broker adapter call latency.
	BrokerRequestDuration = promauto.With(Registry).NewHistogramVec(
		prometheus.HistogramOpts{Namespace: "hunter", Subsystem: "broker", Name: "request_duration_seconds", Help: "Broker adapter request latency", Buckets: prometheus.DefBuckets},
		[]string{"exchange", "operation"},
	)

	// BrokerErrorsTotal counts broker adapter failures by classified kind.
	BrokerErrorsTotal = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{Namespace: "hunter", Subsystem: "broker", Name: "errors_total", Help: "Broker adapter errors by kind"},
		[]string{"exchange", "kind"},
	)

	// SchedulerActiveJobs tracks the number of currently scheduled agent jobs.
	SchedulerActiveJobs = promauto.With(Registry).NewGauge(
		prometheus.GaugeOpts{Namespace: "hunter", Subsystem: "scheduler", Name: "active_jobs", Help: "Number of currently scheduled agent jobs"},
	)

	// RegimeCurrent is a 1/0 gauge per regime type, exactly one active at a
	// time (§4.9's four-state machine).
	RegimeCurrent = promauto.With(Registry).NewGaugeVec(
		prometheus.GaugeOpts{Namespace: "hunter", Subsystem: "regime", Name: "current", Help: "1 for the currently active regime, 0 otherwise"},
		[]string{"regime_type"},
	)
)

// SetRegime zeroes every known regime gauge then sets active to 1, so the
// dashboard always reflects exactly one active series.
func SetRegime(active string, all []string) {
	for _, r := range all {
		v := 0.0
		if r == active {
			v = 1.0
		}
		RegimeCurrent.WithLabelValues(r).Set(v)
	}
}
