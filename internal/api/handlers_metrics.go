package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// registerMetricsRoutes mounts the dashboard's historical-metrics surface,
// backed by the agent_metrics/system_metrics rollup tables the scheduler
// fills in on a timer.
func (s *Server) registerMetricsRoutes(api *gin.RouterGroup) {
	m := api.Group("/metrics")
	m.GET("/dashboard", s.handleMetricsDashboard)
	m.GET("/pnl-chart", s.handlePnLChart)
	m.GET("/trades-by-type", s.handleTradesByType)
	m.GET("/agent/:id", s.handleAgentMetricHistory)
	m.GET("/system", s.handleSystemMetricHistory)
}

// handleMetricsDashboard assembles the single-screen summary the UI polls:
// per-agent snapshot plus system-wide totals, computed live rather than
// from the rollup tables so it always reflects the current state.
func (s *Server) handleMetricsDashboard(c *gin.Context) {
	ctx := c.Request.Context()
	agents, err := s.Agents.List(ctx, "")
	if err != nil {
		respondError(c, err)
		return
	}
	stats, err := s.Positions.TradeStats(ctx)
	if err != nil {
		respondError(c, err)
		return
	}
	openPositions, err := s.Positions.AllOpenPositions(ctx)
	if err != nil {
		respondError(c, err)
		return
	}

	activeAgents := 0
	for _, a := range agents {
		if a.Active {
			activeAgents++
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"agents":             agents,
		"active_agents":      activeAgents,
		"open_positions":     len(openPositions),
		"total_trades":       stats.TotalTrades,
		"total_pnl":          stats.TotalPnL,
		"regime":             s.Regime.Current(),
		"scheduler":          s.Scheduler.Status(),
	})
}

func (s *Server) handlePnLChart(c *gin.Context) {
	days := atoiOr(c.Query("days"), 30)
	points, err := s.Positions.PnLByDay(c.Request.Context(), days)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"days": points})
}

func (s *Server) handleTradesByType(c *gin.Context) {
	breakdown, err := s.Positions.TradesByType(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"trades_by_type": breakdown})
}

func (s *Server) handleAgentMetricHistory(c *gin.Context) {
	hours := atoiOr(c.Query("hours"), 24)
	since := time.Now().Add(-time.Duration(hours) * time.Hour)
	points, err := s.MetricsRepo.AgentHistory(c.Request.Context(), c.Param("id"), since)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"points": points})
}

func (s *Server) handleSystemMetricHistory(c *gin.Context) {
	hours := atoiOr(c.Query("hours"), 24)
	since := time.Now().Add(-time.Duration(hours) * time.Hour)
	points, err := s.MetricsRepo.SystemHistory(c.Request.Context(), since)
	if err != nil {
		respondError(c, err)
		return
	}
	// metric_name selects which series the chart renders; the rollup
	// table only distinguishes equity/positions/agents so we echo the
	// requested name back alongside the full snapshot rows.
	c.JSON(http.StatusOK, gin.H{"metric_name": c.Query("metric_name"), "points": points})
}
