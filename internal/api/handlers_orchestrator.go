package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"hunter/internal/models"
)

// registerOrchestratorRoutes mounts the market-regime state machine, the
// options-recommendation approval gate, and the manual run/shutdown
// controls §6 groups under /orchestrator.
func (s *Server) registerOrchestratorRoutes(api *gin.RouterGroup) {
	o := api.Group("/orchestrator")
	o.GET("/market-hours", s.handleMarketHours)
	o.GET("/regime", s.handleCurrentRegime)
	o.GET("/status", s.handleOrchestratorStatus)

	recs := o.Group("/recommendations")
	recs.GET("", s.handleListRecommendations)
	recs.GET("/:id", s.handleGetRecommendation)

	protected := o.Group("")
	protected.Use(s.requireAuth())
	protected.POST("/regime/:type", s.handleTransitionRegime)
	protected.POST("/execute", s.handleOrchestratorExecute)
	protected.POST("/shutdown", s.handleOrchestratorShutdown)
	protected.POST("/analyze", s.handleOrchestratorAnalyze)
	protectedRecs := protected.Group("/recommendations")
	protectedRecs.POST("/:id/approve", s.handleApproveRecommendation)
	protectedRecs.POST("/:id/reject", s.handleRejectRecommendation)
	protectedRecs.POST("/:id/execute", s.handleExecuteRecommendation)
}

func (s *Server) handleMarketHours(c *gin.Context) {
	c.JSON(http.StatusOK, marketHoursSnapshot(time.Now()))
}

func (s *Server) handleCurrentRegime(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"current": s.Regime.Current(), "history": s.Regime.History()})
}

func (s *Server) handleOrchestratorStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"regime":       s.Regime.Current(),
		"scheduler":    s.Scheduler.Status(),
		"market_hours": marketHoursSnapshot(time.Now()),
	})
}

// handleTransitionRegime drives the regime state machine's manual override
// (§4's regime controller, normally driven by Classify on a schedule).
func (s *Server) handleTransitionRegime(c *gin.Context) {
	target := models.RegimeType(c.Param("type"))
	qqqPrice := atofOr(c.Query("qqq_price"), 0)

	var recoveryStrike *float64
	if raw := c.Query("recovery_strike"); raw != "" {
		v := atofOr(raw, 0)
		recoveryStrike = &v
	}

	now := time.Now()
	action := s.Regime.TransitionTo(target, qqqPrice, recoveryStrike, now)

	current := s.Regime.Current()
	if current != nil {
		if err := s.RegimeRepo.Insert(c.Request.Context(), *current); err != nil {
			respondError(c, err)
			return
		}
	}
	s.Hub.Broadcast(FrameRegimeChange, gin.H{"regime": current, "action": action})
	c.JSON(http.StatusOK, gin.H{"regime": current, "action": action})
}

// handleOrchestratorExecute runs one immediate cycle on every configured
// hunter runtime, outside its scheduled cadence.
func (s *Server) handleOrchestratorExecute(c *gin.Context) {
	now := time.Now()
	summaries := gin.H{}
	for name, rt := range map[string]*AgentRuntime{"crypto": s.CryptoRuntime, "gem_hunter": s.GemRuntime} {
		if rt == nil {
			continue
		}
		summary := rt.Hunter.RunCycle(c.Request.Context(), rt.Params, now)
		summaries[name] = summary
	}
	c.JSON(http.StatusOK, gin.H{"summaries": summaries})
}

func (s *Server) handleOrchestratorShutdown(c *gin.Context) {
	s.Scheduler.Stop()
	c.JSON(http.StatusOK, gin.H{"message": "scheduler stopped"})
}

// handleOrchestratorAnalyze surfaces the current regime and market-hours
// read without placing any orders; the full VIX/QQQ feed that would drive
// Regime.Classify lives behind the broker routes, not here.
func (s *Server) handleOrchestratorAnalyze(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"regime":       s.Regime.Current(),
		"market_hours": marketHoursSnapshot(time.Now()),
	})
}

func (s *Server) handleListRecommendations(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"recommendations": s.Recommendations.List()})
}

func (s *Server) handleGetRecommendation(c *gin.Context) {
	rec, err := s.Recommendations.Get(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (s *Server) handleApproveRecommendation(c *gin.Context) {
	rec, err := s.Recommendations.Approve(c.Param("id"), time.Now())
	if err != nil {
		respondError(c, err)
		return
	}
	s.persistRecommendation(c, *rec)
	c.JSON(http.StatusOK, rec)
}

func (s *Server) handleRejectRecommendation(c *gin.Context) {
	var req struct {
		Reason string `json:"reason"`
	}
	_ = c.ShouldBindJSON(&req)
	rec, err := s.Recommendations.Reject(c.Param("id"), req.Reason, time.Now())
	if err != nil {
		respondError(c, err)
		return
	}
	s.persistRecommendation(c, *rec)
	c.JSON(http.StatusOK, rec)
}

// handleExecuteRecommendation marks an approved recommendation executed.
// Placing the actual options order happens on the broker surface; this
// records the fill against the recommendation once the caller has one.
func (s *Server) handleExecuteRecommendation(c *gin.Context) {
	var req struct {
		OrderID        string  `json:"order_id" binding:"required"`
		ExecutionPrice float64 `json:"execution_price"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	rec, err := s.Recommendations.Execute(c.Param("id"), req.OrderID, req.ExecutionPrice, time.Now())
	if err != nil {
		respondError(c, err)
		return
	}
	s.persistRecommendation(c, *rec)
	c.JSON(http.StatusOK, rec)
}

func (s *Server) persistRecommendation(c *gin.Context, rec models.Recommendation) {
	if err := s.RecommendRepo.Save(c.Request.Context(), rec); err != nil {
		s.ActivityLog.Errorf("orchestrator", time.Now(), "persist recommendation %s: %v", rec.ID, err)
	}
}

// newRecommendationID returns a fresh random (uuid) recommendation id. No
// route calls it.
func newRecommendationID() string { return uuid.New().String() }
