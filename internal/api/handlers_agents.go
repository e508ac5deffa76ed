package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"hunter/internal/config"
	"hunter/internal/models"
)

func (s *Server) registerAgentRoutes(api *gin.RouterGroup) {
	agents := api.Group("/agents")
	agents.GET("", s.handleListAgents)
	agents.GET("/:id", s.handleGetAgent)
	agents.GET("/:id/runs", s.handleAgentRuns)
	agents.GET("/:id/activities", s.handleAgentActivities)
	agents.GET("/activities/all", s.handleAllActivities)

	protected := agents.Group("")
	protected.Use(s.requireAuth())
	protected.POST("", s.handleCreateAgent)
	protected.PATCH("/:id", s.handleUpdateAgent)
	protected.POST("/:id/start", s.handleAgentLifecycle(models.AgentRunning, true))
	protected.POST("/:id/stop", s.handleAgentLifecycle(models.AgentStopped, false))
	protected.POST("/:id/pause", s.handleAgentLifecycle(models.AgentPaused, false))
}

func (s *Server) handleListAgents(c *gin.Context) {
	kind := models.AgentKind(c.Query("kind"))
	list, err := s.Agents.List(c.Request.Context(), kind)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"agents": list})
}

func (s *Server) handleGetAgent(c *gin.Context) {
	agent, err := s.Agents.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, agent)
}

func (s *Server) handleCreateAgent(c *gin.Context) {
	var req struct {
		Name   string          `json:"name" binding:"required"`
		Kind   models.AgentKind `json:"kind" binding:"required"`
		Config string          `json:"config"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Config == "" {
		req.Config = defaultConfigFor(req.Kind)
	}

	now := time.Now()
	agent := models.Agent{
		ID:        uuid.New().String(),
		Name:      req.Name,
		Kind:      req.Kind,
		Status:    models.AgentIdle,
		Active:    false,
		Config:    req.Config,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.Agents.Create(c.Request.Context(), agent); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, agent)
}

func defaultConfigFor(kind models.AgentKind) string {
	var raw []byte
	switch kind {
	case models.KindCryptoHunter:
		raw, _ = marshalIndent(config.DefaultCryptoHunterConfig())
	case models.KindGemHunter:
		raw, _ = marshalIndent(config.DefaultGemHunterConfig())
	default:
		raw, _ = marshalIndent(config.DefaultOrchestratorConfig())
	}
	return string(raw)
}

func (s *Server) handleUpdateAgent(c *gin.Context) {
	var req struct {
		Name   string `json:"name"`
		Config string `json:"config"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	id := c.Param("id")
	existing, err := s.Agents.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	if req.Name == "" {
		req.Name = existing.Name
	}
	if req.Config == "" {
		req.Config = existing.Config
	}
	if err := s.Agents.UpdateConfig(c.Request.Context(), id, req.Name, req.Config, time.Now()); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "updated"})
}

// handleAgentLifecycle returns a handler that sets an agent's status and
// active flag, then broadcasts the change over the websocket hub.
func (s *Server) handleAgentLifecycle(status models.AgentStatus, active bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		now := time.Now()
		if err := s.Agents.UpdateStatus(c.Request.Context(), id, status, "", now); err != nil {
			respondError(c, err)
			return
		}
		if err := s.Agents.SetActive(c.Request.Context(), id, active, now); err != nil {
			respondError(c, err)
			return
		}
		s.Hub.Broadcast(FrameAgentUpdate, gin.H{"agent_id": id, "status": status, "active": active})
		c.JSON(http.StatusOK, gin.H{"agent_id": id, "status": status, "active": active})
	}
}

func (s *Server) handleAgentRuns(c *gin.Context) {
	runs, err := s.Runs.ForAgent(c.Request.Context(), c.Param("id"), queryLimit(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

func (s *Server) handleAgentActivities(c *gin.Context) {
	limit := queryLimit(c)
	agentID := c.Param("id")
	items := s.ActivityLog.ForAgent(agentID, limit)
	if len(items) == 0 {
		persisted, err := s.ActivityRepo.ForAgent(c.Request.Context(), agentID, limit)
		if err == nil {
			items = persisted
		}
	}
	c.JSON(http.StatusOK, gin.H{"activities": items})
}

func (s *Server) handleAllActivities(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"activities": s.ActivityLog.All(queryLimit(c))})
}

func queryLimit(c *gin.Context) int {
	return atoiOr(c.Query("limit"), 0)
}
