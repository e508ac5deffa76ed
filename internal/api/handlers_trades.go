package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"hunter/internal/herr"
	"hunter/internal/models"
)

// registerTradeRoutes mounts the dashboard-wide trade views: these read
// across every agent, unlike the per-agent history under /agents/{id}.
func (s *Server) registerTradeRoutes(api *gin.RouterGroup) {
	trades := api.Group("/trades")
	trades.GET("", s.handleListTrades)
	trades.GET("/open", s.handleOpenTrades)
	trades.GET("/stats", s.handleTradeStats)

	protected := trades.Group("")
	protected.Use(s.requireAuth())
	protected.POST("", s.handleRecordTrade)
	protected.POST("/:id/close", s.handleCloseTrade)
}

func (s *Server) handleListTrades(c *gin.Context) {
	trades, err := s.Positions.AllTrades(c.Request.Context(), queryLimit(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"trades": trades})
}

func (s *Server) handleOpenTrades(c *gin.Context) {
	positions, err := s.Positions.AllOpenPositions(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"positions": positions})
}

func (s *Server) handleTradeStats(c *gin.Context) {
	stats, err := s.Positions.TradeStats(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	winRate := 0.0
	if stats.TotalTrades > 0 {
		winRate = float64(stats.Wins) / float64(stats.TotalTrades)
	}
	c.JSON(http.StatusOK, gin.H{
		"total_trades": stats.TotalTrades,
		"wins":         stats.Wins,
		"losses":       stats.Losses,
		"total_pnl":    stats.TotalPnL,
		"win_rate":     winRate,
	})
}

// handleRecordTrade inserts a manual fill record (not driven by a hunter
// cycle) — used to reconcile history for trades placed outside the agents,
// e.g. a manual options spread fill.
func (s *Server) handleRecordTrade(c *gin.Context) {
	var req struct {
		AgentID    string           `json:"agent_id" binding:"required"`
		PositionID string           `json:"position_id"`
		Symbol     string           `json:"symbol" binding:"required"`
		Side       models.TradeSide `json:"side" binding:"required"`
		Quantity   float64          `json:"quantity" binding:"required"`
		Price      float64          `json:"price" binding:"required"`
		Fees       float64          `json:"fees"`
		OrderID    string           `json:"order_id"`
		OrderType  models.OrderType `json:"order_type"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.OrderType == "" {
		req.OrderType = models.OrderMarket
	}

	trade := models.Trade{
		ID:         uuid.New().String(),
		AgentID:    req.AgentID,
		PositionID: req.PositionID,
		Symbol:     req.Symbol,
		Side:       req.Side,
		Quantity:   req.Quantity,
		Price:      req.Price,
		Notional:   req.Quantity * req.Price,
		Fees:       req.Fees,
		OrderID:    req.OrderID,
		OrderType:  req.OrderType,
		Status:     "filled",
		ExecutedAt: time.Now(),
	}
	if err := s.Positions.InsertTrade(c.Request.Context(), trade); err != nil {
		respondError(c, err)
		return
	}
	s.Hub.Broadcast(FrameTradeUpdate, trade)
	c.JSON(http.StatusOK, trade)
}

// handleCloseTrade closes the open position whose id is the route's :id and records
// the realized fill, keeping the positions/trades tables in sync the way
// the hunter service's own exit path does.
func (s *Server) handleCloseTrade(c *gin.Context) {
	id := c.Param("id")
	pnl := atofOr(c.Query("pnl"), 0)
	exitPrice := atofOr(c.Query("exit_price"), 0)

	position, err := s.Positions.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	if !position.IsOpen() {
		respondError(c, herr.Wrap(herr.ErrInvariantViolation, "position %s is not open", id))
		return
	}

	now := time.Now()
	if exitPrice == 0 {
		exitPrice = position.CurrentPrice
	}
	position.Status = models.PositionClosed
	position.ExitReason = models.ExitManual
	position.ExitPrice = &exitPrice
	position.RealizedPnL = pnl
	position.UnrealizedPnL = 0
	position.ClosedAt = &now
	if err := s.Positions.SavePosition(c.Request.Context(), position); err != nil {
		respondError(c, err)
		return
	}

	trade := models.Trade{
		ID:         uuid.New().String(),
		AgentID:    position.AgentID,
		PositionID: position.ID,
		Symbol:     position.Symbol,
		Side:       models.TradeSell,
		Quantity:   position.Quantity,
		Price:      exitPrice,
		Notional:   position.Quantity * exitPrice,
		OrderType:  models.OrderMarket,
		Status:     "filled",
		PnL:        &pnl,
		ExecutedAt: now,
	}
	if err := s.Positions.InsertTrade(c.Request.Context(), trade); err != nil {
		respondError(c, err)
		return
	}

	s.ActivityLog.Record(position.AgentID, models.ActivityPositionClosed, "position closed manually", "", now)
	s.Hub.Broadcast(FrameTradeUpdate, trade)
	c.JSON(http.StatusOK, gin.H{"position": position, "trade": trade})
}
