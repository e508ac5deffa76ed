package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"hunter/internal/broker"
	"hunter/internal/herr"
	"hunter/internal/models"
)

// registerHunterRoutes mounts one hunter-control surface. Called twice from
// NewServer — once under /crypto against CryptoRuntime, once under
// /gem-hunter against GemRuntime — so both venues share this one handler
// set (§6: "/gem-hunter/* mirrors the crypto hunter surface for equities").
func (s *Server) registerHunterRoutes(group *gin.RouterGroup, runtime func() *AgentRuntime) {
	group.GET("/status", s.hunterHandler(runtime, s.handleHunterStatus))
	group.GET("/account", s.hunterHandler(runtime, s.handleHunterAccount))
	group.GET("/holdings", s.hunterHandler(runtime, s.handleHunterHoldings))
	group.GET("/state", s.hunterHandler(runtime, s.handleHunterState))
	group.GET("/watchlist", s.hunterHandler(runtime, s.handleHunterWatchlist))
	group.GET("/positions", s.hunterHandler(runtime, s.handleHunterPositions))
	group.GET("/history", s.hunterHandler(runtime, s.handleHunterHistory))
	group.GET("/quotes", s.hunterHandler(runtime, s.handleHunterQuotes))
	group.GET("/quotes/:symbol", s.hunterHandler(runtime, s.handleHunterQuote))
	group.GET("/pairs", s.hunterHandler(runtime, s.handleHunterPairs))
	group.GET("/orders/:id", s.hunterHandler(runtime, s.handleHunterOrder))

	protected := group.Group("")
	protected.Use(s.requireAuth())
	protected.POST("/scan", s.hunterHandler(runtime, s.handleHunterScan))
	protected.POST("/watchlist/add", s.hunterHandler(runtime, s.handleHunterWatchlistAdd))
	protected.POST("/watchlist/:symbol/remove", s.hunterHandler(runtime, s.handleHunterWatchlistRemove))
	protected.POST("/positions/:id/close", s.hunterHandler(runtime, s.handleHunterPositionClose))
	protected.POST("/orders", s.hunterHandler(runtime, s.handleHunterPlaceOrder))
}

// hunterHandler resolves the venue's runtime once per request and 503s if
// it hasn't been configured — a gem_hunter deployment with no equities
// agent wired up still serves a coherent error instead of a nil panic.
func (s *Server) hunterHandler(runtime func() *AgentRuntime, fn func(*gin.Context, *AgentRuntime)) gin.HandlerFunc {
	return func(c *gin.Context) {
		rt := runtime()
		if rt == nil {
			respondError(c, herr.Wrap(herr.ErrConfigurationMissing, "no agent configured for this venue"))
			return
		}
		fn(c, rt)
	}
}

func (s *Server) handleHunterStatus(c *gin.Context, rt *AgentRuntime) {
	agent, err := s.Agents.Get(c.Request.Context(), rt.AgentID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, agent)
}

func (s *Server) handleHunterAccount(c *gin.Context, rt *AgentRuntime) {
	account, err := rt.Adapter.Account(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, account)
}

func (s *Server) handleHunterHoldings(c *gin.Context, rt *AgentRuntime) {
	holdings, err := rt.Adapter.Holdings(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"holdings": holdings})
}

func (s *Server) handleHunterState(c *gin.Context, rt *AgentRuntime) {
	agent, err := s.Agents.Get(c.Request.Context(), rt.AgentID)
	if err != nil {
		respondError(c, err)
		return
	}
	runs, err := s.Runs.ForAgent(c.Request.Context(), rt.AgentID, 1)
	if err != nil {
		respondError(c, err)
		return
	}
	var lastRun *models.AgentRun
	if len(runs) > 0 {
		lastRun = &runs[0]
	}
	c.JSON(http.StatusOK, gin.H{"agent": agent, "params": rt.Params, "last_run": lastRun})
}

func (s *Server) handleHunterWatchlist(c *gin.Context, rt *AgentRuntime) {
	items, err := s.Watchlist.Watchlist(c.Request.Context(), rt.AgentID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"watchlist": items})
}

func (s *Server) handleHunterPositions(c *gin.Context, rt *AgentRuntime) {
	items, err := s.Positions.OpenPositions(c.Request.Context(), rt.AgentID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"positions": items})
}

func (s *Server) handleHunterHistory(c *gin.Context, rt *AgentRuntime) {
	trades, err := s.Positions.TradesForAgent(c.Request.Context(), rt.AgentID, queryLimit(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"trades": trades})
}

// handleHunterScan runs one cycle immediately, outside the scheduler's
// cadence, and records it the same way a scheduled tick would.
func (s *Server) handleHunterScan(c *gin.Context, rt *AgentRuntime) {
	now := time.Now()
	summary := rt.Hunter.RunCycle(c.Request.Context(), rt.Params, now)
	run := models.AgentRun{
		ID: uuid.New().String(), AgentID: rt.AgentID, Scanned: summary.Scanned, Analysed: summary.Analysed,
		Added: summary.Added, Executed: summary.Executed, Closed: summary.Closed, Errors: summary.Errors,
		StartedAt: summary.Started, EndedAt: summary.Ended,
	}
	if err := s.Runs.Insert(c.Request.Context(), rt.AgentID, run); err != nil {
		s.ActivityLog.Errorf(rt.AgentID, now, "record agent run: %v", err)
	}
	_ = s.Agents.RecordRun(c.Request.Context(), rt.AgentID, now)
	c.JSON(http.StatusOK, summary)
}

// handleHunterWatchlistAdd manually adds a symbol to the watchlist,
// bypassing the cycle's scoring step.
func (s *Server) handleHunterWatchlistAdd(c *gin.Context, rt *AgentRuntime) {
	var req struct {
		Symbol     string  `json:"symbol" binding:"required"`
		EntryPrice float64 `json:"entry_price"`
		StopLoss   float64 `json:"stop_loss"`
		TargetPrice float64 `json:"target_price"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	now := time.Now()
	w := models.Watchlist{
		ID: uuid.New().String(), AgentID: rt.AgentID, Symbol: req.Symbol,
		EntryPrice: req.EntryPrice, StopLoss: req.StopLoss, TargetPrice: req.TargetPrice,
		EntryTrigger: models.TriggerManual, Status: models.WatchWatching,
		CreatedAt: now, UpdatedAt: now,
	}
	if err := s.Watchlist.UpsertWatchlist(c.Request.Context(), w); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, w)
}

func (s *Server) handleHunterWatchlistRemove(c *gin.Context, rt *AgentRuntime) {
	symbol := c.Param("symbol")
	items, err := s.Watchlist.Watchlist(c.Request.Context(), rt.AgentID)
	if err != nil {
		respondError(c, err)
		return
	}
	now := time.Now()
	for _, w := range items {
		if w.Symbol != symbol {
			continue
		}
		w.Status = models.WatchRemoved
		w.UpdatedAt = now
		if err := s.Watchlist.UpsertWatchlist(c.Request.Context(), w); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "removed", "symbol": symbol})
		return
	}
	respondError(c, herr.Wrap(herr.ErrNotFound, "%s is not on the watchlist", symbol))
}

// handleHunterPositionClose exits a position through the executor directly
// rather than approximating the fill the way the dashboard-wide
// /trades/{id}/close shortcut does.
func (s *Server) handleHunterPositionClose(c *gin.Context, rt *AgentRuntime) {
	position, err := s.Positions.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	if position.AgentID != rt.AgentID {
		respondError(c, herr.Wrap(herr.ErrNotFound, "position %s does not belong to this agent", position.ID))
		return
	}
	if !position.IsOpen() {
		respondError(c, herr.Wrap(herr.ErrInvariantViolation, "position %s is not open", position.ID))
		return
	}

	quote, err := rt.Adapter.Quote(c.Request.Context(), position.Symbol)
	if err != nil {
		respondError(c, err)
		return
	}
	result := rt.Executor.ExitPosition(c.Request.Context(), position.Symbol, position.Quantity, quote.Mark, string(models.ExitManual), rt.Params.ExecOptions)
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleHunterQuotes(c *gin.Context, rt *AgentRuntime) {
	symbols := c.QueryArray("symbol")
	quotes, err := rt.Adapter.Quotes(c.Request.Context(), symbols)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"quotes": quotes})
}

func (s *Server) handleHunterQuote(c *gin.Context, rt *AgentRuntime) {
	quote, err := rt.Adapter.Quote(c.Request.Context(), c.Param("symbol"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, quote)
}

func (s *Server) handleHunterPairs(c *gin.Context, rt *AgentRuntime) {
	instruments, err := rt.Adapter.Instruments(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"pairs": instruments})
}

func (s *Server) handleHunterOrder(c *gin.Context, rt *AgentRuntime) {
	order, err := rt.Adapter.GetOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (s *Server) handleHunterPlaceOrder(c *gin.Context, rt *AgentRuntime) {
	var req struct {
		Symbol string  `json:"symbol" binding:"required"`
		Side   string  `json:"side" binding:"required"`
		Qty    float64 `json:"qty" binding:"required"`
		Type   string  `json:"type"`
		Limit  float64 `json:"limit_price"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	orderType := broker.Market
	if req.Type == string(broker.Limit) {
		orderType = broker.Limit
	}
	side := broker.Buy
	if req.Side == string(broker.Sell) {
		side = broker.Sell
	}

	handle, err := rt.Adapter.PlaceOrder(c.Request.Context(), broker.OrderRequest{
		Symbol: req.Symbol, Side: side, Type: orderType, Qty: req.Qty, LimitPrice: req.Limit,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handle)
}
