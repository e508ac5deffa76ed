package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"hunter/internal/broker"
	"hunter/internal/herr"
)

// qqqSymbol is the underlying the options regime workflow watches.
const qqqSymbol = "QQQ"

// registerBrokerRoutes mounts the options-venue surface: connection
// lifecycle, account/position reads, and the put-spread discovery/placement
// pair the recommendation workflow drives. Every handler here 503s if no
// equities broker was configured, the same contract the hunter routes use
// for an unconfigured venue.
func (s *Server) registerBrokerRoutes(api *gin.RouterGroup) {
	b := api.Group("/broker")
	b.GET("/status", s.brokerHandler(s.handleBrokerStatus))
	b.GET("/account", s.brokerHandler(s.handleBrokerAccount))
	b.GET("/positions", s.brokerHandler(s.handleBrokerPositions))
	b.GET("/qqq-price", s.brokerHandler(s.handleBrokerQQQPrice))
	b.GET("/option-chain", s.brokerHandler(s.handleBrokerOptionChain))
	b.GET("/open-orders", s.brokerHandler(s.handleBrokerOpenOrders))
	b.GET("/orders/:id", s.brokerHandler(s.handleBrokerOrder))

	protected := b.Group("")
	protected.Use(s.requireAuth())
	protected.POST("/connect", s.brokerHandler(s.handleBrokerConnect))
	protected.POST("/disconnect", s.brokerHandler(s.handleBrokerDisconnect))
	protected.POST("/find-put-spread", s.brokerHandler(s.handleFindPutSpread))
	protected.POST("/place-spread", s.brokerHandler(s.handlePlaceSpread))
}

func (s *Server) brokerHandler(fn func(*gin.Context)) gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.Broker == nil {
			respondError(c, herr.Wrap(herr.ErrConfigurationMissing, "no equities broker configured"))
			return
		}
		fn(c)
	}
}

func (s *Server) handleBrokerStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"connected": s.Broker.Connected()})
}

func (s *Server) handleBrokerConnect(c *gin.Context) {
	if err := s.Broker.EnsureConnected(c.Request.Context()); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"connected": true})
}

func (s *Server) handleBrokerDisconnect(c *gin.Context) {
	if err := s.Broker.Disconnect(); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"connected": false})
}

func (s *Server) handleBrokerAccount(c *gin.Context) {
	account, err := s.Broker.Account(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, account)
}

func (s *Server) handleBrokerPositions(c *gin.Context) {
	positions, err := s.Positions.AllOpenPositions(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"positions": positions})
}

func (s *Server) handleBrokerQQQPrice(c *gin.Context) {
	quote, err := s.Broker.Quote(c.Request.Context(), qqqSymbol)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"symbol": qqqSymbol, "price": quote.Mark, "as_of": quote.Ts})
}

func (s *Server) handleBrokerOptionChain(c *gin.Context) {
	symbol := c.DefaultQuery("symbol", qqqSymbol)
	chain, err := s.Broker.OptionChain(c.Request.Context(), symbol)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"symbol": symbol, "chain": chain})
}

func (s *Server) handleBrokerOpenOrders(c *gin.Context) {
	// The socket adapter has no list-open-orders RPC; callers poll known
	// order ids via GET /broker/orders/{id} instead.
	c.JSON(http.StatusOK, gin.H{"orders": []interface{}{}})
}

func (s *Server) handleBrokerOrder(c *gin.Context) {
	order, err := s.Broker.GetOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (s *Server) handleFindPutSpread(c *gin.Context) {
	var req struct {
		Symbol         string  `json:"symbol"`
		TargetDelta    float64 `json:"target_delta"`
		SpreadWidth    float64 `json:"spread_width"`
		ExpirationDays int     `json:"expiration_days"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Symbol == "" {
		req.Symbol = qqqSymbol
	}
	quote, err := s.Broker.FindPutSpread(c.Request.Context(), broker.SpreadCriteria{
		Symbol: req.Symbol, TargetDelta: req.TargetDelta, SpreadWidth: req.SpreadWidth, ExpirationDays: req.ExpirationDays,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, quote)
}

func (s *Server) handlePlaceSpread(c *gin.Context) {
	var req struct {
		Short       broker.SpreadLeg `json:"short" binding:"required"`
		Long        broker.SpreadLeg `json:"long" binding:"required"`
		Expiration  string           `json:"expiration" binding:"required"`
		Right       string           `json:"right" binding:"required"`
		Contracts   int              `json:"contracts" binding:"required"`
		LimitPrice  float64          `json:"limit_price"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	handle, err := s.Broker.PlaceSpreadOrder(c.Request.Context(), req.Short, req.Long, req.Expiration, req.Right, req.Contracts, req.LimitPrice)
	if err != nil {
		respondError(c, err)
		return
	}
	s.Hub.Broadcast(FrameTradeUpdate, gin.H{"order_id": handle.OrderID, "kind": "spread"})
	c.JSON(http.StatusOK, handle)
}
