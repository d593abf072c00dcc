package server

import (
	"fmt"
	"net/http"
	"strings"
	"sync"

	"crypto-desk/src/helpers"
	"crypto-desk/src/interfaces"
	"crypto-desk/src/logger"
	"crypto-desk/src/models"
	"crypto-desk/src/view"

	"github.com/gin-gonic/gin"
)

// -----------------------------------------------------------------------------
// DeskServer
// -----------------------------------------------------------------------------

// DeskServer exposes the rendered dashboard over a small REST API plus a
// websocket push channel. User interactions arrive as REST calls and are
// forwarded to the view controller; every resulting re-render is broadcast
// to all connected clients.
type DeskServer struct {
	Config  *models.MConfig
	Logger  *logger.Logger
	Desk    *view.Desk
	Backend interfaces.IBackendClient
	engine  *gin.Engine

	// WebSocket clients
	clients    map[*Client]struct{}
	broadcast  chan *models.MDeskSnapshot
	register   chan *Client
	unregister chan *Client

	// Local cache of the last rendered state
	latestState *models.MDeskSnapshot
	stateMutex  sync.RWMutex
}

// -----------------------------------------------------------------------------
// Constructor
// -----------------------------------------------------------------------------

func NewDeskServer(cfg *models.MConfig, desk *view.Desk, backend interfaces.IBackendClient, log *logger.Logger) *DeskServer {
	// Set Gin mode
	if !strings.EqualFold(cfg.LogLevel, "DEBUG") {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &DeskServer{
		Config:  cfg,
		Logger:  log,
		Desk:    desk,
		Backend: backend,
		engine:  gin.Default(),
		clients: make(map[*Client]struct{}),
		// Buffered channel so a burst of re-renders never blocks the desk
		broadcast:  make(chan *models.MDeskSnapshot, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}

	// Add CORS Middleware
	s.engine.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if strings.HasPrefix(origin, "http://127.0.0.1:") || strings.HasPrefix(origin, "http://localhost:") {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		}
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	// setup web routes
	s.setupRoutes()
	return s
}

// -----------------------------------------------------------------------------
// Route Setup
// -----------------------------------------------------------------------------

func (s *DeskServer) setupRoutes() {
	// REST API endpoints
	s.engine.GET("/api/panels", s.getPanels)
	s.engine.GET("/api/markets", s.getMarkets)
	s.engine.GET("/api/health", s.getHealth)

	s.engine.POST("/api/market", s.postMarket)
	s.engine.POST("/api/fiat", s.postFiat)
	s.engine.POST("/api/chart-window", s.postChartWindow)
	s.engine.POST("/api/connect", s.postConnect)
	s.engine.POST("/api/session", s.postSession)
	s.engine.POST("/api/signout", s.postSignOut)
	s.engine.POST("/api/orders", s.postOrder)
	s.engine.DELETE("/api/orders", s.deleteOrders)

	// WebSocket endpoint
	s.engine.GET("/ws", s.handleWebSocket)
}

// -----------------------------------------------------------------------------
// Server Lifecycle
// -----------------------------------------------------------------------------

func (s *DeskServer) Start() error {
	addr := fmt.Sprintf("%s:%d", s.Config.Host, s.Config.Port)
	s.Logger.Info("Starting server on %s", addr)

	go s.handleWebsockets()

	return s.engine.Run(addr)
}

// -----------------------------------------------------------------------------

func (s *DeskServer) Stop() error {
	close(s.broadcast)
	close(s.register)
	close(s.unregister)
	return nil
}

// -----------------------------------------------------------------------------
// Route Handlers
// -----------------------------------------------------------------------------

func (s *DeskServer) getPanels(c *gin.Context) {
	s.stateMutex.RLock()
	snap := s.latestState
	s.stateMutex.RUnlock()

	if snap == nil {
		snap = s.Desk.Snapshot()
	}
	c.JSON(http.StatusOK, snap)
}

// -----------------------------------------------------------------------------

func (s *DeskServer) getMarkets(c *gin.Context) {
	c.JSON(http.StatusOK, models.DefaultMarkets)
}

// -----------------------------------------------------------------------------

func (s *DeskServer) getHealth(c *gin.Context) {
	s.stateMutex.RLock()
	connections := len(s.clients)
	var timestamp int64
	if s.latestState != nil {
		timestamp = s.latestState.Timestamp
	}
	s.stateMutex.RUnlock()

	c.JSON(http.StatusOK, gin.H{
		"status":        "ok",
		"connections":   connections,
		"latest_update": timestamp,
	})
}

// -----------------------------------------------------------------------------

func (s *DeskServer) postMarket(c *gin.Context) {
	var req struct {
		ID string `json:"id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s.respond(c, s.Desk.SwitchMarket(c.Request.Context(), req.ID))
}

// -----------------------------------------------------------------------------

func (s *DeskServer) postFiat(c *gin.Context) {
	var req struct {
		Fiat string `json:"fiat" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s.respond(c, s.Desk.SetFiat(c.Request.Context(), req.Fiat))
}

// -----------------------------------------------------------------------------

func (s *DeskServer) postChartWindow(c *gin.Context) {
	var req struct {
		Hours int `json:"hours" binding:"required,gt=0"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s.respond(c, s.Desk.SetChartWindow(c.Request.Context(), req.Hours))
}

// -----------------------------------------------------------------------------

func (s *DeskServer) postConnect(c *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required,email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := s.Desk.Connect(c.Request.Context(), req.Email); err != nil {
		s.respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Magic link sent! Check your email."})
}

// -----------------------------------------------------------------------------

// postSession completes the sign-in: the browser lands here with the access
// token it received from the magic-link redirect.
func (s *DeskServer) postSession(c *gin.Context) {
	var req struct {
		AccessToken string `json:"access_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s.respond(c, s.Backend.SetSession(req.AccessToken))
}

// -----------------------------------------------------------------------------

func (s *DeskServer) postSignOut(c *gin.Context) {
	s.Backend.SignOut()
	c.JSON(http.StatusOK, gin.H{"message": "Signed out"})
}

// -----------------------------------------------------------------------------

func (s *DeskServer) postOrder(c *gin.Context) {
	var req struct {
		Side     string  `json:"side" binding:"required,oneof=buy sell"`
		Asset    string  `json:"asset" binding:"required"`
		Symbol   string  `json:"symbol" binding:"required"`
		Price    float64 `json:"price" binding:"required,gt=0"`
		Quantity float64 `json:"quantity" binding:"required,gt=0"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := s.Desk.SubmitOrder(c.Request.Context(), req.Side, req.Asset, req.Symbol, req.Price, req.Quantity); err != nil {
		s.respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Order placed."})
}

// -----------------------------------------------------------------------------

func (s *DeskServer) deleteOrders(c *gin.Context) {
	if err := s.Desk.CancelAllOrders(c.Request.Context()); err != nil {
		s.respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Orders canceled"})
}

// -----------------------------------------------------------------------------

// respond maps the error taxonomy onto HTTP statuses: validation failures are
// the caller's fault, backend rejections are a bad gateway, success is OK.
func (s *DeskServer) respond(c *gin.Context, err error) {
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"message": "ok"})
	case helpers.IsValidation(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		s.Logger.Error("Request failed: %v", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	}
}
