// Package server exposes the risk core over a JSON HTTP API.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/RiskAgent/internal/analysis/market"
	"github.com/Alias1177/RiskAgent/internal/database"
	"github.com/Alias1177/RiskAgent/internal/model"
	"github.com/Alias1177/RiskAgent/internal/trading/risk"
)

const (
	defaultListLimit = 20
	maxListLimit     = 200
)

// RiskEvaluator produces a risk plan for a trade idea
type RiskEvaluator interface {
	Evaluate(ctx context.Context, req risk.Request) (*model.RiskManagementResult, error)
}

// TradeEvaluator recommends an action for an open position
type TradeEvaluator interface {
	EvaluateWithCandles(trade model.OpenTradeContext, candles []model.Candle) model.TradeManagementDecision
}

// Config holds server settings
type Config struct {
	Addr        string
	CandleCount int // candles fetched when a request carries none
}

// Server wires the HTTP routes to the risk and trade managers
type Server struct {
	config     Config
	risk       RiskEvaluator
	trades     TradeEvaluator
	journal    database.Journal
	candles    market.CandleProvider // optional
	router     *gin.Engine
	httpServer *http.Server
	logger     zerolog.Logger
}

// New creates a server; candles may be nil, then requests must carry their own history
func New(cfg Config, riskEval RiskEvaluator, tradeEval TradeEvaluator, journal database.Journal, candles market.CandleProvider) *Server {
	if cfg.CandleCount <= 0 {
		cfg.CandleCount = 100
	}

	gin.SetMode(gin.ReleaseMode)
	s := &Server{
		config:  cfg,
		risk:    riskEval,
		trades:  tradeEval,
		journal: journal,
		candles: candles,
		router:  gin.New(),
		logger:  log.With().Str("component", "http_server").Logger(),
	}
	s.router.Use(gin.Recovery(), s.requestLogger())
	s.setupRoutes()
	return s
}

// Handler returns the routed handler, used by tests
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	v1 := s.router.Group("/api/v1")
	{
		v1.POST("/risk/evaluate", s.handleEvaluateRisk)
		v1.GET("/evaluations", s.handleListEvaluations)

		v1.POST("/trades", s.handleOpenTrade)
		v1.GET("/trades", s.handleListTrades)
		v1.POST("/trades/evaluate", s.handleEvaluateTrade)
	}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug().
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("Request handled")
	}
}

// Start runs the HTTP server until Shutdown
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:         s.config.Addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info().Str("addr", s.config.Addr).Msg("Starting HTTP server")

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("Shutting down HTTP server")
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().UTC(),
	})
}

func (s *Server) handleEvaluateRisk(c *gin.Context) {
	var req risk.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	if d, err := model.ParseDirection(string(req.Direction)); err == nil {
		req.Direction = d
	}

	if len(req.Candles) == 0 && s.candles != nil && req.Symbol != "" {
		candles, err := s.candles.GetCandles(c.Request.Context(), req.Symbol, req.Timeframe, s.config.CandleCount)
		if err != nil {
			s.logger.Error().Err(err).Str("symbol", req.Symbol).Msg("Fetching candles failed")
			errorResponse(c, http.StatusBadGateway, "market data unavailable")
			return
		}
		req.Candles = candles
	}

	result, err := s.risk.Evaluate(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, risk.ErrInvalidRequest) || errors.Is(err, risk.ErrInvalidNumeric) {
			errorResponse(c, http.StatusUnprocessableEntity, err.Error())
			return
		}
		s.logger.Error().Err(err).Msg("Risk evaluation failed")
		errorResponse(c, http.StatusInternalServerError, "evaluation failed")
		return
	}

	if err := s.journal.SaveEvaluation(c.Request.Context(), result); err != nil {
		// The plan is still valid; only the audit trail is missing
		s.logger.Error().Err(err).Str("id", result.ID).Msg("Saving evaluation failed")
	}

	successResponse(c, result)
}

func (s *Server) handleListEvaluations(c *gin.Context) {
	limit := defaultListLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			errorResponse(c, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxListLimit)
	}

	results, err := s.journal.ListEvaluations(c.Request.Context(), c.Query("symbol"), limit)
	if err != nil {
		s.logger.Error().Err(err).Msg("Listing evaluations failed")
		errorResponse(c, http.StatusInternalServerError, "journal unavailable")
		return
	}
	if results == nil {
		results = []model.RiskManagementResult{}
	}
	successResponse(c, results)
}

type openTradeRequest struct {
	ID             string          `json:"id"`
	Symbol         string          `json:"symbol" binding:"required"`
	Timeframe      string          `json:"timeframe"`
	Direction      model.Direction `json:"direction" binding:"required"`
	EntryPrice     float64         `json:"entry_price" binding:"required,gt=0"`
	StopLoss       float64         `json:"stop_loss"`
	TakeProfit     float64         `json:"take_profit"`
	PositionSize   float64         `json:"position_size" binding:"required,gt=0"`
	AccountBalance float64         `json:"account_balance"`
	OpenedAt       time.Time       `json:"opened_at"`
}

func (s *Server) handleOpenTrade(c *gin.Context) {
	var req openTradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	direction, err := model.ParseDirection(string(req.Direction))
	if err != nil {
		errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	rec := database.TradeRecord{
		ID:             req.ID,
		Symbol:         req.Symbol,
		Timeframe:      req.Timeframe,
		Direction:      direction,
		EntryPrice:     req.EntryPrice,
		StopLoss:       req.StopLoss,
		TakeProfit:     req.TakeProfit,
		PositionSize:   req.PositionSize,
		AccountBalance: req.AccountBalance,
		OpenedAt:       req.OpenedAt,
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.Timeframe == "" {
		rec.Timeframe = risk.DefaultTimeframe
	}
	if rec.OpenedAt.IsZero() {
		rec.OpenedAt = time.Now().UTC()
	}

	if err := s.journal.OpenTrade(c.Request.Context(), rec); err != nil {
		if errors.Is(err, database.ErrTradeExists) {
			errorResponse(c, http.StatusConflict, err.Error())
			return
		}
		s.logger.Error().Err(err).Str("trade_id", rec.ID).Msg("Registering trade failed")
		errorResponse(c, http.StatusInternalServerError, "journal unavailable")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "data": rec})
}

func (s *Server) handleListTrades(c *gin.Context) {
	trades, err := s.journal.ListOpenTrades(c.Request.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("Listing trades failed")
		errorResponse(c, http.StatusInternalServerError, "journal unavailable")
		return
	}
	if trades == nil {
		trades = []database.TradeRecord{}
	}
	successResponse(c, trades)
}

type evaluateTradeRequest struct {
	Trade   model.OpenTradeContext `json:"trade"`
	Candles []model.Candle         `json:"candles"`
}

func (s *Server) handleEvaluateTrade(c *gin.Context) {
	var req evaluateTradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if d, err := model.ParseDirection(string(req.Trade.Direction)); err == nil {
		req.Trade.Direction = d
	}
	// Invalid trades come back as a conservative HOLD, never as an error
	successResponse(c, s.trades.EvaluateWithCandles(req.Trade, req.Candles))
}

// errorResponse is a helper to send error responses
func errorResponse(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, gin.H{
		"error":   true,
		"message": message,
	})
}

// successResponse is a helper to send success responses
func successResponse(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    data,
	})
}
