package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"signal-engine/internal/cache"
	"signal-engine/internal/confluence"
	"signal-engine/internal/database"
	"signal-engine/internal/engine"
	"signal-engine/internal/indicators"
	"signal-engine/internal/levels"
	"signal-engine/internal/market"
	"signal-engine/internal/patterns"
	"signal-engine/internal/risk"
)

// ============================================================================
// REQUEST TYPES
// ============================================================================

// LevelsRequest asks for the level set of a reference bar and swing window
type LevelsRequest struct {
	Reference market.Bar   `json:"reference"`
	Swing     []market.Bar `json:"swing" binding:"required"`
}

// PatternRequest asks for the pattern on the latest bar
type PatternRequest struct {
	Current  market.Bar  `json:"current"`
	Previous *market.Bar `json:"previous,omitempty"`
}

// SignalRequest scores a price against a caller-supplied context
type SignalRequest struct {
	Price     float64                   `json:"price" binding:"required,gt=0"`
	Levels    map[string]float64        `json:"levels"`
	Pattern   *patterns.PatternResult   `json:"pattern,omitempty"`
	Trend     indicators.TrendInputs    `json:"trend"`
	Momentum  indicators.MomentumInputs `json:"momentum"`
	Structure *indicators.Structure     `json:"structure,omitempty"`
}

// PlanRequest asks for a trade plan
type PlanRequest struct {
	Direction string             `json:"direction" binding:"required"`
	Entry     float64            `json:"entry" binding:"required,gt=0"`
	Levels    map[string]float64 `json:"levels"`
	Trigger   float64            `json:"trigger,omitempty"`
	ATR       float64            `json:"atr,omitempty"`
}

// EvaluateRequest runs the full pipeline over a bar window
type EvaluateRequest struct {
	Symbol    string       `json:"symbol" binding:"required"`
	Timeframe string       `json:"timeframe"`
	Bars      []market.Bar `json:"bars" binding:"required"`
}

// BatchRequest runs several evaluations at once
type BatchRequest struct {
	Requests []EvaluateRequest `json:"requests" binding:"required"`
}

func (r EvaluateRequest) toEngine() engine.Request {
	return engine.Request{Symbol: normalizeSymbol(r.Symbol), Timeframe: r.Timeframe, Bars: r.Bars}
}

func normalizeSymbol(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}


// ============================================================================
// ERROR MAPPING
// ============================================================================

// statusFor maps engine errors onto HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, market.ErrInsufficientData):
		return http.StatusUnprocessableEntity
	case errors.Is(err, market.ErrInvalidBar),
		errors.Is(err, engine.ErrInvalidConfig),
		errors.Is(err, risk.ErrInvalidConfig),
		errors.Is(err, risk.ErrNoDirection),
		errors.Is(err, risk.ErrInvalidRequest),
		errors.Is(err, levels.ErrDegenerateRange),
		errors.Is(err, levels.ErrInvalidLevel):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func errorBody(err error) gin.H {
	body := gin.H{"error": err.Error()}
	var insufficient *market.InsufficientDataError
	if errors.As(err, &insufficient) {
		body["required"] = insufficient.Required
		body["got"] = insufficient.Got
	}
	return body
}

func respondError(c *gin.Context, err error) {
	c.JSON(statusFor(err), errorBody(err))
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

// ============================================================================
// COMPUTE HANDLERS
// ============================================================================

// handleLevels computes pivots and Fibonacci levels
func (s *Server) handleLevels(c *gin.Context) {
	var req LevelsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := req.Reference.Validate(); err != nil {
		badRequest(c, err)
		return
	}
	if err := market.Window(req.Swing).Validate(); err != nil {
		badRequest(c, err)
		return
	}

	set, err := s.engine.Levels(req.Reference, req.Swing)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, set)
}

// handlePattern recognizes the candlestick pattern on the current bar
func (s *Server) handlePattern(c *gin.Context) {
	var req PatternRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := req.Current.Validate(); err != nil {
		badRequest(c, err)
		return
	}
	if req.Previous != nil {
		if err := req.Previous.Validate(); err != nil {
			badRequest(c, err)
			return
		}
	}

	c.JSON(http.StatusOK, s.engine.Pattern(req.Current, req.Previous))
}

// handleSignal scores both directions and returns the verdict
func (s *Server) handleSignal(c *gin.Context) {
	var req SignalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	set, err := levels.FromMap(req.Levels)
	if err != nil {
		badRequest(c, err)
		return
	}
	pattern := patterns.NoPattern()
	if req.Pattern != nil {
		pattern = *req.Pattern
	}

	verdict := s.engine.Signal(confluence.Inputs{
		Price:     req.Price,
		Levels:    set,
		Pattern:   pattern,
		Trend:     req.Trend,
		Momentum:  req.Momentum,
		Structure: req.Structure,
	})
	c.JSON(http.StatusOK, verdict)
}

// handlePlan derives stop-loss and targets for a direction
func (s *Server) handlePlan(c *gin.Context) {
	var req PlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	direction, err := market.ParseDirection(req.Direction)
	if err != nil {
		badRequest(c, err)
		return
	}
	set, err := levels.FromMap(req.Levels)
	if err != nil {
		badRequest(c, err)
		return
	}

	plan, err := s.engine.Plan(risk.Request{
		Direction: direction,
		Entry:     req.Entry,
		Levels:    set,
		Trigger:   req.Trigger,
		ATR:       req.ATR,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"plan": plan, "summary": plan.Summary()})
}

// handleEvaluate runs the full pipeline on one bar window
func (s *Server) handleEvaluate(c *gin.Context) {
	var req EvaluateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	ev, err := s.engine.Evaluate(c.Request.Context(), req.toEngine())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ev)
}

// handleEvaluateBatch evaluates several windows in parallel
func (s *Server) handleEvaluateBatch(c *gin.Context) {
	var req BatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if len(req.Requests) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "batch must contain at least one request"})
		return
	}
	if limit := s.config.MaxBatchSize; limit > 0 && len(req.Requests) > limit {
		c.JSON(http.StatusBadRequest, gin.H{"error": "batch too large", "max": limit, "got": len(req.Requests)})
		return
	}

	reqs := make([]engine.Request, len(req.Requests))
	for i, r := range req.Requests {
		reqs[i] = r.toEngine()
	}

	results, err := s.engine.EvaluateBatch(c.Request.Context(), reqs)
	if err != nil {
		respondError(c, err)
		return
	}

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"results":   results,
		"count":     len(results),
		"succeeded": len(results) - failed,
		"failed":    failed,
	})
}

// handleGetConfig returns the active engine configuration
func (s *Server) handleGetConfig(c *gin.Context) {
	cfg := s.engine.Config()
	c.JSON(http.StatusOK, gin.H{
		"config":        cfg,
		"required_bars": cfg.RequiredBars(),
	})
}

// ============================================================================
// HISTORY HANDLERS
// ============================================================================

// handleListEvaluations lists stored evaluations
func (s *Server) handleListEvaluations(c *gin.Context) {
	if s.history == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "evaluation history is disabled"})
		return
	}

	filter := database.EvaluationFilter{
		Symbol:    c.Query("symbol"),
		Timeframe: c.Query("timeframe"),
		Direction: c.Query("direction"),
	}
	var err error
	if filter.Limit, err = intQuery(c, "limit"); err != nil {
		badRequest(c, err)
		return
	}
	if filter.Offset, err = intQuery(c, "offset"); err != nil {
		badRequest(c, err)
		return
	}
	if filter.Direction != "" {
		if _, err := market.ParseDirection(filter.Direction); err != nil {
			badRequest(c, err)
			return
		}
	}

	records, err := s.history.ListEvaluations(c.Request.Context(), filter)
	if err != nil {
		s.logger.Error("failed to list evaluations", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list evaluations"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"evaluations": records, "count": len(records)})
}

// handleGetEvaluation returns one stored evaluation
func (s *Server) handleGetEvaluation(c *gin.Context) {
	if s.history == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "evaluation history is disabled"})
		return
	}

	rec, err := s.history.GetEvaluation(c.Request.Context(), c.Param("id"))
	if errors.Is(err, database.ErrEvaluationNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		s.logger.Error("failed to load evaluation", "id", c.Param("id"), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load evaluation"})
		return
	}
	c.JSON(http.StatusOK, rec)
}

// handleInvalidateLevels drops every cached level set of a symbol
func (s *Server) handleInvalidateLevels(c *gin.Context) {
	symbol := strings.ToUpper(strings.TrimSpace(c.Param("symbol")))
	if symbol == "" || strings.ContainsAny(symbol, "*?[]") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "symbol must be a plain ticker"})
		return
	}

	deleted, err := s.levels.Invalidate(c.Request.Context(), symbol)
	if errors.Is(err, cache.ErrCacheUnavailable) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		s.logger.Error("failed to invalidate levels", "symbol", symbol, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to invalidate levels"})
		return
	}

	s.logger.Info("level cache invalidated", "symbol", symbol, "deleted", deleted)
	c.JSON(http.StatusOK, gin.H{"symbol": symbol, "deleted": deleted})
}

func intQuery(c *gin.Context, key string) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, errors.New(key + " must be a non-negative integer")
	}
	return n, nil
}
