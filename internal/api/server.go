package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"signal-engine/config"
	"signal-engine/internal/auth"
	"signal-engine/internal/cache"
	"signal-engine/internal/database"
	"signal-engine/internal/engine"
	"signal-engine/internal/events"
	"signal-engine/internal/logging"
)

// RateLimiter provides simple in-memory rate limiting per client and endpoint
type RateLimiter struct {
	requests map[string][]time.Time
	mu       sync.Mutex
	limit    int           // max requests
	window   time.Duration // time window
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		requests: make(map[string][]time.Time),
		limit:    limit,
		window:   window,
	}
}

// Allow checks if a request is allowed for the given key
func (r *RateLimiter) Allow(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	windowStart := now.Add(-r.window)

	// Filter out old requests
	var recent []time.Time
	for _, t := range r.requests[key] {
		if t.After(windowStart) {
			recent = append(recent, t)
		}
	}

	if len(recent) >= r.limit {
		r.requests[key] = recent
		return false
	}

	r.requests[key] = append(recent, now)
	return true
}

// History is the evaluation store the API reads from
type History interface {
	ListEvaluations(ctx context.Context, filter database.EvaluationFilter) ([]*database.EvaluationRecord, error)
	GetEvaluation(ctx context.Context, id string) (*database.EvaluationRecord, error)
	HealthCheck(ctx context.Context) error
}

// CacheStatus reports level cache health
type CacheStatus interface {
	GetStats() cache.Stats
	Ping(ctx context.Context) error
}

// LevelInvalidator drops cached level sets of a symbol
type LevelInvalidator interface {
	Invalidate(ctx context.Context, symbol string) (int, error)
}

// Dependencies are the services a Server is built on. Only Engine is required.
type Dependencies struct {
	Engine   *engine.Engine
	History  History
	Cache    CacheStatus
	Levels   LevelInvalidator
	EventBus *events.EventBus
	Auth     *auth.JWTManager
}

// Server represents the HTTP API server
type Server struct {
	router      *gin.Engine
	httpServer  *http.Server
	engine      *engine.Engine
	history     History
	cache       CacheStatus
	levels      LevelInvalidator
	hub         *WSHub
	auth        *auth.JWTManager
	config      config.ServerConfig
	rateLimiter *RateLimiter
	logger      *logging.Logger
	startedAt   time.Time
}

// NewServer creates a new API server
func NewServer(cfg config.ServerConfig, deps Dependencies) *Server {
	router := gin.New()

	// Middleware
	router.Use(gin.Recovery())
	router.Use(requestLogger())
	router.Use(cors.New(corsConfig(cfg.AllowedOrigins)))

	server := &Server{
		router:    router,
		engine:    deps.Engine,
		history:   deps.History,
		cache:     deps.Cache,
		levels:    deps.Levels,
		auth:      deps.Auth,
		config:    cfg,
		logger:    logging.WithComponent("api"),
		startedAt: time.Now(),
	}
	if cfg.RateLimit > 0 {
		server.rateLimiter = NewRateLimiter(cfg.RateLimit, time.Minute)
	}
	if deps.EventBus != nil {
		server.hub = InitWebSocket(deps.EventBus)
	}

	server.setupRoutes()

	return server
}

func corsConfig(allowed string) cors.Config {
	corsConfig := cors.DefaultConfig()
	origins := splitOrigins(allowed)
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = origins
		corsConfig.AllowCredentials = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization"}
	corsConfig.ExposeHeaders = []string{"Content-Length", "X-Trace-ID"}
	return corsConfig
}

func splitOrigins(s string) []string {
	var out []string
	for _, o := range strings.Split(s, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// requestLogger tags every request with a trace id and logs its outcome
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		traceID := c.GetHeader("X-Trace-ID")
		if traceID == "" {
			traceID = logging.GenerateTraceID()
		}
		ctx, log := logging.WithTraceContext(c.Request.Context(), traceID)
		c.Request = c.Request.WithContext(ctx)
		c.Header("X-Trace-ID", traceID)

		c.Next()

		status := c.Writer.Status()
		args := []interface{}{"method", c.Request.Method, "path", c.FullPath(), "status", status, "client", c.ClientIP()}
		log = log.WithComponent("api").WithDuration(time.Since(start))
		switch {
		case status >= 500:
			log.Error("request failed", args...)
		case status >= 400:
			log.Warn("request rejected", args...)
		default:
			log.Debug("request served", args...)
		}
	}
}

// rateLimitMiddleware limits each client per endpoint
func (s *Server) rateLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.rateLimiter == nil {
			c.Next()
			return
		}

		path := c.FullPath()
		if !s.rateLimiter.Allow(c.ClientIP() + " " + path) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":   "Rate limit exceeded",
				"message": "Too many requests to this endpoint. Please slow down.",
				"path":    path,
			})
			return
		}
		c.Next()
	}
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	s.router.GET("/api/health", s.handleHealth)

	guard := func(scope string) []gin.HandlerFunc {
		handlers := []gin.HandlerFunc{s.rateLimitMiddleware()}
		if s.auth != nil {
			handlers = append(handlers, auth.Middleware(s.auth), auth.RequireScope(scope))
		}
		return handlers
	}

	v1 := s.router.Group("/api/v1")
	{
		compute := v1.Group("", guard(auth.ScopeEvaluate)...)
		compute.POST("/levels", s.handleLevels)
		compute.POST("/pattern", s.handlePattern)
		compute.POST("/signal", s.handleSignal)
		compute.POST("/plan", s.handlePlan)
		compute.POST("/evaluate", s.handleEvaluate)
		compute.POST("/evaluate/batch", s.handleEvaluateBatch)
		compute.GET("/config", s.handleGetConfig)

		history := v1.Group("/evaluations", guard(auth.ScopeHistoryRead)...)
		history.GET("", s.handleListEvaluations)
		history.GET("/:id", s.handleGetEvaluation)

		if s.levels != nil {
			admin := v1.Group("/admin", guard(auth.ScopeAdmin)...)
			admin.DELETE("/levels/:symbol", s.handleInvalidateLevels)
		}
	}

	if s.hub != nil {
		s.router.GET("/ws", append(guard(auth.ScopeEvaluate), s.handleWebSocket)...)
	}
}

// Handler exposes the router for tests and embedding
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  seconds(s.config.ReadTimeout, 15),
		WriteTimeout: seconds(s.config.WriteTimeout, 30),
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("starting HTTP server", "address", addr, "tls", s.config.TLSEnabled)

	var err error
	if s.config.TLSEnabled {
		err = s.httpServer.ListenAndServeTLS(s.config.TLSCertFile, s.config.TLSKeyFile)
	} else {
		err = s.httpServer.ListenAndServe()
	}
	if err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")

	if s.hub != nil {
		s.hub.Stop()
	}
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}

	return nil
}

func seconds(v, fallback int) time.Duration {
	if v <= 0 {
		v = fallback
	}
	return time.Duration(v) * time.Second
}

// handleHealth returns server health status
func (s *Server) handleHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := "healthy"
	code := http.StatusOK
	components := gin.H{"engine": "healthy"}

	if s.history != nil {
		if err := s.history.HealthCheck(ctx); err != nil {
			status, code = "unhealthy", http.StatusServiceUnavailable
			components["database"] = "unhealthy"
		} else {
			components["database"] = "healthy"
		}
	} else {
		components["database"] = "disabled"
	}

	if s.cache != nil {
		if err := s.cache.Ping(ctx); err != nil {
			s.logger.Warn("cache ping failed", "error", err)
		}
		if s.cache.GetStats().Healthy {
			components["cache"] = "healthy"
		} else {
			// evaluations recompute levels without the cache
			components["cache"] = "degraded"
			if status == "healthy" {
				status = "degraded"
			}
		}
	} else {
		components["cache"] = "disabled"
	}

	resp := gin.H{
		"status":     status,
		"components": components,
		"uptime":     time.Since(s.startedAt).Round(time.Second).String(),
	}
	if s.hub != nil {
		resp["websocket_clients"] = s.hub.GetClientCount()
	}
	c.JSON(code, resp)
}
