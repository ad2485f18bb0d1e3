package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"investment-platform/config"
	"investment-platform/internal/accrual"
	"investment-platform/internal/auth"
	"investment-platform/internal/cache"
	"investment-platform/internal/database"
	"investment-platform/internal/events"
	"investment-platform/internal/investment"
	"investment-platform/internal/logging"
	"investment-platform/internal/plans"
	"investment-platform/internal/referral"
	"investment-platform/internal/vault"
	"investment-platform/internal/withdrawal"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// RateLimiter provides simple in-memory rate limiting per endpoint
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

// Services bundles the domain services the API exposes.
type Services struct {
	Plans       *plans.Catalog
	Investments *investment.Service
	Calculator  *accrual.Calculator
	Scheduler   *accrual.Scheduler
	Withdrawals *withdrawal.Service
	Referrals   *referral.Service
	Auth        *auth.Service
}

// Server represents the HTTP API server
type Server struct {
	router       *gin.Engine
	httpServer   *http.Server
	repo         *database.Repository
	eventBus     *events.EventBus
	services     Services
	config       config.ServerConfig
	cacheService *cache.CacheService
	vaultClient  *vault.Client
	rateLimiter  *RateLimiter
	logger       *logging.Logger
	wsHub        *UserWSHub
	startedAt    time.Time
}

// NewServer creates a new API server
func NewServer(
	cfg config.ServerConfig,
	repo *database.Repository,
	eventBus *events.EventBus,
	services Services,
	cacheService *cache.CacheService, // Can be nil when Redis is down
	vaultClient *vault.Client, // Can be nil when Vault is disabled
) *Server {
	if cfg.ProductionMode {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()
	router.Use(requestLogger())
	router.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	if cfg.AllowedOrigins == "" || cfg.AllowedOrigins == "*" {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = strings.Split(cfg.AllowedOrigins, ",")
		corsConfig.AllowCredentials = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization"}
	corsConfig.ExposeHeaders = []string{"Content-Length"}
	router.Use(cors.New(corsConfig))

	server := &Server{
		router:       router,
		repo:         repo,
		eventBus:     eventBus,
		services:     services,
		config:       cfg,
		cacheService: cacheService,
		vaultClient:  vaultClient,
		rateLimiter:  NewRateLimiter(120, time.Minute),
		logger:       logging.Default().WithComponent("api"),
		wsHub:        NewUserWSHub(eventBus),
		startedAt:    time.Now(),
	}

	server.setupRoutes()
	server.wsHub.Start()

	return server
}

// rateLimitMiddleware rate limits requests per endpoint path.
func (s *Server) rateLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		if !s.rateLimiter.Allow(path) {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":   "RATE_LIMITED",
				"message": "too many requests to this endpoint",
				"path":    path,
			})
			c.Abort()
			return
		}
		c.Next()
	}
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	// Health check
	s.router.GET("/health", s.handleHealth)

	jwtManager := s.services.Auth.GetJWTManager()

	api := s.router.Group("/api")
	api.Use(s.rateLimitMiddleware())

	authed := api.Group("")
	authed.Use(auth.Middleware(jwtManager))

	// Auth routes
	authHandlers := auth.NewHandlers(s.services.Auth)
	authHandlers.RegisterRoutes(api, authed)

	// Plan catalog (public listing; management is admin-only below)
	api.GET("/plans", s.handleListPlans)
	api.GET("/plans/:id", s.handleGetPlan)

	{
		// Investment endpoints
		authed.POST("/investments", s.handleCreateInvestment)
		authed.GET("/investments", s.handleListInvestments)
		authed.GET("/investments/:id", s.handleGetInvestment)
		authed.POST("/investments/:id/activate", s.handleActivateInvestment)
		authed.POST("/investments/:id/pause", s.handlePauseInvestment)
		authed.POST("/investments/:id/resume", s.handleResumeInvestment)
		authed.POST("/investments/:id/cancel", s.handleCancelInvestment)
		authed.GET("/investments/:id/profits", s.handleGetProfitHistory)

		// Withdrawal endpoints
		authed.GET("/investments/:id/withdrawal-quote", s.handleWithdrawalQuote)
		authed.POST("/withdrawals", s.handleRequestWithdrawal)
		authed.GET("/withdrawals", s.handleListWithdrawals)
		authed.GET("/withdrawals/:id", s.handleGetWithdrawal)
		authed.POST("/withdrawals/:id/cancel", s.handleCancelWithdrawal)

		// Referral endpoints
		authed.GET("/referrals/account", s.handleGetReferralAccount)
		authed.GET("/referrals/conversions", s.handleListConversions)
		authed.POST("/referrals/conversions", s.handleConvertToEquity)
	}

	// Reviewer endpoints (withdrawal and equity review queues)
	review := authed.Group("/review")
	review.Use(auth.RequireReviewer())
	{
		review.GET("/withdrawals", s.handleWithdrawalReviewQueue)
		review.POST("/withdrawals/:id", s.handleReviewWithdrawal)
		review.POST("/withdrawals/:id/process", s.handleProcessWithdrawal)
		review.POST("/withdrawals/:id/complete", s.handleCompleteWithdrawal)
		review.POST("/conversions/:id", s.handleReviewConversion)
	}

	// Admin endpoints
	admin := authed.Group("/admin")
	admin.Use(auth.RequireAdmin())
	{
		admin.POST("/plans", s.handleCreatePlan)
		admin.PUT("/plans/:id/active", s.handleSetPlanActive)

		admin.POST("/accrual/run", s.handleRunAccrualBatch)
		admin.GET("/accrual/batches", s.handleListAccrualBatches)
		admin.GET("/accrual/status", s.handleAccrualStatus)
		admin.POST("/accrual/override", s.handleProfitOverride)
	}

	// User-authenticated WebSocket for per-user event streaming
	s.router.GET("/ws", AuthenticatedWSHandler(s))
}

// Start starts the HTTP server
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  time.Duration(s.config.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(s.config.WriteTimeout) * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("starting HTTP server", "addr", addr)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")

	s.wsHub.Stop()

	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}

	return nil
}

// Router exposes the gin engine, for tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// handleHealth returns server health status
func (s *Server) handleHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	dbHealthy := true
	if err := s.repo.HealthCheck(ctx); err != nil {
		dbHealthy = false
	}

	cacheStatus := "disabled"
	if s.cacheService != nil {
		cacheStatus = "healthy"
		if err := s.cacheService.Ping(ctx); err != nil {
			cacheStatus = "degraded"
		}
	}

	if !dbHealthy {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":   "unhealthy",
			"database": "unhealthy",
			"cache":    cacheStatus,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"database":  "healthy",
		"cache":     cacheStatus,
		"scheduler": s.services.Scheduler.IsRunning(),
		"uptime":    time.Since(s.startedAt).String(),
	})
}
