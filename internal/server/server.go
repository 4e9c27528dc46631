package server

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"selfserve-api/internal/config"
	"selfserve-api/internal/handler"
	"selfserve-api/internal/license"
	"selfserve-api/internal/middleware"
	"selfserve-api/internal/ratelimit"
	"selfserve-api/internal/repository"
	"selfserve-api/internal/service"
	"selfserve-api/internal/storage"
)

type Server struct {
	router   *gin.Engine
	config   *config.Config
	redis    *storage.RedisClient
	postgres *storage.Postgres

	registry *ratelimit.Registry
	resolver *ratelimit.Resolver

	apiKeyService *service.APIKeyService
	authService   *service.AuthService

	authHandler      *handler.AuthHandler
	profileHandler   *handler.ProfileHandler
	mfaHandler       *handler.MFAHandler
	apiKeyHandler    *handler.APIKeyHandler
	sessionHandler   *handler.SessionHandler
	orgHandler       *handler.OrganizationHandler
	adminHandler     *handler.AdminHandler
	analyticsHandler *handler.AnalyticsHandler

	httpServer *http.Server
}

func New(cfg *config.Config, redis *storage.RedisClient, postgres *storage.Postgres) *Server {
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	userRepo := repository.NewUserRepository(postgres)
	sessionRepo := repository.NewSessionRepository(postgres)
	apiKeyRepo := repository.NewAPIKeyRepository(postgres)
	orgRepo := repository.NewOrganizationRepository(postgres)
	planRepo := repository.NewPlanRepository(postgres)
	requestLogRepo := repository.NewRequestLogRepository(postgres)

	// Rate limiting core: the instance registry seeded from config, and
	// the per-request resolver backed by the license service.
	registry := ratelimit.NewRegistry(cfg.RateLimit.Defaults)
	licenseService := license.NewService(planRepo, redis)
	resolver := ratelimit.NewResolver(registry, licenseService, cfg.Server.IsCloud)

	authService := service.NewAuthService(userRepo, sessionRepo, orgRepo, cfg.JWT.Secret, cfg.JWT.ExpiryHours)
	profileService := service.NewProfileService(userRepo)
	mfaService := service.NewMFAService(userRepo)
	apiKeyService := service.NewAPIKeyService(apiKeyRepo, redis)
	sessionService := service.NewSessionService(sessionRepo)
	orgService := service.NewOrganizationService(orgRepo, userRepo)
	analyticsService := service.NewAnalyticsService(requestLogRepo)

	middleware.InitRequestLogger(requestLogRepo, 1000)

	s := &Server{
		router:           router,
		config:           cfg,
		redis:            redis,
		postgres:         postgres,
		registry:         registry,
		resolver:         resolver,
		apiKeyService:    apiKeyService,
		authService:      authService,
		authHandler:      handler.NewAuthHandler(authService),
		profileHandler:   handler.NewProfileHandler(profileService),
		mfaHandler:       handler.NewMFAHandler(mfaService),
		apiKeyHandler:    handler.NewAPIKeyHandler(apiKeyService),
		sessionHandler:   handler.NewSessionHandler(sessionService),
		orgHandler:       handler.NewOrganizationHandler(orgService),
		adminHandler:     handler.NewAdminHandler(registry),
		analyticsHandler: handler.NewAnalyticsHandler(analyticsService),
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.Recovery())
	s.router.Use(middleware.RequestID())
	s.router.Use(middleware.Logger())
	s.router.Use(middleware.CORS())
	s.router.Use(middleware.RequestLogger())
}

// throttle enforces the limit for one category, using the thresholds
// that ResolveLimits attached to the request.
func (s *Server) throttle(category ratelimit.Category) gin.HandlerFunc {
	return middleware.Throttle(s.redis, s.config.RateLimit.Algorithm, category)
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.healthCheck)
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Unauthenticated status endpoint; gets the instance default
	// thresholds since there is no organization to resolve against.
	s.router.GET("/status",
		middleware.ResolveLimits(s.resolver),
		s.throttle(ratelimit.CategoryPublicEndpoint),
		s.status,
	)

	api := s.router.Group("/api/v1")
	api.Use(middleware.APIKeyValidator(s.apiKeyService))

	auth := api.Group("/auth")
	auth.Use(middleware.OptionalAuth(s.authService), middleware.ResolveLimits(s.resolver))
	{
		auth.POST("/register", s.throttle(ratelimit.CategoryCreation), s.authHandler.Register)
		auth.POST("/login", s.throttle(ratelimit.CategoryAuth), s.authHandler.Login)
	}

	protected := api.Group("")
	protected.Use(middleware.RequireAuth(s.authService), middleware.ResolveLimits(s.resolver))
	{
		protected.POST("/auth/logout", s.throttle(ratelimit.CategoryAuth), s.authHandler.Logout)

		protected.GET("/profile", s.throttle(ratelimit.CategoryRead), s.profileHandler.Get)
		protected.PATCH("/profile", s.throttle(ratelimit.CategoryWrite), s.profileHandler.Update)
		protected.PUT("/profile/password", s.throttle(ratelimit.CategoryAuth), s.profileHandler.ChangePassword)

		protected.POST("/mfa/enroll", s.throttle(ratelimit.CategoryMFA), s.mfaHandler.Enroll)
		protected.POST("/mfa/activate", s.throttle(ratelimit.CategoryMFA), s.mfaHandler.Activate)
		protected.DELETE("/mfa", s.throttle(ratelimit.CategoryMFA), s.mfaHandler.Disable)

		protected.GET("/api-keys", s.throttle(ratelimit.CategoryRead), s.apiKeyHandler.List)
		protected.POST("/api-keys", s.throttle(ratelimit.CategorySecrets), s.apiKeyHandler.Create)
		protected.DELETE("/api-keys/:id", s.throttle(ratelimit.CategorySecrets), s.apiKeyHandler.Revoke)

		protected.GET("/sessions", s.throttle(ratelimit.CategoryRead), s.sessionHandler.List)
		protected.DELETE("/sessions/:id", s.throttle(ratelimit.CategoryWrite), s.sessionHandler.Revoke)
		protected.DELETE("/sessions", s.throttle(ratelimit.CategoryWrite), s.sessionHandler.RevokeOthers)

		protected.POST("/organizations", s.throttle(ratelimit.CategoryCreation), s.orgHandler.Create)
		protected.GET("/organizations/:id", s.throttle(ratelimit.CategoryRead), s.orgHandler.Get)
		protected.PATCH("/organizations/:id", s.throttle(ratelimit.CategoryWrite), s.orgHandler.Update)
		protected.GET("/organizations/:id/members", s.throttle(ratelimit.CategoryRead), s.orgHandler.ListMembers)
		protected.POST("/organizations/:id/invites", s.throttle(ratelimit.CategoryInviteUser), s.orgHandler.Invite)
		protected.DELETE("/organizations/:id/members/:userID", s.throttle(ratelimit.CategoryWrite), s.orgHandler.RemoveMember)
	}

	admin := s.router.Group("/admin")
	admin.Use(
		middleware.RequireAuth(s.authService),
		middleware.RequireRole("admin"),
		middleware.ResolveLimits(s.resolver),
	)
	{
		admin.GET("/status", s.adminStatus)
		admin.GET("/rate-limits", s.throttle(ratelimit.CategoryRead), s.adminHandler.GetRateLimits)
		admin.PUT("/rate-limits", s.throttle(ratelimit.CategoryWrite), s.adminHandler.SyncRateLimits)
		admin.GET("/analytics", s.throttle(ratelimit.CategoryRead), s.analyticsHandler.GetSummary)
		admin.POST("/analytics/cleanup", s.throttle(ratelimit.CategoryWrite), s.analyticsHandler.Cleanup)
	}
}

func (s *Server) healthCheck(c *gin.Context) {
	redisHealthy := true

	if err := s.redis.Ping(c.Request.Context()); err != nil {
		redisHealthy = false
		log.Printf("Redis health check failed: %v", err)
	}

	dbHealthy := true
	if err := s.postgres.Ping(c.Request.Context()); err != nil {
		dbHealthy = false
		log.Printf("Database health check failed: %v", err)
	}

	status := "healthy"
	statusCode := http.StatusOK

	if !redisHealthy || !dbHealthy {
		status = "degraded"
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, gin.H{
		"status":    status,
		"service":   "selfserve-api",
		"version":   "1.0.0",
		"timestamp": time.Now().Unix(),
		"checks": gin.H{
			"redis":    redisHealthy,
			"database": dbHealthy,
		},
	})
}

func (s *Server) status(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service":   "selfserve-api",
		"status":    "ok",
		"timestamp": time.Now().Unix(),
	})
}

func (s *Server) adminStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":      "running",
		"environment": s.config.Server.Environment,
		"is_cloud":    s.config.Server.IsCloud,
		"rate_limits": s.registry.Snapshot(),
		"uptime":      time.Since(startTime).Seconds(),
		"timestamp":   time.Now().Unix(),
	})
}

func (s *Server) Run(addr string) error {
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  15 * time.Second,
	}

	log.Printf("Starting selfserve-api on %s", addr)
	log.Printf("Environment: %s", s.config.Server.Environment)

	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	log.Println("Shutting down server...")

	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}

	return nil
}

func (s *Server) GetRouter() *gin.Engine {
	return s.router
}

var startTime = time.Now()
