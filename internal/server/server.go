// Package server assembles the HTTP API from its services.
package server

import (
	"context"
	"net/http"

	"taskmaker/backend/internal/auth"
	"taskmaker/backend/internal/cache"
	"taskmaker/backend/internal/config"
	"taskmaker/backend/internal/database"
	"taskmaker/backend/internal/handlers"
	"taskmaker/backend/internal/middleware"
	"taskmaker/backend/internal/monitoring"
	"taskmaker/backend/internal/repositories"
	"taskmaker/backend/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
)

// Dependencies are the process-level resources the router is built on.
// Redis is optional.
type Dependencies struct {
	Config *config.Config
	Log    *logrus.Logger
	Pool   *database.DatabasePool
	Redis  *cache.RedisCache
}

// NewVerifier builds the token verifier chain: the local key first, then
// the external identity provider when configured, with revocation checked
// last.
func NewVerifier(cfg config.AuthConfig, denylist auth.Denylist) auth.Verifier {
	chain := auth.ChainVerifier{
		auth.NewHMACVerifier(cfg.JWTSecret, auth.WithIssuer(cfg.Issuer)),
	}
	if cfg.ExternalJWTSecret != "" {
		chain = append(chain, auth.NewHMACVerifier(cfg.ExternalJWTSecret,
			auth.WithIssuer(cfg.ExternalIssuer),
			auth.WithAudience(cfg.ExternalAudience),
			auth.WithLeeway(cfg.ExternalLeeway),
		))
	}
	return auth.NewRevocationVerifier(chain, denylist)
}

func NewRouter(deps Dependencies) *gin.Engine {
	cfg, log := deps.Config, deps.Log
	store := repositories.NewStore(deps.Pool.DB)

	cacheMetrics := cache.NewCacheMetrics()
	breaker := cache.NewCircuitBreaker("redis", nil, func(name string, from, to gobreaker.State) {
		log.WithFields(logrus.Fields{"breaker": name, "from": from.String(), "to": to.String()}).Warn("circuit breaker state changed")
	})
	browseCache := cache.NewMultiLevelCache(deps.Redis, breaker, cacheMetrics, log)
	denylist := cache.NewTokenDenylist(deps.Redis, log)

	issuer := auth.NewIssuer(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.TokenTTL)
	verifier := NewVerifier(cfg.Auth, denylist)

	authService := services.NewAuthService(store, issuer, cfg.Auth.BCryptCost, log)
	userService := services.NewUserService(store, log)
	taskService := services.NewCachedTaskService(services.NewTaskService(store, log), browseCache, cfg.Cache.BrowseTTL, log)
	requestService := services.NewRequestService(store, taskService, log)
	messageService := services.NewMessageService(store)
	auditService := services.NewAuditService(store)

	authHandler := handlers.NewAuthHandler(authService, userService, denylist, cfg.Auth.TokenTTL)
	userHandler := handlers.NewUserHandler(userService)
	taskHandler := handlers.NewTaskHandler(taskService)
	requestHandler := handlers.NewRequestHandler(requestService)
	messageHandler := handlers.NewMessageHandler(messageService)
	auditHandler := handlers.NewAuditHandler(auditService)

	registry := monitoring.NewRegistry()
	registry.RegisterHealthCheck("database", true, deps.Pool.Ping)
	if deps.Redis != nil {
		registry.RegisterHealthCheck("redis", false, deps.Redis.Health)
	}
	registry.AddSection("cache", func() interface{} { return taskService.GetCacheStats() })
	registry.AddSection("database", func() interface{} { return deps.Pool.Stats() })

	r := gin.New()
	if err := r.SetTrustedProxies(cfg.Server.TrustedProxies); err != nil {
		log.WithError(err).Warn("invalid trusted proxies, trusting none")
		_ = r.SetTrustedProxies(nil)
	}
	r.Use(
		middleware.RequestID(),
		middleware.RecoveryWithLog(log),
		middleware.RequestLogger(log),
		middleware.CORS(cfg.CORS),
		registry.MetricsMiddleware(),
	)
	if cfg.RateLimit.Enabled {
		limiter := middleware.NewRateLimiter(cfg.RateLimit)
		registry.AddSection("rate_limit", func() interface{} {
			return gin.H{"tracked_clients": limiter.Clients()}
		})
		r.Use(limiter.Middleware())
	}

	r.GET("/health", registry.HealthHandler())
	r.GET("/health/live", registry.LivenessHandler())
	r.GET("/health/ready", registry.ReadinessHandler())

	r.POST("/auth/register", authHandler.Register)
	r.POST("/auth/login", authHandler.Login)

	authed := r.Group("/")
	authed.Use(middleware.Authenticate(verifier), middleware.EnsureProfile(authService))
	{
		authed.POST("/auth/logout", authHandler.Logout)
		authed.GET("/auth/me", authHandler.Me)
		authed.GET("/users/me", userHandler.GetMe)

		authed.GET("/tasks", taskHandler.ListTasks)
		authed.POST("/tasks", taskHandler.CreateTask)
		authed.GET("/tasks/browse", taskHandler.BrowseTasks)
		authed.GET("/tasks/:id", taskHandler.GetTask)
		authed.PATCH("/tasks/:id", taskHandler.UpdateTask)
		authed.DELETE("/tasks/:id", taskHandler.DeleteTask)
		authed.POST("/tasks/:id/requests", requestHandler.RequestTask)
		authed.GET("/tasks/:id/messages", messageHandler.ListMessages)
		authed.POST("/tasks/:id/messages", messageHandler.PostMessage)
	}

	admin := authed.Group("/admin")
	admin.Use(middleware.RequireAdmin())
	{
		admin.GET("/requests", requestHandler.ListPending)
		admin.PATCH("/requests/:id", requestHandler.Decide)
		admin.GET("/users", userHandler.ListUsers)
		admin.PATCH("/users/:id", userHandler.ChangeRole)
		admin.GET("/tasks", taskHandler.ListAllTasks)
		admin.GET("/audit", auditHandler.ListAudit)
		admin.GET("/metrics", registry.MetricsHandler())
	}

	return r
}

// New returns an http.Server with the configured timeouts.
func New(deps Dependencies) *http.Server {
	cfg := deps.Config.Server
	return &http.Server{
		Addr:         deps.Config.GetServerAddr(),
		Handler:      NewRouter(deps),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
}

// Shutdown drains in-flight requests within the configured timeout.
func Shutdown(ctx context.Context, srv *http.Server, cfg config.ServerConfig) error {
	ctx, cancel := context.WithTimeout(ctx, cfg.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(ctx)
}
