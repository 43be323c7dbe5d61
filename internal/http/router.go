// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging, panic recovery, metrics, compression,
// CORS, security headers, and rate limiting.
//
// Design goals:
//   - Observability first (OTel + Prometheus)
//   - Safe-by-default middleware ordering (RequestID -> logging -> recovery)
//   - Deterministic, minimal router setup; all dependencies injected
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/chatcrm/go-crm-backend/internal/config"
	"github.com/chatcrm/go-crm-backend/internal/domain"
	"github.com/chatcrm/go-crm-backend/internal/http/handlers"
	"github.com/chatcrm/go-crm-backend/internal/http/middleware"
	"github.com/chatcrm/go-crm-backend/internal/reply"
	"github.com/chatcrm/go-crm-backend/internal/repo"
	"github.com/chatcrm/go-crm-backend/internal/services"
)

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine: observability (tracing, metrics), rate limiting, CORS and security
// headers, health and metrics endpoints, the unauthenticated webhook and auth
// surfaces, and the authenticated API under cfg.APIBasePath.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. Logger: structured logs with PII scrubbing
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Metrics
//  7. Gzip compression
//  8. CORS and security headers
//
// Rate limiting is mounted per route group instead: by client IP on the
// unauthenticated surface, by tenant (after RequireAuth) on the
// authenticated surface.
func RegisterRoutes(r *gin.Engine, db *gorm.DB, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured logging
	r.Use(middleware.Logger())

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Global body size limit (1 MiB); webhook payloads are small
	r.Use(limitBody(1 << 20))

	// 6) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 7) Compress list/transcript responses
	r.Use(gzip.Gzip(gzip.DefaultCompression))

	// 8) CORS posture (safe defaults: allow all if none configured)
	if len(cfg.CORS.AllowedOrigins) == 0 {
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: false, // must remain false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		}))
	} else {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}

	// Security headers (HSTS only when enabled and request is HTTPS)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStore:      false,
		EnablePolicy: true,
	}))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Liveness/health
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	// Dependency injection: services over the shared DB handle
	authSvc := &services.AuthService{DB: db, Cfg: cfg.Auth}
	convSvc := &services.ConversationService{
		DB:      db,
		Replies: newReplyService(cfg.Reply),
	}
	crmSvc := &services.CRMService{DB: db}
	tenantSvc := &services.TenantService{DB: db}

	route := func(ctx context.Context, channel, externalID string) (*domain.ChannelAccount, error) {
		return repo.FindChannelAccount(ctx, db, channel, externalID)
	}
	h := handlers.New(authSvc, convSvc, crmSvc, tenantSvc, route, cfg.WebhookVerifyToken)

	base := groupWithPrefix(r, cfg.APIBasePath)

	// Rate limiting is split by identity strength. Unauthenticated traffic
	// (webhooks, auth endpoints) keys by client IP. Authenticated traffic is
	// limited after RequireAuth so the bucket keys by tenant; tenants behind
	// one NAT must not share a bucket.
	ipLimit := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByClientIP())
	tenantLimit := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByTenantOrIP())

	// Unauthenticated: account lifecycle and platform webhooks
	public := base.Group("", ipLimit.Handler())
	{
		public.POST("/auth/register", h.Register)
		public.POST("/auth/verify-email", h.VerifyEmail)
		public.POST("/auth/verify-phone", h.VerifyPhone)
		public.POST("/auth/login", h.Login)
		public.GET("/webhook", h.VerifyWebhook)
		public.POST("/webhook", h.ReceiveWebhook)
	}

	// Authenticated, tenant-scoped CRM surface
	tenantAPI := base.Group("",
		middleware.RequireAuth(authSvc),
		tenantLimit.Handler(),
		middleware.RequireTenant(),
	)
	{
		tenantAPI.POST("/simulate", h.Simulate)
		tenantAPI.GET("/contacts", h.ListContacts)
		tenantAPI.GET("/contacts/:id/messages", h.ContactMessages)
		tenantAPI.GET("/deals", h.ListDeals)
		tenantAPI.PUT("/deals/:id", h.UpdateDeal)
		tenantAPI.PUT("/deals/:id/stage", h.SetDealStage)
	}

	// Authenticated, superadmin-only platform administration
	adminAPI := base.Group("/admin",
		middleware.RequireAuth(authSvc),
		tenantLimit.Handler(),
		middleware.RequireRole(domain.RoleSuperadmin),
	)
	{
		adminAPI.GET("/tenants", h.AdminListTenants)
		adminAPI.POST("/tenants/:id/activate", h.AdminActivateTenant)
		adminAPI.POST("/tenants/:id/channel-accounts", h.AdminAddChannelAccount)
	}
}

// newReplyService builds the reply pipeline: scripted defaults always, an
// OpenAI-compatible backend only when an API key is configured.
func newReplyService(cfg config.ReplyConfig) *reply.Service {
	svc := &reply.Service{Timeout: cfg.Timeout}
	if cfg.APIKey != "" {
		svc.Backend = &reply.OpenAIGenerator{
			BaseURL: cfg.BaseURL,
			APIKey:  cfg.APIKey,
			Model:   cfg.Model,
		}
	}
	return svc
}

// limitBody caps the request body size for all endpoints using
// http.MaxBytesReader. Requests exceeding the cap error on body read.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
