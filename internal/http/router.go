// Package httpapi wires the HTTP transport (Gin) to the report services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, panic recovery, metrics,
// CORS, security headers, authentication, idempotency, and rate limiting.
package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/tbourn/go-couple-reports/internal/config"
	"github.com/tbourn/go-couple-reports/internal/http/handlers"
	"github.com/tbourn/go-couple-reports/internal/http/middleware"
	"github.com/tbourn/go-couple-reports/internal/repo"
)

// Deps are the services behind the routes. Jobs may be nil, in which case
// the admin routes are not mounted.
type Deps struct {
	Reports   handlers.ReportReader
	Generator handlers.MonthlyGenerator
	Jobs      handlers.JobRunner
}

var (
	allowMethods  = []string{"GET", "POST", "OPTIONS"}
	allowHeaders  = []string{"Origin", "Content-Type", "Accept", "Authorization", "If-None-Match", middleware.HeaderUserID, middleware.HeaderIdempotencyKey, middleware.HeaderAdminToken}
	exposeHeaders = []string{"X-Request-ID", "Content-Length", "ETag", "Idempotency-Replayed"}
)

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine and mounts the report API under cfg.APIBasePath.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. RedactingLogger: structured logs with PII scrubbing
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Metrics
//  7. CORS and security headers
//
// The API group then adds authentication, the idempotency validator and the
// rate limiter, in that order, so replays can bypass the limiter.
func RegisterRoutes(r *gin.Engine, db *gorm.DB, deps Deps, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))
	r.Use(middleware.RequestID())
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{}))
	r.Use(middleware.Recovery())
	r.Use(limitBody(64 << 10))

	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.Use(corsMiddleware(cfg.CORS.AllowedOrigins)...)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		CacheControl: "private, no-cache",
		EnablePolicy: true,
	}))

	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	replays := repo.IdempotencyStore{DB: db, TTL: cfg.IdempotencyTTL}
	h := handlers.New(deps.Reports, deps.Generator, replays, deps.Jobs).WithJobTimeout(cfg.Reports.JobTimeout)

	api := groupWithPrefix(r, cfg.APIBasePath)
	api.Use(middleware.Authenticate(middleware.AuthOptions{Secret: []byte(cfg.JWTSecret)}))
	api.Use(middleware.IdempotencyValidator(middleware.IdempotencyOptions{MaxLen: 200}, replays.Exists))
	api.Use(middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByUserOrIP()).Handler())
	{
		api.GET("/weekly-reports", h.GetWeeklyReport)
		api.GET("/weekly-reports/weeks", h.ListAvailableWeeks)
		api.GET("/weekly-reports/history", h.ListWeeklyHistory)

		api.GET("/monthly-reports", h.GetMonthlyReport)
		api.GET("/monthly-reports/history", h.ListMonthlyHistory)
		api.GET("/monthly-reports/progress", h.GetMonthlyProgress)
		api.POST("/monthly-reports/generate", h.GenerateMonthlyReport)
	}

	if cfg.AdminToken != "" && deps.Jobs != nil {
		admin := groupWithPrefix(r, cfg.APIBasePath).Group("/admin")
		admin.Use(middleware.RequireAdminToken(cfg.AdminToken))
		admin.GET("/jobs/:job", h.GetJobStatus)
		admin.POST("/jobs/:job/run", h.RunJob)
	}
}

// corsMiddleware allows every origin when none are configured; otherwise it
// echoes allowlisted origins only.
func corsMiddleware(origins []string) []gin.HandlerFunc {
	if len(origins) == 0 {
		return []gin.HandlerFunc{
			// Force ACAO even without an Origin header so simple probes see it.
			func(c *gin.Context) {
				c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
				c.Next()
			},
			cors.New(cors.Config{
				AllowAllOrigins: true,
				AllowMethods:    allowMethods,
				AllowHeaders:    allowHeaders,
				ExposeHeaders:   exposeHeaders,
				MaxAge:          12 * time.Hour,
			}),
		}
	}

	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		allowed[o] = struct{}{}
	}
	return []gin.HandlerFunc{
		func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		},
		cors.New(cors.Config{
			AllowOrigins:     origins,
			AllowMethods:     allowMethods,
			AllowHeaders:     allowHeaders,
			ExposeHeaders:    exposeHeaders,
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}),
	}
}

// limitBody caps the request body at maxBytes. Report endpoints take no
// payload, so the cap is small.
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
