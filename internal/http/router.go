// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, panic recovery, metrics,
// CORS, security headers, idempotency, and rate limiting.
//
// Design goals:
//   - Put observability first (OTel + Prometheus)
//   - Safe-by-default middleware ordering (RequestID → logging → recovery)
//   - Deterministic, minimal router setup; all dependencies injected
//   - Production-ready CORS and security header posture
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swagfiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	_ "github.com/formbeat/go-survey-backend/docs"
	"github.com/formbeat/go-survey-backend/internal/analytics"
	"github.com/formbeat/go-survey-backend/internal/config"
	"github.com/formbeat/go-survey-backend/internal/http/handlers"
	"github.com/formbeat/go-survey-backend/internal/http/middleware"
	"github.com/formbeat/go-survey-backend/internal/repo"
	"github.com/formbeat/go-survey-backend/internal/services"
)

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine. It configures observability (tracing, metrics), idempotency and rate
// limiting, CORS and security headers, health and metrics endpoints, and then
// mounts the versioned API under /api/v* plus the unauthenticated /public
// results routes.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. RedactingLogger: structured logs with PII scrubbing
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Metrics
//  7. Idempotency validator (before rate limiter to allow bypass on replay)
//  8. Rate limiter (per tenant/IP, bypass on replay)
//  9. Compression, CORS and Security headers
func RegisterRoutes(r *gin.Engine, db *gorm.DB, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured logging with redaction
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
		MaskHeaders: []string{
			"X-API-Key",
		},
		// Drilldown bucket values are respondent attributes (a department
		// or role name can identify a person on a small team).
		MaskQueryParams: []string{"segmentBucket"},
	}))

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Global body size limit (1 MiB)
	r.Use(limitBody(1 << 20))

	// 6) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 7) Idempotency validation (before rate limiting)
	r.Use(middleware.IdempotencyValidator(
		middleware.IdempotencyOptions{
			MaxLen: 200,
		},
		func(ctx context.Context, tenantID, slug, key string, now time.Time) (bool, error) {
			q, err := repo.GetQuestionnaireBySlug(ctx, db, tenantID, slug)
			if err != nil || q == nil {
				return false, nil
			}
			rec, err := repo.GetIdempotency(ctx, db, tenantID, q.ID, key, now)
			if err != nil || rec == nil {
				return false, nil
			}
			return true, nil
		},
	))

	// 8) Token-bucket rate limiter per tenant/IP
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByTenantOrIP())
	r.Use(rl.Handler())

	// 9) Response compression for the large analytics payloads
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})))

	// CORS posture (safe defaults: allow all if none configured)
	if len(cfg.CORS.AllowedOrigins) == 0 {
		// Force ACAO: * even for requests without an Origin header (helps tests and simple health checks).
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Tenant-ID", middleware.HeaderIdempotencyKey},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: false, // must remain false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		}))
	} else {
		// Echo ACAO with the request Origin when it is in the allowlist (in addition to gin-contrib/cors).
		allowed := make(map[string]struct{}, len(cfg.CORS.AllowedOrigins))
		for _, o := range cfg.CORS.AllowedOrigins {
			allowed[o] = struct{}{}
		}
		r.Use(func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Tenant-ID", middleware.HeaderIdempotencyKey},
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
		// Gated public results widgets may be iframed by same-origin pages.
		EmbeddablePrefixes: []string{"/public"},
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

	// API docs (off by default)
	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swagfiles.Handler))
	}

	// Dependency injection: services ← repo/db
	gate := analytics.GateConfig{
		MinSample: cfg.PublicMinSample,
		MinBucket: cfg.PublicMinBucket,
	}
	qnnSvc := services.NewQuestionnaireService(db)
	verSvc := services.NewVersionService(db)
	respSvc := services.NewResponseService(db)
	anaSvc := services.NewAnalyticsService(db, cfg.MaxAggregationRows, cfg.MaxDrilldownRows, gate)
	expSvc := services.NewExportService(db, cfg.MaxAggregationRows)
	insSvc := services.NewInsightsService(anaSvc, respSvc, cfg.AIBundleMaxResponses)

	h := handlers.New(qnnSvc, verSvc, respSvc, anaSvc, expSvc, insSvc).
		WithIdempotencyTTL(cfg.IdempotencyTTL)

	// Authenticated dashboard API
	apiBase := cfg.APIBasePath // e.g. "/api/v1"
	api := groupWithPrefix(r, apiBase)
	{
		// Questionnaires
		api.POST("/questionnaires", h.CreateQuestionnaire)
		api.GET("/questionnaires", h.ListQuestionnaires)
		api.POST("/questionnaires/:slug/deactivate", h.DeactivateQuestionnaire)

		// Schema version lifecycle
		api.GET("/questionnaires/:slug/draft", h.GetDraft)
		api.PUT("/questionnaires/:slug/draft", h.SaveDraft)
		api.POST("/questionnaires/:slug/publish", h.Publish)
		api.GET("/questionnaires/:slug/versions", h.ListVersions)

		// Responses
		api.POST("/questionnaires/:slug/responses", h.SubmitResponse)
		api.GET("/questionnaires/:slug/responses", h.ListResponses)

		// Analytics
		api.GET("/questionnaires/:slug/analytics/summary", h.AnalyticsSummary)
		api.GET("/questionnaires/:slug/analytics/distribution", h.AnalyticsDistribution)
		api.GET("/questionnaires/:slug/analytics/trend", h.AnalyticsTrend)
		api.GET("/questionnaires/:slug/analytics/segments/compare", h.SegmentCompare)

		// Export and insights
		api.GET("/questionnaires/:slug/export.csv", h.ExportCSV)
		api.GET("/questionnaires/:slug/insights/bundle", h.InsightsBundle)
	}

	// Public, privacy-gated results
	public := r.Group("/public")
	{
		public.GET("/:slug/summary", h.PublicSummary)
		public.GET("/:slug/distribution", h.PublicDistribution)
		public.GET("/:slug/trend", h.PublicTrend)
	}
}

// limitBody returns a Gin middleware that caps the request body size for all
// endpoints to maxBytes using http.MaxBytesReader. Requests exceeding the cap
// will cause downstream body reads to error.
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
