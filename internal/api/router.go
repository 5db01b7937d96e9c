// Package api wires together all HTTP routes for the ClawHub backend.
//
// Route grouping philosophy:
//   - Catalog routes (/api/v1/skills/...) are intentionally unauthenticated.
//     The public marketplace must be browsable without an account, so search,
//     facets, and detail pages only carry a rate limit.
//   - Account-scoped routes (bookmarks, own submissions) always require a
//     valid JWT; moderation routes additionally require the moderator or
//     admin role.
//
// The Swagger UI at /api-docs/ uses a nonce-based Content Security Policy rather
// than hash-based CSP. The CDN-loaded Swagger UI bundle contains inline <script>
// elements whose hashes would change with every CDN version update. A per-request
// cryptographic nonce allows those inline scripts to execute while keeping the
// CSP strict for all other content.
package api

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/clawhub/clawhub/docs"
	"github.com/clawhub/clawhub/internal/api/accounts"
	"github.com/clawhub/clawhub/internal/audit"
	"github.com/clawhub/clawhub/internal/api/bookmarks"
	"github.com/clawhub/clawhub/internal/api/moderation"
	"github.com/clawhub/clawhub/internal/api/skills"
	"github.com/clawhub/clawhub/internal/api/submissions"
	"github.com/clawhub/clawhub/internal/cache"
	"github.com/clawhub/clawhub/internal/config"
	"github.com/clawhub/clawhub/internal/db/repositories"
	"github.com/clawhub/clawhub/internal/jobs"
	"github.com/clawhub/clawhub/internal/middleware"
	"github.com/clawhub/clawhub/internal/safego"
)

// BackgroundServices holds references to background jobs and resources that must
// be stopped during graceful shutdown. The caller (cmd/server) is responsible for
// calling Shutdown() when the process receives a termination signal.
type BackgroundServices struct {
	facetWarmer  *jobs.FacetWarmer
	rateLimiters []*middleware.RateLimiter
	redisClient  *redis.Client
	auditShipper *audit.MultiShipper
}

// Shutdown stops all background goroutines. It should be called after the HTTP
// server has been shut down so that in-flight requests are drained first.
func (bg *BackgroundServices) Shutdown() {
	slog.Info("stopping background services")
	if bg.facetWarmer != nil {
		bg.facetWarmer.Stop()
	}
	for _, rl := range bg.rateLimiters {
		rl.Stop()
	}
	if bg.redisClient != nil {
		if err := bg.redisClient.Close(); err != nil {
			slog.Warn("failed to close redis client", "error", err)
		}
	}
	if bg.auditShipper != nil {
		if err := bg.auditShipper.Close(); err != nil {
			slog.Warn("failed to close audit shipper", "error", err)
		}
	}
	slog.Info("all background services stopped")
}

// NewRouter creates and configures the Gin router
func NewRouter(cfg *config.Config, db *sql.DB) (*gin.Engine, *BackgroundServices) {
	router := gin.New()

	// Initialize repositories
	userRepo := repositories.NewUserRepository(db)
	skillRepo := repositories.NewSkillRepository(db)

	// Wrap *sql.DB with sqlx for the submission and bookmark repositories
	sqlxDB := sqlx.NewDb(db, "postgres")
	submissionRepo := repositories.NewSubmissionRepository(sqlxDB, cfg.Catalog.SkillBaseURL)
	bookmarkRepo := repositories.NewBookmarkRepository(sqlxDB)

	// Optional Redis: facet caching and cross-replica rate limiting. Without
	// it the facet endpoints query Postgres directly and rate limits are
	// tracked per process.
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			log.Printf("Redis not reachable at startup, facet caching degrades to direct queries: %v", err)
		} else {
			log.Printf("Connected to Redis at %s", cfg.Redis.Address)
		}
	}

	facetCache := cache.NewFacetCache(redisClient, skillRepo, cfg.Catalog.FacetCacheTTL)

	// Keep the facet cache warm so steady-state catalog traffic is served
	// from Redis. The warmer is a no-op when Redis is disabled.
	facetWarmer := jobs.NewFacetWarmer(facetCache, cfg.Catalog.FacetWarmerInterval, cfg.Catalog.TagFacetLimit)
	safego.Go(func() {
		facetWarmer.Start(context.Background())
	})

	// Initialize account handlers (OIDC provider discovery happens here)
	authHandlers, err := accounts.NewAuthHandlers(cfg, db)
	if err != nil {
		log.Fatalf("Failed to initialize auth handlers: %v", err)
	}

	submissionHandlers := submissions.NewHandlers(submissionRepo)
	moderationHandlers := moderation.NewHandlers(submissionRepo)
	bookmarkHandlers := bookmarks.NewHandlers(bookmarkRepo)

	// Add middleware
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.MetricsMiddleware())
	router.Use(LoggerMiddleware(cfg))
	router.Use(CORSMiddleware(cfg))
	router.Use(middleware.SecurityHeadersMiddleware(middleware.APISecurityHeadersConfig()))

	// Health check endpoint
	router.GET("/health", healthCheckHandler(db))

	// Readiness check endpoint (includes Redis probe when enabled)
	router.GET("/ready", readinessHandler(db, redisClient))

	// API version
	router.GET("/version", versionHandler())

	registerSwaggerRoutes(router)

	// Initialize rate limiters. With Redis enabled, limits are enforced
	// through redis_rate so they hold across replicas; otherwise each
	// process keeps its own in-memory token buckets.
	bg := &BackgroundServices{
		facetWarmer: facetWarmer,
		redisClient: redisClient,
	}

	// Audit shipping for authenticated writes (submissions, bookmarks,
	// moderation decisions). Misconfiguration disables auditing but never
	// blocks startup.
	var auditMW gin.HandlerFunc
	if cfg.Audit.Enabled {
		shipper, err := audit.NewMultiShipper(auditShipperConfigs(&cfg.Audit))
		if err != nil {
			slog.Error("failed to initialize audit shippers, auditing disabled", "error", err)
		} else {
			bg.auditShipper = shipper
			auditMW = middleware.AuditMiddleware(shipper, &cfg.Audit)
		}
	}
	authLimit := bg.newRateLimitMiddleware(redisClient, middleware.AuthRateLimitConfig())
	generalLimit := bg.newRateLimitMiddleware(redisClient, middleware.DefaultRateLimitConfig())
	submitLimit := bg.newRateLimitMiddleware(redisClient, middleware.SubmitRateLimitConfig())

	apiV1 := router.Group("/api/v1")
	{
		// Public authentication endpoints (no auth required, but rate limited)
		authGroup := apiV1.Group("/auth")
		authGroup.Use(authLimit)
		{
			authGroup.POST("/register", authHandlers.RegisterHandler())
			authGroup.POST("/login", authHandlers.LoginHandler())
			authGroup.GET("/oidc/login", authHandlers.OIDCLoginHandler())
			authGroup.GET("/oidc/callback", authHandlers.OIDCCallbackHandler())
			authGroup.GET("/logout", authHandlers.LogoutHandler())
		}

		// Public catalog endpoints (no auth required, but rate limited).
		// The static facet routes must be registered in the same group as the
		// :slug route; gin resolves the static segments first.
		catalogGroup := apiV1.Group("/skills")
		catalogGroup.Use(generalLimit)
		{
			catalogGroup.GET("", skills.SearchHandler(db))
			catalogGroup.GET("/categories", skills.CategoriesHandler(facetCache))
			catalogGroup.GET("/tags", skills.TagsHandler(facetCache, cfg.Catalog.TagFacetLimit))
			catalogGroup.GET("/stats", skills.StatsHandler(facetCache))
			catalogGroup.GET("/:slug", skills.GetSkillHandler(db))
		}

		// Authenticated-only endpoints
		authenticatedGroup := apiV1.Group("")
		authenticatedGroup.Use(middleware.AuthMiddleware(userRepo))
		authenticatedGroup.Use(generalLimit)
		if auditMW != nil {
			authenticatedGroup.Use(auditMW)
		}
		{
			// Auth endpoints (require auth)
			authenticatedGroup.POST("/auth/refresh", authHandlers.RefreshHandler())
			authenticatedGroup.GET("/auth/me", authHandlers.MeHandler())

			// Bookmarks
			bookmarksGroup := authenticatedGroup.Group("/bookmarks")
			{
				bookmarksGroup.GET("", bookmarkHandlers.List)
				bookmarksGroup.GET("/:slug", bookmarkHandlers.Check)
				bookmarksGroup.POST("/:slug", bookmarkHandlers.Add)
				bookmarksGroup.DELETE("/:slug", bookmarkHandlers.Remove)
			}

			// Own submissions; creation carries the stricter submit limit
			userSkillsGroup := authenticatedGroup.Group("/user/skills")
			{
				userSkillsGroup.POST("", submitLimit, submissionHandlers.Create)
				userSkillsGroup.GET("", submissionHandlers.List)
				userSkillsGroup.GET("/:id", submissionHandlers.Get)
				userSkillsGroup.PUT("/:id", submissionHandlers.Update)
				userSkillsGroup.DELETE("/:id", submissionHandlers.Delete)
			}

			// Moderation queue (moderator or admin role)
			moderationGroup := authenticatedGroup.Group("/moderation")
			moderationGroup.Use(middleware.RequireModerator())
			{
				moderationGroup.GET("/pending", moderationHandlers.ListPending)
				moderationGroup.POST("/:id", moderationHandlers.Decide)
			}
		}
	}

	return router, bg
}

// auditShipperConfigs converts the viper-backed audit config into the audit
// package's shipper configs.
func auditShipperConfigs(cfg *config.AuditConfig) []audit.ShipperConfig {
	out := make([]audit.ShipperConfig, 0, len(cfg.Shippers))
	for _, sc := range cfg.Shippers {
		conv := audit.ShipperConfig{
			Enabled: sc.Enabled,
			Type:    sc.Type,
		}
		if sc.Webhook != nil {
			conv.Webhook = &audit.WebhookConfig{
				URL:           sc.Webhook.URL,
				Headers:       sc.Webhook.Headers,
				Timeout:       time.Duration(sc.Webhook.TimeoutSecs) * time.Second,
				BatchSize:     sc.Webhook.BatchSize,
				FlushInterval: time.Duration(sc.Webhook.FlushInterval) * time.Second,
			}
		}
		if sc.File != nil {
			conv.File = &audit.FileConfig{
				Path:       sc.File.Path,
				MaxSizeMB:  sc.File.MaxSizeMB,
				MaxBackups: sc.File.MaxBackups,
			}
		}
		out = append(out, conv)
	}
	return out
}

// newRateLimitMiddleware builds the middleware for one rate limit tier and
// records any in-memory limiter so Shutdown can stop its cleanup goroutine.
func (bg *BackgroundServices) newRateLimitMiddleware(redisClient *redis.Client, rlCfg middleware.RateLimitConfig) gin.HandlerFunc {
	if redisClient != nil {
		return middleware.RedisRateLimitMiddleware(middleware.NewRedisRateLimiter(redisClient, rlCfg))
	}
	limiter := middleware.NewRateLimiter(rlCfg)
	bg.rateLimiters = append(bg.rateLimiters, limiter)
	return middleware.RateLimitMiddleware(limiter)
}

// registerSwaggerRoutes serves the Swagger UI from a CDN and the embedded
// OpenAPI document.
func registerSwaggerRoutes(router *gin.Engine) {
	serveSwaggerUI := func(c *gin.Context) {
		// Generate a per-request nonce for CSP
		nb := make([]byte, 16)
		if _, err := rand.Read(nb); err != nil {
			c.String(http.StatusInternalServerError, "failed to generate nonce")
			return
		}
		nonce := base64.StdEncoding.EncodeToString(nb)

		// Allow same-origin framing so the frontend React app can embed this page
		c.Header("X-Frame-Options", "SAMEORIGIN")

		// Set a nonce-based Content Security Policy allowing the generated
		// nonce for inline scripts and styles. This is safe for serving the
		// Swagger UI page while keeping the global API CSP strict.
		c.Header("Content-Type", "text/html; charset=utf-8")
		c.Header("Content-Security-Policy", fmt.Sprintf(
			"default-src 'self' https:; script-src 'self' 'nonce-%s' https:; style-src 'self' 'nonce-%s' https:; img-src 'self' data: https:; font-src 'self' https:; connect-src 'self' https:",
			nonce, nonce,
		))

		html := fmt.Sprintf(`<!DOCTYPE html>
<html>
	<head>
		<title>ClawHub API</title>
		<meta charset="utf-8"/>
		<meta name="viewport" content="width=device-width, initial-scale=1">
		<link rel="stylesheet" href="https://cdnjs.cloudflare.com/ajax/libs/swagger-ui/4.15.5/swagger-ui.min.css">
		<style nonce="%s">
			html{
				box-sizing: border-box;
				overflow: -moz-scrollbars-vertical;
				overflow-y: scroll;
			}
			*,
			*:before,
			*:after{
				box-sizing: inherit;
			}
		</style>
	</head>

	<body>
		<div id="swagger-ui"></div>

		<script src="https://cdnjs.cloudflare.com/ajax/libs/swagger-ui/4.15.5/swagger-ui-bundle.min.js" crossorigin></script>
		<script src="https://cdnjs.cloudflare.com/ajax/libs/swagger-ui/4.15.5/swagger-ui-standalone-preset.min.js" crossorigin></script>
		<script nonce="%s">
		window.onload = function() {
			const ui = SwaggerUIBundle({
				url: "/swagger.json",
				dom_id: '#swagger-ui',
				deepLinking: true,
				presets: [
					SwaggerUIBundle.presets.apis,
					SwaggerUIBundle.SwaggerUIStandalonePreset
				],
				plugins: [
					SwaggerUIBundle.plugins.DownloadUrl
				],
				layout: "BaseLayout",
				docExpansion: "list"
			})
			window.ui = ui
		}
	</script>
	</body>
</html>`, nonce, nonce)

		c.Data(200, "text/html; charset=utf-8", []byte(html))
	}

	// Register both exact and trailing-slash routes for Swagger UI
	router.GET("/api-docs/index.html", serveSwaggerUI)
	router.GET("/api-docs/", serveSwaggerUI)
	// Redirect /api-docs -> /api-docs/
	router.GET("/api-docs", func(c *gin.Context) {
		c.Redirect(http.StatusMovedPermanently, "/api-docs/")
	})

	// Raw Swagger JSON endpoint - serve embedded spec with runtime metadata
	router.GET("/swagger.json", func(c *gin.Context) {
		c.Header("Content-Type", "application/json")
		c.Header("Access-Control-Allow-Origin", "*")

		data := docs.SwaggerJSON

		c.Data(http.StatusOK, "application/json", data)
	})
}

// @Summary      Health check
// @Description  Returns the health status of the service, including database connectivity.
// @Tags         System
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "status: healthy, time: RFC3339 timestamp"
// @Failure      503  {object}  map[string]interface{}  "status: unhealthy, error: database connection failed"
// @Router       /health [get]
// healthCheckHandler returns the health status of the service
func healthCheckHandler(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Check database connection
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unhealthy",
				"error":  "database connection failed",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status": "healthy",
			"time":   time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// @Summary      Readiness check
// @Description  Returns whether the service is ready to accept traffic. Checks database connectivity and, when configured, Redis.
// @Tags         System
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "ready: true, checks, time: RFC3339 timestamp"
// @Failure      503  {object}  map[string]interface{}  "ready: false, checks, error"
// @Router       /ready [get]
// readinessHandler returns the readiness status of the service.
// Unlike the liveness probe (/health), this also pings Redis when it is
// configured so that a Kubernetes readiness gate fails when facet caching and
// distributed rate limiting would error.
func readinessHandler(db *sql.DB, redisClient *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		checks := gin.H{}

		// Check database connection
		if err := db.Ping(); err != nil {
			checks["database"] = "unhealthy"
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"ready":  false,
				"checks": checks,
				"error":  "database not ready",
			})
			return
		}
		checks["database"] = "healthy"

		if redisClient != nil {
			if err := redisClient.Ping(c.Request.Context()).Err(); err != nil {
				checks["redis"] = "unhealthy"
				c.JSON(http.StatusServiceUnavailable, gin.H{
					"ready":  false,
					"checks": checks,
					"error":  "redis not ready",
				})
				return
			}
			checks["redis"] = "healthy"
		}

		c.JSON(http.StatusOK, gin.H{
			"ready":  true,
			"checks": checks,
			"time":   time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// @Summary      API version
// @Description  Returns the current API version.
// @Tags         System
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "version, api_version"
// @Router       /version [get]
// versionHandler returns the API version
func versionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"version":     "0.1.0",
			"api_version": "v1",
		})
	}
}

// LoggerMiddleware provides structured logging
func LoggerMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)

		// Log the request
		if cfg.Logging.Format == "json" {
			logJSON(c, latency, path, query)
		} else {
			logText(c, latency, path, query)
		}
	}
}

// logJSON logs a request as a JSON-structured slog record.
func logJSON(c *gin.Context, latency time.Duration, path, query string) {
	slog.LogAttrs(
		c.Request.Context(),
		slog.LevelInfo,
		"http request",
		slog.String("method", c.Request.Method),
		slog.String("path", path),
		slog.String("query", query),
		slog.Int("status", c.Writer.Status()),
		slog.Int("size", c.Writer.Size()),
		slog.Duration("latency", latency),
		slog.String("ip", c.ClientIP()),
		slog.String("request_id", middleware.RequestID(c)),
		slog.String("user_agent", c.Request.UserAgent()),
	)
}

// logText logs a request as a human-readable slog text record.
func logText(c *gin.Context, latency time.Duration, path, query string) {
	// reuse the same structured output; slog will emit text format when the global
	// handler is a TextHandler (configured in telemetry.SetupLogger).
	logJSON(c, latency, path, query)
}

// CORSMiddleware handles CORS
func CORSMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")

		// Check if origin is allowed
		allowed := false
		for _, allowedOrigin := range cfg.Security.CORS.AllowedOrigins {
			if allowedOrigin == "*" || allowedOrigin == origin {
				allowed = true
				break
			}
		}

		if allowed {
			if origin == "" {
				c.Header("Access-Control-Allow-Origin", "*")
			} else {
				c.Header("Access-Control-Allow-Origin", origin)
			}
			c.Header("Access-Control-Allow-Credentials", "true")
			c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization, X-Requested-With")
			c.Header("Access-Control-Max-Age", "3600")
		}

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
