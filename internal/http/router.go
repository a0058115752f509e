// Package httpapi wires the HTTP transport (Gin) to the application services,
// middleware and route handlers. It centralizes tracing, correlation IDs,
// redacted access logs, panic recovery, metrics, compression, CORS, security
// headers, idempotency and rate limiting.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/tbourn/go-orcamento-backend/internal/config"
	"github.com/tbourn/go-orcamento-backend/internal/http/handlers"
	"github.com/tbourn/go-orcamento-backend/internal/http/middleware"
	"github.com/tbourn/go-orcamento-backend/internal/repo"
)

const (
	// FunctionsBasePath hosts the endpoint used by the field app.
	FunctionsBasePath = "/functions/v1"

	defaultBodyLimit = 1 << 20
	// maxFilesPerUpload sizes the body limit of the media upload route.
	maxFilesPerUpload = 10
)

// RegisterRoutes attaches all middleware and endpoints to r.
//
// Middleware order matters:
//  1. OpenTelemetry
//  2. RequestID
//  3. AccessLog (request-scoped logger, redaction)
//  4. Recovery
//  5. Body size limit (uploads get their own, larger one)
//  6. Metrics
//  7. Gzip (event streams excluded)
//  8. Idempotency validator (before the rate limiter so replays bypass it)
//  9. Rate limiter (per vendor or IP)
//  10. CORS and security headers
func RegisterRoutes(r *gin.Engine, db *gorm.DB, svc handlers.Services, cfg config.Config) {
	r.HandleMethodNotAllowed = true
	apiBase := cfg.APIBasePath
	uploadRoute := strings.TrimSuffix(apiBase, "/") + "/sessions/:token/media"

	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))
	r.Use(middleware.RequestID())
	r.Use(middleware.AccessLog(middleware.AccessLogOptions{
		MaskHeaders: []string{"X-Amz-Security-Token"},
	}))
	r.Use(middleware.Recovery())
	r.Use(limitBody(defaultBodyLimit, func(c *gin.Context) bool {
		return c.Request.Method == http.MethodPost && c.FullPath() == uploadRoute
	}))

	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{FunctionsBasePath, "/metrics"})))

	r.Use(middleware.IdempotencyValidator(
		middleware.IdempotencyOptions{MaxLen: 200},
		idempotencyLookup(db),
	))

	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByVendorOrIP())
	r.Use(rl.Handler())

	allowHeaders := []string{"Origin", "Content-Type", "Accept", "Authorization", "If-Match", "If-None-Match",
		middleware.HeaderVendorID, middleware.HeaderIdempotencyKey}
	exposeHeaders := []string{"X-Request-ID", "Content-Length", "ETag", "Retry-After", "Content-Disposition"}
	if len(cfg.CORS.AllowedOrigins) == 0 {
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:     allowHeaders,
			ExposeHeaders:    exposeHeaders,
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	} else {
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
			AllowMethods:     []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:     allowHeaders,
			ExposeHeaders:    exposeHeaders,
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}

	// Proposals, signed links and the chat stream must not be cached.
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStorePaths: []string{"/proposal", "/media", "/send-report", FunctionsBasePath},
		EnablePolicy: true,
	}))

	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	h := handlers.New(svc)
	uploadLimit := cfg.MaxUploadBytes * maxFilesPerUpload
	if uploadLimit <= 0 {
		uploadLimit = defaultBodyLimit
	}
	h.MaxUploadMemory = min(uploadLimit, 32<<20)
	h.Mount(groupWithPrefix(r, apiBase), r.Group(FunctionsBasePath), limitBody(uploadLimit, nil))
}

// idempotencyLookup resolves the session token of REST routes and checks the
// key within that session.
func idempotencyLookup(db *gorm.DB) middleware.IdempotencyLookup {
	return func(ctx context.Context, token, key string, now time.Time) (bool, error) {
		sess, err := repo.GetSessionByToken(ctx, db, token)
		if err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return false, nil
			}
			return false, err
		}
		if _, err := repo.GetIdempotency(ctx, db, sess.ID, key, now); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return false, nil
			}
			return false, err
		}
		return true, nil
	}
}

// limitBody caps request bodies at maxBytes with http.MaxBytesReader. skip,
// when set, exempts matching requests.
func limitBody(maxBytes int64, skip func(*gin.Context) bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if skip == nil || !skip(c) {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}
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
