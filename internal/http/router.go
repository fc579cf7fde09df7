// Package httpapi wires the HTTP transport (Gin) to the intake handlers and
// middleware. It centralizes cross-cutting concerns: tracing, correlation IDs,
// access logging, panic recovery, compression, metrics, CORS and rate limiting.
package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/tbourn/go-chat-intake/internal/config"
	"github.com/tbourn/go-chat-intake/internal/http/handlers"
	"github.com/tbourn/go-chat-intake/internal/http/middleware"
	"github.com/tbourn/go-chat-intake/internal/sysutil"
)

// PushPath is where the chat platform delivers events in push mode.
const PushPath = "/openapi/sainiu/getInfo"

const (
	maxBodyBytes       = 1 << 20
	defaultServiceName = "go-chat-intake"
)

// RegisterRoutes attaches all middleware and endpoints to r.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. Logger: structured access log, request-scoped logger
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Compression
//  7. Metrics
//  8. CORS
//
// The push endpoint is rate limited per client IP; debug probes send no-store
// headers.
func RegisterRoutes(r *gin.Engine, h *handlers.Handlers, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	r.Use(otelgin.Middleware(sysutil.FirstNonEmpty(cfg.OTEL.ServiceName, defaultServiceName)))
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(limitBody(maxBodyBytes))
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})))
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.Use(corsMiddleware(cfg.CORS.AllowedOrigins))

	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	r.GET("/health", h.Health)

	debug := r.Group("/debug", middleware.NoStore())
	{
		debug.GET("/kv", h.DebugKV)
		debug.GET("/db", h.DebugDB)
	}

	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByIP)
	r.POST(PushPath, rl.Handler(), h.PushEvent)

	api := groupWithPrefix(r, cfg.APIBasePath)
	{
		api.GET("/tracking", h.ListTracking)
		api.GET("/tracking/:messageId", h.GetTracking)
		api.GET("/inventory/:merchantCode", h.GetInventory)
		api.POST("/stock/check", h.CheckStock)
	}

	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	c := cors.Config{
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "If-None-Match"},
		ExposeHeaders:    []string{"X-Request-ID", "ETag", "Content-Length"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 0 {
		c.AllowAllOrigins = true
	} else {
		c.AllowOrigins = origins
	}
	return cors.New(c)
}

// limitBody caps the request body at maxBytes. Reads past the cap error.
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
