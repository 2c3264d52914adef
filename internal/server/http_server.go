package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	deskgin "github.com/pilab-dev/reviewdesk/api/gin"
	"github.com/pilab-dev/reviewdesk/config"
	"github.com/pilab-dev/reviewdesk/log"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// Handlers are the route groups served by the HTTP server.
type Handlers struct {
	OAuth   *deskgin.OAuthAPI
	Reviews *deskgin.ReviewAPI
	Health  gin.HandlerFunc
	Metrics http.Handler
}

// NewRouter builds the gin engine with logging, tracing, security headers
// and tenant resolution in front of the API routes.
func NewRouter(cfg *config.Config, appLogger log.Logger, h Handlers) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.Use(func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := map[string]interface{}{
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     c.Writer.Status(),
			"latency":    time.Since(start).String(),
			"ip":         c.ClientIP(),
			"user_agent": c.Request.UserAgent(),
		}
		if len(c.Errors) > 0 {
			appLogger.Error(c.Request.Context(), c.Errors.String(), c.Errors.Last().Err, fields)
			return
		}
		appLogger.Info(c.Request.Context(), "HTTP Request", fields)
	})

	router.Use(otelgin.Middleware(cfg.OtelServiceName))
	router.Use(deskgin.SecurityHeadersMiddleware())

	if h.Health != nil {
		router.GET("/health", h.Health)
	}
	if h.Metrics != nil {
		router.GET("/metrics", gin.WrapH(h.Metrics))
	}

	api := router.Group("/api", deskgin.TenantMiddleware(cfg.Auth))
	if h.OAuth != nil {
		h.OAuth.RegisterRoutes(api)
	}
	if h.Reviews != nil {
		h.Reviews.RegisterRoutes(api)
	}

	return router
}

// NewHTTPServer wraps the router in an http.Server listening on cfg.HTTPAddr.
func NewHTTPServer(cfg *config.Config, appLogger log.Logger, h Handlers) *http.Server {
	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           NewRouter(cfg, appLogger, h),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}
