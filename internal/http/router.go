package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/rochafa10/DeedFlow-sub010/internal/config"
	"github.com/rochafa10/DeedFlow-sub010/internal/http/handler"
	httpmiddleware "github.com/rochafa10/DeedFlow-sub010/internal/http/middleware"
	"github.com/rochafa10/DeedFlow-sub010/internal/metrics"
	"github.com/rochafa10/DeedFlow-sub010/internal/middleware"
)

// NewRouter wires Gin routes and middleware. The anti-forgery guard and the
// identity gate are independent; protected routes pass through both.
func NewRouter(cfg config.Config, csrfHandler *handler.CSRFHandler, watchlistHandler *handler.WatchlistHandler, authMiddleware *httpmiddleware.Auth, csrfMiddleware *httpmiddleware.CSRF, rateLimiter *middleware.RateLimiter, m *metrics.Metrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(httpmiddleware.RequestLogger(nil))
	if rateLimiter != nil {
		r.Use(rateLimiter.Handler())
	}
	r.Use(middleware.CORS(cfg))
	r.Use(otelgin.Middleware(cfg.ServiceName))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(m.Handler()))

	security := r.Group("/security")
	{
		security.POST("/csrf", authMiddleware.Authenticate, csrfHandler.IssueToken)
	}

	api := r.Group("/api/v1")
	api.Use(authMiddleware.Authenticate, csrfMiddleware.Guard)
	{
		api.GET("/watchlist", watchlistHandler.List)
		api.POST("/watchlist", watchlistHandler.Add)
		api.DELETE("/watchlist/:id", watchlistHandler.Remove)
	}

	return r
}
