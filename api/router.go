// Package api assembles the HTTP surface.
package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/use-agent/propscrape/api/handler"
	"github.com/use-agent/propscrape/api/middleware"
	"github.com/use-agent/propscrape/config"
)

// Deps are the components the routes serve.
type Deps struct {
	Runner   handler.Runner
	Lister   handler.Lister
	Pool     handler.PoolReporter
	Registry *prometheus.Registry
}

// NewRouter creates a configured Gin engine with all routes and middleware.
//
// Middleware chain:
//
//	Global:  Recovery → RequestID → Logger
//	Jobs:    RateLimit (if enabled)
//
// Health and metrics sit outside the rate limit so probes always work.
// Job routes are mounted at the root and again under /api.
func NewRouter(cfg *config.Config, deps Deps, startTime time.Time) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(gin.Logger())

	r.GET("/health", handler.Health(deps.Pool, startTime))
	if deps.Registry != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{})))
	}

	var limit gin.HandlerFunc
	if cfg.RateLimit.Enabled {
		limit = middleware.RateLimit(cfg.RateLimit)
	}

	for _, prefix := range []string{"", "/api"} {
		jobs := r.Group(prefix)
		if limit != nil {
			jobs.Use(limit)
		}
		jobs.POST("/scrape", handler.Scrape(deps.Runner))
		jobs.GET("/properties", handler.Properties(deps.Lister))
	}

	return r
}
