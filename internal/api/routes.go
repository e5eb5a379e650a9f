// Package api wires the HTTP handlers onto a gin engine.
package api

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"geocover/internal/api/handlers"
	"geocover/internal/api/middleware"
	"geocover/internal/logger"
	"geocover/internal/metrics"
)

// Handlers groups every handler the router mounts.
type Handlers struct {
	Coverage *handlers.CoverageHandler
	Cells    *handlers.CellHandler
	Jobs     *handlers.JobHandler
	Density  *handlers.DensityHandler
	Budget   *handlers.BudgetHandler
	Boundary *handlers.BoundaryHandler
}

// Options are the cross-cutting settings of the router.
type Options struct {
	APIKeys      []string
	MaxBodyBytes int64
	Metrics      *metrics.Collector
	Logger       *slog.Logger
}

type Router struct {
	h    Handlers
	opts Options
}

func NewRouter(h Handlers, opts Options) *Router {
	if opts.Logger == nil {
		opts.Logger = logger.L()
	}
	return &Router{h: h, opts: opts}
}

func (r *Router) Setup(engine *gin.Engine) {
	engine.Use(
		gin.Recovery(),
		logger.AccessLog(r.opts.Logger),
		middleware.Metrics(r.opts.Metrics),
	)

	// Health check endpoint
	engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	engine.GET("/metrics", gin.WrapH(r.opts.Metrics.Handler()))

	// Protected routes
	v1 := engine.Group("/v1")
	v1.Use(middleware.APIKeyAuth(r.opts.APIKeys), middleware.MaxBody(r.opts.MaxBodyBytes))
	{
		v1.POST("/coverage", r.h.Coverage.Cover)
		v1.GET("/precision/:precision", r.h.Coverage.Precision)
		v1.GET("/encode", r.h.Cells.Encode)

		cells := v1.Group("/cells")
		{
			cells.POST("/geojson", r.h.Cells.GeoJSON)
			cells.POST("/table", r.h.Cells.Table)
			cells.POST("/road-length", r.h.Cells.RoadLength)
			cells.GET("/:geohash", r.h.Cells.Decode)
			cells.GET("/:geohash/neighbors", r.h.Cells.Neighbors)
		}

		jobs := v1.Group("/jobs")
		{
			jobs.POST("", r.h.Jobs.Submit)
			jobs.GET("", r.h.Jobs.List)
			jobs.GET("/:id", r.h.Jobs.Get)
			jobs.GET("/:id/result", r.h.Jobs.Result)
			jobs.DELETE("/:id", r.h.Jobs.Cancel)
		}

		v1.POST("/density", r.h.Density.Select)
		v1.POST("/budget/forecast", r.h.Budget.Forecast)
		v1.GET("/boundaries", r.h.Boundary.List)
	}
}
