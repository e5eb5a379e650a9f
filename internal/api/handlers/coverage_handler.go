package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"geocover/internal/geo"
	"geocover/internal/services"
	"geocover/pkg/utils"
)

type CoverageHandler struct {
	coverage *services.CoverageService
}

func NewCoverageHandler(coverage *services.CoverageService) *CoverageHandler {
	return &CoverageHandler{coverage: coverage}
}

// coverageConfigFromQuery overlays the precision, step, mode, strategy and
// workers query parameters on defaults. Choosing a precision without a step
// switches to that precision's recommended step.
func coverageConfigFromQuery(c *gin.Context, defaults geo.CoverageConfig) (geo.CoverageConfig, error) {
	cfg := defaults
	if v := c.Query("precision"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			return cfg, fmt.Errorf("%w: precision %q is not an integer", geo.ErrInvalidConfig, v)
		}
		if p != cfg.Precision {
			cfg.ScanStep = 0
		}
		cfg.Precision = p
	}
	if v := c.Query("step"); v != "" {
		step, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return cfg, fmt.Errorf("%w: step %q is not a number", geo.ErrInvalidConfig, v)
		}
		cfg.ScanStep = step
	}
	if v := c.Query("mode"); v != "" {
		cfg.Mode = geo.Mode(v)
	}
	if v := c.Query("strategy"); v != "" {
		cfg.Strategy = geo.Strategy(v)
	}
	if v := c.Query("workers"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return cfg, fmt.Errorf("%w: workers %q must be a positive integer", geo.ErrInvalidConfig, v)
		}
		cfg.Workers = n
	}
	return cfg.Resolve()
}

// readRegion parses the request body as a GeoJSON FeatureCollection,
// Feature or bare geometry.
func readRegion(c *gin.Context) (geo.RegionInput, error) {
	data, err := c.GetRawData()
	if err != nil {
		return geo.RegionInput{}, err
	}
	if len(data) == 0 {
		return geo.RegionInput{}, fmt.Errorf("%w: empty body, expected GeoJSON", errBadRequest)
	}
	return geo.ParseRegionInput(data)
}

// Cover handles POST /v1/coverage
//
// The region is covered synchronously within the request's lifetime: if the
// client disconnects, the request context is cancelled and the scan stops.
// Large regions should go through /v1/jobs instead.
func (h *CoverageHandler) Cover(c *gin.Context) {
	format := c.Query("format")
	if err := checkFormat(format); err != nil {
		respondError(c, err)
		return
	}
	cfg, err := coverageConfigFromQuery(c, h.coverage.Defaults())
	if err != nil {
		respondError(c, err)
		return
	}
	in, err := readRegion(c)
	if err != nil {
		respondError(c, err)
		return
	}

	res, err := h.coverage.Cover(c.Request.Context(), in, cfg)
	if err != nil {
		respondError(c, err)
		return
	}
	renderCodes(c, res.Codes, format, coverageMeta{
		Precision: res.Config.Precision,
		CacheHit:  res.CacheHit,
		Warning:   res.Warning,
	})
}

// Precision handles GET /v1/precision/:precision
func (h *CoverageHandler) Precision(c *gin.Context) {
	p, err := strconv.Atoi(c.Param("precision"))
	if err != nil {
		respondError(c, fmt.Errorf("%w: %q is not an integer", geo.ErrInvalidPrecision, c.Param("precision")))
		return
	}
	if err := geo.ValidatePrecision(p); err != nil {
		respondError(c, err)
		return
	}

	latDeg, lonDeg := geo.CellSize(p)
	heightKm, widthKm := utils.CellDimensionsKm(0, latDeg, lonDeg)
	c.JSON(http.StatusOK, gin.H{
		"precision":        p,
		"lat_deg":          latDeg,
		"lon_deg":          lonDeg,
		"height_km":        heightKm,
		"width_km":         widthKm,
		"recommended_step": geo.RecommendedStep(p),
	})
}
