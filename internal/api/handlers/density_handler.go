package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/paulmach/orb/geojson"

	"geocover/internal/geo"
	"geocover/internal/services"
)

type DensityHandler struct {
	density *services.DensityService
}

func NewDensityHandler(density *services.DensityService) *DensityHandler {
	return &DensityHandler{density: density}
}

// densityRequest leaves the tuning fields as pointers so an omitted field
// keeps the server default while an explicit zero is still validated.
type densityRequest struct {
	Boundary         json.RawMessage            `json:"boundary"`
	Features         *geojson.FeatureCollection `json:"features" binding:"required"`
	Precision        *int                       `json:"precision"`
	TopPercent       *float64                   `json:"top_percent"`
	MinNeighborVotes *int                       `json:"min_neighbor_votes"`
}

// Select handles POST /v1/density
func (h *DensityHandler) Select(c *gin.Context) {
	var req densityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}

	cfg := h.density.Defaults()
	if req.Precision != nil {
		cfg.Precision = *req.Precision
	}
	if req.TopPercent != nil {
		cfg.TopPercent = *req.TopPercent
	}
	if req.MinNeighborVotes != nil {
		cfg.MinNeighborVotes = *req.MinNeighborVotes
	}

	var boundary *geo.RegionInput
	if len(req.Boundary) > 0 && string(req.Boundary) != "null" {
		in, err := geo.ParseRegionInput(req.Boundary)
		if err != nil {
			respondError(c, err)
			return
		}
		boundary = &in
	}

	out, err := h.density.Select(c.Request.Context(), boundary, req.Features, cfg)
	if err != nil {
		respondError(c, err)
		return
	}
	if out.Warning != "" {
		c.Header(WarningHeader, out.Warning)
	}
	c.JSON(http.StatusOK, gin.H{
		"cells":      out.Result.Cells,
		"threshold":  out.Result.Threshold,
		"features":   out.Result.Features,
		"skipped":    out.Result.Skipped,
		"collection": out.Collection,
		"warning":    out.Warning,
	})
}
