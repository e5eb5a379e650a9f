package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"geocover/internal/geo"
	"geocover/internal/logger"
)

// DensityService picks the busiest cells of an area from caller-supplied
// features such as points of interest.
type DensityService struct {
	defaults geo.DensityConfig
	log      *slog.Logger
}

func NewDensityService(defaults geo.DensityConfig) *DensityService {
	return &DensityService{defaults: defaults, log: logger.L()}
}

// Defaults returns the settings requests start from.
func (s *DensityService) Defaults() geo.DensityConfig {
	return s.defaults
}

// DensityOutcome is a density selection with its cells rendered as
// GeoJSON.
type DensityOutcome struct {
	Result     *geo.DensityResult
	Collection *geojson.FeatureCollection
	Warning    string
}

// Select counts features per cell and keeps the dense cluster. boundary may
// be nil to use every feature. Finding no cell is reported through Warning,
// not as an error.
func (s *DensityService) Select(ctx context.Context, boundary *geo.RegionInput, features *geojson.FeatureCollection, cfg geo.DensityConfig) (*DensityOutcome, error) {
	var region *geo.Region
	if boundary != nil {
		r, err := boundary.Normalize()
		if err != nil {
			return nil, err
		}
		region = r
	}

	var geoms []orb.Geometry
	if features != nil {
		geoms = make([]orb.Geometry, 0, len(features.Features))
		for _, f := range features.Features {
			geoms = append(geoms, f.Geometry)
		}
	}

	res, err := geo.SelectDense(ctx, region, geoms, cfg)
	out := &DensityOutcome{Result: res}
	switch {
	case errors.Is(err, geo.ErrNoCoverageFound):
		out.Warning = err.Error()
	case err != nil:
		return nil, err
	}
	out.Collection = geo.DenseFeatureCollection(res.Cells)

	s.log.Info("density_done",
		"features", res.Features,
		"skipped", res.Skipped,
		"threshold", res.Threshold,
		"cells", len(res.Cells),
	)
	return out, nil
}
