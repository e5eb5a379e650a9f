package services

import (
	"context"
	"log/slog"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"geocover/internal/domain/entities"
	"geocover/internal/geo"
	"geocover/internal/logger"
)

// CellService turns code lists back into geometry and tables, and measures
// road length per cell. Invalid codes never abort a batch: they come back
// as failures next to the converted rest.
type CellService struct {
	log *slog.Logger
}

func NewCellService() *CellService {
	return &CellService{log: logger.L()}
}

// GeoJSON builds one rectangle feature per valid code.
func (s *CellService) GeoJSON(codes []string) (*geojson.FeatureCollection, []geo.CellFailure) {
	fc, failures := geo.ToFeatureCollection(codes)
	s.logFailures("cells_geojson", len(fc.Features), failures)
	return fc, failures
}

// Table builds one geohash,lat,lon row per valid code.
func (s *CellService) Table(codes []string) ([]entities.CellRow, []geo.CellFailure) {
	rows, failures := geo.ToTable(codes)
	s.logFailures("cells_table", len(rows), failures)
	return rows, failures
}

// Neighbors returns the eight surrounding cells keyed by direction. Cells
// that would fall beyond a pole are left out.
func (s *CellService) Neighbors(code string) (map[string]string, error) {
	code, err := geo.Normalize(code)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(geo.Directions))
	for _, dir := range geo.Directions {
		nb, ok, err := geo.Neighbor(code, dir)
		if err != nil {
			return nil, err
		}
		if ok {
			out[dir] = nb
		}
	}
	return out, nil
}

// RoadLength measures the roads of fc inside every cell. A nil collection
// measures nothing and reports every valid cell at zero length.
func (s *CellService) RoadLength(ctx context.Context, codes []string, fc *geojson.FeatureCollection) (*geo.RoadLengthResult, []geo.CellFailure, error) {
	var roads []orb.Geometry
	if fc != nil {
		roads = make([]orb.Geometry, 0, len(fc.Features))
		for _, f := range fc.Features {
			roads = append(roads, f.Geometry)
		}
	}
	res, failures, err := geo.RoadLength(ctx, codes, roads)
	if err != nil {
		return nil, nil, err
	}
	s.log.Info("road_length_done",
		"cells", len(res.Cells),
		"total_km", res.TotalKm,
		"segments", res.Segments,
		"failures", len(failures),
	)
	return res, failures, nil
}

func (s *CellService) logFailures(event string, converted int, failures []geo.CellFailure) {
	if len(failures) == 0 {
		return
	}
	s.log.Warn(event, "converted", converted, "failures", len(failures), "first", failures[0].Error())
}

// CodesFromCollection reads codes out of a FeatureCollection written by
// GeoJSON, or by older exports that used other property names.
func (s *CellService) CodesFromCollection(fc *geojson.FeatureCollection) ([]string, []geo.CellFailure) {
	return geo.CodesFromFeatureCollection(fc)
}
