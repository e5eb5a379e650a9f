package geo

import (
	"context"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/clip"

	"geocover/internal/domain/entities"
	"geocover/pkg/utils"
)

// RoadLengthResult is the per-cell road length of a set of cells.
type RoadLengthResult struct {
	// Cells has one entry per valid code, sorted, including cells with no road.
	Cells   []entities.RoadCell `json:"cells"`
	TotalKm float64             `json:"total_km"`
	// Segments counts the clipped road pieces that contributed length.
	Segments int `json:"segments"`
	// Skipped counts road geometries that are not lines.
	Skipped int `json:"skipped"`
}

// RoadLength clips every road line to every cell and sums the great-circle
// length of what falls inside. Invalid codes are reported as failures and
// the rest are still measured. A road running exactly along a shared cell
// edge is counted in both cells.
func RoadLength(ctx context.Context, codes []string, roads []orb.Geometry) (*RoadLengthResult, []CellFailure, error) {
	valid, failures := normalizeCodes(codes)

	res := &RoadLengthResult{Cells: make([]entities.RoadCell, 0, len(valid))}
	var lines []orb.LineString
	for _, g := range roads {
		if !collectLines(g, &lines) {
			res.Skipped++
		}
	}
	lineBounds := make([]orb.Bound, len(lines))
	for i, ls := range lines {
		lineBounds[i] = ls.Bound()
	}

	for _, code := range valid {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		cell := bounds(code)
		total := 0.0
		for i, ls := range lines {
			if !cell.Intersects(lineBounds[i]) {
				continue
			}
			for _, piece := range clip.LineString(cell, ls) {
				if km := lineLengthKm(piece); km > 0 {
					total += km
					res.Segments++
				}
			}
		}
		res.Cells = append(res.Cells, entities.RoadCell{Geohash: code, LengthKm: total})
		res.TotalKm += total
	}
	return res, failures, nil
}

// collectLines appends the line strings of g to out. It reports false when g
// holds no line at all.
func collectLines(g orb.Geometry, out *[]orb.LineString) bool {
	switch g := g.(type) {
	case orb.LineString:
		if len(g) < 2 {
			return false
		}
		*out = append(*out, g)
		return true
	case orb.MultiLineString:
		found := false
		for _, ls := range g {
			if collectLines(ls, out) {
				found = true
			}
		}
		return found
	case orb.Collection:
		found := false
		for _, c := range g {
			if collectLines(c, out) {
				found = true
			}
		}
		return found
	}
	return false
}

func lineLengthKm(ls orb.LineString) float64 {
	total := 0.0
	for i := 1; i < len(ls); i++ {
		a, b := ls[i-1], ls[i]
		total += utils.HaversineDistance(a[1], a[0], b[1], b[0])
	}
	return total
}
