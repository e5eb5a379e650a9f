package geo

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"geocover/internal/domain/entities"
)

// DensityConfig tunes SelectDense.
type DensityConfig struct {
	Precision int `json:"precision"`
	// TopPercent is the share of occupied cells, by count, treated as dense.
	TopPercent float64 `json:"top_percent"`
	// MinNeighborVotes is how many dense neighbors a sparse cell needs before
	// it is pulled in to fill a gap.
	MinNeighborVotes int `json:"min_neighbor_votes"`
}

// DefaultDensityConfig returns precision 6, the top half of cells and two
// neighbor votes.
func DefaultDensityConfig() DensityConfig {
	return DensityConfig{
		Precision:        DefaultPrecision,
		TopPercent:       0.5,
		MinNeighborVotes: 2,
	}
}

func (c DensityConfig) validate() error {
	if err := ValidatePrecision(c.Precision); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if math.IsNaN(c.TopPercent) || c.TopPercent <= 0 || c.TopPercent > 1 {
		return fmt.Errorf("%w: top percent %v must be in (0, 1]", ErrInvalidConfig, c.TopPercent)
	}
	if c.MinNeighborVotes < 1 {
		return fmt.Errorf("%w: neighbor votes must be at least 1", ErrInvalidConfig)
	}
	return nil
}

// DensityResult is the outcome of SelectDense.
type DensityResult struct {
	Cells     []entities.DenseCell `json:"cells"`
	Threshold float64              `json:"threshold"`
	// Features counts the features that landed in a cell (inside the region).
	Features int `json:"features"`
	// Skipped counts empty or unsupported geometries.
	Skipped int `json:"skipped"`
}

// Codes returns the selected cell codes.
func (r *DensityResult) Codes() []string {
	out := make([]string, len(r.Cells))
	for i, c := range r.Cells {
		out[i] = c.Geohash
	}
	return out
}

// SelectDense picks the busiest cells of an area from a set of features
// (points of interest, buildings, roads):
//
//  1. each feature is reduced to one representative point and counted in its
//     cell; points outside region are ignored when region is non-nil;
//  2. cells whose count reaches the (1 - TopPercent) quantile are dense;
//  3. occupied cells with at least MinNeighborVotes dense neighbors are added;
//  4. the largest edge-connected cluster is kept together with every
//     selected cell touching it, corners included.
//
// When no feature lands in a cell the result is empty and the error is
// ErrNoCoverageFound.
func SelectDense(ctx context.Context, region *Region, features []orb.Geometry, cfg DensityConfig) (*DensityResult, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	index, err := NewCellIndex(cfg.Precision)
	if err != nil {
		return nil, err
	}
	res := &DensityResult{}
	for i, g := range features {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		p, ok := representativePoint(g)
		if !ok {
			res.Skipped++
			continue
		}
		if region != nil && !region.ContainsPoint(p) {
			continue
		}
		if _, err := index.Add(strconv.Itoa(i), p[1], p[0]); err != nil {
			res.Skipped++
			continue
		}
	}
	res.Features = index.Len()

	counts := index.Counts()
	if len(counts) == 0 {
		res.Cells = []entities.DenseCell{}
		return res, ErrNoCoverageFound
	}

	values := make([]float64, 0, len(counts))
	for _, n := range counts {
		values = append(values, float64(n))
	}
	res.Threshold = quantile(values, 1-cfg.TopPercent)

	selected := make(map[string]struct{})
	for code, n := range counts {
		if float64(n) >= res.Threshold {
			selected[code] = struct{}{}
		}
	}

	// Gap filling votes only come from the dense cells found above.
	votes := make(map[string]int)
	for code := range selected {
		nbs, err := Neighbors(code)
		if err != nil {
			return nil, err
		}
		for _, nb := range nbs {
			votes[nb]++
		}
	}
	for code, v := range votes {
		if _, dense := selected[code]; dense || v < cfg.MinNeighborVotes {
			continue
		}
		if counts[code] > 0 {
			selected[code] = struct{}{}
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	kept, err := keepLargestCluster(selected)
	if err != nil {
		return nil, err
	}
	res.Cells = make([]entities.DenseCell, 0, len(kept))
	for _, code := range kept {
		res.Cells = append(res.Cells, entities.DenseCell{Geohash: code, Count: counts[code]})
	}
	return res, nil
}

// representativePoint reduces a geometry to one point that lies on it:
// points stand for themselves, lines use their middle vertex, and polygons
// use their centroid when it falls inside, else the first shell vertex.
func representativePoint(g orb.Geometry) (orb.Point, bool) {
	switch g := g.(type) {
	case orb.Point:
		return g, true
	case orb.MultiPoint:
		if len(g) == 0 {
			return orb.Point{}, false
		}
		return g[0], true
	case orb.LineString:
		if len(g) == 0 {
			return orb.Point{}, false
		}
		return g[len(g)/2], true
	case orb.MultiLineString:
		for _, ls := range g {
			if len(ls) > 0 {
				return ls[len(ls)/2], true
			}
		}
		return orb.Point{}, false
	case orb.Ring:
		return representativePoint(orb.Polygon{g})
	case orb.Polygon:
		if len(g) == 0 || len(g[0]) == 0 {
			return orb.Point{}, false
		}
		if c, area := planar.CentroidArea(g); area != 0 && planar.PolygonContains(g, c) {
			return c, true
		}
		return g[0][0], true
	case orb.MultiPolygon:
		for _, poly := range g {
			if p, ok := representativePoint(poly); ok {
				return p, true
			}
		}
		return orb.Point{}, false
	case orb.Bound:
		return g.Center(), true
	case orb.Collection:
		for _, member := range g {
			if p, ok := representativePoint(member); ok {
				return p, true
			}
		}
	}
	return orb.Point{}, false
}

// quantile returns the q-quantile of values with linear interpolation
// between the closest ranks, the convention used by pandas and numpy.
func quantile(values []float64, q float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := lo + 1
	if hi >= len(sorted) {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}

var edgeDirections = []string{"n", "e", "s", "w"}

// keepLargestCluster groups cells into edge-connected clusters and returns,
// sorted, the largest cluster plus every cell that touches it at an edge or
// a corner. Ties between clusters of equal size go to the one holding the
// smallest code.
func keepLargestCluster(cells map[string]struct{}) ([]string, error) {
	codes := make([]string, 0, len(cells))
	for code := range cells {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	cluster := make(map[string]int, len(codes))
	var sizes []int
	for _, start := range codes {
		if _, seen := cluster[start]; seen {
			continue
		}
		id := len(sizes)
		sizes = append(sizes, 0)
		stack := []string{start}
		cluster[start] = id
		for len(stack) > 0 {
			code := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			sizes[id]++
			for _, dir := range edgeDirections {
				nb, ok, err := Neighbor(code, dir)
				if err != nil {
					return nil, err
				}
				if !ok {
					continue
				}
				if _, member := cells[nb]; !member {
					continue
				}
				if _, seen := cluster[nb]; seen {
					continue
				}
				cluster[nb] = id
				stack = append(stack, nb)
			}
		}
	}
	if len(sizes) == 0 {
		return []string{}, nil
	}

	// Clusters are numbered in order of their smallest code, so the first
	// maximum wins ties.
	best := 0
	for id, size := range sizes {
		if size > sizes[best] {
			best = id
		}
	}

	out := make([]string, 0, sizes[best])
	for _, code := range codes {
		if cluster[code] == best {
			out = append(out, code)
			continue
		}
		nbs, err := Neighbors(code)
		if err != nil {
			return nil, err
		}
		for _, nb := range nbs {
			if id, member := cluster[nb]; member && id == best {
				out = append(out, code)
				break
			}
		}
	}
	return out, nil
}
