package geo

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"sort"
	"sync"

	"github.com/paulmach/orb"
)

// DefaultScanStep is the grid-scan step, in degrees, used when a caller does
// not pick one. It is tuned for precision 6 cells (~0.0055° tall).
const DefaultScanStep = 0.0015

// maxSeedCells bounds how many cells the subdivide strategy starts from.
const maxSeedCells = 4096

// Mode selects which cells count as covering the region.
type Mode string

const (
	// ModeBoundaryTouching keeps every cell that shares at least one point
	// with the region, edges included.
	ModeBoundaryTouching Mode = "boundary-touching"
	// ModeCentroidOnly keeps a cell only when its center lies in the region.
	ModeCentroidOnly Mode = "centroid-only"
)

// Strategy selects the tiling algorithm.
type Strategy string

const (
	// StrategyGridScan samples the bounding box at ScanStep and encodes every
	// sample whose step-sized rectangle meets the region.
	StrategyGridScan Strategy = "grid-scan"
	// StrategySubdivide walks the geohash tree itself, splitting cells that
	// straddle the boundary. It ignores ScanStep and is exact.
	StrategySubdivide Strategy = "subdivide"
)

// CoverageConfig is the single set of knobs for a coverage run.
//
// Go Learning Note — Config Structs over Globals:
// Passing one explicit struct keeps every call self-describing and makes
// concurrent runs with different settings safe: there is no package state
// to fight over. DefaultCoverageConfig gives callers a starting point they
// copy and modify.
type CoverageConfig struct {
	Precision int      `json:"precision"`
	ScanStep  float64  `json:"scan_step"`
	Mode      Mode     `json:"mode"`
	Strategy  Strategy `json:"strategy"`
	Workers   int      `json:"workers,omitempty"`
}

// DefaultCoverageConfig returns precision 6, a 0.0015° step, boundary-touching
// mode and the grid-scan strategy.
func DefaultCoverageConfig() CoverageConfig {
	return CoverageConfig{
		Precision: DefaultPrecision,
		ScanStep:  DefaultScanStep,
		Mode:      ModeBoundaryTouching,
		Strategy:  StrategyGridScan,
	}
}

// Resolve fills blank fields (mode, strategy, workers, and a zero step, which
// becomes RecommendedStep) and validates the result.
func (c CoverageConfig) Resolve() (CoverageConfig, error) {
	if c.Mode == "" {
		c.Mode = ModeBoundaryTouching
	}
	if c.Strategy == "" {
		c.Strategy = StrategyGridScan
	}
	if c.Workers <= 0 {
		c.Workers = runtime.NumCPU()
	}
	if err := ValidatePrecision(c.Precision); err != nil {
		return c, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if c.ScanStep == 0 {
		c.ScanStep = RecommendedStep(c.Precision)
	}
	if math.IsNaN(c.ScanStep) || math.IsInf(c.ScanStep, 0) || c.ScanStep <= 0 {
		return c, fmt.Errorf("%w: scan step %v must be positive", ErrInvalidConfig, c.ScanStep)
	}
	switch c.Mode {
	case ModeBoundaryTouching, ModeCentroidOnly:
	default:
		return c, fmt.Errorf("%w: unknown mode %q", ErrInvalidConfig, c.Mode)
	}
	switch c.Strategy {
	case StrategyGridScan, StrategySubdivide:
	default:
		return c, fmt.Errorf("%w: unknown strategy %q", ErrInvalidConfig, c.Strategy)
	}
	return c, nil
}

// CoverageSet is a sorted, duplicate-free list of codes of one precision.
type CoverageSet []string

// Contains reports whether code is a member, using binary search.
func (s CoverageSet) Contains(code string) bool {
	i := sort.SearchStrings(s, code)
	return i < len(s) && s[i] == code
}

// Progress reports how far a coverage run has got. Done and Total count scan
// rows for grid-scan and seed cells for subdivide.
type Progress struct {
	Done  int `json:"done"`
	Total int `json:"total"`
}

// Percent returns progress in the range 0..100.
func (p Progress) Percent() float64 {
	if p.Total <= 0 {
		return 0
	}
	return 100 * float64(p.Done) / float64(p.Total)
}

// CoverOption customises a single Cover call.
type CoverOption func(*coverOptions)

type coverOptions struct {
	progress func(Progress)
}

// WithProgress registers a callback invoked after every completed row (or
// seed cell). Calls are serialized, so the callback needs no locking of its
// own, and Done increases by one each time.
func WithProgress(fn func(Progress)) CoverOption {
	return func(o *coverOptions) {
		o.progress = fn
	}
}

// Cover computes the geohash cells covering region.
//
// The work is split into units (scan rows or seed cells) that are sharded
// across cfg.Workers goroutines. Each worker fills its own set and the sets
// are merged once every worker is done, so no collection is shared while
// scanning. ctx is checked before every unit; if it is cancelled Cover
// returns ctx.Err() and no partial result.
//
// An empty region, or a run that finds no cells, returns an empty set
// together with ErrNoCoverageFound.
//
// Go Learning Note — Fan-out / Fan-in:
// A buffered channel of work units feeds N goroutines (fan-out); each
// goroutine keeps a private map, and the maps are unioned after wg.Wait()
// (fan-in). Nothing is shared during the scan, so the only lock left guards
// the progress counter.
func Cover(ctx context.Context, region *Region, cfg CoverageConfig, opts ...CoverOption) (CoverageSet, error) {
	cfg, err := cfg.Resolve()
	if err != nil {
		return nil, err
	}
	var o coverOptions
	for _, opt := range opts {
		opt(&o)
	}
	if region.IsEmpty() {
		return CoverageSet{}, ErrNoCoverageFound
	}

	var s scanner
	switch cfg.Strategy {
	case StrategySubdivide:
		s = newSubdivideScanner(region, cfg)
	default:
		s = newGridScanner(region, cfg)
	}

	sets, err := runShards(ctx, s, cfg.Workers, o.progress)
	if err != nil {
		return nil, err
	}

	result := mergeSets(sets)
	if len(result) == 0 {
		return result, ErrNoCoverageFound
	}
	return result, nil
}

// scanner is one tiling strategy split into independent units of work.
type scanner interface {
	units() int
	scan(unit int, out map[string]struct{})
}

func runShards(ctx context.Context, s scanner, workers int, progress func(Progress)) ([]map[string]struct{}, error) {
	total := s.units()
	if workers > total {
		workers = total
	}
	if workers < 1 {
		workers = 1
	}

	work := make(chan int, workers)
	sets := make([]map[string]struct{}, workers)

	var (
		wg         sync.WaitGroup
		progressMu sync.Mutex
		done       int
	)

	for w := 0; w < workers; w++ {
		sets[w] = make(map[string]struct{})
		wg.Add(1)
		go func(local map[string]struct{}) {
			defer wg.Done()
			for unit := range work {
				if ctx.Err() != nil {
					continue // drain
				}
				s.scan(unit, local)

				progressMu.Lock()
				done++
				if progress != nil {
					progress(Progress{Done: done, Total: total})
				}
				progressMu.Unlock()
			}
		}(sets[w])
	}

feed:
	for unit := 0; unit < total; unit++ {
		select {
		case work <- unit:
		case <-ctx.Done():
			break feed
		}
	}
	close(work)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return sets, nil
}

func mergeSets(sets []map[string]struct{}) CoverageSet {
	union := make(map[string]struct{})
	for _, s := range sets {
		for code := range s {
			union[code] = struct{}{}
		}
	}
	out := make(CoverageSet, 0, len(union))
	for code := range union {
		out = append(out, code)
	}
	sort.Strings(out)
	return out
}

// gridScanner samples the region's bounding box at a fixed step. Row i sits
// at minLat + i*step and column j at minLon + j*step; the maximum is
// exclusive, so there are ceil(span/step) rows and columns.
type gridScanner struct {
	region *Region
	cfg    CoverageConfig
	minLat float64
	minLon float64
	rows   int
	cols   int
}

func newGridScanner(region *Region, cfg CoverageConfig) *gridScanner {
	b := region.Bound()
	return &gridScanner{
		region: region,
		cfg:    cfg,
		minLat: b.Min[1],
		minLon: b.Min[0],
		rows:   stepCount(b.Min[1], b.Max[1], cfg.ScanStep),
		cols:   stepCount(b.Min[0], b.Max[0], cfg.ScanStep),
	}
}

func stepCount(lo, hi, step float64) int {
	n := int(math.Ceil((hi - lo) / step))
	if n < 0 {
		return 0
	}
	return n
}

func (g *gridScanner) units() int { return g.rows }

func (g *gridScanner) scan(row int, out map[string]struct{}) {
	step := g.cfg.ScanStep
	lat := g.minLat + float64(row)*step
	if lat > 90 {
		return
	}
	// Centroid mode decides per code, so remember rejected codes too.
	var rejected map[string]struct{}
	if g.cfg.Mode == ModeCentroidOnly {
		rejected = make(map[string]struct{})
	}

	for col := 0; col < g.cols; col++ {
		lon := g.minLon + float64(col)*step
		if lon > 180 {
			break
		}
		code := encode(lat, lon, g.cfg.Precision)
		if _, seen := out[code]; seen {
			continue
		}

		switch g.cfg.Mode {
		case ModeCentroidOnly:
			if _, seen := rejected[code]; seen {
				continue
			}
			if g.region.ContainsPoint(bounds(code).Center()) {
				out[code] = struct{}{}
			} else {
				rejected[code] = struct{}{}
			}
		default:
			cell := orb.Bound{
				Min: orb.Point{lon, lat},
				Max: orb.Point{lon + step, lat + step},
			}
			if g.region.IntersectsBound(cell) {
				out[code] = struct{}{}
			}
		}
	}
}

// subdivideScanner seeds the walk with the cells of a coarse precision that
// cover the bounding box, then descends: cells disjoint from the region are
// dropped, cells strictly inside it contribute all their descendants, and
// cells on the boundary are split until the target precision is reached.
type subdivideScanner struct {
	region *Region
	cfg    CoverageConfig
	seeds  []string
}

func newSubdivideScanner(region *Region, cfg CoverageConfig) *subdivideScanner {
	b := region.Bound()
	p := 1
	for p < cfg.Precision && countCells(b, p+1) <= maxSeedCells {
		p++
	}
	return &subdivideScanner{region: region, cfg: cfg, seeds: cellsInBound(b, p)}
}

// cellIndexRange returns the first and last row/column indexes of the cells
// of precision p that overlap b.
func cellIndexRange(b orb.Bound, p int) (lat0, lat1, lon0, lon1 int) {
	h, w := CellSize(p)
	latN := int(math.Round(180 / h))
	lonN := int(math.Round(360 / w))
	clamp := func(v, n int) int {
		if v < 0 {
			return 0
		}
		if v >= n {
			return n - 1
		}
		return v
	}
	lat0 = clamp(int(math.Floor((b.Min[1]+90)/h)), latN)
	lat1 = clamp(int(math.Floor((b.Max[1]+90)/h)), latN)
	lon0 = clamp(int(math.Floor((b.Min[0]+180)/w)), lonN)
	lon1 = clamp(int(math.Floor((b.Max[0]+180)/w)), lonN)
	return
}

func countCells(b orb.Bound, p int) int {
	lat0, lat1, lon0, lon1 := cellIndexRange(b, p)
	return (lat1 - lat0 + 1) * (lon1 - lon0 + 1)
}

// cellsInBound lists the codes of precision p whose cells overlap b.
func cellsInBound(b orb.Bound, p int) []string {
	h, w := CellSize(p)
	lat0, lat1, lon0, lon1 := cellIndexRange(b, p)
	out := make([]string, 0, (lat1-lat0+1)*(lon1-lon0+1))
	for i := lat0; i <= lat1; i++ {
		lat := -90 + (float64(i)+0.5)*h
		for j := lon0; j <= lon1; j++ {
			lon := -180 + (float64(j)+0.5)*w
			out = append(out, encode(lat, lon, p))
		}
	}
	return out
}

func (s *subdivideScanner) units() int { return len(s.seeds) }

func (s *subdivideScanner) scan(unit int, out map[string]struct{}) {
	s.visit(s.seeds[unit], out)
}

func (s *subdivideScanner) visit(code string, out map[string]struct{}) {
	b := bounds(code)
	if !s.region.IntersectsBound(b) {
		return
	}
	if len(code) == s.cfg.Precision {
		if s.cfg.Mode == ModeCentroidOnly && !s.region.ContainsPoint(b.Center()) {
			return
		}
		out[code] = struct{}{}
		return
	}
	if s.region.ContainsBound(b) {
		addDescendants(code, s.cfg.Precision, out)
		return
	}
	for _, child := range children(code) {
		s.visit(child, out)
	}
}

// addDescendants adds every code of the target precision that starts with
// prefix.
func addDescendants(prefix string, precision int, out map[string]struct{}) {
	if len(prefix) == precision {
		out[prefix] = struct{}{}
		return
	}
	for _, child := range children(prefix) {
		addDescendants(child, precision, out)
	}
}
