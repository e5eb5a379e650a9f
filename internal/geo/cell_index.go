package geo

import (
	"context"
	"sort"
	"sync"

	"geocover/internal/domain/entities"
	"geocover/pkg/utils"
)

// IndexedPoint is one feature point held by a CellIndex.
type IndexedPoint struct {
	ID       string            `json:"id"`
	Location entities.Location `json:"location"`
	Geohash  string            `json:"geohash"`
}

// PointWithDistance pairs an indexed point with its distance from a search
// point. Used to return sorted proximity results.
type PointWithDistance struct {
	Point      IndexedPoint `json:"point"`
	DistanceKm float64      `json:"distance_km"`
}

// CellIndex buckets feature points into geohash cells of a fixed precision.
// Density selection reads the per-cell counts; proximity queries only need
// to look at the center cell and its 8 neighbors instead of every point.
//
// Go Learning Note — sync.RWMutex:
// RWMutex provides read-write locking. Multiple goroutines can hold a read lock
// simultaneously (RLock), but a write lock (Lock) is exclusive. This suits a
// structure that is filled once and then queried many times; a plain
// sync.Mutex would serialize all reads unnecessarily.
//
// Go Learning Note — Nested Maps:
// The cells field is map[string]map[string]IndexedPoint — a two-level map.
// The outer key is the geohash string (which cell), the inner key is the point
// ID. byID is the reverse lookup, so moving or removing a point does not scan
// every cell. Go maps must be initialized with make() before use; a nil map
// will panic on write (but reads return the zero value).
type CellIndex struct {
	mu        sync.RWMutex
	precision int
	cells     map[string]map[string]IndexedPoint // geohash -> id -> point
	byID      map[string]string                  // id -> geohash
}

// NewCellIndex creates an empty index at the given precision.
func NewCellIndex(precision int) (*CellIndex, error) {
	if err := ValidatePrecision(precision); err != nil {
		return nil, err
	}
	return &CellIndex{
		precision: precision,
		cells:     make(map[string]map[string]IndexedPoint),
		byID:      make(map[string]string),
	}, nil
}

// Precision returns the code length the index buckets by.
func (x *CellIndex) Precision() int {
	return x.precision
}

// Add places a point in its cell. Adding an existing ID moves the point.
//
// Go Learning Note — defer:
// `defer x.mu.Unlock()` schedules the unlock to run when the function returns,
// regardless of how it returns (normal return, early return, or even panic).
// This prevents forgetting to unlock — a common source of deadlocks.
func (x *CellIndex) Add(id string, lat, lon float64) (IndexedPoint, error) {
	code, err := Encode(lat, lon, x.precision)
	if err != nil {
		return IndexedPoint{}, err
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	x.removeLocked(id)

	if _, exists := x.cells[code]; !exists {
		x.cells[code] = make(map[string]IndexedPoint)
	}
	p := IndexedPoint{ID: id, Location: entities.NewLocation(lat, lon), Geohash: code}
	x.cells[code][id] = p
	x.byID[id] = code
	return p, nil
}

// Remove drops a point from the index. Unknown IDs are ignored.
func (x *CellIndex) Remove(id string) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.removeLocked(id)
}

func (x *CellIndex) removeLocked(id string) {
	code, exists := x.byID[id]
	if !exists {
		return
	}
	delete(x.byID, id)
	points := x.cells[code]
	delete(points, id)
	if len(points) == 0 {
		delete(x.cells, code) // empty cells must not show up in Counts
	}
}

// Get returns the point stored under id.
func (x *CellIndex) Get(id string) (IndexedPoint, bool) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	code, exists := x.byID[id]
	if !exists {
		return IndexedPoint{}, false
	}
	return x.cells[code][id], true
}

// Count returns how many points fall in the given cell.
func (x *CellIndex) Count(code string) int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.cells[code])
}

// Counts returns a snapshot of the number of points per non-empty cell.
func (x *CellIndex) Counts() map[string]int {
	x.mu.RLock()
	defer x.mu.RUnlock()

	out := make(map[string]int, len(x.cells))
	for code, points := range x.cells {
		out[code] = len(points)
	}
	return out
}

// Cells returns the non-empty cells in sorted order.
func (x *CellIndex) Cells() []string {
	x.mu.RLock()
	defer x.mu.RUnlock()

	out := make([]string, 0, len(x.cells))
	for code := range x.cells {
		out = append(out, code)
	}
	sort.Strings(out)
	return out
}

// Len returns the total number of points.
func (x *CellIndex) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.byID)
}

// Nearby finds all points within radiusKm of a location, nearest first.
//
// Strategy: Coarse filter → Fine filter
//  1. Coarse: encode the search point and take its cell plus the 8
//     neighbors. Only points in those cells are considered.
//  2. Fine: compute the exact Haversine distance and keep those within the
//     radius.
//
// The radius should not exceed one cell size, or points beyond the
// neighboring cells are missed.
//
// Go Learning Note — sort.Slice:
// sort.Slice sorts a slice in-place using a provided less function. The less
// function takes two indices and returns true if element i should come before
// element j.
func (x *CellIndex) Nearby(ctx context.Context, lat, lon, radiusKm float64) ([]PointWithDistance, error) {
	center, err := Encode(lat, lon, x.precision)
	if err != nil {
		return nil, err
	}
	cells, err := AllNeighbors(center)
	if err != nil {
		return nil, err
	}

	x.mu.RLock()
	defer x.mu.RUnlock()

	var candidates []PointWithDistance
	for _, code := range cells {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for _, p := range x.cells[code] {
			d := utils.HaversineDistance(lat, lon, p.Location.Latitude, p.Location.Longitude)
			if d <= radiusKm {
				candidates = append(candidates, PointWithDistance{Point: p, DistanceKm: d})
			}
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].DistanceKm != candidates[j].DistanceKm {
			return candidates[i].DistanceKm < candidates[j].DistanceKm
		}
		return candidates[i].Point.ID < candidates[j].Point.ID
	})
	return candidates, nil
}
