package geo

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"
)

// minRingArea is the area (in square degrees) below which a ring is treated
// as degenerate. 1e-15 deg² is on the order of a square centimetre.
const minRingArea = 1e-15

// InputKind tags which GeoJSON shape a RegionInput carries.
type InputKind string

const (
	KindFeatureCollection InputKind = "FeatureCollection"
	KindFeature           InputKind = "Feature"
	KindGeometry          InputKind = "Geometry"
)

// RegionInput is the tagged union of the GeoJSON shapes a region can arrive
// as. Exactly one of Collection, Feature or Geometry is set, as named by Kind.
//
// Go Learning Note — Tagged Unions:
// Go has no sum types. The usual stand-in is a struct with a discriminator
// field plus one pointer per variant, and a single function (Normalize here)
// that switches on the discriminator. Callers never have to guess which of
// the three GeoJSON shapes they were handed.
type RegionInput struct {
	Kind       InputKind
	Collection *geojson.FeatureCollection
	Feature    *geojson.Feature
	Geometry   orb.Geometry
}

// FromFeatureCollection wraps a parsed FeatureCollection.
func FromFeatureCollection(fc *geojson.FeatureCollection) RegionInput {
	return RegionInput{Kind: KindFeatureCollection, Collection: fc}
}

// FromFeature wraps a single parsed Feature.
func FromFeature(f *geojson.Feature) RegionInput {
	return RegionInput{Kind: KindFeature, Feature: f}
}

// FromGeometry wraps a bare geometry.
func FromGeometry(g orb.Geometry) RegionInput {
	return RegionInput{Kind: KindGeometry, Geometry: g}
}

// ParseRegionInput sniffs the GeoJSON "type" member and decodes data into the
// matching variant.
func ParseRegionInput(data []byte) (RegionInput, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return RegionInput{}, fmt.Errorf("%w: %v", ErrInvalidGeometry, err)
	}

	switch head.Type {
	case "FeatureCollection":
		fc, err := geojson.UnmarshalFeatureCollection(data)
		if err != nil {
			return RegionInput{}, fmt.Errorf("%w: %v", ErrInvalidGeometry, err)
		}
		return FromFeatureCollection(fc), nil
	case "Feature":
		f, err := geojson.UnmarshalFeature(data)
		if err != nil {
			return RegionInput{}, fmt.Errorf("%w: %v", ErrInvalidGeometry, err)
		}
		return FromFeature(f), nil
	case "":
		return RegionInput{}, fmt.Errorf("%w: missing GeoJSON type", ErrInvalidGeometry)
	default:
		g, err := geojson.UnmarshalGeometry(data)
		if err != nil {
			return RegionInput{}, fmt.Errorf("%w: %v", ErrInvalidGeometry, err)
		}
		return FromGeometry(g.Geometry()), nil
	}
}

// geometries flattens the input into the list of geometries it carries.
func (in RegionInput) geometries() ([]orb.Geometry, error) {
	switch in.Kind {
	case KindFeatureCollection:
		if in.Collection == nil {
			return nil, fmt.Errorf("%w: nil feature collection", ErrInvalidGeometry)
		}
		out := make([]orb.Geometry, 0, len(in.Collection.Features))
		for _, f := range in.Collection.Features {
			if f != nil && f.Geometry != nil {
				out = append(out, f.Geometry)
			}
		}
		return out, nil
	case KindFeature:
		if in.Feature == nil || in.Feature.Geometry == nil {
			return nil, fmt.Errorf("%w: feature without geometry", ErrInvalidGeometry)
		}
		return []orb.Geometry{in.Feature.Geometry}, nil
	case KindGeometry:
		if in.Geometry == nil {
			return nil, fmt.Errorf("%w: nil geometry", ErrInvalidGeometry)
		}
		return []orb.Geometry{in.Geometry}, nil
	}
	return nil, fmt.Errorf("%w: unknown input kind %q", ErrInvalidGeometry, in.Kind)
}

// Normalize turns any accepted input into a validated Region. Only Polygon
// and MultiPolygon geometries (possibly nested in a GeometryCollection) are
// accepted. An input that carries no geometry at all, such as an empty
// FeatureCollection, normalizes to an empty Region.
func (in RegionInput) Normalize() (*Region, error) {
	geoms, err := in.geometries()
	if err != nil {
		return nil, err
	}

	var mp orb.MultiPolygon
	for _, g := range geoms {
		if err := collectPolygons(g, &mp); err != nil {
			return nil, err
		}
	}
	return NewRegion(mp)
}

func collectPolygons(g orb.Geometry, mp *orb.MultiPolygon) error {
	switch v := g.(type) {
	case orb.Polygon:
		*mp = append(*mp, v)
	case orb.MultiPolygon:
		*mp = append(*mp, v...)
	case orb.Bound:
		*mp = append(*mp, v.ToPolygon())
	case orb.Collection:
		for _, child := range v {
			if err := collectPolygons(child, mp); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("%w: %s is not polygonal", ErrInvalidGeometry, g.GeoJSONType())
	}
	return nil
}

// Region is an immutable, validated polygonal area in lon/lat degrees. Shells
// are counter-clockwise, holes clockwise, and every ring is closed and free of
// self-intersections. A Region with no polygons is empty, which is a valid
// (if useless) region.
type Region struct {
	polygons orb.MultiPolygon
	bound    orb.Bound
	edges    *edgeIndex
}

// NewRegion repairs and validates mp. The repair pass runs once: it drops
// repeated vertices, removes spikes, closes open rings, cuts rings that cross
// themselves into simple rings at the crossing points, discards rings with
// no area and fixes winding order. Whatever is still broken afterwards
// (rings touching themselves, holes crossing their shell, coordinates off
// the globe) is ErrInvalidGeometry.
func NewRegion(mp orb.MultiPolygon) (*Region, error) {
	var repaired orb.MultiPolygon
	for pi, poly := range mp {
		fixed, err := repairPolygon(poly)
		if err != nil {
			return nil, fmt.Errorf("polygon %d: %w", pi, err)
		}
		repaired = append(repaired, fixed...)
	}

	r := &Region{polygons: repaired}
	if len(repaired) == 0 {
		return r, nil
	}

	r.bound = repaired.Bound()
	r.edges = newEdgeIndex(repaired)
	if a, b, found := r.edges.selfIntersection(); found {
		return nil, fmt.Errorf("%w: edge %v-%v intersects edge %v-%v", ErrInvalidGeometry, a.a, a.b, b.a, b.b)
	}
	return r, nil
}

// repairPolygon returns the repaired polygons of poly. A shell that crossed
// itself comes back as several polygons, and each hole goes to the piece
// that holds it. No polygons and a nil error means the shell had no area.
func repairPolygon(poly orb.Polygon) ([]orb.Polygon, error) {
	if len(poly) == 0 {
		return nil, nil
	}
	shells, err := repairRing(poly[0])
	if err != nil {
		return nil, fmt.Errorf("ring 0: %w", err)
	}
	out := make([]orb.Polygon, 0, len(shells))
	for _, shell := range shells {
		if shell.Orientation() != orb.CCW {
			shell.Reverse()
		}
		out = append(out, orb.Polygon{shell})
	}
	if len(out) == 0 {
		return nil, nil
	}

	for ri, ring := range poly[1:] {
		holes, err := repairRing(ring)
		if err != nil {
			return nil, fmt.Errorf("ring %d: %w", ri+1, err)
		}
		for _, hole := range holes {
			if hole.Orientation() != orb.CW {
				hole.Reverse()
			}
			if k := owningShell(out, hole); k >= 0 {
				out[k] = append(out[k], hole)
			}
		}
	}
	return out, nil
}

// owningShell picks the polygon a hole belongs to: the first whose shell
// holds the hole's first vertex, else the first whose shell bound overlaps
// the hole (validation then reports the crossing). -1 means the hole lies
// outside every shell and removes nothing.
func owningShell(polys []orb.Polygon, hole orb.Ring) int {
	for k, p := range polys {
		if planar.RingContains(p[0], hole[0]) {
			return k
		}
	}
	hb := hole.Bound()
	for k, p := range polys {
		if p[0].Bound().Intersects(hb) {
			return k
		}
	}
	return -1
}

// maxRingSplits bounds how many crossing points a single ring is cut at.
const maxRingSplits = 256

// repairRing returns closed simple rings built from ring: duplicates and
// spikes removed, and one ring per loop when the ring crosses itself. Loops
// without area are dropped, so the result may be empty.
func repairRing(ring orb.Ring) ([]orb.Ring, error) {
	pts := make([]orb.Point, 0, len(ring))
	for _, p := range ring {
		if math.IsNaN(p[0]) || math.IsNaN(p[1]) || math.IsInf(p[0], 0) || math.IsInf(p[1], 0) {
			return nil, fmt.Errorf("%w: %w: non-finite vertex", ErrInvalidGeometry, ErrInvalidCoordinate)
		}
		if err := ValidateCoordinate(p[1], p[0]); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidGeometry, err)
		}
		pts = append(pts, p)
	}
	pts = removeSpikes(dedupeCyclic(pts))
	if len(pts) < 3 {
		return nil, nil
	}

	loops, err := splitAtCrossings(pts)
	if err != nil {
		return nil, err
	}
	var out []orb.Ring
	for _, loop := range loops {
		loop = removeSpikes(dedupeCyclic(loop))
		if len(loop) < 3 {
			continue
		}
		r := make(orb.Ring, 0, len(loop)+1)
		r = append(r, loop...)
		r = append(r, loop[0])
		if math.Abs(planar.Area(r)) < minRingArea {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

// dedupeCyclic drops repeated consecutive vertices, treating pts as a cycle,
// so a closing vertex equal to the first one goes too.
func dedupeCyclic(pts []orb.Point) []orb.Point {
	out := make([]orb.Point, 0, len(pts))
	for _, p := range pts {
		if len(out) > 0 && out[len(out)-1] == p {
			continue
		}
		out = append(out, p)
	}
	for len(out) > 1 && out[0] == out[len(out)-1] {
		out = out[:len(out)-1]
	}
	return out
}

// splitAtCrossings cuts a cyclic vertex list at the points where two of its
// segments cross, until every loop is free of crossings. A figure eight
// becomes its two lobes.
func splitAtCrossings(pts []orb.Point) ([][]orb.Point, error) {
	var out [][]orb.Point
	pending := [][]orb.Point{pts}
	splits := 0
	for len(pending) > 0 {
		cur := pending[len(pending)-1]
		pending = pending[:len(pending)-1]

		i, j, at, found := firstCrossing(cur)
		if !found {
			out = append(out, cur)
			continue
		}
		if splits++; splits > maxRingSplits {
			return nil, fmt.Errorf("%w: ring crosses itself more than %d times", ErrInvalidGeometry, maxRingSplits)
		}

		// Segment i ends at cur[i+1] and segment j at cur[(j+1)%n]; the loop
		// between them closes through the crossing point.
		inner := make([]orb.Point, 0, j-i+1)
		inner = append(inner, at)
		inner = append(inner, cur[i+1:j+1]...)
		outer := make([]orb.Point, 0, len(cur)-(j-i)+1)
		outer = append(outer, cur[:i+1]...)
		outer = append(outer, at)
		outer = append(outer, cur[j+1:]...)
		pending = append(pending, inner, outer)
	}
	return out, nil
}

// removeSpikes deletes A-B-A back-tracks from a cyclic vertex list until none
// remain. Removing B leaves A next to A, so one of those goes too.
func removeSpikes(pts []orb.Point) []orb.Point {
	for changed := true; changed && len(pts) >= 3; {
		changed = false
		n := len(pts)
		for i := 0; i < n; i++ {
			prev := pts[(i+n-1)%n]
			next := pts[(i+1)%n]
			if prev != next {
				continue
			}
			// Drop pts[i] and pts[i+1] (the duplicate of prev).
			j := (i + 1) % n
			keep := make([]orb.Point, 0, n-2)
			for k := 0; k < n; k++ {
				if k != i && k != j {
					keep = append(keep, pts[k])
				}
			}
			pts = keep
			changed = true
			break
		}
	}
	return pts
}

// MultiPolygon returns the repaired geometry. The result must not be
// modified.
func (r *Region) MultiPolygon() orb.MultiPolygon {
	return r.polygons
}

// Bound returns the bounding box of the region.
func (r *Region) Bound() orb.Bound {
	return r.bound
}

// IsEmpty reports whether the region has no polygons left after repair.
func (r *Region) IsEmpty() bool {
	return r == nil || len(r.polygons) == 0
}

// Area returns the planar area in square degrees.
func (r *Region) Area() float64 {
	if r.IsEmpty() {
		return 0
	}
	return planar.Area(r.polygons)
}

// ContainsPoint reports whether p lies in the region. Points on a shell's
// boundary count as inside; points on a hole's boundary count as outside.
func (r *Region) ContainsPoint(p orb.Point) bool {
	if r.IsEmpty() || !r.bound.Contains(p) {
		return false
	}
	return planar.MultiPolygonContains(r.polygons, p)
}

// IntersectsBound reports whether the closed rectangle b shares at least one
// point with the region. Touching the boundary counts.
func (r *Region) IntersectsBound(b orb.Bound) bool {
	if r.IsEmpty() || !r.bound.Intersects(b) {
		return false
	}
	if r.edges.touchesBound(b) {
		return true
	}
	// No edge reaches the rectangle, so it is either wholly inside the region
	// or wholly outside it.
	return planar.MultiPolygonContains(r.polygons, b.Center())
}

// ContainsBound reports whether the rectangle b lies inside the region with
// no edge of the region touching it.
func (r *Region) ContainsBound(b orb.Bound) bool {
	if r.IsEmpty() || !r.bound.Intersects(b) {
		return false
	}
	if r.edges.touchesBound(b) {
		return false
	}
	return planar.MultiPolygonContains(r.polygons, b.Center())
}
