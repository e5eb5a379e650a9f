package geo

import (
	"math"

	"github.com/dhconnelly/rtreego"
	"github.com/paulmach/orb"
)

// edgePad widens every R-tree rectangle slightly. rtreego rejects zero-length
// sides (horizontal and vertical edges are common) and its own intersection
// test excludes touching rectangles, so exact answers come from the segment
// predicates below and the tree only prunes candidates.
const edgePad = 1e-9

// edge is one segment of a polygon ring, stored in the R-tree.
type edge struct {
	a, b  orb.Point
	poly  int // polygon id
	ring  int // ring id, unique across the whole region
	index int // position of the segment within its ring
	count int // number of segments in the ring
	rect  rtreego.Rect
}

// Bounds satisfies rtreego.Spatial.
func (e *edge) Bounds() rtreego.Rect {
	return e.rect
}

// adjacent reports whether two segments of the same ring share an endpoint
// by construction (consecutive, including the wrap from last to first).
func (e *edge) adjacent(o *edge) bool {
	if e.ring != o.ring {
		return false
	}
	d := e.index - o.index
	if d < 0 {
		d = -d
	}
	return d <= 1 || d == e.count-1
}

// edgeIndex is an R-tree over every ring segment of a region. It answers
// "which edges come near this rectangle" in logarithmic time, which keeps the
// per-cell intersection test cheap for regions with tens of thousands of
// vertices (administrative boundaries routinely have that many).
//
// Go Learning Note — Interfaces Satisfied Implicitly:
// rtreego stores anything with a Bounds() rtreego.Rect method. *edge never
// declares that it implements rtreego.Spatial; having the method is enough.
type edgeIndex struct {
	tree  *rtreego.Rtree
	edges []*edge
}

func newEdgeIndex(mp orb.MultiPolygon) *edgeIndex {
	idx := &edgeIndex{}
	ringID := 0
	for pi, poly := range mp {
		for _, ring := range poly {
			n := len(ring) - 1 // rings are closed
			for i := 0; i < n; i++ {
				e := &edge{a: ring[i], b: ring[i+1], poly: pi, ring: ringID, index: i, count: n}
				e.rect = paddedRect(
					math.Min(e.a[0], e.b[0]), math.Min(e.a[1], e.b[1]),
					math.Max(e.a[0], e.b[0]), math.Max(e.a[1], e.b[1]),
				)
				idx.edges = append(idx.edges, e)
			}
			ringID++
		}
	}

	spatials := make([]rtreego.Spatial, len(idx.edges))
	for i, e := range idx.edges {
		spatials[i] = e
	}
	idx.tree = rtreego.NewTree(2, 25, 50, spatials...)
	return idx
}

// paddedRect builds an rtreego rectangle around [minX,maxX]x[minY,maxY].
func paddedRect(minX, minY, maxX, maxY float64) rtreego.Rect {
	r, err := rtreego.NewRect(
		rtreego.Point{minX - edgePad, minY - edgePad},
		[]float64{maxX - minX + 2*edgePad, maxY - minY + 2*edgePad},
	)
	if err != nil {
		// Lengths are strictly positive by construction.
		panic(err)
	}
	return r
}

// near returns the edges whose padded bounding box overlaps b.
func (idx *edgeIndex) near(b orb.Bound) []*edge {
	if idx == nil || len(idx.edges) == 0 {
		return nil
	}
	found := idx.tree.SearchIntersect(paddedRect(b.Min[0], b.Min[1], b.Max[0], b.Max[1]))
	out := make([]*edge, 0, len(found))
	for _, s := range found {
		out = append(out, s.(*edge))
	}
	return out
}

// touchesBound reports whether any edge shares at least one point with the
// closed rectangle b.
func (idx *edgeIndex) touchesBound(b orb.Bound) bool {
	for _, e := range idx.near(b) {
		if segmentIntersectsBound(e.a, e.b, b) {
			return true
		}
	}
	return false
}

// selfIntersection reports the first pair of edges that makes the region
// invalid: two non-adjacent segments of one ring that meet, or a shell and
// one of its holes that properly cross. Separate polygons may overlap; the
// region is their union.
func (idx *edgeIndex) selfIntersection() (a, b *edge, found bool) {
	for _, e := range idx.edges {
		eb := orb.Bound{
			Min: orb.Point{math.Min(e.a[0], e.b[0]), math.Min(e.a[1], e.b[1])},
			Max: orb.Point{math.Max(e.a[0], e.b[0]), math.Max(e.a[1], e.b[1])},
		}
		for _, o := range idx.near(eb) {
			if o == e || o.poly != e.poly || o.ring < e.ring || (o.ring == e.ring && o.index <= e.index) {
				continue
			}
			if e.ring == o.ring {
				if e.adjacent(o) {
					// Neighbours only meet at their shared vertex unless one
					// folds back over the other.
					if collinearOverlap(e, o) {
						return e, o, true
					}
					continue
				}
				if segmentsIntersect(e.a, e.b, o.a, o.b) {
					return e, o, true
				}
				continue
			}
			if segmentsCross(e.a, e.b, o.a, o.b) {
				return e, o, true
			}
		}
	}
	return nil, nil, false
}

// firstCrossing looks for two non-adjacent segments of the cyclic vertex
// list pts that properly cross. Segment k runs from pts[k] to
// pts[(k+1)%len(pts)]; i < j, and at is the crossing point.
func firstCrossing(pts []orb.Point) (i, j int, at orb.Point, found bool) {
	if len(pts) < 4 {
		return 0, 0, orb.Point{}, false
	}
	ring := make(orb.Ring, 0, len(pts)+1)
	ring = append(ring, pts...)
	ring = append(ring, pts[0])
	idx := newEdgeIndex(orb.MultiPolygon{{ring}})

	for _, e := range idx.edges {
		eb := orb.Bound{
			Min: orb.Point{math.Min(e.a[0], e.b[0]), math.Min(e.a[1], e.b[1])},
			Max: orb.Point{math.Max(e.a[0], e.b[0]), math.Max(e.a[1], e.b[1])},
		}
		for _, o := range idx.near(eb) {
			if o.index <= e.index || e.adjacent(o) {
				continue
			}
			if segmentsCross(e.a, e.b, o.a, o.b) {
				return e.index, o.index, crossingPoint(e.a, e.b, o.a, o.b), true
			}
		}
	}
	return 0, 0, orb.Point{}, false
}

// crossingPoint returns where the lines through p1-p2 and p3-p4 meet. The
// segments must properly cross.
func crossingPoint(p1, p2, p3, p4 orb.Point) orb.Point {
	d := orb.Point{p2[0] - p1[0], p2[1] - p1[1]}
	f := orb.Point{p4[0] - p3[0], p4[1] - p3[1]}
	t := ((p3[0]-p1[0])*f[1] - (p3[1]-p1[1])*f[0]) / (d[0]*f[1] - d[1]*f[0])
	return orb.Point{p1[0] + t*d[0], p1[1] + t*d[1]}
}

// cross returns the z component of (b-a) x (c-a).
func cross(a, b, c orb.Point) float64 {
	return (b[0]-a[0])*(c[1]-a[1]) - (b[1]-a[1])*(c[0]-a[0])
}

func sign(v float64) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}

// onSegment reports whether p, already known to be collinear with a-b, lies
// within the segment's bounding box.
func onSegment(a, b, p orb.Point) bool {
	return p[0] >= math.Min(a[0], b[0]) && p[0] <= math.Max(a[0], b[0]) &&
		p[1] >= math.Min(a[1], b[1]) && p[1] <= math.Max(a[1], b[1])
}

// segmentsIntersect reports whether closed segments p1-p2 and p3-p4 share any
// point, touching included.
func segmentsIntersect(p1, p2, p3, p4 orb.Point) bool {
	d1 := sign(cross(p3, p4, p1))
	d2 := sign(cross(p3, p4, p2))
	d3 := sign(cross(p1, p2, p3))
	d4 := sign(cross(p1, p2, p4))

	if d1*d2 < 0 && d3*d4 < 0 {
		return true
	}
	return (d1 == 0 && onSegment(p3, p4, p1)) ||
		(d2 == 0 && onSegment(p3, p4, p2)) ||
		(d3 == 0 && onSegment(p1, p2, p3)) ||
		(d4 == 0 && onSegment(p1, p2, p4))
}

// segmentsCross reports a proper crossing: the interiors intersect in exactly
// one point that is not an endpoint of either segment.
func segmentsCross(p1, p2, p3, p4 orb.Point) bool {
	d1 := sign(cross(p3, p4, p1))
	d2 := sign(cross(p3, p4, p2))
	d3 := sign(cross(p1, p2, p3))
	d4 := sign(cross(p1, p2, p4))
	return d1*d2 < 0 && d3*d4 < 0
}

// collinearOverlap reports whether two consecutive ring segments lie on the
// same line and overlap beyond their shared vertex.
func collinearOverlap(e, o *edge) bool {
	if sign(cross(e.a, e.b, o.a)) != 0 || sign(cross(e.a, e.b, o.b)) != 0 {
		return false
	}
	// Shared vertex is the end of one and the start of the other. The far
	// endpoints must point in opposite directions from it.
	var shared, p, q orb.Point
	switch {
	case e.b == o.a:
		shared, p, q = e.b, e.a, o.b
	case o.b == e.a:
		shared, p, q = e.a, e.b, o.a
	default:
		return false
	}
	dot := (p[0]-shared[0])*(q[0]-shared[0]) + (p[1]-shared[1])*(q[1]-shared[1])
	return dot > 0
}

// segmentIntersectsBound reports whether the closed segment a-b shares any
// point with the closed rectangle b.
func segmentIntersectsBound(a, b orb.Point, r orb.Bound) bool {
	if r.Contains(a) || r.Contains(b) {
		return true
	}
	if math.Max(a[0], b[0]) < r.Min[0] || math.Min(a[0], b[0]) > r.Max[0] ||
		math.Max(a[1], b[1]) < r.Min[1] || math.Min(a[1], b[1]) > r.Max[1] {
		return false
	}
	sw := r.Min
	se := orb.Point{r.Max[0], r.Min[1]}
	ne := r.Max
	nw := orb.Point{r.Min[0], r.Max[1]}
	return segmentsIntersect(a, b, sw, se) ||
		segmentsIntersect(a, b, se, ne) ||
		segmentsIntersect(a, b, ne, nw) ||
		segmentsIntersect(a, b, nw, sw)
}
