package geometry

import (
	"math"

	"github.com/engelsjk/polygol"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// circleSegments is the number of edges used when a buffer disc is
// approximated as a polygon. Matches the common quad_segs=8 default.
const circleSegments = 32

// onLineTolerance absorbs float noise when testing a point against a
// segment it was constructed to lie on.
const onLineTolerance = 1e-12

// Intersects reports whether two geometries share at least one point. It is
// frame-agnostic: both inputs must be in the same coordinate system.
// Collections are flattened; nil or empty geometries never intersect.
func Intersects(a, b orb.Geometry) bool {
	if a == nil || b == nil {
		return false
	}
	aPolys, aLines, aPoints := decompose(a)
	bPolys, bLines, bPoints := decompose(b)

	for _, pa := range aPolys {
		for _, pb := range bPolys {
			if polygonsIntersect(pa, pb) {
				return true
			}
		}
		for _, lb := range bLines {
			if polygonLineIntersect(pa, lb) {
				return true
			}
		}
		for _, qb := range bPoints {
			if planar.PolygonContains(pa, qb) {
				return true
			}
		}
	}
	for _, pb := range bPolys {
		for _, la := range aLines {
			if polygonLineIntersect(pb, la) {
				return true
			}
		}
		for _, qa := range aPoints {
			if planar.PolygonContains(pb, qa) {
				return true
			}
		}
	}
	for _, la := range aLines {
		for _, lb := range bLines {
			if linesIntersect(la, lb) {
				return true
			}
		}
		for _, qb := range bPoints {
			if pointOnLine(qb, la) {
				return true
			}
		}
	}
	for _, lb := range bLines {
		for _, qa := range aPoints {
			if pointOnLine(qa, lb) {
				return true
			}
		}
	}
	for _, qa := range aPoints {
		for _, qb := range bPoints {
			if qa == qb {
				return true
			}
		}
	}
	return false
}

// MinDistance returns the minimum planar distance between two geometries in
// the coordinate units of the inputs. Zero when they intersect, +Inf when
// either side is nil or empty.
func MinDistance(a, b orb.Geometry) float64 {
	if a == nil || b == nil {
		return math.Inf(1)
	}
	if Intersects(a, b) {
		return 0
	}
	aVerts, aSegs := verticesAndSegments(a)
	bVerts, bSegs := verticesAndSegments(b)
	if len(aVerts) == 0 || len(bVerts) == 0 {
		return math.Inf(1)
	}

	// Disjoint polygonal/linear sets attain their minimum distance at a
	// vertex of one against a segment of the other.
	min := math.Inf(1)
	for _, p := range aVerts {
		for _, s := range bSegs {
			if d := planar.DistanceFromSegment(s[0], s[1], p); d < min {
				min = d
			}
		}
	}
	for _, p := range bVerts {
		for _, s := range aSegs {
			if d := planar.DistanceFromSegment(s[0], s[1], p); d < min {
				min = d
			}
		}
	}
	if math.IsInf(min, 1) {
		// Both sides are pure point sets.
		for _, p := range aVerts {
			for _, q := range bVerts {
				if d := planar.Distance(p, q); d < min {
					min = d
				}
			}
		}
	}
	return min
}

// decompose flattens a geometry into its polygonal, linear and point parts.
func decompose(g orb.Geometry) (orb.MultiPolygon, []orb.LineString, []orb.Point) {
	switch v := g.(type) {
	case orb.Point:
		return nil, nil, []orb.Point{v}
	case orb.MultiPoint:
		return nil, nil, []orb.Point(v)
	case orb.LineString:
		return nil, []orb.LineString{v}, nil
	case orb.MultiLineString:
		return nil, []orb.LineString(v), nil
	case orb.Ring:
		return orb.MultiPolygon{orb.Polygon{v}}, nil, nil
	case orb.Polygon:
		return orb.MultiPolygon{v}, nil, nil
	case orb.MultiPolygon:
		return v, nil, nil
	case orb.Bound:
		return orb.MultiPolygon{v.ToPolygon()}, nil, nil
	case orb.Collection:
		var polys orb.MultiPolygon
		var lines []orb.LineString
		var points []orb.Point
		for _, each := range v {
			p, l, pt := decompose(each)
			polys = append(polys, p...)
			lines = append(lines, l...)
			points = append(points, pt...)
		}
		return polys, lines, points
	}
	return nil, nil, nil
}

// isPolygonal reports whether a geometry has polygonal parts (and only
// polygonal parts, for collections).
func isPolygonal(g orb.Geometry) bool {
	polys, lines, points := decompose(g)
	return len(polys) > 0 && len(lines) == 0 && len(points) == 0
}

func polygonsIntersect(a, b orb.Polygon) bool {
	if len(a) == 0 || len(b) == 0 {
		return false
	}
	for _, v := range a[0] {
		if planar.PolygonContains(b, v) {
			return true
		}
	}
	for _, v := range b[0] {
		if planar.PolygonContains(a, v) {
			return true
		}
	}
	for _, ra := range a {
		for _, rb := range b {
			if ringSegmentsCross(ra, rb) {
				return true
			}
		}
	}
	return false
}

func polygonLineIntersect(p orb.Polygon, l orb.LineString) bool {
	if len(p) == 0 || len(l) == 0 {
		return false
	}
	for _, v := range l {
		if planar.PolygonContains(p, v) {
			return true
		}
	}
	for _, ring := range p {
		for i := 0; i < len(ring)-1; i++ {
			for j := 0; j < len(l)-1; j++ {
				if segmentsIntersect(ring[i], ring[i+1], l[j], l[j+1]) {
					return true
				}
			}
		}
	}
	return false
}

func linesIntersect(a, b orb.LineString) bool {
	for i := 0; i < len(a)-1; i++ {
		for j := 0; j < len(b)-1; j++ {
			if segmentsIntersect(a[i], a[i+1], b[j], b[j+1]) {
				return true
			}
		}
	}
	// Single-vertex degenerate lines.
	if len(a) == 1 {
		return pointOnLine(a[0], b)
	}
	if len(b) == 1 {
		return pointOnLine(b[0], a)
	}
	return false
}

func pointOnLine(q orb.Point, l orb.LineString) bool {
	for i := 0; i < len(l)-1; i++ {
		if planar.DistanceFromSegment(l[i], l[i+1], q) <= onLineTolerance {
			return true
		}
	}
	return len(l) == 1 && l[0] == q
}

func ringSegmentsCross(a, b orb.Ring) bool {
	for i := 0; i < len(a)-1; i++ {
		for j := 0; j < len(b)-1; j++ {
			if segmentsIntersect(a[i], a[i+1], b[j], b[j+1]) {
				return true
			}
		}
	}
	return false
}

// segmentsIntersect is the orientation test for proper crossings plus the
// collinear-overlap endpoint checks.
func segmentsIntersect(p1, p2, q1, q2 orb.Point) bool {
	d1 := crossProduct(q1, q2, p1)
	d2 := crossProduct(q1, q2, p2)
	d3 := crossProduct(p1, p2, q1)
	d4 := crossProduct(p1, p2, q2)

	if ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) &&
		((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0)) {
		return true
	}
	if d1 == 0 && inBox(q1, q2, p1) {
		return true
	}
	if d2 == 0 && inBox(q1, q2, p2) {
		return true
	}
	if d3 == 0 && inBox(p1, p2, q1) {
		return true
	}
	if d4 == 0 && inBox(p1, p2, q2) {
		return true
	}
	return false
}

func crossProduct(a, b, c orb.Point) float64 {
	return (b[0]-a[0])*(c[1]-a[1]) - (b[1]-a[1])*(c[0]-a[0])
}

func inBox(a, b, c orb.Point) bool {
	return math.Min(a[0], b[0]) <= c[0] && c[0] <= math.Max(a[0], b[0]) &&
		math.Min(a[1], b[1]) <= c[1] && c[1] <= math.Max(a[1], b[1])
}

// verticesAndSegments enumerates every vertex and every edge of a geometry
// for pairwise distance scans.
func verticesAndSegments(g orb.Geometry) ([]orb.Point, [][2]orb.Point) {
	polys, lines, points := decompose(g)
	var verts []orb.Point
	var segs [][2]orb.Point
	verts = append(verts, points...)
	for _, l := range lines {
		verts = append(verts, l...)
		for i := 0; i < len(l)-1; i++ {
			segs = append(segs, [2]orb.Point{l[i], l[i+1]})
		}
	}
	for _, p := range polys {
		for _, ring := range p {
			verts = append(verts, ring...)
			for i := 0; i < len(ring)-1; i++ {
				segs = append(segs, [2]orb.Point{ring[i], ring[i+1]})
			}
		}
	}
	return verts, segs
}

// toPolygol converts an orb multipolygon to polygol's ring representation.
func toPolygol(mp orb.MultiPolygon) polygol.Geom {
	g := make(polygol.Geom, 0, len(mp))
	for _, poly := range mp {
		g = append(g, polygonRings(poly))
	}
	return g
}

func polygonRings(poly orb.Polygon) [][][]float64 {
	rings := make([][][]float64, 0, len(poly))
	for _, ring := range poly {
		pts := make([][]float64, 0, len(ring))
		for _, p := range ring {
			pts = append(pts, []float64{p[0], p[1]})
		}
		rings = append(rings, pts)
	}
	return rings
}

// fromPolygol converts polygol output back to orb, closing any open rings.
func fromPolygol(g polygol.Geom) orb.MultiPolygon {
	mp := make(orb.MultiPolygon, 0, len(g))
	for _, poly := range g {
		rings := make(orb.Polygon, 0, len(poly))
		for _, ring := range poly {
			r := make(orb.Ring, 0, len(ring)+1)
			for _, pt := range ring {
				if len(pt) < 2 {
					continue
				}
				r = append(r, orb.Point{pt[0], pt[1]})
			}
			if len(r) < 3 {
				continue
			}
			if r[0] != r[len(r)-1] {
				r = append(r, r[0])
			}
			rings = append(rings, r)
		}
		if len(rings) > 0 {
			mp = append(mp, rings)
		}
	}
	return mp
}

// collapse unwraps a single-polygon multipolygon.
func collapse(mp orb.MultiPolygon) orb.Geometry {
	if len(mp) == 1 {
		return mp[0]
	}
	return mp
}

// disc approximates a circle of the given radius as a closed n-gon ring.
func disc(center orb.Point, radius float64) [][][]float64 {
	ring := make([][]float64, 0, circleSegments+1)
	for i := 0; i <= circleSegments; i++ {
		theta := 2 * math.Pi * float64(i) / circleSegments
		ring = append(ring, []float64{
			center[0] + radius*math.Cos(theta),
			center[1] + radius*math.Sin(theta),
		})
	}
	return [][][]float64{ring}
}

// segmentQuad is the rectangle swept when a segment is expanded sideways by
// radius. Nil for zero-length segments, which the vertex discs cover.
func segmentQuad(a, b orb.Point, radius float64) [][][]float64 {
	dx, dy := b[0]-a[0], b[1]-a[1]
	length := math.Hypot(dx, dy)
	if length == 0 {
		return nil
	}
	nx, ny := -dy/length*radius, dx/length*radius
	ring := [][]float64{
		{a[0] + nx, a[1] + ny},
		{b[0] + nx, b[1] + ny},
		{b[0] - nx, b[1] - ny},
		{a[0] - nx, a[1] - ny},
		{a[0] + nx, a[1] + ny},
	}
	return [][][]float64{ring}
}

// strokeVertices emits the disc and quad pieces that expand a vertex chain
// sideways by radius.
func strokeVertices(ps []orb.Point, radius float64) []polygol.Geom {
	pieces := make([]polygol.Geom, 0, 2*len(ps))
	for i, p := range ps {
		pieces = append(pieces, polygol.Geom{disc(p, radius)})
		if i > 0 {
			if quad := segmentQuad(ps[i-1], p, radius); quad != nil {
				pieces = append(pieces, polygol.Geom{quad})
			}
		}
	}
	return pieces
}

// strokePieces decomposes a projected geometry into the polygon pieces whose
// union is the geometry buffered outward by radius.
func strokePieces(g orb.Geometry, radius float64) []polygol.Geom {
	var pieces []polygol.Geom
	switch v := g.(type) {
	case orb.Point:
		pieces = append(pieces, polygol.Geom{disc(v, radius)})
	case orb.MultiPoint:
		for _, p := range v {
			pieces = append(pieces, polygol.Geom{disc(p, radius)})
		}
	case orb.LineString:
		pieces = append(pieces, strokeVertices(v, radius)...)
	case orb.MultiLineString:
		for _, l := range v {
			pieces = append(pieces, strokeVertices(l, radius)...)
		}
	case orb.Ring:
		pieces = append(pieces, strokePieces(orb.Polygon{v}, radius)...)
	case orb.Polygon:
		if len(v) > 0 {
			pieces = append(pieces, polygol.Geom{polygonRings(v)})
			for _, ring := range v {
				pieces = append(pieces, strokeVertices(ring, radius)...)
			}
		}
	case orb.MultiPolygon:
		for _, p := range v {
			pieces = append(pieces, strokePieces(p, radius)...)
		}
	case orb.Collection:
		for _, each := range v {
			pieces = append(pieces, strokePieces(each, radius)...)
		}
	}
	return pieces
}
