// Package geometry provides the primitive spatial operations the routing and
// impact packages build on: buffering, distance, overlay, area, containment.
// All inputs are WGS84 degree coordinates; operations that need meter-based
// math reproject to Web Mercator internally.
//
// Every operation degrades instead of aborting: on failure it returns a
// best-effort result together with an error describing what went wrong, so
// aggregate pipelines can log and continue.
package geometry

import (
	"errors"
	"fmt"
	"math"

	"github.com/engelsjk/polygol"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"
	"github.com/paulmach/orb/project"

	"github.com/ani3h/disaster-response-gis/models"
)

var (
	// ErrInvalidGeometry marks features whose geometry cannot be processed.
	ErrInvalidGeometry = errors.New("geometry: invalid geometry")

	// ErrEmptyInput marks operations that need at least one feature.
	ErrEmptyInput = errors.New("geometry: empty input")
)

const sqMetersPerSqKm = 1e6

// AreaProperty is the attribute attached by Area.
const AreaProperty = "area_sqkm"

// Buffer expands every feature geometry outward by meters, working in the
// Web Mercator frame and reprojecting back to WGS84. Features that cannot be
// buffered keep their original geometry and are reported in the returned
// error; the rest of the set is still buffered.
func Buffer(features models.FeatureSet, meters float64) (models.FeatureSet, error) {
	out := features.Clone()
	if meters == 0 {
		return out, nil
	}
	var errs []error
	for i := range out {
		buffered, err := bufferGeometry(out[i].Geometry, meters)
		if err != nil {
			errs = append(errs, fmt.Errorf("feature %q: %w", out[i].ID, err))
			continue
		}
		out[i].Geometry = buffered
	}
	return out, errors.Join(errs...)
}

func bufferGeometry(g orb.Geometry, meters float64) (orb.Geometry, error) {
	if g == nil {
		return nil, ErrInvalidGeometry
	}
	if meters < 0 {
		return nil, fmt.Errorf("%w: negative buffer distance %g", ErrInvalidGeometry, meters)
	}
	projected := project.Geometry(orb.Clone(g), project.WGS84.ToMercator)
	pieces := strokePieces(projected, meters)
	if len(pieces) == 0 {
		return nil, fmt.Errorf("%w: nothing to buffer", ErrInvalidGeometry)
	}
	merged, err := polygol.Union(pieces[0], pieces[1:]...)
	if err != nil {
		return nil, fmt.Errorf("buffer union: %w", err)
	}
	mp := fromPolygol(merged)
	if len(mp) == 0 {
		return nil, fmt.Errorf("%w: empty buffer result", ErrInvalidGeometry)
	}
	return project.Geometry(collapse(mp), project.Mercator.ToWGS84), nil
}

// Distance returns the planar distance between two WGS84 points in meters,
// measured in the Web Mercator frame. Non-finite coordinates return 0 with
// an error, never a silent zero.
func Distance(a, b orb.Point) (float64, error) {
	if !finitePoint(a) || !finitePoint(b) {
		return 0, fmt.Errorf("%w: non-finite coordinate", ErrInvalidGeometry)
	}
	pa := project.WGS84.ToMercator(a)
	pb := project.WGS84.ToMercator(b)
	return planar.Distance(pa, pb), nil
}

func finitePoint(p orb.Point) bool {
	return !math.IsNaN(p[0]) && !math.IsInf(p[0], 0) &&
		!math.IsNaN(p[1]) && !math.IsInf(p[1], 0)
}

// Intersection overlays two feature sets, returning one feature per
// intersecting pair with attributes from both sides (setA wins on key
// conflicts). Polygon-against-polygon pairs carry the clipped overlap;
// point and line features from setA keep their own geometry. Failing pairs
// are skipped and reported in the returned error.
func Intersection(setA, setB models.FeatureSet) (models.FeatureSet, error) {
	out := models.FeatureSet{}
	if setA.IsEmpty() || setB.IsEmpty() {
		return out, nil
	}
	var errs []error
	for _, a := range setA {
		for _, b := range setB {
			if a.Geometry == nil || b.Geometry == nil {
				continue
			}
			if !Intersects(a.Geometry, b.Geometry) {
				continue
			}
			geom := orb.Clone(a.Geometry)
			if isPolygonal(a.Geometry) && isPolygonal(b.Geometry) {
				clipped, err := clipPolygonal(a.Geometry, b.Geometry)
				if err != nil {
					errs = append(errs, fmt.Errorf("features %q/%q: %w", a.ID, b.ID, err))
					continue
				}
				if clipped == nil {
					// Boundaries touch but no interior overlap.
					continue
				}
				geom = clipped
			}
			out = append(out, models.Feature{
				ID:         a.ID,
				Geometry:   geom,
				Properties: mergeProperties(a.Properties, b.Properties),
			})
		}
	}
	return out, errors.Join(errs...)
}

func clipPolygonal(a, b orb.Geometry) (orb.Geometry, error) {
	aPolys, _, _ := decompose(a)
	bPolys, _, _ := decompose(b)
	clipped, err := polygol.Intersection(toPolygol(aPolys), toPolygol(bPolys))
	if err != nil {
		return nil, fmt.Errorf("polygon intersection: %w", err)
	}
	mp := fromPolygol(clipped)
	if len(mp) == 0 {
		return nil, nil
	}
	return collapse(mp), nil
}

func mergeProperties(a, b geojson.Properties) geojson.Properties {
	merged := b.Clone()
	for k, v := range a {
		merged[k] = v
	}
	return merged
}

// Difference returns the parts of setA not overlapped by setB. Polygonal
// features are clipped against the union of setB's polygons; point and line
// features are kept whole unless they intersect setB. On a clipping failure
// the feature is kept unchanged and the error reported.
func Difference(setA, setB models.FeatureSet) (models.FeatureSet, error) {
	if setA.IsEmpty() {
		return models.FeatureSet{}, nil
	}
	if setB.IsEmpty() {
		return setA.Clone(), nil
	}

	var subtrahend orb.MultiPolygon
	for _, b := range setB {
		polys, _, _ := decompose(b.Geometry)
		subtrahend = append(subtrahend, polys...)
	}

	out := models.FeatureSet{}
	var errs []error
	for _, a := range setA {
		if a.Geometry == nil {
			continue
		}
		if !isPolygonal(a.Geometry) {
			hit := false
			for _, b := range setB {
				if Intersects(a.Geometry, b.Geometry) {
					hit = true
					break
				}
			}
			if !hit {
				out = append(out, a.Clone())
			}
			continue
		}
		if len(subtrahend) == 0 {
			out = append(out, a.Clone())
			continue
		}
		aPolys, _, _ := decompose(a.Geometry)
		remainder, err := polygol.Difference(toPolygol(aPolys), toPolygol(subtrahend))
		if err != nil {
			errs = append(errs, fmt.Errorf("feature %q: polygon difference: %w", a.ID, err))
			out = append(out, a.Clone())
			continue
		}
		mp := fromPolygol(remainder)
		if len(mp) == 0 {
			continue
		}
		kept := a.Clone()
		kept.Geometry = collapse(mp)
		out = append(out, kept)
	}
	return out, errors.Join(errs...)
}

// Area attaches the planar area in km², measured in the Web Mercator frame,
// to every feature as the "area_sqkm" property. Features without geometry
// are reported in the error and returned without the property.
func Area(features models.FeatureSet) (models.FeatureSet, error) {
	out := features.Clone()
	var errs []error
	for i := range out {
		if out[i].Geometry == nil {
			errs = append(errs, fmt.Errorf("feature %q: %w", out[i].ID, ErrInvalidGeometry))
			continue
		}
		projected := project.Geometry(orb.Clone(out[i].Geometry), project.WGS84.ToMercator)
		if out[i].Properties == nil {
			out[i].Properties = geojson.Properties{}
		}
		// Unsigned: input winding varies across data sources.
		out[i].Properties[AreaProperty] = math.Abs(planar.Area(projected)) / sqMetersPerSqKm
	}
	return out, errors.Join(errs...)
}

// PointInPolygon left-joins point features against polygon features: every
// point is returned, augmented with the attributes of the first enclosing
// polygon (point attributes win on conflicts). Points outside all polygons
// pass through unchanged.
func PointInPolygon(points, polygons models.FeatureSet) (models.FeatureSet, error) {
	out := make(models.FeatureSet, 0, len(points))
	var errs []error
	for _, p := range points {
		joined := p.Clone()
		pt, ok := p.Geometry.(orb.Point)
		if !ok {
			errs = append(errs, fmt.Errorf("feature %q: %w: not a point", p.ID, ErrInvalidGeometry))
			out = append(out, joined)
			continue
		}
		for _, poly := range polygons {
			if !containsPoint(poly.Geometry, pt) {
				continue
			}
			if joined.Properties == nil {
				joined.Properties = geojson.Properties{}
			}
			for k, v := range poly.Properties {
				if _, exists := joined.Properties[k]; !exists {
					joined.Properties[k] = v
				}
			}
			break
		}
		out = append(out, joined)
	}
	return out, errors.Join(errs...)
}

func containsPoint(g orb.Geometry, pt orb.Point) bool {
	switch v := g.(type) {
	case orb.Polygon:
		return planar.PolygonContains(v, pt)
	case orb.MultiPolygon:
		return planar.MultiPolygonContains(v, pt)
	case orb.Ring:
		return planar.RingContains(v, pt)
	case orb.Bound:
		return v.Contains(pt)
	}
	return false
}

// Centroid replaces every feature geometry with its centroid point.
// Features whose centroid cannot be computed keep their geometry and are
// reported in the error.
func Centroid(features models.FeatureSet) (models.FeatureSet, error) {
	out := features.Clone()
	var errs []error
	for i := range out {
		if out[i].Geometry == nil {
			errs = append(errs, fmt.Errorf("feature %q: %w", out[i].ID, ErrInvalidGeometry))
			continue
		}
		center, _ := planar.CentroidArea(out[i].Geometry)
		out[i].Geometry = center
	}
	return out, errors.Join(errs...)
}

// MergeGeometries unions a feature set into a single geometry. Polygonal
// parts are merged with a boolean union; lines and points are gathered into
// a collection alongside the merged polygon when the set is mixed.
func MergeGeometries(features models.FeatureSet) (orb.Geometry, error) {
	if features.IsEmpty() {
		return nil, ErrEmptyInput
	}
	var polys orb.MultiPolygon
	var rest orb.Collection
	for _, f := range features {
		if f.Geometry == nil {
			continue
		}
		p, lines, points := decompose(f.Geometry)
		polys = append(polys, p...)
		for _, l := range lines {
			rest = append(rest, orb.Clone(l))
		}
		for _, pt := range points {
			rest = append(rest, pt)
		}
	}

	var merged orb.Geometry
	if len(polys) > 0 {
		unioned, err := polygol.Union(toPolygol(polys))
		if err != nil {
			return nil, fmt.Errorf("merge union: %w", err)
		}
		mp := fromPolygol(unioned)
		if len(mp) > 0 {
			merged = collapse(mp)
		}
	}
	switch {
	case merged == nil && len(rest) == 0:
		return nil, ErrEmptyInput
	case merged == nil && len(rest) == 1:
		return rest[0], nil
	case merged == nil:
		return rest, nil
	case len(rest) == 0:
		return merged, nil
	}
	return append(orb.Collection{merged}, rest...), nil
}

// PointsWithinDistance filters point features to those within meters of the
// target, measured in the Web Mercator frame.
func PointsWithinDistance(points models.FeatureSet, target orb.Point, meters float64) (models.FeatureSet, error) {
	if !finitePoint(target) {
		return models.FeatureSet{}, fmt.Errorf("%w: non-finite target", ErrInvalidGeometry)
	}
	projTarget := project.WGS84.ToMercator(target)
	out := models.FeatureSet{}
	var errs []error
	for _, p := range points {
		pt, ok := p.Geometry.(orb.Point)
		if !ok {
			errs = append(errs, fmt.Errorf("feature %q: %w: not a point", p.ID, ErrInvalidGeometry))
			continue
		}
		if planar.Distance(project.WGS84.ToMercator(pt), projTarget) <= meters {
			out = append(out, p.Clone())
		}
	}
	return out, errors.Join(errs...)
}

// IdentifySafeZones subtracts hazard zones, expanded by bufferMeters, from
// the administrative boundaries. With no hazards the boundaries are returned
// unchanged. A buffering failure degrades to subtracting the unbuffered
// hazards, reported in the error.
func IdentifySafeZones(boundaries, hazards models.FeatureSet, bufferMeters float64) (models.FeatureSet, error) {
	if hazards.IsEmpty() {
		return boundaries.Clone(), nil
	}
	var errs []error
	buffered, err := Buffer(hazards, bufferMeters)
	if err != nil {
		errs = append(errs, err)
	}
	safe, err := Difference(boundaries, buffered)
	if err != nil {
		errs = append(errs, err)
	}
	return safe, errors.Join(errs...)
}

// ImpactZoneResult describes a circular impact zone and the administrative
// areas it overlaps.
type ImpactZoneResult struct {
	Zone          models.Feature    `json:"zone"`
	AreaSqKm      float64           `json:"impact_zone_area_sqkm"`
	AffectedAreas models.FeatureSet `json:"affected_areas"`
}

// ImpactZone buffers a disaster center point into a circular zone of the
// given radius and intersects it with the administrative boundaries.
func ImpactZone(center orb.Point, radiusMeters float64, boundaries models.FeatureSet) (ImpactZoneResult, error) {
	zoneGeom, err := bufferGeometry(center, radiusMeters)
	if err != nil {
		return ImpactZoneResult{}, fmt.Errorf("impact zone buffer: %w", err)
	}
	zone := models.Feature{
		ID:         "impact_zone",
		Geometry:   zoneGeom,
		Properties: geojson.Properties{"radius_meters": radiusMeters},
	}

	var errs []error
	projected := project.Geometry(orb.Clone(zoneGeom), project.WGS84.ToMercator)
	area := math.Abs(planar.Area(projected)) / sqMetersPerSqKm

	affected, err := Intersection(boundaries, models.FeatureSet{zone})
	if err != nil {
		errs = append(errs, err)
	}
	return ImpactZoneResult{
		Zone:          zone,
		AreaSqKm:      area,
		AffectedAreas: affected,
	}, errors.Join(errs...)
}
