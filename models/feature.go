package models

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Severity classifies hazard zones and impact assessments.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Rank orders severity tiers so callers can compare them.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 3
	case SeverityHigh:
		return 2
	case SeverityMedium:
		return 1
	default:
		return 0
	}
}

// HazardStatus is the lifecycle state of a hazard zone.
type HazardStatus string

const (
	StatusActive     HazardStatus = "active"
	StatusMonitoring HazardStatus = "monitoring"
	StatusResolved   HazardStatus = "resolved"
)

// Canonical layer names served by the data store.
const (
	LayerRoads           = "roads"
	LayerHazardZones     = "hazard_zones"
	LayerAdminBoundaries = "admin_boundaries"
	LayerHospitals       = "hospitals"
	LayerShelters        = "shelters"
	LayerCycloneTracks   = "cyclone_tracks"
)

// Feature is a single spatial feature in WGS84 degree coordinates with
// free-form attributes. Geometry is never mutated by the core packages;
// operations that change geometry return copies.
type Feature struct {
	ID         string
	Geometry   orb.Geometry
	Properties geojson.Properties
}

// Clone returns a feature with copied geometry and properties.
func (f Feature) Clone() Feature {
	c := Feature{ID: f.ID}
	if f.Geometry != nil {
		c.Geometry = orb.Clone(f.Geometry)
	}
	if f.Properties != nil {
		c.Properties = f.Properties.Clone()
	}
	return c
}

// FeatureSet is an ordered collection of features, the unit all spatial
// operations consume and produce.
type FeatureSet []Feature

func (fs FeatureSet) IsEmpty() bool { return len(fs) == 0 }

// Clone deep-copies every feature in the set.
func (fs FeatureSet) Clone() FeatureSet {
	out := make(FeatureSet, len(fs))
	for i, f := range fs {
		out[i] = f.Clone()
	}
	return out
}

// ToGeoJSON converts the set to a GeoJSON FeatureCollection for API output.
func (fs FeatureSet) ToGeoJSON() *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, f := range fs {
		if f.Geometry == nil {
			continue
		}
		gf := geojson.NewFeature(f.Geometry)
		if f.ID != "" {
			gf.ID = f.ID
		}
		if f.Properties != nil {
			gf.Properties = f.Properties.Clone()
		}
		fc.Append(gf)
	}
	return fc
}

// FromGeoJSON converts a parsed FeatureCollection into a FeatureSet.
// Features without geometry are dropped.
func FromGeoJSON(fc *geojson.FeatureCollection) FeatureSet {
	if fc == nil {
		return nil
	}
	out := make(FeatureSet, 0, len(fc.Features))
	for _, gf := range fc.Features {
		if gf == nil || gf.Geometry == nil {
			continue
		}
		f := Feature{Geometry: gf.Geometry, Properties: gf.Properties}
		if id, ok := gf.ID.(string); ok {
			f.ID = id
		}
		out = append(out, f)
	}
	return out
}
