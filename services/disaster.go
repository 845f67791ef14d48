package services

import (
	"errors"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"go.uber.org/zap"

	"github.com/ani3h/disaster-response-gis/geometry"
	"github.com/ani3h/disaster-response-gis/models"
)

// ActiveHazardZones merges the stored hazard layer with live feed alerts.
// Stored zones count as active unless their status says otherwise; feed
// alerts are active by construction.
func (s *GIS) ActiveHazardZones() models.FeatureSet {
	zones := models.FeatureSet{}
	for _, z := range s.layer(models.LayerHazardZones) {
		status := z.Properties.MustString("status", string(models.StatusActive))
		if status != string(models.StatusActive) {
			continue
		}
		zones = append(zones, z)
	}
	if s.live != nil {
		zones = append(zones, s.live.LiveAll()...)
	}
	return zones
}

// Zones returns the active hazard zones as GeoJSON, optionally filtered by
// disaster type and severity.
func (s *GIS) Zones(disasterType, severity string) *geojson.FeatureCollection {
	key := fmt.Sprintf("zones|%s|%s", disasterType, severity)
	if cached, ok := s.cache.get(key); ok {
		return cached.(*geojson.FeatureCollection)
	}

	filtered := models.FeatureSet{}
	for _, z := range s.ActiveHazardZones() {
		if disasterType != "" && zoneType(z) != disasterType {
			continue
		}
		if severity != "" && z.Properties.MustString("severity", "") != severity {
			continue
		}
		filtered = append(filtered, z)
	}

	fc := filtered.ToGeoJSON()
	s.cache.set(key, fc)
	return fc
}

func zoneType(z models.Feature) string {
	t := z.Properties.MustString("disaster_type", "")
	if t == "" {
		t = z.Properties.MustString("hazard_type", "")
	}
	return t
}

// LocationCheck is the answer to a point-in-hazard query. Zone fields are
// only set when InDanger is true.
type LocationCheck struct {
	InDanger bool              `json:"in_danger"`
	ZoneID   string            `json:"id,omitempty"`
	Name     string            `json:"name,omitempty"`
	Severity string            `json:"severity,omitempty"`
	Status   string            `json:"status,omitempty"`
	Geometry *geojson.Geometry `json:"geometry,omitempty"`
}

// CheckLocation reports whether a point lies inside any active hazard zone.
// PostGIS answers when wired; otherwise the in-memory zones are scanned.
func (s *GIS) CheckLocation(pt orb.Point) LocationCheck {
	if s.db != nil {
		hit, err := s.db.CheckPointInHazardZone(pt.Lat(), pt.Lon())
		switch {
		case err != nil:
			s.logger.Warn("postgis location check failed, falling back to in-memory zones",
				zap.Error(err))
		case hit == nil:
			return LocationCheck{}
		default:
			return LocationCheck{
				InDanger: true,
				ZoneID:   hit.ID,
				Name:     hit.Name,
				Severity: hit.Severity,
				Status:   hit.Status,
				Geometry: hit.Geometry,
			}
		}
	}

	for _, z := range s.ActiveHazardZones() {
		if z.Geometry == nil || !geometry.Intersects(z.Geometry, pt) {
			continue
		}
		return LocationCheck{
			InDanger: true,
			ZoneID:   z.ID,
			Name:     z.Properties.MustString("name", ""),
			Severity: z.Properties.MustString("severity", ""),
			Status:   z.Properties.MustString("status", string(models.StatusActive)),
			Geometry: geojson.NewGeometry(z.Geometry),
		}
	}
	return LocationCheck{}
}

// Statistics aggregates the active hazard zones: counts by type, total
// area, and the population inside affected administrative areas.
func (s *GIS) Statistics() models.DisasterStatistics {
	if cached, ok := s.cache.get("statistics"); ok {
		return cached.(models.DisasterStatistics)
	}

	zones := s.ActiveHazardZones()
	stats := models.DisasterStatistics{
		ActiveDisasters: len(zones),
		DisasterTypes:   map[string]int{},
	}
	for _, z := range zones {
		t := zoneType(z)
		if t == "" {
			t = "unknown"
		}
		stats.DisasterTypes[t]++
	}

	measured, err := geometry.Area(zones)
	if err != nil {
		s.logger.Warn("zone area measurement degraded", zap.Error(err))
	}
	total := 0.0
	for _, z := range measured {
		total += z.Properties.MustFloat64(geometry.AreaProperty, 0)
	}
	stats.TotalAreaSqKm = round2(total)

	boundaries := s.layer(models.LayerAdminBoundaries)
	if !zones.IsEmpty() && !boundaries.IsEmpty() {
		affected, err := geometry.Intersection(boundaries, zones)
		if err != nil {
			s.logger.Warn("population estimate degraded", zap.Error(err))
		}
		// A boundary hit by several zones still counts its population once.
		seen := map[string]bool{}
		for _, b := range affected {
			if b.ID != "" {
				if seen[b.ID] {
					continue
				}
				seen[b.ID] = true
			}
			stats.AffectedPopulation += b.Properties.MustInt("population", 0)
		}
	}

	s.cache.set("statistics", stats)
	return stats
}

// ImpactReport is the full output of an impact-analysis request.
type ImpactReport struct {
	ZoneID          string                          `json:"disaster_zone_id,omitempty"`
	Impact          models.ImpactSummary            `json:"impact"`
	ShelterCapacity models.ShelterCapacityReport    `json:"shelter_capacity"`
	Economic        models.EconomicImpact           `json:"economic_impact"`
	Vulnerable      models.VulnerableInfrastructure `json:"vulnerable_infrastructure"`
}

// ImpactAnalysis analyzes a stored hazard zone selected by ID, or an ad-hoc
// zone geometry supplied in the request.
func (s *GIS) ImpactAnalysis(req models.ImpactAnalysisRequest) (*ImpactReport, error) {
	zone, err := s.resolveHazardZone(req)
	if err != nil {
		return nil, err
	}
	hazard := models.FeatureSet{s.polygonalZone(zone)}

	boundaries := s.layer(models.LayerAdminBoundaries)
	hospitals := s.layer(models.LayerHospitals)
	shelters := s.layer(models.LayerShelters)
	roads := s.layer(models.LayerRoads)

	summary := s.analyzer.AnalyzeImpact(hazard, boundaries, hospitals, shelters, roads)
	return &ImpactReport{
		ZoneID:          zone.ID,
		Impact:          summary,
		ShelterCapacity: s.analyzer.ShelterCapacityGap(hazard, shelters, summary.AffectedPopulation),
		Economic:        s.analyzer.EconomicImpact(hazard, boundaries),
		Vulnerable:      s.analyzer.VulnerableInfrastructure(hazard, hospitals, nil),
	}, nil
}

func (s *GIS) resolveHazardZone(req models.ImpactAnalysisRequest) (models.Feature, error) {
	if req.Geometry != nil {
		return models.Feature{
			ID:         "adhoc",
			Geometry:   req.Geometry.Geometry(),
			Properties: geojson.Properties{},
		}, nil
	}
	if req.DisasterZoneID == nil {
		return models.Feature{}, errors.New("disaster_zone_id or geometry is required")
	}

	id := *req.DisasterZoneID
	zones := s.ActiveHazardZones()
	for _, z := range zones {
		if z.Properties.MustInt("id", -1) == id {
			return z, nil
		}
	}
	if id >= 0 && id < len(zones) {
		return zones[id], nil
	}
	return models.Feature{}, fmt.Errorf("%w: %d", ErrZoneNotFound, id)
}

// polygonalZone gives point and line zones (live feed alerts) a buffered
// extent so overlap metrics have an area to measure.
func (s *GIS) polygonalZone(zone models.Feature) models.Feature {
	switch zone.Geometry.(type) {
	case nil, orb.Polygon, orb.MultiPolygon:
		return zone
	}
	buffered, err := geometry.Buffer(models.FeatureSet{zone}, s.cfg.GIS.HazardBufferM)
	if err != nil || len(buffered) == 0 {
		s.logger.Warn("hazard zone buffering failed, analyzing raw geometry",
			zap.String("zone", zone.ID), zap.Error(err))
		return zone
	}
	return buffered[0]
}

// SafeZones subtracts buffered hazard zones from the administrative
// boundaries. A non-positive buffer uses the configured default.
func (s *GIS) SafeZones(bufferM float64) *geojson.FeatureCollection {
	if bufferM <= 0 {
		bufferM = s.cfg.GIS.SafeZoneBufferM
	}
	zones, err := geometry.IdentifySafeZones(s.layer(models.LayerAdminBoundaries), s.ActiveHazardZones(), bufferM)
	if err != nil {
		s.logger.Warn("safe zone computation degraded", zap.Error(err))
	}
	return zones.ToGeoJSON()
}
