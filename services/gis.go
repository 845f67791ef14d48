// Package services wires the layer store, route planner, impact analyzer,
// live hazard feed and the optional PostGIS adapter into the operations the
// HTTP handlers expose.
package services

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"go.uber.org/zap"

	"github.com/ani3h/disaster-response-gis/config"
	"github.com/ani3h/disaster-response-gis/feed"
	"github.com/ani3h/disaster-response-gis/geodata"
	"github.com/ani3h/disaster-response-gis/geometry"
	"github.com/ani3h/disaster-response-gis/impact"
	"github.com/ani3h/disaster-response-gis/models"
	"github.com/ani3h/disaster-response-gis/network"
	"github.com/ani3h/disaster-response-gis/postgis"
	"github.com/ani3h/disaster-response-gis/routing"
)

// ErrLayerNotFound marks requests for a layer that was never loaded.
var ErrLayerNotFound = errors.New("layer not found")

// ErrZoneNotFound marks impact requests naming a hazard zone that does not
// exist.
var ErrZoneNotFound = errors.New("disaster zone not found")

// GIS implements the disaster-response operations over the loaded layers.
// The live feed and PostGIS store are optional; every operation keeps
// working from memory when they are absent.
type GIS struct {
	cfg        config.Config
	store      *geodata.Store
	planner    *routing.Planner
	analyzer   *impact.Analyzer
	live       *feed.Service
	db         *postgis.Store
	facilities *FacilityIndex
	cache      *responseCache
	logger     *zap.Logger
}

func NewGIS(cfg config.Config, store *geodata.Store, live *feed.Service, db *postgis.Store, logger *zap.Logger) *GIS {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &GIS{
		cfg:        cfg,
		store:      store,
		planner:    routing.NewPlanner(cfg.GIS, cfg.Routing, logger),
		analyzer:   impact.NewAnalyzer(cfg.GIS, logger),
		live:       live,
		db:         db,
		facilities: NewFacilityIndex(),
		cache:      newResponseCache(cfg.Data.CacheTTL),
		logger:     logger,
	}
	s.ReindexFacilities()
	return s
}

// ReindexFacilities rebuilds the in-memory facility indexes from the store.
// Call it again after replacing the hospital or shelter layers.
func (s *GIS) ReindexFacilities() {
	for _, layer := range []string{models.LayerHospitals, models.LayerShelters} {
		features, ok := s.store.Layer(layer)
		if !ok {
			continue
		}
		indexed := s.facilities.IndexLayer(layer, features)
		s.logger.Info("indexed facility layer",
			zap.String("layer", layer),
			zap.Int("indexed", indexed))
	}
	s.cache.clear()
}

func (s *GIS) layer(name string) models.FeatureSet {
	features, _ := s.store.Layer(name)
	return features
}

// SafeRoute computes a hazard-avoiding route between two points. A nil
// route with a nil error means no safe route exists.
func (s *GIS) SafeRoute(req models.SafeRouteRequest) (*models.Route, error) {
	return s.planner.SafeRoute(s.layer(models.LayerRoads), s.ActiveHazardZones(), routing.Query{
		Start:        req.Start.Point(),
		End:          req.End.Point(),
		AvoidHazards: req.Avoid(),
		BufferM:      req.BufferMeters,
		Algorithm:    req.Algorithm,
	})
}

// AlternativeRoutes returns up to the requested number of distinct routes
// between two points, each scored against the active hazard zones. Unlike
// SafeRoute the road network is not filtered, so riskier but shorter
// options surface here.
func (s *GIS) AlternativeRoutes(req models.AlternativeRoutesRequest) []*models.Route {
	g := network.Build(s.layer(models.LayerRoads), s.cfg.GIS)
	routes := s.planner.Alternatives(g, req.Start.Point(), req.End.Point(), req.NumRoutes)
	if len(routes) == 0 {
		return routes
	}

	hazards := s.ActiveHazardZones()
	for _, route := range routes {
		score, degraded := s.planner.ScoreSafety(route.LineString(), hazards)
		route.SafetyScore = score
		route.ScoreDegraded = degraded
	}
	return routes
}

// DistanceResult reports one point-to-point measurement.
type DistanceResult struct {
	DistanceMeters float64 `json:"distance_meters"`
	DistanceKm     float64 `json:"distance_km"`
}

// Distance measures the planar separation between two points.
func (s *GIS) Distance(req models.DistanceRequest) (DistanceResult, error) {
	meters, err := geometry.Distance(req.Point1.Point(), req.Point2.Point())
	if err != nil {
		return DistanceResult{}, err
	}
	return DistanceResult{
		DistanceMeters: round2(meters),
		DistanceKm:     round2(meters / 1000),
	}, nil
}

// NearestRoad describes the road feature closest to a queried point.
type NearestRoad struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	RoadType       string  `json:"road_type"`
	DistanceMeters float64 `json:"distance_meters"`
	IsBlocked      bool    `json:"is_blocked"`
}

// NearestRoadTo scans the road layer for the feature nearest the point.
// Returns nil when no roads are loaded.
func (s *GIS) NearestRoadTo(pt orb.Point) *NearestRoad {
	var best *NearestRoad
	bestDist := math.Inf(1)
	for _, road := range s.layer(models.LayerRoads) {
		if road.Geometry == nil {
			continue
		}
		d := geometry.MinDistance(pt, road.Geometry)
		if d >= bestDist {
			continue
		}
		bestDist = d
		best = &NearestRoad{
			ID:        road.ID,
			Name:      road.Properties.MustString("name", ""),
			RoadType:  road.Properties.MustString("road_type", ""),
			IsBlocked: road.Properties.MustBool("is_blocked", false),
		}
	}
	if best == nil {
		return nil
	}
	best.DistanceMeters = round2(bestDist * s.cfg.GIS.MetersPerDegree)
	return best
}

// LayerInfo describes one available layer.
type LayerInfo struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Features int    `json:"features"`
	Endpoint string `json:"endpoint"`
}

// Layers lists every loaded layer with its feature count.
func (s *GIS) Layers() []LayerInfo {
	names := s.store.LayerNames()
	infos := make([]LayerInfo, 0, len(names))
	for _, name := range names {
		features, _ := s.store.Layer(name)
		infos = append(infos, LayerInfo{
			ID:       name,
			Name:     strings.ReplaceAll(name, "_", " "),
			Features: len(features),
			Endpoint: "/api/layers/" + name,
		})
	}
	return infos
}

// LayerGeoJSON exports a stored layer as GeoJSON. bbox, when present, must
// be [minLon, minLat, maxLon, maxLat] and filters the features to those
// intersecting it.
func (s *GIS) LayerGeoJSON(name string, bbox []float64) (*geojson.FeatureCollection, error) {
	features, ok := s.store.Layer(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrLayerNotFound, name)
	}
	key := fmt.Sprintf("layer|%s|%v", name, bbox)
	if cached, ok := s.cache.get(key); ok {
		return cached.(*geojson.FeatureCollection), nil
	}
	if len(bbox) == 4 {
		features = geodata.FilterByBBox(features, bbox[0], bbox[1], bbox[2], bbox[3])
	}
	fc := features.ToGeoJSON()
	s.cache.set(key, fc)
	return fc, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
