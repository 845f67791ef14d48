package services

import (
	"math"
	"sort"
	"sync"

	"github.com/dhconnelly/rtreego"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"go.uber.org/zap"

	"github.com/ani3h/disaster-response-gis/models"
)

const (
	indexDims      = 2
	indexMinBranch = 25
	indexMaxBranch = 50

	// pointExtent pads each indexed point into a small rectangle so the
	// R-tree has non-degenerate bounds to work with.
	pointExtent = 0.01

	earthRadiusKm = 6371.0

	defaultFacilityLimit    = 5
	defaultShelterRadiusKm  = 50
	defaultHospitalRadiusKm = 100
)

// FacilityIndex answers nearest-facility queries from memory, one R-tree per
// layer. It backs the facility endpoints whenever PostGIS is not wired.
type FacilityIndex struct {
	mu    sync.RWMutex
	trees map[string]*rtreego.Rtree
}

type facilityItem struct {
	feature models.Feature
	point   orb.Point
	rect    *rtreego.Rect
}

func (fi *facilityItem) Bounds() *rtreego.Rect { return fi.rect }

func NewFacilityIndex() *FacilityIndex {
	return &FacilityIndex{trees: make(map[string]*rtreego.Rtree)}
}

// IndexLayer replaces the tree for one layer. Only point features are
// indexed; anything else in the layer is skipped.
func (x *FacilityIndex) IndexLayer(layer string, features models.FeatureSet) int {
	tree := rtreego.NewTree(indexDims, indexMinBranch, indexMaxBranch)
	indexed := 0
	for _, f := range features {
		pt, ok := f.Geometry.(orb.Point)
		if !ok {
			continue
		}
		rect := rtreego.Point{pt.Lat(), pt.Lon()}.ToRect(pointExtent)
		tree.Insert(&facilityItem{feature: f, point: pt, rect: rect})
		indexed++
	}

	x.mu.Lock()
	x.trees[layer] = tree
	x.mu.Unlock()
	return indexed
}

// Nearest returns up to limit facilities within maxDistanceKm of the query
// point, closest first. Distances are haversine, reported in both meters
// and kilometers.
func (x *FacilityIndex) Nearest(layer string, lat, lon float64, limit int, maxDistanceKm float64) []models.Facility {
	x.mu.RLock()
	tree := x.trees[layer]
	x.mu.RUnlock()
	if tree == nil {
		return nil
	}
	if limit <= 0 {
		limit = defaultFacilityLimit
	}

	neighbors := tree.NearestNeighbors(limit, rtreego.Point{lat, lon})

	facilities := make([]models.Facility, 0, len(neighbors))
	for _, n := range neighbors {
		item, ok := n.(*facilityItem)
		if !ok || item == nil {
			continue
		}
		km := haversineKm(lat, lon, item.point.Lat(), item.point.Lon())
		if maxDistanceKm > 0 && km > maxDistanceKm {
			continue
		}
		facilities = append(facilities, models.Facility{
			ID:             item.feature.ID,
			Name:           item.feature.Properties.MustString("name", ""),
			Address:        item.feature.Properties.MustString("address", ""),
			Capacity:       item.feature.Properties.MustInt("capacity", 0),
			Geometry:       geojson.NewGeometry(item.point),
			DistanceMeters: round2(km * 1000),
			DistanceKm:     round2(km),
		})
	}

	// NearestNeighbors orders by rectangle distance; re-rank by the true
	// haversine distance.
	sort.Slice(facilities, func(i, j int) bool {
		return facilities[i].DistanceMeters < facilities[j].DistanceMeters
	})
	return facilities
}

func haversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*math.Pi/180)*math.Cos(lat2*math.Pi/180)*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c
}

// NearestShelters finds open shelters around a point. The search radius
// defaults to 50 km.
func (s *GIS) NearestShelters(req models.NearestFacilitiesRequest) []models.Facility {
	maxKm := req.MaxDistanceKm
	if maxKm <= 0 {
		maxKm = defaultShelterRadiusKm
	}
	return s.nearestFacilities(models.LayerShelters, req.Latitude, req.Longitude, req.Limit, maxKm)
}

// NearestHospitals searches a wider default radius than shelters since
// hospitals are sparser.
func (s *GIS) NearestHospitals(req models.NearestFacilitiesRequest) []models.Facility {
	maxKm := req.MaxDistanceKm
	if maxKm <= 0 {
		maxKm = defaultHospitalRadiusKm
	}
	return s.nearestFacilities(models.LayerHospitals, req.Latitude, req.Longitude, req.Limit, maxKm)
}

func (s *GIS) nearestFacilities(layer string, lat, lon float64, limit int, maxKm float64) []models.Facility {
	if s.db != nil {
		facilities, err := s.db.FindNearestFacilities(layer, lat, lon, limit, maxKm)
		if err == nil {
			return facilities
		}
		s.logger.Warn("postgis facility search failed, falling back to in-memory index",
			zap.String("layer", layer), zap.Error(err))
	}
	return s.facilities.Nearest(layer, lat, lon, limit, maxKm)
}

// AllShelters returns the full shelter layer as GeoJSON.
func (s *GIS) AllShelters() *geojson.FeatureCollection {
	return s.wholeLayer(models.LayerShelters)
}

// AllHospitals returns the full hospital layer as GeoJSON.
func (s *GIS) AllHospitals() *geojson.FeatureCollection {
	return s.wholeLayer(models.LayerHospitals)
}

func (s *GIS) wholeLayer(name string) *geojson.FeatureCollection {
	key := "all|" + name
	if cached, ok := s.cache.get(key); ok {
		return cached.(*geojson.FeatureCollection)
	}
	fc := s.layer(name).ToGeoJSON()
	s.cache.set(key, fc)
	return fc
}

// ShelterCapacity summarizes occupancy across every stored shelter.
func (s *GIS) ShelterCapacity() models.ShelterCapacitySummary {
	shelters := s.layer(models.LayerShelters)
	summary := models.ShelterCapacitySummary{TotalShelters: len(shelters)}
	for _, sh := range shelters {
		capacity := sh.Properties.MustInt("capacity", 0)
		occupied := sh.Properties.MustInt("current_occupancy", 0)
		summary.TotalCapacity += capacity
		summary.CurrentOccupancy += occupied
		if capacity > 0 && occupied >= capacity {
			summary.SheltersAtCapacity++
		}
	}
	summary.AvailableCapacity = summary.TotalCapacity - summary.CurrentOccupancy
	if summary.TotalCapacity > 0 {
		rate := float64(summary.CurrentOccupancy) / float64(summary.TotalCapacity) * 100
		summary.OccupancyRate = round2(rate)
	}
	return summary
}
