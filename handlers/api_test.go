package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ani3h/disaster-response-gis/config"
	"github.com/ani3h/disaster-response-gis/geodata"
	"github.com/ani3h/disaster-response-gis/models"
	"github.com/ani3h/disaster-response-gis/services"
)

func init() { gin.SetMode(gin.TestMode) }

func testRouter(t *testing.T, layers map[string]models.FeatureSet) *gin.Engine {
	t.Helper()
	store := geodata.NewStore(zap.NewNop())
	for name, features := range layers {
		store.SetLayer(name, features)
	}
	gis := services.NewGIS(config.Default(), store, nil, nil, zap.NewNop())
	return NewRouter(gis, zap.NewNop())
}

func road(id string, props geojson.Properties, pts ...orb.Point) models.Feature {
	return models.Feature{ID: id, Geometry: orb.LineString(pts), Properties: props}
}

func box(id string, props geojson.Properties, minLon, minLat, maxLon, maxLat float64) models.Feature {
	return models.Feature{
		ID: id,
		Geometry: orb.Polygon{orb.Ring{
			{minLon, minLat}, {maxLon, minLat}, {maxLon, maxLat}, {minLon, maxLat}, {minLon, minLat},
		}},
		Properties: props,
	}
}

func point(id string, props geojson.Properties, lon, lat float64) models.Feature {
	return models.Feature{ID: id, Geometry: orb.Point{lon, lat}, Properties: props}
}

// keralaLayers is a small self-consistent world: two roads between the same
// endpoints, one flood zone straddling the direct road, one district, one
// hospital and one shelter.
func keralaLayers() map[string]models.FeatureSet {
	return map[string]models.FeatureSet{
		models.LayerRoads: {
			road("direct", geojson.Properties{"name": "NH 66", "road_type": "highway"},
				orb.Point{76.20, 10.00}, orb.Point{76.23, 10.00}, orb.Point{76.26, 10.00}),
			road("detour", geojson.Properties{"name": "Hill Bypass", "road_type": "secondary"},
				orb.Point{76.20, 10.00}, orb.Point{76.23, 10.05}, orb.Point{76.26, 10.00}),
		},
		models.LayerHazardZones: {
			box("fz1", geojson.Properties{
				"id": 1, "name": "Periyar Flood", "severity": "high",
				"status": "active", "disaster_type": "flood",
			}, 76.228, 9.999, 76.232, 10.001),
		},
		models.LayerAdminBoundaries: {
			box("district", geojson.Properties{"name": "Ernakulam", "population": 50000},
				76.1, 9.9, 76.4, 10.1),
		},
		models.LayerHospitals: {
			point("h1", geojson.Properties{"name": "General", "capacity": 400}, 76.21, 10.01),
		},
		models.LayerShelters: {
			point("s1", geojson.Properties{"name": "Town Hall", "capacity": 300, "current_occupancy": 100},
				76.21, 10.005),
		},
	}
}

// doJSON runs one request and decodes the response envelope.
func doJSON(t *testing.T, r *gin.Engine, method, path string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var reader bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&reader).Encode(body))
	}
	req := httptest.NewRequest(method, path, &reader)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var envelope map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope), "body: %s", w.Body.String())
	return w, envelope
}

func dataObject(t *testing.T, envelope map[string]interface{}) map[string]interface{} {
	t.Helper()
	data, ok := envelope["data"].(map[string]interface{})
	require.True(t, ok, "data is not an object: %v", envelope["data"])
	return data
}

func dataArray(t *testing.T, envelope map[string]interface{}) []interface{} {
	t.Helper()
	data, ok := envelope["data"].([]interface{})
	require.True(t, ok, "data is not an array: %v", envelope["data"])
	return data
}

func TestHealth(t *testing.T) {
	r := testRouter(t, nil)

	w, envelope := doJSON(t, r, http.MethodGet, "/api/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", envelope["status"])
	assert.Equal(t, "Disaster Response GIS API", envelope["service"])
	assert.Equal(t, "1.0.0", envelope["version"])
}

func TestCORSPreflight(t *testing.T) {
	r := testRouter(t, nil)

	req := httptest.NewRequest(http.MethodOptions, "/api/health", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "GET")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestLayersList(t *testing.T) {
	r := testRouter(t, keralaLayers())

	w, envelope := doJSON(t, r, http.MethodGet, "/api/layers", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "success", envelope["status"])
	assert.EqualValues(t, 5, envelope["count"])

	infos := dataArray(t, envelope)
	first := infos[0].(map[string]interface{})
	assert.Equal(t, "admin_boundaries", first["id"])
	assert.Equal(t, "/api/layers/admin_boundaries", first["endpoint"])
}

func TestLayerByName(t *testing.T) {
	r := testRouter(t, keralaLayers())

	w, envelope := doJSON(t, r, http.MethodGet, "/api/layers/roads", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 2, envelope["count"])
	fc := dataObject(t, envelope)
	assert.Equal(t, "FeatureCollection", fc["type"])

	// Only the detour's bound reaches above latitude 10.02.
	w, envelope = doJSON(t, r, http.MethodGet, "/api/layers/roads?bbox=76.19,10.02,76.27,10.06", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, envelope["count"])

	w, envelope = doJSON(t, r, http.MethodGet, "/api/layers/roads?bbox=oops", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "error", envelope["status"])

	w, envelope = doJSON(t, r, http.MethodGet, "/api/layers/power_lines", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "error", envelope["status"])
}

func TestSafeZonesEndpoint(t *testing.T) {
	r := testRouter(t, keralaLayers())

	w, envelope := doJSON(t, r, http.MethodPost, "/api/layers/safe-zones",
		map[string]interface{}{"buffer_distance_meters": 500})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "success", envelope["status"])
	assert.EqualValues(t, 1, envelope["count"])

	// No body at all falls back to the default buffer.
	w, envelope = doJSON(t, r, http.MethodPost, "/api/layers/safe-zones", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, envelope["count"])
}
