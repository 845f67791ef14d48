package handlers

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNearestSheltersEndpoint(t *testing.T) {
	r := testRouter(t, keralaLayers())

	w, envelope := doJSON(t, r, http.MethodPost, "/api/shelters/nearest", map[string]interface{}{
		"latitude": 10.0, "longitude": 76.20,
	})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, envelope["count"])

	shelters := dataArray(t, envelope)
	require.Len(t, shelters, 1)
	first := shelters[0].(map[string]interface{})
	assert.Equal(t, "Town Hall", first["name"])
	assert.EqualValues(t, 300, first["capacity"])
	assert.InDelta(t, 1.23, first["distance_km"], 0.01)
	require.NotNil(t, first["geometry"])
}

func TestNearestSheltersEndpointMalformed(t *testing.T) {
	r := testRouter(t, keralaLayers())

	w, envelope := doJSON(t, r, http.MethodPost, "/api/shelters/nearest",
		map[string]interface{}{"latitude": 10.0})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "error", envelope["status"])
}

func TestNearestSheltersEndpointEmpty(t *testing.T) {
	r := testRouter(t, nil)

	w, envelope := doJSON(t, r, http.MethodPost, "/api/shelters/nearest", map[string]interface{}{
		"latitude": 10.0, "longitude": 76.20,
	})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 0, envelope["count"])
	assert.Empty(t, dataArray(t, envelope), "no shelters is an empty list, not null")
}

func TestNearestHospitalsEndpoint(t *testing.T) {
	r := testRouter(t, keralaLayers())

	w, envelope := doJSON(t, r, http.MethodPost, "/api/shelters/hospitals/nearest", map[string]interface{}{
		"latitude": 10.0, "longitude": 76.20, "limit": 3,
	})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, envelope["count"])

	hospitals := dataArray(t, envelope)
	require.Len(t, hospitals, 1)
	assert.Equal(t, "General", hospitals[0].(map[string]interface{})["name"])
}

func TestAllSheltersEndpoint(t *testing.T) {
	r := testRouter(t, keralaLayers())

	w, envelope := doJSON(t, r, http.MethodGet, "/api/shelters/all", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, envelope["count"])

	fc := dataObject(t, envelope)
	assert.Equal(t, "FeatureCollection", fc["type"])
}

func TestAllHospitalsEndpoint(t *testing.T) {
	r := testRouter(t, keralaLayers())

	w, envelope := doJSON(t, r, http.MethodGet, "/api/shelters/hospitals/all", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, envelope["count"])
}

func TestShelterCapacityEndpoint(t *testing.T) {
	r := testRouter(t, keralaLayers())

	w, envelope := doJSON(t, r, http.MethodGet, "/api/shelters/capacity", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	summary := dataObject(t, envelope)
	assert.EqualValues(t, 1, summary["total_shelters"])
	assert.EqualValues(t, 300, summary["total_capacity"])
	assert.EqualValues(t, 100, summary["current_occupancy"])
	assert.EqualValues(t, 200, summary["available_capacity"])
	assert.InDelta(t, 33.33, summary["occupancy_rate"], 0.001)
}
