package feed

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// alertsByType answers with one qualifying alert for whichever hazard type
// was requested.
func alertsByType(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	switch r.URL.Query().Get("type") {
	case TypeFlood:
		fmt.Fprint(w, `{"data": [{"lat": 10.5, "lng": 76.3, "floodRisk": "high", "waterLevel": 2.0}]}`)
	case TypeCyclone:
		fmt.Fprint(w, `{"data": [{"lat": 10.1, "lng": 76.1, "windSpeed": 120, "pressure": 990}]}`)
	case TypeLandslide:
		fmt.Fprint(w, `{"data": [{"lat": 10.2, "lng": 76.2, "soilMoisture": 90}]}`)
	default:
		fmt.Fprint(w, `{"data": []}`)
	}
}

func TestLiveCachesWithinTTL(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		alertsByType(w, r)
	}))
	defer srv.Close()

	svc := NewService(NewClient(testFeedConfig(srv.URL), nil), time.Hour, nil)

	first := svc.Live(TypeFlood)
	second := svc.Live(TypeFlood)
	require.Len(t, first, 1)
	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), hits.Load(), "second lookup must come from cache")

	svc.Live(TypeCyclone)
	assert.Equal(t, int32(2), hits.Load(), "each hazard type is cached separately")
}

func TestLiveServesStaleSnapshotOnFailure(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) > 1 {
			http.Error(w, "down", http.StatusBadGateway)
			return
		}
		alertsByType(w, r)
	}))
	defer srv.Close()

	svc := NewService(NewClient(testFeedConfig(srv.URL), nil), 20*time.Millisecond, nil)

	first := svc.Live(TypeFlood)
	require.Len(t, first, 1)

	time.Sleep(50 * time.Millisecond)

	stale := svc.Live(TypeFlood)
	assert.Equal(t, first, stale, "failed refresh keeps the previous snapshot")
	assert.Equal(t, int32(2), hits.Load())
}

func TestRefreshAll(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(alertsByType))
	defer srv.Close()

	svc := NewService(NewClient(testFeedConfig(srv.URL), nil), time.Hour, nil)

	summary := svc.RefreshAll()
	assert.Equal(t, "success", summary.Status)
	assert.NotEmpty(t, summary.Timestamp)
	assert.Equal(t, 1, summary.FloodAlerts)
	assert.Equal(t, 1, summary.CycloneAlerts)
	assert.Equal(t, 1, summary.LandslideAlerts)
}

func TestRefreshAllPartialFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("type") == TypeCyclone {
			http.Error(w, "down", http.StatusBadGateway)
			return
		}
		alertsByType(w, r)
	}))
	defer srv.Close()

	svc := NewService(NewClient(testFeedConfig(srv.URL), nil), time.Hour, nil)

	summary := svc.RefreshAll()
	assert.Equal(t, "partial", summary.Status)
	assert.Equal(t, 1, summary.FloodAlerts)
	assert.Equal(t, 0, summary.CycloneAlerts)
	assert.Equal(t, 1, summary.LandslideAlerts)
}

func TestLiveAllMergesEveryType(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(alertsByType))
	defer srv.Close()

	svc := NewService(NewClient(testFeedConfig(srv.URL), nil), time.Hour, nil)

	merged := svc.LiveAll()
	require.Len(t, merged, 3)

	types := map[string]bool{}
	for _, f := range merged {
		types[f.Properties.MustString("hazard_type", "")] = true
	}
	assert.True(t, types[TypeFlood])
	assert.True(t, types[TypeCyclone])
	assert.True(t, types[TypeLandslide])
}
