// Package feed pulls live hazard alerts from the Ambee natural-disaster API
// and converts them into hazard-zone point features. Alerts below the
// per-type risk thresholds are dropped.
package feed

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"go.uber.org/zap"

	"github.com/ani3h/disaster-response-gis/config"
	"github.com/ani3h/disaster-response-gis/models"
)

// Hazard types the feed understands.
const (
	TypeFlood     = "flood"
	TypeCyclone   = "cyclone"
	TypeLandslide = "landslide"
)

// HazardTypes lists every type a full refresh fetches.
var HazardTypes = []string{TypeFlood, TypeCyclone, TypeLandslide}

// Client queries the Ambee by-lat-lng endpoint around a fixed center.
type Client struct {
	cfg    config.Feed
	http   *http.Client
	logger *zap.Logger
}

// NewClient builds a feed client. A nil logger disables logging.
func NewClient(cfg config.Feed, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: 15 * time.Second},
		logger: logger,
	}
}

// Fetch queries one hazard type and converts the response into point
// features. Without an API key it returns an empty set rather than failing.
func (c *Client) Fetch(hazardType string) (models.FeatureSet, error) {
	if c.cfg.APIKey == "" {
		c.logger.Warn("feed API key not set; returning no live hazards",
			zap.String("type", hazardType))
		return models.FeatureSet{}, nil
	}

	req, err := http.NewRequest(http.MethodGet, c.cfg.BaseURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build feed request: %w", err)
	}
	q := req.URL.Query()
	q.Set("lat", strconv.FormatFloat(c.cfg.CenterLat, 'f', -1, 64))
	q.Set("lng", strconv.FormatFloat(c.cfg.CenterLon, 'f', -1, 64))
	q.Set("type", hazardType)
	q.Set("radius", strconv.FormatFloat(c.cfg.RadiusKm, 'f', -1, 64))
	req.URL.RawQuery = q.Encode()
	req.Header.Set("x-api-key", c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("feed request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed returned status %d for %s", resp.StatusCode, hazardType)
	}

	var payload ambeeResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode feed response: %w", err)
	}

	features := c.convert(payload.alerts(), hazardType)
	c.logger.Info("fetched live hazard data",
		zap.String("type", hazardType),
		zap.Int("alerts", len(features)))
	return features, nil
}

// ambeeResponse carries the data field, which arrives as either a single
// alert object or an array of them.
type ambeeResponse struct {
	Data json.RawMessage `json:"data"`
}

func (r ambeeResponse) alerts() []ambeeAlert {
	if len(r.Data) == 0 {
		return nil
	}
	var many []ambeeAlert
	if err := json.Unmarshal(r.Data, &many); err == nil {
		return many
	}
	var one ambeeAlert
	if err := json.Unmarshal(r.Data, &one); err == nil {
		return []ambeeAlert{one}
	}
	return nil
}

type ambeeAlert struct {
	Lat           *float64 `json:"lat"`
	Lng           *float64 `json:"lng"`
	FloodRisk     string   `json:"floodRisk"`
	WaterLevel    float64  `json:"waterLevel"`
	WindSpeed     float64  `json:"windSpeed"`
	Pressure      float64  `json:"pressure"`
	SoilMoisture  float64  `json:"soilMoisture"`
	LandslideRisk string   `json:"landslideRisk"`
}

// convert keeps the alerts that indicate actual danger and tags them with
// the shared feed properties. Alerts without coordinates fall back to the
// configured center.
func (c *Client) convert(alerts []ambeeAlert, hazardType string) models.FeatureSet {
	features := models.FeatureSet{}
	now := time.Now().Format(time.RFC3339)

	for _, alert := range alerts {
		props, ok := alertProperties(alert, hazardType)
		if !ok {
			continue
		}
		props["disaster_type"] = hazardType
		props["hazard_type"] = hazardType
		props["source"] = "Ambee API"
		props["timestamp"] = now

		lat, lon := c.cfg.CenterLat, c.cfg.CenterLon
		if alert.Lat != nil {
			lat = *alert.Lat
		}
		if alert.Lng != nil {
			lon = *alert.Lng
		}

		features = append(features, models.Feature{
			ID:         uuid.NewString(),
			Geometry:   orb.Point{lon, lat},
			Properties: props,
		})
	}
	return features
}

// alertProperties classifies one alert; ok is false when the alert does not
// cross the danger threshold for its type.
func alertProperties(alert ambeeAlert, hazardType string) (geojson.Properties, bool) {
	switch hazardType {
	case TypeFlood:
		risky := alert.FloodRisk != "" && alert.FloodRisk != "low" && alert.FloodRisk != "unknown"
		if !risky && alert.WaterLevel <= 0 {
			return nil, false
		}
		severity := alert.FloodRisk
		if severity == "" || severity == "unknown" {
			severity = "medium"
		}
		return geojson.Properties{
			"severity":    severity,
			"water_level": alert.WaterLevel,
			"description": fmt.Sprintf("Flood risk: %s, Water level: %gm", alert.FloodRisk, alert.WaterLevel),
		}, true

	case TypeCyclone:
		if alert.WindSpeed <= 50 {
			return nil, false
		}
		severity := "medium"
		if alert.WindSpeed > 100 {
			severity = "high"
		}
		return geojson.Properties{
			"severity":    severity,
			"wind_speed":  alert.WindSpeed,
			"pressure":    alert.Pressure,
			"description": fmt.Sprintf("High wind speed: %g km/h", alert.WindSpeed),
		}, true

	case TypeLandslide:
		risky := alert.LandslideRisk != "" && alert.LandslideRisk != "low" && alert.LandslideRisk != "unknown"
		if alert.SoilMoisture <= 70 && !risky {
			return nil, false
		}
		severity := "medium"
		if alert.SoilMoisture > 85 || alert.LandslideRisk == "high" {
			severity = "high"
		}
		return geojson.Properties{
			"severity":       severity,
			"soil_moisture":  alert.SoilMoisture,
			"landslide_risk": alert.LandslideRisk,
			"description":    fmt.Sprintf("Landslide risk: %s, Soil moisture: %g%%", alert.LandslideRisk, alert.SoilMoisture),
		}, true
	}
	return nil, false
}
