package feed

import (
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/ani3h/disaster-response-gis/models"
)

// snapshot is one hazard type's most recent successful fetch.
type snapshot struct {
	features models.FeatureSet
	fetched  time.Time
}

// Service caches live hazard features per type, refreshing them from the
// feed when stale, on demand, or on a cron schedule.
type Service struct {
	client *Client
	ttl    time.Duration
	logger *zap.Logger

	mu    sync.RWMutex
	cache map[string]snapshot

	cron *cron.Cron
}

// NewService wraps a client with a TTL cache.
func NewService(client *Client, ttl time.Duration, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		client: client,
		ttl:    ttl,
		logger: logger,
		cache:  make(map[string]snapshot),
	}
}

// Live returns cached features for one hazard type, fetching when the cache
// is stale. When a fetch fails the previous snapshot is served.
func (s *Service) Live(hazardType string) models.FeatureSet {
	s.mu.RLock()
	snap, ok := s.cache[hazardType]
	s.mu.RUnlock()

	if ok && time.Since(snap.fetched) < s.ttl {
		return snap.features
	}

	features, err := s.client.Fetch(hazardType)
	if err != nil {
		s.logger.Warn("live feed fetch failed",
			zap.String("type", hazardType), zap.Error(err))
		return snap.features
	}

	s.store(hazardType, features)
	return features
}

// LiveAll merges live features across every hazard type.
func (s *Service) LiveAll() models.FeatureSet {
	merged := models.FeatureSet{}
	for _, hazardType := range HazardTypes {
		merged = append(merged, s.Live(hazardType)...)
	}
	return merged
}

// RefreshSummary reports the outcome of a forced full refresh.
type RefreshSummary struct {
	Status          string `json:"status"`
	Timestamp       string `json:"timestamp"`
	FloodAlerts     int    `json:"flood_alerts"`
	CycloneAlerts   int    `json:"cyclone_alerts"`
	LandslideAlerts int    `json:"landslide_alerts"`
}

// RefreshAll force-fetches every hazard type. Types that fail keep their
// previous snapshot and downgrade the summary status to partial.
func (s *Service) RefreshAll() RefreshSummary {
	summary := RefreshSummary{
		Status:    "success",
		Timestamp: time.Now().Format(time.RFC3339),
	}

	for _, hazardType := range HazardTypes {
		features, err := s.client.Fetch(hazardType)
		if err != nil {
			s.logger.Warn("live feed refresh failed",
				zap.String("type", hazardType), zap.Error(err))
			summary.Status = "partial"
			continue
		}
		s.store(hazardType, features)

		switch hazardType {
		case TypeFlood:
			summary.FloodAlerts = len(features)
		case TypeCyclone:
			summary.CycloneAlerts = len(features)
		case TypeLandslide:
			summary.LandslideAlerts = len(features)
		}
	}
	return summary
}

// Start schedules periodic refreshes. No-op for a non-positive interval.
func (s *Service) Start(interval time.Duration) {
	if interval <= 0 {
		return
	}

	s.cron = cron.New()
	s.cron.Schedule(cron.Every(interval), cron.FuncJob(func() {
		summary := s.RefreshAll()
		s.logger.Info("scheduled live feed refresh",
			zap.String("status", summary.Status),
			zap.Int("flood_alerts", summary.FloodAlerts),
			zap.Int("cyclone_alerts", summary.CycloneAlerts),
			zap.Int("landslide_alerts", summary.LandslideAlerts))
	}))
	s.cron.Start()
	s.logger.Info("live feed scheduler started", zap.Duration("interval", interval))
}

// Stop halts the refresh schedule.
func (s *Service) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
}

func (s *Service) store(hazardType string, features models.FeatureSet) {
	s.mu.Lock()
	s.cache[hazardType] = snapshot{features: features, fetched: time.Now()}
	s.mu.Unlock()
}
