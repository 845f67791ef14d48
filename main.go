package main

import (
	"log"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/ani3h/disaster-response-gis/config"
	"github.com/ani3h/disaster-response-gis/feed"
	"github.com/ani3h/disaster-response-gis/geodata"
	"github.com/ani3h/disaster-response-gis/handlers"
	"github.com/ani3h/disaster-response-gis/models"
	"github.com/ani3h/disaster-response-gis/postgis"
	"github.com/ani3h/disaster-response-gis/services"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment defaults")
	}

	cfg := config.Load()

	logger, err := newLogger(cfg.Server)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync()

	if cfg.Server.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	store := geodata.NewStore(logger)
	loaded, err := store.LoadDir(cfg.Data.Dir)
	if err != nil {
		logger.Warn("layer directory not loaded",
			zap.String("dir", cfg.Data.Dir), zap.Error(err))
	}
	logger.Info("layer store ready",
		zap.Int("layers", loaded),
		zap.Strings("names", store.LayerNames()))

	var db *postgis.Store
	if cfg.Database.Configured() {
		db, err = postgis.Open(cfg.Database, logger)
		if err != nil {
			logger.Warn("postgis unavailable, continuing with the file store", zap.Error(err))
			db = nil
		} else {
			defer db.Close()
			if err := db.InitSchema(); err != nil {
				logger.Error("postgis schema init failed", zap.Error(err))
			} else {
				syncLayers(store, db, logger)
			}
		}
	}

	live := feed.NewService(feed.NewClient(cfg.Feed, logger), cfg.Feed.CacheTTL, logger)
	live.Start(cfg.Feed.RefreshInterval)
	defer live.Stop()

	if cfg.Feed.APIKey != "" {
		go func() {
			summary := live.RefreshAll()
			logger.Info("initial hazard feed refresh",
				zap.String("status", summary.Status),
				zap.Int("flood_alerts", summary.FloodAlerts),
				zap.Int("cyclone_alerts", summary.CycloneAlerts),
				zap.Int("landslide_alerts", summary.LandslideAlerts))
		}()
	}

	gis := services.NewGIS(cfg, store, live, db, logger)
	router := handlers.NewRouter(gis, logger)

	addr := cfg.Server.Addr()
	logger.Info("disaster response GIS API starting", zap.String("addr", addr))
	if err := router.Run(addr); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}

func newLogger(server config.Server) (*zap.Logger, error) {
	if server.IsProduction() {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

// syncLayers pushes the loaded file layers into PostGIS. When the data
// directory held nothing, it instead pulls whatever a previous run
// imported, so the API can serve from the database alone.
func syncLayers(store *geodata.Store, db *postgis.Store, logger *zap.Logger) {
	names := store.LayerNames()
	if len(names) == 0 {
		for _, layer := range []string{
			models.LayerRoads, models.LayerHazardZones, models.LayerAdminBoundaries,
			models.LayerHospitals, models.LayerShelters, models.LayerCycloneTracks,
		} {
			features, err := db.LoadLayer(layer)
			if err != nil {
				logger.Warn("postgis layer load failed",
					zap.String("layer", layer), zap.Error(err))
				continue
			}
			if len(features) > 0 {
				store.SetLayer(layer, features)
			}
		}
		return
	}

	for _, name := range names {
		features, _ := store.Layer(name)
		if err := db.ImportLayer(name, features); err != nil {
			logger.Warn("postgis import skipped",
				zap.String("layer", name), zap.Error(err))
		}
	}
}
