// Package handlers exposes the GIS service over HTTP with gin, using the
// status/data envelope shared by every endpoint.
package handlers

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ani3h/disaster-response-gis/services"
)

const (
	serviceName    = "Disaster Response GIS API"
	serviceVersion = "1.0.0"
)

// API holds the handler dependencies.
type API struct {
	gis    *services.GIS
	logger *zap.Logger
}

func NewAPI(gis *services.GIS, logger *zap.Logger) *API {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &API{gis: gis, logger: logger}
}

// NewRouter builds the gin engine with CORS and every API route registered.
func NewRouter(gis *services.GIS, logger *zap.Logger) *gin.Engine {
	r := gin.Default()

	corsCfg := cors.DefaultConfig()
	corsCfg.AllowAllOrigins = true
	corsCfg.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsCfg.AllowHeaders = []string{"*"}
	r.Use(cors.New(corsCfg))

	NewAPI(gis, logger).Register(r)
	return r
}

// Register attaches every route under /api.
func (a *API) Register(r *gin.Engine) {
	api := r.Group("/api")
	api.GET("/health", a.health)

	routes := api.Group("/routes")
	routes.POST("/safe-route", a.safeRoute)
	routes.POST("/alternative-routes", a.alternativeRoutes)
	routes.POST("/distance", a.distance)
	routes.POST("/nearest-road", a.nearestRoad)

	disaster := api.Group("/disaster")
	disaster.GET("/zones", a.zones)
	disaster.POST("/impact-analysis", a.impactAnalysis)
	disaster.POST("/check-location", a.checkLocation)
	disaster.GET("/statistics", a.statistics)

	shelters := api.Group("/shelters")
	shelters.POST("/nearest", a.nearestShelters)
	shelters.GET("/all", a.allShelters)
	shelters.GET("/capacity", a.shelterCapacity)
	shelters.POST("/hospitals/nearest", a.nearestHospitals)
	shelters.GET("/hospitals/all", a.allHospitals)

	layers := api.Group("/layers")
	layers.GET("", a.layers)
	layers.GET("/:name", a.layerByName)
	layers.POST("/safe-zones", a.safeZones)
}

func (a *API) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": serviceName,
		"version": serviceVersion,
	})
}

func respondData(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": data})
}

// respondList is respondData plus the count field the list endpoints carry.
func respondList(c *gin.Context, data interface{}, count int) {
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": data, "count": count})
}

// respondEmpty signals a query that completed but found nothing, which is
// not an error.
func respondEmpty(c *gin.Context, message string) {
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": nil, "message": message})
}

func respondError(c *gin.Context, code int, message string) {
	c.JSON(code, gin.H{"status": "error", "message": message})
}
