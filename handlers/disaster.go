package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ani3h/disaster-response-gis/models"
	"github.com/ani3h/disaster-response-gis/services"
)

// zones answers GET /api/disaster/zones with optional type and severity
// query filters.
func (a *API) zones(c *gin.Context) {
	fc := a.gis.Zones(c.Query("type"), c.Query("severity"))
	respondList(c, fc, len(fc.Features))
}

func (a *API) impactAnalysis(c *gin.Context) {
	var req models.ImpactAnalysisRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	report, err := a.gis.ImpactAnalysis(req)
	if err != nil {
		if errors.Is(err, services.ErrZoneNotFound) {
			respondError(c, http.StatusNotFound, err.Error())
			return
		}
		a.logger.Warn("impact analysis rejected", zap.Error(err))
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	respondData(c, report)
}

func (a *API) checkLocation(c *gin.Context) {
	var req models.LocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	respondData(c, a.gis.CheckLocation(req.Point()))
}

func (a *API) statistics(c *gin.Context) {
	respondData(c, a.gis.Statistics())
}
