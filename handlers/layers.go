package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ani3h/disaster-response-gis/models"
	"github.com/ani3h/disaster-response-gis/services"
)

func (a *API) layers(c *gin.Context) {
	infos := a.gis.Layers()
	respondList(c, infos, len(infos))
}

// layerByName answers GET /api/layers/:name, with an optional
// bbox=minLon,minLat,maxLon,maxLat query filter.
func (a *API) layerByName(c *gin.Context) {
	bbox, err := parseBBox(c.Query("bbox"))
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	fc, err := a.gis.LayerGeoJSON(c.Param("name"), bbox)
	if err != nil {
		if errors.Is(err, services.ErrLayerNotFound) {
			respondError(c, http.StatusNotFound, err.Error())
			return
		}
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	respondList(c, fc, len(fc.Features))
}

// safeZones answers POST /api/layers/safe-zones. The body is optional; an
// empty one means the default buffer distance.
func (a *API) safeZones(c *gin.Context) {
	var req models.SafeZonesRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	fc := a.gis.SafeZones(req.BufferDistanceMeters)
	respondList(c, fc, len(fc.Features))
}

func parseBBox(raw string) ([]float64, error) {
	if raw == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ",")
	if len(parts) != 4 {
		return nil, fmt.Errorf("bbox must be minLon,minLat,maxLon,maxLat")
	}
	vals := make([]float64, len(parts))
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("bbox value %q is not a number", p)
		}
		vals[i] = v
	}
	return vals, nil
}
