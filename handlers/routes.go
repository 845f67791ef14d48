package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ani3h/disaster-response-gis/models"
)

// safeRoute answers POST /api/routes/safe-route. An unreachable pair is a
// 200 with an explanatory message, not an error.
func (a *API) safeRoute(c *gin.Context) {
	var req models.SafeRouteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	route, err := a.gis.SafeRoute(req)
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	if route == nil {
		respondEmpty(c, "no safe route found")
		return
	}
	respondData(c, route)
}

func (a *API) alternativeRoutes(c *gin.Context) {
	var req models.AlternativeRoutesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	routes := a.gis.AlternativeRoutes(req)
	if routes == nil {
		routes = []*models.Route{}
	}
	respondList(c, routes, len(routes))
}

func (a *API) distance(c *gin.Context) {
	var req models.DistanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	res, err := a.gis.Distance(req)
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	respondData(c, res)
}

func (a *API) nearestRoad(c *gin.Context) {
	var req models.LocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	nr := a.gis.NearestRoadTo(req.Point())
	if nr == nil {
		respondEmpty(c, "no roads available")
		return
	}
	respondData(c, nr)
}
