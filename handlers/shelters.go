package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ani3h/disaster-response-gis/models"
)

func (a *API) nearestShelters(c *gin.Context) {
	var req models.NearestFacilitiesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	facilities := a.gis.NearestShelters(req)
	if facilities == nil {
		facilities = []models.Facility{}
	}
	respondList(c, facilities, len(facilities))
}

func (a *API) nearestHospitals(c *gin.Context) {
	var req models.NearestFacilitiesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	facilities := a.gis.NearestHospitals(req)
	if facilities == nil {
		facilities = []models.Facility{}
	}
	respondList(c, facilities, len(facilities))
}

func (a *API) allShelters(c *gin.Context) {
	fc := a.gis.AllShelters()
	respondList(c, fc, len(fc.Features))
}

func (a *API) allHospitals(c *gin.Context) {
	fc := a.gis.AllHospitals()
	respondList(c, fc, len(fc.Features))
}

func (a *API) shelterCapacity(c *gin.Context) {
	respondData(c, a.gis.ShelterCapacity())
}
