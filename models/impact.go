package models

// ImpactSummary aggregates the effect of a hazard zone on population and
// infrastructure. Metrics that could not be computed are listed in Degraded
// and reported as zero rather than failing the whole report.
type ImpactSummary struct {
	AffectedAreaSqKm   float64  `json:"affected_area_sqkm"`
	AffectedPopulation int      `json:"estimated_affected_population"`
	AffectedAdminAreas int      `json:"affected_administrative_areas"`
	AffectedHospitals  int      `json:"affected_hospitals"`
	AffectedShelters   int      `json:"affected_shelters"`
	AffectedRoadsKm    float64  `json:"affected_roads_km"`
	Severity           Severity `json:"severity_assessment"`
	Degraded           []string `json:"degraded_metrics,omitempty"`
}

// ShelterCapacityReport compares shelter capacity near a hazard zone
// against the estimated affected population.
type ShelterCapacityReport struct {
	NearbyShelters     int  `json:"nearby_shelters_count"`
	TotalCapacity      int  `json:"total_capacity"`
	CurrentOccupancy   int  `json:"current_occupancy"`
	AvailableCapacity  int  `json:"available_capacity"`
	AffectedPopulation int  `json:"affected_population"`
	CapacityGap        int  `json:"capacity_gap"`
	CapacitySufficient bool `json:"capacity_sufficient"`
}

// FacilityInfo identifies a single at-risk facility.
type FacilityInfo struct {
	Name     string `json:"name"`
	Capacity int    `json:"capacity"`
}

// VulnerableInfrastructure lists critical facilities inside a hazard zone.
type VulnerableInfrastructure struct {
	Hospitals     []FacilityInfo `json:"hospitals"`
	PowerStations []FacilityInfo `json:"power_stations"`
}

// EconomicImpact is a rough damage estimate derived from affected area.
type EconomicImpact struct {
	EstimatedDamageUSD int64   `json:"estimated_damage_usd"`
	AffectedAreaSqKm   float64 `json:"affected_area_sqkm"`
	Note               string  `json:"note"`
}

// DisasterStatistics summarizes the currently active hazard zones.
type DisasterStatistics struct {
	ActiveDisasters    int            `json:"active_disasters"`
	TotalAreaSqKm      float64        `json:"total_affected_area_sqkm"`
	AffectedPopulation int            `json:"estimated_affected_population"`
	DisasterTypes      map[string]int `json:"disaster_types"`
}

// ShelterCapacitySummary aggregates occupancy over every shelter in a layer.
type ShelterCapacitySummary struct {
	TotalShelters      int     `json:"total_shelters"`
	TotalCapacity      int     `json:"total_capacity"`
	CurrentOccupancy   int     `json:"current_occupancy"`
	AvailableCapacity  int     `json:"available_capacity"`
	OccupancyRate      float64 `json:"occupancy_rate"`
	SheltersAtCapacity int     `json:"shelters_at_capacity"`
}
