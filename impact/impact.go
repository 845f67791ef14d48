// Package impact aggregates the effect of hazard zones on population and
// infrastructure by intersecting hazard geometry against the administrative,
// facility and road layers.
package impact

import (
	"math"

	"go.uber.org/zap"

	"github.com/ani3h/disaster-response-gis/config"
	"github.com/ani3h/disaster-response-gis/geometry"
	"github.com/ani3h/disaster-response-gis/models"
)

// damagePerSqKmUSD is the flat rate behind the economic estimate. A rough
// placeholder model, not a survey-grade assessment.
const damagePerSqKmUSD = 1_000_000

const economicNote = "This is a rough estimate. Actual assessment requires detailed survey."

// Analyzer computes impact reports against reference layers. Every metric is
// independently fault tolerant: a metric that cannot be computed degrades to
// zero and is named in the summary's Degraded list instead of failing the
// whole report.
type Analyzer struct {
	gis    config.GIS
	logger *zap.Logger
}

func NewAnalyzer(gis config.GIS, logger *zap.Logger) *Analyzer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Analyzer{gis: gis, logger: logger}
}

// AnalyzeImpact reports the aggregate effect of the hazard zones on the
// reference layers. Population counts every boundary that overlaps at all;
// road impact sums the length_m attribute of intersecting roads.
func (a *Analyzer) AnalyzeImpact(hazard, boundaries, hospitals, shelters, roads models.FeatureSet) models.ImpactSummary {
	var summary models.ImpactSummary

	withArea, err := geometry.Area(hazard)
	if err != nil {
		a.logger.Warn("hazard area degraded", zap.Error(err))
		summary.Degraded = append(summary.Degraded, "affected_area_sqkm")
	}
	var area float64
	for _, f := range withArea {
		area += f.Properties.MustFloat64(geometry.AreaProperty, 0)
	}
	summary.AffectedAreaSqKm = round2(area)

	affectedAdmin, err := geometry.Intersection(boundaries, hazard)
	if err != nil {
		a.logger.Warn("boundary intersection degraded", zap.Error(err))
		summary.Degraded = append(summary.Degraded,
			"estimated_affected_population", "affected_administrative_areas")
	}
	var population int
	for _, f := range affectedAdmin {
		population += f.Properties.MustInt("population", 0)
	}
	summary.AffectedPopulation = population
	summary.AffectedAdminAreas = len(affectedAdmin)

	affectedHospitals, err := geometry.Intersection(hospitals, hazard)
	if err != nil {
		a.logger.Warn("hospital intersection degraded", zap.Error(err))
		summary.Degraded = append(summary.Degraded, "affected_hospitals")
	}
	summary.AffectedHospitals = len(affectedHospitals)

	affectedShelters, err := geometry.Intersection(shelters, hazard)
	if err != nil {
		a.logger.Warn("shelter intersection degraded", zap.Error(err))
		summary.Degraded = append(summary.Degraded, "affected_shelters")
	}
	summary.AffectedShelters = len(affectedShelters)

	affectedRoads, err := geometry.Intersection(roads, hazard)
	if err != nil {
		a.logger.Warn("road intersection degraded", zap.Error(err))
		summary.Degraded = append(summary.Degraded, "affected_roads_km")
	}
	var roadMeters float64
	for _, f := range affectedRoads {
		roadMeters += f.Properties.MustFloat64("length_m", 0)
	}
	summary.AffectedRoadsKm = round2(roadMeters / 1000)

	summary.Severity = AssessSeverity(population, area)

	a.logger.Info("impact analysis complete",
		zap.Int("affected_population", population),
		zap.Float64("affected_area_sqkm", summary.AffectedAreaSqKm),
		zap.String("severity", string(summary.Severity)))
	return summary
}

// AssessSeverity classifies impact by population and area thresholds,
// evaluated top-down so the highest matching tier wins.
func AssessSeverity(population int, areaSqKm float64) models.Severity {
	switch {
	case population > 100000 || areaSqKm > 1000:
		return models.SeverityCritical
	case population > 10000 || areaSqKm > 100:
		return models.SeverityHigh
	case population > 1000 || areaSqKm > 10:
		return models.SeverityMedium
	default:
		return models.SeverityLow
	}
}

// ShelterCapacityGap compares shelter capacity within reach of the hazard
// zones against the estimated affected population. Shelters inside the
// configured search distance of a zone count as nearby.
func (a *Analyzer) ShelterCapacityGap(hazard, shelters models.FeatureSet, affectedPopulation int) models.ShelterCapacityReport {
	buffered, err := geometry.Buffer(hazard, a.gis.ShelterSearchM)
	if err != nil {
		a.logger.Warn("shelter search buffer degraded", zap.Error(err))
	}
	nearby, err := geometry.Intersection(shelters, buffered)
	if err != nil {
		a.logger.Warn("nearby shelter intersection degraded", zap.Error(err))
	}

	var capacity, occupancy int
	for _, s := range nearby {
		capacity += s.Properties.MustInt("capacity", 0)
		occupancy += s.Properties.MustInt("current_occupancy", 0)
	}

	report := models.ShelterCapacityReport{
		NearbyShelters:     len(nearby),
		TotalCapacity:      capacity,
		CurrentOccupancy:   occupancy,
		AvailableCapacity:  capacity - occupancy,
		AffectedPopulation: affectedPopulation,
		CapacityGap:        affectedPopulation - (capacity - occupancy),
	}
	report.CapacitySufficient = report.CapacityGap <= 0

	a.logger.Info("shelter capacity gap computed",
		zap.Int("nearby_shelters", report.NearbyShelters),
		zap.Int("capacity_gap", report.CapacityGap))
	return report
}

// VulnerableInfrastructure lists the critical facilities inside the hazard
// zones. powerStations may be nil when that layer is not loaded.
func (a *Analyzer) VulnerableInfrastructure(hazard, hospitals, powerStations models.FeatureSet) models.VulnerableInfrastructure {
	out := models.VulnerableInfrastructure{
		Hospitals:     []models.FacilityInfo{},
		PowerStations: []models.FacilityInfo{},
	}

	affected, err := geometry.Intersection(hospitals, hazard)
	if err != nil {
		a.logger.Warn("vulnerable hospital intersection degraded", zap.Error(err))
	}
	for _, h := range affected {
		out.Hospitals = append(out.Hospitals, facilityInfo(h))
	}

	if powerStations != nil {
		affected, err := geometry.Intersection(powerStations, hazard)
		if err != nil {
			a.logger.Warn("power station intersection degraded", zap.Error(err))
		}
		for _, p := range affected {
			out.PowerStations = append(out.PowerStations, facilityInfo(p))
		}
	}

	a.logger.Info("vulnerable infrastructure identified",
		zap.Int("hospitals", len(out.Hospitals)),
		zap.Int("power_stations", len(out.PowerStations)))
	return out
}

// EconomicImpact estimates damage from the overlap between the hazard zones
// and administrative areas at a flat rate per square kilometer.
func (a *Analyzer) EconomicImpact(hazard, boundaries models.FeatureSet) models.EconomicImpact {
	affected, err := geometry.Intersection(boundaries, hazard)
	if err != nil {
		a.logger.Warn("economic overlap degraded", zap.Error(err))
	}
	withArea, err := geometry.Area(affected)
	if err != nil {
		a.logger.Warn("economic area degraded", zap.Error(err))
	}

	var total float64
	for _, f := range withArea {
		total += f.Properties.MustFloat64(geometry.AreaProperty, 0)
	}

	return models.EconomicImpact{
		EstimatedDamageUSD: int64(total * damagePerSqKmUSD),
		AffectedAreaSqKm:   round2(total),
		Note:               economicNote,
	}
}

func facilityInfo(f models.Feature) models.FacilityInfo {
	return models.FacilityInfo{
		Name:     f.Properties.MustString("name", ""),
		Capacity: f.Properties.MustInt("capacity", 0),
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
