package appraisal

import (
	"math"

	"github.com/okello/roadcba/pkg/tables"
)

// DeteriorationInputs drives a roughness-progression projection comparing
// the do-nothing road against the improved one.
type DeteriorationInputs struct {
	// SurfaceType is one of the table's deterioration keys
	// (paved_good, paved_fair, paved_poor, gravel, earth).
	SurfaceType string

	// BaseIRI is the road's current roughness in m/km.
	BaseIRI float64

	// ADT scales the deterioration rate; heavier traffic wears faster.
	ADT float64

	// RainfallZone is low, moderate, or high; empty means moderate.
	RainfallZone string

	// MaterialQuality is poor, average, or good; empty means average.
	MaterialQuality string

	ConstructionYears int
	AnalysisPeriod    int
	BaseYear          int

	// MaintenanceFrequencyYears resets the with-project roughness on this
	// interval; 0 uses the with-project periodic maintenance frequency.
	MaintenanceFrequencyYears int
}

// IRIYear is one year of the roughness projection. WithProject tracks the
// improved road from the start of construction (a linear transition down to
// the post-construction roughness) onward.
type IRIYear struct {
	YearIndex      int     `json:"year_index"`
	CalendarYear   int     `json:"calendar_year"`
	WithoutProject float64 `json:"without_project"`
	WithProject    float64 `json:"with_project"`
}

// DeteriorationSummary condenses a projection.
type DeteriorationSummary struct {
	FinalWithoutIRI float64 `json:"final_without_iri"`
	FinalWithIRI    float64 `json:"final_with_iri"`

	// CapReachedYear is the first year index at which the do-nothing road
	// hits its roughness cap; nil if it never does within the horizon.
	CapReachedYear *int `json:"cap_reached_year"`

	MaintenanceEvents []int `json:"maintenance_events"`
}

// DeteriorationResult is a full roughness projection over the appraisal
// horizon (year 0 through construction+operation).
type DeteriorationResult struct {
	SurfaceType string               `json:"surface_type"`
	K           float64              `json:"k"`
	WithK       float64              `json:"with_project_k"`
	Cap         float64              `json:"iri_cap"`
	Yearly      []IRIYear            `json:"yearly"`
	Summary     DeteriorationSummary `json:"summary"`
}

// ComputeK adjusts a surface type's base deterioration coefficient for
// traffic load, rainfall, and material quality. The traffic factor is
// normalized to 1.0 at 1000 ADT and saturates at five times that load.
func ComputeK(surfaceType string, adt float64, rainfallZone, materialQuality string, tbl *tables.Tables) float64 {
	if tbl == nil {
		tbl = tables.Default()
	}
	kBase, ok := tbl.Deterioration.BaseK[surfaceType]
	if !ok {
		kBase = 0.06
	}

	trafficFactor := 0.8 + 0.2*math.Min(adt/1000.0, 5.0)

	rainFactor := 1.0
	switch rainfallZone {
	case "low":
		rainFactor = 0.85
	case "high":
		rainFactor = 1.20
	}

	qualityFactor := 1.0
	switch materialQuality {
	case "poor":
		qualityFactor = 1.25
	case "good":
		qualityFactor = 0.80
	}

	return kBase * trafficFactor * rainFactor * qualityFactor
}

// PredictDeterioration projects roughness for the do-nothing and
// with-project cases over construction+operation years. The do-nothing road
// grows exponentially from BaseIRI and is capped; the improved road
// transitions linearly to its post-construction roughness during
// construction, then grows at the slower with-project rate with periodic
// maintenance resets. Pure function.
func PredictDeterioration(in DeteriorationInputs, tbl *tables.Tables) *DeteriorationResult {
	if tbl == nil {
		tbl = tables.Default()
	}

	analysisPeriod := in.AnalysisPeriod
	if analysisPeriod == 0 {
		analysisPeriod = tbl.AnalysisPeriod
	}
	constructionYears := in.ConstructionYears
	if constructionYears == 0 {
		constructionYears = tbl.DefaultConstructionYears
	}
	baseYear := in.BaseYear
	if baseYear == 0 {
		baseYear = tbl.BaseYear
	}
	maintFreq := in.MaintenanceFrequencyYears
	if maintFreq == 0 {
		maintFreq = tbl.Maintenance.With.PeriodicFrequencyYears
	}

	d := tbl.Deterioration
	k := ComputeK(in.SurfaceType, in.ADT, in.RainfallZone, in.MaterialQuality, tbl)
	withK := lookupOr(d.WithProjectK, in.SurfaceType, 0.035)
	cap := lookupOr(d.IRICap, in.SurfaceType, 20.0)
	postIRI := lookupOr(d.PostConstructionIRI, in.SurfaceType, 3.0)
	resetIRI := lookupOr(d.MaintenanceResetIRI, in.SurfaceType, 4.0)

	totalYears := constructionYears + analysisPeriod
	yearly := make([]IRIYear, 0, totalYears+1)
	var maintenanceEvents []int
	var capReachedYear *int

	withIRI := in.BaseIRI
	for t := 0; t <= totalYears; t++ {
		withoutIRI := math.Min(in.BaseIRI*math.Exp(k*float64(t)), cap)
		if capReachedYear == nil && withoutIRI >= cap {
			y := t
			capReachedYear = &y
		}

		if t > 0 {
			if t <= constructionYears {
				progress := float64(t) / float64(constructionYears)
				withIRI = in.BaseIRI + progress*(postIRI-in.BaseIRI)
			} else {
				yearsSinceOpen := t - constructionYears
				if maintFreq > 0 && yearsSinceOpen%maintFreq == 0 {
					withIRI = resetIRI
					maintenanceEvents = append(maintenanceEvents, t)
				} else {
					withIRI *= math.Exp(withK)
				}
			}
			withIRI = math.Min(withIRI, cap)
		}

		yearly = append(yearly, IRIYear{
			YearIndex:      t,
			CalendarYear:   baseYear + t,
			WithoutProject: withoutIRI,
			WithProject:    withIRI,
		})
	}

	last := yearly[len(yearly)-1]
	return &DeteriorationResult{
		SurfaceType: in.SurfaceType,
		K:           k,
		WithK:       withK,
		Cap:         cap,
		Yearly:      yearly,
		Summary: DeteriorationSummary{
			FinalWithoutIRI:   last.WithoutProject,
			FinalWithIRI:      last.WithProject,
			CapReachedYear:    capReachedYear,
			MaintenanceEvents: maintenanceEvents,
		},
	}
}

func lookupOr(m map[string]float64, key string, fallback float64) float64 {
	if v, ok := m[key]; ok {
		return v
	}
	return fallback
}
