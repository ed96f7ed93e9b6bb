package appraisal

import "github.com/okello/roadcba/pkg/tables"

// ForecastTraffic projects yearly vehicle demand over the construction and
// operation horizon. Normal traffic compounds uniformly from year 0;
// generated traffic appears only once the road is open, sized by the demand
// elasticity applied to the generalized cost change between the without- and
// with-project rate tables.
//
// The function is pure: it reads in and tbl and touches nothing else.
func ForecastTraffic(in ForecastInputs, tbl *tables.Tables) *TrafficForecast {
	if tbl == nil {
		tbl = tables.Default()
	}

	growthRate := resolveGrowthRate(in, tbl)

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
	roadType := in.RoadType
	if roadType == "" {
		roadType = "two_lane_paved"
	}

	split := in.VehicleSplit
	if split == nil {
		split = tbl.DefaultVehicleSplit
	}

	gcChange := GeneralizedCostChange(
		tbl.VehicleClasses,
		tbl.VOC.Without, tbl.VOC.With,
		tbl.VOT.Without, tbl.VOT.With,
	)

	totalYears := constructionYears + analysisPeriod
	capacity := tbl.CapacityFor(roadType)

	yearly := make([]YearForecast, 0, totalYears)
	var warnings []CapacityWarning
	var totalVKMOverPeriod float64

	for yearIdx := 0; yearIdx < totalYears; yearIdx++ {
		calendarYear := baseYear + yearIdx
		isConstruction := yearIdx < constructionYears

		normalADT := in.BaseADT * pow1p(growthRate, yearIdx)

		var genPct float64
		if !isConstruction {
			if in.GeneratedTrafficPct != nil {
				genPct = *in.GeneratedTrafficPct
			} else {
				genPct = abs(tbl.PriceElasticityDemand * gcChange)
			}
		}
		generatedADT := 0.0
		if !isConstruction {
			generatedADT = normalADT * genPct
		}
		totalADT := normalADT + generatedADT

		totalVKM := totalADT * in.RoadLengthKM * 365
		totalVKMOverPeriod += totalVKM

		byClass := make(map[tables.VehicleClass]ClassTraffic, len(tbl.VehicleClasses))
		for _, vc := range tbl.VehicleClasses {
			share := split[vc]
			byClass[vc] = ClassTraffic{
				ADT:       totalADT * share,
				AnnualVKM: totalVKM * share,
			}
		}

		var vcRatio float64
		if capacity > 0 {
			vcRatio = totalADT / capacity
		}
		if vcRatio > 0.8 {
			severity := "approaching capacity"
			if vcRatio > 1.0 {
				severity = "congested"
			}
			warnings = append(warnings, CapacityWarning{
				Year:     calendarYear,
				ADT:      totalADT,
				VCRatio:  vcRatio,
				Severity: severity,
			})
		}

		var opYear *int
		if !isConstruction {
			v := yearIdx - constructionYears
			opYear = &v
		}

		yearly = append(yearly, YearForecast{
			YearIndex:      yearIdx,
			CalendarYear:   calendarYear,
			IsConstruction: isConstruction,
			OperationYear:  opYear,
			NormalADT:      normalADT,
			GeneratedADT:   generatedADT,
			TotalADT:       totalADT,
			TotalAnnualVKM: totalVKM,
			ByClass:        byClass,
			VCRatio:        vcRatio,
		})
	}

	splitCopy := make(map[tables.VehicleClass]float64, len(split))
	for vc, s := range split {
		splitCopy[vc] = s
	}

	return &TrafficForecast{
		BaseADT:               in.BaseADT,
		GrowthRate:            growthRate,
		AnalysisPeriod:        analysisPeriod,
		ConstructionYears:     constructionYears,
		RoadLengthKM:          in.RoadLengthKM,
		VehicleSplit:          splitCopy,
		RoadType:              roadType,
		Capacity:              capacity,
		GeneralizedCostChange: gcChange,
		Yearly:                yearly,
		CapacityWarnings:      warnings,
		Summary: ForecastSummary{
			BaseYearADT:             in.BaseADT,
			FinalYearADT:            yearly[len(yearly)-1].TotalADT,
			TotalVKMOverPeriod:      totalVKMOverPeriod,
			YearsWithCapacityIssues: len(warnings),
		},
	}
}

// GeneralizedCostChange returns the fractional change in the summed VOC+VoT
// across all vehicle classes between the without- and with-project tables.
// Negative means travel got cheaper. The sum is unweighted by vehicle split.
func GeneralizedCostChange(
	classes []tables.VehicleClass,
	vocWithout, vocWith, votWithout, votWith map[tables.VehicleClass]float64,
) float64 {
	var totalWithout, totalWith float64
	for _, vc := range classes {
		totalWithout += vocWithout[vc] + votWithout[vc]
		totalWith += vocWith[vc] + votWith[vc]
	}
	if totalWithout == 0 {
		return 0
	}
	return (totalWith - totalWithout) / totalWithout
}

func resolveGrowthRate(in ForecastInputs, tbl *tables.Tables) float64 {
	if in.GrowthRate != nil {
		return *in.GrowthRate
	}
	gdp := tbl.GDPGrowthRate
	if in.GDPGrowth != nil {
		gdp = *in.GDPGrowth
	}
	elasticity := tbl.TrafficGDPElasticity
	if in.GDPElasticity != nil {
		elasticity = *in.GDPElasticity
	}
	return gdp * elasticity
}

// pow1p computes (1+rate)^n without pulling in math.Pow for integer powers,
// keeping the compounding exact for small n.
func pow1p(rate float64, n int) float64 {
	result := 1.0
	base := 1.0 + rate
	for i := 0; i < n; i++ {
		result *= base
	}
	return result
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
