package appraisal

import (
	"context"
	"fmt"
	"math"

	"github.com/okello/roadcba/pkg/tables"
)

// RunCBA builds the year-by-year cost/benefit ledger for a road project and
// reduces it to NPV, EIRR, BCR, FYRR, and a recommendation.
//
// When in.Forecast is nil, a traffic forecast is derived from in.BaseADT and
// in.GrowthRate; supplying neither is an ErrInvalidInput. The run never
// mutates its inputs, so identical (cloned) inputs produce identical results.
func RunCBA(ctx context.Context, in AppraisalInputs) (*CBAResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tbl := in.Tables
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
	discountRate := in.DiscountRate
	if discountRate == 0 {
		discountRate = tbl.EOCK
	}
	residualFactor := tbl.ResidualValueFactor
	if in.ResidualValueFactor != nil {
		residualFactor = *in.ResidualValueFactor
	}

	forecast := in.Forecast
	if forecast == nil {
		if in.BaseADT == nil {
			return nil, fmt.Errorf("%w: either a traffic forecast or a base ADT must be provided", ErrInvalidInput)
		}
		forecast = ForecastTraffic(ForecastInputs{
			BaseADT:           *in.BaseADT,
			GrowthRate:        in.GrowthRate,
			AnalysisPeriod:    analysisPeriod,
			ConstructionYears: constructionYears,
			RoadLengthKM:      in.RoadLengthKM,
			BaseYear:          baseYear,
			VehicleSplit:      in.VehicleSplit,
			RoadType:          in.RoadType,
		}, tbl)
	}

	phasing := in.ConstructionPhasing
	if phasing == nil {
		phasing = tbl.DefaultConstructionPhasing
	}
	vocWithout := orRates(in.VOCWithout, tbl.VOC.Without)
	vocWith := orRates(in.VOCWith, tbl.VOC.With)
	votWithout := orRates(in.VOTWithout, tbl.VOT.Without)
	votWith := orRates(in.VOTWith, tbl.VOT.With)
	accWithout := orRates(in.AccidentWithout, tbl.Accident.Without)
	accWith := orRates(in.AccidentWith, tbl.Accident.With)
	maintWithout := tbl.Maintenance.Without
	if in.MaintenanceWithout != nil {
		maintWithout = *in.MaintenanceWithout
	}
	maintWith := tbl.Maintenance.With
	if in.MaintenanceWith != nil {
		maintWith = *in.MaintenanceWith
	}

	econCost := FinancialToEconomic(in.ConstructionCostTotal, tbl.Conversion)
	totalYears := constructionYears + analysisPeriod

	cashflows := make([]CashflowYear, 0, totalYears)
	for _, yearData := range forecast.Yearly {
		yearIdx := yearData.YearIndex
		isConstruction := yearData.IsConstruction

		var constructionCost float64
		if isConstruction {
			// Phasing is keyed by 1-indexed construction year.
			constructionCost = econCost * phasing[yearIdx+1]
		}

		costWithout := annualMaintenanceCost(maintWithout, in.RoadLengthKM, yearIdx, constructionYears, false)
		costWith := annualMaintenanceCost(maintWith, in.RoadLengthKM, yearIdx, constructionYears, true)
		netMaintenance := costWith - costWithout

		totalCost := constructionCost + netMaintenance

		var benefits BenefitBreakdown
		if !isConstruction {
			for _, vc := range tbl.VehicleClasses {
				share := forecast.VehicleSplit[vc]
				// Normal traffic only: the stored per-class vkm includes
				// generated traffic, which is valued separately below.
				normalVKM := yearData.NormalADT * share * in.RoadLengthKM * 365

				benefits.VOCSavings += normalVKM * (vocWithout[vc] - vocWith[vc])
				benefits.VOTSavings += normalVKM * (votWithout[vc] - votWith[vc])
				benefits.AccidentSavings += normalVKM * (accWithout[vc] - accWith[vc])
			}

			if !in.ExcludeGeneratedTraffic && yearData.GeneratedADT > 0 {
				for _, vc := range tbl.VehicleClasses {
					share := forecast.VehicleSplit[vc]
					genVKM := yearData.GeneratedADT * share * in.RoadLengthKM * 365
					savingPerVKM := (vocWithout[vc] - vocWith[vc]) +
						(votWithout[vc] - votWith[vc]) +
						(accWithout[vc] - accWith[vc])
					// Rule of half: generated users realize on average half
					// the full saving.
					benefits.GeneratedTraffic += genVKM * savingPerVKM * 0.5
				}
			}
		}

		userBenefits := benefits.VOCSavings + benefits.VOTSavings +
			benefits.AccidentSavings + benefits.GeneratedTraffic

		if yearIdx == totalYears-1 {
			benefits.ResidualValue = econCost * residualFactor
		}
		benefits.Total = userBenefits + benefits.ResidualValue

		cashflows = append(cashflows, CashflowYear{
			YearIndex:      yearIdx,
			CalendarYear:   yearData.CalendarYear,
			IsConstruction: isConstruction,
			Costs: CostBreakdown{
				Construction:   constructionCost,
				NetMaintenance: netMaintenance,
				Total:          totalCost,
			},
			Benefits:   benefits,
			NetBenefit: benefits.Total - totalCost,
		})
	}

	netBenefits := make([]float64, len(cashflows))
	benefitTotals := make([]float64, len(cashflows))
	costTotals := make([]float64, len(cashflows))
	for i, cf := range cashflows {
		netBenefits[i] = cf.NetBenefit
		benefitTotals[i] = cf.Benefits.Total
		costTotals[i] = cf.Costs.Total
	}

	npv := NPV(netBenefits, discountRate)
	eirr := CalculateEIRR(netBenefits, Brent{})
	pvBenefits := NPV(benefitTotals, discountRate)
	pvCosts := NPV(costTotals, discountRate)

	bcr := Ratio(math.Inf(1))
	if pvCosts > 0 {
		bcr = Ratio(pvBenefits / pvCosts)
	}

	var fyrr *float64
	if econCost > 0 {
		for _, cf := range cashflows {
			if !cf.IsConstruction {
				v := cf.NetBenefit / econCost
				fyrr = &v
				break
			}
		}
	}

	var npvPerKM float64
	if in.RoadLengthKM > 0 {
		npvPerKM = npv / in.RoadLengthKM
	}

	var eirrPct, fyrrPct *float64
	if eirr != nil {
		v := *eirr * 100
		eirrPct = &v
	}
	if fyrr != nil {
		v := *fyrr * 100
		fyrrPct = &v
	}

	return &CBAResult{
		NPV:                      npv,
		EIRR:                     eirr,
		BCR:                      bcr,
		FYRR:                     fyrr,
		NPVPerKM:                 npvPerKM,
		DiscountRate:             discountRate,
		EconomicConstructionCost: econCost,
		PVBenefits:               pvBenefits,
		PVCosts:                  pvCosts,
		YearlyCashflows:          cashflows,
		Forecast:                 forecast,
		TablesVersion:            tbl.Version,
		Summary: CBASummary{
			NPVUSD:             npv,
			EIRRPct:            eirrPct,
			BCR:                bcr,
			FYRRPct:            fyrrPct,
			NPVPerKMUSD:        npvPerKM,
			EconomicallyViable: EconomicallyViable(npv, eirr, discountRate),
			Recommendation:     Recommendation(npv, eirr, bcr, discountRate),
		},
	}, nil
}

// annualMaintenanceCost returns one scenario's maintenance bill for a year.
// During construction only the without-project road is maintained (routine
// only); the project road does not exist yet. After opening both scenarios
// pay routine cost every year, plus their periodic (with-project) or major
// (without-project) cost on the respective frequency.
func annualMaintenanceCost(p tables.MaintenanceParams, lengthKM float64, yearIdx, constructionYears int, withProject bool) float64 {
	if yearIdx < constructionYears {
		if withProject {
			return 0
		}
		return p.RoutineAnnual * lengthKM
	}

	operationYear := yearIdx - constructionYears
	cost := p.RoutineAnnual * lengthKM

	if withProject {
		freq := p.PeriodicFrequencyYears
		if freq > 0 && operationYear > 0 && operationYear%freq == 0 {
			cost += p.Periodic * lengthKM
		}
	} else {
		freq := p.MajorFrequencyYears
		if freq > 0 && operationYear > 0 && operationYear%freq == 0 {
			cost += p.MajorPeriodic * lengthKM
		}
	}
	return cost
}

func orRates(override, fallback map[tables.VehicleClass]float64) map[tables.VehicleClass]float64 {
	if override != nil {
		return override
	}
	return fallback
}
