// Package appraisal implements the computational core of road investment
// appraisal: traffic forecasting, economic cost conversion, year-by-year
// cashflow construction, NPV/EIRR/BCR/FYRR metrics, and sensitivity and
// scenario analysis.
//
// Every entry point is a deterministic function of its inputs and an
// explicit *tables.Tables reference set. Nothing here performs I/O or
// mutates shared state; a sensitivity sweep deep-copies the base inputs
// before each perturbation.
package appraisal

import (
	"encoding/json"
	"errors"
	"math"

	"github.com/okello/roadcba/pkg/tables"
)

// ErrInvalidInput is returned when an appraisal is missing a required
// driver, e.g. neither a precomputed traffic forecast nor a base ADT.
var ErrInvalidInput = errors.New("appraisal: invalid input")

// Ratio is a float64 that survives JSON encoding when infinite. BCR uses
// the +Inf sentinel when PV(costs) is non-positive, which encoding/json
// rejects for a plain float64.
type Ratio float64

// IsInf reports whether the ratio is the +Inf sentinel.
func (r Ratio) IsInf() bool { return math.IsInf(float64(r), 1) }

// MarshalJSON encodes infinities as the string "Infinity".
func (r Ratio) MarshalJSON() ([]byte, error) {
	if math.IsInf(float64(r), 0) {
		if r > 0 {
			return []byte(`"Infinity"`), nil
		}
		return []byte(`"-Infinity"`), nil
	}
	return json.Marshal(float64(r))
}

// UnmarshalJSON accepts both plain numbers and the "Infinity" sentinel.
func (r *Ratio) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		switch s {
		case "Infinity":
			*r = Ratio(math.Inf(1))
			return nil
		case "-Infinity":
			*r = Ratio(math.Inf(-1))
			return nil
		}
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*r = Ratio(f)
	return nil
}

// ForecastInputs drives a standalone traffic forecast.
type ForecastInputs struct {
	// BaseADT is the base-year average daily traffic across all classes.
	BaseADT float64

	// GrowthRate is the annual compound growth rate. When nil it is derived
	// as GDPGrowth * GDPElasticity (falling back to the table defaults).
	GrowthRate *float64

	GDPGrowth     *float64
	GDPElasticity *float64

	AnalysisPeriod    int
	ConstructionYears int
	RoadLengthKM      float64
	BaseYear          int

	// VehicleSplit maps class to share of total ADT; nil uses the table
	// default. Shares are expected to sum to 1.
	VehicleSplit map[tables.VehicleClass]float64

	// GeneratedTrafficPct overrides the elasticity-derived generated
	// traffic fraction for operational years.
	GeneratedTrafficPct *float64

	// RoadType selects the capacity threshold; empty uses two_lane_paved.
	RoadType string
}

// ClassTraffic is the per-class slice of one forecast year.
type ClassTraffic struct {
	ADT       float64 `json:"adt"`
	AnnualVKM float64 `json:"annual_vkm"`
}

// YearForecast is a single year of the traffic forecast.
type YearForecast struct {
	YearIndex      int  `json:"year_index"`
	CalendarYear   int  `json:"calendar_year"`
	IsConstruction bool `json:"is_construction"`

	// OperationYear is years since opening (0 = opening year); nil while
	// the road is under construction.
	OperationYear *int `json:"operation_year"`

	NormalADT      float64                              `json:"normal_adt"`
	GeneratedADT   float64                              `json:"generated_adt"`
	TotalADT       float64                              `json:"total_adt"`
	TotalAnnualVKM float64                              `json:"total_annual_vkm"`
	ByClass        map[tables.VehicleClass]ClassTraffic `json:"by_class"`
	VCRatio        float64                              `json:"vc_ratio"`
}

// CapacityWarning flags a year whose volume/capacity ratio exceeds 0.8.
// Warnings are informational; they do not alter costs or benefits.
type CapacityWarning struct {
	Year     int     `json:"year"`
	ADT      float64 `json:"adt"`
	VCRatio  float64 `json:"vc_ratio"`
	Severity string  `json:"warning"` // "approaching capacity" or "congested"
}

// ForecastSummary condenses a forecast for report headers.
type ForecastSummary struct {
	BaseYearADT             float64 `json:"base_year_adt"`
	FinalYearADT            float64 `json:"final_year_adt"`
	TotalVKMOverPeriod      float64 `json:"total_vkm_over_period"`
	YearsWithCapacityIssues int     `json:"years_with_capacity_issues"`
}

// TrafficForecast is the full multi-year demand projection. Yearly has
// exactly ConstructionYears+AnalysisPeriod entries with contiguous
// year indices 0..N-1.
type TrafficForecast struct {
	BaseADT           float64                         `json:"base_adt"`
	GrowthRate        float64                         `json:"growth_rate"`
	AnalysisPeriod    int                             `json:"analysis_period"`
	ConstructionYears int                             `json:"construction_years"`
	RoadLengthKM      float64                         `json:"road_length_km"`
	VehicleSplit      map[tables.VehicleClass]float64 `json:"vehicle_split"`
	RoadType          string                          `json:"road_type"`
	Capacity          float64                         `json:"capacity"`

	// GeneralizedCostChange is the fractional change in summed VOC+VoT
	// between the without- and with-project rate tables; negative means
	// travel got cheaper.
	GeneralizedCostChange float64 `json:"generated_traffic_cost_change"`

	Yearly           []YearForecast    `json:"yearly"`
	CapacityWarnings []CapacityWarning `json:"capacity_warnings"`
	Summary          ForecastSummary   `json:"summary"`
}

// Clone returns a deep copy of the forecast.
func (f *TrafficForecast) Clone() *TrafficForecast {
	if f == nil {
		return nil
	}
	out := *f
	out.VehicleSplit = cloneClassMap(f.VehicleSplit)
	out.Yearly = make([]YearForecast, len(f.Yearly))
	for i, y := range f.Yearly {
		cy := y
		if y.OperationYear != nil {
			v := *y.OperationYear
			cy.OperationYear = &v
		}
		cy.ByClass = make(map[tables.VehicleClass]ClassTraffic, len(y.ByClass))
		for vc, ct := range y.ByClass {
			cy.ByClass[vc] = ct
		}
		out.Yearly[i] = cy
	}
	out.CapacityWarnings = append([]CapacityWarning(nil), f.CapacityWarnings...)
	return &out
}

// AppraisalInputs is the complete, immutable input set for one CBA run.
// Optional fields fall back to the reference tables; at least one of
// Forecast or BaseADT must be supplied.
type AppraisalInputs struct {
	// Tables is the reference data set; nil uses tables.Default().
	Tables *tables.Tables

	// Forecast is an optional precomputed traffic forecast. When nil, one
	// is derived from BaseADT and GrowthRate.
	Forecast *TrafficForecast

	RoadLengthKM          float64
	ConstructionCostTotal float64

	// ConstructionYears of 0 means the table default.
	ConstructionYears int

	// ConstructionPhasing maps 1-indexed construction year to cost share;
	// shares sum to 1. Nil uses the table default. Years missing from the
	// map contribute no construction cost.
	ConstructionPhasing map[int]float64

	// DiscountRate of 0 means the table EOCK.
	DiscountRate float64

	// AnalysisPeriod of 0 means the table default.
	AnalysisPeriod int

	// BaseYear of 0 means the table default.
	BaseYear int

	BaseADT    *float64
	GrowthRate *float64

	VehicleSplit map[tables.VehicleClass]float64

	// Per-run rate overrides; nil entries use the tables.
	VOCWithout      map[tables.VehicleClass]float64
	VOCWith         map[tables.VehicleClass]float64
	VOTWithout      map[tables.VehicleClass]float64
	VOTWith         map[tables.VehicleClass]float64
	AccidentWithout map[tables.VehicleClass]float64
	AccidentWith    map[tables.VehicleClass]float64

	MaintenanceWithout *tables.MaintenanceParams
	MaintenanceWith    *tables.MaintenanceParams

	// ExcludeGeneratedTraffic disables the rule-of-half generated traffic
	// benefit. The zero value includes it.
	ExcludeGeneratedTraffic bool

	// ResidualValueFactor overrides the table default when non-nil.
	ResidualValueFactor *float64

	// RoadType selects the capacity threshold for a derived forecast.
	RoadType string
}

// Clone returns a deep, independent copy of the inputs. Sensitivity sweeps
// clone the base case before every perturbation; the base is never mutated.
func (in AppraisalInputs) Clone() AppraisalInputs {
	out := in
	out.Forecast = in.Forecast.Clone()
	out.ConstructionPhasing = cloneIntMap(in.ConstructionPhasing)
	out.BaseADT = cloneFloatPtr(in.BaseADT)
	out.GrowthRate = cloneFloatPtr(in.GrowthRate)
	out.VehicleSplit = cloneClassMap(in.VehicleSplit)
	out.VOCWithout = cloneClassMap(in.VOCWithout)
	out.VOCWith = cloneClassMap(in.VOCWith)
	out.VOTWithout = cloneClassMap(in.VOTWithout)
	out.VOTWith = cloneClassMap(in.VOTWith)
	out.AccidentWithout = cloneClassMap(in.AccidentWithout)
	out.AccidentWith = cloneClassMap(in.AccidentWith)
	out.ResidualValueFactor = cloneFloatPtr(in.ResidualValueFactor)
	if in.MaintenanceWithout != nil {
		m := *in.MaintenanceWithout
		out.MaintenanceWithout = &m
	}
	if in.MaintenanceWith != nil {
		m := *in.MaintenanceWith
		out.MaintenanceWith = &m
	}
	return out
}

// CostBreakdown is one year's cost side of the ledger.
type CostBreakdown struct {
	Construction   float64 `json:"construction"`
	NetMaintenance float64 `json:"net_maintenance"`
	Total          float64 `json:"total"`
}

// BenefitBreakdown is one year's benefit side of the ledger.
type BenefitBreakdown struct {
	VOCSavings       float64 `json:"voc_savings"`
	VOTSavings       float64 `json:"vot_savings"`
	AccidentSavings  float64 `json:"accident_savings"`
	GeneratedTraffic float64 `json:"generated_traffic"`
	ResidualValue    float64 `json:"residual_value"`
	Total            float64 `json:"total"`
}

// CashflowYear is one row of the cost/benefit ledger. Benefits are zero for
// every construction year; residual value is zero except in the final year.
type CashflowYear struct {
	YearIndex      int              `json:"year_index"`
	CalendarYear   int              `json:"calendar_year"`
	IsConstruction bool             `json:"is_construction"`
	Costs          CostBreakdown    `json:"costs"`
	Benefits       BenefitBreakdown `json:"benefits"`
	NetBenefit     float64          `json:"net_benefit"`
}

// CBASummary is the headline block of a CBAResult.
type CBASummary struct {
	NPVUSD             float64  `json:"npv_usd"`
	EIRRPct            *float64 `json:"eirr_pct"`
	BCR                Ratio    `json:"bcr"`
	FYRRPct            *float64 `json:"fyrr_pct"`
	NPVPerKMUSD        float64  `json:"npv_per_km_usd"`
	EconomicallyViable bool     `json:"economically_viable"`
	Recommendation     string   `json:"recommendation"`
}

// CBAResult is the complete output of one appraisal run. All monetary
// figures are full-precision; rounding happens at output boundaries only.
type CBAResult struct {
	NPV float64 `json:"npv"`

	// EIRR is nil when no discount rate zeroes the NPV within the searched
	// range; an undefined EIRR is not an error.
	EIRR *float64 `json:"eirr"`

	// BCR is +Inf when PV(costs) is non-positive.
	BCR Ratio `json:"bcr"`

	// FYRR is nil when there is no operational year or the economic
	// construction cost is zero.
	FYRR *float64 `json:"fyrr"`

	NPVPerKM                 float64 `json:"npv_per_km"`
	DiscountRate             float64 `json:"discount_rate"`
	EconomicConstructionCost float64 `json:"economic_construction_cost"`
	PVBenefits               float64 `json:"pv_benefits"`
	PVCosts                  float64 `json:"pv_costs"`

	YearlyCashflows []CashflowYear   `json:"yearly_cashflows"`
	Forecast        *TrafficForecast `json:"traffic_forecast"`
	TablesVersion   string           `json:"tables_version"`
	Summary         CBASummary       `json:"summary"`
}

func cloneFloatPtr(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneIntMap(m map[int]float64) map[int]float64 {
	if m == nil {
		return nil
	}
	out := make(map[int]float64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func cloneClassMap(m map[tables.VehicleClass]float64) map[tables.VehicleClass]float64 {
	if m == nil {
		return nil
	}
	out := make(map[tables.VehicleClass]float64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
