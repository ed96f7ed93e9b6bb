// Package tables holds the versioned reference data that drives a road
// investment appraisal: vehicle classes, per-vehicle-km rate tables,
// maintenance cost parameters, economic conversion shares, road capacities,
// deterioration coefficients, and sensitivity test definitions.
//
// All appraisal entry points take an explicit *Tables; nothing in the engine
// reads package-level state. Default() returns the built-in calibration and
// Load() applies a YAML overlay on top of it.
package tables

import "fmt"

// VehicleClass identifies a traffic class in the rate tables.
type VehicleClass string

// The four classes carried by the default calibration.
const (
	Cars         VehicleClass = "Cars"
	BusesLGV     VehicleClass = "Buses_LGV"
	HGV          VehicleClass = "HGV"
	SemiTrailers VehicleClass = "Semi_Trailers"
)

// RatePair holds per-vehicle-km rates (USD/veh-km) for the without-project
// and with-project cases, keyed by vehicle class.
type RatePair struct {
	Without map[VehicleClass]float64 `yaml:"without_project"`
	With    map[VehicleClass]float64 `yaml:"with_project"`
}

// MaintenanceParams describes the maintenance cost structure of one scenario.
// Routine cost recurs every operational year; the periodic and major costs
// recur on their own frequencies. All costs are USD/km.
type MaintenanceParams struct {
	RoutineAnnual          float64 `yaml:"routine_annual"`
	Periodic               float64 `yaml:"periodic"`
	PeriodicFrequencyYears int     `yaml:"periodic_frequency_years"`
	MajorPeriodic          float64 `yaml:"major_periodic"`
	MajorFrequencyYears    int     `yaml:"major_frequency_years"`
}

// MaintenanceCosts pairs the without- and with-project maintenance regimes.
type MaintenanceCosts struct {
	Without MaintenanceParams `yaml:"without_project"`
	With    MaintenanceParams `yaml:"with_project"`
}

// EconomicConversion holds the shadow-pricing shares used to convert a
// financial construction cost into an economic one. The tax share is carried
// for completeness but deliberately excluded from the conversion: taxes are
// transfer payments, not real resource costs.
type EconomicConversion struct {
	ImportedMaterialsShare float64 `yaml:"imported_materials_share"`
	LocalMaterialsShare    float64 `yaml:"local_materials_share"`
	SkilledLabourShare     float64 `yaml:"skilled_labour_share"`
	UnskilledLabourShare   float64 `yaml:"unskilled_labour_share"`
	TaxShare               float64 `yaml:"tax_share"`
	ShadowWageUnskilled    float64 `yaml:"shadow_wage_unskilled"`
	SkilledLabourFactor    float64 `yaml:"skilled_labour_factor"`
	ForeignExchangePremium float64 `yaml:"foreign_exchange_premium"`
}

// SCF returns the standard conversion factor, 1/(1+FEP).
func (ec EconomicConversion) SCF() float64 {
	return 1.0 / (1.0 + ec.ForeignExchangePremium)
}

// CostBenchmark gives a low/typical/high construction cost band (USD/km)
// for a project type. Used for input validation, not computation.
type CostBenchmark struct {
	Low     float64 `yaml:"low"`
	Typical float64 `yaml:"typical"`
	High    float64 `yaml:"high"`
}

// IRIRange is a roughness band (m/km) for a surface condition.
type IRIRange struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
}

// DeteriorationParams holds the exponential roughness-progression
// coefficients per surface type. IRI(t) = IRI0 * e^(k*t), capped.
type DeteriorationParams struct {
	BaseK               map[string]float64 `yaml:"base_k"`
	WithProjectK        map[string]float64 `yaml:"with_project_k"`
	IRICap              map[string]float64 `yaml:"iri_cap"`
	PostConstructionIRI map[string]float64 `yaml:"post_construction_iri"`
	MaintenanceResetIRI map[string]float64 `yaml:"maintenance_reset_iri"`
}

// SensitivityVariable defines how one input variable is exercised during a
// sensitivity sweep: either a set of relative/absolute changes (TestRange)
// or a set of direct substitution values (TestValues).
type SensitivityVariable struct {
	TestRange  []float64 `yaml:"test_range,omitempty"`
	TestValues []float64 `yaml:"test_values,omitempty"`
}

// Tables is the complete reference data set for one appraisal run.
type Tables struct {
	// Version identifies the calibration carried by this table set.
	Version string `yaml:"version"`

	// EOCK is the economic opportunity cost of capital, the default
	// discount rate.
	EOCK float64 `yaml:"eock"`

	// AnalysisPeriod is the default number of operational years appraised.
	AnalysisPeriod int `yaml:"analysis_period"`

	// BaseYear is the default calendar year for year index 0.
	BaseYear int `yaml:"base_year"`

	// ResidualValueFactor is the fraction of the economic construction cost
	// credited back in the final analysis year.
	ResidualValueFactor float64 `yaml:"residual_value_factor"`

	VehicleClasses      []VehicleClass           `yaml:"vehicle_classes"`
	DefaultVehicleSplit map[VehicleClass]float64 `yaml:"default_vehicle_split"`

	VOC      RatePair `yaml:"voc_rates"`
	VOT      RatePair `yaml:"vot_rates"`
	Accident RatePair `yaml:"accident_rates"`

	Maintenance MaintenanceCosts `yaml:"maintenance_costs"`

	// Traffic growth defaults. When an appraisal supplies no growth rate,
	// it is derived as GDPGrowthRate * TrafficGDPElasticity.
	DefaultTrafficGrowthRate float64 `yaml:"default_traffic_growth_rate"`
	GDPGrowthRate            float64 `yaml:"gdp_growth_rate"`
	TrafficGDPElasticity     float64 `yaml:"traffic_gdp_elasticity"`

	// PriceElasticityDemand drives generated traffic; negative by convention.
	PriceElasticityDemand float64 `yaml:"price_elasticity_demand"`

	// RoadCapacity maps road type to practical capacity in vehicles/day.
	RoadCapacity map[string]float64 `yaml:"road_capacity"`

	ConstructionCostBenchmarks map[string]CostBenchmark `yaml:"construction_cost_benchmarks"`

	DefaultConstructionYears   int             `yaml:"default_construction_years"`
	DefaultConstructionPhasing map[int]float64 `yaml:"default_construction_phasing"`

	Conversion EconomicConversion `yaml:"economic_conversion"`

	IRIBenchmarks map[string]IRIRange `yaml:"iri_benchmarks"`

	Deterioration DeteriorationParams `yaml:"deterioration"`

	// Sensitivity defines the test points per sweep variable.
	Sensitivity map[string]SensitivityVariable `yaml:"sensitivity_variables"`
}

// Default returns the built-in calibration (Uganda network, 2024 rates).
// The returned value is a fresh copy; callers may modify it freely.
func Default() *Tables {
	return &Tables{
		Version:             "2024.1",
		EOCK:                0.12,
		AnalysisPeriod:      20,
		BaseYear:            2026,
		ResidualValueFactor: 0.75,

		VehicleClasses: []VehicleClass{Cars, BusesLGV, HGV, SemiTrailers},
		DefaultVehicleSplit: map[VehicleClass]float64{
			Cars:         0.45,
			BusesLGV:     0.25,
			HGV:          0.20,
			SemiTrailers: 0.10,
		},

		VOC: RatePair{
			Without: map[VehicleClass]float64{
				Cars: 0.180, BusesLGV: 0.490, HGV: 0.930, SemiTrailers: 1.600,
			},
			With: map[VehicleClass]float64{
				Cars: 0.126, BusesLGV: 0.343, HGV: 0.650, SemiTrailers: 1.120,
			},
		},
		VOT: RatePair{
			Without: map[VehicleClass]float64{
				Cars: 0.040, BusesLGV: 0.110, HGV: 0.210, SemiTrailers: 0.353,
			},
			With: map[VehicleClass]float64{
				Cars: 0.028, BusesLGV: 0.078, HGV: 0.148, SemiTrailers: 0.247,
			},
		},
		Accident: RatePair{
			Without: map[VehicleClass]float64{
				Cars: 0.013, BusesLGV: 0.035, HGV: 0.070, SemiTrailers: 0.114,
			},
			With: map[VehicleClass]float64{
				Cars: 0.009, BusesLGV: 0.025, HGV: 0.050, SemiTrailers: 0.080,
			},
		},

		Maintenance: MaintenanceCosts{
			Without: MaintenanceParams{
				RoutineAnnual:       2560,
				MajorPeriodic:       600000,
				MajorFrequencyYears: 10,
			},
			With: MaintenanceParams{
				RoutineAnnual:          4500,
				Periodic:               91100,
				PeriodicFrequencyYears: 10,
			},
		},

		DefaultTrafficGrowthRate: 0.035,
		GDPGrowthRate:            0.035,
		TrafficGDPElasticity:     1.0,
		PriceElasticityDemand:    -0.5,

		RoadCapacity: map[string]float64{
			"single_lane_gravel": 1000,
			"two_lane_gravel":    3000,
			"two_lane_paved":     8000,
			"dual_carriageway":   25000,
		},

		ConstructionCostBenchmarks: map[string]CostBenchmark{
			"gravel_to_paved_rural": {Low: 250000, Typical: 400000, High: 600000},
			"gravel_to_paved_urban": {Low: 500000, Typical: 800000, High: 1500000},
			"rehabilitation_paved":  {Low: 100000, Typical: 200000, High: 400000},
			"new_dual_carriageway":  {Low: 1000000, Typical: 2000000, High: 4000000},
		},

		DefaultConstructionYears:   3,
		DefaultConstructionPhasing: map[int]float64{1: 0.40, 2: 0.30, 3: 0.30},

		Conversion: EconomicConversion{
			ImportedMaterialsShare: 0.40,
			LocalMaterialsShare:    0.20,
			SkilledLabourShare:     0.15,
			UnskilledLabourShare:   0.15,
			TaxShare:               0.10,
			ShadowWageUnskilled:    0.70,
			SkilledLabourFactor:    1.00,
			ForeignExchangePremium: 0.075,
		},

		IRIBenchmarks: map[string]IRIRange{
			"paved_good":  {Min: 2, Max: 4},
			"paved_fair":  {Min: 4, Max: 6},
			"paved_poor":  {Min: 6, Max: 10},
			"gravel_good": {Min: 6, Max: 10},
			"gravel_fair": {Min: 10, Max: 14},
			"gravel_poor": {Min: 14, Max: 20},
			"earth":       {Min: 12, Max: 25},
		},

		Deterioration: DeteriorationParams{
			BaseK: map[string]float64{
				"paved_good": 0.04, "paved_fair": 0.06, "paved_poor": 0.08,
				"gravel": 0.10, "earth": 0.12,
			},
			WithProjectK: map[string]float64{
				"paved_good": 0.03, "paved_fair": 0.035, "paved_poor": 0.035,
				"gravel": 0.06, "earth": 0.08,
			},
			IRICap: map[string]float64{
				"paved_good": 16.0, "paved_fair": 18.0, "paved_poor": 20.0,
				"gravel": 24.0, "earth": 30.0,
			},
			PostConstructionIRI: map[string]float64{
				"paved_good": 2.5, "paved_fair": 3.0, "paved_poor": 3.0,
				"gravel": 6.0, "earth": 8.0,
			},
			MaintenanceResetIRI: map[string]float64{
				"paved_good": 3.5, "paved_fair": 4.0, "paved_poor": 4.0,
				"gravel": 8.0, "earth": 10.0,
			},
		},

		Sensitivity: map[string]SensitivityVariable{
			"construction_cost":  {TestRange: []float64{-0.20, -0.10, 0.10, 0.20, 0.30}},
			"traffic_volume":     {TestRange: []float64{-0.30, -0.20, -0.10, 0.10, 0.20}},
			"traffic_growth":     {TestRange: []float64{-0.02, -0.01, 0.01, 0.02}},
			"voc_savings":        {TestRange: []float64{-0.30, -0.20, -0.10, 0.10}},
			"discount_rate":      {TestValues: []float64{0.06, 0.08, 0.10, 0.12, 0.15, 0.18}},
			"construction_delay": {TestValues: []float64{1, 2, 3}},
		},
	}
}

// CapacityFor returns the capacity for a road type, falling back to the
// two-lane paved default when the type is unknown.
func (t *Tables) CapacityFor(roadType string) float64 {
	if c, ok := t.RoadCapacity[roadType]; ok && c > 0 {
		return c
	}
	return 8000
}

// Validate checks internal consistency. All violations are reported in a
// single error so a bad overlay file can be fixed in one pass.
func (t *Tables) Validate() error {
	var problems []string

	if t.EOCK <= 0 || t.EOCK >= 1 {
		problems = append(problems, fmt.Sprintf("eock must be in (0,1), got %g", t.EOCK))
	}
	if t.AnalysisPeriod <= 0 {
		problems = append(problems, fmt.Sprintf("analysis_period must be positive, got %d", t.AnalysisPeriod))
	}
	if t.ResidualValueFactor < 0 || t.ResidualValueFactor > 1 {
		problems = append(problems, fmt.Sprintf("residual_value_factor must be in [0,1], got %g", t.ResidualValueFactor))
	}
	if len(t.VehicleClasses) == 0 {
		problems = append(problems, "vehicle_classes must not be empty")
	}

	if s := sumShares(t.DefaultVehicleSplit); !approxOne(s) {
		problems = append(problems, fmt.Sprintf("default_vehicle_split shares sum to %g, want 1.0", s))
	}
	var phasingSum float64
	for _, share := range t.DefaultConstructionPhasing {
		phasingSum += share
	}
	if !approxOne(phasingSum) {
		problems = append(problems, fmt.Sprintf("default_construction_phasing shares sum to %g, want 1.0", phasingSum))
	}
	if t.DefaultConstructionYears <= 0 {
		problems = append(problems, fmt.Sprintf("default_construction_years must be positive, got %d", t.DefaultConstructionYears))
	}

	for _, vc := range t.VehicleClasses {
		for name, m := range map[string]map[VehicleClass]float64{
			"voc_rates.without_project":      t.VOC.Without,
			"voc_rates.with_project":         t.VOC.With,
			"vot_rates.without_project":      t.VOT.Without,
			"vot_rates.with_project":         t.VOT.With,
			"accident_rates.without_project": t.Accident.Without,
			"accident_rates.with_project":    t.Accident.With,
		} {
			if _, ok := m[vc]; !ok {
				problems = append(problems, fmt.Sprintf("%s missing class %q", name, vc))
			}
		}
	}

	if t.Maintenance.Without.MajorFrequencyYears < 0 {
		problems = append(problems, "maintenance_costs.without_project.major_frequency_years must not be negative")
	}
	if t.Maintenance.With.PeriodicFrequencyYears < 0 {
		problems = append(problems, "maintenance_costs.with_project.periodic_frequency_years must not be negative")
	}

	if t.PriceElasticityDemand > 0 {
		problems = append(problems, fmt.Sprintf("price_elasticity_demand should be non-positive, got %g", t.PriceElasticityDemand))
	}

	c := t.Conversion
	resourceShares := c.ImportedMaterialsShare + c.LocalMaterialsShare +
		c.SkilledLabourShare + c.UnskilledLabourShare + c.TaxShare
	if !approxOne(resourceShares) {
		problems = append(problems, fmt.Sprintf("economic_conversion shares sum to %g, want 1.0", resourceShares))
	}
	if c.ForeignExchangePremium < 0 {
		problems = append(problems, "economic_conversion.foreign_exchange_premium must not be negative")
	}

	for name, sv := range t.Sensitivity {
		if len(sv.TestRange) == 0 && len(sv.TestValues) == 0 {
			problems = append(problems, fmt.Sprintf("sensitivity_variables.%s defines neither test_range nor test_values", name))
		}
	}

	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("invalid tables (%s):\n  - %s", t.Version, joinLines(problems))
}

func sumShares(m map[VehicleClass]float64) float64 {
	var s float64
	for _, v := range m {
		s += v
	}
	return s
}

func approxOne(v float64) bool {
	const tol = 1e-6
	return v > 1-tol && v < 1+tol
}

func joinLines(lines []string) string {
	out := lines[0]
	for _, l := range lines[1:] {
		out += "\n  - " + l
	}
	return out
}
