package appraisal

import (
	"context"
	"fmt"
	"math"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/okello/roadcba/pkg/tables"
)

// Variable names an input exercised by the sensitivity sweep.
type Variable string

// The variables the sweep knows how to perturb.
const (
	ConstructionCost  Variable = "construction_cost"
	TrafficVolume     Variable = "traffic_volume"
	TrafficGrowth     Variable = "traffic_growth"
	VOCSavings        Variable = "voc_savings"
	DiscountRate      Variable = "discount_rate"
	ConstructionDelay Variable = "construction_delay"
)

// DefaultVariables returns every sweep variable in canonical order.
func DefaultVariables() []Variable {
	return []Variable{
		ConstructionCost, TrafficVolume, TrafficGrowth,
		VOCSavings, DiscountRate, ConstructionDelay,
	}
}

// Named scenario keys.
const (
	ScenarioOptimistic  = "optimistic"
	ScenarioPessimistic = "pessimistic"
	ScenarioWorstCase   = "worst_case"
)

// SensitivityPoint is one perturbation outcome. Change is a relative factor
// for multiplicative variables, an absolute delta for traffic_growth, and a
// direct substitution value for discount_rate and construction_delay.
type SensitivityPoint struct {
	Change float64  `json:"change"`
	NPV    float64  `json:"npv"`
	EIRR   *float64 `json:"eirr"`
	BCR    Ratio    `json:"bcr"`
}

// BaseCaseMetrics is the unperturbed reference the sweep compares against.
type BaseCaseMetrics struct {
	NPV  float64  `json:"npv"`
	EIRR *float64 `json:"eirr"`
	BCR  Ratio    `json:"bcr"`
}

// ScenarioOutcome is the result of one named multi-variable scenario. Err is
// set when the scenario's CBA rerun failed; the other scenarios still run.
type ScenarioOutcome struct {
	NPV    float64  `json:"npv"`
	EIRR   *float64 `json:"eirr"`
	BCR    Ratio    `json:"bcr"`
	Viable bool     `json:"viable"`
	Err    string   `json:"error,omitempty"`
}

// SensitivitySummary is the headline block of a sweep.
type SensitivitySummary struct {
	MostSensitiveVariable       Variable `json:"most_sensitive_variable"`
	MostSensitiveSwitchingValue *float64 `json:"most_sensitive_switching_value"`
	ViableUnderAllScenarios     bool     `json:"viable_under_all_scenarios"`
	RiskAssessment              string   `json:"risk_assessment"`
}

// SensitivityResult is the complete output of a sweep.
type SensitivityResult struct {
	BaseCase        BaseCaseMetrics                 `json:"base_case"`
	SingleVariable  map[Variable][]SensitivityPoint `json:"single_variable"`
	SwitchingValues map[Variable]float64            `json:"switching_values"`
	Scenarios       map[string]ScenarioOutcome      `json:"scenarios"`
	Summary         SensitivitySummary              `json:"summary"`
}

// Switching-value search parameters: bisection stops once |NPV| falls below
// switchingTolUSD or after switchingMaxIter halvings.
const (
	switchingTolUSD  = 1000.0
	switchingMaxIter = 50
)

type sweepConfig struct {
	logger  *zap.Logger
	workers int
}

// Option configures a sensitivity sweep.
type Option func(*sweepConfig)

// WithLogger attaches a logger for per-variable progress. The default is a
// nop logger; the sweep's outputs are unaffected either way.
func WithLogger(l *zap.Logger) Option {
	return func(c *sweepConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithWorkers bounds how many CBA evaluations run concurrently within one
// variable's scan. Values below 2 keep the scan sequential. Every evaluation
// operates on its own deep copy of the base inputs, so parallel runs cannot
// interfere.
func WithWorkers(n int) Option {
	return func(c *sweepConfig) {
		if n > 0 {
			c.workers = n
		}
	}
}

// RunSensitivity perturbs the requested variables one at a time, reruns the
// CBA for each test point, locates switching values, and evaluates the three
// named scenarios. The base inputs are cloned before every perturbation and
// any cached forecast is discarded so each rerun reflects its own traffic.
//
// A perturbation whose rerun fails is dropped from that variable's result
// array; the sweep continues. When ctx is canceled mid-sweep the variables
// evaluated so far are returned alongside the context error.
func RunSensitivity(ctx context.Context, base AppraisalInputs, variables []Variable, opts ...Option) (*SensitivityResult, error) {
	cfg := sweepConfig{logger: zap.NewNop(), workers: 1}
	for _, opt := range opts {
		opt(&cfg)
	}

	tbl := base.Tables
	if tbl == nil {
		tbl = tables.Default()
	}
	if len(variables) == 0 {
		variables = DefaultVariables()
	}

	baseResult, err := RunCBA(ctx, base)
	if err != nil {
		return nil, fmt.Errorf("base case: %w", err)
	}

	result := &SensitivityResult{
		BaseCase: BaseCaseMetrics{
			NPV:  baseResult.NPV,
			EIRR: baseResult.EIRR,
			BCR:  baseResult.BCR,
		},
		SingleVariable:  make(map[Variable][]SensitivityPoint),
		SwitchingValues: make(map[Variable]float64),
		Scenarios:       make(map[string]ScenarioOutcome),
	}

	for _, v := range variables {
		if ctx.Err() != nil {
			break
		}
		def, ok := tbl.Sensitivity[string(v)]
		if !ok {
			continue
		}

		changes := def.TestRange
		if len(changes) == 0 {
			changes = def.TestValues
		}
		points := scanVariable(ctx, base, v, changes, tbl, cfg.workers)
		result.SingleVariable[v] = points

		if sv := findSwitchingValue(ctx, base, v, baseResult.NPV, tbl); sv != nil {
			result.SwitchingValues[v] = *sv
		}

		cfg.logger.Debug("sensitivity variable evaluated",
			zap.String("variable", string(v)),
			zap.Int("points", len(points)),
			zap.Int("dropped", len(changes)-len(points)),
		)
	}

	if ctx.Err() == nil {
		for _, kind := range []string{ScenarioOptimistic, ScenarioPessimistic, ScenarioWorstCase} {
			result.Scenarios[kind] = runScenario(ctx, base, kind, tbl)
		}
	}

	result.Summary = buildSummary(result.SwitchingValues, result.Scenarios)

	if err := ctx.Err(); err != nil {
		return result, err
	}
	return result, nil
}

// scanVariable evaluates one variable's test points, in parallel when
// workers > 1, preserving test-point order. Failed points are dropped.
func scanVariable(ctx context.Context, base AppraisalInputs, v Variable, changes []float64, tbl *tables.Tables, workers int) []SensitivityPoint {
	slots := make([]*SensitivityPoint, len(changes))

	g, gctx := errgroup.WithContext(ctx)
	if workers < 1 {
		workers = 1
	}
	g.SetLimit(workers)

	for i, change := range changes {
		i, change := i, change
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			perturbed := applyChange(base, v, change, tbl)
			res, err := RunCBA(gctx, perturbed)
			if err != nil {
				return nil // partial tolerance: drop this point
			}
			slots[i] = &SensitivityPoint{
				Change: change,
				NPV:    res.NPV,
				EIRR:   res.EIRR,
				BCR:    res.BCR,
			}
			return nil
		})
	}
	_ = g.Wait()

	points := make([]SensitivityPoint, 0, len(changes))
	for _, p := range slots {
		if p != nil {
			points = append(points, *p)
		}
	}
	return points
}

// applyChange clones the base inputs, discards any cached forecast, and
// perturbs one variable. Change semantics per variable:
//
//	construction_cost   cost ×= (1+x)
//	traffic_volume      base ADT ×= (1+x)
//	traffic_growth      growth += x (absolute)
//	voc_savings         per-class VOC gap ×= (1+x), without-project rate fixed
//	construction_delay  construction years += round(x), phasing re-flattened
//	discount_rate       discount rate = x (direct substitution)
func applyChange(base AppraisalInputs, v Variable, change float64, tbl *tables.Tables) AppraisalInputs {
	in := base.Clone()
	in.Forecast = nil // force recomputation with the perturbed inputs

	switch v {
	case ConstructionCost:
		in.ConstructionCostTotal *= 1 + change

	case TrafficVolume:
		if in.BaseADT != nil {
			*in.BaseADT *= 1 + change
		}

	case TrafficGrowth:
		growth := tbl.DefaultTrafficGrowthRate
		if in.GrowthRate != nil {
			growth = *in.GrowthRate
		}
		g := growth + change
		in.GrowthRate = &g

	case VOCSavings:
		without := orRates(in.VOCWithout, tbl.VOC.Without)
		with := orRates(in.VOCWith, tbl.VOC.With)
		newWithout := make(map[tables.VehicleClass]float64, len(without))
		newWith := make(map[tables.VehicleClass]float64, len(with))
		for _, vc := range tbl.VehicleClasses {
			saving := without[vc] - with[vc]
			newWithout[vc] = without[vc]
			newWith[vc] = without[vc] - saving*(1+change)
		}
		in.VOCWithout = newWithout
		in.VOCWith = newWith

	case ConstructionDelay:
		years := in.ConstructionYears
		if years == 0 {
			years = tbl.DefaultConstructionYears
		}
		years += int(math.Round(change))
		in.ConstructionYears = years
		in.ConstructionPhasing = flattenPhasing(years)

	case DiscountRate:
		in.DiscountRate = change
	}

	return in
}

// flattenPhasing spreads construction cost evenly over the given years.
func flattenPhasing(years int) map[int]float64 {
	phasing := make(map[int]float64, years)
	for i := 1; i <= years; i++ {
		phasing[i] = 1.0 / float64(years)
	}
	return phasing
}

// switchingBracket returns the search interval for a variable's switching
// value. discount_rate has no bracket: it is scanned over fixed test values
// only.
func switchingBracket(v Variable) (lo, hi float64, ok bool) {
	switch v {
	case ConstructionCost, ConstructionDelay:
		return 0, 5, true
	case TrafficVolume, VOCSavings:
		return -0.99, 0, true
	case TrafficGrowth:
		return -0.035, 0, true
	default:
		return 0, 0, false
	}
}

// findSwitchingValue bisects for the perturbation that drives NPV to zero.
// Returns nil when the base case is already non-viable, the variable has no
// bracket, or the bracket endpoints do not straddle a sign change.
func findSwitchingValue(ctx context.Context, base AppraisalInputs, v Variable, baseNPV float64, tbl *tables.Tables) *float64 {
	if baseNPV <= 0 {
		return nil
	}
	lo, hi, ok := switchingBracket(v)
	if !ok {
		return nil
	}

	npvAt := func(change float64) (float64, error) {
		res, err := RunCBA(ctx, applyChange(base, v, change, tbl))
		if err != nil {
			return 0, err
		}
		return res.NPV, nil
	}

	npvLo, err := npvAt(lo)
	if err != nil {
		return nil
	}
	npvHi, err := npvAt(hi)
	if err != nil {
		return nil
	}
	if npvLo*npvHi > 0 {
		return nil
	}

	for i := 0; i < switchingMaxIter; i++ {
		mid := (lo + hi) / 2
		npvMid, err := npvAt(mid)
		if err != nil {
			break
		}
		if math.Abs(npvMid) < switchingTolUSD {
			return &mid
		}
		if npvMid*npvLo < 0 {
			hi = mid
		} else {
			lo = mid
			npvLo = npvMid
		}
	}
	mid := (lo + hi) / 2
	return &mid
}

// runScenario evaluates one named multi-variable scenario on a fresh clone.
func runScenario(ctx context.Context, base AppraisalInputs, kind string, tbl *tables.Tables) ScenarioOutcome {
	in := buildScenario(base, kind, tbl)
	res, err := RunCBA(ctx, in)
	if err != nil {
		return ScenarioOutcome{Err: err.Error()}
	}
	return ScenarioOutcome{
		NPV:    res.NPV,
		EIRR:   res.EIRR,
		BCR:    res.BCR,
		Viable: res.NPV > 0,
	}
}

// buildScenario applies the fixed scenario multipliers to a clone of the
// base inputs. The growth adjustment only applies when the base supplies an
// explicit growth rate; a GDP-derived rate is left derived.
func buildScenario(base AppraisalInputs, kind string, tbl *tables.Tables) AppraisalInputs {
	in := base.Clone()
	in.Forecast = nil

	switch kind {
	case ScenarioOptimistic:
		in.ConstructionCostTotal *= 0.85
		if in.BaseADT != nil {
			*in.BaseADT *= 1.15
		}
		if in.GrowthRate != nil {
			*in.GrowthRate += 0.01
		}

	case ScenarioPessimistic:
		in.ConstructionCostTotal *= 1.20
		if in.BaseADT != nil {
			*in.BaseADT *= 0.85
		}
		if in.GrowthRate != nil {
			*in.GrowthRate -= 0.01
		}

	case ScenarioWorstCase:
		in.ConstructionCostTotal *= 1.30
		if in.BaseADT != nil {
			*in.BaseADT *= 0.70
		}
		if in.GrowthRate != nil {
			*in.GrowthRate -= 0.015
		}
		years := in.ConstructionYears
		if years == 0 {
			years = tbl.DefaultConstructionYears
		}
		years += 2
		in.ConstructionYears = years
		in.ConstructionPhasing = flattenPhasing(years)
	}

	return in
}

func buildSummary(switchingValues map[Variable]float64, scenarios map[string]ScenarioOutcome) SensitivitySummary {
	var mostSensitive Variable
	var mostSensitiveSV *float64
	minAbs := math.Inf(1)
	for v, sv := range switchingValues {
		if math.Abs(sv) < minAbs {
			minAbs = math.Abs(sv)
			mostSensitive = v
			val := sv
			mostSensitiveSV = &val
		}
	}

	allViable := true
	for _, s := range scenarios {
		if s.Err != "" {
			continue
		}
		if !s.Viable {
			allViable = false
		}
	}

	risk := "MODERATE/HIGH RISK: Project becomes non-viable under some scenarios."
	if allViable {
		risk = "LOW RISK: Project is viable under all tested scenarios."
	}

	return SensitivitySummary{
		MostSensitiveVariable:       mostSensitive,
		MostSensitiveSwitchingValue: mostSensitiveSV,
		ViableUnderAllScenarios:     allViable,
		RiskAssessment:              risk,
	}
}
