package appraisal

import (
	"context"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/okello/roadcba/pkg/tables"
)

func TestRunSensitivity_FullSweep(t *testing.T) {
	res, err := RunSensitivity(context.Background(), referenceInputs(), nil)
	if err != nil {
		t.Fatalf("RunSensitivity failed: %v", err)
	}

	base, err := RunCBA(context.Background(), referenceInputs())
	if err != nil {
		t.Fatalf("RunCBA failed: %v", err)
	}
	if res.BaseCase.NPV != base.NPV {
		t.Errorf("base case NPV %f, want %f", res.BaseCase.NPV, base.NPV)
	}

	tbl := tables.Default()
	for _, v := range DefaultVariables() {
		points, ok := res.SingleVariable[v]
		if !ok {
			t.Errorf("variable %s missing from sweep", v)
			continue
		}
		def := tbl.Sensitivity[string(v)]
		changes := def.TestRange
		if len(changes) == 0 {
			changes = def.TestValues
		}
		if len(points) != len(changes) {
			t.Errorf("%s: %d points, want %d", v, len(points), len(changes))
			continue
		}
		for i, p := range points {
			if p.Change != changes[i] {
				t.Errorf("%s point %d: change %f, want %f (order must match the definition)",
					v, i, p.Change, changes[i])
			}
		}
	}

	for _, kind := range []string{ScenarioOptimistic, ScenarioPessimistic, ScenarioWorstCase} {
		if _, ok := res.Scenarios[kind]; !ok {
			t.Errorf("scenario %s missing", kind)
		}
	}
}

func TestRunSensitivity_ScenarioOrdering(t *testing.T) {
	res, err := RunSensitivity(context.Background(), referenceInputs(), nil)
	if err != nil {
		t.Fatalf("RunSensitivity failed: %v", err)
	}

	opt := res.Scenarios[ScenarioOptimistic]
	pes := res.Scenarios[ScenarioPessimistic]
	worst := res.Scenarios[ScenarioWorstCase]

	if opt.NPV < res.BaseCase.NPV {
		t.Errorf("optimistic NPV %f below base %f", opt.NPV, res.BaseCase.NPV)
	}
	if pes.NPV > res.BaseCase.NPV {
		t.Errorf("pessimistic NPV %f above base %f", pes.NPV, res.BaseCase.NPV)
	}
	if worst.NPV > pes.NPV {
		t.Errorf("worst case NPV %f above pessimistic %f", worst.NPV, pes.NPV)
	}
}

func TestRunSensitivity_SwitchingValues(t *testing.T) {
	base := referenceInputs()
	res, err := RunSensitivity(context.Background(), base, []Variable{ConstructionCost, TrafficVolume})
	if err != nil {
		t.Fatalf("RunSensitivity failed: %v", err)
	}

	tbl := tables.Default()
	for v, sv := range res.SwitchingValues {
		perturbed := applyChange(base, v, sv, tbl)
		check, err := RunCBA(context.Background(), perturbed)
		if err != nil {
			t.Fatalf("RunCBA at switching value failed: %v", err)
		}
		if math.Abs(check.NPV) > 2*switchingTolUSD {
			t.Errorf("%s switching value %f leaves NPV at %f, want ~0", v, sv, check.NPV)
		}
	}

	// Cost overruns erode a positive NPV, so the cost switching value exists
	// and is an increase.
	sv, ok := res.SwitchingValues[ConstructionCost]
	if !ok {
		t.Fatal("expected a construction cost switching value")
	}
	if sv <= 0 {
		t.Errorf("cost switching value %f should be a positive overrun", sv)
	}
}

func TestRunSensitivity_NonViableBaseSkipsSwitchingValues(t *testing.T) {
	in := referenceInputs()
	in.ConstructionCostTotal = 500_000_000 // hopeless project

	res, err := RunSensitivity(context.Background(), in, []Variable{ConstructionCost})
	if err != nil {
		t.Fatalf("RunSensitivity failed: %v", err)
	}
	if res.BaseCase.NPV > 0 {
		t.Fatalf("test setup: base NPV %f should be negative", res.BaseCase.NPV)
	}
	if len(res.SwitchingValues) != 0 {
		t.Errorf("switching values reported for a non-viable base: %v", res.SwitchingValues)
	}
}

func TestRunSensitivity_DiscountRateScannedNotSearched(t *testing.T) {
	res, err := RunSensitivity(context.Background(), referenceInputs(), []Variable{DiscountRate})
	if err != nil {
		t.Fatalf("RunSensitivity failed: %v", err)
	}

	if _, ok := res.SwitchingValues[DiscountRate]; ok {
		t.Error("discount rate should not receive a switching value")
	}

	points := res.SingleVariable[DiscountRate]
	if len(points) == 0 {
		t.Fatal("expected discount rate points")
	}
	// Substituted rates: NPV falls as the rate rises.
	for i := 1; i < len(points); i++ {
		if points[i].NPV >= points[i-1].NPV {
			t.Errorf("NPV at rate %f (%f) should be below NPV at rate %f (%f)",
				points[i].Change, points[i].NPV, points[i-1].Change, points[i-1].NPV)
		}
	}
}

func TestRunSensitivity_BaseInputsNeverMutated(t *testing.T) {
	in := referenceInputs()
	snapshot := in.Clone()

	if _, err := RunSensitivity(context.Background(), in, nil, WithWorkers(4)); err != nil {
		t.Fatalf("RunSensitivity failed: %v", err)
	}
	if diff := cmp.Diff(snapshot, in); diff != "" {
		t.Errorf("base inputs mutated by the sweep:\n%s", diff)
	}
}

func TestRunSensitivity_ParallelMatchesSequential(t *testing.T) {
	seq, err := RunSensitivity(context.Background(), referenceInputs(), nil, WithWorkers(1))
	if err != nil {
		t.Fatalf("sequential sweep failed: %v", err)
	}
	par, err := RunSensitivity(context.Background(), referenceInputs(), nil, WithWorkers(8))
	if err != nil {
		t.Fatalf("parallel sweep failed: %v", err)
	}
	if diff := cmp.Diff(seq, par); diff != "" {
		t.Errorf("worker count changed the sweep output:\n%s", diff)
	}
}

func TestRunSensitivity_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := RunSensitivity(ctx, referenceInputs(), nil); err == nil {
		t.Error("expected an error from a canceled sweep")
	}
}

func TestApplyChange_Semantics(t *testing.T) {
	tbl := tables.Default()
	base := referenceInputs()

	t.Run("construction cost", func(t *testing.T) {
		in := applyChange(base, ConstructionCost, 0.20, tbl)
		if !almostEqual(in.ConstructionCostTotal, 6_000_000, 1e-6) {
			t.Errorf("cost %f, want 6,000,000", in.ConstructionCostTotal)
		}
	})

	t.Run("traffic volume", func(t *testing.T) {
		in := applyChange(base, TrafficVolume, -0.30, tbl)
		if in.BaseADT == nil || !almostEqual(*in.BaseADT, 2100, 1e-9) {
			t.Errorf("base ADT %v, want 2100", in.BaseADT)
		}
	})

	t.Run("growth is an absolute delta", func(t *testing.T) {
		in := applyChange(base, TrafficGrowth, -0.01, tbl)
		if in.GrowthRate == nil || !almostEqual(*in.GrowthRate, 0.025, 1e-12) {
			t.Errorf("growth %v, want 0.025", in.GrowthRate)
		}
	})

	t.Run("voc savings shrink the gap only", func(t *testing.T) {
		in := applyChange(base, VOCSavings, -0.30, tbl)
		for _, vc := range tbl.VehicleClasses {
			if in.VOCWithout[vc] != tbl.VOC.Without[vc] {
				t.Errorf("%s: without-project rate moved from %f to %f",
					vc, tbl.VOC.Without[vc], in.VOCWithout[vc])
			}
			wantSaving := (tbl.VOC.Without[vc] - tbl.VOC.With[vc]) * 0.70
			gotSaving := in.VOCWithout[vc] - in.VOCWith[vc]
			if !almostEqual(gotSaving, wantSaving, 1e-9) {
				t.Errorf("%s: saving %f, want %f", vc, gotSaving, wantSaving)
			}
		}
	})

	t.Run("construction delay re-flattens phasing", func(t *testing.T) {
		in := applyChange(base, ConstructionDelay, 2, tbl)
		if in.ConstructionYears != 5 {
			t.Fatalf("construction years %d, want 5", in.ConstructionYears)
		}
		var sum float64
		for y := 1; y <= 5; y++ {
			if !almostEqual(in.ConstructionPhasing[y], 0.2, 1e-12) {
				t.Errorf("phasing year %d is %f, want 0.2", y, in.ConstructionPhasing[y])
			}
			sum += in.ConstructionPhasing[y]
		}
		if !almostEqual(sum, 1, 1e-9) {
			t.Errorf("phasing sums to %f", sum)
		}
	})

	t.Run("discount rate is substituted", func(t *testing.T) {
		in := applyChange(base, DiscountRate, 0.18, tbl)
		if in.DiscountRate != 0.18 {
			t.Errorf("discount rate %f, want 0.18", in.DiscountRate)
		}
	})

	t.Run("cached forecast is discarded", func(t *testing.T) {
		withForecast := base.Clone()
		withForecast.Forecast = ForecastTraffic(ForecastInputs{BaseADT: 3000}, tbl)
		in := applyChange(withForecast, TrafficVolume, 0.10, tbl)
		if in.Forecast != nil {
			t.Error("perturbed inputs kept the stale forecast")
		}
	})
}

func TestBuildScenario_WorstCase(t *testing.T) {
	tbl := tables.Default()
	in := buildScenario(referenceInputs(), ScenarioWorstCase, tbl)

	if !almostEqual(in.ConstructionCostTotal, 6_500_000, 1e-6) {
		t.Errorf("cost %f, want 6,500,000", in.ConstructionCostTotal)
	}
	if in.BaseADT == nil || !almostEqual(*in.BaseADT, 2100, 1e-9) {
		t.Errorf("base ADT %v, want 2100", in.BaseADT)
	}
	if in.GrowthRate == nil || !almostEqual(*in.GrowthRate, 0.02, 1e-12) {
		t.Errorf("growth %v, want 0.02", in.GrowthRate)
	}
	if in.ConstructionYears != 5 {
		t.Errorf("construction years %d, want 5", in.ConstructionYears)
	}
	if !almostEqual(in.ConstructionPhasing[1], 0.2, 1e-12) {
		t.Errorf("expected re-flattened phasing, got %v", in.ConstructionPhasing)
	}
}

func TestBuildScenario_DerivedGrowthLeftDerived(t *testing.T) {
	in := referenceInputs()
	in.GrowthRate = nil

	out := buildScenario(in, ScenarioPessimistic, tables.Default())
	if out.GrowthRate != nil {
		t.Errorf("GDP-derived growth should stay derived, got %f", *out.GrowthRate)
	}
}

func TestBuildSummary(t *testing.T) {
	switching := map[Variable]float64{
		ConstructionCost: 0.80,
		TrafficVolume:    -0.25,
	}
	scenarios := map[string]ScenarioOutcome{
		ScenarioOptimistic:  {NPV: 100, Viable: true},
		ScenarioPessimistic: {NPV: 10, Viable: true},
		ScenarioWorstCase:   {NPV: -5, Viable: false},
	}

	s := buildSummary(switching, scenarios)
	if s.MostSensitiveVariable != TrafficVolume {
		t.Errorf("most sensitive %s, want %s (smallest absolute switching value)",
			s.MostSensitiveVariable, TrafficVolume)
	}
	if s.ViableUnderAllScenarios {
		t.Error("worst case is non-viable")
	}
	if s.RiskAssessment != "MODERATE/HIGH RISK: Project becomes non-viable under some scenarios." {
		t.Errorf("risk assessment %q", s.RiskAssessment)
	}

	allGood := map[string]ScenarioOutcome{
		ScenarioWorstCase: {NPV: 5, Viable: true},
	}
	s = buildSummary(switching, allGood)
	if !s.ViableUnderAllScenarios {
		t.Error("expected viable under all scenarios")
	}
	if s.RiskAssessment != "LOW RISK: Project is viable under all tested scenarios." {
		t.Errorf("risk assessment %q", s.RiskAssessment)
	}
}
