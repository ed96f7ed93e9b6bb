package appraisal

import (
	"math"
	"testing"

	"github.com/okello/roadcba/pkg/tables"
)

func TestComputeK_Adjustments(t *testing.T) {
	tbl := tables.Default()

	t.Run("traffic factor normalized at 1000 ADT", func(t *testing.T) {
		k := ComputeK("paved_fair", 1000, "", "", tbl)
		if !almostEqual(k, 0.06, 1e-12) {
			t.Errorf("k %f, want the base 0.06", k)
		}
	})

	t.Run("traffic factor saturates", func(t *testing.T) {
		at5000 := ComputeK("paved_fair", 5000, "", "", tbl)
		at50000 := ComputeK("paved_fair", 50000, "", "", tbl)
		if at5000 != at50000 {
			t.Errorf("traffic factor should saturate at 5000 ADT: %f vs %f", at5000, at50000)
		}
		if !almostEqual(at5000, 0.06*1.8, 1e-12) {
			t.Errorf("saturated k %f, want %f", at5000, 0.06*1.8)
		}
	})

	t.Run("rainfall and quality multipliers", func(t *testing.T) {
		base := ComputeK("gravel", 1000, "", "", tbl)
		if got := ComputeK("gravel", 1000, "high", "", tbl); !almostEqual(got, base*1.20, 1e-12) {
			t.Errorf("high rainfall k %f, want %f", got, base*1.20)
		}
		if got := ComputeK("gravel", 1000, "low", "", tbl); !almostEqual(got, base*0.85, 1e-12) {
			t.Errorf("low rainfall k %f, want %f", got, base*0.85)
		}
		if got := ComputeK("gravel", 1000, "", "poor", tbl); !almostEqual(got, base*1.25, 1e-12) {
			t.Errorf("poor quality k %f, want %f", got, base*1.25)
		}
		if got := ComputeK("gravel", 1000, "", "good", tbl); !almostEqual(got, base*0.80, 1e-12) {
			t.Errorf("good quality k %f, want %f", got, base*0.80)
		}
	})

	t.Run("unknown surface falls back", func(t *testing.T) {
		if k := ComputeK("cobblestone", 1000, "", "", tbl); !almostEqual(k, 0.06, 1e-12) {
			t.Errorf("fallback k %f, want 0.06", k)
		}
	})
}

func TestPredictDeterioration_WithoutProjectGrowth(t *testing.T) {
	in := DeteriorationInputs{
		SurfaceType:       "gravel",
		BaseIRI:           12,
		ADT:               1000,
		ConstructionYears: 3,
		AnalysisPeriod:    20,
	}
	res := PredictDeterioration(in, nil)

	if got := len(res.Yearly); got != 24 {
		t.Fatalf("expected 24 projection rows (years 0..23), got %d", got)
	}
	if res.Yearly[0].WithoutProject != 12 {
		t.Errorf("year 0 without-project IRI %f, want the base 12", res.Yearly[0].WithoutProject)
	}

	// Exponential until the cap, then flat at the cap.
	for _, y := range res.Yearly {
		want := math.Min(12*math.Exp(res.K*float64(y.YearIndex)), res.Cap)
		if !almostEqual(y.WithoutProject, want, 1e-9) {
			t.Errorf("year %d without-project IRI %f, want %f", y.YearIndex, y.WithoutProject, want)
		}
		if y.WithoutProject > res.Cap {
			t.Errorf("year %d exceeds the cap: %f > %f", y.YearIndex, y.WithoutProject, res.Cap)
		}
	}

	// 12 * e^(0.1t) reaches the gravel cap of 24 within the horizon.
	if res.Summary.CapReachedYear == nil {
		t.Error("expected the do-nothing road to hit its cap")
	}
}

func TestPredictDeterioration_ConstructionTransition(t *testing.T) {
	in := DeteriorationInputs{
		SurfaceType:       "gravel",
		BaseIRI:           12,
		ADT:               1000,
		ConstructionYears: 3,
		AnalysisPeriod:    10,
	}
	res := PredictDeterioration(in, nil)

	// Linear descent from 12 to the post-construction 6.0 over 3 years.
	wants := []float64{12, 10, 8, 6}
	for i, want := range wants {
		if !almostEqual(res.Yearly[i].WithProject, want, 1e-9) {
			t.Errorf("year %d with-project IRI %f, want %f", i, res.Yearly[i].WithProject, want)
		}
	}
}

func TestPredictDeterioration_MaintenanceResets(t *testing.T) {
	in := DeteriorationInputs{
		SurfaceType:               "paved_good",
		BaseIRI:                   8,
		ADT:                       2000,
		ConstructionYears:         2,
		AnalysisPeriod:            12,
		MaintenanceFrequencyYears: 5,
	}
	res := PredictDeterioration(in, nil)

	// Resets fall 5 and 10 operational years after opening (year indices 7, 12).
	wantEvents := []int{7, 12}
	if len(res.Summary.MaintenanceEvents) != len(wantEvents) {
		t.Fatalf("maintenance events %v, want %v", res.Summary.MaintenanceEvents, wantEvents)
	}
	for i, want := range wantEvents {
		if res.Summary.MaintenanceEvents[i] != want {
			t.Errorf("event %d at year %d, want %d", i, res.Summary.MaintenanceEvents[i], want)
		}
	}

	resetIRI := 3.5 // paved_good reset level
	for _, eventYear := range res.Summary.MaintenanceEvents {
		if got := res.Yearly[eventYear].WithProject; !almostEqual(got, resetIRI, 1e-9) {
			t.Errorf("year %d IRI %f, want reset to %f", eventYear, got, resetIRI)
		}
	}

	// Between resets the with-project curve grows exponentially.
	if y6, y5 := res.Yearly[6].WithProject, res.Yearly[5].WithProject; !almostEqual(y6, y5*math.Exp(res.WithK), 1e-9) {
		t.Errorf("year 6 IRI %f, want %f", y6, y5*math.Exp(res.WithK))
	}
}

func TestPredictDeterioration_WithProjectStaysSmoother(t *testing.T) {
	in := DeteriorationInputs{
		SurfaceType:       "paved_poor",
		BaseIRI:           8,
		ADT:               3000,
		ConstructionYears: 3,
		AnalysisPeriod:    20,
	}
	res := PredictDeterioration(in, nil)

	for _, y := range res.Yearly {
		if y.YearIndex <= in.ConstructionYears {
			continue
		}
		if y.WithProject >= y.WithoutProject {
			t.Errorf("year %d: improved road rougher than do-nothing (%f >= %f)",
				y.YearIndex, y.WithProject, y.WithoutProject)
		}
	}
	if res.Summary.FinalWithIRI >= res.Summary.FinalWithoutIRI {
		t.Errorf("final with-project IRI %f should be below without-project %f",
			res.Summary.FinalWithIRI, res.Summary.FinalWithoutIRI)
	}
}

func TestPredictDeterioration_DefaultsFromTables(t *testing.T) {
	res := PredictDeterioration(DeteriorationInputs{
		SurfaceType: "paved_fair",
		BaseIRI:     5,
		ADT:         1000,
	}, nil)

	// 3 construction + 20 operational years, inclusive of year 0.
	if got := len(res.Yearly); got != 24 {
		t.Errorf("expected 24 rows from the table defaults, got %d", got)
	}
	if res.Yearly[0].CalendarYear != 2026 {
		t.Errorf("base calendar year %d, want 2026", res.Yearly[0].CalendarYear)
	}
}
