package appraisal

import "math"

// EIRR search brackets. The search starts on [eirrSearchLo, eirrSearchHi]
// and widens to eirrSearchMax when the narrow bracket has no sign change.
const (
	eirrSearchLo  = 0.001
	eirrSearchHi  = 2.0
	eirrSearchMax = 5.0
)

// NPV discounts a cashflow stream (year 0 first) at the given annual rate.
func NPV(cashflows []float64, discountRate float64) float64 {
	npv := 0.0
	factor := 1.0
	for _, cf := range cashflows {
		npv += cf / factor
		factor *= 1 + discountRate
	}
	return npv
}

// CalculateEIRR finds the discount rate that zeroes the NPV of the net
// benefit stream. Returns nil when no sign change exists anywhere in the
// plausible rate range: an undefined EIRR is reported, never guessed. When
// the bracketed search fails despite a sign change, a coarse grid search is
// used as a fallback and accepted only if its residual NPV is within 1% of
// the first cashflow's magnitude.
func CalculateEIRR(cashflows []float64, finder RootFinder) *float64 {
	if len(cashflows) == 0 {
		return nil
	}
	if finder == nil {
		finder = Brent{}
	}

	npvAt := func(r float64) float64 { return NPV(cashflows, r) }

	npvLo := npvAt(eirrSearchLo)
	hi := eirrSearchHi
	if npvLo*npvAt(hi) > 0 {
		if npvLo*npvAt(eirrSearchMax) > 0 {
			return nil
		}
		hi = eirrSearchMax
	}

	root, err := finder.FindRoot(npvAt, eirrSearchLo, hi)
	if err != nil {
		return gridSearchEIRR(cashflows)
	}
	return &root
}

// gridSearchEIRR scans 1%..199% in whole-percent steps and returns the rate
// minimizing |NPV|, if that residual is small relative to the first
// cashflow.
func gridSearchEIRR(cashflows []float64) *float64 {
	var bestRate float64
	bestNPV := math.Inf(1)
	found := false

	for pct := 1; pct < 200; pct++ {
		rate := float64(pct) / 100
		npv := NPV(cashflows, rate)
		if math.Abs(npv) < math.Abs(bestNPV) {
			bestNPV = npv
			bestRate = rate
			found = true
		}
	}

	if found && math.Abs(bestNPV) < math.Abs(cashflows[0])*0.01 {
		return &bestRate
	}
	return nil
}

// Recommendation classifies a result via an ordered rule ladder; the first
// matching rule wins.
func Recommendation(npv float64, eirr *float64, bcr Ratio, discountRate float64) string {
	switch {
	case npv <= 0:
		return "NOT VIABLE: NPV is negative. The project costs exceed its benefits at the given discount rate."
	case eirr != nil && *eirr < discountRate:
		return "MARGINAL: EIRR is below the discount rate. Consider re-scoping or cost reduction."
	case float64(bcr) < 1.0:
		return "NOT VIABLE: BCR is below 1.0."
	case float64(bcr) >= 2.0:
		return "HIGHLY VIABLE: Strong economic returns. Recommend proceeding."
	case float64(bcr) >= 1.5:
		return "VIABLE: Good economic returns. Recommend proceeding subject to sensitivity analysis."
	default:
		return "VIABLE: Positive returns but modest. Proceed with caution and verify key assumptions."
	}
}

// EconomicallyViable reports whether a project clears the viability bar:
// positive NPV and, when the EIRR is defined, an EIRR above the discount
// rate.
func EconomicallyViable(npv float64, eirr *float64, discountRate float64) bool {
	return npv > 0 && (eirr == nil || *eirr > discountRate)
}
