package appraisal

import "math"

func floatPtr(v float64) *float64 { return &v }

// referenceInputs returns the package's reference project: a 10 km road,
// $5M construction cost over 3 years, 3,000 ADT growing at 3.5%, appraised
// at a 12% discount rate over 20 operational years.
func referenceInputs() AppraisalInputs {
	return AppraisalInputs{
		RoadLengthKM:          10,
		ConstructionCostTotal: 5_000_000,
		ConstructionYears:     3,
		DiscountRate:          0.12,
		BaseADT:               floatPtr(3000),
		GrowthRate:            floatPtr(0.035),
	}
}

func almostEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}
