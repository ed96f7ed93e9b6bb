// Command example runs a complete appraisal of a representative project:
// upgrading a 10 km gravel road to paved standard at a total cost of $5M,
// with 3,000 vehicles/day growing at 3.5% per year.
package main

import (
	"context"
	"fmt"
	"log"

	"github.com/okello/roadcba/pkg/appraisal"
	"github.com/okello/roadcba/pkg/interfaces/cli/output"
	"github.com/okello/roadcba/pkg/tables"
)

func main() {
	ctx := context.Background()

	baseADT := 3000.0
	growth := 0.035

	inputs := appraisal.AppraisalInputs{
		Tables:                tables.Default(),
		RoadLengthKM:          10,
		ConstructionCostTotal: 5_000_000,
		ConstructionYears:     3,
		DiscountRate:          0.12,
		BaseADT:               &baseADT,
		GrowthRate:            &growth,
	}

	result, err := appraisal.RunCBA(ctx, inputs)
	if err != nil {
		log.Fatalf("appraisal failed: %v", err)
	}

	sweep, err := appraisal.RunSensitivity(ctx, inputs, nil, appraisal.WithWorkers(4))
	if err != nil {
		log.Fatalf("sensitivity analysis failed: %v", err)
	}

	if err := output.Generate(result, sweep, output.Config{Format: "text"}); err != nil {
		log.Fatalf("output failed: %v", err)
	}

	det := appraisal.PredictDeterioration(appraisal.DeteriorationInputs{
		SurfaceType:       "gravel",
		BaseIRI:           12,
		ADT:               baseADT,
		ConstructionYears: 3,
	}, inputs.Tables)

	fmt.Println("Roughness projection (m/km):")
	fmt.Printf("  final do-nothing IRI:   %.1f\n", det.Summary.FinalWithoutIRI)
	fmt.Printf("  final with-project IRI: %.1f\n", det.Summary.FinalWithIRI)
	if det.Summary.CapReachedYear != nil {
		fmt.Printf("  do-nothing road hits its roughness cap in year %d\n", *det.Summary.CapReachedYear)
	}
}
