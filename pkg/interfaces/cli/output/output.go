// Package output renders appraisal results for the CLI. All rounding
// happens here, at the output boundary: the engine carries full-precision
// floats and this package formats whole currency units and one-decimal
// percentages.
package output

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/okello/roadcba/pkg/appraisal"
)

// Config holds configuration for output generation.
type Config struct {
	Format    string
	OutputDir string
	Verbose   bool
}

// Generate writes a CBA result (and an optional sensitivity sweep) in the
// configured format.
func Generate(result *appraisal.CBAResult, sweep *appraisal.SensitivityResult, config Config) error {
	switch config.Format {
	case "text":
		return generateTextOutput(result, sweep, config)
	case "json":
		return generateJSONOutput(result, sweep, config)
	default:
		return fmt.Errorf("unsupported output format: %s", config.Format)
	}
}

func generateTextOutput(result *appraisal.CBAResult, sweep *appraisal.SensitivityResult, config Config) error {
	fmt.Printf("Road Investment Appraisal\n")
	fmt.Printf("=========================\n\n")

	fmt.Printf("NPV:              %s USD\n", Money(result.NPV))
	fmt.Printf("EIRR:             %s\n", PercentPtr(result.EIRR))
	fmt.Printf("BCR:              %s\n", RatioString(result.BCR))
	fmt.Printf("FYRR:             %s\n", PercentPtr(result.FYRR))
	fmt.Printf("NPV per km:       %s USD\n", Money(result.NPVPerKM))
	fmt.Printf("Discount rate:    %s\n", Percent(result.DiscountRate))
	fmt.Printf("Economic cost:    %s USD\n", Money(result.EconomicConstructionCost))
	fmt.Printf("PV benefits:      %s USD\n", Money(result.PVBenefits))
	fmt.Printf("PV costs:         %s USD\n", Money(result.PVCosts))
	fmt.Printf("Tables version:   %s\n\n", result.TablesVersion)

	fmt.Printf("Recommendation: %s\n\n", result.Summary.Recommendation)

	fmt.Printf("Yearly Cashflows:\n")
	fmt.Printf("%-6s %-6s %-6s %14s %14s %14s %14s\n",
		"Year", "Cal.", "Phase", "Constr. Cost", "Net Maint.", "Benefits", "Net Benefit")
	for _, cf := range result.YearlyCashflows {
		phase := "op"
		if cf.IsConstruction {
			phase = "con"
		}
		fmt.Printf("%-6d %-6d %-6s %14s %14s %14s %14s\n",
			cf.YearIndex,
			cf.CalendarYear,
			phase,
			Money(cf.Costs.Construction),
			Money(cf.Costs.NetMaintenance),
			Money(cf.Benefits.Total),
			Money(cf.NetBenefit))
	}
	fmt.Println()

	if result.Forecast != nil && len(result.Forecast.CapacityWarnings) > 0 {
		fmt.Printf("Capacity Warnings:\n")
		for _, w := range result.Forecast.CapacityWarnings {
			fmt.Printf("  %d: ADT %s at V/C %.2f (%s)\n", w.Year, Money(w.ADT), w.VCRatio, w.Severity)
		}
		fmt.Println()
	}

	if sweep != nil {
		printSensitivityText(sweep)
	}

	if config.OutputDir != "" {
		return writeJSONFile(result, sweep, config)
	}
	return nil
}

func printSensitivityText(sweep *appraisal.SensitivityResult) {
	fmt.Printf("Sensitivity Analysis\n")
	fmt.Printf("--------------------\n")
	fmt.Printf("Base case: NPV %s, EIRR %s, BCR %s\n\n",
		Money(sweep.BaseCase.NPV), PercentPtr(sweep.BaseCase.EIRR), RatioString(sweep.BaseCase.BCR))

	for _, v := range appraisal.DefaultVariables() {
		points, ok := sweep.SingleVariable[v]
		if !ok {
			continue
		}
		fmt.Printf("%s:\n", v)
		for _, p := range points {
			fmt.Printf("  change %+.3f -> NPV %s, BCR %s\n", p.Change, Money(p.NPV), RatioString(p.BCR))
		}
	}
	fmt.Println()

	if len(sweep.SwitchingValues) > 0 {
		fmt.Printf("Switching values:\n")
		for _, v := range appraisal.DefaultVariables() {
			if sv, ok := sweep.SwitchingValues[v]; ok {
				fmt.Printf("  %-20s %+.4f\n", v, sv)
			}
		}
		fmt.Println()
	}

	fmt.Printf("Scenarios:\n")
	for _, name := range []string{
		appraisal.ScenarioOptimistic,
		appraisal.ScenarioPessimistic,
		appraisal.ScenarioWorstCase,
	} {
		s, ok := sweep.Scenarios[name]
		if !ok {
			continue
		}
		if s.Err != "" {
			fmt.Printf("  %-12s error: %s\n", name, s.Err)
			continue
		}
		viable := "not viable"
		if s.Viable {
			viable = "viable"
		}
		fmt.Printf("  %-12s NPV %s (%s)\n", name, Money(s.NPV), viable)
	}
	fmt.Println()

	fmt.Printf("%s\n", sweep.Summary.RiskAssessment)
	if sweep.Summary.MostSensitiveVariable != "" {
		fmt.Printf("Most sensitive variable: %s\n", sweep.Summary.MostSensitiveVariable)
	}
}

func generateJSONOutput(result *appraisal.CBAResult, sweep *appraisal.SensitivityResult, config Config) error {
	data, err := marshalDocument(result, sweep)
	if err != nil {
		return err
	}
	fmt.Println(string(data))

	if config.OutputDir != "" {
		return writeJSONFile(result, sweep, config)
	}
	return nil
}

func writeJSONFile(result *appraisal.CBAResult, sweep *appraisal.SensitivityResult, config Config) error {
	if err := os.MkdirAll(config.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	data, err := marshalDocument(result, sweep)
	if err != nil {
		return err
	}
	filename := filepath.Join(config.OutputDir, "appraisal_results.json")
	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write results file: %w", err)
	}
	if config.Verbose {
		fmt.Printf("Results saved to: %s\n", filename)
	}
	return nil
}

func marshalDocument(result *appraisal.CBAResult, sweep *appraisal.SensitivityResult) ([]byte, error) {
	var doc any = result
	if sweep != nil {
		doc = struct {
			CBA         *appraisal.CBAResult         `json:"cba"`
			Sensitivity *appraisal.SensitivityResult `json:"sensitivity"`
		}{result, sweep}
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal results: %w", err)
	}
	return data, nil
}
