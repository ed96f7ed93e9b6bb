package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/okello/roadcba/pkg/interfaces/cli/commands"
)

func main() {
	// Command line flags
	var (
		length      = flag.Float64("length", 0, "Road length in km")
		cost        = flag.Float64("cost", 0, "Total financial construction cost (USD)")
		adt         = flag.Float64("adt", 0, "Base-year average daily traffic")
		growth      = flag.Float64("growth", 0, "Annual traffic growth rate (decimal)")
		years       = flag.Int("years", 0, "Construction years (0 = table default)")
		discount    = flag.Float64("discount", 0, "Discount rate (0 = table EOCK)")
		period      = flag.Int("period", 0, "Analysis period in operational years (0 = table default)")
		roadType    = flag.String("road-type", "", "Road type for capacity checks")
		tablesFile  = flag.String("tables", "", "Path to a YAML tables overlay")
		sensitivity = flag.Bool("sensitivity", false, "Run the sensitivity sweep")
		variables   = flag.String("variables", "", "Comma-separated sweep variables (default: all)")
		workers     = flag.Int("workers", 1, "Parallel evaluations within the sweep")
		timeout     = flag.Duration("timeout", 0, "Wall-clock budget for the run (0 = none)")
		format      = flag.String("format", "text", "Output format: text, json")
		outputDir   = flag.String("output", "", "Output directory for a JSON results file (optional)")
		verbose     = flag.Bool("verbose", false, "Enable verbose output")
		help        = flag.Bool("help", false, "Show help message")
	)

	flag.Parse()

	// Create command configuration
	config := commands.Config{
		TablesFile:        *tablesFile,
		RoadLengthKM:      *length,
		ConstructionCost:  *cost,
		BaseADT:           *adt,
		GrowthRate:        *growth,
		ConstructionYears: *years,
		DiscountRate:      *discount,
		AnalysisPeriod:    *period,
		RoadType:          *roadType,
		Sensitivity:       *sensitivity,
		Variables:         *variables,
		Workers:           *workers,
		Timeout:           *timeout,
		Format:            *format,
		OutputDir:         *outputDir,
		Verbose:           *verbose,
		Help:              *help,
	}

	// Create and execute command
	cmd := commands.NewAppraiseCommand(config)
	ctx := context.Background()

	if err := cmd.Execute(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
