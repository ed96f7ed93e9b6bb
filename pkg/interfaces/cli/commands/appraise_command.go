// Package commands wires CLI flags to appraisal runs.
package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/okello/roadcba/pkg/appraisal"
	"github.com/okello/roadcba/pkg/interfaces/cli/output"
	"github.com/okello/roadcba/pkg/tables"
)

// Config holds configuration for the appraise command.
type Config struct {
	TablesFile string

	RoadLengthKM      float64
	ConstructionCost  float64
	BaseADT           float64
	GrowthRate        float64
	ConstructionYears int
	DiscountRate      float64
	AnalysisPeriod    int
	RoadType          string

	Sensitivity bool
	Variables   string // comma-separated; empty means all
	Workers     int
	Timeout     time.Duration

	Format    string
	OutputDir string
	Verbose   bool
	Help      bool
}

// AppraiseCommand handles the main appraisal execution logic.
type AppraiseCommand struct {
	config Config
}

// NewAppraiseCommand creates an appraise command with the given configuration.
func NewAppraiseCommand(config Config) *AppraiseCommand {
	return &AppraiseCommand{config: config}
}

// Execute runs the appraisal (and optionally the sensitivity sweep) and
// hands the results to the output layer.
func (c *AppraiseCommand) Execute(ctx context.Context) error {
	if c.config.Help {
		c.showHelp()
		return nil
	}

	if err := c.validateInputs(); err != nil {
		return fmt.Errorf("validation error: %w", err)
	}

	logger, err := c.buildLogger()
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	tbl := tables.Default()
	if c.config.TablesFile != "" {
		tbl, err = tables.Load(c.config.TablesFile)
		if err != nil {
			return fmt.Errorf("error loading tables: %w", err)
		}
		logger.Debug("loaded tables overlay",
			zap.String("path", c.config.TablesFile),
			zap.String("version", tbl.Version))
	}

	inputs := c.buildInputs(tbl)

	if c.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.Timeout)
		defer cancel()
	}

	start := time.Now()
	result, err := appraisal.RunCBA(ctx, inputs)
	if err != nil {
		return fmt.Errorf("appraisal failed: %w", err)
	}
	logger.Debug("appraisal complete",
		zap.Float64("npv", result.NPV),
		zap.Duration("elapsed", time.Since(start)))

	var sweep *appraisal.SensitivityResult
	if c.config.Sensitivity {
		sweep, err = appraisal.RunSensitivity(ctx, inputs, c.parseVariables(),
			appraisal.WithLogger(logger),
			appraisal.WithWorkers(c.config.Workers),
		)
		if err != nil && sweep == nil {
			return fmt.Errorf("sensitivity analysis failed: %w", err)
		}
		if err != nil {
			// Timed out mid-sweep; report the variables that finished.
			logger.Warn("sensitivity sweep returned a partial result", zap.Error(err))
		}
	}

	return output.Generate(result, sweep, output.Config{
		Format:    c.config.Format,
		OutputDir: c.config.OutputDir,
		Verbose:   c.config.Verbose,
	})
}

func (c *AppraiseCommand) buildLogger() (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if c.config.Verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	return cfg.Build()
}

func (c *AppraiseCommand) validateInputs() error {
	if c.config.BaseADT <= 0 {
		return fmt.Errorf("base ADT must be positive (use -adt)")
	}
	if c.config.ConstructionCost <= 0 {
		return fmt.Errorf("construction cost must be positive (use -cost)")
	}
	if c.config.RoadLengthKM <= 0 {
		return fmt.Errorf("road length must be positive (use -length)")
	}
	switch c.config.Format {
	case "text", "json":
	default:
		return fmt.Errorf("unsupported format %q (want text or json)", c.config.Format)
	}
	return nil
}

func (c *AppraiseCommand) buildInputs(tbl *tables.Tables) appraisal.AppraisalInputs {
	inputs := appraisal.AppraisalInputs{
		Tables:                tbl,
		RoadLengthKM:          c.config.RoadLengthKM,
		ConstructionCostTotal: c.config.ConstructionCost,
		ConstructionYears:     c.config.ConstructionYears,
		DiscountRate:          c.config.DiscountRate,
		AnalysisPeriod:        c.config.AnalysisPeriod,
		RoadType:              c.config.RoadType,
	}
	adt := c.config.BaseADT
	inputs.BaseADT = &adt
	if c.config.GrowthRate != 0 {
		g := c.config.GrowthRate
		inputs.GrowthRate = &g
	}
	return inputs
}

func (c *AppraiseCommand) parseVariables() []appraisal.Variable {
	if c.config.Variables == "" {
		return nil
	}
	var vars []appraisal.Variable
	for _, name := range strings.Split(c.config.Variables, ",") {
		name = strings.TrimSpace(name)
		if name != "" {
			vars = append(vars, appraisal.Variable(name))
		}
	}
	return vars
}

func (c *AppraiseCommand) showHelp() {
	fmt.Println(`roadcba - road investment appraisal

Computes a cost-benefit analysis for a road project: traffic forecast,
year-by-year cashflows, NPV/EIRR/BCR/FYRR, and an optional sensitivity
and scenario analysis.

Usage:
  roadcba -length 10 -cost 5000000 -adt 3000 [options]

Required:
  -length    Road length in km
  -cost      Total financial construction cost (USD)
  -adt       Base-year average daily traffic

Options:
  -growth       Annual traffic growth rate (default: derived from GDP)
  -years        Construction years (default: from tables)
  -discount     Discount rate (default: table EOCK)
  -period       Analysis period in operational years (default: from tables)
  -road-type    Road type for capacity checks (default: two_lane_paved)
  -tables       YAML overlay for the reference tables
  -sensitivity  Run the sensitivity sweep
  -variables    Comma-separated sweep variables (default: all)
  -workers      Parallel evaluations within the sweep (default: 1)
  -timeout      Wall-clock budget for the run, e.g. 30s (default: none)
  -format       Output format: text, json (default: text)
  -output       Directory to write a JSON results file
  -verbose      Debug logging`)
}
