package output

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okello/roadcba/pkg/appraisal"
)

func sampleInputs() appraisal.AppraisalInputs {
	adt := 3000.0
	growth := 0.035
	return appraisal.AppraisalInputs{
		RoadLengthKM:          10,
		ConstructionCostTotal: 5_000_000,
		ConstructionYears:     3,
		DiscountRate:          0.12,
		BaseADT:               &adt,
		GrowthRate:            &growth,
	}
}

func sampleResult(t *testing.T) *appraisal.CBAResult {
	t.Helper()
	res, err := appraisal.RunCBA(context.Background(), sampleInputs())
	require.NoError(t, err)
	return res
}

func TestGenerate_WritesJSONFile(t *testing.T) {
	dir := t.TempDir()

	require.NoError(t, Generate(sampleResult(t), nil, Config{Format: "json", OutputDir: dir}))

	data, err := os.ReadFile(filepath.Join(dir, "appraisal_results.json"))
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Contains(t, decoded, "npv")
	assert.Contains(t, decoded, "yearly_cashflows")
	assert.Equal(t, "2024.1", decoded["tables_version"])
}

func TestGenerate_WrapsSweepInDocument(t *testing.T) {
	dir := t.TempDir()
	result := sampleResult(t)

	sweep, err := appraisal.RunSensitivity(context.Background(), sampleInputs(),
		[]appraisal.Variable{appraisal.DiscountRate})
	require.NoError(t, err)

	require.NoError(t, Generate(result, sweep, Config{Format: "json", OutputDir: dir}))

	data, err := os.ReadFile(filepath.Join(dir, "appraisal_results.json"))
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Contains(t, decoded, "cba")
	assert.Contains(t, decoded, "sensitivity")
}

func TestGenerate_TextWithOutputDirAlsoWritesJSON(t *testing.T) {
	dir := t.TempDir()

	require.NoError(t, Generate(sampleResult(t), nil, Config{Format: "text", OutputDir: dir}))

	_, err := os.Stat(filepath.Join(dir, "appraisal_results.json"))
	assert.NoError(t, err)
}
