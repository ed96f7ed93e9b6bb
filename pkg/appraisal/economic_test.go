package appraisal

import (
	"testing"

	"github.com/okello/roadcba/pkg/tables"
)

func TestFinancialToEconomic_DefaultConversion(t *testing.T) {
	conv := tables.Default().Conversion

	// SCF = 1/1.075; factor = (0.40+0.20)*SCF + 0.15*1.00 + 0.15*0.70.
	scf := 1.0 / 1.075
	wantFactor := 0.60*scf + 0.15 + 0.105

	got := FinancialToEconomic(1_000_000, conv)
	if !almostEqual(got, 1_000_000*wantFactor, 1e-6) {
		t.Errorf("economic cost %f, want %f", got, 1_000_000*wantFactor)
	}

	// Excluding the tax share means the economic cost is below financial.
	if got >= 1_000_000 {
		t.Errorf("economic cost %f should be below the financial cost", got)
	}
}

func TestFinancialToEconomic_ZeroPremium(t *testing.T) {
	conv := tables.Default().Conversion
	conv.ForeignExchangePremium = 0

	got := FinancialToEconomic(1000, conv)
	want := 1000 * (0.40 + 0.20 + 0.15*1.00 + 0.15*0.70)
	if !almostEqual(got, want, 1e-9) {
		t.Errorf("economic cost %f, want %f", got, want)
	}
}

func TestFinancialToEconomic_ZeroCost(t *testing.T) {
	if got := FinancialToEconomic(0, tables.Default().Conversion); got != 0 {
		t.Errorf("expected 0, got %f", got)
	}
}

func TestSCF(t *testing.T) {
	conv := tables.EconomicConversion{ForeignExchangePremium: 0.075}
	if !almostEqual(conv.SCF(), 1.0/1.075, 1e-12) {
		t.Errorf("SCF %f, want %f", conv.SCF(), 1.0/1.075)
	}
}
