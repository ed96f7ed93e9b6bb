package appraisal

import "github.com/okello/roadcba/pkg/tables"

// FinancialToEconomic converts a financial cost into an economic
// (shadow-priced) cost. Material shares are converted at the standard
// conversion factor, unskilled labour at the shadow wage, skilled labour at
// its market factor. The tax share is excluded: taxes are transfer payments,
// not real resource costs.
func FinancialToEconomic(financialCost float64, conv tables.EconomicConversion) float64 {
	scf := conv.SCF()
	imported := financialCost * conv.ImportedMaterialsShare * scf
	local := financialCost * conv.LocalMaterialsShare * scf
	skilled := financialCost * conv.SkilledLabourShare * conv.SkilledLabourFactor
	unskilled := financialCost * conv.UnskilledLabourShare * conv.ShadowWageUnskilled
	return imported + local + skilled + unskilled
}
