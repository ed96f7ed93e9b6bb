package output

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/okello/roadcba/pkg/appraisal"
)

// Money formats a currency amount rounded to whole units, with thousands
// separators. Decimal rounding avoids the float drift a naive %.0f can show
// on large sums.
func Money(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "n/a"
	}
	d := decimal.NewFromFloat(v).Round(0)
	return groupDigits(d.StringFixed(0))
}

// Percent formats a fractional rate (0.12 -> "12.0%") to one decimal place.
func Percent(rate float64) string {
	if math.IsNaN(rate) || math.IsInf(rate, 0) {
		return "n/a"
	}
	d := decimal.NewFromFloat(rate * 100).Round(1)
	return d.StringFixed(1) + "%"
}

// PercentPtr formats an optional fractional rate; nil renders as "n/a",
// matching the engine's undefined-metric convention.
func PercentPtr(rate *float64) string {
	if rate == nil {
		return "n/a"
	}
	return Percent(*rate)
}

// RatioString formats a benefit-cost ratio to two decimals, rendering the
// +Inf sentinel as "inf".
func RatioString(r appraisal.Ratio) string {
	if r.IsInf() {
		return "inf"
	}
	return decimal.NewFromFloat(float64(r)).Round(2).StringFixed(2)
}

// groupDigits inserts commas into the integer part of a numeric string.
func groupDigits(s string) string {
	neg := false
	if len(s) > 0 && s[0] == '-' {
		neg = true
		s = s[1:]
	}
	n := len(s)
	if n <= 3 {
		if neg {
			return "-" + s
		}
		return s
	}
	var out []byte
	for i, c := range []byte(s) {
		if i > 0 && (n-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, c)
	}
	if neg {
		return "-" + string(out)
	}
	return string(out)
}
