// Package display turns fixed-point points into strings for tables and logs.
// Values are truncated, never rounded, and never pass through float64.
package display

import (
	"strings"

	"github.com/shopspring/decimal"

	"pointsScope/internal/fixedpoint"
)

const (
	PointsPlaces  = 2
	Last24hPlaces = 1
)

var suffixes = []struct {
	exp    int32
	suffix string
}{
	{12, "T"},
	{9, "B"},
	{6, "M"},
	{3, "K"},
}

// ToDecimal converts a fixed-point value exactly.
func ToDecimal(v fixedpoint.Value) decimal.Decimal {
	return decimal.NewFromBigInt(v.Big(), -int32(v.Decimals()))
}

// FormatPoints renders a points total. Zero is "0"; a nonzero value too small
// for places decimals is "<0.01" (for two places).
func FormatPoints(v fixedpoint.Value, places uint8) string {
	if v.IsZero() {
		return "0"
	}
	if fixedpoint.BelowDisplayThreshold(v, places) {
		threshold := fixedpoint.DisplayThreshold(v.Decimals(), places)
		return "<" + fixedpoint.TrimZeros(threshold.String())
	}
	d := ToDecimal(v).Truncate(int32(places))
	return WithCommas(fixedpoint.TrimZeros(d.StringFixed(int32(places))))
}

// FormatLast24h renders a 24h delta as "+ 1,234.5". Values under 0.1 show as "0".
func FormatLast24h(v fixedpoint.Value) string {
	if v.IsZero() || fixedpoint.BelowDisplayThreshold(v, Last24hPlaces) {
		return "0"
	}
	d := ToDecimal(v).Truncate(Last24hPlaces)
	return "+ " + WithCommas(d.StringFixed(Last24hPlaces))
}

// FormatWithSuffix abbreviates large values with K, M, B or T.
func FormatWithSuffix(v fixedpoint.Value, places uint8) string {
	if v.IsZero() {
		return "0"
	}
	d := ToDecimal(v)
	for _, s := range suffixes {
		unit := decimal.New(1, s.exp)
		if d.GreaterThanOrEqual(unit) {
			scaled := decimal.NewFromBigInt(v.Big(), -int32(v.Decimals())-s.exp).Truncate(int32(places))
			return fixedpoint.TrimZeros(scaled.StringFixed(int32(places))) + s.suffix
		}
	}
	return FormatPoints(v, places)
}

// WithCommas groups the integer part of a plain decimal string in thousands.
func WithCommas(s string) string {
	intPart, frac, hasFrac := strings.Cut(s, ".")
	sign := ""
	if strings.HasPrefix(intPart, "-") {
		sign, intPart = "-", intPart[1:]
	}
	if len(intPart) > 3 {
		var b strings.Builder
		head := len(intPart) % 3
		if head > 0 {
			b.WriteString(intPart[:head])
		}
		for i := head; i < len(intPart); i += 3 {
			if b.Len() > 0 {
				b.WriteByte(',')
			}
			b.WriteString(intPart[i : i+3])
		}
		intPart = b.String()
	}
	if hasFrac {
		return sign + intPart + "." + frac
	}
	return sign + intPart
}
