package display

import (
	"testing"

	"pointsScope/internal/fixedpoint"
)

func value(t *testing.T, s string) fixedpoint.Value {
	t.Helper()
	v, err := fixedpoint.Parse(s, 12)
	if err != nil {
		t.Fatalf("parse %s: %v", s, err)
	}
	return v
}

func TestFormatPointsDistinguishesZeroFromTiny(t *testing.T) {
	zero := fixedpoint.Zero(12)
	tiny := fixedpoint.FromUint64(1, 12)

	if got := FormatPoints(zero, PointsPlaces); got != "0" {
		t.Fatalf("zero = %q", got)
	}
	if got := FormatPoints(tiny, PointsPlaces); got != "<0.01" {
		t.Fatalf("tiny = %q", got)
	}
}

func TestFormatPoints(t *testing.T) {
	cases := map[string]string{
		"0.01":         "0.01",
		"1234567.899":  "1,234,567.89",
		"1000":         "1,000",
		"999.5":        "999.5",
		"12.000000001": "12",
		"100000000.25": "100,000,000.25",
	}
	for in, want := range cases {
		if got := FormatPoints(value(t, in), PointsPlaces); got != want {
			t.Fatalf("FormatPoints(%s) = %q, want %q", in, got, want)
		}
	}
}

func TestFormatLast24h(t *testing.T) {
	cases := map[string]string{
		"0":        "0",
		"0.09":     "0",
		"0.1":      "+ 0.1",
		"4321.987": "+ 4,321.9",
	}
	for in, want := range cases {
		if got := FormatLast24h(value(t, in)); got != want {
			t.Fatalf("FormatLast24h(%s) = %q, want %q", in, got, want)
		}
	}
}

func TestFormatWithSuffix(t *testing.T) {
	cases := map[string]string{
		"0":             "0",
		"999.99":        "999.99",
		"1000":          "1K",
		"15300":         "15.3K",
		"2500000":       "2.5M",
		"7123456789":    "7.12B",
		"3000000000000": "3T",
	}
	for in, want := range cases {
		if got := FormatWithSuffix(value(t, in), 2); got != want {
			t.Fatalf("FormatWithSuffix(%s) = %q, want %q", in, got, want)
		}
	}
}

func TestWithCommas(t *testing.T) {
	cases := map[string]string{
		"1":         "1",
		"123":       "123",
		"1234":      "1,234",
		"123456":    "123,456",
		"1234567.5": "1,234,567.5",
		"-9876543":  "-9,876,543",
	}
	for in, want := range cases {
		if got := WithCommas(in); got != want {
			t.Fatalf("WithCommas(%s) = %q, want %q", in, got, want)
		}
	}
}
