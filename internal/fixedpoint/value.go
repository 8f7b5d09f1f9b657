package fixedpoint

import (
	"math/big"
	"strings"

	"github.com/holiman/uint256"
)

// MaxDecimals is the largest exponent whose power of ten fits in 256 bits.
const MaxDecimals = 77

var pow10 [MaxDecimals + 1]uint256.Int

func init() {
	pow10[0].SetOne()
	ten := uint256.NewInt(10)
	for i := 1; i <= MaxDecimals; i++ {
		pow10[i].Mul(&pow10[i-1], ten)
	}
}

// Pow10 returns 10^n as a fresh integer.
func Pow10(n uint8) (*uint256.Int, error) {
	if n > MaxDecimals {
		return nil, &OverflowError{Op: "pow10"}
	}
	return new(uint256.Int).Set(&pow10[n]), nil
}

// Value is an unsigned integer with an implied decimal exponent.
// The zero Value is 0 at exponent 0. Values are immutable.
type Value struct {
	raw      uint256.Int
	decimals uint8
}

// Zero returns 0 at the given exponent.
func Zero(decimals uint8) Value {
	return Value{decimals: decimals}
}

// New wraps a raw integer. A nil raw is treated as zero.
func New(raw *uint256.Int, decimals uint8) Value {
	v := Value{decimals: decimals}
	if raw != nil {
		v.raw.Set(raw)
	}
	return v
}

// FromUint64 wraps a raw uint64.
func FromUint64(raw uint64, decimals uint8) Value {
	v := Value{decimals: decimals}
	v.raw.SetUint64(raw)
	return v
}

// FromBig converts a raw big integer. Negative inputs fail with ParseError.
func FromBig(b *big.Int, decimals uint8) (Value, error) {
	if b == nil {
		return Zero(decimals), nil
	}
	if b.Sign() < 0 {
		return Value{}, &ParseError{Input: b.String(), Reason: "negative value"}
	}
	raw, overflow := uint256.FromBig(b)
	if overflow {
		return Value{}, &OverflowError{Op: "from big"}
	}
	return New(raw, decimals), nil
}

// ParseRaw parses a base-10 raw integer string such as "1500000".
func ParseRaw(s string, decimals uint8) (Value, error) {
	input := strings.TrimSpace(s)
	if err := checkDecimals(input, decimals); err != nil {
		return Value{}, err
	}
	if input == "" {
		return Value{}, &ParseError{Input: s, Reason: "empty input"}
	}
	if input[0] == '-' {
		return Value{}, &ParseError{Input: s, Reason: "negative value"}
	}
	if !isDigits(input) {
		return Value{}, &ParseError{Input: s, Reason: "not a base-10 integer"}
	}
	b, ok := new(big.Int).SetString(input, 10)
	if !ok {
		return Value{}, &ParseError{Input: s, Reason: "not a base-10 integer"}
	}
	return FromBig(b, decimals)
}

// ParseHex parses a raw hex integer with or without a 0x prefix.
// Leading zeros are accepted; the rewards ledger pads its hex output.
func ParseHex(s string, decimals uint8) (Value, error) {
	input := strings.TrimSpace(s)
	if err := checkDecimals(input, decimals); err != nil {
		return Value{}, err
	}
	input = strings.TrimPrefix(strings.TrimPrefix(input, "0x"), "0X")
	if input == "" {
		return Value{}, &ParseError{Input: s, Reason: "empty hex input"}
	}
	b, ok := new(big.Int).SetString(input, 16)
	if !ok || strings.ContainsAny(input, "+-_") {
		return Value{}, &ParseError{Input: s, Reason: "not a hex integer"}
	}
	return FromBig(b, decimals)
}

// Parse parses a human decimal string ("12.5") into a value scaled by decimals.
// More fractional digits than the exponent allows is an error unless they are zeros.
func Parse(s string, decimals uint8) (Value, error) {
	input := strings.TrimSpace(s)
	if err := checkDecimals(input, decimals); err != nil {
		return Value{}, err
	}
	if input == "" {
		return Value{}, &ParseError{Input: s, Reason: "empty input"}
	}
	if input[0] == '-' {
		return Value{}, &ParseError{Input: s, Reason: "negative value"}
	}

	intPart, fracPart, hasDot := strings.Cut(input, ".")
	if hasDot && strings.Contains(fracPart, ".") {
		return Value{}, &ParseError{Input: s, Reason: "multiple decimal points"}
	}
	if intPart == "" && fracPart == "" {
		return Value{}, &ParseError{Input: s, Reason: "no digits"}
	}
	if (intPart != "" && !isDigits(intPart)) || (fracPart != "" && !isDigits(fracPart)) {
		return Value{}, &ParseError{Input: s, Reason: "not a decimal number"}
	}

	if len(fracPart) > int(decimals) {
		excess := fracPart[decimals:]
		if strings.Trim(excess, "0") != "" {
			return Value{}, &ParseError{Input: s, Reason: "more fractional digits than exponent"}
		}
		fracPart = fracPart[:decimals]
	}
	fracPart += strings.Repeat("0", int(decimals)-len(fracPart))

	digits := strings.TrimLeft(intPart+fracPart, "0")
	if digits == "" {
		return Zero(decimals), nil
	}
	b, ok := new(big.Int).SetString(digits, 10)
	if !ok {
		return Value{}, &ParseError{Input: s, Reason: "not a decimal number"}
	}
	return FromBig(b, decimals)
}

// Raw returns a copy of the raw integer.
func (v Value) Raw() *uint256.Int {
	return new(uint256.Int).Set(&v.raw)
}

// Big returns the raw integer as a big.Int.
func (v Value) Big() *big.Int {
	return v.raw.ToBig()
}

// Decimals returns the implied exponent.
func (v Value) Decimals() uint8 {
	return v.decimals
}

func (v Value) IsZero() bool {
	return v.raw.IsZero()
}

// Cmp compares two values of the same exponent.
func (v Value) Cmp(o Value) (int, error) {
	if v.decimals != o.decimals {
		return 0, &ExponentMismatchError{Left: v.decimals, Right: o.decimals}
	}
	return v.raw.Cmp(&o.raw), nil
}

// Add returns v+o.
func (v Value) Add(o Value) (Value, error) {
	if v.decimals != o.decimals {
		return Value{}, &ExponentMismatchError{Left: v.decimals, Right: o.decimals}
	}
	out := Value{decimals: v.decimals}
	if _, overflow := out.raw.AddOverflow(&v.raw, &o.raw); overflow {
		return Value{}, &OverflowError{Op: "add"}
	}
	return out, nil
}

// Sub returns v-o. A negative result is reported as an overflow.
func (v Value) Sub(o Value) (Value, error) {
	if v.decimals != o.decimals {
		return Value{}, &ExponentMismatchError{Left: v.decimals, Right: o.decimals}
	}
	out := Value{decimals: v.decimals}
	if _, underflow := out.raw.SubOverflow(&v.raw, &o.raw); underflow {
		return Value{}, &OverflowError{Op: "sub"}
	}
	return out, nil
}

// MulUint64 returns v*n at the same exponent.
func (v Value) MulUint64(n uint64) (Value, error) {
	out := Value{decimals: v.decimals}
	if _, overflow := out.raw.MulOverflow(&v.raw, uint256.NewInt(n)); overflow {
		return Value{}, &OverflowError{Op: "mul"}
	}
	return out, nil
}

// MulDiv returns floor(v*num/den) with a 512-bit intermediate product.
func (v Value) MulDiv(num, den *uint256.Int) (Value, error) {
	if den == nil || den.IsZero() {
		return Value{}, ErrDivisionByZero
	}
	if num == nil {
		return Zero(v.decimals), nil
	}
	out := Value{decimals: v.decimals}
	if _, overflow := out.raw.MulDivOverflow(&v.raw, num, den); overflow {
		return Value{}, &OverflowError{Op: "muldiv"}
	}
	return out, nil
}

// Rescale converts v to another exponent. Scaling down truncates toward zero.
func (v Value) Rescale(to uint8) (Value, error) {
	raw, err := Rescale(&v.raw, v.decimals, to)
	if err != nil {
		return Value{}, err
	}
	return New(raw, to), nil
}

// Rescale multiplies or divides raw by the power of ten between from and to.
// Scaling up is exact or fails with OverflowError; scaling down truncates.
func Rescale(raw *uint256.Int, from, to uint8) (*uint256.Int, error) {
	if from > MaxDecimals || to > MaxDecimals {
		return nil, &OverflowError{Op: "rescale"}
	}
	out := new(uint256.Int)
	if raw != nil {
		out.Set(raw)
	}
	switch {
	case to > from:
		if _, overflow := out.MulOverflow(out, &pow10[to-from]); overflow {
			return nil, &OverflowError{Op: "rescale"}
		}
	case to < from:
		out.Div(out, &pow10[from-to])
	}
	return out, nil
}

// String renders the value with the decimal point in place, keeping all
// fractional digits. Use TrimZeros for display.
func (v Value) String() string {
	digits := v.raw.ToBig().String()
	if v.decimals == 0 {
		return digits
	}
	width := int(v.decimals) + 1
	if len(digits) < width {
		digits = strings.Repeat("0", width-len(digits)) + digits
	}
	cut := len(digits) - int(v.decimals)
	return digits[:cut] + "." + digits[cut:]
}

// MarshalText renders the decimal string.
func (v Value) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// TrimZeros drops trailing fractional zeros and a dangling decimal point.
// Display only: never parse the result back for arithmetic at a fixed scale.
func TrimZeros(s string) string {
	if !strings.Contains(s, ".") {
		return s
	}
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}

// DisplayThreshold returns the smallest value shown with places decimals.
func DisplayThreshold(decimals, places uint8) Value {
	if places >= decimals {
		return FromUint64(1, decimals)
	}
	shift := decimals - places
	if shift > MaxDecimals {
		shift = MaxDecimals
	}
	return New(&pow10[shift], decimals)
}

// BelowDisplayThreshold reports whether v is nonzero but rounds to zero at
// the given number of display places. Callers show "<0.01" instead of "0".
func BelowDisplayThreshold(v Value, places uint8) bool {
	if v.IsZero() {
		return false
	}
	threshold := DisplayThreshold(v.decimals, places)
	return v.raw.Lt(&threshold.raw)
}

func checkDecimals(input string, decimals uint8) error {
	if decimals > MaxDecimals {
		return &ParseError{Input: input, Reason: "exponent exceeds 77"}
	}
	return nil
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
