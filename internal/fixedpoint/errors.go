package fixedpoint

import (
	"errors"
	"fmt"
)

// ErrDivisionByZero is returned by MulDiv when the divisor is zero.
var ErrDivisionByZero = errors.New("fixed-point division by zero")

// ParseError reports malformed numeric input. It is never coerced to zero.
type ParseError struct {
	Input  string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse fixed-point %q: %s", e.Input, e.Reason)
}

// OverflowError reports a result outside the unsigned 256-bit range.
type OverflowError struct {
	Op string
}

func (e *OverflowError) Error() string {
	return fmt.Sprintf("fixed-point overflow in %s", e.Op)
}

// ExponentMismatchError reports arithmetic between values of different scale.
type ExponentMismatchError struct {
	Left  uint8
	Right uint8
}

func (e *ExponentMismatchError) Error() string {
	return fmt.Sprintf("fixed-point exponent mismatch: %d != %d", e.Left, e.Right)
}
