// =====================================
// File: internal/fixedmath/fixedmath.go
// =====================================

// Package fixedmath implements checked unsigned arithmetic for reserve and
// fee quantities. Every 64-bit operation reports overflow, underflow or a
// zero divisor instead of wrapping, and products of two 64-bit values are
// formed in a 128-bit domain before any narrowing check is applied.
package fixedmath

import (
	"errors"
	"math/bits"
)

var (
	// ErrMathOverflow is returned when a result does not fit its target width.
	ErrMathOverflow = errors.New("math overflow")
	// ErrMathUnderflow is returned when a subtraction would go below zero.
	ErrMathUnderflow = errors.New("math underflow")
	// ErrMathDivisionByZero is returned when a divisor is zero.
	ErrMathDivisionByZero = errors.New("math division by zero")
)

// Add64 returns a+b.
func Add64(a, b uint64) (uint64, error) {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return 0, ErrMathOverflow
	}
	return sum, nil
}

// Sub64 returns a-b.
func Sub64(a, b uint64) (uint64, error) {
	diff, borrow := bits.Sub64(a, b, 0)
	if borrow != 0 {
		return 0, ErrMathUnderflow
	}
	return diff, nil
}

// Mul64 returns a*b.
func Mul64(a, b uint64) (uint64, error) {
	hi, lo := bits.Mul64(a, b)
	if hi != 0 {
		return 0, ErrMathOverflow
	}
	return lo, nil
}

// Div64 returns floor(a/b).
func Div64(a, b uint64) (uint64, error) {
	if b == 0 {
		return 0, ErrMathDivisionByZero
	}
	return a / b, nil
}
