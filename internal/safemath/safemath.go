// Package safemath provides checked uint64 arithmetic for stake accounting.
// Every operation fails with an explicit error instead of wrapping.
package safemath

import (
	"errors"
	"math/bits"
)

var (
	// ErrOverflow is returned when a result would exceed uint64 range.
	ErrOverflow = errors.New("safemath: overflow")

	// ErrUnderflow is returned when a subtraction would go below zero.
	ErrUnderflow = errors.New("safemath: underflow")

	// ErrDivByZero is returned on division by zero.
	ErrDivByZero = errors.New("safemath: division by zero")
)

// Add returns a + b, failing with ErrOverflow instead of wrapping.
func Add(a, b uint64) (uint64, error) {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return 0, ErrOverflow
	}
	return sum, nil
}

// Sub returns a - b, failing with ErrUnderflow if b > a.
func Sub(a, b uint64) (uint64, error) {
	if b > a {
		return 0, ErrUnderflow
	}
	return a - b, nil
}

// Mul returns a * b. Overflow is detected by verifying the inverse
// division reconstructs the operand.
func Mul(a, b uint64) (uint64, error) {
	if a == 0 || b == 0 {
		return 0, nil
	}
	prod := a * b
	if prod/a != b {
		return 0, ErrOverflow
	}
	return prod, nil
}

// MulDiv returns floor(a * b / den) with a full 128-bit intermediate, so
// proportional pool math never overflows spuriously. Fails with ErrOverflow
// only when the quotient itself does not fit in 64 bits.
func MulDiv(a, b, den uint64) (uint64, error) {
	if den == 0 {
		return 0, ErrDivByZero
	}
	hi, lo := bits.Mul64(a, b)
	if hi >= den {
		return 0, ErrOverflow
	}
	q, _ := bits.Div64(hi, lo, den)
	return q, nil
}
