package safemath_test

import (
	"errors"
	"math"
	"testing"

	"github.com/pricelock/ledger-engine/internal/safemath"
)

func TestAdd(t *testing.T) {
	tests := []struct {
		name    string
		a, b    uint64
		want    uint64
		wantErr error
	}{
		{"simple", 2, 3, 5, nil},
		{"zero", 0, 0, 0, nil},
		{"at max", math.MaxUint64 - 1, 1, math.MaxUint64, nil},
		{"overflow by one", math.MaxUint64, 1, 0, safemath.ErrOverflow},
		{"overflow large", math.MaxUint64, math.MaxUint64, 0, safemath.ErrOverflow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := safemath.Add(tt.a, tt.b)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Add(%d, %d) err = %v, want %v", tt.a, tt.b, err, tt.wantErr)
			}
			if err == nil && got != tt.want {
				t.Errorf("Add(%d, %d) = %d, want %d", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestSub(t *testing.T) {
	tests := []struct {
		name    string
		a, b    uint64
		want    uint64
		wantErr error
	}{
		{"simple", 5, 3, 2, nil},
		{"to zero", 7, 7, 0, nil},
		{"underflow", 3, 5, 0, safemath.ErrUnderflow},
		{"underflow from zero", 0, 1, 0, safemath.ErrUnderflow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := safemath.Sub(tt.a, tt.b)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Sub(%d, %d) err = %v, want %v", tt.a, tt.b, err, tt.wantErr)
			}
			if err == nil && got != tt.want {
				t.Errorf("Sub(%d, %d) = %d, want %d", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestMul(t *testing.T) {
	tests := []struct {
		name    string
		a, b    uint64
		want    uint64
		wantErr error
	}{
		{"simple", 6, 7, 42, nil},
		{"zero left", 0, math.MaxUint64, 0, nil},
		{"zero right", math.MaxUint64, 0, 0, nil},
		{"one", math.MaxUint64, 1, math.MaxUint64, nil},
		{"overflow", math.MaxUint64, 2, 0, safemath.ErrOverflow},
		{"overflow square", 1 << 32, 1 << 32, 0, safemath.ErrOverflow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := safemath.Mul(tt.a, tt.b)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Mul(%d, %d) err = %v, want %v", tt.a, tt.b, err, tt.wantErr)
			}
			if err == nil && got != tt.want {
				t.Errorf("Mul(%d, %d) = %d, want %d", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestMulDiv(t *testing.T) {
	tests := []struct {
		name      string
		a, b, den uint64
		want      uint64
		wantErr   error
	}{
		{"exact", 10, 6, 3, 20, nil},
		{"floors", 10, 10, 3, 33, nil},
		{"fee basis points", 10_000_000, 500, 10_000, 500_000, nil},
		// Intermediate product exceeds 64 bits but the quotient fits.
		{"wide intermediate", math.MaxUint64 / 2, 4, 8, math.MaxUint64 / 4, nil},
		{"quotient too wide", math.MaxUint64, math.MaxUint64, 1, 0, safemath.ErrOverflow},
		{"div by zero", 1, 1, 0, 0, safemath.ErrDivByZero},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := safemath.MulDiv(tt.a, tt.b, tt.den)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("MulDiv(%d, %d, %d) err = %v, want %v", tt.a, tt.b, tt.den, err, tt.wantErr)
			}
			if err == nil && got != tt.want {
				t.Errorf("MulDiv(%d, %d, %d) = %d, want %d", tt.a, tt.b, tt.den, got, tt.want)
			}
		})
	}
}
