package types

import (
	"fmt"
	"strconv"
)

// Points is an integer quantity of prepaid analysis credits.
// All arithmetic is integer-only — no fractional points exist anywhere
// in the system. Balances are stored and mutated as Points, and every
// debit or refund moves a whole number of them.
type Points int64

// ZeroPoints is the zero Points value.
const ZeroPoints Points = 0

// PointsOf converts a raw int64 into Points.
func PointsOf(n int64) Points { return Points(n) }

// Int64 returns the raw integer value.
func (p Points) Int64() int64 { return int64(p) }

// Arithmetic operations

// Add returns p + other.
func (p Points) Add(other Points) Points { return p + other }

// Subtract returns p - other.
func (p Points) Subtract(other Points) Points { return p - other }

// Multiply returns p scaled by qty.
func (p Points) Multiply(qty int64) Points { return p * Points(qty) }

// Negate returns -p.
func (p Points) Negate() Points { return -p }

// Abs returns the absolute value.
func (p Points) Abs() Points {
	if p < 0 {
		return -p
	}
	return p
}

// Comparison methods

// IsZero returns true if the value is zero.
func (p Points) IsZero() bool { return p == 0 }

// IsPositive returns true if the value is greater than zero.
func (p Points) IsPositive() bool { return p > 0 }

// IsNegative returns true if the value is less than zero.
func (p Points) IsNegative() bool { return p < 0 }

// LessThan returns true if p < other.
func (p Points) LessThan(other Points) bool { return p < other }

// GreaterThan returns true if p > other.
func (p Points) GreaterThan(other Points) bool { return p > other }

// Min returns the smaller of two Points values.
func (p Points) Min(other Points) Points {
	if p < other {
		return p
	}
	return other
}

// Max returns the larger of two Points values.
func (p Points) Max(other Points) Points {
	if p > other {
		return p
	}
	return other
}

// String returns a human-readable representation, e.g. "250 pts".
func (p Points) String() string {
	return fmt.Sprintf("%d pts", int64(p))
}

// MarshalText implements encoding.TextMarshaler.
func (p Points) MarshalText() ([]byte, error) {
	return []byte(strconv.FormatInt(int64(p), 10)), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Points) UnmarshalText(data []byte) error {
	n, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return fmt.Errorf("points: parse %q: %w", string(data), err)
	}
	*p = Points(n)
	return nil
}
