package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Money is an amount in minor units (cents).
type Money int64

// MaxMoney is the largest magnitude a bill amount may have. It matches the
// NUMERIC(12,2) column it is stored in.
const MaxMoney Money = 999_999_999_999

// MoneyFromFloat rounds f to the nearest cent.
func MoneyFromFloat(f float64) (Money, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) || math.Abs(f) > float64(MaxMoney)/100 {
		return 0, NewValidationError("amount", "is out of range", ErrValidation)
	}
	return Money(math.Round(f * 100)), nil
}

// ParseMoney parses a decimal such as "-12.50" without going through float64.
// At most two fraction digits are accepted.
func ParseMoney(s string) (Money, error) {
	s = strings.TrimSpace(s)
	neg := strings.HasPrefix(s, "-")
	digits := strings.TrimPrefix(s, "-")

	whole, frac, _ := strings.Cut(digits, ".")
	if whole == "" || len(frac) > 2 {
		return 0, fmt.Errorf("%w: amount %q", ErrInvalidFormat, s)
	}
	frac += strings.Repeat("0", 2-len(frac))

	w, err := strconv.ParseUint(whole, 10, 64)
	if err != nil || w > uint64(MaxMoney/100) {
		return 0, fmt.Errorf("%w: amount %q", ErrInvalidFormat, s)
	}
	f, err := strconv.ParseUint(frac, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: amount %q", ErrInvalidFormat, s)
	}

	m := Money(w*100 + f)
	if neg {
		m = -m
	}
	return m, nil
}

// Abs returns the magnitude of m.
func (m Money) Abs() Money {
	if m < 0 {
		return -m
	}
	return m
}

// String formats m with two decimals, e.g. "-12.50".
func (m Money) String() string {
	sign := ""
	if m < 0 {
		sign = "-"
	}
	a := m.Abs()
	return fmt.Sprintf("%s%d.%02d", sign, int64(a/100), int64(a%100))
}

// MarshalJSON writes m as a JSON number with two decimals.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalJSON reads a JSON number with at most two decimals.
func (m *Money) UnmarshalJSON(b []byte) error {
	v, err := ParseMoney(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}
