package domain

import (
	"encoding/json"
	"errors"
	"fmt"

	"lukechampine.com/uint128"
)

// Amount is a quantity of the native accounting currency in its smallest unit.
// All arithmetic is checked: results that do not fit in 128 bits, or that would
// go below zero, are errors and are never wrapped.
type Amount struct {
	v uint128.Uint128
}

var (
	ErrAmountOverflow  = errors.New("amount overflow")
	ErrAmountUnderflow = errors.New("amount underflow")
	ErrInvalidAmount   = errors.New("invalid amount")
)

// ZeroAmount is the zero Amount.
var ZeroAmount = Amount{}

// NewAmount returns an Amount holding u.
func NewAmount(u uint64) Amount {
	return Amount{v: uint128.From64(u)}
}

// ParseAmount parses a base-10 unsigned integer. Empty input is zero.
func ParseAmount(s string) (Amount, error) {
	if s == "" {
		return ZeroAmount, nil
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return ZeroAmount, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
		}
	}
	v, err := uint128.FromString(s)
	if err != nil {
		return ZeroAmount, fmt.Errorf("%w: %q: %v", ErrInvalidAmount, s, err)
	}
	return Amount{v: v}, nil
}

// MustAmount parses s and panics on error.
func MustAmount(s string) Amount {
	a, err := ParseAmount(s)
	if err != nil {
		panic(err)
	}
	return a
}

// Add returns a+b.
func (a Amount) Add(b Amount) (Amount, error) {
	sum := a.v.AddWrap(b.v)
	if sum.Cmp(a.v) < 0 {
		return ZeroAmount, ErrAmountOverflow
	}
	return Amount{v: sum}, nil
}

// Sub returns a-b.
func (a Amount) Sub(b Amount) (Amount, error) {
	if a.v.Cmp(b.v) < 0 {
		return ZeroAmount, ErrAmountUnderflow
	}
	return Amount{v: a.v.SubWrap(b.v)}, nil
}

// MulBytes returns a*n, the cost of n bytes when a is the per-byte rate.
func (a Amount) MulBytes(n uint64) (Amount, error) {
	if n == 0 || a.v.IsZero() {
		return ZeroAmount, nil
	}
	product := a.v.MulWrap64(n)
	if !product.Div64(n).Equals(a.v) {
		return ZeroAmount, ErrAmountOverflow
	}
	return Amount{v: product}, nil
}

// Cmp compares a and b and returns -1, 0 or +1.
func (a Amount) Cmp(b Amount) int {
	return a.v.Cmp(b.v)
}

// IsZero reports whether a is zero.
func (a Amount) IsZero() bool {
	return a.v.IsZero()
}

func (a Amount) String() string {
	return a.v.String()
}

// MarshalJSON encodes the amount as a decimal string; 128-bit values do not
// survive a round trip through JSON numbers.
func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

// UnmarshalJSON accepts a decimal string.
func (a *Amount) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("%w: amounts are decimal strings", ErrInvalidAmount)
	}
	parsed, err := ParseAmount(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
