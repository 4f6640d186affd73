// Package money provides the arbitrary-precision decimal type used for every
// price, balance, fee, edge, and conversion computed by the engine. No
// binary floating-point value is permitted to reach a financial
// computation; timestamps, counts, and basis-point integers are exempt.
package money

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// Amount wraps decimal.Decimal so every monetary value in the engine shares
// one rounding and (de)serialisation policy.
type Amount struct {
	d decimal.Decimal
}

// Zero is the additive identity.
var Zero = Amount{d: decimal.Zero}

// New constructs an Amount from an integer number of whole units.
func New(whole int64) Amount {
	return Amount{d: decimal.NewFromInt(whole)}
}

// NewFromString parses a canonical decimal string. Returns an error on
// malformed input rather than silently truncating.
func NewFromString(s string) (Amount, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Amount{}, err
	}
	return Amount{d: d}, nil
}

// NewFromFloat converts a float64 config value (e.g. an hourly USD fee read
// from JSON) into an Amount. Only used at config-boundary conversions, never
// in the arithmetic path itself.
func NewFromFloat(f float64) Amount {
	return Amount{d: decimal.NewFromFloat(f)}
}

// FromRawUnits converts an on-chain integer amount (base units) to an Amount
// given the token's decimal places.
func FromRawUnits(raw *big.Int, decimals int32) Amount {
	return Amount{d: decimal.NewFromBigInt(raw, -decimals)}
}

// ToRawUnits converts to an on-chain integer amount, always rounding down so
// the engine never overspends relative to the intended amount.
func (a Amount) ToRawUnits(decimals int32) *big.Int {
	return a.RoundDown(decimals).d.Shift(decimals).BigInt()
}

// RoundDown truncates toward zero at the given number of places. Used
// exclusively for on-chain integer conversions per the engine's rounding
// policy.
func (a Amount) RoundDown(places int32) Amount {
	return Amount{d: a.d.Truncate(places)}
}

// RoundHalfEven rounds to the given number of places using banker's
// rounding, the default for any value presented for display or logging.
func (a Amount) RoundHalfEven(places int32) Amount {
	return Amount{d: a.d.RoundBank(places)}
}

func (a Amount) Add(b Amount) Amount      { return Amount{d: a.d.Add(b.d)} }
func (a Amount) Sub(b Amount) Amount      { return Amount{d: a.d.Sub(b.d)} }
func (a Amount) Mul(b Amount) Amount      { return Amount{d: a.d.Mul(b.d)} }
func (a Amount) Neg() Amount              { return Amount{d: a.d.Neg()} }
func (a Amount) Abs() Amount              { return Amount{d: a.d.Abs()} }
func (a Amount) IsZero() bool             { return a.d.IsZero() }
func (a Amount) IsPositive() bool         { return a.d.IsPositive() }
func (a Amount) IsNegative() bool         { return a.d.IsNegative() }
func (a Amount) GreaterThan(b Amount) bool { return a.d.GreaterThan(b.d) }
func (a Amount) LessThan(b Amount) bool    { return a.d.LessThan(b.d) }
func (a Amount) Cmp(b Amount) int          { return a.d.Cmp(b.d) }

// Div divides by b, returning Zero when b is zero rather than panicking —
// callers that need to distinguish "zero divisor" must check IsZero(b)
// themselves; this mirrors the edge calculator's netEdgeBps=0 convention.
func (a Amount) Div(b Amount, places int32) Amount {
	if b.IsZero() {
		return Zero
	}
	return Amount{d: a.d.DivRound(b.d, places)}
}

// MulInt64 multiplies by a plain integer (e.g. a basis-point factor).
func (a Amount) MulInt64(n int64) Amount {
	return Amount{d: a.d.Mul(decimal.NewFromInt(n))}
}

// BpsOf returns a * bps / 10000.
func (a Amount) BpsOf(bps int) Amount {
	return Amount{d: a.d.Mul(decimal.NewFromInt(int64(bps))).DivRound(decimal.NewFromInt(10000), 18)}
}

// BpsRatio returns round(a/b * 10000) as an int, 0 if b is zero.
func BpsRatio(a, b Amount) int {
	if b.IsZero() {
		return 0
	}
	r := a.d.DivRound(b.d, 8).Mul(decimal.NewFromInt(10000))
	return int(r.Round(0).IntPart())
}

func (a Amount) Float64() float64 { return a.d.InexactFloat64() }
func (a Amount) String() string   { return a.d.String() }

func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(`"` + a.d.String() + `"`), nil
}

func (a *Amount) UnmarshalJSON(b []byte) error {
	s := string(b)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	if s == "" || s == "null" {
		a.d = decimal.Zero
		return nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return err
	}
	a.d = d
	return nil
}
