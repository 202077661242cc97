// Package money implements the fixed-point monetary domain used by the ledger.
// All amounts, prices and share counts are int64 values scaled by 1000 (three
// implied decimal digits), so arithmetic never touches floating point. The only
// entry point from the outside world is Parse, which converts a decimal string
// into the fixed-point domain.
package money

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// Scale is the fixed-point scaling factor: 1 unit of currency = 1000 Amount units.
const Scale = 1000

// Amount is a fixed-point monetary value or share count, scaled by Scale.
// An Amount of 1500 represents 1.500.
type Amount int64

var (
	// ErrInvalidAmount indicates a malformed decimal string or a value that
	// cannot be represented in the fixed-point domain.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrOverflow indicates that a fixed-point computation would exceed the
	// int64 range. The ledger treats this as a hard error rather than
	// saturating, so no balance is ever silently truncated.
	ErrOverflow = errors.New("amount overflow")
)

var thousand = decimal.NewFromInt(Scale)

// Parse converts a decimal string (e.g. "400.000", "12.5") into an Amount.
// Rounding to the third decimal digit is half away from zero.
// Returns ErrInvalidAmount for non-numeric input, and ErrOverflow when the
// magnitude does not fit in an int64.
func Parse(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}

	// Scale into milli-units and round half away from zero.
	scaled := d.Mul(thousand).Round(0)
	if !scaled.BigInt().IsInt64() {
		return 0, fmt.Errorf("%w: %q", ErrOverflow, s)
	}

	return Amount(scaled.BigInt().Int64()), nil
}

// MustParse is Parse for compile-time-known literals. It panics on error and is
// intended for defaults and tests only.
func MustParse(s string) Amount {
	a, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return a
}

// String formats the amount with three decimal digits, e.g. 1500 -> "1.500".
func (a Amount) String() string {
	sign := ""
	v := int64(a)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%03d", sign, v/Scale, v%Scale)
}

// Decimal returns the amount as a shopspring decimal, for callers that need to
// serialize it back into the decimal domain.
func (a Amount) Decimal() decimal.Decimal {
	return decimal.NewFromInt(int64(a)).Div(thousand)
}

// MarshalJSON renders the amount as a decimal string. Formatting and re-parsing
// an amount always yields the same stored value.
func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

// UnmarshalJSON accepts a decimal string.
func (a *Amount) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidAmount, data)
	}
	v, err := Parse(s)
	if err != nil {
		return err
	}
	*a = v
	return nil
}

// SharesFromAmount converts a cash amount into shares at the given price:
// shares = round(amount * 1000 / price), half away from zero.
// price must be positive; a non-positive price is a caller error and is
// reported as ErrInvalidAmount.
func SharesFromAmount(amount, price Amount) (Amount, error) {
	if price <= 0 {
		return 0, fmt.Errorf("%w: price must be positive", ErrInvalidAmount)
	}
	scaled, err := mulInt64(int64(amount), Scale)
	if err != nil {
		return 0, err
	}
	return Amount(roundDiv(scaled, int64(price))), nil
}

// CashFromShares converts a share count into cash at the given price:
// cash = round(shares * price / 1000), half away from zero.
func CashFromShares(shares, price Amount) (Amount, error) {
	if price <= 0 {
		return 0, fmt.Errorf("%w: price must be positive", ErrInvalidAmount)
	}
	product, err := mulInt64(int64(shares), int64(price))
	if err != nil {
		return 0, err
	}
	return Amount(roundDiv(product, Scale)), nil
}

// mulInt64 multiplies two int64 values, returning ErrOverflow when the product
// does not fit.
func mulInt64(a, b int64) (int64, error) {
	if a == 0 || b == 0 {
		return 0, nil
	}
	p := a * b
	if p/b != a {
		return 0, ErrOverflow
	}
	if a == math.MinInt64 || b == math.MinInt64 {
		return 0, ErrOverflow
	}
	return p, nil
}

// roundDiv divides n by d (d > 0) rounding half away from zero.
func roundDiv(n, d int64) int64 {
	if n >= 0 {
		return (n + d/2) / d
	}
	return -((-n + d/2) / d)
}
