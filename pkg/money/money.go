// Package money provides an exact fixed-point amount type. Amounts are held
// as int64 minor units (cents) and are never represented as binary floating
// point anywhere in the system.
package money

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	// ErrInvalidAmount is returned when user input cannot be represented
	// exactly in minor units of the currency.
	ErrInvalidAmount = errors.New("invalid amount")
	// ErrCurrencyMismatch is returned when combining amounts of different
	// currencies.
	ErrCurrencyMismatch = errors.New("currency mismatch")
)

// minorUnitExponent is the number of decimal places carried by supported
// currencies (ZAR, like most, uses 2).
const minorUnitExponent = 2

// Money is an exact amount of a single currency in minor units.
type Money struct {
	Cents    int64
	Currency string
}

// FromCents builds a Money from an already-exact minor unit count.
func FromCents(cents int64, currency string) Money {
	return Money{Cents: cents, Currency: currency}
}

// Zero returns the zero amount of a currency.
func Zero(currency string) Money {
	return Money{Currency: currency}
}

// Parse converts a decimal string ("150", "99.90") into exact minor units.
// It fails with ErrInvalidAmount for non-numeric input, more precision than
// the currency allows, or values outside the int64 minor-unit range.
func Parse(s string, currency string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, fmt.Errorf("%w: %q is not numeric", ErrInvalidAmount, s)
	}
	cents := d.Shift(minorUnitExponent)
	if !cents.IsInteger() {
		return Money{}, fmt.Errorf("%w: %q has more than %d decimal places", ErrInvalidAmount, s, minorUnitExponent)
	}
	if !cents.BigInt().IsInt64() {
		return Money{}, fmt.Errorf("%w: %q is out of range", ErrInvalidAmount, s)
	}
	return Money{Cents: cents.BigInt().Int64(), Currency: currency}, nil
}

// Add returns m + other.
func (m Money) Add(other Money) (Money, error) {
	if m.Currency != other.Currency {
		return Money{}, fmt.Errorf("%w: cannot add %s to %s", ErrCurrencyMismatch, other.Currency, m.Currency)
	}
	return Money{Cents: m.Cents + other.Cents, Currency: m.Currency}, nil
}

// Sub returns m - other.
func (m Money) Sub(other Money) (Money, error) {
	if m.Currency != other.Currency {
		return Money{}, fmt.Errorf("%w: cannot subtract %s from %s", ErrCurrencyMismatch, other.Currency, m.Currency)
	}
	return Money{Cents: m.Cents - other.Cents, Currency: m.Currency}, nil
}

// MulBasisPoints multiplies by bp/10000, rounding half up to the nearest
// cent. Used for percentage fees (200 bps = 2%).
func (m Money) MulBasisPoints(bp int64) Money {
	product := decimal.New(m.Cents, 0).Mul(decimal.New(bp, -4)).Round(0)
	return Money{Cents: product.IntPart(), Currency: m.Currency}
}

// Cmp compares two amounts: -1 if m < other, 0 if equal, +1 if m > other.
func (m Money) Cmp(other Money) (int, error) {
	if m.Currency != other.Currency {
		return 0, fmt.Errorf("%w: cannot compare %s with %s", ErrCurrencyMismatch, m.Currency, other.Currency)
	}
	switch {
	case m.Cents < other.Cents:
		return -1, nil
	case m.Cents > other.Cents:
		return 1, nil
	default:
		return 0, nil
	}
}

// Neg returns the negated amount.
func (m Money) Neg() Money {
	return Money{Cents: -m.Cents, Currency: m.Currency}
}

// IsPositive reports whether the amount is strictly greater than zero.
func (m Money) IsPositive() bool { return m.Cents > 0 }

// IsZero reports whether the amount is zero.
func (m Money) IsZero() bool { return m.Cents == 0 }

// String renders the amount as a plain decimal ("1234.50"). Currency symbols
// are presentation concerns and stay out of this package.
func (m Money) String() string {
	return decimal.New(m.Cents, -minorUnitExponent).StringFixed(minorUnitExponent)
}

// MarshalJSON renders the amount as a decimal string with its currency.
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Amount   string `json:"amount"`
		Currency string `json:"currency"`
	}{Amount: m.String(), Currency: m.Currency})
}

// UnmarshalJSON accepts the MarshalJSON shape.
func (m *Money) UnmarshalJSON(data []byte) error {
	var raw struct {
		Amount   string `json:"amount"`
		Currency string `json:"currency"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := Parse(raw.Amount, raw.Currency)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
