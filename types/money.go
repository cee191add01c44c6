// Package types provides value types shared across medquote packages.
package types

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Money is a monetary value in the smallest currency unit.
// Sums are integer-only; fractional results (rates, multipliers) go
// through decimal and are rounded back to a whole unit.
//
// Examples:
//   - USD(12800000) = $128,000.00
//   - Dollars(5000) = $5,000.00
type Money struct {
	Amount   int64  `json:"amount"`   // Smallest unit (cents)
	Currency string `json:"currency"` // ISO 4217 lowercase: "usd"
}

// DefaultCurrency is the currency every engine amount is held in.
const DefaultCurrency = "usd"

// USD creates a Money value in US Dollars from cents.
func USD(cents int64) Money { return Money{Amount: cents, Currency: "usd"} }

// Dollars creates a Money value from whole US dollars.
func Dollars(whole int64) Money { return USD(whole * 100) }

// Zero returns a zero Money value in the specified currency.
func Zero(currency string) Money { return Money{Currency: strings.ToLower(currency)} }

// Normalized returns m with a lowercase currency code. An empty currency
// becomes DefaultCurrency.
func (m Money) Normalized() Money {
	c := strings.ToLower(strings.TrimSpace(m.Currency))
	if c == "" {
		c = DefaultCurrency
	}
	return Money{Amount: m.Amount, Currency: c}
}

// Add adds two Money values. Panics if currencies don't match.
func (m Money) Add(other Money) Money {
	m.assertSameCurrency(other)
	return Money{Amount: m.Amount + other.Amount, Currency: m.Currency}
}

// Subtract subtracts another Money value. Panics if currencies don't match.
func (m Money) Subtract(other Money) Money {
	m.assertSameCurrency(other)
	return Money{Amount: m.Amount - other.Amount, Currency: m.Currency}
}

// Multiply multiplies the Money by an integer quantity.
func (m Money) Multiply(qty int64) Money {
	return Money{Amount: m.Amount * qty, Currency: m.Currency}
}

// ApplyRate multiplies the amount by a decimal factor and rounds to the
// nearest unit, half away from zero. It is the only rounding rule used for
// prices and commissions.
func (m Money) ApplyRate(factor decimal.Decimal) Money {
	v := decimal.NewFromInt(m.Amount).Mul(factor).Round(0)
	return Money{Amount: v.IntPart(), Currency: m.Currency}
}

// IsZero returns true if the amount is zero.
func (m Money) IsZero() bool { return m.Amount == 0 }

// IsPositive returns true if the amount is greater than zero.
func (m Money) IsPositive() bool { return m.Amount > 0 }

// IsNegative returns true if the amount is less than zero.
func (m Money) IsNegative() bool { return m.Amount < 0 }

// Equal returns true if amount and currency match.
func (m Money) Equal(other Money) bool {
	return m.Amount == other.Amount && m.Currency == other.Currency
}

// LessThan returns true if this Money is less than other. Panics if currencies don't match.
func (m Money) LessThan(other Money) bool {
	m.assertSameCurrency(other)
	return m.Amount < other.Amount
}

// FormatMajor returns the major-unit string without symbol or grouping,
// e.g. "1234.50" for USD(123450). Used by the CSV export.
func (m Money) FormatMajor() string {
	return decimal.New(m.Amount, -2).StringFixed(2)
}

// String returns a human-readable string with symbol and thousands
// separators, e.g. "$128,000.00".
func (m Money) String() string {
	major := m.FormatMajor()
	sign := ""
	if strings.HasPrefix(major, "-") {
		sign, major = "-", major[1:]
	}
	whole, frac, _ := strings.Cut(major, ".")

	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return sign + currencySymbol(m.Currency) + b.String() + "." + frac
}

// MarshalJSON implements json.Marshaler.
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Amount   int64  `json:"amount"`
		Currency string `json:"currency"`
		Display  string `json:"display"`
	}{
		Amount:   m.Amount,
		Currency: m.Currency,
		Display:  m.String(),
	})
}

// UnmarshalJSON implements json.Unmarshaler; the display field is ignored.
func (m *Money) UnmarshalJSON(data []byte) error {
	var raw struct {
		Amount   int64  `json:"amount"`
		Currency string `json:"currency"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	m.Amount, m.Currency = raw.Amount, raw.Currency
	return nil
}

func (m Money) assertSameCurrency(other Money) {
	if m.Currency != other.Currency {
		panic(fmt.Sprintf("money: currency mismatch: %s != %s", m.Currency, other.Currency))
	}
}

func currencySymbol(currency string) string {
	switch strings.ToLower(currency) {
	case "usd":
		return "$"
	case "eur":
		return "€"
	case "gbp":
		return "£"
	default:
		return strings.ToUpper(currency) + " "
	}
}

// Sum adds Money values of the same currency. An empty input sums to zero USD.
func Sum(values ...Money) Money {
	if len(values) == 0 {
		return Zero("usd")
	}
	result := values[0]
	for _, v := range values[1:] {
		result = result.Add(v)
	}
	return result
}
