package domain

import (
	"database/sql/driver"
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Money is a two-decimal amount. It scans from and writes to numeric
// columns through the embedded decimal and always renders with two
// fraction digits.
type Money struct {
	decimal.Decimal
}

// MoneyFromCents converts an integer cent count back to a two-decimal amount.
func MoneyFromCents(cents int64) Money {
	return Money{Decimal: decimal.New(cents, -2)}
}

// MustMoney parses a decimal string and panics on malformed input.
func MustMoney(s string) Money {
	return Money{Decimal: decimal.RequireFromString(s)}
}

// Cents rounds half away from zero to a whole number of cents, which is
// round-half-up for the non-negative prices stored here.
func (m Money) Cents() int64 {
	return m.Decimal.Shift(2).Round(0).IntPart()
}

func (m Money) String() string {
	return m.Decimal.StringFixed(2)
}

func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

// Value writes the fixed two-decimal form to numeric columns.
func (m Money) Value() (driver.Value, error) {
	return m.String(), nil
}
