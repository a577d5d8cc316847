package portfolio

import (
	"database/sql/driver"

	"github.com/shopspring/decimal"
)

var (
	hundred = decimal.NewFromInt(100)
	naText  = "N/A"
)

// Amount wraps decimal.Decimal for monetary values and quantities.
// JSON marshaling outputs a number with every stored digit so that a
// saved ledger decodes to the same values.
type Amount struct {
	decimal.Decimal
}

// MarshalJSON outputs as a JSON number (not a string).
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.Decimal.String()), nil
}

// UnmarshalJSON accepts both JSON numbers and quoted strings.
func (a *Amount) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		a.Decimal = decimal.Zero
		return nil
	}
	return a.Decimal.UnmarshalJSON(data)
}

// Scan implements sql.Scanner, reading float64 from SQLite REAL columns.
func (a *Amount) Scan(src any) error {
	if src == nil {
		a.Decimal = decimal.Zero
		return nil
	}
	switch v := src.(type) {
	case float64:
		a.Decimal = decimal.NewFromFloat(v)
		return nil
	case int64:
		a.Decimal = decimal.NewFromInt(v)
		return nil
	case string:
		d, err := decimal.NewFromString(v)
		if err != nil {
			return err
		}
		a.Decimal = d
		return nil
	}
	return a.Decimal.Scan(src)
}

// Value implements driver.Valuer for database writes.
func (a Amount) Value() (driver.Value, error) {
	return a.Decimal.String(), nil
}

// NewAmount creates an Amount from a float64.
func NewAmount(f float64) Amount {
	return Amount{decimal.NewFromFloat(f)}
}

// AmountOf wraps a decimal.
func AmountOf(d decimal.Decimal) Amount {
	return Amount{d}
}

// round2 rounds half away from zero to cents.
func round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// percentOf returns part/whole*100, or zero when whole is zero.
func percentOf(part, whole decimal.Decimal) decimal.Decimal {
	if whole.IsZero() {
		return decimal.Zero
	}
	return part.Div(whole).Mul(hundred)
}
