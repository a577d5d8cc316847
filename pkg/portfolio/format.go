package portfolio

import (
	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// DefaultCurrency is used for display when a holding's currency is unknown.
const DefaultCurrency = "USD"

// FormatMoney renders d in the currency's own notation, e.g. "$1,234.50".
// Unknown currency codes fall back to DefaultCurrency.
func FormatMoney(d decimal.Decimal, currency string) string {
	cur := money.GetCurrency(currency)
	if cur == nil {
		cur = money.GetCurrency(DefaultCurrency)
	}
	minor := d.Shift(int32(cur.Fraction)).Round(0)
	return cur.Formatter().Format(minor.IntPart())
}

// FormatSignedPercent renders a percentage with an explicit sign, e.g. "+6.25%".
func FormatSignedPercent(d decimal.Decimal) string {
	s := d.StringFixed(2) + "%"
	if d.IsPositive() {
		return "+" + s
	}
	return s
}

// FormatPercent renders a percentage with two decimals.
func FormatPercent(d decimal.Decimal) string {
	return d.StringFixed(2) + "%"
}

func formatOptionalMoney(v *float64, currency string) string {
	if v == nil {
		return naText
	}
	return FormatMoney(decimal.NewFromFloat(*v), currency)
}

func formatOptionalNumber(v *float64) string {
	if v == nil {
		return naText
	}
	return decimal.NewFromFloat(*v).StringFixed(2)
}

func textOrNA(s string) string {
	if s == "" {
		return naText
	}
	return s
}
