package summary

import (
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// ParseAmount reads a monetary field. SPED amounts use "," as the decimal
// separator, but dirty files also carry "." thousands separators or
// US-style values, so the last "." or "," is taken as the decimal point and
// every other one is dropped.
// Whitespace is ignored. Empty or unparsable input yields zero.
func ParseAmount(raw string) decimal.Decimal {
	s := strings.Join(strings.Fields(raw), "")
	if s == "" {
		return decimal.Zero
	}

	last := strings.LastIndexAny(s, ".,")
	if last >= 0 {
		intPart := strings.NewReplacer(".", "", ",", "").Replace(s[:last])
		s = intPart + "." + s[last+1:]
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// CoerceCurrency is ParseAmount as a float64.
func CoerceCurrency(raw string) float64 {
	return ParseAmount(raw).InexactFloat64()
}

// FormatAmount renders an amount in the given ISO currency, e.g.
// "R$1.234,56" for BRL. Unknown currency codes fall back to a plain
// two-decimal rendering with the code appended.
func FormatAmount(amount decimal.Decimal, currency string) string {
	cur := money.GetCurrency(strings.ToUpper(currency))
	if cur == nil {
		return amount.StringFixed(2) + " " + currency
	}
	minor := amount.Shift(int32(cur.Fraction)).Round(0).IntPart()
	return money.New(minor, cur.Code).Display()
}
