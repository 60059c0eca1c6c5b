package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

func init() {
	// money goes over the wire as JSON numbers
	decimal.MarshalJSONWithoutQuotes = true
}

// CleanString trims all leading and trailing whitespace in `s` and optionally lowers it.
func CleanString(s string, lower ...bool) string {
	s = strings.TrimSpace(s)
	if len(lower) > 0 && lower[0] {
		return strings.ToLower(s)
	}
	return s
}

// Money rounds d to the 2 decimal places every stored amount uses.
func Money(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}
