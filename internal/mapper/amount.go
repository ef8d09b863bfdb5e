package mapper

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount parses bank export money text. Everything except digits, '.',
// ',' and '-' is stripped first (currency symbols, spaces, thousands quirks).
// When a comma is present it is the decimal separator and dots are thousands
// separators ("1.234,56" -> 1234.56); without a comma the dot is the decimal
// point, which keeps parse(format(parse(s))) stable.
func ParseAmount(raw string) (decimal.Decimal, error) {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r >= '0' && r <= '9', r == '.', r == ',', r == '-':
			return r
		}
		return -1
	}, raw)
	if cleaned == "" {
		return decimal.Decimal{}, fmt.Errorf("amount %q: no digits", raw)
	}
	if strings.Contains(cleaned, ",") {
		cleaned = strings.ReplaceAll(cleaned, ".", "")
		cleaned = strings.Replace(cleaned, ",", ".", 1)
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("amount %q: %w", raw, err)
	}
	return d, nil
}

// FormatAmount renders an amount the way the ledger stores it.
func FormatAmount(d decimal.Decimal) string {
	return d.String()
}
