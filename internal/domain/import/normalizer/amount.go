// Package normalizer provides pure conversions from locale-ambiguous
// monetary and date strings into canonical decimal/time values.
package normalizer

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// currency markers stripped before numeric parsing
var currencyMarkers = []string{"R$", "US$", "$", "€", "£", "BRL", "USD", "EUR"}

// Amount converts a locale-ambiguous monetary string into a decimal.
//
// Disambiguation rule: when both '.' and ',' are present, the right-most
// separator is the decimal point and the other is a thousands separator.
// A lone ',' is treated as the decimal point (Brazilian convention); a lone
// '.' parses as a plain decimal.
//
// Unparsable input normalizes to zero and returns a warning instead of an
// error - imported rows go through human review, and a zero with a warning
// is recoverable where a dropped row is not.
func Amount(raw string) (decimal.Decimal, []string) {
	cleaned := strings.TrimSpace(raw)
	if cleaned == "" {
		return decimal.Zero, nil
	}

	for _, marker := range currencyMarkers {
		cleaned = strings.ReplaceAll(cleaned, marker, "")
	}
	cleaned = strings.TrimSpace(cleaned)

	// Accounting negatives: (123,45) or trailing minus.
	negative := false
	if strings.HasPrefix(cleaned, "(") && strings.HasSuffix(cleaned, ")") {
		negative = true
		cleaned = strings.Trim(cleaned, "()")
	}
	if strings.HasPrefix(cleaned, "-") {
		negative = true
		cleaned = strings.TrimPrefix(cleaned, "-")
	}
	if strings.HasSuffix(cleaned, "-") {
		negative = true
		cleaned = strings.TrimSuffix(cleaned, "-")
	}

	cleaned = strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) || r == ',' || r == '.' {
			return r
		}
		if unicode.IsSpace(r) {
			return -1
		}
		return -1
	}, cleaned)

	if cleaned == "" || !strings.ContainsFunc(cleaned, unicode.IsDigit) {
		return decimal.Zero, []string{fmt.Sprintf("unparsable amount %q normalized to 0", raw)}
	}

	hasComma := strings.Contains(cleaned, ",")
	hasDot := strings.Contains(cleaned, ".")

	switch {
	case hasComma && hasDot:
		if strings.LastIndex(cleaned, ",") > strings.LastIndex(cleaned, ".") {
			// Brazilian: 1.234,56
			cleaned = strings.ReplaceAll(cleaned, ".", "")
			cleaned = strings.ReplaceAll(cleaned, ",", ".")
		} else {
			// International: 1,234.56
			cleaned = strings.ReplaceAll(cleaned, ",", "")
		}
	case hasComma:
		cleaned = strings.ReplaceAll(cleaned, ",", ".")
	}

	// Repeated dots at this point can only mean dot-grouped thousands
	// ("1.234.567") with no decimal part.
	if strings.Count(cleaned, ".") > 1 {
		cleaned = strings.ReplaceAll(cleaned, ".", "")
	}

	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, []string{fmt.Sprintf("unparsable amount %q normalized to 0", raw)}
	}
	if negative {
		d = d.Neg()
	}
	return d, nil
}

// Magnitude returns the absolute value of a normalized amount together with
// the direction implied by its sign. Non-negative input means INFLOW.
func Magnitude(d decimal.Decimal) (decimal.Decimal, bool) {
	if d.IsNegative() {
		return d.Neg(), false
	}
	return d, true
}
