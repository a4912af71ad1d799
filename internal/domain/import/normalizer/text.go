package normalizer

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var diacriticsRemover = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// StripDiacritics removes combining marks so "Prestação" and "PRESTACAO"
// compare equal after upper-casing.
func StripDiacritics(s string) string {
	out, _, err := transform.String(diacriticsRemover, s)
	if err != nil {
		return s
	}
	return out
}

// Fold upper-cases and strips diacritics, the canonical form used by the
// entity matcher and the payment-method lookup.
func Fold(s string) string {
	return strings.ToUpper(StripDiacritics(strings.TrimSpace(s)))
}

// CleanDescription trims and collapses internal whitespace.
func CleanDescription(s string) string {
	fields := strings.Fields(s)
	return strings.Join(fields, " ")
}

// JoinDescription concatenates a primary description with an optional
// details field.
func JoinDescription(primary, details string) string {
	primary = CleanDescription(primary)
	details = CleanDescription(details)
	if details == "" {
		return primary
	}
	if primary == "" {
		return details
	}
	return primary + " - " + details
}

// DecodeText strips a UTF-8 BOM and re-decodes Latin-1 payloads, the usual
// encoding of Brazilian bank exports.
func DecodeText(data []byte) []byte {
	if len(data) >= 3 && data[0] == 0xEF && data[1] == 0xBB && data[2] == 0xBF {
		data = data[3:]
	}
	if utf8.Valid(data) {
		return data
	}
	runes := make([]rune, len(data))
	for i, b := range data {
		runes[i] = rune(b)
	}
	return []byte(string(runes))
}
