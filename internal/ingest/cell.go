package ingest

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Lenient fallback layouts tried after the configured explicit formats.
var fallbackDateFormats = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"Jan 2 2006",
	"2006.1.2",
}

// ParseDate parses a cell into a date, trying the explicit formats in order
// and then a lenient fallback set. A blank cell or an unparseable value
// returns ok=false, never an error: an unparseable date does not by itself
// invalidate a row.
func ParseDate(raw string, formats []string) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, false
	}

	for _, layout := range formats {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	for _, layout := range fallbackDateFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ParseAmount parses a currency cell into an exact decimal. Conversion always
// goes through the string form — never a binary float — so cents survive.
//
// Rules: a blank cell is the missing marker (ok=false); a lone dash is zero;
// parentheses mean accounting-negative; currency symbols and spaces are
// stripped. When both "," and "." appear, whichever comes last is the decimal
// point. A lone comma is a decimal point only when exactly one comma is
// followed by at most two digits, otherwise it is a thousands separator.
// Unparseable values return ok=false so callers can count skipped rows
// instead of aborting the file.
func ParseAmount(raw string) (decimal.Decimal, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return decimal.Decimal{}, false
	}
	if s == "-" {
		return decimal.Zero, true
	}

	negative := strings.Contains(s, "(") && strings.Contains(s, ")")

	cleaned := stripToNumeric(s)

	hasComma := strings.Contains(cleaned, ",")
	hasDot := strings.Contains(cleaned, ".")

	switch {
	case hasComma && hasDot:
		if strings.LastIndex(cleaned, ",") > strings.LastIndex(cleaned, ".") {
			// European: 1.234,56
			cleaned = strings.ReplaceAll(cleaned, ".", "")
			cleaned = strings.ReplaceAll(cleaned, ",", ".")
		} else {
			cleaned = strings.ReplaceAll(cleaned, ",", "")
		}
	case hasComma:
		parts := strings.Split(cleaned, ",")
		if len(parts) == 2 && len(parts[1]) <= 2 {
			cleaned = strings.ReplaceAll(cleaned, ",", ".")
		} else {
			cleaned = strings.ReplaceAll(cleaned, ",", "")
		}
	}

	if cleaned == "" {
		cleaned = "0"
	}

	amount, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Decimal{}, false
	}
	if negative {
		amount = amount.Neg()
	}
	return amount, true
}

// stripToNumeric removes everything except digits, '.', '-', and ','.
func stripToNumeric(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == '.' || r == '-' || r == ',' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// truncateRunes bounds a string to n characters, rune-safe.
func truncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
