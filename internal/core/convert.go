package core

// convert.go provides numeric coercion for catalog cells.
//
// Stock and price columns come from spreadsheets exported with different
// locales, so a cell may carry currency symbols, thousands separators, a
// decimal comma or accounting-style negatives. A cell that cannot be coerced
// is a malformed row for numeric filters and is excluded from them.

import (
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5/pgtype"
)

// numericRegex validates that a string is a valid numeric format after cleanup.
// Matches integers, decimals, and scientific notation.
var numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// decimalCommaRegex matches numbers written with a decimal comma ("12,50",
// "1.234,5"). A lone comma followed by exactly three digits groups thousands.
var decimalCommaRegex = regexp.MustCompile(`^[+-]?\d{1,3}(\.\d{3})+,\d+$|^[+-]?\d+,(\d{1,2}|\d{4,})$`)

// ToPgNumeric converts a string to pgtype.Numeric.
// Handles currency symbols, thousands separators, decimal commas and
// accounting format (parentheses for negative).
func ToPgNumeric(s string) pgtype.Numeric {
	s = strings.TrimSpace(s)
	if s == "" {
		return pgtype.Numeric{Valid: false}
	}

	// Detect negative accounting format "(123.45)"
	isNegative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		isNegative = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}

	// Remove common currency symbols
	s = strings.ReplaceAll(s, "$", "")
	s = strings.ReplaceAll(s, "€", "") // Euro
	s = strings.ReplaceAll(s, "£", "") // Pound
	s = strings.TrimSpace(s)

	// "1.234,50" and "12,5" use a decimal comma; otherwise commas group thousands
	if decimalCommaRegex.MatchString(s) {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	} else {
		s = strings.ReplaceAll(s, ",", "")
	}

	// Apply negative sign if needed
	if isNegative {
		s = "-" + s
	}

	// Validate numeric format
	if !numericRegex.MatchString(s) {
		return pgtype.Numeric{Valid: false}
	}

	// Scan into pgtype.Numeric
	var n pgtype.Numeric
	if err := n.Scan(s); err != nil {
		return pgtype.Numeric{Valid: false}
	}

	return n
}

// ParseNumber coerces a cell to float64.
// The second result is false for empty or malformed cells.
func ParseNumber(s string) (float64, bool) {
	n := ToPgNumeric(s)
	if !n.Valid {
		return 0, false
	}
	f, err := n.Float64Value()
	if err != nil || !f.Valid {
		return 0, false
	}
	return f.Float64, true
}
