package core

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
)

// Normalize derives the canonical identifier of a product code.
// Every rune that is not a letter or digit is dropped, then leading zeros are
// stripped. Normalize is idempotent; an input with no alphanumerics yields
// the zero CanonicalID, which never joins.
func Normalize(code string) CanonicalID {
	var b strings.Builder
	b.Grow(len(code))
	for _, r := range code {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return CanonicalID(strings.TrimLeft(b.String(), "0"))
}

// tokenKey is the identity used to compare brand and reference tokens:
// trimmed, inner whitespace collapsed, Unicode case folded.
// A Caser is stateful, so each call gets its own.
func tokenKey(s string) string {
	return cases.Fold().String(strings.Join(strings.Fields(s), " "))
}

// tokenEqual reports whether two tokens are the same under tokenKey.
func tokenEqual(a, b string) bool {
	return tokenKey(a) == tokenKey(b)
}

// containsFold reports whether needle occurs in haystack ignoring case.
// An empty needle matches everything.
func containsFold(haystack, needle string) bool {
	if strings.TrimSpace(needle) == "" {
		return true
	}
	return strings.Contains(tokenKey(haystack), tokenKey(needle))
}

// MultiValue is a cell holding a comma-separated list of tokens.
type MultiValue string

// Split returns the trimmed, non-empty tokens in order.
func (m MultiValue) Split() []string {
	if strings.TrimSpace(string(m)) == "" {
		return nil
	}
	parts := strings.Split(string(m), ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Contains reports whether any token equals the given one under tokenKey.
func (m MultiValue) Contains(token string) bool {
	_, ok := m.Match(token)
	return ok
}

// Match returns the token as written in the cell when it equals the given one.
func (m MultiValue) Match(token string) (string, bool) {
	key := tokenKey(token)
	if key == "" {
		return "", false
	}
	for _, t := range m.Split() {
		if tokenKey(t) == key {
			return t, true
		}
	}
	return "", false
}

// IsEmpty reports whether the cell has no tokens.
func (m MultiValue) IsEmpty() bool {
	return len(m.Split()) == 0
}

// JoinValues builds a MultiValue from tokens.
func JoinValues(tokens []string) MultiValue {
	return MultiValue(strings.Join(tokens, ", "))
}
