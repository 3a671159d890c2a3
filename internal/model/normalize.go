package model

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// NormalizeName trims surrounding whitespace and applies Unicode NFC so that
// visually identical names collide on uniqueness checks.
func NormalizeName(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

// NormalizeEmail is NormalizeName followed by lower-casing.
func NormalizeEmail(s string) string {
	return strings.ToLower(NormalizeName(s))
}
