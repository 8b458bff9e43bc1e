// Package utils provides common utility functions for tickerpulse.
package utils

import (
	"strings"
	"unicode/utf8"
)

// Ellipsis is appended by Truncate when text was cut.
const Ellipsis = "..."

// Truncate keeps the first limit characters (runes) of s and appends
// Ellipsis when anything was cut.
func Truncate(s string, limit int) string {
	if limit < 0 {
		limit = 0
	}
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	i := 0
	for pos := range s {
		if i == limit {
			return s[:pos] + Ellipsis
		}
		i++
	}
	return s
}

// NormalizeTicker upper-cases a symbol and strips whitespace and a
// leading "$".
func NormalizeTicker(ticker string) string {
	t := strings.TrimSpace(ticker)
	t = strings.TrimPrefix(t, "$")
	return strings.ToUpper(strings.TrimSpace(t))
}

// MaskSecret shows only the first and last three characters of a secret.
func MaskSecret(secret string) string {
	if len(secret) <= 8 {
		return "***"
	}
	return secret[:3] + "..." + secret[len(secret)-3:]
}
