// Package email has small helpers for working with addresses.
package email

import (
	"strings"
	"unicode"
)

// Normalize lowercases and trims an address for use as a lookup key.
func Normalize(addr string) string {
	return strings.ToLower(strings.TrimSpace(addr))
}

// Domain returns the lowercased domain part, or "" when the address has no
// usable domain.
func Domain(addr string) string {
	at := strings.LastIndexByte(addr, '@')
	if at < 0 || at == len(addr)-1 {
		return ""
	}
	return strings.ToLower(addr[at+1:])
}

// DeriveName guesses first/last display names from the local part of an
// address. Used to backfill profile names for social signups whose provider
// returned no name claims.
func DeriveName(addr string) (first, last string) {
	localPart := addr
	if at := strings.IndexByte(addr, '@'); at > 0 {
		localPart = addr[:at]
	}

	parts := strings.FieldsFunc(localPart, func(r rune) bool {
		return r == '.' || r == '_' || r == '-' || r == '+'
	})
	if len(parts) == 0 {
		return "User", "User"
	}

	first = capitalize(parts[0])
	last = "User"
	if len(parts) > 1 {
		last = capitalize(parts[len(parts)-1])
	}
	return first, last
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	runes := []rune(s)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
