package utils

import (
	"strings"
	"unicode"
)

// IsNotEmpty reports whether s has at least one byte.
func IsNotEmpty(s string) bool { return s != "" }

// IsBlank reports whether s is empty or consists solely of whitespace.
// Whitespace follows unicode.IsSpace, which covers NEL, NBSP and the Z categories.
func IsBlank(s string) bool {
	return strings.IndexFunc(s, func(r rune) bool { return !unicode.IsSpace(r) }) < 0
}

// IsNotBlank is the negation of IsBlank.
func IsNotBlank(s string) bool { return !IsBlank(s) }
