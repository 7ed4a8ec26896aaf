package validator

import (
	"strings"
	"unicode"
)

// Digits strips every non-digit rune from s.
func Digits(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s)
}

// NormalizeTaxID returns the CPF/CNPJ as digits only.
func NormalizeTaxID(s string) string {
	return Digits(s)
}

// NormalizePhone returns the phone number as digits only.
func NormalizePhone(s string) string {
	return Digits(s)
}

// NormalizeEmail trims and lower-cases an email address.
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// NormalizeName collapses inner whitespace.
func NormalizeName(s string) string {
	return strings.Join(strings.FieldsFunc(s, unicode.IsSpace), " ")
}
