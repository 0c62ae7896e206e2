// Package phone normalizes user-entered phone numbers into the canonical
// dialable form the messaging endpoints accept.
package phone

import (
	"errors"
	"strings"
)

const (
	// CountryCode is the only supported country prefix (NANP).
	CountryCode = "1"
	// NationalLength is the number of national digits after the country code.
	NationalLength = 10
)

// ErrInvalidPhone is returned by callers that need an error for a rejected number.
var ErrInvalidPhone = errors.New("phone: invalid phone number")

// Normalize maps a phone-like string to +1XXXXXXXXXX. It never guesses: input
// that is not exactly a national number, or a country-prefixed one, is rejected
// with ok=false.
func Normalize(value string) (string, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", false
	}
	digits := Digits(value)
	if strings.HasPrefix(value, "+") {
		if len(digits) == len(CountryCode)+NationalLength && strings.HasPrefix(digits, CountryCode) {
			return "+" + digits, true
		}
		return "", false
	}
	switch {
	case len(digits) == NationalLength:
		return "+" + CountryCode + digits, true
	case len(digits) == len(CountryCode)+NationalLength && strings.HasPrefix(digits, CountryCode):
		return "+" + digits, true
	default:
		return "", false
	}
}

// Parse is Normalize with ErrInvalidPhone in place of ok=false.
func Parse(value string) (string, error) {
	normalized, ok := Normalize(value)
	if !ok {
		return "", ErrInvalidPhone
	}
	return normalized, nil
}

// IsCanonical reports whether value already has the +1XXXXXXXXXX shape.
func IsCanonical(value string) bool {
	if len(value) != 1+len(CountryCode)+NationalLength || !strings.HasPrefix(value, "+"+CountryCode) {
		return false
	}
	return Digits(value) == value[1:]
}

// Digits strips every non-digit rune.
func Digits(value string) string {
	var b strings.Builder
	b.Grow(len(value))
	for _, r := range value {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
