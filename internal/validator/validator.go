package validator

import (
	"errors"
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	ErrInvalidCurrency = errors.New("invalid currency")
	ErrInvalidName     = errors.New("invalid name")
	ErrInvalidBody     = errors.New("invalid body")
)

var currencyRegex = regexp.MustCompile(`^[A-Za-z]{3}$`)

// ValidateCurrency accepts a three-letter ISO 4217 style code. Casing is the
// caller's concern; the service uppercases before persisting.
func ValidateCurrency(currency string) error {
	if !currencyRegex.MatchString(strings.TrimSpace(currency)) {
		return ErrInvalidCurrency
	}
	return nil
}

// ValidateName covers member, category and tag names: non-blank, at most 120
// characters.
func ValidateName(name string) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" || utf8.RuneCountInString(trimmed) > 120 {
		return ErrInvalidName
	}
	return nil
}

// ValidateBody covers free-text fields like comment bodies and reminder
// messages: non-blank, at most 2000 characters.
func ValidateBody(body string) error {
	trimmed := strings.TrimSpace(body)
	if trimmed == "" || utf8.RuneCountInString(trimmed) > 2000 {
		return ErrInvalidBody
	}
	return nil
}
