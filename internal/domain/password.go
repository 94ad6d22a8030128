package domain

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	MinPasswordLength = 8
	MaxPasswordLength = 128
)

var weakPasswordPatterns = []string{"password", "qwerty", "123456", "letmein"}

// ValidatePassword enforces the account password policy. Length is counted in
// characters, and every missing character class is reported at once.
func ValidatePassword(password string) error {
	n := utf8.RuneCountInString(password)
	if n < MinPasswordLength || n > MaxPasswordLength {
		return fmt.Errorf("%w: password must be %d to %d characters", ErrInvalidInput, MinPasswordLength, MaxPasswordLength)
	}

	var upper, lower, digit, symbol bool
	for _, r := range password {
		upper = upper || unicode.IsUpper(r)
		lower = lower || unicode.IsLower(r)
		digit = digit || unicode.IsDigit(r)
		symbol = symbol || unicode.IsPunct(r) || unicode.IsSymbol(r)
	}
	var missing []string
	if !upper {
		missing = append(missing, "an uppercase letter")
	}
	if !lower {
		missing = append(missing, "a lowercase letter")
	}
	if !digit {
		missing = append(missing, "a digit")
	}
	if !symbol {
		missing = append(missing, "a symbol")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: password needs %s", ErrInvalidInput, strings.Join(missing, ", "))
	}

	lowered := strings.ToLower(password)
	for _, weak := range weakPasswordPatterns {
		if strings.Contains(lowered, weak) {
			return fmt.Errorf("%w: password contains a common pattern", ErrInvalidInput)
		}
	}
	return nil
}
