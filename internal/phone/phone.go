// Package phone validates subscriber numbers against per-country lengths.
package phone

import (
	"errors"
	"fmt"
	"strings"
)

var ErrRequired = errors.New("phone number required")

// LengthError is a number with the wrong digit count. Help is the text
// shown next to the form field.
type LengthError struct {
	Digits int
	Min    int
	Max    int
	Help   string
}

func (e *LengthError) Error() string {
	return fmt.Sprintf("phone number has %d digits, want %d-%d", e.Digits, e.Min, e.Max)
}

// Message returns the form text for a Validate error.
func Message(err error) string {
	var lenErr *LengthError
	switch {
	case errors.Is(err, ErrRequired):
		return "Phone number is required"
	case errors.As(err, &lenErr):
		return lenErr.Help
	}
	return "Invalid phone number"
}

// Rule is the accepted digit count for a country calling code.
type Rule struct {
	Country string
	Min     int
	Max     int
}

func (r Rule) lengthText() string {
	if r.Min == r.Max {
		return fmt.Sprintf("exactly %d", r.Min)
	}
	return fmt.Sprintf("%d to %d", r.Min, r.Max)
}

const (
	defaultMin = 7
	defaultMax = 15
)

var rules = map[string]Rule{
	"+1":   {"US/Canada", 10, 10},
	"+91":  {"India", 10, 10},
	"+44":  {"UK", 10, 10},
	"+61":  {"Australia", 9, 9},
	"+81":  {"Japan", 10, 10},
	"+86":  {"China", 11, 11},
	"+49":  {"Germany", 11, 11},
	"+33":  {"France", 9, 9},
	"+39":  {"Italy", 10, 10},
	"+34":  {"Spain", 9, 9},
	"+7":   {"Russia", 10, 10},
	"+82":  {"South Korea", 10, 10},
	"+52":  {"Mexico", 10, 10},
	"+55":  {"Brazil", 11, 11},
	"+27":  {"South Africa", 9, 9},
	"+31":  {"Netherlands", 9, 9},
	"+46":  {"Sweden", 9, 9},
	"+47":  {"Norway", 8, 8},
	"+971": {"UAE", 9, 9},
	"+65":  {"Singapore", 8, 8},
	"+60":  {"Malaysia", 9, 9},
	"+62":  {"Indonesia", 9, 11},
	"+63":  {"Philippines", 10, 10},
	"+66":  {"Thailand", 9, 9},
	"+84":  {"Vietnam", 9, 10},
}

// Lookup returns the rule for countryCode ("+91").
func Lookup(countryCode string) (Rule, bool) {
	r, ok := rules[countryCode]
	return r, ok
}

// Digits strips everything but 0-9.
func Digits(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s)
}

// Validate checks number, given without its country code, and returns the
// bare digits. Unknown country codes accept 7 to 15 digits.
func Validate(number, countryCode string) (string, error) {
	digits := Digits(number)
	if digits == "" {
		return "", ErrRequired
	}

	r, ok := Lookup(countryCode)
	if !ok {
		if len(digits) < defaultMin || len(digits) > defaultMax {
			return "", &LengthError{
				Digits: len(digits),
				Min:    defaultMin,
				Max:    defaultMax,
				Help:   fmt.Sprintf("Phone number must be between %d and %d digits", defaultMin, defaultMax),
			}
		}
		return digits, nil
	}

	if len(digits) < r.Min || len(digits) > r.Max {
		return "", &LengthError{Digits: len(digits), Min: r.Min, Max: r.Max, Help: HelpText(countryCode)}
	}
	return digits, nil
}

// Placeholder is input hint text for countryCode.
func Placeholder(countryCode string) string {
	if r, ok := Lookup(countryCode); ok {
		return fmt.Sprintf("Enter %d digit %s number", r.Max, r.Country)
	}
	return fmt.Sprintf("Enter phone number (%d-%d digits)", defaultMin, defaultMax)
}

// HelpText explains the rule for countryCode.
func HelpText(countryCode string) string {
	if r, ok := Lookup(countryCode); ok {
		return fmt.Sprintf("Phone number for %s must be %s digits (without country code)", r.Country, r.lengthText())
	}
	return fmt.Sprintf("Enter phone number without country code (numbers only, %d-%d digits)", defaultMin, defaultMax)
}
