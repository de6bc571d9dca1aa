package campaign

import "strings"

// FormatNumber normalizes a dialable number: strips separators, ensures a
// leading +, and applies the default country code to bare 10-digit numbers.
// The country-code fallback is a policy knob, not a guarantee of validity.
func FormatNumber(number, defaultCountryCode string) string {
	formatted := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '(', ')':
			return -1
		default:
			return r
		}
	}, number)
	if !strings.HasPrefix(formatted, "+") {
		formatted = "+" + formatted
	}
	// "+" plus exactly 10 digits means the country code is missing.
	if len(formatted) == 11 && strings.HasPrefix(formatted, "+") {
		formatted = defaultCountryCode + formatted[1:]
	}
	return formatted
}

// normalizeDigits reduces a number to its trailing n digits so numbers with
// and without country codes compare equal.
func normalizeDigits(number string, n int) string {
	var b strings.Builder
	for _, r := range number {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) > n {
		return digits[len(digits)-n:]
	}
	return digits
}
