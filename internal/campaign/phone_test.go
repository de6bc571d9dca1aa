package campaign

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatNumber(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		countryCode string
		want        string
	}{
		{"bare ten digits", "9876543210", "+91", "+919876543210"},
		{"already formatted", "+919876543210", "+91", "+919876543210"},
		{"spaces and dashes", "98765 432-10", "+91", "+919876543210"},
		{"parentheses", "(987) 654-3210", "+1", "+19876543210"},
		{"plus with ten digits", "+9876543210", "+91", "+919876543210"},
		{"other country code", "9876543210", "+44", "+449876543210"},
		{"full international untouched", "+14155550100", "+91", "+14155550100"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatNumber(tt.input, tt.countryCode))
		})
	}
}

func TestNormalizeDigits(t *testing.T) {
	assert.Equal(t, "9876543210", normalizeDigits("+919876543210", 10))
	assert.Equal(t, "9876543210", normalizeDigits("9876543210", 10))
	assert.Equal(t, "43210", normalizeDigits("432-10", 10))
	assert.Equal(t, "", normalizeDigits("abc", 10))
}
