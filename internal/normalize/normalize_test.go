package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPhone(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "formatted US number",
			input:    "(555) 123-4567",
			expected: "5551234567",
		},
		{
			name:     "country code truncated to last 10",
			input:    "+1 555 123 4567",
			expected: "5551234567",
		},
		{
			name:     "bare 10 digits",
			input:    "5551234567",
			expected: "5551234567",
		},
		{
			name:     "too short is unusable",
			input:    "123-4567",
			expected: "",
		},
		{
			name:     "empty",
			input:    "",
			expected: "",
		},
		{
			name:     "letters only",
			input:    "call us",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Phone(tt.input))
		})
	}
}

func TestPhoneLongDigitStrings(t *testing.T) {
	// For any digit string of length >= 10 the result is exactly the
	// last 10 digits.
	assert.Equal(t, "2345678901", Phone("12345678901"))
	assert.Equal(t, "4567890123", Phone("1234567890123"))
}

func TestZip5(t *testing.T) {
	assert.Equal(t, "10001", Zip5("100014403"))
	assert.Equal(t, "10001", Zip5("10001"))
	assert.Equal(t, "100", Zip5("100"))
	assert.Equal(t, "", Zip5(""))
}

func TestName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "legal suffix then descriptor suffix",
			input:    "Downtown Pain Clinic, LLC",
			expected: "downtown pain",
		},
		{
			name:     "management is not a stripped suffix",
			input:    "Downtown Pain Management",
			expected: "downtown pain management",
		},
		{
			name:     "inc with punctuation",
			input:    "Acme Orthopedics, Inc.",
			expected: "acme orthopedics",
		},
		{
			name:     "wellness suffix",
			input:    "Harmony Wellness",
			expected: "harmony",
		},
		{
			name:     "whitespace collapse",
			input:    "  Summit   Spine   Group  ",
			expected: "summit spine",
		},
		{
			name:     "empty",
			input:    "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Name(tt.input))
		})
	}
}

func TestNameIdempotent(t *testing.T) {
	inputs := []string{
		"Downtown Pain Clinic, LLC",
		"Riverside Medical Center",
		"Dr. Jane Smith, MD",
		"Lakeview Rehab",
	}
	for _, in := range inputs {
		once := Name(in)
		assert.Equal(t, once, Name(once), "Name(%q) not idempotent", in)
	}
}

func TestIndividualName(t *testing.T) {
	assert.Equal(t, "jane smith", IndividualName("Jane", "Smith"))
	assert.Equal(t, "smith", IndividualName("", "Smith"))
	assert.Equal(t, "jane", IndividualName("Jane", ""))
}

func TestAddress(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "street abbreviation",
			input:    "123 Main Street",
			expected: "123 main st",
		},
		{
			name:     "directional abbreviation",
			input:    "500 Park Avenue Northwest",
			expected: "500 park ave nw",
		},
		{
			name:     "suite stripped",
			input:    "123 Main St, Suite 400",
			expected: "123 main st",
		},
		{
			name:     "directional at word start",
			input:    "12 West Main Street",
			expected: "12 w main st",
		},
		{
			name:     "embedded directional untouched",
			input:    "4200 North Western Avenue",
			expected: "4200 n western ave",
		},
		{
			name:     "hash unit stripped",
			input:    "123 Main St #4B",
			expected: "123 main st",
		},
		{
			name:     "already normalized",
			input:    "123 main st",
			expected: "123 main st",
		},
		{
			name:     "empty",
			input:    "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Address(tt.input))
		})
	}
}

func TestAddressIdempotent(t *testing.T) {
	inputs := []string{
		"123 Main Street, Suite 400",
		"500 Park Avenue Northwest",
		"42 Elm Boulevard Apt 7",
	}
	for _, in := range inputs {
		once := Address(in)
		assert.Equal(t, once, Address(once), "Address(%q) not idempotent", in)
	}
}

func TestTokenSortRatio(t *testing.T) {
	// Identical strings score 100 regardless of token order.
	assert.Equal(t, 100, TokenSortRatio("pain downtown", "downtown pain"))
	assert.Equal(t, 100, TokenSortRatio("downtown pain", "downtown pain"))

	// Disjoint strings score low.
	assert.Less(t, TokenSortRatio("downtown pain", "lakeside dental"), 50)

	// Empty inputs never score.
	assert.Equal(t, 0, TokenSortRatio("", ""))

	// Partial overlap lands between.
	score := TokenSortRatio("downtown pain", "downtown pain management")
	assert.Greater(t, score, 50)
	assert.Less(t, score, 100)
}
