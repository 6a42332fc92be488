package strings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDedupeAndTrim(t *testing.T) {
	tests := []struct {
		name     string
		input    []string
		expected []string
	}{
		{
			name:     "nil slice",
			input:    nil,
			expected: nil,
		},
		{
			name:     "empty slice",
			input:    []string{},
			expected: []string{},
		},
		{
			name:     "trims whitespace",
			input:    []string{"  Nico Maduro  ", "El Aissami  "},
			expected: []string{"Nico Maduro", "El Aissami"},
		},
		{
			name:     "removes duplicates preserving order",
			input:    []string{"VENEZUELA-EO13692", "SDNTK", "VENEZUELA-EO13692"},
			expected: []string{"VENEZUELA-EO13692", "SDNTK"},
		},
		{
			name:     "removes empty strings",
			input:    []string{"Nico Maduro", "", "  "},
			expected: []string{"Nico Maduro"},
		},
		{
			name:     "preserves case",
			input:    []string{"Foo", "foo", "FOO"},
			expected: []string{"Foo", "foo", "FOO"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DedupeAndTrim(tt.input))
		})
	}
}
