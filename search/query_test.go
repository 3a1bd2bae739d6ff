package search

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewSearchQuery(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected Query
	}{
		{
			name:     "Only terms",
			input:    "hello world",
			expected: Query{RawInput: "hello world", Terms: "hello world", Limit: 10},
		},
		{
			name:  "Terms and every flag",
			input: "lunch --user Dulan --lang EN --limit 5 today",
			expected: Query{
				RawInput: "lunch --user Dulan --lang EN --limit 5 today",
				Terms:    "lunch today", UserName: "Dulan", Lang: "en", Limit: 5,
			},
		},
		{
			name:     "Limit is capped and garbage ignored",
			input:    "--limit 1000 --limit abc",
			expected: Query{RawInput: "--limit 1000 --limit abc", Limit: 100},
		},
		{
			name:     "Dangling flag is a term",
			input:    "ping --user",
			expected: Query{RawInput: "ping --user", Terms: "ping --user", Limit: 10},
		},
		{
			name:     "Unknown flag keeps its neighbour as a term",
			input:    "foo --x bar",
			expected: Query{RawInput: "foo --x bar", Terms: "foo --x bar", Limit: 10},
		},
		{
			name:     "Empty input",
			input:    "",
			expected: Query{Limit: 10},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.expected, NewSearchQuery(tt.input))
		})
	}
}
