package strings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitList(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{name: "empty", input: "", expected: nil},
		{name: "only separators", input: " , ,", expected: nil},
		{name: "single", input: "localhost:9092", expected: []string{"localhost:9092"}},
		{
			name:     "trims and dedupes",
			input:    " http://a, http://b,,http://a ",
			expected: []string{"http://a", "http://b"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SplitList(tt.input))
		})
	}
}

func TestEqualFoldTrim(t *testing.T) {
	assert.True(t, EqualFoldTrim(" Portland ", "portland"))
	assert.True(t, EqualFoldTrim("", "  "))
	assert.False(t, EqualFoldTrim("OR", "WA"))
}
